package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"podnews/internal/domain"
)

type AudioFileStore struct {
	db *sqlx.DB
}

func NewAudioFileStore(db *sqlx.DB) *AudioFileStore {
	return &AudioFileStore{db: db}
}

const audioColumns = `
	id, user_id, article_id, file_name, status, operation_name, output_uri,
	error_message, tts_config_id, voice_name, language_code, audio_encoding,
	created_at, updated_at`

func (s *AudioFileStore) Insert(ctx context.Context, f *domain.AudioFile) (int64, error) {
	exec := GetExecutor(ctx, s.db)

	query := `
		INSERT INTO audio_files (
			user_id, article_id, file_name, status, operation_name, output_uri,
			error_message, tts_config_id, voice_name, language_code, audio_encoding
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		RETURNING id`

	var id int64
	err := exec.QueryRowxContext(ctx, query,
		f.UserID,
		f.ArticleID,
		f.FileName,
		f.Status,
		f.OperationName,
		f.OutputURI,
		f.ErrorMessage,
		f.TtsConfigID,
		f.VoiceName,
		f.LanguageCode,
		f.Encoding,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert audio file: %w", err)
	}

	return id, nil
}

func (s *AudioFileStore) FindByID(ctx context.Context, id int64) (*domain.AudioFile, error) {
	exec := GetExecutor(ctx, s.db)

	var f domain.AudioFile
	query := `SELECT` + audioColumns + ` FROM audio_files WHERE id = $1`

	err := sqlx.GetContext(ctx, exec, &f, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAudioNotFound
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *AudioFileStore) Update(ctx context.Context, f *domain.AudioFile) error {
	exec := GetExecutor(ctx, s.db)

	query := `
		UPDATE audio_files SET
			status = $2,
			operation_name = $3,
			output_uri = $4,
			error_message = $5,
			updated_at = NOW()
		WHERE id = $1`

	result, err := exec.ExecContext(ctx, query,
		f.ID,
		f.Status,
		f.OperationName,
		f.OutputURI,
		f.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("update audio file: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrAudioNotFound
	}
	return nil
}

func (s *AudioFileStore) Delete(ctx context.Context, id int64) error {
	exec := GetExecutor(ctx, s.db)

	result, err := exec.ExecContext(ctx, `DELETE FROM audio_files WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrAudioNotFound
	}
	return nil
}

func (s *AudioFileStore) ListByUser(ctx context.Context, userID int64) ([]domain.AudioFile, error) {
	exec := GetExecutor(ctx, s.db)

	var files []domain.AudioFile
	query := `SELECT` + audioColumns + ` FROM audio_files WHERE user_id = $1 ORDER BY created_at DESC`

	err := sqlx.SelectContext(ctx, exec, &files, query, userID)
	return files, err
}
