package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"podnews/internal/domain"
)

type TtsConfigStore struct {
	db *sqlx.DB
}

func NewTtsConfigStore(db *sqlx.DB) *TtsConfigStore {
	return &TtsConfigStore{db: db}
}

const ttsConfigColumns = `
	id, user_id, name, language_code, voice_name, speaking_rate, pitch,
	volume_gain_db, audio_encoding, sample_rate_hertz, is_default, is_active,
	created_at, updated_at`

func (s *TtsConfigStore) Insert(ctx context.Context, c *domain.TtsConfig) (int64, error) {
	exec := GetExecutor(ctx, s.db)

	query := `
		INSERT INTO tts_configs (
			user_id, name, language_code, voice_name, speaking_rate, pitch,
			volume_gain_db, audio_encoding, sample_rate_hertz, is_default, is_active
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		RETURNING id`

	var id int64
	err := exec.QueryRowxContext(ctx, query,
		c.UserID,
		c.Name,
		c.LanguageCode,
		c.VoiceName,
		c.SpeakingRate,
		c.Pitch,
		c.VolumeGainDb,
		c.Encoding,
		c.SampleRateHertz,
		c.IsDefault,
		c.IsActive,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert tts config: %w", err)
	}

	return id, nil
}

func (s *TtsConfigStore) FindByID(ctx context.Context, id int64) (*domain.TtsConfig, error) {
	exec := GetExecutor(ctx, s.db)

	var c domain.TtsConfig
	query := `SELECT` + ttsConfigColumns + ` FROM tts_configs WHERE id = $1`

	err := sqlx.GetContext(ctx, exec, &c, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrConfigNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindDefault returns the user's default active config, or (nil, nil) when
// none is set.
func (s *TtsConfigStore) FindDefault(ctx context.Context, userID int64) (*domain.TtsConfig, error) {
	exec := GetExecutor(ctx, s.db)

	var c domain.TtsConfig
	query := `SELECT` + ttsConfigColumns + ` FROM tts_configs WHERE user_id = $1 AND is_default AND is_active`

	err := sqlx.GetContext(ctx, exec, &c, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *TtsConfigStore) ListActive(ctx context.Context, userID int64) ([]domain.TtsConfig, error) {
	exec := GetExecutor(ctx, s.db)

	var configs []domain.TtsConfig
	query := `SELECT` + ttsConfigColumns + ` FROM tts_configs WHERE user_id = $1 AND is_active ORDER BY created_at DESC`

	err := sqlx.SelectContext(ctx, exec, &configs, query, userID)
	return configs, err
}

// ClearDefault unsets every default for the user. Runs inside the same
// transaction as the subsequent SetDefault.
func (s *TtsConfigStore) ClearDefault(ctx context.Context, userID int64) error {
	exec := GetExecutor(ctx, s.db)

	_, err := exec.ExecContext(ctx,
		`UPDATE tts_configs SET is_default = FALSE, updated_at = NOW() WHERE user_id = $1 AND is_default`,
		userID,
	)
	return err
}

func (s *TtsConfigStore) SetDefault(ctx context.Context, id int64) error {
	exec := GetExecutor(ctx, s.db)

	result, err := exec.ExecContext(ctx,
		`UPDATE tts_configs SET is_default = TRUE, updated_at = NOW() WHERE id = $1 AND is_active`,
		id,
	)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrConfigNotFound
	}
	return nil
}

func (s *TtsConfigStore) Deactivate(ctx context.Context, id int64) error {
	exec := GetExecutor(ctx, s.db)

	result, err := exec.ExecContext(ctx,
		`UPDATE tts_configs SET is_active = FALSE, is_default = FALSE, updated_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrConfigNotFound
	}
	return nil
}
