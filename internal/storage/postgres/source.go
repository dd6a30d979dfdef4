package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"podnews/internal/domain"
)

type SourceStore struct {
	db *sqlx.DB
}

func NewSourceStore(db *sqlx.DB) *SourceStore {
	return &SourceStore{db: db}
}

const sourceColumns = `
	id, slug, name, source_type, base_url, api_key, is_active, priority,
	language, country, max_articles, last_fetch_at, last_success_at,
	consecutive_failures, max_failures, created_at, updated_at`

func (s *SourceStore) FindByID(ctx context.Context, id int64) (*domain.NewsSource, error) {
	exec := GetExecutor(ctx, s.db)

	var src domain.NewsSource
	query := `SELECT` + sourceColumns + ` FROM news_sources WHERE id = $1`

	err := sqlx.GetContext(ctx, exec, &src, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSourceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &src, nil
}

// FindActive returns active sources, highest priority first.
func (s *SourceStore) FindActive(ctx context.Context) ([]domain.NewsSource, error) {
	exec := GetExecutor(ctx, s.db)

	var sources []domain.NewsSource
	query := `SELECT` + sourceColumns + ` FROM news_sources WHERE is_active ORDER BY priority DESC, id`

	err := sqlx.SelectContext(ctx, exec, &sources, query)
	return sources, err
}

func (s *SourceStore) FindActiveByType(ctx context.Context, t domain.SourceType) ([]domain.NewsSource, error) {
	exec := GetExecutor(ctx, s.db)

	var sources []domain.NewsSource
	query := `SELECT` + sourceColumns + ` FROM news_sources WHERE is_active AND source_type = $1 ORDER BY priority DESC, id`

	err := sqlx.SelectContext(ctx, exec, &sources, query, t)
	return sources, err
}

// Update persists the mutable fetch-health fields of a source.
func (s *SourceStore) Update(ctx context.Context, src *domain.NewsSource) error {
	exec := GetExecutor(ctx, s.db)

	query := `
		UPDATE news_sources SET
			name = $2,
			base_url = $3,
			api_key = $4,
			is_active = $5,
			priority = $6,
			language = $7,
			country = $8,
			max_articles = $9,
			last_fetch_at = $10,
			last_success_at = $11,
			consecutive_failures = $12,
			max_failures = $13,
			updated_at = NOW()
		WHERE id = $1`

	result, err := exec.ExecContext(ctx, query,
		src.ID,
		src.Name,
		src.BaseURL,
		src.APIKey,
		src.IsActive,
		src.Priority,
		src.Language,
		src.Country,
		src.MaxArticles,
		src.LastFetchAt,
		src.LastSuccessAt,
		src.ConsecutiveFailures,
		src.MaxFailures,
	)
	if err != nil {
		return fmt.Errorf("update source: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrSourceNotFound
	}
	return nil
}
