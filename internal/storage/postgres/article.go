package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"podnews/internal/domain"
)

type ArticleStore struct {
	db *sqlx.DB
}

func NewArticleStore(db *sqlx.DB) *ArticleStore {
	return &ArticleStore{db: db}
}

const articleColumns = `
	id, title, description, content, url, source_name, source_url, author,
	published_at, image_url, category, language, summary, source_id,
	view_count, like_count, share_count, created_at, updated_at`

// FindByURL looks up an article by its canonical URL. Returns (nil, nil)
// when no article with that URL exists.
func (s *ArticleStore) FindByURL(ctx context.Context, url string) (*domain.NewsArticle, error) {
	exec := GetExecutor(ctx, s.db)

	var article domain.NewsArticle
	query := `SELECT` + articleColumns + ` FROM news_articles WHERE url = $1`

	err := sqlx.GetContext(ctx, exec, &article, query, url)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &article, nil
}

func (s *ArticleStore) FindByID(ctx context.Context, id int64) (*domain.NewsArticle, error) {
	exec := GetExecutor(ctx, s.db)

	var article domain.NewsArticle
	query := `SELECT` + articleColumns + ` FROM news_articles WHERE id = $1`

	err := sqlx.GetContext(ctx, exec, &article, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrArticleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// Insert stores a first-sighted article. The unique index on url makes a
// concurrent duplicate insert fail; the caller treats that as a repeat
// sighting.
func (s *ArticleStore) Insert(ctx context.Context, article *domain.NewsArticle) (int64, error) {
	exec := GetExecutor(ctx, s.db)

	query := `
		INSERT INTO news_articles (
			title, description, content, url, source_name, source_url, author,
			published_at, image_url, category, language, summary, source_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		RETURNING id`

	var id int64
	err := exec.QueryRowxContext(ctx, query,
		article.Title,
		article.Description,
		article.Content,
		article.URL,
		article.SourceName,
		article.SourceURL,
		article.Author,
		article.PublishedAt,
		article.ImageURL,
		article.Category,
		article.Language,
		article.Summary,
		article.SourceID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert article: %w", err)
	}

	return id, nil
}

func (s *ArticleStore) IncrementViewCount(ctx context.Context, id int64) error {
	exec := GetExecutor(ctx, s.db)

	result, err := exec.ExecContext(ctx,
		`UPDATE news_articles SET view_count = view_count + 1, updated_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrArticleNotFound
	}
	return nil
}

func (s *ArticleStore) SetSummary(ctx context.Context, id int64, summary string) error {
	exec := GetExecutor(ctx, s.db)

	result, err := exec.ExecContext(ctx,
		`UPDATE news_articles SET summary = $2, updated_at = NOW() WHERE id = $1`,
		id, summary,
	)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return domain.ErrArticleNotFound
	}
	return nil
}
