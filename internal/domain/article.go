package domain

import "time"

// SourceType identifies which provider integration a source uses.
type SourceType string

const (
	SourceTypeNewsAPI SourceType = "newsapi"
	SourceTypeGNews   SourceType = "gnews"
	SourceTypeRSS     SourceType = "rss"
	SourceTypeCustom  SourceType = "custom"
)

func (t SourceType) Valid() bool {
	switch t {
	case SourceTypeNewsAPI, SourceTypeGNews, SourceTypeRSS, SourceTypeCustom:
		return true
	}
	return false
}

// NewsSource is a configured external news provider.
type NewsSource struct {
	ID                  int64      `db:"id"`
	Slug                string     `db:"slug"`
	Name                string     `db:"name"`
	Type                SourceType `db:"source_type"`
	BaseURL             string     `db:"base_url"`
	APIKey              string     `db:"api_key"`
	IsActive            bool       `db:"is_active"`
	Priority            int        `db:"priority"`
	Language            string     `db:"language"`
	Country             string     `db:"country"`
	MaxArticles         int        `db:"max_articles"`
	LastFetchAt         *time.Time `db:"last_fetch_at"`
	LastSuccessAt       *time.Time `db:"last_success_at"`
	ConsecutiveFailures int        `db:"consecutive_failures"`
	MaxFailures         int        `db:"max_failures"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

// Unhealthy reports whether the source has crossed its failure threshold.
func (s *NewsSource) Unhealthy() bool {
	return s.MaxFailures > 0 && s.ConsecutiveFailures >= s.MaxFailures
}

// NewsArticle is the canonical article shape shared by all providers.
// URL is the sole de-duplication key.
type NewsArticle struct {
	ID          int64      `db:"id"`
	Title       string     `db:"title"`
	Description *string    `db:"description"`
	Content     *string    `db:"content"`
	URL         string     `db:"url"`
	SourceName  string     `db:"source_name"`
	SourceURL   *string    `db:"source_url"`
	Author      *string    `db:"author"`
	PublishedAt *time.Time `db:"published_at"`
	ImageURL    *string    `db:"image_url"`
	Category    *string    `db:"category"`
	Language    string     `db:"language"`
	Summary     *string    `db:"summary"`
	SourceID    *int64     `db:"source_id"`
	ViewCount   int64      `db:"view_count"`
	LikeCount   int64      `db:"like_count"`
	ShareCount  int64      `db:"share_count"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// Text returns the best available spoken payload for the article.
func (a *NewsArticle) Text() string {
	if a.Content != nil && *a.Content != "" {
		return *a.Content
	}
	if a.Description != nil && *a.Description != "" {
		return *a.Description
	}
	return ""
}
