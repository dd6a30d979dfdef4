package rss

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"podnews/internal/domain"
)

// Config holds RSS fetcher configuration.
type Config struct {
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source implements source.Adapter for RSS/Atom feeds.
type Source struct {
	parser         *gofeed.Parser
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Source {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: cfg.Timeout}
	parser.UserAgent = "podnews/1.0"

	return &Source{
		parser:         parser,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("adapter", "rss"),
	}
}

func (s *Source) Type() domain.SourceType {
	return domain.SourceTypeRSS
}

func (s *Source) Fetch(ctx context.Context, src *domain.NewsSource) ([]domain.NewsArticle, error) {
	feed, err := s.parseWithRetry(ctx, src.BaseURL)
	if err != nil {
		return nil, &domain.ProviderError{Source: src.Slug, Err: err}
	}

	items := feed.Items
	if src.MaxArticles > 0 && len(items) > src.MaxArticles {
		items = items[:src.MaxArticles]
	}

	return dedupeByURL(s.transform(feed, items, src)), nil
}

func (s *Source) Healthy(ctx context.Context, src *domain.NewsSource) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := s.parser.ParseURLWithContext(src.BaseURL, probeCtx)
	if err != nil {
		s.logger.Debug("health probe failed", "source", src.Slug, "error", err)
		return false
	}
	return true
}

func (s *Source) parseWithRetry(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	var feed *gofeed.Feed
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		feed, err = s.parser.ParseURLWithContext(feedURL, ctx)
		if err == nil {
			return feed, nil
		}

		if attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("feed parse failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", s.maxAttempts, err)
}

func (s *Source) calculateBackoff(attempt int) time.Duration {
	backoff := s.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > s.maxBackoff {
		backoff = s.maxBackoff
	}
	return backoff
}

func (s *Source) transform(feed *gofeed.Feed, items []*gofeed.Item, src *domain.NewsSource) []domain.NewsArticle {
	articles := make([]domain.NewsArticle, 0, len(items))

	for _, item := range items {
		if item == nil || item.Link == "" || item.Title == "" {
			continue
		}

		article := domain.NewsArticle{
			Title:       item.Title,
			URL:         item.Link,
			SourceName:  feed.Title,
			PublishedAt: item.PublishedParsed,
			Language:    src.Language,
			SourceID:    &src.ID,
		}
		if article.SourceName == "" {
			article.SourceName = src.Name
		}
		if feed.Link != "" {
			feedLink := feed.Link
			article.SourceURL = &feedLink
		}
		if item.Description != "" {
			desc := item.Description
			article.Description = &desc
		}
		if item.Content != "" {
			content := item.Content
			article.Content = &content
		}
		if item.Author != nil && item.Author.Name != "" {
			author := item.Author.Name
			article.Author = &author
		}
		if item.Image != nil && item.Image.URL != "" {
			imageURL := item.Image.URL
			article.ImageURL = &imageURL
		}
		if len(item.Categories) > 0 {
			category := item.Categories[0]
			article.Category = &category
		}
		if item.PublishedParsed == nil && item.Published != "" {
			s.logger.Warn("failed to parse date",
				"url", item.Link,
				"date", item.Published,
			)
		}

		articles = append(articles, article)
	}

	return articles
}

func dedupeByURL(articles []domain.NewsArticle) []domain.NewsArticle {
	seen := make(map[string]int, len(articles))
	result := make([]domain.NewsArticle, 0, len(articles))

	for _, a := range articles {
		if idx, ok := seen[a.URL]; ok {
			result[idx] = a
			continue
		}
		seen[a.URL] = len(result)
		result = append(result, a)
	}

	return result
}
