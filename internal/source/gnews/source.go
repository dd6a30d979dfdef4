package gnews

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"podnews/internal/domain"
)

const maxResults = 100

// fetchWindow bounds how far back a fetch reaches when the source has no
// recent success to resume from.
const fetchWindow = 24 * time.Hour

// Config holds GNews client configuration.
type Config struct {
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source implements source.Adapter for the GNews API.
type Source struct {
	httpClient     *http.Client
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Source {
	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("adapter", "gnews"),
	}
}

func (s *Source) Type() domain.SourceType {
	return domain.SourceTypeGNews
}

func (s *Source) Fetch(ctx context.Context, src *domain.NewsSource) ([]domain.NewsArticle, error) {
	max := src.MaxArticles
	if max <= 0 || max > maxResults {
		max = maxResults
	}

	resp, err := s.fetchWithRetry(ctx, s.buildURL(src, max))
	if err != nil {
		return nil, &domain.ProviderError{Source: src.Slug, Err: err}
	}

	return dedupeByURL(s.transform(resp.Articles, src)), nil
}

func (s *Source) Healthy(ctx context.Context, src *domain.NewsSource) bool {
	_, err := s.doRequest(ctx, s.buildURL(src, 1))
	if err != nil {
		s.logger.Debug("health probe failed", "source", src.Slug, "error", err)
		return false
	}
	return true
}

func (s *Source) buildURL(src *domain.NewsSource, max int) string {
	params := url.Values{}
	params.Set("token", src.APIKey)
	params.Set("max", strconv.Itoa(max))
	params.Set("from", windowStart(src, time.Now().UTC()).Format(time.RFC3339))
	if src.Language != "" {
		params.Set("lang", src.Language)
	}
	if src.Country != "" {
		params.Set("country", src.Country)
	}
	return src.BaseURL + "/api/v4/top-headlines?" + params.Encode()
}

// windowStart is the lower bound of the recent-date window: the last
// successful fetch when it is fresh, otherwise now minus fetchWindow.
func windowStart(src *domain.NewsSource, now time.Time) time.Time {
	from := now.Add(-fetchWindow)
	if src.LastSuccessAt != nil && src.LastSuccessAt.After(from) {
		from = src.LastSuccessAt.UTC()
	}
	return from
}

func (s *Source) fetchWithRetry(ctx context.Context, url string) (*APIResponse, error) {
	var resp *APIResponse
	var err error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		resp, err = s.doRequest(ctx, url)
		if err == nil {
			return resp, nil
		}

		if attempt == s.maxAttempts {
			break
		}

		backoff := s.calculateBackoff(attempt)
		s.logger.Warn("request failed, retrying",
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

func (s *Source) doRequest(ctx context.Context, url string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "podnews/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(apiResp.Errors) > 0 {
		return nil, fmt.Errorf("provider errors: %v", apiResp.Errors)
	}

	return &apiResp, nil
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

func (s *Source) transform(items []APIArticle, src *domain.NewsSource) []domain.NewsArticle {
	articles := make([]domain.NewsArticle, 0, len(items))

	for _, item := range items {
		if item.URL == "" || item.Title == "" {
			continue
		}

		article := domain.NewsArticle{
			Title:       item.Title,
			Description: item.Description,
			Content:     item.Content,
			URL:         item.URL,
			SourceName:  item.Source.Name,
			ImageURL:    item.Image,
			Language:    src.Language,
			SourceID:    &src.ID,
		}
		if article.SourceName == "" {
			article.SourceName = src.Name
		}
		if item.Source.URL != "" {
			sourceURL := item.Source.URL
			article.SourceURL = &sourceURL
		}

		if item.PublishedAt != "" {
			publishedAt, err := time.Parse(time.RFC3339, item.PublishedAt)
			if err != nil {
				s.logger.Warn("failed to parse date",
					"url", item.URL,
					"date", item.PublishedAt,
				)
			} else {
				article.PublishedAt = &publishedAt
			}
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
