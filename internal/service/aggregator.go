package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"podnews/internal/domain"
)

// healthWindow is how recently a source must have succeeded to count as
// fresh in the aggregate health check.
const healthWindow = 24 * time.Hour

// Aggregator coordinates fetching from all configured sources, persists
// the results idempotently by canonical URL, and keeps per-source health
// counters up to date.
type Aggregator struct {
	sources     SourceStore
	articles    ArticleStore
	factory     AdapterFactory
	publisher   Publisher
	logger      *slog.Logger
	concurrency int
}

func NewAggregator(
	sources SourceStore,
	articles ArticleStore,
	factory AdapterFactory,
	publisher Publisher,
	logger *slog.Logger,
	concurrency int,
) *Aggregator {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Aggregator{
		sources:     sources,
		articles:    articles,
		factory:     factory,
		publisher:   publisher,
		logger:      logger,
		concurrency: concurrency,
	}
}

// FetchAll fetches every active source, highest priority first. A failure
// on one source never aborts the others. Returns the number of newly
// saved articles across all sources.
func (a *Aggregator) FetchAll(ctx context.Context) (int, error) {
	sources, err := a.sources.FindActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("load active sources: %w", err)
	}
	return a.fetchSources(ctx, sources), nil
}

// FetchFromSourceType fetches only active sources of one provider type.
func (a *Aggregator) FetchFromSourceType(ctx context.Context, t domain.SourceType) (int, error) {
	if !t.Valid() {
		return 0, fmt.Errorf("%w: %s", domain.ErrUnsupportedSourceType, t)
	}
	sources, err := a.sources.FindActiveByType(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("load sources by type: %w", err)
	}
	return a.fetchSources(ctx, sources), nil
}

func (a *Aggregator) fetchSources(ctx context.Context, sources []domain.NewsSource) int {
	startTime := time.Now()
	a.logger.Info("starting fetch", "sources", len(sources))

	var saved atomic.Int64
	var failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i := range sources {
		src := sources[i]
		g.Go(func() error {
			n, err := a.fetchOne(gctx, &src)
			if err != nil {
				failed.Add(1)
				a.logger.Error("source fetch failed",
					"source", src.Slug,
					"error", err,
				)
				return nil // isolate per-source failures
			}
			saved.Add(int64(n))
			return nil
		})
	}
	_ = g.Wait()

	stats := domain.AggregateStats{
		Sources:   len(sources),
		Succeeded: len(sources) - int(failed.Load()),
		Failed:    int(failed.Load()),
		New:       int(saved.Load()),
		Duration:  time.Since(startTime),
	}
	a.logger.Info("fetch completed",
		"sources", stats.Sources,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"new_articles", stats.New,
		"duration", stats.Duration,
	)

	return stats.New
}

// FetchFromSource fetches a single source by id. Inactive sources
// short-circuit with zero saved articles.
func (a *Aggregator) FetchFromSource(ctx context.Context, sourceID int64) (int, error) {
	src, err := a.sources.FindByID(ctx, sourceID)
	if err != nil {
		return 0, fmt.Errorf("load source %d: %w", sourceID, err)
	}

	if !src.IsActive {
		a.logger.Info("skipping inactive source", "source", src.Slug)
		return 0, nil
	}

	return a.fetchOne(ctx, src)
}

func (a *Aggregator) fetchOne(ctx context.Context, src *domain.NewsSource) (int, error) {
	adapter, err := a.factory.ForSource(src)
	if err != nil {
		a.recordFetchResult(ctx, src, err)
		return 0, err
	}

	articles, err := adapter.Fetch(ctx, src)
	if err != nil {
		a.recordFetchResult(ctx, src, err)
		return 0, fmt.Errorf("fetch articles: %w", err)
	}

	saved := a.processAndSave(ctx, articles, src)
	a.recordFetchResult(ctx, src, nil)

	return saved, nil
}

// processAndSave persists a fetched batch. A URL already known is a
// repeat sighting: its view counter is bumped and the stored content is
// left alone. Per-article failures are logged and the batch continues.
func (a *Aggregator) processAndSave(ctx context.Context, articles []domain.NewsArticle, src *domain.NewsSource) int {
	stats := domain.FetchStats{
		SourceSlug: src.Slug,
		Fetched:    len(articles),
	}
	startTime := time.Now()

	for i := range articles {
		article := &articles[i]

		existing, err := a.articles.FindByURL(ctx, article.URL)
		if err != nil {
			stats.Errors++
			a.logger.Warn("article lookup failed", "url", article.URL, "error", err)
			continue
		}

		if existing != nil {
			if err := a.articles.IncrementViewCount(ctx, existing.ID); err != nil {
				stats.Errors++
				a.logger.Warn("view count update failed", "url", article.URL, "error", err)
				continue
			}
			stats.Known++
			continue
		}

		id, err := a.articles.Insert(ctx, article)
		if err != nil {
			stats.Errors++
			a.logger.Warn("article insert failed", "url", article.URL, "error", err)
			continue
		}
		article.ID = id
		stats.New++

		if a.publisher != nil {
			if err := a.publisher.PublishArticleCreated(ctx, article); err != nil {
				a.logger.Warn("publish failed", "url", article.URL, "error", err)
			}
		}
	}

	stats.Duration = time.Since(startTime)
	a.logger.Info("processed batch",
		"source", src.Slug,
		"fetched", stats.Fetched,
		"new", stats.New,
		"known", stats.Known,
		"errors", stats.Errors,
		"duration", stats.Duration,
	)

	return stats.New
}

// recordFetchResult stamps the fetch timestamps and maintains the
// consecutive-failure counter: reset on success, incremented on failure.
// Crossing maxFailures is logged; deactivation stays an operator action.
func (a *Aggregator) recordFetchResult(ctx context.Context, src *domain.NewsSource, fetchErr error) {
	now := time.Now()
	src.LastFetchAt = &now

	if fetchErr == nil {
		src.LastSuccessAt = &now
		src.ConsecutiveFailures = 0
	} else {
		src.ConsecutiveFailures++
		if src.Unhealthy() {
			a.logger.Warn("source exceeded failure threshold",
				"source", src.Slug,
				"consecutive_failures", src.ConsecutiveFailures,
				"max_failures", src.MaxFailures,
			)
		}
	}

	if err := a.sources.Update(ctx, src); err != nil {
		a.logger.Error("failed to update source status", "source", src.Slug, "error", err)
	}
}

// SetArticleSummary stores an externally produced summary. The summarizer
// runs out of process and reports back through this path.
func (a *Aggregator) SetArticleSummary(ctx context.Context, articleID int64, summary string) error {
	if err := a.articles.SetSummary(ctx, articleID, summary); err != nil {
		return fmt.Errorf("set summary for article %d: %w", articleID, err)
	}
	a.logger.Info("article summary stored", "article_id", articleID)
	return nil
}

// CheckAllSourcesHealth reports true only when every active source's last
// success is within the freshness window and its provider answers the
// health probe. A source that has never succeeded passes the freshness
// check; there is no failure to measure yet.
func (a *Aggregator) CheckAllSourcesHealth(ctx context.Context) (bool, error) {
	sources, err := a.sources.FindActive(ctx)
	if err != nil {
		return false, fmt.Errorf("load active sources: %w", err)
	}

	cutoff := time.Now().Add(-healthWindow)
	healthy := true

	for i := range sources {
		src := &sources[i]
		if src.LastSuccessAt != nil && src.LastSuccessAt.Before(cutoff) {
			healthy = false
			a.logger.Warn("source is stale",
				"source", src.Slug,
				"last_success_at", src.LastSuccessAt,
			)
		}

		adapter, err := a.factory.ForSource(src)
		if err != nil {
			// sources without a registered adapter cannot be probed
			continue
		}
		if !adapter.Healthy(ctx, src) {
			healthy = false
			a.logger.Warn("source probe failed", "source", src.Slug)
		}
	}

	return healthy, nil
}
