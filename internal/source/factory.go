package source

import (
	"fmt"
	"log/slog"
	"time"

	"podnews/internal/domain"
	"podnews/internal/source/gnews"
	"podnews/internal/source/newsapi"
	"podnews/internal/source/rss"
)

// ClientConfig is shared HTTP/retry configuration for all adapters.
type ClientConfig struct {
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Factory resolves the adapter for a source's provider type. The provider
// set is closed; an unknown or unimplemented type is a configuration error.
type Factory struct {
	newsapi *newsapi.Source
	gnews   *gnews.Source
	rss     *rss.Source
	logger  *slog.Logger
}

func NewFactory(cfg ClientConfig, logger *slog.Logger) *Factory {
	return &Factory{
		newsapi: newsapi.New(newsapi.Config{
			Timeout:        cfg.Timeout,
			MaxAttempts:    cfg.MaxAttempts,
			InitialBackoff: cfg.InitialBackoff,
			MaxBackoff:     cfg.MaxBackoff,
		}, logger),
		gnews: gnews.New(gnews.Config{
			Timeout:        cfg.Timeout,
			MaxAttempts:    cfg.MaxAttempts,
			InitialBackoff: cfg.InitialBackoff,
			MaxBackoff:     cfg.MaxBackoff,
		}, logger),
		rss: rss.New(rss.Config{
			Timeout:        cfg.Timeout,
			MaxAttempts:    cfg.MaxAttempts,
			InitialBackoff: cfg.InitialBackoff,
			MaxBackoff:     cfg.MaxBackoff,
		}, logger),
		logger: logger,
	}
}

// ForSource returns the adapter matching src's provider type. Inactive
// sources never get an adapter.
func (f *Factory) ForSource(src *domain.NewsSource) (Adapter, error) {
	if !src.IsActive {
		f.logger.Warn("refusing adapter for inactive source", "source", src.Slug)
		return nil, fmt.Errorf("source %s is inactive", src.Slug)
	}

	switch src.Type {
	case domain.SourceTypeNewsAPI:
		return f.newsapi, nil
	case domain.SourceTypeGNews:
		return f.gnews, nil
	case domain.SourceTypeRSS:
		return f.rss, nil
	default:
		// custom sources require their own adapter; none is registered.
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedSourceType, src.Type)
	}
}
