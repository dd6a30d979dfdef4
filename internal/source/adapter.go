package source

//go:generate mockgen -source=adapter.go -destination=../service/mocks/adapter_mocks.go -package=mocks

import (
	"context"

	"podnews/internal/domain"
)

// Adapter is one provider integration. Fetch returns canonical articles,
// already de-duplicated by URL within the batch. Healthy is a best-effort
// probe and never returns an error.
type Adapter interface {
	Fetch(ctx context.Context, src *domain.NewsSource) ([]domain.NewsArticle, error)
	Healthy(ctx context.Context, src *domain.NewsSource) bool
	Type() domain.SourceType
}
