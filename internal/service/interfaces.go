package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"io"

	"podnews/internal/domain"
	"podnews/internal/source"
)

type ArticleStore interface {
	FindByURL(ctx context.Context, url string) (*domain.NewsArticle, error)
	FindByID(ctx context.Context, id int64) (*domain.NewsArticle, error)
	Insert(ctx context.Context, article *domain.NewsArticle) (int64, error)
	IncrementViewCount(ctx context.Context, id int64) error
	SetSummary(ctx context.Context, id int64, summary string) error
}

type SourceStore interface {
	FindByID(ctx context.Context, id int64) (*domain.NewsSource, error)
	FindActive(ctx context.Context) ([]domain.NewsSource, error)
	FindActiveByType(ctx context.Context, t domain.SourceType) ([]domain.NewsSource, error)
	Update(ctx context.Context, src *domain.NewsSource) error
}

type AudioFileStore interface {
	Insert(ctx context.Context, f *domain.AudioFile) (int64, error)
	FindByID(ctx context.Context, id int64) (*domain.AudioFile, error)
	Update(ctx context.Context, f *domain.AudioFile) error
	Delete(ctx context.Context, id int64) error
	ListByUser(ctx context.Context, userID int64) ([]domain.AudioFile, error)
}

type TtsConfigStore interface {
	Insert(ctx context.Context, c *domain.TtsConfig) (int64, error)
	FindByID(ctx context.Context, id int64) (*domain.TtsConfig, error)
	FindDefault(ctx context.Context, userID int64) (*domain.TtsConfig, error)
	ListActive(ctx context.Context, userID int64) ([]domain.TtsConfig, error)
	ClearDefault(ctx context.Context, userID int64) error
	SetDefault(ctx context.Context, id int64) error
	Deactivate(ctx context.Context, id int64) error
}

type AdapterFactory interface {
	ForSource(src *domain.NewsSource) (source.Adapter, error)
}

type SynthesisGateway interface {
	Submit(ctx context.Context, ssml string, voice domain.VoiceSettings, outputName string) (*domain.SynthesisJob, error)
	Poll(ctx context.Context, operationName string) (*domain.SynthesisOperation, error)
}

type BlobStore interface {
	Read(ctx context.Context, uri string) (io.ReadCloser, error)
	ReadAll(ctx context.Context, uri string) ([]byte, error)
	Delete(ctx context.Context, uri string) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	PublishArticleCreated(ctx context.Context, article *domain.NewsArticle) error
	PublishAudioEvent(ctx context.Context, audio *domain.AudioFile) error
	Close() error
}
