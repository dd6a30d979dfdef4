package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"podnews/internal/domain"
	"podnews/internal/service/mocks"
	"podnews/internal/source"
)

type AggregatorTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	sources   *mocks.MockSourceStore
	articles  *mocks.MockArticleStore
	factory   *mocks.MockAdapterFactory
	adapter   *mocks.MockAdapter
	publisher *mocks.MockPublisher

	aggregator *Aggregator
	logger     *slog.Logger
}

func (s *AggregatorTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.sources = mocks.NewMockSourceStore(s.ctrl)
	s.articles = mocks.NewMockArticleStore(s.ctrl)
	s.factory = mocks.NewMockAdapterFactory(s.ctrl)
	s.adapter = mocks.NewMockAdapter(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.aggregator = NewAggregator(
		s.sources,
		s.articles,
		s.factory,
		s.publisher,
		s.logger,
		1,
	)
}

func (s *AggregatorTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestAggregatorTestSuite(t *testing.T) {
	suite.Run(t, new(AggregatorTestSuite))
}

func activeSource(id int64, slug string) domain.NewsSource {
	return domain.NewsSource{
		ID:          id,
		Slug:        slug,
		Name:        slug,
		Type:        domain.SourceTypeNewsAPI,
		IsActive:    true,
		MaxArticles: 20,
		MaxFailures: 5,
	}
}

func (s *AggregatorTestSuite) TestFetchAll_NewArticles() {
	ctx := context.Background()
	src := activeSource(1, "test-source")

	articles := []domain.NewsArticle{
		{Title: "first", URL: "https://example.com/a"},
		{Title: "second", URL: "https://example.com/b"},
	}

	s.sources.EXPECT().FindActive(ctx).Return([]domain.NewsSource{src}, nil)
	s.factory.EXPECT().ForSource(gomock.Any()).Return(s.adapter, nil)
	s.adapter.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(articles, nil)

	s.articles.EXPECT().FindByURL(gomock.Any(), "https://example.com/a").Return(nil, nil)
	s.articles.EXPECT().FindByURL(gomock.Any(), "https://example.com/b").Return(nil, nil)
	s.articles.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(int64(100), nil)
	s.articles.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(int64(101), nil)

	s.publisher.EXPECT().PublishArticleCreated(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	s.sources.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, updated *domain.NewsSource) error {
			s.NotNil(updated.LastFetchAt)
			s.NotNil(updated.LastSuccessAt)
			s.Equal(0, updated.ConsecutiveFailures)
			return nil
		},
	)

	saved, err := s.aggregator.FetchAll(ctx)

	s.NoError(err)
	s.Equal(2, saved)
}

func (s *AggregatorTestSuite) TestFetchAll_KnownURLBumpsViewCount() {
	ctx := context.Background()
	src := activeSource(1, "test-source")

	articles := []domain.NewsArticle{
		{Title: "seen before", URL: "https://example.com/a"},
	}
	existing := &domain.NewsArticle{ID: 42, URL: "https://example.com/a"}

	s.sources.EXPECT().FindActive(ctx).Return([]domain.NewsSource{src}, nil)
	s.factory.EXPECT().ForSource(gomock.Any()).Return(s.adapter, nil)
	s.adapter.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(articles, nil)

	s.articles.EXPECT().FindByURL(gomock.Any(), "https://example.com/a").Return(existing, nil)
	s.articles.EXPECT().IncrementViewCount(gomock.Any(), int64(42)).Return(nil)

	s.sources.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)

	saved, err := s.aggregator.FetchAll(ctx)

	s.NoError(err)
	s.Equal(0, saved)
}

func (s *AggregatorTestSuite) TestFetchAll_SourceFailureIsolated() {
	ctx := context.Background()
	bad := activeSource(1, "bad-source")
	good := activeSource(2, "good-source")

	s.sources.EXPECT().FindActive(ctx).Return([]domain.NewsSource{bad, good}, nil)

	badAdapter := mocks.NewMockAdapter(s.ctrl)
	s.factory.EXPECT().ForSource(gomock.Any()).DoAndReturn(
		func(src *domain.NewsSource) (source.Adapter, error) {
			if src.Slug == "bad-source" {
				return badAdapter, nil
			}
			return s.adapter, nil
		},
	).Times(2)

	badAdapter.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(nil, errors.New("upstream 503"))
	s.adapter.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return([]domain.NewsArticle{
		{Title: "ok", URL: "https://example.com/ok"},
	}, nil)

	s.articles.EXPECT().FindByURL(gomock.Any(), "https://example.com/ok").Return(nil, nil)
	s.articles.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(int64(7), nil)
	s.publisher.EXPECT().PublishArticleCreated(gomock.Any(), gomock.Any()).Return(nil)

	s.sources.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, updated *domain.NewsSource) error {
			if updated.Slug == "bad-source" {
				s.Equal(1, updated.ConsecutiveFailures)
				s.Nil(updated.LastSuccessAt)
			} else {
				s.Equal(0, updated.ConsecutiveFailures)
				s.NotNil(updated.LastSuccessAt)
			}
			return nil
		},
	).Times(2)

	saved, err := s.aggregator.FetchAll(ctx)

	s.NoError(err)
	s.Equal(1, saved)
}

func (s *AggregatorTestSuite) TestFetchFromSource_Inactive() {
	ctx := context.Background()
	src := activeSource(1, "paused-source")
	src.IsActive = false

	s.sources.EXPECT().FindByID(ctx, int64(1)).Return(&src, nil)

	saved, err := s.aggregator.FetchFromSource(ctx, 1)

	s.NoError(err)
	s.Equal(0, saved)
}

func (s *AggregatorTestSuite) TestFetchFromSource_NotFound() {
	ctx := context.Background()

	s.sources.EXPECT().FindByID(ctx, int64(99)).Return(nil, domain.ErrSourceNotFound)

	_, err := s.aggregator.FetchFromSource(ctx, 99)

	s.ErrorIs(err, domain.ErrSourceNotFound)
}

func (s *AggregatorTestSuite) TestFetchFromSourceType_Invalid() {
	ctx := context.Background()

	_, err := s.aggregator.FetchFromSourceType(ctx, domain.SourceType("telegraph"))

	s.ErrorIs(err, domain.ErrUnsupportedSourceType)
}

func (s *AggregatorTestSuite) TestFetchFromSource_AdapterErrorRecorded() {
	ctx := context.Background()
	src := activeSource(1, "broken-source")
	src.ConsecutiveFailures = 4

	s.sources.EXPECT().FindByID(ctx, int64(1)).Return(&src, nil)
	s.factory.EXPECT().ForSource(gomock.Any()).Return(nil, domain.ErrUnsupportedSourceType)

	s.sources.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, updated *domain.NewsSource) error {
			s.Equal(5, updated.ConsecutiveFailures)
			s.True(updated.Unhealthy())
			return nil
		},
	)

	_, err := s.aggregator.FetchFromSource(ctx, 1)

	s.ErrorIs(err, domain.ErrUnsupportedSourceType)
}

func (s *AggregatorTestSuite) TestSetArticleSummary() {
	ctx := context.Background()

	s.articles.EXPECT().SetSummary(ctx, int64(10), "the short version").Return(nil)

	s.NoError(s.aggregator.SetArticleSummary(ctx, 10, "the short version"))
}

func (s *AggregatorTestSuite) TestSetArticleSummary_ArticleMissing() {
	ctx := context.Background()

	s.articles.EXPECT().SetSummary(ctx, int64(99), "x").Return(domain.ErrArticleNotFound)

	err := s.aggregator.SetArticleSummary(ctx, 99, "x")

	s.ErrorIs(err, domain.ErrArticleNotFound)
}

func (s *AggregatorTestSuite) TestCheckAllSourcesHealth_Fresh() {
	ctx := context.Background()
	recent := time.Now().Add(-1 * time.Hour)
	src := activeSource(1, "fresh-source")
	src.LastSuccessAt = &recent

	s.sources.EXPECT().FindActive(ctx).Return([]domain.NewsSource{src}, nil)
	s.factory.EXPECT().ForSource(gomock.Any()).Return(s.adapter, nil)
	s.adapter.EXPECT().Healthy(gomock.Any(), gomock.Any()).Return(true)

	healthy, err := s.aggregator.CheckAllSourcesHealth(ctx)

	s.NoError(err)
	s.True(healthy)
}

func (s *AggregatorTestSuite) TestCheckAllSourcesHealth_Stale() {
	ctx := context.Background()
	stale := time.Now().Add(-25 * time.Hour)
	src := activeSource(1, "stale-source")
	src.LastSuccessAt = &stale

	s.sources.EXPECT().FindActive(ctx).Return([]domain.NewsSource{src}, nil)
	s.factory.EXPECT().ForSource(gomock.Any()).Return(s.adapter, nil)
	s.adapter.EXPECT().Healthy(gomock.Any(), gomock.Any()).Return(true)

	healthy, err := s.aggregator.CheckAllSourcesHealth(ctx)

	s.NoError(err)
	s.False(healthy, "a stale source is unhealthy even when it answers the probe")
}

func (s *AggregatorTestSuite) TestCheckAllSourcesHealth_ProbeFails() {
	ctx := context.Background()
	recent := time.Now().Add(-1 * time.Hour)
	src := activeSource(1, "dark-source")
	src.LastSuccessAt = &recent

	s.sources.EXPECT().FindActive(ctx).Return([]domain.NewsSource{src}, nil)
	s.factory.EXPECT().ForSource(gomock.Any()).Return(s.adapter, nil)
	s.adapter.EXPECT().Healthy(gomock.Any(), gomock.Any()).Return(false)

	healthy, err := s.aggregator.CheckAllSourcesHealth(ctx)

	s.NoError(err)
	s.False(healthy, "a fresh source whose provider stopped answering is unhealthy")
}

func (s *AggregatorTestSuite) TestCheckAllSourcesHealth_NeverSucceeded() {
	ctx := context.Background()
	src := activeSource(1, "new-source")

	s.sources.EXPECT().FindActive(ctx).Return([]domain.NewsSource{src}, nil)
	s.factory.EXPECT().ForSource(gomock.Any()).Return(s.adapter, nil)
	s.adapter.EXPECT().Healthy(gomock.Any(), gomock.Any()).Return(true)

	healthy, err := s.aggregator.CheckAllSourcesHealth(ctx)

	s.NoError(err)
	s.True(healthy)
}

func (s *AggregatorTestSuite) TestCheckAllSourcesHealth_UnprobeableSourceSkipped() {
	ctx := context.Background()
	src := activeSource(1, "custom-source")
	src.Type = domain.SourceTypeCustom

	s.sources.EXPECT().FindActive(ctx).Return([]domain.NewsSource{src}, nil)
	s.factory.EXPECT().ForSource(gomock.Any()).Return(nil, domain.ErrUnsupportedSourceType)

	healthy, err := s.aggregator.CheckAllSourcesHealth(ctx)

	s.NoError(err)
	s.True(healthy)
}
