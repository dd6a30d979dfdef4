package source

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podnews/internal/domain"
)

func newTestFactory() *Factory {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewFactory(ClientConfig{
		Timeout:        5 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
	}, logger)
}

func TestForSource(t *testing.T) {
	factory := newTestFactory()

	cases := []struct {
		srcType domain.SourceType
		want    domain.SourceType
	}{
		{domain.SourceTypeNewsAPI, domain.SourceTypeNewsAPI},
		{domain.SourceTypeGNews, domain.SourceTypeGNews},
		{domain.SourceTypeRSS, domain.SourceTypeRSS},
	}

	for _, tc := range cases {
		src := &domain.NewsSource{Slug: "s", Type: tc.srcType, IsActive: true}
		adapter, err := factory.ForSource(src)
		require.NoError(t, err)
		assert.Equal(t, tc.want, adapter.Type())
	}
}

func TestForSource_Custom(t *testing.T) {
	factory := newTestFactory()

	src := &domain.NewsSource{Slug: "bespoke", Type: domain.SourceTypeCustom, IsActive: true}
	_, err := factory.ForSource(src)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnsupportedSourceType)
}

func TestForSource_Inactive(t *testing.T) {
	factory := newTestFactory()

	src := &domain.NewsSource{Slug: "paused", Type: domain.SourceTypeRSS, IsActive: false}
	_, err := factory.ForSource(src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inactive")
}
