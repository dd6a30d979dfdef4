// Package server provides the HTTP API surface.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"podnews/internal/service"
)

// Server wires the services into the HTTP router.
type Server struct {
	aggregator *service.Aggregator
	audio      *service.AudioService
	configs    *service.TtsConfigService
	logger     *slog.Logger
	router     chi.Router
}

func New(
	aggregator *service.Aggregator,
	audio *service.AudioService,
	configs *service.TtsConfigService,
	logger *slog.Logger,
) *Server {
	s := &Server{
		aggregator: aggregator,
		audio:      audio,
		configs:    configs,
		logger:     logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/articles/{articleID}/audio", func(r chi.Router) {
			r.Post("/", s.handleGenerateAudio)
			r.Post("/summary", s.handleGenerateSummaryAudio)
		})

		r.Route("/audio", func(r chi.Router) {
			r.Get("/", s.handleListAudio)
			r.Get("/{audioID}/status", s.handleAudioStatus)
			r.Get("/{audioID}/stream", s.handleStreamAudio)
			r.Get("/{audioID}/download", s.handleDownloadAudio)
			r.Delete("/{audioID}", s.handleDeleteAudio)
		})

		r.Route("/tts-configs", func(r chi.Router) {
			r.Post("/", s.handleCreateTtsConfig)
			r.Get("/", s.handleListTtsConfigs)
			r.Post("/{configID}/default", s.handleSetDefaultTtsConfig)
			r.Delete("/{configID}", s.handleDeactivateTtsConfig)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/fetch", s.handleFetchAll)
			r.Post("/sources/{sourceID}/fetch", s.handleFetchSource)
			r.Post("/sources/type/{sourceType}/fetch", s.handleFetchSourceType)
			r.Get("/sources/health", s.handleSourcesHealth)
			r.Put("/articles/{articleID}/summary", s.handleSetArticleSummary)
		})
	})

	s.router = r
}

// Handler returns the root http handler.
func (s *Server) Handler() http.Handler {
	return s.router
}
