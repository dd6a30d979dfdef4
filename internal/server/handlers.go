package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"podnews/internal/domain"
)

// userIDHeader carries the authenticated user id set by the upstream
// auth proxy.
const userIDHeader = "X-User-ID"

type errorResponse struct {
	Error string `json:"error"`
}

type generateAudioRequest struct {
	Voice *domain.VoiceSettings `json:"voice,omitempty"`
}

type audioFileResponse struct {
	ID           int64     `json:"id"`
	ArticleID    int64     `json:"article_id"`
	FileName     string    `json:"file_name"`
	Status       string    `json:"status"`
	OutputURI    *string   `json:"output_uri,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	TtsConfigID  *int64    `json:"tts_config_id,omitempty"`
	VoiceName    string    `json:"voice_name"`
	LanguageCode string    `json:"language_code"`
	Encoding     string    `json:"audio_encoding"`
	CreatedAt    time.Time `json:"created_at"`
}

func toAudioFileResponse(f *domain.AudioFile) audioFileResponse {
	return audioFileResponse{
		ID:           f.ID,
		ArticleID:    f.ArticleID,
		FileName:     f.FileName,
		Status:       string(f.Status),
		OutputURI:    f.OutputURI,
		ErrorMessage: f.ErrorMessage,
		TtsConfigID:  f.TtsConfigID,
		VoiceName:    f.VoiceName,
		LanguageCode: f.LanguageCode,
		Encoding:     string(f.Encoding),
		CreatedAt:    f.CreatedAt,
	}
}

type ttsConfigRequest struct {
	Name            string  `json:"name"`
	LanguageCode    string  `json:"language_code"`
	VoiceName       string  `json:"voice_name"`
	SpeakingRate    float64 `json:"speaking_rate"`
	Pitch           float64 `json:"pitch"`
	VolumeGainDb    float64 `json:"volume_gain_db"`
	Encoding        string  `json:"audio_encoding"`
	SampleRateHertz int     `json:"sample_rate_hertz"`
	IsDefault       bool    `json:"is_default"`
}

type ttsConfigResponse struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	LanguageCode    string  `json:"language_code"`
	VoiceName       string  `json:"voice_name"`
	SpeakingRate    float64 `json:"speaking_rate"`
	Pitch           float64 `json:"pitch"`
	VolumeGainDb    float64 `json:"volume_gain_db"`
	Encoding        string  `json:"audio_encoding"`
	SampleRateHertz int     `json:"sample_rate_hertz"`
	IsDefault       bool    `json:"is_default"`
}

func toTtsConfigResponse(c *domain.TtsConfig) ttsConfigResponse {
	return ttsConfigResponse{
		ID:              c.ID,
		Name:            c.Name,
		LanguageCode:    c.LanguageCode,
		VoiceName:       c.VoiceName,
		SpeakingRate:    c.SpeakingRate,
		Pitch:           c.Pitch,
		VolumeGainDb:    c.VolumeGainDb,
		Encoding:        string(c.Encoding),
		SampleRateHertz: c.SampleRateHertz,
		IsDefault:       c.IsDefault,
	}
}

type fetchResponse struct {
	NewArticles int `json:"new_articles"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGenerateAudio(w http.ResponseWriter, r *http.Request) {
	s.generateAudio(w, r, s.audio.GenerateFromArticle)
}

func (s *Server) handleGenerateSummaryAudio(w http.ResponseWriter, r *http.Request) {
	s.generateAudio(w, r, s.audio.GenerateFromSummary)
}

type generateFunc func(ctx context.Context, userID, articleID int64, adhoc *domain.VoiceSettings) (*domain.AudioFile, error)

func (s *Server) generateAudio(w http.ResponseWriter, r *http.Request, generate generateFunc) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	articleID, err := urlParamInt64(r, "articleID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	var req generateAudioRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
	}

	f, err := generate(r.Context(), userID, articleID, req.Voice)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusAccepted, toAudioFileResponse(f))
}

func (s *Server) handleListAudio(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	files, err := s.audio.List(r.Context(), userID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	resp := make([]audioFileResponse, 0, len(files))
	for i := range files {
		resp = append(resp, toAudioFileResponse(&files[i]))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAudioStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	audioID, err := urlParamInt64(r, "audioID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	status, err := s.audio.CheckStatus(r.Context(), userID, audioID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, status)
}

func (s *Server) handleStreamAudio(w http.ResponseWriter, r *http.Request) {
	s.serveAudio(w, r)
}

// handleDownloadAudio reads the blob in full so the response carries a
// Content-Length, which download clients expect.
func (s *Server) handleDownloadAudio(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	audioID, err := urlParamInt64(r, "audioID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	data, f, err := s.audio.Bytes(r.Context(), userID, audioID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", f.Encoding.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.FileName))
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("audio download aborted", "audio_file_id", f.ID, "error", err)
	}
}

func (s *Server) serveAudio(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	audioID, err := urlParamInt64(r, "audioID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	reader, f, err := s.audio.Stream(r.Context(), userID, audioID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", f.Encoding.ContentType())
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Warn("audio stream aborted", "audio_file_id", f.ID, "error", err)
	}
}

func (s *Server) handleDeleteAudio(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	audioID, err := urlParamInt64(r, "audioID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.audio.Delete(r.Context(), userID, audioID); err != nil {
		s.respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateTtsConfig(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	var req ttsConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	cfg := &domain.TtsConfig{
		Name:            req.Name,
		LanguageCode:    req.LanguageCode,
		VoiceName:       req.VoiceName,
		SpeakingRate:    req.SpeakingRate,
		Pitch:           req.Pitch,
		VolumeGainDb:    req.VolumeGainDb,
		Encoding:        domain.AudioEncoding(req.Encoding),
		SampleRateHertz: req.SampleRateHertz,
		IsDefault:       req.IsDefault,
	}

	created, err := s.configs.Create(r.Context(), userID, cfg)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	s.respondJSON(w, http.StatusCreated, toTtsConfigResponse(created))
}

func (s *Server) handleListTtsConfigs(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}

	configs, err := s.configs.List(r.Context(), userID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}

	resp := make([]ttsConfigResponse, 0, len(configs))
	for i := range configs {
		resp = append(resp, toTtsConfigResponse(&configs[i]))
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSetDefaultTtsConfig(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	configID, err := urlParamInt64(r, "configID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.configs.SetDefault(r.Context(), userID, configID); err != nil {
		s.respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeactivateTtsConfig(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userID(w, r)
	if !ok {
		return
	}
	configID, err := urlParamInt64(r, "configID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.configs.Deactivate(r.Context(), userID, configID); err != nil {
		s.respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFetchAll(w http.ResponseWriter, r *http.Request) {
	saved, err := s.aggregator.FetchAll(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, fetchResponse{NewArticles: saved})
}

func (s *Server) handleFetchSource(w http.ResponseWriter, r *http.Request) {
	sourceID, err := urlParamInt64(r, "sourceID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	saved, err := s.aggregator.FetchFromSource(r.Context(), sourceID)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, fetchResponse{NewArticles: saved})
}

func (s *Server) handleFetchSourceType(w http.ResponseWriter, r *http.Request) {
	sourceType := domain.SourceType(chi.URLParam(r, "sourceType"))

	saved, err := s.aggregator.FetchFromSourceType(r.Context(), sourceType)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, fetchResponse{NewArticles: saved})
}

type setSummaryRequest struct {
	Summary string `json:"summary"`
}

// handleSetArticleSummary accepts the out-of-process summarizer's result.
func (s *Server) handleSetArticleSummary(w http.ResponseWriter, r *http.Request) {
	articleID, err := urlParamInt64(r, "articleID")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err)
		return
	}

	var req setSummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if strings.TrimSpace(req.Summary) == "" {
		s.respondError(w, http.StatusBadRequest, errors.New("summary must not be empty"))
		return
	}

	if err := s.aggregator.SetArticleSummary(r.Context(), articleID, req.Summary); err != nil {
		s.respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSourcesHealth(w http.ResponseWriter, r *http.Request) {
	healthy, err := s.aggregator.CheckAllSourcesHealth(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]bool{"healthy": healthy})
}

func (s *Server) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.Header.Get(userIDHeader)
	if raw == "" {
		s.respondError(w, http.StatusUnauthorized, errors.New("missing user identity"))
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		s.respondError(w, http.StatusUnauthorized, errors.New("invalid user identity"))
		return 0, false
	}
	return id, true
}

func urlParamInt64(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return id, nil
}

// respondServiceError maps domain sentinels onto HTTP status codes.
func (s *Server) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrArticleNotFound),
		errors.Is(err, domain.ErrAudioNotFound),
		errors.Is(err, domain.ErrConfigNotFound),
		errors.Is(err, domain.ErrSourceNotFound):
		s.respondError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrForbidden):
		s.respondError(w, http.StatusForbidden, err)
	case errors.Is(err, domain.ErrDeleteWhileProcessing),
		errors.Is(err, domain.ErrAudioNotReady):
		s.respondError(w, http.StatusConflict, err)
	case errors.Is(err, domain.ErrInvalidVoiceSettings),
		errors.Is(err, domain.ErrUnsupportedSourceType):
		s.respondError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrNoTextContent),
		errors.Is(err, domain.ErrSummaryNotAvailable),
		errors.Is(err, domain.ErrNoDefaultVoiceConfig):
		s.respondError(w, http.StatusUnprocessableEntity, err)
	default:
		s.logger.Error("request failed", "error", err)
		s.respondError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, err error) {
	s.respondJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("encode response failed", "error", err)
	}
}
