// Package tts talks to a long-form speech synthesis service modeled as a
// long-running-operation API: one call submits a job, later calls poll the
// returned operation until it is done.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"podnews/internal/domain"
)

// Config holds synthesis gateway configuration.
type Config struct {
	BaseURL   string
	APIKey    string
	OutputURI string // bucket prefix for generated audio, e.g. gs://podnews-audio
	Timeout   time.Duration
}

type Gateway struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	outputURI  string
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Gateway {
	return &Gateway{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		outputURI: cfg.OutputURI,
		logger:    logger.With("component", "tts_gateway"),
	}
}

// Submit starts a long-audio synthesis job. There is no retry here: a
// failed submit must not leave a job behind, the caller resubmits.
func (g *Gateway) Submit(ctx context.Context, ssml string, voice domain.VoiceSettings, outputName string) (*domain.SynthesisJob, error) {
	outputURI := fmt.Sprintf("%s/%s", g.outputURI, outputName)

	reqBody := synthesizeRequest{
		Input: synthesisInput{SSML: ssml},
		Voice: voiceSelection{
			LanguageCode: voice.LanguageCode,
			Name:         voice.VoiceName,
		},
		AudioConfig: audioConfig{
			AudioEncoding:   string(voice.Encoding),
			SpeakingRate:    voice.SpeakingRate,
			Pitch:           voice.Pitch,
			VolumeGainDb:    voice.VolumeGainDb,
			SampleRateHertz: voice.SampleRateHertz,
		},
		OutputGcsURI: outputURI,
	}

	op, err := g.doRequest(ctx, http.MethodPost, g.baseURL+"/v1/text:synthesizeLongAudio", &reqBody)
	if err != nil {
		return nil, &domain.GatewayError{Op: "submit", Err: err}
	}
	if op.Name == "" {
		return nil, &domain.GatewayError{Op: "submit", Err: fmt.Errorf("response missing operation name")}
	}

	g.logger.Info("submitted synthesis job",
		"operation", op.Name,
		"output_uri", outputURI,
	)

	return &domain.SynthesisJob{
		OperationName: op.Name,
		OutputURI:     outputURI,
	}, nil
}

// Poll reads the current state of a synthesis operation. The read is
// idempotent; concurrent polls of one operation are safe.
func (g *Gateway) Poll(ctx context.Context, operationName string) (*domain.SynthesisOperation, error) {
	op, err := g.doRequest(ctx, http.MethodGet, g.baseURL+"/v1/"+operationName, nil)
	if err != nil {
		return nil, &domain.GatewayError{Op: "poll", Err: err}
	}

	status := &domain.SynthesisOperation{Done: op.Done}
	if op.Metadata != nil {
		status.ProgressPct = op.Metadata.ProgressPercentage
	}
	if op.Done {
		status.ProgressPct = 100
	}
	if op.Error != nil {
		status.ErrorMessage = op.Error.Message
		if status.ErrorMessage == "" {
			status.ErrorMessage = fmt.Sprintf("operation failed with code %d", op.Error.Code)
		}
	}
	if op.Response != nil {
		status.OutputURI = op.Response.OutputGcsURI
	}

	return status, nil
}

func (g *Gateway) doRequest(ctx context.Context, method, url string, body any) (*operationResponse, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.apiKey != "" {
		req.Header.Set("X-Api-Key", g.apiKey)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, detail)
	}

	var op operationResponse
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &op, nil
}
