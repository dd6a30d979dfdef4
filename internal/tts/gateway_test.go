package tts

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"podnews/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestGateway(baseURL string) *Gateway {
	return New(Config{
		BaseURL:   baseURL,
		APIKey:    "test-key",
		OutputURI: "gs://podnews-audio",
		Timeout:   5 * time.Second,
	}, testLogger())
}

func testVoice() domain.VoiceSettings {
	return domain.VoiceSettings{
		LanguageCode:    "en-US",
		VoiceName:       "en-US-Neural2-C",
		SpeakingRate:    1.1,
		Encoding:        domain.EncodingMP3,
		SampleRateHertz: 24000,
	}
}

func TestSubmit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/text:synthesizeLongAudio", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		var req synthesizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "<speak>hello</speak>", req.Input.SSML)
		assert.Equal(t, "en-US-Neural2-C", req.Voice.Name)
		assert.Equal(t, "MP3", req.AudioConfig.AudioEncoding)
		assert.Equal(t, "gs://podnews-audio/briefing.mp3", req.OutputGcsURI)

		w.Write([]byte(`{"name": "operations/op-42", "done": false}`))
	}))
	defer server.Close()

	gw := newTestGateway(server.URL)

	job, err := gw.Submit(context.Background(), "<speak>hello</speak>", testVoice(), "briefing.mp3")
	require.NoError(t, err)
	assert.Equal(t, "operations/op-42", job.OperationName)
	assert.Equal(t, "gs://podnews-audio/briefing.mp3", job.OutputURI)
}

func TestSubmit_MissingOperationName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"done": false}`))
	}))
	defer server.Close()

	gw := newTestGateway(server.URL)

	_, err := gw.Submit(context.Background(), "<speak>x</speak>", testVoice(), "briefing.mp3")
	require.Error(t, err)

	var gwErr *domain.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "submit", gwErr.Op)
}

func TestSubmit_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": "rate limited"}`))
	}))
	defer server.Close()

	gw := newTestGateway(server.URL)

	_, err := gw.Submit(context.Background(), "<speak>x</speak>", testVoice(), "briefing.mp3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestPoll_InProgress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/operations/op-42", r.URL.Path)
		w.Write([]byte(`{"name": "operations/op-42", "done": false, "metadata": {"progressPercentage": 35}}`))
	}))
	defer server.Close()

	gw := newTestGateway(server.URL)

	op, err := gw.Poll(context.Background(), "operations/op-42")
	require.NoError(t, err)
	assert.False(t, op.Done)
	assert.Equal(t, 35, op.ProgressPct)
	assert.Empty(t, op.ErrorMessage)
}

func TestPoll_Completed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"name": "operations/op-42",
			"done": true,
			"response": {"outputGcsUri": "gs://podnews-audio/briefing.mp3"}
		}`))
	}))
	defer server.Close()

	gw := newTestGateway(server.URL)

	op, err := gw.Poll(context.Background(), "operations/op-42")
	require.NoError(t, err)
	assert.True(t, op.Done)
	assert.Equal(t, 100, op.ProgressPct)
	assert.Equal(t, "gs://podnews-audio/briefing.mp3", op.OutputURI)
}

func TestPoll_Failed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"name": "operations/op-42",
			"done": true,
			"error": {"code": 8, "message": "quota exhausted"}
		}`))
	}))
	defer server.Close()

	gw := newTestGateway(server.URL)

	op, err := gw.Poll(context.Background(), "operations/op-42")
	require.NoError(t, err)
	assert.True(t, op.Done)
	assert.Equal(t, "quota exhausted", op.ErrorMessage)
}

func TestPoll_FailedWithoutMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "operations/op-42", "done": true, "error": {"code": 13}}`))
	}))
	defer server.Close()

	gw := newTestGateway(server.URL)

	op, err := gw.Poll(context.Background(), "operations/op-42")
	require.NoError(t, err)
	assert.Contains(t, op.ErrorMessage, "code 13")
}

func TestPoll_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	gw := newTestGateway(server.URL)

	_, err := gw.Poll(context.Background(), "operations/op-42")
	require.Error(t, err)

	var gwErr *domain.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "poll", gwErr.Op)
}
