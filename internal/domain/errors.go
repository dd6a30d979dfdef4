package domain

import (
	"errors"
	"fmt"
)

var (
	ErrSourceNotFound        = errors.New("source not found")
	ErrArticleNotFound       = errors.New("article not found")
	ErrAudioNotFound         = errors.New("audio file not found")
	ErrConfigNotFound        = errors.New("tts config not found")
	ErrUnsupportedSourceType = errors.New("unsupported source type")
	ErrNoDefaultVoiceConfig  = errors.New("no default voice config")
	ErrSummaryNotAvailable   = errors.New("article summary not available")
	ErrNoTextContent         = errors.New("article has no text content")
	ErrInvalidVoiceSettings  = errors.New("invalid voice settings")
	ErrAudioNotReady         = errors.New("audio not ready")
	ErrDeleteWhileProcessing = errors.New("cannot delete while synthesis is processing")
	ErrForbidden             = errors.New("forbidden")
)

// ProviderError wraps a network or parse failure talking to a news provider.
type ProviderError struct {
	Source string
	Err    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Source, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// GatewayError wraps a failure talking to the speech synthesis gateway.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("synthesis gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }
