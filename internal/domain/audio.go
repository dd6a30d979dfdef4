package domain

import (
	"fmt"
	"time"
)

// AudioStatus is the processing state of a synthesis job.
type AudioStatus string

const (
	AudioStatusPending    AudioStatus = "pending"
	AudioStatusGenerating AudioStatus = "generating"
	AudioStatusCompleted  AudioStatus = "completed"
	AudioStatusFailed     AudioStatus = "failed"
)

// AudioEncoding is the output audio format of a synthesis job.
type AudioEncoding string

const (
	EncodingMP3      AudioEncoding = "MP3"
	EncodingLinear16 AudioEncoding = "LINEAR16"
	EncodingOggOpus  AudioEncoding = "OGG_OPUS"
	EncodingMulaw    AudioEncoding = "MULAW"
	EncodingAlaw     AudioEncoding = "ALAW"
)

func (e AudioEncoding) Valid() bool {
	switch e {
	case EncodingMP3, EncodingLinear16, EncodingOggOpus, EncodingMulaw, EncodingAlaw:
		return true
	}
	return false
}

func (e AudioEncoding) FileExtension() string {
	switch e {
	case EncodingLinear16:
		return ".wav"
	case EncodingOggOpus:
		return ".ogg"
	case EncodingMulaw, EncodingAlaw:
		return ".raw"
	default:
		return ".mp3"
	}
}

func (e AudioEncoding) ContentType() string {
	switch e {
	case EncodingLinear16:
		return "audio/wav"
	case EncodingOggOpus:
		return "audio/ogg"
	case EncodingMulaw, EncodingAlaw:
		return "audio/basic"
	default:
		return "audio/mpeg"
	}
}

// VoiceSettings are the tunable speech parameters for one synthesis call.
type VoiceSettings struct {
	LanguageCode    string        `json:"language_code"`
	VoiceName       string        `json:"voice_name"`
	SpeakingRate    float64       `json:"speaking_rate"`
	Pitch           float64       `json:"pitch"`
	VolumeGainDb    float64       `json:"volume_gain_db"`
	Encoding        AudioEncoding `json:"audio_encoding"`
	SampleRateHertz int           `json:"sample_rate_hertz"`
}

// Normalize fills unset parameters with synthesis defaults.
func (v *VoiceSettings) Normalize() {
	if v.SpeakingRate == 0 {
		v.SpeakingRate = 1.0
	}
	if v.Encoding == "" {
		v.Encoding = EncodingMP3
	}
	if v.SampleRateHertz == 0 {
		v.SampleRateHertz = 24000
	}
}

// Validate checks the provider-imposed parameter ranges.
func (v *VoiceSettings) Validate() error {
	if v.LanguageCode == "" {
		return fmt.Errorf("language code is required")
	}
	if v.VoiceName == "" {
		return fmt.Errorf("voice name is required")
	}
	if v.SpeakingRate < 0.25 || v.SpeakingRate > 4.0 {
		return fmt.Errorf("speaking rate %.2f out of range [0.25, 4.0]", v.SpeakingRate)
	}
	if v.Pitch < -20.0 || v.Pitch > 20.0 {
		return fmt.Errorf("pitch %.2f out of range [-20.0, 20.0]", v.Pitch)
	}
	if v.VolumeGainDb < -96.0 || v.VolumeGainDb > 16.0 {
		return fmt.Errorf("volume gain %.2f out of range [-96.0, 16.0]", v.VolumeGainDb)
	}
	if !v.Encoding.Valid() {
		return fmt.Errorf("unknown audio encoding %q", v.Encoding)
	}
	if v.SampleRateHertz < 8000 || v.SampleRateHertz > 48000 {
		return fmt.Errorf("sample rate %d out of range [8000, 48000]", v.SampleRateHertz)
	}
	return nil
}

// TtsConfig is a saved, reusable set of voice settings owned by a user.
// At most one active config per user may be the default.
type TtsConfig struct {
	ID              int64         `db:"id"`
	UserID          int64         `db:"user_id"`
	Name            string        `db:"name"`
	LanguageCode    string        `db:"language_code"`
	VoiceName       string        `db:"voice_name"`
	SpeakingRate    float64       `db:"speaking_rate"`
	Pitch           float64       `db:"pitch"`
	VolumeGainDb    float64       `db:"volume_gain_db"`
	Encoding        AudioEncoding `db:"audio_encoding"`
	SampleRateHertz int           `db:"sample_rate_hertz"`
	IsDefault       bool          `db:"is_default"`
	IsActive        bool          `db:"is_active"`
	CreatedAt       time.Time     `db:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at"`
}

// Voice returns the settings stored in the config.
func (c *TtsConfig) Voice() VoiceSettings {
	return VoiceSettings{
		LanguageCode:    c.LanguageCode,
		VoiceName:       c.VoiceName,
		SpeakingRate:    c.SpeakingRate,
		Pitch:           c.Pitch,
		VolumeGainDb:    c.VolumeGainDb,
		Encoding:        c.Encoding,
		SampleRateHertz: c.SampleRateHertz,
	}
}

// AudioFile is the persisted record of one synthesis attempt.
// TtsConfigID is set only when a saved config voiced the job; ad-hoc
// settings are captured in VoiceName/LanguageCode/Encoding instead.
type AudioFile struct {
	ID            int64         `db:"id"`
	UserID        int64         `db:"user_id"`
	ArticleID     int64         `db:"article_id"`
	FileName      string        `db:"file_name"`
	Status        AudioStatus   `db:"status"`
	OperationName *string       `db:"operation_name"`
	OutputURI     *string       `db:"output_uri"`
	ErrorMessage  *string       `db:"error_message"`
	TtsConfigID   *int64        `db:"tts_config_id"`
	VoiceName     string        `db:"voice_name"`
	LanguageCode  string        `db:"language_code"`
	Encoding      AudioEncoding `db:"audio_encoding"`
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`
}

// Terminal reports whether the job can no longer change state.
func (f *AudioFile) Terminal() bool {
	return f.Status == AudioStatusCompleted || f.Status == AudioStatusFailed
}

// AudioJobStatus is the poll response for one job.
type AudioJobStatus struct {
	AudioFileID  int64       `json:"audio_file_id"`
	Status       AudioStatus `json:"status"`
	ProgressPct  int         `json:"progress_pct"`
	ErrorMessage string      `json:"error_message,omitempty"`
	OutputURI    string      `json:"output_uri,omitempty"`
}

// SynthesisJob is the handle returned by the gateway on submission.
type SynthesisJob struct {
	OperationName string
	OutputURI     string
}

// SynthesisOperation is the gateway-reported state of a long-running
// synthesis operation.
type SynthesisOperation struct {
	Done         bool
	ProgressPct  int
	ErrorMessage string
	OutputURI    string
}
