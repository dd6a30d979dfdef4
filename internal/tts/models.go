package tts

// synthesizeRequest is the long-audio synthesis submission payload.
type synthesizeRequest struct {
	Input        synthesisInput `json:"input"`
	Voice        voiceSelection `json:"voice"`
	AudioConfig  audioConfig    `json:"audioConfig"`
	OutputGcsURI string         `json:"outputGcsUri"`
}

type synthesisInput struct {
	SSML string `json:"ssml"`
}

type voiceSelection struct {
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name"`
}

type audioConfig struct {
	AudioEncoding   string  `json:"audioEncoding"`
	SpeakingRate    float64 `json:"speakingRate,omitempty"`
	Pitch           float64 `json:"pitch,omitempty"`
	VolumeGainDb    float64 `json:"volumeGainDb,omitempty"`
	SampleRateHertz int     `json:"sampleRateHertz,omitempty"`
}

// operationResponse is the long-running-operation resource returned by
// both the submit and the poll endpoints.
type operationResponse struct {
	Name     string             `json:"name"`
	Done     bool               `json:"done"`
	Metadata *operationMetadata `json:"metadata"`
	Error    *operationError    `json:"error"`
	Response *operationResult   `json:"response"`
}

type operationMetadata struct {
	ProgressPercentage int `json:"progressPercentage"`
}

type operationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type operationResult struct {
	OutputGcsURI string `json:"outputGcsUri"`
}
