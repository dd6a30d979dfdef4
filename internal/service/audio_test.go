package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"podnews/internal/domain"
	"podnews/internal/service/mocks"
)

type AudioServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	articles  *mocks.MockArticleStore
	audio     *mocks.MockAudioFileStore
	configs   *mocks.MockTtsConfigStore
	gateway   *mocks.MockSynthesisGateway
	blobs     *mocks.MockBlobStore
	publisher *mocks.MockPublisher

	service *AudioService
	logger  *slog.Logger
}

func (s *AudioServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.articles = mocks.NewMockArticleStore(s.ctrl)
	s.audio = mocks.NewMockAudioFileStore(s.ctrl)
	s.configs = mocks.NewMockTtsConfigStore(s.ctrl)
	s.gateway = mocks.NewMockSynthesisGateway(s.ctrl)
	s.blobs = mocks.NewMockBlobStore(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.service = NewAudioService(
		s.articles,
		s.audio,
		s.configs,
		s.gateway,
		s.blobs,
		s.publisher,
		s.logger,
	)
}

func (s *AudioServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestAudioServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AudioServiceTestSuite))
}

func strPtr(v string) *string { return &v }

func testArticle() *domain.NewsArticle {
	return &domain.NewsArticle{
		ID:      10,
		Title:   "Rates Hold Steady",
		Content: strPtr("The central bank left rates unchanged."),
		URL:     "https://example.com/rates",
	}
}

func defaultConfig() *domain.TtsConfig {
	return &domain.TtsConfig{
		ID:              3,
		UserID:          1,
		Name:            "morning briefing",
		LanguageCode:    "en-US",
		VoiceName:       "en-US-Neural2-C",
		SpeakingRate:    1.1,
		Encoding:        domain.EncodingMP3,
		SampleRateHertz: 24000,
		IsDefault:       true,
		IsActive:        true,
	}
}

func (s *AudioServiceTestSuite) TestGenerateFromArticle_AdhocVoiceWins() {
	ctx := context.Background()
	adhoc := &domain.VoiceSettings{
		LanguageCode: "de-DE",
		VoiceName:    "de-DE-Neural2-A",
	}

	s.articles.EXPECT().FindByID(ctx, int64(10)).Return(testArticle(), nil)

	// no FindDefault call: ad-hoc settings short-circuit the saved config
	s.gateway.EXPECT().Submit(ctx, gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, ssml string, voice domain.VoiceSettings, outputName string) (*domain.SynthesisJob, error) {
			s.Equal("de-DE-Neural2-A", voice.VoiceName)
			s.Equal(1.0, voice.SpeakingRate)
			s.Equal(domain.EncodingMP3, voice.Encoding)
			s.Contains(ssml, "Rates Hold Steady")
			s.Contains(outputName, "rates-hold-steady")
			return &domain.SynthesisJob{OperationName: "operations/op-1", OutputURI: "gs://audio/out.mp3"}, nil
		},
	)

	s.audio.EXPECT().Insert(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, f *domain.AudioFile) (int64, error) {
			s.Equal(domain.AudioStatusGenerating, f.Status)
			s.Nil(f.TtsConfigID)
			s.Equal("operations/op-1", *f.OperationName)
			return 55, nil
		},
	)

	f, err := s.service.GenerateFromArticle(ctx, 1, 10, adhoc)

	s.NoError(err)
	s.Equal(int64(55), f.ID)
	s.Equal(domain.AudioStatusGenerating, f.Status)
}

func (s *AudioServiceTestSuite) TestGenerateFromArticle_UsesSavedDefault() {
	ctx := context.Background()
	cfg := defaultConfig()

	s.articles.EXPECT().FindByID(ctx, int64(10)).Return(testArticle(), nil)
	s.configs.EXPECT().FindDefault(ctx, int64(1)).Return(cfg, nil)

	s.gateway.EXPECT().Submit(ctx, gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, _ string, voice domain.VoiceSettings, _ string) (*domain.SynthesisJob, error) {
			s.Equal(cfg.VoiceName, voice.VoiceName)
			s.Equal(cfg.SpeakingRate, voice.SpeakingRate)
			return &domain.SynthesisJob{OperationName: "operations/op-2", OutputURI: "gs://audio/out.mp3"}, nil
		},
	)

	s.audio.EXPECT().Insert(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, f *domain.AudioFile) (int64, error) {
			s.NotNil(f.TtsConfigID)
			s.Equal(cfg.ID, *f.TtsConfigID)
			return 56, nil
		},
	)

	f, err := s.service.GenerateFromArticle(ctx, 1, 10, nil)

	s.NoError(err)
	s.Equal(int64(56), f.ID)
}

func (s *AudioServiceTestSuite) TestGenerateFromArticle_NoDefaultConfig() {
	ctx := context.Background()

	s.articles.EXPECT().FindByID(ctx, int64(10)).Return(testArticle(), nil)
	s.configs.EXPECT().FindDefault(ctx, int64(1)).Return(nil, nil)

	// the gateway is never reached and no job row is written
	_, err := s.service.GenerateFromArticle(ctx, 1, 10, nil)

	s.ErrorIs(err, domain.ErrNoDefaultVoiceConfig)
}

func (s *AudioServiceTestSuite) TestGenerateFromArticle_SubmitFailureLeavesNoRow() {
	ctx := context.Background()
	adhoc := &domain.VoiceSettings{LanguageCode: "en-US", VoiceName: "en-US-Neural2-C"}

	s.articles.EXPECT().FindByID(ctx, int64(10)).Return(testArticle(), nil)
	s.gateway.EXPECT().Submit(ctx, gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("gateway unavailable"))

	_, err := s.service.GenerateFromArticle(ctx, 1, 10, adhoc)

	s.Error(err)
	s.Contains(err.Error(), "submit synthesis")
}

func (s *AudioServiceTestSuite) TestGenerateFromArticle_NoText() {
	ctx := context.Background()
	article := &domain.NewsArticle{ID: 10, Title: "Hollow", URL: "https://example.com/hollow"}

	s.articles.EXPECT().FindByID(ctx, int64(10)).Return(article, nil)

	_, err := s.service.GenerateFromArticle(ctx, 1, 10, nil)

	s.ErrorIs(err, domain.ErrNoTextContent)
}

func (s *AudioServiceTestSuite) TestGenerateFromSummary_NotAvailable() {
	ctx := context.Background()
	article := testArticle()
	article.Summary = strPtr("   ")

	s.articles.EXPECT().FindByID(ctx, int64(10)).Return(article, nil)

	_, err := s.service.GenerateFromSummary(ctx, 1, 10, nil)

	s.ErrorIs(err, domain.ErrSummaryNotAvailable)
}

func (s *AudioServiceTestSuite) TestGenerateFromArticle_InvalidAdhocSettings() {
	ctx := context.Background()
	adhoc := &domain.VoiceSettings{
		LanguageCode: "en-US",
		VoiceName:    "en-US-Neural2-C",
		SpeakingRate: 9.0,
	}

	s.articles.EXPECT().FindByID(ctx, int64(10)).Return(testArticle(), nil)

	_, err := s.service.GenerateFromArticle(ctx, 1, 10, adhoc)

	s.Error(err)
	s.Contains(err.Error(), "invalid voice settings")
}

func (s *AudioServiceTestSuite) TestCheckStatus_TerminalSkipsGateway() {
	ctx := context.Background()
	f := &domain.AudioFile{
		ID:            5,
		UserID:        1,
		Status:        domain.AudioStatusCompleted,
		OperationName: strPtr("operations/op-1"),
		OutputURI:     strPtr("gs://audio/out.mp3"),
	}

	s.audio.EXPECT().FindByID(ctx, int64(5)).Return(f, nil)

	status, err := s.service.CheckStatus(ctx, 1, 5)

	s.NoError(err)
	s.Equal(domain.AudioStatusCompleted, status.Status)
	s.Equal(100, status.ProgressPct)
	s.Equal("gs://audio/out.mp3", status.OutputURI)
}

func (s *AudioServiceTestSuite) TestCheckStatus_InProgress() {
	ctx := context.Background()
	f := &domain.AudioFile{
		ID:            5,
		UserID:        1,
		Status:        domain.AudioStatusGenerating,
		OperationName: strPtr("operations/op-1"),
	}

	s.audio.EXPECT().FindByID(ctx, int64(5)).Return(f, nil)
	s.gateway.EXPECT().Poll(ctx, "operations/op-1").Return(
		&domain.SynthesisOperation{Done: false, ProgressPct: 40}, nil,
	)

	status, err := s.service.CheckStatus(ctx, 1, 5)

	s.NoError(err)
	s.Equal(domain.AudioStatusGenerating, status.Status)
	s.Equal(40, status.ProgressPct)
}

func (s *AudioServiceTestSuite) TestCheckStatus_Completes() {
	ctx := context.Background()
	f := &domain.AudioFile{
		ID:            5,
		UserID:        1,
		Status:        domain.AudioStatusGenerating,
		OperationName: strPtr("operations/op-1"),
	}

	s.audio.EXPECT().FindByID(ctx, int64(5)).Return(f, nil)
	s.gateway.EXPECT().Poll(ctx, "operations/op-1").Return(
		&domain.SynthesisOperation{Done: true, OutputURI: "gs://audio/final.mp3"}, nil,
	)
	s.audio.EXPECT().Update(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, updated *domain.AudioFile) error {
			s.Equal(domain.AudioStatusCompleted, updated.Status)
			s.Equal("gs://audio/final.mp3", *updated.OutputURI)
			return nil
		},
	)
	s.publisher.EXPECT().PublishAudioEvent(ctx, gomock.Any()).Return(nil)

	status, err := s.service.CheckStatus(ctx, 1, 5)

	s.NoError(err)
	s.Equal(domain.AudioStatusCompleted, status.Status)
	s.Equal(100, status.ProgressPct)
}

func (s *AudioServiceTestSuite) TestCheckStatus_OperationFailed() {
	ctx := context.Background()
	f := &domain.AudioFile{
		ID:            5,
		UserID:        1,
		Status:        domain.AudioStatusGenerating,
		OperationName: strPtr("operations/op-1"),
	}

	s.audio.EXPECT().FindByID(ctx, int64(5)).Return(f, nil)
	s.gateway.EXPECT().Poll(ctx, "operations/op-1").Return(
		&domain.SynthesisOperation{Done: true, ErrorMessage: "voice quota exceeded"}, nil,
	)
	s.audio.EXPECT().Update(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, updated *domain.AudioFile) error {
			s.Equal(domain.AudioStatusFailed, updated.Status)
			s.Equal("voice quota exceeded", *updated.ErrorMessage)
			return nil
		},
	)
	s.publisher.EXPECT().PublishAudioEvent(ctx, gomock.Any()).Return(nil)

	status, err := s.service.CheckStatus(ctx, 1, 5)

	s.NoError(err)
	s.Equal(domain.AudioStatusFailed, status.Status)
	s.Equal("voice quota exceeded", status.ErrorMessage)
}

func (s *AudioServiceTestSuite) TestCheckStatus_PollErrorDoesNotFailJob() {
	ctx := context.Background()
	f := &domain.AudioFile{
		ID:            5,
		UserID:        1,
		Status:        domain.AudioStatusGenerating,
		OperationName: strPtr("operations/op-1"),
	}

	s.audio.EXPECT().FindByID(ctx, int64(5)).Return(f, nil)
	s.gateway.EXPECT().Poll(ctx, "operations/op-1").Return(nil, errors.New("connection reset"))

	// no Update: a transport error leaves the record untouched
	_, err := s.service.CheckStatus(ctx, 1, 5)

	s.Error(err)
	s.Contains(err.Error(), "poll synthesis")
}

func (s *AudioServiceTestSuite) TestCheckStatus_MissingOperationHandle() {
	ctx := context.Background()
	f := &domain.AudioFile{
		ID:     5,
		UserID: 1,
		Status: domain.AudioStatusGenerating,
	}

	s.audio.EXPECT().FindByID(ctx, int64(5)).Return(f, nil)
	s.audio.EXPECT().Update(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, updated *domain.AudioFile) error {
			s.Equal(domain.AudioStatusFailed, updated.Status)
			return nil
		},
	)
	s.publisher.EXPECT().PublishAudioEvent(ctx, gomock.Any()).Return(nil)

	status, err := s.service.CheckStatus(ctx, 1, 5)

	s.NoError(err)
	s.Equal(domain.AudioStatusFailed, status.Status)
}

func (s *AudioServiceTestSuite) TestCheckStatus_WrongUser() {
	ctx := context.Background()
	f := &domain.AudioFile{ID: 5, UserID: 2, Status: domain.AudioStatusCompleted}

	s.audio.EXPECT().FindByID(ctx, int64(5)).Return(f, nil)

	_, err := s.service.CheckStatus(ctx, 1, 5)

	s.ErrorIs(err, domain.ErrForbidden)
}

func (s *AudioServiceTestSuite) TestStream_NotReady() {
	ctx := context.Background()
	f := &domain.AudioFile{
		ID:     5,
		UserID: 1,
		Status: domain.AudioStatusGenerating,
	}

	s.audio.EXPECT().FindByID(ctx, int64(5)).Return(f, nil)

	_, _, err := s.service.Stream(ctx, 1, 5)

	s.ErrorIs(err, domain.ErrAudioNotReady)
}

func (s *AudioServiceTestSuite) TestDelete_RefusedWhileProcessing() {
	ctx := context.Background()
	f := &domain.AudioFile{
		ID:            5,
		UserID:        1,
		Status:        domain.AudioStatusGenerating,
		OperationName: strPtr("operations/op-1"),
	}

	s.audio.EXPECT().FindByID(ctx, int64(5)).Return(f, nil)
	s.gateway.EXPECT().Poll(ctx, "operations/op-1").Return(
		&domain.SynthesisOperation{Done: false, ProgressPct: 70}, nil,
	)

	err := s.service.Delete(ctx, 1, 5)

	s.ErrorIs(err, domain.ErrDeleteWhileProcessing)
}

func (s *AudioServiceTestSuite) TestDelete_RefusedWhenPollFails() {
	ctx := context.Background()
	f := &domain.AudioFile{
		ID:            5,
		UserID:        1,
		Status:        domain.AudioStatusGenerating,
		OperationName: strPtr("operations/op-1"),
	}

	s.audio.EXPECT().FindByID(ctx, int64(5)).Return(f, nil)
	s.gateway.EXPECT().Poll(ctx, "operations/op-1").Return(nil, errors.New("timeout"))

	err := s.service.Delete(ctx, 1, 5)

	s.ErrorIs(err, domain.ErrDeleteWhileProcessing)
}

func (s *AudioServiceTestSuite) TestDelete_CompletedJobWithBlob() {
	ctx := context.Background()
	f := &domain.AudioFile{
		ID:        5,
		UserID:    1,
		Status:    domain.AudioStatusCompleted,
		OutputURI: strPtr("gs://audio/out.mp3"),
	}

	s.audio.EXPECT().FindByID(ctx, int64(5)).Return(f, nil)
	s.blobs.EXPECT().Delete(ctx, "gs://audio/out.mp3").Return(nil)
	s.audio.EXPECT().Delete(ctx, int64(5)).Return(nil)

	err := s.service.Delete(ctx, 1, 5)

	s.NoError(err)
}

func (s *AudioServiceTestSuite) TestDelete_BlobFailureIsBestEffort() {
	ctx := context.Background()
	f := &domain.AudioFile{
		ID:        5,
		UserID:    1,
		Status:    domain.AudioStatusFailed,
		OutputURI: strPtr("gs://audio/out.mp3"),
	}

	s.audio.EXPECT().FindByID(ctx, int64(5)).Return(f, nil)
	s.blobs.EXPECT().Delete(ctx, "gs://audio/out.mp3").Return(errors.New("object locked"))
	s.audio.EXPECT().Delete(ctx, int64(5)).Return(nil)

	err := s.service.Delete(ctx, 1, 5)

	s.NoError(err)
}

func TestBuildSSML(t *testing.T) {
	ssml := buildSSML("Q&A Session", "Markets rallied <again>.")

	if !strings.Contains(ssml, "Q&amp;A Session") {
		t.Errorf("title not escaped: %s", ssml)
	}
	if !strings.Contains(ssml, "Markets rallied &lt;again&gt;.") {
		t.Errorf("body not escaped: %s", ssml)
	}
	if !strings.Contains(ssml, "<speak>") || !strings.Contains(ssml, "</speak>") {
		t.Errorf("missing speak envelope: %s", ssml)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"Rates Hold Steady!", 40, "rates-hold-steady"},
		{"  --weird__ chars  ", 40, "weird-chars"},
		{"verylongtitleoverflows", 8, "verylong"},
		{"", 40, ""},
	}
	for _, tc := range cases {
		if got := sanitizeName(tc.in, tc.maxLen); got != tc.want {
			t.Errorf("sanitizeName(%q, %d) = %q, want %q", tc.in, tc.maxLen, got, tc.want)
		}
	}
}
