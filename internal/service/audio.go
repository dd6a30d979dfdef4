package service

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"strings"
	"time"

	"podnews/internal/domain"
)

const fileNamePrefixLen = 40

// AudioService turns stored articles into long-form synthesis jobs,
// tracks their asynchronous completion and serves the finished audio.
//
// States: pending -> generating -> completed | failed. A job row is only
// created once the gateway accepted the submission, so a failed submit
// leaves nothing behind.
type AudioService struct {
	articles  ArticleStore
	audio     AudioFileStore
	configs   TtsConfigStore
	gateway   SynthesisGateway
	blobs     BlobStore
	publisher Publisher
	logger    *slog.Logger
}

func NewAudioService(
	articles ArticleStore,
	audio AudioFileStore,
	configs TtsConfigStore,
	gateway SynthesisGateway,
	blobs BlobStore,
	publisher Publisher,
	logger *slog.Logger,
) *AudioService {
	return &AudioService{
		articles:  articles,
		audio:     audio,
		configs:   configs,
		gateway:   gateway,
		blobs:     blobs,
		publisher: publisher,
		logger:    logger,
	}
}

// GenerateFromArticle submits a synthesis job for the article's full text.
func (s *AudioService) GenerateFromArticle(ctx context.Context, userID, articleID int64, adhoc *domain.VoiceSettings) (*domain.AudioFile, error) {
	article, err := s.articles.FindByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("load article %d: %w", articleID, err)
	}

	text := article.Text()
	if text == "" {
		return nil, fmt.Errorf("article %d: %w", articleID, domain.ErrNoTextContent)
	}

	return s.submit(ctx, userID, article, text, adhoc)
}

// GenerateFromSummary submits a synthesis job for the article's summary.
func (s *AudioService) GenerateFromSummary(ctx context.Context, userID, articleID int64, adhoc *domain.VoiceSettings) (*domain.AudioFile, error) {
	article, err := s.articles.FindByID(ctx, articleID)
	if err != nil {
		return nil, fmt.Errorf("load article %d: %w", articleID, err)
	}

	if article.Summary == nil || strings.TrimSpace(*article.Summary) == "" {
		return nil, fmt.Errorf("article %d: %w", articleID, domain.ErrSummaryNotAvailable)
	}

	return s.submit(ctx, userID, article, *article.Summary, adhoc)
}

func (s *AudioService) submit(ctx context.Context, userID int64, article *domain.NewsArticle, text string, adhoc *domain.VoiceSettings) (*domain.AudioFile, error) {
	voice, configID, err := s.resolveVoice(ctx, userID, adhoc)
	if err != nil {
		return nil, err
	}

	ssml := buildSSML(article.Title, text)
	fileName := outputFileName(article.Title, voice.VoiceName, voice.Encoding, time.Now().UTC())

	job, err := s.gateway.Submit(ctx, ssml, voice, fileName)
	if err != nil {
		return nil, fmt.Errorf("submit synthesis: %w", err)
	}

	audioFile := &domain.AudioFile{
		UserID:        userID,
		ArticleID:     article.ID,
		FileName:      fileName,
		Status:        domain.AudioStatusGenerating,
		OperationName: &job.OperationName,
		OutputURI:     &job.OutputURI,
		TtsConfigID:   configID,
		VoiceName:     voice.VoiceName,
		LanguageCode:  voice.LanguageCode,
		Encoding:      voice.Encoding,
	}

	id, err := s.audio.Insert(ctx, audioFile)
	if err != nil {
		return nil, fmt.Errorf("persist audio job: %w", err)
	}
	audioFile.ID = id

	s.logger.Info("audio generation started",
		"audio_file_id", id,
		"article_id", article.ID,
		"user_id", userID,
		"operation", job.OperationName,
	)

	return audioFile, nil
}

// resolveVoice applies the strict settings priority: caller-supplied
// ad-hoc settings win over the saved default. The returned config id is
// non-nil only when the saved default was used.
func (s *AudioService) resolveVoice(ctx context.Context, userID int64, adhoc *domain.VoiceSettings) (domain.VoiceSettings, *int64, error) {
	if adhoc != nil {
		voice := *adhoc
		voice.Normalize()
		if err := voice.Validate(); err != nil {
			return domain.VoiceSettings{}, nil, fmt.Errorf("%w: %v", domain.ErrInvalidVoiceSettings, err)
		}
		return voice, nil, nil
	}

	cfg, err := s.configs.FindDefault(ctx, userID)
	if err != nil {
		return domain.VoiceSettings{}, nil, fmt.Errorf("load default voice config: %w", err)
	}
	if cfg == nil {
		return domain.VoiceSettings{}, nil, domain.ErrNoDefaultVoiceConfig
	}

	return cfg.Voice(), &cfg.ID, nil
}

// CheckStatus polls the synthesis operation and advances the job record.
// Terminal jobs return immediately without touching the gateway.
func (s *AudioService) CheckStatus(ctx context.Context, userID, audioID int64) (*domain.AudioJobStatus, error) {
	f, err := s.ownedAudioFile(ctx, userID, audioID)
	if err != nil {
		return nil, err
	}

	if f.Terminal() {
		return jobStatus(f, terminalProgress(f)), nil
	}

	if f.OperationName == nil {
		// generating without a handle should be impossible; fail the job
		// rather than leaving it stuck.
		msg := "missing synthesis operation handle"
		f.Status = domain.AudioStatusFailed
		f.ErrorMessage = &msg
		if err := s.audio.Update(ctx, f); err != nil {
			return nil, fmt.Errorf("update audio job: %w", err)
		}
		s.publishAudioEvent(ctx, f)
		return jobStatus(f, 0), nil
	}

	op, err := s.gateway.Poll(ctx, *f.OperationName)
	if err != nil {
		return nil, fmt.Errorf("poll synthesis: %w", err)
	}

	if !op.Done {
		return jobStatus(f, op.ProgressPct), nil
	}

	if op.ErrorMessage != "" {
		msg := op.ErrorMessage
		f.Status = domain.AudioStatusFailed
		f.ErrorMessage = &msg
	} else {
		f.Status = domain.AudioStatusCompleted
		if op.OutputURI != "" {
			uri := op.OutputURI
			f.OutputURI = &uri
		}
	}

	if err := s.audio.Update(ctx, f); err != nil {
		return nil, fmt.Errorf("update audio job: %w", err)
	}

	s.logger.Info("audio job finished",
		"audio_file_id", f.ID,
		"status", f.Status,
	)
	s.publishAudioEvent(ctx, f)

	return jobStatus(f, 100), nil
}

// Stream opens the finished audio for streaming. The caller closes the
// reader.
func (s *AudioService) Stream(ctx context.Context, userID, audioID int64) (io.ReadCloser, *domain.AudioFile, error) {
	f, err := s.readyAudioFile(ctx, userID, audioID)
	if err != nil {
		return nil, nil, err
	}

	reader, err := s.blobs.Read(ctx, *f.OutputURI)
	if err != nil {
		return nil, nil, fmt.Errorf("read audio blob: %w", err)
	}
	return reader, f, nil
}

// Bytes loads the finished audio fully into memory.
func (s *AudioService) Bytes(ctx context.Context, userID, audioID int64) ([]byte, *domain.AudioFile, error) {
	f, err := s.readyAudioFile(ctx, userID, audioID)
	if err != nil {
		return nil, nil, err
	}

	data, err := s.blobs.ReadAll(ctx, *f.OutputURI)
	if err != nil {
		return nil, nil, fmt.Errorf("read audio blob: %w", err)
	}
	return data, f, nil
}

// Delete removes the job record and, best-effort, its blob. Deletion is
// refused while the synthesis operation is still running, and when the
// gateway cannot confirm an in-flight job is done.
func (s *AudioService) Delete(ctx context.Context, userID, audioID int64) error {
	f, err := s.ownedAudioFile(ctx, userID, audioID)
	if err != nil {
		return err
	}

	if !f.Terminal() && f.OperationName != nil {
		op, err := s.gateway.Poll(ctx, *f.OperationName)
		if err != nil {
			return fmt.Errorf("%w: status check failed: %v", domain.ErrDeleteWhileProcessing, err)
		}
		if !op.Done {
			return domain.ErrDeleteWhileProcessing
		}
	}

	if f.OutputURI != nil {
		if err := s.blobs.Delete(ctx, *f.OutputURI); err != nil {
			s.logger.Warn("blob delete failed",
				"audio_file_id", f.ID,
				"uri", *f.OutputURI,
				"error", err,
			)
		}
	}

	if err := s.audio.Delete(ctx, f.ID); err != nil {
		return fmt.Errorf("delete audio job: %w", err)
	}

	s.logger.Info("audio job deleted", "audio_file_id", f.ID, "user_id", userID)
	return nil
}

// List returns the user's jobs, newest first.
func (s *AudioService) List(ctx context.Context, userID int64) ([]domain.AudioFile, error) {
	return s.audio.ListByUser(ctx, userID)
}

func (s *AudioService) ownedAudioFile(ctx context.Context, userID, audioID int64) (*domain.AudioFile, error) {
	f, err := s.audio.FindByID(ctx, audioID)
	if err != nil {
		return nil, fmt.Errorf("load audio job %d: %w", audioID, err)
	}
	if f.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return f, nil
}

func (s *AudioService) readyAudioFile(ctx context.Context, userID, audioID int64) (*domain.AudioFile, error) {
	f, err := s.ownedAudioFile(ctx, userID, audioID)
	if err != nil {
		return nil, err
	}
	if f.Status != domain.AudioStatusCompleted || f.OutputURI == nil {
		return nil, fmt.Errorf("audio job %d: %w", audioID, domain.ErrAudioNotReady)
	}
	return f, nil
}

func (s *AudioService) publishAudioEvent(ctx context.Context, f *domain.AudioFile) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishAudioEvent(ctx, f); err != nil {
		s.logger.Warn("publish audio event failed", "audio_file_id", f.ID, "error", err)
	}
}

func jobStatus(f *domain.AudioFile, progress int) *domain.AudioJobStatus {
	status := &domain.AudioJobStatus{
		AudioFileID: f.ID,
		Status:      f.Status,
		ProgressPct: progress,
	}
	if f.ErrorMessage != nil {
		status.ErrorMessage = *f.ErrorMessage
	}
	if f.OutputURI != nil {
		status.OutputURI = *f.OutputURI
	}
	return status
}

func terminalProgress(f *domain.AudioFile) int {
	if f.Status == domain.AudioStatusCompleted {
		return 100
	}
	return 0
}

// buildSSML wraps the article in speech markup: the title as an
// introductory cue, then the body.
func buildSSML(title, body string) string {
	var sb strings.Builder
	sb.WriteString("<speak>")
	if title != "" {
		sb.WriteString("<p><emphasis level=\"moderate\">")
		sb.WriteString(html.EscapeString(title))
		sb.WriteString("</emphasis></p><break time=\"800ms\"/>")
	}
	sb.WriteString("<p>")
	sb.WriteString(html.EscapeString(body))
	sb.WriteString("</p></speak>")
	return sb.String()
}

// outputFileName builds a deterministic, collision-resistant object name
// from the sanitized title, the voice and the submission timestamp.
func outputFileName(title, voiceName string, encoding domain.AudioEncoding, now time.Time) string {
	return fmt.Sprintf("%s_%s_%s%s",
		sanitizeName(title, fileNamePrefixLen),
		sanitizeName(voiceName, 24),
		now.Format("20060102T150405"),
		encoding.FileExtension(),
	)
}

func sanitizeName(s string, maxLen int) string {
	var sb strings.Builder
	lastDash := true // trim leading dashes
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				sb.WriteByte('-')
				lastDash = true
			}
		}
		if sb.Len() >= maxLen {
			break
		}
	}
	return strings.TrimRight(sb.String(), "-")
}
