package service

import (
	"context"
	"fmt"
	"log/slog"

	"podnews/internal/domain"
)

// TtsConfigService manages saved voice settings. The at-most-one-default
// invariant is enforced by unsetting prior defaults in the same
// transaction as every set-default.
type TtsConfigService struct {
	configs   TtsConfigStore
	txManager TransactionManager
	logger    *slog.Logger
}

func NewTtsConfigService(configs TtsConfigStore, txManager TransactionManager, logger *slog.Logger) *TtsConfigService {
	return &TtsConfigService{
		configs:   configs,
		txManager: txManager,
		logger:    logger,
	}
}

func (s *TtsConfigService) Create(ctx context.Context, userID int64, cfg *domain.TtsConfig) (*domain.TtsConfig, error) {
	cfg.UserID = userID
	cfg.IsActive = true

	voice := cfg.Voice()
	voice.Normalize()
	if err := voice.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidVoiceSettings, err)
	}
	cfg.SpeakingRate = voice.SpeakingRate
	cfg.Encoding = voice.Encoding
	cfg.SampleRateHertz = voice.SampleRateHertz

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if cfg.IsDefault {
			if err := s.configs.ClearDefault(txCtx, userID); err != nil {
				return fmt.Errorf("clear default: %w", err)
			}
		}
		id, err := s.configs.Insert(txCtx, cfg)
		if err != nil {
			return err
		}
		cfg.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tts config created", "config_id", cfg.ID, "user_id", userID, "default", cfg.IsDefault)
	return cfg, nil
}

func (s *TtsConfigService) List(ctx context.Context, userID int64) ([]domain.TtsConfig, error) {
	return s.configs.ListActive(ctx, userID)
}

// SetDefault makes cfg the user's single default config.
func (s *TtsConfigService) SetDefault(ctx context.Context, userID, configID int64) error {
	cfg, err := s.ownedConfig(ctx, userID, configID)
	if err != nil {
		return err
	}
	if !cfg.IsActive {
		return fmt.Errorf("config %d: %w", configID, domain.ErrConfigNotFound)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.configs.ClearDefault(txCtx, userID); err != nil {
			return fmt.Errorf("clear default: %w", err)
		}
		return s.configs.SetDefault(txCtx, configID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("default tts config changed", "config_id", configID, "user_id", userID)
	return nil
}

// Deactivate soft-deletes a config. In-flight jobs are unaffected; they
// captured their voice at submission.
func (s *TtsConfigService) Deactivate(ctx context.Context, userID, configID int64) error {
	if _, err := s.ownedConfig(ctx, userID, configID); err != nil {
		return err
	}
	return s.configs.Deactivate(ctx, configID)
}

func (s *TtsConfigService) ownedConfig(ctx context.Context, userID, configID int64) (*domain.TtsConfig, error) {
	cfg, err := s.configs.FindByID(ctx, configID)
	if err != nil {
		return nil, fmt.Errorf("load config %d: %w", configID, err)
	}
	if cfg.UserID != userID {
		return nil, domain.ErrForbidden
	}
	return cfg, nil
}
