package services

import (
	"context"
	stderrors "errors"

	"github.com/abrezinsky/tennisbracket/internal/logger"
	"github.com/abrezinsky/tennisbracket/internal/repository"
)

// SettingsService handles settings-related business logic
type SettingsService struct {
	log  logger.Logger
	repo repository.SettingsRepository
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(log logger.Logger, repo repository.SettingsRepository) *SettingsService {
	return &SettingsService{log: log, repo: repo}
}

// GetBaseURL returns the public base URL used in share links
func (s *SettingsService) GetBaseURL(ctx context.Context) (string, error) {
	value, err := s.repo.GetSetting(ctx, "base_url")
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return "", nil // not yet configured
		}
		return "", err
	}
	return value, nil
}

// SetBaseURL saves the public base URL
func (s *SettingsService) SetBaseURL(ctx context.Context, url string) error {
	return s.repo.SetSetting(ctx, "base_url", url)
}
