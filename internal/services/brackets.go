package services

import (
	"context"
	stderrors "errors"

	"github.com/abrezinsky/tennisbracket/internal/errors"
	"github.com/abrezinsky/tennisbracket/internal/logger"
	"github.com/abrezinsky/tennisbracket/internal/models"
	"github.com/abrezinsky/tennisbracket/internal/repository"
	"github.com/abrezinsky/tennisbracket/internal/storage"
)

// BracketService manages stored prediction brackets
type BracketService struct {
	log      logger.Logger
	repo     repository.BracketRepository
	archiver storage.Archiver
}

// NewBracketService creates a new BracketService
func NewBracketService(log logger.Logger, repo repository.BracketRepository, archiver storage.Archiver) *BracketService {
	return &BracketService{log: log, repo: repo, archiver: archiver}
}

// List returns stored brackets, most recently saved first
func (s *BracketService) List(ctx context.Context) ([]models.BracketSummary, error) {
	brackets, err := s.repo.ListBrackets(ctx)
	if err != nil {
		return nil, errors.Internal(err)
	}
	if brackets == nil {
		brackets = []models.BracketSummary{}
	}
	return brackets, nil
}

// Delete removes a stored bracket by title or slug, along with its archived
// copy. A failed archive delete is logged, not returned.
func (s *BracketService) Delete(ctx context.Context, key string) error {
	snap, err := s.repo.GetBracket(ctx, key)
	if stderrors.Is(err, repository.ErrNotFound) {
		return errors.NotFoundf("bracket %s not found", key)
	}
	if err != nil {
		return errors.Internal(err)
	}
	if err := s.repo.DeleteBracket(ctx, snap.Title); err != nil {
		return errors.Internal(err)
	}
	if err := s.archiver.Delete(ctx, snap.Title); err != nil {
		s.log.Warn("archive delete failed", "title", snap.Title, "error", err)
	}
	s.log.Info("bracket deleted", "title", snap.Title)
	return nil
}
