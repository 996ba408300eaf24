package mock

import (
	"context"

	"github.com/abrezinsky/tennisbracket/internal/bracket"
	"github.com/abrezinsky/tennisbracket/internal/models"
	"github.com/abrezinsky/tennisbracket/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.SaveBracketError = errors.New("database error")
//	svc := services.NewSessionService(log, source, source, mockRepo, nil)
type Repository struct {
	repository.FullRepository

	SaveBracketError   error
	GetBracketError    error
	ListBracketsError  error
	DeleteBracketError error
	GetSettingError    error
	SetSettingError    error
	PingError          error
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository: real,
	}
}

func (m *Repository) SaveBracket(ctx context.Context, snap bracket.Snapshot) (int64, error) {
	if m.SaveBracketError != nil {
		return 0, m.SaveBracketError
	}
	return m.FullRepository.SaveBracket(ctx, snap)
}

func (m *Repository) GetBracket(ctx context.Context, key string) (*bracket.Snapshot, error) {
	if m.GetBracketError != nil {
		return nil, m.GetBracketError
	}
	return m.FullRepository.GetBracket(ctx, key)
}

func (m *Repository) ListBrackets(ctx context.Context) ([]models.BracketSummary, error) {
	if m.ListBracketsError != nil {
		return nil, m.ListBracketsError
	}
	return m.FullRepository.ListBrackets(ctx)
}

func (m *Repository) DeleteBracket(ctx context.Context, key string) error {
	if m.DeleteBracketError != nil {
		return m.DeleteBracketError
	}
	return m.FullRepository.DeleteBracket(ctx, key)
}

func (m *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	if m.GetSettingError != nil {
		return "", m.GetSettingError
	}
	return m.FullRepository.GetSetting(ctx, key)
}

func (m *Repository) SetSetting(ctx context.Context, key, value string) error {
	if m.SetSettingError != nil {
		return m.SetSettingError
	}
	return m.FullRepository.SetSetting(ctx, key, value)
}

func (m *Repository) Ping(ctx context.Context) error {
	if m.PingError != nil {
		return m.PingError
	}
	return m.FullRepository.Ping(ctx)
}

var _ repository.FullRepository = (*Repository)(nil)
