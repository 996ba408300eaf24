package repository

import (
	"context"

	"github.com/abrezinsky/tennisbracket/internal/bracket"
	"github.com/abrezinsky/tennisbracket/internal/models"
)

// BracketRepository defines stored bracket operations
type BracketRepository interface {
	// SaveBracket stores a snapshot, replacing any bracket with the same title
	SaveBracket(ctx context.Context, snap bracket.Snapshot) (int64, error)
	// GetBracket loads a bracket by title or slug
	GetBracket(ctx context.Context, key string) (*bracket.Snapshot, error)
	ListBrackets(ctx context.Context) ([]models.BracketSummary, error)
	// DeleteBracket removes a bracket by title or slug
	DeleteBracket(ctx context.Context, key string) error
}

// SettingsRepository defines settings data operations
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// FullRepository combines all repository interfaces
// Use this when a service needs access to multiple domains
type FullRepository interface {
	BracketRepository
	SettingsRepository
	Ping(ctx context.Context) error
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
