package services

import (
	"context"

	"github.com/abrezinsky/tennisbracket/internal/bracket"
	"github.com/abrezinsky/tennisbracket/internal/models"
	"github.com/abrezinsky/tennisbracket/pkg/tennisabstract"
)

// SessionServicer defines the interface for bracket session operations
type SessionServicer interface {
	Open(ctx context.Context, req OpenRequest) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	Projection(ctx context.Context, id string, fromRound int) (*bracket.Projection, error)
	Predict(ctx context.Context, id string, in bracket.PredictionInput) (*PredictResult, error)
	Refresh(ctx context.Context, id string) (*RefreshResult, error)
	RefreshAll(ctx context.Context) int
	Save(ctx context.Context, id string) (*SaveResult, error)
	Close(ctx context.Context, id string) error
	Count() int
	ShareURL(ctx context.Context, id string) (string, error)
	ShareQR(ctx context.Context, id string) ([]byte, error)
	SetBroadcaster(b Broadcaster)
}

// TournamentServicer defines the interface for tournament listing operations
type TournamentServicer interface {
	List(ctx context.Context) ([]tennisabstract.Tournament, error)
	Matchup(ctx context.Context, player, opponent string) (*tennisabstract.Matchup, error)
}

// BracketServicer defines the interface for stored bracket operations
type BracketServicer interface {
	List(ctx context.Context) ([]models.BracketSummary, error)
	Delete(ctx context.Context, key string) error
}

// SettingsServicer defines the interface for settings operations
type SettingsServicer interface {
	GetBaseURL(ctx context.Context) (string, error)
	SetBaseURL(ctx context.Context, url string) error
}

// Ensure concrete types implement interfaces
var (
	_ SessionServicer    = (*SessionService)(nil)
	_ TournamentServicer = (*TournamentService)(nil)
	_ BracketServicer    = (*BracketService)(nil)
	_ SettingsServicer   = (*SettingsService)(nil)
	_ Refresher          = (*SessionService)(nil)
)
