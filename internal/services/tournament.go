package services

import (
	"context"
	"strings"

	"github.com/abrezinsky/tennisbracket/internal/cache"
	"github.com/abrezinsky/tennisbracket/internal/errors"
	"github.com/abrezinsky/tennisbracket/internal/logger"
	"github.com/abrezinsky/tennisbracket/pkg/tennisabstract"
)

// TournamentService lists tournaments and player matchups from the source site
type TournamentService struct {
	log    logger.Logger
	client tennisabstract.Client
	loader *cache.Loader
}

// NewTournamentService creates a new TournamentService
func NewTournamentService(log logger.Logger, client tennisabstract.Client, c cache.Cache) *TournamentService {
	return &TournamentService{log: log, client: client, loader: cache.NewLoader(c)}
}

// List returns the current tournaments, recent ones first
func (s *TournamentService) List(ctx context.Context) ([]tennisabstract.Tournament, error) {
	v, err := s.loader.Load(ctx, "tournaments", func(ctx context.Context) (any, error) {
		return s.client.ListTournaments(ctx)
	})
	if err != nil {
		s.log.Warn("tournament list failed", "error", err)
		return nil, errors.Unavailable("tournament list unavailable", err)
	}
	return v.([]tennisabstract.Tournament), nil
}

// Matchup returns the head-to-head record and ranks of two players
func (s *TournamentService) Matchup(ctx context.Context, player, opponent string) (*tennisabstract.Matchup, error) {
	player, opponent = strings.TrimSpace(player), strings.TrimSpace(opponent)
	if player == "" || opponent == "" {
		return nil, ErrMissingPlayers
	}
	v, err := s.loader.Load(ctx, "matchup:"+player+"|"+opponent, func(ctx context.Context) (any, error) {
		return s.client.FetchMatchup(ctx, player, opponent)
	})
	if err != nil {
		s.log.Warn("matchup fetch failed", "player", player, "opponent", opponent, "error", err)
		return nil, errors.Unavailable("matchup unavailable", err)
	}
	return v.(*tennisabstract.Matchup), nil
}
