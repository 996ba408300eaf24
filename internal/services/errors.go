package services

import "github.com/abrezinsky/tennisbracket/internal/errors"

// Service errors
var (
	ErrSessionNotFound   = errors.NotFound("session not found")
	ErrViewOnly          = errors.Conflict("session is view only")
	ErrMissingTournament = errors.InvalidInput("tournament is required")
	ErrMissingPlayers    = errors.InvalidInput("player and opponent are required")
	ErrNoBaseURL         = errors.Configuration("base_url not configured")
)
