package handlers

import (
	"context"
	"net/http"

	"github.com/abrezinsky/tennisbracket/internal/services"
)

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Sessions    services.SessionServicer
	Tournaments services.TournamentServicer
	Brackets    services.BracketServicer
	Settings    services.SettingsServicer
	Hub         WebSocketServer
	DB          Pinger
	Log         HTTPLogger
	CORSOrigins []string
}

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
}

// WebSocketServer upgrades websocket requests
type WebSocketServer interface {
	ServeWs(w http.ResponseWriter, r *http.Request)
}

// Pinger checks the database connection
type Pinger interface {
	Ping(ctx context.Context) error
}

// New creates a new Handlers instance with all dependencies
func New(
	sessions services.SessionServicer,
	tournaments services.TournamentServicer,
	brackets services.BracketServicer,
	settings services.SettingsServicer,
	hub WebSocketServer,
	db Pinger,
	log HTTPLogger,
	corsOrigins []string,
) *Handlers {
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}
	return &Handlers{
		Sessions:    sessions,
		Tournaments: tournaments,
		Brackets:    brackets,
		Settings:    settings,
		Hub:         hub,
		DB:          db,
		Log:         log,
		CORSOrigins: corsOrigins,
	}
}

// NoopHTTPLogger is a test logger that always returns false for HTTP logging
type NoopHTTPLogger struct{}

func (NoopHTTPLogger) IsHTTPLoggingEnabled() bool { return false }
