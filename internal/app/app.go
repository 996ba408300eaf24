package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/tennisbracket/internal/cache"
	"github.com/abrezinsky/tennisbracket/internal/config"
	"github.com/abrezinsky/tennisbracket/internal/handlers"
	"github.com/abrezinsky/tennisbracket/internal/logger"
	"github.com/abrezinsky/tennisbracket/internal/repository"
	"github.com/abrezinsky/tennisbracket/internal/services"
	"github.com/abrezinsky/tennisbracket/internal/storage"
	"github.com/abrezinsky/tennisbracket/internal/websocket"
	"github.com/abrezinsky/tennisbracket/pkg/tennisabstract"
)

const shutdownTimeout = 10 * time.Second

// App holds all application dependencies
type App struct {
	cfg       *config.Config
	log       logger.Logger
	handlers  *handlers.Handlers
	repo      *repository.Repository
	hub       *websocket.Hub
	sessions  *services.SessionService
	scheduler *services.Scheduler
}

// New creates and initializes a new application instance
func New(cfg *config.Config, log logger.Logger) (*App, error) {
	return NewWithClient(cfg, log, tennisabstract.NewHTTPClient(cfg.SourceURL, log))
}

// NewWithClient is New with an explicit draw source client
func NewWithClient(cfg *config.Config, log logger.Logger, client tennisabstract.Client) (*App, error) {
	repo, err := repository.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	archiver, err := newArchiver(cfg)
	if err != nil {
		repo.Close()
		return nil, err
	}

	pages := cache.NewMemory(cfg.CacheTTL)
	source := services.NewScrapedSource(log, client, pages)

	sessions := services.NewSessionService(log, source, source, repo, archiver)
	tournaments := services.NewTournamentService(log, client, pages)
	brackets := services.NewBracketService(log, repo, archiver)
	settings := services.NewSettingsService(log, repo)

	hub := websocket.New(log, sessions)
	hub.Start()
	sessions.SetBroadcaster(hub)

	h := handlers.New(sessions, tournaments, brackets, settings, hub, repo, log, cfg.CORSOrigins)

	return &App{
		cfg:       cfg,
		log:       log,
		handlers:  h,
		repo:      repo,
		hub:       hub,
		sessions:  sessions,
		scheduler: services.NewScheduler(log, sessions, cfg.RefreshInterval),
	}, nil
}

func newArchiver(cfg *config.Config) (storage.Archiver, error) {
	if !cfg.ArchiveEnabled() {
		return storage.NopArchiver{}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	archiver, err := storage.NewS3Archiver(ctx, cfg.Archive)
	if err != nil {
		return nil, fmt.Errorf("failed to configure archive: %w", err)
	}
	return archiver, nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// RefreshNow triggers the background result refresh immediately
func (a *App) RefreshNow() error {
	return a.scheduler.RunNow()
}

// SessionCount returns the number of open sessions
func (a *App) SessionCount() int {
	return a.sessions.Count()
}

// Close stops background work and closes the database
func (a *App) Close() error {
	if err := a.scheduler.Stop(); err != nil {
		a.log.Warn("Failed to stop scheduler", "error", err)
	}
	a.hub.Stop()
	return a.repo.Close()
}

// Run serves HTTP on addr until ctx is cancelled, then shuts down gracefully
func (a *App) Run(ctx context.Context, addr string) error {
	baseURL := a.cfg.PublicURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://%s%s", getPreferredIP(realNetworkProvider{}), addr)
		a.sessions.SetPublicURL(baseURL)
	}

	if err := a.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("Server starting", "url", baseURL)
		a.log.Info("API", "url", baseURL+"/api/tournaments")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// networkInterface wraps net.Interface for testing
type networkInterface interface {
	Flags() net.Flags
	Addrs() ([]net.Addr, error)
}

type realInterface struct {
	iface net.Interface
}

func (r realInterface) Flags() net.Flags {
	return r.iface.Flags
}

func (r realInterface) Addrs() ([]net.Addr, error) {
	return r.iface.Addrs()
}

type networkProvider interface {
	Interfaces() ([]networkInterface, error)
}

type realNetworkProvider struct{}

func (realNetworkProvider) Interfaces() ([]networkInterface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	result := make([]networkInterface, len(ifaces))
	for i, iface := range ifaces {
		result[i] = realInterface{iface: iface}
	}
	return result, nil
}

// getPreferredIP picks the address share links should point at when no
// public URL is configured. Private IPv4 addresses win; localhost is the
// last resort.
func getPreferredIP(provider networkProvider) string {
	ifaces, err := provider.Interfaces()
	if err != nil {
		return "localhost"
	}

	var candidates []net.IP
	for _, iface := range ifaces {
		flags := iface.Flags()
		if flags&net.FlagUp == 0 || flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ip := ipv4(addr); ip != nil {
				candidates = append(candidates, ip)
			}
		}
	}

	for _, ip := range candidates {
		if isPrivate(ip) {
			return ip.String()
		}
	}
	if len(candidates) > 0 {
		return candidates[0].String()
	}
	return "localhost"
}

func ipv4(addr net.Addr) net.IP {
	var ip net.IP
	switch v := addr.(type) {
	case *net.IPNet:
		ip = v.IP
	case *net.IPAddr:
		ip = v.IP
	}
	if ip == nil || ip.To4() == nil || ip.IsLoopback() {
		return nil
	}
	return ip
}

func isPrivate(ip net.IP) bool {
	s := ip.String()
	return strings.HasPrefix(s, "192.168.") || strings.HasPrefix(s, "10.") || isPrivate172(ip)
}

// isPrivate172 checks if IP is in 172.16.0.0/12
func isPrivate172(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		return ip4[0] == 172 && ip4[1] >= 16 && ip4[1] <= 31
	}
	return false
}
