package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/abrezinsky/tennisbracket/internal/config"
	"github.com/abrezinsky/tennisbracket/internal/logger"
	"github.com/abrezinsky/tennisbracket/pkg/tennisabstract"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:        8080,
		DBPath:      ":memory:",
		CacheTTL:    time.Minute,
		PublicURL:   "http://brackets.test",
		CORSOrigins: []string{"*"},
	}
}

func createTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewWithClient(testConfig(), logger.Nop(), tennisabstract.NewMockClient())
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	t.Cleanup(func() { app.Close() })
	return app
}

func TestNew_InitializesApp(t *testing.T) {
	app := createTestApp(t)

	if app.handlers == nil {
		t.Error("expected handlers to be initialized")
	}
	if app.repo == nil {
		t.Error("expected repo to be initialized")
	}
	if app.scheduler == nil {
		t.Error("expected scheduler to be initialized")
	}
	if app.SessionCount() != 0 {
		t.Errorf("expected no sessions, got %d", app.SessionCount())
	}
}

func TestNew_UsesHTTPClient(t *testing.T) {
	app, err := New(testConfig(), logger.Nop())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	defer app.Close()
}

func TestNew_FailsWithBadDBPath(t *testing.T) {
	cfg := testConfig()
	cfg.DBPath = "/nonexistent/path/db.sqlite"

	if _, err := NewWithClient(cfg, logger.Nop(), tennisabstract.NewMockClient()); err == nil {
		t.Error("expected error for invalid db path")
	}
}

func TestApp_Router_ServesHealth(t *testing.T) {
	app := createTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	app.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestApp_Router_OpensSession(t *testing.T) {
	app := createTestApp(t)

	body := `{"tournament":"` + tennisabstract.DefaultMockPath + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	app.Router().ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID == "" || resp.Title != tennisabstract.DefaultMockDraw().Title {
		t.Errorf("unexpected session %+v", resp)
	}
	if app.SessionCount() != 1 {
		t.Errorf("expected 1 session, got %d", app.SessionCount())
	}
}

func TestApp_RefreshNow_DisabledScheduler(t *testing.T) {
	app := createTestApp(t)
	if err := app.RefreshNow(); err != nil {
		t.Errorf("expected no error when scheduler is not running, got %v", err)
	}
}

func TestApp_Run_StopsOnCancel(t *testing.T) {
	app := createTestApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- app.Run(ctx, "127.0.0.1:0")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestApp_Run_ListenError(t *testing.T) {
	app := createTestApp(t)

	if err := app.Run(context.Background(), "not-an-address"); err == nil {
		t.Error("expected listen error")
	}
}

func TestIsPrivate172(t *testing.T) {
	tests := []struct {
		ip       string
		expected bool
	}{
		{"172.16.0.1", true},
		{"172.20.10.5", true},
		{"172.31.255.255", true},
		{"172.15.0.1", false},
		{"172.32.0.1", false},
		{"192.168.1.1", false},
		{"::1", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			if got := isPrivate172(net.ParseIP(tt.ip)); got != tt.expected {
				t.Errorf("isPrivate172(%s) = %v, want %v", tt.ip, got, tt.expected)
			}
		})
	}
}

type mockInterface struct {
	flags net.Flags
	addrs []net.Addr
	err   error
}

func (m mockInterface) Flags() net.Flags {
	return m.flags
}

func (m mockInterface) Addrs() ([]net.Addr, error) {
	return m.addrs, m.err
}

type mockNetworkProvider struct {
	interfaces []networkInterface
	err        error
}

func (m mockNetworkProvider) Interfaces() ([]networkInterface, error) {
	return m.interfaces, m.err
}

func ipNet(s string) *net.IPNet {
	return &net.IPNet{IP: net.ParseIP(s), Mask: net.CIDRMask(24, 32)}
}

func TestGetPreferredIP(t *testing.T) {
	tests := []struct {
		name     string
		provider mockNetworkProvider
		expected string
	}{
		{
			name:     "provider error",
			provider: mockNetworkProvider{err: net.ErrClosed},
			expected: "localhost",
		},
		{
			name: "addrs error",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, err: net.ErrClosed},
			}},
			expected: "localhost",
		},
		{
			name: "ip addr",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{&net.IPAddr{IP: net.ParseIP("192.168.1.100")}}},
			}},
			expected: "192.168.1.100",
		},
		{
			name: "public fallback",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("8.8.8.8")}},
			}},
			expected: "8.8.8.8",
		},
		{
			name: "private preferred over public",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("8.8.8.8"), ipNet("10.0.0.7")}},
			}},
			expected: "10.0.0.7",
		},
		{
			name: "loopback address skipped",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{ipNet("127.0.0.1"), ipNet("192.168.1.50")}},
			}},
			expected: "192.168.1.50",
		},
		{
			name: "down and loopback interfaces skipped",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: 0, addrs: []net.Addr{ipNet("192.168.1.2")}},
				mockInterface{flags: net.FlagUp | net.FlagLoopback, addrs: []net.Addr{ipNet("192.168.1.3")}},
			}},
			expected: "localhost",
		},
		{
			name: "ipv6 ignored",
			provider: mockNetworkProvider{interfaces: []networkInterface{
				mockInterface{flags: net.FlagUp, addrs: []net.Addr{&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)}}},
			}},
			expected: "localhost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := getPreferredIP(tt.provider); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestGetPreferredIP_Real(t *testing.T) {
	ip := getPreferredIP(realNetworkProvider{})
	if ip == "localhost" {
		return
	}
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.To4() == nil {
		t.Errorf("expected IPv4 address or localhost, got %q", ip)
	}
}
