package tennisabstract

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is a mock tennisabstract client for testing
type MockClient struct {
	mu          sync.Mutex
	baseURL     string
	tournaments []Tournament
	draws       map[string]*Draw
	matchup     *Matchup
	listErr     error
	drawErr     error
	matchupErr  error
	drawCalls   map[string]int
}

// MockOption configures the mock client
type MockOption func(*MockClient)

// WithTournaments sets the tournaments to return
func WithTournaments(tournaments []Tournament) MockOption {
	return func(m *MockClient) {
		m.tournaments = tournaments
	}
}

// WithDraw registers a draw for a page path
func WithDraw(path string, draw *Draw) MockOption {
	return func(m *MockClient) {
		m.draws[path] = draw
	}
}

// WithMatchup sets the matchup to return
func WithMatchup(matchup *Matchup) MockOption {
	return func(m *MockClient) {
		m.matchup = matchup
	}
}

// WithListError sets an error to return from ListTournaments
func WithListError(err error) MockOption {
	return func(m *MockClient) {
		m.listErr = err
	}
}

// WithDrawError sets an error to return from FetchDraw
func WithDrawError(err error) MockOption {
	return func(m *MockClient) {
		m.drawErr = err
	}
}

// WithMatchupError sets an error to return from FetchMatchup
func WithMatchupError(err error) MockOption {
	return func(m *MockClient) {
		m.matchupErr = err
	}
}

// WithBaseURL sets the base URL
func WithBaseURL(url string) MockOption {
	return func(m *MockClient) {
		m.baseURL = url
	}
}

// NewMockClient creates a new mock client serving DefaultMockDraw at
// DefaultMockPath
func NewMockClient(opts ...MockOption) *MockClient {
	m := &MockClient{
		baseURL:     "http://mock-tennisabstract.local",
		tournaments: DefaultMockTournaments(),
		draws:       map[string]*Draw{DefaultMockPath: DefaultMockDraw()},
		drawCalls:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// BaseURL returns the configured base URL
func (m *MockClient) BaseURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseURL
}

// SetBaseURL updates the base URL
func (m *MockClient) SetBaseURL(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseURL = url
}

// ListTournaments returns the configured tournaments or error
func (m *MockClient) ListTournaments(ctx context.Context) ([]Tournament, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.tournaments, nil
}

// FetchDraw returns a copy of the registered draw for path
func (m *MockClient) FetchDraw(ctx context.Context, path string) (*Draw, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drawCalls[path]++
	if m.drawErr != nil {
		return nil, m.drawErr
	}
	draw, ok := m.draws[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNoDraw)
	}
	cp := *draw
	cp.Results = append([]Result(nil), draw.Results...)
	return &cp, nil
}

// FetchMatchup returns the configured matchup, or an empty record for the
// two players
func (m *MockClient) FetchMatchup(ctx context.Context, player, opponent string) (*Matchup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.matchupErr != nil {
		return nil, m.matchupErr
	}
	if m.matchup != nil {
		return m.matchup, nil
	}
	return &Matchup{Player: player, Opponent: opponent, Tour: "ATP", PlayerRank: -1, OpponentRank: -1}, nil
}

// SetResults replaces the results of a registered draw (for testing)
func (m *MockClient) SetResults(path string, results []Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.draws[path]; ok {
		d.Results = results
	}
}

// DrawCalls returns how often FetchDraw was called for path (for testing)
func (m *MockClient) DrawCalls(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.drawCalls[path]
}

// DefaultMockPath is the page path of DefaultMockDraw
const DefaultMockPath = "2024ATPMockOpen.html"

// DefaultMockTournaments returns sample index entries
func DefaultMockTournaments() []Tournament {
	return []Tournament{
		{Title: "2024 ATP Mock Open", Path: DefaultMockPath, Recent: true},
		{Title: "2024 WTA Sample Cup", Path: "2024WTASampleCup.html"},
	}
}

// DefaultMockDraw returns an eight-slot draw with one bye and the first
// round finished except for one match.
func DefaultMockDraw() *Draw {
	return &Draw{
		Title: "2024 ATP Mock Open",
		Roster: []*Player{
			{ID: 0, Name: "Jannik Sinner", Seed: "(1)"},
			nil,
			{ID: 1, Name: "Tommy Paul"},
			{ID: 2, Name: "Ben Shelton"},
			{ID: 3, Name: "Casper Ruud"},
			{ID: 4, Name: "Qualifier Player 1"},
			{ID: 5, Name: "Alex de Minaur"},
			{ID: 6, Name: "Carlos Alcaraz", Seed: "(2)"},
		},
		Results: []Result{
			{Round: "R1", WinnerID: 2, LoserID: 1, WinnerName: "Ben Shelton", LoserName: "Tommy Paul", Score: "6-4 6-4", Sets: [][2]int{{6, 4}, {6, 4}}, WinnerSets: 2},
			{Round: "R1", WinnerID: 6, LoserID: 5, WinnerName: "Carlos Alcaraz", LoserName: "Alex de Minaur", Score: "6-3 3-6 7-6(5)", Sets: [][2]int{{6, 3}, {3, 6}, {7, 6}}, WinnerSets: 2, LoserSets: 1},
		},
	}
}

var _ Client = (*MockClient)(nil)
