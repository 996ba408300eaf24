// Package tennisabstract provides a client for the draw pages and player
// records published on tennisabstract.com.
package tennisabstract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/abrezinsky/tennisbracket/internal/logger"
)

const (
	DefaultBaseURL    = "https://www.tennisabstract.com"
	DefaultWTABaseURL = "https://www.minorleaguesplits.com/tennisabstract"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_10_1) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/39.0.2171.95 Safari/537.36"
)

// ErrNoDraw is returned when a page has no projected draw table.
var ErrNoDraw = errors.New("page has no draw")

// Tournament is an entry of the current tournaments index.
type Tournament struct {
	Title   string    `json:"title"`
	Path    string    `json:"path"`
	Recent  bool      `json:"recent"`
	Updated time.Time `json:"updated"`
}

// Player is a draw slot occupant. IDs are assigned in draw order from zero.
type Player struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Seed string `json:"seed,omitempty"` // "(1)", "(WC)", "(Q)"
}

// DisplayName is the name with its seed prefix, as shown on the draw sheet.
func (p Player) DisplayName() string {
	if p.Seed == "" {
		return p.Name
	}
	return p.Seed + " " + p.Name
}

// Result is a completed main-draw match. Ids are -1 for names not found in
// the roster.
type Result struct {
	Round      string   `json:"round"`
	WinnerID   int      `json:"winner_id"`
	LoserID    int      `json:"loser_id"`
	WinnerName string   `json:"winner_name"`
	LoserName  string   `json:"loser_name"`
	Score      string   `json:"score"`
	Sets       [][2]int `json:"sets,omitempty"`
	WinnerSets int      `json:"winner_sets"`
	LoserSets  int      `json:"loser_sets"`
	Walkover   bool     `json:"walkover,omitempty"`
}

// Draw is a parsed draw page. Roster is in draw order with nil for byes.
type Draw struct {
	Title   string    `json:"title"`
	Roster  []*Player `json:"roster"`
	Results []Result  `json:"results"`
}

// Matchup is the head-to-head record and current ranks of two players, from
// the first player's point of view. Unranked players have rank -1.
type Matchup struct {
	Player       string `json:"player"`
	Opponent     string `json:"opponent"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	Tour         string `json:"tour"`
	PlayerRank   int    `json:"player_rank"`
	OpponentRank int    `json:"opponent_rank"`
}

// Client defines the interface for tennisabstract operations
type Client interface {
	// ListTournaments returns the current tournaments, recent ones first
	ListTournaments(ctx context.Context) ([]Tournament, error)
	// FetchDraw retrieves the roster and completed results of a draw page
	FetchDraw(ctx context.Context, path string) (*Draw, error)
	// FetchMatchup retrieves head-to-head and rank data for two players
	FetchMatchup(ctx context.Context, player, opponent string) (*Matchup, error)
	// BaseURL returns the configured base URL
	BaseURL() string
	// SetBaseURL updates the base URL
	SetBaseURL(url string)
}

// HTTPClient scrapes tennisabstract over HTTP
type HTTPClient struct {
	baseURL    string
	wtaBaseURL string
	httpClient *http.Client
	log        logger.Logger
	now        func() time.Time
}

// NewHTTPClient creates a new client with a 30 second timeout
func NewHTTPClient(baseURL string, log logger.Logger) *HTTPClient {
	return NewHTTPClientWithHTTPClient(baseURL, &http.Client{Timeout: 30 * time.Second}, log)
}

// NewHTTPClientWithHTTPClient creates a new client with a custom http.Client
func NewHTTPClientWithHTTPClient(baseURL string, httpClient *http.Client, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		wtaBaseURL: DefaultWTABaseURL,
		httpClient: httpClient,
		log:        log,
		now:        time.Now,
	}
}

// BaseURL returns the configured base URL
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// SetBaseURL updates the base URL
func (c *HTTPClient) SetBaseURL(url string) {
	c.baseURL = strings.TrimSuffix(url, "/")
}

// SetWTABaseURL updates the host used for WTA match histories
func (c *HTTPClient) SetWTABaseURL(url string) {
	c.wtaBaseURL = strings.TrimSuffix(url, "/")
}

// SetClock replaces the clock used to decide which tournaments are recent
func (c *HTTPClient) SetClock(now func() time.Time) {
	c.now = now
}

func (c *HTTPClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	c.log.Debug("tennisabstract request", "method", "GET", "url", reqURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to tennisabstract: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug("tennisabstract response", "status", resp.StatusCode, "bytes", len(body))

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tennisabstract returned status %d for %s", resp.StatusCode, reqURL)
	}
	return body, nil
}

func (c *HTTPClient) document(ctx context.Context, reqURL string) (*goquery.Document, error) {
	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return doc, nil
}

// headScript returns the last script in the page head, where the site keeps
// its data variables.
func (c *HTTPClient) headScript(ctx context.Context, reqURL string) (string, error) {
	doc, err := c.document(ctx, reqURL)
	if err != nil {
		return "", err
	}
	return doc.Find("head script").Last().Text(), nil
}

// ListTournaments returns the current tournaments, recent ones first
func (c *HTTPClient) ListTournaments(ctx context.Context) ([]Tournament, error) {
	doc, err := c.document(ctx, c.baseURL+"/current/")
	if err != nil {
		return nil, err
	}
	tournaments := parseTournamentList(doc, c.now())
	c.log.Debug("tennisabstract tournaments", "count", len(tournaments))
	return tournaments, nil
}

// FetchDraw retrieves the roster and completed results of a draw page
func (c *HTTPClient) FetchDraw(ctx context.Context, path string) (*Draw, error) {
	doc, err := c.document(ctx, c.baseURL+"/current/"+strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, err
	}

	script := doc.Find("head script").Last().Text()
	table, ok := extractRoster(script)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNoDraw)
	}
	roster, err := parseRoster(table)
	if err != nil {
		return nil, err
	}
	if len(roster) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoDraw)
	}
	results, err := parseResults(extractResults(script), roster)
	if err != nil {
		return nil, err
	}

	draw := &Draw{
		Title:   pageTitle(doc.Find("title").First().Text()),
		Roster:  roster,
		Results: results,
	}
	c.log.Debug("tennisabstract draw", "title", draw.Title, "slots", len(roster), "results", len(results))
	return draw, nil
}

// FetchMatchup retrieves head-to-head and rank data for two players. ATP
// pages are tried first and WTA sources used when they have no data.
func (c *HTTPClient) FetchMatchup(ctx context.Context, player, opponent string) (*Matchup, error) {
	m := &Matchup{Player: player, Opponent: opponent}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		wins, losses, tour, err := c.headToHead(gctx, player, opponent)
		if err != nil {
			return err
		}
		m.Wins, m.Losses, m.Tour = wins, losses, tour
		return nil
	})
	g.Go(func() error {
		rank, err := c.rank(gctx, player)
		m.PlayerRank = rank
		return err
	})
	g.Go(func() error {
		rank, err := c.rank(gctx, opponent)
		m.OpponentRank = rank
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *HTTPClient) headToHead(ctx context.Context, player, opponent string) (int, int, string, error) {
	q := url.Values{}
	q.Set("p", compactName(player))
	q.Set("f", "ACareerqq")
	q.Set("q", compactName(opponent))
	script, err := c.headScript(ctx, c.baseURL+"/cgi-bin/player.cgi?"+q.Encode())
	if err != nil {
		return 0, 0, "", err
	}
	if raw, ok := jsVar(script, "matchmx"); ok {
		rows, err := parseMatches(raw)
		if err != nil {
			return 0, 0, "", err
		}
		wins, losses := headToHead(rows, opponent)
		return wins, losses, "ATP", nil
	}

	rows, err := c.wtaMatches(ctx, player)
	if err != nil {
		return 0, 0, "", err
	}
	wins, losses := headToHead(rows, opponent)
	return wins, losses, "WTA", nil
}

// wtaMatches joins a WTA player's career and recent match lists.
func (c *HTTPClient) wtaMatches(ctx context.Context, player string) ([][]any, error) {
	base := c.wtaBaseURL + "/cgi-bin/jsmatches/" + url.PathEscape(compactName(player))
	var all [][]any
	for _, src := range []struct{ suffix, name string }{
		{"Career.js", "morematchmx"},
		{".js", "matchmx"},
	} {
		body, err := c.get(ctx, base+src.suffix)
		if err != nil {
			return nil, err
		}
		raw, ok := jsVar(string(body), src.name)
		if !ok {
			continue
		}
		rows, err := parseMatches(raw)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}

func (c *HTTPClient) rank(ctx context.Context, player string) (int, error) {
	q := url.Values{}
	q.Set("p", compactName(player))
	for _, page := range []string{"/cgi-bin/player.cgi?", "/cgi-bin/wplayer-classic.cgi?"} {
		script, err := c.headScript(ctx, c.baseURL+page+q.Encode())
		if err != nil {
			return 0, err
		}
		if raw, ok := jsVar(script, "currentrank"); ok {
			if rank, ok := parseRank(raw); ok {
				return rank, nil
			}
		}
	}
	return -1, nil
}

var _ Client = (*HTTPClient)(nil)
