package tennisabstract

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/abrezinsky/tennisbracket/internal/logger"
)

// scriptPage wraps data variables the way the site does: in the last head
// script of an otherwise empty page.
func scriptPage(title, script string) string {
	return "<html><head><title>" + title + "</title>" +
		`<script src="/jquery.js"></script>` +
		"<script>" + script + "</script></head><body></body></html>"
}

const drawScript = `
var proj8 = '<table><tr><td>(1)&nbsp;<a href="/p/sinner">Jannik Sinner</a></td></tr><tr><td>Bye</td></tr><tr><td><a href="/p/paul">Tommy Paul</a></td></tr><tr><td><a href="/p/shelton">Ben Shelton</a></td></tr><tr><td>(3) <a href="/p/ruud">Casper Ruud</a></td></tr><tr><td>Qualifier</td></tr><tr><td><a href="/p/deminaur">Alex de Minaur</a></td></tr><tr><td>(2) <a href="/p/alcaraz">Carlos Alcaraz<\/a></td></tr></table>';
var proj4 = '<table><tr><td><a>Jannik Sinner</a></td></tr></table>';
var projCurrent = '';
var completedSingles = 'R1: <a>Ben Shelton</a> d. <a>Tommy Paul</a> 6-4 6-4<br/>R1: (2) <a>Carlos Alcaraz</a> d. <a>Alex de Minaur</a> 6-3 3-6 7-6(5)<br/>R1: (3) <a>Casper Ruud</a> d. <a>Unknown Guy</a> W/O<br/>Q1: <a>Some One</a> d. <a>Other One</a> 6-0 6-0';
var completedDoubles = '';
`

func TestHTTPClient_FetchDraw_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/current/2024ATPMockOpen.html" {
			t.Errorf("expected path /current/2024ATPMockOpen.html, got %s", r.URL.Path)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("expected a User-Agent header")
		}
		fmt.Fprint(w, scriptPage("Tennis Abstract: 2024 Mock Open Results | ATP", drawScript))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, logger.Nop())
	draw, err := client.FetchDraw(context.Background(), "2024ATPMockOpen.html")
	if err != nil {
		t.Fatalf("FetchDraw failed: %v", err)
	}

	if draw.Title != "2024 Mock Open" {
		t.Errorf("expected title '2024 Mock Open', got %q", draw.Title)
	}
	if len(draw.Roster) != 8 {
		t.Fatalf("expected 8 slots, got %d", len(draw.Roster))
	}
	wantNames := []string{"Jannik Sinner", "", "Tommy Paul", "Ben Shelton", "Casper Ruud", "Qualifier Player 1", "Alex de Minaur", "Carlos Alcaraz"}
	nextID := 0
	for i, want := range wantNames {
		p := draw.Roster[i]
		if want == "" {
			if p != nil {
				t.Errorf("slot %d: expected bye, got %+v", i, p)
			}
			continue
		}
		if p == nil {
			t.Fatalf("slot %d: expected %s, got bye", i, want)
		}
		if p.Name != want || p.ID != nextID {
			t.Errorf("slot %d: expected %s with id %d, got %+v", i, want, nextID, p)
		}
		nextID++
	}
	if draw.Roster[0].Seed != "(1)" || draw.Roster[7].Seed != "(2)" {
		t.Errorf("expected seeds (1) and (2), got %q and %q", draw.Roster[0].Seed, draw.Roster[7].Seed)
	}
	if draw.Roster[0].DisplayName() != "(1) Jannik Sinner" {
		t.Errorf("unexpected display name %q", draw.Roster[0].DisplayName())
	}

	if len(draw.Results) != 3 {
		t.Fatalf("expected 3 main draw results, got %d: %+v", len(draw.Results), draw.Results)
	}
	first := draw.Results[0]
	if first.Round != "R1" || first.WinnerID != 2 || first.LoserID != 1 || first.WinnerSets != 2 || first.LoserSets != 0 {
		t.Errorf("unexpected first result %+v", first)
	}
	second := draw.Results[1]
	if second.WinnerID != 6 || second.LoserID != 5 || second.WinnerSets != 2 || second.LoserSets != 1 {
		t.Errorf("unexpected second result %+v", second)
	}
	if len(second.Sets) != 3 || second.Sets[2] != [2]int{7, 6} {
		t.Errorf("expected tie-break set 7-6, got %v", second.Sets)
	}
	walkover := draw.Results[2]
	if !walkover.Walkover || walkover.WinnerID != 3 || walkover.LoserID != -1 || walkover.WinnerSets != 1 {
		t.Errorf("unexpected walkover result %+v", walkover)
	}
}

func TestHTTPClient_FetchDraw_NoDraw(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, scriptPage("Tennis Abstract", "var other = 1;"))
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, logger.Nop())
	_, err := client.FetchDraw(context.Background(), "missing.html")
	if !errors.Is(err, ErrNoDraw) {
		t.Fatalf("expected ErrNoDraw, got %v", err)
	}
}

func TestHTTPClient_FetchDraw_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, logger.Nop())
	if _, err := client.FetchDraw(context.Background(), "2024ATPMockOpen.html"); err == nil {
		t.Fatal("expected error for server error response")
	}
}

func TestHTTPClient_ConnectionError(t *testing.T) {
	client := NewHTTPClient("http://127.0.0.1:1", logger.Nop())
	if _, err := client.ListTournaments(context.Background()); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}

func TestHTTPClient_ListTournaments(t *testing.T) {
	page := `<html><body><table>
<tr><th>#</th><th>Tournament</th><th>Updated</th></tr>
<tr><td>1</td><td><a href="2024ATPCincinnati.html">Cincinnati</a></td><td>2024-08-15 10:00</td></tr>
<tr><td>2</td><td><a href="2024WTAUSOpen.html">US Open</a></td><td>2024-08-01 09:00</td></tr>
<tr><td>3</td><td><a href="2022ATPOldEvent.html">Old</a></td><td>2022-01-01</td></tr>
<tr><td>4</td><td><a href="/">Home</a></td><td>2024-08-15</td></tr>
<tr><td>5</td><td><a href="2024ATPWashington.html">Washington</a></td><td>2024-08-14</td></tr>
<tr><td>6</td><td><a href="2024ATPNoDate.html">No date</a></td><td>soon</td></tr>
</table><table><tr><td>x</td><td><a href="2024ATPIgnored.html">x</a></td><td>2024-08-15</td></tr></table></body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/current/" {
			t.Errorf("expected path /current/, got %s", r.URL.Path)
		}
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL+"/", logger.Nop())
	client.SetClock(func() time.Time { return time.Date(2024, 8, 16, 12, 0, 0, 0, time.UTC) })

	tournaments, err := client.ListTournaments(context.Background())
	if err != nil {
		t.Fatalf("ListTournaments failed: %v", err)
	}

	want := []struct {
		title  string
		recent bool
	}{
		{"2024 ATP Cincinnati", true},
		{"2024 ATP Washington", true},
		{"2024 WTA US Open", false},
	}
	if len(tournaments) != len(want) {
		t.Fatalf("expected %d tournaments, got %d: %+v", len(want), len(tournaments), tournaments)
	}
	for i, w := range want {
		if tournaments[i].Title != w.title || tournaments[i].Recent != w.recent {
			t.Errorf("tournament %d: expected %s (recent=%v), got %+v", i, w.title, w.recent, tournaments[i])
		}
	}
}

func matchupServer(t *testing.T) *httptest.Server {
	t.Helper()
	atpRows := `[["","","","","W","","","","","6-4 6-4","","Carlos Alcaraz"],` +
		`["","","","","L","","","","","7-6(3) 6-3","","Carlos Alcaraz"],` +
		`["","","","","W","","","","","W/O","","Carlos Alcaraz"],` +
		`["","","","","W","","","","","6-1 6-1","","Casper Ruud"]]`

	mux := http.NewServeMux()
	mux.HandleFunc("/cgi-bin/player.cgi", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("f") == "ACareerqq" {
			if q.Get("p") == "JannikSinner" {
				fmt.Fprint(w, scriptPage("h2h", "var matchmx = "+atpRows+";"))
				return
			}
			fmt.Fprint(w, scriptPage("h2h", "var fullname = 'unknown';"))
			return
		}
		ranks := map[string]string{"JannikSinner": "1", "CarlosAlcaraz": `"UNR"`}
		if rank, ok := ranks[q.Get("p")]; ok {
			fmt.Fprint(w, scriptPage("player", "var currentrank = "+rank+";"))
			return
		}
		fmt.Fprint(w, scriptPage("player", ""))
	})
	mux.HandleFunc("/cgi-bin/wplayer-classic.cgi", func(w http.ResponseWriter, r *http.Request) {
		ranks := map[string]string{"IgaSwiatek": "1", "ArynaSabalenka": "2"}
		if rank, ok := ranks[r.URL.Query().Get("p")]; ok {
			fmt.Fprint(w, scriptPage("player", "var currentrank = "+rank+";"))
			return
		}
		fmt.Fprint(w, scriptPage("player", ""))
	})
	mux.HandleFunc("/wta/cgi-bin/jsmatches/IgaSwiatekCareer.js", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `var morematchmx = [["","","","","L","","","","","6-2 6-2","","Aryna Sabalenka"]];`)
	})
	mux.HandleFunc("/wta/cgi-bin/jsmatches/IgaSwiatek.js", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `var matchmx = [["","","","","W","","","","","6-3 6-4","","Aryna Sabalenka"],["","","","","W","","","","","","","Aryna Sabalenka"]];`)
	})
	return httptest.NewServer(mux)
}

func TestHTTPClient_FetchMatchup_ATP(t *testing.T) {
	server := matchupServer(t)
	defer server.Close()

	client := NewHTTPClient(server.URL, logger.Nop())
	m, err := client.FetchMatchup(context.Background(), "Jannik Sinner", "Carlos Alcaraz")
	if err != nil {
		t.Fatalf("FetchMatchup failed: %v", err)
	}

	if m.Tour != "ATP" || m.Wins != 1 || m.Losses != 1 {
		t.Errorf("expected ATP 1-1, got %+v", m)
	}
	if m.PlayerRank != 1 || m.OpponentRank != -1 {
		t.Errorf("expected ranks 1 and -1, got %d and %d", m.PlayerRank, m.OpponentRank)
	}
}

func TestHTTPClient_FetchMatchup_WTAFallback(t *testing.T) {
	server := matchupServer(t)
	defer server.Close()

	client := NewHTTPClient(server.URL, logger.Nop())
	client.SetWTABaseURL(server.URL + "/wta/")
	m, err := client.FetchMatchup(context.Background(), "Iga Swiatek", "Aryna Sabalenka")
	if err != nil {
		t.Fatalf("FetchMatchup failed: %v", err)
	}

	if m.Tour != "WTA" || m.Wins != 1 || m.Losses != 1 {
		t.Errorf("expected WTA 1-1, got %+v", m)
	}
	if m.PlayerRank != 1 || m.OpponentRank != 2 {
		t.Errorf("expected ranks 1 and 2, got %d and %d", m.PlayerRank, m.OpponentRank)
	}
}

func TestHTTPClient_BaseURL(t *testing.T) {
	client := NewHTTPClient("http://example.com/", logger.Nop())
	if client.BaseURL() != "http://example.com" {
		t.Errorf("expected trailing slash trimmed, got %s", client.BaseURL())
	}
	client.SetBaseURL("http://other.com/")
	if client.BaseURL() != "http://other.com" {
		t.Errorf("expected http://other.com, got %s", client.BaseURL())
	}
}

func TestMockClient_Defaults(t *testing.T) {
	m := NewMockClient()
	ctx := context.Background()

	tournaments, err := m.ListTournaments(ctx)
	if err != nil || len(tournaments) != 2 {
		t.Fatalf("expected 2 default tournaments, got %v, %v", tournaments, err)
	}

	draw, err := m.FetchDraw(ctx, DefaultMockPath)
	if err != nil {
		t.Fatalf("FetchDraw failed: %v", err)
	}
	if len(draw.Roster) != 8 || len(draw.Results) != 2 {
		t.Errorf("unexpected default draw %+v", draw)
	}

	draw.Results = append(draw.Results[:0], Result{Round: "QF"})
	again, _ := m.FetchDraw(ctx, DefaultMockPath)
	if again.Results[0].Round != "R1" {
		t.Error("FetchDraw should return a copy of the results")
	}
	if m.DrawCalls(DefaultMockPath) != 2 {
		t.Errorf("expected 2 draw calls, got %d", m.DrawCalls(DefaultMockPath))
	}

	if _, err := m.FetchDraw(ctx, "unknown.html"); !errors.Is(err, ErrNoDraw) {
		t.Errorf("expected ErrNoDraw, got %v", err)
	}

	mu, err := m.FetchMatchup(ctx, "A", "B")
	if err != nil || mu.Player != "A" || mu.PlayerRank != -1 {
		t.Errorf("unexpected default matchup %+v, %v", mu, err)
	}
}

func TestMockClient_Options(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockClient(
		WithTournaments(nil),
		WithDraw("x.html", &Draw{Title: "X"}),
		WithMatchup(&Matchup{Player: "P", Wins: 3}),
		WithBaseURL("http://mock"),
	)
	ctx := context.Background()

	if m.BaseURL() != "http://mock" {
		t.Errorf("expected base URL http://mock, got %s", m.BaseURL())
	}
	m.SetBaseURL("http://changed")
	if m.BaseURL() != "http://changed" {
		t.Errorf("expected base URL http://changed, got %s", m.BaseURL())
	}
	if d, err := m.FetchDraw(ctx, "x.html"); err != nil || d.Title != "X" {
		t.Errorf("expected registered draw, got %+v, %v", d, err)
	}
	if mu, _ := m.FetchMatchup(ctx, "A", "B"); mu.Wins != 3 {
		t.Errorf("expected configured matchup, got %+v", mu)
	}

	m.SetResults("x.html", []Result{{Round: "F"}})
	if d, _ := m.FetchDraw(ctx, "x.html"); len(d.Results) != 1 || d.Results[0].Round != "F" {
		t.Errorf("expected replaced results, got %+v", d.Results)
	}

	failing := NewMockClient(WithListError(boom), WithDrawError(boom), WithMatchupError(boom))
	if _, err := failing.ListTournaments(ctx); !errors.Is(err, boom) {
		t.Errorf("expected list error, got %v", err)
	}
	if _, err := failing.FetchDraw(ctx, DefaultMockPath); !errors.Is(err, boom) {
		t.Errorf("expected draw error, got %v", err)
	}
	if _, err := failing.FetchMatchup(ctx, "A", "B"); !errors.Is(err, boom) {
		t.Errorf("expected matchup error, got %v", err)
	}
}

func TestMockDraw_ResultsMatchRoster(t *testing.T) {
	draw := DefaultMockDraw()
	names := make(map[int]string)
	for _, p := range draw.Roster {
		if p != nil {
			names[p.ID] = p.Name
		}
	}
	for _, r := range draw.Results {
		if names[r.WinnerID] != r.WinnerName || names[r.LoserID] != r.LoserName {
			t.Errorf("result %+v does not match the roster", r)
		}
	}
}
