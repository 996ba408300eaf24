package tennisabstract

import (
	"reflect"
	"testing"
	"time"
)

func TestParseScore(t *testing.T) {
	tests := []struct {
		score    string
		sets     [][2]int
		winner   int
		loser    int
		walkover bool
	}{
		{"6-4 6-4", [][2]int{{6, 4}, {6, 4}}, 2, 0, false},
		{"6-3 3-6 7-6(5)", [][2]int{{6, 3}, {3, 6}, {7, 6}}, 2, 1, false},
		{"7-6(4) 6-7(2) 6-3 4-6 7-5", [][2]int{{7, 6}, {6, 7}, {6, 3}, {4, 6}, {7, 5}}, 3, 2, false},
		{"W/O", nil, 1, 0, true},
		{"6-4 2-1 RET", [][2]int{{6, 4}, {2, 1}}, 2, 0, false},
		{"4-6 3-1 RET", [][2]int{{4, 6}, {3, 1}}, 2, 1, false},
		{"3-6 RET", [][2]int{{3, 6}}, 2, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.score, func(t *testing.T) {
			sets, w, l, wo := parseScore(tt.score)
			if !reflect.DeepEqual(sets, tt.sets) {
				t.Errorf("sets = %v, want %v", sets, tt.sets)
			}
			if w != tt.winner || l != tt.loser || wo != tt.walkover {
				t.Errorf("got %d-%d walkover=%v, want %d-%d walkover=%v", w, l, wo, tt.winner, tt.loser, tt.walkover)
			}
		})
	}
}

func TestReadableTitle(t *testing.T) {
	tests := map[string]string{
		"2024ATPCincinnati":   "2024 ATP Cincinnati",
		"2024WTAUSOpen":       "2024 WTA US Open",
		"2023RolandGarros":    "2023 Roland Garros",
		"2024ATPMontrealWTA":  "2024 ATP Montreal WTA",
		"2024WimbledonLadies": "2024 Wimbledon Ladies",
	}
	for in, want := range tests {
		if got := readableTitle(in); got != want {
			t.Errorf("readableTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPageTitle(t *testing.T) {
	tests := map[string]string{
		"Tennis Abstract: 2024 Cincinnati Masters Results | ATP": "2024 Cincinnati Masters",
		"Tennis Abstract: 2024 US Open Results":                  "2024 US Open",
		"2024 Mock Open":                                         "2024 Mock Open",
	}
	for in, want := range tests {
		if got := pageTitle(in); got != want {
			t.Errorf("pageTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractRoster_PrefersLargestDraw(t *testing.T) {
	script := `var proj4 = '<table><tr><td>small</td></tr></table>'; var proj16 = '<table><tr><td>big<\/td></tr></table>'; var projCurrent = '';`
	table, ok := extractRoster(script)
	if !ok {
		t.Fatal("expected a roster table")
	}
	if table != "<table><tr><td>big</td></tr></table>" {
		t.Errorf("unexpected table %q", table)
	}

	if _, ok := extractRoster("var nothing = 1;"); ok {
		t.Error("expected no table without a proj variable")
	}
}

func TestParseRoster_NumbersQualifiers(t *testing.T) {
	table := `<table>
<tr><td>Qualifier</td></tr>
<tr><td>(WC) <a>Learner Tien</a></td></tr>
<tr><td>Bye</td></tr>
<tr><td>Qualifier</td></tr>
<tr><td></td></tr>
</table>`
	roster, err := parseRoster(table)
	if err != nil {
		t.Fatalf("parseRoster failed: %v", err)
	}
	if len(roster) != 4 {
		t.Fatalf("expected 4 slots, got %d", len(roster))
	}
	want := []*Player{
		{ID: 0, Name: "Qualifier Player 1"},
		{ID: 1, Name: "Learner Tien", Seed: "(WC)"},
		nil,
		{ID: 2, Name: "Qualifier Player 2"},
	}
	if !reflect.DeepEqual(roster, want) {
		t.Errorf("roster = %+v, want %+v", roster, want)
	}
}

func TestParseResults_ByeAndUnknownNames(t *testing.T) {
	roster := []*Player{{ID: 0, Name: "Jannik Sinner"}, nil, {ID: 1, Name: "Tommy Paul"}}
	fragment := `R1: <a>Jannik Sinner</a> d. bye<br/>R2: (1) <a>Jannik Sinner</a> d. <a>(5) Tommy Paul</a> 6-1 6-1<br/>QF: <a>Mystery</a> d. <a>Jannik Sinner</a> 6-4 6-4`
	results, err := parseResults(fragment, roster)
	if err != nil {
		t.Fatalf("parseResults failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d: %+v", len(results), results)
	}
	if results[0].Round != "R2" || results[0].WinnerID != 0 || results[0].LoserID != 1 {
		t.Errorf("unexpected first result %+v", results[0])
	}
	if results[1].Round != "QF" || results[1].WinnerID != -1 || results[1].LoserID != 0 {
		t.Errorf("unexpected second result %+v", results[1])
	}

	if results, err := parseResults("  ", roster); err != nil || results != nil {
		t.Errorf("expected no results for empty fragment, got %v, %v", results, err)
	}
}

func TestJSVar(t *testing.T) {
	script := `var fullname = 'Jannik Sinner'; var currentrank = 1; var matchmx = [["a;b", "c"],["d"]]; var tail = 5`
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"fullname", "'Jannik Sinner'", true},
		{"currentrank", "1", true},
		{"matchmx", `[["a;b", "c"],["d"]]`, true},
		{"tail", "5", true},
		{"missing", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := jsVar(script, tt.name)
			if got != tt.want || ok != tt.ok {
				t.Errorf("jsVar(%q) = %q, %v; want %q, %v", tt.name, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseRank(t *testing.T) {
	tests := []struct {
		raw  string
		rank int
		ok   bool
	}{
		{"1", 1, true},
		{`"42"`, 42, true},
		{"'UNR'", -1, true},
		{"", 0, false},
		{"n/a", 0, false},
	}
	for _, tt := range tests {
		rank, ok := parseRank(tt.raw)
		if rank != tt.rank || ok != tt.ok {
			t.Errorf("parseRank(%q) = %d, %v; want %d, %v", tt.raw, rank, ok, tt.rank, tt.ok)
		}
	}
}

func TestHeadToHead(t *testing.T) {
	rows := [][]any{
		{"", "", "", "", "W", "", "", "", "", "6-4 6-4", "", "Carlos Alcaraz"},
		{"", "", "", "", "L", "", "", "", "", "6-4 6-4", "", "Carlos Alcaraz"},
		{"", "", "", "", "L", "", "", "", "", "6-4 6-4", "", "Carlos Alcaraz"},
		{"", "", "", "", "W", "", "", "", "", "W/O", "", "Carlos Alcaraz"},
		{"", "", "", "", "W", "", "", "", "", "", "", "Carlos Alcaraz"},
		{"", "", "", "", "W", "", "", "", "", "6-0 6-0", "", "Daniil Medvedev"},
		{"short"},
	}
	wins, losses := headToHead(rows, "Carlos Alcaraz")
	if wins != 1 || losses != 2 {
		t.Errorf("expected 1-2, got %d-%d", wins, losses)
	}
}

func TestSkipHref(t *testing.T) {
	now := mustDate(t, "2024-08-16")
	tests := map[string]bool{
		"/":                      true,
		"favicon.ico":            true,
		"about.php":              true,
		"2022ATPOld.html":        true,
		"2023ATPLastSeason.html": false,
		"2024ATPCurrent.html":    false,
		"index.html":             false,
	}
	for href, want := range tests {
		if got := skipHref(href, now); got != want {
			t.Errorf("skipHref(%q) = %v, want %v", href, got, want)
		}
	}
}

func TestCompactNameAndStripSeed(t *testing.T) {
	if got := compactName(" Alex  de Minaur "); got != "AlexdeMinaur" {
		t.Errorf("compactName = %q", got)
	}
	if got := stripSeed("(12) Ben Shelton"); got != "Ben Shelton" {
		t.Errorf("stripSeed = %q", got)
	}
	if got := stripSeed("Ben Shelton"); got != "Ben Shelton" {
		t.Errorf("stripSeed = %q", got)
	}
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}
