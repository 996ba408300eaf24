package tennisabstract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// draw sizes in the order the page is searched
var drawSizes = []string{"128", "64", "32", "16", "8", "4", "2"}

var (
	projMarker   = regexp.MustCompile(`var proj(\d+|Current)\b`)
	roundLabel   = regexp.MustCompile(`^(R\d+|QF|SF|F)\b`)
	qualifying   = regexp.MustCompile(`^Q\d\b`)
	setScore     = regexp.MustCompile(`(\d+)-(\d+)(?:\(\d+\))?`)
	jsUnescaper  = strings.NewReplacer(`\'`, `'`, `\"`, `"`, `\/`, `/`, `\n`, "\n")
	tourPrefixes = []string{"ATP", "WTA"}
)

// extractRoster returns the HTML table of the largest projected draw found in
// a draw page script.
func extractRoster(script string) (string, bool) {
	start := -1
	for _, size := range drawSizes {
		re := regexp.MustCompile(`var proj` + size + `\b`)
		if loc := re.FindStringIndex(script); loc != nil {
			start = loc[1]
			break
		}
	}
	if start < 0 {
		return "", false
	}
	end := len(script)
	if loc := projMarker.FindStringIndex(script[start:]); loc != nil {
		end = start + loc[0]
	}
	chunk := script[start:end]
	i := strings.Index(chunk, "<table")
	j := strings.LastIndex(chunk, "</table>")
	if i < 0 || j < i {
		return "", false
	}
	return jsUnescaper.Replace(chunk[i : j+len("</table>")]), true
}

// parseRoster reads one td per draw slot. Linked cells are players, "Bye"
// cells are byes and unnamed qualifiers are numbered in order.
func parseRoster(table string) ([]*Player, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(table))
	if err != nil {
		return nil, fmt.Errorf("failed to parse draw table: %w", err)
	}

	var roster []*Player
	id, qualifier := 0, 1
	doc.Find("td").Each(func(_ int, td *goquery.Selection) {
		text := cleanText(td.Text())
		if link := td.Find("a").First(); link.Length() > 0 {
			name := cleanText(link.Text())
			seed, _, _ := strings.Cut(text, name)
			roster = append(roster, &Player{ID: id, Name: name, Seed: cleanText(seed)})
			id++
			return
		}
		switch {
		case text == "Bye":
			roster = append(roster, nil)
		case strings.Contains(text, "Qualifier"):
			roster = append(roster, &Player{ID: id, Name: fmt.Sprintf("Qualifier Player %d", qualifier)})
			id++
			qualifier++
		}
	})
	return roster, nil
}

// extractResults returns the HTML fragment holding completed singles results.
func extractResults(script string) string {
	start := strings.Index(script, "completedSingles")
	if start < 0 {
		return ""
	}
	end := strings.Index(script[start:], "completedDoubles")
	if end < 0 {
		end = len(script)
	} else {
		end += start
	}
	_, value, ok := strings.Cut(script[start:end], "=")
	if !ok {
		return ""
	}
	value = strings.TrimSpace(value)
	if value == "" || (value[0] != '\'' && value[0] != '"') {
		return ""
	}
	closing := strings.LastIndexByte(value, value[0])
	if closing <= 0 {
		return ""
	}
	return jsUnescaper.Replace(value[1:closing])
}

type token struct {
	link bool
	text string
}

func flatten(sel *goquery.Selection, out []token) []token {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		switch goquery.NodeName(s) {
		case "#text":
			out = append(out, token{text: s.Text()})
		case "a":
			out = append(out, token{link: true, text: cleanText(s.Text())})
		default:
			out = flatten(s, out)
		}
	})
	return out
}

const (
	stateIdle = iota
	stateWinner
	stateLoser
	stateScore
)

// parseResults walks the completed results as a stream of round label,
// winner link, "d.", loser link and score text. Qualifying rounds end the
// main draw.
func parseResults(fragment string, roster []*Player) ([]Result, error) {
	if strings.TrimSpace(fragment) == "" {
		return nil, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, fmt.Errorf("failed to parse results: %w", err)
	}

	ids := make(map[string]int, len(roster))
	for _, p := range roster {
		if p != nil {
			ids[p.Name] = p.ID
		}
	}
	lookup := func(name string) int {
		if id, ok := ids[stripSeed(name)]; ok {
			return id
		}
		return -1
	}

	var (
		results []Result
		cur     Result
		state   = stateIdle
	)
	for _, tok := range flatten(doc.Selection, nil) {
		if tok.link {
			if tok.text == "d." {
				continue
			}
			switch state {
			case stateWinner:
				cur.WinnerName = tok.text
				cur.WinnerID = lookup(tok.text)
				state = stateLoser
			case stateLoser:
				cur.LoserName = tok.text
				cur.LoserID = lookup(tok.text)
				state = stateScore
			}
			continue
		}

		text := cleanText(tok.text)
		switch {
		case text == "":
		case state == stateLoser && strings.Contains(strings.ToLower(text), "bye"):
			state = stateIdle
		case state == stateScore && hasScore(text):
			cur.Score = text
			cur.Sets, cur.WinnerSets, cur.LoserSets, cur.Walkover = parseScore(text)
			results = append(results, cur)
			state = stateIdle
		case state != stateScore && qualifying.MatchString(text):
			return results, nil
		case state != stateScore && roundLabel.MatchString(text):
			cur = Result{Round: roundLabel.FindString(text)}
			state = stateWinner
		}
	}
	return results, nil
}

func hasScore(text string) bool {
	if strings.Contains(text, "W/O") {
		return true
	}
	digits := 0
	for _, r := range text {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits >= 2
}

// parseScore splits "7-6(4) 3-6 6-2" into per-set games and sets won. Tie-break
// points are dropped. A walkover counts as 1-0. When the loser retires with
// sets level the unfinished set is given to the winner.
func parseScore(text string) (sets [][2]int, winner, loser int, walkover bool) {
	if strings.Contains(text, "W/O") {
		return nil, 1, 0, true
	}
	for _, m := range setScore.FindAllStringSubmatch(text, -1) {
		w, _ := strconv.Atoi(m[1])
		l, _ := strconv.Atoi(m[2])
		sets = append(sets, [2]int{w, l})
		switch {
		case w > l:
			winner++
		case l > w:
			loser++
		}
	}
	if winner <= loser {
		winner = loser + 1
	}
	return sets, winner, loser, false
}

// pageTitle turns "Tennis Abstract: 2024 Cincinnati Masters Results" into
// "2024 Cincinnati Masters".
func pageTitle(title string) string {
	if _, after, ok := strings.Cut(title, ":"); ok {
		title = after
	}
	if before, _, ok := strings.Cut(title, "Results"); ok {
		title = before
	}
	return cleanText(title)
}

// readableTitle splits a draw page name such as "2024WTAUSOpen" into words.
func readableTitle(name string) string {
	runes := []rune(name)
	var words []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, r := runes[i-1], runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}
		split := unicode.IsLetter(prev) && unicode.IsDigit(r) ||
			unicode.IsDigit(prev) && unicode.IsLetter(r) ||
			unicode.IsLower(prev) && unicode.IsUpper(r) ||
			unicode.IsUpper(prev) && unicode.IsUpper(r) && unicode.IsLower(next)
		if split {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	words = append(words, string(runes[start:]))

	var out []string
	for _, w := range words {
		out = append(out, splitTourPrefix(w)...)
	}
	return strings.Join(out, " ")
}

func splitTourPrefix(word string) []string {
	for _, p := range tourPrefixes {
		if len(word) > len(p) && strings.HasPrefix(word, p) && strings.ToUpper(word) == word {
			return []string{p, word[len(p):]}
		}
	}
	return []string{word}
}

// parseTournamentList reads the index table. Tournaments updated within a
// week of now are recent and listed first.
func parseTournamentList(doc *goquery.Document, now time.Time) []Tournament {
	var recent, rest []Tournament
	doc.Find("body table").First().Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}
		href, ok := cells.Eq(1).Find("a").First().Attr("href")
		if !ok || skipHref(href, now) {
			return
		}
		fields := strings.Fields(cells.Eq(2).Text())
		if len(fields) == 0 {
			return
		}
		updated, err := time.Parse("2006-01-02", fields[0])
		if err != nil {
			return
		}
		name := strings.TrimSuffix(href, ".html")
		t := Tournament{
			Title:   readableTitle(name),
			Path:    href,
			Updated: updated,
			Recent:  now.Sub(updated) <= 7*24*time.Hour,
		}
		if t.Recent {
			recent = append(recent, t)
		} else {
			rest = append(rest, t)
		}
	})
	return append(recent, rest...)
}

// skipHref drops navigation links and draws from before last season.
func skipHref(href string, now time.Time) bool {
	if href == "/" || href == "favicon.ico" || !strings.HasSuffix(href, ".html") {
		return true
	}
	if len(href) >= 4 {
		if year, err := strconv.Atoi(href[:4]); err == nil && year < now.Year()-1 {
			return true
		}
	}
	return false
}

// jsVar returns the raw value assigned to a JavaScript variable, up to the
// terminating semicolon.
func jsVar(script, name string) (string, bool) {
	re := regexp.MustCompile(`var ` + regexp.QuoteMeta(name) + `\s*=\s*`)
	loc := re.FindStringIndex(script)
	if loc == nil {
		return "", false
	}
	rest := script[loc[1]:]
	if strings.HasPrefix(rest, "[") {
		// arrays hold ';' inside strings, so find the closing brackets
		if end := strings.Index(rest, "]];"); end >= 0 {
			return rest[:end+2], true
		}
		if end := strings.Index(rest, "];"); end >= 0 {
			return rest[:end+1], true
		}
	}
	end := strings.Index(rest, ";")
	if end < 0 {
		return strings.TrimSpace(rest), true
	}
	return strings.TrimSpace(rest[:end]), true
}

// parseMatches decodes a matchmx array of match rows.
func parseMatches(raw string) ([][]any, error) {
	var rows [][]any
	if err := json.Unmarshal([]byte(jsUnescaper.Replace(raw)), &rows); err != nil {
		return nil, fmt.Errorf("failed to parse match list: %w", err)
	}
	return rows, nil
}

// headToHead counts completed meetings with opponent. Column 11 is the
// opponent, 9 the score and 4 the result.
func headToHead(rows [][]any, opponent string) (wins, losses int) {
	for _, row := range rows {
		if len(row) < 12 || fmt.Sprint(row[11]) != opponent {
			continue
		}
		score := fmt.Sprint(row[9])
		if score == "W/O" || score == "" {
			continue
		}
		if fmt.Sprint(row[4]) == "W" {
			wins++
		} else {
			losses++
		}
	}
	return wins, losses
}

// parseRank reads a currentrank value; unranked players are -1.
func parseRank(raw string) (int, bool) {
	raw = strings.Trim(strings.TrimSpace(raw), `"'`)
	if raw == "" {
		return 0, false
	}
	if raw == "UNR" {
		return -1, true
	}
	rank, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return rank, true
}

func stripSeed(name string) string {
	if _, after, ok := strings.Cut(name, ") "); ok {
		return after
	}
	return name
}

func cleanText(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, " ", " "))
}

// compactName is the form player names take in tennisabstract URLs.
func compactName(name string) string {
	return strings.Join(strings.Fields(name), "")
}
