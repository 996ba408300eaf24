// Package bracket implements the single-elimination bracket engine: stage
// construction from a seeded roster, fixpoint reconciliation against external
// match records, late-round projection and prediction tracking.
//
// A Stage is an arena of matches indexed by id. Matches point forward to the
// match their winner advances to; nothing points backward.
package bracket

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Status is the lifecycle state of a match.
type Status int

const (
	StatusWaiting Status = iota
	StatusReady
	StatusCompleted
)

var statusNames = [...]string{"waiting", "ready", "completed"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "status(" + strconv.Itoa(int(s)) + ")"
}

// MarshalJSON encodes the status by name
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a status name
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	st, err := ParseStatus(name)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ParseStatus maps a status name back to its Status
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("unknown match status %q", name)
}

// Outcome is an opponent's result in a match.
type Outcome string

const (
	OutcomeUndetermined Outcome = ""
	OutcomeWin          Outcome = "win"
	OutcomeLoss         Outcome = "loss"
)

// ScoreKind separates a user's predicted score from one reported by a source.
type ScoreKind string

const (
	ScoreAuthoritative ScoreKind = "authoritative"
	ScorePredicted     ScoreKind = "predicted"
)

// Score is a score value tagged with where it came from.
type Score struct {
	Kind  ScoreKind `json:"kind"`
	Value int       `json:"value"`
}

func (s Score) String() string {
	return strconv.Itoa(s.Value)
}

// Predicted reports whether the score was supplied by a prediction.
func (s Score) Predicted() bool {
	return s.Kind == ScorePredicted
}

// Participant is a player in the draw.
type Participant struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Opponent is an occupied slot of a match.
type Opponent struct {
	ParticipantID int     `json:"participant_id"`
	Provisional   bool    `json:"provisional,omitempty"` // placed by a prediction
	Score         *Score  `json:"score,omitempty"`
	Outcome       Outcome `json:"outcome,omitempty"`
}

// Link addresses one slot (1 or 2) of a match.
type Link struct {
	MatchID int `json:"match_id"`
	Slot    int `json:"slot"`
}

// Match is a single pairing in the bracket.
type Match struct {
	ID        int       `json:"id"`
	Round     int       `json:"round"`
	Position  int       `json:"position"`
	Opponent1 *Opponent `json:"opponent1"`
	Opponent2 *Opponent `json:"opponent2"`
	Status    Status    `json:"status"`
	Bye       bool      `json:"bye,omitempty"` // resolved without being played
	Next      *Link     `json:"next,omitempty"`
}

// Slot returns the opponent in slot 1 or 2.
func (m *Match) Slot(slot int) *Opponent {
	if slot == 1 {
		return m.Opponent1
	}
	return m.Opponent2
}

func (m *Match) setSlot(slot int, o *Opponent) {
	if slot == 1 {
		m.Opponent1 = o
	} else {
		m.Opponent2 = o
	}
}

// SlotOf returns the slot holding participant id, or 0.
func (m *Match) SlotOf(id int) int {
	if m.Opponent1 != nil && m.Opponent1.ParticipantID == id {
		return 1
	}
	if m.Opponent2 != nil && m.Opponent2.ParticipantID == id {
		return 2
	}
	return 0
}

// Occupants returns the participant ids in both slots and whether both are set.
// Provisional occupants count.
func (m *Match) Occupants() (int, int, bool) {
	if m.Opponent1 == nil || m.Opponent2 == nil {
		return 0, 0, false
	}
	return m.Opponent1.ParticipantID, m.Opponent2.ParticipantID, true
}

// confirmed reports whether both slots hold authoritative occupants.
func (m *Match) confirmed() bool {
	return m.Opponent1 != nil && !m.Opponent1.Provisional &&
		m.Opponent2 != nil && !m.Opponent2.Provisional
}

// Winner returns the id of the winning opponent of a completed match.
func (m *Match) Winner() (int, bool) {
	if m.Status != StatusCompleted {
		return 0, false
	}
	if m.Opponent1 != nil && m.Opponent1.Outcome == OutcomeWin {
		return m.Opponent1.ParticipantID, true
	}
	if m.Opponent2 != nil && m.Opponent2.Outcome == OutcomeWin {
		return m.Opponent2.ParticipantID, true
	}
	return 0, false
}

// Round groups the matches sharing a round number.
type Round struct {
	Number   int   `json:"number"`
	MatchIDs []int `json:"match_ids"`
}

// Stage is a complete bracket. It is owned by one session and mutated in place.
type Stage struct {
	Participants []Participant  `json:"participants"`
	Rounds       []Round        `json:"rounds"`
	Matches      []*Match       `json:"matches"`
	Seeds        []*Participant `json:"seeds"` // draw order, nil for byes
}

// MatchRecord is an externally reported result. The two participants are
// unordered; nil fields are missing data.
type MatchRecord struct {
	ParticipantA *int `json:"participant_a"`
	ParticipantB *int `json:"participant_b"`
	ScoreA       *int `json:"score_a"`
	ScoreB       *int `json:"score_b"`
}

// Result builds a complete record.
func Result(a, b, scoreA, scoreB int) MatchRecord {
	return MatchRecord{ParticipantA: &a, ParticipantB: &b, ScoreA: &scoreA, ScoreB: &scoreB}
}

func (r MatchRecord) complete() bool {
	return r.ParticipantA != nil && r.ParticipantB != nil && r.ScoreA != nil && r.ScoreB != nil
}

// RoundCount returns the number of rounds.
func (s *Stage) RoundCount() int {
	return len(s.Rounds)
}

// Match returns the match with the given id.
func (s *Stage) Match(id int) (*Match, bool) {
	if id < 0 || id >= len(s.Matches) {
		return nil, false
	}
	return s.Matches[id], true
}

// RoundMatches returns the matches of round r in position order.
func (s *Stage) RoundMatches(r int) []*Match {
	if r < 1 || r > len(s.Rounds) {
		return nil
	}
	ids := s.Rounds[r-1].MatchIDs
	out := make([]*Match, len(ids))
	for i, id := range ids {
		out[i] = s.Matches[id]
	}
	return out
}

// Final returns the last match of the stage.
func (s *Stage) Final() *Match {
	if len(s.Matches) == 0 {
		return nil
	}
	return s.Matches[len(s.Matches)-1]
}

// Champion returns the winner of the final, if decided.
func (s *Stage) Champion() (int, bool) {
	final := s.Final()
	if final == nil {
		return 0, false
	}
	return final.Winner()
}

// Participant looks up a participant by id.
func (s *Stage) Participant(id int) (Participant, bool) {
	for _, p := range s.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// CompletedThrough returns the farthest round r such that every match in
// rounds 1..r is completed, or 0.
func (s *Stage) CompletedThrough() int {
	done := 0
	for _, round := range s.Rounds {
		for _, id := range round.MatchIDs {
			if s.Matches[id].Status != StatusCompleted {
				return done
			}
		}
		done = round.Number
	}
	return done
}

// Clone returns a deep copy of the stage.
func (s *Stage) Clone() *Stage {
	out := &Stage{
		Participants: append([]Participant(nil), s.Participants...),
		Rounds:       make([]Round, len(s.Rounds)),
		Matches:      make([]*Match, len(s.Matches)),
		Seeds:        make([]*Participant, len(s.Seeds)),
	}
	for i, r := range s.Rounds {
		out.Rounds[i] = Round{Number: r.Number, MatchIDs: append([]int(nil), r.MatchIDs...)}
	}
	for i, m := range s.Matches {
		c := *m
		c.Opponent1 = cloneOpponent(m.Opponent1)
		c.Opponent2 = cloneOpponent(m.Opponent2)
		if m.Next != nil {
			next := *m.Next
			c.Next = &next
		}
		out.Matches[i] = &c
	}
	for i, p := range s.Seeds {
		if p != nil {
			cp := *p
			out.Seeds[i] = &cp
		}
	}
	return out
}

func cloneOpponent(o *Opponent) *Opponent {
	if o == nil {
		return nil
	}
	c := *o
	if o.Score != nil {
		score := *o.Score
		c.Score = &score
	}
	return &c
}

// place puts participant id into the slot addressed by link. An authoritative
// placement replaces a provisional occupant; when it is the same participant
// the displayed prediction is kept.
func (s *Stage) place(link *Link, id int, provisional bool) {
	if link == nil {
		return
	}
	m := s.Matches[link.MatchID]
	if m.Status == StatusCompleted {
		return
	}
	cur := m.Slot(link.Slot)
	switch {
	case cur != nil && !cur.Provisional:
		// authoritative occupants are never displaced
		return
	case cur != nil && cur.ParticipantID == id:
		cur.Provisional = cur.Provisional && provisional
	default:
		m.setSlot(link.Slot, &Opponent{ParticipantID: id, Provisional: provisional})
	}
	if m.Status == StatusWaiting && m.confirmed() {
		m.Status = StatusReady
	}
}

// complete locks m with an authoritative result and advances the winner.
func (s *Stage) complete(m *Match, winnerSlot int, winnerScore, loserScore *int) Resolution {
	loserSlot := 3 - winnerSlot
	winner := m.Slot(winnerSlot)
	loser := m.Slot(loserSlot)

	winner.Provisional = false
	winner.Outcome = OutcomeWin
	winner.Score = authoritative(winnerScore)
	loser.Provisional = false
	loser.Outcome = OutcomeLoss
	loser.Score = authoritative(loserScore)
	m.Status = StatusCompleted

	s.place(m.Next, winner.ParticipantID, false)

	res := Resolution{
		MatchID:  m.ID,
		Round:    m.Round,
		WinnerID: winner.ParticipantID,
		LoserID:  loser.ParticipantID,
	}
	if winnerScore != nil && loserScore != nil {
		res.WinnerScore, res.LoserScore = *winnerScore, *loserScore
	}
	return res
}

func authoritative(v *int) *Score {
	if v == nil {
		return nil
	}
	return &Score{Kind: ScoreAuthoritative, Value: *v}
}

// Resolution describes a match completed by the reconciler.
type Resolution struct {
	MatchID     int `json:"match_id"`
	Round       int `json:"round"`
	WinnerID    int `json:"winner_id"`
	LoserID     int `json:"loser_id"`
	WinnerScore int `json:"winner_score"`
	LoserScore  int `json:"loser_score"`
}

// ResolutionHandler receives "match resolved" notifications.
type ResolutionHandler interface {
	MatchResolved(res Resolution)
}

// VerdictHandler receives prediction verdicts.
type VerdictHandler interface {
	PredictionVerdict(out PredictionOutcome)
}

// Listener is implemented by presentation layers that follow a stage.
type Listener interface {
	ResolutionHandler
	VerdictHandler
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are ignored.
type ListenerFuncs struct {
	OnMatchResolved     func(Resolution)
	OnPredictionVerdict func(PredictionOutcome)
}

func (f ListenerFuncs) MatchResolved(res Resolution) {
	if f.OnMatchResolved != nil {
		f.OnMatchResolved(res)
	}
}

func (f ListenerFuncs) PredictionVerdict(out PredictionOutcome) {
	if f.OnPredictionVerdict != nil {
		f.OnPredictionVerdict(out)
	}
}
