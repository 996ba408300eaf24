package bracket

import (
	"sort"

	"github.com/abrezinsky/tennisbracket/internal/errors"
)

// Verdict is the judgement passed on a prediction once the real result is known.
type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
)

// PredictionState tracks whether a prediction has been judged.
type PredictionState string

const (
	PredictionPending   PredictionState = "pending"
	PredictionCorrect   PredictionState = "correct"
	PredictionIncorrect PredictionState = "incorrect"
)

// Prediction is a user's guess for one match. Occupants are the two
// participants in the match when the guess was made.
type Prediction struct {
	MatchID           int             `json:"match_id"`
	PredictedWinnerID int             `json:"predicted_winner_id"`
	WinnerScore       Score           `json:"winner_score"`
	LoserScore        Score           `json:"loser_score"`
	Occupants         [2]int          `json:"occupants"`
	State             PredictionState `json:"state"`
}

func (p *Prediction) involves(id int) bool {
	return p.Occupants[0] == id || p.Occupants[1] == id
}

func (p *Prediction) slotOf(id int) int {
	switch id {
	case p.Occupants[0]:
		return 1
	case p.Occupants[1]:
		return 2
	}
	return 0
}

// PredictionInput is a request to predict a match.
type PredictionInput struct {
	MatchID     int `json:"match_id"`
	WinnerID    int `json:"winner_id"`
	WinnerScore int `json:"winner_score"`
	LoserScore  int `json:"loser_score"`
}

// PredictionOutcome is emitted for every verdict, including cascaded ones.
type PredictionOutcome struct {
	MatchID         int     `json:"match_id"`
	ParticipantID   int     `json:"participant_id"`
	ParticipantSlot int     `json:"participant_slot"`
	Verdict         Verdict `json:"verdict"`
}

// Counters are the running prediction totals.
type Counters struct {
	CorrectPredictions int `json:"correct_predictions"`
	TotalPredictions   int `json:"total_predictions"`
}

// Rate returns correct/total, or 0 when nothing has been judged.
func (c Counters) Rate() float64 {
	if c.TotalPredictions == 0 {
		return 0
	}
	return float64(c.CorrectPredictions) / float64(c.TotalPredictions)
}

// Tracker records predictions on a stage and judges them as the stage is
// reconciled. Pass it to NewReconciler so it sees every resolution.
type Tracker struct {
	stage       *Stage
	handler     VerdictHandler
	predictions map[int]*Prediction
	counters    Counters
}

var _ ResolutionHandler = (*Tracker)(nil)

// NewTracker creates a Tracker for stage. handler may be nil.
func NewTracker(stage *Stage, handler VerdictHandler) *Tracker {
	return &Tracker{
		stage:       stage,
		handler:     handler,
		predictions: make(map[int]*Prediction),
	}
}

// Record predicts the winner of a match that is not yet completed. The
// predicted scores are shown on the match and the winner is placed
// provisionally in the next round so it can be predicted too. Predicting a
// match again withdraws the earlier guess and everything downstream that
// depended on its winner.
func (t *Tracker) Record(in PredictionInput) (Prediction, error) {
	m, ok := t.stage.Match(in.MatchID)
	if !ok {
		return Prediction{}, errors.NotFoundf("match %d not found", in.MatchID)
	}
	if m.Status == StatusCompleted {
		return Prediction{}, errors.Conflictf("match %d is already completed", in.MatchID)
	}
	p1, p2, ok := m.Occupants()
	if !ok {
		return Prediction{}, errors.Validationf("match %d does not have two opponents yet", in.MatchID)
	}
	if in.WinnerID != p1 && in.WinnerID != p2 {
		return Prediction{}, errors.Validationf("participant %d is not playing in match %d", in.WinnerID, in.MatchID)
	}
	if in.WinnerScore < 0 || in.LoserScore < 0 {
		return Prediction{}, errors.Validation("scores must not be negative")
	}
	if in.WinnerScore <= in.LoserScore {
		return Prediction{}, errors.Validation("winner score must be greater than loser score")
	}
	if prev := t.predictions[m.ID]; prev != nil {
		if prev.State != PredictionPending {
			return Prediction{}, errors.Conflictf("prediction for match %d has already been judged", in.MatchID)
		}
		if prev.PredictedWinnerID != in.WinnerID {
			t.withdraw(m)
		}
	}

	pred := &Prediction{
		MatchID:           m.ID,
		PredictedWinnerID: in.WinnerID,
		WinnerScore:       Score{Kind: ScorePredicted, Value: in.WinnerScore},
		LoserScore:        Score{Kind: ScorePredicted, Value: in.LoserScore},
		Occupants:         [2]int{p1, p2},
		State:             PredictionPending,
	}
	t.apply(m, pred)
	return *pred, nil
}

// Restore re-inserts a stored prediction without re-validating its occupants.
// Stored predictions must be restored in match id order, before any results
// are replayed.
func (t *Tracker) Restore(pred Prediction) error {
	m, ok := t.stage.Match(pred.MatchID)
	if !ok {
		return errors.NotFoundf("match %d not found", pred.MatchID)
	}
	if m.Status == StatusCompleted {
		return errors.Conflictf("match %d is already completed", pred.MatchID)
	}
	if !pred.involves(pred.PredictedWinnerID) {
		return errors.Validationf("prediction for match %d picks a non-occupant", pred.MatchID)
	}
	p := pred
	p.State = PredictionPending
	p.WinnerScore.Kind = ScorePredicted
	p.LoserScore.Kind = ScorePredicted
	t.apply(m, &p)
	return nil
}

func (t *Tracker) apply(m *Match, pred *Prediction) {
	t.predictions[m.ID] = pred
	t.show(m, pred)
	t.stage.place(m.Next, pred.PredictedWinnerID, true)
}

// show writes the predicted scores onto the match for display.
func (t *Tracker) show(m *Match, pred *Prediction) {
	if slot := m.SlotOf(pred.PredictedWinnerID); slot != 0 {
		w := pred.WinnerScore
		m.Slot(slot).Score = &w
		m.Slot(slot).Outcome = OutcomeWin
		if loser := m.Slot(3 - slot); loser != nil {
			l := pred.LoserScore
			loser.Score = &l
			loser.Outcome = OutcomeLoss
		}
	}
}

// redraw re-shows every pending prediction on a match still open. Replayed
// results can seat occupants after their prediction was restored.
func (t *Tracker) redraw() {
	for id, pred := range t.predictions {
		m := t.stage.Matches[id]
		if m.Status != StatusCompleted && pred.State == PredictionPending {
			t.show(m, pred)
		}
	}
}

// withdraw removes the prediction on m and, recursively, the provisional
// placement of its winner and any prediction that relied on it.
func (t *Tracker) withdraw(m *Match) {
	prev := t.predictions[m.ID]
	if prev == nil {
		return
	}
	delete(t.predictions, m.ID)
	if m.Status != StatusCompleted {
		for _, o := range []*Opponent{m.Opponent1, m.Opponent2} {
			if o != nil {
				o.Score = nil
				o.Outcome = OutcomeUndetermined
			}
		}
	}
	if m.Next == nil {
		return
	}
	next := t.stage.Matches[m.Next.MatchID]
	held := next.Slot(m.Next.Slot)
	if next.Status == StatusCompleted || held == nil || !held.Provisional || held.ParticipantID != prev.PredictedWinnerID {
		return
	}
	next.setSlot(m.Next.Slot, nil)
	t.withdraw(next)
}

// MatchResolved judges the prediction on a newly completed match. A wrong
// pick also invalidates the chain of later predictions that assumed the
// picked participant would still be playing.
func (t *Tracker) MatchResolved(res Resolution) {
	pred := t.predictions[res.MatchID]
	if pred == nil || pred.State != PredictionPending {
		return
	}
	if pred.PredictedWinnerID == res.WinnerID {
		pred.State = PredictionCorrect
		t.counters.CorrectPredictions++
		t.counters.TotalPredictions++
		t.emit(pred, res.WinnerID, VerdictCorrect)
		return
	}

	wrong := pred.PredictedWinnerID
	t.invalidate(pred, wrong)
	for link := t.stage.Matches[res.MatchID].Next; link != nil; link = t.stage.Matches[link.MatchID].Next {
		next := t.predictions[link.MatchID]
		if next == nil || next.State != PredictionPending || !next.involves(wrong) {
			break
		}
		t.invalidate(next, wrong)
		if next.PredictedWinnerID != wrong {
			break
		}
	}
}

func (t *Tracker) invalidate(pred *Prediction, participant int) {
	pred.State = PredictionIncorrect
	t.counters.TotalPredictions++
	t.emit(pred, participant, VerdictIncorrect)
}

func (t *Tracker) emit(pred *Prediction, participant int, v Verdict) {
	if t.handler == nil {
		return
	}
	t.handler.PredictionVerdict(PredictionOutcome{
		MatchID:         pred.MatchID,
		ParticipantID:   participant,
		ParticipantSlot: pred.slotOf(participant),
		Verdict:         v,
	})
}

// Counters returns the running totals.
func (t *Tracker) Counters() Counters {
	return t.counters
}

// Prediction returns the prediction recorded for a match.
func (t *Tracker) Prediction(matchID int) (Prediction, bool) {
	p, ok := t.predictions[matchID]
	if !ok {
		return Prediction{}, false
	}
	return *p, true
}

// Predictions returns all predictions in match id order.
func (t *Tracker) Predictions() []Prediction {
	out := make([]Prediction, 0, len(t.predictions))
	for _, p := range t.predictions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchID < out[j].MatchID })
	return out
}
