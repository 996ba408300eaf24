package bracket

import "sort"

// SnapshotPlayer is the stored view of one occupied slot.
type SnapshotPlayer struct {
	ID          int       `json:"id"`
	Score       *int      `json:"score"`
	Kind        ScoreKind `json:"kind,omitempty"`
	Outcome     Outcome   `json:"outcome,omitempty"`
	Provisional bool      `json:"provisional,omitempty"`
}

// SnapshotMatch is the stored view of a match.
type SnapshotMatch struct {
	MatchID int             `json:"match_id"`
	Round   int             `json:"round"`
	Status  Status          `json:"status"`
	Player1 *SnapshotPlayer `json:"player1"`
	Player2 *SnapshotPlayer `json:"player2"`
}

// Snapshot is the filtered form of a bracket handed to persistence.
type Snapshot struct {
	Title       string          `json:"title"`
	Matches     []SnapshotMatch `json:"matches"`
	Roster      []*Participant  `json:"roster"` // draw order, nil for byes
	Predictions []Prediction    `json:"predictions,omitempty"`
	// Counters is informational for readers of stored brackets. Restore
	// recomputes it by replaying results against Predictions.
	Counters Counters `json:"counters"`
}

// Snapshot returns the filtered view of the stage.
func (s *Stage) Snapshot(title string) Snapshot {
	snap := Snapshot{
		Title:   title,
		Matches: make([]SnapshotMatch, len(s.Matches)),
		Roster:  s.Clone().Seeds,
	}
	for i, m := range s.Matches {
		snap.Matches[i] = SnapshotMatch{
			MatchID: m.ID,
			Round:   m.Round,
			Status:  m.Status,
			Player1: snapshotPlayer(m.Opponent1),
			Player2: snapshotPlayer(m.Opponent2),
		}
	}
	return snap
}

func snapshotPlayer(o *Opponent) *SnapshotPlayer {
	if o == nil {
		return nil
	}
	p := &SnapshotPlayer{ID: o.ParticipantID, Outcome: o.Outcome, Provisional: o.Provisional}
	if o.Score != nil {
		v := o.Score.Value
		p.Score = &v
		p.Kind = o.Score.Kind
	}
	return p
}

// Snapshot returns the stage snapshot together with the predictions and
// counters needed to restore the tracker.
func (t *Tracker) Snapshot(title string) Snapshot {
	snap := t.stage.Snapshot(title)
	snap.Predictions = t.Predictions()
	snap.Counters = t.counters
	return snap
}

// Records returns the authoritative results stored in the snapshot, in match
// id order. Byes carry no score and are left out.
func (snap Snapshot) Records() []MatchRecord {
	matches := append([]SnapshotMatch(nil), snap.Matches...)
	sort.Slice(matches, func(i, j int) bool { return matches[i].MatchID < matches[j].MatchID })

	var out []MatchRecord
	for _, m := range matches {
		p1, p2 := m.Player1, m.Player2
		if p1 == nil || p2 == nil || p1.Score == nil || p2.Score == nil {
			continue
		}
		if p1.Kind != ScoreAuthoritative || p2.Kind != ScoreAuthoritative {
			continue
		}
		out = append(out, Result(p1.ID, p2.ID, *p1.Score, *p2.Score))
	}
	return out
}

// Restore rebuilds a stage from a snapshot. The roster is used in stored draw
// order, predictions are re-inserted and the stored results are replayed
// through a reconciler so every verdict is judged again. Extra handlers see
// the replayed resolutions.
func Restore(snap Snapshot, verdicts VerdictHandler, handlers ...ResolutionHandler) (*Stage, *Tracker, Report, error) {
	stage, err := Build(snap.Roster, WithOrdering(OrderNatural))
	if err != nil {
		return nil, nil, Report{}, err
	}
	tracker := NewTracker(stage, verdicts)

	preds := append([]Prediction(nil), snap.Predictions...)
	sort.Slice(preds, func(i, j int) bool { return preds[i].MatchID < preds[j].MatchID })
	for _, p := range preds {
		if err := tracker.Restore(p); err != nil {
			return nil, nil, Report{}, err
		}
	}

	rec := NewReconciler(append([]ResolutionHandler{tracker}, handlers...)...)
	rep := rec.Reconcile(stage, snap.Records())
	tracker.redraw()
	return stage, tracker, rep, nil
}
