package bracket

// Report summarizes one Reconcile call.
type Report struct {
	Passes      int          `json:"passes"`
	Resolutions []Resolution `json:"resolutions"`
	Skipped     int          `json:"skipped"` // malformed or tied records
}

// Reconciler applies match records to a stage until nothing more can be
// completed. Each completed match is reported to the handlers in order.
type Reconciler struct {
	handlers []ResolutionHandler
}

// NewReconciler creates a Reconciler. Nil handlers are ignored.
func NewReconciler(handlers ...ResolutionHandler) *Reconciler {
	r := &Reconciler{}
	for _, h := range handlers {
		if h != nil {
			r.handlers = append(r.handlers, h)
		}
	}
	return r
}

// Reconcile integrates records into stage. Records may be in any order; a
// record that only becomes applicable after an earlier round is resolved is
// picked up on a later pass. When several records fit the same match the
// first one in slice order wins. Completed matches are never revisited, so
// reconciling the same records twice leaves the stage unchanged.
func (r *Reconciler) Reconcile(stage *Stage, records []MatchRecord) Report {
	var rep Report

	used := make([]bool, len(records))
	for i, rec := range records {
		if !rec.complete() || *rec.ScoreA == *rec.ScoreB || *rec.ParticipantA == *rec.ParticipantB {
			used[i] = true
			rep.Skipped++
		}
	}

	for {
		frontier := stage.frontier()
		if len(frontier) == 0 {
			break
		}
		rep.Passes++

		progressed := false
		for _, m := range frontier {
			i := findRecord(m, records, used)
			if i < 0 {
				continue
			}
			used[i] = true
			res := r.apply(stage, m, records[i])
			rep.Resolutions = append(rep.Resolutions, res)
			progressed = true
		}
		if !progressed {
			break
		}
	}
	return rep
}

func (r *Reconciler) apply(stage *Stage, m *Match, rec MatchRecord) Resolution {
	a, b := *rec.ScoreA, *rec.ScoreB
	if m.Opponent1.ParticipantID != *rec.ParticipantA {
		a, b = b, a
	}
	winnerSlot := 1
	winnerScore, loserScore := a, b
	if b > a {
		winnerSlot = 2
		winnerScore, loserScore = b, a
	}
	res := stage.complete(m, winnerSlot, &winnerScore, &loserScore)
	for _, h := range r.handlers {
		h.MatchResolved(res)
	}
	return res
}

// frontier returns the ready matches in id order.
func (s *Stage) frontier() []*Match {
	var out []*Match
	for _, m := range s.Matches {
		if m.Status == StatusReady {
			out = append(out, m)
		}
	}
	return out
}

func findRecord(m *Match, records []MatchRecord, used []bool) int {
	p1, p2 := m.Opponent1.ParticipantID, m.Opponent2.ParticipantID
	for i, rec := range records {
		if used[i] {
			continue
		}
		a, b := *rec.ParticipantA, *rec.ParticipantB
		if (a == p1 && b == p2) || (a == p2 && b == p1) {
			return i
		}
	}
	return -1
}
