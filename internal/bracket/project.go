package bracket

import "github.com/abrezinsky/tennisbracket/internal/errors"

// Projection is a late-rounds view of a stage. When Ready is false the full
// stage has not progressed far enough and Stage is nil.
type Projection struct {
	Ready     bool   `json:"ready"`
	FromRound int    `json:"from_round"`
	Stage     *Stage `json:"stage,omitempty"`
	// IDs maps full-stage participant ids to mini-stage ids.
	IDs map[int]int `json:"-"`
	// Origin maps mini-stage ids back to full-stage ids.
	Origin map[int]int `json:"origin,omitempty"`
	Report Report      `json:"-"`
}

// QuarterfinalRound returns the round of the last eight, or round 1 for
// stages with fewer than three rounds.
func QuarterfinalRound(stage *Stage) int {
	if r := stage.RoundCount() - 2; r > 1 {
		return r
	}
	return 1
}

// Project builds a new stage holding only rounds fromRound onward of full.
// Participants are renumbered from zero in slot order and every result the
// full stage already knows for those rounds is replayed. The returned stage
// shares nothing with full.
func Project(full *Stage, fromRound int) (*Projection, error) {
	if fromRound < 1 || fromRound > full.RoundCount() {
		return nil, errors.Configurationf("projection round %d outside 1..%d", fromRound, full.RoundCount())
	}
	proj := &Projection{FromRound: fromRound}
	if full.CompletedThrough() < fromRound-1 {
		return proj, nil
	}

	proj.IDs = make(map[int]int)
	proj.Origin = make(map[int]int)
	entering := full.RoundMatches(fromRound)
	seeds := make([]*Participant, 0, len(entering)*2)
	for _, m := range entering {
		for slot := 1; slot <= 2; slot++ {
			o := m.Slot(slot)
			if o == nil || o.Provisional {
				seeds = append(seeds, nil)
				continue
			}
			seeds = append(seeds, proj.remap(full, o.ParticipantID))
		}
	}

	mini, err := Build(Pad(seeds), WithOrdering(OrderNatural))
	if err != nil {
		return nil, err
	}

	var replay []MatchRecord
	for _, m := range full.Matches {
		if m.Round < fromRound || m.Status != StatusCompleted || m.Bye {
			continue
		}
		s1, s2 := m.Opponent1.Score, m.Opponent2.Score
		if s1 == nil || s2 == nil {
			continue
		}
		replay = append(replay, Result(
			proj.IDs[m.Opponent1.ParticipantID], proj.IDs[m.Opponent2.ParticipantID],
			s1.Value, s2.Value,
		))
	}
	proj.Report = NewReconciler().Reconcile(mini, replay)
	proj.Ready = true
	proj.Stage = mini
	return proj, nil
}

func (p *Projection) remap(full *Stage, id int) *Participant {
	if _, ok := p.IDs[id]; !ok {
		next := len(p.IDs)
		p.IDs[id] = next
		p.Origin[next] = id
	}
	name := ""
	if part, ok := full.Participant(id); ok {
		name = part.Name
	}
	return &Participant{ID: p.IDs[id], Name: name}
}
