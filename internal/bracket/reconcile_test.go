package bracket_test

import (
	"reflect"
	"testing"

	"github.com/abrezinsky/tennisbracket/internal/bracket"
)

func intPtr(v int) *int { return &v }

func TestReconcile_FourPlayerScenario(t *testing.T) {
	// roster is in draw order: A-B and C-D meet in round 1
	seeds := []*bracket.Participant{
		{ID: 0, Name: "A"}, {ID: 1, Name: "B"}, {ID: 2, Name: "C"}, {ID: 3, Name: "D"},
	}
	stage := mustBuild(t, seeds, bracket.WithOrdering(bracket.OrderNatural))

	records := []bracket.MatchRecord{
		bracket.Result(0, 1, 6, 3),
		bracket.Result(2, 3, 2, 6),
	}
	rep := bracket.NewReconciler().Reconcile(stage, records)

	ab := mustMatch(t, stage, 0)
	if w, ok := ab.Winner(); !ok || w != 0 {
		t.Errorf("expected A to win match 0, got %d (%v)", w, ok)
	}
	cd := mustMatch(t, stage, 1)
	if w, ok := cd.Winner(); !ok || w != 3 {
		t.Errorf("expected D to win match 1, got %d (%v)", w, ok)
	}

	final := stage.Final()
	a, d, ok := final.Occupants()
	if !ok || a != 0 || d != 3 {
		t.Errorf("expected final A vs D, got %d vs %d (%v)", a, d, ok)
	}
	if final.Status != bracket.StatusReady {
		t.Errorf("expected final ready, got %s", final.Status)
	}
	if len(rep.Resolutions) != 2 {
		t.Errorf("expected 2 resolutions, got %d", len(rep.Resolutions))
	}

	rep = bracket.NewReconciler().Reconcile(stage, append(records, bracket.Result(3, 0, 7, 5)))
	if final.Status != bracket.StatusCompleted {
		t.Fatalf("expected final completed, got %s", final.Status)
	}
	if champion, _ := stage.Champion(); champion != 3 {
		t.Errorf("expected D as champion, got %d", champion)
	}
	if len(rep.Resolutions) != 1 || rep.Resolutions[0].WinnerScore != 7 || rep.Resolutions[0].LoserScore != 5 {
		t.Errorf("unexpected final resolution %+v", rep.Resolutions)
	}
}

func TestReconcile_ArbitraryRecordOrder(t *testing.T) {
	stage := mustBuild(t, roster(8), bracket.WithOrdering(bracket.OrderNatural))

	// final first, round 1 last
	records := []bracket.MatchRecord{
		bracket.Result(4, 0, 0, 2),
		bracket.Result(2, 0, 1, 2),
		bracket.Result(6, 4, 1, 2),
		bracket.Result(7, 6, 0, 2),
		bracket.Result(5, 4, 1, 2),
		bracket.Result(3, 2, 0, 2),
		bracket.Result(1, 0, 0, 2),
	}
	rep := bracket.NewReconciler().Reconcile(stage, records)

	if champion, ok := stage.Champion(); !ok || champion != 0 {
		t.Fatalf("expected champion 0, got %d (%v)", champion, ok)
	}
	if rep.Passes != 3 {
		t.Errorf("expected 3 passes, got %d", rep.Passes)
	}
	if len(rep.Resolutions) != 7 {
		t.Errorf("expected 7 resolutions, got %d", len(rep.Resolutions))
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	stage := mustBuild(t, bracket.Pad(roster(7)))
	rec := bracket.NewReconciler()

	var records []bracket.MatchRecord
	for r := 1; r <= stage.RoundCount(); r++ {
		records = append(records, lowerIDWins(stage, r)...)
		rec.Reconcile(stage, records)
	}
	before := stage.Snapshot("t")

	rep := rec.Reconcile(stage, records)
	if len(rep.Resolutions) != 0 {
		t.Errorf("expected no new resolutions, got %d", len(rep.Resolutions))
	}
	if after := stage.Snapshot("t"); !reflect.DeepEqual(before, after) {
		t.Error("reconciling the same records twice changed the stage")
	}
}

func TestReconcile_CompletedMatchesSatisfyWinnerInvariant(t *testing.T) {
	stage := mustBuild(t, bracket.Pad(roster(13)))
	rec := bracket.NewReconciler()
	for r := 1; r <= stage.RoundCount(); r++ {
		rec.Reconcile(stage, lowerIDWins(stage, r))
	}

	for _, m := range stage.Matches {
		if m.Status != bracket.StatusCompleted {
			t.Fatalf("match %d not completed", m.ID)
		}
		winner, ok := m.Winner()
		if !ok {
			t.Fatalf("match %d has no winner", m.ID)
		}
		if !m.Bye {
			w, l := m.Slot(m.SlotOf(winner)), m.Slot(3-m.SlotOf(winner))
			if w.Score == nil || l.Score == nil || w.Score.Value <= l.Score.Value {
				t.Errorf("match %d: winner score not greater than loser score", m.ID)
			}
			if w.Score.Predicted() || l.Score.Predicted() {
				t.Errorf("match %d: completed with predicted scores", m.ID)
			}
		}
		if m.Next != nil {
			next := mustMatch(t, stage, m.Next.MatchID).Slot(m.Next.Slot)
			if next == nil || next.ParticipantID != winner {
				t.Errorf("match %d: winner %d not propagated", m.ID, winner)
			}
		}
	}
}

func TestReconcile_SkipsMalformedRecords(t *testing.T) {
	stage := mustBuild(t, roster(4), bracket.WithOrdering(bracket.OrderNatural))

	records := []bracket.MatchRecord{
		{ParticipantA: intPtr(0), ParticipantB: intPtr(1), ScoreA: intPtr(2)},
		{ParticipantA: intPtr(2), ScoreA: intPtr(2), ScoreB: intPtr(0)},
		bracket.Result(2, 3, 1, 1),
		bracket.Result(3, 2, 2, 0),
	}
	rep := bracket.NewReconciler().Reconcile(stage, records)

	if rep.Skipped != 3 {
		t.Errorf("expected 3 skipped records, got %d", rep.Skipped)
	}
	if m := mustMatch(t, stage, 0); m.Status != bracket.StatusReady {
		t.Errorf("match with unfinished record should stay ready, got %s", m.Status)
	}
	if w, ok := mustMatch(t, stage, 1).Winner(); !ok || w != 3 {
		t.Errorf("expected 3 to win match 1, got %d (%v)", w, ok)
	}
}

func TestReconcile_FirstRecordWins(t *testing.T) {
	stage := mustBuild(t, roster(2))

	rep := bracket.NewReconciler().Reconcile(stage, []bracket.MatchRecord{
		bracket.Result(0, 1, 6, 3),
		bracket.Result(0, 1, 2, 6),
	})

	if w, _ := stage.Final().Winner(); w != 0 {
		t.Errorf("expected the first record to decide the match, winner %d", w)
	}
	if len(rep.Resolutions) != 1 {
		t.Errorf("expected 1 resolution, got %d", len(rep.Resolutions))
	}
}

func TestReconcile_UnorderedParticipants(t *testing.T) {
	stage := mustBuild(t, roster(2))

	bracket.NewReconciler().Reconcile(stage, []bracket.MatchRecord{bracket.Result(1, 0, 3, 6)})

	m := stage.Final()
	if w, _ := m.Winner(); w != 0 {
		t.Fatalf("expected 0 to win, got %d", w)
	}
	if m.Opponent1.Score.Value != 6 || m.Opponent2.Score.Value != 3 {
		t.Errorf("scores attached to the wrong slots: %v / %v", m.Opponent1.Score, m.Opponent2.Score)
	}
	if m.Opponent1.Score.Kind != bracket.ScoreAuthoritative {
		t.Errorf("expected authoritative score, got %s", m.Opponent1.Score.Kind)
	}
}

func TestReconcile_NotifiesHandlers(t *testing.T) {
	stage := mustBuild(t, roster(4), bracket.WithOrdering(bracket.OrderNatural))

	var got []bracket.Resolution
	listener := bracket.ListenerFuncs{OnMatchResolved: func(res bracket.Resolution) {
		got = append(got, res)
	}}
	bracket.NewReconciler(listener, nil).Reconcile(stage, []bracket.MatchRecord{
		bracket.Result(0, 1, 2, 0),
		bracket.Result(2, 3, 0, 2),
		bracket.Result(0, 3, 2, 1),
	})

	want := []bracket.Resolution{
		{MatchID: 0, Round: 1, WinnerID: 0, LoserID: 1, WinnerScore: 2, LoserScore: 0},
		{MatchID: 1, Round: 1, WinnerID: 3, LoserID: 2, WinnerScore: 2, LoserScore: 0},
		{MatchID: 2, Round: 2, WinnerID: 0, LoserID: 3, WinnerScore: 2, LoserScore: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("resolutions = %+v, want %+v", got, want)
	}
}
