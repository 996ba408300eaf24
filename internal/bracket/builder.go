package bracket

import (
	"math/bits"

	"github.com/abrezinsky/tennisbracket/internal/errors"
)

// Ordering decides how a seed list is paired into round 1.
type Ordering int

const (
	// OrderStandard pairs seed 1 with seed size, seed 2 with seed size-1 and
	// so on, recursively halved so the top seeds meet as late as possible.
	OrderStandard Ordering = iota
	// OrderNatural pairs adjacent entries. Draw sheets are already in this order.
	OrderNatural
)

type buildOptions struct {
	ordering Ordering
}

// BuildOption configures Build.
type BuildOption func(*buildOptions)

// WithOrdering selects how the seed list is paired.
func WithOrdering(o Ordering) BuildOption {
	return func(opts *buildOptions) {
		opts.ordering = o
	}
}

// NextPowerOfTwo returns the smallest power of two >= n, with a minimum of 2.
func NextPowerOfTwo(n int) int {
	if n <= 2 {
		return 2
	}
	return 1 << bits.Len(uint(n-1))
}

// Pad extends roster with byes up to the next power of two. Each added bye
// follows a player, so adjacent slots never pair two byes and under
// OrderStandard the byes take even seed numbers, which never meet in round 1.
// A roster whose length is already a power of two is returned unchanged.
func Pad(roster []*Participant) []*Participant {
	if len(roster) == 0 {
		return nil
	}
	size := NextPowerOfTwo(len(roster))
	out := make([]*Participant, 0, size)
	if len(roster) == size {
		return append(out, roster...)
	}

	extra := size - len(roster)
	next := 0
	for pairs := size / 2; pairs > 0; pairs-- {
		a := roster[next]
		next++
		if extra > 0 && (a != nil || extra == pairs) {
			out = append(out, a, nil)
			extra--
			continue
		}
		out = append(out, a, roster[next])
		next++
	}
	return out
}

// StandardOrder returns the 1-based seed numbers of a draw of the given size
// in slot order; adjacent pairs meet in round 1.
func StandardOrder(size int) []int {
	order := []int{1, 2}
	for len(order) < size {
		n := len(order)*2 + 1
		next := make([]int, 0, len(order)*2)
		for _, s := range order {
			next = append(next, s, n-s)
		}
		order = next
	}
	return order
}

// Build creates a Stage from a seed list whose length is a power of two.
// Nil entries are byes. Round-1 matches against a bye are resolved and their
// winners advanced before Build returns.
func Build(seeds []*Participant, opts ...BuildOption) (*Stage, error) {
	o := buildOptions{ordering: OrderStandard}
	for _, opt := range opts {
		opt(&o)
	}

	size := len(seeds)
	if size < 2 || size&(size-1) != 0 {
		return nil, errors.Configurationf("seed list length %d is not a power of two of at least 2", size)
	}

	stage := &Stage{}
	seen := make(map[int]bool, size)
	for _, p := range seeds {
		if p == nil {
			continue
		}
		if p.ID < 0 {
			return nil, errors.Configurationf("participant %q has negative id %d", p.Name, p.ID)
		}
		if seen[p.ID] {
			return nil, errors.Configurationf("duplicate participant id %d", p.ID)
		}
		seen[p.ID] = true
		stage.Participants = append(stage.Participants, *p)
	}

	var order []int
	if o.ordering == OrderStandard {
		order = StandardOrder(size)
	}
	stage.Seeds = make([]*Participant, size)
	for i := range seeds {
		src := seeds[i]
		if order != nil {
			src = seeds[order[i]-1]
		}
		if src != nil {
			p := *src
			stage.Seeds[i] = &p
		}
	}

	rounds := bits.TrailingZeros(uint(size))
	id := 0
	for r := 1; r <= rounds; r++ {
		round := Round{Number: r}
		for pos := 0; pos < size>>r; pos++ {
			stage.Matches = append(stage.Matches, &Match{ID: id, Round: r, Position: pos})
			round.MatchIDs = append(round.MatchIDs, id)
			id++
		}
		stage.Rounds = append(stage.Rounds, round)
	}
	for r := 0; r < rounds-1; r++ {
		next := stage.Rounds[r+1].MatchIDs
		for pos, mid := range stage.Rounds[r].MatchIDs {
			stage.Matches[mid].Next = &Link{MatchID: next[pos/2], Slot: pos%2 + 1}
		}
	}

	first := stage.RoundMatches(1)
	for pos, m := range first {
		a, b := stage.Seeds[2*pos], stage.Seeds[2*pos+1]
		if a == nil && b == nil {
			return nil, errors.Configurationf("round 1 match %d pairs two byes", pos)
		}
		if a != nil {
			m.Opponent1 = &Opponent{ParticipantID: a.ID}
		}
		if b != nil {
			m.Opponent2 = &Opponent{ParticipantID: b.ID}
		}
		if a != nil && b != nil {
			m.Status = StatusReady
		}
	}

	for _, m := range first {
		if m.Status == StatusReady {
			continue
		}
		winner := m.Opponent1
		if winner == nil {
			winner = m.Opponent2
		}
		winner.Outcome = OutcomeWin
		m.Status = StatusCompleted
		m.Bye = true
		stage.place(m.Next, winner.ParticipantID, false)
	}

	return stage, nil
}
