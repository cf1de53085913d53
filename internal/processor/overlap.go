package processor

import (
	"sort"

	"github.com/maximgrigorov/midi-cleaner/internal/event"
)

type overlapKey struct {
	channel uint8
	pitch   uint8
}

// resolveSamePitch keeps exactly one note per maximal group of
// temporally-overlapping same-pitch notes on a channel. The winner has
// the longest duration, then the highest velocity, then the earliest
// start. Losers are deleted outright, never trimmed.
func resolveSamePitch(notes []event.Note) ([]event.Note, int) {
	if len(notes) < 2 {
		return notes, 0
	}
	groups := map[overlapKey][]event.Note{}
	for _, n := range notes {
		k := overlapKey{n.Channel, n.Pitch}
		groups[k] = append(groups[k], n)
	}

	var out []event.Note
	removed := 0
	for _, group := range groups {
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Start != group[j].Start {
				return group[i].Start < group[j].Start
			}
			return group[i].End() < group[j].End()
		})
		// Sweep maximal overlap runs: a note extends the current run when
		// it starts before the run's furthest end.
		runStart := 0
		runEnd := group[0].End()
		flush := func(hi int) {
			out = append(out, overlapWinner(group[runStart:hi]))
			removed += hi - runStart - 1
		}
		for i := 1; i < len(group); i++ {
			if group[i].Start < runEnd {
				if e := group[i].End(); e > runEnd {
					runEnd = e
				}
				continue
			}
			flush(i)
			runStart = i
			runEnd = group[i].End()
		}
		flush(len(group))
	}
	event.SortNotes(out)
	return out, removed
}

func overlapWinner(group []event.Note) event.Note {
	best := group[0]
	for _, n := range group[1:] {
		if n.Duration != best.Duration {
			if n.Duration > best.Duration {
				best = n
			}
			continue
		}
		if n.Velocity != best.Velocity {
			if n.Velocity > best.Velocity {
				best = n
			}
			continue
		}
		if n.Start < best.Start {
			best = n
		}
	}
	return best
}
