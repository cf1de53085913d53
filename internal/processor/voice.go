package processor

import (
	"sort"

	"github.com/maximgrigorov/midi-cleaner/internal/event"
)

// primaryChannel returns the track's most-used note channel, ties broken
// by the lowest channel number. Defaults to 0 for empty tracks.
func primaryChannel(notes []event.Note) uint8 {
	counts := map[uint8]int{}
	for _, n := range notes {
		counts[n.Channel]++
	}
	best := uint8(0)
	bestCount := -1
	for ch := uint8(0); ch < 16; ch++ {
		if c := counts[ch]; c > bestCount {
			best = ch
			bestCount = c
		}
	}
	return best
}

// mergeVoices consolidates a track onto one voice. Every note and control
// event moves to the primary channel; overlapping same-pitch notes are
// merged into one note spanning the union of their intervals (highest
// velocity kept); finally chord members get the group's maximum duration.
// Returns the notes, the remapped controls, and the overlap merge count.
func mergeVoices(notes []event.Note, controls []event.Control, mergeOverlaps bool) ([]event.Note, []event.Control, int) {
	if len(notes) == 0 {
		return notes, controls, 0
	}

	primary := primaryChannel(notes)

	remapped := make([]event.Note, len(notes))
	for i, n := range notes {
		n.Channel = primary
		remapped[i] = n
	}
	outControls := make([]event.Control, len(controls))
	for i, c := range controls {
		c.Channel = primary
		outControls[i] = c
	}

	overlaps := 0
	if mergeOverlaps {
		remapped, overlaps = mergeSamePitchSpans(remapped)
	}
	remapped, _ = alignChords(remapped)
	event.SortNotes(remapped)
	return remapped, outControls, overlaps
}

// mergeSamePitchSpans merges each group of overlapping same-pitch notes
// into a single note covering [min start, max end).
func mergeSamePitchSpans(notes []event.Note) ([]event.Note, int) {
	byPitch := map[uint8][]event.Note{}
	for _, n := range notes {
		byPitch[n.Pitch] = append(byPitch[n.Pitch], n)
	}

	var out []event.Note
	merges := 0
	for _, group := range byPitch {
		sort.SliceStable(group, func(i, j int) bool { return group[i].Start < group[j].Start })
		current := group[0]
		for _, next := range group[1:] {
			if next.Start < current.End() {
				if next.End() > current.End() {
					current.Duration = next.End() - current.Start
				}
				if next.Velocity > current.Velocity {
					current.Velocity = next.Velocity
				}
				merges++
				continue
			}
			out = append(out, current)
			current = next
		}
		out = append(out, current)
	}
	event.SortNotes(out)
	return out, merges
}
