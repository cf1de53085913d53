package processor

import "github.com/maximgrigorov/midi-cleaner/internal/event"

type chordKey struct {
	channel uint8
	start   int64
}

// alignChords gives every note of a chord (identical channel and start
// tick) the chord's maximum duration, so notation software reads the
// group as one voice. Returns the notes and how many were stretched.
func alignChords(notes []event.Note) ([]event.Note, int) {
	if len(notes) < 2 {
		return notes, 0
	}
	maxDur := map[chordKey]int64{}
	for _, n := range notes {
		k := chordKey{n.Channel, n.Start}
		if n.Duration > maxDur[k] {
			maxDur[k] = n.Duration
		}
	}
	out := make([]event.Note, len(notes))
	adjusted := 0
	for i, n := range notes {
		if d := maxDur[chordKey{n.Channel, n.Start}]; n.Duration != d {
			n.Duration = d
			adjusted++
		}
		out[i] = n
	}
	return out, adjusted
}
