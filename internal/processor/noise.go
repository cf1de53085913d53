package processor

import "github.com/maximgrigorov/midi-cleaner/internal/event"

// filterNoise drops parasitic notes: shorter than minDuration ticks or
// quieter than minVelocity.
func filterNoise(notes []event.Note, minDuration, minVelocity int) ([]event.Note, int) {
	if len(notes) == 0 {
		return notes, 0
	}
	kept := make([]event.Note, 0, len(notes))
	for _, n := range notes {
		if n.Duration < int64(minDuration) || int(n.Velocity) < minVelocity {
			continue
		}
		kept = append(kept, n)
	}
	return kept, len(notes) - len(kept)
}
