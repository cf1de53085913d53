package processor

import "github.com/maximgrigorov/midi-cleaner/internal/event"

// cleanupMeta strips tempo and time-signature events from every track
// except the conductor track of a multi-track document. Stray copies in
// data tracks make notation software print spurious tempo markings.
func cleanupMeta(doc *event.Document) int {
	if doc.Format != event.MultiTrack || len(doc.Tracks) < 2 {
		return 0
	}
	conductor := doc.ConductorIndex()
	removed := 0
	for i := range doc.Tracks {
		if i == conductor {
			continue
		}
		t := &doc.Tracks[i]
		removed += len(t.Tempos) + len(t.TimeSigs)
		t.Tempos = nil
		t.TimeSigs = nil
	}
	return removed
}
