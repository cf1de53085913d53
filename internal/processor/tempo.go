package processor

import "github.com/maximgrigorov/midi-cleaner/internal/event"

// dedupTempo keeps the first tempo event and every later event whose
// value differs from the most recently kept one. Exact repeats are
// dropped; event order is preserved. Returns the kept events and the
// number removed.
func dedupTempo(tempos []event.Tempo) ([]event.Tempo, int) {
	if len(tempos) == 0 {
		return tempos, 0
	}
	kept := make([]event.Tempo, 0, len(tempos))
	var last float64
	have := false
	for _, t := range tempos {
		if have && t.BPM == last {
			continue
		}
		kept = append(kept, t)
		last = t.BPM
		have = true
	}
	return kept, len(tempos) - len(kept)
}
