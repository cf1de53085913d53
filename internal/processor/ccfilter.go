package processor

import "github.com/maximgrigorov/midi-cleaner/internal/event"

// filterControls drops every control-change event whose controller number
// is in the removal set. Everything else passes through unchanged.
func filterControls(controls []event.Control, remove []int) ([]event.Control, int) {
	if len(remove) == 0 || len(controls) == 0 {
		return controls, 0
	}
	removeSet := map[uint8]bool{}
	for _, cc := range remove {
		if cc >= 0 && cc < 128 {
			removeSet[uint8(cc)] = true
		}
	}
	kept := make([]event.Control, 0, len(controls))
	for _, c := range controls {
		if removeSet[c.Controller] {
			continue
		}
		kept = append(kept, c)
	}
	return kept, len(controls) - len(kept)
}
