package processor

import (
	"fmt"

	"github.com/maximgrigorov/midi-cleaner/internal/event"
)

// quantizeNotes snaps note onsets to the grid and rounds durations to
// whole grid units, clipping each note at the end of its bar. A note
// whose clipped duration would be zero or negative is dropped with a
// warning; surviving notes keep at least one grid unit.
func quantizeNotes(notes []event.Note, tpb int64, divisions int, bars barMap) ([]event.Note, int, []string) {
	if len(notes) == 0 || divisions <= 0 {
		return notes, 0, nil
	}
	grid := tpb / int64(divisions)
	if grid < 1 {
		grid = 1
	}

	out := make([]event.Note, 0, len(notes))
	dropped := 0
	var warnings []string
	for _, n := range notes {
		start := snapTick(n.Start, grid)
		if start < 0 {
			start = 0
		}
		units := (n.Duration + grid/2) / grid
		if units < 1 {
			units = 1
		}
		end := start + units*grid

		barEnd := bars.BarEnd(start)
		if end > barEnd {
			end = barEnd
		}
		duration := end - start
		if duration < grid {
			// The minimum-unit clamp must not push the note past its
			// bar; a note without room for one grid unit is dropped.
			if start+grid > barEnd {
				dropped++
				warnings = append(warnings, fmt.Sprintf("dropped note ch %d pitch %d at tick %d: no room before bar end %d", n.Channel, n.Pitch, n.Start, barEnd))
				continue
			}
			duration = grid
		}
		n.Start = start
		n.Duration = duration
		out = append(out, n)
	}
	event.SortNotes(out)
	return out, dropped, warnings
}
