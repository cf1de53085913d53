package processor

import (
	"math"

	"github.com/maximgrigorov/midi-cleaner/internal/event"
)

// tripletPair maps a triplet duration to the straight value it replaces.
type tripletPair struct {
	triplet  float64
	straight int64
}

// removeTriplets rewrites notes whose duration fits a triplet subdivision
// better than any straight one. The tolerance bounds the relative
// duration error |d - triplet| / triplet. A converted note gets the
// corresponding straight duration and its start snapped to the eighth
// grid, keeping the bar-relative position as close as the grid allows.
func removeTriplets(notes []event.Note, tpb int64, tolerance float64) ([]event.Note, int) {
	if len(notes) == 0 || tpb <= 0 {
		return notes, 0
	}
	beat := float64(tpb)
	pairs := []tripletPair{
		{triplet: beat * 4 / 3, straight: 2 * tpb}, // triplet half -> half
		{triplet: beat * 2 / 3, straight: tpb},     // triplet quarter -> quarter
		{triplet: beat / 3, straight: tpb / 2},     // triplet eighth -> eighth
		{triplet: beat / 6, straight: tpb / 4},     // triplet sixteenth -> sixteenth
	}
	straights := []float64{4 * beat, 2 * beat, beat, beat / 2, beat / 4}

	eighth := tpb / 2
	if eighth < 1 {
		eighth = 1
	}

	out := make([]event.Note, len(notes))
	converted := 0
	for i, n := range notes {
		d := float64(n.Duration)

		bestStraightErr := math.Inf(1)
		for _, s := range straights {
			if err := math.Abs(d-s) / s; err < bestStraightErr {
				bestStraightErr = err
			}
		}
		bestTripletErr := math.Inf(1)
		var target int64
		for _, p := range pairs {
			if p.triplet <= 0 {
				continue
			}
			if err := math.Abs(d-p.triplet) / p.triplet; err < bestTripletErr {
				bestTripletErr = err
				target = p.straight
			}
		}

		if bestTripletErr <= tolerance && bestTripletErr < bestStraightErr && target > 0 {
			n.Duration = target
			n.Start = snapTick(n.Start, eighth)
			converted++
		}
		out[i] = n
	}
	if converted > 0 {
		event.SortNotes(out)
	}
	return out, converted
}

// snapTick rounds a tick to the nearest multiple of the grid unit.
func snapTick(tick, grid int64) int64 {
	if grid <= 0 {
		return tick
	}
	return (tick + grid/2) / grid * grid
}
