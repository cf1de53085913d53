package processor

import (
	"sort"

	"github.com/maximgrigorov/midi-cleaner/internal/event"
)

// flattenTracks merges all tracks into a single time-ordered track and
// switches the document to single-track format. Control events are
// dropped unless includeCC is set, in which case only whitelisted
// controller numbers survive (an empty whitelist keeps all).
func flattenTracks(doc *event.Document, includeCC bool, ccWhitelist []int) bool {
	if len(doc.Tracks) <= 1 {
		doc.Format = event.SingleTrack
		return false
	}

	whitelist := map[uint8]bool{}
	for _, cc := range ccWhitelist {
		if cc >= 0 && cc < 128 {
			whitelist[uint8(cc)] = true
		}
	}

	merged := event.Track{Program: -1}
	for i := range doc.Tracks {
		t := &doc.Tracks[i]
		if merged.Name == "" && t.Name != "" {
			merged.Name = t.Name
		}
		if merged.Program < 0 && t.Program >= 0 {
			merged.Program = t.Program
		}
		merged.Notes = append(merged.Notes, t.Notes...)
		merged.Tempos = append(merged.Tempos, t.Tempos...)
		merged.TimeSigs = append(merged.TimeSigs, t.TimeSigs...)
		if !includeCC {
			continue
		}
		for _, c := range t.Controls {
			if len(whitelist) > 0 && !whitelist[c.Controller] {
				continue
			}
			merged.Controls = append(merged.Controls, c)
		}
	}
	merged.SortNotes()
	sort.SliceStable(merged.Controls, func(i, j int) bool { return merged.Controls[i].Tick < merged.Controls[j].Tick })
	sort.SliceStable(merged.Tempos, func(i, j int) bool { return merged.Tempos[i].Tick < merged.Tempos[j].Tick })
	sort.SliceStable(merged.TimeSigs, func(i, j int) bool { return merged.TimeSigs[i].Tick < merged.TimeSigs[j].Tick })

	doc.Tracks = []event.Track{merged}
	doc.Format = event.SingleTrack
	return true
}
