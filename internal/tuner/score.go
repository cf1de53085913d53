package tuner

import "github.com/maximgrigorov/midi-cleaner/internal/event"

// Metrics are the raw quantities behind a score, kept for reporting.
type Metrics struct {
	NoteCount      int     `json:"note_count" yaml:"note_count"`
	UniquePitches  int     `json:"unique_pitches" yaml:"unique_pitches"`
	AvgDuration    float64 `json:"avg_duration" yaml:"avg_duration"`
	ShortNoteRatio float64 `json:"short_note_ratio" yaml:"short_note_ratio"`
	OverlapCount   int     `json:"overlap_count" yaml:"overlap_count"`
	VoiceCount     int     `json:"voice_count" yaml:"voice_count"`
}

const shortNoteTicks = 60

// Score rates a cleaned document. Higher is better: pitch variety and
// reasonable note lengths reward; short notes, overlaps and leftover
// voices penalize.
func Score(doc *event.Document) (float64, Metrics) {
	var m Metrics
	pitches := map[uint8]bool{}
	channels := map[uint8]bool{}
	var durSum float64
	short := 0

	for i := range doc.Tracks {
		t := &doc.Tracks[i]
		m.NoteCount += len(t.Notes)
		for _, n := range t.Notes {
			pitches[n.Pitch] = true
			channels[n.Channel] = true
			durSum += float64(n.Duration)
			if n.Duration < shortNoteTicks {
				short++
			}
		}
		m.OverlapCount += countOverlaps(t.Notes)
	}
	m.UniquePitches = len(pitches)
	m.VoiceCount = len(channels)
	if m.NoteCount > 0 {
		m.AvgDuration = durSum / float64(m.NoteCount)
		m.ShortNoteRatio = float64(short) / float64(m.NoteCount)
	}

	durTerm := m.AvgDuration / 480
	if durTerm > 10 {
		durTerm = 10
	}
	score := 2*float64(m.UniquePitches) + durTerm -
		5*m.ShortNoteRatio - 3*float64(m.OverlapCount) - 4*float64(m.VoiceCount)
	return score, m
}

// countOverlaps counts same-pitch same-channel note pairs whose spans
// intersect.
func countOverlaps(notes []event.Note) int {
	type key struct {
		channel uint8
		pitch   uint8
	}
	groups := map[key][]event.Note{}
	for _, n := range notes {
		k := key{n.Channel, n.Pitch}
		groups[k] = append(groups[k], n)
	}
	count := 0
	for _, group := range groups {
		event.SortNotes(group)
		for i := 1; i < len(group); i++ {
			if group[i].Start < group[i-1].End() {
				count++
			}
		}
	}
	return count
}
