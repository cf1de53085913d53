package tuner

import (
	"math"
	"testing"

	"github.com/maximgrigorov/midi-cleaner/internal/event"
)

func TestScoreCleanTrack(t *testing.T) {
	doc := &event.Document{
		TicksPerBeat: 480,
		Tracks: []event.Track{{
			Program: -1,
			Notes: []event.Note{
				{Pitch: 60, Velocity: 80, Channel: 0, Start: 0, Duration: 480},
				{Pitch: 64, Velocity: 80, Channel: 0, Start: 480, Duration: 480},
				{Pitch: 67, Velocity: 80, Channel: 0, Start: 960, Duration: 480},
			},
		}},
	}
	score, m := Score(doc)
	if m.UniquePitches != 3 || m.OverlapCount != 0 || m.VoiceCount != 1 {
		t.Fatalf("metrics = %+v", m)
	}
	// 2*3 + 480/480 - 0 - 0 - 4*1 = 3
	if math.Abs(score-3) > 1e-9 {
		t.Errorf("score = %v, want 3", score)
	}
}

func TestScorePenalties(t *testing.T) {
	clean := &event.Document{
		TicksPerBeat: 480,
		Tracks: []event.Track{{
			Program: -1,
			Notes: []event.Note{
				{Pitch: 60, Velocity: 80, Channel: 0, Start: 0, Duration: 480},
				{Pitch: 64, Velocity: 80, Channel: 0, Start: 480, Duration: 480},
			},
		}},
	}
	messy := clean.Clone()
	messy.Tracks[0].Notes = append(messy.Tracks[0].Notes,
		// Same-pitch overlap with the first note.
		event.Note{Pitch: 60, Velocity: 80, Channel: 0, Start: 240, Duration: 480},
		// Parasitic short note on a second channel.
		event.Note{Pitch: 61, Velocity: 10, Channel: 1, Start: 0, Duration: 20},
	)

	cleanScore, _ := Score(clean)
	messyScore, mm := Score(messy)
	if mm.OverlapCount != 1 {
		t.Errorf("overlap count = %d, want 1", mm.OverlapCount)
	}
	if mm.VoiceCount != 2 {
		t.Errorf("voice count = %d, want 2", mm.VoiceCount)
	}
	if mm.ShortNoteRatio != 0.25 {
		t.Errorf("short note ratio = %v, want 0.25", mm.ShortNoteRatio)
	}
	if messyScore >= cleanScore {
		t.Errorf("messy score %v not below clean score %v", messyScore, cleanScore)
	}
}

func TestScoreAvgDurationCap(t *testing.T) {
	doc := &event.Document{
		TicksPerBeat: 480,
		Tracks: []event.Track{{
			Program: -1,
			Notes:   []event.Note{{Pitch: 60, Velocity: 80, Channel: 0, Start: 0, Duration: 480 * 100}},
		}},
	}
	score, _ := Score(doc)
	// 2*1 + capped 10 - 4*1
	if math.Abs(score-8) > 1e-9 {
		t.Errorf("score = %v, want 8 with the duration term capped at 10", score)
	}
}

func TestScoreEmptyDocument(t *testing.T) {
	score, m := Score(&event.Document{TicksPerBeat: 480})
	if score != 0 || m.NoteCount != 0 {
		t.Errorf("score = %v metrics = %+v, want all zero", score, m)
	}
}
