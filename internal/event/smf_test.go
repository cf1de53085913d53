package event

import (
	"bytes"
	"strings"
	"testing"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

func testDoc() *Document {
	return &Document{
		TicksPerBeat: 480,
		Format:       MultiTrack,
		Tracks: []Track{
			{
				Name:     "conductor",
				Program:  -1,
				Tempos:   []Tempo{{Tick: 0, BPM: 120}},
				TimeSigs: []TimeSig{{Tick: 0, Num: 4, Denom: 4}},
			},
			{
				Name:    "melody",
				Program: 0,
				Notes: []Note{
					{Pitch: 60, Velocity: 80, Channel: 0, Start: 0, Duration: 480},
					{Pitch: 64, Velocity: 70, Channel: 0, Start: 480, Duration: 240},
					{Pitch: 67, Velocity: 90, Channel: 0, Start: 480, Duration: 480},
				},
				Controls: []Control{{Controller: 64, Value: 127, Channel: 0, Tick: 240}},
			},
		},
	}
}

func roundtrip(t *testing.T, doc *Document) (*Document, []string) {
	t.Helper()
	var buf bytes.Buffer
	if _, err := doc.ToSMF().WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	mid, err := smf.ReadFrom(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	out, warnings, err := FromSMF(mid)
	if err != nil {
		t.Fatalf("FromSMF: %v", err)
	}
	return out, warnings
}

func TestRoundtrip(t *testing.T) {
	doc := testDoc()
	out, warnings := roundtrip(t, doc)
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	if out.TicksPerBeat != 480 {
		t.Errorf("ticks per beat = %d, want 480", out.TicksPerBeat)
	}
	if len(out.Tracks) != 2 {
		t.Fatalf("got %d tracks, want 2", len(out.Tracks))
	}
	if out.Tracks[1].Name != "melody" {
		t.Errorf("track name = %q", out.Tracks[1].Name)
	}
	if out.Tracks[1].Program != 0 {
		t.Errorf("program = %d, want 0", out.Tracks[1].Program)
	}

	wantNotes := doc.Tracks[1].Notes
	gotNotes := out.Tracks[1].Notes
	if len(gotNotes) != len(wantNotes) {
		t.Fatalf("got %d notes, want %d", len(gotNotes), len(wantNotes))
	}
	for i, want := range wantNotes {
		if gotNotes[i] != want {
			t.Errorf("note %d = %+v, want %+v", i, gotNotes[i], want)
		}
	}

	if len(out.Tracks[0].Tempos) != 1 || out.Tracks[0].Tempos[0].BPM != 120 {
		t.Errorf("tempos = %v", out.Tracks[0].Tempos)
	}
	if len(out.Tracks[1].Controls) != 1 || out.Tracks[1].Controls[0].Tick != 240 {
		t.Errorf("controls = %v", out.Tracks[1].Controls)
	}
}

func TestRoundtripBackToBackSamePitch(t *testing.T) {
	// A note ending exactly where the next same-pitch note starts must not
	// swallow it: the note-off sorts before the note-on at the shared tick.
	doc := &Document{
		TicksPerBeat: 480,
		Format:       SingleTrack,
		Tracks: []Track{{
			Program: -1,
			Notes: []Note{
				{Pitch: 60, Velocity: 80, Channel: 0, Start: 0, Duration: 480},
				{Pitch: 60, Velocity: 80, Channel: 0, Start: 480, Duration: 480},
			},
		}},
	}
	out, warnings := roundtrip(t, doc)
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
	if got := len(out.Tracks[0].Notes); got != 2 {
		t.Fatalf("got %d notes, want 2", got)
	}
	for i, n := range out.Tracks[0].Notes {
		if n.Duration != 480 {
			t.Errorf("note %d duration = %d, want 480", i, n.Duration)
		}
	}
}

func TestFromSMFOrphanNoteOn(t *testing.T) {
	var track smf.Track
	track.Add(0, smf.Message(midi.NoteOn(0, 60, 80)))
	track.Add(480, smf.Message(midi.NoteOn(0, 64, 80))) // never released
	track.Add(240, smf.Message(midi.NoteOff(0, 60)))
	track.Close(480)

	mid := smf.New()
	mid.TimeFormat = smf.MetricTicks(480)
	if err := mid.Add(track); err != nil {
		t.Fatalf("Add: %v", err)
	}

	doc, warnings, err := FromSMF(mid)
	if err != nil {
		t.Fatalf("FromSMF: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "note-on without note-off") {
		t.Errorf("warnings = %v, want one orphan note-on warning", warnings)
	}
	notes := doc.Tracks[0].Notes
	if len(notes) != 2 {
		t.Fatalf("got %d notes, want 2 (orphan closed at track end)", len(notes))
	}
	if notes[1].Pitch != 64 || notes[1].Duration != 720 {
		t.Errorf("orphan closed as %+v, want pitch 64 duration 720", notes[1])
	}
}

func TestFromSMFNoteOffWithoutOn(t *testing.T) {
	var track smf.Track
	track.Add(0, smf.Message(midi.NoteOff(0, 60)))
	track.Close(0)

	mid := smf.New()
	mid.TimeFormat = smf.MetricTicks(480)
	if err := mid.Add(track); err != nil {
		t.Fatalf("Add: %v", err)
	}

	doc, warnings, err := FromSMF(mid)
	if err != nil {
		t.Fatalf("FromSMF: %v", err)
	}
	if len(doc.Tracks[0].Notes) != 0 {
		t.Errorf("notes = %v, want none", doc.Tracks[0].Notes)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "note-off without note-on") {
		t.Errorf("warnings = %v, want one stray note-off warning", warnings)
	}
}

func TestCloneIsDeep(t *testing.T) {
	doc := testDoc()
	clone := doc.Clone()
	clone.Tracks[1].Notes[0].Pitch = 99
	clone.Tracks[0].Tempos[0].BPM = 60
	if doc.Tracks[1].Notes[0].Pitch != 60 {
		t.Error("clone shares note storage with the original")
	}
	if doc.Tracks[0].Tempos[0].BPM != 120 {
		t.Error("clone shares tempo storage with the original")
	}
}

func TestNoteTrackCount(t *testing.T) {
	doc := testDoc()
	if got := doc.NoteTrackCount(); got != 1 {
		t.Errorf("NoteTrackCount = %d, want 1", got)
	}
	doc.Tracks[0].Notes = []Note{{Pitch: 60, Velocity: 1, Start: 0, Duration: 1}}
	if got := doc.NoteTrackCount(); got != 2 {
		t.Errorf("NoteTrackCount = %d, want 2", got)
	}
}
