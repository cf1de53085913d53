package file

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/maximgrigorov/midi-cleaner/internal/event"
	"github.com/maximgrigorov/midi-cleaner/internal/processor"
)

func docBytes(t *testing.T, doc *event.Document) []byte {
	t.Helper()
	var buf bytes.Buffer
	if _, err := doc.ToSMF().WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	return buf.Bytes()
}

func singleTrackDoc() *event.Document {
	return &event.Document{
		TicksPerBeat: 480,
		Format:       event.MultiTrack,
		Tracks: []event.Track{
			{Program: -1, Tempos: []event.Tempo{{Tick: 0, BPM: 120}}},
			{Program: -1, Notes: []event.Note{{Pitch: 60, Velocity: 80, Channel: 0, Start: 0, Duration: 480}}},
		},
	}
}

func TestLoadRejectsOversize(t *testing.T) {
	data := make([]byte, MaxFileSize+1)
	_, _, err := Load(data)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

func TestLoadRejectsMultipleNoteTracks(t *testing.T) {
	doc := singleTrackDoc()
	doc.Tracks = append(doc.Tracks, event.Track{
		Program: -1,
		Notes:   []event.Note{{Pitch: 64, Velocity: 80, Channel: 1, Start: 0, Duration: 480}},
	})
	_, _, err := Load(docBytes(t, doc))
	if !errors.Is(err, ErrMultipleNoteTracks) {
		t.Errorf("err = %v, want ErrMultipleNoteTracks", err)
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	if _, _, err := Load([]byte("not a midi file")); err == nil {
		t.Error("Load accepted garbage bytes")
	}
}

func TestLoadAcceptsConductorPlusNotes(t *testing.T) {
	doc, warnings, err := Load(docBytes(t, singleTrackDoc()))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v", warnings)
	}
	if doc.NoteCount() != 1 {
		t.Errorf("note count = %d, want 1", doc.NoteCount())
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.mid")
	if err := Save(path, singleTrackDoc()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	doc, _, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if doc.NoteCount() != 1 || doc.TicksPerBeat != 480 {
		t.Errorf("roundtrip lost data: %d notes, %d tpb", doc.NoteCount(), doc.TicksPerBeat)
	}
}

func TestProcessFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.mid")
	out := filepath.Join(dir, "out.mid")

	doc := singleTrackDoc()
	doc.Tracks[1].Notes = append(doc.Tracks[1].Notes,
		event.Note{Pitch: 72, Velocity: 5, Channel: 0, Start: 960, Duration: 20})
	if err := os.WriteFile(in, docBytes(t, doc), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg := processor.DefaultConfig()
	report, err := Process(in, out, &cfg, "", nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if report.InputNoteCount != 2 || report.OutputNoteCount != 1 {
		t.Errorf("report counts = %d -> %d, want 2 -> 1", report.InputNoteCount, report.OutputNoteCount)
	}

	cleaned, _, err := LoadFile(out)
	if err != nil {
		t.Fatalf("LoadFile(out): %v", err)
	}
	if cleaned.NoteCount() != 1 {
		t.Errorf("output file has %d notes, want 1", cleaned.NoteCount())
	}
}

func TestProcessWithPreset(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.mid")
	if err := os.WriteFile(in, docBytes(t, singleTrackDoc()), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	cfg := processor.DefaultConfig()
	report, err := Process(in, filepath.Join(dir, "out.mid"), &cfg, "drums_preserve", nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if report.PresetApplied != "drums_preserve" {
		t.Errorf("preset recorded as %q", report.PresetApplied)
	}

	if _, err := Process(in, filepath.Join(dir, "out2.mid"), &cfg, "bogus", nil); err == nil {
		t.Error("unknown preset accepted")
	}
}

func TestReadConfig(t *testing.T) {
	fsys := fstest.MapFS{
		"clean.yml": &fstest.MapFile{Data: []byte("min_duration_ticks: 200\nquantize: false\n")},
	}
	cfg, err := ReadConfig(fsys, "clean.yml")
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if cfg.MinDurationTicks != 200 {
		t.Errorf("min_duration_ticks = %d, want 200", cfg.MinDurationTicks)
	}
	if cfg.Quantize {
		t.Error("quantize not overridden")
	}
	// Absent keys keep their defaults.
	if cfg.MinVelocity != 20 {
		t.Errorf("min_velocity = %d, want default 20", cfg.MinVelocity)
	}
}

func TestReadConfigRejectsInvalid(t *testing.T) {
	fsys := fstest.MapFS{
		"bad.yml": &fstest.MapFile{Data: []byte("triplet_tolerance: 0.9\n")},
	}
	if _, err := ReadConfig(fsys, "bad.yml"); err == nil {
		t.Error("out-of-range config accepted")
	}
}

func TestWriteReadConfigRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cfg.yml")
	cfg := processor.DefaultConfig()
	cfg.StartBar = 3
	if err := WriteConfig(path, &cfg); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	loaded, err := ReadConfig(os.DirFS(dir), "cfg.yml")
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if loaded.StartBar != 3 {
		t.Errorf("start_bar = %d, want 3", loaded.StartBar)
	}
	if loaded.QuantizeGrid != processor.GridEighth {
		t.Errorf("quantize_grid = %q", loaded.QuantizeGrid)
	}
}
