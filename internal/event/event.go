// Package event holds the in-memory model of a parsed MIDI document:
// tracks of note, control-change and tempo events on a shared tick clock.
// The model is pure data; all cleaning behavior lives in internal/processor.
package event

import "sort"

// Note is a paired note-on/note-off with absolute timing.
type Note struct {
	Pitch    uint8
	Velocity uint8
	Channel  uint8
	Start    int64
	Duration int64
}

// End returns the first tick after the note stops sounding.
func (n Note) End() int64 {
	return n.Start + n.Duration
}

// Overlaps reports whether the half-open intervals of n and o intersect.
func (n Note) Overlaps(o Note) bool {
	return n.Start < o.End() && o.Start < n.End()
}

// Control is a control-change event.
type Control struct {
	Controller uint8
	Value      uint8
	Channel    uint8
	Tick       int64
}

// Tempo is a tempo change. BPM and microseconds per beat are equivalent;
// we keep BPM since that is what the smf accessors speak.
type Tempo struct {
	Tick int64
	BPM  float64
}

// MicrosPerBeat returns the tempo as microseconds per quarter note.
func (t Tempo) MicrosPerBeat() float64 {
	return 60000000.0 / t.BPM
}

// TimeSig is a time-signature change.
type TimeSig struct {
	Tick  int64
	Num   uint8
	Denom uint8
}

// Track is one MTrk worth of events, split by kind and kept in tick order.
type Track struct {
	Name     string
	Program  int // -1 when no program change was seen
	Notes    []Note
	Controls []Control
	Tempos   []Tempo
	TimeSigs []TimeSig
}

// HasNotes reports whether the track carries any notes.
func (t *Track) HasNotes() bool {
	return len(t.Notes) > 0
}

// ChannelsUsed returns the sorted set of channels used by the track's notes.
func (t *Track) ChannelsUsed() []uint8 {
	seen := map[uint8]bool{}
	for _, n := range t.Notes {
		seen[n.Channel] = true
	}
	out := make([]uint8, 0, len(seen))
	for ch := range seen {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SortNotes restores the start-tick order invariant (pitch breaks ties).
func (t *Track) SortNotes() {
	SortNotes(t.Notes)
}

// SortNotes sorts notes by start tick, then pitch.
func SortNotes(notes []Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		if notes[i].Start != notes[j].Start {
			return notes[i].Start < notes[j].Start
		}
		return notes[i].Pitch < notes[j].Pitch
	})
}

// Format distinguishes single-track files from multi-track simultaneous ones.
type Format int

const (
	SingleTrack Format = 0
	MultiTrack  Format = 1
)

// Document is one parsed MIDI file. Track 0 is conventionally the
// conductor track when Format is MultiTrack.
type Document struct {
	TicksPerBeat uint32
	Format       Format
	Tracks       []Track
}

// Clone returns a deep copy. Tuner trials run on clones so the original
// document is never mutated.
func (d *Document) Clone() *Document {
	out := &Document{
		TicksPerBeat: d.TicksPerBeat,
		Format:       d.Format,
		Tracks:       make([]Track, len(d.Tracks)),
	}
	for i, t := range d.Tracks {
		ct := Track{Name: t.Name, Program: t.Program}
		ct.Notes = append([]Note(nil), t.Notes...)
		ct.Controls = append([]Control(nil), t.Controls...)
		ct.Tempos = append([]Tempo(nil), t.Tempos...)
		ct.TimeSigs = append([]TimeSig(nil), t.TimeSigs...)
		out.Tracks[i] = ct
	}
	return out
}

// NoteCount returns the number of notes across all tracks.
func (d *Document) NoteCount() int {
	total := 0
	for i := range d.Tracks {
		total += len(d.Tracks[i].Notes)
	}
	return total
}

// NoteTrackCount returns how many tracks carry at least one note.
func (d *Document) NoteTrackCount() int {
	count := 0
	for i := range d.Tracks {
		if d.Tracks[i].HasNotes() {
			count++
		}
	}
	return count
}

// ConductorIndex returns the index of the conductor track. By convention
// this is track 0 for multi-track files.
func (d *Document) ConductorIndex() int {
	return 0
}
