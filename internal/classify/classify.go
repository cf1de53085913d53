// Package classify assigns a track type to MIDI tracks so the tuner and
// presets can pick sensible parameter ranges. Classification combines
// track-name and program-number hints with note statistics; hints win
// when both are available.
package classify

import (
	"math"
	"sort"
	"strings"

	"github.com/maximgrigorov/midi-cleaner/internal/event"
)

// TrackType is the closed set of recognized track categories.
type TrackType int

const (
	Unknown TrackType = iota
	Percussive
	Bowed
	MelodicMono
	Polyphonic
)

func (t TrackType) String() string {
	switch t {
	case Percussive:
		return "percussive"
	case Bowed:
		return "bowed"
	case MelodicMono:
		return "melodic_mono"
	case Polyphonic:
		return "polyphonic"
	default:
		return "unknown"
	}
}

// Features are the note statistics classification is based on.
type Features struct {
	NoteCount        int
	PitchRange       int     // highest minus lowest pitch
	MeanDuration     float64 // ticks
	DurationVariance float64
	PolyphonyRatio   float64 // fraction of notes sounding while another is held
	DominantChannel  uint8
}

// Extract computes classification features from a track's notes.
func Extract(t *event.Track) Features {
	var f Features
	f.NoteCount = len(t.Notes)
	if f.NoteCount == 0 {
		return f
	}

	lo, hi := t.Notes[0].Pitch, t.Notes[0].Pitch
	var durSum float64
	channelCounts := map[uint8]int{}
	for _, n := range t.Notes {
		if n.Pitch < lo {
			lo = n.Pitch
		}
		if n.Pitch > hi {
			hi = n.Pitch
		}
		durSum += float64(n.Duration)
		channelCounts[n.Channel]++
	}
	f.PitchRange = int(hi) - int(lo)
	f.MeanDuration = durSum / float64(f.NoteCount)

	var varSum float64
	for _, n := range t.Notes {
		d := float64(n.Duration) - f.MeanDuration
		varSum += d * d
	}
	f.DurationVariance = varSum / float64(f.NoteCount)

	best := -1
	for ch, cnt := range channelCounts {
		if cnt > best || (cnt == best && ch < f.DominantChannel) {
			best = cnt
			f.DominantChannel = ch
		}
	}

	f.PolyphonyRatio = polyphonyRatio(t.Notes)
	return f
}

// polyphonyRatio is the fraction of notes whose onset falls inside
// another note's span.
func polyphonyRatio(notes []event.Note) float64 {
	if len(notes) < 2 {
		return 0
	}
	sorted := append([]event.Note(nil), notes...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	overlapped := 0
	var maxEnd int64
	for i, n := range sorted {
		if i > 0 && n.Start < maxEnd {
			overlapped++
		}
		if e := n.End(); e > maxEnd {
			maxEnd = e
		}
	}
	return float64(overlapped) / float64(len(sorted))
}

// nameHints maps lowercase track-name substrings to a type. Checked in
// a fixed order so overlapping names resolve deterministically.
var nameHints = []struct {
	substrings []string
	t          TrackType
}{
	{[]string{"drum", "perc", "kit", "beat"}, Percussive},
	{[]string{"violin", "viola", "cello", "string", "str."}, Bowed},
	{[]string{"vocal", "vox", "voice", "melody", "lead vox"}, MelodicMono},
	{[]string{"bass"}, MelodicMono},
	{[]string{"guitar", "gtr", "lead", "rhythm", "piano", "keys"}, Polyphonic},
}

func hintFromName(name string) (TrackType, bool) {
	lower := strings.ToLower(name)
	if lower == "" {
		return Unknown, false
	}
	for _, h := range nameHints {
		for _, s := range h.substrings {
			if strings.Contains(lower, s) {
				return h.t, true
			}
		}
	}
	return Unknown, false
}

// hintFromProgram maps General MIDI program numbers to a type.
func hintFromProgram(program int) (TrackType, bool) {
	switch {
	case program < 0:
		return Unknown, false
	case program <= 7: // pianos
		return Polyphonic, true
	case program >= 24 && program <= 31: // guitars
		return Polyphonic, true
	case program >= 32 && program <= 39: // basses
		return MelodicMono, true
	case program >= 40 && program <= 51: // strings and ensembles
		return Bowed, true
	case program >= 52 && program <= 54: // choir voices
		return MelodicMono, true
	case program >= 112: // percussive and effects banks
		return Percussive, true
	default:
		return Unknown, false
	}
}

// Classify determines the track type. Name hints have the highest
// priority, then program hints, then note statistics.
func Classify(t *event.Track) TrackType {
	f := Extract(t)
	if f.DominantChannel == 9 && f.NoteCount > 0 {
		return Percussive
	}
	if tt, ok := hintFromName(t.Name); ok {
		return tt
	}
	if tt, ok := hintFromProgram(t.Program); ok {
		return tt
	}
	return classifyFeatures(f)
}

func classifyFeatures(f Features) TrackType {
	if f.NoteCount == 0 {
		return Unknown
	}
	stddev := math.Sqrt(f.DurationVariance)
	switch {
	// Uniform short hits read as percussion.
	case f.MeanDuration < 100 && stddev < 40:
		return Percussive
	case f.PolyphonyRatio < 0.1 && f.PitchRange <= 24:
		return MelodicMono
	case f.MeanDuration >= 480 && f.PolyphonyRatio >= 0.4:
		return Bowed
	case f.PolyphonyRatio >= 0.3:
		return Polyphonic
	case f.PolyphonyRatio < 0.1:
		return MelodicMono
	default:
		return Unknown
	}
}

// Dominant classifies the track holding the most notes. Documents with
// no notes at all come back Unknown.
func Dominant(doc *event.Document) TrackType {
	best := -1
	bestNotes := 0
	for i := range doc.Tracks {
		if n := len(doc.Tracks[i].Notes); n > bestNotes {
			bestNotes = n
			best = i
		}
	}
	if best < 0 {
		return Unknown
	}
	return Classify(&doc.Tracks[best])
}

// Thresholds are starting-point cleaning parameters for a track type.
type Thresholds struct {
	MinDurationTicks int
	MinVelocity      int
	ClusterWindow    int
}

// SuggestThresholds returns sensible initial cleaning thresholds for a
// track type.
func SuggestThresholds(t TrackType) Thresholds {
	switch t {
	case Percussive:
		return Thresholds{MinDurationTicks: 40, MinVelocity: 8, ClusterWindow: 15}
	case Bowed:
		return Thresholds{MinDurationTicks: 100, MinVelocity: 10, ClusterWindow: 20}
	case MelodicMono:
		return Thresholds{MinDurationTicks: 80, MinVelocity: 10, ClusterWindow: 15}
	case Polyphonic:
		return Thresholds{MinDurationTicks: 120, MinVelocity: 15, ClusterWindow: 25}
	default:
		return Thresholds{MinDurationTicks: 120, MinVelocity: 20, ClusterWindow: 20}
	}
}

// SuggestPreset names the cleaning preset best matched to a track type.
func SuggestPreset(t TrackType) string {
	switch t {
	case Percussive:
		return "drums_preserve"
	case Bowed:
		return "strings_preserve"
	case MelodicMono:
		return "vocals_preserve"
	case Polyphonic:
		return "guitar_preserve"
	default:
		return "fx_preserve"
	}
}
