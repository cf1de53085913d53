// Package processor cleans MIDI documents through a fixed chain of
// stages: tempo dedup, pitch clustering, voice merging, CC filtering,
// triplet removal, quantization, noise filtering, overlap resolution,
// chord alignment, meta cleanup and optional track flattening.
package processor

import "fmt"

// Grid names a quantization grid.
type Grid string

const (
	GridQuarter   Grid = "quarter"
	GridEighth    Grid = "eighth"
	GridSixteenth Grid = "sixteenth"
)

// Divisions is the number of grid steps per beat.
func (g Grid) Divisions() (int, error) {
	switch g {
	case GridQuarter:
		return 1, nil
	case GridEighth:
		return 2, nil
	case GridSixteenth:
		return 4, nil
	default:
		return 0, fmt.Errorf("unknown quantize grid %q", string(g))
	}
}

// TempoDedupConfig controls tempo-event deduplication.
type TempoDedupConfig struct {
	Enabled bool `yaml:"enabled"`
}

// PitchClusterConfig controls merging of near-simultaneous
// near-pitch note clusters.
type PitchClusterConfig struct {
	Enabled         bool `yaml:"enabled"`
	TimeWindowTicks int  `yaml:"time_window_ticks"`
	PitchThreshold  int  `yaml:"pitch_threshold"`
}

// SamePitchConfig controls same-pitch overlap resolution.
type SamePitchConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MergeTracksConfig controls flattening all tracks into one.
type MergeTracksConfig struct {
	Enabled     bool  `yaml:"enabled"`
	IncludeCC   bool  `yaml:"include_cc"`
	CCWhitelist []int `yaml:"cc_whitelist,omitempty"`
}

// Config is the full cleaning configuration. Zero values are not
// meaningful defaults; start from DefaultConfig.
type Config struct {
	TempoDedup TempoDedupConfig `yaml:"tempo_dedup"`

	PitchCluster PitchClusterConfig `yaml:"pitch_cluster"`

	MergeVoices    bool            `yaml:"merge_voices"`
	RemoveOverlaps bool            `yaml:"remove_overlaps"`
	SamePitch      SamePitchConfig `yaml:"same_pitch_resolver"`

	RemoveCC  bool  `yaml:"remove_cc"`
	CCNumbers []int `yaml:"cc_numbers,omitempty"`

	RemoveTriplets   bool    `yaml:"remove_triplets"`
	TripletTolerance float64 `yaml:"triplet_tolerance"`

	Quantize     bool `yaml:"quantize"`
	QuantizeGrid Grid `yaml:"quantize_grid"`

	FilterNoise      bool `yaml:"filter_noise"`
	MinDurationTicks int  `yaml:"min_duration_ticks"`
	MinVelocity      int  `yaml:"min_velocity"`

	StartBar int `yaml:"start_bar"`

	MergeTracks MergeTracksConfig `yaml:"merge_tracks"`

	TrackOverrides map[int]*TrackOverride `yaml:"track_overrides,omitempty"`
}

// TrackOverride overrides selected config fields for a single track.
// Nil fields keep the document-wide value. Bypass skips the per-track
// chain entirely.
type TrackOverride struct {
	Bypass *bool `yaml:"bypass,omitempty"`

	PitchCluster *PitchClusterConfig `yaml:"pitch_cluster,omitempty"`

	MergeVoices    *bool            `yaml:"merge_voices,omitempty"`
	RemoveOverlaps *bool            `yaml:"remove_overlaps,omitempty"`
	SamePitch      *SamePitchConfig `yaml:"same_pitch_resolver,omitempty"`

	RemoveCC  *bool  `yaml:"remove_cc,omitempty"`
	CCNumbers *[]int `yaml:"cc_numbers,omitempty"`

	RemoveTriplets   *bool    `yaml:"remove_triplets,omitempty"`
	TripletTolerance *float64 `yaml:"triplet_tolerance,omitempty"`

	Quantize     *bool `yaml:"quantize,omitempty"`
	QuantizeGrid *Grid `yaml:"quantize_grid,omitempty"`

	FilterNoise      *bool `yaml:"filter_noise,omitempty"`
	MinDurationTicks *int  `yaml:"min_duration_ticks,omitempty"`
	MinVelocity      *int  `yaml:"min_velocity,omitempty"`
}

// DefaultConfig returns the stock cleaning configuration.
func DefaultConfig() Config {
	return Config{
		TempoDedup: TempoDedupConfig{Enabled: true},
		PitchCluster: PitchClusterConfig{
			Enabled:         true,
			TimeWindowTicks: 20,
			PitchThreshold:  1,
		},
		MergeVoices:      true,
		RemoveOverlaps:   true,
		SamePitch:        SamePitchConfig{Enabled: true},
		RemoveCC:         true,
		CCNumbers:        []int{64, 68},
		RemoveTriplets:   true,
		TripletTolerance: 0.15,
		Quantize:         true,
		QuantizeGrid:     GridEighth,
		FilterNoise:      true,
		MinDurationTicks: 120,
		MinVelocity:      20,
		StartBar:         1,
	}
}

// Validate checks value ranges. Overrides are validated after overlay,
// not here.
func (c *Config) Validate() error {
	if c.TripletTolerance < 0.05 || c.TripletTolerance > 0.30 {
		return fmt.Errorf("triplet_tolerance %v out of range [0.05, 0.30]", c.TripletTolerance)
	}
	if c.MinDurationTicks < 0 || c.MinDurationTicks > 480 {
		return fmt.Errorf("min_duration_ticks %v out of range [0, 480]", c.MinDurationTicks)
	}
	if c.MinVelocity < 0 || c.MinVelocity > 127 {
		return fmt.Errorf("min_velocity %v out of range [0, 127]", c.MinVelocity)
	}
	if c.StartBar < 1 {
		return fmt.Errorf("start_bar %v must be at least 1", c.StartBar)
	}
	if c.Quantize {
		if _, err := c.QuantizeGrid.Divisions(); err != nil {
			return err
		}
	}
	for track, ov := range c.TrackOverrides {
		if ov == nil || ov.QuantizeGrid == nil {
			continue
		}
		if _, err := ov.QuantizeGrid.Divisions(); err != nil {
			return fmt.Errorf("track %d override: %v", track, err)
		}
	}
	return nil
}

// ForTrack returns the config with the track's override overlaid.
func (c *Config) ForTrack(track int) Config {
	ov, ok := c.TrackOverrides[track]
	if !ok || ov == nil {
		return *c
	}
	return Overlay(*c, ov)
}

// Bypassed reports whether the track's override disables cleaning
// entirely.
func (c *Config) Bypassed(track int) bool {
	ov, ok := c.TrackOverrides[track]
	return ok && ov != nil && ov.Bypass != nil && *ov.Bypass
}
