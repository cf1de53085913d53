package processor

import (
	"fmt"
	"sort"
)

// Preset is a named bundle of config overrides for a common cleaning
// goal. Apply mutates only the fields the preset cares about; everything
// else keeps its current value.
type Preset struct {
	Label       string
	Description string
	Apply       func(*Config)
}

// Presets are the built-in cleaning presets, keyed by identifier.
var Presets = map[string]Preset{
	"fx_preserve": {
		Label:       "FX / Preserve",
		Description: "Keep original FX character, only remove obvious noise.",
		Apply: func(c *Config) {
			c.FilterNoise = true
			c.MinDurationTicks = 60
			c.MinVelocity = 3
			c.PitchCluster = PitchClusterConfig{Enabled: true, TimeWindowTicks: 15, PitchThreshold: 1}
			c.SamePitch.Enabled = true
			c.RemoveTriplets = false
			c.Quantize = false
			c.MergeVoices = true
			c.RemoveOverlaps = true
			c.RemoveCC = false
		},
	},
	"fx_cleaner": {
		Label:       "FX / Cleaner",
		Description: "Aggressive FX cleanup: tighter filtering, quantized.",
		Apply: func(c *Config) {
			c.FilterNoise = true
			c.MinDurationTicks = 120
			c.MinVelocity = 15
			c.PitchCluster = PitchClusterConfig{Enabled: true, TimeWindowTicks: 30, PitchThreshold: 1}
			c.SamePitch.Enabled = true
			c.RemoveTriplets = true
			c.Quantize = true
			c.QuantizeGrid = GridEighth
			c.MergeVoices = true
			c.RemoveOverlaps = true
			c.RemoveCC = true
			c.CCNumbers = []int{64, 68}
		},
	},
	"strings_preserve": {
		Label:       "Strings / Preserve",
		Description: "Keep legato phrasing and polyphony, gentle noise removal.",
		Apply: func(c *Config) {
			c.FilterNoise = true
			c.MinDurationTicks = 80
			c.MinVelocity = 5
			c.PitchCluster = PitchClusterConfig{Enabled: true, TimeWindowTicks: 10, PitchThreshold: 1}
			c.SamePitch.Enabled = true
			c.RemoveTriplets = false
			c.Quantize = false
			c.MergeVoices = false
			c.RemoveOverlaps = true
			c.RemoveCC = false
		},
	},
	"strings_cleaner": {
		Label:       "Strings / Cleaner",
		Description: "Tighter string cleanup: reduce noise, merge voices.",
		Apply: func(c *Config) {
			c.FilterNoise = true
			c.MinDurationTicks = 120
			c.MinVelocity = 12
			c.PitchCluster = PitchClusterConfig{Enabled: true, TimeWindowTicks: 20, PitchThreshold: 1}
			c.SamePitch.Enabled = true
			c.RemoveTriplets = true
			c.Quantize = true
			c.QuantizeGrid = GridEighth
			c.MergeVoices = true
			c.RemoveOverlaps = true
			c.RemoveCC = true
			c.CCNumbers = []int{64, 68}
		},
	},
	"vocals_preserve": {
		Label:       "Vocals / Preserve",
		Description: "Keep the melody intact: minimal filtering, no quantization.",
		Apply: func(c *Config) {
			c.FilterNoise = true
			c.MinDurationTicks = 60
			c.MinVelocity = 5
			c.PitchCluster = PitchClusterConfig{Enabled: true, TimeWindowTicks: 10, PitchThreshold: 0}
			c.SamePitch.Enabled = true
			c.RemoveTriplets = false
			c.Quantize = false
			c.MergeVoices = true
			c.RemoveOverlaps = true
			c.RemoveCC = false
		},
	},
	"guitar_preserve": {
		Label:       "Guitar / Preserve",
		Description: "Remove short artifacts, keep note feel.",
		Apply: func(c *Config) {
			c.FilterNoise = true
			c.MinDurationTicks = 100
			c.MinVelocity = 10
			c.PitchCluster = PitchClusterConfig{Enabled: true, TimeWindowTicks: 20, PitchThreshold: 1}
			c.SamePitch.Enabled = true
			c.RemoveTriplets = false
			c.Quantize = false
			c.MergeVoices = true
			c.RemoveOverlaps = true
			c.RemoveCC = true
			c.CCNumbers = []int{64, 68}
		},
	},
	"bass_preserve": {
		Label:       "Bass / Preserve",
		Description: "Remove ghost notes, keep timing.",
		Apply: func(c *Config) {
			c.FilterNoise = true
			c.MinDurationTicks = 100
			c.MinVelocity = 12
			c.PitchCluster = PitchClusterConfig{Enabled: true, TimeWindowTicks: 20, PitchThreshold: 1}
			c.SamePitch.Enabled = true
			c.RemoveTriplets = false
			c.Quantize = false
			c.MergeVoices = true
			c.RemoveOverlaps = true
			c.RemoveCC = true
			c.CCNumbers = []int{64, 68}
		},
	},
	"drums_preserve": {
		Label:       "Drums / Preserve",
		Description: "Keep hits: very short minimum duration, low velocity floor.",
		Apply: func(c *Config) {
			c.FilterNoise = true
			c.MinDurationTicks = 30
			c.MinVelocity = 5
			c.PitchCluster.Enabled = false
			c.SamePitch.Enabled = true
			c.RemoveTriplets = false
			c.Quantize = false
			c.MergeVoices = false
			c.RemoveOverlaps = true
			c.RemoveCC = true
		},
	},
}

// PresetNames returns the available preset identifiers, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyPreset returns the config with the named preset's overrides applied.
func ApplyPreset(cfg Config, name string) (Config, error) {
	p, ok := Presets[name]
	if !ok {
		return cfg, fmt.Errorf("unknown preset %q", name)
	}
	p.Apply(&cfg)
	return cfg, nil
}
