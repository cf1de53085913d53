package processor

import "testing"

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.PitchCluster.TimeWindowTicks != 20 || cfg.PitchCluster.PitchThreshold != 1 {
		t.Errorf("pitch cluster defaults = %+v", cfg.PitchCluster)
	}
	if cfg.MinDurationTicks != 120 || cfg.MinVelocity != 20 {
		t.Errorf("noise defaults = %d/%d, want 120/20", cfg.MinDurationTicks, cfg.MinVelocity)
	}
	if cfg.QuantizeGrid != GridEighth {
		t.Errorf("quantize grid = %q, want eighth", cfg.QuantizeGrid)
	}
	if len(cfg.CCNumbers) != 2 || cfg.CCNumbers[0] != 64 || cfg.CCNumbers[1] != 68 {
		t.Errorf("cc numbers = %v, want [64 68]", cfg.CCNumbers)
	}
}

func TestValidateRanges(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"tolerance too high", func(c *Config) { c.TripletTolerance = 0.5 }},
		{"tolerance too low", func(c *Config) { c.TripletTolerance = 0.01 }},
		{"min duration too high", func(c *Config) { c.MinDurationTicks = 1000 }},
		{"negative min duration", func(c *Config) { c.MinDurationTicks = -1 }},
		{"velocity over range", func(c *Config) { c.MinVelocity = 200 }},
		{"start bar zero", func(c *Config) { c.StartBar = 0 }},
		{"unknown grid", func(c *Config) { c.QuantizeGrid = "thirtysecond" }},
		{"unknown override grid", func(c *Config) {
			bad := Grid("half")
			c.TrackOverrides = map[int]*TrackOverride{1: {QuantizeGrid: &bad}}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate accepted an out-of-range config")
			}
		})
	}
}

func TestGridDivisions(t *testing.T) {
	for grid, want := range map[Grid]int{GridQuarter: 1, GridEighth: 2, GridSixteenth: 4} {
		got, err := grid.Divisions()
		if err != nil || got != want {
			t.Errorf("%s.Divisions() = %d, %v; want %d", grid, got, err, want)
		}
	}
	if _, err := Grid("half").Divisions(); err == nil {
		t.Error("unknown grid accepted")
	}
}

func TestForTrackOverlay(t *testing.T) {
	cfg := DefaultConfig()
	minDur := 60
	quantize := false
	cfg.TrackOverrides = map[int]*TrackOverride{
		2: {MinDurationTicks: &minDur, Quantize: &quantize},
	}

	tc := cfg.ForTrack(2)
	if tc.MinDurationTicks != 60 {
		t.Errorf("overridden min duration = %d, want 60", tc.MinDurationTicks)
	}
	if tc.Quantize {
		t.Error("overridden quantize still enabled")
	}
	if tc.MinVelocity != cfg.MinVelocity {
		t.Errorf("untouched field changed: %d", tc.MinVelocity)
	}

	other := cfg.ForTrack(1)
	if other.MinDurationTicks != cfg.MinDurationTicks {
		t.Errorf("track without override got %d", other.MinDurationTicks)
	}
}

func TestForTrackNestedOverride(t *testing.T) {
	cfg := DefaultConfig()
	cluster := PitchClusterConfig{Enabled: false}
	cfg.TrackOverrides = map[int]*TrackOverride{0: {PitchCluster: &cluster}}
	if cfg.ForTrack(0).PitchCluster.Enabled {
		t.Error("nested struct override not applied")
	}
	if !cfg.PitchCluster.Enabled {
		t.Error("base config mutated by overlay")
	}
}

func TestBypassed(t *testing.T) {
	cfg := DefaultConfig()
	yes, no := true, false
	cfg.TrackOverrides = map[int]*TrackOverride{
		1: {Bypass: &yes},
		2: {Bypass: &no},
	}
	if !cfg.Bypassed(1) {
		t.Error("track 1 should be bypassed")
	}
	if cfg.Bypassed(2) || cfg.Bypassed(3) {
		t.Error("tracks 2 and 3 should not be bypassed")
	}
}

func TestApplyPreset(t *testing.T) {
	cfg, err := ApplyPreset(DefaultConfig(), "drums_preserve")
	if err != nil {
		t.Fatalf("ApplyPreset: %v", err)
	}
	if cfg.MinDurationTicks != 30 || cfg.PitchCluster.Enabled {
		t.Errorf("drums preset gave min duration %d, cluster enabled %v", cfg.MinDurationTicks, cfg.PitchCluster.Enabled)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("preset produced invalid config: %v", err)
	}

	if _, err := ApplyPreset(DefaultConfig(), "nonexistent"); err == nil {
		t.Error("unknown preset accepted")
	}
}

func TestAllPresetsValid(t *testing.T) {
	for _, name := range PresetNames() {
		cfg, err := ApplyPreset(DefaultConfig(), name)
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("%s produces invalid config: %v", name, err)
		}
	}
}
