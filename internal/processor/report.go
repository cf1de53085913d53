package processor

// StageMetrics is the per-stage entry of a processing report. Every stage
// appears exactly once per run, in chain order, whether or not it was
// enabled; a disabled stage reports enabled=false with zero-effect counts.
type StageMetrics struct {
	Name               string   `yaml:"name" json:"name"`
	Enabled            bool     `yaml:"enabled" json:"enabled"`
	DurationMS         int64    `yaml:"duration_ms" json:"duration_ms"`
	InputNoteCount     int      `yaml:"input_note_count" json:"input_note_count"`
	OutputNoteCount    int      `yaml:"output_note_count" json:"output_note_count"`
	NotesRemoved       int      `yaml:"notes_removed" json:"notes_removed"`
	OverlapsResolved   int      `yaml:"overlaps_resolved,omitempty" json:"overlaps_resolved,omitempty"`
	ClustersMerged     int      `yaml:"clusters_merged,omitempty" json:"clusters_merged,omitempty"`
	TempoEventsRemoved int      `yaml:"tempo_events_removed,omitempty" json:"tempo_events_removed,omitempty"`
	TracksMerged       bool     `yaml:"tracks_merged,omitempty" json:"tracks_merged,omitempty"`
	Warnings           []string `yaml:"warnings,omitempty" json:"warnings,omitempty"`
}

// Report is the structured result of one pipeline run.
type Report struct {
	PresetApplied   string         `yaml:"preset_applied,omitempty" json:"preset_applied,omitempty"`
	Steps           []StageMetrics `yaml:"steps" json:"steps"`
	Warnings        []string       `yaml:"warnings,omitempty" json:"warnings,omitempty"`
	InputNoteCount  int            `yaml:"input_note_count" json:"input_note_count"`
	OutputNoteCount int            `yaml:"output_note_count" json:"output_note_count"`
	TotalDurationMS int64          `yaml:"total_duration_ms" json:"total_duration_ms"`
}

// Step returns the metrics entry with the given name, or nil.
func (r *Report) Step(name string) *StageMetrics {
	for i := range r.Steps {
		if r.Steps[i].Name == name {
			return &r.Steps[i]
		}
	}
	return nil
}
