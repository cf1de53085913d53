package processor

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/maximgrigorov/midi-cleaner/internal/event"
)

// Stage names, in chain order. The report always lists all of them.
const (
	StageTempoDedup       = "tempo_dedup"
	StagePitchCluster     = "pitch_cluster"
	StageVoiceMerge       = "voice_merge"
	StageCCFilter         = "cc_filter"
	StageTripletRemove    = "triplet_remove"
	StageQuantize         = "quantize"
	StageNoiseFilter      = "noise_filter"
	StageSamePitchOverlap = "same_pitch_overlap"
	StageChordAlign       = "chord_align"
	StageMetaCleanup      = "meta_cleanup"
	StageTrackFlatten     = "track_flatten"
)

// StageOrder is the fixed execution order of the chain.
var StageOrder = []string{
	StageTempoDedup,
	StagePitchCluster,
	StageVoiceMerge,
	StageCCFilter,
	StageTripletRemove,
	StageQuantize,
	StageNoiseFilter,
	StageSamePitchOverlap,
	StageChordAlign,
	StageMetaCleanup,
	StageTrackFlatten,
}

// Pipeline runs the cleaning chain over one document. Stages execute in
// fixed order regardless of toggles; disabled stages still show up in the
// report with enabled=false and pass-through counts. The input document
// is never mutated; Run works on a deep copy.
type Pipeline struct {
	cfg    Config
	preset string
	log    *zap.Logger
}

// New builds a pipeline for the given configuration. A nil logger is
// replaced by a no-op one.
func New(cfg Config, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, log: log}
}

// SetPreset records the name of the preset the config was derived from,
// for the report only.
func (p *Pipeline) SetPreset(name string) {
	p.preset = name
}

type trackState struct {
	notes    []event.Note
	controls []event.Control
}

// Run processes the document and returns the cleaned copy plus a report.
func (p *Pipeline) Run(doc *event.Document) (*event.Document, *Report, error) {
	if err := p.cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %v", err)
	}
	runStart := time.Now()
	cfg := p.cfg
	out := doc.Clone()

	rep := &Report{
		PresetApplied:  p.preset,
		InputNoteCount: out.NoteCount(),
		Steps:          p.newSteps(),
	}
	steps := make(map[string]*StageMetrics, len(rep.Steps))
	for i := range rep.Steps {
		steps[rep.Steps[i].Name] = &rep.Steps[i]
	}

	tpb := int64(out.TicksPerBeat)
	var sigs []event.TimeSig
	if len(out.Tracks) > 0 {
		sigs = out.Tracks[out.ConductorIndex()].TimeSigs
	}
	bars := newBarMap(tpb, sigs)
	startTick := bars.TickAtBar(cfg.StartBar - 1)

	// Tempo deduplication runs over every track, conductor included.
	p.runStage(steps[StageTempoDedup], out.NoteCount(), func(m *StageMetrics) int {
		if !cfg.TempoDedup.Enabled {
			return out.NoteCount()
		}
		for i := range out.Tracks {
			kept, removed := dedupTempo(out.Tracks[i].Tempos)
			out.Tracks[i].Tempos = kept
			m.TempoEventsRemoved += removed
		}
		return out.NoteCount()
	})

	for i := range out.Tracks {
		t := &out.Tracks[i]
		if !t.HasNotes() {
			continue
		}
		if cfg.Bypassed(i) {
			p.log.Debug("track bypassed by override", zap.Int("track", i))
			continue
		}
		tc := cfg.ForTrack(i)

		held, st := splitAtTick(t, startTick)

		whole := func() int { return len(held.notes) + len(st.notes) }

		p.runStage(steps[StagePitchCluster], whole(), func(m *StageMetrics) int {
			if tc.PitchCluster.Enabled {
				p.guard(m, func() {
					var merged int
					st.notes, merged = clusterNotes(st.notes, tc.PitchCluster.TimeWindowTicks, tc.PitchCluster.PitchThreshold)
					m.ClustersMerged += merged
				})
			}
			return whole()
		})
		p.runStage(steps[StageVoiceMerge], whole(), func(m *StageMetrics) int {
			if tc.MergeVoices {
				p.guard(m, func() {
					var overlaps int
					st.notes, st.controls, overlaps = mergeVoices(st.notes, st.controls, tc.RemoveOverlaps)
					m.OverlapsResolved += overlaps
				})
			}
			return whole()
		})
		p.runStage(steps[StageCCFilter], whole(), func(m *StageMetrics) int {
			if tc.RemoveCC {
				p.guard(m, func() {
					st.controls, _ = filterControls(st.controls, tc.CCNumbers)
				})
			}
			return whole()
		})
		p.runStage(steps[StageTripletRemove], whole(), func(m *StageMetrics) int {
			if tc.RemoveTriplets {
				p.guard(m, func() {
					st.notes, _ = removeTriplets(st.notes, tpb, tc.TripletTolerance)
				})
			}
			return whole()
		})
		p.runStage(steps[StageQuantize], whole(), func(m *StageMetrics) int {
			if tc.Quantize {
				p.guard(m, func() {
					// Overrides may put this track on its own grid.
					divisions, _ := tc.QuantizeGrid.Divisions()
					var warnings []string
					st.notes, _, warnings = quantizeNotes(st.notes, tpb, divisions, bars)
					m.Warnings = append(m.Warnings, warnings...)
				})
			}
			return whole()
		})
		p.runStage(steps[StageNoiseFilter], whole(), func(m *StageMetrics) int {
			if tc.FilterNoise {
				p.guard(m, func() {
					st.notes, _ = filterNoise(st.notes, tc.MinDurationTicks, tc.MinVelocity)
				})
			}
			return whole()
		})
		p.runStage(steps[StageSamePitchOverlap], whole(), func(m *StageMetrics) int {
			if tc.SamePitch.Enabled {
				p.guard(m, func() {
					var resolved int
					st.notes, resolved = resolveSamePitch(st.notes)
					m.OverlapsResolved += resolved
				})
			}
			return whole()
		})
		p.runStage(steps[StageChordAlign], whole(), func(m *StageMetrics) int {
			if tc.MergeVoices {
				p.guard(m, func() {
					st.notes, _ = alignChords(st.notes)
					if tc.SamePitch.Enabled {
						// Stretching chord members can recreate
						// same-pitch overlaps the resolver already
						// cleared; settle them here so a second run
						// has nothing left to remove.
						var resolved int
						st.notes, resolved = resolveSamePitch(st.notes)
						m.OverlapsResolved += resolved
					}
				})
			}
			return whole()
		})

		rejoin(t, held, st)
	}

	p.runStage(steps[StageMetaCleanup], out.NoteCount(), func(m *StageMetrics) int {
		m.TempoEventsRemoved += cleanupMeta(out)
		return out.NoteCount()
	})
	p.runStage(steps[StageTrackFlatten], out.NoteCount(), func(m *StageMetrics) int {
		if cfg.MergeTracks.Enabled {
			m.TracksMerged = flattenTracks(out, cfg.MergeTracks.IncludeCC, cfg.MergeTracks.CCWhitelist)
		}
		return out.NoteCount()
	})

	rep.OutputNoteCount = out.NoteCount()
	rep.TotalDurationMS = time.Since(runStart).Milliseconds()
	for i := range rep.Steps {
		rep.Warnings = append(rep.Warnings, rep.Steps[i].Warnings...)
	}

	p.log.Info("pipeline run complete",
		zap.Int("input_notes", rep.InputNoteCount),
		zap.Int("output_notes", rep.OutputNoteCount),
		zap.Int64("duration_ms", rep.TotalDurationMS),
		zap.Int("warnings", len(rep.Warnings)))
	return out, rep, nil
}

func (p *Pipeline) newSteps() []StageMetrics {
	cfg := p.cfg
	enabled := map[string]bool{
		StageTempoDedup:       cfg.TempoDedup.Enabled,
		StagePitchCluster:     cfg.PitchCluster.Enabled,
		StageVoiceMerge:       cfg.MergeVoices,
		StageCCFilter:         cfg.RemoveCC,
		StageTripletRemove:    cfg.RemoveTriplets,
		StageQuantize:         cfg.Quantize,
		StageNoiseFilter:      cfg.FilterNoise,
		StageSamePitchOverlap: cfg.SamePitch.Enabled,
		StageChordAlign:       cfg.MergeVoices,
		StageMetaCleanup:      true,
		StageTrackFlatten:     cfg.MergeTracks.Enabled,
	}
	steps := make([]StageMetrics, len(StageOrder))
	for i, name := range StageOrder {
		steps[i] = StageMetrics{Name: name, Enabled: enabled[name]}
	}
	return steps
}

// runStage times one stage invocation and folds note counts into the
// shared per-stage metrics entry. Called once per track for per-track
// stages, so counts and durations accumulate.
func (p *Pipeline) runStage(m *StageMetrics, inputNotes int, fn func(*StageMetrics) int) {
	stageStart := time.Now()
	outputNotes := fn(m)
	m.DurationMS += time.Since(stageStart).Milliseconds()
	m.InputNoteCount += inputNotes
	m.OutputNoteCount += outputNotes
	m.NotesRemoved = m.InputNoteCount - m.OutputNoteCount
	if m.NotesRemoved < 0 {
		m.NotesRemoved = 0
	}
}

// guard confines a stage-local failure to the stage: the panic becomes a
// warning, the track's events stay as they were, and the chain continues.
func (p *Pipeline) guard(m *StageMetrics, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("stage %s failed, events left unmodified: %v", m.Name, r)
			m.Warnings = append(m.Warnings, msg)
			p.log.Warn("stage failure contained", zap.String("stage", m.Name), zap.Any("panic", r))
		}
	}()
	fn()
}

// splitAtTick holds back everything before the processing start tick so
// earlier bars pass through untouched.
func splitAtTick(t *event.Track, tick int64) (trackState, *trackState) {
	var held trackState
	st := &trackState{}
	if tick <= 0 {
		st.notes = append([]event.Note(nil), t.Notes...)
		st.controls = append([]event.Control(nil), t.Controls...)
		return held, st
	}
	for _, n := range t.Notes {
		if n.Start < tick {
			held.notes = append(held.notes, n)
		} else {
			st.notes = append(st.notes, n)
		}
	}
	for _, c := range t.Controls {
		if c.Tick < tick {
			held.controls = append(held.controls, c)
		} else {
			st.controls = append(st.controls, c)
		}
	}
	return held, st
}

func rejoin(t *event.Track, held trackState, st *trackState) {
	t.Notes = append(held.notes, st.notes...)
	t.Controls = append(held.controls, st.controls...)
	t.SortNotes()
}
