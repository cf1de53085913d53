// Package tuner searches for cleaning parameters that maximize a
// quality score over repeated pipeline trials. Each trial runs the full
// chain on a fresh copy of the document; the source document is never
// touched. An optional oracle is consulted when the search stalls.
package tuner

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/maximgrigorov/midi-cleaner/internal/classify"
	"github.com/maximgrigorov/midi-cleaner/internal/event"
	"github.com/maximgrigorov/midi-cleaner/internal/oracle"
	"github.com/maximgrigorov/midi-cleaner/internal/processor"
)

// Session states.
const (
	StateIdle    = "idle"
	StateRunning = "running"
	StateDone    = "done"
	StateError   = "error"
)

// Defaults for options left zero, and the trial budget bounds.
const (
	DefaultMaxTrials      = 40
	MinMaxTrials          = 5
	MaxMaxTrials          = 100
	DefaultStallRounds    = 2
	DefaultMaxOracleCalls = 3
)

// Options configure a tuning session.
type Options struct {
	MaxTrials      int
	StallRounds    int // trials without a new best before asking the oracle
	MaxOracleCalls int
	Seed           int64
	Advisor        oracle.Advisor // nil disables the oracle
	Strategy       string         // "" / "random" or "mayfly"
}

func (o *Options) fill() {
	if o.MaxTrials <= 0 {
		o.MaxTrials = DefaultMaxTrials
	}
	if o.MaxTrials < MinMaxTrials {
		o.MaxTrials = MinMaxTrials
	}
	if o.MaxTrials > MaxMaxTrials {
		o.MaxTrials = MaxMaxTrials
	}
	if o.StallRounds <= 0 {
		o.StallRounds = DefaultStallRounds
	}
	if o.MaxOracleCalls <= 0 {
		o.MaxOracleCalls = DefaultMaxOracleCalls
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	if o.Strategy == "" {
		o.Strategy = StrategyRandom
	}
}

// Trial is one completed pipeline run and its score.
type Trial struct {
	Number  int     `json:"number" yaml:"number"`
	Score   float64 `json:"score" yaml:"score"`
	Params  Params  `json:"params" yaml:"params"`
	Failed  bool    `json:"failed,omitempty" yaml:"failed,omitempty"`
	FromLLM bool    `json:"from_llm,omitempty" yaml:"from_llm,omitempty"`
}

// Status is a point-in-time snapshot of a session.
type Status struct {
	State           string            `json:"state" yaml:"state"`
	CurrentTrial    int               `json:"current_trial" yaml:"current_trial"`
	MaxTrials       int               `json:"max_trials" yaml:"max_trials"`
	TrackType       string            `json:"track_type" yaml:"track_type"`
	BaselineScore   float64           `json:"baseline_score" yaml:"baseline_score"`
	BestScore       float64           `json:"best_score" yaml:"best_score"`
	BestParams      Params            `json:"best_params" yaml:"best_params"`
	CurrentParams   Params            `json:"current_params" yaml:"current_params"`
	StopReason      string            `json:"stop_reason,omitempty" yaml:"stop_reason,omitempty"`
	Error           string            `json:"error,omitempty" yaml:"error,omitempty"`
	Trials          []Trial           `json:"trials,omitempty" yaml:"trials,omitempty"`
	OracleDecisions []oracle.Decision `json:"oracle_decisions,omitempty" yaml:"oracle_decisions,omitempty"`
}

// Session runs one tuning search over a document. A session is
// single-flight: Start fails while a run is in progress.
type Session struct {
	doc  *event.Document
	base processor.Config
	opts Options
	log  *zap.Logger

	mu          sync.Mutex
	state       string
	status      Status
	cancel      context.CancelFunc
	done        chan struct{}
	trackType   classify.TrackType
	baseMetrics Metrics
	bestNotes   int
}

// NewSession prepares a session over the document. The document is
// cloned once up front so later caller mutations cannot leak into
// trials.
func NewSession(doc *event.Document, base processor.Config, opts Options, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	opts.fill()
	return &Session{
		doc:   doc.Clone(),
		base:  base,
		opts:  opts,
		log:   log,
		state: StateIdle,
	}
}

// Start launches the trial loop in the background. It returns an error
// if a run is already in progress.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		return fmt.Errorf("tuning already in progress")
	}
	if err := s.base.Validate(); err != nil {
		return fmt.Errorf("invalid base config: %v", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.state = StateRunning
	s.trackType = classify.Dominant(s.doc)

	baseline, metrics := Score(s.doc)
	s.baseMetrics = metrics
	s.bestNotes = 0
	s.status = Status{
		State:         StateRunning,
		MaxTrials:     s.opts.MaxTrials,
		TrackType:     s.trackType.String(),
		BaselineScore: baseline,
		BestScore:     baseline,
	}

	go s.run(runCtx, baseline, s.done)
	return nil
}

// Cancel stops a running session. The stop reason is reported as
// cancelled.
func (s *Session) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the current run finishes. It returns immediately if
// no run was started.
func (s *Session) Wait() {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Status returns a snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.status
	st.Trials = append([]Trial(nil), s.status.Trials...)
	st.OracleDecisions = append([]oracle.Decision(nil), s.status.OracleDecisions...)
	return st
}

func (s *Session) run(ctx context.Context, baseline float64, done chan struct{}) {
	defer func() {
		s.mu.Lock()
		// A restarted session owns fresh channels; only clear ours.
		if s.done == done {
			s.cancel = nil
		}
		s.mu.Unlock()
		close(done)
	}()

	if s.opts.Strategy == StrategyMayfly {
		s.runMayfly(ctx, baseline)
		return
	}

	rng := rand.New(rand.NewSource(s.opts.Seed))
	smp := newSampler(s.trackType, rng)
	policy := newStopPolicy(baseline, s.opts.MaxTrials)

	var pending *Params // oracle-seeded candidate for the next trial
	oracleCalls := 0
	sinceBest := 0
	stopReason := StopMaxTrials

	for trial := 1; ; trial++ {
		if ctx.Err() != nil {
			stopReason = StopCancelled
			break
		}

		var params Params
		fromLLM := false
		if pending != nil {
			params = *pending
			pending = nil
			fromLLM = true
		} else {
			params = smp.next()
		}

		s.mu.Lock()
		s.status.CurrentTrial = trial
		s.status.CurrentParams = params
		s.mu.Unlock()

		score, notes, failed := s.trial(params)
		t := Trial{Number: trial, Score: score, Params: params, Failed: failed, FromLLM: fromLLM}

		s.mu.Lock()
		s.status.Trials = append(s.status.Trials, t)
		improved := !failed && score > s.status.BestScore
		if improved {
			s.status.BestScore = score
			s.status.BestParams = params
			s.bestNotes = notes
		}
		best := s.status.BestScore
		s.mu.Unlock()

		if improved {
			sinceBest = 0
		} else {
			sinceBest++
		}

		// A failed trial counts as a flat round, not a score decline.
		policyScore := score
		if failed {
			policyScore = best
		}
		reason, stop := policy.observe(policyScore)
		if stop {
			stopReason = reason
			break
		}

		if sinceBest >= s.opts.StallRounds && s.opts.Advisor != nil && oracleCalls < s.opts.MaxOracleCalls {
			oracleCalls++
			if p := s.consult(ctx, oracleCalls); p != nil {
				seeded := smp.applyPatch(s.bestParams(), p)
				pending = &seeded
				sinceBest = 0
			}
		}
	}

	s.finish(stopReason, nil)
}

// trial runs one full pipeline pass on a copy and scores the result. A
// panic inside the chain fails the trial rather than the session.
func (s *Session) trial(params Params) (score float64, notes int, failed bool) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("trial failed", zap.Any("panic", r))
			score = math.Inf(-1)
			failed = true
		}
	}()
	cfg := params.apply(s.base)
	pipe := processor.New(cfg, s.log)
	cleaned, _, err := pipe.Run(s.doc)
	if err != nil {
		s.log.Warn("trial failed", zap.Error(err))
		return math.Inf(-1), 0, true
	}
	score, _ = Score(cleaned)
	return score, cleaned.NoteCount(), false
}

// consult asks the oracle for a parameter patch, recording the decision
// either way. A failed or unparseable answer returns nil.
func (s *Session) consult(ctx context.Context, call int) *oracle.Patch {
	oc := s.oracleContext()
	patch, err := s.opts.Advisor.Suggest(ctx, oc)
	dec := oracle.Decision{CallNumber: call}
	if err != nil {
		dec.Error = err.Error()
		s.log.Warn("oracle call failed", zap.Int("call", call), zap.Error(err))
	} else {
		dec.ParsedOK = true
		if data, merr := json.Marshal(patch); merr == nil {
			dec.SuggestedChanges = string(data)
		}
	}
	s.mu.Lock()
	s.status.OracleDecisions = append(s.status.OracleDecisions, dec)
	s.mu.Unlock()
	if err != nil {
		return nil
	}
	return patch
}

func (s *Session) oracleContext() oracle.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	oc := oracle.Context{
		TrackType:   s.status.TrackType,
		BestScore:   s.status.BestScore,
		NotesBefore: s.doc.NoteCount(),
		NotesAfter:  s.bestNotes,
	}
	if s.baseMetrics.ShortNoteRatio > 0.2 {
		oc.TopIssues = append(oc.TopIssues, "high short-note ratio")
	}
	if s.baseMetrics.OverlapCount > 0 {
		oc.TopIssues = append(oc.TopIssues, "same-pitch overlaps")
	}
	if s.baseMetrics.VoiceCount > 1 {
		oc.TopIssues = append(oc.TopIssues, "notes spread over multiple channels")
	}
	trials := s.status.Trials
	lo := len(trials) - 5
	if lo < 0 {
		lo = 0
	}
	for _, t := range trials[lo:] {
		oc.RecentTrials = append(oc.RecentTrials, oracle.TrialSummary{
			Trial:       t.Number,
			Score:       t.Score,
			MinDuration: t.Params.MinDuration,
			MinVelocity: t.Params.MinVelocity,
		})
	}
	return oc
}

func (s *Session) bestParams() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status.BestParams
}

func (s *Session) finish(stopReason string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateError
		s.status.State = StateError
		s.status.Error = err.Error()
	} else {
		s.state = StateDone
		s.status.State = StateDone
	}
	s.status.StopReason = stopReason
	s.log.Info("tuning finished",
		zap.String("stop_reason", stopReason),
		zap.Int("trials", len(s.status.Trials)),
		zap.Float64("baseline", s.status.BaselineScore),
		zap.Float64("best", s.status.BestScore))
}

// Apply reruns the pipeline on the original document with the best
// parameters found. Valid once the session is done; with no improving
// trial the baseline config is effectively returned unchanged.
func (s *Session) Apply(doc *event.Document) (*event.Document, *processor.Report, error) {
	s.mu.Lock()
	state := s.state
	params := s.status.BestParams
	improved := s.status.BestScore > s.status.BaselineScore
	s.mu.Unlock()

	if state == StateRunning {
		return nil, nil, fmt.Errorf("tuning still in progress")
	}
	cfg := s.base
	if improved {
		cfg = params.apply(s.base)
	}
	pipe := processor.New(cfg, s.log)
	return pipe.Run(doc)
}
