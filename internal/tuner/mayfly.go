package tuner

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"

	"github.com/cwbudde/mayfly"
	"go.uber.org/zap"
)

// Search strategies.
const (
	StrategyRandom = "random"
	StrategyMayfly = "mayfly"
)

// paramDef maps one normalized optimizer dimension onto a tunable
// parameter. Booleans cross at 0.5.
type paramDef struct {
	name   string
	min    float64
	max    float64
	isInt  bool
	isBool bool
}

func paramDefs(r ranges) []paramDef {
	return []paramDef{
		{name: "min_duration", min: float64(r.minDuration.lo), max: float64(r.minDuration.hi), isInt: true},
		{name: "min_velocity", min: float64(r.minVelocity.lo), max: float64(r.minVelocity.hi), isInt: true},
		{name: "cluster_window", min: float64(r.window.lo), max: float64(r.window.hi), isInt: true},
		{name: "cluster_pitch", min: float64(r.pitch.lo), max: float64(r.pitch.hi), isInt: true},
		{name: "triplet_tolerance", min: r.tolLo, max: r.tolHi},
		{name: "quantize", isBool: true},
		{name: "remove_triplets", isBool: true},
		{name: "merge_voices", isBool: true},
		{name: "same_pitch_resolver", isBool: true},
	}
}

func paramsFromNormalized(pos []float64, defs []paramDef) Params {
	var p Params
	for i, d := range defs {
		if i >= len(pos) {
			break
		}
		x := pos[i]
		if x < 0 {
			x = 0
		}
		if x > 1 {
			x = 1
		}
		if d.isBool {
			on := x > 0.5
			switch d.name {
			case "quantize":
				p.Quantize = on
			case "remove_triplets":
				p.RemoveTriplets = on
			case "merge_voices":
				p.MergeVoices = on
			case "same_pitch_resolver":
				p.SamePitch = on
			}
			continue
		}
		v := d.min + x*(d.max-d.min)
		if d.isInt {
			v = math.Round(v)
		}
		switch d.name {
		case "min_duration":
			p.MinDuration = int(v)
		case "min_velocity":
			p.MinVelocity = int(v)
		case "cluster_window":
			p.ClusterWindow = int(v)
		case "cluster_pitch":
			p.ClusterPitch = int(v)
		case "triplet_tolerance":
			p.TripletTolerance = v
		}
	}
	return p
}

func newSwarmConfig(dims, maxEvals int, seed int64) *mayfly.Config {
	pop := 8
	iters := maxEvals/pop + 1
	cfg := mayfly.NewDefaultConfig()
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	cfg.NM = 1
	cfg.Rand = rand.New(rand.NewSource(seed))
	return cfg
}

// runMayfly drives the trial budget through a mayfly swarm instead of
// independent random draws. Each objective evaluation is one pipeline
// trial; the best tracking and oracle are unchanged from the random
// strategy, except the oracle is not consulted mid-swarm.
func (s *Session) runMayfly(ctx context.Context, baseline float64) {
	defs := paramDefs(rangesFor(s.trackType))
	cfg := newSwarmConfig(len(defs), s.opts.MaxTrials, s.opts.Seed)

	var evals int64
	stopReason := StopMaxTrials
	cfg.ObjectiveFunc = func(pos []float64) float64 {
		if ctx.Err() != nil {
			stopReason = StopCancelled
			return math.Inf(1)
		}
		n := atomic.AddInt64(&evals, 1)
		if n > int64(s.opts.MaxTrials) {
			return math.Inf(1)
		}
		params := paramsFromNormalized(pos, defs)

		s.mu.Lock()
		s.status.CurrentTrial = int(n)
		s.status.CurrentParams = params
		s.mu.Unlock()

		score, notes, failed := s.trial(params)
		t := Trial{Number: int(n), Score: score, Params: params, Failed: failed}

		s.mu.Lock()
		s.status.Trials = append(s.status.Trials, t)
		if !failed && score > s.status.BestScore {
			s.status.BestScore = score
			s.status.BestParams = params
			s.bestNotes = notes
		}
		s.mu.Unlock()

		if failed {
			return math.Inf(1)
		}
		return -score
	}

	if _, err := optimizeSwarm(cfg); err != nil {
		s.log.Warn("swarm optimization aborted", zap.Error(err))
		s.finish(stopReason, err)
		return
	}
	s.finish(stopReason, nil)
}

func optimizeSwarm(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}
