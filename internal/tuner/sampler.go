package tuner

import (
	"math/rand"

	"github.com/maximgrigorov/midi-cleaner/internal/classify"
	"github.com/maximgrigorov/midi-cleaner/internal/oracle"
	"github.com/maximgrigorov/midi-cleaner/internal/processor"
)

// Params is one candidate parameter set tried by the tuner.
type Params struct {
	MinDuration      int     `json:"min_duration" yaml:"min_duration"`
	MinVelocity      int     `json:"min_velocity" yaml:"min_velocity"`
	ClusterWindow    int     `json:"cluster_window" yaml:"cluster_window"`
	ClusterPitch     int     `json:"cluster_pitch" yaml:"cluster_pitch"`
	TripletTolerance float64 `json:"triplet_tolerance" yaml:"triplet_tolerance"`
	Quantize         bool    `json:"quantize" yaml:"quantize"`
	RemoveTriplets   bool    `json:"remove_triplets" yaml:"remove_triplets"`
	MergeVoices      bool    `json:"merge_voices" yaml:"merge_voices"`
	SamePitch        bool    `json:"same_pitch_resolver" yaml:"same_pitch_resolver"`
}

// intRange is an inclusive sampling range.
type intRange struct{ lo, hi int }

func (r intRange) sample(rng *rand.Rand) int {
	if r.hi <= r.lo {
		return r.lo
	}
	return r.lo + rng.Intn(r.hi-r.lo+1)
}

func (r intRange) clamp(v int) int {
	if v < r.lo {
		return r.lo
	}
	if v > r.hi {
		return r.hi
	}
	return v
}

// ranges bounds every tunable parameter for one track type.
type ranges struct {
	minDuration intRange
	minVelocity intRange
	window      intRange
	pitch       intRange
	tolLo       float64
	tolHi       float64
}

func rangesFor(t classify.TrackType) ranges {
	r := ranges{
		pitch: intRange{0, 2},
		tolLo: 0.05,
		tolHi: 0.30,
	}
	switch t {
	case classify.Polyphonic:
		r.minDuration = intRange{80, 240}
		r.minVelocity = intRange{5, 40}
		r.window = intRange{10, 80}
	case classify.MelodicMono:
		r.minDuration = intRange{40, 200}
		r.minVelocity = intRange{0, 25}
		r.window = intRange{10, 60}
	case classify.Percussive:
		r.minDuration = intRange{40, 120}
		r.minVelocity = intRange{0, 15}
		r.window = intRange{10, 40}
	case classify.Bowed:
		r.minDuration = intRange{60, 240}
		r.minVelocity = intRange{0, 30}
		r.window = intRange{10, 80}
	default:
		r.minDuration = intRange{40, 240}
		r.minVelocity = intRange{0, 40}
		r.window = intRange{10, 120}
	}
	return r
}

// sampler draws random candidate parameter sets from the track type's
// ranges.
type sampler struct {
	r   ranges
	rng *rand.Rand
}

func newSampler(t classify.TrackType, rng *rand.Rand) *sampler {
	return &sampler{r: rangesFor(t), rng: rng}
}

func (s *sampler) next() Params {
	return Params{
		MinDuration:      s.r.minDuration.sample(s.rng),
		MinVelocity:      s.r.minVelocity.sample(s.rng),
		ClusterWindow:    s.r.window.sample(s.rng),
		ClusterPitch:     s.r.pitch.sample(s.rng),
		TripletTolerance: s.r.tolLo + s.rng.Float64()*(s.r.tolHi-s.r.tolLo),
		Quantize:         s.rng.Intn(2) == 1,
		RemoveTriplets:   s.rng.Intn(2) == 1,
		MergeVoices:      s.rng.Intn(2) == 1,
		SamePitch:        s.rng.Intn(2) == 1,
	}
}

// applyPatch folds an oracle suggestion into a parameter set, clamping
// values back into the track type's ranges.
func (s *sampler) applyPatch(p Params, patch *oracle.Patch) Params {
	if patch == nil {
		return p
	}
	if patch.MinDuration != nil {
		p.MinDuration = s.r.minDuration.clamp(*patch.MinDuration)
	}
	if patch.MinVelocity != nil {
		p.MinVelocity = s.r.minVelocity.clamp(*patch.MinVelocity)
	}
	if patch.ClusterWindow != nil {
		p.ClusterWindow = s.r.window.clamp(*patch.ClusterWindow)
	}
	if patch.ClusterPitch != nil {
		p.ClusterPitch = s.r.pitch.clamp(*patch.ClusterPitch)
	}
	if patch.TripletTolerance != nil {
		tol := *patch.TripletTolerance
		if tol < s.r.tolLo {
			tol = s.r.tolLo
		}
		if tol > s.r.tolHi {
			tol = s.r.tolHi
		}
		p.TripletTolerance = tol
	}
	if patch.Quantize != nil {
		p.Quantize = *patch.Quantize
	}
	if patch.RemoveTriplets != nil {
		p.RemoveTriplets = *patch.RemoveTriplets
	}
	if patch.MergeVoices != nil {
		p.MergeVoices = *patch.MergeVoices
	}
	return p
}

// apply overlays the parameter set onto a base cleaning config.
func (p Params) apply(base processor.Config) processor.Config {
	cfg := base
	cfg.FilterNoise = true
	cfg.MinDurationTicks = p.MinDuration
	cfg.MinVelocity = p.MinVelocity
	cfg.PitchCluster.Enabled = true
	cfg.PitchCluster.TimeWindowTicks = p.ClusterWindow
	cfg.PitchCluster.PitchThreshold = p.ClusterPitch
	cfg.TripletTolerance = p.TripletTolerance
	cfg.Quantize = p.Quantize
	cfg.RemoveTriplets = p.RemoveTriplets
	cfg.MergeVoices = p.MergeVoices
	cfg.SamePitch.Enabled = p.SamePitch
	return cfg
}
