package tuner

// Stop reasons reported when a tuning run ends.
const (
	StopPlateau   = "plateau"
	StopDecline   = "decline"
	StopMaxTrials = "max_trials"
	StopCancelled = "cancelled"
)

const (
	plateauRounds   = 4
	plateauFraction = 0.005
	declineRounds   = 2
	declineFraction = 0.01
)

// stopPolicy decides when a tuning run should end. It tracks the best
// score seen so far, starting from the untuned document's score, so a
// run that never meaningfully beats the baseline stops early.
type stopPolicy struct {
	maxTrials int

	best         float64
	prev         float64
	havePrev     bool
	flatStreak   int
	downStreak   int
	observations int
}

func newStopPolicy(baseline float64, maxTrials int) *stopPolicy {
	return &stopPolicy{maxTrials: maxTrials, best: baseline}
}

// observe records one trial score and reports whether to stop and why.
func (s *stopPolicy) observe(score float64) (string, bool) {
	s.observations++

	improvement := relativeGain(s.best, score)
	if improvement < plateauFraction {
		s.flatStreak++
	} else {
		s.flatStreak = 0
	}
	if score > s.best {
		s.best = score
	}

	// A decline is the previous score "gaining" over the current one.
	if s.havePrev && relativeGain(score, s.prev) > declineFraction {
		s.downStreak++
	} else {
		s.downStreak = 0
	}
	s.prev = score
	s.havePrev = true

	switch {
	case s.flatStreak >= plateauRounds:
		return StopPlateau, true
	case s.downStreak >= declineRounds:
		return StopDecline, true
	case s.observations >= s.maxTrials:
		return StopMaxTrials, true
	}
	return "", false
}

// relativeGain is how much b improves over a, as a fraction of a's
// magnitude. Zero when b does not improve.
func relativeGain(a, b float64) float64 {
	if b <= a {
		return 0
	}
	base := a
	if base < 0 {
		base = -base
	}
	if base < 1e-9 {
		base = 1e-9
	}
	return (b - a) / base
}
