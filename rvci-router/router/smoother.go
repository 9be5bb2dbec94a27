package router

import "math"

const (
	// A movement at least this large is taken as intentional and passed
	// through unsmoothed, so the physical knob stays immediate.
	snapThreshold = 0.08
	// One-pole filter gain for sub-threshold movement; rejects pot jitter
	// that would otherwise cause audible volume breathing.
	filterGain = 0.35
	// Smoothed values closer than this to the last applied value are
	// suppressed entirely. Primary defense against redundant OS calls.
	applyEpsilon = 0.005
)

// Smoother is the per-channel low-pass filter. State is a single scalar:
// the last emitted value in [0,1].
type Smoother struct {
	last float64
}

func (s *Smoother) Process(v float64) float64 {
	delta := v - s.last
	if math.Abs(delta) >= snapThreshold {
		s.last = v
		return v
	}
	smoothed := s.last + delta*filterGain
	s.last = smoothed
	return smoothed
}

// Normalize clamps raw to [0, ceiling] and scales it into [0,1].
func Normalize(raw, ceiling float64) float64 {
	if raw < 0 {
		raw = 0
	}
	if raw > ceiling {
		raw = ceiling
	}
	return raw / ceiling
}
