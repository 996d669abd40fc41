package selection

import (
	"math"

	"pixelary/internal/domain"
)

// DefaultZClamp replaces a non-positive clamp.
const DefaultZClamp = 3.0

// Weights tune how pick and post performance combine into a score.
type Weights struct {
	PickRate float64
	PostRate float64
	// ZClamp bounds each z-score to [-ZClamp, +ZClamp].
	ZClamp float64
}

// ScoredWord is a pool member with its pool-relative score.
// Values are only comparable within the pool they were computed against.
type ScoredWord struct {
	domain.WordRef
	Counters    domain.Counters
	PickRate    float64
	PostRate    float64
	ZPick       float64
	ZPost       float64
	Score       float64
	Uncertainty float64
}

// ScorePool z-normalizes pick and post rates across the whole pool, clamps the
// z-scores and combines them with the configured weights.
func ScorePool(stats []WordStats, w Weights) []ScoredWord {
	if len(stats) == 0 {
		return nil
	}
	if !(w.ZClamp > 0) {
		w.ZClamp = DefaultZClamp
	}

	pick := make([]float64, len(stats))
	post := make([]float64, len(stats))
	for i, s := range stats {
		pick[i] = s.PickRate
		post[i] = s.PostRate
	}
	zPick := zScores(pick, w.ZClamp)
	zPost := zScores(post, w.ZClamp)

	out := make([]ScoredWord, len(stats))
	for i, s := range stats {
		out[i] = ScoredWord{
			WordRef:     s.WordRef,
			Counters:    s.Counters,
			PickRate:    s.PickRate,
			PostRate:    s.PostRate,
			ZPick:       zPick[i],
			ZPost:       zPost[i],
			Score:       w.PickRate*zPick[i] + w.PostRate*zPost[i],
			Uncertainty: Uncertainty(s.Samples),
		}
	}
	return out
}

// zScores uses the population standard deviation. A flat distribution
// yields all zeros.
func zScores(values []float64, clamp float64) []float64 {
	out := make([]float64, len(values))
	if flat(values) {
		return out
	}
	mean, stddev := meanStdDev(values)
	if stddev == 0 || math.IsNaN(stddev) {
		return out
	}
	for i, v := range values {
		out[i] = clampAbs((v-mean)/stddev, clamp)
	}
	return out
}

// flat avoids dividing rounding noise by rounding noise when every value is equal.
func flat(values []float64) bool {
	if len(values) < 2 {
		return true
	}
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}

func meanStdDev(values []float64) (float64, float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / n

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return mean, math.Sqrt(variance / n)
}

func clampAbs(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}
