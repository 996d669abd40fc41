package selection

import "math"

const (
	// MaxUncertainty is assigned to words that were never served.
	MaxUncertainty = 1.0
	// MinUncertainty is the limit approached as the sample count grows.
	MinUncertainty = 0.0
)

// Uncertainty maps a sample count to (0, 1], decaying as 1/sqrt(1+n).
// Negative counts are treated as zero.
func Uncertainty(samples int64) float64 {
	if samples <= 0 {
		return MaxUncertainty
	}
	return 1 / math.Sqrt(1+float64(samples))
}
