package selection

import "pixelary/internal/domain"

// WordStats are the per-word rates derived from raw counters.
type WordStats struct {
	domain.WordRef
	Counters domain.Counters
	PickRate float64
	PostRate float64
	// Samples is the number of times the word was served.
	Samples int64
}

// Aggregate derives pick and post rates for every record in the pool.
// A word never served has zero rates.
func Aggregate(pool []domain.WordRecord) []WordStats {
	out := make([]WordStats, 0, len(pool))
	for _, rec := range pool {
		c := rec.Counters
		out = append(out, WordStats{
			WordRef:  rec.WordRef,
			Counters: c,
			PickRate: ratio(c.Picked, c.Served),
			PostRate: ratio(c.Posted, c.Served),
			Samples:  c.Served,
		})
	}
	return out
}

func ratio(num, den int64) float64 {
	if den <= 0 {
		return 0
	}
	return float64(num) / float64(den)
}
