package selection

import (
	"math/rand"
	"sort"
	"sync"
	"time"
)

// Mode records which policy filled a slot.
type Mode string

const (
	ModeExploit Mode = "exploit"
	ModeExplore Mode = "explore"
)

// Pick is one filled slot of a slate.
type Pick struct {
	Word ScoredWord
	Mode Mode
}

// Selector runs the epsilon-greedy slot policy.
//
// Each slot rolls exploration independently: with probability explorationRate
// the slot samples a remaining word proportionally to its uncertainty,
// otherwise it takes the highest-scoring remaining word.
type Selector struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector constructs a Selector with provided rng or a time-seeded default.
func NewSelector(rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Selector{rng: rng}
}

// Select fills up to slotCount slots from pool without duplicates.
// It returns fewer picks only when the pool is smaller than slotCount.
// An explorationRate <= 0 never consumes randomness.
func (s *Selector) Select(pool []ScoredWord, explorationRate float64, slotCount int) []Pick {
	if slotCount <= 0 || len(pool) == 0 {
		return nil
	}

	ranked := RankByScore(pool)
	taken := make([]bool, len(ranked))
	picks := make([]Pick, 0, min(slotCount, len(ranked)))

	s.mu.Lock()
	defer s.mu.Unlock()

	for len(picks) < slotCount && len(picks) < len(ranked) {
		idx, mode := -1, ModeExploit
		if s.shouldExplore(explorationRate) {
			idx, mode = s.explore(ranked, taken), ModeExplore
		}
		if idx < 0 {
			idx, mode = exploit(taken), ModeExploit
		}
		taken[idx] = true
		picks = append(picks, Pick{Word: ranked[idx], Mode: mode})
	}
	return picks
}

func (s *Selector) shouldExplore(rate float64) bool {
	if rate <= 0 {
		return false
	}
	if rate >= 1 {
		return true
	}
	return s.rng.Float64() < rate
}

// explore samples an untaken index with probability proportional to uncertainty.
// Falls back to a uniform draw if every remaining weight is zero.
func (s *Selector) explore(ranked []ScoredWord, taken []bool) int {
	total := 0.0
	remaining := 0
	for i, w := range ranked {
		if taken[i] {
			continue
		}
		remaining++
		if w.Uncertainty > 0 {
			total += w.Uncertainty
		}
	}
	if remaining == 0 {
		return -1
	}

	if total <= 0 {
		n := s.rng.Intn(remaining)
		for i := range ranked {
			if taken[i] {
				continue
			}
			if n == 0 {
				return i
			}
			n--
		}
	}

	target := s.rng.Float64() * total
	last := -1
	for i, w := range ranked {
		if taken[i] || w.Uncertainty <= 0 {
			continue
		}
		last = i
		target -= w.Uncertainty
		if target < 0 {
			return i
		}
	}
	return last
}

// exploit returns the first untaken index of a score-ranked pool.
func exploit(taken []bool) int {
	for i, t := range taken {
		if !t {
			return i
		}
	}
	return -1
}

// RankByScore returns a copy of pool ordered by score descending; ties go to
// the more uncertain word, then alphabetical order.
func RankByScore(pool []ScoredWord) []ScoredWord {
	ranked := append([]ScoredWord(nil), pool...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Uncertainty != b.Uncertainty {
			return a.Uncertainty > b.Uncertainty
		}
		return a.Word < b.Word
	})
	return ranked
}

// RankByUncertainty returns a copy of pool ordered by uncertainty descending;
// ties go to the higher score, then alphabetical order.
func RankByUncertainty(pool []ScoredWord) []ScoredWord {
	ranked := append([]ScoredWord(nil), pool...)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Uncertainty != b.Uncertainty {
			return a.Uncertainty > b.Uncertainty
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Word < b.Word
	})
	return ranked
}
