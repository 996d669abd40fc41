package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNormalizeClampsExplorationRate(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.25, 0.25},
		{1, 1},
		{7, 1},
		{math.NaN(), DefaultExplorationRate},
	}
	for _, tc := range cases {
		got := BanditConfig{ExplorationRate: tc.in, ZScoreClamp: 3}.Normalize().ExplorationRate
		if got != tc.want {
			t.Errorf("Normalize(%v).ExplorationRate = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeFallsBackForBadClampAndWeights(t *testing.T) {
	c := BanditConfig{
		ExplorationRate: 0.2,
		ZScoreClamp:     -1,
		WeightPickRate:  math.Inf(1),
		WeightPostRate:  math.NaN(),
	}.Normalize()

	if c.ZScoreClamp != DefaultZScoreClamp {
		t.Fatalf("Expected default clamp, got %v", c.ZScoreClamp)
	}
	if c.WeightPickRate != DefaultWeightPickRate || c.WeightPostRate != DefaultWeightPostRate {
		t.Fatalf("Expected default weights, got %v/%v", c.WeightPickRate, c.WeightPostRate)
	}
}

func TestNormalizeKeepsNegativeWeights(t *testing.T) {
	c := BanditConfig{ZScoreClamp: 2, WeightPickRate: -1, WeightPostRate: 0}.Normalize()
	if c.WeightPickRate != -1 || c.WeightPostRate != 0 {
		t.Fatalf("Expected finite weights to be kept, got %v/%v", c.WeightPickRate, c.WeightPostRate)
	}
}

func TestLoadAppliesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wordslate.json")
	body := `{"namespace":"r/pixelary","dictionaries":["main","animals"],"slate_ttl":"3m","track_workers":2}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write settings: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if s.Namespace != "r/pixelary" {
		t.Fatalf("Expected namespace r/pixelary, got %q", s.Namespace)
	}
	if len(s.Dictionaries) != 2 || s.Dictionaries[1] != "animals" {
		t.Fatalf("Unexpected dictionaries %v", s.Dictionaries)
	}
	if s.SlateTTL != 3*time.Minute {
		t.Fatalf("Expected slate ttl 3m, got %s", s.SlateTTL)
	}
	if s.TrackWorkers != 2 {
		t.Fatalf("Expected 2 workers, got %d", s.TrackWorkers)
	}
	if s.LockTTL != DefaultSettings().LockTTL {
		t.Fatalf("Expected default lock ttl, got %s", s.LockTTL)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wordslate.json")
	if err := os.WriteFile(path, []byte(`{"slate_ttl":"soon"}`), 0o600); err != nil {
		t.Fatalf("write settings: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for malformed duration")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	env := map[string]string{
		EnvNamespace:    "tenant-a",
		EnvDictionaries: "main, , food",
		EnvSlateTTL:     "90s",
	}
	s, err := FromEnv(DefaultSettings(), env)
	if err != nil {
		t.Fatalf("FromEnv returned error: %v", err)
	}
	if s.Namespace != "tenant-a" {
		t.Fatalf("Expected namespace tenant-a, got %q", s.Namespace)
	}
	if len(s.Dictionaries) != 2 || s.Dictionaries[1] != "food" {
		t.Fatalf("Unexpected dictionaries %v", s.Dictionaries)
	}
	if s.SlateTTL != 90*time.Second {
		t.Fatalf("Expected 90s slate ttl, got %s", s.SlateTTL)
	}
}

func TestFromEnvKeepsBaseOnError(t *testing.T) {
	base := DefaultSettings()
	s, err := FromEnv(base, map[string]string{EnvTrackWorkers: "many"})
	if err == nil {
		t.Fatal("Expected error for malformed worker count")
	}
	if s.TrackWorkers != base.TrackWorkers {
		t.Fatalf("Expected base worker count, got %d", s.TrackWorkers)
	}
}
