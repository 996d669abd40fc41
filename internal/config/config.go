package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultExplorationRate = 0.1
	DefaultZScoreClamp     = 3.0
	DefaultWeightPickRate  = 1.0
	DefaultWeightPostRate  = 1.0
)

// BanditConfig holds the operator-tunable selection parameters.
type BanditConfig struct {
	ExplorationRate float64 `json:"explorationRate"`
	ZScoreClamp     float64 `json:"zScoreClamp"`
	WeightPickRate  float64 `json:"weightPickRate"`
	WeightPostRate  float64 `json:"weightPostRate"`
	// Version increases by one on every persisted change.
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultBanditConfig returns the parameters used before an operator saves any.
func DefaultBanditConfig() BanditConfig {
	return BanditConfig{
		ExplorationRate: DefaultExplorationRate,
		ZScoreClamp:     DefaultZScoreClamp,
		WeightPickRate:  DefaultWeightPickRate,
		WeightPostRate:  DefaultWeightPostRate,
	}
}

// Normalize clamps out-of-range operator input instead of rejecting it.
// ExplorationRate is clamped to [0,1]; a non-positive or non-finite clamp and
// non-finite weights fall back to their defaults.
func (c BanditConfig) Normalize() BanditConfig {
	switch {
	case math.IsNaN(c.ExplorationRate):
		c.ExplorationRate = DefaultExplorationRate
	case c.ExplorationRate < 0:
		c.ExplorationRate = 0
	case c.ExplorationRate > 1:
		c.ExplorationRate = 1
	}
	if !finite(c.ZScoreClamp) || c.ZScoreClamp <= 0 {
		c.ZScoreClamp = DefaultZScoreClamp
	}
	if !finite(c.WeightPickRate) {
		c.WeightPickRate = DefaultWeightPickRate
	}
	if !finite(c.WeightPostRate) {
		c.WeightPostRate = DefaultWeightPostRate
	}
	return c
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Settings are deployment-level options for the engine.
type Settings struct {
	// Namespace scopes every persisted record, one per community.
	Namespace string `mapstructure:"namespace"`
	// Dictionaries are unioned, in order, into the eligible word pool.
	Dictionaries        []string      `mapstructure:"dictionaries"`
	SlateTTL            time.Duration `mapstructure:"slate-ttl"`
	ConfigCacheTTL      time.Duration `mapstructure:"config-cache-ttl"`
	MaintenanceInterval time.Duration `mapstructure:"maintenance-interval"`
	LockTTL             time.Duration `mapstructure:"lock-ttl"`
	TrackWorkers        int           `mapstructure:"track-workers"`
	TrackQueue          int           `mapstructure:"track-queue"`
}

// DefaultSettings returns settings suitable for a single community.
func DefaultSettings() Settings {
	return Settings{
		Namespace:           "default",
		Dictionaries:        []string{"main"},
		SlateTTL:            10 * time.Minute,
		ConfigCacheTTL:      5 * time.Second,
		MaintenanceInterval: 15 * time.Minute,
		LockTTL:             2 * time.Minute,
		TrackWorkers:        4,
		TrackQueue:          1024,
	}
}

// settingsFile mirrors Settings with durations spelled as strings ("10m").
type settingsFile struct {
	Namespace           string   `json:"namespace"`
	Dictionaries        []string `json:"dictionaries"`
	SlateTTL            string   `json:"slate_ttl"`
	ConfigCacheTTL      string   `json:"config_cache_ttl"`
	MaintenanceInterval string   `json:"maintenance_interval"`
	LockTTL             string   `json:"lock_ttl"`
	TrackWorkers        int      `json:"track_workers"`
	TrackQueue          int      `json:"track_queue"`
}

// Load reads settings from a JSON file, starting from DefaultSettings.
func Load(path string) (Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("failed to read settings: %w", err)
	}

	var f settingsFile
	if err := json.Unmarshal(data, &f); err != nil {
		return s, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	if f.Namespace != "" {
		s.Namespace = f.Namespace
	}
	if len(f.Dictionaries) > 0 {
		s.Dictionaries = f.Dictionaries
	}
	durations := []struct {
		raw string
		dst *time.Duration
	}{
		{f.SlateTTL, &s.SlateTTL},
		{f.ConfigCacheTTL, &s.ConfigCacheTTL},
		{f.MaintenanceInterval, &s.MaintenanceInterval},
		{f.LockTTL, &s.LockTTL},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return s, fmt.Errorf("invalid duration %q: %w", d.raw, err)
		}
		*d.dst = v
	}
	if f.TrackWorkers > 0 {
		s.TrackWorkers = f.TrackWorkers
	}
	if f.TrackQueue > 0 {
		s.TrackQueue = f.TrackQueue
	}

	return s, s.Validate()
}

// Env keys read from the Nakama runtime environment.
const (
	EnvConfigPath          = "wordslate_config_path"
	EnvNamespace           = "wordslate_namespace"
	EnvDictionaries        = "wordslate_dictionaries"
	EnvSlateTTL            = "wordslate_slate_ttl"
	EnvMaintenanceInterval = "wordslate_maintenance_interval"
	EnvTrackWorkers        = "wordslate_track_workers"
)

// FromEnv applies runtime environment overrides on top of base.
// Malformed values are reported and leave the base value untouched.
func FromEnv(base Settings, env map[string]string) (Settings, error) {
	s := base
	if v := strings.TrimSpace(env[EnvNamespace]); v != "" {
		s.Namespace = v
	}
	if v := strings.TrimSpace(env[EnvDictionaries]); v != "" {
		s.Dictionaries = SplitList(v)
	}
	if v := env[EnvSlateTTL]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return base, fmt.Errorf("invalid %s: %w", EnvSlateTTL, err)
		}
		s.SlateTTL = d
	}
	if v := env[EnvMaintenanceInterval]; v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return base, fmt.Errorf("invalid %s: %w", EnvMaintenanceInterval, err)
		}
		s.MaintenanceInterval = d
	}
	if v := env[EnvTrackWorkers]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return base, fmt.Errorf("invalid %s: %w", EnvTrackWorkers, err)
		}
		s.TrackWorkers = n
	}
	return s, s.Validate()
}

// Validate rejects settings the engine cannot run with.
func (s Settings) Validate() error {
	if strings.TrimSpace(s.Namespace) == "" {
		return fmt.Errorf("namespace is required")
	}
	if len(s.Dictionaries) == 0 {
		return fmt.Errorf("at least one dictionary is required")
	}
	if s.SlateTTL <= 0 {
		return fmt.Errorf("slate ttl must be positive: %s", s.SlateTTL)
	}
	if s.LockTTL <= 0 {
		return fmt.Errorf("lock ttl must be positive: %s", s.LockTTL)
	}
	if s.TrackWorkers < 1 {
		return fmt.Errorf("track workers must be at least 1: %d", s.TrackWorkers)
	}
	return nil
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
