package app

import (
	"encoding/json"
	"reflect"

	"pixelary/internal/config"
	"pixelary/internal/domain"
	"pixelary/internal/selection"

	"github.com/go-playground/validator/v10"
)

const (
	// DefaultStatsLimit is used when a stats request omits the limit.
	DefaultStatsLimit = 10
	// MaxStatsLimit bounds the diagnostic lists.
	MaxStatsLimit = 500
)

// requestValidate is shared by every request type.
var requestValidate *validator.Validate

func init() {
	requestValidate = validator.New()
	_ = requestValidate.RegisterValidation("scalars", validateScalars)
}

// validateScalars accepts maps whose values are strings or numbers.
func validateScalars(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Map {
		return false
	}
	iter := field.MapRange()
	for iter.Next() {
		switch iter.Value().Interface().(type) {
		case string, float64, float32, int, int32, int64, json.Number:
		default:
			return false
		}
	}
	return true
}

// TrackRequest is the client payload for a slate action.
type TrackRequest struct {
	SlateID  string         `json:"slateId" validate:"required,max=128"`
	Action   string         `json:"action" validate:"required,oneof=impression click publish"`
	Word     string         `json:"word,omitempty" validate:"max=64"`
	Metadata map[string]any `json:"metadata,omitempty" validate:"omitempty,max=32,scalars"`
}

// OutcomeRequest reports a gameplay outcome for a drawn word.
type OutcomeRequest struct {
	Word       string `json:"word" validate:"required,max=64"`
	Dictionary string `json:"dictionaryName,omitempty" validate:"max=64"`
	Outcome    string `json:"outcome" validate:"required,oneof=guess skip solve"`
}

// StatsRequest asks for the top-N diagnostic lists.
type StatsRequest struct {
	Limit int `json:"limit" validate:"gte=0,lte=500"`
}

// ConfigPatch updates only the fields that are set.
type ConfigPatch struct {
	ExplorationRate *float64 `json:"explorationRate,omitempty"`
	ZScoreClamp     *float64 `json:"zScoreClamp,omitempty"`
	WeightPickRate  *float64 `json:"weightPickRate,omitempty"`
	WeightPostRate  *float64 `json:"weightPostRate,omitempty"`
}

// Apply overlays the patch on c.
func (p ConfigPatch) Apply(c config.BanditConfig) config.BanditConfig {
	if p.ExplorationRate != nil {
		c.ExplorationRate = *p.ExplorationRate
	}
	if p.ZScoreClamp != nil {
		c.ZScoreClamp = *p.ZScoreClamp
	}
	if p.WeightPickRate != nil {
		c.WeightPickRate = *p.WeightPickRate
	}
	if p.WeightPostRate != nil {
		c.WeightPostRate = *p.WeightPostRate
	}
	return c
}

// CandidatesResponse is the slate returned to the client.
type CandidatesResponse struct {
	SlateID    string                            `json:"slateId"`
	Candidates [domain.SlotCount]*domain.WordRef `json:"candidates"`
}

// TrackResponse acknowledges a tracking call. OK is false only when the
// event was rejected or could not be queued.
type TrackResponse struct {
	OK bool `json:"ok"`
}

// WordStat is one row of the diagnostic view.
type WordStat struct {
	Word        string  `json:"word"`
	Dictionary  string  `json:"dictionaryName"`
	Score       float64 `json:"score"`
	Uncertainty float64 `json:"uncertainty"`
	PickRate    float64 `json:"pickRate"`
	PostRate    float64 `json:"postRate"`
	Served      int64   `json:"served"`
	Picked      int64   `json:"picked"`
	Posted      int64   `json:"posted"`
	Guesses     int64   `json:"guesses"`
	Skips       int64   `json:"skips"`
	Solves      int64   `json:"solves"`
}

// WordStatsResponse lists the top words by score and by uncertainty.
type WordStatsResponse struct {
	ByScore       []WordStat `json:"byScore"`
	ByUncertainty []WordStat `json:"byUncertainty"`
	PoolSize      int        `json:"poolSize"`
	ConfigVersion int64      `json:"configVersion"`
}

func toWordStat(w selection.ScoredWord) WordStat {
	return WordStat{
		Word:        w.Word,
		Dictionary:  w.Dictionary,
		Score:       w.Score,
		Uncertainty: w.Uncertainty,
		PickRate:    w.PickRate,
		PostRate:    w.PostRate,
		Served:      w.Counters.Served,
		Picked:      w.Counters.Picked,
		Posted:      w.Counters.Posted,
		Guesses:     w.Counters.Guesses,
		Skips:       w.Counters.Skips,
		Solves:      w.Counters.Solves,
	}
}
