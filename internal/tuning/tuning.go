// Package tuning loads the gameplay balance file. Infrastructure settings
// (ports, paths) live in internal/config; everything a balance pass would
// touch lives here so point values change without a rebuild.
package tuning

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"territory-engine/internal/domain"
)

type Tuning struct {
	GridRows int `yaml:"grid_rows"`
	GridCols int `yaml:"grid_cols"`

	NeutralCaptureThreshold float64 `yaml:"neutral_capture_threshold"`
	EnemyCaptureThreshold   float64 `yaml:"enemy_capture_threshold"`

	FortificationDurationMinutes float64 `yaml:"fortification_duration_minutes"`
	DecayPerMinute               float64 `yaml:"decay_per_minute"`

	StrictAdjacency   bool `yaml:"strict_adjacency"`
	DiagonalAdjacency bool `yaml:"diagonal_adjacency"`

	RepeatKillReductionFactor float64 `yaml:"repeat_kill_reduction_factor"`

	Actions map[domain.ActionKind]Action `yaml:"actions"`
}

type Action struct {
	BasePoints      float64 `yaml:"base_points"`
	EnemyRegionOnly bool    `yaml:"enemy_region_only"`
	RateCap         int     `yaml:"rate_cap"`
	RateWindowMs    int     `yaml:"rate_window_ms"`
}

// Default returns the shipped balance values.
func Default() Tuning {
	return Tuning{
		GridRows:                     4,
		GridCols:                     4,
		NeutralCaptureThreshold:      100,
		EnemyCaptureThreshold:        150,
		FortificationDurationMinutes: 10,
		DecayPerMinute:               10,
		StrictAdjacency:              true,
		DiagonalAdjacency:            false,
		RepeatKillReductionFactor:    0.5,
		Actions: map[domain.ActionKind]Action{
			domain.ActionKill:             {BasePoints: 50},
			domain.ActionBlockPlace:       {BasePoints: 2, RateCap: 10, RateWindowMs: 1000},
			domain.ActionBlockBreak:       {BasePoints: 1, RateCap: 10, RateWindowMs: 1000},
			domain.ActionBannerPlace:      {BasePoints: 25, EnemyRegionOnly: true},
			domain.ActionBannerRemove:     {BasePoints: 0},
			domain.ActionMobKill:          {BasePoints: 5},
			domain.ActionWorkstationPlace: {BasePoints: 10, RateCap: 3, RateWindowMs: 60000},
		},
	}
}

// Load reads path, overlaying the defaults. An empty path returns the
// defaults untouched.
func Load(path string) (Tuning, error) {
	t := Default()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning %s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning %s: %w", path, err)
	}
	return t, nil
}

// Validate rejects values the engine cannot run with.
func (t Tuning) Validate() error {
	if t.GridRows < 1 || t.GridRows > 26 || t.GridCols < 1 {
		return fmt.Errorf("grid %dx%d out of range", t.GridRows, t.GridCols)
	}
	if t.NeutralCaptureThreshold <= 0 || t.EnemyCaptureThreshold <= 0 {
		return fmt.Errorf("capture thresholds must be positive")
	}
	if t.RepeatKillReductionFactor < 0 || t.RepeatKillReductionFactor > 1 {
		return fmt.Errorf("repeat_kill_reduction_factor %v outside [0,1]", t.RepeatKillReductionFactor)
	}
	for kind := range t.Actions {
		if !kind.IsValid() {
			return fmt.Errorf("unknown action kind %q", kind)
		}
	}
	return nil
}

// Spec returns the action profile for kind; unknown kinds get a zero spec
// (no points, no cap) rather than an error.
func (t Tuning) Spec(kind domain.ActionKind) domain.ActionSpec {
	a, ok := t.Actions[kind]
	if !ok {
		return domain.ActionSpec{}
	}
	return domain.ActionSpec{
		BasePoints:      a.BasePoints,
		EnemyRegionOnly: a.EnemyRegionOnly,
		RateCap:         a.RateCap,
		RateWindowMs:    a.RateWindowMs,
	}
}

// FortifyDuration converts the configured minutes to a duration.
func (t Tuning) FortifyDuration() time.Duration {
	return time.Duration(t.FortificationDurationMinutes * float64(time.Minute))
}

// Threshold returns the influence required to capture given the current
// owner: the neutral threshold with no owner, the enemy threshold otherwise.
func (t Tuning) Threshold(owner domain.Team) float64 {
	if owner == domain.TeamNone {
		return t.NeutralCaptureThreshold
	}
	return t.EnemyCaptureThreshold
}
