package config

import (
	"encoding/json"
	"fmt"
	"math"
	"runtime"
	"time"

	"gobrittle/domain/core"
	"gobrittle/domain/series"
)

// Threshold profiles. Only the canonical, threshold-explicit variant is
// accepted; the high-match variant is kept as a name so it can be rejected.
const (
	ThresholdProfileCanonical = "canonical"
	ThresholdProfileHighMatch = "high_match"
)

// ScoreWeights split the 100-point composite score
type ScoreWeights struct {
	Variability     float64 `json:"variability"`
	Rhythm          float64 `json:"rhythm"`
	OutOfRange      float64 `json:"out_of_range"`
	PeakFluctuation float64 `json:"peak_fluctuation"`
}

// DefaultScoreWeights is the documented 40/30/20/10 split
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{Variability: 40, Rhythm: 30, OutOfRange: 20, PeakFluctuation: 10}
}

// Sum returns the total of all weights
func (w ScoreWeights) Sum() float64 {
	return w.Variability + w.Rhythm + w.OutOfRange + w.PeakFluctuation
}

// AnalysisConfig is the recognised configuration surface of one run.
// Zero values fall back to the domain profile.
type AnalysisConfig struct {
	Domain            series.Domain `json:"sampling_domain"`
	WindowSize        int           `json:"window_size,omitempty"`
	WindowDuration    time.Duration `json:"window_duration,omitempty"`
	StepSize          int           `json:"step_size,omitempty"`
	StepDuration      time.Duration `json:"step_duration,omitempty"`
	SignificanceLevel float64       `json:"significance_level"`
	MergeThreshold    time.Duration `json:"merge_threshold,omitempty"`
	MinSegments       int           `json:"min_segments"`
	MaxSegments       int           `json:"max_segments"`
	ScoreWeights      ScoreWeights  `json:"score_weights"`
	Workers           int           `json:"workers,omitempty"`
	ThresholdProfile  string        `json:"threshold_profile,omitempty"`
}

// DefaultAnalysisConfig returns the defaults for a domain
func DefaultAnalysisConfig(d series.Domain) AnalysisConfig {
	return AnalysisConfig{
		Domain:            d,
		SignificanceLevel: 0.01,
		MinSegments:       2,
		MaxSegments:       4,
		ScoreWeights:      DefaultScoreWeights(),
		ThresholdProfile:  ThresholdProfileCanonical,
	}
}

// analysisConfigJSON mirrors AnalysisConfig with durations in Go syntax
type analysisConfigJSON struct {
	Domain            series.Domain `json:"sampling_domain"`
	WindowSize        int           `json:"window_size,omitempty"`
	WindowDuration    string        `json:"window_duration,omitempty"`
	StepSize          int           `json:"step_size,omitempty"`
	StepDuration      string        `json:"step_duration,omitempty"`
	SignificanceLevel float64       `json:"significance_level"`
	MergeThreshold    string        `json:"merge_threshold,omitempty"`
	MinSegments       int           `json:"min_segments"`
	MaxSegments       int           `json:"max_segments"`
	ScoreWeights      ScoreWeights  `json:"score_weights"`
	Workers           int           `json:"workers,omitempty"`
	ThresholdProfile  string        `json:"threshold_profile,omitempty"`
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, core.NewConfigurationError(field, err.Error())
	}
	return d, nil
}

// MarshalJSON writes durations as "3h0m0s" rather than nanoseconds
func (c AnalysisConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(analysisConfigJSON{
		Domain:            c.Domain,
		WindowSize:        c.WindowSize,
		WindowDuration:    formatDuration(c.WindowDuration),
		StepSize:          c.StepSize,
		StepDuration:      formatDuration(c.StepDuration),
		SignificanceLevel: c.SignificanceLevel,
		MergeThreshold:    formatDuration(c.MergeThreshold),
		MinSegments:       c.MinSegments,
		MaxSegments:       c.MaxSegments,
		ScoreWeights:      c.ScoreWeights,
		Workers:           c.Workers,
		ThresholdProfile:  c.ThresholdProfile,
	})
}

// UnmarshalJSON accepts durations in Go syntax
func (c *AnalysisConfig) UnmarshalJSON(data []byte) error {
	var raw analysisConfigJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	window, err := parseDuration("window_duration", raw.WindowDuration)
	if err != nil {
		return err
	}
	step, err := parseDuration("step_duration", raw.StepDuration)
	if err != nil {
		return err
	}
	merge, err := parseDuration("merge_threshold", raw.MergeThreshold)
	if err != nil {
		return err
	}
	*c = AnalysisConfig{
		Domain:            raw.Domain,
		WindowSize:        raw.WindowSize,
		WindowDuration:    window,
		StepSize:          raw.StepSize,
		StepDuration:      step,
		SignificanceLevel: raw.SignificanceLevel,
		MergeThreshold:    merge,
		MinSegments:       raw.MinSegments,
		MaxSegments:       raw.MaxSegments,
		ScoreWeights:      raw.ScoreWeights,
		Workers:           raw.Workers,
		ThresholdProfile:  raw.ThresholdProfile,
	}
	return nil
}

// ForDomain returns a copy of the configuration switched to domain d
func (c AnalysisConfig) ForDomain(d series.Domain) AnalysisConfig {
	c.Domain = d
	return c
}

// Validate rejects invalid settings before any computation starts
func (c AnalysisConfig) Validate() error {
	if _, ok := ProfileFor(c.Domain); !ok {
		return core.NewConfigurationError("sampling_domain", fmt.Sprintf("unknown domain %q", c.Domain))
	}
	if c.WindowSize < 0 || c.StepSize < 0 {
		return core.NewConfigurationError("window_size", "window and step sizes must be non-negative")
	}
	if c.WindowDuration < 0 || c.StepDuration < 0 {
		return core.NewConfigurationError("window_duration", "window and step durations must be non-negative")
	}
	if c.StepSize > 0 && c.WindowSize > 0 && c.StepSize > c.WindowSize {
		return core.NewConfigurationError("step_size", "step must not exceed the window")
	}
	if c.SignificanceLevel <= 0 || c.SignificanceLevel > 0.5 {
		return core.NewConfigurationError("significance_level", "must be in (0, 0.5]")
	}
	if c.MergeThreshold < 0 {
		return core.NewConfigurationError("merge_threshold", "must be non-negative")
	}
	if c.MinSegments < 1 {
		return core.NewConfigurationError("min_segments", "must be at least 1")
	}
	if c.MaxSegments < 2 || c.MaxSegments > 6 {
		return core.NewConfigurationError("max_segments", "must be between 2 and 6")
	}
	if c.MinSegments > c.MaxSegments {
		return core.NewConfigurationError("min_segments", fmt.Sprintf("min_segments %d exceeds max_segments %d", c.MinSegments, c.MaxSegments))
	}
	w := c.ScoreWeights
	if w.Variability < 0 || w.Rhythm < 0 || w.OutOfRange < 0 || w.PeakFluctuation < 0 {
		return core.NewConfigurationError("score_weights", "weights must be non-negative")
	}
	if math.Abs(w.Sum()-100) > 1e-9 {
		return core.NewConfigurationError("score_weights", fmt.Sprintf("weights must sum to 100, got %.4f", w.Sum()))
	}
	if c.Workers < 0 {
		return core.NewConfigurationError("workers", "must be non-negative")
	}
	switch c.ThresholdProfile {
	case "", ThresholdProfileCanonical:
	case ThresholdProfileHighMatch:
		return &core.ConfigurationError{
			Field:  "threshold_profile",
			Reason: "the high-match variant is deprecated; use canonical",
			Cause:  core.ErrDeprecatedProfile,
		}
	default:
		return core.NewConfigurationError("threshold_profile", fmt.Sprintf("unknown profile %q", c.ThresholdProfile))
	}
	return nil
}

// Profile returns the domain profile with run-level overrides applied
func (c AnalysisConfig) Profile() DomainProfile {
	p, _ := ProfileFor(c.Domain)
	if c.MergeThreshold > 0 {
		p.MergeThreshold = c.MergeThreshold
	}
	if c.WindowDuration > 0 {
		p.WindowDuration = c.WindowDuration
		p.WindowFraction = 0
	}
	if c.StepDuration > 0 {
		p.StepDuration = c.StepDuration
		p.StepFraction = 0
	}
	return p
}

// EffectiveWorkers returns the worker limit for parallel stages
func (c AnalysisConfig) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}
