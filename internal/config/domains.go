package config

import (
	"time"

	"gobrittle/domain/series"
)

// InstabilityThresholds are the clinical thresholds that mark a window unstable
type InstabilityThresholds struct {
	CV             float64 `json:"cv"`              // fraction, 0.36 = 36%
	RapidRate      float64 `json:"rapid_rate"`      // fraction of rapid successive changes
	DangerFraction float64 `json:"danger_fraction"` // fraction of time in the danger zone
	RangeSpan      float64 `json:"range_span"`      // max-min, in domain units
}

// DomainProfile holds every domain-specific constant of the engine.
// The algorithm never branches on the domain; it reads these values.
type DomainProfile struct {
	Domain   series.Domain `json:"domain"`
	Unit     string        `json:"unit"`
	Channels []string      `json:"channels"`

	// Ingestion limits
	MinValue        float64       `json:"min_value"`
	MaxValue        float64       `json:"max_value"`
	NominalInterval time.Duration `json:"nominal_interval"`
	GapTolerance    time.Duration `json:"gap_tolerance"`
	MinSpan         time.Duration `json:"min_span"`
	MinCoverage     float64       `json:"min_coverage"`

	// Window plan: a fraction of the series length, or a fixed duration
	WindowFraction  float64       `json:"window_fraction,omitempty"`
	StepFraction    float64       `json:"step_fraction,omitempty"`
	WindowDuration  time.Duration `json:"window_duration,omitempty"`
	StepDuration    time.Duration `json:"step_duration,omitempty"`
	MinWindowPoints int           `json:"min_window_points"`

	// Segmentation
	MergeThreshold time.Duration `json:"merge_threshold"`
	DurationUnit   time.Duration `json:"duration_unit"`

	// Clinical ranges
	TargetLow  float64 `json:"target_low"`
	TargetHigh float64 `json:"target_high"`
	DangerLow  float64 `json:"danger_low"`
	DangerHigh float64 `json:"danger_high"`

	RapidChangePerMinute float64               `json:"rapid_change_per_minute"`
	GradientPerHour      float64               `json:"gradient_per_hour"`
	Instability          InstabilityThresholds `json:"instability"`

	// Optional domain term folded into the rhythm sub-score
	DisruptionTerm      string  `json:"disruption_term,omitempty"`
	DisruptionReference float64 `json:"disruption_reference,omitempty"`

	Labels [5]string `json:"labels"`
}

// NeutralBaseline is the midpoint of the target range
func (p DomainProfile) NeutralBaseline() float64 {
	return (p.TargetLow + p.TargetHigh) / 2
}

// TargetHalfWidth is half the width of the target range
func (p DomainProfile) TargetHalfWidth() float64 {
	return (p.TargetHigh - p.TargetLow) / 2
}

// GlucoseProfile covers continuous glucose monitoring (mmol/L)
func GlucoseProfile() DomainProfile {
	return DomainProfile{
		Domain:          series.DomainGlucose,
		Unit:            "mmol/L",
		Channels:        []string{"glucose"},
		MinValue:        1.1,
		MaxValue:        33.3,
		NominalInterval: 15 * time.Minute,
		GapTolerance:    45 * time.Minute,
		MinSpan:         24 * time.Hour,
		MinCoverage:     0.70,
		WindowFraction:  0.08,
		StepFraction:    0.25,
		MinWindowPoints: 20,
		MergeThreshold:  3 * time.Hour,
		DurationUnit:    24 * time.Hour,
		TargetLow:       3.9,
		TargetHigh:      10.0,
		DangerLow:       3.9,
		DangerHigh:      13.9,

		RapidChangePerMinute: 0.11,
		GradientPerHour:      0.6,
		Instability: InstabilityThresholds{
			CV:             0.36,
			RapidRate:      0.15,
			DangerFraction: 0.20,
			RangeSpan:      12,
		},
		DisruptionTerm:      "excursion_index",
		DisruptionReference: 1.0,
		Labels: [5]string{
			"stable",
			"mildly variable",
			"unstable",
			"brittle",
			"extremely brittle",
		},
	}
}

// ECGProfile covers Holter-derived heart rate with QT and ST channels
func ECGProfile() DomainProfile {
	return DomainProfile{
		Domain:          series.DomainECG,
		Unit:            "bpm",
		Channels:        []string{"heart_rate", "qt", "st"},
		MinValue:        20,
		MaxValue:        300,
		NominalInterval: 15 * time.Second,
		GapTolerance:    time.Minute,
		MinSpan:         10 * time.Minute,
		MinCoverage:     0.70,
		WindowDuration:  10 * time.Minute,
		StepDuration:    150 * time.Second,
		MinWindowPoints: 20,
		MergeThreshold:  5 * time.Minute,
		DurationUnit:    time.Hour,
		TargetLow:       60,
		TargetHigh:      100,
		DangerLow:       50,
		DangerHigh:      120,

		RapidChangePerMinute: 30,
		GradientPerHour:      60,
		Instability: InstabilityThresholds{
			CV:             0.15,
			RapidRate:      0.15,
			DangerFraction: 0.20,
			RangeSpan:      60,
		},
		DisruptionTerm:      "st_instability",
		DisruptionReference: 0.1,
		Labels: [5]string{
			"normal/stable",
			"mild risk",
			"moderate risk",
			"high risk",
			"extremely dangerous",
		},
	}
}

// BloodPressureProfile covers ambulatory systolic/diastolic readings (mmHg)
func BloodPressureProfile() DomainProfile {
	return DomainProfile{
		Domain:          series.DomainBloodPressure,
		Unit:            "mmHg",
		Channels:        []string{"systolic", "diastolic"},
		MinValue:        50,
		MaxValue:        280,
		NominalInterval: 15 * time.Minute,
		GapTolerance:    45 * time.Minute,
		MinSpan:         24 * time.Hour,
		MinCoverage:     0.70,
		WindowDuration:  3 * time.Hour,
		StepDuration:    45 * time.Minute,
		MinWindowPoints: 8,
		MergeThreshold:  2 * time.Hour,
		DurationUnit:    4 * time.Hour,
		TargetLow:       90,
		TargetHigh:      135,
		DangerLow:       90,
		DangerHigh:      160,

		RapidChangePerMinute: 2,
		GradientPerHour:      10,
		Instability: InstabilityThresholds{
			CV:             0.15,
			RapidRate:      0.15,
			DangerFraction: 0.20,
			RangeSpan:      60,
		},
		DisruptionTerm:      "dip_deficit",
		DisruptionReference: 1.0,
		Labels: [5]string{
			"normal/stable",
			"mildly unstable",
			"moderately unstable",
			"severely unstable",
			"extremely dangerous",
		},
	}
}

// ProfileFor returns the built-in profile of a domain
func ProfileFor(d series.Domain) (DomainProfile, bool) {
	switch d {
	case series.DomainGlucose:
		return GlucoseProfile(), true
	case series.DomainECG:
		return ECGProfile(), true
	case series.DomainBloodPressure:
		return BloodPressureProfile(), true
	default:
		return DomainProfile{}, false
	}
}
