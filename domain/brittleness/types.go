package brittleness

import (
	"time"

	"gobrittle/domain/core"
	"gobrittle/domain/series"
)

// FeatureVector is the per-window bundle of chaos and variability descriptors
type FeatureVector struct {
	Lyapunov             float64            `json:"lyapunov"`
	ApproxEntropy        float64            `json:"approx_entropy"`
	ShannonEntropy       float64            `json:"shannon_entropy"`
	Hurst                float64            `json:"hurst"`
	FractalDimension     float64            `json:"fractal_dimension"`
	CorrelationDimension float64            `json:"correlation_dimension"`
	CV                   float64            `json:"cv"`
	Mean                 float64            `json:"mean"`
	StdDev               float64            `json:"std_dev"`
	Min                  float64            `json:"min"`
	Max                  float64            `json:"max"`
	RangeSpan            float64            `json:"range_span"`
	RapidChangeRate      float64            `json:"rapid_change_rate"`
	OutOfRangeFraction   float64            `json:"out_of_range_fraction"`
	DangerFraction       float64            `json:"danger_fraction"`
	MeanAbsRate          float64            `json:"mean_abs_rate"`
	DomainTerms          map[string]float64 `json:"domain_terms,omitempty"`
}

// WindowFeatures pairs a window with its features
type WindowFeatures struct {
	Range        series.WindowRange `json:"range"`
	Features     FeatureVector      `json:"features"`
	Insufficient bool               `json:"insufficient"`
}

// Method identifies a change-point detection strategy
type Method string

const (
	MethodStatistical Method = "statistical"
	MethodClustering  Method = "clustering"
	MethodGradient    Method = "gradient"
	MethodInstability Method = "instability"
)

// Methods returns the four strategies in their fixed order
func Methods() []Method {
	return []Method{MethodStatistical, MethodClustering, MethodGradient, MethodInstability}
}

// Candidate is a proposed change point from one detector
type Candidate struct {
	Index      int     `json:"index"`
	Method     Method  `json:"method"`
	Confidence float64 `json:"confidence"`
}

// Boundary is a merged change point retained by the optimizer
type Boundary struct {
	Index      int       `json:"index"`
	Timestamp  time.Time `json:"timestamp"`
	Methods    []Method  `json:"methods"`
	Agreement  int       `json:"agreement"`
	Confidence float64   `json:"confidence"`
}

// Trend is the direction of a segment relative to the one before it
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendWorsening Trend = "worsening"
)

// SegmentMetrics are the aggregated metrics of one segment
type SegmentMetrics struct {
	Mean                 float64            `json:"mean"`
	StdDev               float64            `json:"std_dev"`
	CV                   float64            `json:"cv"`
	TimeInTarget         float64            `json:"time_in_target"`
	OutOfRangeFraction   float64            `json:"out_of_range_fraction"`
	DangerFraction       float64            `json:"danger_fraction"`
	RapidChangeRate      float64            `json:"rapid_change_rate"`
	RangeSpan            float64            `json:"range_span"`
	ApproxEntropy        float64            `json:"approx_entropy"`
	ShannonEntropy       float64            `json:"shannon_entropy"`
	Lyapunov             float64            `json:"lyapunov"`
	Hurst                float64            `json:"hurst"`
	FractalDimension     float64            `json:"fractal_dimension"`
	CorrelationDimension float64            `json:"correlation_dimension"`
	DomainTerms          map[string]float64 `json:"domain_terms,omitempty"`
	Windows              int                `json:"windows"`
}

// SubScores is the breakdown of a composite brittleness score
type SubScores struct {
	Variability     float64 `json:"variability"`
	Rhythm          float64 `json:"rhythm"`
	OutOfRange      float64 `json:"out_of_range"`
	PeakFluctuation float64 `json:"peak_fluctuation"`
}

// Segment is a contiguous regime of the series
type Segment struct {
	Index      int            `json:"index"`
	StartIndex int            `json:"start_index"`
	EndIndex   int            `json:"end_index"`
	StartTime  time.Time      `json:"start_time"`
	EndTime    time.Time      `json:"end_time"`
	Duration   time.Duration  `json:"duration_ns"`
	Points     int            `json:"points"`
	Metrics    SegmentMetrics `json:"metrics"`
	SubScores  SubScores      `json:"sub_scores"`
	Score      float64        `json:"score"`
	Importance float64        `json:"importance"`
	Weight     float64        `json:"weight"`
	Trend      Trend          `json:"trend"`
}

// Range returns the segment's index range
func (s Segment) Range() series.WindowRange {
	return series.WindowRange{Start: s.StartIndex, End: s.EndIndex}
}

// Recommendation is one structured action item
type Recommendation struct {
	Category string `json:"category"`
	Priority string `json:"priority"`
	Text     string `json:"text"`
}

// ConfidenceDetail explains how the profile confidence was derived
type ConfidenceDetail struct {
	Completeness    float64 `json:"completeness"`
	Agreement       float64 `json:"agreement"`
	ExcludedPenalty float64 `json:"excluded_penalty"`
	DetectorFailure float64 `json:"detector_failure_penalty"`
}

// Profile is the final, immutable result of one analysis run
type Profile struct {
	SeriesID         core.SubjectID          `json:"series_id"`
	Domain           series.Domain           `json:"domain"`
	Unit             string                  `json:"unit"`
	OverallScore     float64                 `json:"overall_score"`
	Classification   Classification          `json:"classification"`
	Segments         []Segment               `json:"segments"`
	Boundaries       []Boundary              `json:"boundaries"`
	Confidence       float64                 `json:"confidence"`
	ConfidenceDetail ConfidenceDetail        `json:"confidence_detail"`
	ExcludedWindows  []series.WindowRange    `json:"excluded_windows"`
	Warnings         []string                `json:"warnings"`
	Recommendations  []Recommendation        `json:"recommendations"`
	Preprocessing    series.PreprocessReport `json:"preprocessing"`
	Fingerprint      core.Hash               `json:"fingerprint"`
}
