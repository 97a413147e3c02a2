package series

import (
	"fmt"
	"strings"
	"time"

	"gobrittle/domain/core"
)

// Domain is the sampling domain a series was recorded in
type Domain string

const (
	DomainGlucose       Domain = "glucose"
	DomainECG           Domain = "ecg"
	DomainBloodPressure Domain = "blood_pressure"
)

// Domains lists every supported domain in a fixed order
func Domains() []Domain {
	return []Domain{DomainGlucose, DomainECG, DomainBloodPressure}
}

// ParseDomain accepts the canonical names plus a few common aliases
func ParseDomain(s string) (Domain, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "glucose", "cgm":
		return DomainGlucose, nil
	case "ecg", "holter":
		return DomainECG, nil
	case "blood_pressure", "bp", "abpm":
		return DomainBloodPressure, nil
	default:
		return "", core.NewConfigurationError("sampling_domain", fmt.Sprintf("unknown domain %q", s))
	}
}

// RawSample is one record as delivered by an ingestion component.
// Values[0] is the primary channel; the rest follow the domain channel order.
type RawSample struct {
	Timestamp time.Time `json:"timestamp"`
	Values    []float64 `json:"values"`
}

// Value returns the primary channel value
func (s RawSample) Value() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	return s.Values[0]
}

// PreprocessReport records what the preprocessor did to the raw input
type PreprocessReport struct {
	RawCount      int     `json:"raw_count"`
	DroppedCount  int     `json:"dropped_count"`
	ImputedCount  int     `json:"imputed_count"`
	ExpectedCount int     `json:"expected_count"`
	Coverage      float64 `json:"coverage"`
	Resampled     bool    `json:"resampled"`
}

// WindowRange is an inclusive index range over a series
type WindowRange struct {
	Start int `json:"start_index"`
	End   int `json:"end_index"`
}

// Len returns the number of samples in the range
func (w WindowRange) Len() int {
	if w.End < w.Start {
		return 0
	}
	return w.End - w.Start + 1
}

// Center returns the midpoint index
func (w WindowRange) Center() int {
	return w.Start + (w.End-w.Start)/2
}

// Contains reports whether r lies entirely inside w
func (w WindowRange) Contains(r WindowRange) bool {
	return r.Start >= w.Start && r.End <= w.End
}

func (w WindowRange) String() string {
	return fmt.Sprintf("[%d,%d]", w.Start, w.End)
}
