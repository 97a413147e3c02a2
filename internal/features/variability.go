package features

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"gobrittle/adapters/stats/chaos"
	"gobrittle/domain/brittleness"
	"gobrittle/domain/series"
	"gobrittle/internal/config"
)

// Kernel parameters
const (
	ApEnDimension  = 2
	ApEnTolerance  = 0.2
	ShannonBins    = 10
	HiguchiMaxK    = 5
	nightStartHour = 22
	nightEndHour   = 6
	expectedDip    = 0.10
)

// Domain term names
const (
	TermExcursionIndex    = "excursion_index"
	TermSTInstability     = "st_instability"
	TermQTVariability     = "qt_variability"
	TermNocturnalDipRatio = "nocturnal_dip_ratio"
	TermDipDeficit        = "dip_deficit"
)

// Window is the raw material of one feature computation
type Window struct {
	Values     []float64
	Timestamps []time.Time
	Channels   map[string][]float64
}

// Compute derives the full feature vector of a window
func Compute(w Window, profile config.DomainProfile) brittleness.FeatureVector {
	fv := Variability(w.Values, w.Timestamps, profile)

	fv.ApproxEntropy = chaos.ApproximateEntropy(w.Values, ApEnDimension, ApEnTolerance)
	fv.ShannonEntropy = chaos.ShannonEntropy(w.Values, ShannonBins)
	fv.Hurst = chaos.Hurst(w.Values)
	fv.FractalDimension = chaos.HiguchiFractalDimension(w.Values, HiguchiMaxK)
	fv.CorrelationDimension = chaos.CorrelationDimension(w.Values)
	fv.Lyapunov = chaos.LargestLyapunov(w.Values)

	fv.DomainTerms = DomainTerms(w, profile)
	return fv
}

// Variability computes the distributional and rate-of-change features
func Variability(values []float64, timestamps []time.Time, profile config.DomainProfile) brittleness.FeatureVector {
	var fv brittleness.FeatureVector
	if len(values) == 0 {
		return fv
	}

	fv.Mean, _ = stats.Mean(values)
	fv.StdDev, _ = stats.StandardDeviationPopulation(values)
	fv.Min, _ = stats.Min(values)
	fv.Max, _ = stats.Max(values)
	fv.RangeSpan = fv.Max - fv.Min
	if fv.Mean != 0 {
		fv.CV = fv.StdDev / math.Abs(fv.Mean)
	}

	outside, danger := 0, 0
	for _, v := range values {
		if v < profile.TargetLow || v > profile.TargetHigh {
			outside++
		}
		if v < profile.DangerLow || v > profile.DangerHigh {
			danger++
		}
	}
	fv.OutOfRangeFraction = float64(outside) / float64(len(values))
	fv.DangerFraction = float64(danger) / float64(len(values))

	rates := Rates(values, timestamps)
	if len(rates) > 0 {
		rapid := 0
		sum := 0.0
		for _, r := range rates {
			a := math.Abs(r)
			sum += a
			if a > profile.RapidChangePerMinute {
				rapid++
			}
		}
		fv.MeanAbsRate = sum / float64(len(rates))
		fv.RapidChangeRate = float64(rapid) / float64(len(rates))
	}
	return fv
}

// Rates returns the per-minute rate of change between consecutive samples
func Rates(values []float64, timestamps []time.Time) []float64 {
	if len(values) < 2 || len(timestamps) != len(values) {
		return nil
	}
	rates := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		minutes := timestamps[i].Sub(timestamps[i-1]).Minutes()
		if minutes <= 0 {
			continue
		}
		rates = append(rates, (values[i]-values[i-1])/minutes)
	}
	return rates
}

// DomainTerms computes the domain-specific disruption descriptors
func DomainTerms(w Window, profile config.DomainProfile) map[string]float64 {
	terms := make(map[string]float64)

	switch profile.DisruptionTerm {
	case TermExcursionIndex:
		terms[TermExcursionIndex] = excursionIndex(w.Values, profile)
	case TermSTInstability:
		if st := finite(w.Channels["st"]); len(st) > 1 {
			sd, _ := stats.StandardDeviationPopulation(st)
			terms[TermSTInstability] = sd
		}
		if qt := finite(w.Channels["qt"]); len(qt) > 1 {
			mean, _ := stats.Mean(qt)
			sd, _ := stats.StandardDeviationPopulation(qt)
			if mean != 0 {
				terms[TermQTVariability] = sd / math.Abs(mean)
			}
		}
	case TermDipDeficit:
		if ratio, ok := nocturnalDip(w.Values, w.Timestamps); ok {
			terms[TermNocturnalDipRatio] = ratio
			terms[TermDipDeficit] = math.Max(0, math.Min(1, (expectedDip-ratio)/expectedDip))
		}
	}

	if len(terms) == 0 {
		return nil
	}
	return terms
}

// excursionIndex is the mean distance outside the target range in units
// of the target half-width
func excursionIndex(values []float64, profile config.DomainProfile) float64 {
	half := profile.TargetHalfWidth()
	if len(values) == 0 || half <= 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		switch {
		case v > profile.TargetHigh:
			sum += v - profile.TargetHigh
		case v < profile.TargetLow:
			sum += profile.TargetLow - v
		}
	}
	return sum / float64(len(values)) / half
}

// nocturnalDip is the relative fall of the night mean below the day mean
func nocturnalDip(values []float64, timestamps []time.Time) (float64, bool) {
	var day, night []float64
	for i, v := range values {
		if i >= len(timestamps) {
			break
		}
		h := timestamps[i].Hour()
		if h >= nightStartHour || h < nightEndHour {
			night = append(night, v)
		} else {
			day = append(day, v)
		}
	}
	if len(day) == 0 || len(night) == 0 {
		return 0, false
	}
	dayMean, _ := stats.Mean(day)
	nightMean, _ := stats.Mean(night)
	if dayMean == 0 {
		return 0, false
	}
	return (dayMean - nightMean) / dayMean, true
}

func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// SegmentTerms computes the domain terms over an arbitrary range of a series
func SegmentTerms(s *series.Series, r series.WindowRange, profile config.DomainProfile) map[string]float64 {
	return DomainTerms(windowOf(s, r), profile)
}
