package changepoint

import (
	"context"
	"math"

	"gobrittle/domain/brittleness"
	"gobrittle/domain/series"
	"gobrittle/internal/config"

	"github.com/montanaflynn/stats"
)

// GradientDetector looks for abrupt sustained slopes in the smoothed
// signal, measured in domain units per hour
type GradientDetector struct {
	threshold float64
	lag       int
}

// NewGradientDetector creates the detector for a domain profile
func NewGradientDetector(profile config.DomainProfile) *GradientDetector {
	lag := profile.MinWindowPoints / 2
	if lag < 3 {
		lag = 3
	}
	return &GradientDetector{threshold: profile.GradientPerHour, lag: lag}
}

// Method returns the detector method
func (d *GradientDetector) Method() brittleness.Method {
	return brittleness.MethodGradient
}

// Detect emits one candidate at the steepest point of each run of
// same-signed slopes beyond the threshold
func (d *GradientDetector) Detect(ctx context.Context, s *series.Series, _ []brittleness.WindowFeatures) ([]brittleness.Candidate, error) {
	n := s.Len()
	if n < 2*d.lag+1 || d.threshold <= 0 {
		return nil, nil
	}
	smooth := movingAverage(s.Values(), d.lag/2)
	full := s.FullRange()
	times := s.Timestamps(full)

	var candidates []brittleness.Candidate
	peak, peakIndex, sign := 0.0, -1, 0
	flush := func() {
		if peakIndex >= 0 {
			candidates = append(candidates, brittleness.Candidate{
				Index:      peakIndex,
				Method:     d.Method(),
				Confidence: clamp01(1 - d.threshold/peak),
			})
		}
		peak, peakIndex, sign = 0, -1, 0
	}

	for i := d.lag; i < n-d.lag; i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		hours := times[i+d.lag].Sub(times[i-d.lag]).Hours()
		if hours <= 0 {
			continue
		}
		g := (smooth[i+d.lag] - smooth[i-d.lag]) / hours
		if math.Abs(g) <= d.threshold {
			flush()
			continue
		}
		gs := 1
		if g < 0 {
			gs = -1
		}
		if sign != 0 && gs != sign {
			flush()
		}
		sign = gs
		if math.Abs(g) > peak {
			peak, peakIndex = math.Abs(g), i
		}
	}
	flush()
	return candidates, nil
}

// movingAverage is a centered mean of radius r, truncated at the edges
func movingAverage(values []float64, r int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		lo, hi := i-r, i+r
		if lo < 0 {
			lo = 0
		}
		if hi > len(values)-1 {
			hi = len(values) - 1
		}
		out[i], _ = stats.Mean(values[lo : hi+1])
	}
	return out
}
