// Package classify scores segments and maps the series onto the
// five-level brittleness taxonomy.
package classify

import (
	"math"
	"sort"

	"gobrittle/domain/brittleness"
	"gobrittle/domain/series"
	"gobrittle/internal/config"
	"gobrittle/internal/features"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Reference magnitudes for the rhythm sub-score
const (
	apEnReference     = 1.5
	lyapunovReference = 0.5
)

// FeatureSource computes the features of an arbitrary range
type FeatureSource interface {
	Features(s *series.Series, r series.WindowRange) brittleness.FeatureVector
}

// Scorer evaluates segments of one run
type Scorer struct {
	profile config.DomainProfile
	weights config.ScoreWeights
	windows []brittleness.WindowFeatures
	source  FeatureSource
}

// NewScorer creates a scorer over the run's extracted windows
func NewScorer(cfg config.AnalysisConfig, windows []brittleness.WindowFeatures, source FeatureSource) *Scorer {
	return &Scorer{
		profile: cfg.Profile(),
		weights: cfg.ScoreWeights,
		windows: windows,
		source:  source,
	}
}

// Evaluate computes metrics, sub-scores and the composite score of r
func (sc *Scorer) Evaluate(s *series.Series, r series.WindowRange) brittleness.Segment {
	metrics := sc.Metrics(s, r)
	sub := sc.SubScores(metrics)
	return brittleness.Segment{
		Metrics:   metrics,
		SubScores: sub,
		Score:     sc.Composite(sub),
	}
}

// Metrics aggregates the raw values of r with the mean chaos descriptors
// of the windows lying entirely inside it
func (sc *Scorer) Metrics(s *series.Series, r series.WindowRange) brittleness.SegmentMetrics {
	fv := features.Variability(s.Slice(r), s.Timestamps(r), sc.profile)
	m := brittleness.SegmentMetrics{
		Mean:               fv.Mean,
		StdDev:             fv.StdDev,
		CV:                 fv.CV,
		TimeInTarget:       1 - fv.OutOfRangeFraction,
		OutOfRangeFraction: fv.OutOfRangeFraction,
		DangerFraction:     fv.DangerFraction,
		RapidChangeRate:    fv.RapidChangeRate,
		RangeSpan:          fv.RangeSpan,
		DomainTerms:        features.SegmentTerms(s, r, sc.profile),
	}

	var apen, shannon, lyap, hurst, fractal, corr []float64
	for _, w := range sc.windows {
		if w.Insufficient || !r.Contains(w.Range) {
			continue
		}
		f := w.Features
		apen = append(apen, f.ApproxEntropy)
		shannon = append(shannon, f.ShannonEntropy)
		lyap = append(lyap, f.Lyapunov)
		hurst = append(hurst, f.Hurst)
		fractal = append(fractal, f.FractalDimension)
		corr = append(corr, f.CorrelationDimension)
	}

	if len(apen) == 0 {
		f := sc.source.Features(s, r)
		m.ApproxEntropy = f.ApproxEntropy
		m.ShannonEntropy = f.ShannonEntropy
		m.Lyapunov = f.Lyapunov
		m.Hurst = f.Hurst
		m.FractalDimension = f.FractalDimension
		m.CorrelationDimension = f.CorrelationDimension
		return m
	}

	m.ApproxEntropy = stat.Mean(apen, nil)
	m.ShannonEntropy = stat.Mean(shannon, nil)
	m.Lyapunov = stat.Mean(lyap, nil)
	m.Hurst = stat.Mean(hurst, nil)
	m.FractalDimension = stat.Mean(fractal, nil)
	m.CorrelationDimension = stat.Mean(corr, nil)
	m.Windows = len(apen)
	return m
}

// SubScores maps metrics to [0,1]; each sub-score is non-decreasing in
// the metrics it reads
func (sc *Scorer) SubScores(m brittleness.SegmentMetrics) brittleness.SubScores {
	th := sc.profile.Instability
	return brittleness.SubScores{
		Variability:     ratio(m.CV, 2*th.CV),
		Rhythm:          sc.rhythm(m),
		OutOfRange:      ratio(m.OutOfRangeFraction, 2*th.DangerFraction),
		PeakFluctuation: ratio(m.RangeSpan, 2*th.RangeSpan),
	}
}

func (sc *Scorer) rhythm(m brittleness.SegmentMetrics) float64 {
	apen := ratio(m.ApproxEntropy, apEnReference)
	lyap := ratio(m.Lyapunov, lyapunovReference)
	rapid := ratio(m.RapidChangeRate, 2*sc.profile.Instability.RapidRate)

	term, ok := m.DomainTerms[sc.profile.DisruptionTerm]
	if !ok || sc.profile.DisruptionReference <= 0 {
		return 0.4*apen + 0.3*lyap + 0.3*rapid
	}
	return 0.35*apen + 0.25*lyap + 0.25*rapid + 0.15*ratio(term, sc.profile.DisruptionReference)
}

// Composite weighs the sub-scores into a 0-100 score
func (sc *Scorer) Composite(sub brittleness.SubScores) float64 {
	w := sc.weights
	return brittleness.ClampScore(floats.Dot(
		[]float64{w.Variability, w.Rhythm, w.OutOfRange, w.PeakFluctuation},
		[]float64{sub.Variability, sub.Rhythm, sub.OutOfRange, sub.PeakFluctuation},
	))
}

// OverallScore is the weighted mean segment score. The weights are the
// metric-independent part of the segment importance, so a segment that
// gets worse can only raise the overall score. Without weights it falls
// back to the plain mean.
func OverallScore(segments []brittleness.Segment) float64 {
	if len(segments) == 0 {
		return 0
	}
	scores := make([]float64, len(segments))
	weights := make([]float64, len(segments))
	for i, seg := range segments {
		scores[i] = seg.Score
		weights[i] = seg.Weight
	}
	if floats.Sum(weights) <= 0 {
		return brittleness.ClampScore(stat.Mean(scores, nil))
	}
	return brittleness.ClampScore(stat.Mean(scores, weights))
}

// SeriesMetrics is the point-weighted mean of the segment metrics
func SeriesMetrics(segments []brittleness.Segment) brittleness.SegmentMetrics {
	var out brittleness.SegmentMetrics
	points := make([]float64, len(segments))
	for i, seg := range segments {
		points[i] = float64(seg.Points)
	}
	if floats.Sum(points) == 0 {
		return out
	}

	column := func(get func(brittleness.SegmentMetrics) float64) float64 {
		xs := make([]float64, len(segments))
		for i, seg := range segments {
			xs[i] = get(seg.Metrics)
		}
		return stat.Mean(xs, points)
	}
	out.Mean = column(func(m brittleness.SegmentMetrics) float64 { return m.Mean })
	out.StdDev = column(func(m brittleness.SegmentMetrics) float64 { return m.StdDev })
	out.CV = column(func(m brittleness.SegmentMetrics) float64 { return m.CV })
	out.TimeInTarget = column(func(m brittleness.SegmentMetrics) float64 { return m.TimeInTarget })
	out.OutOfRangeFraction = column(func(m brittleness.SegmentMetrics) float64 { return m.OutOfRangeFraction })
	out.DangerFraction = column(func(m brittleness.SegmentMetrics) float64 { return m.DangerFraction })
	out.RapidChangeRate = column(func(m brittleness.SegmentMetrics) float64 { return m.RapidChangeRate })
	out.ApproxEntropy = column(func(m brittleness.SegmentMetrics) float64 { return m.ApproxEntropy })
	out.ShannonEntropy = column(func(m brittleness.SegmentMetrics) float64 { return m.ShannonEntropy })
	out.Lyapunov = column(func(m brittleness.SegmentMetrics) float64 { return m.Lyapunov })
	out.Hurst = column(func(m brittleness.SegmentMetrics) float64 { return m.Hurst })
	out.FractalDimension = column(func(m brittleness.SegmentMetrics) float64 { return m.FractalDimension })
	out.CorrelationDimension = column(func(m brittleness.SegmentMetrics) float64 { return m.CorrelationDimension })

	keys := make(map[string]bool)
	for _, seg := range segments {
		out.RangeSpan = math.Max(out.RangeSpan, seg.Metrics.RangeSpan)
		out.Windows += seg.Metrics.Windows
		for k := range seg.Metrics.DomainTerms {
			keys[k] = true
		}
	}
	if len(keys) == 0 {
		return out
	}
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)
	out.DomainTerms = make(map[string]float64, len(names))
	for _, k := range names {
		out.DomainTerms[k] = column(func(m brittleness.SegmentMetrics) float64 { return m.DomainTerms[k] })
	}
	return out
}

// ratio returns x/ref clamped to [0,1]; negative or NaN inputs count as 0
func ratio(x, ref float64) float64 {
	if ref <= 0 || math.IsNaN(x) || x <= 0 {
		return 0
	}
	return math.Min(1, x/ref)
}
