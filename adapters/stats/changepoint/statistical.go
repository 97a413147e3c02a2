package changepoint

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"gobrittle/domain/brittleness"
	"gobrittle/domain/series"
)

const minEffectSize = 0.8

// StatisticalDetector compares the blocks either side of each window
// start with Welch's t-test
type StatisticalDetector struct {
	alpha float64
}

// NewStatisticalDetector creates the detector with a significance level
func NewStatisticalDetector(alpha float64) *StatisticalDetector {
	return &StatisticalDetector{alpha: alpha}
}

// Method returns the detector method
func (d *StatisticalDetector) Method() brittleness.Method {
	return brittleness.MethodStatistical
}

type welchResult struct {
	index int
	t     float64
	p     float64
	d     float64
}

// Detect emits a candidate for every test that dominates its
// neighbourhood and is both significant and of large effect. The index is
// refined to the best split of the two blocks.
func (d *StatisticalDetector) Detect(ctx context.Context, s *series.Series, windows []brittleness.WindowFeatures) ([]brittleness.Candidate, error) {
	if len(windows) == 0 {
		return nil, nil
	}
	h := windows[0].Range.Len()
	values := s.Values()

	var tests []welchResult
	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		i := w.Range.Start
		if i-h < 0 || i+h > len(values) {
			continue
		}
		t, p, effect, ok := welch(values[i-h:i], values[i:i+h])
		if !ok {
			continue
		}
		tests = append(tests, welchResult{index: i, t: t, p: p, d: effect})
	}

	var candidates []brittleness.Candidate
	for _, r := range tests {
		if !strongestWithin(tests, r, h) {
			continue
		}
		if r.p >= d.alpha || math.Abs(r.d) < minEffectSize {
			continue
		}
		candidates = append(candidates, brittleness.Candidate{
			Index:      splitIndex(values, r.index-h, r.index+h-1),
			Method:     d.Method(),
			Confidence: math.Min(1, math.Abs(r.d)/2),
		})
	}
	return candidates, nil
}

// strongestWithin reports whether r has the largest |t| among the tests
// closer than h to it. Ties go to the earlier test, so every block pair
// that straddles one shift yields a single candidate.
func strongestWithin(tests []welchResult, r welchResult, h int) bool {
	own := math.Abs(r.t)
	for _, o := range tests {
		if o.index == r.index || o.index <= r.index-h || o.index >= r.index+h {
			continue
		}
		other := math.Abs(o.t)
		if other > own || (other == own && o.index < r.index) {
			return false
		}
	}
	return true
}

// welch returns the t statistic, two-sided p-value and Cohen's d of b
// against a. ok is false when both blocks are identical constants.
func welch(a, b []float64) (t, p, effect float64, ok bool) {
	if len(a) < 2 || len(b) < 2 {
		return 0, 1, 0, false
	}
	m1, v1 := stat.MeanVariance(a, nil)
	m2, v2 := stat.MeanVariance(b, nil)
	n1, n2 := float64(len(a)), float64(len(b))

	if v1+v2 == 0 {
		if m1 == m2 {
			return 0, 1, 0, false
		}
		inf := math.Inf(1)
		if m2 < m1 {
			inf = math.Inf(-1)
		}
		return inf, 0, inf, true
	}

	se1, se2 := v1/n1, v2/n2
	t = (m2 - m1) / math.Sqrt(se1+se2)
	df := (se1 + se2) * (se1 + se2) / (se1*se1/(n1-1) + se2*se2/(n2-1))
	if df <= 0 || math.IsNaN(df) {
		return t, 1, 0, false
	}

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p = 2 * (1 - tDist.CDF(math.Abs(t)))
	effect = (m2 - m1) / math.Sqrt((v1+v2)/2)
	return t, p, effect, true
}
