package changepoint

import (
	"context"

	"gobrittle/domain/brittleness"
	"gobrittle/domain/series"
	"gobrittle/internal/config"
)

const criteriaCount = 4

// InstabilityDetector flags each window against the clinical thresholds
// and reports persistent transitions between stable and unstable phases
type InstabilityDetector struct {
	thresholds config.InstabilityThresholds
}

// NewInstabilityDetector creates the detector for a domain profile
func NewInstabilityDetector(profile config.DomainProfile) *InstabilityDetector {
	return &InstabilityDetector{thresholds: profile.Instability}
}

// Method returns the detector method
func (d *InstabilityDetector) Method() brittleness.Method {
	return brittleness.MethodInstability
}

// Criteria reports which thresholds a feature vector crosses, in the
// order CV, rapid change, danger fraction, range span
func (d *InstabilityDetector) Criteria(f brittleness.FeatureVector) [criteriaCount]bool {
	return [criteriaCount]bool{
		f.CV > d.thresholds.CV,
		f.RapidChangeRate > d.thresholds.RapidRate,
		f.DangerFraction > d.thresholds.DangerFraction,
		f.RangeSpan > d.thresholds.RangeSpan,
	}
}

// Detect emits a candidate at every persistent phase transition
func (d *InstabilityDetector) Detect(ctx context.Context, _ *series.Series, windows []brittleness.WindowFeatures) ([]brittleness.Candidate, error) {
	if len(windows) < 2*minPersistence {
		return nil, nil
	}
	criteria := make([][criteriaCount]bool, len(windows))
	labels := make([]int, len(windows))
	for i, w := range windows {
		criteria[i] = d.Criteria(w.Features)
		for _, c := range criteria[i] {
			if c {
				labels[i] = 1
				break
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runs := persistentRuns(labels)
	var candidates []brittleness.Candidate
	for k := 1; k < len(runs); k++ {
		before := majority(criteria[runs[k-1].first : runs[k-1].last+1])
		after := majority(criteria[runs[k].first : runs[k].last+1])
		changed := 0
		for c := 0; c < criteriaCount; c++ {
			if before[c] != after[c] {
				changed++
			}
		}
		if changed < 1 {
			changed = 1
		}
		candidates = append(candidates, brittleness.Candidate{
			Index:      phaseIndex(windows, runs[k-1], runs[k]),
			Method:     d.Method(),
			Confidence: 0.5 + 0.5*float64(changed-1)/float64(criteriaCount-1),
		})
	}
	return candidates, nil
}

// phaseIndex locates a transition by the samples that differ between the
// last window of a and the first window of b: an onset is driven by the
// samples b gains at its end, a recovery by the samples a loses at its start.
func phaseIndex(windows []brittleness.WindowFeatures, a, b run) int {
	last, first := windows[a.last].Range, windows[b.first].Range
	if b.label == 1 {
		return last.End + (first.End-last.End+1)/2
	}
	return last.Start + (first.Start-last.Start)/2
}

// majority marks a criterion crossed when more than half the windows cross it
func majority(flags [][criteriaCount]bool) [criteriaCount]bool {
	var counts [criteriaCount]int
	for _, f := range flags {
		for c, v := range f {
			if v {
				counts[c]++
			}
		}
	}
	var out [criteriaCount]bool
	for c := range counts {
		out[c] = 2*counts[c] > len(flags)
	}
	return out
}
