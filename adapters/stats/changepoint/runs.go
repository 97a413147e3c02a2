package changepoint

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

const (
	minPersistence = 2
	minSplitSide   = 2
)

// run is a maximal stretch of windows sharing a label
type run struct {
	label int
	first int // window position
	last  int
}

func (r run) len() int { return r.last - r.first + 1 }

// persistentRuns groups labels into runs, folding runs shorter than
// minPersistence into their predecessor (or successor for the first run)
// so that flips only occur between runs that persist.
func persistentRuns(labels []int) []run {
	var runs []run
	for i, l := range labels {
		if len(runs) > 0 && runs[len(runs)-1].label == l {
			runs[len(runs)-1].last = i
			continue
		}
		runs = append(runs, run{label: l, first: i, last: i})
	}

	var folded []run
	for _, r := range runs {
		if r.len() < minPersistence && len(folded) > 0 {
			folded[len(folded)-1].last = r.last
			continue
		}
		if len(folded) > 0 && folded[len(folded)-1].label == r.label {
			folded[len(folded)-1].last = r.last
			continue
		}
		folded = append(folded, r)
	}

	if len(folded) > 1 && folded[0].len() < minPersistence {
		folded[1].first = folded[0].first
		folded = folded[1:]
	}
	return folded
}

// splitIndex returns the first index of the right-hand part of the split
// of values[lo:hi+1] that maximises the two-part Gaussian likelihood, so
// shifts in mean and in variance are both located. Each part keeps at
// least minSplitSide points.
func splitIndex(values []float64, lo, hi int) int {
	if lo < 0 {
		lo = 0
	}
	if hi > len(values)-1 {
		hi = len(values) - 1
	}
	if hi-lo+1 < 2*minSplitSide {
		return lo + (hi-lo+1)/2
	}

	_, total := stat.PopMeanVariance(values[lo:hi+1], nil)
	eps := 1e-9 * (1 + total)

	best, bestCost := lo+minSplitSide, math.Inf(1)
	for k := lo + minSplitSide; k <= hi-minSplitSide+1; k++ {
		_, left := stat.PopMeanVariance(values[lo:k], nil)
		_, right := stat.PopMeanVariance(values[k:hi+1], nil)
		cost := float64(k-lo)*math.Log(left+eps) + float64(hi+1-k)*math.Log(right+eps)
		if cost < bestCost {
			best, bestCost = k, cost
		}
	}
	return best
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
