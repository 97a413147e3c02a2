// Package chaos implements the nonlinear-dynamics descriptors used to
// characterise a physiological window. Every kernel is deterministic:
// fixed embedding parameters, no random sampling, ties broken by index.
package chaos

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Embedding parameters shared by the phase-space kernels
const (
	EmbeddingDimension = 3
	TimeDelay          = 1
	TheilerWindow      = 3
	DivergenceSteps    = 5
)

// meanStd returns the mean and population standard deviation
func meanStd(data []float64) (float64, float64) {
	if len(data) == 0 {
		return 0, 0
	}
	mean, _ := stats.Mean(data)
	std, _ := stats.StandardDeviationPopulation(data)
	return mean, std
}

// slope fits y = a + b*x and returns b; ok is false when there are fewer
// than two usable points.
func slope(xs, ys []float64) (float64, bool) {
	if len(xs) < 2 || len(xs) != len(ys) {
		return 0, false
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return 0, false
	}
	return beta, true
}

// embed builds delay vectors of dimension m and delay tau
func embed(data []float64, m, tau int) [][]float64 {
	count := len(data) - (m-1)*tau
	if count <= 0 {
		return nil
	}
	vectors := make([][]float64, count)
	for i := 0; i < count; i++ {
		v := make([]float64, m)
		for d := 0; d < m; d++ {
			v[d] = data[i+d*tau]
		}
		vectors[i] = v
	}
	return vectors
}

func euclidean(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func chebyshev(a, b []float64) float64 {
	maxDiff := 0.0
	for i := range a {
		if d := math.Abs(a[i] - b[i]); d > maxDiff {
			maxDiff = d
		}
	}
	return maxDiff
}
