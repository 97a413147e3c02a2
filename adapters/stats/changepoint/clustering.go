package changepoint

import (
	"context"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"gobrittle/domain/brittleness"
	"gobrittle/domain/series"
)

const (
	clusterCount      = 2
	maxKMeansRounds   = 50
	minSeparation     = 3.0
	minClusterWindows = 4
)

// ClusteringDetector splits the windows into two regimes with a
// deterministic k-means and reports the persistent regime switches
type ClusteringDetector struct{}

// NewClusteringDetector creates the detector
func NewClusteringDetector() *ClusteringDetector {
	return &ClusteringDetector{}
}

// Method returns the detector method
func (d *ClusteringDetector) Method() brittleness.Method {
	return brittleness.MethodClustering
}

// Detect clusters the standardized window features
func (d *ClusteringDetector) Detect(ctx context.Context, s *series.Series, windows []brittleness.WindowFeatures) ([]brittleness.Candidate, error) {
	if len(windows) < minClusterWindows {
		return nil, nil
	}
	points := standardize(featureMatrix(windows))

	labels, centroids := kmeans(points, seedCentroids(points, windows))
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	separation := floats.Distance(centroids[0], centroids[1], 2)
	if separation == 0 {
		return nil, nil
	}
	spread := projectedSpread(points, labels, centroids)
	if separation < minSeparation*spread {
		return nil, nil
	}

	confidence := 1.0
	if spread > 0 {
		confidence = clamp01(separation / (2 * minSeparation * spread))
	}

	values := s.Values()
	runs := persistentRuns(labels)
	var candidates []brittleness.Candidate
	for k := 1; k < len(runs); k++ {
		// the switch lies somewhere in the span of the two bordering windows
		lo := windows[runs[k-1].last].Range.Start
		hi := windows[runs[k].first].Range.End
		candidates = append(candidates, brittleness.Candidate{
			Index:      splitIndex(values, lo, hi),
			Method:     d.Method(),
			Confidence: confidence,
		})
	}
	return candidates, nil
}

// featureMatrix picks the clustering features of each window
func featureMatrix(windows []brittleness.WindowFeatures) [][]float64 {
	rows := make([][]float64, len(windows))
	for i, w := range windows {
		f := w.Features
		rows[i] = []float64{f.Mean, f.StdDev, f.CV, f.ApproxEntropy, f.RapidChangeRate}
	}
	return rows
}

// standardize z-scores every column; constant columns become zero
func standardize(rows [][]float64) [][]float64 {
	if len(rows) == 0 {
		return rows
	}
	cols := len(rows[0])
	out := make([][]float64, len(rows))
	for i := range out {
		out[i] = make([]float64, cols)
	}
	column := make([]float64, len(rows))
	for c := 0; c < cols; c++ {
		for i, r := range rows {
			column[i] = r[c]
		}
		mean, std := stat.PopMeanStdDev(column, nil)
		if std == 0 || math.IsNaN(std) {
			continue
		}
		for i := range rows {
			out[i][c] = (column[i] - mean) / std
		}
	}
	return out
}

// seedCentroids takes the windows at the lower and upper quartile of the
// mean ordering
func seedCentroids(points [][]float64, windows []brittleness.WindowFeatures) [][]float64 {
	order := make([]int, len(windows))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return windows[order[a]].Features.Mean < windows[order[b]].Features.Mean
	})

	n := len(order)
	low := order[n/4]
	high := order[(3*n)/4]
	return [][]float64{
		append([]float64(nil), points[low]...),
		append([]float64(nil), points[high]...),
	}
}

// kmeans runs Lloyd iterations from fixed seeds; ties go to cluster 0
func kmeans(points, centroids [][]float64) ([]int, [][]float64) {
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = -1
	}

	for round := 0; round < maxKMeansRounds; round++ {
		changed := false
		for i, p := range points {
			best := 0
			if floats.Distance(p, centroids[1], 2) < floats.Distance(p, centroids[0], 2) {
				best = 1
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed {
			break
		}

		for c := 0; c < clusterCount; c++ {
			sum := make([]float64, len(centroids[c]))
			count := 0
			for i, p := range points {
				if labels[i] == c {
					floats.Add(sum, p)
					count++
				}
			}
			if count > 0 {
				floats.Scale(1/float64(count), sum)
				centroids[c] = sum
			}
		}
	}
	return labels, centroids
}

// projectedSpread is the pooled in-cluster standard deviation along the
// axis joining the two centroids
func projectedSpread(points [][]float64, labels []int, centroids [][]float64) float64 {
	axis := make([]float64, len(centroids[0]))
	floats.SubTo(axis, centroids[1], centroids[0])
	norm := floats.Norm(axis, 2)
	if norm == 0 {
		return 0
	}
	floats.Scale(1/norm, axis)

	sum := 0.0
	diff := make([]float64, len(axis))
	for i, p := range points {
		floats.SubTo(diff, p, centroids[labels[i]])
		dev := floats.Dot(diff, axis)
		sum += dev * dev
	}
	return math.Sqrt(sum / float64(len(points)))
}
