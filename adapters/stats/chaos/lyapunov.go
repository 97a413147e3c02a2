package chaos

import "math"

// LargestLyapunov estimates the largest Lyapunov exponent (per sample)
// following Rosenstein: each delay vector is paired with its nearest
// neighbour outside the Theiler window and the mean log divergence is
// regressed against the step count. Neighbour ties go to the lower index,
// so the result is reproducible bit for bit.
func LargestLyapunov(data []float64) float64 {
	_, std := meanStd(data)
	if std == 0 {
		return 0
	}
	vectors := embed(data, EmbeddingDimension, TimeDelay)
	m := len(vectors)
	if m <= TheilerWindow+DivergenceSteps {
		return 0
	}

	neighbours := make([]int, m)
	for i := 0; i < m; i++ {
		best, bestDist := -1, math.Inf(1)
		for j := 0; j < m; j++ {
			if abs(i-j) <= TheilerWindow {
				continue
			}
			d := euclidean(vectors[i], vectors[j])
			if d > 0 && d < bestDist {
				best, bestDist = j, d
			}
		}
		neighbours[i] = best
	}

	var steps, divergence []float64
	for k := 0; k < DivergenceSteps; k++ {
		sum, count := 0.0, 0
		for i := 0; i < m; i++ {
			j := neighbours[i]
			if j < 0 || i+k >= m || j+k >= m {
				continue
			}
			if d := euclidean(vectors[i+k], vectors[j+k]); d > 0 {
				sum += math.Log(d)
				count++
			}
		}
		if count == 0 {
			continue
		}
		steps = append(steps, float64(k))
		divergence = append(divergence, sum/float64(count))
	}

	lambda, ok := slope(steps, divergence)
	if !ok {
		return 0
	}
	return lambda
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
