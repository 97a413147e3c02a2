package chaos

import "math"

// HiguchiFractalDimension estimates the fractal dimension of the curve.
// A flat curve has dimension 1.
func HiguchiFractalDimension(data []float64, kmax int) float64 {
	n := len(data)
	if kmax > n/4 {
		kmax = n / 4
	}
	if kmax < 2 {
		return 1
	}

	var logInvK, logL []float64
	for k := 1; k <= kmax; k++ {
		total := 0.0
		for m := 0; m < k; m++ {
			steps := (n - 1 - m) / k
			if steps == 0 {
				continue
			}
			length := 0.0
			for i := 1; i <= steps; i++ {
				length += math.Abs(data[m+i*k] - data[m+(i-1)*k])
			}
			total += length * float64(n-1) / float64(steps*k) / float64(k)
		}
		lk := total / float64(k)
		if lk <= 0 {
			return 1
		}
		logInvK = append(logInvK, math.Log(1/float64(k)))
		logL = append(logL, math.Log(lk))
	}

	fd, ok := slope(logInvK, logL)
	if !ok {
		return 1
	}
	return math.Max(1, math.Min(2, fd))
}

// correlationRadii are multiples of sigma at which C(r) is sampled
var correlationRadii = []float64{0.1, 0.2, 0.4, 0.8}

// CorrelationDimension is the Grassberger-Procaccia estimate with the
// fixed embedding. Constant input yields 0.
func CorrelationDimension(data []float64) float64 {
	_, std := meanStd(data)
	if std == 0 {
		return 0
	}
	vectors := embed(data, EmbeddingDimension, TimeDelay)
	m := len(vectors)
	if m < 3 {
		return 0
	}

	counts := make([]int, len(correlationRadii))
	pairs := 0
	for i := 0; i < m; i++ {
		for j := i + 1; j < m; j++ {
			d := euclidean(vectors[i], vectors[j])
			pairs++
			for k, f := range correlationRadii {
				if d < f*std {
					counts[k]++
				}
			}
		}
	}

	var logR, logC []float64
	for k, f := range correlationRadii {
		if counts[k] == 0 {
			continue
		}
		logR = append(logR, math.Log(f*std))
		logC = append(logC, math.Log(float64(counts[k])/float64(pairs)))
	}

	d2, ok := slope(logR, logC)
	if !ok || d2 < 0 {
		return 0
	}
	return d2
}
