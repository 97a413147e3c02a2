package chaos

import "math"

// ApproximateEntropy computes Pincus' ApEn(m, r) with r = rFactor * sigma.
// A constant sequence has zero entropy.
func ApproximateEntropy(data []float64, m int, rFactor float64) float64 {
	n := len(data)
	if n <= m+1 {
		return 0
	}
	_, std := meanStd(data)
	if std == 0 {
		return 0
	}
	r := rFactor * std

	apen := phi(data, m, r) - phi(data, m+1, r)
	if apen < 0 || math.IsNaN(apen) {
		return 0
	}
	return apen
}

// phi is the average log-frequency of template matches of length m
func phi(data []float64, m int, r float64) float64 {
	templates := embed(data, m, 1)
	count := len(templates)
	if count == 0 {
		return 0
	}

	sum := 0.0
	for i := 0; i < count; i++ {
		matches := 0
		for j := 0; j < count; j++ {
			if chebyshev(templates[i], templates[j]) <= r {
				matches++
			}
		}
		sum += math.Log(float64(matches) / float64(count))
	}
	return sum / float64(count)
}

// ShannonEntropy bins the values into equal-width bins and returns the
// entropy normalised by log2(bins), in [0,1].
func ShannonEntropy(data []float64, bins int) float64 {
	if len(data) == 0 || bins < 2 {
		return 0
	}
	lo, hi := data[0], data[0]
	for _, v := range data {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi == lo {
		return 0
	}

	counts := make([]int, bins)
	width := (hi - lo) / float64(bins)
	for _, v := range data {
		b := int((v - lo) / width)
		if b >= bins {
			b = bins - 1
		}
		counts[b]++
	}

	h := 0.0
	n := float64(len(data))
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h / math.Log2(float64(bins))
}
