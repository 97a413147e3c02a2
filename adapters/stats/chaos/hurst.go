package chaos

import "math"

const minHurstChunk = 4

// Hurst estimates the Hurst exponent by rescaled-range analysis over
// doubling chunk sizes. 0.5 is returned when no chunk has variance.
func Hurst(data []float64) float64 {
	n := len(data)
	var logSizes, logRS []float64

	for size := minHurstChunk; size <= n/2; size *= 2 {
		chunks := n / size
		total, used := 0.0, 0
		for c := 0; c < chunks; c++ {
			if rs, ok := rescaledRange(data[c*size : (c+1)*size]); ok {
				total += rs
				used++
			}
		}
		if used == 0 {
			continue
		}
		logSizes = append(logSizes, math.Log(float64(size)))
		logRS = append(logRS, math.Log(total/float64(used)))
	}

	h, ok := slope(logSizes, logRS)
	if !ok {
		return 0.5
	}
	return math.Max(0, math.Min(1, h))
}

func rescaledRange(chunk []float64) (float64, bool) {
	mean, std := meanStd(chunk)
	if std == 0 {
		return 0, false
	}
	cum, lo, hi := 0.0, 0.0, 0.0
	for _, v := range chunk {
		cum += v - mean
		lo = math.Min(lo, cum)
		hi = math.Max(hi, cum)
	}
	rs := (hi - lo) / std
	if rs <= 0 {
		return 0, false
	}
	return rs, true
}
