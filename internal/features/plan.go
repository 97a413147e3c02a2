package features

import (
	"math"
	"time"

	"gobrittle/domain/series"
	"gobrittle/internal/config"
)

// Plan lays the sliding windows over a series of n points. Explicit
// sizes in points win over durations, durations win over the fractional
// plan. A shorter tail window is appended when the stride leaves the last
// samples uncovered.
func Plan(n int, interval time.Duration, cfg config.AnalysisConfig, profile config.DomainProfile) []series.WindowRange {
	if n <= 0 {
		return nil
	}
	window := windowPoints(n, interval, cfg, profile)
	step := stepPoints(window, interval, cfg, profile)

	if window >= n {
		return []series.WindowRange{{Start: 0, End: n - 1}}
	}

	var windows []series.WindowRange
	start := 0
	for ; start+window <= n; start += step {
		windows = append(windows, series.WindowRange{Start: start, End: start + window - 1})
	}
	if last := windows[len(windows)-1]; last.End < n-1 {
		windows = append(windows, series.WindowRange{Start: start, End: n - 1})
	}
	return windows
}

func windowPoints(n int, interval time.Duration, cfg config.AnalysisConfig, profile config.DomainProfile) int {
	var window int
	switch {
	case cfg.WindowSize > 0:
		window = cfg.WindowSize
	case profile.WindowDuration > 0 && interval > 0:
		window = int(profile.WindowDuration / interval)
	default:
		window = int(math.Round(profile.WindowFraction * float64(n)))
		if window < profile.MinWindowPoints {
			window = profile.MinWindowPoints
		}
	}
	if window < 2 {
		window = 2
	}
	return window
}

func stepPoints(window int, interval time.Duration, cfg config.AnalysisConfig, profile config.DomainProfile) int {
	var step int
	switch {
	case cfg.StepSize > 0:
		step = cfg.StepSize
	case profile.StepDuration > 0 && interval > 0:
		step = int(profile.StepDuration / interval)
	default:
		step = int(math.Round(profile.StepFraction * float64(window)))
	}
	if step < 1 {
		step = 1
	}
	if step > window {
		step = window
	}
	return step
}
