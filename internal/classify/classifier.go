package classify

import (
	"gobrittle/domain/brittleness"
	"gobrittle/internal/config"
)

// Dynamics patterns
const (
	PatternStable          = "stable"
	PatternChaotic         = "chaotic"
	PatternMemoryLoss      = "memory-loss"
	PatternRandom          = "random"
	PatternQuasiPeriodic   = "quasi-periodic"
	PatternFrequencyDomain = "frequency-domain"
)

// Classifier maps an overall score onto the domain's labelled levels
type Classifier struct {
	profile config.DomainProfile
}

// NewClassifier creates a classifier for a domain profile
func NewClassifier(profile config.DomainProfile) *Classifier {
	return &Classifier{profile: profile}
}

// Classify returns the level, its roman code, the domain label and the
// dynamics pattern suggested by the series-level descriptors
func (c *Classifier) Classify(score float64, m brittleness.SegmentMetrics) brittleness.Classification {
	level := brittleness.LevelForScore(score)
	return brittleness.Classification{
		Level:   level,
		Code:    level.Code(),
		Label:   c.profile.Labels[level-1],
		Pattern: Pattern(level, m),
	}
}

// Pattern applies the fixed dynamics rules in order
func Pattern(level brittleness.Level, m brittleness.SegmentMetrics) string {
	switch {
	case level == brittleness.LevelI:
		return PatternStable
	case m.Lyapunov > 0.1:
		return PatternChaotic
	case m.Hurst < 0.35:
		return PatternMemoryLoss
	case m.ApproxEntropy > 1.0 && m.ShannonEntropy > 0.85:
		return PatternRandom
	case m.FractalDimension < 1.3 && m.ApproxEntropy < 0.5:
		return PatternQuasiPeriodic
	default:
		return PatternFrequencyDomain
	}
}

// Trends compares each segment with the one before it; a change of more
// than five points is a trend
func Trends(segments []brittleness.Segment) {
	for i := range segments {
		if i == 0 {
			segments[i].Trend = brittleness.TrendStable
			continue
		}
		segments[i].Trend = TrendBetween(segments[i-1].Score, segments[i].Score)
	}
}

// TrendBetween classifies the move from one score to the next
func TrendBetween(before, after float64) brittleness.Trend {
	switch delta := after - before; {
	case delta > 5:
		return brittleness.TrendWorsening
	case delta < -5:
		return brittleness.TrendImproving
	default:
		return brittleness.TrendStable
	}
}

// OverallTrend compares the last segment with the first
func OverallTrend(segments []brittleness.Segment) brittleness.Trend {
	if len(segments) < 2 {
		return brittleness.TrendStable
	}
	return TrendBetween(segments[0].Score, segments[len(segments)-1].Score)
}
