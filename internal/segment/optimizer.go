package segment

import (
	"math"

	"gobrittle/domain/brittleness"
	"gobrittle/domain/series"
	"gobrittle/internal"
	"gobrittle/internal/config"
)

// Evaluator scores one candidate segment. The optimizer fills the
// structural fields (indices, times, importance) itself.
type Evaluator interface {
	Evaluate(s *series.Series, r series.WindowRange) brittleness.Segment
}

// Importance weights
const (
	edgeBonus        = 25.0
	durationLong     = 20.0
	durationMedium   = 15.0
	durationShort    = 10.0
	problemWeight    = 20.0
	moderateWeight   = 12.0
	goodWeight       = 5.0
	divergenceWeight = 15.0
	sampleWeight     = 10.0
)

// Optimizer bounds the number of segments
type Optimizer struct {
	cfg       config.AnalysisConfig
	profile   config.DomainProfile
	evaluator Evaluator
	logger    *internal.Logger
}

// NewOptimizer creates an optimizer for one run
func NewOptimizer(cfg config.AnalysisConfig, evaluator Evaluator, logger *internal.Logger) *Optimizer {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Optimizer{
		cfg:       cfg,
		profile:   cfg.Profile(),
		evaluator: evaluator,
		logger:    logger.With("Optimizer"),
	}
}

// Optimize cuts the series at the boundaries, then merges the least
// important internal segment into its closest neighbour until at most
// MaxSegments remain. If fewer than MinSegments result, the whole series
// is one segment. The returned boundaries are exactly the segment edges.
func (o *Optimizer) Optimize(s *series.Series, boundaries []brittleness.Boundary) ([]brittleness.Segment, []brittleness.Boundary) {
	kept := append([]brittleness.Boundary(nil), boundaries...)
	segments := make([]brittleness.Segment, 0, len(kept)+1)
	start := 0
	for _, b := range kept {
		segments = append(segments, o.evaluate(s, series.WindowRange{Start: start, End: b.Index - 1}))
		start = b.Index
	}
	segments = append(segments, o.evaluate(s, series.WindowRange{Start: start, End: s.Len() - 1}))
	o.rank(s, segments)

	for len(segments) > o.cfg.MaxSegments {
		victim := lowestInternal(segments)
		left := math.Abs(segments[victim].Metrics.Mean-segments[victim-1].Metrics.Mean) <=
			math.Abs(segments[victim].Metrics.Mean-segments[victim+1].Metrics.Mean)

		var merged brittleness.Segment
		if left {
			merged = o.evaluate(s, series.WindowRange{Start: segments[victim-1].StartIndex, End: segments[victim].EndIndex})
			segments = append(segments[:victim-1], append([]brittleness.Segment{merged}, segments[victim+1:]...)...)
			kept = append(kept[:victim-1], kept[victim:]...)
		} else {
			merged = o.evaluate(s, series.WindowRange{Start: segments[victim].StartIndex, End: segments[victim+1].EndIndex})
			segments = append(segments[:victim], append([]brittleness.Segment{merged}, segments[victim+2:]...)...)
			kept = append(kept[:victim], kept[victim+1:]...)
		}
		o.logger.Debug("merged segment %d into its %s neighbour, %d remain", victim, side(left), len(segments))
		o.rank(s, segments)
	}

	if len(segments) < o.cfg.MinSegments {
		whole := o.evaluate(s, s.FullRange())
		segments = []brittleness.Segment{whole}
		kept = nil
		o.rank(s, segments)
	}
	return segments, kept
}

func (o *Optimizer) evaluate(s *series.Series, r series.WindowRange) brittleness.Segment {
	seg := o.evaluator.Evaluate(s, r)
	seg.StartIndex = r.Start
	seg.EndIndex = r.End
	seg.StartTime = s.Time(r.Start)
	seg.EndTime = s.Time(r.End)
	seg.Duration = s.Duration(r) + s.Interval()
	seg.Points = r.Len()
	return seg
}

// rank re-indexes the segments and recomputes their weight and importance
func (o *Optimizer) rank(s *series.Series, segments []brittleness.Segment) {
	for i := range segments {
		segments[i].Index = i
		segments[i].Weight = Weight(segments[i], i, len(segments), s.Len(), o.profile)
		segments[i].Importance = Importance(segments[i], i, len(segments), s.Len(), o.profile)
	}
}

// Importance scores how much a segment matters to the reader of a
// profile: its Weight plus terms for its score and its divergence from
// the neutral baseline
func Importance(seg brittleness.Segment, position, count, totalPoints int, profile config.DomainProfile) float64 {
	score := Weight(seg, position, count, totalPoints, profile)

	switch {
	case seg.Score >= 40:
		score += problemWeight
	case seg.Score >= 20:
		score += moderateWeight
	default:
		score += goodWeight
	}

	if half := profile.TargetHalfWidth(); half > 0 {
		divergence := math.Abs(seg.Metrics.Mean-profile.NeutralBaseline()) / half
		score += divergenceWeight * math.Min(1, divergence)
	}
	return score
}

// Weight is the part of the importance that depends only on where the
// segment sits and how much of the series it covers, never on its
// metrics. The overall score averages segment scores with it.
func Weight(seg brittleness.Segment, position, count, totalPoints int, profile config.DomainProfile) float64 {
	weight := 0.0
	if position == 0 || position == count-1 {
		weight += edgeBonus
	}

	units := 0.0
	if profile.DurationUnit > 0 {
		units = float64(seg.Duration) / float64(profile.DurationUnit)
	}
	switch {
	case units >= 2:
		weight += durationLong
	case units >= 1:
		weight += durationMedium
	default:
		weight += durationShort
	}

	if totalPoints > 0 {
		weight += sampleWeight * float64(seg.Points) / float64(totalPoints)
	}
	return weight
}

// lowestInternal returns the least important segment that is neither
// first nor last; ties go to the lower index
func lowestInternal(segments []brittleness.Segment) int {
	victim := 1
	for i := 2; i < len(segments)-1; i++ {
		if segments[i].Importance < segments[victim].Importance {
			victim = i
		}
	}
	return victim
}

func side(left bool) string {
	if left {
		return "left"
	}
	return "right"
}
