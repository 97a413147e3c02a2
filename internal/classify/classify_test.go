package classify

import (
	"context"
	"math"
	"testing"
	"time"

	"gobrittle/domain/brittleness"
	"gobrittle/domain/series"
	"gobrittle/internal/config"
	"gobrittle/internal/features"
	"gobrittle/internal/preprocess"
	"gobrittle/internal/segment"
	"gobrittle/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func glucoseScorer() *Scorer {
	return NewScorer(config.DefaultAnalysisConfig(series.DomainGlucose), nil, nil)
}

func TestSubScores_Monotone(t *testing.T) {
	sc := glucoseScorer()
	base := brittleness.SegmentMetrics{DomainTerms: map[string]float64{features.TermExcursionIndex: 0}}

	bump := []func(m *brittleness.SegmentMetrics, v float64){
		func(m *brittleness.SegmentMetrics, v float64) { m.CV = v },
		func(m *brittleness.SegmentMetrics, v float64) { m.ApproxEntropy = v },
		func(m *brittleness.SegmentMetrics, v float64) { m.Lyapunov = v },
		func(m *brittleness.SegmentMetrics, v float64) { m.RapidChangeRate = v },
		func(m *brittleness.SegmentMetrics, v float64) { m.OutOfRangeFraction = v },
		func(m *brittleness.SegmentMetrics, v float64) { m.RangeSpan = v },
		func(m *brittleness.SegmentMetrics, v float64) { m.DomainTerms[features.TermExcursionIndex] = v },
	}

	for i, set := range bump {
		prev := -1.0
		for v := -0.5; v <= 30; v += 0.25 {
			m := base
			m.DomainTerms = map[string]float64{features.TermExcursionIndex: 0}
			set(&m, v)
			sub := sc.SubScores(m)
			score := sc.Composite(sub)

			for _, s := range []float64{sub.Variability, sub.Rhythm, sub.OutOfRange, sub.PeakFluctuation} {
				assert.GreaterOrEqual(t, s, 0.0)
				assert.LessOrEqual(t, s, 1.0)
			}
			assert.GreaterOrEqual(t, score, prev, "input %d not monotone at %v", i, v)
			prev = score
		}
	}
}

func TestComposite_Extremes(t *testing.T) {
	sc := glucoseScorer()
	assert.Equal(t, 0.0, sc.Composite(brittleness.SubScores{}))
	assert.InDelta(t, 100.0, sc.Composite(brittleness.SubScores{Variability: 1, Rhythm: 1, OutOfRange: 1, PeakFluctuation: 1}), 1e-9)
	assert.InDelta(t, 40.0, sc.Composite(brittleness.SubScores{Variability: 1}), 1e-9)
}

func TestEvaluate_FlatAndBrittle(t *testing.T) {
	cfg := config.DefaultAnalysisConfig(series.DomainGlucose)
	pre := preprocess.NewPreprocessor(cfg.Profile(), nil)

	flat, err := pre.Process(context.Background(), "p1", testkit.FlatGlucose(2))
	require.NoError(t, err)
	ext := features.NewExtractor(cfg, nil)
	res, err := ext.Extract(context.Background(), flat)
	require.NoError(t, err)

	seg := NewScorer(cfg, res.Windows, ext).Evaluate(flat, flat.FullRange())
	assert.Equal(t, 0.0, seg.Score)
	assert.InDelta(t, 1.0, seg.Metrics.TimeInTarget, 1e-9)
	assert.Greater(t, seg.Metrics.Windows, 0)

	brittle, err := pre.Process(context.Background(), "p1", testkit.BrittleGlucose(3, 2))
	require.NoError(t, err)
	ext = features.NewExtractor(cfg, nil)
	res, err = ext.Extract(context.Background(), brittle)
	require.NoError(t, err)

	tail := series.WindowRange{Start: 96, End: brittle.Len() - 1}
	seg = NewScorer(cfg, res.Windows, ext).Evaluate(brittle, tail)
	assert.Greater(t, seg.Metrics.CV, 0.36)
	assert.GreaterOrEqual(t, seg.Score, 60.0)
}

func TestMetrics_FallsBackToSegmentKernels(t *testing.T) {
	cfg := config.DefaultAnalysisConfig(series.DomainGlucose)
	s, err := preprocess.NewPreprocessor(cfg.Profile(), nil).Process(context.Background(), "p1", testkit.BrittleGlucose(2, 8))
	require.NoError(t, err)
	ext := features.NewExtractor(cfg, nil)

	r := series.WindowRange{Start: 100, End: 130}
	m := NewScorer(cfg, nil, ext).Metrics(s, r)
	assert.Equal(t, 0, m.Windows)
	assert.Equal(t, ext.Features(s, r).ApproxEntropy, m.ApproxEntropy)
}

func TestClassify_LabelsPerDomain(t *testing.T) {
	g := NewClassifier(config.GlucoseProfile())
	assert.Equal(t, "stable", g.Classify(5, brittleness.SegmentMetrics{}).Label)
	assert.Equal(t, "brittle", g.Classify(65, brittleness.SegmentMetrics{}).Label)
	assert.Equal(t, "extremely brittle", g.Classify(100, brittleness.SegmentMetrics{}).Label)

	e := NewClassifier(config.ECGProfile())
	c := e.Classify(85, brittleness.SegmentMetrics{})
	assert.Equal(t, "extremely dangerous", c.Label)
	assert.Equal(t, "V", c.Code)

	assert.Equal(t, brittleness.LevelI, g.Classify(math.NaN(), brittleness.SegmentMetrics{}).Level)
	assert.Equal(t, brittleness.LevelV, g.Classify(250, brittleness.SegmentMetrics{}).Level)
}

func TestPattern_Rules(t *testing.T) {
	cases := []struct {
		name  string
		level brittleness.Level
		m     brittleness.SegmentMetrics
		want  string
	}{
		{"level one is stable", brittleness.LevelI, brittleness.SegmentMetrics{Lyapunov: 1}, PatternStable},
		{"positive lyapunov", brittleness.LevelIII, brittleness.SegmentMetrics{Lyapunov: 0.2, Hurst: 0.2}, PatternChaotic},
		{"anti-persistent", brittleness.LevelIII, brittleness.SegmentMetrics{Hurst: 0.2}, PatternMemoryLoss},
		{"irregular", brittleness.LevelIV, brittleness.SegmentMetrics{Hurst: 0.5, ApproxEntropy: 1.2, ShannonEntropy: 0.9}, PatternRandom},
		{"smooth cycle", brittleness.LevelII, brittleness.SegmentMetrics{Hurst: 0.8, ApproxEntropy: 0.2, FractalDimension: 1.1}, PatternQuasiPeriodic},
		{"otherwise", brittleness.LevelII, brittleness.SegmentMetrics{Hurst: 0.8, ApproxEntropy: 0.7, FractalDimension: 1.5}, PatternFrequencyDomain},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Pattern(tc.level, tc.m))
		})
	}
}

func TestTrends(t *testing.T) {
	segments := []brittleness.Segment{{Score: 10}, {Score: 30}, {Score: 28}, {Score: 12}}
	Trends(segments)

	assert.Equal(t, brittleness.TrendStable, segments[0].Trend)
	assert.Equal(t, brittleness.TrendWorsening, segments[1].Trend)
	assert.Equal(t, brittleness.TrendStable, segments[2].Trend)
	assert.Equal(t, brittleness.TrendImproving, segments[3].Trend)
	assert.Equal(t, brittleness.TrendStable, OverallTrend(segments))
}

func TestOverallScore_Weighted(t *testing.T) {
	segments := []brittleness.Segment{
		{Score: 80, Weight: 3, Importance: 1},
		{Score: 20, Weight: 1, Importance: 9},
	}
	assert.InDelta(t, 65.0, OverallScore(segments), 1e-9)
	assert.Equal(t, 0.0, OverallScore(nil))
	assert.InDelta(t, 50.0, OverallScore([]brittleness.Segment{{Score: 40}, {Score: 60}}), 1e-9)
}

func TestOverallScore_NeverDropsWhenASegmentWorsens(t *testing.T) {
	profile := config.GlucoseProfile()
	day := func(score float64) brittleness.Segment {
		return brittleness.Segment{
			Duration: 24 * time.Hour,
			Points:   96,
			Score:    score,
			Metrics:  brittleness.SegmentMetrics{Mean: profile.NeutralBaseline()},
		}
	}

	prev := -1.0
	for _, first := range []float64{0, 10, 19.9, 20, 39.9, 40, 60, 90, 100} {
		segments := []brittleness.Segment{day(first), day(90)}
		for i := range segments {
			segments[i].Weight = segment.Weight(segments[i], i, len(segments), 192, profile)
			segments[i].Importance = segment.Importance(segments[i], i, len(segments), 192, profile)
		}
		overall := OverallScore(segments)
		assert.GreaterOrEqual(t, overall, prev, "first segment at %.1f", first)
		prev = overall
	}
}

func TestConfidence(t *testing.T) {
	c, detail := Confidence(ConfidenceInput{Coverage: 1, TotalWindows: 10, Detectors: 4})
	assert.InDelta(t, 1.0, c, 1e-9)
	assert.InDelta(t, 1.0, detail.Agreement, 1e-9)

	c, detail = Confidence(ConfidenceInput{
		Coverage:        0.9,
		TotalWindows:    10,
		ExcludedWindows: 1,
		Boundaries:      []brittleness.Boundary{{Agreement: 4}, {Agreement: 2}},
		Detectors:       4,
		FailedDetectors: 1,
	})
	assert.InDelta(t, 0.81, detail.Completeness, 1e-9)
	assert.InDelta(t, 0.75, detail.Agreement, 1e-9)
	assert.InDelta(t, 0.25, detail.DetectorFailure, 1e-9)
	assert.InDelta(t, 0.81*0.875*0.875, c, 1e-9)
}
