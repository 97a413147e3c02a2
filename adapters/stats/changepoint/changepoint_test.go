package changepoint

import (
	"context"
	"errors"
	"math"
	"testing"

	"gobrittle/domain/brittleness"
	"gobrittle/domain/series"
	"gobrittle/internal/config"
	"gobrittle/internal/features"
	"gobrittle/internal/preprocess"
	"gobrittle/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prepare(t *testing.T, raw []series.RawSample) (*series.Series, []brittleness.WindowFeatures, config.AnalysisConfig) {
	t.Helper()
	cfg := config.DefaultAnalysisConfig(series.DomainGlucose)
	s, err := preprocess.NewPreprocessor(cfg.Profile(), nil).Process(context.Background(), "p1", raw)
	require.NoError(t, err)
	result, err := features.NewExtractor(cfg, nil).Extract(context.Background(), s)
	require.NoError(t, err)
	return s, result.Usable(), cfg
}

func near(t *testing.T, candidates []brittleness.Candidate, index, tolerance int) {
	t.Helper()
	for _, c := range candidates {
		if abs(c.Index-index) <= tolerance {
			assert.GreaterOrEqual(t, c.Confidence, 0.0)
			assert.LessOrEqual(t, c.Confidence, 1.0)
			return
		}
	}
	t.Errorf("no candidate within %d of %d in %+v", tolerance, index, candidates)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func TestFlatSeriesProducesNoCandidates(t *testing.T) {
	s, windows, cfg := prepare(t, testkit.FlatGlucose(2))

	outcomes, err := NewEngine(cfg, nil).DetectAll(context.Background(), s, windows)
	require.NoError(t, err)
	require.Len(t, outcomes, 4)
	for _, o := range outcomes {
		assert.NoError(t, o.Err)
		assert.Empty(t, o.Candidates, "method %s", o.Method)
	}
}

func TestShiftedSeriesDetectedByEveryMethod(t *testing.T) {
	s, windows, cfg := prepare(t, testkit.ShiftedGlucose(4, 3))
	mid := s.Len() / 2

	engine := NewEngine(cfg, nil)
	assert.Equal(t, brittleness.Methods(), engine.Methods())

	outcomes, err := engine.DetectAll(context.Background(), s, windows)
	require.NoError(t, err)

	assert.Equal(t, engine.Methods(), []brittleness.Method{
		outcomes[0].Method, outcomes[1].Method, outcomes[2].Method, outcomes[3].Method,
	})
	for _, o := range outcomes {
		require.NoError(t, o.Err)
		near(t, o.Candidates, mid, 16)
	}
}

func TestStatisticalDetector_StepChange(t *testing.T) {
	s, windows, _ := prepare(t, testkit.ShiftedGlucose(2, 5))

	candidates, err := NewStatisticalDetector(0.01).Detect(context.Background(), s, windows)
	require.NoError(t, err)
	near(t, candidates, s.Len()/2, 5)
	for _, c := range candidates {
		assert.Equal(t, brittleness.MethodStatistical, c.Method)
	}
}

func TestStatisticalDetector_OneCandidatePerShift(t *testing.T) {
	for _, days := range []int{2, 4, 6} {
		s, windows, _ := prepare(t, testkit.ShiftedGlucose(days, 2))
		mid := s.Len() / 2

		candidates, err := NewStatisticalDetector(0.01).Detect(context.Background(), s, windows)
		require.NoError(t, err)

		var around []brittleness.Candidate
		for _, c := range candidates {
			if abs(c.Index-mid) <= 16 {
				around = append(around, c)
			}
		}
		require.Len(t, around, 1, "%d days: %+v", days, candidates)
		assert.InDelta(t, mid, around[0].Index, 3)
	}
}

func TestClusteringDetector_LocatesTheShift(t *testing.T) {
	for _, days := range []int{2, 4, 6} {
		s, windows, _ := prepare(t, testkit.ShiftedGlucose(days, 1))

		candidates, err := NewClusteringDetector().Detect(context.Background(), s, windows)
		require.NoError(t, err)
		near(t, candidates, s.Len()/2, 3)
	}
}

func TestSplitIndex(t *testing.T) {
	step := []float64{6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 6, 16, 16, 16, 16, 16, 16, 16, 16}
	assert.Equal(t, 12, splitIndex(step, 0, len(step)-1))
	assert.Equal(t, 12, splitIndex(step, 4, len(step)-1))

	variance := []float64{6, 6.1, 6, 6.1, 6, 6.1, 6, 6.1, 6, 6.1, 10, 14, 10, 14, 10, 14, 10, 14, 10, 14}
	assert.Equal(t, 10, splitIndex(variance, 0, len(variance)-1))

	assert.Equal(t, 1, splitIndex([]float64{1, 2, 3}, 0, 2))
	assert.Equal(t, 12, splitIndex(step, -5, 99))
}

func TestWelch(t *testing.T) {
	a := []float64{5, 6, 5, 6, 5, 6, 5, 6}
	b := []float64{9, 10, 9, 10, 9, 10, 9, 10}

	tStat, p, d, ok := welch(a, b)
	require.True(t, ok)
	assert.Greater(t, tStat, 0.0)
	assert.Less(t, p, 0.001)
	assert.Greater(t, d, 0.8)

	_, _, _, ok = welch([]float64{1, 1, 1}, []float64{1, 1, 1})
	assert.False(t, ok)

	tStat, p, _, ok = welch([]float64{1, 1, 1}, []float64{2, 2, 2})
	require.True(t, ok)
	assert.True(t, math.IsInf(tStat, 1))
	assert.Equal(t, 0.0, p)
}

func TestPersistentRuns(t *testing.T) {
	runs := persistentRuns([]int{0, 0, 0, 1, 0, 0, 1, 1, 1})
	require.Len(t, runs, 2)
	assert.Equal(t, run{label: 0, first: 0, last: 5}, runs[0])
	assert.Equal(t, run{label: 1, first: 6, last: 8}, runs[1])

	runs = persistentRuns([]int{1, 0, 0, 0})
	require.Len(t, runs, 1)
	assert.Equal(t, 0, runs[0].first)
}

func TestInstabilityDetector_ConfidenceGrowsWithCriteria(t *testing.T) {
	d := NewInstabilityDetector(config.GlucoseProfile())
	calm := brittleness.FeatureVector{CV: 0.05, RangeSpan: 2}
	oneCriterion := brittleness.FeatureVector{CV: 0.05, RangeSpan: 2, DangerFraction: 0.5}
	allCriteria := brittleness.FeatureVector{CV: 0.6, RapidChangeRate: 0.5, DangerFraction: 0.5, RangeSpan: 20}

	build := func(second brittleness.FeatureVector) []brittleness.WindowFeatures {
		var ws []brittleness.WindowFeatures
		for i := 0; i < 6; i++ {
			f := calm
			if i >= 3 {
				f = second
			}
			ws = append(ws, brittleness.WindowFeatures{
				Range:    series.WindowRange{Start: i * 10, End: i*10 + 19},
				Features: f,
			})
		}
		return ws
	}

	low, err := d.Detect(context.Background(), nil, build(oneCriterion))
	require.NoError(t, err)
	high, err := d.Detect(context.Background(), nil, build(allCriteria))
	require.NoError(t, err)

	require.Len(t, low, 1)
	require.Len(t, high, 1)
	assert.InDelta(t, 0.5, low[0].Confidence, 1e-9)
	assert.InDelta(t, 1.0, high[0].Confidence, 1e-9)
	assert.Equal(t, 44, low[0].Index)
}

type failingDetector struct{}

func (failingDetector) Method() brittleness.Method { return brittleness.MethodGradient }
func (failingDetector) Detect(context.Context, *series.Series, []brittleness.WindowFeatures) ([]brittleness.Candidate, error) {
	return nil, errors.New("boom")
}

func TestInstabilityDetector_BrittleOnset(t *testing.T) {
	s, windows, cfg := prepare(t, testkit.BrittleGlucose(4, 5))

	candidates, err := NewInstabilityDetector(cfg.Profile()).Detect(context.Background(), s, windows)
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	near(t, candidates, 96, 40)
	assert.Equal(t, brittleness.MethodInstability, candidates[0].Method)
}

func TestDetectAll_FailureIsIsolated(t *testing.T) {
	s, windows, _ := prepare(t, testkit.ShiftedGlucose(2, 1))

	engine := NewEngineWith(nil, NewStatisticalDetector(0.01), failingDetector{})
	outcomes, err := engine.DetectAll(context.Background(), s, windows)
	require.NoError(t, err)

	assert.NoError(t, outcomes[0].Err)
	assert.Error(t, outcomes[1].Err)
	assert.Equal(t, 1, Failed(outcomes))
	assert.Equal(t, len(outcomes[0].Candidates), len(Candidates(outcomes)))
}

func TestDetectAll_Cancelled(t *testing.T) {
	s, windows, cfg := prepare(t, testkit.FlatGlucose(2))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine(cfg, nil).DetectAll(ctx, s, windows)
	assert.ErrorIs(t, err, context.Canceled)
}
