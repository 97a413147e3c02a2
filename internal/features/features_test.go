package features

import (
	"context"
	"testing"
	"time"

	"gobrittle/domain/brittleness"
	"gobrittle/domain/series"
	"gobrittle/internal/config"
	"gobrittle/internal/preprocess"
	"gobrittle/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func process(t *testing.T, profile config.DomainProfile, raw []series.RawSample) *series.Series {
	t.Helper()
	s, err := preprocess.NewPreprocessor(profile, nil).Process(context.Background(), "p1", raw)
	require.NoError(t, err)
	return s
}

func TestPlan_GlucoseFractionalWindows(t *testing.T) {
	cfg := config.DefaultAnalysisConfig(series.DomainGlucose)
	windows := Plan(1344, 15*time.Minute, cfg, cfg.Profile())

	require.NotEmpty(t, windows)
	assert.Equal(t, 108, windows[0].Len())
	assert.Equal(t, 27, windows[1].Start)
	assert.Equal(t, 1343, windows[len(windows)-1].End)
}

func TestPlan_TailWindowCoversLastSample(t *testing.T) {
	cfg := config.DefaultAnalysisConfig(series.DomainGlucose)
	windows := Plan(192, 15*time.Minute, cfg, cfg.Profile())

	last := windows[len(windows)-1]
	assert.Equal(t, 191, last.End)
	assert.Less(t, last.Len(), 20)
	for i := 1; i < len(windows); i++ {
		assert.Greater(t, windows[i].Start, windows[i-1].Start)
	}
}

func TestPlan_ECGUsesDurations(t *testing.T) {
	cfg := config.DefaultAnalysisConfig(series.DomainECG)
	windows := Plan(240, 15*time.Second, cfg, cfg.Profile())

	assert.Equal(t, 40, windows[0].Len())
	assert.Equal(t, 10, windows[1].Start)
}

func TestPlan_ExplicitSizesOverride(t *testing.T) {
	cfg := config.DefaultAnalysisConfig(series.DomainGlucose)
	cfg.WindowSize = 30
	cfg.StepSize = 30
	windows := Plan(90, 15*time.Minute, cfg, cfg.Profile())

	assert.Equal(t, []series.WindowRange{{Start: 0, End: 29}, {Start: 30, End: 59}, {Start: 60, End: 89}}, windows)
}

func TestVariability_DangerAndRapidChange(t *testing.T) {
	profile := config.GlucoseProfile()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	values := []float64{6, 6, 15, 6, 6}
	times := make([]time.Time, len(values))
	for i := range times {
		times[i] = start.Add(time.Duration(i) * 15 * time.Minute)
	}

	fv := Variability(values, times, profile)
	assert.InDelta(t, 0.2, fv.DangerFraction, 1e-9)
	assert.InDelta(t, 0.2, fv.OutOfRangeFraction, 1e-9)
	assert.InDelta(t, 0.5, fv.RapidChangeRate, 1e-9)
	assert.InDelta(t, 9.0, fv.RangeSpan, 1e-9)
	assert.InDelta(t, 7.8, fv.Mean, 1e-9)
}

func TestDomainTerms_BloodPressureDip(t *testing.T) {
	profile := config.BloodPressureProfile()
	start := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	values := []float64{130, 130, 130, 130, 117, 117, 117, 117}
	times := make([]time.Time, len(values))
	for i := range times {
		times[i] = start.Add(time.Duration(i) * time.Hour)
	}

	terms := DomainTerms(Window{Values: values, Timestamps: times}, profile)
	assert.InDelta(t, 0.10, terms[TermNocturnalDipRatio], 1e-9)
	assert.InDelta(t, 0.0, terms[TermDipDeficit], 1e-9)
}

func TestExtract_FlatGlucose(t *testing.T) {
	cfg := config.DefaultAnalysisConfig(series.DomainGlucose)
	s := process(t, cfg.Profile(), testkit.FlatGlucose(2))

	result, err := NewExtractor(cfg, nil).Extract(context.Background(), s)
	require.NoError(t, err)

	require.NotEmpty(t, result.Usable())
	for _, w := range result.Usable() {
		assert.Equal(t, 0.0, w.Features.CV)
		assert.Equal(t, 0.0, w.Features.ApproxEntropy)
		assert.Equal(t, 0.5, w.Features.Hurst)
	}
	assert.Len(t, result.Degenerate, 1)
	assert.Equal(t, result.Excluded()[0].End, s.Len()-1)
}

func TestExtract_OrderIndependentOfWorkers(t *testing.T) {
	cfg := config.DefaultAnalysisConfig(series.DomainGlucose)
	s := process(t, cfg.Profile(), testkit.BrittleGlucose(3, 9))

	cfg.Workers = 1
	serial, err := NewExtractor(cfg, nil).Extract(context.Background(), s)
	require.NoError(t, err)

	cfg.Workers = 8
	parallel, err := NewExtractor(cfg, nil).Extract(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, serial.Windows, parallel.Windows)
}

func TestExtract_ECGDomainTerms(t *testing.T) {
	cfg := config.DefaultAnalysisConfig(series.DomainECG)
	s := process(t, cfg.Profile(), testkit.StableECG(60, 4))

	result, err := NewExtractor(cfg, nil).Extract(context.Background(), s)
	require.NoError(t, err)

	w := result.Usable()[0]
	assert.Contains(t, w.Features.DomainTerms, TermSTInstability)
	assert.Contains(t, w.Features.DomainTerms, TermQTVariability)
	assert.Less(t, w.Features.DomainTerms[TermSTInstability], 0.05)
}

func TestExtract_Cancelled(t *testing.T) {
	cfg := config.DefaultAnalysisConfig(series.DomainGlucose)
	s := process(t, cfg.Profile(), testkit.FlatGlucose(2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewExtractor(cfg, nil).Extract(ctx, s)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCache_ComputesOnce(t *testing.T) {
	c := NewCache()
	calls := 0
	r := series.WindowRange{Start: 0, End: 9}

	for i := 0; i < 3; i++ {
		c.Get(r, func() (fv brittleness.FeatureVector) {
			calls++
			fv.Mean = 5
			return fv
		})
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, c.Len())
}
