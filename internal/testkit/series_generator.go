package testkit

import (
	"math"
	"math/rand"
	"time"

	"gobrittle/domain/series"
)

// Regime describes one stretch of a synthetic recording
type Regime struct {
	Points    int     `json:"points"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
	Amplitude float64 `json:"amplitude"` // sinusoidal swing around Mean
	Period    int     `json:"period"`    // in samples; 0 disables the swing
}

// SeriesGeneratorConfig configures the synthetic series generator
type SeriesGeneratorConfig struct {
	Start    time.Time     `json:"start"`
	Interval time.Duration `json:"interval"`
	Regimes  []Regime      `json:"regimes"`
	Min      float64       `json:"min"` // values are clamped to [Min, Max]
	Max      float64       `json:"max"`
	Extra    []float64     `json:"extra"` // constant extra channels (e.g. QT, ST)
	ExtraSD  float64       `json:"extra_sd"`
	Seed     int64         `json:"seed"`
}

// SeriesGenerator produces deterministic synthetic recordings
type SeriesGenerator struct {
	config SeriesGeneratorConfig
	rng    *rand.Rand
}

// NewSeriesGenerator creates a generator seeded from the config
func NewSeriesGenerator(config SeriesGeneratorConfig) *SeriesGenerator {
	if config.Start.IsZero() {
		config.Start = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	}
	if config.Max == 0 {
		config.Max = math.MaxFloat64
	}
	return &SeriesGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate renders all regimes back to back
func (g *SeriesGenerator) Generate() []series.RawSample {
	var samples []series.RawSample
	i := 0
	for _, r := range g.config.Regimes {
		for k := 0; k < r.Points; k++ {
			v := r.Mean + g.rng.NormFloat64()*r.StdDev
			if r.Period > 0 {
				v += r.Amplitude * math.Sin(2*math.Pi*float64(k)/float64(r.Period))
			}
			v = math.Max(g.config.Min, math.Min(g.config.Max, v))

			values := []float64{v}
			for _, e := range g.config.Extra {
				values = append(values, e+g.rng.NormFloat64()*g.config.ExtraSD)
			}

			samples = append(samples, series.RawSample{
				Timestamp: g.config.Start.Add(time.Duration(i) * g.config.Interval),
				Values:    values,
			})
			i++
		}
	}
	return samples
}

// FlatGlucose is a zero-variance, in-range glucose recording
func FlatGlucose(days int) []series.RawSample {
	return NewSeriesGenerator(SeriesGeneratorConfig{
		Interval: 15 * time.Minute,
		Regimes:  []Regime{{Points: days * 96, Mean: 6.0}},
		Min:      1.1,
		Max:      33.3,
	}).Generate()
}

// ShiftedGlucose holds a calm regime and then an abrupt, sustained shift
// in both mean and variance at the midpoint.
func ShiftedGlucose(days int, seed int64) []series.RawSample {
	half := days * 96 / 2
	return NewSeriesGenerator(SeriesGeneratorConfig{
		Interval: 15 * time.Minute,
		Regimes: []Regime{
			{Points: half, Mean: 6.0, StdDev: 0.25},
			{Points: half, Mean: 16.0, StdDev: 1.0},
		},
		Min:  1.1,
		Max:  33.3,
		Seed: seed,
	}).Generate()
}

// BrittleGlucose starts with a short calm day and then swings hard between
// hypo- and hyperglycaemia (CV well above 36%).
func BrittleGlucose(days int, seed int64) []series.RawSample {
	calm := 96
	return NewSeriesGenerator(SeriesGeneratorConfig{
		Interval: 15 * time.Minute,
		Regimes: []Regime{
			{Points: calm, Mean: 6.5, StdDev: 0.3},
			{Points: days*96 - calm, Mean: 10.0, StdDev: 1.5, Amplitude: 7.5, Period: 16},
		},
		Min:  1.1,
		Max:  33.3,
		Seed: seed,
	}).Generate()
}

// StableECG is a calm heart-rate recording with QT and ST channels
func StableECG(minutes int, seed int64) []series.RawSample {
	return NewSeriesGenerator(SeriesGeneratorConfig{
		Interval: 15 * time.Second,
		Regimes:  []Regime{{Points: minutes * 4, Mean: 72, StdDev: 1.0}},
		Min:      20,
		Max:      300,
		Extra:    []float64{400, 0.02},
		ExtraSD:  0.005,
		Seed:     seed,
	}).Generate()
}

// DippingBloodPressure is a 24h ABPM recording starting at 08:00 whose
// systolic trough falls around 02:00.
func DippingBloodPressure(seed int64) []series.RawSample {
	return NewSeriesGenerator(SeriesGeneratorConfig{
		Start:    time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		Interval: 15 * time.Minute,
		Regimes: []Regime{
			{Points: 96, Mean: 118, StdDev: 3, Amplitude: 10, Period: 96},
		},
		Min:     50,
		Max:     280,
		Extra:   []float64{76},
		ExtraSD: 2,
		Seed:    seed,
	}).Generate()
}
