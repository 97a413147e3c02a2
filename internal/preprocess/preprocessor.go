package preprocess

import (
	"context"
	"fmt"
	"math"
	"time"

	"gobrittle/domain/core"
	"gobrittle/domain/series"
	"gobrittle/internal"
	"gobrittle/internal/config"
)

// Preprocessor validates, cleans and resamples a raw recording into an
// immutable Series.
type Preprocessor struct {
	profile config.DomainProfile
	logger  *internal.Logger
}

// NewPreprocessor creates a preprocessor for one domain profile
func NewPreprocessor(profile config.DomainProfile, logger *internal.Logger) *Preprocessor {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Preprocessor{profile: profile, logger: logger.With("Preprocessor")}
}

// Process turns raw samples into a Series or fails with an InsufficientDataError
func (p *Preprocessor) Process(ctx context.Context, subjectID core.SubjectID, raw []series.RawSample) (*series.Series, error) {
	domain := string(p.profile.Domain)
	if len(raw) == 0 {
		return nil, core.NewInsufficientDataError(domain, "no samples", 0, 0)
	}

	for i := 1; i < len(raw); i++ {
		if !raw[i].Timestamp.After(raw[i-1].Timestamp) {
			return nil, core.NewInvalidSeriesError(i, "duplicate or out-of-order timestamp")
		}
	}

	valid := make([]series.RawSample, 0, len(raw))
	for _, s := range raw {
		if p.isPlausible(s.Value()) && len(s.Values) > 0 {
			valid = append(valid, s)
		}
	}
	dropped := len(raw) - len(valid)
	if dropped > 0 {
		p.logger.Debug("dropped %d of %d samples outside [%.1f, %.1f] %s", dropped, len(raw), p.profile.MinValue, p.profile.MaxValue, p.profile.Unit)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(valid) < 2 {
		return nil, core.NewInsufficientDataError(domain, "fewer than two valid samples", 0, 0)
	}

	interval := p.profile.NominalInterval
	span := valid[len(valid)-1].Timestamp.Sub(valid[0].Timestamp)
	expected := int(span/interval) + 1
	coverage := math.Min(1, float64(len(valid))/float64(expected))

	if span+interval < p.profile.MinSpan {
		return nil, core.NewInsufficientDataError(domain,
			fmt.Sprintf("recording spans %s, minimum is %s", span, p.profile.MinSpan), coverage, span)
	}
	if coverage < p.profile.MinCoverage {
		return nil, core.NewInsufficientDataError(domain,
			fmt.Sprintf("coverage %.0f%% below %.0f%%", coverage*100, p.profile.MinCoverage*100), coverage, span)
	}

	report := series.PreprocessReport{
		RawCount:      len(raw),
		DroppedCount:  dropped,
		ExpectedCount: expected,
		Coverage:      coverage,
	}

	var timestamps []time.Time
	var channels [][]float64
	if p.maxGap(valid) > p.profile.GapTolerance {
		timestamps, channels, report.ImputedCount = p.resample(valid, expected)
		report.Resampled = true
		p.logger.Debug("resampled %d samples onto %d-point grid (%d imputed)", len(valid), expected, report.ImputedCount)
	} else {
		timestamps, channels = p.split(valid)
	}

	return series.New(series.Spec{
		SubjectID: subjectID,
		Domain:    p.profile.Domain,
		Unit:      p.profile.Unit,
		Channels:  p.profile.Channels,
		Interval:  interval,
		Report:    report,
	}, timestamps, channels)
}

func (p *Preprocessor) isPlausible(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v >= p.profile.MinValue && v <= p.profile.MaxValue
}

func (p *Preprocessor) maxGap(samples []series.RawSample) time.Duration {
	var maxGap time.Duration
	for i := 1; i < len(samples); i++ {
		if gap := samples[i].Timestamp.Sub(samples[i-1].Timestamp); gap > maxGap {
			maxGap = gap
		}
	}
	return maxGap
}

// channelValue reads channel c, NaN when the sample does not carry it
func channelValue(s series.RawSample, c int) float64 {
	if c < len(s.Values) {
		return s.Values[c]
	}
	return math.NaN()
}

func (p *Preprocessor) split(samples []series.RawSample) ([]time.Time, [][]float64) {
	nch := len(p.profile.Channels)
	timestamps := make([]time.Time, len(samples))
	channels := make([][]float64, nch)
	for c := range channels {
		channels[c] = make([]float64, len(samples))
	}
	for i, s := range samples {
		timestamps[i] = s.Timestamp
		for c := 0; c < nch; c++ {
			channels[c][i] = channelValue(s, c)
		}
	}
	return timestamps, channels
}

// resample linearly interpolates onto t0 + k*interval. Grid points that
// fall inside a gap longer than the tolerance are counted as imputed.
func (p *Preprocessor) resample(samples []series.RawSample, points int) ([]time.Time, [][]float64, int) {
	nch := len(p.profile.Channels)
	interval := p.profile.NominalInterval
	start := samples[0].Timestamp

	timestamps := make([]time.Time, points)
	channels := make([][]float64, nch)
	for c := range channels {
		channels[c] = make([]float64, points)
	}

	imputed := 0
	j := 0
	for k := 0; k < points; k++ {
		t := start.Add(time.Duration(k) * interval)
		timestamps[k] = t

		for j < len(samples)-2 && !samples[j+1].Timestamp.After(t) {
			j++
		}
		left, right := samples[j], samples[j+1]

		if t.Equal(left.Timestamp) {
			for c := 0; c < nch; c++ {
				channels[c][k] = channelValue(left, c)
			}
			continue
		}
		if t.Equal(right.Timestamp) {
			for c := 0; c < nch; c++ {
				channels[c][k] = channelValue(right, c)
			}
			continue
		}

		gap := right.Timestamp.Sub(left.Timestamp)
		if gap > p.profile.GapTolerance {
			imputed++
		}
		frac := float64(t.Sub(left.Timestamp)) / float64(gap)
		for c := 0; c < nch; c++ {
			lv, rv := channelValue(left, c), channelValue(right, c)
			channels[c][k] = lv + frac*(rv-lv)
		}
	}

	return timestamps, channels, imputed
}
