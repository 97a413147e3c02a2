package series

import (
	"time"

	"gobrittle/domain/core"
)

// Series is an ordered, immutable sequence of samples. Only the
// preprocessor constructs one; accessors hand out copies.
type Series struct {
	subjectID  core.SubjectID
	domain     Domain
	unit       string
	channels   []string
	interval   time.Duration
	timestamps []time.Time
	values     [][]float64 // channel-major
	report     PreprocessReport
}

// Spec carries the metadata needed to build a Series
type Spec struct {
	SubjectID core.SubjectID
	Domain    Domain
	Unit      string
	Channels  []string
	Interval  time.Duration
	Report    PreprocessReport
}

// New builds a Series from strictly increasing timestamps and channel-major values.
func New(spec Spec, timestamps []time.Time, channels [][]float64) (*Series, error) {
	if len(timestamps) == 0 {
		return nil, core.NewInsufficientDataError(string(spec.Domain), "no samples", 0, 0)
	}
	for i := 1; i < len(timestamps); i++ {
		if !timestamps[i].After(timestamps[i-1]) {
			return nil, core.NewInvalidSeriesError(i, "timestamps must be strictly increasing")
		}
	}
	if len(channels) == 0 {
		return nil, core.NewInvalidSeriesError(0, "no channels")
	}

	ts := make([]time.Time, len(timestamps))
	copy(ts, timestamps)
	vals := make([][]float64, len(channels))
	for c, ch := range channels {
		if len(ch) != len(ts) {
			return nil, core.NewInvalidSeriesError(0, "channel length mismatch")
		}
		vals[c] = append([]float64(nil), ch...)
	}
	names := append([]string(nil), spec.Channels...)

	return &Series{
		subjectID:  spec.SubjectID,
		domain:     spec.Domain,
		unit:       spec.Unit,
		channels:   names,
		interval:   spec.Interval,
		timestamps: ts,
		values:     vals,
		report:     spec.Report,
	}, nil
}

func (s *Series) SubjectID() core.SubjectID { return s.subjectID }
func (s *Series) Domain() Domain { return s.domain }
func (s *Series) Unit() string { return s.unit }
func (s *Series) Interval() time.Duration { return s.interval }
func (s *Series) Report() PreprocessReport { return s.report }
func (s *Series) Len() int { return len(s.timestamps) }
func (s *Series) Time(i int) time.Time { return s.timestamps[i] }
func (s *Series) Value(i int) float64 { return s.values[0][i] }
func (s *Series) FullRange() WindowRange { return WindowRange{Start: 0, End: len(s.timestamps) - 1} }
func (s *Series) Channels() []string { return append([]string(nil), s.channels...) }
func (s *Series) Span() time.Duration { return s.timestamps[len(s.timestamps)-1].Sub(s.timestamps[0]) }
func (s *Series) Duration(r WindowRange) time.Duration {
	return s.timestamps[r.End].Sub(s.timestamps[r.Start])
}

// Values returns a copy of the primary channel
func (s *Series) Values() []float64 {
	return append([]float64(nil), s.values[0]...)
}

// Slice returns a copy of the primary channel over r
func (s *Series) Slice(r WindowRange) []float64 {
	return append([]float64(nil), s.values[0][r.Start:r.End+1]...)
}

// Timestamps returns a copy of the timestamps over r
func (s *Series) Timestamps(r WindowRange) []time.Time {
	return append([]time.Time(nil), s.timestamps[r.Start:r.End+1]...)
}

// ChannelSlice returns a copy of a named channel over r
func (s *Series) ChannelSlice(name string, r WindowRange) ([]float64, bool) {
	for c, n := range s.channels {
		if n == name && c < len(s.values) {
			return append([]float64(nil), s.values[c][r.Start:r.End+1]...), true
		}
	}
	return nil, false
}
