package series

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gobrittle/domain/core"
)

func TestNew_CopiesInputs(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ts := []time.Time{start, start.Add(time.Minute), start.Add(2 * time.Minute)}
	hr := []float64{70, 72, 71}
	qt := []float64{400, 401, 399}

	s, err := New(Spec{Domain: DomainECG, Channels: []string{"heart_rate", "qt"}, Interval: time.Minute}, ts, [][]float64{hr, qt})
	require.NoError(t, err)

	hr[0] = 999
	assert.Equal(t, 70.0, s.Value(0))

	vals := s.Values()
	vals[1] = -1
	assert.Equal(t, 72.0, s.Value(1))

	got, ok := s.ChannelSlice("qt", WindowRange{Start: 1, End: 2})
	require.True(t, ok)
	assert.Equal(t, []float64{401, 399}, got)
	_, ok = s.ChannelSlice("st", s.FullRange())
	assert.False(t, ok)

	assert.Equal(t, 2*time.Minute, s.Span())
	assert.Equal(t, 3, s.FullRange().Len())
}

func TestNew_Rejects(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := New(Spec{Domain: DomainGlucose}, nil, nil)
	assert.True(t, errors.Is(err, core.ErrInsufficientData))

	_, err = New(Spec{Domain: DomainGlucose}, []time.Time{start, start}, [][]float64{{1, 2}})
	assert.True(t, errors.Is(err, core.ErrInvalidSeries))

	_, err = New(Spec{Domain: DomainGlucose}, []time.Time{start, start.Add(time.Minute)}, [][]float64{{1}})
	assert.True(t, errors.Is(err, core.ErrInvalidSeries))
}

func TestWindowRange(t *testing.T) {
	w := WindowRange{Start: 10, End: 19}
	assert.Equal(t, 10, w.Len())
	assert.Equal(t, 14, w.Center())
	assert.True(t, w.Contains(WindowRange{Start: 12, End: 19}))
	assert.False(t, w.Contains(WindowRange{Start: 9, End: 12}))
	assert.Equal(t, 0, WindowRange{Start: 5, End: 4}.Len())
	assert.Equal(t, "[10,19]", w.String())
}

func TestParseDomain_Aliases(t *testing.T) {
	for in, want := range map[string]Domain{"CGM": DomainGlucose, " holter ": DomainECG, "abpm": DomainBloodPressure} {
		got, err := ParseDomain(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseDomain("eeg")
	assert.True(t, core.IsConfigurationError(err))
}
