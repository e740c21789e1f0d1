package window

import (
	"testing"

	cerrors "github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/pkg/ring"
	"github.com/c360/neurostream/types"
	"github.com/stretchr/testify/require"
)

func fill(t *testing.T, capacity, n int) *ring.Buffer[types.Sample] {
	t.Helper()
	buf, err := ring.New[types.Sample](capacity)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		buf.Append(types.Sample{
			Timestamp: int64(i) * 1000,
			Values:    []float64{float64(i), float64(i) * 10},
		})
	}
	return buf
}

func TestExtractLatest(t *testing.T) {
	buf := fill(t, 10, 6)

	values, timestamps, err := Extract(buf, 3)
	require.NoError(t, err)
	require.Len(t, values, 3)
	require.Equal(t, []int64{3000, 4000, 5000}, timestamps)
	require.Equal(t, []float64{3, 30}, values[0])
	require.Equal(t, []float64{5, 50}, values[2])
}

func TestExtractInsufficientData(t *testing.T) {
	buf := fill(t, 10, 2)

	_, _, err := Extract(buf, 5)
	require.ErrorIs(t, err, cerrors.ErrInsufficientData)
}

func TestExtractInvalidCount(t *testing.T) {
	buf := fill(t, 10, 2)

	_, _, err := Extract(buf, 0)
	require.Error(t, err)
	_, _, err = Extract(buf, -1)
	require.Error(t, err)
}

func TestExtractCopies(t *testing.T) {
	buf := fill(t, 4, 4)

	values, _, err := Extract(buf, 2)
	require.NoError(t, err)
	values[0][0] = 999

	again, _, err := Extract(buf, 2)
	require.NoError(t, err)
	require.Equal(t, float64(2), again[0][0], "extracted windows must not alias buffer contents")
}

func TestSplitEmpty(t *testing.T) {
	values, timestamps := Split(nil)
	require.Empty(t, values)
	require.Empty(t, timestamps)
}

func samplesAt(timestamps ...int64) []types.Sample {
	out := make([]types.Sample, len(timestamps))
	for i, ts := range timestamps {
		out[i] = types.Sample{Timestamp: ts, Values: []float64{float64(i)}}
	}
	return out
}

func TestSliceSpanExactBounds(t *testing.T) {
	samples := samplesAt(100, 200, 300, 400, 500)

	got := SliceSpan(samples, 200, 400)
	require.Len(t, got, 3)
	require.Equal(t, int64(200), got[0].Timestamp)
	require.Equal(t, int64(400), got[2].Timestamp)
}

func TestSliceSpanNearest(t *testing.T) {
	samples := samplesAt(100, 200, 300, 400, 500)

	// 180 is nearest to 200, 420 nearest to 400.
	got := SliceSpan(samples, 180, 420)
	require.Len(t, got, 3)
	require.Equal(t, int64(200), got[0].Timestamp)
	require.Equal(t, int64(400), got[2].Timestamp)
}

// Tie-break rule: when a bound is equidistant from two samples, the earlier
// sample wins.
func TestSliceSpanTieBreakPrefersEarlier(t *testing.T) {
	samples := samplesAt(100, 200)

	got := SliceSpan(samples, 150, 150)
	require.Len(t, got, 1)
	require.Equal(t, int64(100), got[0].Timestamp)
}

func TestSliceSpanOutsideRange(t *testing.T) {
	samples := samplesAt(100, 200, 300)

	// Span entirely after the data: the nearest run is the last sample.
	got := SliceSpan(samples, 900, 1000)
	require.Len(t, got, 1)
	require.Equal(t, int64(300), got[0].Timestamp)

	// Span entirely before the data: the nearest run is the first sample.
	got = SliceSpan(samples, 0, 50)
	require.Len(t, got, 1)
	require.Equal(t, int64(100), got[0].Timestamp)
}

func TestSliceSpanDegenerate(t *testing.T) {
	require.Nil(t, SliceSpan(nil, 0, 100))
	require.Nil(t, SliceSpan(samplesAt(100), 200, 100), "inverted span yields nothing")
}

func TestResolve(t *testing.T) {
	require.Equal(t, 512, Resolve(1, 512))
	require.Equal(t, 128, Resolve(0.5, 256))
	require.Equal(t, 0, Resolve(0, 256))
	require.Equal(t, 0, Resolve(1, 0))
	// Rounds to the nearest whole sample.
	require.Equal(t, 3, Resolve(0.01, 250.4))
}
