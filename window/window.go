// Package window provides pure window extraction and timestamp-span
// alignment over buffered samples. No I/O, no side effects; every function
// here is independently testable on synthetic data.
package window

import (
	"sort"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/pkg/ring"
	"github.com/c360/neurostream/pkg/timestamp"
	"github.com/c360/neurostream/types"
)

// Extract returns the most recent n samples from the ring as sample-major
// values plus the parallel timestamp vector. Values are deep copies; later
// appends never reach them. Fails with ErrInsufficientData until the ring
// has ever held n samples.
func Extract(buf *ring.Buffer[types.Sample], n int) ([][]float64, []int64, error) {
	if n <= 0 {
		return nil, nil, errors.WrapInvalid(errors.ErrInvalidData, "Window", "Extract",
			"sample count must be positive")
	}

	samples, err := buf.ReadLatest(n)
	if err != nil {
		return nil, nil, err
	}

	values, timestamps := Split(samples)
	return values, timestamps, nil
}

// Split deep-copies samples into a sample-major value matrix and a parallel
// timestamp vector. The result shares no memory with the input.
func Split(samples []types.Sample) ([][]float64, []int64) {
	values := make([][]float64, len(samples))
	timestamps := make([]int64, len(samples))
	for i, s := range samples {
		row := make([]float64, len(s.Values))
		copy(row, s.Values)
		values[i] = row
		timestamps[i] = s.Timestamp
	}
	return values, timestamps
}

// SliceSpan selects the contiguous run of samples whose timestamps are
// nearest to the span [start, end], bounds inclusive. Input must be sorted
// by timestamp. Rates differ across streams, so span selection goes by
// nearest timestamp, never by index arithmetic. When a sample is equidistant
// from a bound the earlier sample wins.
//
// The returned slice aliases the input; callers copy via Split before
// exposing the result.
func SliceSpan(samples []types.Sample, start, end int64) []types.Sample {
	if len(samples) == 0 || end < start {
		return nil
	}

	lo := nearestIndex(samples, start)
	hi := nearestIndex(samples, end)
	if hi < lo {
		return nil
	}
	return samples[lo : hi+1]
}

// nearestIndex returns the index of the sample whose timestamp is nearest to
// ts, preferring the earlier sample on a tie.
func nearestIndex(samples []types.Sample, ts int64) int {
	idx := sort.Search(len(samples), func(i int) bool {
		return samples[i].Timestamp >= ts
	})

	if idx == 0 {
		return 0
	}
	if idx == len(samples) {
		return len(samples) - 1
	}

	before := ts - samples[idx-1].Timestamp
	after := samples[idx].Timestamp - ts
	if before <= after {
		return idx - 1
	}
	return idx
}

// Resolve converts a window length in seconds to a sample count at the
// given nominal rate, rounding to the nearest whole sample. Zero for
// non-positive inputs.
func Resolve(seconds float64, rateHz float64) int {
	if seconds <= 0 || rateHz <= 0 {
		return 0
	}
	return timestamp.SamplesIn(seconds, rateHz)
}
