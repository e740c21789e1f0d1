package player

import (
	"math"

	"github.com/c360/neurostream/pkg/timestamp"
	"github.com/c360/neurostream/types"
)

// Counting generates n samples at rateHz starting at startMicros where every
// channel of sample i carries the value i. The pattern makes end-to-end
// verification exact: the newest value in any window identifies the newest
// sample the pipeline has seen.
func Counting(channels int, rateHz float64, n int, startMicros int64) []types.Sample {
	period := timestamp.PeriodMicros(rateHz)
	samples := make([]types.Sample, n)
	for i := range samples {
		values := make([]float64, channels)
		for c := range values {
			values[c] = float64(i)
		}
		samples[i] = types.Sample{
			Timestamp: startMicros + int64(i)*period,
			Values:    values,
		}
	}
	return samples
}

// Sine generates n samples of a unit sine at freqHz, sampled at rateHz,
// phase-shifted a quarter cycle per channel.
func Sine(channels int, rateHz, freqHz float64, n int, startMicros int64) []types.Sample {
	period := timestamp.PeriodMicros(rateHz)
	samples := make([]types.Sample, n)
	for i := range samples {
		t := float64(i) / rateHz
		values := make([]float64, channels)
		for c := range values {
			values[c] = math.Sin(2*math.Pi*freqHz*t + float64(c)*math.Pi/2)
		}
		samples[i] = types.Sample{
			Timestamp: startMicros + int64(i)*period,
			Values:    values,
		}
	}
	return samples
}
