package testutil

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/neurostream/pkg/timestamp"
	"github.com/c360/neurostream/types"
)

// SignalInfo builds a signal-role stream description with n named channels.
func SignalInfo(id string, rateHz float64, channels int) types.StreamInfo {
	names := make([]string, channels)
	for i := range names {
		names[i] = fmt.Sprintf("ch%02d", i)
	}
	return types.StreamInfo{
		ID:          id,
		Name:        id,
		Role:        types.RoleSignal,
		Layout:      types.ChannelLayout{Names: names},
		NominalRate: rateHz,
	}
}

// MarkerInfo builds a marker-role stream description.
func MarkerInfo(id string) types.StreamInfo {
	return types.StreamInfo{
		ID:   id,
		Name: id,
		Role: types.RoleMarker,
	}
}

// CountingSamples generates n samples at rateHz starting at startMicros,
// every channel of sample i carrying the value base+i. The counting pattern
// makes end-to-end checks exact: the last value always identifies the most
// recently injected sample.
func CountingSamples(channels int, rateHz float64, n int, startMicros int64, base float64) []types.Sample {
	period := timestamp.PeriodMicros(rateHz)
	samples := make([]types.Sample, n)
	for i := 0; i < n; i++ {
		values := make([]float64, channels)
		for c := range values {
			values[c] = base + float64(i)
		}
		samples[i] = types.Sample{
			Timestamp: startMicros + int64(i)*period,
			Values:    values,
		}
	}
	return samples
}

// FakeClassifier is a controllable decoder plug-in: fixed label and score,
// optional per-call latency, optional error injection, call counting.
type FakeClassifier struct {
	Label   string
	Score   float64
	Latency time.Duration

	mu    sync.Mutex
	err   error
	calls atomic.Int64
}

// NewFakeClassifier returns a classifier answering with the given label.
func NewFakeClassifier(label string, score float64) *FakeClassifier {
	return &FakeClassifier{Label: label, Score: score}
}

// Classify implements the decoder contract.
func (f *FakeClassifier) Classify(_ types.AlignedWindow) (string, float64, error) {
	f.calls.Add(1)
	if f.Latency > 0 {
		time.Sleep(f.Latency)
	}
	f.mu.Lock()
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return "", 0, err
	}
	return f.Label, f.Score, nil
}

// Calls returns how many classifications have run.
func (f *FakeClassifier) Calls() int64 {
	return f.calls.Load()
}

// Fail makes subsequent calls return err; nil restores success.
func (f *FakeClassifier) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}
