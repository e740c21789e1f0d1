package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/c360/neurostream/pkg/timestamp"
	"github.com/c360/neurostream/player"
	"github.com/c360/neurostream/receiver"
	"github.com/c360/neurostream/scheduler"
	"github.com/c360/neurostream/testutil"
	"github.com/c360/neurostream/transport/loopback"
	"github.com/c360/neurostream/types"
)

// Full pipeline over the loopback transport: a 16-channel 256 Hz counting
// source played in real time, a receiver with 2 s of buffering, and a 20 Hz
// decoding loop asking for 0.5 s windows. Every classified window must hold
// exactly 128 samples of contiguous counting data whose newest value keeps
// advancing with the playback.
func TestPipelineEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("full pipeline run takes seconds")
	}

	const (
		channels = 16
		rateHz   = 256
	)
	bus := loopback.NewBus()

	play, err := player.New(player.Deps{
		Name:      "e2e-player",
		Publisher: bus.Connect(),
		Info:      testutil.SignalInfo("eeg-e2e", rateHz, channels),
		Samples:   player.Counting(channels, rateHz, 10*rateHz, 1_000_000),
		Config:    player.Config{ChunkSize: 16},
	})
	require.NoError(t, err)

	recv, err := receiver.New(receiver.Deps{
		Name: "e2e-receiver",
		Config: receiver.Config{
			BufferSeconds: 2,
			WindowSeconds: 0.5,
			PullTimeout:   50 * time.Millisecond,
		},
		Transport: bus.Connect(),
	})
	require.NoError(t, err)

	var mu sync.Mutex
	var windows []types.AlignedWindow
	classify := func(w types.AlignedWindow) (string, float64, error) {
		mu.Lock()
		windows = append(windows, w)
		mu.Unlock()
		return "ok", 1, nil
	}

	sink := scheduler.NewChannelSink(64)
	sched, err := scheduler.New(scheduler.Deps{
		Name:     "e2e-loop",
		Config:   scheduler.Config{CadenceHz: 20},
		Source:   recv,
		Classify: classify,
		Sink:     sink,
	})
	require.NoError(t, err)

	e := New(Deps{Name: "e2e-engine"})
	require.NoError(t, e.Add(play))
	require.NoError(t, e.Add(recv))
	require.NoError(t, e.Add(sched))

	require.NoError(t, e.Initialize())
	require.NoError(t, e.Start(context.Background()))

	var preds []types.Prediction
	deadline := time.After(15 * time.Second)
	for len(preds) < 10 {
		select {
		case p := <-sink.C():
			preds = append(preds, p)
		case <-deadline:
			t.Fatalf("only %d predictions before deadline", len(preds))
		}
	}
	require.NoError(t, e.Stop())

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(windows), 10)

	var lastNewest float64 = -1
	for _, w := range windows {
		ref := w.Reference
		require.Equal(t, 128, ref.Len(), "0.5 s at 256 Hz is 128 samples")
		require.Len(t, ref.Values[0], channels)

		// Counting data: consecutive samples differ by exactly 1 on every
		// channel, so any gap or duplication inside the window shows up here.
		for i := 1; i < ref.Len(); i++ {
			require.Equal(t, ref.Values[i-1][0]+1, ref.Values[i][0],
				"window holds contiguous samples")
			require.Equal(t, timestamp.PeriodMicros(rateHz), ref.Timestamps[i]-ref.Timestamps[i-1],
				"timestamps spaced one nominal period apart")
		}

		newest := ref.Values[ref.Len()-1][0]
		require.GreaterOrEqual(t, newest, lastNewest, "windows track playback forward")
		lastNewest = newest
	}

	// The playback ran for at least ten 20 Hz ticks; the newest decoded value
	// must have advanced well past the first window.
	require.Greater(t, lastNewest, float64(128), "decoder kept up with the live stream")

	for i, p := range preds {
		require.Equal(t, "ok", p.Label)
		if i > 0 {
			require.Greater(t, p.Timestamp, preds[i-1].Timestamp)
		}
	}
}
