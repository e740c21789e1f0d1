package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/c360/neurostream/recorder"
	"github.com/c360/neurostream/types"
)

// loadSession extracts one stream's samples from a recorded session file.
// Consecutive batches hold overlapping windows, so samples are deduplicated
// by timestamp. streamID empty selects the reference stream; rateHz 0 infers
// the nominal rate from the extracted timestamps.
func loadSession(path, streamID string, rateHz float64) ([]types.Sample, types.StreamInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, types.StreamInfo{}, fmt.Errorf("open session: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<26) // wide windows make long lines

	var out []types.Sample
	lastTs := int64(math.MinInt64)
	line := 0
	for scanner.Scan() {
		line++
		var batch recorder.Batch
		if err := json.Unmarshal(scanner.Bytes(), &batch); err != nil {
			return nil, types.StreamInfo{}, fmt.Errorf("parse session line %d: %w", line, err)
		}

		w := batch.Window.Reference
		if streamID != "" && w.StreamID != streamID {
			var ok bool
			if w, ok = batch.Window.Window(streamID); !ok {
				continue
			}
		}

		for i, ts := range w.Timestamps {
			if ts <= lastTs {
				continue
			}
			values := make([]float64, len(w.Values[i]))
			copy(values, w.Values[i])
			out = append(out, types.Sample{Timestamp: ts, Values: values})
			lastTs = ts
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, types.StreamInfo{}, fmt.Errorf("read session: %w", err)
	}
	if len(out) == 0 {
		return nil, types.StreamInfo{}, fmt.Errorf("session %s holds no samples for stream %q", path, streamID)
	}

	if rateHz <= 0 {
		rateHz = inferRate(out)
		if rateHz <= 0 {
			return nil, types.StreamInfo{}, fmt.Errorf("cannot infer sampling rate from %s, pass -rate", path)
		}
	}
	return out, signalInfo(len(out[0].Values), rateHz), nil
}

// inferRate derives the nominal rate from the average sample spacing.
func inferRate(samples []types.Sample) float64 {
	if len(samples) < 2 {
		return 0
	}
	span := samples[len(samples)-1].Timestamp - samples[0].Timestamp
	if span <= 0 {
		return 0
	}
	spacing := float64(span) / float64(len(samples)-1)
	return math.Round(1e6 / spacing)
}
