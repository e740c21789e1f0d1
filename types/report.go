package types

// ClockAnomaly records a backward timestamp jump larger than one nominal
// sample period on a stream. Informational: the sample that triggered it was
// still buffered.
type ClockAnomaly struct {
	StreamID   string `json:"stream_id"`
	Previous   int64  `json:"previous"`    // last accepted timestamp, Unix microseconds
	Observed   int64  `json:"observed"`    // the out-of-order timestamp, Unix microseconds
	JumpMicros int64  `json:"jump_micros"` // positive backward jump magnitude
}

// AcquireReport summarizes one acquire cycle across all bound streams.
type AcquireReport struct {
	Pulled         map[string]int `json:"pulled"`                 // samples appended per stream ID
	Anomalies      []ClockAnomaly `json:"anomalies,omitempty"`    // backward clock jumps this cycle
	Stale          []string       `json:"stale,omitempty"`        // streams that timed out this cycle
	Disconnected   []string       `json:"disconnected,omitempty"` // streams the transport reports gone
	DurationMicros int64          `json:"duration_micros"`        // wall time of the full cycle
}

// TotalPulled returns the number of samples appended across all streams.
func (r AcquireReport) TotalPulled() int {
	total := 0
	for _, n := range r.Pulled {
		total += n
	}
	return total
}

// Clean reports whether the cycle completed with no anomalies, no stale
// streams, and no disconnects.
func (r AcquireReport) Clean() bool {
	return len(r.Anomalies) == 0 && len(r.Stale) == 0 && len(r.Disconnected) == 0
}

// Prediction is one decoder output for a window.
type Prediction struct {
	Label     string  `json:"label"`
	Score     float64 `json:"score"`
	Timestamp int64   `json:"timestamp"`           // window end, Unix microseconds
	WorkerID  string  `json:"worker_id,omitempty"` // set in interleaved mode
}
