package types

// Window is a fixed-size cut of one stream's buffered data. Values is
// sample-major: Values[i] is the channel vector of the sample whose time is
// Timestamps[i]. Windows are value copies; they never alias buffer internals
// and the caller may hold them indefinitely.
type Window struct {
	StreamID   string      `json:"stream_id"`
	Values     [][]float64 `json:"values"`          // sample-major, parallel to Timestamps
	Timestamps []int64     `json:"timestamps"`      // Unix microseconds
	SpanStart  int64       `json:"span_start"`      // reference span begin, Unix microseconds
	SpanEnd    int64       `json:"span_end"`        // reference span end, Unix microseconds
	Stale      bool        `json:"stale,omitempty"` // newest contribution predates the current acquire cycle
}

// Len returns the number of samples in the window.
func (w Window) Len() int {
	return len(w.Timestamps)
}

// Empty reports whether the window holds no samples.
func (w Window) Empty() bool {
	return len(w.Timestamps) == 0
}

// Start returns the timestamp of the first sample, or 0 for an empty window.
func (w Window) Start() int64 {
	if len(w.Timestamps) == 0 {
		return 0
	}
	return w.Timestamps[0]
}

// End returns the timestamp of the last sample, or 0 for an empty window.
func (w Window) End() int64 {
	if len(w.Timestamps) == 0 {
		return 0
	}
	return w.Timestamps[len(w.Timestamps)-1]
}

// AlignedWindow is the reference stream's window plus every other bound
// stream's window re-sliced to the reference timestamp span.
type AlignedWindow struct {
	Reference Window            `json:"reference"`
	Streams   map[string]Window `json:"streams,omitempty"` // non-reference windows keyed by stream ID
	SpanStart int64             `json:"span_start"`        // Unix microseconds
	SpanEnd   int64             `json:"span_end"`          // Unix microseconds
}

// Window looks up a stream's window by ID, reference included.
func (aw AlignedWindow) Window(streamID string) (Window, bool) {
	if streamID == aw.Reference.StreamID {
		return aw.Reference, true
	}
	w, ok := aw.Streams[streamID]
	return w, ok
}

// StreamIDs returns every stream ID present, reference first.
func (aw AlignedWindow) StreamIDs() []string {
	ids := make([]string, 0, len(aw.Streams)+1)
	ids = append(ids, aw.Reference.StreamID)
	for id := range aw.Streams {
		ids = append(ids, id)
	}
	return ids
}
