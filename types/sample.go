package types

// Sample is one multi-channel observation at a single instant. Values has one
// entry per channel in layout order. Marker samples carry a single value, the
// event code.
type Sample struct {
	Timestamp int64     `json:"timestamp"` // Unix microseconds
	Values    []float64 `json:"values"`    // one per channel, layout order
}

// Clone returns a deep copy whose Values share nothing with the receiver.
func (s Sample) Clone() Sample {
	values := make([]float64, len(s.Values))
	copy(values, s.Values)
	return Sample{Timestamp: s.Timestamp, Values: values}
}

// MarkerSample builds a single-channel sample carrying an event value.
func MarkerSample(value float64, tsMicros int64) Sample {
	return Sample{Timestamp: tsMicros, Values: []float64{value}}
}
