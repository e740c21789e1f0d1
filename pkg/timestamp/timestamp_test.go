package timestamp

import (
	"testing"
	"time"
)

// Test constants
var (
	testTime       = time.Date(2023, 1, 15, 12, 30, 45, 123456000, time.UTC)
	testTimeMicros = int64(1673785845123456)
)

func TestNow(t *testing.T) {
	before := time.Now().UnixMicro()
	ts := Now()
	after := time.Now().UnixMicro()

	if ts < before || ts > after {
		t.Errorf("Now() = %d, expected between %d and %d", ts, before, after)
	}
}

func TestToMicros(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected int64
	}{
		{
			name:     "normal time",
			input:    testTime,
			expected: testTimeMicros,
		},
		{
			name:     "zero time",
			input:    time.Time{},
			expected: 0,
		},
		{
			name:     "unix epoch",
			input:    time.Unix(0, 0),
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToMicros(tt.input)
			if result != tt.expected {
				t.Errorf("ToMicros(%v) = %d, expected %d", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFromMicros(t *testing.T) {
	tests := []struct {
		name     string
		input    int64
		expected time.Time
	}{
		{
			name:     "normal timestamp",
			input:    testTimeMicros,
			expected: time.UnixMicro(testTimeMicros),
		},
		{
			name:     "zero timestamp",
			input:    0,
			expected: time.Time{},
		},
		{
			name:     "negative timestamp",
			input:    -1000,
			expected: time.UnixMicro(-1000),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FromMicros(tt.input)
			if !result.Equal(tt.expected) {
				t.Errorf("FromMicros(%d) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSecondsRoundTrip(t *testing.T) {
	sec := 1673785845.123456
	us := FromSeconds(sec)
	back := Seconds(us)

	diff := sec - back
	if diff < 0 {
		diff = -diff
	}
	if diff > 1e-6 {
		t.Errorf("FromSeconds/Seconds round trip drifted by %g s", diff)
	}

	if FromSeconds(0) != 0 {
		t.Error("FromSeconds(0) should be 0")
	}
}

func TestPeriodMicros(t *testing.T) {
	tests := []struct {
		name     string
		rate     float64
		expected int64
	}{
		{"512 Hz", 512, 1953},
		{"256 Hz", 256, 3906},
		{"1 kHz", 1000, 1000},
		{"1 Hz", 1, 1000000},
		{"marker stream", 0, 0},
		{"negative rate", -5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := PeriodMicros(tt.rate)
			if result != tt.expected {
				t.Errorf("PeriodMicros(%v) = %d, expected %d", tt.rate, result, tt.expected)
			}
		})
	}
}

func TestSamplesIn(t *testing.T) {
	tests := []struct {
		name     string
		seconds  float64
		rate     float64
		expected int
	}{
		{"one second at 512", 1.0, 512, 512},
		{"half second at 256", 0.5, 256, 128},
		{"two seconds at 256", 2.0, 256, 512},
		{"rounding up", 0.999, 100, 100},
		{"zero span", 0, 512, 0},
		{"marker rate", 1.0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SamplesIn(tt.seconds, tt.rate)
			if result != tt.expected {
				t.Errorf("SamplesIn(%v, %v) = %d, expected %d", tt.seconds, tt.rate, result, tt.expected)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	if got := Format(0); got != "" {
		t.Errorf("Format(0) = %q, expected empty", got)
	}

	got := Format(testTimeMicros)
	if got != "2023-01-15T12:30:45.123456Z" {
		t.Errorf("Format(%d) = %q", testTimeMicros, got)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected int64
	}{
		// int64 tests
		{
			name:     "int64 microseconds",
			input:    int64(1673785845123456),
			expected: 1673785845123456,
		},
		{
			name:     "int64 milliseconds",
			input:    int64(1673785845123),
			expected: 1673785845123000,
		},
		{
			name:     "int64 seconds",
			input:    int64(1673784645),
			expected: 1673784645000000,
		},
		{
			name:     "int64 zero",
			input:    int64(0),
			expected: 0,
		},

		// float64 tests
		{
			name:     "float64 seconds with fraction",
			input:    float64(1673784645.25),
			expected: 1673784645250000,
		},
		{
			name:     "float64 microseconds",
			input:    float64(1673785845123456),
			expected: 1673785845123456,
		},
		{
			name:     "float64 zero",
			input:    float64(0),
			expected: 0,
		},

		// int tests
		{
			name:     "int seconds",
			input:    int(1673784645),
			expected: 1673784645000000,
		},

		// string tests
		{
			name:     "RFC3339 string",
			input:    "2023-01-15T12:30:45Z",
			expected: 1673785845000000,
		},
		{
			name:     "numeric string seconds",
			input:    "1673784645",
			expected: 1673784645000000,
		},
		{
			name:     "float string seconds",
			input:    "1673784645.5",
			expected: 1673784645500000,
		},
		{
			name:     "empty string",
			input:    "",
			expected: 0,
		},
		{
			name:     "invalid string",
			input:    "invalid",
			expected: 0,
		},

		// time.Time tests
		{
			name:     "time.Time",
			input:    time.UnixMicro(1673785845123456),
			expected: 1673785845123456,
		},
		{
			name:     "zero time.Time",
			input:    time.Time{},
			expected: 0,
		},

		// *time.Time tests
		{
			name:     "*time.Time",
			input:    &testTime,
			expected: testTimeMicros,
		},
		{
			name:     "nil *time.Time",
			input:    (*time.Time)(nil),
			expected: 0,
		},

		// nil and unsupported types
		{
			name:     "nil",
			input:    nil,
			expected: 0,
		},
		{
			name:     "unsupported type",
			input:    []int{1, 2, 3},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.input)
			if result != tt.expected {
				t.Errorf("Parse(%v) = %d, expected %d", tt.input, result, tt.expected)
			}
		})
	}
}

func TestIsZero(t *testing.T) {
	if !IsZero(0) {
		t.Error("IsZero(0) should be true")
	}
	if IsZero(testTimeMicros) {
		t.Error("IsZero(non-zero) should be false")
	}
	if IsZero(-1) {
		t.Error("IsZero(-1) should be false")
	}
}

func TestSince(t *testing.T) {
	oneSecondAgo := time.Now().Add(-time.Second).UnixMicro()
	duration := Since(oneSecondAgo)

	if duration < 900*time.Millisecond || duration > 1100*time.Millisecond {
		t.Errorf("Since(%d) = %v, expected approximately 1 second", oneSecondAgo, duration)
	}

	if Since(0) != 0 {
		t.Errorf("Since(0) = %v, expected 0", Since(0))
	}
}

func TestAddSub(t *testing.T) {
	hour := int64(3600) * MicrosPerSecond

	if got := Add(testTimeMicros, time.Hour); got != testTimeMicros+hour {
		t.Errorf("Add hour = %d, expected %d", got, testTimeMicros+hour)
	}
	if got := Add(0, time.Hour); got != 0 {
		t.Errorf("Add on zero timestamp = %d, expected 0", got)
	}
	if got := Sub(testTimeMicros, time.Hour); got != testTimeMicros-hour {
		t.Errorf("Sub hour = %d, expected %d", got, testTimeMicros-hour)
	}
	if got := Sub(0, time.Hour); got != 0 {
		t.Errorf("Sub on zero timestamp = %d, expected 0", got)
	}
}

func TestBetween(t *testing.T) {
	start := testTimeMicros
	end := testTimeMicros + 5*MicrosPerSecond

	tests := []struct {
		name     string
		start    int64
		end      int64
		expected time.Duration
	}{
		{"normal duration", start, end, 5 * time.Second},
		{"zero start", 0, end, 0},
		{"zero end", start, 0, 0},
		{"both zero", 0, 0, 0},
		{"reverse order", end, start, -5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Between(tt.start, tt.end)
			if result != tt.expected {
				t.Errorf("Between(%d, %d) = %v, expected %v", tt.start, tt.end, result, tt.expected)
			}
		})
	}
}

func TestMinMax(t *testing.T) {
	if got := Min(1000, 2000); got != 1000 {
		t.Errorf("Min = %d, expected 1000", got)
	}
	if got := Min(0, 2000); got != 2000 {
		t.Errorf("Min with zero = %d, expected 2000", got)
	}
	if got := Max(1000, 2000); got != 2000 {
		t.Errorf("Max = %d, expected 2000", got)
	}
	if got := Max(1000, 0); got != 1000 {
		t.Errorf("Max with zero = %d, expected 1000", got)
	}
	if got := Max(0, 0); got != 0 {
		t.Errorf("Max(0,0) = %d, expected 0", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		input       int64
		expectError bool
	}{
		{"valid timestamp", testTimeMicros, false},
		{"zero timestamp", 0, false},
		{"negative timestamp", -1000, true},
		{"far future timestamp", 32503680000000001, true},
		{"year 3000 exactly", 32503680000000000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.input)
			if tt.expectError && err == nil {
				t.Errorf("Validate(%d) expected error but got none", tt.input)
			}
			if !tt.expectError && err != nil {
				t.Errorf("Validate(%d) unexpected error: %v", tt.input, err)
			}
		})
	}
}

func TestRoundTripAccuracy(t *testing.T) {
	original := time.Now()
	us := ToMicros(original)
	recovered := FromMicros(us)

	// Microsecond precision loses only sub-microsecond nanos
	diff := original.Sub(recovered).Abs()
	if diff >= time.Microsecond {
		t.Errorf("Round trip lost too much precision: %v", diff)
	}
}

func TestParseMagnitudeBoundaries(t *testing.T) {
	// Millis band upper edge: values above 1e14 are already micros
	result := Parse(int64(1e14) + 1)
	if result != int64(1e14)+1 {
		t.Errorf("Parse above micros boundary = %d", result)
	}

	// Seconds band upper edge: values above 1e11 are millis
	result = Parse(int64(1e11) + 1)
	if result != (int64(1e11)+1)*1000 {
		t.Errorf("Parse above millis boundary = %d", result)
	}

	// Below 1e11 treated as seconds
	result = Parse(int64(1e11) - 1)
	if result != (int64(1e11)-1)*MicrosPerSecond {
		t.Errorf("Parse below millis boundary = %d", result)
	}
}

// Benchmark tests
func BenchmarkNow(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Now()
	}
}

func BenchmarkToMicros(b *testing.B) {
	t := time.Now()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ToMicros(t)
	}
}

func BenchmarkFormat(b *testing.B) {
	ts := testTimeMicros
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Format(ts)
	}
}

func BenchmarkParseInt64(b *testing.B) {
	ts := testTimeMicros
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Parse(ts)
	}
}
