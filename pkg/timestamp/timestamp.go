// Package timestamp provides standardized acquisition timestamp handling.
//
// This package uses int64 microseconds as the canonical timestamp format.
// Signal sources sample in the kHz range, where millisecond resolution cannot
// distinguish neighboring samples; microseconds give headroom to 1 MHz. All
// timestamps are microseconds since Unix epoch (UTC) in one common time
// domain supplied by the transport layer.
//
// Zero Value Semantics:
//   - A timestamp value of 0 means "not set" or "unknown"
//   - Functions handle zero values gracefully, returning appropriate defaults
//
// Usage Examples:
//
//	// Current time
//	now := timestamp.Now()
//
//	// Convert from time.Time
//	ts := timestamp.ToMicros(time.Now())
//
//	// Convert to time.Time
//	t := timestamp.ToTime(ts)
//
//	// One nominal sample period at 512 Hz
//	period := timestamp.PeriodMicros(512)
//
//	// Parse transport payload fields (seconds, millis, or micros)
//	ts := timestamp.Parse(1672574400.25)
package timestamp

import (
	"fmt"
	"strconv"
	"time"
)

// MicrosPerSecond is the number of canonical timestamp units in one second.
const MicrosPerSecond = int64(1_000_000)

// Now returns the current time as Unix microseconds.
func Now() int64 {
	return time.Now().UnixMicro()
}

// ToMicros converts a time.Time to Unix microseconds.
func ToMicros(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMicro()
}

// FromMicros converts Unix microseconds to time.Time.
// Returns zero time if timestamp is 0.
func FromMicros(us int64) time.Time {
	if us == 0 {
		return time.Time{}
	}
	return time.UnixMicro(us)
}

// ToTime is an alias for FromMicros for better readability.
func ToTime(us int64) time.Time {
	return FromMicros(us)
}

// FromSeconds converts float seconds (source-clock convention for several
// acquisition protocols) to canonical microseconds.
func FromSeconds(sec float64) int64 {
	if sec == 0 {
		return 0
	}
	return int64(sec * float64(MicrosPerSecond))
}

// Seconds converts canonical microseconds to float seconds.
func Seconds(us int64) float64 {
	return float64(us) / float64(MicrosPerSecond)
}

// PeriodMicros returns one nominal sample period in microseconds for the
// given rate in Hz. Returns 0 for non-positive rates (event-driven streams).
func PeriodMicros(rateHz float64) int64 {
	if rateHz <= 0 {
		return 0
	}
	return int64(float64(MicrosPerSecond) / rateHz)
}

// SamplesIn returns how many samples at rateHz fit in the given span of
// seconds, rounded to the nearest whole sample. Returns 0 for non-positive
// inputs.
func SamplesIn(seconds float64, rateHz float64) int {
	if seconds <= 0 || rateHz <= 0 {
		return 0
	}
	return int(seconds*rateHz + 0.5)
}

// Format converts Unix microseconds to RFC3339 with sub-second precision.
// Returns empty string if timestamp is 0.
func Format(us int64) string {
	if us == 0 {
		return ""
	}
	return time.UnixMicro(us).UTC().Format(time.RFC3339Nano)
}

// Parse converts various timestamp formats to Unix microseconds.
// Supports:
//   - int64/int/int32 (micros if > 1e14, millis if > 1e11, otherwise seconds)
//   - float64 (same magnitude logic; fractional seconds preserved)
//   - string (RFC3339 or numeric string)
//   - time.Time
//   - nil/zero values (returns 0)
//
// Returns 0 for invalid input or parsing errors.
func Parse(input any) int64 {
	if input == nil {
		return 0
	}

	switch v := input.(type) {
	case int64:
		if v == 0 {
			return 0
		}
		// Magnitude heuristics: modern dates are ~1.7e9 s, ~1.7e12 ms,
		// ~1.7e15 us. The thresholds sit well clear of all three bands.
		if v > 1e14 {
			return v
		}
		if v > 1e11 {
			return v * 1000
		}
		return v * MicrosPerSecond

	case float64:
		if v == 0 {
			return 0
		}
		if v > 1e14 {
			return int64(v)
		}
		if v > 1e11 {
			return int64(v * 1000)
		}
		return FromSeconds(v)

	case int:
		return Parse(int64(v))

	case int32:
		return Parse(int64(v))

	case string:
		if v == "" {
			return 0
		}

		// Try parsing as RFC3339 first
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return ToMicros(t)
		}

		// Try parsing as integer timestamp string
		if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
			return Parse(ts)
		}

		// Try parsing as float string
		if ts, err := strconv.ParseFloat(v, 64); err == nil {
			return Parse(ts)
		}

		return 0

	case time.Time:
		return ToMicros(v)

	case *time.Time:
		if v == nil {
			return 0
		}
		return ToMicros(*v)

	default:
		return 0
	}
}

// IsZero checks if a timestamp is unset (zero).
func IsZero(us int64) bool {
	return us == 0
}

// Since returns the duration since the given timestamp.
// Returns 0 if timestamp is zero.
func Since(us int64) time.Duration {
	if us == 0 {
		return 0
	}
	return time.Since(time.UnixMicro(us))
}

// Add adds a duration to a timestamp and returns the new timestamp.
// Returns 0 if the input timestamp is zero.
func Add(us int64, d time.Duration) int64 {
	if us == 0 {
		return 0
	}
	return us + d.Microseconds()
}

// Sub subtracts a duration from a timestamp and returns the new timestamp.
// Returns 0 if the input timestamp is zero.
func Sub(us int64, d time.Duration) int64 {
	if us == 0 {
		return 0
	}
	return us - d.Microseconds()
}

// Between returns the duration between two timestamps.
// Returns 0 if either timestamp is zero.
func Between(start, end int64) time.Duration {
	if start == 0 || end == 0 {
		return 0
	}
	return time.Duration(end-start) * time.Microsecond
}

// Min returns the earlier of two timestamps.
// Zero values are treated as "later than any other time".
func Min(a, b int64) int64 {
	if a == 0 {
		return b
	}
	if b == 0 {
		return a
	}
	if a < b {
		return a
	}
	return b
}

// Max returns the later of two timestamps.
// Zero values are treated as "earlier than any other time".
func Max(a, b int64) int64 {
	if a == 0 {
		return b
	}
	if b == 0 {
		return a
	}
	if a > b {
		return a
	}
	return b
}

// Validate checks if a timestamp is valid (non-negative and reasonable).
// Returns an error if the timestamp is negative or unreasonably large.
func Validate(us int64) error {
	if us < 0 {
		return fmt.Errorf("timestamp cannot be negative: %d", us)
	}
	// Year 3000 in microseconds
	if us > 32503680000000000 {
		return fmt.Errorf("timestamp too far in future: %d", us)
	}
	return nil
}
