// Package types contains shared domain types used across the neurostream engine
package types

import (
	"fmt"

	"github.com/c360/neurostream/errors"
)

// Role represents the kind of data a stream carries
type Role string

// Stream role constants
const (
	RoleSignal Role = "signal" // continuous multi-channel samples at a nominal rate
	RoleMarker Role = "marker" // sparse event values, no nominal rate
)

// String implements fmt.Stringer for Role
func (r Role) String() string {
	return string(r)
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSignal, RoleMarker:
		return true
	default:
		return false
	}
}

// ChannelLayout is the ordered channel names of a stream. Indices are stable
// for the life of a stream binding; the layout is never mutated after bind.
type ChannelLayout struct {
	Names []string `json:"names"` // channel names in sample value order
}

// Count returns the number of channels.
func (l ChannelLayout) Count() int {
	return len(l.Names)
}

// Index returns the value index of a named channel.
func (l ChannelLayout) Index(name string) (int, bool) {
	for i, n := range l.Names {
		if n == name {
			return i, true
		}
	}
	return 0, false
}

// Validate ensures the layout has no empty or duplicate channel names
func (l ChannelLayout) Validate() error {
	seen := make(map[string]struct{}, len(l.Names))
	for i, n := range l.Names {
		if n == "" {
			return errors.WrapInvalid(errors.ErrInvalidData, "ChannelLayout", "Validate",
				fmt.Sprintf("channel %d has an empty name", i))
		}
		if _, dup := seen[n]; dup {
			return errors.WrapInvalid(errors.ErrInvalidData, "ChannelLayout", "Validate",
				fmt.Sprintf("duplicate channel name: %s", n))
		}
		seen[n] = struct{}{}
	}
	return nil
}

// StreamInfo describes one discovered stream. Bindings treat it as immutable:
// rate, role, and layout are fixed for the life of the handle.
type StreamInfo struct {
	ID          string        `json:"id"`           // unique stream identifier within the transport
	Name        string        `json:"name"`         // human-readable stream name
	Role        Role          `json:"role"`         // signal or marker
	Layout      ChannelLayout `json:"layout"`       // channel order, empty for marker streams
	NominalRate float64       `json:"nominal_rate"` // Hz; 0 for event-driven marker streams
	SourceID    string        `json:"source_id"`    // UUID of the announcing source
}

// Validate ensures the stream description is coherent for its role
func (si StreamInfo) Validate() error {
	if si.ID == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "StreamInfo", "Validate",
			"stream ID cannot be empty")
	}
	if si.Name == "" {
		return errors.WrapInvalid(errors.ErrInvalidData, "StreamInfo", "Validate",
			"stream name cannot be empty")
	}
	if !si.Role.Valid() {
		return errors.WrapInvalid(errors.ErrInvalidData, "StreamInfo", "Validate",
			fmt.Sprintf("invalid stream role: %s", si.Role))
	}
	if err := si.Layout.Validate(); err != nil {
		return err
	}

	switch si.Role {
	case RoleSignal:
		if si.NominalRate <= 0 {
			return errors.WrapInvalid(errors.ErrInvalidData, "StreamInfo", "Validate",
				fmt.Sprintf("signal stream %s needs a positive nominal rate, got %g", si.ID, si.NominalRate))
		}
		if si.Layout.Count() == 0 {
			return errors.WrapInvalid(errors.ErrInvalidData, "StreamInfo", "Validate",
				fmt.Sprintf("signal stream %s needs a channel layout", si.ID))
		}
	case RoleMarker:
		if si.NominalRate < 0 {
			return errors.WrapInvalid(errors.ErrInvalidData, "StreamInfo", "Validate",
				fmt.Sprintf("marker stream %s has a negative nominal rate", si.ID))
		}
	}
	return nil
}

// IsSignal reports whether the stream carries continuous signal data.
func (si StreamInfo) IsSignal() bool {
	return si.Role == RoleSignal
}

// IsMarker reports whether the stream carries sparse marker events.
func (si StreamInfo) IsMarker() bool {
	return si.Role == RoleMarker
}
