package types_test

import (
	"encoding/json"
	"testing"

	pkgerrors "github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/types"
)

func TestStreamInfoValidate(t *testing.T) {
	tests := []struct {
		name        string
		info        types.StreamInfo
		expectError bool
	}{
		{
			name: "valid signal stream",
			info: types.StreamInfo{
				ID:          "eeg-main",
				Name:        "EEG Main",
				Role:        types.RoleSignal,
				Layout:      types.ChannelLayout{Names: []string{"Fz", "Cz", "Pz"}},
				NominalRate: 512,
				SourceID:    "8e6be5b0-02cf-4a3f-9c49-7b2a77c6b0dd",
			},
			expectError: false,
		},
		{
			name: "valid marker stream",
			info: types.StreamInfo{
				ID:   "triggers",
				Name: "Triggers",
				Role: types.RoleMarker,
			},
			expectError: false,
		},
		{
			name: "empty ID",
			info: types.StreamInfo{
				Name:        "EEG Main",
				Role:        types.RoleSignal,
				Layout:      types.ChannelLayout{Names: []string{"Fz"}},
				NominalRate: 512,
			},
			expectError: true,
		},
		{
			name: "empty name",
			info: types.StreamInfo{
				ID:          "eeg-main",
				Role:        types.RoleSignal,
				Layout:      types.ChannelLayout{Names: []string{"Fz"}},
				NominalRate: 512,
			},
			expectError: true,
		},
		{
			name: "invalid role",
			info: types.StreamInfo{
				ID:   "eeg-main",
				Name: "EEG Main",
				Role: types.Role("video"),
			},
			expectError: true,
		},
		{
			name: "signal stream without rate",
			info: types.StreamInfo{
				ID:     "eeg-main",
				Name:   "EEG Main",
				Role:   types.RoleSignal,
				Layout: types.ChannelLayout{Names: []string{"Fz"}},
			},
			expectError: true,
		},
		{
			name: "signal stream without layout",
			info: types.StreamInfo{
				ID:          "eeg-main",
				Name:        "EEG Main",
				Role:        types.RoleSignal,
				NominalRate: 512,
			},
			expectError: true,
		},
		{
			name: "marker stream with negative rate",
			info: types.StreamInfo{
				ID:          "triggers",
				Name:        "Triggers",
				Role:        types.RoleMarker,
				NominalRate: -1,
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.info.Validate()

			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error but got nil")
				}
				if !pkgerrors.IsInvalid(err) {
					t.Errorf("expected Invalid error classification, got: %v", err)
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestChannelLayoutValidate(t *testing.T) {
	tests := []struct {
		name        string
		layout      types.ChannelLayout
		expectError bool
	}{
		{
			name:        "valid layout",
			layout:      types.ChannelLayout{Names: []string{"Fz", "Cz", "Pz"}},
			expectError: false,
		},
		{
			name:        "empty layout",
			layout:      types.ChannelLayout{},
			expectError: false,
		},
		{
			name:        "duplicate channel",
			layout:      types.ChannelLayout{Names: []string{"Fz", "Cz", "Fz"}},
			expectError: true,
		},
		{
			name:        "empty channel name",
			layout:      types.ChannelLayout{Names: []string{"Fz", ""}},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.layout.Validate()
			if tt.expectError && err == nil {
				t.Fatal("expected error but got nil")
			}
			if !tt.expectError && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestChannelLayoutIndex(t *testing.T) {
	layout := types.ChannelLayout{Names: []string{"Fz", "Cz", "Pz"}}

	if layout.Count() != 3 {
		t.Errorf("Count() = %d, want 3", layout.Count())
	}

	idx, ok := layout.Index("Cz")
	if !ok || idx != 1 {
		t.Errorf("Index(Cz) = %d, %v, want 1, true", idx, ok)
	}

	_, ok = layout.Index("Oz")
	if ok {
		t.Error("Index(Oz) should report not found")
	}
}

func TestRoleString(t *testing.T) {
	if types.RoleSignal.String() != "signal" {
		t.Errorf("RoleSignal.String() = %q, want %q", types.RoleSignal.String(), "signal")
	}
	if types.RoleMarker.String() != "marker" {
		t.Errorf("RoleMarker.String() = %q, want %q", types.RoleMarker.String(), "marker")
	}
	if !types.RoleSignal.Valid() || !types.RoleMarker.Valid() {
		t.Error("known roles must be valid")
	}
	if types.Role("video").Valid() {
		t.Error("unknown role must be invalid")
	}
}

func TestStreamInfo_JSONRoundTrip(t *testing.T) {
	original := types.StreamInfo{
		ID:          "eeg-main",
		Name:        "EEG Main",
		Role:        types.RoleSignal,
		Layout:      types.ChannelLayout{Names: []string{"Fz", "Cz"}},
		NominalRate: 256,
		SourceID:    "8e6be5b0-02cf-4a3f-9c49-7b2a77c6b0dd",
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var decoded types.StreamInfo
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if decoded.ID != original.ID {
		t.Errorf("ID: got %v, want %v", decoded.ID, original.ID)
	}
	if decoded.Role != original.Role {
		t.Errorf("Role: got %v, want %v", decoded.Role, original.Role)
	}
	if decoded.NominalRate != original.NominalRate {
		t.Errorf("NominalRate: got %v, want %v", decoded.NominalRate, original.NominalRate)
	}
	if decoded.Layout.Count() != original.Layout.Count() {
		t.Errorf("Layout: got %v, want %v", decoded.Layout, original.Layout)
	}
}
