package core

import (
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	if !ID("").IsEmpty() {
		t.Error("Expected empty ID to be empty")
	}
	if ID("not-empty").IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

func TestParseRunID(t *testing.T) {
	tests := []struct {
		input    string
		hasError bool
	}{
		{NewRunID().String(), false},
		{"", true},
		{"   ", true},
		{"not-a-uuid", true},
	}

	for _, tt := range tests {
		_, err := ParseRunID(tt.input)
		if tt.hasError && err == nil {
			t.Errorf("ParseRunID(%q) expected error, got nil", tt.input)
		}
		if !tt.hasError && err != nil {
			t.Errorf("ParseRunID(%q) unexpected error: %v", tt.input, err)
		}
	}
}

func TestParseSubjectID(t *testing.T) {
	id, err := ParseSubjectID("  patient-7 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != SubjectID("patient-7") {
		t.Errorf("expected trimmed subject id, got %q", id)
	}
	if _, err := ParseSubjectID(" "); err == nil {
		t.Error("expected error for blank subject id")
	}
}
