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

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

// TestIDString tests ID string conversion
func TestIDString(t *testing.T) {
	id := ID("test-123")
	if id.String() != "test-123" {
		t.Errorf("Expected String() to return 'test-123', got '%s'", id.String())
	}
}

// TestParseParticipantID tests participant ID parsing
func TestParseParticipantID(t *testing.T) {
	tests := []struct {
		input    string
		expected ParticipantID
		hasError bool
	}{
		{"5f3b2c9a1d4e6f7a8b9c0d1e", ParticipantID("5f3b2c9a1d4e6f7a8b9c0d1e"), false},
		{"", "", true},
		{"   ", "", true},
	}

	for _, test := range tests {
		result, err := ParseParticipantID(test.input)
		if test.hasError && err == nil {
			t.Errorf("Expected error for input '%s', but got none", test.input)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

// TestParseRunID tests run ID parsing
func TestParseRunID(t *testing.T) {
	tests := []struct {
		input    string
		expected RunID
		hasError bool
	}{
		{"run-123", RunID("run-123"), false},
		{"", "", true},
	}

	for _, test := range tests {
		result, err := ParseRunID(test.input)
		if test.hasError && err == nil {
			t.Errorf("Expected error for input '%s', but got none", test.input)
		}
		if !test.hasError && err != nil {
			t.Errorf("Unexpected error for input '%s': %v", test.input, err)
		}
		if result != test.expected {
			t.Errorf("Expected %s, got %s", test.expected, result)
		}
	}
}

// TestComputeFamilyID_OrderIndependent verifies member order does not change the family
func TestComputeFamilyID_OrderIndependent(t *testing.T) {
	input := NewInputHash([]byte("export bytes"))

	a := ComputeFamilyID(input, "tendency", []string{"stim_1", "stim_2", "stim_3"})
	b := ComputeFamilyID(input, "tendency", []string{"stim_3", "stim_1", "stim_2"})
	if !Hash(a).Equals(Hash(b)) {
		t.Errorf("Family ID should not depend on member order: %s != %s", a, b)
	}

	c := ComputeFamilyID(input, "decision", []string{"stim_1", "stim_2", "stim_3"})
	if Hash(a).Equals(Hash(c)) {
		t.Error("Different outcomes must map to different families")
	}
}
