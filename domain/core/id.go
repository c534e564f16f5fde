package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation.
// Run IDs never appear in output tables (determinism requirement); they exist
// for logs and the optional archive only.
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	// RunID identifies one pipeline execution.
	RunID ID
	// ParticipantID is the opaque external identifier from the recruitment
	// platform (a fixed-format hex-like token, never generated locally).
	ParticipantID ID
	// ResponseID is the survey platform's internal response identifier.
	ResponseID ID
	// ArtifactID identifies an archived output artifact.
	ArtifactID ID
)

// String conversions for domain IDs
func (id RunID) String() string         { return ID(id).String() }
func (id ParticipantID) String() string { return ID(id).String() }
func (id ResponseID) String() string    { return ID(id).String() }
func (id ArtifactID) String() string    { return ID(id).String() }

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	return RunID(s), nil
}

// ParseParticipantID parses a string into ParticipantID
func ParseParticipantID(s string) (ParticipantID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("participant ID cannot be empty")
	}
	return ParticipantID(s), nil
}

// Artifact represents any archivable output of a pipeline run
type Artifact struct {
	ID        ID           `json:"id"`
	Kind      ArtifactKind `json:"kind"`
	Payload   interface{}  `json:"payload"`
	CreatedAt Timestamp    `json:"created_at"`
}

// ArtifactKind defines types of artifacts
type ArtifactKind string

const (
	// ArtifactRunManifest captures audit metadata for a run (counts, input hash, thresholds).
	ArtifactRunManifest ArtifactKind = "run_manifest"
	// ArtifactTestFamily captures a correction family definition (outcome, size, methods).
	ArtifactTestFamily ArtifactKind = "test_family"
	// ArtifactStimulusResult is one per-stimulus (or aggregate) test result.
	ArtifactStimulusResult ArtifactKind = "stimulus_result"
	// ArtifactQualityReport is the per-participant screening table.
	ArtifactQualityReport ArtifactKind = "quality_report"
)
