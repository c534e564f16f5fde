package core

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Short returns the first 8 hex characters for log lines.
func (h Hash) Short() string {
	if len(h) < 8 {
		return string(h)
	}
	return string(h[:8])
}

// Domain-specific hash types
type (
	// InputHash fingerprints the raw export bytes a run consumed.
	InputHash Hash
	// FamilyID identifies one multiple-comparison correction family.
	FamilyID Hash
)

// Constructors
func NewInputHash(data []byte) InputHash { return InputHash(NewHash(data)) }

// String conversions
func (h InputHash) String() string { return Hash(h).String() }
func (h InputHash) Short() string  { return Hash(h).Short() }
func (h FamilyID) String() string  { return Hash(h).String() }
func (h FamilyID) Short() string   { return Hash(h).Short() }

// ComputeFamilyID derives a deterministic family identifier from the input
// fingerprint, the outcome name, and the member keys. Member order must not
// matter, so keys are sorted before hashing.
func ComputeFamilyID(input InputHash, outcome string, memberKeys []string) FamilyID {
	keys := make([]string, len(memberKeys))
	copy(keys, memberKeys)
	sort.Strings(keys)

	var data strings.Builder
	data.WriteString(input.String())
	data.WriteString("|")
	data.WriteString(outcome)
	for _, k := range keys {
		data.WriteString("|")
		data.WriteString(k)
	}
	return FamilyID(NewHash([]byte(data.String())))
}
