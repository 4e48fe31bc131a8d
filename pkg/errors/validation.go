package errors

import (
	"math"
	"strings"
	"unicode"
)

// maxCircuitNameLength bounds circuit names, which end up inside filenames.
const maxCircuitNameLength = 200

// ValidateCircuitName validates a circuit name before it is embedded in an
// output filename.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters or whitespace
//   - No path separators or traversal sequences
//   - Maximum length of 200 characters
func ValidateCircuitName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidCircuit, "circuit name cannot be empty")
	}

	if len(name) > maxCircuitNameLength {
		return New(ErrCodeInvalidCircuit, "circuit name too long (max %d characters)", maxCircuitNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidCircuit, "circuit name %q contains whitespace or control characters", name)
		}
	}

	for _, pattern := range []string{"/", "\\", "..", "\x00"} {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidCircuit, "circuit name %q contains invalid characters: %q", name, pattern)
		}
	}

	return nil
}

// ValidateRate checks that a removal rate lies in [0, 1].
// NaN and infinities are rejected.
func ValidateRate(name string, rate float64) error {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return New(ErrCodeInvalidRate, "%s must be a finite number, got %v", name, rate)
	}
	if rate < 0 || rate > 1 {
		return New(ErrCodeInvalidRate, "%s must be in [0, 1], got %v", name, rate)
	}
	return nil
}
