// Package brain provides brain ID and path resolution for aimlbot.
package brain

import (
	"errors"
	"regexp"
	"strings"
)

// Brain ID validation errors.
var (
	// ErrInvalidID indicates the brain ID format is invalid.
	ErrInvalidID = errors.New("invalid brain ID: must be lowercase alphanumeric with hyphens, 1-4 path segments")
)

// idRegex validates brain ID format.
// Format: <segment>[/<segment>]*
// - 1-4 path segments separated by /
// - Segments: lowercase alphanumeric and hyphens (a-z, 0-9, -)
// - Segment length: 1-64 characters
// - No leading/trailing hyphens, no consecutive hyphens
// - Total max length: 256 characters
var idRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,62}[a-z0-9])?(\/[a-z0-9]([a-z0-9-]{0,62}[a-z0-9])?){0,3}$`)

// ValidateID validates a brain ID format.
// Returns ErrInvalidID if the ID doesn't match the required pattern.
func ValidateID(id string) error {
	if id == "" {
		return ErrInvalidID
	}
	if len(id) > 256 {
		return ErrInvalidID
	}
	// Consecutive hyphens are not caught by the regex
	if strings.Contains(id, "--") {
		return ErrInvalidID
	}
	if !idRegex.MatchString(id) {
		return ErrInvalidID
	}
	return nil
}
