package aiml

import (
	"errors"
	"fmt"
)

// Common errors returned by the engine.
var (
	// ErrNoMatch is returned when no category matches an input and the
	// database defines no default (bare "*") category.
	ErrNoMatch = errors.New("no matching category")

	// ErrRecursionLimit is returned when template recursion via <srai>
	// exceeds Config.MaxRecursion. The response produced alongside it
	// contains the text accumulated before the limit was hit.
	ErrRecursionLimit = errors.New("recursion limit exceeded")

	// ErrUnknownTag is returned when a template uses a tag the evaluator
	// does not recognize and the loader was configured to reject them.
	ErrUnknownTag = errors.New("unknown template tag")

	// ErrEmptyPattern is returned when a category has no pattern tokens.
	ErrEmptyPattern = errors.New("category pattern is empty")

	// ErrPatternTooLong is returned when a category pattern normalizes to
	// more than MaxPatternTokens tokens.
	ErrPatternTooLong = errors.New("pattern exceeds maximum token count")

	// ErrEmptyInput is returned when Respond is called with input that
	// normalizes to nothing.
	ErrEmptyInput = errors.New("input is empty")

	// ErrBotClosed is returned when operating on a closed bot.
	ErrBotClosed = errors.New("bot is closed")

	// ErrStoreClosed is returned when operating on a closed brain store.
	ErrStoreClosed = errors.New("brain store is closed")

	// ErrBadSnapshot is returned when a session snapshot cannot be decoded.
	ErrBadSnapshot = errors.New("malformed session snapshot")
)

// ParseError describes a malformed category in a rule source. Loading is
// best-effort: a ParseError is localized to the offending category and
// collected into LoadReport.Errors while the rest of the batch loads.
// Extractable via errors.As(). Supports Unwrap().
type ParseError struct {
	Source  string // file name or buffer label
	Line    int    // 1-based line where parsing broke, 0 if unknown
	Excerpt string // short excerpt around the failure point
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Excerpt != "" {
		return fmt.Sprintf("parse %s:%d: %v: %q", e.Source, e.Line, e.Err, e.Excerpt)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse %s:%d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError is returned when configuration validation fails.
// Extractable via errors.As().
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}
