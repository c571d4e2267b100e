package preprocess

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is reported as a warning, never returned, when the log has no lines.
var ErrEmptyInput = errors.New("log input is empty")

// ErrNoMatches is reported as a warning when no line matched any signature.
var ErrNoMatches = errors.New("no error-bearing lines found")

// ConfigurationError reports a malformed pattern set. Matchers are never
// built from a pattern set that produced one.
type ConfigurationError struct {
	// Pattern is the offending expression, empty when the set itself is invalid.
	Pattern string
	Reason  string
	Err     error
}

func (e *ConfigurationError) Error() string {
	msg := "invalid pattern configuration"
	if e.Pattern != "" {
		msg += fmt.Sprintf(" %q", e.Pattern)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// BoundaryError rejects a parameter outside its valid range.
type BoundaryError struct {
	Param string
	Value int
}

func (e *BoundaryError) Error() string {
	return fmt.Sprintf("%s must be >= 0, got %d", e.Param, e.Value)
}
