package agent

import (
	"errors"
	"fmt"
)

// The client distinguishes two failure modes so callers can decide whether a
// retry with the same prompt could help: a GenerationError means no usable
// response was obtained at all (transport, auth, rate limit, empty reply); a
// SchemaViolationError means a response arrived but did not parse against the
// declared shape.

// GenerationError wraps a transport-level failure of the generation capability.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed during %s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// NewGenerationError wraps err as a generation failure for operation op.
func NewGenerationError(op string, err error) error {
	return &GenerationError{Op: op, Err: err}
}

// SchemaViolationError wraps a structured response that could not be parsed
// against its expected shape. Raw keeps the offending payload for diagnostics.
type SchemaViolationError struct {
	Schema string
	Raw    string
	Err    error
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("response violates schema %q: %v", e.Schema, e.Err)
}

func (e *SchemaViolationError) Unwrap() error {
	return e.Err
}

// IsGenerationError reports whether err is a transport-level generation failure.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}

// IsSchemaViolation reports whether err is a schema-shaped parse failure.
func IsSchemaViolation(err error) bool {
	var se *SchemaViolationError
	return errors.As(err, &se)
}
