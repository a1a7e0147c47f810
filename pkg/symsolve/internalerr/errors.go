package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMissingSegment is returned when a header keyword is absent from program text.
	ErrMissingSegment = errors.New("missing segment")
	// ErrParse marks program text that does not have the expected segment shape.
	ErrParse = errors.New("parse error")
	// ErrTranslation marks a statement that cannot be converted to solver input.
	ErrTranslation = errors.New("translation error")
	ErrTimeout     = errors.New("timeout")
	ErrExecution   = errors.New("execution error")
	// ErrAnswerUnresolved means the solver ran but no option letter could be chosen.
	ErrAnswerUnresolved = errors.New("answer unresolved")
)
