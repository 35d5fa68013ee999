package domain

import (
	"errors"
	"fmt"
)

// Common domain errors.
var (
	// ErrInvalidConfiguration indicates that the catalog cannot be used.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrDuplicateCriterion indicates that two criteria share an id.
	ErrDuplicateCriterion = errors.New("duplicate criterion id")

	// ErrMalformedReference indicates an extractor reference with bad syntax.
	ErrMalformedReference = errors.New("malformed extractor reference")

	// ErrEmptyPath indicates an extractor reference with no segments.
	ErrEmptyPath = errors.New("empty extractor path")

	// ErrModuleNotFound indicates that no registered provider matches a reference.
	ErrModuleNotFound = errors.New("module not found")

	// ErrNotImplemented indicates a provider that is registered but not built yet.
	ErrNotImplemented = errors.New("extractor not yet implemented")

	// ErrFieldMissing indicates that a drill-down step found no such field or key.
	ErrFieldMissing = errors.New("attribute/key missing")

	// ErrProviderFailed indicates that a provider returned an error or panicked.
	ErrProviderFailed = errors.New("provider failed")

	// ErrNonNumeric indicates a value that cannot be coerced to a number.
	ErrNonNumeric = errors.New("non-numeric value")

	// ErrPreconditionUnmet indicates a categorical value of the wrong shape.
	ErrPreconditionUnmet = errors.New("precondition unmet")

	// ErrUnsupportedCriterion indicates a variant with no evaluation path.
	ErrUnsupportedCriterion = errors.New("unsupported criterion variant")

	// ErrJudgeUnavailable indicates that the qualitative judge could not be reached.
	ErrJudgeUnavailable = errors.New("judge unavailable")

	// ErrReportSealed indicates an attempt to add to a finished report.
	ErrReportSealed = errors.New("report already built")
)

// ResolutionError describes why an extractor reference could not be resolved.
// The message is used verbatim as a skip reason.
type ResolutionError struct {
	// Ref is the reference that failed.
	Ref ExtractorRef

	// Segment is the path segment being processed when resolution failed.
	Segment string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface for ResolutionError.
func (e *ResolutionError) Error() string {
	switch {
	case e.Segment != "" && e.Err != nil:
		return fmt.Sprintf("resolve %q: %v: %s", e.Ref, e.Err, e.Segment)
	case e.Err != nil:
		return fmt.Sprintf("resolve %q: %v", e.Ref, e.Err)
	default:
		return fmt.Sprintf("resolve %q: failed", e.Ref)
	}
}

// Unwrap returns the underlying error, supporting Go 1.13+ error unwrapping.
func (e *ResolutionError) Unwrap() error { return e.Err }

// NewResolutionError creates a new ResolutionError with the given details.
func NewResolutionError(ref ExtractorRef, segment string, err error) *ResolutionError {
	return &ResolutionError{
		Ref:     ref,
		Segment: segment,
		Err:     err,
	}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap lets callers match any validation failure with ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfiguration }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
