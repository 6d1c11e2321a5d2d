package domain

import (
	"errors"
	"fmt"
)

// Response errorType values.
const (
	ErrorTypeValidation      = "validation_error"
	ErrorTypePipelineFailure = "pipeline_failure"
	ErrorTypeTimeout         = "timeout"
)

var (
	// ErrPipelineFailure means no search stage produced a usable response.
	ErrPipelineFailure = errors.New("all search stages failed")
	// ErrRunTimeout means the run-wide deadline expired.
	ErrRunTimeout = errors.New("search run timed out")
	// ErrNotAProgram is returned by interpreters for pages that do not describe a program.
	ErrNotAProgram = errors.New("page does not describe an exchange program")
)

// ValidationError rejects a query before any run starts.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ProviderError is a failed search-stage provider call.
type ProviderError struct {
	Provider string
	Stage    Stage
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s failed at stage %s: %v", e.Provider, e.Stage, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ExtractionFailure is a single hit that could not become a ProgramRecord.
type ExtractionFailure struct {
	URL string
	Err error
}

func (e *ExtractionFailure) Error() string {
	return fmt.Sprintf("extract %s: %v", e.URL, e.Err)
}

func (e *ExtractionFailure) Unwrap() error { return e.Err }
