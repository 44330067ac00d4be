package domain

import (
	"errors"
	"fmt"
)

// StageErrorKind classifies stage failures for the orchestrator's
// propagation policy.
type StageErrorKind string

const (
	// ErrorConnectivity means the external store stayed unreachable after
	// bounded retries.
	ErrorConnectivity StageErrorKind = "connectivity"

	// ErrorData means the input could not be processed: an unparsable
	// required field, too few numeric columns, or an insufficient sample.
	ErrorData StageErrorKind = "data"

	// ErrorPartial means some objects among many failed while others were
	// committed. Committed objects are not rolled back.
	ErrorPartial StageErrorKind = "partial"
)

// ErrStoreUnavailable marks transport-level object store failures. Errors
// wrapping it classify as connectivity.
var ErrStoreUnavailable = errors.New("object store unavailable")

// StageError wraps a stage failure with its taxonomy kind and, for partial
// failures, an aggregate success count.
type StageError struct {
	Stage     string
	Kind      StageErrorKind
	Succeeded int
	Total     int
	Err       error
}

func (e *StageError) Error() string {
	if e.Kind == ErrorPartial {
		return fmt.Sprintf("stage %s: %s (%d/%d objects succeeded): %v", e.Stage, e.Kind, e.Succeeded, e.Total, e.Err)
	}
	return fmt.Sprintf("stage %s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// NewStageError builds a StageError of the given kind.
func NewStageError(stage string, kind StageErrorKind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

// ErrorKind extracts the taxonomy kind from an error chain. Unclassified
// errors default to data errors, the halt-the-run case.
func ErrorKind(err error) StageErrorKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, ErrStoreUnavailable) {
		return ErrorConnectivity
	}
	return ErrorData
}
