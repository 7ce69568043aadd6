package coordinator

import (
	"context"
	"errors"
	"fmt"
)

// FailureClass tags a detector failure so retry logic can branch on an
// explicit classification instead of inspecting error chains.
type FailureClass string

const (
	// FailureTransient covers timeouts, connection failures and
	// 5xx-equivalent upstream errors; retried with backoff.
	FailureTransient FailureClass = "transient"
	// FailurePermanent covers 4xx-equivalent and detector-internal
	// validation errors; never retried.
	FailurePermanent FailureClass = "permanent"
)

// DetectorError wraps a detector failure with its class
type DetectorError struct {
	Class FailureClass
	Err   error
}

func (e *DetectorError) Error() string {
	return fmt.Sprintf("%s detector failure: %v", e.Class, e.Err)
}

func (e *DetectorError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retriable failure
func Transient(err error) error {
	return &DetectorError{Class: FailureTransient, Err: err}
}

// Permanent wraps err as a non-retriable failure
func Permanent(err error) error {
	return &DetectorError{Class: FailurePermanent, Err: err}
}

// Classify maps an arbitrary detector error onto a failure class.
// Context timeouts count as transient; anything untagged is treated as a
// detector-internal error and exhausts immediately.
func Classify(err error) FailureClass {
	var de *DetectorError
	if errors.As(err, &de) {
		return de.Class
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTransient
	}
	return FailurePermanent
}
