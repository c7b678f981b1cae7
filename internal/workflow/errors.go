package workflow

import (
	"errors"
	"fmt"
)

// Messages shown to the user. Request failures never expose their cause.
const (
	ValidationMessage     = "Please enter at least one ingredient."
	RequestFailureMessage = "Something went wrong. Please try again later."
)

// Sentinel errors used across layers.
var (
	ErrEmptyInput       = errors.New("empty input")
	ErrRequestInFlight  = errors.New("a prediction request is already in flight")
	ErrWorkflowClosed   = errors.New("workflow is closed")
	ErrWorkflowNotFound = errors.New("workflow not found")

	errEmptyResult = errors.New("prediction service returned no result")
)

// ValidationError is returned for input rejected before any request is sent.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// RequestError wraps any failure of the prediction round-trip.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("prediction request: %v", e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }
