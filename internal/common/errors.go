package common

import "fmt"

// SourceUnavailableError indicates the availability snapshot could not be obtained.
// The run is aborted before any state is touched.
type SourceUnavailableError struct {
	Source string
	Err    error
}

func (e *SourceUnavailableError) Error() string {
	return fmt.Sprintf("snapshot source %s unavailable: %v", e.Source, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error { return e.Err }

// NewSourceUnavailableError creates a new SourceUnavailableError.
func NewSourceUnavailableError(source string, err error) *SourceUnavailableError {
	return &SourceUnavailableError{Source: source, Err: err}
}

// StoreUnavailableError indicates the state backend could not be reached
// (or did not answer within its timeout).
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("state store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// NewStoreUnavailableError creates a new StoreUnavailableError.
func NewStoreUnavailableError(op string, err error) *StoreUnavailableError {
	return &StoreUnavailableError{Op: op, Err: err}
}

// SinkDeliveryError indicates the notification could not be delivered.
// State has already been persisted when this is returned.
type SinkDeliveryError struct {
	Provider string
	Err      error
}

func (e *SinkDeliveryError) Error() string {
	return fmt.Sprintf("%s delivery failed: %v", e.Provider, e.Err)
}

func (e *SinkDeliveryError) Unwrap() error { return e.Err }

// NewSinkDeliveryError creates a new SinkDeliveryError.
func NewSinkDeliveryError(provider string, err error) *SinkDeliveryError {
	return &SinkDeliveryError{Provider: provider, Err: err}
}

// ValidationError indicates invalid input data or configuration.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}
