package relay

import (
	"errors"
	"fmt"
)

// Error represents a relay error with categorization.
type Error struct {
	// Code is a machine-readable error code
	Code string

	// Message is a human-readable error message
	Message string

	// Err is the underlying error (if any)
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Error codes for relay operations.
const (
	// ErrCodeNoData indicates no data was found.
	ErrCodeNoData = "NO_DATA"

	// ErrCodeValidation indicates validation failed.
	ErrCodeValidation = "VALIDATION_ERROR"

	// ErrCodeConfiguration indicates invalid configuration.
	ErrCodeConfiguration = "CONFIGURATION_ERROR"

	// ErrCodeDatabase indicates a dead-letter database operation failed.
	ErrCodeDatabase = "DATABASE_ERROR"

	// ErrCodeDelivery indicates a send to the broker failed.
	ErrCodeDelivery = "DELIVERY_ERROR"

	// ErrCodeProducerUnavailable indicates the broker connection is not ready.
	ErrCodeProducerUnavailable = "PRODUCER_UNAVAILABLE"

	// ErrCodePersistence indicates the queue snapshot could not be read or written.
	ErrCodePersistence = "PERSISTENCE_ERROR"
)

// Common errors.
var (
	// ErrNoData is returned when a query returns no results.
	ErrNoData = &Error{
		Code:    ErrCodeNoData,
		Message: "no data found",
	}

	// ErrProducerUnavailable is returned by the send path while the producer is not ready.
	ErrProducerUnavailable = &Error{
		Code:    ErrCodeProducerUnavailable,
		Message: "producer unavailable",
	}
)

// NewError creates a new Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithCause creates a new Error wrapping an underlying error.
func NewErrorWithCause(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     cause,
	}
}

// IsNoData checks if an error is ErrNoData.
func IsNoData(err error) bool {
	return hasCode(err, ErrCodeNoData)
}

// IsProducerUnavailable checks if an error means the producer was not ready.
func IsProducerUnavailable(err error) bool {
	return hasCode(err, ErrCodeProducerUnavailable)
}

// hasCode walks the chain, so a wrapped ErrNoData is still reported.
func hasCode(err error, code string) bool {
	var relayErr *Error
	for errors.As(err, &relayErr) {
		if relayErr.Code == code {
			return true
		}
		err = relayErr.Err
	}
	return false
}
