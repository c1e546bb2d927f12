// Package domain contains the core business entities and interfaces for the
// payment gateway. This is the innermost layer - it has no dependencies on
// external frameworks or infrastructure.
package domain

import "errors"

// Domain errors represent business rule violations.
// These are used to communicate specific error conditions from the domain layer.
var (
	// ErrPreconditionViolation is returned when an operation is invoked
	// against a Payment or PaymentMethod in the wrong state. It indicates a
	// caller bug and is never retried.
	ErrPreconditionViolation = errors.New("operation precondition violated")

	// ErrGatewayDeclined is returned when the processor rejects or fails an
	// operation. Local state is left unchanged, so retrying is safe.
	ErrGatewayDeclined = errors.New("payment gateway declined")

	// ErrBatchSettled is the processor telling us a void is impossible
	// because the batch already settled. It is never surfaced directly; the
	// orchestrator falls back to a refund instead.
	ErrBatchSettled = errors.New("transaction batch already settled")

	// ErrTokenization is returned when the secure-frame handshake reports
	// an error payload instead of a token.
	ErrTokenization = errors.New("card tokenization failed")

	// ErrMalformedToken is returned when a stored remote identifier cannot
	// be decoded into a token envelope.
	ErrMalformedToken = errors.New("malformed token envelope")

	// ErrPersistence is returned when a local save fails after a successful
	// remote mutation. Remote and local state have diverged; this must be
	// surfaced, never swallowed.
	ErrPersistence = errors.New("persistence failed after remote operation")

	// ErrValidation is returned for credential/environment mismatches.
	ErrValidation = errors.New("configuration validation failed")

	// ErrRefundExceedsAmount is returned when a refund would push the
	// refunded total past the original payment amount.
	ErrRefundExceedsAmount = errors.New("refund exceeds payment amount")

	// ErrNotFound is returned by stores for unknown entity IDs.
	ErrNotFound = errors.New("entity not found")
)

// PaymentError wraps a domain error with additional context.
type PaymentError struct {
	Err     error
	Message string
	Code    string
}

// Error implements the error interface.
func (e *PaymentError) Error() string {
	if e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// Unwrap allows errors.Is and errors.As to work with PaymentError.
func (e *PaymentError) Unwrap() error {
	return e.Err
}

// NewPaymentError creates a new PaymentError with the given error and message.
func NewPaymentError(err error, message, code string) *PaymentError {
	return &PaymentError{
		Err:     err,
		Message: message,
		Code:    code,
	}
}
