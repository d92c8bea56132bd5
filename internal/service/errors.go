package service

import "errors"

// Common service errors
var (
	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when the request conflicts with the current state
	ErrConflict = errors.New("resource conflict")

	// ErrPermissionDenied is returned when a user doesn't have permission for an action
	ErrPermissionDenied = errors.New("permission denied")
)

// Domain errors. Each wraps one of the common errors so handlers can map them
// to a status code with errors.Is.
var (
	ErrClientNotFound        = wrap(ErrNotFound, "client not found")
	ErrClientHasDevelopments = wrap(ErrConflict, "client still has developments")

	ErrDevelopmentNotFound     = wrap(ErrNotFound, "development not found")
	ErrDevelopmentClosed       = wrap(ErrConflict, "development is cancelled or completed")
	ErrInvalidStatusTransition = wrap(ErrConflict, "invalid development status transition")
	ErrInvestorTermsRequired   = wrap(ErrInvalidInput, "investor amount must be positive when the development has an investor")
	ErrDurationBelowCollected  = wrap(ErrConflict, "duration does not cover the periods already collected or ordered")

	ErrPaymentNotFound    = wrap(ErrNotFound, "payment not found")
	ErrPaymentAlreadyPaid = wrap(ErrConflict, "payment is already paid")
	ErrPaymentNotPending  = wrap(ErrConflict, "payment is not pending")
	ErrPaymentNotPaid     = wrap(ErrConflict, "payment has not been collected")

	ErrLoanNotFound = wrap(ErrNotFound, "investor loan not found")

	ErrOrderNotFound          = wrap(ErrNotFound, "order not found")
	ErrInvalidOrderTransition = wrap(ErrConflict, "invalid order status transition")

	ErrLeadNotFound          = wrap(ErrNotFound, "lead not found")
	ErrInvalidLeadTransition = wrap(ErrConflict, "invalid lead status transition")
	ErrLeadNotAccepted       = wrap(ErrConflict, "only accepted leads can be converted")

	ErrDataWarehouseDisabled = errors.New("data warehouse is not configured")
	ErrStorageDisabled       = errors.New("document storage is not configured")
)

type wrappedError struct {
	parent error
	msg    string
}

func (e *wrappedError) Error() string { return e.msg }
func (e *wrappedError) Unwrap() error { return e.parent }

func wrap(parent error, msg string) error {
	return &wrappedError{parent: parent, msg: msg}
}
