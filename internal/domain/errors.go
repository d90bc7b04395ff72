package domain

import "errors"

// Domain errors
var (
	// Validation errors
	ErrInvalidUnitID    = errors.New("invalid unit id")
	ErrInvalidBookingID = errors.New("invalid booking id")
	ErrInvalidDateKey   = errors.New("invalid date key")
	ErrInvalidTraceID   = errors.New("invalid mutation trace id")
	ErrInvalidPartySize = errors.New("party size must be greater than zero")

	// Not found errors
	ErrSettingsNotFound         = errors.New("seating settings not found")
	ErrFloorplanNotFound        = errors.New("floorplan not found")
	ErrBookingNotFound          = errors.New("booking not found")
	ErrCapacityDocumentNotFound = errors.New("capacity document not found")

	// Transaction errors
	ErrTransactionConflict = errors.New("transaction conflict, retry with the same trace id")
)

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidUnitID) ||
		errors.Is(err, ErrInvalidBookingID) ||
		errors.Is(err, ErrInvalidDateKey) ||
		errors.Is(err, ErrInvalidTraceID) ||
		errors.Is(err, ErrInvalidPartySize)
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrSettingsNotFound) ||
		errors.Is(err, ErrFloorplanNotFound) ||
		errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrCapacityDocumentNotFound)
}

// IsConflictError checks if the error is a transaction conflict the caller
// should retry with the same mutation trace id
func IsConflictError(err error) bool {
	return errors.Is(err, ErrTransactionConflict)
}
