package models

import "errors"

// Business errors returned by the repositories and the lifecycle
// engine. All are caller-visible; check with errors.Is since they are
// usually wrapped with operation context.
var (
	// Entity errors.
	ErrNotFound            = errors.New("entity not found")
	ErrDuplicateID         = errors.New("id already exists")
	ErrDuplicateIdentifier = errors.New("identifier already registered")

	// Authorization errors.
	ErrUnauthorized         = errors.New("role not permitted to perform this action")
	ErrAuthenticationFailed = errors.New("authentication failed")

	// Lifecycle errors.
	ErrInvalidTransition = errors.New("status action not legal from current status")

	// Point-ledger errors.
	ErrInvalidAmount       = errors.New("amount must be a positive integer")
	ErrInsufficientBalance = errors.New("amount exceeds remaining balance")
	ErrNegativeBalance     = errors.New("balance cannot go below zero")
	ErrDuplicateInvestment = errors.New("investment attempt already applied")

	// Discussion errors.
	ErrEmptyContent = errors.New("reply content too short")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicate checks if the error is a uniqueness violation on create.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateID) || errors.Is(err, ErrDuplicateIdentifier)
}

// IsValidation checks if the error is a business-rule rejection that
// left all records unchanged.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrNegativeBalance) ||
		errors.Is(err, ErrEmptyContent)
}
