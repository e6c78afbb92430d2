package domain

import "errors"

// Registry errors
var (
	ErrNotInitialized       = errors.New("registry store not initialized")
	ErrUserNotFound         = errors.New("user not found")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrMembershipNotFound   = errors.New("membership not found")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrConstraintViolation  = errors.New("constraint violation")
	ErrTransactionFailed    = errors.New("transaction rolled back")
)

// Tenant store errors
var (
	ErrStoreNotFound = errors.New("tenant store not found")
	ErrStoreIO       = errors.New("tenant store I/O failure")
	ErrTimeout       = errors.New("operation timed out")
)
