package permkit

import (
	"errors"
	"fmt"
)

// Sentinel errors for permkit operations.
var (
	// ErrInvalidDefinition is returned when a role or action definition is
	// ill-formed, e.g. a blank id.
	ErrInvalidDefinition = errors.New("permkit: invalid definition")

	// ErrInvalidReference is returned when a permission operation is invoked
	// without a resource reference.
	ErrInvalidReference = errors.New("permkit: invalid resource reference")

	// ErrCatalogUnavailable is returned when the catalog store cannot be read
	// or written. No partial catalog is ever assembled.
	ErrCatalogUnavailable = errors.New("permkit: catalog unavailable")

	// ErrMissingManager is returned when a change-set application would leave
	// a root resource without a single manager assignment.
	ErrMissingManager = errors.New("permkit: missing manager on root level")

	// ErrDatabaseError is returned when a store operation fails.
	ErrDatabaseError = errors.New("permkit: database error")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err       error  // Underlying sentinel error
	Message   string // Additional context
	Role      string // Role involved (if applicable)
	Action    string // Action involved (if applicable)
	Authority string // Authority involved (if applicable)
	Target    string // Resource involved (if applicable)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithRole adds role information to the error.
func (e *Error) WithRole(role string) *Error {
	e.Role = role
	return e
}

// WithAction adds action information to the error.
func (e *Error) WithAction(action string) *Error {
	e.Action = action
	return e
}

// WithAuthority adds authority information to the error.
func (e *Error) WithAuthority(authority string) *Error {
	e.Authority = authority
	return e
}

// WithTarget adds resource information to the error.
func (e *Error) WithTarget(target string) *Error {
	e.Target = target
	return e
}

// IsInvalidDefinition checks if an error is due to an ill-formed definition.
func IsInvalidDefinition(err error) bool {
	return errors.Is(err, ErrInvalidDefinition)
}

// IsCatalogUnavailable checks if an error is due to an unreachable catalog store.
func IsCatalogUnavailable(err error) bool {
	return errors.Is(err, ErrCatalogUnavailable)
}

// IsMissingManager checks if an error is due to the root-manager guard.
func IsMissingManager(err error) bool {
	return errors.Is(err, ErrMissingManager)
}
