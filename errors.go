package adminkit

import (
	"errors"
	"fmt"
	"maps"
)

// Sentinel errors for adminkit operations.
var (
	// ErrPermissionDenied is returned when the resolver denies an action.
	// Callers are expected to hide the control instead of showing this error.
	ErrPermissionDenied = errors.New("adminkit: permission denied")

	// ErrPreconditionFailed is returned when a write needs primary keys that
	// the selection does not hold. No network I/O happens in that case.
	ErrPreconditionFailed = errors.New("adminkit: precondition failed")

	// ErrValidationFailed is returned when the server rejects a payload with
	// field level messages.
	ErrValidationFailed = errors.New("adminkit: validation failed")

	// ErrNetworkFailure is returned for transport or server errors without a
	// structured body.
	ErrNetworkFailure = errors.New("adminkit: network failure")

	// ErrNotFound is returned when a record no longer exists.
	ErrNotFound = errors.New("adminkit: not found")

	// ErrInvalidAction is returned when an action name is not one of the six known actions.
	ErrInvalidAction = errors.New("adminkit: invalid action")

	// ErrInvalidQuery is returned when a query state or its wire form is malformed.
	ErrInvalidQuery = errors.New("adminkit: invalid query")

	// ErrInvalidDescriptor is returned when an entity descriptor is incomplete.
	ErrInvalidDescriptor = errors.New("adminkit: invalid descriptor")

	// ErrMutationInFlight is returned when a second write is submitted for an
	// entity key while the first one is still pending.
	ErrMutationInFlight = errors.New("adminkit: mutation in flight")

	// ErrInvalidCapability is returned when a capability key is missing or duplicated.
	ErrInvalidCapability = errors.New("adminkit: invalid capability")

	// ErrDatabaseError is returned when a persistence operation fails.
	ErrDatabaseError = errors.New("adminkit: database error")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err        error             // Underlying sentinel error
	Message    string            // Additional context
	EntityKey  string            // Entity key involved (if applicable)
	Resource   string            // Resource involved (if applicable)
	Action     Action            // Action involved (if applicable)
	Scope      Scope             // Caller scope (if applicable)
	StatusCode int               // HTTP status returned by the remote API
	Fields     map[string]string // Field level messages for validation failures
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

// WithEntity adds the entity key to the error.
func (e *Error) WithEntity(entityKey string) *Error {
	e.EntityKey = entityKey
	return e
}

// WithResource adds resource and action information to the error.
func (e *Error) WithResource(resource string, action Action) *Error {
	e.Resource = resource
	e.Action = action
	return e
}

// WithScope adds the caller scope to the error.
func (e *Error) WithScope(scope Scope) *Error {
	e.Scope = scope
	return e
}

// WithStatus adds the remote HTTP status code to the error.
func (e *Error) WithStatus(code int) *Error {
	e.StatusCode = code
	return e
}

// WithFields attaches field level messages. The map is copied.
func (e *Error) WithFields(fields map[string]string) *Error {
	if len(fields) == 0 {
		return e
	}
	e.Fields = maps.Clone(fields)
	return e
}

// IsPermissionDenied checks if an error is a permission error.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsPreconditionFailed checks if an error is due to missing primary keys.
func IsPreconditionFailed(err error) bool {
	return errors.Is(err, ErrPreconditionFailed)
}

// IsValidationFailed checks if an error carries server validation messages.
func IsValidationFailed(err error) bool {
	return errors.Is(err, ErrValidationFailed)
}

// IsNetworkFailure checks if an error is a transport or unstructured server error.
func IsNetworkFailure(err error) bool {
	return errors.Is(err, ErrNetworkFailure)
}

// IsNotFound checks if an error means the record is gone.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// FieldErrors returns the field messages of a validation error, or nil.
func FieldErrors(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) && len(e.Fields) > 0 {
		return maps.Clone(e.Fields)
	}
	return nil
}

// KindOf returns a short machine readable name for the error kind.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case IsPermissionDenied(err):
		return "permission_denied"
	case IsPreconditionFailed(err):
		return "precondition_failed"
	case IsValidationFailed(err):
		return "validation_failed"
	case IsNotFound(err):
		return "not_found"
	case IsNetworkFailure(err):
		return "network_failure"
	case errors.Is(err, ErrMutationInFlight):
		return "mutation_in_flight"
	case errors.Is(err, ErrInvalidQuery):
		return "invalid_query"
	default:
		return "internal"
	}
}
