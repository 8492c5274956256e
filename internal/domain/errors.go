package domain

import (
	"errors"
	"fmt"
)

// Kind classifies an error by how it should be reported to the caller.
type Kind int

const (
	// KindInternal is a server-side fault. Details are logged, never returned.
	KindInternal Kind = iota
	// KindNotFound means a requested resource does not exist.
	KindNotFound
	// KindInvalid means the request conflicts with business rules.
	KindInvalid
	// KindForbidden means the caller lacks rights on the resource.
	KindForbidden
	// KindUnauthorized means the caller is not authenticated.
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalid:
		return "invalid"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error is a classified error with a message safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewError creates a classified error.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Invalid creates a KindInvalid error with a formatted message.
func Invalid(format string, args ...interface{}) *Error {
	return NewError(KindInvalid, fmt.Sprintf(format, args...))
}

var (
	ErrNoActivePlots             = NewError(KindNotFound, "no active plots found for the requested ids")
	ErrMultiFarmMismatch         = NewError(KindInvalid, "plots must belong to the same farm")
	ErrFarmNotFound              = NewError(KindNotFound, "farm not found")
	ErrFarmNotLinked             = NewError(KindForbidden, "user is not associated with the farm")
	ErrInsufficientPermission    = NewError(KindForbidden, "user lacks the required permission")
	ErrActiveStateMissing        = NewError(KindInternal, "transaction state 'Activo' is not configured")
	ErrInactiveStateMissing      = NewError(KindInternal, "transaction state 'Inactivo' is not configured")
	ErrTransactionNotFound       = NewError(KindNotFound, "transaction not found")
	ErrTransactionInactive       = NewError(KindForbidden, "inactive transactions cannot be modified")
	ErrTransactionAlreadyDeleted = NewError(KindInvalid, "transaction is already deleted")
	ErrCategoryNotFound          = NewError(KindInvalid, "transaction category not found")
	ErrTypeNotFound              = NewError(KindInvalid, "transaction category has no transaction type")
	ErrNonPositiveValue          = NewError(KindInvalid, "value must be greater than zero")
	ErrPlotNotFound              = NewError(KindNotFound, "plot not found or inactive")
	ErrInvalidSession            = NewError(KindUnauthorized, "session expired, logging out")
)

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// PublicMessage returns the message that may be shown to clients for err.
func PublicMessage(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Kind != KindInternal {
		return de.Message
	}
	return "internal server error"
}
