package custom_error

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindForbidden
	KindInvariant
	KindNotFound
	KindConflict
)

// DomainError is a classified failure of an inventory operation. Its message is safe to
// show to the operator.
type DomainError struct {
	Kind    Kind
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError of the same kind, so errors.Is(err, ErrNotFound) works for
// errors built with NotFound(...).
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Kind == e.Kind && t.Message == ""
}

var (
	ErrForbidden = &DomainError{Kind: KindForbidden}
	ErrInvariant = &DomainError{Kind: KindInvariant}
	ErrNotFound  = &DomainError{Kind: KindNotFound}
	ErrConflict  = &DomainError{Kind: KindConflict}
)

func Forbidden(format string, args ...any) error {
	return &DomainError{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func Invariant(format string, args ...any) error {
	return &DomainError{Kind: KindInvariant, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &DomainError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &DomainError{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Classify maps any error returned by a service to its taxonomy kind.
func Classify(err error) Kind {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	var uniqueErr *UniqueViolationError
	if errors.As(err, &uniqueErr) {
		return KindConflict
	}
	var fkErr *ForeignKeyViolationError
	if errors.As(err, &fkErr) {
		return KindConflict
	}
	return KindInternal
}

func HTTPStatus(err error) int {
	switch Classify(err) {
	case KindForbidden:
		return http.StatusForbidden
	case KindInvariant:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage hides infrastructure details behind a generic message.
func PublicMessage(err error) string {
	switch Classify(err) {
	case KindInternal:
		return "Internal error, operation was not performed"
	case KindConflict:
		var domainErr *DomainError
		if errors.As(err, &domainErr) {
			return domainErr.Message
		}
		var uniqueErr *UniqueViolationError
		if errors.As(err, &uniqueErr) {
			return uniqueErr.message
		}
		return "Operation conflicts with existing data"
	default:
		return err.Error()
	}
}
