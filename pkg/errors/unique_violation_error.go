package custom_error

import "fmt"

// UniqueViolationError and ForeignKeyViolationError carry PostgreSQL constraint failures.
// Both classify as conflicts and match ErrConflict.
type UniqueViolationError struct {
	message string
	code    string
}

type ForeignKeyViolationError struct {
	message string
	code    string
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("%s (code: %s)", e.message, e.code)
}

func (e *UniqueViolationError) Is(target error) bool {
	return target == ErrConflict
}

func (e *ForeignKeyViolationError) Error() string {
	return fmt.Sprintf("%s (code: %s)", e.message, e.code)
}

func (e *ForeignKeyViolationError) Is(target error) bool {
	return target == ErrConflict
}

// WrapDBError turns a pq error code into the matching error type.
func WrapDBError(message, code string) error {
	switch code {
	case "23505":
		return &UniqueViolationError{message: message, code: code}
	case "23503":
		return &ForeignKeyViolationError{message: "still referenced: " + message, code: code}
	case "23514":
		return Invariant("%s", message)
	default:
		return fmt.Errorf("uncategorized error occurred with code %s: %s", code, message)
	}
}
