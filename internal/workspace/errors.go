package workspace

import "errors"

// Failure kinds. Every error returned by FS wraps exactly one of these.
var (
	ErrContainment = errors.New("containment violation")
	ErrReadOnly    = errors.New("read-only violation")
	ErrNotFound    = errors.New("not found")
	ErrArgument    = errors.New("invalid argument")
	ErrIO          = errors.New("i/o failure")
)

// ActionError is a declared action failure. Its message is the observation
// shown to the caller.
type ActionError struct {
	Kind  error
	Msg   string
	Cause error
}

func (e *ActionError) Error() string {
	return e.Msg
}

func (e *ActionError) Unwrap() error {
	return e.Kind
}

// NewError creates an ActionError of the given kind.
func NewError(kind error, msg string, cause error) *ActionError {
	return &ActionError{Kind: kind, Msg: msg, Cause: cause}
}

// IsViolation reports whether err is a containment or read-only violation.
func IsViolation(err error) bool {
	return errors.Is(err, ErrContainment) || errors.Is(err, ErrReadOnly)
}
