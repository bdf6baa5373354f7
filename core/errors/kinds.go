package errors

import stderrors "errors"

// Error kinds shared by every native module. Callers classify failures with
// errors.Is against these values.
var (
	ErrUnauthorized       = stderrors.New("unauthorized")
	ErrInvalidArgument    = stderrors.New("invalid argument")
	ErrPreconditionFailed = stderrors.New("precondition failed")
	ErrNotFound           = stderrors.New("not found")
	ErrProofRejected      = stderrors.New("proof rejected")
)

// Error is a module failure tagged with its kind.
type Error struct {
	Kind   error
	Module string
	Msg    string
}

// New builds a module error. Packages keep the result as a sentinel.
func New(kind error, module, msg string) *Error {
	return &Error{Kind: kind, Module: module, Msg: msg}
}

func (e *Error) Error() string {
	if e.Module == "" {
		return e.Msg
	}
	return e.Module + ": " + e.Msg
}

// Unwrap exposes the kind so errors.Is matches both the sentinel and its kind.
func (e *Error) Unwrap() error { return e.Kind }

// KindOf returns the kind carried by err, or nil for infrastructure errors.
func KindOf(err error) error {
	for _, kind := range []error{ErrUnauthorized, ErrInvalidArgument, ErrPreconditionFailed, ErrNotFound, ErrProofRejected} {
		if stderrors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
