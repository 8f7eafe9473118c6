// Package errs defines the error kinds shared by the ledgers and the resolver.
// Callers match kinds with errors.Is; messages carry the context.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrConflict           = errors.New("conflict")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrInvalidState       = errors.New("invalid state")
	ErrExpired            = errors.New("expired")
	ErrInvariantViolation = errors.New("invariant violation")
	ErrNoTenantContext    = errors.New("no tenant context")
	ErrNotAMember         = errors.New("not a member")
	ErrInvalidArgument    = errors.New("invalid argument")
)

var kinds = []error{
	ErrConflict,
	ErrForbidden,
	ErrNotFound,
	ErrInvalidState,
	ErrExpired,
	ErrInvariantViolation,
	ErrNoTenantContext,
	ErrNotAMember,
	ErrInvalidArgument,
}

// Error is a kind plus a human readable message.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Kind }

// New returns an error of the given kind.
func New(kind error, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf is New with formatting.
func Newf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind sentinel err matches, or nil when err is not one of ours.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
