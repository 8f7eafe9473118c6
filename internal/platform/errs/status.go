package errs

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorDomain is reported in ErrorInfo details.
const ErrorDomain = "tenancy.b2b"

// Reason returns the machine readable reason for a kind.
func Reason(kind error) string {
	switch kind {
	case ErrConflict:
		return "CONFLICT"
	case ErrForbidden:
		return "FORBIDDEN"
	case ErrNotFound:
		return "NOT_FOUND"
	case ErrInvalidState:
		return "INVALID_STATE"
	case ErrExpired:
		return "EXPIRED"
	case ErrInvariantViolation:
		return "INVARIANT_VIOLATION"
	case ErrNoTenantContext:
		return "NO_TENANT_CONTEXT"
	case ErrNotAMember:
		return "NOT_A_MEMBER"
	case ErrInvalidArgument:
		return "INVALID_ARGUMENT"
	}
	return "INTERNAL"
}

// Code maps a kind to a gRPC status code.
func Code(kind error) codes.Code {
	switch kind {
	case ErrConflict:
		return codes.AlreadyExists
	case ErrForbidden, ErrNotAMember:
		return codes.PermissionDenied
	case ErrNotFound:
		return codes.NotFound
	case ErrInvalidState, ErrExpired, ErrInvariantViolation:
		return codes.FailedPrecondition
	case ErrNoTenantContext, ErrInvalidArgument:
		return codes.InvalidArgument
	}
	return codes.Internal
}

// ToStatus converts err into a gRPC status error. Errors that already carry a
// status pass through; unknown errors become Internal without leaking the message.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}
	kind := KindOf(err)
	if kind == nil {
		return status.Error(codes.Internal, "internal error")
	}
	st := status.New(Code(kind), err.Error())
	withInfo, derr := st.WithDetails(&errdetails.ErrorInfo{
		Reason: Reason(kind),
		Domain: ErrorDomain,
	})
	if derr != nil {
		return st.Err()
	}
	return withInfo.Err()
}
