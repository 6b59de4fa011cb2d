package api

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/cuitarget/internal/types"
)

// statusFor maps domain errors onto gRPC codes:
//
//	ErrConfiguration      -> INVALID_ARGUMENT
//	ErrNotFound           -> FAILED_PRECONDITION (nothing imported yet)
//	context cancellation  -> CANCELED / DEADLINE_EXCEEDED
//	anything else         -> UNAVAILABLE (store failures)
func statusFor(err error) error {
	switch {
	case errors.Is(err, types.ErrConfiguration):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, types.ErrNotFound):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}
