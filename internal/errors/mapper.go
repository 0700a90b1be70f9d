// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/oggyb/meetbot/internal/lock"
	"github.com/oggyb/meetbot/internal/repository"
	"github.com/oggyb/meetbot/internal/utils/pagination"
)

// Domain errors raised by the service layer.
var (
	ErrNotEligible = errors.New("user is not eligible")
	ErrSelf        = errors.New("operation targets the caller")
	ErrBadProfile  = errors.New("invalid profile")
)

// Map converts repo/infra errors into gRPC-friendly status errors.
// Keeps service layer clean by centralizing error mapping.
func Map(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return status.Error(codes.NotFound, "record not found")

	case errors.Is(err, repository.ErrConflict):
		return status.Error(codes.Aborted, "concurrent update, retry")

	case errors.Is(err, lock.ErrNotAcquired):
		return status.Error(codes.Unavailable, "resource busy, retry")

	case errors.Is(err, ErrNotEligible):
		return status.Error(codes.FailedPrecondition, err.Error())

	case errors.Is(err, ErrSelf), errors.Is(err, ErrBadProfile), errors.Is(err, pagination.ErrInvalidToken):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, repository.ErrLimitReached):
		return status.Error(codes.ResourceExhausted, err.Error())

	case errors.Is(err, repository.ErrDuplicate):
		return status.Error(codes.AlreadyExists, err.Error())

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled")

	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// InvalidArgument creates a gRPC InvalidArgument error.
// Use this in service layer for bad input validation.
func InvalidArgument(msg string) error {
	return status.Error(codes.InvalidArgument, msg)
}

// AlreadyExists creates a gRPC AlreadyExists error.
func AlreadyExists(msg string) error {
	return status.Error(codes.AlreadyExists, msg)
}
