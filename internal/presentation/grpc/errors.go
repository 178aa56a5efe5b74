package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/valueobject"
)

const (
	msgInternal          = "internal error"
	msgTierConfigMissing = "interest configuration unavailable"
	msgRequestTimedOut   = "request timed out"
	msgRequestCanceled   = "request canceled"
)

// toStatus translates a use-case error into a gRPC status. Privileged detail
// is only disclosed to staff.
func toStatus(ctx context.Context, logger *slog.Logger, actor valueobject.Actor, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok && !isAppError(err) {
		return err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, msgRequestTimedOut)
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, msgRequestCanceled)
	}

	appErr, ok := apperror.As(err)
	if !ok {
		logger.ErrorContext(ctx, "unclassified error", "error", err)
		return status.Error(codes.Internal, msgInternal)
	}

	msg := appErr.Message
	if appErr.Detail != "" && actor.IsStaff() {
		msg += ": " + appErr.Detail
	}

	switch appErr.Kind {
	case apperror.KindValidation:
		return status.Error(codes.InvalidArgument, msg)
	case apperror.KindNotFound:
		return status.Error(codes.NotFound, msg)
	case apperror.KindConflict:
		switch {
		case errors.Is(appErr, apperror.ErrInvalidTransition), errors.Is(appErr, apperror.ErrRenewalDisabled):
			return status.Error(codes.FailedPrecondition, msg)
		case errors.Is(appErr, apperror.ErrStaleVersion):
			return status.Error(codes.Aborted, msg)
		}
		return status.Error(codes.AlreadyExists, msg)
	case apperror.KindAuthorization:
		return status.Error(codes.PermissionDenied, msg)
	case apperror.KindConfiguration:
		return status.Error(codes.Internal, msgTierConfigMissing)
	case apperror.KindPayload:
		if errors.Is(appErr, apperror.ErrPayloadTooLarge) {
			return status.Error(codes.ResourceExhausted, msg)
		}
		return status.Error(codes.InvalidArgument, msg)
	default:
		logger.ErrorContext(ctx, "internal error", "error", err)
		return status.Error(codes.Internal, msgInternal)
	}
}

func isAppError(err error) bool {
	_, ok := apperror.As(err)
	return ok
}
