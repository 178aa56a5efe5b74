package grpc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/coopahorro/dap/internal/domain/apperror"
	"github.com/coopahorro/dap/internal/domain/valueobject"
)

func TestToStatus(t *testing.T) {
	client := valueobject.Actor{UserID: uuid.New(), Role: valueobject.RoleClient}

	tests := []struct {
		name string
		err  error
		code codes.Code
		msg  string
	}{
		{"validation", apperror.ErrInvalidInput.With("amount must be positive"), codes.InvalidArgument, "amount must be positive"},
		{"not found", apperror.ErrDepositNotFound, codes.NotFound, "deposit not found"},
		{"duplicate upload", apperror.ErrAlreadyUploaded, codes.AlreadyExists, ""},
		{"invalid transition", apperror.ErrInvalidTransition, codes.FailedPrecondition, ""},
		{"renewal disabled", apperror.ErrRenewalDisabled, codes.FailedPrecondition, ""},
		{"stale version", fmt.Errorf("saving: %w", apperror.ErrStaleVersion), codes.Aborted, ""},
		{"forbidden", apperror.ErrForbidden, codes.PermissionDenied, ""},
		{"missing tier", apperror.ErrNoTierForTerm.With("no tier for 400 days"), codes.Internal, msgTierConfigMissing},
		{"too large", apperror.ErrPayloadTooLarge, codes.ResourceExhausted, ""},
		{"wrong format", apperror.ErrInvalidFormat, codes.InvalidArgument, ""},
		{"deadline", fmt.Errorf("blob put: %w", context.DeadlineExceeded), codes.DeadlineExceeded, msgRequestTimedOut},
		{"unclassified", errors.New("pq: connection refused"), codes.Internal, msgInternal},
		{"already a status", status.Error(codes.Unauthenticated, "nope"), codes.Unauthenticated, "nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := toStatus(context.Background(), testLogger(), client, tt.err)
			st := status.Convert(err)
			assert.Equal(t, tt.code, st.Code())
			if tt.msg != "" {
				assert.Equal(t, tt.msg, st.Message())
			}
		})
	}
}

func TestToStatus_DetailOnlyForStaff(t *testing.T) {
	err := apperror.ErrInternalIDAlreadyUsed.WithDetail("bound to deposit d-42")

	clientErr := toStatus(context.Background(), testLogger(), valueobject.Actor{UserID: uuid.New(), Role: valueobject.RoleClient}, err)
	assert.NotContains(t, status.Convert(clientErr).Message(), "d-42")

	staffErr := toStatus(context.Background(), testLogger(), valueobject.Actor{UserID: uuid.New(), Role: valueobject.RoleStaff}, err)
	assert.Contains(t, status.Convert(staffErr).Message(), "d-42")
}

func TestToStatus_Nil(t *testing.T) {
	assert.NoError(t, toStatus(context.Background(), testLogger(), valueobject.Actor{}, nil))
}
