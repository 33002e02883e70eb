package grpc

import (
	"context"
	"errors"
	"strconv"

	"github.com/dmitrijs2005/aliasvault/internal/api"
	"github.com/dmitrijs2005/aliasvault/internal/common"
	"github.com/go-playground/validator/v10"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func invalidArgument(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return status.Errorf(codes.InvalidArgument, "invalid field %s", verrs[0].Field())
	}
	return status.Error(codes.InvalidArgument, "invalid request")
}

// toStatus maps service errors to gRPC status codes. Unexpected errors are
// logged and reported as Internal without details.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrSessionExpired):
		return status.Error(codes.Unauthenticated, "login session expired, please start over")
	case errors.Is(err, common.ErrAuthenticationFailed):
		return status.Error(codes.Unauthenticated, "invalid username or password")
	case errors.Is(err, common.ErrTwoFactorInvalid):
		return status.Error(codes.Unauthenticated, "invalid authentication code")
	case errors.Is(err, common.ErrRefreshTokenExpired),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, common.ErrAccountLocked),
		errors.Is(err, common.ErrAccountBlocked),
		errors.Is(err, common.ErrRegistrationDisabled):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, common.ErrVaultConflict):
		return conflictStatus(err)
	case errors.Is(err, common.ErrUsernameTaken):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrVaultOutdated):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, common.ErrUsernameInvalid),
		errors.Is(err, common.ErrInvalidRequest),
		errors.Is(err, common.ErrTwoFactorNotEnabled),
		errors.Is(err, common.ErrCrypto):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}

func conflictStatus(err error) error {
	st := status.New(codes.Aborted, err.Error())
	var conflict *common.ConflictError
	if !errors.As(err, &conflict) {
		return st.Err()
	}
	detailed, derr := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   api.GRPCReasonVaultConflict,
		Domain:   "aliasvault",
		Metadata: map[string]string{api.GRPCLatestRevisionKey: strconv.FormatInt(conflict.LatestRevision, 10)},
	})
	if derr != nil {
		return st.Err()
	}
	return detailed.Err()
}
