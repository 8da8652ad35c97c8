package grpc

import (
	"errors"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const errorDomain = "gophauth"

var classCodes = map[common.Class]codes.Code{
	common.ClassUnauthenticated: codes.Unauthenticated,
	common.ClassForbidden:       codes.PermissionDenied,
	common.ClassNotFound:        codes.NotFound,
	common.ClassConflict:        codes.AlreadyExists,
	common.ClassInvalid:         codes.InvalidArgument,
	common.ClassUnavailable:     codes.Unavailable,
}

// toStatus converts a service error into a gRPC status. The business code
// travels as ErrorInfo.Reason; internal causes never leave the process.
func toStatus(err error) error {
	if err == nil {
		return nil
	}

	var be *common.Error
	if !errors.As(common.Unavailable(err), &be) {
		return status.Error(codes.Internal, "internal error")
	}

	st := status.New(classCodes[be.Code.Class()], be.Message)
	if detailed, derr := st.WithDetails(&errdetails.ErrorInfo{Reason: string(be.Code), Domain: errorDomain}); derr == nil {
		st = detailed
	}
	return st.Err()
}
