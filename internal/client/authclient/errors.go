package authclient

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrUnavailable = errors.New("server unavailable")
	ErrNotLoggedIn = errors.New("not logged in")
)

// reasonOf returns the business code the server attached to err, if any.
func reasonOf(err error) (common.Code, bool) {
	st, ok := status.FromError(err)
	if !ok {
		return "", false
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.Reason != "" {
			return common.Code(info.Reason), true
		}
	}
	return "", false
}

// mapError turns a gRPC status back into a *common.Error so callers can use
// errors.Is against the shared sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if code, ok := reasonOf(err); ok {
		return &common.Error{Code: code, Message: status.Convert(err).Message()}
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		return ErrUnavailable
	default:
		return fmt.Errorf("rpc error: %w", err)
	}
}
