package grpc

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/api/authv1"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const principalKey ctxKey = "principal"

const requestIDHeaderName = "x-request-id"

// protectedMethods require a valid access token.
var protectedMethods = map[string]bool{
	authv1.AuthService_Me_FullMethodName:        true,
	authv1.AuthService_LogoutAll_FullMethodName: true,
}

// PrincipalFromContext returns the caller resolved by the access token
// interceptor.
func PrincipalFromContext(ctx context.Context) (*services.Principal, bool) {
	p, ok := ctx.Value(principalKey).(*services.Principal)
	return p, ok && p != nil
}

// requestInterceptor tags the context with a request id and logs the outcome
// of every call.
func (s *GRPCServer) requestInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	id := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(requestIDHeaderName); len(v) > 0 {
			id = v[0]
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	ctx = logging.ContextWithRequestID(ctx, id)

	start := time.Now()
	resp, err := handler(ctx, req)
	s.logger.Debug(ctx, "rpc finished",
		"method", info.FullMethod,
		"code", status.Code(err).String(),
		"duration", time.Since(start))
	return resp, err
}

func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !protectedMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		accessToken = tokenFromMetadata(md)
	}
	if accessToken == "" {
		return nil, toStatus(common.ErrAccessTokenMissing)
	}

	p, err := s.auth.Authenticate(ctx, accessToken)
	if err != nil {
		s.logger.Info(ctx, "access denied", "method", info.FullMethod, "reason", common.CodeOf(err))
		return nil, toStatus(err)
	}

	ctx = context.WithValue(ctx, principalKey, p)
	return handler(ctx, req)
}

// tokenFromMetadata reads "authorization: Bearer <token>", falling back to
// the access_token key.
func tokenFromMetadata(md metadata.MD) string {
	if v := md.Get(common.AuthorizationHeaderName); len(v) > 0 {
		h := strings.TrimSpace(v[0])
		if len(h) > len(common.BearerPrefix) && strings.EqualFold(h[:len(common.BearerPrefix)], common.BearerPrefix) {
			return strings.TrimSpace(h[len(common.BearerPrefix):])
		}
		return ""
	}
	if v := md.Get(common.AccessTokenHeaderName); len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}
