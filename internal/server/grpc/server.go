// Package grpc exposes the authentication services over gRPC.
package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/api/authv1"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Authenticator is the part of services.AuthService the transport uses.
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.RefreshResult, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID string) error
	Authenticate(ctx context.Context, token string) (*services.Principal, error)
}

// Verifier is the part of services.VerificationService the transport uses.
type Verifier interface {
	Confirm(ctx context.Context, token, identifier string) error
	Resend(ctx context.Context, identifier string) (time.Time, error)
}

type GRPCServer struct {
	authv1.UnimplementedAuthServiceServer
	address      string
	auth         Authenticator
	verification Verifier
	logger       logging.Logger
	health       *health.Server
}

func NewGRPCServer(a string, l logging.Logger, as Authenticator, vs Verifier) *GRPCServer {
	return &GRPCServer{
		address:      a,
		logger:       l.With("module", "grpc_server"),
		auth:         as,
		verification: vs,
		health:       health.NewServer(),
	}
}

func (s *GRPCServer) newServer() *grpc.Server {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.requestInterceptor, s.accessTokenInterceptor))
	authv1.RegisterAuthServiceServer(srv, s)
	healthpb.RegisterHealthServer(srv, s.health)
	return srv
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.newServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.health.Shutdown()
		srv.GracefulStop()
	}()

	s.health.SetServingStatus(authv1.ServiceName, healthpb.HealthCheckResponse_SERVING)
	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}
	return nil
}
