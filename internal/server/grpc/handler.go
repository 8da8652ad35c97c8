package grpc

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/api/authv1"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"google.golang.org/protobuf/types/known/emptypb"
)

func (s *GRPCServer) Login(ctx context.Context, req *authv1.LoginRequest) (*authv1.LoginResponse, error) {
	res, err := s.auth.Login(ctx, req.Identifier, req.Password)
	if err != nil {
		return nil, toStatus(err)
	}

	return &authv1.LoginResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresIn:    int64(res.ExpiresIn.Seconds()),
		User: &authv1.UserProfile{
			ID:         res.User.ID,
			Identifier: res.User.Identifier,
			FullName:   res.User.FullName,
			Role:       res.User.Role,
		},
	}, nil
}

func (s *GRPCServer) Refresh(ctx context.Context, req *authv1.RefreshRequest) (*authv1.RefreshResponse, error) {
	res, err := s.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, toStatus(err)
	}
	return &authv1.RefreshResponse{AccessToken: res.AccessToken, ExpiresIn: int64(res.ExpiresIn.Seconds())}, nil
}

func (s *GRPCServer) Logout(ctx context.Context, req *authv1.LogoutRequest) (*emptypb.Empty, error) {
	if err := s.auth.Logout(ctx, req.RefreshToken); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) LogoutAll(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, toStatus(common.ErrAccessTokenMissing)
	}
	if err := s.auth.LogoutAll(ctx, p.UserID); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) Me(ctx context.Context, _ *emptypb.Empty) (*authv1.MeResponse, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, toStatus(common.ErrAccessTokenMissing)
	}
	return &authv1.MeResponse{
		UserID:      p.UserID,
		Identifier:  p.Identifier,
		Role:        p.Role,
		Authorities: p.Authorities,
		ExpiresIn:   int64(p.ExpiresIn.Seconds()),
	}, nil
}

func (s *GRPCServer) ConfirmRegistration(ctx context.Context, req *authv1.ConfirmRegistrationRequest) (*emptypb.Empty, error) {
	if err := s.verification.Confirm(ctx, req.Token, req.Identifier); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *GRPCServer) ResendVerification(ctx context.Context, req *authv1.ResendVerificationRequest) (*authv1.ResendVerificationResponse, error) {
	expiresAt, err := s.verification.Resend(ctx, req.Identifier)
	if err != nil {
		return nil, toStatus(err)
	}
	return &authv1.ResendVerificationResponse{ExpiresAt: expiresAt}, nil
}
