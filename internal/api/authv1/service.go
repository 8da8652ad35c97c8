package authv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
)

const ServiceName = "gophauth.v1.AuthService"

const (
	AuthService_Login_FullMethodName               = "/gophauth.v1.AuthService/Login"
	AuthService_Refresh_FullMethodName             = "/gophauth.v1.AuthService/Refresh"
	AuthService_Logout_FullMethodName              = "/gophauth.v1.AuthService/Logout"
	AuthService_LogoutAll_FullMethodName           = "/gophauth.v1.AuthService/LogoutAll"
	AuthService_Me_FullMethodName                  = "/gophauth.v1.AuthService/Me"
	AuthService_ConfirmRegistration_FullMethodName = "/gophauth.v1.AuthService/ConfirmRegistration"
	AuthService_ResendVerification_FullMethodName  = "/gophauth.v1.AuthService/ResendVerification"
)

// AuthServiceServer is the server API for AuthService.
type AuthServiceServer interface {
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Refresh(context.Context, *RefreshRequest) (*RefreshResponse, error)
	Logout(context.Context, *LogoutRequest) (*emptypb.Empty, error)
	LogoutAll(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	Me(context.Context, *emptypb.Empty) (*MeResponse, error)
	ConfirmRegistration(context.Context, *ConfirmRegistrationRequest) (*emptypb.Empty, error)
	ResendVerification(context.Context, *ResendVerificationRequest) (*ResendVerificationResponse, error)
}

// UnimplementedAuthServiceServer can be embedded to have forward compatible implementations.
type UnimplementedAuthServiceServer struct{}

func (UnimplementedAuthServiceServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Login not implemented")
}
func (UnimplementedAuthServiceServer) Refresh(context.Context, *RefreshRequest) (*RefreshResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Refresh not implemented")
}
func (UnimplementedAuthServiceServer) Logout(context.Context, *LogoutRequest) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Logout not implemented")
}
func (UnimplementedAuthServiceServer) LogoutAll(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method LogoutAll not implemented")
}
func (UnimplementedAuthServiceServer) Me(context.Context, *emptypb.Empty) (*MeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Me not implemented")
}
func (UnimplementedAuthServiceServer) ConfirmRegistration(context.Context, *ConfirmRegistrationRequest) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method ConfirmRegistration not implemented")
}
func (UnimplementedAuthServiceServer) ResendVerification(context.Context, *ResendVerificationRequest) (*ResendVerificationResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ResendVerification not implemented")
}

func RegisterAuthServiceServer(s grpc.ServiceRegistrar, srv AuthServiceServer) {
	s.RegisterService(&AuthService_ServiceDesc, srv)
}

// unary adapts a typed server method to a grpc.MethodHandler.
func unary[Req any, Resp any](fullMethod string, call func(AuthServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(AuthServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(AuthServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// AuthService_ServiceDesc is the grpc.ServiceDesc for AuthService.
var AuthService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*AuthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Login", Handler: unary(AuthService_Login_FullMethodName, AuthServiceServer.Login)},
		{MethodName: "Refresh", Handler: unary(AuthService_Refresh_FullMethodName, AuthServiceServer.Refresh)},
		{MethodName: "Logout", Handler: unary(AuthService_Logout_FullMethodName, AuthServiceServer.Logout)},
		{MethodName: "LogoutAll", Handler: unary(AuthService_LogoutAll_FullMethodName, AuthServiceServer.LogoutAll)},
		{MethodName: "Me", Handler: unary(AuthService_Me_FullMethodName, AuthServiceServer.Me)},
		{MethodName: "ConfirmRegistration", Handler: unary(AuthService_ConfirmRegistration_FullMethodName, AuthServiceServer.ConfirmRegistration)},
		{MethodName: "ResendVerification", Handler: unary(AuthService_ResendVerification_FullMethodName, AuthServiceServer.ResendVerification)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gophauth/v1/auth.proto",
}

// AuthServiceClient is the client API for AuthService.
type AuthServiceClient interface {
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*RefreshResponse, error)
	Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
	LogoutAll(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Me(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*MeResponse, error)
	ConfirmRegistration(ctx context.Context, in *ConfirmRegistrationRequest, opts ...grpc.CallOption) (*emptypb.Empty, error)
	ResendVerification(ctx context.Context, in *ResendVerificationRequest, opts ...grpc.CallOption) (*ResendVerificationResponse, error)
}

type authServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewAuthServiceClient returns a client whose calls are encoded with Codec.
func NewAuthServiceClient(cc grpc.ClientConnInterface) AuthServiceClient {
	return &authServiceClient{cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *authServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, AuthService_Login_FullMethodName, in, opts)
}

func (c *authServiceClient) Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*RefreshResponse, error) {
	return invoke[RefreshResponse](ctx, c.cc, AuthService_Refresh_FullMethodName, in, opts)
}

func (c *authServiceClient) Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, AuthService_Logout_FullMethodName, in, opts)
}

func (c *authServiceClient) LogoutAll(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, AuthService_LogoutAll_FullMethodName, in, opts)
}

func (c *authServiceClient) Me(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*MeResponse, error) {
	return invoke[MeResponse](ctx, c.cc, AuthService_Me_FullMethodName, in, opts)
}

func (c *authServiceClient) ConfirmRegistration(ctx context.Context, in *ConfirmRegistrationRequest, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, AuthService_ConfirmRegistration_FullMethodName, in, opts)
}

func (c *authServiceClient) ResendVerification(ctx context.Context, in *ResendVerificationRequest, opts ...grpc.CallOption) (*ResendVerificationResponse, error) {
	return invoke[ResendVerificationResponse](ctx, c.cc, AuthService_ResendVerification_FullMethodName, in, opts)
}
