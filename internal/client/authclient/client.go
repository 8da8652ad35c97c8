// Package authclient is a gRPC client for the auth service. It keeps the
// current token pair, attaches the access token to every call and refreshes
// it once when the server reports it expired.
package authclient

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/api/authv1"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
)

type Client struct {
	conn *grpc.ClientConn
	api  authv1.AuthServiceClient

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	expiresAt    time.Time
}

// New dials endpoint. Extra options are appended after the defaults, so
// tests can swap the dialer.
func New(endpoint string, opts ...grpc.DialOption) (*Client, error) {
	c := &Client{}
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpoint, dialOpts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.api = authv1.NewAuthServiceClient(conn)
	return c, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func withBearer(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *Client) tokens() (access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

func (c *Client) setAccess(token string, expiresIn int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
	c.expiresAt = time.Now().Add(time.Duration(expiresIn) * time.Second)
}

func (c *Client) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	access, refresh := c.tokens()
	if access == "" || method == authv1.AuthService_Refresh_FullMethodName {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	err := invoker(withBearer(ctx, access), method, req, reply, cc, opts...)
	if err == nil {
		return nil
	}
	if code, ok := reasonOf(err); !ok || code != common.CodeAccessTokenExpired || refresh == "" {
		return err
	}

	res, rerr := c.api.Refresh(ctx, &authv1.RefreshRequest{RefreshToken: refresh})
	if rerr != nil {
		return rerr
	}
	c.setAccess(res.AccessToken, res.ExpiresIn)

	return invoker(withBearer(ctx, res.AccessToken), method, req, reply, cc, opts...)
}

// Login exchanges credentials for a token pair and keeps it for later calls.
func (c *Client) Login(ctx context.Context, identifier, password string) (*authv1.UserProfile, error) {
	res, err := c.api.Login(ctx, &authv1.LoginRequest{Identifier: identifier, Password: password})
	if err != nil {
		return nil, mapError(err)
	}

	c.setAccess(res.AccessToken, res.ExpiresIn)
	c.mu.Lock()
	c.refreshToken = res.RefreshToken
	c.mu.Unlock()

	return res.User, nil
}

// Refresh obtains a new access token. The refresh token is not rotated.
func (c *Client) Refresh(ctx context.Context) error {
	_, refresh := c.tokens()
	if refresh == "" {
		return ErrNotLoggedIn
	}
	res, err := c.api.Refresh(ctx, &authv1.RefreshRequest{RefreshToken: refresh})
	if err != nil {
		return mapError(err)
	}
	c.setAccess(res.AccessToken, res.ExpiresIn)
	return nil
}

func (c *Client) Me(ctx context.Context) (*authv1.MeResponse, error) {
	res, err := c.api.Me(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, mapError(err)
	}
	return res, nil
}

// Logout revokes the held refresh token and forgets the pair locally even
// when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	_, refresh := c.tokens()
	defer c.clear()
	if refresh == "" {
		return nil
	}
	_, err := c.api.Logout(ctx, &authv1.LogoutRequest{RefreshToken: refresh})
	return mapError(err)
}

// LogoutAll revokes every session of the current user.
func (c *Client) LogoutAll(ctx context.Context) error {
	if !c.LoggedIn() {
		return ErrNotLoggedIn
	}
	if _, err := c.api.LogoutAll(ctx, &emptypb.Empty{}); err != nil {
		return mapError(err)
	}
	c.clear()
	return nil
}

func (c *Client) ConfirmRegistration(ctx context.Context, token, identifier string) error {
	_, err := c.api.ConfirmRegistration(ctx, &authv1.ConfirmRegistrationRequest{Token: token, Identifier: identifier})
	return mapError(err)
}

// ResendVerification asks for a fresh verification link and returns its
// expiry.
func (c *Client) ResendVerification(ctx context.Context, identifier string) (time.Time, error) {
	res, err := c.api.ResendVerification(ctx, &authv1.ResendVerificationRequest{Identifier: identifier})
	if err != nil {
		return time.Time{}, mapError(err)
	}
	return res.ExpiresAt, nil
}

func (c *Client) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshToken != ""
}

// AccessExpiresAt is the local estimate of when the current access token
// stops being accepted.
func (c *Client) AccessExpiresAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiresAt
}

func (c *Client) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken, c.refreshToken = "", ""
	c.expiresAt = time.Time{}
}
