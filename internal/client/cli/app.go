package cli

import (
	"bufio"
	"context"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/api/authv1"
	"github.com/dmitrijs2005/gophauth/internal/client/authclient"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
)

// authAPI is the part of authclient.Client the commands use.
type authAPI interface {
	Login(ctx context.Context, identifier, password string) (*authv1.UserProfile, error)
	Refresh(ctx context.Context) error
	Me(ctx context.Context) (*authv1.MeResponse, error)
	Logout(ctx context.Context) error
	LogoutAll(ctx context.Context) error
	ConfirmRegistration(ctx context.Context, token, identifier string) error
	ResendVerification(ctx context.Context, identifier string) (time.Time, error)
	LoggedIn() bool
	AccessExpiresAt() time.Time
	Close() error
}

type App struct {
	config   *config.Config
	client   authAPI
	userName string
	reader   *bufio.Reader
	out      io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	apiClient, err := authclient.New(c.ServerEndpointAddr)
	if err != nil {
		return nil, err
	}
	return &App{config: c, client: apiClient, reader: bufio.NewReader(os.Stdin), out: os.Stdout}, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.client.Close()
	printlnFn("authctl (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

func (a *App) isLoggedIn() bool {
	return a.client.LoggedIn()
}

func (a *App) getStatus() string {
	if !a.isLoggedIn() {
		return "anonymous"
	}
	return a.userName
}

// callCtx bounds a single server call by the configured timeout.
func (a *App) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config == nil || a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}
