package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// report prints err the way the user should see it: the server's message
// for business errors, the raw error otherwise.
func (a *App) report(action string, err error) error {
	var be *common.Error
	if errors.As(err, &be) {
		fmt.Fprintf(a.out, "%s failed: %s (%s)\n", action, be.Message, be.Code)
	} else {
		fmt.Fprintf(a.out, "%s failed: %v\n", action, err)
	}
	return err
}

func (a *App) Login(ctx context.Context) error {
	identifier, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return a.report("login", err)
	}
	password, err := GetPassword(a.out)
	if err != nil {
		return a.report("login", err)
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	user, err := a.client.Login(ctx, identifier, string(password))
	if err != nil {
		return a.report("login", err)
	}
	a.userName = user.Identifier
	fmt.Fprintf(a.out, "Logged in as %s (%s)\n", user.Identifier, user.Role)
	return nil
}

func (a *App) Me(ctx context.Context) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	me, err := a.client.Me(ctx)
	if err != nil {
		return a.report("me", err)
	}
	fmt.Fprintf(a.out, "id: %s\nidentifier: %s\nrole: %s\nauthorities: %s\ntoken expires in: %s\n",
		me.UserID, me.Identifier, me.Role, strings.Join(me.Authorities, ", "),
		time.Duration(me.ExpiresIn)*time.Second)
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	if err := a.client.Refresh(ctx); err != nil {
		return a.report("refresh", err)
	}
	fmt.Fprintf(a.out, "Access token refreshed, valid until %s\n", a.client.AccessExpiresAt().Local().Format(time.TimeOnly))
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	err := a.client.Logout(ctx)
	a.userName = ""
	if err != nil {
		return a.report("logout", err)
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) LogoutAll(ctx context.Context) error {
	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	if err := a.client.LogoutAll(ctx); err != nil {
		return a.report("logout-all", err)
	}
	a.userName = ""
	fmt.Fprintln(a.out, "All sessions closed")
	return nil
}

func (a *App) Confirm(ctx context.Context) error {
	identifier, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return a.report("confirm", err)
	}
	token, err := GetSimpleText(a.reader, "Enter verification token", a.out)
	if err != nil {
		return a.report("confirm", err)
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	if err := a.client.ConfirmRegistration(ctx, token, identifier); err != nil {
		return a.report("confirm", err)
	}
	fmt.Fprintln(a.out, "Account verified, you can log in now")
	return nil
}

func (a *App) Resend(ctx context.Context) error {
	identifier, err := GetSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return a.report("resend", err)
	}

	ctx, cancel := a.callCtx(ctx)
	defer cancel()

	expiresAt, err := a.client.ResendVerification(ctx, identifier)
	if err != nil {
		return a.report("resend", err)
	}
	fmt.Fprintf(a.out, "A new verification link was sent, valid until %s\n", expiresAt.Local().Format("2006-01-02 15:04"))
	return nil
}
