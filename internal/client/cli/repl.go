package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Me(ctx context.Context) error
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	LogoutAll(ctx context.Context) error
	Confirm(ctx context.Context) error
	Resend(ctx context.Context) error
}

// runREPL reads commands from scanner until EOF or "exit". Handlers report
// their own errors, so the loop ignores them.
//
//	Not logged in: help, login, confirm, resend, exit
//	Logged in:     help, me, refresh, logout, logout-all, exit
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("authctl (%s) > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch cmd := parts[0]; cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: me, refresh, logout, logout-all, exit")
			} else {
				printlnFn("Available commands: login, confirm, resend, exit")
			}
		case "login":
			_ = a.Login(ctx)
		case "me":
			_ = a.Me(ctx)
		case "refresh":
			_ = a.Refresh(ctx)
		case "logout":
			_ = a.Logout(ctx)
		case "logout-all":
			_ = a.LogoutAll(ctx)
		case "confirm":
			_ = a.Confirm(ctx)
		case "resend":
			_ = a.Resend(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
