// Package cli implements authctl, an interactive client for the auth
// service: log in, inspect the current principal, refresh, log out and
// drive the e-mail verification flow.
package cli
