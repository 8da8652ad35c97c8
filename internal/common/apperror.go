package common

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable identifier of a business failure.
type Code string

const (
	CodeInvalidCredentials Code = "AUTH_INVALID_CREDENTIALS"

	CodeAccountDisabled    Code = "USER_ACCOUNT_DISABLED"
	CodeAccountLocked      Code = "USER_ACCOUNT_LOCKED"
	CodeAccountExpired     Code = "USER_ACCOUNT_EXPIRED"
	CodeCredentialsExpired Code = "USER_CREDENTIALS_EXPIRED"

	CodeAccessTokenMissing          Code = "AUTH_TOKEN_MISSING"
	CodeAccessTokenMalformed        Code = "AUTH_TOKEN_MALFORMED"
	CodeAccessTokenSignatureInvalid Code = "AUTH_TOKEN_SIGNATURE_INVALID"
	CodeAccessTokenExpired          Code = "AUTH_TOKEN_EXPIRED"
	CodeAccessTokenInvalid          Code = "AUTH_TOKEN_INVALID"

	CodeRefreshTokenNotFound Code = "REFRESH_TOKEN_NOT_FOUND"
	CodeRefreshTokenRevoked  Code = "REFRESH_TOKEN_REVOKED"
	CodeRefreshTokenExpired  Code = "REFRESH_TOKEN_EXPIRED"

	CodeVerificationTokenNotFound     Code = "VERIFICATION_TOKEN_NOT_FOUND"
	CodeVerificationTokenUserMismatch Code = "VERIFICATION_TOKEN_USER_MISMATCH"
	CodeVerificationTokenVoided       Code = "VERIFICATION_TOKEN_VOIDED"
	CodeVerificationTokenAlreadyUsed  Code = "VERIFICATION_TOKEN_ALREADY_USED"
	CodeVerificationTokenExpired      Code = "VERIFICATION_TOKEN_EXPIRED"

	CodeUserNotFound       Code = "USER_NOT_FOUND"
	CodeServiceUnavailable Code = "SERVICE_UNAVAILABLE"
)

// Class groups codes by the kind of response a boundary should produce.
type Class int

const (
	ClassUnauthenticated Class = iota
	ClassForbidden
	ClassNotFound
	ClassConflict
	ClassInvalid
	ClassUnavailable
)

// Class reports the response class of c. Unknown codes are treated as
// Unavailable so they never surface as a success-like status.
func (c Code) Class() Class {
	switch c {
	case CodeInvalidCredentials,
		CodeAccessTokenMissing, CodeAccessTokenMalformed, CodeAccessTokenSignatureInvalid,
		CodeAccessTokenExpired, CodeAccessTokenInvalid,
		CodeRefreshTokenNotFound, CodeRefreshTokenRevoked, CodeRefreshTokenExpired,
		CodeVerificationTokenExpired:
		return ClassUnauthenticated
	case CodeAccountDisabled, CodeAccountLocked, CodeAccountExpired, CodeCredentialsExpired:
		return ClassForbidden
	case CodeVerificationTokenNotFound, CodeUserNotFound:
		return ClassNotFound
	case CodeVerificationTokenAlreadyUsed:
		return ClassConflict
	case CodeVerificationTokenUserMismatch, CodeVerificationTokenVoided:
		return ClassInvalid
	default:
		return ClassUnavailable
	}
}

// Error is a user-facing business failure: a stable code, a message safe to
// show to the caller and an optional internal cause that is never exposed.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithCause returns a copy of e carrying err as its internal cause.
func (e *Error) WithCause(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Err: err}
}

// NewError builds a business error without an internal cause.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Unavailable collapses an unexpected lower-layer failure into the generic
// SERVICE_UNAVAILABLE error. Business errors pass through untouched.
func Unavailable(err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	return &Error{Code: CodeServiceUnavailable, Message: "Service temporarily unavailable. Please try again later.", Err: err}
}

// CodeOf returns the code of the business error in err's chain, or
// SERVICE_UNAVAILABLE when there is none.
func CodeOf(err error) Code {
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return CodeServiceUnavailable
}

var (
	ErrInvalidCredentials = NewError(CodeInvalidCredentials, "Invalid email or password.")

	ErrAccountDisabled    = NewError(CodeAccountDisabled, "User account disabled. Please contact your system administrator for assistance.")
	ErrAccountLocked      = NewError(CodeAccountLocked, "User account locked. Please contact your system administrator for assistance.")
	ErrAccountExpired     = NewError(CodeAccountExpired, "User account has expired. Please contact your system administrator for assistance.")
	ErrCredentialsExpired = NewError(CodeCredentialsExpired, "User credentials have expired. Please reset them.")

	ErrAccessTokenMissing          = NewError(CodeAccessTokenMissing, "Authentication is required.")
	ErrAccessTokenMalformed        = NewError(CodeAccessTokenMalformed, "Invalid authentication format.")
	ErrAccessTokenSignatureInvalid = NewError(CodeAccessTokenSignatureInvalid, "Token signature validation failed.")
	ErrAccessTokenExpired          = NewError(CodeAccessTokenExpired, "Your session has expired.")
	ErrAccessTokenInvalid          = NewError(CodeAccessTokenInvalid, "Authentication token is invalid.")

	ErrRefreshTokenNotFound = NewError(CodeRefreshTokenNotFound, "Invalid or expired refresh token. Please log in again.")
	ErrRefreshTokenRevoked  = NewError(CodeRefreshTokenRevoked, "Invalid refresh token. Please log in again.")
	ErrRefreshTokenExpired  = NewError(CodeRefreshTokenExpired, "Expired refresh token. Please log in again.")

	ErrVerificationTokenNotFound     = NewError(CodeVerificationTokenNotFound, "Verification token is either malformed or invalid.")
	ErrVerificationTokenUserMismatch = NewError(CodeVerificationTokenUserMismatch, "Verification token user mismatch.")
	ErrVerificationTokenVoided       = NewError(CodeVerificationTokenVoided, "This verification link is no longer valid because a newer one was requested.")
	ErrVerificationTokenAlreadyUsed  = NewError(CodeVerificationTokenAlreadyUsed, "This account has already been verified. Please log in.")
	ErrVerificationTokenExpired      = NewError(CodeVerificationTokenExpired, "The verification link has expired. Please request a new one.")

	ErrUserNotFound = NewError(CodeUserNotFound, "User does not exist.")
)
