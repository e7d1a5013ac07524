package session

import (
	"context"
	"errors"
	"net"

	goerrors "github.com/goliatone/go-errors"
)

const (
	textCodeCredentialsInvalid  = "INVALID_CREDENTIALS"
	textCodeRefreshTokenInvalid = "REFRESH_TOKEN_INVALID"
	textCodeSessionExpired      = "SESSION_EXPIRED"
	textCodeRoleForbidden       = "ROLE_FORBIDDEN"
	textCodeBackendUnavailable  = "BACKEND_UNAVAILABLE"
)

// ErrCredentialsInvalid is returned when the backend rejects a login attempt.
var ErrCredentialsInvalid = goerrors.New("invalid credentials", goerrors.CategoryAuth).
	WithTextCode(textCodeCredentialsInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrRefreshTokenInvalid is returned when the backend reports the refresh
// token as expired or revoked. The bootstrapper treats it as terminal and
// tears the stored session down.
var ErrRefreshTokenInvalid = goerrors.New("refresh token rejected", goerrors.CategoryAuth).
	WithTextCode(textCodeRefreshTokenInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrSessionExpired is returned when an authenticated call comes back 401.
var ErrSessionExpired = goerrors.New("session no longer valid", goerrors.CategoryAuth).
	WithTextCode(textCodeSessionExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrRoleForbidden is returned when the current role is outside a guard's
// allow-set, including roles the client does not recognize at all.
var ErrRoleForbidden = goerrors.New("role not permitted", goerrors.CategoryAuthz).
	WithTextCode(textCodeRoleForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrNotAuthenticated is returned by operations that need a live session.
var ErrNotAuthenticated = goerrors.New("no authenticated session", goerrors.CategoryAuth).
	WithTextCode(textCodeSessionExpired).
	WithCode(goerrors.CodeUnauthorized)

// IsCredentialInvalid reports whether err means the backend rejected the
// presented credential, as opposed to failing to answer at all. The
// bootstrapper's recovery policy branches on this.
func IsCredentialInvalid(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryAuth ||
			richErr.Category == goerrors.CategoryAuthz
	}
	return false
}

// IsTransient reports whether err is a connectivity or server-side failure
// that says nothing about credential validity.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode == textCodeBackendUnavailable {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// IsValidationError reports whether err came from client-side form
// validation, meaning no network call was made.
func IsValidationError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryValidation
	}
	return false
}

func transientErr(err error, msg string) *goerrors.Error {
	return goerrors.Wrap(err, goerrors.CategoryOperation, msg).
		WithTextCode(textCodeBackendUnavailable)
}
