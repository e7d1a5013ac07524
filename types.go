package session

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Credentials is the durable half of a session: the long-lived refresh token
// plus the last-known user profile. The access token is never part of it.
type Credentials struct {
	RefreshToken string
	User         *User
}

// Empty reports whether there is nothing to restore a session from.
func (c Credentials) Empty() bool {
	return c.RefreshToken == ""
}

// TokenStore persists Credentials across process restarts. Save overwrites
// both entries as a unit, Clear is idempotent, and Read returns zero
// Credentials (not an error) when nothing has been saved.
type TokenStore interface {
	Save(ctx context.Context, creds Credentials) error
	Read(ctx context.Context) (Credentials, error)
	Clear(ctx context.Context) error
}

// API is the backend surface the session lifecycle depends on. *Client is the
// production implementation; tests substitute mocks.
type API interface {
	Login(ctx context.Context, identifier, password string) (*LoginResult, error)
	Logout(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Me(ctx context.Context, accessToken string) (*User, error)
	Register(ctx context.Context, form RegisterForm) (*User, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	ChangePassword(ctx context.Context, oldPassword, newPassword string) error
}

// LoginResult is the payload of a successful login call.
type LoginResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// Config holds console client options
type Config interface {
	GetBaseURL() string
	GetHTTPTimeout() time.Duration
	GetStorePath() string
	GetStoreKey() []byte
	GetLoginRoute() string
	GetForbiddenRoute() string
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
