package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// Client talks to the console backend. It injects the current access token as
// a bearer credential on authenticated calls and fires the unauthorized hook
// exactly once per observed 401 so a dead session is torn down without retry
// storms.
type Client struct {
	baseURL        string
	http           *http.Client
	logger         Logger
	tokenSource    func() string
	onUnauthorized func()
}

// NewClient returns a Client for the configured backend base URL.
func NewClient(cfg Config) *Client {
	timeout := cfg.GetHTTPTimeout()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.GetBaseURL(), "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  defLogger{},
	}
}

func (c *Client) WithLogger(logger Logger) *Client {
	c.logger = logger
	return c
}

// WithHTTPClient overrides the underlying HTTP client (useful for tests).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

// WithTokenSource sets the callback that yields the current access token.
// Manager.Attach wires this to the session state.
func (c *Client) WithTokenSource(source func() string) *Client {
	c.tokenSource = source
	return c
}

// WithUnauthorizedHandler sets the hook fired when an authenticated call
// comes back 401. Login and refresh responses never fire it.
func (c *Client) WithUnauthorizedHandler(fn func()) *Client {
	c.onUnauthorized = fn
	return c
}

// envelope is the backend's uniform response wrapper.
type envelope struct {
	Success   bool            `json:"success"`
	Message   *string         `json:"message"`
	ErrorCode *string         `json:"error_code"`
	Data      json.RawMessage `json:"data"`
}

func (e envelope) message(def string) string {
	if e.Message != nil && *e.Message != "" {
		return *e.Message
	}
	return def
}

func (e envelope) textCode(def string) string {
	if e.ErrorCode != nil && *e.ErrorCode != "" {
		return *e.ErrorCode
	}
	return def
}

// Login exchanges credentials for a token pair plus the user profile.
func (c *Client) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	body := map[string]string{"email": identifier, "password": password}
	out := &LoginResult{}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, out, false); err != nil {
		return nil, err
	}
	if out.User == nil || out.AccessToken == "" {
		return nil, goerrors.New("login response missing token or user", goerrors.CategoryInternal)
	}
	out.User = out.User.Normalize()
	return out, nil
}

// Logout notifies the backend that the refresh token should be invalidated.
// Callers treat failures as best-effort; local teardown never depends on it.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	body := map[string]string{"refresh_token": refreshToken}
	return c.do(ctx, http.MethodPost, "/auth/logout", body, nil, true)
}

// Refresh exchanges a refresh token for a new access token. A single
// attempt, no internal retry; the sentinel ErrRefreshTokenInvalid marks the
// token as rejected rather than the backend as unreachable.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	body := map[string]string{"refresh_token": refreshToken}
	out := struct {
		AccessToken string `json:"access_token"`
	}{}

	if err := c.do(ctx, http.MethodPost, "/auth/refresh", body, &out, false); err != nil {
		if IsCredentialInvalid(err) {
			return "", ErrRefreshTokenInvalid
		}
		return "", err
	}

	if out.AccessToken == "" {
		return "", goerrors.New("refresh response missing access token", goerrors.CategoryInternal)
	}
	return out.AccessToken, nil
}

// Me fetches the profile behind the given access token. It takes the token
// explicitly because bootstrap calls it before the session state is
// committed; a 401 here never fires the unauthorized hook.
func (c *Client) Me(ctx context.Context, accessToken string) (*User, error) {
	user := &User{}
	if err := c.doToken(ctx, http.MethodGet, "/auth/me", nil, user, accessToken); err != nil {
		return nil, err
	}
	return user.Normalize(), nil
}

// Register creates a new account. Deployments may have the flow disabled, in
// which case the backend answers with a rejection the caller surfaces as-is.
func (c *Client) Register(ctx context.Context, form RegisterForm) (*User, error) {
	if err := form.Validate(); err != nil {
		return nil, validationErr(err)
	}
	body := map[string]string{
		"full_name": form.FullName,
		"email":     form.Email,
		"password":  form.Password,
	}
	user := &User{}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, user, false); err != nil {
		return nil, err
	}
	return user.Normalize(), nil
}

// ForgotPassword asks the backend to start a reset flow. The backend answers
// success-shaped whether or not the address exists, so the caller can never
// probe for accounts.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/auth/forgot-password", body, nil, false)
}

// ResetPassword finalizes a reset flow with the emailed token.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	body := map[string]string{"token": token, "new_password": newPassword}
	return c.do(ctx, http.MethodPost, "/auth/reset-password", body, nil, false)
}

// ChangePassword rotates the password of the authenticated user.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	body := map[string]string{"old_password": oldPassword, "new_password": newPassword}
	return c.do(ctx, http.MethodPost, "/auth/change-password", body, nil, true)
}

// do performs a call using the attached token source for the bearer header.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	token := ""
	if authed && c.tokenSource != nil {
		token = c.tokenSource()
	}
	return c.exec(ctx, method, path, body, out, token, authed)
}

// doToken performs a call with an explicit bearer token and no 401 hook.
func (c *Client) doToken(ctx context.Context, method, path string, body, out any, token string) error {
	return c.exec(ctx, method, path, body, out, token, false)
}

func (c *Client) exec(ctx context.Context, method, path string, body, out any, token string, fireHook bool) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to encode request body")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "method", method, "path", path, "error", err)
		return transientErr(err, "console backend unreachable")
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return transientErr(err, "unable to read backend response")
	}

	var env envelope
	if len(raw) > 0 {
		// A non-JSON body (proxy error page) falls through to status handling.
		_ = json.Unmarshal(raw, &env)
	}

	switch {
	case res.StatusCode == http.StatusUnauthorized:
		if fireHook && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return goerrors.New(env.message("authentication rejected"), goerrors.CategoryAuth).
			WithTextCode(env.textCode(textCodeCredentialsInvalid)).
			WithCode(goerrors.CodeUnauthorized)

	case res.StatusCode == http.StatusForbidden:
		return goerrors.New(env.message("not permitted"), goerrors.CategoryAuthz).
			WithTextCode(env.textCode(textCodeRoleForbidden)).
			WithCode(goerrors.CodeForbidden)

	case res.StatusCode >= http.StatusInternalServerError:
		return transientErr(
			fmt.Errorf("backend returned status %d", res.StatusCode),
			env.message("console backend error"),
		)

	case res.StatusCode >= http.StatusBadRequest || !env.Success:
		return goerrors.New(env.message("request rejected"), goerrors.CategoryBadInput).
			WithTextCode(env.textCode("REQUEST_REJECTED")).
			WithCode(goerrors.CodeBadRequest)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to decode backend response")
		}
	}
	return nil
}

// TokenExpiry decodes the expiration claim of an access token without
// verifying its signature. The backend stays authoritative; the client only
// uses this to know when a token is worth refreshing proactively.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to decode access token")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, goerrors.New("access token has no expiration claim", goerrors.CategoryBadInput)
	}
	return exp.Time, nil
}
