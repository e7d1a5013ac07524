package session

import (
	"context"
	"sync"
	"time"
)

// Manager is the single source of truth for the in-memory session state. It
// is constructor-injected wherever session awareness is needed; there is no
// package-level instance on purpose.
//
// Every state-mutating commit bumps a generation counter, and every
// long-running operation captures the generation it started from. A commit
// only lands if no other mutation won the race in between, so a slow login
// response can never resurrect a session that a logout already tore down.
type Manager struct {
	mu     sync.Mutex
	api    API
	store  TokenStore
	logger Logger

	gen           uint64
	user          *User
	accessToken   string
	tokenExpiry   time.Time
	authenticated bool
	loading       bool

	bootOnce sync.Once
}

// New returns a Manager in the pre-bootstrap state: no session, loading flag
// raised. Call Bootstrap to settle it.
func New(api API, store TokenStore) *Manager {
	return &Manager{
		api:     api,
		store:   store,
		logger:  defLogger{},
		loading: true,
	}
}

func (m *Manager) WithLogger(logger Logger) *Manager {
	m.logger = logger
	return m
}

// Attach wires a Client to this manager: outgoing requests read the current
// access token, and an observed 401 forces a local logout.
func (m *Manager) Attach(c *Client) *Manager {
	c.WithTokenSource(m.AccessToken)
	c.WithUnauthorizedHandler(m.handleUnauthorized)
	return m
}

// Current returns a point-in-time copy of the session state.
func (m *Manager) Current() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	var user *User
	if m.user != nil {
		u := *m.user
		user = &u
	}

	return Snapshot{
		User:            user,
		AccessToken:     m.accessToken,
		TokenExpiresAt:  m.tokenExpiry,
		IsAuthenticated: m.authenticated,
		IsLoadingAuth:   m.loading,
	}
}

// AccessToken returns the current bearer credential, empty when logged out.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessToken
}

// Login authenticates against the backend and, on success, commits the new
// session and persists its durable half. On any failure the state is left
// exactly as it was and the error is returned for the form to display.
func (m *Manager) Login(ctx context.Context, form LoginForm) (*User, error) {
	if err := form.Validate(); err != nil {
		return nil, validationErr(err)
	}

	start := m.generation()

	result, err := m.api.Login(ctx, form.Identifier, form.Password)
	if err != nil {
		return nil, err
	}
	if result == nil || result.User == nil {
		return nil, ErrCredentialsInvalid
	}

	user := result.User.Normalize()

	m.mu.Lock()
	if m.gen != start {
		m.mu.Unlock()
		m.logger.Info("login response superseded, discarding", "user", user.Email)
		return nil, ErrSessionExpired
	}
	m.commitLocked(user, result.AccessToken)
	committed := m.gen
	m.mu.Unlock()

	if err := m.store.Save(ctx, Credentials{RefreshToken: result.RefreshToken, User: user}); err != nil {
		m.logger.Error("unable to persist credentials", "error", err)
	}

	// A logout can land between the commit above and the Save. Its store.Clear
	// ran against a store the Save has since re-populated, so re-check the
	// generation and undo the persist; the refresh token also never reached the
	// logout's server call, so invalidate it here best-effort.
	if m.generation() != committed {
		m.logger.Info("login superseded during persist, rolling back", "user", user.Email)
		if cerr := m.store.Clear(ctx); cerr != nil {
			m.logger.Error("unable to roll back persisted credentials", "error", cerr)
		}
		if lerr := m.api.Logout(ctx, result.RefreshToken); lerr != nil {
			m.logger.Info("server-side invalidation of discarded token failed", "error", lerr)
		}
		return nil, ErrSessionExpired
	}

	return user, nil
}

// Logout notifies the backend best-effort, then unconditionally resets the
// local state and clears the store. The local teardown happens even when the
// server call fails or times out.
func (m *Manager) Logout(ctx context.Context) error {
	creds, err := m.store.Read(ctx)
	if err != nil {
		m.logger.Debug("unable to read stored credentials during logout", "error", err)
	}

	if !creds.Empty() {
		if err := m.api.Logout(ctx, creds.RefreshToken); err != nil {
			m.logger.Info("server-side logout failed, clearing locally", "error", err)
		}
	}

	return m.reset(ctx)
}

// UpdateUser replaces the profile wholesale after a fresh fetch and
// re-persists it next to the stored refresh token.
func (m *Manager) UpdateUser(ctx context.Context, user *User) error {
	if user == nil {
		return ErrNotAuthenticated
	}
	user = user.Normalize()

	m.mu.Lock()
	m.user = user
	m.authenticated = true
	m.gen++
	m.mu.Unlock()

	creds, err := m.store.Read(ctx)
	if err != nil {
		return err
	}
	creds.User = user
	return m.store.Save(ctx, creds)
}

// RefreshProfile re-fetches /auth/me with the live access token and commits
// the result through UpdateUser.
func (m *Manager) RefreshProfile(ctx context.Context) (*User, error) {
	token := m.AccessToken()
	if token == "" {
		return nil, ErrNotAuthenticated
	}

	user, err := m.api.Me(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := m.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// NeedsRefresh reports whether the access token is absent or within leeway
// of its expiration.
func (m *Manager) NeedsRefresh(leeway time.Duration) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.accessToken == "" {
		return true
	}
	if m.tokenExpiry.IsZero() {
		return false
	}
	return time.Now().Add(leeway).After(m.tokenExpiry)
}

// handleUnauthorized is the reactive counterpart to bootstrap validation: an
// authenticated call answered 401 means the session is gone, so tear down
// locally without a server round-trip. Safe to call repeatedly.
func (m *Manager) handleUnauthorized() {
	m.mu.Lock()
	alreadyOut := !m.authenticated && m.user == nil
	m.mu.Unlock()
	if alreadyOut {
		return
	}

	m.logger.Info("session rejected by backend, logging out")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.reset(ctx); err != nil {
		m.logger.Error("forced logout cleanup failed", "error", err)
	}
}

// reset clears memory state first, store second, so no observer can see a
// live session backed by deleted credentials.
func (m *Manager) reset(ctx context.Context) error {
	m.mu.Lock()
	m.user = nil
	m.accessToken = ""
	m.tokenExpiry = time.Time{}
	m.authenticated = false
	m.gen++
	m.mu.Unlock()

	return m.store.Clear(ctx)
}

// commitLocked installs a session; the caller holds the mutex.
func (m *Manager) commitLocked(user *User, accessToken string) {
	m.user = user
	m.accessToken = accessToken
	m.authenticated = true
	m.gen++

	m.tokenExpiry = time.Time{}
	if exp, err := TokenExpiry(accessToken); err == nil {
		m.tokenExpiry = exp
	}
}

func (m *Manager) generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}
