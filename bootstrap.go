package session

import "context"

// Bootstrap establishes the initial session state from whatever the
// TokenStore held across the last shutdown. It runs at most once per
// process; later calls return immediately with the first outcome.
//
// The loading flag drops exactly once, whichever way bootstrap resolves, and
// never rises again. Errors are returned for observability only; by the time
// Bootstrap returns, the state has already settled into either a live
// session or a clean logged-out state.
func (m *Manager) Bootstrap(ctx context.Context) error {
	var err error
	m.bootOnce.Do(func() {
		err = m.bootstrap(ctx)
		m.finishLoading()
	})
	return err
}

func (m *Manager) bootstrap(ctx context.Context) error {
	creds, err := m.store.Read(ctx)
	if err != nil {
		// An unreadable store is indistinguishable from an empty one.
		m.logger.Error("unable to read stored credentials", "error", err)
		return m.reset(ctx)
	}

	if creds.Empty() {
		m.logger.Debug("no stored refresh token, starting logged out")
		return m.reset(ctx)
	}

	accessToken, err := m.api.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		return m.resolveBootstrapFailure(ctx, err, "refresh")
	}

	user, err := m.api.Me(ctx, accessToken)
	if err != nil {
		return m.resolveBootstrapFailure(ctx, err, "profile fetch")
	}
	user = user.Normalize()

	m.mu.Lock()
	m.commitLocked(user, accessToken)
	m.mu.Unlock()

	if err := m.store.Save(ctx, Credentials{RefreshToken: creds.RefreshToken, User: user}); err != nil {
		m.logger.Error("unable to re-persist credentials", "error", err)
	}

	m.logger.Info("session restored", "user", user.Email, "role", user.Role)
	return nil
}

// resolveBootstrapFailure applies the recovery policy: a rejected credential
// tears down both memory and store; a transient failure keeps the store so
// the next start can retry, while the in-memory state stays logged out. A
// cached profile is deliberately not surfaced as an authenticated session,
// the authenticated flag and a present user move together or not at all.
func (m *Manager) resolveBootstrapFailure(ctx context.Context, err error, stage string) error {
	if IsCredentialInvalid(err) {
		m.logger.Info("stored session rejected during bootstrap", "stage", stage)
		if rerr := m.reset(ctx); rerr != nil {
			m.logger.Error("bootstrap teardown failed", "error", rerr)
		}
		return err
	}

	m.logger.Info("bootstrap hit a transient failure, keeping stored credentials", "stage", stage, "error", err)

	m.mu.Lock()
	m.user = nil
	m.accessToken = ""
	m.authenticated = false
	m.gen++
	m.mu.Unlock()

	return err
}

func (m *Manager) finishLoading() {
	m.mu.Lock()
	m.loading = false
	m.mu.Unlock()
}
