package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	session "github.com/classdesk/go-session"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func validLoginForm() session.LoginForm {
	return session.LoginForm{Identifier: "ana@example.com", Password: "secret-pw"}
}

// assertConsistent checks the invariant that the authenticated flag and a
// present user always move together.
func assertConsistent(t *testing.T, snap session.Snapshot) {
	t.Helper()
	assert.Equal(t, snap.User != nil, snap.IsAuthenticated,
		"isAuthenticated must mirror user presence")
}

func TestLoginSuccess(t *testing.T) {
	api := &MockAPI{}
	store := NewFlakyStore()
	m := session.New(api, store)

	api.On("Login", mock.Anything, "ana@example.com", "secret-pw").
		Return(&session.LoginResult{
			AccessToken:  "at-1",
			RefreshToken: "rt-1",
			User:         &session.User{ID: "u1", Email: "ana@example.com", Role: "admin", IsActive: true},
		}, nil).Once()

	user, err := m.Login(context.Background(), validLoginForm())
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, session.RoleAdmin, user.Role, "role normalized at the boundary")

	snap := m.Current()
	assertConsistent(t, snap)
	assert.True(t, snap.IsAuthenticated)
	assert.Equal(t, "at-1", snap.AccessToken)

	creds, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rt-1", creds.RefreshToken)
	require.NotNil(t, creds.User)
	assert.Equal(t, session.RoleAdmin, creds.User.Role)

	api.AssertExpectations(t)
}

func TestLoginValidationFailureSkipsNetwork(t *testing.T) {
	api := &MockAPI{}
	m := session.New(api, NewFlakyStore())

	_, err := m.Login(context.Background(), session.LoginForm{
		Identifier: "not-an-email",
		Password:   "pw",
	})
	require.Error(t, err)
	assert.True(t, session.IsValidationError(err))

	api.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
	assertConsistent(t, m.Current())
	assert.False(t, m.Current().IsAuthenticated)
}

func TestLoginRejectionLeavesStateUnchanged(t *testing.T) {
	api := &MockAPI{}
	store := NewFlakyStore()
	m := session.New(api, store)

	api.On("Login", mock.Anything, "ana@example.com", "secret-pw").
		Return(nil, session.ErrCredentialsInvalid).Once()

	_, err := m.Login(context.Background(), validLoginForm())
	require.Error(t, err)
	assert.True(t, session.IsCredentialInvalid(err))

	snap := m.Current()
	assertConsistent(t, snap)
	assert.False(t, snap.IsAuthenticated)
	assert.Empty(t, snap.AccessToken)

	creds, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.True(t, creds.Empty())
}

func TestLogoutGuarantee(t *testing.T) {
	api := &MockAPI{}
	store := NewFlakyStore()
	m := session.New(api, store)

	api.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(&session.LoginResult{
			AccessToken:  "at-1",
			RefreshToken: "rt-1",
			User:         &session.User{ID: "u1", Role: "TEACHER"},
		}, nil).Once()
	// Server-side invalidation fails; local teardown must not care.
	api.On("Logout", mock.Anything, "rt-1").
		Return(context.DeadlineExceeded).Once()

	_, err := m.Login(context.Background(), validLoginForm())
	require.NoError(t, err)

	require.NoError(t, m.Logout(context.Background()))

	snap := m.Current()
	assertConsistent(t, snap)
	assert.False(t, snap.IsAuthenticated)
	assert.Nil(t, snap.User)
	assert.Empty(t, snap.AccessToken)

	creds, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.True(t, creds.Empty())

	api.AssertExpectations(t)
}

func TestLogoutWinsOverInFlightLogin(t *testing.T) {
	api := &MockAPI{}
	store := NewFlakyStore()
	m := session.New(api, store)

	started := make(chan struct{})
	release := make(chan struct{})

	api.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&session.LoginResult{
			AccessToken:  "at-late",
			RefreshToken: "rt-late",
			User:         &session.User{ID: "u1", Role: "ADMIN"},
		}, nil).Once()

	type loginOutcome struct {
		user *session.User
		err  error
	}
	done := make(chan loginOutcome, 1)
	go func() {
		u, err := m.Login(context.Background(), validLoginForm())
		done <- loginOutcome{u, err}
	}()

	<-started
	require.NoError(t, m.Logout(context.Background()))
	close(release)

	outcome := <-done
	require.Error(t, outcome.err, "superseded login must not commit")
	assert.Nil(t, outcome.user)

	snap := m.Current()
	assertConsistent(t, snap)
	assert.False(t, snap.IsAuthenticated, "logout is the final word")
	assert.Empty(t, snap.AccessToken)

	creds, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.True(t, creds.Empty(), "late login must not re-persist credentials")
}

func TestLogoutDuringLoginPersistWindow(t *testing.T) {
	api := &MockAPI{}
	store := NewFlakyStore()
	m := session.New(api, store)

	api.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(&session.LoginResult{
			AccessToken:  "at-1",
			RefreshToken: "rt-1",
			User:         &session.User{ID: "u1", Role: "ADMIN"},
		}, nil).Once()
	// The logout reads an empty store, so the discarded token is invalidated
	// by the login rollback instead.
	api.On("Logout", mock.Anything, "rt-1").Return(nil).Once()

	saveEntered := make(chan struct{})
	releaseSave := make(chan struct{})
	var once sync.Once
	store.SaveHook = func() {
		once.Do(func() {
			close(saveEntered)
			<-releaseSave
		})
	}

	type loginOutcome struct {
		user *session.User
		err  error
	}
	done := make(chan loginOutcome, 1)
	go func() {
		u, err := m.Login(context.Background(), validLoginForm())
		done <- loginOutcome{u, err}
	}()

	// The session is already committed in memory; logout lands while the
	// persist is still in flight.
	<-saveEntered
	require.NoError(t, m.Logout(context.Background()))
	close(releaseSave)

	outcome := <-done
	require.Error(t, outcome.err, "login landing after logout must not report success")
	assert.Equal(t, session.ErrSessionExpired, outcome.err)
	assert.Nil(t, outcome.user)

	snap := m.Current()
	assertConsistent(t, snap)
	assert.False(t, snap.IsAuthenticated, "logout is the final word")

	creds, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.True(t, creds.Empty(), "store must stay empty after logout settles")

	api.AssertExpectations(t)
}

func TestUpdateUserReplacesProfile(t *testing.T) {
	api := &MockAPI{}
	store := NewFlakyStore()
	m := session.New(api, store)

	api.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(&session.LoginResult{
			AccessToken:  "at-1",
			RefreshToken: "rt-1",
			User:         &session.User{ID: "u1", FullName: "Ana", Role: "ADMIN"},
		}, nil).Once()
	_, err := m.Login(context.Background(), validLoginForm())
	require.NoError(t, err)

	err = m.UpdateUser(context.Background(), &session.User{ID: "u1", FullName: "Ana R.", Role: "super_admin"})
	require.NoError(t, err)

	snap := m.Current()
	assertConsistent(t, snap)
	assert.Equal(t, "Ana R.", snap.User.FullName)
	assert.Equal(t, session.RoleSuperAdmin, snap.User.Role)

	creds, err := store.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rt-1", creds.RefreshToken, "refresh token survives profile updates")
	assert.Equal(t, "Ana R.", creds.User.FullName)
}

func TestRefreshProfileRequiresSession(t *testing.T) {
	api := &MockAPI{}
	m := session.New(api, NewFlakyStore())

	_, err := m.RefreshProfile(context.Background())
	require.Error(t, err)
	assert.True(t, session.IsCredentialInvalid(err))
	api.AssertNotCalled(t, "Me", mock.Anything, mock.Anything)
}

func TestNeedsRefresh(t *testing.T) {
	api := &MockAPI{}
	m := session.New(api, NewFlakyStore())

	assert.True(t, m.NeedsRefresh(0), "no token means refresh needed")

	token := mintToken(t, time.Now().Add(30*time.Second))
	api.On("Login", mock.Anything, mock.Anything, mock.Anything).
		Return(&session.LoginResult{
			AccessToken:  token,
			RefreshToken: "rt-1",
			User:         &session.User{ID: "u1", Role: "ADMIN"},
		}, nil).Once()

	_, err := m.Login(context.Background(), validLoginForm())
	require.NoError(t, err)

	assert.False(t, m.NeedsRefresh(0))
	assert.True(t, m.NeedsRefresh(time.Minute), "token inside the leeway window counts as stale")
}

func mintToken(t *testing.T, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": expires.Unix(),
	})
	signed, err := token.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return signed
}
