package session_test

import (
	"context"

	session "github.com/classdesk/go-session"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/mock"
)

// MockAPI implements session.API
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) Login(ctx context.Context, identifier, password string) (*session.LoginResult, error) {
	args := m.Called(ctx, identifier, password)
	if res := args.Get(0); res != nil {
		return res.(*session.LoginResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAPI) Logout(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockAPI) Refresh(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

func (m *MockAPI) Me(ctx context.Context, accessToken string) (*session.User, error) {
	args := m.Called(ctx, accessToken)
	if res := args.Get(0); res != nil {
		return res.(*session.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAPI) Register(ctx context.Context, form session.RegisterForm) (*session.User, error) {
	args := m.Called(ctx, form)
	if res := args.Get(0); res != nil {
		return res.(*session.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAPI) ForgotPassword(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockAPI) ResetPassword(ctx context.Context, token, newPassword string) error {
	args := m.Called(ctx, token, newPassword)
	return args.Error(0)
}

func (m *MockAPI) ChangePassword(ctx context.Context, oldPassword, newPassword string) error {
	args := m.Called(ctx, oldPassword, newPassword)
	return args.Error(0)
}

// FlakyStore wraps a MemoryStore with injectable failures. SaveHook, when
// set, runs before each delegated Save so tests can hold the persist open.
type FlakyStore struct {
	*session.MemoryStore
	SaveErr  error
	ReadErr  error
	ClearErr error
	SaveHook func()

	ClearCalls int
}

func NewFlakyStore() *FlakyStore {
	return &FlakyStore{MemoryStore: session.NewMemoryStore()}
}

func (s *FlakyStore) Save(ctx context.Context, creds session.Credentials) error {
	if s.SaveHook != nil {
		s.SaveHook()
	}
	if s.SaveErr != nil {
		return s.SaveErr
	}
	return s.MemoryStore.Save(ctx, creds)
}

func (s *FlakyStore) Read(ctx context.Context) (session.Credentials, error) {
	if s.ReadErr != nil {
		return session.Credentials{}, s.ReadErr
	}
	return s.MemoryStore.Read(ctx)
}

func (s *FlakyStore) Clear(ctx context.Context) error {
	s.ClearCalls++
	if s.ClearErr != nil {
		return s.ClearErr
	}
	return s.MemoryStore.Clear(ctx)
}

// RecordingContext implements router.Context for guard tests, recording the
// outcome instead of scripting expectations.
type RecordingContext struct {
	NextCalled   bool
	StatusCode   int
	SentBody     string
	RedirectedTo string
	SetCookies   []*router.Cookie
	CookieJar    map[string]string
	URL          string
	Headers      map[string]string

	ctx context.Context
}

func NewRecordingContext(url string) *RecordingContext {
	return &RecordingContext{
		URL:       url,
		CookieJar: map[string]string{},
		Headers:   map[string]string{},
		ctx:       context.Background(),
	}
}

func (m *RecordingContext) Next() error {
	m.NextCalled = true
	return nil
}

func (m *RecordingContext) Context() context.Context       { return m.ctx }
func (m *RecordingContext) SetContext(ctx context.Context) { m.ctx = ctx }
func (m *RecordingContext) Path() string                   { return m.URL }
func (m *RecordingContext) Method() string                 { return "GET" }
func (m *RecordingContext) Body() []byte                   { return nil }

func (m *RecordingContext) Status(code int) router.Context {
	m.StatusCode = code
	return m
}

func (m *RecordingContext) SendString(s string) error {
	m.SentBody = s
	return nil
}

func (m *RecordingContext) Send(b []byte) error {
	m.SentBody = string(b)
	return nil
}

func (m *RecordingContext) JSON(code int, val any) error {
	m.StatusCode = code
	return nil
}

func (m *RecordingContext) NoContent(code int) error {
	m.StatusCode = code
	return nil
}

func (m *RecordingContext) Render(name string, bind any, layout ...string) error { return nil }

func (m *RecordingContext) Redirect(path string, status ...int) error {
	m.RedirectedTo = path
	if len(status) > 0 {
		m.StatusCode = status[0]
	}
	return nil
}

func (m *RecordingContext) RedirectToRoute(name string, data router.ViewContext, status ...int) error {
	m.RedirectedTo = name
	return nil
}

func (m *RecordingContext) RedirectBack(fallback string, status ...int) error {
	m.RedirectedTo = fallback
	return nil
}

func (m *RecordingContext) SetHeader(key, val string) router.Context {
	m.Headers[key] = val
	return m
}

func (m *RecordingContext) Header(key string) string { return m.Headers[key] }

func (m *RecordingContext) Get(key string, defaultValue any) any    { return defaultValue }
func (m *RecordingContext) GetBool(key string, def bool) bool       { return def }
func (m *RecordingContext) GetInt(key string, def int) int          { return def }
func (m *RecordingContext) Set(key string, val any)                 {}
func (m *RecordingContext) Bind(i any) error                        { return nil }
func (m *RecordingContext) BindJSON(i any) error                    { return nil }
func (m *RecordingContext) BindXML(i any) error                     { return nil }
func (m *RecordingContext) BindQuery(i any) error                   { return nil }
func (m *RecordingContext) CookieParser(i any) error                { return nil }
func (m *RecordingContext) GetString(key string, def string) string { return def }

func (m *RecordingContext) Cookie(cookie *router.Cookie) {
	m.SetCookies = append(m.SetCookies, cookie)
	m.CookieJar[cookie.Name] = cookie.Value
}

func (m *RecordingContext) Cookies(key string, defaultValue ...string) string {
	if v, ok := m.CookieJar[key]; ok && v != "" {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *RecordingContext) Param(key string, defaultValue ...string) string {
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *RecordingContext) ParamsInt(key string, def int) int   { return def }
func (m *RecordingContext) Query(key string, def string) string { return def }
func (m *RecordingContext) QueryInt(key string, def int) int    { return def }
func (m *RecordingContext) Queries() map[string]string          { return nil }

func (m *RecordingContext) Locals(key any, value ...any) any { return nil }

func (m *RecordingContext) OriginalURL() string { return m.URL }

func (m *RecordingContext) OnNext(callback func() error) {}

func (m *RecordingContext) Referer() string { return "" }
