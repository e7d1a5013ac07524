package session

import (
	"net/http"
	"time"

	"github.com/goliatone/go-router"
)

// Decision is the outcome of evaluating a guard against the current session.
type Decision int

const (
	// DecisionLoading means bootstrap has not settled; show a placeholder,
	// never a redirect.
	DecisionLoading Decision = iota
	// DecisionAllow renders the protected content.
	DecisionAllow
	// DecisionRedirectLogin means there is no authenticated user.
	DecisionRedirectLogin
	// DecisionRedirectForbidden means the user is known but the role is not
	// in the allow-set, or is not a role this client recognizes at all.
	DecisionRedirectForbidden
)

// GuardRequirement is the static configuration of a gate. An empty
// AllowedRoles set gates on authentication only.
type GuardRequirement struct {
	AllowedRoles []Role
}

// Decide is the pure decision core both middlewares and the fiber adapter
// share. It never errors: every session state maps to exactly one outcome.
func Decide(snap Snapshot, req GuardRequirement) Decision {
	if snap.IsLoadingAuth {
		return DecisionLoading
	}
	if !snap.IsAuthenticated || snap.User == nil {
		return DecisionRedirectLogin
	}
	if len(req.AllowedRoles) == 0 {
		return DecisionAllow
	}
	if snap.Role().OneOf(req.AllowedRoles...) {
		return DecisionAllow
	}
	return DecisionRedirectForbidden
}

// GuardConfig carries the routes and cookie key guards redirect through.
type GuardConfig struct {
	LoginPath        string
	ForbiddenPath    string
	RejectedRouteKey string
	Logger           Logger
}

func (g GuardConfig) withDefaults() GuardConfig {
	if g.LoginPath == "" {
		g.LoginPath = "/login"
	}
	if g.ForbiddenPath == "" {
		g.ForbiddenPath = "/403"
	}
	if g.RejectedRouteKey == "" {
		g.RejectedRouteKey = "rejected_route"
	}
	if g.Logger == nil {
		g.Logger = defLogger{}
	}
	return g
}

// RequireAuth gates a route on an authenticated session. While bootstrap is
// in flight it answers 503 with Retry-After instead of guessing; an
// unauthenticated visitor is sent to the login page with the requested URL
// preserved so login can return them there.
func RequireAuth(m *Manager, cfg ...GuardConfig) router.MiddlewareFunc {
	return requireGuard(m, GuardRequirement{}, pick(cfg))
}

// RequireRoles gates a route on an allow-set of roles. Compose it inside
// RequireAuth; when no user is present it sends the visitor to login rather
// than the forbidden page.
func RequireRoles(m *Manager, allowed []Role, cfg ...GuardConfig) router.MiddlewareFunc {
	return requireGuard(m, GuardRequirement{AllowedRoles: allowed}, pick(cfg))
}

func pick(cfg []GuardConfig) GuardConfig {
	if len(cfg) > 0 {
		return cfg[0].withDefaults()
	}
	return GuardConfig{}.withDefaults()
}

func requireGuard(m *Manager, req GuardRequirement, cfg GuardConfig) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			switch Decide(m.Current(), req) {
			case DecisionAllow:
				return next(ctx)

			case DecisionLoading:
				ctx.SetHeader("Retry-After", "1")
				return ctx.Status(http.StatusServiceUnavailable).
					SendString("session is still loading")

			case DecisionRedirectForbidden:
				cfg.Logger.Info("role denied", "path", ctx.Path(), "role", roleOf(m))
				return ctx.Redirect(cfg.ForbiddenPath, http.StatusFound)

			default:
				setRejectedRoute(ctx, cfg)
				return ctx.Redirect(cfg.LoginPath, http.StatusFound)
			}
		}
	}
}

// setRejectedRoute remembers the originally requested location in a
// short-lived cookie so the login flow can send the visitor back.
func setRejectedRoute(ctx router.Context, cfg GuardConfig) {
	ctx.Cookie(&router.Cookie{
		Name:     cfg.RejectedRouteKey,
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// ConsumeRejectedRoute pops the remembered location, falling back to def.
func ConsumeRejectedRoute(ctx router.Context, cfg GuardConfig, def string) string {
	cfg = cfg.withDefaults()
	r := ctx.Cookies(cfg.RejectedRouteKey)
	if r == "" {
		return def
	}
	ctx.Cookie(&router.Cookie{
		Name:    cfg.RejectedRouteKey,
		Value:   "",
		Expires: time.Now().Add(-time.Hour),
	})
	return r
}

func roleOf(m *Manager) Role {
	return m.Current().Role()
}
