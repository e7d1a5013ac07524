package session

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Fiber adapters for applications mounting the console directly on a fiber
// app instead of the router abstraction. Same decision core, same outcomes.

// RequireAuthFiber gates a fiber route on an authenticated session.
func RequireAuthFiber(m *Manager, cfg ...GuardConfig) fiber.Handler {
	return fiberGuard(m, GuardRequirement{}, pick(cfg))
}

// RequireRolesFiber gates a fiber route on an allow-set of roles.
func RequireRolesFiber(m *Manager, allowed []Role, cfg ...GuardConfig) fiber.Handler {
	return fiberGuard(m, GuardRequirement{AllowedRoles: allowed}, pick(cfg))
}

func fiberGuard(m *Manager, req GuardRequirement, cfg GuardConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch Decide(m.Current(), req) {
		case DecisionAllow:
			return c.Next()

		case DecisionLoading:
			c.Set("Retry-After", "1")
			return c.Status(http.StatusServiceUnavailable).
				SendString("session is still loading")

		case DecisionRedirectForbidden:
			cfg.Logger.Info("role denied", "path", c.Path(), "role", roleOf(m))
			return c.Redirect(cfg.ForbiddenPath, http.StatusFound)

		default:
			c.Cookie(&fiber.Cookie{
				Name:     cfg.RejectedRouteKey,
				Value:    c.OriginalURL(),
				Expires:  time.Now().Add(time.Minute * 5),
				HTTPOnly: true,
				Secure:   true,
				SameSite: "Lax",
			})
			return c.Redirect(cfg.LoginPath, http.StatusFound)
		}
	}
}

// ConsoleGroups are the role-gated route groups of the console, ready for
// the caller to attach handlers to.
type ConsoleGroups struct {
	Admin      fiber.Router
	Teacher    fiber.Router
	Learner    fiber.Router
	Compliance fiber.Router
}

// MountConsoleGuards applies the standard dashboard gating to a fiber app:
// every group gets the auth gate plus its role allow-set, composed the way
// the console expects them (auth outward of role).
func MountConsoleGuards(app fiber.Router, m *Manager, cfg ...GuardConfig) ConsoleGroups {
	conf := pick(cfg)

	return ConsoleGroups{
		Admin:      app.Group("/admin", RequireAuthFiber(m, conf), RequireRolesFiber(m, AdminRoles(), conf)),
		Teacher:    app.Group("/teacher", RequireAuthFiber(m, conf), RequireRolesFiber(m, []Role{RoleTeacher, RoleAdmin, RoleSuperAdmin}, conf)),
		Learner:    app.Group("/student", RequireAuthFiber(m, conf), RequireRolesFiber(m, LearnerRoles(), conf)),
		Compliance: app.Group("/compliance", RequireAuthFiber(m, conf), RequireRolesFiber(m, []Role{RoleCompliance, RoleSuperAdmin}, conf)),
	}
}
