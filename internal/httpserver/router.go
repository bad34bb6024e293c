package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/tekxchange/internal/domain"
	"github.com/Skotchmaster/tekxchange/internal/metrics"
	authmw "github.com/Skotchmaster/tekxchange/internal/middleware/auth"
	"github.com/Skotchmaster/tekxchange/pkg/logging"
)

// Checker is one dependency probed by /health/ready.
type Checker struct {
	Name string
	Ping func(ctx context.Context) error
}

type Deps struct {
	AuthHandler *AuthHTTP
	Metrics     *metrics.Metrics
	Readiness   []Checker
}

func Register(e *echo.Echo, d *Deps) {
	if d.Metrics != nil {
		e.Use(RequestMetrics(d.Metrics))
		e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))
	}

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", ready(d.Readiness))

	authMw := authmw.NewSimpleAuth(d.AuthHandler.Svc)

	g := e.Group("/auth")
	g.POST("/register", d.AuthHandler.Register)
	g.POST("/login", d.AuthHandler.Login)
	g.GET("/refresh", d.AuthHandler.Refresh)
	g.GET("/revoke_token", d.AuthHandler.Revoke, authMw.RequireAuth)
	g.GET("/me", d.AuthHandler.Me, authMw.RequireAuth)

	e.GET("/users/:id", d.AuthHandler.GetUser,
		authMw.RequireAuth,
		authmw.RequireRole(domain.RoleModerator, domain.RoleAdmin),
	)
}

func ready(checks []Checker) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
		defer cancel()

		status := make(map[string]string, len(checks))
		healthy := true
		for _, ch := range checks {
			if err := ch.Ping(ctx); err != nil {
				logging.FromContext(ctx).Warn("readiness_failed", "dependency", ch.Name, "error", err)
				status[ch.Name] = "down"
				healthy = false
				continue
			}
			status[ch.Name] = "up"
		}

		if !healthy {
			return c.JSON(http.StatusServiceUnavailable, status)
		}
		return c.JSON(http.StatusOK, status)
	}
}

// RequestMetrics records one observation per request, labelled by route
// pattern rather than raw path.
func RequestMetrics(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			code := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					code = he.Code
				} else if !c.Response().Committed {
					code = http.StatusInternalServerError
				}
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.HTTPRequests.WithLabelValues(c.Request().Method, route, strconv.Itoa(code)).Inc()
			m.HTTPDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
