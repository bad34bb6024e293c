package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/tekxchange/internal/domain"
	"github.com/Skotchmaster/tekxchange/pkg/logging"
	"github.com/Skotchmaster/tekxchange/pkg/tokens"
)

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*tokens.AccessClaims, error)
}

type SimpleAuth struct {
	Svc Authenticator
}

func NewSimpleAuth(svc Authenticator) *SimpleAuth {
	return &SimpleAuth{Svc: svc}
}

// RequireAuth accepts only an unexpired bearer access token.
func (m *SimpleAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		l := logging.FromContext(c.Request().Context())

		raw, ok := BearerToken(c)
		if !ok {
			l.Warn("auth_failed", "status", 401, "reason", "missing access token")
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := m.Svc.Authenticate(c.Request().Context(), raw)
		if err != nil {
			reason := "invalid token"
			if tokens.IsExpired(err) {
				reason = "access token expired"
			}
			l.Warn("auth_failed", "status", 401, "reason", reason, "error", err)
			return echo.NewHTTPError(http.StatusUnauthorized, reason)
		}

		setUserContext(c, claims)
		return next(c)
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(allowed ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
			}
			if !claims.Role.In(allowed...) {
				logging.FromContext(c.Request().Context()).Warn("auth_failed",
					"status", 403, "reason", "not enough rights", "user_id", claims.ID, "role", claims.Role.String())
				return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
			}
			return next(c)
		}
	}
}

// BearerToken reads "Authorization: Bearer <token>". A bare token without
// the scheme is accepted too.
func BearerToken(c echo.Context) (string, bool) {
	h := strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization))
	if h == "" {
		return "", false
	}
	if scheme, rest, found := strings.Cut(h, " "); found {
		if !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		h = strings.TrimSpace(rest)
	}
	return h, h != ""
}
