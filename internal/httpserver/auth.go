package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	authmw "github.com/Skotchmaster/tekxchange/internal/middleware/auth"
	"github.com/Skotchmaster/tekxchange/internal/service"
	"github.com/Skotchmaster/tekxchange/internal/transport"
	"github.com/Skotchmaster/tekxchange/pkg/logging"
)

type AuthHTTP struct {
	Svc    *service.AuthService
	Users  *service.UserService
	Cookie CookieConfig
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req transport.RegisterRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Users.Register(ctx, service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusCreated, transport.NewUserResponse(user))
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req transport.LoginRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	res, err := h.Svc.Login(ctx, service.Credentials{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return httpError(err)
	}

	c.SetCookie(h.Cookie.refreshCookie(res.RefreshToken))
	return c.JSON(http.StatusOK, transport.TokenResponse{JWT: res.AccessToken})
}

// Refresh takes the possibly expired access token from the Authorization
// header and the refresh token from its cookie.
func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	access, ok := authmw.BearerToken(c)
	if !ok {
		l.Warn("refresh_error", "status", 401, "reason", "missing access token")
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	var refresh string
	if ck, err := c.Cookie(RefreshCookieName); err == nil {
		refresh = ck.Value
	}

	res, err := h.Svc.Refresh(ctx, access, refresh)
	if err != nil {
		if errors.Is(err, service.ErrMissingRefreshToken) {
			c.SetCookie(h.Cookie.clearRefreshCookie())
		}
		return httpError(err)
	}

	c.SetCookie(h.Cookie.refreshCookie(res.RefreshToken))
	return c.JSON(http.StatusOK, transport.TokenResponse{JWT: res.AccessToken})
}

func (h *AuthHTTP) Revoke(c echo.Context) error {
	ctx := c.Request().Context()

	claims, ok := authmw.ClaimsFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	if err := h.Svc.Revoke(ctx, claims.ID); err != nil {
		return httpError(err)
	}

	c.SetCookie(h.Cookie.clearRefreshCookie())
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHTTP) Me(c echo.Context) error {
	claims, ok := authmw.ClaimsFrom(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}
	return c.JSON(http.StatusOK, transport.NewMeResponse(claims))
}

func (h *AuthHTTP) GetUser(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		logging.FromContext(ctx).Warn("get_user_error", "status", 400, "reason", "invalid id", "id", c.Param("id"))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	user, err := h.Users.GetUser(ctx, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, transport.NewUserResponse(user))
}
