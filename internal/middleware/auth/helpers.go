package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/tekxchange/pkg/tokens"
)

const (
	ctxClaims = "claims"
	ctxUserID = "user_id"
	ctxRole   = "role"
)

func setUserContext(c echo.Context, claims *tokens.AccessClaims) {
	c.Set(ctxClaims, claims)
	c.Set(ctxUserID, claims.ID)
	c.Set(ctxRole, claims.Role)
}

func ClaimsFrom(c echo.Context) (*tokens.AccessClaims, bool) {
	claims, ok := c.Get(ctxClaims).(*tokens.AccessClaims)
	return claims, ok && claims != nil
}
