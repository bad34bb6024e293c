package tokens

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/Skotchmaster/tekxchange/internal/domain"
)

// AccessClaims is the identity embedded in an access token. It is never
// persisted and lives only as long as the token string that carries it.
type AccessClaims struct {
	ID       int64       `json:"id"`
	Username string      `json:"username"`
	Role     domain.Role `json:"role"`
	jwt.RegisteredClaims
}

func NewAccessClaims(id int64, username string, role domain.Role) AccessClaims {
	return AccessClaims{ID: id, Username: username, Role: role}
}
