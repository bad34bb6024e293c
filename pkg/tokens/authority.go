package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultValidity applies when SignDefault is used.
const DefaultValidity = 7 * 24 * time.Hour

var ErrInvalidToken = errors.New("invalid token")

// Authority signs and verifies access tokens with one ed25519 key pair. It
// holds no mutable state, so one value is shared by every request.
type Authority struct {
	keys *KeyPair
	now  func() time.Time
}

func NewAuthority(keys *KeyPair) *Authority {
	return &Authority{keys: keys, now: time.Now}
}

// WithClock returns a copy of a that reads time from now.
func (a *Authority) WithClock(now func() time.Time) *Authority {
	return &Authority{keys: a.keys, now: now}
}

func (a *Authority) SignDefault(claims AccessClaims) (string, time.Time, error) {
	return a.Sign(claims, DefaultValidity)
}

// Sign embeds claims with iat = now and exp = now + validity. A zero
// validity yields a token that is already expired unless verified with a
// tolerance.
func (a *Authority) Sign(claims AccessClaims, validity time.Duration) (string, time.Time, error) {
	if validity < 0 {
		return "", time.Time{}, fmt.Errorf("negative validity %s", validity)
	}
	if !claims.Role.Valid() {
		return "", time.Time{}, fmt.Errorf("sign: invalid role %d", int16(claims.Role))
	}

	issuedAt := jwt.NewNumericDate(a.now())
	expiresAt := jwt.NewNumericDate(issuedAt.Add(validity))
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := tok.SignedString(a.keys.Private)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt.Time, nil
}

// Verify checks the signature, then that now < exp + tolerance. Every
// failure wraps ErrInvalidToken.
func (a *Authority) Verify(tokenStr string, tolerance time.Duration) (*AccessClaims, error) {
	if tolerance < 0 {
		tolerance = 0
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(tolerance),
		jwt.WithTimeFunc(a.now),
	)

	var claims AccessClaims
	tkn, err := parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodEdDSA.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.keys.Public, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !tkn.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// IsExpired reports whether err came from an otherwise valid token whose
// expiry (plus tolerance) has passed.
func IsExpired(err error) bool {
	return errors.Is(err, ErrInvalidToken) && errors.Is(err, jwt.ErrTokenExpired)
}
