package tokens

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/tekxchange/internal/domain"
)

func newTestAuthority(t *testing.T) *Authority {
	t.Helper()
	kp, err := GenerateKeyPair()
	require.NoError(t, err)
	return NewAuthority(kp)
}

func TestAuthority_SignVerify_ReturnsClaims(t *testing.T) {
	t.Parallel()

	a := newTestAuthority(t)
	token, exp, err := a.SignDefault(NewAccessClaims(1, "joe", domain.RoleUser))
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(DefaultValidity), exp, 2*time.Second)

	claims, err := a.Verify(token, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claims.ID)
	assert.Equal(t, "joe", claims.Username)
	assert.Equal(t, domain.RoleUser, claims.Role)
	require.NotNil(t, claims.IssuedAt)
	require.NotNil(t, claims.ExpiresAt)
	assert.Equal(t, exp.Unix(), claims.ExpiresAt.Unix())
}

func TestAuthority_ZeroValidity_NeedsTolerance(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	signer := newTestAuthority(t).WithClock(func() time.Time { return base })
	token, _, err := signer.Sign(NewAccessClaims(7, "ann", domain.RoleAdmin), 0)
	require.NoError(t, err)

	later := signer.WithClock(func() time.Time { return base.Add(time.Second) })

	_, err = later.Verify(token, 0)
	require.ErrorIs(t, err, ErrInvalidToken)
	assert.True(t, IsExpired(err))

	claims, err := later.Verify(token, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestAuthority_ToleranceBoundary(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	signer := newTestAuthority(t).WithClock(func() time.Time { return base })
	token, _, err := signer.Sign(NewAccessClaims(7, "ann", domain.RoleUser), time.Minute)
	require.NoError(t, err)

	week := 7 * 24 * time.Hour
	atEdge := signer.WithClock(func() time.Time { return base.Add(time.Minute + week - time.Second) })
	_, err = atEdge.Verify(token, week)
	require.NoError(t, err)

	past := signer.WithClock(func() time.Time { return base.Add(time.Minute + week + 2*time.Second) })
	_, err = past.Verify(token, week)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthority_SignIsDeterministic(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	a := newTestAuthority(t).WithClock(func() time.Time { return base })
	c := NewAccessClaims(3, "kim", domain.RoleModerator)

	t1, _, err := a.Sign(c, time.Hour)
	require.NoError(t, err)
	t2, _, err := a.Sign(c, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, t1, t2)
}

func TestAuthority_RejectsForeignKey(t *testing.T) {
	t.Parallel()

	token, _, err := newTestAuthority(t).SignDefault(NewAccessClaims(1, "joe", domain.RoleUser))
	require.NoError(t, err)

	_, err = newTestAuthority(t).Verify(token, 0)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.False(t, IsExpired(err))
}

func TestAuthority_RejectsTamperedPayload(t *testing.T) {
	t.Parallel()

	a := newTestAuthority(t)
	token, _, err := a.SignDefault(NewAccessClaims(1, "joe", domain.RoleUser))
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	forged := strings.Replace(string(payload), `"role":1`, `"role":4`, 1)
	require.NotEqual(t, string(payload), forged)
	parts[1] = base64.RawURLEncoding.EncodeToString([]byte(forged))

	_, err = a.Verify(strings.Join(parts, "."), 0)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthority_RejectsGarbageAndOtherAlgorithms(t *testing.T) {
	t.Parallel()

	a := newTestAuthority(t)
	for _, tok := range []string{"", "abc", "a.b.c"} {
		_, err := a.Verify(tok, 0)
		assert.ErrorIs(t, err, ErrInvalidToken, tok)
	}

	hs := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		ID: 1, Username: "joe", Role: domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	signed, err := hs.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = a.Verify(signed, 0)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthority_RejectsUnknownRoleAndMissingExpiry(t *testing.T) {
	t.Parallel()

	a := newTestAuthority(t)

	bad := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.MapClaims{
		"id": 1, "username": "joe", "role": 3, "exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := bad.SignedString(a.keys.Private)
	require.NoError(t, err)
	_, err = a.Verify(signed, 0)
	assert.ErrorIs(t, err, ErrInvalidToken)

	noExp := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.MapClaims{"id": 1, "username": "joe", "role": 1})
	signed, err = noExp.SignedString(a.keys.Private)
	require.NoError(t, err)
	_, err = a.Verify(signed, 0)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = a.Sign(NewAccessClaims(1, "joe", domain.Role(6)), time.Hour)
	assert.Error(t, err)
	_, _, err = a.Sign(NewAccessClaims(1, "joe", domain.RoleUser), -time.Second)
	assert.Error(t, err)
}
