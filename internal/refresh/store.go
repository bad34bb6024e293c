package refresh

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/Skotchmaster/tekxchange/internal/models"
	"github.com/Skotchmaster/tekxchange/internal/repo"
)

const (
	tokenBytes     = 32
	createAttempts = 3
)

var ErrUnavailable = errors.New("refresh store unavailable")

type Cache interface {
	Get(ctx context.Context, userID int64) (string, bool, error)
	Set(ctx context.Context, userID int64, token string) error
	Delete(ctx context.Context, userID int64) error
}

// Durable is the source of truth. InsertRefreshIfAbsent must return the row
// that is stored once the call completes, whoever inserted it.
type Durable interface {
	FindRefreshByUser(ctx context.Context, userID int64) (*models.RefreshToken, error)
	InsertRefreshIfAbsent(ctx context.Context, t *models.RefreshToken) (*models.RefreshToken, error)
	DeleteRefreshByUser(ctx context.Context, userID int64) error
}

// Store keeps one refresh token per user across the cache and the durable
// store. It is safe for concurrent use when both backends are.
type Store struct {
	cache    Cache
	durable  Durable
	newToken func() (string, error)
}

func NewStore(cache Cache, durable Durable) *Store {
	return &Store{cache: cache, durable: durable, newToken: NewToken}
}

// NewToken returns 256 random bits as unpadded base64url.
func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func (s *Store) GetOrCreate(ctx context.Context, userID int64) (string, error) {
	token, ok, err := s.Validate(ctx, userID)
	if err != nil {
		return "", err
	}
	if ok {
		return token, nil
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		candidate, err := s.newToken()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		stored, err := s.durable.InsertRefreshIfAbsent(ctx, &models.RefreshToken{Token: candidate, UserID: userID})
		if err != nil {
			return "", fmt.Errorf("%w: insert: %v", ErrUnavailable, err)
		}
		ok, err := s.writeBack(ctx, userID, stored.Token)
		if err != nil {
			return "", err
		}
		if ok {
			return stored.Token, nil
		}
	}
	return "", fmt.Errorf("%w: token revoked while being issued", ErrUnavailable)
}

// Validate never creates a row. A durable hit is copied back into the cache.
func (s *Store) Validate(ctx context.Context, userID int64) (string, bool, error) {
	token, ok, err := s.cache.Get(ctx, userID)
	if err != nil {
		return "", false, fmt.Errorf("%w: cache get: %v", ErrUnavailable, err)
	}
	if ok {
		return token, true, nil
	}

	row, err := s.durable.FindRefreshByUser(ctx, userID)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("%w: find: %v", ErrUnavailable, err)
	}

	ok, err = s.writeBack(ctx, userID, row.Token)
	if err != nil || !ok {
		return "", false, err
	}
	return row.Token, true, nil
}

// writeBack caches token and then confirms it against the durable row. If a
// Revoke removed or replaced the row in the meantime, the cache entry is
// dropped again and ok is false.
func (s *Store) writeBack(ctx context.Context, userID int64, token string) (bool, error) {
	if err := s.cache.Set(ctx, userID, token); err != nil {
		return false, fmt.Errorf("%w: cache set: %v", ErrUnavailable, err)
	}

	row, err := s.durable.FindRefreshByUser(ctx, userID)
	switch {
	case err == nil && row.Token == token:
		return true, nil
	case err != nil && !errors.Is(err, repo.ErrNotFound):
		_ = s.cache.Delete(ctx, userID)
		return false, fmt.Errorf("%w: find: %v", ErrUnavailable, err)
	}

	if err := s.cache.Delete(ctx, userID); err != nil {
		return false, fmt.Errorf("%w: cache delete: %v", ErrUnavailable, err)
	}
	return false, nil
}

// Revoke is idempotent. Durable rows go first so a failed cache delete can
// only leave an entry that expires with its TTL.
func (s *Store) Revoke(ctx context.Context, userID int64) error {
	if err := s.durable.DeleteRefreshByUser(ctx, userID); err != nil {
		return fmt.Errorf("%w: delete: %v", ErrUnavailable, err)
	}
	if err := s.cache.Delete(ctx, userID); err != nil {
		return fmt.Errorf("%w: cache delete: %v", ErrUnavailable, err)
	}
	return nil
}
