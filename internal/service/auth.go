package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Skotchmaster/tekxchange/internal/domain"
	"github.com/Skotchmaster/tekxchange/internal/metrics"
	"github.com/Skotchmaster/tekxchange/internal/models"
	"github.com/Skotchmaster/tekxchange/internal/mykafka"
	"github.com/Skotchmaster/tekxchange/internal/repo"
	"github.com/Skotchmaster/tekxchange/pkg/logging"
	"github.com/Skotchmaster/tekxchange/pkg/tokens"
)

const (
	DefaultAccessTTL        = 15 * time.Minute
	DefaultRefreshTolerance = 7 * 24 * time.Hour
)

type UserReader interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type PasswordVerifier interface {
	Verify(encoded, candidate string) (bool, error)
}

type RefreshStore interface {
	GetOrCreate(ctx context.Context, userID int64) (string, error)
	Validate(ctx context.Context, userID int64) (string, bool, error)
	Revoke(ctx context.Context, userID int64) error
}

// AuthService holds no per-request state; one value serves every request.
type AuthService struct {
	Users   UserReader
	Hasher  PasswordVerifier
	Tokens  *tokens.Authority
	Refresh RefreshStore
	Events  mykafka.Publisher
	Metrics *metrics.Metrics

	// AccessTTL falls back to DefaultAccessTTL when zero.
	AccessTTL time.Duration
	// RefreshTolerance is how long past expiry an access token may still be
	// exchanged for a new one.
	RefreshTolerance time.Duration
}

// Credentials carries exactly one of Username or Email.
type Credentials struct {
	Username string
	Email    string
	Password string
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	UserID       int64
	Username     string
	Role         domain.Role
}

func (s *AuthService) accessTTL() time.Duration {
	if s.AccessTTL > 0 {
		return s.AccessTTL
	}
	return DefaultAccessTTL
}

func (s *AuthService) refreshTolerance() time.Duration {
	if s.RefreshTolerance > 0 {
		return s.RefreshTolerance
	}
	return DefaultRefreshTolerance
}

func (s *AuthService) Login(ctx context.Context, cred Credentials) (res *LoginResult, err error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")
	defer func() {
		if s.Metrics != nil {
			s.Metrics.Logins.WithLabelValues(metrics.Outcome(err)).Inc()
		}
	}()

	user, err := s.lookup(ctx, cred)
	if err != nil {
		switch {
		case errors.Is(err, ErrUserNotFound):
			l.Warn("login_failed", "status", 404, "reason", "user not found")
		case errors.Is(err, ErrValidation):
			l.Warn("login_failed", "status", 400, "reason", "exactly one of username or email is required")
		default:
			l.Error("login_failed", "status", 500, "reason", "cannot load user", "error", err)
		}
		return nil, err
	}
	l = l.With("user_id", user.ID)

	role, err := domain.RoleFromInt(user.Role)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "stored role is invalid", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	ok, err := s.Hasher.Verify(user.PasswordHash, cred.Password)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "stored password hash is invalid", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !ok {
		l.Warn("login_failed", "status", 401, "reason", "invalid password")
		return nil, ErrInvalidPassword
	}

	refresh, err := s.Refresh.GetOrCreate(ctx, user.ID)
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot issue refresh token", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	access, exp, err := s.Tokens.Sign(tokens.NewAccessClaims(user.ID, user.Username, role), s.accessTTL())
	if err != nil {
		l.Error("login_failed", "status", 500, "reason", "cannot sign access token", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	s.publish(ctx, mykafka.NewUserEvent("user_logged_in", user.ID, user.Username))
	l.Info("login_successful")

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    exp,
		UserID:       user.ID,
		Username:     user.Username,
		Role:         role,
	}, nil
}

func (s *AuthService) lookup(ctx context.Context, cred Credentials) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	switch {
	case cred.Username == "" && cred.Email == "":
		return nil, ErrUserNotFound
	case cred.Username != "" && cred.Email != "":
		return nil, ErrValidation
	case cred.Username != "":
		user, err = s.Users.GetUserByUsername(ctx, cred.Username)
	default:
		user, err = s.Users.GetUserByEmail(ctx, cred.Email)
	}

	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return user, nil
}

// Refresh mints a new access token from accessToken, which may be expired by
// up to RefreshTolerance. The refresh token is returned unchanged.
func (s *AuthService) Refresh(ctx context.Context, accessToken, refreshToken string) (res *LoginResult, err error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")
	defer func() {
		if s.Metrics != nil {
			s.Metrics.Refreshes.WithLabelValues(metrics.Outcome(err)).Inc()
		}
	}()

	if refreshToken == "" {
		l.Warn("refresh_failed", "status", 401, "reason", "no refresh token presented")
		return nil, ErrMissingRefreshToken
	}

	claims, err := s.Tokens.Verify(accessToken, s.refreshTolerance())
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "reason", "access token rejected", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	l = l.With("user_id", claims.ID)

	stored, ok, err := s.Refresh.Validate(ctx, claims.ID)
	if err != nil {
		l.Error("refresh_failed", "status", 500, "reason", "cannot read refresh token", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if !ok || subtle.ConstantTimeCompare([]byte(stored), []byte(refreshToken)) != 1 {
		l.Warn("refresh_failed", "status", 401, "reason", "refresh token absent or mismatched")
		return nil, ErrMissingRefreshToken
	}

	access, exp, err := s.Tokens.Sign(tokens.NewAccessClaims(claims.ID, claims.Username, claims.Role), s.accessTTL())
	if err != nil {
		l.Error("refresh_failed", "status", 500, "reason", "cannot sign access token", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	l.Info("refresh_successful")
	return &LoginResult{
		AccessToken:  access,
		RefreshToken: stored,
		AccessExp:    exp,
		UserID:       claims.ID,
		Username:     claims.Username,
		Role:         claims.Role,
	}, nil
}

func (s *AuthService) Revoke(ctx context.Context, userID int64) error {
	l := logging.FromContext(ctx).With("svc", "auth.revoke", "user_id", userID)

	if err := s.Refresh.Revoke(ctx, userID); err != nil {
		l.Error("revoke_failed", "status", 500, "reason", "cannot revoke refresh token", "error", err)
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
	if s.Metrics != nil {
		s.Metrics.Revocations.Inc()
	}

	s.publish(ctx, mykafka.NewUserEvent("user_logged_out", userID, ""))
	l.Info("revoke_successful")
	return nil
}

// Authenticate verifies accessToken with no tolerance.
func (s *AuthService) Authenticate(_ context.Context, accessToken string) (*tokens.AccessClaims, error) {
	if accessToken == "" {
		return nil, ErrInvalidToken
	}
	claims, err := s.Tokens.Verify(accessToken, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}

func (s *AuthService) publish(ctx context.Context, ev mykafka.UserEvent) {
	publishEvent(ctx, s.Events, ev)
}

func publishEvent(ctx context.Context, p mykafka.Publisher, ev mykafka.UserEvent) {
	if p == nil {
		return
	}
	if err := p.PublishEvent(ctx, strconv.FormatInt(ev.UserID, 10), ev); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", ev.Type, "user_id", ev.UserID, "error", err)
	}
}
