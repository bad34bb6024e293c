package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/Skotchmaster/tekxchange/internal/domain"
	"github.com/Skotchmaster/tekxchange/internal/metrics"
	"github.com/Skotchmaster/tekxchange/internal/models"
	"github.com/Skotchmaster/tekxchange/internal/mykafka"
	"github.com/Skotchmaster/tekxchange/internal/repo"
	"github.com/Skotchmaster/tekxchange/pkg/logging"
)

const (
	AdminUsername = "admin"

	minPasswordLen = 8
	maxPasswordLen = 128
	maxUsernameLen = 64
)

type UserRepo interface {
	UserReader
	CreateUser(ctx context.Context, u *models.User) error
	UpdateRole(ctx context.Context, id int64, role int16) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
}

type UserService struct {
	Repo    UserRepo
	Hasher  PasswordHasher
	Events  mykafka.Publisher
	Metrics *metrics.Metrics
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

func (in RegisterInput) validate() error {
	switch {
	case in.Username == "" || strings.TrimSpace(in.Username) != in.Username:
		return fmt.Errorf("%w: username is required and must not have surrounding spaces", ErrValidation)
	case utf8.RuneCountInString(in.Username) > maxUsernameLen:
		return fmt.Errorf("%w: username is longer than %d characters", ErrValidation, maxUsernameLen)
	case strings.Contains(in.Username, "@"):
		return fmt.Errorf("%w: username must not contain @", ErrValidation)
	}

	addr, err := mail.ParseAddress(in.Email)
	if err != nil || addr.Address != in.Email {
		return fmt.Errorf("%w: email is invalid", ErrValidation)
	}

	n := utf8.RuneCountInString(in.Password)
	if n < minPasswordLen || n > maxPasswordLen {
		return fmt.Errorf("%w: password must be %d to %d characters", ErrValidation, minPasswordLen, maxPasswordLen)
	}
	return nil
}

func (s *UserService) Register(ctx context.Context, in RegisterInput) (user *models.User, err error) {
	l := logging.FromContext(ctx).With("svc", "user.register", "username", in.Username)
	defer func() {
		if s.Metrics != nil {
			s.Metrics.Registrations.WithLabelValues(metrics.Outcome(err)).Inc()
		}
	}()

	if err := in.validate(); err != nil {
		l.Warn("register_error", "status", 422, "reason", err.Error())
		return nil, err
	}

	user, err = s.create(ctx, in, domain.RoleUser)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			l.Warn("register_error", "status", 409, "reason", "user already exist")
		} else {
			l.Error("register_error", "status", 500, "reason", "cannot create user", "error", err)
		}
		return nil, err
	}

	publishEvent(ctx, s.Events, mykafka.NewUserEvent("user_registered", user.ID, user.Username))
	l.Info("register_successful", "user_id", user.ID)
	return user, nil
}

func (s *UserService) create(ctx context.Context, in RegisterInput, role domain.Role) (*models.User, error) {
	pwHash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	user := &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: pwHash,
		Role:         int16(role),
	}
	if err := s.Repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return user, nil
}

// EnsureAdmin makes sure the admin account exists with the Admin role. An
// existing admin keeps its password.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) error {
	l := logging.FromContext(ctx).With("svc", "user.ensure_admin")

	existing, err := s.Repo.GetUserByUsername(ctx, AdminUsername)
	switch {
	case err == nil:
		if existing.Role == int16(domain.RoleAdmin) {
			return nil
		}
		if err := s.Repo.UpdateRole(ctx, existing.ID, int16(domain.RoleAdmin)); err != nil {
			l.Error("ensure_admin_failed", "reason", "cannot promote admin", "error", err)
			return fmt.Errorf("%w: %v", ErrInternal, err)
		}
		l.Warn("admin_promoted", "user_id", existing.ID)
		return nil
	case !errors.Is(err, repo.ErrNotFound):
		l.Error("ensure_admin_failed", "reason", "cannot load admin", "error", err)
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}

	in := RegisterInput{Username: AdminUsername, Email: email, Password: password}
	if err := in.validate(); err != nil {
		l.Error("ensure_admin_failed", "reason", err.Error())
		return err
	}
	user, err := s.create(ctx, in, domain.RoleAdmin)
	if err != nil {
		l.Error("ensure_admin_failed", "reason", "cannot create admin", "error", err)
		return err
	}
	l.Info("admin_created", "user_id", user.ID)
	return nil
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	user, err := s.Repo.GetUserByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		logging.FromContext(ctx).Error("get_user_failed", "user_id", id, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return user, nil
}
