package service

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/tekxchange/internal/domain"
	"github.com/Skotchmaster/tekxchange/internal/hash"
	"github.com/Skotchmaster/tekxchange/internal/metrics"
	"github.com/Skotchmaster/tekxchange/internal/models"
	"github.com/Skotchmaster/tekxchange/internal/mykafka"
	"github.com/Skotchmaster/tekxchange/internal/refresh"
	"github.com/Skotchmaster/tekxchange/internal/repo"
	"github.com/Skotchmaster/tekxchange/internal/testsupport"
	"github.com/Skotchmaster/tekxchange/pkg/tokens"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishEvent(_ context.Context, _ string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev, ok := event.(mykafka.UserEvent); ok {
		p.events = append(p.events, ev.Type)
	}
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

type env struct {
	mr      *miniredis.Miniredis
	repo    *repo.GormRepo
	hasher  *hash.Argon2
	keys    *tokens.KeyPair
	store   *refresh.Store
	events  *recordingPublisher
	metrics *metrics.Metrics
	auth    *AuthService
	users   *UserService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	mr, client := testsupport.NewRedis(t)
	r := testsupport.NewRepo(t)

	hasher, err := hash.New(hash.Params{MemoryKiB: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	require.NoError(t, err)
	keys, err := tokens.GenerateKeyPair()
	require.NoError(t, err)

	store := refresh.NewStore(refresh.NewRedisCache(client, "", 0), r)
	events := &recordingPublisher{}
	m := metrics.New()

	return &env{
		mr:      mr,
		repo:    r,
		hasher:  hasher,
		keys:    keys,
		store:   store,
		events:  events,
		metrics: m,
		auth: &AuthService{
			Users:   r,
			Hasher:  hasher,
			Tokens:  tokens.NewAuthority(keys),
			Refresh: store,
			Events:  events,
			Metrics: m,
		},
		users: &UserService{Repo: r, Hasher: hasher, Events: events, Metrics: m},
	}
}

// seedUser stores a user directly so short passwords can be used.
func (e *env) seedUser(t *testing.T, username, email, password string, role domain.Role) *models.User {
	t.Helper()
	pwHash, err := e.hasher.Hash(password)
	require.NoError(t, err)
	u := &models.User{Username: username, Email: email, PasswordHash: pwHash, Role: int16(role)}
	require.NoError(t, e.repo.CreateUser(context.Background(), u))
	return u
}
