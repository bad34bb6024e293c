package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/tekxchange/internal/config"
	"github.com/Skotchmaster/tekxchange/internal/hash"
	"github.com/Skotchmaster/tekxchange/internal/httpserver"
	"github.com/Skotchmaster/tekxchange/internal/metrics"
	"github.com/Skotchmaster/tekxchange/internal/mykafka"
	"github.com/Skotchmaster/tekxchange/internal/refresh"
	"github.com/Skotchmaster/tekxchange/internal/repo"
	"github.com/Skotchmaster/tekxchange/internal/service"
	"github.com/Skotchmaster/tekxchange/pkg/cache"
	pkgdb "github.com/Skotchmaster/tekxchange/pkg/db"
	"github.com/Skotchmaster/tekxchange/pkg/logging"
	loggingmw "github.com/Skotchmaster/tekxchange/pkg/middleware/logging"
	"github.com/Skotchmaster/tekxchange/pkg/tokens"
)

func main() {
	if err := run(); err != nil {
		slog.Error("auth_exit", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	l := logging.New(cfg.LogLevel).With("service", "auth")
	slog.SetDefault(l)

	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := pkgdb.Open(initCtx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pkgdb.Close(db)
	if err := repo.Migrate(db); err != nil {
		return err
	}
	gormRepo := repo.New(db)

	rdb, err := cache.Open(initCtx, cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	keys, err := tokens.LoadOrCreateKeyPair(cfg.KeyPath, tokens.KeyOptions{
		AllowRegenerate: cfg.KeyAllowRegenerate,
		Logger:          l,
	})
	if err != nil {
		return err
	}

	hasher, err := hash.New(cfg.HashParams())
	if err != nil {
		return err
	}

	var events mykafka.Publisher = mykafka.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		p, err := mykafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaUserTopic)
		if err != nil {
			return err
		}
		events = mykafka.NewAsyncPublisher(p, mykafka.DefaultQueueSize, l)
	} else {
		l.Warn("kafka_disabled", "reason", "KAFKA_BROKERS is empty")
	}
	defer events.Close()

	m := metrics.New()

	authSvc := &service.AuthService{
		Users:            gormRepo,
		Hasher:           hasher,
		Tokens:           tokens.NewAuthority(keys),
		Refresh:          refresh.NewStore(refresh.NewRedisCache(rdb, cfg.RefreshKeyPrefix, cfg.RefreshCacheTTL), gormRepo),
		Events:           events,
		Metrics:          m,
		AccessTTL:        cfg.AccessTTL,
		RefreshTolerance: cfg.RefreshTolerance,
	}
	userSvc := &service.UserService{
		Repo:    gormRepo,
		Hasher:  hasher,
		Events:  events,
		Metrics: m,
	}

	if cfg.SeedAdmin() {
		if err := userSvc.EnsureAdmin(logging.IntoContext(initCtx, l), cfg.AdminEmail, cfg.AdminPassword); err != nil {
			return err
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(loggingmw.RequestLogger(l))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{
			Svc:   authSvc,
			Users: userSvc,
			Cookie: httpserver.CookieConfig{
				Secure: cfg.CookieSecure,
				TTL:    cfg.RefreshCookieTTL,
			},
		},
		Metrics: m,
		Readiness: []httpserver.Checker{
			{Name: "db", Ping: gormRepo.Ping},
			{Name: "redis", Ping: func(ctx context.Context) error { return cache.Ping(ctx, rdb) }},
		},
	})

	errCh := make(chan error, 1)
	go func() {
		l.Info("http_listen", "addr", cfg.HTTPAddr)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-stop:
		l.Info("shutdown", "signal", sig.String())
	case err := <-errCh:
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		l.Error("echo_shutdown", "error", err)
	}
	return nil
}
