package entitlementengine

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/creatorhub-kr/entitlement-engine/internal/cache"
	"github.com/creatorhub-kr/entitlement-engine/internal/config"
	"github.com/creatorhub-kr/entitlement-engine/internal/lib/jwt"
	"github.com/creatorhub-kr/entitlement-engine/internal/lib/rabbitmq"
	"github.com/creatorhub-kr/entitlement-engine/internal/migrations"
	authservice "github.com/creatorhub-kr/entitlement-engine/internal/services/auth"
	entitlementservice "github.com/creatorhub-kr/entitlement-engine/internal/services/entitlement"
	quotaservice "github.com/creatorhub-kr/entitlement-engine/internal/services/quota"
	sessionservice "github.com/creatorhub-kr/entitlement-engine/internal/services/session"
	tierservice "github.com/creatorhub-kr/entitlement-engine/internal/services/tier"
	"github.com/creatorhub-kr/entitlement-engine/internal/storage/repository"
)

// App — HTTP-приложение движка подписок.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New собирает приложение: хранилище, кеш, брокер, сервисы и маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.ConnectionString, cfg.RabbitMQ.ConnectRetries, cfg.RabbitMQ.ConnectDelay)
	if err != nil {
		return nil, err
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.GetNotificationQueues())
	if err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			logger.Error("failed to close RabbitMQ connection", slog.Any("err", closeErr))
		}
		return nil, err
	}
	publisher := rabbitmq.NewPublisher(ch)

	jwtMaker := jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)

	resolver := tierservice.NewResolver(db)
	binder := sessionservice.NewBinder(db, cacheRedis, logger)
	mutator := entitlementservice.NewMutator(db, publisher, logger)
	accountant := quotaservice.NewAccountant(db, resolver, logger)
	auth := authservice.NewAuthService(db, binder, mutator, jwtMaker, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Services{
		Auth:       auth,
		Mutator:    mutator,
		Accountant: accountant,
		Binder:     binder,
		Resolver:   resolver,
		Flags:      cacheRedis,
		ReadyCheck: func() error { return repository.CheckDatabaseReady(db) },
		JWTMaker:   jwtMaker,
	})

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его по отмене контекста.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		if closeErr := a.ch.Close(); closeErr != nil {
			a.logger.Error("failed to close channel", slog.Any("err", closeErr))
		}
		if closeErr := a.conn.Close(); closeErr != nil {
			a.logger.Error("failed to close connection", slog.Any("err", closeErr))
		}
		if closeErr := a.db.DB.Close(); closeErr != nil {
			a.logger.Error("failed to close storage", slog.Any("err", closeErr))
		}
		return err
	}
}
