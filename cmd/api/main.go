package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/blogauth/auth-service/internal/api/dto"
	httptransport "github.com/blogauth/auth-service/internal/api/http"
	"github.com/blogauth/auth-service/internal/api/http/handlers"
	"github.com/blogauth/auth-service/internal/auth"
	"github.com/blogauth/auth-service/internal/config"
	"github.com/blogauth/auth-service/internal/events"
	"github.com/blogauth/auth-service/internal/observability"
	"github.com/blogauth/auth-service/internal/persistence"
	"github.com/blogauth/auth-service/internal/repository"
	"github.com/blogauth/auth-service/internal/secrets"
	"github.com/blogauth/auth-service/internal/service"
	"github.com/blogauth/auth-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	key, err := secrets.Load(cfg.Auth.SecretFile, cfg.Auth.Secret)
	if err != nil {
		logger.Fatal("failed to load token secret", zap.Error(err))
	}
	defer key.Destroy()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	tokens, err := auth.NewTokenManager(key.Bytes(), cfg.Auth.TokenTimeout(), auth.SystemClock{})
	if err != nil {
		logger.Fatal("failed to init token manager", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	userRepo := repository.NewUserRepository(pg.PoolHandle())
	userLookup := repository.NewCachedUserLookup(userRepo, redis.ClientHandle(), cfg.Auth.UserCacheTTL(), logger)

	authService := service.NewAuthService(service.AuthOptions{
		BcryptCost:         cfg.Auth.BcryptCost,
		RegisterAccessCode: cfg.Auth.RegisterAccessCode,
	}, service.AuthDependencies{
		UserRepo:   userRepo,
		UserCache:  userLookup,
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	authMiddleware := auth.NewAuthMiddleware(tokens, userLookup,
		auth.WithLogger(logger),
		auth.WithOutcomeRecorder(metrics),
		auth.WithRejectHook(authService.TokenRejected),
	)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	deps := map[string]handlers.Pinger{"postgres": pg, "redis": nil}
	if redis != nil {
		deps["redis"] = redis
	}

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Metrics:        handlers.NewMetricsHandler(metrics),
		Auth:           handlers.NewAuthHandler(authService, dto.NewValidator()),
		AuthMiddleware: authMiddleware,
	})

	logger.Info("starting auth service",
		zap.String("addr", cfg.App.Addr()),
		zap.Duration("token_timeout", tokens.Timeout()),
	)
	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
