package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/library-service/internal/api/http"
	"github.com/spec-kit/library-service/internal/api/http/handlers"
	"github.com/spec-kit/library-service/internal/auth"
	"github.com/spec-kit/library-service/internal/cache"
	"github.com/spec-kit/library-service/internal/config"
	"github.com/spec-kit/library-service/internal/events"
	"github.com/spec-kit/library-service/internal/observability"
	"github.com/spec-kit/library-service/internal/persistence"
	"github.com/spec-kit/library-service/internal/repository"
	"github.com/spec-kit/library-service/internal/service"
	"github.com/spec-kit/library-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

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

	metrics := observability.NewMetrics()

	keys, err := auth.NewKeyMaterial(cfg.Auth.JWTSecret, cfg.Auth.JWTAlgorithm, cfg.Auth.AllowWeakSecret)
	if err != nil {
		logger.Fatal("invalid signing key", zap.Error(err))
	}
	codec, err := auth.NewCodec(keys, nil)
	if err != nil {
		logger.Fatal("failed to build token codec", zap.Error(err))
	}
	validator := auth.NewValidator(codec, auth.ValidatorConfig{
		Leeway:     cfg.Auth.ClockSkew(),
		RolesClaim: cfg.Auth.RolesClaim,
	})
	tokens := auth.NewTokenManager(codec, validator, cfg.Auth.AccessTokenTTL(), metrics)
	authMiddleware := auth.NewAuthMiddleware(validator, logger, metrics)
	hasher, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		logger.Fatal("invalid bcrypt cost", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(cfg.Postgres.DSN, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	db := repository.FromPool(pg.Pool)
	userRepo := repository.NewUserRepository(db)
	authorRepo := repository.NewAuthorRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	bookRepo := repository.NewBookRepository(db)
	borrowRepo := repository.NewBorrowRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)

	dispatcher := events.NewInMemoryDispatcher()

	authService := service.NewAuthService(service.AuthDependencies{
		Users:      userRepo,
		Tokens:     tokens,
		Hasher:     hasher,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	authorService := service.NewAuthorService(authorRepo)
	categoryService := service.NewCategoryService(categoryRepo)
	bookService := service.NewBookService(service.BookDependencies{
		Books:      bookRepo,
		Authors:    authorRepo,
		Categories: categoryRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	borrowService := service.NewBorrowService(service.BorrowDependencies{
		Borrows:    borrowRepo,
		Users:      userRepo,
		Books:      bookRepo,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	statisticsService := service.NewStatisticsService(
		statsRepo,
		cache.NewStatisticsCache(redis.Client, cfg.Stats.CacheTTL()),
		logger,
	)

	worker.StartStatisticsWorker(statisticsService, dispatcher)
	worker.StartAuditWorker(dispatcher, logger)

	if cfg.Auth.AdminEmail != "" && pg.Pool != nil {
		if _, err := authService.EnsureAdmin(ctx, cfg.Auth.AdminName, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			logger.Fatal("failed to provision admin account", zap.Error(err))
		}
	}

	limiter := httptransport.NewRateLimiter(httptransport.RateLimiterConfig{
		PerMinute: cfg.Auth.RatePerMinute,
		Burst:     cfg.Auth.RateBurst,
	}, logger)
	defer limiter.Stop()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:           handlers.NewAuthHandler(authService),
		Authors:        handlers.NewAuthorsHandler(authorService),
		Categories:     handlers.NewCategoriesHandler(categoryService),
		Books:          handlers.NewBooksHandler(bookService),
		Borrows:        handlers.NewBorrowsHandler(borrowService),
		Statistics:     handlers.NewStatisticsHandler(statisticsService),
		AuthMiddleware: authMiddleware,
		RateLimiter:    limiter,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("graceful shutdown incomplete", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
