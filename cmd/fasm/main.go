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

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/fasm-labs/fasm/internal/app"
	"github.com/fasm-labs/fasm/internal/auth"
	"github.com/fasm-labs/fasm/internal/bootstrap"
	"github.com/fasm-labs/fasm/internal/captcha"
	"github.com/fasm-labs/fasm/internal/observability"
	"github.com/fasm-labs/fasm/internal/platform/cache"
	"github.com/fasm-labs/fasm/internal/platform/db"
	"github.com/fasm-labs/fasm/internal/roles"
	"github.com/fasm-labs/fasm/internal/token"
	"github.com/fasm-labs/fasm/internal/users"
	"github.com/fasm-labs/fasm/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisURI)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	if err := bootstrap.Run(ctx, logger, pool, cfg.AdminPassword); err != nil {
		logger.Error("bootstrap", slog.Any("error", err))
		os.Exit(1)
	}

	tokens := token.NewService(cfg.SecretKey, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	captchas := captcha.NewStore(redisClient, cfg.CaptchaTTL)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo)
	rolesRepo := roles.NewRepository(pool)
	rolesService := roles.NewService(rolesRepo)

	guard := auth.NewGuard(logger, usersRepo, tokens)
	authService := auth.NewService(usersRepo, tokens)
	authHandler := auth.NewHandler(logger, authService, captchas, guard)
	usersHandler := users.NewHandler(logger, usersService, guard.Middleware())
	rolesHandler := roles.NewHandler(logger, rolesService, guard.Middleware())

	redisOpts, err := asynq.ParseRedisURI(cfg.RedisURI)
	if err != nil {
		logger.Error("parse redis uri", slog.Any("error", err))
		os.Exit(1)
	}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		AuthHandler:  authHandler,
		UsersHandler: usersHandler,
		RolesHandler: rolesHandler,
		JobsHandler:  jobsHandler,
		Metrics:      metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server exit", slog.Any("error", err))
		os.Exit(1)
	}
}
