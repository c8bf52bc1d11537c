package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Rhaonthemoon/radio-bug/api/routes"
	"github.com/Rhaonthemoon/radio-bug/internal/auth"
	"github.com/Rhaonthemoon/radio-bug/internal/episodes"
	"github.com/Rhaonthemoon/radio-bug/internal/mixcloud"
	"github.com/Rhaonthemoon/radio-bug/internal/posts"
	"github.com/Rhaonthemoon/radio-bug/internal/shows"
	"github.com/Rhaonthemoon/radio-bug/internal/uploads"
	"github.com/Rhaonthemoon/radio-bug/internal/users"
	"github.com/Rhaonthemoon/radio-bug/pkg/auth/session"
	"github.com/Rhaonthemoon/radio-bug/pkg/config"
	"github.com/Rhaonthemoon/radio-bug/pkg/db"
	"github.com/Rhaonthemoon/radio-bug/pkg/email"
	"github.com/Rhaonthemoon/radio-bug/pkg/logger"
	"github.com/Rhaonthemoon/radio-bug/pkg/metrics"
	"github.com/Rhaonthemoon/radio-bug/pkg/migrate"
	"github.com/Rhaonthemoon/radio-bug/pkg/redis"
	storagedriver "github.com/Rhaonthemoon/radio-bug/pkg/storage/driver"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	store, err := storagedriver.New(context.Background(), cfg.Storage, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap object storage", err)
		os.Exit(1)
	}

	sender, err := email.New(context.Background(), cfg.Email, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap email sender", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	mediaMetrics := metrics.NewMediaMetrics(registry)

	mixcloudClient, err := mixcloud.New(cfg.Mixcloud, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mixcloud client", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(dbClient.DB())
	showsRepo := shows.NewRepository(dbClient.DB())
	episodesRepo := episodes.NewRepository(dbClient.DB())
	postsRepo := posts.NewRepository(dbClient.DB())

	authService, err := auth.NewService(usersRepo, sessionManager, redisClient, sender,
		cfg.JWT, cfg.Password, cfg.AuthRateLimit, cfg.App.FrontendURL, mediaMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	showsService, err := shows.NewService(showsRepo, usersRepo, store, sender, cfg.App.FrontendURL, mediaMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create shows service", err)
		os.Exit(1)
	}

	episodesService, err := episodes.NewService(episodesRepo, showsRepo, store, mixcloudClient, cfg.Media, mediaMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create episodes service", err)
		os.Exit(1)
	}

	postsService, err := posts.NewService(postsRepo, store, mediaMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create posts service", err)
		os.Exit(1)
	}

	uploadsService, err := uploads.NewService(episodesRepo, showsRepo, store, mediaMetrics, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create uploads service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Dependencies{
		Config:   cfg,
		Logger:   logg,
		Sessions: sessionManager,

		DB:      dbClient,
		Redis:   redisClient,
		Storage: store,

		Auth:     authService,
		Shows:    showsService,
		Episodes: episodesService,
		Posts:    postsService,
		Uploads:  uploadsService,

		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		graceCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
	logg.Info(ctx, "api server stopped")
}
