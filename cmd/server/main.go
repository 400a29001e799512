package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shard-legends/clan-service/internal/config"
	"github.com/shard-legends/clan-service/internal/database"
	"github.com/shard-legends/clan-service/internal/handlers"
	"github.com/shard-legends/clan-service/internal/middleware"
	"github.com/shard-legends/clan-service/internal/service"
	"github.com/shard-legends/clan-service/internal/storage"
	"github.com/shard-legends/clan-service/pkg/jwt"
	"github.com/shard-legends/clan-service/pkg/logger"
	"github.com/shard-legends/clan-service/pkg/metrics"
)

type statsSource interface {
	service.StatsProvider
	service.GradesProvider
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting clan service", zap.String("config", cfg.String()))

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	metricsCollector := metrics.New()
	metricsCollector.Initialize()

	// Initialize database
	db, err := database.NewPostgresDB(&cfg.Database, logger.Get(), metricsCollector)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis
	redisDB, err := database.NewRedisDB(&cfg.Redis, logger.Get(), metricsCollector)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisDB.Close()

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// Load the JWT public key, then keep it fresh
	keys := jwt.NewKeySource(cfg.Auth.PublicKeyPath, cfg.Auth.PublicKeyURL, cfg.Timeouts.JWTKeyFetch, logger.Get())
	keyCtx, keyCancel := context.WithTimeout(rootCtx, cfg.Timeouts.JWTKeyFetch)
	err = keys.Refresh(keyCtx)
	keyCancel()
	if err != nil {
		logger.Fatal("Failed to load JWT public key", zap.Error(err))
	}
	go keys.RunRefresh(rootCtx, cfg.Auth.RefreshInterval)

	// Storage
	store := storage.NewStorage(db.DB(), logger.Get(), metricsCollector)

	var (
		stats       statsSource = store.Stats
		invalidator handlers.StatsInvalidator
	)
	if cfg.Cache.Enabled {
		cached := storage.NewCachedStatsProvider(store.Stats, storage.NewRedisCache(redisDB.Client()), cfg.Cache.StatsTTL, logger.Get(), metricsCollector)
		stats = cached
		invalidator = cached
	}

	var ranking service.RankingSource = store.Leaderboard
	if cfg.Ranking.Source == "memory" {
		ranking = service.NewMemoryRankingSource(store.Clans, store.Users, stats, stats)
	}

	var assets service.AssetStore
	if cfg.ExternalServices.AssetService.BaseURL != "" {
		assets = service.NewAssetClient(cfg.ExternalServices.AssetService.BaseURL, cfg.ExternalServices.AssetService.Timeout, logger.Get())
	} else {
		logger.Warn("Asset service is not configured, clan uploads are disabled")
	}

	// Services
	services := service.NewServices(&service.ServiceDependencies{
		Clans:        store.Clans,
		Users:        store.Users,
		JoinRequests: store.JoinRequests,
		Files:        store.Files,
		Tx:           database.NewTransactor(db.DB()),
		Ranking:      ranking,
		Assets:       assets,
		Metrics:      metricsCollector,
		Logger:       logger.Get(),
	}, service.RankingOptions{
		Source:          cfg.Ranking.Source,
		DefaultPageSize: cfg.Ranking.DefaultPageSize,
		MaxPageSize:     cfg.Ranking.MaxPageSize,
	})

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst, cfg.RateLimit.CleanupInterval, logger.Get(), metricsCollector)
		defer rateLimiter.Close()
	}

	// Routers
	publicHandler := handlers.NewPublicRouter(&handlers.RouterConfig{
		Clans:       services.Clans,
		Requests:    services.JoinRequests,
		Leaderboard: services.Leaderboard,
		Keys:        keys,
		Revocation:  redisDB,
		RateLimiter: rateLimiter,
		Metrics:     metricsCollector,
		Logger:      logger.Get(),
		Options: handlers.Options{
			DirectJoin:       cfg.Clan.DirectJoin,
			ListPageSize:     cfg.Clan.ListPageSize,
			RequestsPageSize: cfg.Clan.RequestsPageSize,
			MaxUploadBytes:   cfg.ExternalServices.AssetService.MaxUploadBytes,
		},
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	healthHandler := handlers.NewHealthHandler(db, redisDB, invalidator, cfg.Timeouts.DatabaseHealth, logger.Get())
	internalHandler := handlers.NewInternalRouter(healthHandler, logger.LevelHandler(), logger.Get(), cfg.Timeouts.HTTPMiddleware)

	// Refresh dependency health gauges between scrapes
	go func() {
		ticker := time.NewTicker(cfg.Metrics.HealthCheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-rootCtx.Done():
				return
			case <-ticker.C:
				dbCtx, cancel := context.WithTimeout(rootCtx, cfg.Timeouts.DatabaseHealth)
				if err := db.Health(dbCtx); err != nil {
					logger.Warn("Database health check failed", zap.Error(err))
				}
				cancel()

				redisCtx, cancel := context.WithTimeout(rootCtx, cfg.Timeouts.RedisHealth)
				if err := redisDB.Health(redisCtx); err != nil {
					logger.Warn("Redis health check failed", zap.Error(err))
				}
				cancel()
			}
		}
	}()

	publicServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      publicHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	internalServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.InternalPort),
		Handler:      internalHandler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Starting public server",
			zap.String("host", cfg.Server.Host),
			zap.String("port", cfg.Server.Port),
			zap.String("ranking_source", cfg.Ranking.Source),
			zap.Bool("direct_join", cfg.Clan.DirectJoin),
		)

		if err := publicServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start public server", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("Starting internal server",
			zap.String("host", cfg.Server.Host),
			zap.String("port", cfg.Server.InternalPort),
		)

		if err := internalServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start internal server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.GracefulShutdown)
	defer cancel()

	shutdownErr := make(chan error, 2)

	go func() {
		if err := publicServer.Shutdown(ctx); err != nil {
			shutdownErr <- fmt.Errorf("public server shutdown error: %w", err)
			return
		}
		shutdownErr <- nil
	}()

	go func() {
		if err := internalServer.Shutdown(ctx); err != nil {
			shutdownErr <- fmt.Errorf("internal server shutdown error: %w", err)
			return
		}
		shutdownErr <- nil
	}()

	for i := 0; i < 2; i++ {
		if err := <-shutdownErr; err != nil {
			logger.Error("Server forced to shutdown", zap.Error(err))
		}
	}

	logger.Info("Servers exited")
}
