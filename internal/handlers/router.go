package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shard-legends/clan-service/internal/middleware"
	"github.com/shard-legends/clan-service/pkg/metrics"
)

// RouterConfig contains configuration for setting up routes
type RouterConfig struct {
	Clans       ClanOperations
	Requests    JoinRequestOperations
	Leaderboard LeaderboardOperations
	Keys        middleware.KeyProvider
	Revocation  middleware.RedisInterface
	// RateLimiter is nil when rate limiting is disabled
	RateLimiter *middleware.RateLimiter
	Metrics     *metrics.Metrics
	Logger      *zap.Logger
	Options     Options
	CORSOrigins []string
}

// SetupRoutes registers the /clan API on router
func SetupRoutes(router *gin.Engine, config *RouterConfig) {
	clanHandler := NewClanHandler(config.Clans, config.Requests, config.Leaderboard, config.Logger, config.Options)
	jwtMiddleware := middleware.NewJWTAuthMiddleware(config.Keys, config.Revocation, config.Logger)

	limit := func(c *gin.Context) { c.Next() }
	if config.RateLimiter != nil {
		limit = config.RateLimiter.Limit()
	}

	clan := router.Group("/clan")

	public := clan.Group("")
	public.Use(limit)
	{
		public.GET("/:id", clanHandler.GetClan)
		public.GET("/tag/:tag", clanHandler.GetClanByTag)
		public.GET("/list", clanHandler.ListClans)
		public.GET("/leaderboard", clanHandler.Leaderboard)
	}

	// auth runs first so the limiter can key on the user
	private := clan.Group("")
	private.Use(jwtMiddleware.AuthenticateJWT(), limit)
	{
		private.POST("/create", clanHandler.CreateClan)
		if config.Options.DirectJoin {
			private.POST("/join", clanHandler.JoinClan)
		}
		private.POST("/leave", clanHandler.LeaveClan)
		private.POST("/transfer", clanHandler.TransferOwnership)
		private.POST("/disband", clanHandler.DisbandClan)
		private.POST("/promote", clanHandler.PromoteToOfficer)
		private.POST("/demote", clanHandler.DemoteToMember)
		private.PATCH("/edit", clanHandler.EditClan)

		private.POST("/request", clanHandler.SubmitRequest)
		private.POST("/request/revoke", clanHandler.RevokeRequest)
		private.GET("/:id/request/status", clanHandler.RequestStatus)
		private.GET("/:id/requests", clanHandler.ListRequests)
		private.POST("/requests/approve", clanHandler.ApproveRequest)
		private.POST("/requests/deny", clanHandler.DenyRequest)

		private.POST("/:id/upload/avatar", clanHandler.UploadAvatar)
		private.POST("/:id/upload/banner", clanHandler.UploadBanner)
	}
}

// NewPublicRouter builds the gin engine with its global middleware and wraps it in CORS
func NewPublicRouter(config *RouterConfig) http.Handler {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(config.Logger))
	router.Use(middleware.NewLoggingMiddleware(config.Logger).LogRequests())
	router.Use(middleware.MetricsMiddleware(config.Metrics))

	SetupRoutes(router, config)

	origins := config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(router)
}

// NewInternalRouter builds the chi router for health, metrics and cache control.
// levels, when non-nil, is mounted at /internal/log-level.
func NewInternalRouter(health *HealthHandler, levels http.Handler, logger *zap.Logger, timeout time.Duration) http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.InternalRecovery(logger))
	router.Use(middleware.InternalLogging(logger))
	if timeout > 0 {
		router.Use(chimiddleware.Timeout(timeout))
	}

	router.Get("/health", health.Health)
	router.Get("/ready", health.Ready)
	router.Handle("/metrics", promhttp.Handler())
	router.Post("/internal/stats/{userID}/invalidate", health.InvalidateUserStats)
	if levels != nil {
		router.Method(http.MethodGet, "/internal/log-level", levels)
		router.Method(http.MethodPut, "/internal/log-level", levels)
	}

	return router
}
