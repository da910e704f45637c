package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/statementhub/internal/auth"
	"github.com/geocoder89/statementhub/internal/cache"
	"github.com/geocoder89/statementhub/internal/config"
	"github.com/geocoder89/statementhub/internal/genai"
	"github.com/geocoder89/statementhub/internal/http/handlers"
	"github.com/geocoder89/statementhub/internal/http/middlewares"
	"github.com/geocoder89/statementhub/internal/observability"
	"github.com/geocoder89/statementhub/internal/repo/postgres"
	"github.com/geocoder89/statementhub/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "statementhub"

func NewRouter(log *slog.Logger, pool *pgxpool.Pool, cfg config.Config) *gin.Engine {
	if cfg.Env != "dev" && cfg.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(1 << 20))
	r.Use(otelgin.Middleware(serviceName))

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)
	r.Use(prom.GinHandleMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// health
	ping := func() error {
		if pool == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		return pool.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	// wire up repositories
	usersRepo := postgres.NewUsersRepo(pool, prom)
	statementsRepo := postgres.NewStatementsRepo(pool, prom)
	refreshRepo := postgres.NewRefreshTokensRepo(pool, prom)

	// session tokens
	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL())
	authMW := middlewares.NewAuthMiddleware(jwtManager)

	// generation client
	genStats := observability.NewGenStats()
	genClient := genai.New(genai.Config{
		APIKey:          cfg.GroqAPIKey,
		BaseURL:         cfg.GroqBaseURL,
		Model:           cfg.GroqModel,
		Timeout:         cfg.GenTimeout(),
		MaxOutputTokens: cfg.GenMaxOutputTokens,
		Temperature:     cfg.GenTemperature,
	}, genStats)

	svc := workflow.NewService(usersRepo, statementsRepo, genai.Instrument(genClient, prom), log)

	// list cache: redis when configured, in-process otherwise
	var listCache cache.Store

	if cfg.RedisAddr != "" {
		listCache = cache.NewRedisStore(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.ListCacheTTL(),
		})
	} else {
		listCache = cache.New(cfg.ListCacheTTL())
	}

	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, jwtManager, refreshRepo, cfg)
	statementsHandler := handlers.NewStatementsHandler(svc, listCache)
	statsHandler := handlers.NewStatsHandler(genStats)

	// credential endpoints are limited by IP, the rest by user
	authLimiter := middlewares.NewRateLimiter(10, time.Minute)
	apiLimiter := middlewares.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)

	authGroup := r.Group("/auth")
	authGroup.Use(middlewares.RequireJSON())
	authGroup.Use(authLimiter.RateLimiterMiddleware(middlewares.KeyByIP))
	{
		authGroup.POST("/signup", authHandler.SignUp)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	statements := r.Group("/statements")
	statements.Use(authMW.RequireAuth())
	statements.Use(middlewares.RequireJSON())
	statements.Use(apiLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP))
	{
		statements.POST("", statementsHandler.Create)
		statements.GET("", statementsHandler.List)
		statements.GET("/:id", statementsHandler.GetByID)
		statements.DELETE("/:id", statementsHandler.Delete)
	}

	r.GET("/internal/stats/generation", statsHandler.Generation)

	return r
}
