package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/layer-3/sentinel/service"
)

// RouterConfig holds the dependencies of the HTTP API
type RouterConfig struct {
	Auth    *service.AuthService
	Custody *service.CustodyService
	Log     *slog.Logger

	// AuthLimiter throttles /auth per client IP. Nil disables throttling.
	AuthLimiter *IPRateLimiter
	// Gatherer backs GET /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

// SetupRouter sets up the Gin router
func SetupRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Log != nil {
		router.Use(LoggerMiddleware(cfg.Log))
	}

	authHandlers := NewAuthHandlers(cfg.Auth)
	custodyHandlers := NewCustodyHandlers(cfg.Custody)

	router.GET("/health", custodyHandlers.Health)
	if cfg.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	auth := router.Group("/auth")
	if cfg.AuthLimiter != nil {
		auth.Use(RateLimitMiddleware(cfg.AuthLimiter))
	}
	{
		auth.POST("/challenge", authHandlers.Challenge)
		auth.POST("/verify", authHandlers.Verify)
	}

	custody := router.Group("/custody")
	custody.Use(AuthMiddleware(cfg.Auth))
	{
		custody.POST("/accounts", custodyHandlers.CreateAccount)
		custody.POST("/sign", custodyHandlers.Sign)
	}

	return router
}
