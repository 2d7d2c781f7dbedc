package routes

import (
	"net/http"

	"fuel-station-monitor/internal/config"
	"fuel-station-monitor/internal/delivery/http/handler"
	"fuel-station-monitor/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	Health() error
}

// BrokerStatus reports the MQTT session state.
type BrokerStatus interface {
	Connected() bool
}

type Dependencies struct {
	Database      HealthChecker
	Broker        BrokerStatus
	RateLimiter   *middleware.RateLimiter
	Diagnostics   *handler.DiagnosticsHandler
	Subscriptions *handler.SubscriptionHandler
	Calibration   *handler.CalibrationHandler
	Monitor       *handler.MonitorHandler
	Metrics       http.Handler
	Notifications gin.HandlerFunc
}

func SetupRoutes(cfg *config.Config, deps Dependencies, logger *zap.Logger) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limiter := deps.RateLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.GeneralRPS, cfg.RateLimit.GeneralBurst)
	}

	router := gin.New()

	// Order: recovery, request ID, logging, security headers, CORS, request size, rate limit.
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(&cfg.CORS))
	router.Use(middleware.RequestSizeLimitMiddleware(middleware.DefaultMaxRequestSize))
	router.Use(limiter.Middleware(logger))

	router.GET("/health", healthHandler(deps))

	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics))
	}
	if deps.Notifications != nil {
		router.GET("/ws/notifications", deps.Notifications)
	}

	v1 := router.Group("/api/v1")
	{
		if deps.Diagnostics != nil {
			deps.Diagnostics.RegisterRoutes(v1)
		}
		if deps.Subscriptions != nil {
			deps.Subscriptions.RegisterRoutes(v1)
		}
		if deps.Calibration != nil {
			deps.Calibration.RegisterRoutes(v1)
		}
		if deps.Monitor != nil {
			deps.Monitor.RegisterRoutes(v1)
		}
	}

	logger.Info("All routes initialized")
	return router
}

func healthHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		broker := "unknown"
		if deps.Broker != nil {
			broker = "disconnected"
			if deps.Broker.Connected() {
				broker = "connected"
			}
		}

		if deps.Database != nil {
			if err := deps.Database.Health(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "unhealthy",
					"message": "Database connection failed",
					"broker":  broker,
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Service is running",
			"broker":  broker,
		})
	}
}
