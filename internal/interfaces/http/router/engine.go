package router

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/larder/backend/internal/infrastructure/auth"
	"github.com/larder/backend/internal/infrastructure/config"
	"github.com/larder/backend/internal/infrastructure/logger"
	"github.com/larder/backend/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// EngineConfig carries what the HTTP engine needs from the process
type EngineConfig struct {
	ServiceName    string
	HTTP           config.HTTPConfig
	Logger         *zap.Logger
	TracerProvider trace.TracerProvider
	Meter          metric.Meter
}

// NewEngine builds a gin engine with the request logging, recovery, tracing,
// metrics, CORS, security header and body limit middleware installed in that
// order
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		return nil, fmt.Errorf("failed to set trusted proxies: %w", err)
	}

	metrics, err := middleware.HTTPMetrics(cfg.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create http metrics: %w", err)
	}

	tracing := middleware.DefaultTracingConfig()
	if cfg.ServiceName != "" {
		tracing.ServiceName = cfg.ServiceName
	}
	tracing.TracerProvider = cfg.TracerProvider

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins

	engine.Use(
		logger.GinMiddleware(cfg.Logger),
		logger.Recovery(cfg.Logger),
		middleware.TracingWithConfig(tracing),
		middleware.SpanAttributes(),
		metrics,
		middleware.CORSWithConfig(cors),
		middleware.Secure(),
	)
	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}
	return engine, nil
}

// AuthMiddleware returns the bearer token check for /api routes, or nil when
// no signing secret is configured
func AuthMiddleware(jwtService *auth.JWTService, log *zap.Logger) gin.HandlerFunc {
	if jwtService == nil || !jwtService.Enabled() {
		return nil
	}
	cfg := middleware.DefaultJWTConfig(jwtService)
	cfg.Logger = log
	return middleware.JWTAuthMiddlewareWithConfig(cfg)
}
