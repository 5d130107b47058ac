// Package middleware provides HTTP middleware for the larder API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength bounds the request id copied into span attributes
const MaxRequestIDLength = 128

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// TracerProvider defaults to the global provider when nil
	TracerProvider trace.TracerProvider
}

// DefaultTracingConfig returns default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "larder",
		Enabled:     true,
	}
}

// TracingWithConfig wraps otelgin. Spans are named "METHOD route" and carry
// request_id plus the token subject once authentication ran. Client errors
// (4xx) are marked as span errors, which otelgin leaves unset.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	var opts []otelgin.Option
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgin.WithTracerProvider(cfg.TracerProvider))
	}
	return otelgin.Middleware(cfg.ServiceName, opts...)
}

// SpanAttributes enriches the current span once the request finished. Place
// it after TracingWithConfig.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		if requestID := c.GetString("request_id"); requestID != "" {
			if len(requestID) > MaxRequestIDLength {
				requestID = requestID[:MaxRequestIDLength]
			}
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		if subject := GetJWTSubject(c); subject != "" {
			span.SetAttributes(attribute.String("auth.subject", subject))
		}

		status := c.Writer.Status()
		if status >= http.StatusBadRequest && status < http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
