package middlewares

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vshulcz/promstore/internal/domain"
)

const (
	RequestsTotal   = "http_requests_total"
	RequestDuration = "http_request_duration_seconds"

	unmatchedRoute = "unmatched"
)

// Recorder is the part of the metrics service the middleware writes to.
type Recorder interface {
	Store(ctx context.Context, metric, key string, value float64) error
	Increment(ctx context.Context, metric, key string) error
	DeclareKeys(metric string, keys ...string)
}

// Registrar receives metric descriptors.
type Registrar interface {
	Register(metric, label, help string, typ domain.MetricType, defaultValue string)
}

// RegisterRequestMetrics declares the metrics written by Instrument.
func RegisterRequestMetrics(reg Registrar) {
	reg.Register(RequestsTotal, "route", "Handled HTTP requests by method and route.", domain.Counter, "0")
	reg.Register(RequestDuration, "route", "Duration of the last request by method and route.", domain.Gauge, domain.DefaultValue)
}

// RouteKey is the measurement key of a route.
func RouteKey(method, path string) string {
	return method + ":" + path
}

// DeclareRoute makes a route visible to the exporter before it is hit.
func DeclareRoute(rec Recorder, method, path string) {
	k := RouteKey(method, path)
	rec.DeclareKeys(RequestsTotal, k)
	rec.DeclareKeys(RequestDuration, k)
}

// Instrument counts every request and stores its duration, keyed by
// method and matched route pattern. The writes outlive a client that
// disconnects. Storage failures are logged, never surfaced to the client.
func Instrument(rec Recorder, l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		key := RouteKey(c.Request.Method, route)
		ctx := context.WithoutCancel(c.Request.Context())

		if err := rec.Increment(ctx, RequestsTotal, key); err != nil {
			l.Warn("count request failed", zap.String("route", key), zap.Error(err))
		}
		if err := rec.Store(ctx, RequestDuration, key, time.Since(start).Seconds()); err != nil {
			l.Warn("store request duration failed", zap.String("route", key), zap.Error(err))
		}
	}
}
