package ginserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vshulcz/promstore/internal/adapters/http/ginserver/middlewares"
)

// NewRouter registers every endpoint and declares each route as a key of
// the request metrics so unvisited routes are exported too.
func NewRouter(h *Handler, logger *zap.Logger, mws ...gin.HandlerFunc) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()

	r.Use(gin.Recovery())
	for _, mw := range mws {
		r.Use(mw)
	}
	r.Use(middlewares.Instrument(h.svc, logger))

	r.RedirectTrailingSlash = false
	r.RemoveExtraSlash = true
	r.UseRawPath = true

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.String(http.StatusMethodNotAllowed, "method not allowed")
	})

	r.GET("/ping", h.Ping)
	r.GET("/metrics", h.Exposition)
	r.GET("/available", h.AvailableMetrics)

	r.POST("/store/:metric/:key/:value", h.StoreMeasurement)
	r.POST("/increment/:metric/:key", h.IncrementMeasurement)
	r.GET("/value/:metric/:key", h.GetValue)

	r.POST("/measurements", h.QueryMeasurements)
	r.POST("/measurements/", h.QueryMeasurements)

	for _, ri := range r.Routes() {
		middlewares.DeclareRoute(h.svc, ri.Method, ri.Path)
	}
	return r
}
