package ginserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/vshulcz/promstore/internal/domain"
	"github.com/vshulcz/promstore/internal/services/metrics"
)

// Handler exposes HTTP endpoints for storing and reading measurements.
type Handler struct {
	svc        *metrics.Service
	exposition http.Handler
}

// NewHandler wires a metrics service into a gin-compatible HTTP handler.
// exposition serves GET /metrics and may be nil.
func NewHandler(svc *metrics.Service, exposition http.Handler) *Handler {
	return &Handler{svc: svc, exposition: exposition}
}

type measurementsQuery struct {
	Default *string  `json:"default,omitempty"`
	Metric  string   `json:"metric"`
	Keys    []string `json:"keys"`
}

// StoreMeasurement handles `POST /store/:metric/:key/:value`.
func (h *Handler) StoreMeasurement(c *gin.Context) {
	metric, key, raw := c.Param("metric"), c.Param("key"), c.Param("value")
	if strings.TrimSpace(metric) == "" {
		c.String(http.StatusNotFound, "not found")
		return
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		c.String(http.StatusBadRequest, "bad request")
		return
	}
	if err := h.svc.Store(c.Request.Context(), metric, key, v); err != nil {
		httpError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte("ok"))
}

// IncrementMeasurement handles `POST /increment/:metric/:key`.
func (h *Handler) IncrementMeasurement(c *gin.Context) {
	metric, key := c.Param("metric"), c.Param("key")
	if err := h.svc.Increment(c.Request.Context(), metric, key); err != nil {
		httpError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte("ok"))
}

// GetValue handles `GET /value/:metric/:key` returning the value or the default as plain text.
func (h *Handler) GetValue(c *gin.Context) {
	metric, key := c.Param("metric"), c.Param("key")
	res, err := h.svc.Measurements(c.Request.Context(), metric, []string{key})
	if err != nil {
		httpError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(res[key].String()))
}

// QueryMeasurements handles `POST /measurements` with a JSON query.
// Omitted keys select every key known for the metric.
func (h *Handler) QueryMeasurements(c *gin.Context) {
	var q measurementsQuery
	if err := c.ShouldBindJSON(&q); err != nil || strings.TrimSpace(q.Metric) == "" {
		c.String(http.StatusBadRequest, "bad request")
		return
	}

	var (
		res map[string]domain.Sample
		err error
	)
	if q.Default != nil {
		res, err = h.svc.MeasurementsWithDefault(c.Request.Context(), q.Metric, q.Keys, *q.Default)
	} else {
		res, err = h.svc.Measurements(c.Request.Context(), q.Metric, q.Keys)
	}
	if err != nil {
		httpError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// AvailableMetrics handles `GET /available` listing registered descriptors.
func (h *Handler) AvailableMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.AvailableMetrics())
}

// Exposition proxies `GET /metrics` to the Prometheus handler.
func (h *Handler) Exposition(c *gin.Context) {
	if h.exposition == nil {
		c.String(http.StatusNotFound, "not found")
		return
	}
	h.exposition.ServeHTTP(c.Writer, c.Request)
}

// Ping proxies `GET /ping` to the storage health check.
func (h *Handler) Ping(c *gin.Context) {
	if err := h.svc.Ping(c.Request.Context()); err != nil {
		c.String(http.StatusInternalServerError, "storage ping error: %v", err)
		return
	}
	c.String(http.StatusOK, "ok")
}

func httpError(c *gin.Context, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, domain.ErrNotFound):
		c.String(http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidType), errors.Is(err, domain.ErrInvalidValue):
		c.String(http.StatusBadRequest, "bad request")
	case errors.Is(err, domain.ErrConnection), errors.Is(err, domain.ErrBackendUnavailable):
		c.String(http.StatusServiceUnavailable, "storage unavailable")
	default:
		c.String(http.StatusInternalServerError, "internal error")
	}
}
