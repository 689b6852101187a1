package ginserver

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vshulcz/promstore/internal/adapters/exporter/promexport"
	"github.com/vshulcz/promstore/internal/adapters/http/ginserver/middlewares"
	memrepo "github.com/vshulcz/promstore/internal/adapters/repository/memory"
	"github.com/vshulcz/promstore/internal/domain"
	"github.com/vshulcz/promstore/internal/ports"
	"github.com/vshulcz/promstore/internal/services/metrics"
)

func newRouter(t *testing.T, store ports.MeasurementStore) (*gin.Engine, *metrics.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := metrics.New(store, nil)
	middlewares.RegisterRequestMetrics(svc)

	reg := promexport.NewRegistry(promexport.NewCollector(svc, zap.NewNop()), false)
	h := NewHandler(svc, promexport.Handler(reg, zap.NewNop()))

	r := NewRouter(
		h,
		zap.NewNop(),
		middlewares.ZapLogger(zap.NewNop()),
		middlewares.GzipResponse(),
	)
	return r, svc
}

func doReq(t *testing.T, r http.Handler, method, path string, body []byte, hdr map[string]string) (*httptest.ResponseRecorder, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out io.Reader = w.Body
	if strings.Contains(w.Header().Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(w.Body)
		if err != nil {
			t.Fatalf("gzip reader: %v", err)
		}
		defer zr.Close()
		out = zr
	}
	data, err := io.ReadAll(out)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return w, data
}

type failingStore struct {
	err     error
	pingErr error
}

func (f failingStore) StoreMeasurement(context.Context, string, string, float64) error {
	return f.err
}

func (f failingStore) IncrementMeasurement(context.Context, string, string) error {
	return f.err
}

func (f failingStore) GetMeasurements(context.Context, string, []string, string) (map[string]domain.Sample, error) {
	return nil, f.err
}

func (f failingStore) Ping(context.Context) error {
	return f.pingErr
}

func TestHTTP_PlainTextEndpoints(t *testing.T) {
	r, svc := newRouter(t, memrepo.New(domain.DefaultPrefix))
	svc.Register("temp_celsius", "room", "Room temperature.", domain.Gauge, "0")

	tests := []struct {
		name     string
		method   string
		path     string
		wantCode int
		wantBody string
	}{
		{"store ok", http.MethodPost, "/store/latency/GET:%2Fhome/0.25", http.StatusOK, "ok"},
		{"read stored", http.MethodGet, "/value/latency/GET:%2Fhome", http.StatusOK, "0.25"},
		{"read missing unregistered", http.MethodGet, "/value/latency/other", http.StatusOK, "NaN"},
		{"read missing registered default", http.MethodGet, "/value/temp_celsius/attic", http.StatusOK, "0"},
		{"store bad value", http.MethodPost, "/store/latency/x/abc", http.StatusBadRequest, "bad request"},
		{"increment first", http.MethodPost, "/increment/hits/home", http.StatusOK, "ok"},
		{"increment second", http.MethodPost, "/increment/hits/home", http.StatusOK, "ok"},
		{"read incremented", http.MethodGet, "/value/hits/home", http.StatusOK, "2"},
		{"wrong method", http.MethodGet, "/store/latency/x/1", http.StatusMethodNotAllowed, "method not allowed"},
		{"unknown route", http.MethodGet, "/nope", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := doReq(t, r, tt.method, tt.path, nil, nil)
			if w.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d (body %q)", w.Code, tt.wantCode, body)
			}
			if tt.wantBody != "" && strings.TrimSpace(string(body)) != tt.wantBody {
				t.Fatalf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestHTTP_QueryMeasurements(t *testing.T) {
	r, svc := newRouter(t, memrepo.New(domain.DefaultPrefix))
	if err := svc.Store(context.Background(), "m", "a", 1); err != nil {
		t.Fatalf("store: %v", err)
	}

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantJSON string
	}{
		{"explicit keys", `{"metric":"m","keys":["a","b"]}`, http.StatusOK, `{"a":1,"b":"NaN"}`},
		{"explicit default", `{"metric":"m","keys":["a","b"],"default":"-1"}`, http.StatusOK, `{"a":1,"b":"-1"}`},
		{"known keys", `{"metric":"m"}`, http.StatusOK, `{"a":1}`},
		{"empty keys", `{"metric":"m","keys":[]}`, http.StatusOK, `{}`},
		{"missing metric", `{"keys":["a"]}`, http.StatusBadRequest, ""},
		{"bad json", `{`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := doReq(t, r, http.MethodPost, "/measurements", []byte(tt.body),
				map[string]string{"Content-Type": "application/json", "Accept-Encoding": "gzip"})
			if w.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d (body %q)", w.Code, tt.wantCode, body)
			}
			if tt.wantJSON == "" {
				return
			}
			if got := w.Header().Get("Content-Encoding"); got != "gzip" {
				t.Fatalf("Content-Encoding = %q, want gzip", got)
			}
			var got, want map[string]any
			if err := json.Unmarshal(body, &got); err != nil {
				t.Fatalf("unmarshal %q: %v", body, err)
			}
			if err := json.Unmarshal([]byte(tt.wantJSON), &want); err != nil {
				t.Fatalf("unmarshal want: %v", err)
			}
			if fmt.Sprint(got) != fmt.Sprint(want) {
				t.Fatalf("body = %v, want %v", got, want)
			}
		})
	}
}

func TestHTTP_AvailableMetrics(t *testing.T) {
	r, svc := newRouter(t, memrepo.New(domain.DefaultPrefix))
	svc.Register("temp_celsius", "room", "Room temperature.", domain.Gauge, "NaN")

	w, body := doReq(t, r, http.MethodGet, "/available", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	var got []domain.Descriptor
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 (%+v)", len(got), got)
	}
	last := got[2]
	if last.Metric != "temp_celsius" || last.Label != "room" || last.Type != "gauge" || last.DefaultValue != "NaN" {
		t.Fatalf("descriptor = %+v", last)
	}
}

func TestHTTP_BackendErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"connection", fmt.Errorf("%w: dial tcp: refused", domain.ErrConnection), http.StatusServiceUnavailable},
		{"unavailable", fmt.Errorf("%w: timeout", domain.ErrBackendUnavailable), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"unrepresentable value", fmt.Errorf("%w: mysql cannot store NaN", domain.ErrInvalidValue), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newRouter(t, failingStore{err: tt.err})
			for _, req := range []struct{ method, path string }{
				{http.MethodPost, "/store/m/k/1"},
				{http.MethodPost, "/store/m/k/NaN"},
				{http.MethodPost, "/increment/m/k"},
				{http.MethodGet, "/value/m/k"},
			} {
				w, body := doReq(t, r, req.method, req.path, nil, nil)
				if w.Code != tt.wantCode {
					t.Fatalf("%s %s: code = %d, want %d (body %q)", req.method, req.path, w.Code, tt.wantCode, body)
				}
			}
		})
	}
}

func TestHTTP_Ping(t *testing.T) {
	r, _ := newRouter(t, memrepo.New(""))
	if w, _ := doReq(t, r, http.MethodGet, "/ping", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", w.Code)
	}

	r, _ = newRouter(t, failingStore{pingErr: errors.New("down")})
	w, body := doReq(t, r, http.MethodGet, "/ping", nil, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d, want 500", w.Code)
	}
	if !strings.Contains(string(body), "down") {
		t.Fatalf("body = %q", body)
	}
}

func TestHTTP_Exposition(t *testing.T) {
	r, _ := newRouter(t, memrepo.New(domain.DefaultPrefix))

	if w, _ := doReq(t, r, http.MethodGet, "/ping", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("ping code = %d", w.Code)
	}
	w, body := doReq(t, r, http.MethodGet, "/metrics", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	text := string(body)
	for _, want := range []string{
		"# TYPE http_requests_total counter",
		`http_requests_total{route="GET:/ping"} 1`,
		`http_requests_total{route="POST:/increment/:metric/:key"} 0`,
		"# TYPE http_request_duration_seconds gauge",
		`http_request_duration_seconds{route="GET:/available"} NaN`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("exposition missing %q\n%s", want, text)
		}
	}
}

func TestHTTP_ExpositionDisabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := metrics.New(memrepo.New(""), nil)
	r := NewRouter(NewHandler(svc, nil), nil)

	w, _ := doReq(t, r, http.MethodGet, "/metrics", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("code = %d, want 404", w.Code)
	}
}

func TestHTTP_InstrumentsRequests(t *testing.T) {
	r, svc := newRouter(t, memrepo.New(domain.DefaultPrefix))

	doReq(t, r, http.MethodPost, "/store/m/k/1", nil, nil)
	doReq(t, r, http.MethodPost, "/store/m/k/2", nil, nil)
	doReq(t, r, http.MethodGet, "/missing", nil, nil)

	got, err := svc.Measurements(context.Background(), middlewares.RequestsTotal, nil)
	if err != nil {
		t.Fatalf("measurements: %v", err)
	}
	if s := got["POST:/store/:metric/:key/:value"]; !s.Found || s.Value != 2 {
		t.Fatalf("store route = %+v, want 2", s)
	}
	if s := got["GET:unmatched"]; !s.Found || s.Value != 1 {
		t.Fatalf("unmatched = %+v, want 1", s)
	}
	if s, ok := got["GET:/value/:metric/:key"]; !ok || s.Found || s.String() != "0" {
		t.Fatalf("declared route = %+v (present %v), want default 0", s, ok)
	}

	dur, err := svc.Measurements(context.Background(), middlewares.RequestDuration, []string{"POST:/store/:metric/:key/:value"})
	if err != nil {
		t.Fatalf("measurements: %v", err)
	}
	if s := dur["POST:/store/:metric/:key/:value"]; !s.Found || s.Value < 0 {
		t.Fatalf("duration = %+v", s)
	}
}
