package middlewares

import (
	"compress/gzip"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var compressible = []string{"application/json", "text/html"}

type gzipResponseWriter struct {
	gin.ResponseWriter
	gzw     *gzip.Writer
	decided bool
}

func (w *gzipResponseWriter) decide() {
	if w.decided {
		return
	}
	w.decided = true

	h := w.Header()
	if h.Get("Content-Encoding") != "" {
		return
	}
	if st := w.Status(); st == http.StatusNoContent || st < http.StatusOK {
		return
	}
	ct := h.Get("Content-Type")
	for _, prefix := range compressible {
		if strings.HasPrefix(ct, prefix) {
			h.Del("Content-Length")
			h.Set("Content-Encoding", "gzip")
			h.Add("Vary", "Accept-Encoding")
			w.gzw = gzip.NewWriter(w.ResponseWriter)
			return
		}
	}
}

func (w *gzipResponseWriter) Write(p []byte) (int, error) {
	w.decide()
	if w.gzw != nil {
		return w.gzw.Write(p)
	}
	return w.ResponseWriter.Write(p)
}

func (w *gzipResponseWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// GzipResponse compresses JSON and HTML bodies for clients that accept gzip.
// Responses that already carry a Content-Encoding pass through untouched.
func GzipResponse() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.Contains(strings.ToLower(c.GetHeader("Accept-Encoding")), "gzip") {
			c.Next()
			return
		}
		grw := &gzipResponseWriter{ResponseWriter: c.Writer}
		c.Writer = grw
		c.Next()
		if grw.gzw != nil {
			if err := grw.gzw.Close(); err != nil {
				_ = c.Error(err)
			}
		}
	}
}
