package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vshulcz/promstore/internal/adapters/collector/host"
	"github.com/vshulcz/promstore/internal/adapters/exporter/promexport"
	"github.com/vshulcz/promstore/internal/adapters/http/ginserver"
	"github.com/vshulcz/promstore/internal/adapters/http/ginserver/middlewares"
	"github.com/vshulcz/promstore/internal/config"
	"github.com/vshulcz/promstore/internal/ports"
	"github.com/vshulcz/promstore/internal/services/metrics"
)

const shutdownTimeout = 5 * time.Second

// newApp wires the service, the sampler and the HTTP router around store.
func newApp(cfg config.ServerConfig, store ports.MeasurementStore, logger *zap.Logger) (http.Handler, *metrics.Service, *host.Sampler) {
	svc := metrics.New(store, nil)
	middlewares.RegisterRequestMetrics(svc)

	sampler := host.New(svc, logger)
	if cfg.SampleInterval > 0 {
		sampler.Register(svc)
	}

	reg := promexport.NewRegistry(promexport.NewCollector(svc, logger), cfg.ExportRuntime)
	h := ginserver.NewHandler(svc, promexport.Handler(reg, logger))

	r := ginserver.NewRouter(h, logger,
		middlewares.ZapLogger(logger),
		middlewares.GzipResponse(),
	)
	return r, svc, sampler
}

// run serves on ln until ctx is done, then shuts the server down gracefully.
func run(ctx context.Context, cfg config.ServerConfig, store ports.MeasurementStore, ln net.Listener, logger *zap.Logger) error {
	handler, _, sampler := newApp(cfg, store, logger)

	if cfg.SampleInterval > 0 {
		if err := sampler.Start(ctx, cfg.SampleInterval); err != nil {
			return err
		}
		defer sampler.Stop()
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
