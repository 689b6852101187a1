// Package promexport exposes stored measurements through client_golang.
package promexport

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vshulcz/promstore/internal/domain"
	"github.com/vshulcz/promstore/internal/services/metrics"
)

// FallbackLabel names the label of descriptors registered without one.
const FallbackLabel = "key"

const defaultScrapeTimeout = 5 * time.Second

// Collector reads every registered metric from the store on each scrape.
// It is an unchecked collector: descriptors can be registered at any time.
type Collector struct {
	svc     *metrics.Service
	logger  *zap.Logger
	timeout time.Duration
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector builds a collector over svc.
func NewCollector(svc *metrics.Service, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{svc: svc, logger: logger, timeout: defaultScrapeTimeout}
}

// Describe sends nothing.
func (c *Collector) Describe(chan<- *prometheus.Desc) {}

// Collect emits one sample per descriptor and known key. Missing values
// export the descriptor default. Only the first registration of a metric
// name is exported.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	seen := make(map[string]struct{})
	for _, d := range c.svc.AvailableMetrics() {
		if _, dup := seen[d.Metric]; dup {
			continue
		}
		seen[d.Metric] = struct{}{}

		label := d.Label
		if label == "" {
			label = FallbackLabel
		}
		desc := prometheus.NewDesc(d.Metric, d.Help, []string{label}, nil)

		keys := c.svc.Keys(d.Metric)
		if len(keys) == 0 {
			continue
		}
		slices.Sort(keys)

		samples, err := c.svc.MeasurementsWithDefault(ctx, d.Metric, keys, d.DefaultValue)
		if err != nil {
			c.logger.Warn("read measurements failed", zap.String("metric", d.Metric), zap.Error(err))
			ch <- prometheus.NewInvalidMetric(desc, err)
			continue
		}

		vt := valueType(d.Type)
		for _, k := range keys {
			m, err := prometheus.NewConstMetric(desc, vt, samples[k].Float(), k)
			if err != nil {
				c.logger.Debug("skip invalid sample", zap.String("metric", d.Metric), zap.Error(err))
				continue
			}
			ch <- m
		}
	}
}

func valueType(t string) prometheus.ValueType {
	switch domain.MetricType(t) {
	case domain.Counter:
		return prometheus.CounterValue
	case domain.Gauge:
		return prometheus.GaugeValue
	default:
		return prometheus.UntypedValue
	}
}

// NewRegistry registers c and, if withRuntime is set, the Go and process collectors.
func NewRegistry(c *Collector, withRuntime bool) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	if withRuntime {
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return reg
}

// Handler serves reg in the text exposition format. Metrics whose backend
// read failed are dropped and the rest are still served.
func Handler(reg *prometheus.Registry, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorLog:      zap.NewStdLog(logger),
		ErrorHandling: promhttp.ContinueOnError,
	})
}
