package metrics

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/vshulcz/promstore/internal/domain"
	"github.com/vshulcz/promstore/internal/ports"
	"github.com/vshulcz/promstore/internal/registry"
)

// DefaultMaxObservedKeys bounds how many keys per metric are tracked from writes.
const DefaultMaxObservedKeys = 1024

// Service is what the embedding application talks to: it owns the metric
// registry, the backend and the set of keys worth exporting per metric.
type Service struct {
	store   ports.MeasurementStore
	reg     *registry.Registry
	keys    map[string][]string
	maxKeys int
	mu      sync.RWMutex
}

// Option configures a Service.
type Option func(*Service)

// WithMaxObservedKeys sets the per-metric limit for keys learned from writes.
// Declared keys are not limited. n <= 0 disables the limit.
func WithMaxObservedKeys(n int) Option {
	return func(s *Service) { s.maxKeys = n }
}

// New wires a store and a registry. A nil registry gets a fresh one.
func New(store ports.MeasurementStore, reg *registry.Registry, opts ...Option) *Service {
	if reg == nil {
		reg = registry.New()
	}
	s := &Service{
		store:   store,
		reg:     reg,
		keys:    make(map[string][]string),
		maxKeys: DefaultMaxObservedKeys,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register adds a metric to the registry.
func (s *Service) Register(metric, label, help string, typ domain.MetricType, defaultValue string) {
	s.reg.AddAvailableMetric(metric, label, help, string(typ), defaultValue)
}

// AvailableMetrics lists registered descriptors in registration order.
func (s *Service) AvailableMetrics() []domain.Descriptor {
	return s.reg.AvailableMetrics()
}

// DeclareKeys records keys that should be exported for metric even before
// anything was stored under them.
func (s *Service) DeclareKeys(metric string, keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		if !slices.Contains(s.keys[metric], k) {
			s.keys[metric] = append(s.keys[metric], k)
		}
	}
}

// observe tracks a key seen on a successful write. Once a metric holds
// maxKeys keys, new ones are still written to the store but not exported
// unless declared or requested explicitly.
func (s *Service) observe(metric, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	known := s.keys[metric]
	if slices.Contains(known, key) {
		return
	}
	if s.maxKeys > 0 && len(known) >= s.maxKeys {
		return
	}
	s.keys[metric] = append(known, key)
}

// Keys returns the declared and observed keys for metric.
func (s *Service) Keys(metric string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.keys[metric])
}

// Store writes value under metric/key.
func (s *Service) Store(ctx context.Context, metric, key string, value float64) error {
	if strings.TrimSpace(metric) == "" {
		return domain.ErrNotFound
	}
	if err := s.store.StoreMeasurement(ctx, metric, key, value); err != nil {
		return err
	}
	s.observe(metric, key)
	return nil
}

// Increment adds one to metric/key.
func (s *Service) Increment(ctx context.Context, metric, key string) error {
	if strings.TrimSpace(metric) == "" {
		return domain.ErrNotFound
	}
	if err := s.store.IncrementMeasurement(ctx, metric, key); err != nil {
		return err
	}
	s.observe(metric, key)
	return nil
}

// Measurements reads keys of metric. The default comes from the registered
// descriptor, or domain.DefaultValue for unregistered metrics. A nil keys
// slice means every known key.
func (s *Service) Measurements(ctx context.Context, metric string, keys []string) (map[string]domain.Sample, error) {
	def := domain.DefaultValue
	if d, ok := s.reg.Lookup(metric); ok {
		def = d.DefaultValue
	}
	return s.MeasurementsWithDefault(ctx, metric, keys, def)
}

// MeasurementsWithDefault is Measurements with an explicit default.
func (s *Service) MeasurementsWithDefault(ctx context.Context, metric string, keys []string, defaultValue string) (map[string]domain.Sample, error) {
	if keys == nil {
		keys = s.Keys(metric)
	}
	return s.store.GetMeasurements(ctx, metric, keys, defaultValue)
}

// Ping checks the backend when it supports it.
func (s *Service) Ping(ctx context.Context) error {
	if p, ok := s.store.(ports.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
