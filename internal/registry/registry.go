// Package registry keeps the ordered list of metrics known to the application.
package registry

import (
	"slices"
	"sync"

	"github.com/vshulcz/promstore/internal/domain"
)

// Registry records metric descriptors in registration order.
// Duplicate registrations are kept.
type Registry struct {
	metrics []domain.Descriptor
	mu      sync.RWMutex
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

// AddAvailableMetric appends a descriptor.
func (r *Registry) AddAvailableMetric(metric, label, help, typ, defaultValue string) {
	r.Add(domain.Descriptor{
		Metric:       metric,
		Label:        label,
		Help:         help,
		Type:         typ,
		DefaultValue: defaultValue,
	})
}

// Add appends d as is.
func (r *Registry) Add(d domain.Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = append(r.metrics, d)
}

// AvailableMetrics returns a copy of every descriptor in insertion order.
func (r *Registry) AvailableMetrics() []domain.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.metrics)
}

// Lookup returns the first descriptor registered under metric.
func (r *Registry) Lookup(metric string) (domain.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.metrics {
		if d.Metric == metric {
			return d, true
		}
	}
	return domain.Descriptor{}, false
}
