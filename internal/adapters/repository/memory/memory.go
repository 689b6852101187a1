// Package memory implements an in-process measurement store.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/vshulcz/promstore/internal/domain"
	"github.com/vshulcz/promstore/internal/ports"
)

// Repo keeps measurements in a map keyed by composite key.
type Repo struct {
	values map[string]float64
	prefix string
	mu     sync.RWMutex
}

var (
	_ ports.MeasurementStore = (*Repo)(nil)
	_ ports.Pinger           = (*Repo)(nil)
)

// New returns an empty repository using prefix for its composite keys.
func New(prefix string) *Repo {
	return &Repo{
		values: make(map[string]float64),
		prefix: prefix,
	}
}

// StoreMeasurement overwrites the value at metric/key.
func (r *Repo) StoreMeasurement(_ context.Context, metric, key string, value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[domain.StorageKey(r.prefix, metric, key)] = value
	return nil
}

// IncrementMeasurement reads, adds one and writes back in two separate
// critical sections, same as the networked backends.
func (r *Repo) IncrementMeasurement(ctx context.Context, metric, key string) error {
	current := r.read(domain.StorageKey(r.prefix, metric, key))
	return r.StoreMeasurement(ctx, metric, key, current+1)
}

// GetMeasurements returns every requested key, defaulting the missing ones.
func (r *Repo) GetMeasurements(_ context.Context, metric string, keys []string, defaultValue string) (map[string]domain.Sample, error) {
	out := domain.NewMeasurements(keys, defaultValue)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, k := range keys {
		if v, ok := r.values[domain.StorageKey(r.prefix, metric, k)]; ok {
			out[k] = domain.Measured(v)
		}
	}
	return out, nil
}

// Raw returns the value stored under a composite key.
func (r *Repo) Raw(storageKey string) (float64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[storageKey]
	return v, ok
}

// Dump copies the whole keyspace.
func (r *Repo) Dump() map[string]float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]float64, len(r.values))
	maps.Copy(out, r.values)
	return out
}

// Ping always succeeds.
func (*Repo) Ping(context.Context) error {
	return nil
}

func (r *Repo) read(storageKey string) float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.values[storageKey]
}
