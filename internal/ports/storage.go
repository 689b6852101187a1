package ports

import (
	"context"

	"github.com/vshulcz/promstore/internal/domain"
)

// MeasurementStore is the contract every storage backend implements.
//
// Measurements are addressed by metric name and key. IncrementMeasurement
// is a read followed by a write; concurrent increments of one key may lose
// updates.
type MeasurementStore interface {
	StoreMeasurement(ctx context.Context, metric, key string, value float64) error
	IncrementMeasurement(ctx context.Context, metric, key string) error
	GetMeasurements(ctx context.Context, metric string, keys []string, defaultValue string) (map[string]domain.Sample, error)
}

// Pinger is implemented by backends that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}
