// Package redis implements a measurement store on top of Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/vshulcz/promstore/internal/domain"
	"github.com/vshulcz/promstore/internal/ports"
)

// Repo stores measurements as plain string values under prefixed keys.
type Repo struct {
	rdb    redis.UniversalClient
	prefix string
}

var (
	_ ports.MeasurementStore = (*Repo)(nil)
	_ ports.Pinger           = (*Repo)(nil)
)

// New wraps an existing client.
func New(rdb redis.UniversalClient, prefix string) *Repo {
	return &Repo{rdb: rdb, prefix: prefix}
}

// Dial opens a client for addr and pings it once.
func Dial(ctx context.Context, addr, prefix string) (*Repo, error) {
	r := New(redis.NewClient(&redis.Options{Addr: addr}), prefix)
	if err := r.Ping(ctx); err != nil {
		_ = r.rdb.Close()
		return nil, err
	}
	return r, nil
}

// StoreMeasurement issues SET without expiry.
func (r *Repo) StoreMeasurement(ctx context.Context, metric, key string, value float64) error {
	sk := domain.StorageKey(r.prefix, metric, key)
	if err := r.rdb.Set(ctx, sk, strconv.FormatFloat(value, 'f', -1, 64), 0).Err(); err != nil {
		return classify(err)
	}
	return nil
}

// IncrementMeasurement does GET, +1, SET. It is not atomic.
func (r *Repo) IncrementMeasurement(ctx context.Context, metric, key string) error {
	var current float64
	raw, err := r.rdb.Get(ctx, domain.StorageKey(r.prefix, metric, key)).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return classify(err)
	default:
		if current, err = parseValue(key, raw); err != nil {
			return err
		}
	}
	return r.StoreMeasurement(ctx, metric, key, current+1)
}

// GetMeasurements issues one MGET; nil replies keep the default.
func (r *Repo) GetMeasurements(ctx context.Context, metric string, keys []string, defaultValue string) (map[string]domain.Sample, error) {
	out := domain.NewMeasurements(keys, defaultValue)
	if len(keys) == 0 {
		return out, nil
	}
	vals, err := r.rdb.MGet(ctx, domain.StorageKeys(r.prefix, metric, keys)...).Result()
	if err != nil {
		return nil, classify(err)
	}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			continue
		}
		f, err := parseValue(keys[i], s)
		if err != nil {
			return nil, err
		}
		out[keys[i]] = domain.Measured(f)
	}
	return out, nil
}

// Ping issues PING.
func (r *Repo) Ping(ctx context.Context) error {
	if r.rdb == nil {
		return fmt.Errorf("%w: redis not configured", domain.ErrConnection)
	}
	if err := r.rdb.Ping(ctx).Err(); err != nil {
		return classify(err)
	}
	return nil
}

// Close releases the client.
func (r *Repo) Close() error {
	return r.rdb.Close()
}

func parseValue(key, raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: key %q holds non-numeric value: %w", domain.ErrBackendUnavailable, key, err)
	}
	return v, nil
}

func classify(err error) error {
	var opErr *net.OpError
	if errors.Is(err, redis.ErrClosed) || errors.As(err, &opErr) {
		return fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
}
