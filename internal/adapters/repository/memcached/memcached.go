// Package memcached implements a measurement store on top of memcached.
package memcached

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/vshulcz/promstore/internal/domain"
	"github.com/vshulcz/promstore/internal/ports"
)

// DefaultPort is the well-known memcached port.
const DefaultPort = 11211

const probeKey = "PHPProm:probe"

// Client is the subset of *memcache.Client the repository uses.
type Client interface {
	Get(key string) (*memcache.Item, error)
	GetMulti(keys []string) (map[string]*memcache.Item, error)
	Set(item *memcache.Item) error
}

// Repo stores measurements as decimal strings under prefixed keys.
type Repo struct {
	mc     Client
	prefix string
}

var (
	_ ports.MeasurementStore = (*Repo)(nil)
	_ ports.Pinger           = (*Repo)(nil)
)

// Option tweaks the underlying memcache client.
type Option func(*memcache.Client)

// WithTimeout sets the socket read/write timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *memcache.Client) { c.Timeout = d }
}

// New connects to host:port. A zero port selects DefaultPort and an empty
// prefix selects domain.DefaultPrefix. The server is probed once; an
// unreachable server yields domain.ErrConnection.
func New(host string, port int, prefix string, opts ...Option) (*Repo, error) {
	if port == 0 {
		port = DefaultPort
	}
	if prefix == "" {
		prefix = domain.DefaultPrefix
	}
	mc := memcache.New(net.JoinHostPort(host, strconv.Itoa(port)))
	for _, o := range opts {
		o(mc)
	}
	r := NewWithClient(mc, prefix)
	if err := r.Ping(context.Background()); err != nil {
		return nil, err
	}
	return r, nil
}

// NewWithClient wraps an existing client without probing it.
func NewWithClient(mc Client, prefix string) *Repo {
	return &Repo{mc: mc, prefix: prefix}
}

// StoreMeasurement issues a single SET of the composite key.
func (r *Repo) StoreMeasurement(_ context.Context, metric, key string, value float64) error {
	item := &memcache.Item{
		Key:   domain.StorageKey(r.prefix, metric, key),
		Value: []byte(strconv.FormatFloat(value, 'f', -1, 64)),
	}
	if err := r.mc.Set(item); err != nil {
		return classify(err)
	}
	return nil
}

// IncrementMeasurement does GET, +1, SET. Native incr only accepts
// unsigned integers, so it is not used.
func (r *Repo) IncrementMeasurement(ctx context.Context, metric, key string) error {
	var current float64
	item, err := r.mc.Get(domain.StorageKey(r.prefix, metric, key))
	switch {
	case errors.Is(err, memcache.ErrCacheMiss):
	case err != nil:
		return classify(err)
	default:
		if current, err = parseValue(item); err != nil {
			return err
		}
	}
	return r.StoreMeasurement(ctx, metric, key, current+1)
}

// GetMeasurements issues one multi-get and overlays found values on defaults.
func (r *Repo) GetMeasurements(_ context.Context, metric string, keys []string, defaultValue string) (map[string]domain.Sample, error) {
	out := domain.NewMeasurements(keys, defaultValue)
	if len(keys) == 0 {
		return out, nil
	}
	items, err := r.mc.GetMulti(domain.StorageKeys(r.prefix, metric, keys))
	if err != nil {
		return nil, classify(err)
	}
	for sk, item := range items {
		k, ok := domain.TrimStorageKey(r.prefix, metric, sk)
		if !ok {
			continue
		}
		v, err := parseValue(item)
		if err != nil {
			return nil, err
		}
		out[k] = domain.Measured(v)
	}
	return out, nil
}

// Ping reads a probe key; a cache miss counts as success.
func (r *Repo) Ping(context.Context) error {
	if r.mc == nil {
		return fmt.Errorf("%w: memcached not configured", domain.ErrConnection)
	}
	_, err := r.mc.Get(probeKey)
	if err == nil || errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return classify(err)
}

func parseValue(item *memcache.Item) (float64, error) {
	v, err := strconv.ParseFloat(string(item.Value), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: key %q holds non-numeric value: %w", domain.ErrBackendUnavailable, item.Key, err)
	}
	return v, nil
}

func classify(err error) error {
	if isConnErr(err) {
		return fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
}

func isConnErr(err error) bool {
	if errors.Is(err, memcache.ErrNoServers) {
		return true
	}
	var cte *memcache.ConnectTimeoutError
	if errors.As(err, &cte) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
