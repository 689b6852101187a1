package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/vshulcz/promstore/internal/domain"
)

// Storage names a measurement backend.
type Storage string

const (
	StorageMemory    Storage = "memory"
	StorageMemcached Storage = "memcached"
	StorageRedis     Storage = "redis"
	StoragePostgres  Storage = "postgres"
	StorageMySQL     Storage = "mysql"
)

var storages = []Storage{StorageMemory, StorageMemcached, StorageRedis, StoragePostgres, StorageMySQL}

const (
	defaultListenAndServeAddr = ":8080"
	defaultMemcachedAddr      = "localhost:11211"
	defaultRedisAddr          = "localhost:6379"
	defaultSampleInterval     = 10 * time.Second
)

type ServerConfig struct {
	Address        string
	Storage        Storage
	CacheAddress   string
	KeyPrefix      string
	DSN            string
	SampleInterval time.Duration
	ExportRuntime  bool
}

// LoadServerConfig resolves settings as ENV > CLI > defaults.
// A DSN without an explicit storage selects postgres.
func LoadServerConfig(args []string, out io.Writer) (ServerConfig, error) {
	if out == nil {
		out = io.Discard
	}

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(out)

	var addrOpt, storageOpt, cacheOpt, prefixOpt, dsnOpt string
	var sampleOpt int
	var runtimeOpt bool

	fs.StringVar(&addrOpt, "a", "", fmt.Sprintf("HTTP listen address, default: %s", defaultListenAndServeAddr))
	fs.StringVar(&storageOpt, "s", "", fmt.Sprintf("STORAGE backend (%s), default: %s", joinStorages(), StorageMemory))
	fs.StringVar(&cacheOpt, "c", "", fmt.Sprintf("CACHE_ADDRESS host[:port], default: %s or %s", defaultMemcachedAddr, defaultRedisAddr))
	fs.StringVar(&prefixOpt, "p", "", fmt.Sprintf("KEY_PREFIX for cache keys, default: %s", domain.DefaultPrefix))
	fs.StringVar(&dsnOpt, "d", "", "DATABASE_DSN for postgres or mysql")
	fs.IntVar(&sampleOpt, "i", -1, fmt.Sprintf("SAMPLE_INTERVAL seconds for host metrics (0 - off), default: %d", int(defaultSampleInterval.Seconds())))
	fs.BoolVar(&runtimeOpt, "r", false, "EXPORT_RUNTIME Go and process collectors on /metrics")

	if err := fs.Parse(args); err != nil {
		return ServerConfig{}, err
	}

	addr := normalizeListenAndServeURL(fromEnvOrFlag("ADDRESS", addrOpt, defaultListenAndServeAddr))
	if _, port, err := net.SplitHostPort(addr); err != nil || port == "" {
		return ServerConfig{}, fmt.Errorf("invalid listen address: %q", addr)
	}

	dsn := fromEnvOrFlag("DATABASE_DSN", dsnOpt, "")

	def := StorageMemory
	if dsn != "" {
		def = StoragePostgres
	}
	storage := Storage(strings.ToLower(fromEnvOrFlag("STORAGE", storageOpt, string(def))))
	if !slices.Contains(storages, storage) {
		return ServerConfig{}, fmt.Errorf("unknown storage %q, want one of %s", storage, joinStorages())
	}
	if (storage == StoragePostgres || storage == StorageMySQL) && dsn == "" {
		return ServerConfig{}, fmt.Errorf("storage %s requires DATABASE_DSN", storage)
	}

	cacheDef := defaultMemcachedAddr
	if storage == StorageRedis {
		cacheDef = defaultRedisAddr
	}

	return ServerConfig{
		Address:        addr,
		Storage:        storage,
		CacheAddress:   fromEnvOrFlag("CACHE_ADDRESS", cacheOpt, cacheDef),
		KeyPrefix:      fromEnvOrFlag("KEY_PREFIX", prefixOpt, domain.DefaultPrefix),
		DSN:            dsn,
		SampleInterval: fromEnvOrFlagSeconds("SAMPLE_INTERVAL", sampleOpt, -1, defaultSampleInterval),
		ExportRuntime:  fromEnvOrFlagBool("EXPORT_RUNTIME", runtimeOpt, false),
	}, nil
}

// CacheHostPort splits CacheAddress. A missing port is reported as 0 so the
// backend applies its own default.
func (c ServerConfig) CacheHostPort() (string, int, error) {
	host, port, err := net.SplitHostPort(c.CacheAddress)
	if err != nil {
		var ae *net.AddrError
		if errors.As(err, &ae) && strings.Contains(ae.Err, "missing port") {
			return c.CacheAddress, 0, nil
		}
		return "", 0, fmt.Errorf("invalid cache address %q: %w", c.CacheAddress, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 || n > 65535 {
		return "", 0, fmt.Errorf("invalid cache port %q", port)
	}
	return host, n, nil
}

func joinStorages() string {
	names := make([]string, len(storages))
	for i, s := range storages {
		names[i] = string(s)
	}
	return strings.Join(names, "|")
}

func normalizeListenAndServeURL(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultListenAndServeAddr
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		if u, err := url.Parse(s); err == nil && u.Host != "" {
			return u.Host
		}
	}
	if !strings.Contains(s, ":") {
		return ":" + s
	}
	return s
}
