package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"github.com/vshulcz/promstore/internal/adapters/repository/memory"
	redisrepo "github.com/vshulcz/promstore/internal/adapters/repository/redis"
	"github.com/vshulcz/promstore/internal/config"
	"github.com/vshulcz/promstore/internal/domain"
)

func TestBuildStore(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name     string
		cfg      config.ServerConfig
		wantType any
		wantErr  error
	}{
		{
			name:     "memory",
			cfg:      config.ServerConfig{Storage: config.StorageMemory, KeyPrefix: "t:"},
			wantType: &memory.Repo{},
		},
		{
			name:     "redis",
			cfg:      config.ServerConfig{Storage: config.StorageRedis, CacheAddress: mr.Addr(), KeyPrefix: "t:"},
			wantType: &redisrepo.Repo{},
		},
		{
			name:    "memcached unreachable",
			cfg:     config.ServerConfig{Storage: config.StorageMemcached, CacheAddress: "127.0.0.1:1"},
			wantErr: domain.ErrConnection,
		},
		{
			name:    "redis unreachable",
			cfg:     config.ServerConfig{Storage: config.StorageRedis, CacheAddress: "127.0.0.1:1"},
			wantErr: domain.ErrConnection,
		},
		{
			name:    "mysql bad dsn",
			cfg:     config.ServerConfig{Storage: config.StorageMySQL, DSN: "not a dsn"},
			wantErr: domain.ErrConnection,
		},
		{
			name:    "postgres unreachable",
			cfg:     config.ServerConfig{Storage: config.StoragePostgres, DSN: "postgres://u:p@127.0.0.1:1/db?sslmode=disable&connect_timeout=1"},
			wantErr: domain.ErrConnection,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, closeFn, err := buildStore(context.Background(), tt.cfg, zap.NewNop(), nil)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			defer closeFn()

			switch tt.wantType.(type) {
			case *memory.Repo:
				if _, ok := store.(*memory.Repo); !ok {
					t.Fatalf("store = %T", store)
				}
			case *redisrepo.Repo:
				if _, ok := store.(*redisrepo.Repo); !ok {
					t.Fatalf("store = %T", store)
				}
			}

			ctx := context.Background()
			if err := store.StoreMeasurement(ctx, "m", "k", 3); err != nil {
				t.Fatalf("store: %v", err)
			}
			got, err := store.GetMeasurements(ctx, "m", []string{"k"}, domain.DefaultValue)
			if err != nil || got["k"].String() != "3" {
				t.Fatalf("get = %v, %v", got, err)
			}
		})
	}
}

func TestBuildStore_RetriesUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := config.ServerConfig{Storage: config.StorageMemcached, CacheAddress: "127.0.0.1:1"}
	_, _, err := buildStore(ctx, cfg, zap.NewNop(), []time.Duration{time.Hour})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
