package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vshulcz/promstore/internal/adapters/repository/memcached"
	"github.com/vshulcz/promstore/internal/adapters/repository/memory"
	redisrepo "github.com/vshulcz/promstore/internal/adapters/repository/redis"
	"github.com/vshulcz/promstore/internal/adapters/repository/sqlrepo"
	"github.com/vshulcz/promstore/internal/config"
	"github.com/vshulcz/promstore/internal/domain"
	"github.com/vshulcz/promstore/internal/misc"
	"github.com/vshulcz/promstore/internal/ports"
)

func nopClose() error { return nil }

func isConnectionErr(err error) bool {
	return errors.Is(err, domain.ErrConnection)
}

// buildStore opens the configured backend, retrying connection failures
// with delays. The returned func releases the backend.
func buildStore(ctx context.Context, cfg config.ServerConfig, logger *zap.Logger, delays []time.Duration) (ports.MeasurementStore, func() error, error) {
	notify := func(attempt int, err error, wait time.Duration) {
		logger.Warn("storage not reachable, retrying",
			zap.String("storage", string(cfg.Storage)),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	switch cfg.Storage {
	case config.StorageMemory, "":
		return memory.New(cfg.KeyPrefix), nopClose, nil

	case config.StorageMemcached:
		host, port, err := cfg.CacheHostPort()
		if err != nil {
			return nil, nil, err
		}
		var repo *memcached.Repo
		err = misc.Retry(ctx, delays, isConnectionErr, notify, func(context.Context) error {
			var err error
			repo, err = memcached.New(host, port, cfg.KeyPrefix)
			return err
		})
		if err != nil {
			return nil, nil, err
		}
		return repo, nopClose, nil

	case config.StorageRedis:
		var repo *redisrepo.Repo
		err := misc.Retry(ctx, delays, isConnectionErr, notify, func(ctx context.Context) error {
			var err error
			repo, err = redisrepo.Dial(ctx, cfg.CacheAddress, cfg.KeyPrefix)
			return err
		})
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil

	case config.StoragePostgres, config.StorageMySQL:
		d, err := sqlrepo.DialectByName(string(cfg.Storage))
		if err != nil {
			return nil, nil, err
		}
		db, err := sql.Open(d.Driver, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", domain.ErrConnection, err)
		}
		err = misc.Retry(ctx, delays, sqlrepo.IsConnectionError, notify, func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				return err
			}
			return sqlrepo.Migrate(ctx, db, d)
		})
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("%w: %w", domain.ErrConnection, err)
		}
		logger.Info("database connected and migrated", zap.String("dialect", d.Name))
		return sqlrepo.New(db, d, cfg.KeyPrefix), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}
