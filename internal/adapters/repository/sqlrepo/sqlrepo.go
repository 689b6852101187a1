// Package sqlrepo implements a measurement store on a relational table with
// a unique key column and a floating-point value column.
package sqlrepo

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"net"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"

	"github.com/vshulcz/promstore/internal/domain"
	"github.com/vshulcz/promstore/internal/ports"
)

// Repo persists measurements in a single table, one row per composite key.
type Repo struct {
	db      *sql.DB
	dialect Dialect
	q       queries
	prefix  string
}

var (
	_ ports.MeasurementStore = (*Repo)(nil)
	_ ports.Pinger           = (*Repo)(nil)
)

// New returns a repository on an already opened handle.
func New(db *sql.DB, d Dialect, prefix string) *Repo {
	return &Repo{db: db, dialect: d, q: d.queries(), prefix: prefix}
}

// StoreMeasurement upserts the row for the composite key. Dialects without
// NaN and infinity support reject those values with domain.ErrInvalidValue.
func (r *Repo) StoreMeasurement(ctx context.Context, metric, key string, value float64) error {
	if r.dialect.finiteOnly && (math.IsNaN(value) || math.IsInf(value, 0)) {
		return fmt.Errorf("%w: %s cannot store %v", domain.ErrInvalidValue, r.dialect.Name, value)
	}
	if _, err := r.db.ExecContext(ctx, r.q.upsert, domain.StorageKey(r.prefix, metric, key), value); err != nil {
		return classify(err)
	}
	return nil
}

// IncrementMeasurement selects the current value, adds one and upserts it.
// The two statements do not share a transaction.
func (r *Repo) IncrementMeasurement(ctx context.Context, metric, key string) error {
	var current float64
	err := r.db.QueryRowContext(ctx, r.q.selectOne, domain.StorageKey(r.prefix, metric, key)).Scan(&current)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return classify(err)
	}
	return r.StoreMeasurement(ctx, metric, key, current+1)
}

// GetMeasurements selects every requested row with one IN query.
func (r *Repo) GetMeasurements(ctx context.Context, metric string, keys []string, defaultValue string) (map[string]domain.Sample, error) {
	out := domain.NewMeasurements(keys, defaultValue)
	if len(keys) == 0 {
		return out, nil
	}

	args := make([]any, len(keys))
	for i, sk := range domain.StorageKeys(r.prefix, metric, keys) {
		args[i] = sk
	}
	rows, err := r.db.QueryContext(ctx, r.q.selectIn+r.dialect.inList(len(keys)), args...)
	if err != nil {
		return nil, classify(err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var (
		sk string
		v  float64
	)
	for rows.Next() {
		if err := rows.Scan(&sk, &v); err != nil {
			return nil, classify(err)
		}
		if k, ok := domain.TrimStorageKey(r.prefix, metric, sk); ok {
			out[k] = domain.Measured(v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// Ping verifies the database connection using a short-lived context.
func (r *Repo) Ping(ctx context.Context) error {
	if r.db == nil {
		return fmt.Errorf("%w: db not configured", domain.ErrConnection)
	}
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := r.db.PingContext(ctx); err != nil {
		return classify(err)
	}
	return nil
}

var connectionPGCodes = map[string]struct{}{
	pgerrcode.ConnectionException:                           {},
	pgerrcode.ConnectionDoesNotExist:                        {},
	pgerrcode.ConnectionFailure:                             {},
	pgerrcode.SQLClientUnableToEstablishSQLConnection:       {},
	pgerrcode.SQLServerRejectedEstablishmentOfSQLConnection: {},
	pgerrcode.TransactionResolutionUnknown:                  {},
	pgerrcode.ProtocolViolation:                             {},
	pgerrcode.TooManyConnections:                            {},
	pgerrcode.AdminShutdown:                                 {},
	pgerrcode.CrashShutdown:                                 {},
	pgerrcode.CannotConnectNow:                              {},
	pgerrcode.InvalidPassword:                               {},
	pgerrcode.InvalidAuthorizationSpecification:             {},
}

// MySQL server error numbers that mean the session cannot be used.
var connectionMySQLErrors = map[uint16]struct{}{
	1040: {}, // ER_CON_COUNT_ERROR
	1042: {}, // ER_BAD_HOST_ERROR
	1043: {}, // ER_HANDSHAKE_ERROR
	1044: {}, // ER_DBACCESS_DENIED_ERROR
	1045: {}, // ER_ACCESS_DENIED_ERROR
	1053: {}, // ER_SERVER_SHUTDOWN
	1129: {}, // ER_HOST_IS_BLOCKED
	1130: {}, // ER_HOST_NOT_PRIVILEGED
}

// IsConnectionError reports whether err means the store cannot be reached,
// as opposed to a single statement failing.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var pqe *pq.Error
	if errors.As(err, &pqe) {
		return isConnectionPGCode(string(pqe.Code))
	}
	var mye *mysql.MySQLError
	if errors.As(err, &mye) {
		_, ok := connectionMySQLErrors[mye.Number]
		return ok
	}
	return false
}

func isConnectionPGCode(code string) bool {
	if _, ok := connectionPGCodes[code]; ok {
		return true
	}
	return strings.HasPrefix(code, "08")
}

func classify(err error) error {
	if IsConnectionError(err) {
		return fmt.Errorf("%w: %w", domain.ErrConnection, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
}
