// Package database centralises sqlx connection helpers.  The default driver
// is modernc.org/sqlite (pure Go, one local file).  go-sql-driver/mysql is
// also registered so a shared MySQL or MariaDB server can hold the history
// instead.
//
// Public entry points:
//
//	Open(ctx, driver, dsn)                     – single-connection helper for one invocation.
//	OpenWithOptions(ctx, driver, dsn, opts)    – fine-grained control.
//
// Both helpers Ping the database before returning so callers can fail fast
// during bootstrap.  Callers should Close() the returned *sqlx.DB when no
// longer needed.
package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Supported driver names.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// ErrUnknownDriver is returned for a driver other than sqlite or mysql.
var ErrUnknownDriver = errors.New("unknown database driver")

// Options tunes one pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Retries         int           // extra Ping attempts after the first
	RetryBackoff    time.Duration // doubled after every failed attempt
}

func init() {
	// sqlx only knows "sqlite3"; the modernc driver registers as "sqlite".
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Open returns a *sqlx.DB sized for a single-shot CLI invocation: one open
// connection, no idle pool churn, one retry for a briefly locked file.
func Open(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	return OpenWithOptions(ctx, driver, dsn, Options{
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: 5 * time.Minute,
		Retries:         1,
		RetryBackoff:    200 * time.Millisecond,
	})
}

// OpenWithOptions lets callers tune the pool and the ping retry policy.
func OpenWithOptions(ctx context.Context, driver, dsn string, opts Options) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite:
		var err error
		if dsn, err = prepareSQLite(dsn); err != nil {
			return nil, err
		}
	case DriverMySQL:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	backoff := opts.RetryBackoff
	for attempt := 0; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			return db, nil
		}
		if attempt >= opts.Retries {
			break
		}
		zap.L().Debug("database ping failed, retrying",
			zap.String("driver", driver),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	_ = db.Close()
	return nil, err
}

// prepareSQLite creates the parent directory of a plain file path and adds a
// busy timeout so two overlapping invocations wait instead of failing.
func prepareSQLite(dsn string) (string, error) {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return dsn, nil
	}
	path := dsn
	if i := strings.IndexByte(path, '?'); i != -1 {
		path = path[:i]
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=busy_timeout(5000)"
	}
	return dsn, nil
}
