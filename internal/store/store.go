// Package store persists annotation documents so repeated runs over the
// same scans reuse earlier vision results. SQLite backs the default
// single-machine setup; a postgres DSN switches to a pgx pool.
package store

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/polifund/fundscan/internal/common"
)

const (
	dialectSQLite   = "sqlite"
	dialectPostgres = "postgres"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS annotation_cache (
	cache_key TEXT PRIMARY KEY,
	doc       TEXT NOT NULL,
	stored_at BIGINT NOT NULL
)`

// DB is the annotation cache backend. It satisfies annotate.Store.
type DB struct {
	db      *sql.DB
	pool    *pgxpool.Pool
	dialect string
	logger  *slog.Logger
}

// Open connects to the DSN and ensures the schema exists. DSNs starting
// with postgres:// or postgresql:// use pgx; anything else is treated as
// a SQLite file path.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	d := &DB{logger: logger}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		logger.Info("store.connect", "dialect", dialectPostgres)
		pc, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, common.NewAppError("DATABASE_ERROR", "invalid postgres DSN", errors.Join(common.ErrDatabase, err))
		}
		pc.ConnConfig.RuntimeParams["application_name"] = "fundscan"
		pool, err := pgxpool.NewWithConfig(ctx, pc)
		if err != nil {
			return nil, common.NewAppError("DATABASE_ERROR", "failed to connect to postgres", errors.Join(common.ErrDatabase, err))
		}
		d.pool = pool
		d.db = stdlib.OpenDBFromPool(pool)
		d.dialect = dialectPostgres
	} else {
		logger.Info("store.connect", "dialect", dialectSQLite, "path", dsn)
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, common.NewAppError("DATABASE_ERROR", "failed to open sqlite database", errors.Join(common.ErrDatabase, err))
		}
		// modernc's driver is not safe for concurrent writers on one file.
		db.SetMaxOpenConns(1)
		d.db = db
		d.dialect = dialectSQLite
	}

	if err := d.migrate(ctx); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schemaDDL); err != nil {
		return common.NewAppError("DATABASE_ERROR", "failed to create annotation_cache table", errors.Join(common.ErrDatabase, err))
	}
	return nil
}

// Ping verifies the connection.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close releases the connections.
func (d *DB) Close() {
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			d.logger.Warn("store.close_error", "error", err)
		}
	}
	if d.pool != nil {
		d.pool.Close()
	}
}

// GetAnnotation returns the cached document for key, if any.
func (d *DB) GetAnnotation(ctx context.Context, key string) ([]byte, time.Time, bool, error) {
	query := `SELECT doc, stored_at FROM annotation_cache WHERE cache_key = ?`
	if d.dialect == dialectPostgres {
		query = `SELECT doc, stored_at FROM annotation_cache WHERE cache_key = $1`
	}

	var doc string
	var storedAt int64
	err := d.db.QueryRowContext(ctx, query, key).Scan(&doc, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, common.WrapError(err, "query annotation_cache")
	}
	return []byte(doc), time.Unix(storedAt, 0).UTC(), true, nil
}

// PutAnnotation stores or replaces the document for key.
func (d *DB) PutAnnotation(ctx context.Context, key string, doc []byte, storedAt time.Time) error {
	query := `
INSERT INTO annotation_cache (cache_key, doc, stored_at) VALUES (?, ?, ?)
ON CONFLICT (cache_key) DO UPDATE SET doc = excluded.doc, stored_at = excluded.stored_at`
	if d.dialect == dialectPostgres {
		query = `
INSERT INTO annotation_cache (cache_key, doc, stored_at) VALUES ($1, $2, $3)
ON CONFLICT (cache_key) DO UPDATE SET doc = EXCLUDED.doc, stored_at = EXCLUDED.stored_at`
	}

	if _, err := d.db.ExecContext(ctx, query, key, string(doc), storedAt.Unix()); err != nil {
		return common.WrapError(err, "upsert annotation_cache")
	}
	return nil
}

// PruneBefore deletes entries stored before cutoff and reports how many
// rows went away.
func (d *DB) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM annotation_cache WHERE stored_at < ?`
	if d.dialect == dialectPostgres {
		query = `DELETE FROM annotation_cache WHERE stored_at < $1`
	}

	res, err := d.db.ExecContext(ctx, query, cutoff.Unix())
	if err != nil {
		return 0, common.WrapError(err, "prune annotation_cache")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}
