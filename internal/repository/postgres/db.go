package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andresuchdata/stockcount/internal/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 5 * time.Minute

	// Recount batches and order writes hold a transaction each.
	maxConcurrentTx = 10

	connectAttempts = 3
	connectBackoff  = 2 * time.Second
)

// DB is the shared pool plus a bound on concurrent write transactions.
type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

// NewDB opens the pool, retrying briefly while the database comes up.
func NewDB(cfg *config.DatabaseConfig) (*DB, error) {
	var (
		db  *sqlx.DB
		err error
	)
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err = sqlx.Connect("postgres", cfg.DSN())
		if err == nil {
			break
		}
		log.Warn().Err(err).
			Int("attempt", attempt).
			Str("host", cfg.Host).
			Str("database", cfg.DBName).
			Msg("database not reachable")
		if attempt < connectAttempts {
			time.Sleep(connectBackoff * time.Duration(attempt))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect postgres %s/%s: %w", cfg.Host, cfg.DBName, err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	return wrapDB(db), nil
}

func wrapDB(db *sqlx.DB) *DB {
	return &DB{DB: db, sem: semaphore.NewWeighted(maxConcurrentTx)}
}

// WithTx runs fn inside a read-committed transaction, rolling back when fn
// fails.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait for transaction slot: %w", err)
	}
	defer db.sem.Release(1)

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx.Tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
