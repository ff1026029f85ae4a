package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/sahihnews/sahihnews/internal/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// store implements models.StoreTx on top of a pool or a transaction.
type store struct {
	db DBTX
}

// SharedDB is the Postgres implementation of models.Store.
type SharedDB struct {
	store
	pool *pgxpool.Pool
}

var _ models.Store = (*SharedDB)(nil)

func MigrateUp(migrationsURL, dbURL string) error {
	m, err := migrate.New(migrationsURL, dbURL)
	if err != nil {
		return fmt.Errorf("Error reading migrations: %w", err)
	}
	defer m.Close()
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("While migrating up: %w", err)
	}
	return nil
}
func MigrateDown(migrationsURL, dbURL string) error {
	m, err := migrate.New(migrationsURL, dbURL)
	if err != nil {
		return fmt.Errorf("Error reading migrations: %w", err)
	}
	defer m.Close()
	err = m.Down()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("While migrating down: %w", err)
	}
	return nil
}
func Drop(migrationsURL, dbURL string) error {
	m, err := migrate.New(migrationsURL, dbURL)
	if err != nil {
		return fmt.Errorf("Error reading migrations: %w", err)
	}
	defer m.Close()
	err = m.Drop()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("While dropping: %w", err)
	}
	return nil
}

func Connect(ctx context.Context, config *models.EnvConfig) (*SharedDB, error) {
	pool, err := pgxpool.Connect(ctx, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("Failed to connect to postgres: %w", err)
	}
	return &SharedDB{store: store{db: pool}, pool: pool}, nil
}

func (sdb *SharedDB) Close() error {
	sdb.pool.Close()
	return nil
}

func (sdb *SharedDB) WithTx(ctx context.Context, fn func(ctx context.Context, tx models.StoreTx) error) error {
	err := execTx(ctx, sdb.pool, func(ctx context.Context, tx DBTX) error {
		return fn(ctx, &store{db: tx})
	})
	return mapErr(err)
}

func execTx(ctx context.Context, db DBTX, txFunc func(context.Context, DBTX) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}

	err = txFunc(ctx, tx)
	if err != nil {
		tx.Rollback(ctx)
		return err
	}

	err = tx.Commit(ctx)
	return err
}

// Postgres error codes translated into domain errors.
const (
	codeUniqueViolation      = "23505"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) || pgxscan.NotFound(err) {
		return fmt.Errorf("%w: %v", models.ErrNotFound, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation, codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%w: %s", models.ErrConflict, pgErr.Message)
		}
	}
	return err
}
