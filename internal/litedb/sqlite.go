// Package litedb is a SQLite implementation of models.Store, used for
// single-binary deployments and for tests that need a real database.
package litedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/sahihnews/sahihnews/internal/models"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const schemaV1 = `
CREATE TABLE IF NOT EXISTS users (
	id                 INTEGER PRIMARY KEY,
	username           TEXT NOT NULL,
	display_name       TEXT NOT NULL DEFAULT '',
	bio                TEXT NOT NULL DEFAULT '',
	avatar_url         TEXT NOT NULL DEFAULT '',
	credibility_score  INTEGER NOT NULL DEFAULT 50 CHECK (credibility_score BETWEEN 0 AND 100),
	reviewer_level     TEXT NOT NULL DEFAULT 'none',
	suspended          INTEGER NOT NULL DEFAULT 0,
	review_count       INTEGER NOT NULL DEFAULT 0,
	review_matches     INTEGER NOT NULL DEFAULT 0,
	level_review_count INTEGER NOT NULL DEFAULT 0,
	level_since        INTEGER NOT NULL,
	role               TEXT NOT NULL DEFAULT 'user',
	is_verified        INTEGER NOT NULL DEFAULT 0,
	created_at         INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS posts (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	author_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	content       TEXT NOT NULL,
	source_urls   TEXT NOT NULL DEFAULT '[]',
	created_at    INTEGER NOT NULL,
	consensus_tag TEXT NOT NULL DEFAULT 'unverified',
	confidence    INTEGER NOT NULL DEFAULT 0,
	review_count  INTEGER NOT NULL DEFAULT 0,
	version       INTEGER NOT NULL DEFAULT 0,
	stable_rounds INTEGER NOT NULL DEFAULT 0,
	finalized_tag TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author_id);

CREATE TABLE IF NOT EXISTS reviews (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id        INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	reviewer_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	verdict        TEXT NOT NULL,
	weight         INTEGER NOT NULL CHECK (weight >= 1),
	comment        TEXT NOT NULL DEFAULT '',
	created_at     INTEGER NOT NULL,
	updated_at     INTEGER NOT NULL,
	since_version  INTEGER NOT NULL DEFAULT 0,
	UNIQUE(post_id, reviewer_id)
);

CREATE TABLE IF NOT EXISTS review_credits (
	post_id     INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	reviewer_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	matched     INTEGER NOT NULL,
	bonus_paid  INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (post_id, reviewer_id)
);

CREATE TABLE IF NOT EXISTS reactions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id    INTEGER NOT NULL REFERENCES posts(id) ON DELETE CASCADE,
	user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	type       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	UNIQUE(post_id, user_id)
);

CREATE TABLE IF NOT EXISTS level_applications (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	from_level  TEXT NOT NULL,
	to_level    TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	created_at  INTEGER NOT NULL,
	resolved_at INTEGER,
	resolved_by INTEGER
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_applications_one_pending
	ON level_applications(user_id) WHERE status = 'pending';

CREATE TABLE IF NOT EXISTS notifications (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	notif_type TEXT NOT NULL,
	title      TEXT NOT NULL,
	text       TEXT NOT NULL,
	action_url TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id);
`

var lite = sq.StatementBuilder.PlaceholderFormat(sq.Question)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type store struct {
	db querier
}

type DB struct {
	store
	sqlDB *sql.DB
}

var _ models.Store = (*DB)(nil)

// NewDB opens a SQLite database at the given path with recommended pragmas
// and runs the schema migration.
func NewDB(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Single writer: every transaction is serialized on one connection.
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.ExecContext(context.Background(), schemaV1); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &DB{store: store{db: sqlDB}, sqlDB: sqlDB}, nil
}

func (d *DB) Close() error {
	return d.sqlDB.Close()
}

func (d *DB) WithTx(ctx context.Context, fn func(ctx context.Context, tx models.StoreTx) error) error {
	tx, err := d.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(ctx, &store{db: tx}); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapErr(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", models.ErrNotFound, err)
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_BUSY:
			return fmt.Errorf("%w: %v", models.ErrConflict, err)
		}
	}
	return err
}

func affectedOne(res sql.Result, err error, what string, id int) error {
	if err != nil {
		return mapErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %d", models.ErrNotFound, what, id)
	}
	return nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

func fromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
