package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// migrationsSQL is portable between SQLite and PostgreSQL.
const migrationsSQL = `
CREATE TABLE IF NOT EXISTS word_counters (
	namespace  TEXT NOT NULL,
	word       TEXT NOT NULL,
	dictionary TEXT NOT NULL DEFAULT '',
	served     BIGINT NOT NULL DEFAULT 0,
	picked     BIGINT NOT NULL DEFAULT 0,
	posted     BIGINT NOT NULL DEFAULT 0,
	guesses    BIGINT NOT NULL DEFAULT 0,
	skips      BIGINT NOT NULL DEFAULT 0,
	solves     BIGINT NOT NULL DEFAULT 0,
	PRIMARY KEY (namespace, word)
);
CREATE TABLE IF NOT EXISTS dictionary_words (
	namespace  TEXT NOT NULL,
	dictionary TEXT NOT NULL,
	word       TEXT NOT NULL,
	PRIMARY KEY (namespace, dictionary, word)
);
CREATE TABLE IF NOT EXISTS slates (
	slate_id   TEXT PRIMARY KEY,
	namespace  TEXT NOT NULL,
	candidates TEXT NOT NULL,
	created_at BIGINT NOT NULL,
	expires_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS slates_expires_at_idx ON slates (expires_at);
CREATE TABLE IF NOT EXISTS bandit_config (
	namespace        TEXT PRIMARY KEY,
	exploration_rate DOUBLE PRECISION NOT NULL,
	z_score_clamp    DOUBLE PRECISION NOT NULL,
	weight_pick_rate DOUBLE PRECISION NOT NULL,
	weight_post_rate DOUBLE PRECISION NOT NULL,
	version          BIGINT NOT NULL,
	updated_at       BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS locks (
	name       TEXT PRIMARY KEY,
	owner      TEXT NOT NULL,
	expires_at BIGINT NOT NULL
);
`

// InitDB runs migrations on the given DB connection.
func InitDB(ctx context.Context, db *sql.DB) error {
	for _, s := range strings.Split(migrationsSQL, ";") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// DBExecutor is satisfied by both *sql.DB and *sql.Tx.
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements the engine's persistence ports on database/sql.
// Queries use $n placeholders so the same Store runs on SQLite and PostgreSQL.
type Store struct {
	db    *sql.DB
	owner string
	now   func() time.Time
}

// New wraps an open, migrated database.
func New(db *sql.DB) *Store {
	return &Store{
		db:    db,
		owner: uuid.NewString(),
		now:   time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Owner identifies this Store as a lock holder.
func (s *Store) Owner() string {
	return s.owner
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// placeholders renders "$start, $start+1, ..." for n arguments.
func placeholders(start, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("$")
		b.WriteString(strconv.Itoa(start + i))
	}
	return b.String()
}

func unixMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
