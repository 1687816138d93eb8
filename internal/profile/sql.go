package profile

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// Dialect selects the SQL flavour of a SQLStore.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// SQLStore keeps keyword profiles in a relational table.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQL opens the database, brings the schema up to date and returns a store.
func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	var driver string
	switch dialect {
	case DialectPostgres:
		driver = "postgres"
	case DialectSQLite:
		driver = "sqlite"
	default:
		return nil, fmt.Errorf("unsupported profile dialect %q", dialect)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	if dialect == DialectSQLite {
		// single writer; avoids SQLITE_BUSY on concurrent upserts
		db.SetMaxOpenConns(1)
		err = initSchema(ctx, db)
	} else {
		err = migratePostgres(db)
	}
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SQLStore{db: db, dialect: dialect}, nil
}

// Close releases the underlying pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func migratePostgres(db *sql.DB) error {
	src, err := iofs.New(postgresMigrations, "migrations/postgres")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	target, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", target)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// initSchema creates the sqlite table if it doesn't exist.
func initSchema(ctx context.Context, db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS user_keywords (
	user_id    TEXT PRIMARY KEY,
	keywords   TEXT NOT NULL,
	operator   TEXT NOT NULL DEFAULT 'OR',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// bind rewrites ? placeholders to $N for postgres.
func (s *SQLStore) bind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	out := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, fmt.Sprintf("$%d", n)...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}

// GetUserKeywords implements Provider.
func (s *SQLStore) GetUserKeywords(ctx context.Context, userID string) (Profile, error) {
	var (
		raw, op              string
		createdAt, updatedAt sqlTime
	)
	row := s.db.QueryRowContext(ctx,
		s.bind(`SELECT keywords, operator, created_at, updated_at FROM user_keywords WHERE user_id = ?`),
		userID)
	if err := row.Scan(&raw, &op, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("query keywords for %s: %w", userID, err)
	}

	var keywords []string
	if err := json.Unmarshal([]byte(raw), &keywords); err != nil {
		return Profile{}, fmt.Errorf("decode keywords for %s: %w", userID, err)
	}
	return Profile{
		UserID:    userID,
		Keywords:  keywords,
		Operator:  Operator(op),
		CreatedAt: createdAt.Time,
		UpdatedAt: updatedAt.Time,
	}, nil
}

// SetKeywords validates and upserts a profile, keeping its original creation time.
func (s *SQLStore) SetKeywords(ctx context.Context, p Profile) (Profile, error) {
	p, err := p.Normalize()
	if err != nil {
		return Profile{}, err
	}
	raw, err := json.Marshal(p.Keywords)
	if err != nil {
		return Profile{}, err
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	_, err = s.db.ExecContext(ctx, s.bind(`
INSERT INTO user_keywords (user_id, keywords, operator, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
	keywords = excluded.keywords,
	operator = excluded.operator,
	updated_at = excluded.updated_at`),
		p.UserID, string(raw), string(p.Operator), s.timeArg(now), s.timeArg(now))
	if err != nil {
		return Profile{}, fmt.Errorf("upsert keywords for %s: %w", p.UserID, err)
	}
	return s.GetUserKeywords(ctx, p.UserID)
}

// DeleteKeywords removes a profile. Deleting a missing profile returns ErrNotFound.
func (s *SQLStore) DeleteKeywords(ctx context.Context, userID string) error {
	res, err := s.db.ExecContext(ctx, s.bind(`DELETE FROM user_keywords WHERE user_id = ?`), userID)
	if err != nil {
		return fmt.Errorf("delete keywords for %s: %w", userID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// sqlite stores timestamps as RFC3339 text.
func (s *SQLStore) timeArg(t time.Time) any {
	if s.dialect == DialectSQLite {
		return t.Format(time.RFC3339Nano)
	}
	return t
}

// sqlTime scans either a native timestamp or RFC3339 text.
type sqlTime struct{ time.Time }

func (t *sqlTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
	case time.Time:
		t.Time = v.UTC()
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("unsupported time value %T", src)
	}
	return nil
}

func (t *sqlTime) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	t.Time = parsed.UTC()
	return nil
}
