package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/mkrutov/termgate/internal/server/migrations"
	"github.com/mkrutov/termgate/internal/server/users"
)

type SQLiteRepositoryManager struct {
	db    *sql.DB
	users users.Repository
}

func (m *SQLiteRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *SQLiteRepositoryManager) Close() error {
	return m.db.Close()
}

func (m *SQLiteRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}

	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return err
	}

	return nil
}

// sqliteDSN adds the connection pragmas (WAL, busy timeout, foreign keys)
// unless the caller supplied a full file: DSN with its own options.
func sqliteDSN(dsn string) string {
	if strings.HasPrefix(dsn, "file:") {
		return dsn
	}
	return "file:" + dsn + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

// NewSQLiteRepositoryManager opens (or creates) the registry database and
// runs migrations. An existing file that cannot be opened or migrated is an
// error: registry corruption must surface loudly, never as an empty
// registry.
func NewSQLiteRepositoryManager(dsn string) (RepositoryManager, error) {

	db, err := sql.Open("sqlite", sqliteDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	// modernc sqlite allows one writer; serialize through a single conn
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	userRepo, err := users.NewSQLiteRepository(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("user repo creation error: %w", err)
	}

	m := &SQLiteRepositoryManager{
		db:    db,
		users: userRepo,
	}

	if err := m.RunMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}
