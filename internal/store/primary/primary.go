package primary

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// StoreImpl implements store.HandleCacheStore and store.RunStore on SQL.
// Postgres is reached through pgx's database/sql driver; SQLite serves
// single-host deployments and tests.
type StoreImpl struct {
	db *sql.DB
}

// NewPrimaryStore opens the database, checks the connection and creates the
// schema if needed.
func NewPrimaryStore(ctx context.Context, driver, dsn string) (*StoreImpl, error) {
	if dsn == "" {
		return nil, errors.New("database DSN cannot be empty")
	}
	sqlDriver, err := driverName(driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}
	if sqlDriver == "sqlite3" {
		// a single connection keeps ":memory:" databases alive and serialises writers
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	s := &StoreImpl{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func driverName(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "", DriverPostgres, "pgx", "postgresql":
		return "pgx", nil
	case DriverSQLite, "sqlite3":
		return "sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

func (s *StoreImpl) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// Ping checks the database connection.
func (s *StoreImpl) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *StoreImpl) Close() error {
	return s.db.Close()
}
