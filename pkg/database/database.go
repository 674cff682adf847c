package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/class1/class1-admin-api/pkg/config"
)

// New opens the relational store selected by cfg.Driver ("postgres" or
// "sqlite") and verifies connectivity. Both drivers are served through the
// same sqlx handle; repositories write queries with '?' placeholders and
// rebind them per driver.
func New(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return newPostgres(cfg)
	case config.DriverSQLite, "":
		return newSQLite(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func newPostgres(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.Name,
		cfg.SSLMode,
	)

	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func newSQLite(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	path := cfg.Path
	if path == "" {
		path = "./class1admin.db"
	}

	// sqlx does not ship a bindvar mapping for modernc's "sqlite" driver
	// name, only for "sqlite3".
	sqlx.BindDriver("sqlite", sqlx.QUESTION)

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// SQLite serializes writers; a single connection avoids SQLITE_BUSY
	// under concurrent requests.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
