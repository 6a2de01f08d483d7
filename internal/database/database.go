package database

import (
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Options control the SQLite connection pragmas. The zero value is usable;
// Open fills in production defaults.
type Options struct {
	JournalMode string        // defaults to WAL
	BusyTimeout time.Duration // defaults to 5s
}

func (o Options) dsn(path string) string {
	if o.JournalMode == "" {
		o.JournalMode = "WAL"
	}
	if o.BusyTimeout <= 0 {
		o.BusyTimeout = 5 * time.Second
	}

	q := url.Values{}
	q.Set("_journal_mode", o.JournalMode)
	q.Set("_busy_timeout", fmt.Sprintf("%d", o.BusyTimeout.Milliseconds()))
	q.Set("_foreign_keys", "on")
	return path + "?" + q.Encode()
}

// Open opens the SQLite database at path with default options and brings the
// schema up to date.
func Open(path string) (*sql.DB, error) {
	return OpenWithOptions(path, Options{})
}

// OpenWithOptions is Open with explicit connection pragmas.
func OpenWithOptions(path string, opts Options) (*sql.DB, error) {
	db, err := sql.Open("sqlite", opts.dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	return db, nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	return goose.Up(db, "migrations")
}
