// Package storedb opens sqlite-backed stores and applies versioned
// migrations. Each consumer owns its migration list; versions are tracked
// per module so independent stores can share one database file.
package storedb

import (
	"database/sql"
	"os"
	"path/filepath"
	"slices"

	_ "modernc.org/sqlite"

	"github.com/waxwing-dev/waxwing/internal/errx"
)

// Migration is one schema step. SQL may contain multiple statements.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// OpenOptions configure Open.
type OpenOptions struct {
	// Path is the database file. Parent directories are created.
	Path string

	// Module namespaces the migration bookkeeping.
	Module string

	// Migrations are applied in Version order inside transactions.
	Migrations []Migration
}

// Open opens (creating if needed) the database and brings the module's
// schema up to date.
func Open(opts OpenOptions) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, errx.Wrap(ErrOpenDatabase, err)
	}
	db, err := sql.Open("sqlite", opts.Path)
	if err != nil {
		return nil, errx.Wrap(ErrOpenDatabase, err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, errx.Wrap(ErrOpenDatabase, err)
	}
	if err := migrate(db, opts.Module, opts.Migrations); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func migrate(db *sql.DB, module string, migrations []Migration) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  module TEXT NOT NULL,
  version INTEGER NOT NULL,
  name TEXT NOT NULL,
  applied_at TEXT NOT NULL,
  PRIMARY KEY (module, version)
);`)
	if err != nil {
		return errx.Wrap(ErrMigrate, err)
	}

	var current int
	err = db.QueryRow(
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations WHERE module = ?`, module,
	).Scan(&current)
	if err != nil {
		return errx.Wrap(ErrMigrate, err)
	}

	ordered := slices.Clone(migrations)
	slices.SortFunc(ordered, func(a, b Migration) int { return a.Version - b.Version })
	for _, m := range ordered {
		if m.Version <= current {
			continue
		}
		tx, err := db.Begin()
		if err != nil {
			return errx.Wrap(ErrMigrate, err)
		}
		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return errx.With(ErrMigrate, ": %s v%d (%s): %v", module, m.Version, m.Name, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO schema_migrations(module, version, name, applied_at)
			 VALUES (?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))`,
			module, m.Version, m.Name,
		); err != nil {
			tx.Rollback()
			return errx.Wrap(ErrMigrate, err)
		}
		if err := tx.Commit(); err != nil {
			return errx.Wrap(ErrMigrate, err)
		}
	}
	return nil
}
