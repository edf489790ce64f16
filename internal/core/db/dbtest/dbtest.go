// Package dbtest opens throwaway, migrated sqlite databases for tests
package dbtest

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tawnybot/tawnybot/internal/core/db"
)

// migrateDir finds the repo's migrate directory relative to this file
func migrateDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "..", "migrate")
}

// New opens a fresh database in a temp dir, runs the migrations on it and closes it when
// the test is over
func New(t testing.TB) (*sqlx.DB, db.DB) {
	t.Helper()

	u, err := url.Parse(filepath.Join(t.TempDir(), "test.sqlite"))
	if err != nil {
		t.Fatalf("error parsing url: %s", err)
	}
	q := u.Query()
	q.Add("_journal", "WAL")
	q.Add("_busy_timeout", "5000")
	u.RawQuery = q.Encode()

	sqlxDB, err := sqlx.Open("sqlite3", u.String())
	if err != nil {
		t.Fatalf("error opening test db: %s", err)
	}
	// One writer at a time, same as in production
	sqlxDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlxDB.Close() })

	if err := db.Migrate(context.Background(), sqlxDB, os.DirFS(migrateDir())); err != nil {
		t.Fatalf("error migrating test db: %s", err)
	}

	return sqlxDB, db.New(sqlxDB)
}
