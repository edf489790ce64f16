package db

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Migrate runs every .sql file at the root of fsys in name order.
// The files are expected to be idempotent.
func Migrate(ctx context.Context, db *sqlx.DB, fsys fs.FS) error {
	ups, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("error reading migration dir: %w", err)
	}

	for _, up := range ups {
		if up.IsDir() {
			continue
		}

		if !strings.HasSuffix(up.Name(), "sql") {
			continue
		}

		upBytes, err := fs.ReadFile(fsys, up.Name())
		if err != nil {
			return fmt.Errorf("error reading up file: %w", err)
		}

		if _, err := db.ExecContext(ctx, string(upBytes)); err != nil {
			return fmt.Errorf("error executing up query for file %s: %w", up.Name(), err)
		}
	}

	return nil
}
