package sqlrepo

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var embedMigrations embed.FS

// Migrate creates the measurements table for the dialect if needed.
// The repository itself never alters the schema.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	fsys, err := fs.Sub(embedMigrations, "migrations/"+d.Name)
	if err != nil {
		return fmt.Errorf("migrations for %s: %w", d.Name, err)
	}
	p, err := goose.NewProvider(d.migrations, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
