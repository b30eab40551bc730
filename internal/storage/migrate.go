package storage

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schema string

// Migrate creates the author and book tables when missing. Idempotent.
func Migrate(ctx context.Context, pg *pgxpool.Pool, l *slog.Logger) error {
	_, err := pg.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}

	l.InfoContext(ctx, "Schema is up to date")
	return nil
}
