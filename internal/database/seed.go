package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RootName is the name given to the root category created by Seed.
const RootName = "Catalog"

// Seed populates the database with initial development data. It creates
// the root category when the tree is empty; the root occupies keys (1, 2).
func Seed(ctx context.Context, pool *pgxpool.Pool) error {
	tag, err := pool.Exec(ctx, `
		INSERT INTO categories (name, left_key, right_key)
		SELECT $1, 1, 2
		WHERE NOT EXISTS (SELECT 1 FROM categories)
	`, RootName)
	if err != nil {
		return fmt.Errorf("seed root category: %w", err)
	}

	if tag.RowsAffected() == 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	slog.Info("database seeded with root category", "name", RootName)
	return nil
}
