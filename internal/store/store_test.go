// store_test.go provides a shared test database helper for the store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"

	"bookcatalog/internal/database"
)

// testDSN returns the PostgreSQL connection string for testing.
// Uses environment variables with the same defaults as config.Load.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "bookcatalog")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "bookcatalog")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testPool opens a pool to the test database, runs migrations and empties
// the catalog tables. If the database is unavailable, the test is skipped.
// The pool is closed when the test finishes.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pool, err := database.Connect(ctx, testDSN())
	if err != nil {
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Downgrade goose global state.
	goose.SetBaseFS(nil)

	resetCatalog(t, pool)
	t.Cleanup(func() {
		resetCatalog(t, pool)
		pool.Close()
	})
	return pool
}

// resetCatalog removes every category, book and link.
func resetCatalog(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		"TRUNCATE category_books, books, categories, category_mutation_log")
	if err != nil {
		t.Fatalf("reset catalog: %v", err)
	}
}

// testStores wires the three stores to pool.
func testStores(pool *pgxpool.Pool) (*CategoryStore, *BookStore, *SubtreeQuery) {
	books := NewBookStore(pool)
	categories := NewCategoryStore(pool, books, 0)
	return categories, books, NewSubtreeQuery(pool, categories, books)
}
