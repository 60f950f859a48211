// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// books.go caches pages of "books under category" results in Valkey.
// Every key embeds a generation number. Any catalog mutation bumps the
// generation, which orphans all cached pages at once; orphans expire via
// their TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"bookcatalog/internal/models"
)

const (
	// keyPrefix is the Valkey key prefix for everything this cache writes.
	keyPrefix = "books:"

	// generationKey holds the current generation counter.
	generationKey = keyPrefix + "gen"

	// DefaultTTL is how long a cached page stays valid.
	DefaultTTL = 5 * time.Minute
)

// BookPageCache manages cached book listings in Valkey. Errors talking to
// Valkey are logged and reported as misses; the database stays the source
// of truth.
type BookPageCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBookPageCache creates a new cache backed by the given Valkey client.
func NewBookPageCache(client *redis.Client, ttl time.Duration) *BookPageCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &BookPageCache{client: client, ttl: ttl}
}

// PageKey returns the key of one books_under page in generation gen.
func PageKey(gen int64, categoryID uuid.UUID, offset, limit int) string {
	return fmt.Sprintf("%sv%d:%s:%d:%d", keyPrefix, gen, categoryID, offset, limit)
}

// CountKey returns the key of the subtree book count in generation gen.
func CountKey(gen int64, categoryID uuid.UUID) string {
	return fmt.Sprintf("%sv%d:%s:count", keyPrefix, gen, categoryID)
}

// generation reads the current generation. A missing counter is
// generation zero.
func (c *BookPageCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Books returns a cached page, if present.
func (c *BookPageCache) Books(ctx context.Context, categoryID uuid.UUID, offset, limit int) ([]models.Book, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		slog.Warn("book cache generation error", "error", err)
		return nil, false
	}
	var books []models.Book
	if !c.get(ctx, PageKey(gen, categoryID, offset, limit), &books) {
		return nil, false
	}
	return books, true
}

// SetBooks stores a page. gen must be the generation read before the
// database was queried, so a page computed across a mutation lands in an
// already orphaned generation.
func (c *BookPageCache) SetBooks(ctx context.Context, gen int64, categoryID uuid.UUID, offset, limit int, books []models.Book) {
	c.set(ctx, PageKey(gen, categoryID, offset, limit), books)
}

// Count returns a cached subtree book count, if present.
func (c *BookPageCache) Count(ctx context.Context, categoryID uuid.UUID) (int, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		slog.Warn("book cache generation error", "error", err)
		return 0, false
	}
	var n int
	if !c.get(ctx, CountKey(gen, categoryID), &n) {
		return 0, false
	}
	return n, true
}

// SetCount stores a subtree book count under generation gen.
func (c *BookPageCache) SetCount(ctx context.Context, gen int64, categoryID uuid.UUID, n int) {
	c.set(ctx, CountKey(gen, categoryID), n)
}

// Generation returns the generation to pass to SetBooks and SetCount. ok
// is false when Valkey cannot be reached and nothing should be stored.
func (c *BookPageCache) Generation(ctx context.Context) (int64, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		slog.Warn("book cache generation error", "error", err)
		return 0, false
	}
	return gen, true
}

// Invalidate orphans every cached page by moving to the next generation.
func (c *BookPageCache) Invalidate(ctx context.Context) {
	gen, err := c.client.Incr(ctx, generationKey).Result()
	if err != nil {
		slog.Warn("book cache invalidate error", "error", err)
		return
	}
	slog.Debug("book cache invalidated", "generation", gen)
}

func (c *BookPageCache) get(ctx context.Context, key string, v any) bool {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		slog.Warn("book cache get error", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(val, v); err != nil {
		slog.Warn("book cache decode error", "key", key, "error", err)
		return false
	}
	slog.Debug("book cache hit", "key", key)
	return true
}

func (c *BookPageCache) set(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("book cache encode error", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		slog.Warn("book cache set error", "key", key, "error", err)
	}
}
