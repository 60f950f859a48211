// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"bookcatalog/internal/models"
	"bookcatalog/internal/nestedset"
)

// DefaultLockTimeout bounds how long a mutation waits for the tree lock.
const DefaultLockTimeout = 5 * time.Second

const categoryColumns = `id, name, left_key, right_key`

const (
	sqlSetLockTimeout = `SELECT set_config('lock_timeout', $1, true)`

	// SHARE ROW EXCLUSIVE conflicts with itself and with row writes, but
	// not with plain SELECTs, so readers keep their snapshot.
	sqlLockTree = `LOCK TABLE categories IN SHARE ROW EXCLUSIVE MODE`

	sqlFindCategory  = `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`
	sqlFindParent    = `SELECT ` + categoryColumns + ` FROM categories WHERE left_key < $1 AND right_key > $2 ORDER BY left_key DESC LIMIT 1`
	sqlCountNodes    = `SELECT COUNT(*) FROM categories`
	sqlInsertNode    = `INSERT INTO categories (name, left_key, right_key) VALUES ($1, $2, $3) RETURNING id`
	sqlDeleteSpan    = `DELETE FROM categories WHERE left_key >= $1 AND right_key <= $2`
	sqlRenameNode    = `UPDATE categories SET name = $1 WHERE id = $2`
	sqlListOrdered   = `SELECT ` + categoryColumns + ` FROM categories ORDER BY left_key`
	sqlCheckKeySpace = `
		SELECT COUNT(*),
		       COALESCE(MIN(left_key), 0),
		       COALESCE(MAX(right_key), 0),
		       COUNT(*) FILTER (WHERE (right_key - left_key) % 2 = 0),
		       (SELECT COUNT(DISTINCT k) FROM (SELECT left_key AS k FROM categories UNION ALL SELECT right_key FROM categories) AS keys)
		FROM categories`
)

const (
	sqlCountAncestors = `SELECT COUNT(*) FROM categories WHERE left_key < $1 AND right_key > $2`

	// Children of the parent at $1 that close before the node at $2. A
	// sibling has no enclosing node below the parent.
	sqlCountPrecedingSiblings = `
		SELECT COUNT(*) FROM categories s
		WHERE s.left_key > $1 AND s.right_key < $2
		  AND NOT EXISTS (
		      SELECT 1 FROM categories m
		      WHERE m.left_key > $1 AND m.left_key < s.left_key AND m.right_key > s.right_key)`
)

// CategoryStore owns the nested-set category tree. It is the only writer of
// left_key and right_key. Every mutation runs in one transaction holding the
// tree lock; readers are never blocked.
type CategoryStore struct {
	db          DB
	books       *BookStore
	lockTimeout time.Duration
}

// NewCategoryStore returns a new CategoryStore. books receives the link
// cleanup of deleted categories; lockTimeout <= 0 selects
// DefaultLockTimeout.
func NewCategoryStore(db DB, books *BookStore, lockTimeout time.Duration) *CategoryStore {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &CategoryStore{db: db, books: books, lockTimeout: lockTimeout}
}

// scanCategory scans a row into a Category struct.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	var c models.Category
	if err := scanner.Scan(&c.ID, &c.Name, &c.LeftKey, &c.RightKey); err != nil {
		return nil, err
	}
	return &c, nil
}

func findCategory(ctx context.Context, q Querier, id uuid.UUID) (*models.Category, error) {
	c, err := scanCategory(q.QueryRow(ctx, sqlFindCategory, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("find category", err)
	}
	return c, nil
}

// findParent returns the closest enclosing node of span.
func findParent(ctx context.Context, q Querier, span nestedset.Span) (*models.Category, error) {
	c, err := scanCategory(q.QueryRow(ctx, sqlFindParent, span.Left, span.Right))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("parent of span (%d, %d): %w", span.Left, span.Right, ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("find parent", err)
	}
	return c, nil
}

// parentOf returns the parent of a non-root category. A missing parent
// means the key space is broken.
func parentOf(ctx context.Context, q Querier, c *models.Category) (*models.Category, error) {
	parent, err := findParent(ctx, q, c.Span())
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: category %s has no parent", ErrStorage, c.ID)
	}
	return parent, err
}

// mutate runs fn in a transaction that holds the tree lock. Waiting for the
// lock honours ctx and the lock timeout; once it is held, fn and the commit
// run to completion regardless of ctx. The key space is checked before
// committing and any failure rolls the whole unit back.
func (s *CategoryStore) mutate(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return storageErr("begin", err)
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, sqlSetLockTimeout, lockTimeoutSetting(s.lockTimeout)); err != nil {
		return storageErr("set lock timeout", err)
	}
	if _, err := tx.Exec(ctx, sqlLockTree); err != nil {
		return storageErr("lock tree", err)
	}

	ctx = context.WithoutCancel(ctx)
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := checkKeySpace(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit", err)
	}
	return nil
}

// lockTimeoutSetting renders d for lock_timeout in whole milliseconds,
// rounded up. Postgres reads 0 as "wait forever", so the result is never
// below 1ms.
func lockTimeoutSetting(d time.Duration) string {
	ms := int64((d + time.Millisecond - 1) / time.Millisecond)
	return fmt.Sprintf("%dms", max(ms, 1))
}

// checkKeySpace verifies that the keys form a permutation of 1..2N with odd
// widths. It is the last statement of every mutation.
func checkKeySpace(ctx context.Context, q Querier) error {
	var nodes, minLeft, maxRight, even, distinct int
	err := q.QueryRow(ctx, sqlCheckKeySpace).Scan(&nodes, &minLeft, &maxRight, &even, &distinct)
	if err != nil {
		return storageErr("check key space", err)
	}
	if nodes == 0 {
		return nil
	}
	if minLeft != 1 || maxRight != 2*nodes || even != 0 || distinct != 2*nodes {
		return fmt.Errorf("%w: key space broken: nodes=%d min=%d max=%d even=%d distinct=%d",
			ErrStorage, nodes, minLeft, maxRight, even, distinct)
	}
	return nil
}

func validName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("category name is empty: %w", ErrInvalidArgument)
	}
	return nil
}

// Insert creates a category as the last child of parentID and returns its
// id. uuid.Nil creates the root of an empty tree.
func (s *CategoryStore) Insert(ctx context.Context, parentID uuid.UUID, name string) (uuid.UUID, error) {
	if err := validName(name); err != nil {
		return uuid.Nil, fmt.Errorf("insert category: %w", err)
	}

	var id uuid.UUID
	err := s.mutate(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var node nestedset.Span
		if parentID == uuid.Nil {
			var count int
			if err := tx.QueryRow(ctx, sqlCountNodes).Scan(&count); err != nil {
				return storageErr("count categories", err)
			}
			if count > 0 {
				return fmt.Errorf("root already exists: %w", ErrInvalidState)
			}
			node = nestedset.Root()
		} else {
			parent, err := findCategory(ctx, tx, parentID)
			if err != nil {
				return err
			}
			var plan nestedset.Plan
			plan, node = nestedset.Insert(parent.Span())
			if err := applyPlan(ctx, tx, plan); err != nil {
				return err
			}
		}
		if err := tx.QueryRow(ctx, sqlInsertNode, name, node.Left, node.Right).Scan(&id); err != nil {
			return storageErr("insert row", err)
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert category: %w", err)
	}
	return id, nil
}

// Delete removes a category. A category with children is only removed
// together with its whole subtree when cascade is set. Book links of every
// removed category are dropped in the same transaction.
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID, cascade bool) error {
	err := s.mutate(ctx, func(ctx context.Context, tx pgx.Tx) error {
		node, err := findCategory(ctx, tx, id)
		if err != nil {
			return err
		}
		if node.IsRoot() {
			return fmt.Errorf("category %s is the root: %w", id, ErrForbidden)
		}
		span := node.Span()
		if !span.IsLeaf() && !cascade {
			return fmt.Errorf("category %s has %d descendants: %w", id, span.Descendants(), ErrNotEmpty)
		}

		if err := s.books.unlinkSpan(ctx, tx, span); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, sqlDeleteSpan, span.Left, span.Right)
		if err != nil {
			return storageErr("delete rows", err)
		}
		if want := int64(span.Descendants() + 1); tag.RowsAffected() != want {
			return fmt.Errorf("%w: deleted %d rows, span (%d, %d) holds %d",
				ErrStorage, tag.RowsAffected(), span.Left, span.Right, want)
		}
		return applyPlan(ctx, tx, nestedset.Remove(span))
	})
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// Move re-parents a category with its subtree, making it the last child of
// newParentID.
func (s *CategoryStore) Move(ctx context.Context, id, newParentID uuid.UUID) error {
	err := s.mutate(ctx, func(ctx context.Context, tx pgx.Tx) error {
		node, err := findCategory(ctx, tx, id)
		if err != nil {
			return err
		}
		if node.IsRoot() {
			return fmt.Errorf("category %s is the root: %w", id, ErrForbidden)
		}
		dest, err := findCategory(ctx, tx, newParentID)
		if err != nil {
			return err
		}
		if node.Span().Contains(dest.LeftKey) {
			return fmt.Errorf("category %s is inside %s: %w", newParentID, id, ErrCycleRejected)
		}
		return relocate(ctx, tx, node.Span(), nestedset.LastChildKey(dest.Span()))
	})
	if err != nil {
		return fmt.Errorf("move category: %w", err)
	}
	return nil
}

// Reorder moves a category among its siblings so that it directly follows
// afterID. A nil afterID, or the id of the parent itself, puts it first.
func (s *CategoryStore) Reorder(ctx context.Context, id uuid.UUID, afterID *uuid.UUID) error {
	err := s.mutate(ctx, func(ctx context.Context, tx pgx.Tx) error {
		node, err := findCategory(ctx, tx, id)
		if err != nil {
			return err
		}
		if node.IsRoot() {
			return fmt.Errorf("category %s is the root: %w", id, ErrForbidden)
		}
		parent, err := parentOf(ctx, tx, node)
		if err != nil {
			return err
		}

		at := nestedset.FirstChildKey(parent.Span())
		if afterID != nil && *afterID != parent.ID {
			if *afterID == id {
				return nil
			}
			after, err := findCategory(ctx, tx, *afterID)
			if err != nil {
				return err
			}
			if after.IsRoot() {
				return fmt.Errorf("category %s is the root: %w", after.ID, ErrNotSibling)
			}
			afterParent, err := parentOf(ctx, tx, after)
			if err != nil {
				return err
			}
			if afterParent.ID != parent.ID {
				return fmt.Errorf("category %s is under %s, not %s: %w", after.ID, afterParent.ID, parent.ID, ErrNotSibling)
			}
			at = nestedset.AfterKey(after.Span())
		}
		return relocate(ctx, tx, node.Span(), at)
	})
	if err != nil {
		return fmt.Errorf("reorder category: %w", err)
	}
	return nil
}

func relocate(ctx context.Context, tx pgx.Tx, span nestedset.Span, at int) error {
	plan, err := nestedset.Relocate(span, at)
	if err != nil {
		return fmt.Errorf("relocate span (%d, %d) to %d: %w", span.Left, span.Right, at, ErrCycleRejected)
	}
	return applyPlan(ctx, tx, plan)
}

// Rename changes the display name of a category. Keys are untouched, so the
// tree lock is not taken.
func (s *CategoryStore) Rename(ctx context.Context, id uuid.UUID, name string) error {
	if err := validName(name); err != nil {
		return fmt.Errorf("rename category: %w", err)
	}
	tag, err := s.db.Exec(ctx, sqlRenameNode, name, id)
	if err != nil {
		return fmt.Errorf("rename category: %w", storageErr("update name", err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rename category %s: %w", id, ErrNotFound)
	}
	return nil
}

// Get returns a single category with parent, depth and sibling position
// filled in from one snapshot.
func (s *CategoryStore) Get(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var c *models.Category
	err := readTx(ctx, s.db, func(q Querier) error {
		var err error
		if c, err = findCategory(ctx, q, id); err != nil {
			return err
		}
		return placeCategory(ctx, q, c)
	})
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// placeCategory derives the virtual fields of c that ListOrdered gets from
// nestedset.Layout.
func placeCategory(ctx context.Context, q Querier, c *models.Category) error {
	if c.IsRoot() {
		return nil
	}
	parent, err := parentOf(ctx, q, c)
	if err != nil {
		return err
	}
	c.ParentID = &parent.ID
	if err := q.QueryRow(ctx, sqlCountAncestors, c.LeftKey, c.RightKey).Scan(&c.Depth); err != nil {
		return storageErr("count ancestors", err)
	}
	if err := q.QueryRow(ctx, sqlCountPrecedingSiblings, parent.LeftKey, c.LeftKey).Scan(&c.Position); err != nil {
		return storageErr("count siblings", err)
	}
	return nil
}

// SubtreeRange returns the key interval covering a category and all of its
// descendants.
func (s *CategoryStore) SubtreeRange(ctx context.Context, id uuid.UUID) (nestedset.Span, error) {
	span, err := s.subtreeRange(ctx, s.db, id)
	if err != nil {
		return nestedset.Span{}, fmt.Errorf("subtree range: %w", err)
	}
	return span, nil
}

func (s *CategoryStore) subtreeRange(ctx context.Context, q Querier, id uuid.UUID) (nestedset.Span, error) {
	c, err := findCategory(ctx, q, id)
	if err != nil {
		return nestedset.Span{}, err
	}
	return c.Span(), nil
}

// ListOrdered returns every category in pre-order (ascending left_key) with
// parent, depth and sibling position filled in.
func (s *CategoryStore) ListOrdered(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.Query(ctx, sqlListOrdered)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", storageErr("query", err))
	}
	defer rows.Close()

	items := []models.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("list categories: %w", storageErr("scan category", err))
		}
		items = append(items, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", storageErr("rows", err))
	}

	spans := make([]nestedset.Span, len(items))
	for i := range items {
		spans[i] = items[i].Span()
	}
	for i, p := range nestedset.Layout(spans) {
		items[i].Depth = p.Depth
		items[i].Position = p.Position
		if p.Parent >= 0 {
			parentID := items[p.Parent].ID
			items[i].ParentID = &parentID
		}
	}
	return items, nil
}

// Count returns the number of categories.
func (s *CategoryStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRow(ctx, sqlCountNodes).Scan(&n); err != nil {
		return 0, fmt.Errorf("count categories: %w", storageErr("query", err))
	}
	return n, nil
}

// Verify loads the whole tree and checks every nested-set invariant.
func (s *CategoryStore) Verify(ctx context.Context) error {
	items, err := s.ListOrdered(ctx)
	if err != nil {
		return fmt.Errorf("verify tree: %w", err)
	}
	spans := make([]nestedset.Span, len(items))
	for i := range items {
		spans[i] = items[i].Span()
	}
	if err := nestedset.Verify(spans); err != nil {
		return fmt.Errorf("verify tree: %w: %w", ErrStorage, err)
	}
	return nil
}
