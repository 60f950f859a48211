// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package catalog is the entry point to the category tree and its books.
// It wraps the stores with logging, metrics, the mutation log and the book
// listing cache. Results and errors are the stores' own; callers classify
// errors with store.Code.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bookcatalog/internal/metrics"
	"bookcatalog/internal/models"
	"bookcatalog/internal/nestedset"
	"bookcatalog/internal/store"
)

// Tree is the nested-set category store.
type Tree interface {
	Insert(ctx context.Context, parentID uuid.UUID, name string) (uuid.UUID, error)
	Delete(ctx context.Context, id uuid.UUID, cascade bool) error
	Move(ctx context.Context, id, newParentID uuid.UUID) error
	Reorder(ctx context.Context, id uuid.UUID, afterID *uuid.UUID) error
	Rename(ctx context.Context, id uuid.UUID, name string) error
	Get(ctx context.Context, id uuid.UUID) (*models.Category, error)
	ListOrdered(ctx context.Context) ([]models.Category, error)
	SubtreeRange(ctx context.Context, id uuid.UUID) (nestedset.Span, error)
	Count(ctx context.Context) (int, error)
	Verify(ctx context.Context) error
}

// Books is the book record store.
type Books interface {
	AddBook(ctx context.Context, name, description, price string) (*models.Book, error)
	UpdateBook(ctx context.Context, book *models.Book) (*models.Book, error)
	Book(ctx context.Context, id uuid.UUID) (*models.Book, error)
	Link(ctx context.Context, bookID, categoryID uuid.UUID) error
	Unlink(ctx context.Context, bookID, categoryID uuid.UUID) error
}

// Subtree answers subtree book queries.
type Subtree interface {
	BooksUnder(ctx context.Context, categoryID uuid.UUID, offset, limit int) ([]models.Book, error)
	CountUnder(ctx context.Context, categoryID uuid.UUID) (int, error)
	PageUnder(ctx context.Context, categoryID uuid.UUID, offset, limit int) ([]models.Book, int, error)
}

// MutationLog records committed tree mutations.
type MutationLog interface {
	Log(ctx context.Context, action string, categoryID uuid.UUID, detail string)
	Recent(ctx context.Context, limit int) ([]store.MutationLogEntry, error)
}

// PageCache caches book listings. Implementations must treat their own
// failures as misses.
type PageCache interface {
	Generation(ctx context.Context) (int64, bool)
	Books(ctx context.Context, categoryID uuid.UUID, offset, limit int) ([]models.Book, bool)
	SetBooks(ctx context.Context, gen int64, categoryID uuid.UUID, offset, limit int, books []models.Book)
	Count(ctx context.Context, categoryID uuid.UUID) (int, bool)
	SetCount(ctx context.Context, gen int64, categoryID uuid.UUID, n int)
	Invalidate(ctx context.Context)
}

// Service is the catalog facade.
type Service struct {
	tree    Tree
	books   Books
	subtree Subtree
	log     MutationLog
	cache   PageCache
}

// New creates a Service. cache may be nil to disable caching.
func New(tree Tree, books Books, subtree Subtree, log MutationLog, cache PageCache) *Service {
	return &Service{tree: tree, books: books, subtree: subtree, log: log, cache: cache}
}

// mutation runs fn, records its outcome and, on success, invalidates the
// listing cache and appends to the mutation log. Both happen after the
// commit, so they ignore caller cancellation. fn returns the id of the
// category it changed.
func (s *Service) mutation(ctx context.Context, action, detail string, invalidate bool, fn func() (uuid.UUID, error)) (uuid.UUID, error) {
	start := time.Now()
	id, err := fn()
	result := "ok"
	if err != nil {
		result = store.Code(err)
	}
	metrics.ObserveMutation(action, result, time.Since(start))

	if err != nil {
		switch result {
		case "storage_failure":
			slog.Error("tree mutation failed", "action", action, "error", err)
		case "busy":
			slog.Warn("tree mutation timed out waiting for lock", "action", action)
		}
		return uuid.Nil, err
	}

	ctx = context.WithoutCancel(ctx)
	if invalidate {
		s.invalidate(ctx)
	}
	s.log.Log(ctx, action, id, detail)
	slog.Info("tree mutation committed", "action", action, "id", id)
	return id, nil
}

// Insert creates a category as the last child of parentID. uuid.Nil
// creates the root of an empty tree.
func (s *Service) Insert(ctx context.Context, parentID uuid.UUID, name string) (uuid.UUID, error) {
	// A new node has no books, so no cached listing changes.
	return s.mutation(ctx, store.ActionInsert, name, false, func() (uuid.UUID, error) {
		return s.tree.Insert(ctx, parentID, name)
	})
}

// Delete removes a category, and its subtree when cascade is set.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, cascade bool) error {
	detail := ""
	if cascade {
		detail = "cascade"
	}
	_, err := s.mutation(ctx, store.ActionDelete, detail, true, func() (uuid.UUID, error) {
		return id, s.tree.Delete(ctx, id, cascade)
	})
	return err
}

// Move makes a category the last child of newParentID.
func (s *Service) Move(ctx context.Context, id, newParentID uuid.UUID) error {
	_, err := s.mutation(ctx, store.ActionMove, "parent "+newParentID.String(), true, func() (uuid.UUID, error) {
		return id, s.tree.Move(ctx, id, newParentID)
	})
	return err
}

// Reorder places a category right after a sibling, or first when afterID
// is nil or the parent's id.
func (s *Service) Reorder(ctx context.Context, id uuid.UUID, afterID *uuid.UUID) error {
	detail := "first"
	if afterID != nil {
		detail = "after " + afterID.String()
	}
	// Sibling order does not change subtree membership.
	_, err := s.mutation(ctx, store.ActionReorder, detail, false, func() (uuid.UUID, error) {
		return id, s.tree.Reorder(ctx, id, afterID)
	})
	return err
}

// Rename changes a category's name.
func (s *Service) Rename(ctx context.Context, id uuid.UUID, name string) error {
	_, err := s.mutation(ctx, store.ActionRename, name, false, func() (uuid.UUID, error) {
		return id, s.tree.Rename(ctx, id, name)
	})
	return err
}

// Get returns a single category.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	return s.tree.Get(ctx, id)
}

// ListOrdered returns the whole tree in pre-order.
func (s *Service) ListOrdered(ctx context.Context) ([]models.Category, error) {
	return s.tree.ListOrdered(ctx)
}

// SubtreeRange returns the key interval of a category's subtree.
func (s *Service) SubtreeRange(ctx context.Context, id uuid.UUID) (nestedset.Span, error) {
	return s.tree.SubtreeRange(ctx, id)
}

// Verify checks every nested-set invariant of the stored tree.
func (s *Service) Verify(ctx context.Context) error {
	return s.tree.Verify(ctx)
}

// Count returns the number of categories.
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.tree.Count(ctx)
}

// RecentMutations returns the newest mutation log entries.
func (s *Service) RecentMutations(ctx context.Context, limit int) ([]store.MutationLogEntry, error) {
	return s.log.Recent(ctx, limit)
}

// BooksUnder returns one page of books linked anywhere in a category's
// subtree, from the cache when possible.
func (s *Service) BooksUnder(ctx context.Context, categoryID uuid.UUID, offset, limit int) ([]models.Book, error) {
	if limit <= 0 || offset < 0 {
		return nil, fmt.Errorf("books under %s: offset %d, limit %d: %w", categoryID, offset, limit, store.ErrInvalidArgument)
	}
	if s.cache == nil {
		return s.subtree.BooksUnder(ctx, categoryID, offset, limit)
	}

	if books, ok := s.cache.Books(ctx, categoryID, offset, limit); ok {
		metrics.CacheLookup(metrics.KindPage, true)
		return books, nil
	}
	metrics.CacheLookup(metrics.KindPage, false)

	gen, cacheable := s.cache.Generation(ctx)
	books, err := s.subtree.BooksUnder(ctx, categoryID, offset, limit)
	if err != nil {
		return nil, err
	}
	if cacheable {
		s.cache.SetBooks(ctx, gen, categoryID, offset, limit, books)
	}
	return books, nil
}

// CountUnder returns how many distinct books sit in a category's subtree.
func (s *Service) CountUnder(ctx context.Context, categoryID uuid.UUID) (int, error) {
	if s.cache == nil {
		return s.subtree.CountUnder(ctx, categoryID)
	}

	if n, ok := s.cache.Count(ctx, categoryID); ok {
		metrics.CacheLookup(metrics.KindCount, true)
		return n, nil
	}
	metrics.CacheLookup(metrics.KindCount, false)

	gen, cacheable := s.cache.Generation(ctx)
	n, err := s.subtree.CountUnder(ctx, categoryID)
	if err != nil {
		return 0, err
	}
	if cacheable {
		s.cache.SetCount(ctx, gen, categoryID, n)
	}
	return n, nil
}

// PageUnder returns one page of books in a category's subtree and the
// total they page through. On a miss both come from one snapshot and are
// cached under the same generation, so a cached page and total agree.
func (s *Service) PageUnder(ctx context.Context, categoryID uuid.UUID, offset, limit int) ([]models.Book, int, error) {
	if limit <= 0 || offset < 0 {
		return nil, 0, fmt.Errorf("page under %s: offset %d, limit %d: %w", categoryID, offset, limit, store.ErrInvalidArgument)
	}
	if s.cache == nil {
		return s.subtree.PageUnder(ctx, categoryID, offset, limit)
	}

	books, pageHit := s.cache.Books(ctx, categoryID, offset, limit)
	metrics.CacheLookup(metrics.KindPage, pageHit)
	total, countHit := s.cache.Count(ctx, categoryID)
	metrics.CacheLookup(metrics.KindCount, countHit)
	if pageHit && countHit {
		return books, total, nil
	}

	gen, cacheable := s.cache.Generation(ctx)
	books, total, err := s.subtree.PageUnder(ctx, categoryID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	if cacheable {
		s.cache.SetBooks(ctx, gen, categoryID, offset, limit, books)
		s.cache.SetCount(ctx, gen, categoryID, total)
	}
	return books, total, nil
}

// AddBook creates a book. A new book has no links, so listings stay valid.
func (s *Service) AddBook(ctx context.Context, name, description, price string) (*models.Book, error) {
	b, err := s.books.AddBook(ctx, name, description, price)
	if err != nil {
		return nil, err
	}
	slog.Info("book added", "id", b.ID)
	return b, nil
}

// UpdateBook overwrites a book's fields.
func (s *Service) UpdateBook(ctx context.Context, book *models.Book) (*models.Book, error) {
	b, err := s.books.UpdateBook(ctx, book)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	slog.Info("book updated", "id", b.ID)
	return b, nil
}

// Book returns a single book.
func (s *Service) Book(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	return s.books.Book(ctx, id)
}

// Link associates a book with a category.
func (s *Service) Link(ctx context.Context, bookID, categoryID uuid.UUID) error {
	if err := s.books.Link(ctx, bookID, categoryID); err != nil {
		return err
	}
	s.invalidate(ctx)
	slog.Info("book linked", "book_id", bookID, "category_id", categoryID)
	return nil
}

// Unlink removes a book's association with a category.
func (s *Service) Unlink(ctx context.Context, bookID, categoryID uuid.UUID) error {
	if err := s.books.Unlink(ctx, bookID, categoryID); err != nil {
		return err
	}
	s.invalidate(ctx)
	slog.Info("book unlinked", "book_id", bookID, "category_id", categoryID)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(context.WithoutCancel(ctx))
	}
}
