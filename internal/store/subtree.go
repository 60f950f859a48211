// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"bookcatalog/internal/models"
)

// SubtreeQuery answers "which books sit under this category" with a single
// range predicate over the nested-set keys.
type SubtreeQuery struct {
	db         DB
	categories *CategoryStore
	books      *BookStore
}

// NewSubtreeQuery returns a new SubtreeQuery.
func NewSubtreeQuery(db DB, categories *CategoryStore, books *BookStore) *SubtreeQuery {
	return &SubtreeQuery{db: db, categories: categories, books: books}
}

// BooksUnder returns books linked to the category or any of its
// descendants, ordered by book id and sliced to [offset, offset+limit).
// The span lookup and the book query share one snapshot.
func (q *SubtreeQuery) BooksUnder(ctx context.Context, categoryID uuid.UUID, offset, limit int) ([]models.Book, error) {
	if limit <= 0 || offset < 0 {
		return nil, fmt.Errorf("books under %s: offset %d, limit %d: %w", categoryID, offset, limit, ErrInvalidArgument)
	}

	var books []models.Book
	err := readTx(ctx, q.db, func(tx Querier) error {
		span, err := q.categories.subtreeRange(ctx, tx, categoryID)
		if err != nil {
			return err
		}
		books, err = q.books.inSpan(ctx, tx, span, offset, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("books under %s: %w", categoryID, err)
	}
	return books, nil
}

// CountUnder returns how many distinct books BooksUnder can page through.
func (q *SubtreeQuery) CountUnder(ctx context.Context, categoryID uuid.UUID) (int, error) {
	var n int
	err := readTx(ctx, q.db, func(tx Querier) error {
		span, err := q.categories.subtreeRange(ctx, tx, categoryID)
		if err != nil {
			return err
		}
		n, err = q.books.countInSpan(ctx, tx, span)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("count books under %s: %w", categoryID, err)
	}
	return n, nil
}

// PageUnder returns one page of BooksUnder together with the CountUnder
// total, both read from the same snapshot.
func (q *SubtreeQuery) PageUnder(ctx context.Context, categoryID uuid.UUID, offset, limit int) ([]models.Book, int, error) {
	if limit <= 0 || offset < 0 {
		return nil, 0, fmt.Errorf("page under %s: offset %d, limit %d: %w", categoryID, offset, limit, ErrInvalidArgument)
	}

	var (
		books []models.Book
		total int
	)
	err := readTx(ctx, q.db, func(tx Querier) error {
		span, err := q.categories.subtreeRange(ctx, tx, categoryID)
		if err != nil {
			return err
		}
		if books, err = q.books.inSpan(ctx, tx, span, offset, limit); err != nil {
			return err
		}
		total, err = q.books.countInSpan(ctx, tx, span)
		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("page under %s: %w", categoryID, err)
	}
	return books, total, nil
}
