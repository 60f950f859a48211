// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"bookcatalog/internal/models"
	"bookcatalog/internal/nestedset"
)

const bookColumns = `id, name, description, price::text, created_at, updated_at`

const (
	sqlInsertBook = `INSERT INTO books (name, description, price) VALUES ($1, $2, $3::numeric) RETURNING ` + bookColumns
	sqlUpdateBook = `UPDATE books SET name = $1, description = $2, price = $3::numeric, updated_at = NOW() WHERE id = $4 RETURNING ` + bookColumns
	sqlFindBook   = `SELECT ` + bookColumns + ` FROM books WHERE id = $1`
	sqlLink       = `INSERT INTO category_books (book_id, category_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	sqlUnlink     = `DELETE FROM category_books WHERE book_id = $1 AND category_id = $2`
	sqlUnlinkAll  = `DELETE FROM category_books WHERE category_id = $1`
	sqlUnlinkSpan = `DELETE FROM category_books WHERE category_id IN (SELECT id FROM categories WHERE left_key >= $1 AND right_key <= $2)`

	// A book linked to several categories of the span is returned once.
	sqlBooksInSpan = `
		SELECT b.id, b.name, b.description, b.price::text, b.created_at, b.updated_at
		FROM books b
		WHERE EXISTS (
			SELECT 1 FROM category_books cb JOIN categories c ON c.id = cb.category_id
			WHERE cb.book_id = b.id AND c.left_key >= $1 AND c.right_key <= $2
		)
		ORDER BY b.id
		LIMIT $3 OFFSET $4`
	sqlCountInSpan = `
		SELECT COUNT(DISTINCT cb.book_id)
		FROM category_books cb JOIN categories c ON c.id = cb.category_id
		WHERE c.left_key >= $1 AND c.right_key <= $2`
)

// BookStore keeps book records and their links to categories. It knows
// nothing about the tree beyond being handed key spans.
type BookStore struct {
	db DB
}

// NewBookStore returns a new BookStore.
func NewBookStore(db DB) *BookStore {
	return &BookStore{db: db}
}

// scanBook scans a row into a Book struct.
func scanBook(scanner interface{ Scan(...any) error }) (*models.Book, error) {
	var b models.Book
	err := scanner.Scan(&b.ID, &b.Name, &b.Description, &b.Price, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// bookErr maps driver errors of book writes. A price Postgres cannot parse
// is the caller's fault, not a storage failure.
func bookErr(op string, err error) error {
	switch pgCode(err) {
	case codeInvalidTextRepr, codeNumericOutOfRange:
		return fmt.Errorf("%s: price: %w", op, ErrInvalidArgument)
	}
	return storageErr(op, err)
}

func validBook(name, price string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("book name is empty: %w", ErrInvalidArgument)
	}
	if strings.TrimSpace(price) == "" {
		return fmt.Errorf("book price is empty: %w", ErrInvalidArgument)
	}
	return nil
}

// AddBook inserts a book and returns it as stored.
func (s *BookStore) AddBook(ctx context.Context, name, description, price string) (*models.Book, error) {
	if err := validBook(name, price); err != nil {
		return nil, fmt.Errorf("add book: %w", err)
	}
	b, err := scanBook(s.db.QueryRow(ctx, sqlInsertBook, name, description, price))
	if err != nil {
		return nil, fmt.Errorf("add book: %w", bookErr("insert", err))
	}
	return b, nil
}

// UpdateBook overwrites name, description and price of an existing book.
func (s *BookStore) UpdateBook(ctx context.Context, book *models.Book) (*models.Book, error) {
	if err := validBook(book.Name, book.Price); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	b, err := scanBook(s.db.QueryRow(ctx, sqlUpdateBook, book.Name, book.Description, book.Price, book.ID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update book %s: %w", book.ID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update book: %w", bookErr("update", err))
	}
	return b, nil
}

// Book returns a single book.
func (s *BookStore) Book(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	b, err := scanBook(s.db.QueryRow(ctx, sqlFindBook, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("book %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find book: %w", storageErr("query", err))
	}
	return b, nil
}

// Link associates a book with a category. Linking twice is a no-op.
func (s *BookStore) Link(ctx context.Context, bookID, categoryID uuid.UUID) error {
	if _, err := s.db.Exec(ctx, sqlLink, bookID, categoryID); err != nil {
		if pgCode(err) == codeForeignKeyViolation {
			return fmt.Errorf("link book %s to category %s: %w", bookID, categoryID, ErrNotFound)
		}
		return fmt.Errorf("link book: %w", storageErr("insert", err))
	}
	return nil
}

// Unlink removes a single association. Removing a missing link is a no-op.
func (s *BookStore) Unlink(ctx context.Context, bookID, categoryID uuid.UUID) error {
	if _, err := s.db.Exec(ctx, sqlUnlink, bookID, categoryID); err != nil {
		return fmt.Errorf("unlink book: %w", storageErr("delete", err))
	}
	return nil
}

// UnlinkAllForCategory drops every link pointing at a category and returns
// how many were removed.
func (s *BookStore) UnlinkAllForCategory(ctx context.Context, categoryID uuid.UUID) (int64, error) {
	tag, err := s.db.Exec(ctx, sqlUnlinkAll, categoryID)
	if err != nil {
		return 0, fmt.Errorf("unlink category %s: %w", categoryID, storageErr("delete", err))
	}
	return tag.RowsAffected(), nil
}

// unlinkSpan drops the links of every category inside span. It runs inside
// the transaction that deletes those categories.
func (s *BookStore) unlinkSpan(ctx context.Context, q Querier, span nestedset.Span) error {
	if _, err := q.Exec(ctx, sqlUnlinkSpan, span.Left, span.Right); err != nil {
		return storageErr("unlink span", err)
	}
	return nil
}

// inSpan returns one page of books linked to categories inside span,
// ordered by book id.
func (s *BookStore) inSpan(ctx context.Context, q Querier, span nestedset.Span, offset, limit int) ([]models.Book, error) {
	rows, err := q.Query(ctx, sqlBooksInSpan, span.Left, span.Right, limit, offset)
	if err != nil {
		return nil, storageErr("query books", err)
	}
	defer rows.Close()

	items := []models.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, storageErr("scan book", err)
		}
		items = append(items, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("rows", err)
	}
	return items, nil
}

func (s *BookStore) countInSpan(ctx context.Context, q Querier, span nestedset.Span) (int, error) {
	var n int
	if err := q.QueryRow(ctx, sqlCountInSpan, span.Left, span.Right).Scan(&n); err != nil {
		return 0, storageErr("count books", err)
	}
	return n, nil
}
