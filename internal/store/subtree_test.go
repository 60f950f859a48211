// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSubtreeQuery(mock pgxmock.PgxPoolIface) *SubtreeQuery {
	books := NewBookStore(mock)
	return NewSubtreeQuery(mock, NewCategoryStore(mock, books, 0), books)
}

func TestBooksUnder(t *testing.T) {
	mock := newMock(t)
	tree := newRefTree()
	b1, b2 := sampleBook("Dune"), sampleBook("Solaris")

	mock.ExpectBeginTx(snapshotTx)
	expectFind(mock, tree.c)
	rows := pgxmock.NewRows(bookCols)
	bookRow(rows, b1)
	bookRow(rows, b2)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE cb.book_id = b.id AND c.left_key >= $1 AND c.right_key <= $2")).
		WithArgs(8, 11, 10, 0).
		WillReturnRows(rows)
	mock.ExpectCommit()

	got, err := newSubtreeQuery(mock).BooksUnder(context.Background(), tree.c.id, 0, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, b1.ID, got[0].ID)
	assert.Equal(t, b2.ID, got[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBooksUnderEmpty(t *testing.T) {
	mock := newMock(t)
	tree := newRefTree()

	mock.ExpectBeginTx(snapshotTx)
	expectFind(mock, tree.b)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY b.id")).
		WithArgs(6, 7, 5, 20).
		WillReturnRows(pgxmock.NewRows(bookCols))
	mock.ExpectCommit()

	got, err := newSubtreeQuery(mock).BooksUnder(context.Background(), tree.b.id, 20, 5)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBooksUnderMissingCategory(t *testing.T) {
	mock := newMock(t)
	missing := uuid.New()

	mock.ExpectBeginTx(snapshotTx)
	expectMissing(mock, missing)
	mock.ExpectRollback()

	_, err := newSubtreeQuery(mock).BooksUnder(context.Background(), missing, 0, 10)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBooksUnderInvalidPage(t *testing.T) {
	tests := []struct {
		name          string
		offset, limit int
	}{
		{"zero limit", 0, 0},
		{"negative limit", 0, -1},
		{"negative offset", -1, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := newMock(t)
			_, err := newSubtreeQuery(mock).BooksUnder(context.Background(), uuid.New(), tt.offset, tt.limit)
			assert.ErrorIs(t, err, ErrInvalidArgument)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCountUnder(t *testing.T) {
	mock := newMock(t)
	tree := newRefTree()

	mock.ExpectBeginTx(snapshotTx)
	expectFind(mock, tree.root)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT cb.book_id)")).
		WithArgs(1, 12).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectCommit()

	n, err := newSubtreeQuery(mock).CountUnder(context.Background(), tree.root.id)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPageUnderSharesSnapshot(t *testing.T) {
	mock := newMock(t)
	tree := newRefTree()
	b1 := sampleBook("Dune")

	mock.ExpectBeginTx(snapshotTx)
	expectFind(mock, tree.c)
	rows := pgxmock.NewRows(bookCols)
	bookRow(rows, b1)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY b.id")).
		WithArgs(8, 11, 1, 0).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT cb.book_id)")).
		WithArgs(8, 11).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectCommit()

	books, total, err := newSubtreeQuery(mock).PageUnder(context.Background(), tree.c.id, 0, 1)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, b1.ID, books[0].ID)
	assert.Equal(t, 4, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPageUnderCountFailureRollsBack(t *testing.T) {
	mock := newMock(t)
	tree := newRefTree()

	mock.ExpectBeginTx(snapshotTx)
	expectFind(mock, tree.c)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY b.id")).
		WithArgs(8, 11, 10, 0).
		WillReturnRows(pgxmock.NewRows(bookCols))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT cb.book_id)")).
		WithArgs(8, 11).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, _, err := newSubtreeQuery(mock).PageUnder(context.Background(), tree.c.id, 0, 10)
	assert.ErrorIs(t, err, ErrStorage)
	assert.NoError(t, mock.ExpectationsWereMet())

	_, _, err = newSubtreeQuery(newMock(t)).PageUnder(context.Background(), tree.c.id, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
