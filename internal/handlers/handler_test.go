// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides a scripted catalog fake and a mux wiring the
// handlers the same way the router does.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"bookcatalog/internal/models"
	"bookcatalog/internal/nestedset"
	"bookcatalog/internal/store"
)

// fakeCatalog records the last call and returns err from every method.
type fakeCatalog struct {
	err   error
	newID uuid.UUID

	lastCall    string
	lastID      uuid.UUID
	lastParent  uuid.UUID
	lastAfter   *uuid.UUID
	lastName    string
	lastCascade bool
	lastOffset  int
	lastLimit   int
	lastBook    *models.Book
}

func (f *fakeCatalog) Insert(ctx context.Context, parentID uuid.UUID, name string) (uuid.UUID, error) {
	f.lastCall, f.lastParent, f.lastName = "insert", parentID, name
	if f.err != nil {
		return uuid.Nil, f.err
	}
	return f.newID, nil
}

func (f *fakeCatalog) Delete(ctx context.Context, id uuid.UUID, cascade bool) error {
	f.lastCall, f.lastID, f.lastCascade = "delete", id, cascade
	return f.err
}

func (f *fakeCatalog) Move(ctx context.Context, id, newParentID uuid.UUID) error {
	f.lastCall, f.lastID, f.lastParent = "move", id, newParentID
	return f.err
}

func (f *fakeCatalog) Reorder(ctx context.Context, id uuid.UUID, afterID *uuid.UUID) error {
	f.lastCall, f.lastID, f.lastAfter = "reorder", id, afterID
	return f.err
}

func (f *fakeCatalog) Rename(ctx context.Context, id uuid.UUID, name string) error {
	f.lastCall, f.lastID, f.lastName = "rename", id, name
	return f.err
}

func (f *fakeCatalog) Get(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Category{ID: id, Name: "Poetry", LeftKey: 2, RightKey: 3, Depth: 1}, nil
}

func (f *fakeCatalog) ListOrdered(ctx context.Context) ([]models.Category, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []models.Category{{ID: uuid.New(), Name: "Catalog", LeftKey: 1, RightKey: 2}}, nil
}

func (f *fakeCatalog) SubtreeRange(ctx context.Context, id uuid.UUID) (nestedset.Span, error) {
	return nestedset.Span{Left: 8, Right: 11}, f.err
}

func (f *fakeCatalog) PageUnder(ctx context.Context, categoryID uuid.UUID, offset, limit int) ([]models.Book, int, error) {
	f.lastCall, f.lastID, f.lastOffset, f.lastLimit = "books", categoryID, offset, limit
	if f.err != nil {
		return nil, 0, f.err
	}
	return []models.Book{{ID: uuid.New(), Name: "Dune", Price: "12.50"}}, 31, nil
}

func (f *fakeCatalog) RecentMutations(ctx context.Context, limit int) ([]store.MutationLogEntry, error) {
	f.lastCall, f.lastLimit = "log", limit
	if f.err != nil {
		return nil, f.err
	}
	return []store.MutationLogEntry{{ID: 7, Action: store.ActionMove}}, nil
}

func (f *fakeCatalog) AddBook(ctx context.Context, name, description, price string) (*models.Book, error) {
	f.lastCall = "add book"
	if f.err != nil {
		return nil, f.err
	}
	return &models.Book{ID: f.newID, Name: name, Description: description, Price: price}, nil
}

func (f *fakeCatalog) UpdateBook(ctx context.Context, book *models.Book) (*models.Book, error) {
	f.lastCall, f.lastBook = "update book", book
	if f.err != nil {
		return nil, f.err
	}
	return book, nil
}

func (f *fakeCatalog) Book(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Book{ID: id, Name: "Dune", Price: "12.50"}, nil
}

func (f *fakeCatalog) Link(ctx context.Context, bookID, categoryID uuid.UUID) error {
	f.lastCall, f.lastID, f.lastParent = "link", bookID, categoryID
	return f.err
}

func (f *fakeCatalog) Unlink(ctx context.Context, bookID, categoryID uuid.UUID) error {
	f.lastCall, f.lastID, f.lastParent = "unlink", bookID, categoryID
	return f.err
}

// testMux mounts both handler groups on the same paths the router uses.
func testMux(f *fakeCatalog) http.Handler {
	categories := NewCategories(f)
	books := NewBooks(f)

	r := chi.NewRouter()
	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", categories.List)
		r.Post("/", categories.Create)
		r.Get("/log", categories.Log)
		r.Get("/{id}", categories.Get)
		r.Patch("/{id}", categories.Rename)
		r.Delete("/{id}", categories.Delete)
		r.Post("/{id}/move", categories.Move)
		r.Post("/{id}/reorder", categories.Reorder)
		r.Get("/{id}/range", categories.Range)
		r.Get("/{id}/books", categories.Books)
	})
	r.Route("/api/books", func(r chi.Router) {
		r.Post("/", books.Create)
		r.Get("/{id}", books.Get)
		r.Put("/{id}", books.Update)
		r.Put("/{id}/categories/{categoryID}", books.Link)
		r.Delete("/{id}/categories/{categoryID}", books.Unlink)
	})
	return r
}

// do sends a request through the test mux with slog silenced.
func do(t *testing.T, f *fakeCatalog, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	testMux(f).ServeHTTP(rr, req)
	return rr
}

// decodeError reads the error envelope from a response.
func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body), "body: %s", rr.Body.String())
	return body
}

// wrapped returns err wrapped the way the stores do.
func wrapped(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
