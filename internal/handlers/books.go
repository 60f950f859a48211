// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"bookcatalog/internal/models"
)

// BookService is the part of the catalog the book routes use.
type BookService interface {
	AddBook(ctx context.Context, name, description, price string) (*models.Book, error)
	UpdateBook(ctx context.Context, book *models.Book) (*models.Book, error)
	Book(ctx context.Context, id uuid.UUID) (*models.Book, error)
	Link(ctx context.Context, bookID, categoryID uuid.UUID) error
	Unlink(ctx context.Context, bookID, categoryID uuid.UUID) error
}

// Books groups the book record handlers.
type Books struct {
	svc BookService
}

// NewBooks creates the book handler group.
func NewBooks(svc BookService) *Books {
	return &Books{svc: svc}
}

// bookRequest is the body of both create and update. Price is decimal text.
type bookRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
}

// Create adds a book record.
func (b *Books) Create(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	book, err := b.svc.AddBook(r.Context(), req.Name, req.Description, req.Price)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

// Get returns a single book.
func (b *Books) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	book, err := b.svc.Book(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// Update overwrites name, description and price of a book.
func (b *Books) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req bookRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	book, err := b.svc.UpdateBook(r.Context(), &models.Book{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// Link files a book under a category. Linking twice is not an error.
func (b *Books) Link(w http.ResponseWriter, r *http.Request) {
	b.changeLink(w, r, b.svc.Link)
}

// Unlink removes a book from a category. A missing link is not an error.
func (b *Books) Unlink(w http.ResponseWriter, r *http.Request) {
	b.changeLink(w, r, b.svc.Unlink)
}

func (b *Books) changeLink(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, bookID, categoryID uuid.UUID) error) {
	bookID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	categoryID, err := pathID(r, "categoryID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := fn(r.Context(), bookID, categoryID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
