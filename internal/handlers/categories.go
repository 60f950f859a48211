// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"bookcatalog/internal/models"
	"bookcatalog/internal/nestedset"
	"bookcatalog/internal/store"
)

// CategoryService is the part of the catalog the category routes use.
type CategoryService interface {
	Insert(ctx context.Context, parentID uuid.UUID, name string) (uuid.UUID, error)
	Delete(ctx context.Context, id uuid.UUID, cascade bool) error
	Move(ctx context.Context, id, newParentID uuid.UUID) error
	Reorder(ctx context.Context, id uuid.UUID, afterID *uuid.UUID) error
	Rename(ctx context.Context, id uuid.UUID, name string) error
	Get(ctx context.Context, id uuid.UUID) (*models.Category, error)
	ListOrdered(ctx context.Context) ([]models.Category, error)
	SubtreeRange(ctx context.Context, id uuid.UUID) (nestedset.Span, error)
	PageUnder(ctx context.Context, categoryID uuid.UUID, offset, limit int) ([]models.Book, int, error)
	RecentMutations(ctx context.Context, limit int) ([]store.MutationLogEntry, error)
}

// Categories groups the category tree handlers.
type Categories struct {
	svc CategoryService
}

// NewCategories creates the category handler group.
func NewCategories(svc CategoryService) *Categories {
	return &Categories{svc: svc}
}

type createCategoryRequest struct {
	ParentID *uuid.UUID `json:"parent_id"`
	Name     string     `json:"name"`
}

type renameCategoryRequest struct {
	Name string `json:"name"`
}

type moveCategoryRequest struct {
	ParentID uuid.UUID `json:"parent_id"`
}

type reorderCategoryRequest struct {
	AfterID *uuid.UUID `json:"after_id"`
}

type rangeResponse struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

type booksPage struct {
	Books  []models.Book `json:"books"`
	Total  int           `json:"total"`
	Offset int           `json:"offset"`
	Limit  int           `json:"limit"`
}

// List returns the whole tree in pre-order with depth, parent and position.
func (c *Categories) List(w http.ResponseWriter, r *http.Request) {
	items, err := c.svc.ListOrdered(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Get returns a single category.
func (c *Categories) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c.respondCategory(w, r, http.StatusOK, id)
}

// Create inserts a category as the last child of parent_id. A null
// parent_id creates the root of an empty tree.
func (c *Categories) Create(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	parentID := uuid.Nil
	if req.ParentID != nil {
		if *req.ParentID == uuid.Nil {
			writeError(w, r, badRequest("parent_id must not be the nil uuid"))
			return
		}
		parentID = *req.ParentID
	}

	id, err := c.svc.Insert(r.Context(), parentID, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c.respondCategory(w, r, http.StatusCreated, id)
}

// Rename changes a category's name.
func (c *Categories) Rename(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req renameCategoryRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := c.svc.Rename(r.Context(), id, req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	c.respondCategory(w, r, http.StatusOK, id)
}

// Delete removes a category. Without ?cascade=true only leaves can go.
func (c *Categories) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	cascade, err := queryBool(r, "cascade")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := c.svc.Delete(r.Context(), id, cascade); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Move re-parents a category under parent_id, as its last child.
func (c *Categories) Move(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req moveCategoryRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ParentID == uuid.Nil {
		writeError(w, r, badRequest("parent_id is required"))
		return
	}
	if err := c.svc.Move(r.Context(), id, req.ParentID); err != nil {
		writeError(w, r, err)
		return
	}
	c.respondCategory(w, r, http.StatusOK, id)
}

// Reorder places a category right after the sibling after_id. A null
// after_id, or the parent's id, makes it the first child.
func (c *Categories) Reorder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req reorderCategoryRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := c.svc.Reorder(r.Context(), id, req.AfterID); err != nil {
		writeError(w, r, err)
		return
	}
	c.respondCategory(w, r, http.StatusOK, id)
}

// Range returns the key interval of a category's subtree.
func (c *Categories) Range(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	span, err := c.svc.SubtreeRange(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rangeResponse{Left: span.Left, Right: span.Right})
}

// Books returns one page of the distinct books linked anywhere in the
// category's subtree, plus the total they page through.
func (c *Categories) Books(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryLimit(r, defaultPageLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	books, total, err := c.svc.PageUnder(r.Context(), id, offset, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booksPage{Books: books, Total: total, Offset: offset, Limit: limit})
}

// Log returns the newest committed tree mutations, newest first.
func (c *Categories) Log(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, defaultLogLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := c.svc.RecentMutations(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// respondCategory reads back a category after a change and writes it.
func (c *Categories) respondCategory(w http.ResponseWriter, r *http.Request, status int, id uuid.UUID) {
	cat, err := c.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, cat)
}
