// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// mutation_log.go records committed tree mutations in the database for
// audit and debugging purposes. Each entry captures which category was
// touched, how, and a short free-form detail.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Actions recorded in the mutation log.
const (
	ActionInsert  = "insert"
	ActionDelete  = "delete"
	ActionMove    = "move"
	ActionReorder = "reorder"
	ActionRename  = "rename"
)

// MutationLogStore handles mutation log operations.
type MutationLogStore struct {
	db DB
}

// NewMutationLogStore creates a new MutationLogStore.
func NewMutationLogStore(db DB) *MutationLogStore {
	return &MutationLogStore{db: db}
}

// MutationLogEntry represents a single committed tree mutation.
type MutationLogEntry struct {
	ID         int64     `json:"id"`
	Action     string    `json:"action"`
	CategoryID uuid.UUID `json:"category_id"`
	Detail     string    `json:"detail"`
	LoggedAt   time.Time `json:"logged_at"`
}

// Log records a mutation. It runs after the mutation has committed and is
// best-effort: a failed write is reported and otherwise ignored.
func (s *MutationLogStore) Log(ctx context.Context, action string, categoryID uuid.UUID, detail string) {
	_, err := s.db.Exec(ctx, `
		INSERT INTO category_mutation_log (action, category_id, detail)
		VALUES ($1, $2, $3)
	`, action, categoryID, detail)
	if err != nil {
		slog.Warn("failed to log tree mutation",
			"action", action,
			"category_id", categoryID,
			"error", err,
		)
		return
	}
	slog.Debug("tree mutation logged", "action", action, "category_id", categoryID)
}

// Recent returns the newest log entries, at most limit of them.
func (s *MutationLogStore) Recent(ctx context.Context, limit int) ([]MutationLogEntry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("recent mutations: limit %d: %w", limit, ErrInvalidArgument)
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, action, category_id, detail, logged_at
		FROM category_mutation_log
		ORDER BY id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent mutations: %w", storageErr("query", err))
	}
	defer rows.Close()

	entries := []MutationLogEntry{}
	for rows.Next() {
		var e MutationLogEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.CategoryID, &e.Detail, &e.LoggedAt); err != nil {
			return nil, fmt.Errorf("recent mutations: %w", storageErr("scan", err))
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("recent mutations: %w", storageErr("rows", err))
	}
	return entries, nil
}
