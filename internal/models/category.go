// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"github.com/google/uuid"

	"bookcatalog/internal/nestedset"
)

// Category is a node of the catalog tree. Its position is encoded by the
// nested-set key pair; parent, depth and sibling position are derived from
// the keys when the tree is listed.
type Category struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	LeftKey  int       `json:"left_key"`
	RightKey int       `json:"right_key"`

	// Virtual fields populated by store methods.
	ParentID *uuid.UUID `json:"parent_id"`
	Depth    int        `json:"depth"`
	Position int        `json:"position"`
}

// Span returns the category's key interval.
func (c Category) Span() nestedset.Span {
	return nestedset.Span{Left: c.LeftKey, Right: c.RightKey}
}

// IsRoot reports whether the category is the tree root.
func (c Category) IsRoot() bool {
	return c.LeftKey == 1
}
