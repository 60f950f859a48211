// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package nestedset holds the interval arithmetic behind the category tree.
// A node occupies the span [Left, Right] of a pre-order numbering of the
// whole tree; every descendant's span lies strictly inside its ancestors'.
// Nothing here performs I/O: storage backends ask for a Plan and apply it
// as a bulk range update.
package nestedset

import (
	"errors"
	"math"
)

// Unbounded is the open upper end of a Shift. It fits a Postgres integer.
const Unbounded = math.MaxInt32

// ErrInsideSpan is returned by Relocate when the target key lies inside the
// span being moved.
var ErrInsideSpan = errors.New("nestedset: target inside moved span")

// Span is the key pair of a single node.
type Span struct {
	Left  int
	Right int
}

// Width is the number of key slots taken by the node and its descendants.
func (s Span) Width() int {
	return s.Right - s.Left + 1
}

// Descendants returns how many nodes sit below s.
func (s Span) Descendants() int {
	return (s.Right - s.Left - 1) / 2
}

// IsLeaf reports whether s has no children.
func (s Span) IsLeaf() bool {
	return s.Right-s.Left == 1
}

// Contains reports whether key falls within [Left, Right].
func (s Span) Contains(key int) bool {
	return s.Left <= key && key <= s.Right
}

// SpanWidth returns the slots needed by a node with the given number of
// descendants.
func SpanWidth(descendants int) int {
	return 2 * (descendants + 1)
}

// IsAncestor reports whether a is a proper ancestor of b.
func IsAncestor(a, b Span) bool {
	return a.Left < b.Left && b.Right < a.Right
}

// InRange reports whether s lies entirely within [low, high].
func InRange(s Span, low, high int) bool {
	return low <= s.Left && s.Right <= high
}

// Shift moves every key in [Low, High] by Delta.
type Shift struct {
	Low   int
	High  int
	Delta int
}

// Plan is a set of disjoint shifts applied at the same time to both key
// columns. A key outside every shift keeps its value.
type Plan []Shift

// Apply returns the renumbered value of key.
func (p Plan) Apply(key int) int {
	for _, s := range p {
		if s.Low <= key && key <= s.High {
			return key + s.Delta
		}
	}
	return key
}

// ApplySpan renumbers both ends of s.
func (p Plan) ApplySpan(s Span) Span {
	return Span{Left: p.Apply(s.Left), Right: p.Apply(s.Right)}
}

// Compact drops shifts that cannot change any key.
func (p Plan) Compact() Plan {
	out := p[:0:0]
	for _, s := range p {
		if s.Delta == 0 || s.Low > s.High {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Bounds returns the lowest and highest key touched by the plan.
func (p Plan) Bounds() (low, high int) {
	for i, s := range p {
		if i == 0 || s.Low < low {
			low = s.Low
		}
		if i == 0 || s.High > high {
			high = s.High
		}
	}
	return low, high
}

// Insert opens a two-key gap just inside parent's closing key. The returned
// span is the new node, which becomes parent's last child.
func Insert(parent Span) (Plan, Span) {
	plan := Plan{{Low: parent.Right, High: Unbounded, Delta: 2}}
	return plan, Span{Left: parent.Right, Right: parent.Right + 1}
}

// Root is the span of the only node of a one-node tree.
func Root() Span {
	return Span{Left: 1, Right: 2}
}

// Remove closes the gap left once every node inside s has been deleted.
func Remove(s Span) Plan {
	return Plan{{Low: s.Right + 1, High: Unbounded, Delta: -s.Width()}}.Compact()
}

// Relocate moves the subtree s so it starts right before key at, where at is
// numbered as in the tree before the move. Keys between the old and the new
// position slide by the subtree width to fill the hole; the subtree itself
// keeps its internal layout. at == s.Left and at == s.Right+1 yield an empty
// plan.
func Relocate(s Span, at int) (Plan, error) {
	if s.Left < at && at <= s.Right {
		return nil, ErrInsideSpan
	}
	w := s.Width()
	var plan Plan
	if at > s.Right {
		plan = Plan{
			{Low: s.Right + 1, High: at - 1, Delta: -w},
			{Low: s.Left, High: s.Right, Delta: at - 1 - s.Right},
		}
	} else {
		plan = Plan{
			{Low: at, High: s.Left - 1, Delta: w},
			{Low: s.Left, High: s.Right, Delta: at - s.Left},
		}
	}
	return plan.Compact(), nil
}

// LastChildKey is the key a subtree must be placed before to become the
// last child of parent.
func LastChildKey(parent Span) int {
	return parent.Right
}

// FirstChildKey is the key a subtree must be placed before to become the
// first child of parent.
func FirstChildKey(parent Span) int {
	return parent.Left + 1
}

// AfterKey is the key a subtree must be placed before to follow sibling.
func AfterKey(sibling Span) int {
	return sibling.Right + 1
}
