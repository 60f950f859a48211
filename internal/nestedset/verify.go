// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package nestedset

import (
	"errors"
	"fmt"
	"sort"
)

// ErrCorrupt wraps every failure reported by Verify.
var ErrCorrupt = errors.New("nestedset: corrupt tree")

// Verify checks that spans describe a single well-formed tree: one root at
// (1, 2N), keys forming a permutation of 1..2N, odd widths matching the
// number of enclosed nodes, and no partially overlapping spans. An empty
// slice is a valid (empty) tree. The input order does not matter.
func Verify(spans []Span) error {
	n := len(spans)
	if n == 0 {
		return nil
	}

	sorted := make([]Span, n)
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Left < sorted[j].Left })

	seen := make([]bool, 2*n+1)
	mark := func(k int) error {
		if k < 1 || k > 2*n {
			return fmt.Errorf("%w: key %d outside 1..%d", ErrCorrupt, k, 2*n)
		}
		if seen[k] {
			return fmt.Errorf("%w: duplicate key %d", ErrCorrupt, k)
		}
		seen[k] = true
		return nil
	}

	for _, s := range sorted {
		if s.Left >= s.Right {
			return fmt.Errorf("%w: span (%d, %d) is not ordered", ErrCorrupt, s.Left, s.Right)
		}
		if (s.Right-s.Left)%2 == 0 {
			return fmt.Errorf("%w: span (%d, %d) has even width", ErrCorrupt, s.Left, s.Right)
		}
		if err := mark(s.Left); err != nil {
			return err
		}
		if err := mark(s.Right); err != nil {
			return err
		}
	}

	if root := sorted[0]; root.Left != 1 || root.Right != 2*n {
		return fmt.Errorf("%w: root span (%d, %d), want (1, %d)", ErrCorrupt, root.Left, root.Right, 2*n)
	}

	lefts := make([]int, n)
	for i, s := range sorted {
		lefts[i] = s.Left
	}

	var stack []Span
	for i, s := range sorted {
		for len(stack) > 0 && stack[len(stack)-1].Right < s.Left {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 && s.Right > stack[len(stack)-1].Right {
			top := stack[len(stack)-1]
			return fmt.Errorf("%w: span (%d, %d) overlaps (%d, %d)", ErrCorrupt, s.Left, s.Right, top.Left, top.Right)
		}
		if i > 0 && len(stack) == 0 {
			return fmt.Errorf("%w: span (%d, %d) is a second root", ErrCorrupt, s.Left, s.Right)
		}
		inside := sort.SearchInts(lefts, s.Right) - (i + 1)
		if inside != s.Descendants() {
			return fmt.Errorf("%w: span (%d, %d) encloses %d nodes, want %d",
				ErrCorrupt, s.Left, s.Right, inside, s.Descendants())
		}
		stack = append(stack, s)
	}
	return nil
}

// Placement is the position of a node derived from the key layout.
type Placement struct {
	Parent   int // index into the input slice, -1 for the root
	Depth    int
	Position int // 0-based order among siblings
}

// Layout derives parent, depth and sibling position for spans already
// sorted by Left (pre-order). The result is index-aligned with the input.
func Layout(spans []Span) []Placement {
	out := make([]Placement, len(spans))
	var stack []int
	children := make(map[int]int)
	for i, s := range spans {
		for len(stack) > 0 && spans[stack[len(stack)-1]].Right < s.Left {
			stack = stack[:len(stack)-1]
		}
		parent := -1
		if len(stack) > 0 {
			parent = stack[len(stack)-1]
		}
		out[i] = Placement{Parent: parent, Depth: len(stack), Position: children[parent]}
		children[parent]++
		stack = append(stack, i)
	}
	return out
}
