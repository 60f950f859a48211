// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package nestedset

import (
	"errors"
	"testing"
)

func TestSpanWidth(t *testing.T) {
	tests := []struct {
		descendants int
		want        int
	}{
		{0, 2},
		{1, 4},
		{5, 12},
	}
	for _, tt := range tests {
		if got := SpanWidth(tt.descendants); got != tt.want {
			t.Errorf("SpanWidth(%d) = %d, want %d", tt.descendants, got, tt.want)
		}
	}
}

func TestSpanHelpers(t *testing.T) {
	s := Span{Left: 2, Right: 7}
	if s.Width() != 6 {
		t.Errorf("Width: got %d, want 6", s.Width())
	}
	if s.Descendants() != 2 {
		t.Errorf("Descendants: got %d, want 2", s.Descendants())
	}
	if s.IsLeaf() {
		t.Error("span with descendants reported as leaf")
	}
	if !(Span{Left: 3, Right: 4}).IsLeaf() {
		t.Error("(3, 4) should be a leaf")
	}
	if !s.Contains(2) || !s.Contains(7) || s.Contains(8) || s.Contains(1) {
		t.Error("Contains should be inclusive of both ends only")
	}
}

func TestIsAncestor(t *testing.T) {
	root := Span{1, 12}
	a := Span{2, 5}
	a1 := Span{3, 4}
	b := Span{6, 7}

	tests := []struct {
		name string
		a, b Span
		want bool
	}{
		{"root over child", root, a, true},
		{"root over grandchild", root, a1, true},
		{"parent over child", a, a1, true},
		{"child over parent", a1, a, false},
		{"siblings", a, b, false},
		{"self", a, a, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAncestor(tt.a, tt.b); got != tt.want {
				t.Errorf("IsAncestor(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestInRange(t *testing.T) {
	if !InRange(Span{3, 4}, 2, 5) {
		t.Error("(3, 4) should be inside [2, 5]")
	}
	if !InRange(Span{2, 5}, 2, 5) {
		t.Error("span equal to the range should be inside")
	}
	if InRange(Span{6, 7}, 2, 5) {
		t.Error("(6, 7) should be outside [2, 5]")
	}
}

func TestPlanApply(t *testing.T) {
	p := Plan{{Low: 3, High: 5, Delta: 10}, {Low: 8, High: Unbounded, Delta: -2}}
	cases := map[int]int{1: 1, 3: 13, 5: 15, 6: 6, 8: 6, 100: 98}
	for in, want := range cases {
		if got := p.Apply(in); got != want {
			t.Errorf("Apply(%d) = %d, want %d", in, got, want)
		}
	}
	low, high := p.Bounds()
	if low != 3 || high != Unbounded {
		t.Errorf("Bounds = (%d, %d), want (3, %d)", low, high, Unbounded)
	}
}

func TestPlanCompact(t *testing.T) {
	p := Plan{{Low: 4, High: 3, Delta: 2}, {Low: 1, High: 2, Delta: 0}, {Low: 5, High: 6, Delta: 1}}
	got := p.Compact()
	if len(got) != 1 || got[0] != (Shift{Low: 5, High: 6, Delta: 1}) {
		t.Errorf("Compact = %v", got)
	}
	if len(p) != 3 {
		t.Error("Compact must not modify the receiver")
	}
}

// exampleTree is root(1,12) with A(2,5){A1(3,4)}, B(6,7), C(8,11){C1(9,10)}.
func exampleTree() map[string]Span {
	return map[string]Span{
		"root": {1, 12},
		"A":    {2, 5},
		"A1":   {3, 4},
		"B":    {6, 7},
		"C":    {8, 11},
		"C1":   {9, 10},
	}
}

func applyAll(tree map[string]Span, p Plan) {
	for k, s := range tree {
		tree[k] = p.ApplySpan(s)
	}
}

func spansOf(tree map[string]Span) []Span {
	out := make([]Span, 0, len(tree))
	for _, s := range tree {
		out = append(out, s)
	}
	return out
}

func TestInsertUnderB(t *testing.T) {
	tree := exampleTree()
	plan, node := Insert(tree["B"])
	applyAll(tree, plan)
	tree["B1"] = node

	want := map[string]Span{
		"root": {1, 14},
		"A":    {2, 5},
		"A1":   {3, 4},
		"B":    {6, 9},
		"B1":   {7, 8},
		"C":    {10, 13},
		"C1":   {11, 12},
	}
	for k, w := range want {
		if tree[k] != w {
			t.Errorf("%s: got %v, want %v", k, tree[k], w)
		}
	}
	if err := Verify(spansOf(tree)); err != nil {
		t.Fatalf("Verify after insert: %v", err)
	}

	// Deleting C (the last child) with its subtree only pulls in the root's
	// closing key.
	c := tree["C"]
	for k, s := range tree {
		if InRange(s, c.Left, c.Right) {
			delete(tree, k)
		}
	}
	applyAll(tree, Remove(c))
	if tree["root"] != (Span{1, 10}) {
		t.Errorf("root after delete: got %v, want (1, 10)", tree["root"])
	}
	if tree["B"] != (Span{6, 9}) {
		t.Errorf("B after delete: got %v, want (6, 9)", tree["B"])
	}
	if err := Verify(spansOf(tree)); err != nil {
		t.Fatalf("Verify after delete: %v", err)
	}
}

func TestRelocate(t *testing.T) {
	t.Run("move A under C", func(t *testing.T) {
		tree := exampleTree()
		plan, err := Relocate(tree["A"], LastChildKey(tree["C"]))
		if err != nil {
			t.Fatalf("Relocate: %v", err)
		}
		applyAll(tree, plan)
		want := map[string]Span{
			"root": {1, 12},
			"B":    {2, 3},
			"C":    {4, 11},
			"C1":   {5, 6},
			"A":    {7, 10},
			"A1":   {8, 9},
		}
		for k, w := range want {
			if tree[k] != w {
				t.Errorf("%s: got %v, want %v", k, tree[k], w)
			}
		}
	})

	t.Run("move C1 under A", func(t *testing.T) {
		tree := exampleTree()
		plan, err := Relocate(tree["C1"], LastChildKey(tree["A"]))
		if err != nil {
			t.Fatalf("Relocate: %v", err)
		}
		applyAll(tree, plan)
		want := map[string]Span{
			"root": {1, 12},
			"A":    {2, 7},
			"A1":   {3, 4},
			"C1":   {5, 6},
			"B":    {8, 9},
			"C":    {10, 11},
		}
		for k, w := range want {
			if tree[k] != w {
				t.Errorf("%s: got %v, want %v", k, tree[k], w)
			}
		}
	})

	t.Run("reorder C first", func(t *testing.T) {
		tree := exampleTree()
		plan, err := Relocate(tree["C"], FirstChildKey(tree["root"]))
		if err != nil {
			t.Fatalf("Relocate: %v", err)
		}
		applyAll(tree, plan)
		if tree["C"] != (Span{2, 5}) || tree["A"] != (Span{6, 9}) || tree["B"] != (Span{10, 11}) {
			t.Errorf("unexpected layout: %v", tree)
		}
	})

	t.Run("reorder A after B", func(t *testing.T) {
		tree := exampleTree()
		plan, err := Relocate(tree["A"], AfterKey(tree["B"]))
		if err != nil {
			t.Fatalf("Relocate: %v", err)
		}
		applyAll(tree, plan)
		if tree["B"] != (Span{2, 3}) || tree["A"] != (Span{4, 7}) || tree["C"] != (Span{8, 11}) {
			t.Errorf("unexpected layout: %v", tree)
		}
	})

	t.Run("no-op placements", func(t *testing.T) {
		a := exampleTree()["A"]
		for _, at := range []int{a.Left, a.Right + 1} {
			plan, err := Relocate(a, at)
			if err != nil {
				t.Fatalf("Relocate(%d): %v", at, err)
			}
			if len(plan) != 0 {
				t.Errorf("Relocate(%d) = %v, want empty plan", at, plan)
			}
		}
	})

	t.Run("inside own span", func(t *testing.T) {
		tree := exampleTree()
		for _, dest := range []string{"A", "A1"} {
			if _, err := Relocate(tree["A"], LastChildKey(tree[dest])); !errors.Is(err, ErrInsideSpan) {
				t.Errorf("move A under %s: got %v, want ErrInsideSpan", dest, err)
			}
		}
	})
}

func TestVerify(t *testing.T) {
	if err := Verify(nil); err != nil {
		t.Errorf("empty tree: %v", err)
	}
	if err := Verify(spansOf(exampleTree())); err != nil {
		t.Errorf("example tree: %v", err)
	}

	bad := map[string][]Span{
		"gap":          {{1, 6}, {2, 3}},
		"duplicate":    {{1, 4}, {1, 2}},
		"even width":   {{1, 4}, {2, 2}},
		"overlap":      {{1, 8}, {2, 5}, {3, 6}},
		"two roots":    {{1, 2}, {3, 4}},
		"wrong root":   {{2, 3}},
		"out of order": {{2, 1}},
	}
	for name, spans := range bad {
		t.Run(name, func(t *testing.T) {
			if err := Verify(spans); !errors.Is(err, ErrCorrupt) {
				t.Errorf("Verify(%v) = %v, want ErrCorrupt", spans, err)
			}
		})
	}
}

func TestLayout(t *testing.T) {
	// Pre-order: root, A, A1, B, C, C1.
	spans := []Span{{1, 12}, {2, 5}, {3, 4}, {6, 7}, {8, 11}, {9, 10}}
	want := []Placement{
		{Parent: -1, Depth: 0, Position: 0},
		{Parent: 0, Depth: 1, Position: 0},
		{Parent: 1, Depth: 2, Position: 0},
		{Parent: 0, Depth: 1, Position: 1},
		{Parent: 0, Depth: 1, Position: 2},
		{Parent: 4, Depth: 2, Position: 0},
	}
	got := Layout(spans)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("node %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
}
