// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"testing"
)

func name(text string) *Node {
	return &Node{Kind: KindName, Text: text}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a    *Node
		b    *Node
		want bool
	}{
		{
			name: "identical leaves",
			a:    name("x"),
			b:    name("x"),
			want: true,
		},
		{
			name: "different text",
			a:    name("x"),
			b:    name("y"),
			want: false,
		},
		{
			name: "different kind",
			a:    name("x"),
			b:    &Node{Kind: KindLiteral, Text: "x"},
			want: false,
		},
		{
			name: "spans ignored",
			a:    &Node{Kind: KindName, Text: "x", Span: Span{StartLine: 1}},
			b:    &Node{Kind: KindName, Text: "x", Span: Span{StartLine: 99}},
			want: true,
		},
		{
			name: "slot mismatch",
			a:    &Node{Kind: KindAssign, Slots: map[string]*Node{"target": name("x")}},
			b:    &Node{Kind: KindAssign, Slots: map[string]*Node{"value": name("x")}},
			want: false,
		},
		{
			name: "children order matters",
			a:    &Node{Kind: KindBlock, Children: []*Node{name("a"), name("b")}},
			b:    &Node{Kind: KindBlock, Children: []*Node{name("b"), name("a")}},
			want: false,
		},
		{
			name: "nil against node",
			a:    nil,
			b:    name("x"),
			want: false,
		},
		{
			name: "both nil",
			a:    nil,
			b:    nil,
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWalkOrder(t *testing.T) {
	tree := &Node{
		Kind: KindIf,
		Slots: map[string]*Node{
			"condition": name("cond"),
			"body":      &Node{Kind: KindBlock, Children: []*Node{name("stmt")}},
		},
		Children: []*Node{name("tail")},
	}

	var visited []string
	tree.Walk(func(n *Node) bool {
		visited = append(visited, string(n.Kind)+":"+n.Text)
		return true
	})

	// Slots in sorted name order (body before condition), then children.
	want := []string{"if:", "block:", "name:stmt", "name:cond", "name:tail"}
	if len(visited) != len(want) {
		t.Fatalf("visited %d nodes, want %d: %v", len(visited), len(want), visited)
	}
	for i := range want {
		if visited[i] != want[i] {
			t.Errorf("visit[%d] = %q, want %q", i, visited[i], want[i])
		}
	}
}

func TestWalkPrune(t *testing.T) {
	tree := &Node{Kind: KindBlock, Children: []*Node{
		{Kind: KindCall, Slots: map[string]*Node{"func": name("f")}},
	}}

	count := 0
	tree.Walk(func(n *Node) bool {
		count++
		return n.Kind != KindCall
	})

	if count != 2 {
		t.Errorf("visited %d nodes after pruning, want 2", count)
	}
}

func TestFingerprint(t *testing.T) {
	a := &Node{Kind: KindAssign, Slots: map[string]*Node{
		"target": name("x"),
		"value":  {Kind: KindLiteral, Text: "1"},
	}}
	b := &Node{Kind: KindAssign, Slots: map[string]*Node{
		"target": name("x"),
		"value":  {Kind: KindLiteral, Text: "1", Span: Span{StartLine: 7}},
	}}
	c := &Node{Kind: KindAssign, Slots: map[string]*Node{
		"target": name("x"),
		"value":  {Kind: KindLiteral, Text: "2"},
	}}

	if a.Fingerprint() != b.Fingerprint() {
		t.Error("equal trees must share a fingerprint")
	}
	if a.Fingerprint() == c.Fingerprint() {
		t.Error("different trees must not share a fingerprint")
	}
}

func TestKnownKind(t *testing.T) {
	tests := []struct {
		kind Kind
		want bool
	}{
		{KindModule, true},
		{KindComprehension, true},
		{Kind("decorated_definition"), true}, // grammar passthrough
		{Kind(""), false},
		{Kind("NotAKind"), false},
		{Kind("has space"), false},
	}

	for _, tt := range tests {
		if got := KnownKind(tt.kind); got != tt.want {
			t.Errorf("KnownKind(%q) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestSpanOverlapsLines(t *testing.T) {
	span := Span{StartLine: 5, EndLine: 8}

	tests := []struct {
		start, end int
		want       bool
	}{
		{1, 4, false},
		{1, 5, true},
		{6, 7, true},
		{8, 20, true},
		{9, 20, false},
	}

	for _, tt := range tests {
		if got := span.OverlapsLines(tt.start, tt.end); got != tt.want {
			t.Errorf("OverlapsLines(%d, %d) = %v, want %v", tt.start, tt.end, got, tt.want)
		}
	}
}

func TestCount(t *testing.T) {
	tree := &Node{Kind: KindModule, Children: []*Node{
		{Kind: KindExprStmt, Slots: map[string]*Node{"value": name("x")}},
	}}
	if got := tree.Count(); got != 3 {
		t.Errorf("Count() = %d, want 3", got)
	}
}
