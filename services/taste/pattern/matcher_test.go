// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package pattern

import (
	"context"
	"testing"

	"github.com/alexdong/high-taste/services/taste/ast"
)

func mustCompile(t *testing.T, p *PNode) *Compiled {
	t.Helper()

	compiled, err := Compile(p)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	return compiled
}

// call builds a call tree node with a named function and argument leaves.
func call(fn string, args ...*ast.Node) *ast.Node {
	return &ast.Node{
		Kind:     ast.KindCall,
		Slots:    map[string]*ast.Node{"func": {Kind: ast.KindName, Text: fn}},
		Children: args,
	}
}

func lit(text string) *ast.Node {
	return &ast.Node{Kind: ast.KindLiteral, Text: text}
}

func ident(text string) *ast.Node {
	return &ast.Node{Kind: ast.KindName, Text: text}
}

func block(children ...*ast.Node) *ast.Node {
	return &ast.Node{Kind: ast.KindBlock, Children: children}
}

func TestMatchLiteral(t *testing.T) {
	compiled := mustCompile(t, &PNode{Kind: ast.KindCall, Slots: map[string]*PNode{
		"func": {Kind: ast.KindName, Text: "open"},
	}})

	tree := block(call("open", lit("1")), call("close"))

	matches, err := compiled.Match(context.Background(), tree)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].Node != tree.Children[0] {
		t.Error("matched the wrong node")
	}
}

func TestMatchHoleBinding(t *testing.T) {
	compiled := mustCompile(t, &PNode{Kind: ast.KindCall, Slots: map[string]*PNode{
		"func": {Hole: "f"},
	}})

	tree := call("save", lit("1"))

	matches, err := compiled.Match(context.Background(), tree)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}

	bound := matches[0].Bindings["f"]
	if bound == nil || bound.Text != "save" {
		t.Errorf("hole f bound %+v, want name save", bound)
	}
}

func TestMatchKindConstrainedHole(t *testing.T) {
	compiled := mustCompile(t, &PNode{Kind: ast.KindCall, Children: []*PNode{
		{Hole: "arg", Kind: ast.KindLiteral},
	}})

	tests := []struct {
		name string
		tree *ast.Node
		want int
	}{
		{"literal argument", call("f", lit("1")), 1},
		{"name argument", call("f", ident("x")), 0},
		{"no arguments", call("f"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches, err := compiled.Match(context.Background(), tt.tree)
			if err != nil {
				t.Fatalf("Match failed: %v", err)
			}
			if len(matches) != tt.want {
				t.Errorf("got %d matches, want %d", len(matches), tt.want)
			}
		})
	}
}

func TestMatchRepeatedHole(t *testing.T) {
	compiled := mustCompile(t, &PNode{Kind: ast.KindCompare, Text: "==", Slots: map[string]*PNode{
		"left":  {Hole: "x"},
		"right": {Hole: "x"},
	}})

	compare := func(left, right *ast.Node) *ast.Node {
		return &ast.Node{Kind: ast.KindCompare, Text: "==", Slots: map[string]*ast.Node{
			"left": left, "right": right,
		}}
	}

	if _, ok := compiled.MatchAt(compare(ident("a"), ident("a"))); !ok {
		t.Error("equal sides should satisfy a repeated hole")
	}
	if _, ok := compiled.MatchAt(compare(ident("a"), ident("b"))); ok {
		t.Error("unequal sides should violate a repeated hole")
	}
}

func TestMatchChildSubsequence(t *testing.T) {
	compiled := mustCompile(t, &PNode{Kind: ast.KindCall, Children: []*PNode{
		{Kind: ast.KindLiteral, Text: "1"},
		{Kind: ast.KindLiteral, Text: "3"},
	}})

	tests := []struct {
		name string
		tree *ast.Node
		want bool
	}{
		{"contiguous", call("f", lit("1"), lit("3")), true},
		{"with gap", call("f", lit("1"), lit("2"), lit("3")), true},
		{"wrong order", call("f", lit("3"), lit("1")), false},
		{"missing child", call("f", lit("1")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := compiled.MatchAt(tt.tree)
			if ok != tt.want {
				t.Errorf("MatchAt = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestMatchLeftmostAlignment(t *testing.T) {
	compiled := mustCompile(t, &PNode{Kind: ast.KindCall, Children: []*PNode{
		{Hole: "a", Kind: ast.KindLiteral},
	}})

	binds, ok := compiled.MatchAt(call("f", lit("1"), lit("2")))
	if !ok {
		t.Fatal("expected a match")
	}
	if got := binds["a"]; got == nil || got.Text != "1" {
		t.Errorf("hole a bound %+v, want the leftmost literal", got)
	}
}

func TestMatchOutermostSuppression(t *testing.T) {
	compiled := mustCompile(t, &PNode{Kind: ast.KindBlock})

	inner := block(ident("x"))
	outer := block(inner)
	tree := &ast.Node{Kind: ast.KindModule, Children: []*ast.Node{outer}}

	matches, err := compiled.Match(context.Background(), tree)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1 (outermost only)", len(matches))
	}
	if matches[0].Node != outer {
		t.Error("matched the inner block, want the outer one")
	}
}

func TestMatchDisjointOrder(t *testing.T) {
	compiled := mustCompile(t, &PNode{Kind: ast.KindCall, Slots: map[string]*PNode{
		"func": {Hole: "f", Kind: ast.KindName},
	}})

	first := call("alpha")
	second := call("beta")
	tree := block(first, second)

	matches, err := compiled.Match(context.Background(), tree)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].Node != first || matches[1].Node != second {
		t.Error("matches are not in document order")
	}
}

func TestMatchCanceled(t *testing.T) {
	compiled := mustCompile(t, &PNode{Kind: ast.KindCall})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := compiled.Match(ctx, call("f"))
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}
