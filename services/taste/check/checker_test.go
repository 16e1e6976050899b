// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package check

import (
	"context"
	"testing"

	"github.com/alexdong/high-taste/services/taste/ast"
	"github.com/alexdong/high-taste/services/taste/pattern"
	"github.com/alexdong/high-taste/services/taste/rules"
)

// stubParser resolves file content to pre-built trees, keeping the
// checker tests independent of any real grammar.
type stubParser struct {
	trees map[string]*ast.Node
}

func (s *stubParser) Parse(_ context.Context, content []byte, path string) (*ast.Node, error) {
	tree, ok := s.trees[string(content)]
	if !ok {
		return nil, &ast.SyntaxError{Path: path, Line: 3, Col: 1, Msg: "unexpected token"}
	}
	return tree, nil
}

func (s *stubParser) Language() string     { return "stub" }
func (s *stubParser) Extensions() []string { return []string{".stub"} }

// openCall is a tree with a call to open at the given line.
func openCall(line int) *ast.Node {
	return &ast.Node{
		Kind: ast.KindModule,
		Children: []*ast.Node{{
			Kind: ast.KindCall,
			Span: ast.Span{StartLine: line, StartCol: 4, EndLine: line, EndCol: 12},
			Slots: map[string]*ast.Node{
				"func": {Kind: ast.KindName, Text: "open"},
			},
		}},
	}
}

func openRule(id string) *rules.Rule {
	return &rules.Rule{
		ID:       id,
		Category: "functions",
		Title:    "Avoid bare open calls",
		Severity: rules.SeverityWarning,
		Pattern: &pattern.PNode{Kind: ast.KindCall, Slots: map[string]*pattern.PNode{
			"func": {Kind: ast.KindName, Text: "open"},
		}},
	}
}

func newTestChecker(t *testing.T, trees map[string]*ast.Node, ruleSet ...*rules.Rule) *Checker {
	t.Helper()

	store := rules.NewStore()
	for _, r := range ruleSet {
		if _, err := store.Put(r); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	registry := ast.NewParserRegistry()
	registry.Register(&stubParser{trees: trees})

	return NewChecker(store, registry)
}

func TestCheckReportsViolation(t *testing.T) {
	checker := newTestChecker(t,
		map[string]*ast.Node{"violating": openCall(7)},
		openRule("FUNC001"),
	)

	got, err := checker.Check(context.Background(), []FileInput{
		{Path: "a.stub", Content: []byte("violating")},
	})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d violations, want 1", len(got))
	}

	v := got[0]
	if v.RuleID != "FUNC001" {
		t.Errorf("rule ID = %q, want FUNC001", v.RuleID)
	}
	if v.Severity != rules.SeverityWarning {
		t.Errorf("severity = %q, want warning", v.Severity)
	}
	if v.Message != "Avoid bare open calls" {
		t.Errorf("message = %q, want the rule title", v.Message)
	}
	if v.Span.StartLine != 7 {
		t.Errorf("span start line = %d, want 7", v.Span.StartLine)
	}
}

func TestCheckParseFailure(t *testing.T) {
	checker := newTestChecker(t,
		map[string]*ast.Node{"violating": openCall(7)},
		openRule("FUNC001"),
	)

	got, err := checker.Check(context.Background(), []FileInput{
		{Path: "broken.stub", Content: []byte("garbage")},
		{Path: "fine.stub", Content: []byte("violating")},
	})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d violations, want parse violation plus rule match", len(got))
	}

	parseV := got[0]
	if parseV.Path != "broken.stub" {
		t.Fatalf("first violation path = %q, want broken.stub", parseV.Path)
	}
	if parseV.RuleID != ParseRuleID {
		t.Errorf("rule ID = %q, want %q", parseV.RuleID, ParseRuleID)
	}
	if parseV.Severity != rules.SeverityError {
		t.Errorf("severity = %q, want error", parseV.Severity)
	}
	if parseV.Span.StartLine != 3 {
		t.Errorf("parse violation line = %d, want 3", parseV.Span.StartLine)
	}
	if got[1].RuleID != "FUNC001" {
		t.Errorf("second violation rule = %q, want FUNC001", got[1].RuleID)
	}
}

func TestCheckChangedLinesFilter(t *testing.T) {
	trees := map[string]*ast.Node{
		"two": {
			Kind: ast.KindModule,
			Children: []*ast.Node{
				openCall(2).Children[0],
				openCall(20).Children[0],
			},
		},
	}
	checker := newTestChecker(t, trees, openRule("FUNC001"))

	tests := []struct {
		name    string
		changed []LineRange
		want    int
	}{
		{"whole file", nil, 2},
		{"one range hit", []LineRange{{Start: 1, End: 5}}, 1},
		{"both ranges hit", []LineRange{{Start: 1, End: 5}, {Start: 19, End: 21}}, 2},
		{"no range hit", []LineRange{{Start: 40, End: 50}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := checker.Check(context.Background(), []FileInput{
				{Path: "a.stub", Content: []byte("two"), ChangedLines: tt.changed},
			})
			if err != nil {
				t.Fatalf("Check failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d violations, want %d", len(got), tt.want)
			}
		})
	}
}

func TestCheckSortOrder(t *testing.T) {
	trees := map[string]*ast.Node{"violating": openCall(7)}
	checker := newTestChecker(t, trees, openRule("FUNC001"))

	got, err := checker.Check(context.Background(), []FileInput{
		{Path: "b.stub", Content: []byte("violating")},
		{Path: "a.stub", Content: []byte("violating")},
	})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d violations, want 2", len(got))
	}
	if got[0].Path != "a.stub" || got[1].Path != "b.stub" {
		t.Errorf("violations not sorted by path: %q, %q", got[0].Path, got[1].Path)
	}
}

func TestCheckSkipsUnsupported(t *testing.T) {
	checker := newTestChecker(t,
		map[string]*ast.Node{"violating": openCall(7)},
		openRule("FUNC001"),
	)

	got, err := checker.Check(context.Background(), []FileInput{
		{Path: "styles.css", Content: []byte("violating")},
	})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d violations for an unsupported file, want 0", len(got))
	}
}

func TestCheckIgnoresDisabledRules(t *testing.T) {
	checker := newTestChecker(t,
		map[string]*ast.Node{"violating": openCall(7)},
		openRule("FUNC001"),
	)
	if err := checker.store.Disable("FUNC001"); err != nil {
		t.Fatalf("Disable failed: %v", err)
	}

	got, err := checker.Check(context.Background(), []FileInput{
		{Path: "a.stub", Content: []byte("violating")},
	})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d violations from a disabled rule, want 0", len(got))
	}
}

func TestOverlapsChanged(t *testing.T) {
	span := ast.Span{StartLine: 5, EndLine: 8}

	tests := []struct {
		name   string
		ranges []LineRange
		want   bool
	}{
		{"empty means whole file", nil, true},
		{"overlap at start", []LineRange{{Start: 1, End: 5}}, true},
		{"overlap inside", []LineRange{{Start: 6, End: 7}}, true},
		{"before the span", []LineRange{{Start: 1, End: 4}}, false},
		{"after the span", []LineRange{{Start: 9, End: 12}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := overlapsChanged(span, tt.ranges); got != tt.want {
				t.Errorf("overlapsChanged = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestCheckLoopAppendScenario runs a real Python file through the full
// parse-and-match pipeline: a for loop that only appends to a sequence
// should trip the comprehension rule exactly once, spanning the loop.
func TestCheckLoopAppendScenario(t *testing.T) {
	store := rules.NewStore()
	_, err := store.Put(&rules.Rule{
		ID:       "PERF001",
		Category: "performance",
		Title:    "Use a comprehension instead of appending in a loop",
		Severity: rules.SeveritySuggestion,
		Pattern: &pattern.PNode{
			Kind: ast.KindFor,
			Slots: map[string]*pattern.PNode{
				"body": {
					Kind: ast.KindBlock,
					Children: []*pattern.PNode{{
						Kind: ast.KindExprStmt,
						Slots: map[string]*pattern.PNode{
							"value": {
								Kind: ast.KindCall,
								Slots: map[string]*pattern.PNode{
									"func": {
										Kind: ast.KindAttribute,
										Text: "append",
										Slots: map[string]*pattern.PNode{
											"value": {Hole: "seq"},
										},
									},
								},
							},
						},
					}},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	registry := ast.NewParserRegistry()
	registry.Register(ast.NewPythonParser())
	checker := NewChecker(store, registry)

	src := "result = []\nfor item in items:\n    result.append(item * 2)\n"
	got, err := checker.Check(context.Background(), []FileInput{
		{Path: "loop.py", Content: []byte(src)},
	})
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d violations, want 1", len(got))
	}

	v := got[0]
	if v.RuleID != "PERF001" {
		t.Errorf("rule ID = %q, want PERF001", v.RuleID)
	}
	if v.Span.StartLine != 2 || v.Span.EndLine != 3 {
		t.Errorf("span = lines %d-%d, want 2-3", v.Span.StartLine, v.Span.EndLine)
	}
}
