// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast converts raw source text into normalized structure trees.
//
// This package defines the StructureNode model used by the pattern matcher
// and the generalizer. All parser implementations (Python, Go) produce
// trees conforming to these types.
//
// Design principles:
//   - Language-agnostic: kinds map constructs across languages
//   - Trees are immutable snapshots; never mutated after construction
//   - Every node carries a source span for violation reporting
package ast

import (
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the normalized construct a node represents.
//
// Language-specific node types are mapped to the closest general kind
// (e.g. Python's list_comprehension and generator_expression both map
// to KindComprehension). Constructs with no dedicated kind keep their
// grammar node type verbatim, so matching still works on them.
type Kind string

const (
	// KindModule is the single root of every structure tree.
	KindModule Kind = "module"

	// KindFunctionDef represents a function or method definition.
	KindFunctionDef Kind = "function_def"

	// KindClassDef represents a class or type definition.
	KindClassDef Kind = "class_def"

	// KindIf represents a conditional statement.
	KindIf Kind = "if"

	// KindFor represents a for loop.
	KindFor Kind = "for"

	// KindWhile represents a while loop.
	KindWhile Kind = "while"

	// KindCall represents a function or method call.
	KindCall Kind = "call"

	// KindAssign represents a plain assignment.
	KindAssign Kind = "assign"

	// KindAugAssign represents an augmented assignment (+=, -=, ...).
	KindAugAssign Kind = "aug_assign"

	// KindReturn represents a return statement.
	KindReturn Kind = "return"

	// KindComprehension represents list/set/dict comprehensions and
	// generator expressions.
	KindComprehension Kind = "comprehension"

	// KindBinaryOp represents a binary arithmetic/bitwise expression.
	KindBinaryOp Kind = "binary_op"

	// KindBoolOp represents a boolean and/or expression.
	KindBoolOp Kind = "bool_op"

	// KindUnaryOp represents a unary expression.
	KindUnaryOp Kind = "unary_op"

	// KindCompare represents a comparison expression.
	KindCompare Kind = "compare"

	// KindAttribute represents attribute/selector access (x.y).
	KindAttribute Kind = "attribute"

	// KindSubscript represents index/slice access (x[y]).
	KindSubscript Kind = "subscript"

	// KindName represents an identifier reference.
	KindName Kind = "name"

	// KindLiteral represents string/number/bool/none literals.
	KindLiteral Kind = "literal"

	// KindList represents a list or slice display.
	KindList Kind = "list"

	// KindTuple represents a tuple display.
	KindTuple Kind = "tuple"

	// KindDict represents a dict or map display.
	KindDict Kind = "dict"

	// KindBlock represents an ordered statement sequence (a body).
	KindBlock Kind = "block"

	// KindExprStmt represents an expression used as a statement.
	KindExprStmt Kind = "expr_stmt"

	// KindKeywordArg represents a keyword argument in a call.
	KindKeywordArg Kind = "keyword_arg"

	// KindParam represents a single function parameter.
	KindParam Kind = "param"

	// KindImport represents an import statement.
	KindImport Kind = "import"

	// KindRaise represents a raise/panic statement.
	KindRaise Kind = "raise"

	// KindTry represents a try/except or defer/recover construct.
	KindTry Kind = "try"

	// KindWith represents a context-manager statement.
	KindWith Kind = "with"

	// KindLambda represents an anonymous function expression.
	KindLambda Kind = "lambda"
)

// wellKnownKinds is the set of kinds that pattern compilation accepts by
// name. Grammar passthrough kinds (lowercase tree-sitter node types) are
// also accepted; see KnownKind.
var wellKnownKinds = map[Kind]struct{}{
	KindModule: {}, KindFunctionDef: {}, KindClassDef: {}, KindIf: {},
	KindFor: {}, KindWhile: {}, KindCall: {}, KindAssign: {},
	KindAugAssign: {}, KindReturn: {}, KindComprehension: {},
	KindBinaryOp: {}, KindBoolOp: {}, KindUnaryOp: {}, KindCompare: {},
	KindAttribute: {}, KindSubscript: {}, KindName: {}, KindLiteral: {},
	KindList: {}, KindTuple: {}, KindDict: {}, KindBlock: {},
	KindExprStmt: {}, KindKeywordArg: {}, KindParam: {}, KindImport: {},
	KindRaise: {}, KindTry: {}, KindWith: {}, KindLambda: {},
}

// KnownKind reports whether k is resolvable by the pattern compiler.
//
// Normalized kinds are always known. Raw grammar node types (which the
// parsers pass through for constructs without a dedicated kind) are
// accepted when they look like a tree-sitter node type: non-empty,
// lowercase letters and underscores only.
func KnownKind(k Kind) bool {
	if _, ok := wellKnownKinds[k]; ok {
		return true
	}
	if k == "" {
		return false
	}
	for _, r := range string(k) {
		if (r < 'a' || r > 'z') && r != '_' {
			return false
		}
	}
	return true
}

// Span is a half-open source location range. Lines are 1-based as
// editors report them; columns stay 0-based like tree-sitter points.
type Span struct {
	StartLine int `json:"start_line" yaml:"start_line"`
	StartCol  int `json:"start_col"  yaml:"start_col"`
	EndLine   int `json:"end_line"   yaml:"end_line"`
	EndCol    int `json:"end_col"    yaml:"end_col"`
}

// OverlapsLines reports whether the span touches any line in [start, end].
func (s Span) OverlapsLines(start, end int) bool {
	return s.EndLine >= start && s.StartLine <= end
}

// Node is a normalized node in a code structure tree.
//
// A Node has an ordered child sequence plus a mapping of semantic slots
// (condition, body, target, ...) to sub-nodes. Leaf nodes carry their
// identifier or literal text in Text; formatting and whitespace never
// appear in a tree.
//
// Ownership: trees are immutable snapshots owned by the Parse call that
// produced them. Callers must not mutate a returned tree.
type Node struct {
	// Kind is the normalized construct kind.
	Kind Kind

	// Text is the leaf text for names, literals, attribute names and
	// operators. Empty for purely structural nodes.
	Text string

	// Slots maps semantic slot names to sub-nodes.
	Slots map[string]*Node

	// Children is the ordered child sequence (statements, arguments,
	// elements).
	Children []*Node

	// Span is the source range this node covers.
	Span Span
}

// SlotNames returns the node's slot names in sorted order.
//
// Iteration over Slots must always go through SlotNames so that matching
// and diffing stay deterministic.
func (n *Node) SlotNames() []string {
	if len(n.Slots) == 0 {
		return nil
	}
	names := make([]string, 0, len(n.Slots))
	for name := range n.Slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Walk visits the tree pre-order. The visit function returns false to
// prune descent below the current node. Slot sub-nodes are visited before
// children, both in deterministic order.
func (n *Node) Walk(visit func(*Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for _, name := range n.SlotNames() {
		n.Slots[name].Walk(visit)
	}
	for _, c := range n.Children {
		c.Walk(visit)
	}
}

// Count returns the number of nodes in the tree.
func (n *Node) Count() int {
	total := 0
	n.Walk(func(*Node) bool {
		total++
		return true
	})
	return total
}

// Equal reports structural equality of two trees, ignoring spans.
//
// Two trees are equal when kinds, leaf text, slot names and ordered
// children all correspond. This is the consistency relation used for
// repeated pattern holes.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind || a.Text != b.Text {
		return false
	}
	if len(a.Slots) != len(b.Slots) || len(a.Children) != len(b.Children) {
		return false
	}
	for _, name := range a.SlotNames() {
		other, ok := b.Slots[name]
		if !ok || !Equal(a.Slots[name], other) {
			return false
		}
	}
	for i := range a.Children {
		if !Equal(a.Children[i], b.Children[i]) {
			return false
		}
	}
	return true
}

// Fingerprint returns a stable textual encoding of the tree's structure,
// ignoring spans. Equal trees produce equal fingerprints.
func (n *Node) Fingerprint() string {
	var b strings.Builder
	n.fingerprint(&b)
	return b.String()
}

func (n *Node) fingerprint(b *strings.Builder) {
	if n == nil {
		b.WriteString("_")
		return
	}
	b.WriteString(string(n.Kind))
	if n.Text != "" {
		b.WriteString("=")
		b.WriteString(strconv.Quote(n.Text))
	}
	if len(n.Slots) > 0 {
		b.WriteString("{")
		for i, name := range n.SlotNames() {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(name)
			b.WriteString(":")
			n.Slots[name].fingerprint(b)
		}
		b.WriteString("}")
	}
	if len(n.Children) > 0 {
		b.WriteString("[")
		for i, c := range n.Children {
			if i > 0 {
				b.WriteString(",")
			}
			c.fingerprint(b)
		}
		b.WriteString("]")
	}
}
