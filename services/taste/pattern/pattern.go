// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package pattern implements structural templates over code structure
// trees and their matching.
//
// # Description
//
// A Pattern is a tree of literal nodes and typed holes. Literal nodes
// constrain kind, optional leaf text, slots and ordered children; a hole
// binds any subtree, optionally constrained to a kind. A hole name
// repeated within one pattern must bind structurally equal subtrees.
//
// Matching is a pure predicate: no side effects, deterministic results.
//
// # Thread Safety
//
// Patterns and compiled patterns are immutable after creation and safe
// for concurrent use.
package pattern

import (
	"errors"
	"fmt"
	"sort"

	"github.com/alexdong/high-taste/services/taste/ast"
)

// Sentinel errors for the pattern package.
var (
	// ErrInvalidPattern indicates a pattern that cannot compile: empty,
	// unconstrained at the root, or referencing an unresolvable kind.
	ErrInvalidPattern = errors.New("invalid pattern")
)

// PNode is one node of a structural pattern.
//
// Exactly one of two shapes applies:
//   - Hole != "": a wildcard that binds the whole subtree at this
//     position. Kind, when set, constrains what the hole may bind.
//   - Hole == "": a literal node. Kind is required; Text, Slots and
//     Children constrain the tree node further.
//
// Pattern children match the tree node's children as an ordered
// subsequence: every pattern child must be matched, in order, but the
// tree may have additional children between them.
type PNode struct {
	// Hole names a wildcard position. Empty for literal nodes.
	Hole string `json:"hole,omitempty" yaml:"hole,omitempty"`

	// Kind is the required node kind. Optional for holes.
	Kind ast.Kind `json:"kind,omitempty" yaml:"kind,omitempty"`

	// Text is the required leaf text. Empty means unconstrained.
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	// Slots are per-slot sub-patterns. Every named slot must exist in
	// the tree node and match.
	Slots map[string]*PNode `json:"slots,omitempty" yaml:"slots,omitempty"`

	// Children are ordered child sub-patterns, matched as a subsequence
	// of the tree node's children.
	Children []*PNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// IsHole reports whether the node is a wildcard.
func (p *PNode) IsHole() bool {
	return p != nil && p.Hole != ""
}

// slotNames returns the pattern node's slot names in sorted order.
func (p *PNode) slotNames() []string {
	if len(p.Slots) == 0 {
		return nil
	}
	names := make([]string, 0, len(p.Slots))
	for name := range p.Slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FromNode builds the literal pattern that matches exactly the given
// tree (ignoring spans). Used by the generalizer to keep unchanged
// context as literal structure.
func FromNode(n *ast.Node) *PNode {
	if n == nil {
		return nil
	}
	out := &PNode{Kind: n.Kind, Text: n.Text}
	if len(n.Slots) > 0 {
		out.Slots = make(map[string]*PNode, len(n.Slots))
		for _, name := range n.SlotNames() {
			out.Slots[name] = FromNode(n.Slots[name])
		}
	}
	for _, c := range n.Children {
		out.Children = append(out.Children, FromNode(c))
	}
	return out
}

// Compiled is a validated pattern ready for matching.
//
// Thread Safety: immutable, safe for concurrent use.
type Compiled struct {
	root  *PNode
	holes []string
}

// Holes returns the distinct hole names of the pattern, sorted.
func (c *Compiled) Holes() []string {
	out := make([]string, len(c.holes))
	copy(out, c.holes)
	return out
}

// Root returns the pattern tree. Callers must not mutate it.
func (c *Compiled) Root() *PNode {
	return c.root
}

// Compile validates a pattern and prepares it for matching.
//
// Description:
//
//	Compile rejects patterns that could never match anything useful:
//	nil or empty patterns, a bare unconstrained hole at the root (which
//	would match every node), and any literal node whose kind name is
//	not resolvable. Validation happens here, never at match time.
//
// Outputs:
//   - *Compiled: the compiled pattern.
//   - error: wraps ErrInvalidPattern on any validation failure.
func Compile(p *PNode) (*Compiled, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	if p.IsHole() && p.Kind == "" {
		return nil, fmt.Errorf("%w: root is an unconstrained hole", ErrInvalidPattern)
	}

	holes := map[string]struct{}{}
	if err := validate(p, holes); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(holes))
	for name := range holes {
		names = append(names, name)
	}
	sort.Strings(names)

	return &Compiled{root: p, holes: names}, nil
}

func validate(p *PNode, holes map[string]struct{}) error {
	if p == nil {
		return fmt.Errorf("%w: nil pattern node", ErrInvalidPattern)
	}

	if p.IsHole() {
		holes[p.Hole] = struct{}{}
		if p.Kind != "" && !ast.KnownKind(p.Kind) {
			return fmt.Errorf("%w: unknown kind %q", ErrInvalidPattern, p.Kind)
		}
		if len(p.Slots) > 0 || len(p.Children) > 0 {
			return fmt.Errorf("%w: hole %q must not have sub-patterns", ErrInvalidPattern, p.Hole)
		}
		return nil
	}

	if p.Kind == "" {
		return fmt.Errorf("%w: literal node without kind", ErrInvalidPattern)
	}
	if !ast.KnownKind(p.Kind) {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidPattern, p.Kind)
	}

	for _, name := range p.slotNames() {
		if err := validate(p.Slots[name], holes); err != nil {
			return err
		}
	}
	for _, c := range p.Children {
		if err := validate(c, holes); err != nil {
			return err
		}
	}
	return nil
}

// Equal reports structural equality of two patterns.
func Equal(a, b *PNode) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Hole != b.Hole || a.Kind != b.Kind || a.Text != b.Text {
		return false
	}
	if len(a.Slots) != len(b.Slots) || len(a.Children) != len(b.Children) {
		return false
	}
	for _, name := range a.slotNames() {
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
