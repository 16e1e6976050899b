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
	"fmt"

	"github.com/alexdong/high-taste/services/taste/ast"
)

// Binding maps hole names to the subtrees they bound.
type Binding map[string]*ast.Node

// Match is one occurrence of a pattern in a tree.
type Match struct {
	// Node is the tree node the pattern's root matched.
	Node *ast.Node

	// Span is the source range of the matched node.
	Span ast.Span

	// Bindings holds the subtree bound by each hole.
	Bindings Binding
}

// goal is one pending obligation of a partial match. Either a node pair
// (p against n) or a child-sequence alignment (ps against ns).
type goal struct {
	p *PNode
	n *ast.Node

	ps []*PNode
	ns []*ast.Node
}

// state is a partial match on the backtracking worklist.
type state struct {
	goals []goal
	binds Binding
}

func (s state) withGoals(extra ...goal) state {
	goals := make([]goal, 0, len(s.goals)+len(extra))
	goals = append(goals, s.goals...)
	goals = append(goals, extra...)
	return state{goals: goals, binds: s.binds}
}

func cloneBinding(b Binding) Binding {
	out := make(Binding, len(b)+1)
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Match finds all outermost occurrences of the pattern in the tree.
//
// Description:
//
//	The pattern is attempted at every node in pre-order, so it need not
//	know its absolute position. When a node matches, its descendants are
//	not attempted for the same pattern: only the outermost match per
//	root path is reported. Disjoint matches elsewhere are all reported.
//
//	Matching uses an explicit worklist of partial bindings instead of
//	deep native recursion, which bounds stack depth on large trees and
//	allows cancellation between nodes.
//
// Inputs:
//   - ctx: checked between node attempts; a long scan can be aborted.
//   - root: tree to scan. Never mutated.
//
// Outputs:
//   - []Match: outermost matches in pre-order, deterministic.
//   - error: only the context error on cancellation.
func (c *Compiled) Match(ctx context.Context, root *ast.Node) ([]Match, error) {
	if root == nil {
		return nil, nil
	}

	var out []Match

	// Pre-order scan with an explicit stack. Children are pushed in
	// reverse so pop order is document order.
	stack := []*ast.Node{root}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("match canceled: %w", err)
		}

		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if binds, ok := c.MatchAt(n); ok {
			out = append(out, Match{Node: n, Span: n.Span, Bindings: binds})
			continue // suppress nested matches of the same pattern
		}

		children := orderedSubnodes(n)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	return out, nil
}

// orderedSubnodes returns slot sub-nodes (sorted by slot name) followed
// by ordered children. This is the canonical visit order.
func orderedSubnodes(n *ast.Node) []*ast.Node {
	var out []*ast.Node
	for _, name := range n.SlotNames() {
		out = append(out, n.Slots[name])
	}
	out = append(out, n.Children...)
	return out
}

// MatchAt attempts the pattern with its root anchored at n.
//
// Returns the hole bindings of the first successful alignment, or false
// when no alignment satisfies the pattern. The exploration order of
// alignments is deterministic (leftmost-first), so bindings are
// reproducible across runs.
func (c *Compiled) MatchAt(n *ast.Node) (Binding, bool) {
	worklist := []state{{
		goals: []goal{{p: c.root, n: n}},
		binds: Binding{},
	}}

	for len(worklist) > 0 {
		st := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		if len(st.goals) == 0 {
			return st.binds, true
		}

		g := st.goals[len(st.goals)-1]
		rest := state{goals: st.goals[:len(st.goals)-1], binds: st.binds}

		if g.p != nil {
			worklist = expandPair(worklist, rest, g)
			continue
		}
		worklist = expandSequence(worklist, rest, g)
	}

	return nil, false
}

// expandPair pushes the successor states of a node-pair goal.
func expandPair(worklist []state, rest state, g goal) []state {
	p, n := g.p, g.n
	if n == nil {
		return worklist
	}

	if p.IsHole() {
		if p.Kind != "" && p.Kind != n.Kind {
			return worklist
		}
		if bound, ok := rest.binds[p.Hole]; ok {
			// Repeated hole: consistency constraint.
			if !ast.Equal(bound, n) {
				return worklist
			}
			return append(worklist, rest)
		}
		binds := cloneBinding(rest.binds)
		binds[p.Hole] = n
		return append(worklist, state{goals: rest.goals, binds: binds})
	}

	if p.Kind != n.Kind {
		return worklist
	}
	if p.Text != "" && p.Text != n.Text {
		return worklist
	}

	var extra []goal
	// Push slots in reverse-sorted order so they are resolved in sorted
	// order (goals are a LIFO stack).
	names := p.slotNames()
	for i := len(names) - 1; i >= 0; i-- {
		sub, ok := n.Slots[names[i]]
		if !ok {
			return worklist
		}
		extra = append(extra, goal{p: p.Slots[names[i]], n: sub})
	}
	if len(p.Children) > 0 {
		extra = append([]goal{{ps: p.Children, ns: n.Children}}, extra...)
	}

	return append(worklist, rest.withGoals(extra...))
}

// expandSequence pushes the successor states of a child-alignment goal.
// At each step the first pattern child either matches the first tree
// child or the tree child is skipped; the match branch is pushed last so
// it is explored first (leftmost alignment preferred).
func expandSequence(worklist []state, rest state, g goal) []state {
	if len(g.ps) == 0 {
		return append(worklist, rest)
	}
	if len(g.ps) > len(g.ns) {
		return worklist
	}

	skip := rest.withGoals(goal{ps: g.ps, ns: g.ns[1:]})
	take := rest.withGoals(
		goal{ps: g.ps[1:], ns: g.ns[1:]},
		goal{p: g.ps[0], n: g.ns[0]},
	)

	return append(worklist, skip, take)
}
