// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package generalize

import (
	"fmt"
	"sort"

	"github.com/alexdong/high-taste/services/taste/ast"
	"github.com/alexdong/high-taste/services/taste/pattern"
)

// holeNamer hands out stable hole names. The same divergence key always
// receives the same name, which is how a change repeated at several
// positions collapses into one repeated hole.
type holeNamer struct {
	names map[string]string
	next  int
}

func newHoleNamer() *holeNamer {
	return &holeNamer{names: make(map[string]string)}
}

func (h *holeNamer) name(key string) string {
	if n, ok := h.names[key]; ok {
		return n
	}
	n := fmt.Sprintf("h%d", h.next)
	h.next++
	h.names[key] = n
	return n
}

// abstraction is the result of abstracting one before/after pair.
type abstraction struct {
	// pattern mirrors the before tree with every changed subtree
	// replaced by a hole.
	pattern *pattern.PNode

	// fix mirrors the after tree; subtrees equal to a hole's before
	// binding are back-substituted with that hole.
	fix *pattern.PNode

	// changed counts the replacements found by the diff. Zero means the
	// edit had no structural effect.
	changed int

	// bindings maps hole name to the before subtree it abstracted.
	bindings map[string]*ast.Node

	// dirty marks pattern nodes whose subtree carries a change.
	dirty map[*pattern.PNode]bool

	// blocked marks pattern nodes with an insertion at their own level;
	// narrowing must not descend past them or the fix loses the
	// inserted siblings.
	blocked map[*pattern.PNode]bool

	// afterOf maps a pattern node to the after subtree it was diffed
	// against, so narrowing can re-root the fix template in lockstep.
	afterOf map[*pattern.PNode]*ast.Node
}

// abstractPair diffs one before/after tree pair and abstracts every
// changed subtree into a hole.
//
// Alignment is by kind and slot: two nodes of the same kind are diffed
// structurally; a kind or leaf-text divergence replaces the whole
// subtree with a hole. Children are aligned on equal subtrees first,
// then pairwise by kind between the anchors. Before-children with no
// counterpart (code the fix deletes) stay literal; after-children with
// no counterpart (code the fix introduces) stay literal in the fix.
func abstractPair(before, after *ast.Node, namer *holeNamer) (*abstraction, error) {
	if before == nil || after == nil {
		return nil, fmt.Errorf("%w: missing tree", ErrUngeneralizable)
	}
	if before.Kind != after.Kind {
		return nil, fmt.Errorf("%w: root kinds %s and %s differ", ErrUngeneralizable, before.Kind, after.Kind)
	}

	a := &abstraction{
		bindings: make(map[string]*ast.Node),
		dirty:    make(map[*pattern.PNode]bool),
		blocked:  make(map[*pattern.PNode]bool),
		afterOf:  make(map[*pattern.PNode]*ast.Node),
	}
	a.pattern = a.abstract(before, after, namer)
	if a.changed == 0 {
		return nil, fmt.Errorf("%w: edit has no structural effect", ErrUngeneralizable)
	}

	root, afterRoot := a.narrow(a.pattern, after)
	a.pattern = root
	a.fix = a.substitute(afterRoot)
	return a, nil
}

// narrow re-roots the pattern at the lowest node that still carries
// every change, descending only through unchanged module and block
// wrappers. A rule learned from a whole file then matches the offending
// construct wherever it occurs, with the construct's own span, instead
// of matching once at the file root.
func (a *abstraction) narrow(root *pattern.PNode, after *ast.Node) (*pattern.PNode, *ast.Node) {
	cur, curAfter := root, after
	for !cur.IsHole() && !a.blocked[cur] &&
		(cur.Kind == ast.KindModule || cur.Kind == ast.KindBlock) {

		sub := a.singleDirtySub(cur)
		if sub == nil || sub.IsHole() {
			break
		}
		subAfter, ok := a.afterOf[sub]
		if !ok {
			break
		}
		cur, curAfter = sub, subAfter
	}
	return cur, curAfter
}

// singleDirtySub returns the only changed sub-pattern of p, or nil when
// the changes spread over several positions.
func (a *abstraction) singleDirtySub(p *pattern.PNode) *pattern.PNode {
	var found *pattern.PNode
	count := 0
	for _, sub := range p.Slots {
		if a.dirty[sub] {
			found = sub
			count++
		}
	}
	for _, sub := range p.Children {
		if a.dirty[sub] {
			found = sub
			count++
		}
	}
	if count != 1 {
		return nil
	}
	return found
}

// hole records one replacement and returns the hole pattern node.
func (a *abstraction) hole(before, after *ast.Node, namer *holeNamer) *pattern.PNode {
	key := before.Fingerprint() + "=>" + after.Fingerprint()
	name := namer.name(key)
	a.changed++
	a.bindings[name] = before

	h := &pattern.PNode{Hole: name}
	if before.Kind == after.Kind {
		h.Kind = before.Kind
	}
	a.dirty[h] = true
	a.afterOf[h] = after
	return h
}

// abstract walks before and after in lockstep and builds the pattern.
func (a *abstraction) abstract(before, after *ast.Node, namer *holeNamer) *pattern.PNode {
	if ast.Equal(before, after) {
		return pattern.FromNode(before)
	}
	if before.Kind != after.Kind || before.Text != after.Text {
		return a.hole(before, after, namer)
	}
	if !sameSlotNames(before, after) {
		return a.hole(before, after, namer)
	}

	out := &pattern.PNode{Kind: before.Kind, Text: before.Text}
	if len(before.Slots) > 0 {
		out.Slots = make(map[string]*pattern.PNode, len(before.Slots))
		for _, name := range before.SlotNames() {
			out.Slots[name] = a.abstract(before.Slots[name], after.Slots[name], namer)
		}
	}

	pairs := alignChildren(before.Children, after.Children)
	for _, p := range pairs {
		switch {
		case p.after == nil:
			// Deleted by the fix; the deleted shape is part of what the
			// pattern must recognize, so it stays literal.
			del := pattern.FromNode(p.before)
			a.dirty[del] = true
			out.Children = append(out.Children, del)
		case p.before == nil:
			// Introduced by the fix; nothing to match on the before
			// side, but narrowing may not descend past this level.
			a.blocked[out] = true
		default:
			out.Children = append(out.Children, a.abstract(p.before, p.after, namer))
		}
	}

	a.afterOf[out] = after
	for _, sub := range out.Slots {
		if a.dirty[sub] {
			a.dirty[out] = true
		}
	}
	for _, sub := range out.Children {
		if a.dirty[sub] {
			a.dirty[out] = true
		}
	}
	if a.blocked[out] {
		a.dirty[out] = true
	}
	return out
}

// substitute converts the after tree into the fix template,
// back-substituting holes for subtrees the fix preserved verbatim.
func (a *abstraction) substitute(after *ast.Node) *pattern.PNode {
	for _, name := range a.holeNames() {
		bound := a.bindings[name]
		if ast.Equal(after, bound) {
			h := &pattern.PNode{Hole: name}
			if bound.Kind != "" {
				h.Kind = bound.Kind
			}
			return h
		}
	}

	out := &pattern.PNode{Kind: after.Kind, Text: after.Text}
	if len(after.Slots) > 0 {
		out.Slots = make(map[string]*pattern.PNode, len(after.Slots))
		for _, name := range after.SlotNames() {
			out.Slots[name] = a.substitute(after.Slots[name])
		}
	}
	for _, c := range after.Children {
		out.Children = append(out.Children, a.substitute(c))
	}
	return out
}

// holeNames returns the bound hole names in sorted order so that
// back-substitution is deterministic.
func (a *abstraction) holeNames() []string {
	names := make([]string, 0, len(a.bindings))
	for name := range a.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sameSlotNames(a, b *ast.Node) bool {
	if len(a.Slots) != len(b.Slots) {
		return false
	}
	for name := range a.Slots {
		if _, ok := b.Slots[name]; !ok {
			return false
		}
	}
	return true
}

// childPair is one aligned position: before-only (deletion), after-only
// (insertion), or both (kept or replaced).
type childPair struct {
	before *ast.Node
	after  *ast.Node
}

// alignChildren aligns two child sequences. Structurally equal subtrees
// anchor the alignment (longest common subsequence under ast.Equal);
// between anchors, children pair up in order when their kinds agree,
// and everything left over is a deletion or insertion.
func alignChildren(before, after []*ast.Node) []childPair {
	anchors := equalSubsequence(before, after)

	var out []childPair
	bi, ai := 0, 0
	for _, anchor := range anchors {
		out = append(out, pairByKind(before[bi:anchor.bi], after[ai:anchor.ai])...)
		out = append(out, childPair{before: before[anchor.bi], after: after[anchor.ai]})
		bi, ai = anchor.bi+1, anchor.ai+1
	}
	out = append(out, pairByKind(before[bi:], after[ai:])...)
	return out
}

// pairByKind pairs unanchored children in order when kinds match,
// emitting deletions and insertions for the rest.
func pairByKind(before, after []*ast.Node) []childPair {
	var out []childPair
	ai := 0
	for _, b := range before {
		matched := false
		for j := ai; j < len(after); j++ {
			if after[j].Kind == b.Kind {
				for _, skipped := range after[ai:j] {
					out = append(out, childPair{after: skipped})
				}
				out = append(out, childPair{before: b, after: after[j]})
				ai = j + 1
				matched = true
				break
			}
		}
		if !matched {
			out = append(out, childPair{before: b})
		}
	}
	for _, rest := range after[ai:] {
		out = append(out, childPair{after: rest})
	}
	return out
}

type anchor struct {
	bi, ai int
}

// equalSubsequence computes the longest common subsequence of the two
// child lists under structural equality.
func equalSubsequence(before, after []*ast.Node) []anchor {
	n, m := len(before), len(after)
	if n == 0 || m == 0 {
		return nil
	}

	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if ast.Equal(before[i], after[j]) {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var out []anchor
	i, j := 0, 0
	for i < n && j < m {
		switch {
		case ast.Equal(before[i], after[j]):
			out = append(out, anchor{bi: i, ai: j})
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			i++
		default:
			j++
		}
	}
	return out
}
