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
	"sort"
	"strconv"
	"strings"

	"github.com/alexdong/high-taste/services/taste/pattern"
)

// meet intersects two abstracted patterns. A pattern element survives
// only where both sides agree on kind, text and shape; every
// disagreement widens into a hole. Corresponding disagreements receive
// the same hole name, so a divergence repeated at several positions
// stays a repeated hole.
func meet(a, b *pattern.PNode, namer *holeNamer) *pattern.PNode {
	if pattern.Equal(a, b) {
		return clonePattern(a)
	}
	if a.IsHole() || b.IsHole() ||
		a.Kind != b.Kind || a.Text != b.Text ||
		!samePatternSlots(a, b) || len(a.Children) != len(b.Children) {
		return meetHole(a, b, namer)
	}

	out := &pattern.PNode{Kind: a.Kind, Text: a.Text}
	if len(a.Slots) > 0 {
		out.Slots = make(map[string]*pattern.PNode, len(a.Slots))
		for _, name := range patternSlotNames(a) {
			out.Slots[name] = meet(a.Slots[name], b.Slots[name], namer)
		}
	}
	for i := range a.Children {
		out.Children = append(out.Children, meet(a.Children[i], b.Children[i], namer))
	}
	return out
}

// meetHole widens a disagreement into a hole, keyed on both sides so
// the same disagreement always yields the same name.
func meetHole(a, b *pattern.PNode, namer *holeNamer) *pattern.PNode {
	key := serializePattern(a) + "~" + serializePattern(b)
	h := &pattern.PNode{Hole: namer.name(key)}
	if a.Kind == b.Kind {
		h.Kind = a.Kind
	}
	return h
}

func samePatternSlots(a, b *pattern.PNode) bool {
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

func patternSlotNames(p *pattern.PNode) []string {
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

func clonePattern(p *pattern.PNode) *pattern.PNode {
	if p == nil {
		return nil
	}
	out := &pattern.PNode{Hole: p.Hole, Kind: p.Kind, Text: p.Text}
	if len(p.Slots) > 0 {
		out.Slots = make(map[string]*pattern.PNode, len(p.Slots))
		for name, sub := range p.Slots {
			out.Slots[name] = clonePattern(sub)
		}
	}
	for _, c := range p.Children {
		out.Children = append(out.Children, clonePattern(c))
	}
	return out
}

// serializePattern returns a stable textual encoding of a pattern node,
// used only as a map key for hole naming.
func serializePattern(p *pattern.PNode) string {
	var b strings.Builder
	serializeInto(p, &b)
	return b.String()
}

func serializeInto(p *pattern.PNode, b *strings.Builder) {
	if p == nil {
		b.WriteString("_")
		return
	}
	if p.IsHole() {
		b.WriteString("?")
		b.WriteString(p.Hole)
	}
	b.WriteString(string(p.Kind))
	if p.Text != "" {
		b.WriteString("=")
		b.WriteString(strconv.Quote(p.Text))
	}
	if len(p.Slots) > 0 {
		b.WriteString("{")
		for i, name := range patternSlotNames(p) {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(name)
			b.WriteString(":")
			serializeInto(p.Slots[name], b)
		}
		b.WriteString("}")
	}
	if len(p.Children) > 0 {
		b.WriteString("[")
		for i, c := range p.Children {
			if i > 0 {
				b.WriteString(",")
			}
			serializeInto(c, b)
		}
		b.WriteString("]")
	}
}
