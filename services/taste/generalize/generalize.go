// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package generalize infers structural patterns and fix templates from
// before/after example pairs.
//
// # Description
//
// Given one or more (before-tree, after-tree) pairs believed to show
// the same stylistic transformation, the generalizer diffs each pair,
// abstracts every changed subtree into a hole, intersects the
// per-example patterns, and scores the result against the examples it
// came from. Generalization operates purely on structure: a pair whose
// trees are structurally identical cannot be generalized.
//
// # Thread Safety
//
// All functions are pure over immutable trees and safe for concurrent
// use.
package generalize

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexdong/high-taste/services/taste/ast"
	"github.com/alexdong/high-taste/services/taste/pattern"
)

// ErrUngeneralizable indicates the example pairs share no common
// structural skeleton, or an edit with no structural effect.
var ErrUngeneralizable = errors.New("ungeneralizable")

// ExamplePair is one before/after structure-tree pair.
type ExamplePair struct {
	Before *ast.Node
	After  *ast.Node
}

// Candidate is an inferred pattern with its fix template.
type Candidate struct {
	// Pattern matches the shape the examples moved away from.
	Pattern *pattern.PNode `json:"pattern"`

	// Fix is the template for the shape the examples moved to. Holes
	// shared with Pattern carry matched content into the fix.
	Fix *pattern.PNode `json:"fix"`

	// Examples is the number of pairs the candidate was inferred from.
	Examples int `json:"examples"`

	// Confidence is the fraction of example before-trees the pattern
	// matches. Only 1.0 candidates may be promoted to rules.
	Confidence float64 `json:"confidence"`
}

// Generalize infers a candidate pattern from the given example pairs.
//
// Description:
//
//	Each pair is abstracted independently (changed subtrees to holes,
//	unchanged context literal), then the per-example patterns and fix
//	templates are intersected pairwise. The final pattern must compile
//	and must keep some literal structure at the root.
//
// Outputs:
//   - *Candidate: the inferred pattern, fix template and confidence.
//   - error: wraps ErrUngeneralizable when no common skeleton exists,
//     or the context error on cancellation.
func Generalize(ctx context.Context, pairs []ExamplePair) (*Candidate, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("%w: no example pairs", ErrUngeneralizable)
	}

	namer := newHoleNamer()
	abs := make([]*abstraction, len(pairs))
	for i, p := range pairs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		a, err := abstractPair(p.Before, p.After, namer)
		if err != nil {
			return nil, err
		}
		abs[i] = a
	}

	pat, fix := abs[0].pattern, abs[0].fix
	for _, a := range abs[1:] {
		pat = meet(pat, a.pattern, namer)
		fix = meet(fix, a.fix, namer)
	}
	if pat.IsHole() {
		return nil, fmt.Errorf("%w: no common structural skeleton", ErrUngeneralizable)
	}

	compiled, err := pattern.Compile(pat)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUngeneralizable, err)
	}

	matched := 0
	for _, p := range pairs {
		ms, err := compiled.Match(ctx, p.Before)
		if err != nil {
			return nil, err
		}
		if len(ms) > 0 {
			matched++
		}
	}

	return &Candidate{
		Pattern:    pat,
		Fix:        fix,
		Examples:   len(pairs),
		Confidence: float64(matched) / float64(len(pairs)),
	}, nil
}

// Compatible reports whether two example pairs abstract to patterns
// that still share a structural skeleton. The learner uses this to
// group diffs that belong to the same transformation.
func Compatible(a, b ExamplePair) bool {
	namer := newHoleNamer()
	aa, err := abstractPair(a.Before, a.After, namer)
	if err != nil {
		return false
	}
	ab, err := abstractPair(b.Before, b.After, namer)
	if err != nil {
		return false
	}

	met := meet(aa.pattern, ab.pattern, namer)
	if met.IsHole() {
		return false
	}
	_, err = pattern.Compile(met)
	return err == nil
}
