// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package learn turns observed before/after diffs into new taste rules.
//
// The learner parses each diff into structure trees, groups diffs that
// abstract to compatible patterns, generalizes each group into a
// candidate rule, and checks the candidate against the existing rule
// set for duplicates and conflicts before creating anything.
package learn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexdong/high-taste/services/taste/ast"
	"github.com/alexdong/high-taste/services/taste/generalize"
	"github.com/alexdong/high-taste/services/taste/pattern"
	"github.com/alexdong/high-taste/services/taste/rules"
)

const defaultCategory = "style"

// Learner orchestrates rule acquisition over a shared rule store.
//
// Thread Safety: safe for concurrent use; the store serializes writes.
type Learner struct {
	store    *rules.Store
	registry *ast.ParserRegistry
	persist  rules.Persistence
	logger   *slog.Logger
}

// Option configures a Learner.
type Option func(*Learner)

// WithPersistence makes the learner write created rules through to the
// given persistence.
func WithPersistence(p rules.Persistence) Option {
	return func(l *Learner) { l.persist = p }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Learner) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLearner creates a Learner over the given store and parser registry.
func NewLearner(store *rules.Store, registry *ast.ParserRegistry, opts ...Option) *Learner {
	l := &Learner{
		store:    store,
		registry: registry,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// AcquireRequest is one rule acquisition call.
type AcquireRequest struct {
	// Category decides the ID prefix of any created rule. Defaults to
	// "style".
	Category string `json:"category,omitempty"`

	// Title overrides the templated title of a created rule.
	Title string `json:"title,omitempty"`

	// Diffs are the observed before/after pairs.
	Diffs []DiffInput `json:"diffs"`
}

// Skipped records one diff that could not be used.
type Skipped struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Conflict reports an existing rule that matches the same code shape
// but prescribes a different fix.
type Conflict struct {
	RuleID string `json:"rule_id"`
	Reason string `json:"reason"`
}

// GroupResult is the outcome for one maximal group of diffs that
// generalize together. Exactly one of Created, CoveredBy or Reason is
// meaningful; Conflicts accompanies Reason when conflicts blocked
// creation.
type GroupResult struct {
	// Created is the new rule, when one was created.
	Created *rules.Rule `json:"created,omitempty"`

	// CoveredBy names the existing rule that already matches every
	// before-tree in the group.
	CoveredBy string `json:"covered_by,omitempty"`

	// Conflicts lists existing rules that disagree with the candidate
	// about the fix. Conflicts are reported, never auto-resolved.
	Conflicts []Conflict `json:"conflicts,omitempty"`

	// Candidate is the inferred pattern, present whenever
	// generalization succeeded.
	Candidate *generalize.Candidate `json:"candidate,omitempty"`

	// Examples is the number of diffs in the group.
	Examples int `json:"examples"`

	// Reason explains why no rule was created.
	Reason string `json:"reason,omitempty"`
}

// AcquireResult is the full outcome of one Acquire call.
type AcquireResult struct {
	Groups  []GroupResult `json:"groups"`
	Skipped []Skipped     `json:"skipped,omitempty"`
}

// parsedDiff couples a diff with its structure trees.
type parsedDiff struct {
	input DiffInput
	pair  generalize.ExamplePair
}

// Acquire learns rules from the given diffs.
//
// Description:
//
//	Parses each diff into before/after structure trees (a parse failure
//	skips that diff, never the batch), groups diffs whose abstractions
//	are pairwise compatible, generalizes each group, and for each
//	candidate either reports the existing rule that already covers it,
//	reports conflicting rules, or creates and persists a new rule with
//	the next ID in its category and default severity suggestion.
//
// Outputs:
//   - *AcquireResult: per-group outcomes plus skipped diffs.
//   - error: non-nil only for fatal conditions (store failure,
//     cancellation); per-diff problems are reported in the result.
func (l *Learner) Acquire(ctx context.Context, req AcquireRequest) (*AcquireResult, error) {
	start := time.Now()
	ctx, span := startAcquireSpan(ctx, len(req.Diffs))
	defer span.End()

	category := req.Category
	if category == "" {
		category = defaultCategory
	}

	result := &AcquireResult{}
	parsed := l.parseDiffs(ctx, req.Diffs, result)
	groups := groupCompatible(parsed)

	for _, group := range groups {
		gr, err := l.acquireGroup(ctx, category, req.Title, group)
		if err != nil {
			return nil, err
		}
		result.Groups = append(result.Groups, *gr)
	}

	setAcquireSpanResult(span, len(result.Groups), len(result.Skipped))
	recordAcquire(ctx, result, time.Since(start))
	l.logger.InfoContext(ctx, "acquire complete",
		"diffs", len(req.Diffs),
		"groups", len(result.Groups),
		"skipped", len(result.Skipped),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// parseDiffs parses every diff, recording failures as skips.
func (l *Learner) parseDiffs(ctx context.Context, diffs []DiffInput, result *AcquireResult) []parsedDiff {
	var out []parsedDiff
	for _, d := range diffs {
		parser, ok := l.registry.GetByPath(d.Path)
		if !ok {
			result.Skipped = append(result.Skipped, Skipped{
				Path:   d.Path,
				Reason: ast.ErrUnsupportedLanguage.Error(),
			})
			continue
		}
		before, err := parser.Parse(ctx, []byte(d.Before), d.Path)
		if err != nil {
			result.Skipped = append(result.Skipped, Skipped{Path: d.Path, Reason: fmt.Sprintf("before side: %v", err)})
			continue
		}
		after, err := parser.Parse(ctx, []byte(d.After), d.Path)
		if err != nil {
			result.Skipped = append(result.Skipped, Skipped{Path: d.Path, Reason: fmt.Sprintf("after side: %v", err)})
			continue
		}
		out = append(out, parsedDiff{
			input: d,
			pair:  generalize.ExamplePair{Before: before, After: after},
		})
	}
	return out
}

// groupCompatible greedily groups diffs whose single-example
// abstractions still share a structural skeleton. Each diff joins the
// first compatible group, so grouping is deterministic in input order.
func groupCompatible(parsed []parsedDiff) [][]parsedDiff {
	var groups [][]parsedDiff
	for _, p := range parsed {
		placed := false
		for i, g := range groups {
			if generalize.Compatible(g[0].pair, p.pair) {
				groups[i] = append(groups[i], p)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, []parsedDiff{p})
		}
	}
	return groups
}

// acquireGroup generalizes one group and decides created / covered /
// conflict for it.
func (l *Learner) acquireGroup(ctx context.Context, category, title string, group []parsedDiff) (*GroupResult, error) {
	gr := &GroupResult{Examples: len(group)}

	pairs := make([]generalize.ExamplePair, len(group))
	for i, p := range group {
		pairs[i] = p.pair
	}

	cand, err := generalize.Generalize(ctx, pairs)
	if err != nil {
		if errors.Is(err, generalize.ErrUngeneralizable) {
			gr.Reason = err.Error()
			return gr, nil
		}
		return nil, err
	}
	gr.Candidate = cand

	if cand.Confidence < 1.0 {
		gr.Reason = fmt.Sprintf("confidence %.2f below promotion threshold", cand.Confidence)
		return gr, nil
	}

	covered, conflicts, err := l.checkExisting(ctx, cand, pairs)
	if err != nil {
		return nil, err
	}
	if covered != "" {
		gr.CoveredBy = covered
		return gr, nil
	}
	if len(conflicts) > 0 {
		gr.Conflicts = conflicts
		gr.Reason = "conflicting rules prescribe a different fix for the same shape"
		return gr, nil
	}

	rule, err := l.createRule(category, title, cand, group)
	if err != nil {
		return nil, err
	}
	gr.Created = rule
	return gr, nil
}

// checkExisting looks for an enabled rule whose pattern matches every
// before-tree of the group. A matching rule with the same fix covers
// the candidate; a matching rule with a different fix is a conflict.
// Enabled rules are ordered by ID, so the covering rule reported is
// always the one with the lowest ID.
func (l *Learner) checkExisting(ctx context.Context, cand *generalize.Candidate, pairs []generalize.ExamplePair) (string, []Conflict, error) {
	var conflicts []Conflict
	for _, r := range l.store.Enabled() {
		compiled, err := pattern.Compile(r.Pattern)
		if err != nil {
			return "", nil, fmt.Errorf("%w: rule %s does not compile", rules.ErrCorruptStore, r.ID)
		}

		matchesAll := true
		for _, p := range pairs {
			ms, err := compiled.Match(ctx, p.Before)
			if err != nil {
				return "", nil, err
			}
			if len(ms) == 0 {
				matchesAll = false
				break
			}
		}
		if !matchesAll {
			continue
		}

		if pattern.Equal(r.Fix, cand.Fix) {
			return r.ID, nil, nil
		}
		conflicts = append(conflicts, Conflict{
			RuleID: r.ID,
			Reason: "matches the same before shape with a different fix",
		})
	}
	return "", conflicts, nil
}

// createRule synthesizes, stores and persists a new rule.
func (l *Learner) createRule(category, title string, cand *generalize.Candidate, group []parsedDiff) (*rules.Rule, error) {
	if title == "" {
		title = fmt.Sprintf("Prefer the revised %s structure", cand.Pattern.Kind)
	}

	examples := make([]rules.Example, 0, len(group))
	for i, p := range group {
		examples = append(examples, rules.Example{
			Scenario: fmt.Sprintf("Observed change %d in %s", i+1, p.input.Path),
			Before:   p.input.Before,
			After:    p.input.After,
		})
	}

	rule := &rules.Rule{
		ID:       l.store.NextID(category),
		Category: category,
		Title:    title,
		Severity: rules.SeveritySuggestion,
		Pattern:  cand.Pattern,
		Fix:      cand.Fix,
		Description: fmt.Sprintf(
			"Learned from %d example pair(s). Code matching the recorded structure should be rewritten to the fixed shape.",
			len(group),
		),
		Examples: examples,
	}

	stored, err := l.store.Put(rule)
	if err != nil {
		return nil, fmt.Errorf("storing learned rule: %w", err)
	}
	if l.persist != nil {
		if err := l.persist.Save(stored); err != nil {
			return nil, fmt.Errorf("persisting learned rule %s: %w", stored.ID, err)
		}
	}

	l.logger.Info("rule created", "rule_id", stored.ID, "category", category, "examples", len(group))
	return stored, nil
}
