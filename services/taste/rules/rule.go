// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package rules holds canonical taste rule definitions and their store.
//
// A Rule pairs a stable identity with a structural pattern, a fix
// template and before/after examples. Rules are created by the learner
// or by manual authoring; they are updated in place but never silently
// deleted — disabling sets a status flag and preserves history.
package rules

import (
	"fmt"

	"github.com/alexdong/high-taste/services/taste/pattern"
)

// Severity classifies how strongly a rule violation should be surfaced.
type Severity string

const (
	// SeverityError marks violations that must be fixed.
	SeverityError Severity = "error"

	// SeverityWarning marks violations that should be fixed.
	SeverityWarning Severity = "warning"

	// SeveritySuggestion marks stylistic improvements. Default for
	// learned rules.
	SeveritySuggestion Severity = "suggestion"
)

// Valid reports whether s is a recognized severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityError, SeverityWarning, SeveritySuggestion:
		return true
	}
	return false
}

// Status tracks a rule's lifecycle.
type Status string

const (
	// StatusEnabled marks rules applied by the checker.
	StatusEnabled Status = "enabled"

	// StatusDisabled marks rules kept for history but never applied.
	// A disabled rule's ID is never reused.
	StatusDisabled Status = "disabled"
)

// categoryPrefixes maps rule categories to their ID prefixes.
var categoryPrefixes = map[string]string{
	"boundaries":   "BND",
	"concurrency":  "CON",
	"control_flow": "CTRL",
	"functions":    "FUNC",
	"naming":       "NAME",
	"performance":  "PERF",
	"refactoring":  "REF",
	"structure":    "STRUCT",
	"style":        "STYLE",
	"testing":      "TEST",
}

// CategoryPrefix returns the ID prefix for a category ("MISC" for
// unrecognized categories).
func CategoryPrefix(category string) string {
	if prefix, ok := categoryPrefixes[category]; ok {
		return prefix
	}
	return "MISC"
}

// FormatID builds a rule ID from a category and a sequence number,
// e.g. ("functions", 3) -> "FUNC003".
func FormatID(category string, number int) string {
	return fmt.Sprintf("%s%03d", CategoryPrefix(category), number)
}

// Example is one before/after code pair attached to a rule.
type Example struct {
	// Scenario describes the situation the example illustrates.
	Scenario string `json:"scenario" yaml:"scenario"`

	// Before is the code fragment violating the rule.
	Before string `json:"before" yaml:"before"`

	// After is the corrected fragment.
	After string `json:"after" yaml:"after"`
}

// Rule is one canonical taste rule.
//
// Invariants:
//   - ID is immutable once assigned and never reused after disabling.
//   - Pattern must compile (satisfiable) before the rule enters a store.
//
// Thread Safety: treated as immutable once stored; mutations go through
// Store methods which replace the stored value.
type Rule struct {
	// ID is the stable identity, category prefix plus number (FUNC003).
	ID string `json:"id" yaml:"id"`

	// Category is the rule's topic area (functions, naming, ...).
	Category string `json:"category" yaml:"category"`

	// Title is a one-line summary used as the violation message.
	Title string `json:"title" yaml:"title"`

	// Severity is error, warning or suggestion.
	Severity Severity `json:"severity" yaml:"severity"`

	// Status is enabled or disabled.
	Status Status `json:"status" yaml:"status"`

	// Pattern is the structural template the checker matches.
	Pattern *pattern.PNode `json:"pattern" yaml:"pattern"`

	// Fix is the structural template describing the preferred shape,
	// sharing hole names with Pattern.
	Fix *pattern.PNode `json:"fix,omitempty" yaml:"fix,omitempty"`

	// PatternVersion counts in-place pattern refinements. The ID stays
	// stable across versions.
	PatternVersion int `json:"pattern_version" yaml:"pattern_version"`

	// Description explains the rule for humans.
	Description string `json:"description" yaml:"description"`

	// Problems lists what goes wrong when the rule is violated.
	Problems []string `json:"problems,omitempty" yaml:"problems,omitempty"`

	// Solutions lists how to follow the rule.
	Solutions []string `json:"solutions,omitempty" yaml:"solutions,omitempty"`

	// Examples is the ordered list of before/after pairs.
	Examples []Example `json:"examples,omitempty" yaml:"examples,omitempty"`
}

// Validate checks rule invariants and compiles the pattern.
//
// Returns nil when the rule may enter a store; otherwise an error
// wrapping ErrInvalidRule or pattern.ErrInvalidPattern.
func (r *Rule) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil rule", ErrInvalidRule)
	}
	if r.ID == "" {
		return fmt.Errorf("%w: empty ID", ErrInvalidRule)
	}
	if r.Category == "" {
		return fmt.Errorf("%w: empty category", ErrInvalidRule)
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidRule, r.Severity)
	}
	if _, err := pattern.Compile(r.Pattern); err != nil {
		return fmt.Errorf("rule %s: %w", r.ID, err)
	}
	return nil
}

// Clone returns a shallow copy with copied slices. Pattern trees are
// shared; they are immutable by convention.
func (r *Rule) Clone() *Rule {
	out := *r
	out.Problems = append([]string(nil), r.Problems...)
	out.Solutions = append([]string(nil), r.Solutions...)
	out.Examples = append([]Example(nil), r.Examples...)
	return &out
}
