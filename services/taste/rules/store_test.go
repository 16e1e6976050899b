// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rules

import (
	"errors"
	"fmt"
	"testing"

	"github.com/alexdong/high-taste/services/taste/ast"
	"github.com/alexdong/high-taste/services/taste/pattern"
)

func makeRule(id, category string) *Rule {
	return &Rule{
		ID:       id,
		Category: category,
		Title:    "Prefer x over y",
		Severity: SeveritySuggestion,
		Pattern: &pattern.PNode{Kind: ast.KindCall, Slots: map[string]*pattern.PNode{
			"func": {Kind: ast.KindName, Text: "open"},
		}},
	}
}

func TestFormatID(t *testing.T) {
	tests := []struct {
		category string
		number   int
		want     string
	}{
		{"functions", 3, "FUNC003"},
		{"naming", 12, "NAME012"},
		{"control_flow", 1, "CTRL001"},
		{"unknown_topic", 7, "MISC007"},
	}

	for _, tt := range tests {
		if got := FormatID(tt.category, tt.number); got != tt.want {
			t.Errorf("FormatID(%q, %d) = %q, want %q", tt.category, tt.number, got, tt.want)
		}
	}
}

func TestStorePut(t *testing.T) {
	store := NewStore()

	stored, err := store.Put(makeRule("FUNC001", "functions"))
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if stored.Status != StatusEnabled {
		t.Errorf("status = %q, want enabled by default", stored.Status)
	}
	if stored.PatternVersion != 1 {
		t.Errorf("pattern version = %d, want 1", stored.PatternVersion)
	}

	if _, err := store.Put(makeRule("FUNC001", "functions")); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("duplicate Put error = %v, want ErrDuplicateID", err)
	}
	if store.Len() != 1 {
		t.Errorf("Len = %d, want 1", store.Len())
	}
}

func TestStorePutValidation(t *testing.T) {
	store := NewStore()

	tests := []struct {
		name string
		rule *Rule
	}{
		{"empty ID", &Rule{Category: "functions", Severity: SeveritySuggestion, Pattern: &pattern.PNode{Kind: ast.KindCall}}},
		{"empty category", &Rule{ID: "FUNC001", Severity: SeveritySuggestion, Pattern: &pattern.PNode{Kind: ast.KindCall}}},
		{"bad severity", &Rule{ID: "FUNC001", Category: "functions", Severity: "fatal", Pattern: &pattern.PNode{Kind: ast.KindCall}}},
		{"nil pattern", &Rule{ID: "FUNC001", Category: "functions", Severity: SeveritySuggestion}},
		{"uncompilable pattern", &Rule{ID: "FUNC001", Category: "functions", Severity: SeveritySuggestion, Pattern: &pattern.PNode{Hole: "x"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Put(tt.rule); err == nil {
				t.Error("Put accepted an invalid rule")
			}
		})
	}
}

func TestStoreUpdateBumpsVersion(t *testing.T) {
	store := NewStore()

	if _, err := store.Put(makeRule("FUNC001", "functions")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	revised := makeRule("FUNC001", "functions")
	revised.Title = "Prefer the revised shape"

	updated, err := store.Update(revised)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.PatternVersion != 2 {
		t.Errorf("pattern version = %d, want 2", updated.PatternVersion)
	}
	if updated.Title != "Prefer the revised shape" {
		t.Errorf("title = %q, not replaced", updated.Title)
	}

	if _, err := store.Update(makeRule("FUNC099", "functions")); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Update of missing rule error = %v, want ErrRuleNotFound", err)
	}
}

func TestStoreDisable(t *testing.T) {
	store := NewStore()

	if _, err := store.Put(makeRule("FUNC001", "functions")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Disable("FUNC001"); err != nil {
		t.Fatalf("Disable failed: %v", err)
	}

	r, err := store.Get("FUNC001")
	if err != nil {
		t.Fatalf("Get after Disable failed: %v", err)
	}
	if r.Status != StatusDisabled {
		t.Errorf("status = %q, want disabled", r.Status)
	}
	if len(store.Enabled()) != 0 {
		t.Error("disabled rule still listed as enabled")
	}

	// The number stays taken.
	if got := store.NextID("functions"); got != "FUNC002" {
		t.Errorf("NextID after disable = %q, want FUNC002", got)
	}

	if err := store.Disable("FUNC099"); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Disable of missing rule error = %v, want ErrRuleNotFound", err)
	}
}

func TestStoreNextID(t *testing.T) {
	store := NewStore()

	if got := store.NextID("functions"); got != "FUNC001" {
		t.Errorf("NextID on empty store = %q, want FUNC001", got)
	}

	for _, n := range []int{1, 2, 5} {
		if _, err := store.Put(makeRule(FormatID("functions", n), "functions")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}
	if _, err := store.Put(makeRule("NAME001", "naming")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	if got := store.NextID("functions"); got != "FUNC006" {
		t.Errorf("NextID = %q, want FUNC006 (max existing + 1)", got)
	}
	if got := store.NextID("naming"); got != "NAME002" {
		t.Errorf("NextID = %q, want NAME002", got)
	}
}

func TestStoreListFilter(t *testing.T) {
	store := NewStore()

	warn := makeRule("FUNC002", "functions")
	warn.Severity = SeverityWarning

	for _, r := range []*Rule{makeRule("NAME001", "naming"), warn, makeRule("FUNC001", "functions")} {
		if _, err := store.Put(r); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	all := store.List(Filter{})
	if len(all) != 3 {
		t.Fatalf("List returned %d rules, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Errorf("List not in ascending ID order: %q before %q", all[i-1].ID, all[i].ID)
		}
	}

	funcs := store.List(Filter{Category: "functions"})
	if len(funcs) != 2 {
		t.Errorf("category filter returned %d rules, want 2", len(funcs))
	}

	warnings := store.List(Filter{Severity: SeverityWarning})
	if len(warnings) != 1 || warnings[0].ID != "FUNC002" {
		t.Errorf("severity filter returned %v, want only FUNC002", warnings)
	}
}

// brokenPersistence simulates unreadable durable state.
type brokenPersistence struct{}

func (brokenPersistence) LoadAll() ([]*Rule, error) {
	return nil, fmt.Errorf("%w: simulated", ErrCorruptStore)
}

func (brokenPersistence) Save(*Rule) error { return nil }

// listPersistence returns a fixed rule list.
type listPersistence struct {
	rules []*Rule
}

func (p listPersistence) LoadAll() ([]*Rule, error) { return p.rules, nil }
func (listPersistence) Save(*Rule) error            { return nil }

func TestStoreLoad(t *testing.T) {
	store := NewStore()

	good := listPersistence{rules: []*Rule{makeRule("FUNC001", "functions")}}
	if err := store.Load(good); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("Len after Load = %d, want 1", store.Len())
	}

	if err := NewStore().Load(brokenPersistence{}); !errors.Is(err, ErrCorruptStore) {
		t.Errorf("Load error = %v, want ErrCorruptStore", err)
	}

	invalid := listPersistence{rules: []*Rule{{ID: "FUNC001"}}}
	if err := NewStore().Load(invalid); !errors.Is(err, ErrCorruptStore) {
		t.Errorf("Load of invalid rule error = %v, want ErrCorruptStore", err)
	}
}
