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
	"os"
	"path/filepath"
	"testing"

	"github.com/alexdong/high-taste/services/taste/pattern"
)

func TestYAMLStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewYAMLStore(dir)

	rule := makeRule("FUNC003", "functions")
	rule.Status = StatusEnabled
	rule.PatternVersion = 1
	rule.Examples = []Example{{Scenario: "direct open", Before: "open(f)", After: "with open(f):"}}

	if err := store.Save(rule); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	path := filepath.Join(dir, "functions", "003-func003.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected rule file at %s: %v", path, err)
	}

	loaded, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("loaded %d rules, want 1", len(loaded))
	}

	got := loaded[0]
	if got.ID != "FUNC003" || got.Category != "functions" {
		t.Errorf("loaded rule %s/%s, want FUNC003/functions", got.ID, got.Category)
	}
	if !pattern.Equal(got.Pattern, rule.Pattern) {
		t.Error("loaded pattern differs from saved pattern")
	}
	if len(got.Examples) != 1 || got.Examples[0].Before != "open(f)" {
		t.Errorf("loaded examples = %+v", got.Examples)
	}
}

func TestYAMLStoreMissingDir(t *testing.T) {
	store := NewYAMLStore(filepath.Join(t.TempDir(), "absent"))

	loaded, err := store.LoadAll()
	if err != nil {
		t.Fatalf("LoadAll on missing dir failed: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("loaded %d rules from missing dir, want 0", len(loaded))
	}
}

func TestYAMLStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	categoryDir := filepath.Join(dir, "functions")
	if err := os.MkdirAll(categoryDir, 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(categoryDir, "001-func001.yaml"), []byte("{not yaml: ["), 0640); err != nil {
		t.Fatal(err)
	}

	_, err := NewYAMLStore(dir).LoadAll()
	if !errors.Is(err, ErrCorruptStore) {
		t.Errorf("LoadAll error = %v, want ErrCorruptStore", err)
	}
}

func TestYAMLStoreIgnoresStrayFiles(t *testing.T) {
	dir := t.TempDir()
	categoryDir := filepath.Join(dir, "functions")
	if err := os.MkdirAll(categoryDir, 0750); err != nil {
		t.Fatal(err)
	}
	// Neither a category dir nor a NNN-*.yaml file.
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("notes"), 0640); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(categoryDir, "notes.txt"), []byte("scratch"), 0640); err != nil {
		t.Fatal(err)
	}

	loaded, err := NewYAMLStore(dir).LoadAll()
	if err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}
	if len(loaded) != 0 {
		t.Errorf("loaded %d rules, want 0", len(loaded))
	}
}

func TestRuleFileName(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"FUNC003", "003-func003.yaml"},
		{"STYLE012", "012-style012.yaml"},
		{"MISC001", "001-misc001.yaml"},
	}

	for _, tt := range tests {
		if got := ruleFile(tt.id); got != tt.want {
			t.Errorf("ruleFile(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}
