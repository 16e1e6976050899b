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
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ruleFileName matches persisted rule files: NNN-<id>.yaml.
var ruleFileName = regexp.MustCompile(`^(\d+)-.*\.yaml$`)

// YAMLStore persists rules as one YAML file per rule, grouped by
// category: <dir>/<category>/NNN-<id>.yaml.
//
// Thread Safety: not safe for concurrent use; the owning Store
// serializes writes.
type YAMLStore struct {
	dir string
}

// NewYAMLStore creates a YAML persistence rooted at dir. The directory
// is created lazily on the first Save.
func NewYAMLStore(dir string) *YAMLStore {
	return &YAMLStore{dir: dir}
}

// LoadAll reads every rule file under the root directory.
//
// Unreadable or unparsable files wrap ErrCorruptStore: persisted state
// is expected to be intact, so corruption aborts the whole load.
func (y *YAMLStore) LoadAll() ([]*Rule, error) {
	entries, err := os.ReadDir(y.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrCorruptStore, y.dir, err)
	}

	var out []*Rule
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		categoryDir := filepath.Join(y.dir, entry.Name())
		files, err := os.ReadDir(categoryDir)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrCorruptStore, categoryDir, err)
		}

		names := make([]string, 0, len(files))
		for _, f := range files {
			if !f.IsDir() && ruleFileName.MatchString(f.Name()) {
				names = append(names, f.Name())
			}
		}
		sort.Strings(names)

		for _, name := range names {
			path := filepath.Join(categoryDir, name)
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("%w: reading %s: %v", ErrCorruptStore, path, err)
			}

			var r Rule
			if err := yaml.Unmarshal(data, &r); err != nil {
				return nil, fmt.Errorf("%w: parsing %s: %v", ErrCorruptStore, path, err)
			}
			if r.Category == "" {
				r.Category = entry.Name()
			}
			out = append(out, &r)
		}
	}

	return out, nil
}

// Save writes one rule to <dir>/<category>/NNN-<id>.yaml, replacing any
// previous file for the same rule.
func (y *YAMLStore) Save(r *Rule) error {
	categoryDir := filepath.Join(y.dir, r.Category)
	if err := os.MkdirAll(categoryDir, 0750); err != nil {
		return fmt.Errorf("creating %s: %w", categoryDir, err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling rule %s: %w", r.ID, err)
	}

	path := filepath.Join(categoryDir, ruleFile(r.ID))
	if err := os.WriteFile(path, data, 0640); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// ruleFile derives the file name from a rule ID: FUNC003 -> 003-func003.yaml.
func ruleFile(id string) string {
	digits := strings.TrimLeftFunc(id, func(r rune) bool {
		return r < '0' || r > '9'
	})
	if digits == "" {
		digits = "000"
	}
	return fmt.Sprintf("%s-%s.yaml", digits, strings.ToLower(id))
}
