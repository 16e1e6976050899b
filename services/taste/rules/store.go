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
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Filter narrows List results. Zero values mean "any".
type Filter struct {
	Category string
	Severity Severity
	Status   Status
}

// Store holds canonical rule definitions in memory.
//
// # Description
//
// Store enforces ID uniqueness and pattern compilability on Put. It does
// no file or network I/O; durable storage is driven by the caller via a
// Persistence implementation.
//
// # Thread Safety
//
// Store is safe for concurrent use. Writes (Put, Disable) hold exclusive
// access for the duration of their validation-and-insert; concurrent
// reads observe either the pre- or post-write state atomically, never a
// partially written rule.
type Store struct {
	mu    sync.RWMutex
	rules map[string]*Rule
	ids   []string // sorted, kept in insertion-independent order
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		rules: make(map[string]*Rule),
	}
}

// Get returns the rule with the given ID.
func (s *Store) Get(id string) (*Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}
	return r, nil
}

// List returns rules matching the filter, ordered by ascending ID.
func (s *Store) List(f Filter) []*Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Rule, 0, len(s.ids))
	for _, id := range s.ids {
		r := s.rules[id]
		if f.Category != "" && r.Category != f.Category {
			continue
		}
		if f.Severity != "" && r.Severity != f.Severity {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Enabled returns all enabled rules ordered by ascending ID.
func (s *Store) Enabled() []*Rule {
	return s.List(Filter{Status: StatusEnabled})
}

// Put inserts a new rule.
//
// Description:
//
//	Put validates the rule (ID present, severity known, pattern
//	compiles) and inserts it if the ID is absent. An existing ID fails
//	with ErrDuplicateID and leaves the stored rule untouched. A missing
//	status defaults to enabled.
//
// Outputs:
//   - *Rule: the stored rule.
//   - error: ErrDuplicateID, ErrInvalidRule or a pattern compile error.
func (s *Store) Put(r *Rule) (*Rule, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	stored := r.Clone()
	if stored.Status == "" {
		stored.Status = StatusEnabled
	}
	if stored.PatternVersion == 0 {
		stored.PatternVersion = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[stored.ID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, stored.ID)
	}

	s.rules[stored.ID] = stored
	s.ids = append(s.ids, stored.ID)
	sort.Strings(s.ids)

	return stored, nil
}

// Update replaces an existing rule in place, bumping its pattern
// version. The ID must already exist and cannot change.
func (s *Store) Update(r *Rule) (*Rule, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.rules[r.ID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, r.ID)
	}

	stored := r.Clone()
	if stored.Status == "" {
		stored.Status = old.Status
	}
	stored.PatternVersion = old.PatternVersion + 1
	s.rules[stored.ID] = stored

	return stored, nil
}

// Disable sets the rule's status flag, preserving history. The ID is
// never reused afterwards.
func (s *Store) Disable(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rules[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id)
	}

	disabled := r.Clone()
	disabled.Status = StatusDisabled
	s.rules[id] = disabled

	return nil
}

// NextID allocates the next free ID in a category.
//
// IDs of disabled rules still count as taken, so numbers are never
// reused after a disable.
func (s *Store) NextID(category string) string {
	prefix := CategoryPrefix(category)

	s.mu.RLock()
	defer s.mu.RUnlock()

	max := 0
	for _, id := range s.ids {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		if n, err := strconv.Atoi(id[len(prefix):]); err == nil && n > max {
			max = n
		}
	}

	return fmt.Sprintf("%s%03d", prefix, max+1)
}

// Len returns the number of stored rules.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rules)
}

// Persistence is durable storage backing a Store.
//
// The core only needs load-all and save; everything else (layout,
// transactions) is the implementation's business. A load failure caused
// by unreadable state must wrap ErrCorruptStore — it aborts the whole
// load rather than skipping entries.
type Persistence interface {
	// LoadAll reads every persisted rule.
	LoadAll() ([]*Rule, error)

	// Save durably writes one rule, replacing any previous version.
	Save(r *Rule) error
}

// Load fills the store from a Persistence, validating each rule.
//
// Invalid persisted rules are a corruption signal: the load aborts with
// an error wrapping ErrCorruptStore rather than silently dropping rules.
func (s *Store) Load(p Persistence) error {
	loaded, err := p.LoadAll()
	if err != nil {
		return err
	}

	for _, r := range loaded {
		if _, err := s.Put(r); err != nil {
			return fmt.Errorf("%w: rule %s: %v", ErrCorruptStore, r.ID, err)
		}
	}
	return nil
}
