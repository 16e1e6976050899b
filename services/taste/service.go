// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package taste provides the taste HTTP service for style-rule checking
// and rule learning.
//
// The service exposes endpoints for:
//   - Checking source files against the enabled rule set
//   - Learning new rules from before/after diffs
//   - Listing, inspecting and disabling rules
package taste

import (
	"fmt"
	"log/slog"

	"github.com/alexdong/high-taste/services/taste/ast"
	"github.com/alexdong/high-taste/services/taste/check"
	"github.com/alexdong/high-taste/services/taste/learn"
	"github.com/alexdong/high-taste/services/taste/rules"
)

// StoreBackend selects how rules are persisted.
type StoreBackend string

const (
	// BackendYAML keeps one YAML file per rule under RulesDir.
	BackendYAML StoreBackend = "yaml"

	// BackendBadger keeps rules in an embedded BadgerDB under RulesDir.
	BackendBadger StoreBackend = "badger"

	// BackendMemory keeps rules in memory only. Useful for testing.
	BackendMemory StoreBackend = "memory"
)

// ServiceConfig configures the taste service.
type ServiceConfig struct {
	// RulesDir is the root directory of the persisted rule set.
	// Ignored for the memory backend.
	RulesDir string

	// Backend selects the persistence backend.
	// Default: yaml
	Backend StoreBackend

	// Parallelism bounds concurrent file checking.
	// Default: 8
	Parallelism int

	// Logger is the structured logger for the service.
	// Default: slog.Default()
	Logger *slog.Logger
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		RulesDir:    "rules",
		Backend:     BackendYAML,
		Parallelism: 8,
	}
}

// Service is the taste service.
//
// Thread Safety: safe for concurrent use. The rule store applies a
// single-writer/multiple-reader discipline; checking and learning can
// run concurrently.
type Service struct {
	config   ServiceConfig
	logger   *slog.Logger
	registry *ast.ParserRegistry
	store    *rules.Store
	persist  rules.Persistence
	checker  *check.Checker
	learner  *learn.Learner

	badger *rules.BadgerStore
}

// NewService creates a taste service and loads the persisted rule set.
//
// Outputs:
//   - *Service: the ready service. Call Close when done.
//   - error: non-nil when the persisted rule set is unreadable or
//     corrupt; a corrupt store aborts startup rather than serving a
//     partial rule set.
func NewService(config ServiceConfig) (*Service, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	svc := &Service{
		config:   config,
		logger:   logger,
		registry: ast.DefaultRegistry(),
		store:    rules.NewStore(),
	}

	switch config.Backend {
	case BackendBadger:
		bs, err := rules.OpenBadgerStore(rules.DefaultBadgerConfig(config.RulesDir))
		if err != nil {
			return nil, err
		}
		svc.badger = bs
		svc.persist = bs
	case BackendMemory:
		// No persistence.
	case BackendYAML, "":
		svc.persist = rules.NewYAMLStore(config.RulesDir)
	default:
		return nil, fmt.Errorf("unknown store backend %q", config.Backend)
	}

	if svc.persist != nil {
		if err := svc.store.Load(svc.persist); err != nil {
			svc.Close()
			return nil, fmt.Errorf("loading rule set: %w", err)
		}
	}

	checkOpts := []check.Option{check.WithLogger(logger)}
	if config.Parallelism > 0 {
		checkOpts = append(checkOpts, check.WithParallelism(config.Parallelism))
	}
	svc.checker = check.NewChecker(svc.store, svc.registry, checkOpts...)

	learnOpts := []learn.Option{learn.WithLogger(logger)}
	if svc.persist != nil {
		learnOpts = append(learnOpts, learn.WithPersistence(svc.persist))
	}
	svc.learner = learn.NewLearner(svc.store, svc.registry, learnOpts...)

	logger.Info("taste service ready",
		"backend", config.Backend,
		"rules", svc.store.Len(),
		"languages", svc.registry.Languages(),
	)
	return svc, nil
}

// Store returns the rule store.
func (s *Service) Store() *rules.Store { return s.store }

// Checker returns the rule checker.
func (s *Service) Checker() *check.Checker { return s.checker }

// Learner returns the rule learner.
func (s *Service) Learner() *learn.Learner { return s.learner }

// Registry returns the parser registry.
func (s *Service) Registry() *ast.ParserRegistry { return s.registry }

// Persistence returns the configured persistence, nil for the memory
// backend.
func (s *Service) Persistence() rules.Persistence { return s.persist }

// Close releases any resources held by the persistence backend.
func (s *Service) Close() error {
	if s.badger != nil {
		return s.badger.Close()
	}
	return nil
}
