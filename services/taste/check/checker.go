// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package check

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alexdong/high-taste/services/taste/ast"
	"github.com/alexdong/high-taste/services/taste/pattern"
	"github.com/alexdong/high-taste/services/taste/rules"
)

const defaultParallelism = 8

// Checker matches the enabled rule set against source files.
//
// Thread Safety: safe for concurrent use. Compiled patterns are cached
// per rule version behind a RWMutex.
type Checker struct {
	store    *rules.Store
	registry *ast.ParserRegistry
	logger   *slog.Logger
	limit    int

	mu       sync.RWMutex
	compiled map[string]*compiledRule
}

type compiledRule struct {
	version  int
	compiled *pattern.Compiled
}

// Option configures a Checker.
type Option func(*Checker)

// WithParallelism bounds the number of files checked concurrently.
func WithParallelism(n int) Option {
	return func(c *Checker) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewChecker creates a Checker over the given rule store and parser
// registry.
func NewChecker(store *rules.Store, registry *ast.ParserRegistry, opts ...Option) *Checker {
	c := &Checker{
		store:    store,
		registry: registry,
		logger:   slog.Default(),
		limit:    defaultParallelism,
		compiled: make(map[string]*compiledRule),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Check runs every enabled rule against every supported file and
// returns the violations sorted by path, start line, start column,
// then rule ID. The same inputs always yield the same output.
//
// Files whose language has no registered parser are skipped. Files
// that fail to parse contribute a single PARSE violation instead of
// failing the whole run.
func (c *Checker) Check(ctx context.Context, files []FileInput) ([]Violation, error) {
	start := time.Now()
	ctx, span := startCheckSpan(ctx, len(files))
	defer span.End()

	enabled := c.store.Enabled()

	perFile := make([][]Violation, len(files))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.limit)

	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			vs, err := c.checkFile(gCtx, f, enabled)
			if err != nil {
				return err
			}
			perFile[i] = vs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		setCheckSpanResult(span, 0, false)
		recordCheck(ctx, len(files), 0, time.Since(start), false)
		return nil, err
	}

	var out []Violation
	for _, vs := range perFile {
		out = append(out, vs...)
	}
	sortViolations(out)

	setCheckSpanResult(span, len(out), true)
	recordCheck(ctx, len(files), len(out), time.Since(start), true)
	c.logger.DebugContext(ctx, "check complete",
		"files", len(files),
		"rules", len(enabled),
		"violations", len(out),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// checkFile parses one file and applies every enabled rule to it.
func (c *Checker) checkFile(ctx context.Context, f FileInput, enabled []*rules.Rule) ([]Violation, error) {
	parser, ok := c.registry.GetByPath(f.Path)
	if !ok {
		c.logger.DebugContext(ctx, "skipping unsupported file", "path", f.Path)
		return nil, nil
	}

	root, err := parser.Parse(ctx, f.Content, f.Path)
	if err != nil {
		var syntaxErr *ast.SyntaxError
		if errors.As(err, &syntaxErr) {
			span := ast.Span{
				StartLine: syntaxErr.Line,
				StartCol:  syntaxErr.Col,
				EndLine:   syntaxErr.Line,
				EndCol:    syntaxErr.Col,
			}
			if !overlapsChanged(span, f.ChangedLines) {
				return nil, nil
			}
			return []Violation{{
				RuleID:   ParseRuleID,
				Severity: rules.SeverityError,
				Path:     f.Path,
				Span:     span,
				Message:  syntaxErr.Msg,
			}}, nil
		}
		return nil, fmt.Errorf("parsing %s: %w", f.Path, err)
	}

	var out []Violation
	for _, rule := range enabled {
		compiled, err := c.compiledFor(rule)
		if err != nil {
			// Enabled rules were validated on the way into the store;
			// a compile failure here means the store was mutated
			// unsafely, so surface it.
			return nil, fmt.Errorf("compiling rule %s: %w", rule.ID, err)
		}

		matches, err := compiled.Match(ctx, root)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if !overlapsChanged(m.Span, f.ChangedLines) {
				continue
			}
			out = append(out, Violation{
				RuleID:   rule.ID,
				Severity: rule.Severity,
				Path:     f.Path,
				Span:     m.Span,
				Message:  rule.Title,
			})
		}
	}
	return out, nil
}

// compiledFor returns the cached compiled pattern for a rule,
// recompiling when the pattern version changed.
func (c *Checker) compiledFor(r *rules.Rule) (*pattern.Compiled, error) {
	c.mu.RLock()
	entry, ok := c.compiled[r.ID]
	c.mu.RUnlock()
	if ok && entry.version == r.PatternVersion {
		return entry.compiled, nil
	}

	compiled, err := pattern.Compile(r.Pattern)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.compiled[r.ID] = &compiledRule{version: r.PatternVersion, compiled: compiled}
	c.mu.Unlock()
	return compiled, nil
}

// sortViolations orders by path, then start line, then start column,
// then rule ID so output is stable across runs.
func sortViolations(vs []Violation) {
	sort.Slice(vs, func(i, j int) bool {
		a, b := vs[i], vs[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Span.StartLine != b.Span.StartLine {
			return a.Span.StartLine < b.Span.StartLine
		}
		if a.Span.StartCol != b.Span.StartCol {
			return a.Span.StartCol < b.Span.StartCol
		}
		return a.RuleID < b.RuleID
	})
}
