// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
)

// Parser converts raw source text of one language into a structure tree.
//
// Implementations must be safe for concurrent use and must report syntax
// errors as *SyntaxError with a location rather than panicking.
type Parser interface {
	// Parse converts content into a normalized structure tree.
	Parse(ctx context.Context, content []byte, path string) (*Node, error)

	// Language returns the canonical lowercase language name.
	Language() string

	// Extensions returns the file extensions this parser handles,
	// including the leading dot.
	Extensions() []string
}

// ParserRegistry maps languages and file extensions to parsers.
//
// Thread Safety: safe for concurrent use.
type ParserRegistry struct {
	mu sync.RWMutex

	// byLanguage maps language names to parser instances.
	byLanguage map[string]Parser

	// byExtension maps file extensions to parser instances.
	byExtension map[string]Parser
}

// NewParserRegistry creates a new empty ParserRegistry.
func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{
		byLanguage:  make(map[string]Parser),
		byExtension: make(map[string]Parser),
	}
}

// DefaultRegistry returns a registry with all built-in parsers registered.
func DefaultRegistry() *ParserRegistry {
	r := NewParserRegistry()
	r.Register(NewPythonParser())
	r.Register(NewGoParser())
	return r
}

// Register adds a parser under its language name and all its extensions.
// Existing registrations for the same language or extension are replaced.
func (r *ParserRegistry) Register(parser Parser) {
	if parser == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byLanguage[parser.Language()] = parser

	for _, ext := range parser.Extensions() {
		r.byExtension[ext] = parser
	}
}

// GetByLanguage returns the parser for the given language name.
func (r *ParserRegistry) GetByLanguage(language string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byLanguage[strings.ToLower(language)]
	return p, ok
}

// GetByPath returns the parser responsible for the given file path,
// selected by extension.
func (r *ParserRegistry) GetByPath(path string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ext := strings.ToLower(filepath.Ext(path))
	p, ok := r.byExtension[ext]
	return p, ok
}

// Languages returns the registered language names.
func (r *ParserRegistry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byLanguage))
	for lang := range r.byLanguage {
		out = append(out, lang)
	}
	return out
}
