// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package check runs enabled taste rules against source files and
// reports structural violations.
package check

import (
	"github.com/alexdong/high-taste/services/taste/ast"
	"github.com/alexdong/high-taste/services/taste/rules"
)

// ParseRuleID is the pseudo rule reported when a file fails to parse.
// Parse failures surface as violations so a broken file never passes
// silently.
const ParseRuleID = "PARSE"

// LineRange is a 1-based inclusive span of lines within one file.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// FileInput is one file to check.
type FileInput struct {
	// Path is used for language detection and for reporting.
	Path string `json:"path"`

	// Content is the full file body, not just the changed part.
	Content []byte `json:"content"`

	// ChangedLines restricts reported violations to those whose span
	// overlaps at least one range. Nil means check the whole file.
	ChangedLines []LineRange `json:"changed_lines,omitempty"`
}

// Violation is one rule match in one file.
type Violation struct {
	RuleID   string         `json:"rule_id"`
	Severity rules.Severity `json:"severity"`
	Path     string         `json:"path"`
	Span     ast.Span       `json:"span"`
	Message  string         `json:"message"`
}

// overlapsChanged reports whether span touches any of the ranges.
// An empty range list means everything is in scope.
func overlapsChanged(span ast.Span, ranges []LineRange) bool {
	if len(ranges) == 0 {
		return true
	}
	for _, r := range ranges {
		if span.OverlapsLines(r.Start, r.End) {
			return true
		}
	}
	return false
}
