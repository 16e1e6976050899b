// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package taste

import (
	"github.com/alexdong/high-taste/services/taste/check"
	"github.com/alexdong/high-taste/services/taste/learn"
	"github.com/alexdong/high-taste/services/taste/rules"
)

// CheckFile is one file in a check request.
type CheckFile struct {
	// Path identifies the file and selects the parser.
	Path string `json:"path" binding:"required"`

	// Content is the full file body.
	Content string `json:"content" binding:"required"`

	// ChangedLines restricts reported violations to spans overlapping
	// these 1-based inclusive ranges. Empty checks the whole file.
	ChangedLines []check.LineRange `json:"changed_lines,omitempty"`
}

// CheckRequest is the body of POST /v1/taste/check.
type CheckRequest struct {
	Files []CheckFile `json:"files" binding:"required"`
}

// CheckResponse is the response of POST /v1/taste/check.
type CheckResponse struct {
	// Violations is sorted by file, then span start, then rule ID.
	Violations []check.Violation `json:"violations"`

	// Files is the number of files checked.
	Files int `json:"files"`

	// SummaryByRule counts violations per rule ID.
	SummaryByRule map[string]int `json:"summary_by_rule"`
}

// AcquireRequest is the body of POST /v1/taste/acquire.
//
// Exactly one of Diff and Pairs must be provided: Diff is a unified
// diff covering one or more files; Pairs lists explicit before/after
// fragments.
type AcquireRequest struct {
	// Category decides the ID prefix of created rules. Default: style.
	Category string `json:"category,omitempty"`

	// Title overrides the templated rule title.
	Title string `json:"title,omitempty"`

	// Diff is a unified diff to learn from.
	Diff string `json:"diff,omitempty"`

	// Pairs are explicit before/after source pairs.
	Pairs []learn.DiffInput `json:"pairs,omitempty"`
}

// AcquireResponse is the response of POST /v1/taste/acquire.
type AcquireResponse struct {
	Groups  []learn.GroupResult `json:"groups"`
	Skipped []learn.Skipped     `json:"skipped,omitempty"`
}

// ListRulesResponse is the response of GET /v1/taste/rules.
type ListRulesResponse struct {
	Rules []*rules.Rule `json:"rules"`
	Count int           `json:"count"`
}

// HealthResponse is the response of GET /v1/taste/health.
type HealthResponse struct {
	Status    string   `json:"status"`
	Rules     int      `json:"rules"`
	Languages []string `json:"languages"`
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code (optional).
	Code string `json:"code,omitempty"`

	// Details provides additional error context (optional).
	Details string `json:"details,omitempty"`
}
