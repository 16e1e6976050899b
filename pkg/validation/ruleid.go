// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation provides input validation utilities for user-provided
// identifiers.
//
// This package contains validators for inputs that end up in file paths or
// storage keys (rule IDs, rule categories). Using these validators prevents
// path traversal and malformed storage keys.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// ruleIDPattern matches valid rule identifiers: an uppercase category
// prefix followed by a zero-padded sequence number, e.g. FUNC003.
var ruleIDPattern = regexp.MustCompile(`^[A-Z]{2,8}[0-9]{3,}$`)

// categoryPattern matches valid rule categories: lowercase words joined
// by underscores, e.g. control_flow.
var categoryPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)

// ValidateRuleID validates a rule identifier before it is used as a
// storage key or file name component.
//
// Valid IDs:
//   - 2-8 uppercase letters (the category prefix)
//   - followed by a sequence number of at least 3 digits
//
// Returns an error if the ID is invalid.
//
// Example:
//
//	if err := validation.ValidateRuleID(id); err != nil {
//	    return nil, fmt.Errorf("invalid rule id: %w", err)
//	}
func ValidateRuleID(id string) error {
	if id == "" {
		return fmt.Errorf("rule id cannot be empty")
	}

	if !ruleIDPattern.MatchString(id) {
		return fmt.Errorf("invalid rule id format: %q (must be an uppercase prefix followed by a 3+ digit number)", id)
	}

	return nil
}

// ValidateCategory validates a rule category before it is used as a
// directory name.
func ValidateCategory(category string) error {
	if category == "" {
		return fmt.Errorf("category cannot be empty")
	}

	if !categoryPattern.MatchString(category) {
		return fmt.Errorf("invalid category format: %q (must be lowercase words joined by underscores)", category)
	}

	return nil
}

// SanitizeRuleID normalizes and validates a rule identifier.
// Returns the uppercase ID if valid, or an error if invalid.
//
// Use this when accepting IDs from request paths or CLI arguments:
//
//	safeID, err := validation.SanitizeRuleID(userInput)
//	if err != nil {
//	    return err
//	}
//	// safeID is uppercase and validated
func SanitizeRuleID(id string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(id))
	if err := ValidateRuleID(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
