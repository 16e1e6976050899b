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

import "errors"

// Sentinel errors for the rules package.
var (
	// ErrDuplicateID indicates a Put with an ID that already exists.
	// The caller must choose a new ID; the store keeps the first rule.
	ErrDuplicateID = errors.New("duplicate rule ID")

	// ErrRuleNotFound indicates a lookup for an unknown rule ID.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrInvalidRule indicates a rule failing validation (missing ID,
	// unknown severity, uncompilable pattern).
	ErrInvalidRule = errors.New("invalid rule")

	// ErrCorruptStore indicates unreadable persisted state. Fatal: the
	// whole load aborts, unlike per-rule validation failures.
	ErrCorruptStore = errors.New("corrupt rule store")
)
