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
	"errors"
	"fmt"
)

// Sentinel errors for the ast package.
var (
	// ErrFileTooLarge indicates the input exceeds the parser's size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidContent indicates the input is not valid UTF-8.
	ErrInvalidContent = errors.New("invalid content")

	// ErrUnsupportedLanguage indicates no parser is registered for the file.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// SyntaxError reports malformed source with a location.
//
// Parsers return *SyntaxError instead of panicking or swallowing the
// problem; callers record it and continue with other inputs.
//
// Thread Safety: Immutable after creation.
type SyntaxError struct {
	// Path is the file identifier the error was found in.
	Path string

	// Line is the 1-based line of the first offending token.
	Line int

	// Col is the 0-based column of the first offending token.
	Col int

	// Msg describes the problem.
	Msg string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Col, e.Msg)
}
