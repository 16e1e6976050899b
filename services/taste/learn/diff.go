// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package learn

import (
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// DiffInput is one before/after source pair, same file assumed.
type DiffInput struct {
	// Path is used for language detection.
	Path string `json:"path"`

	// Before is the source fragment prior to the change.
	Before string `json:"before"`

	// After is the source fragment after the change.
	After string `json:"after"`
}

// ParseUnifiedDiff converts a unified diff into per-file before/after
// source pairs.
//
// Description:
//
//	Each file diff contributes one pair: the before side is the hunk
//	context plus removed lines, the after side the context plus added
//	lines. Fragments are dedented so an indented hunk still parses as
//	a standalone snippet.
//
// Outputs:
//   - []DiffInput: one entry per file in the diff.
//   - error: non-nil when the diff text is not valid unified format.
func ParseUnifiedDiff(text string) ([]DiffInput, error) {
	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(text)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("parsing unified diff: %w", err)
	}

	out := make([]DiffInput, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		var before, after []string
		for _, hunk := range fd.Hunks {
			for _, line := range strings.Split(string(hunk.Body), "\n") {
				if line == "" {
					continue
				}
				body := line[1:]
				switch line[0] {
				case ' ':
					before = append(before, body)
					after = append(after, body)
				case '-':
					before = append(before, body)
				case '+':
					after = append(after, body)
				}
			}
		}
		out = append(out, DiffInput{
			Path:   diffPath(fd),
			Before: dedent(before),
			After:  dedent(after),
		})
	}
	return out, nil
}

// diffPath picks the reported path for a file diff, preferring the new
// name and stripping the conventional a/ and b/ prefixes.
func diffPath(fd *diff.FileDiff) string {
	name := fd.NewName
	if name == "" || name == "/dev/null" {
		name = fd.OrigName
	}
	name = strings.TrimPrefix(name, "a/")
	name = strings.TrimPrefix(name, "b/")
	return name
}

// dedent removes the common leading whitespace of all non-blank lines.
func dedent(lines []string) string {
	margin := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if margin < 0 || indent < margin {
			margin = indent
		}
	}
	if margin <= 0 {
		return strings.Join(lines, "\n") + "\n"
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		if len(line) >= margin {
			out[i] = line[margin:]
		} else {
			out[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.Join(out, "\n") + "\n"
}
