// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// generate_rule_docs generates a markdown reference of the persisted rule set.
//
// Usage:
//
//	go run scripts/generate_rule_docs.go rules > docs/rule_reference.md
//
// The generated documentation includes:
//   - Full rule inventory grouped by category
//   - Severity, status and pattern version per rule
//   - Before/after examples where the rule records them
//   - Summary statistics
package main

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/alexdong/high-taste/services/taste/rules"
)

func main() {
	dir := "rules"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	loaded, err := rules.NewYAMLStore(dir).LoadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading rule set from %s: %v\n", dir, err)
		os.Exit(1)
	}

	generateMarkdown(dir, loaded)
}

// byCategory groups rules by category, each group sorted by ID.
func byCategory(loaded []*rules.Rule) (map[string][]*rules.Rule, []string) {
	groups := make(map[string][]*rules.Rule)
	for _, r := range loaded {
		groups[r.Category] = append(groups[r.Category], r)
	}

	categories := make([]string, 0, len(groups))
	for c, g := range groups {
		sort.Slice(g, func(i, j int) bool { return g[i].ID < g[j].ID })
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return groups, categories
}

// generateMarkdown outputs the full markdown documentation.
func generateMarkdown(dir string, loaded []*rules.Rule) {
	fmt.Println("# Rule Reference")
	fmt.Println()
	fmt.Println("## Overview")
	fmt.Println()
	fmt.Printf("This document lists every taste rule persisted under `%s/`.\n", dir)
	fmt.Println("Rules are loaded at service startup; disabled rules are kept for history")
	fmt.Println("and their IDs are never reassigned.")
	fmt.Println()
	fmt.Printf("**Generated:** %s\n", time.Now().UTC().Format("2006-01-02 15:04:05 UTC"))
	fmt.Println()

	enabled := 0
	for _, r := range loaded {
		if r.Status != rules.StatusDisabled {
			enabled++
		}
	}
	fmt.Println("## Statistics")
	fmt.Println()
	fmt.Printf("- **Total rules:** %d\n", len(loaded))
	fmt.Printf("- **Enabled:** %d\n", enabled)
	fmt.Printf("- **Disabled:** %d\n", len(loaded)-enabled)
	fmt.Println()

	groups, categories := byCategory(loaded)
	for _, category := range categories {
		fmt.Printf("## %s\n", category)
		fmt.Println()
		fmt.Println("| ID | Title | Severity | Status | Pattern Version |")
		fmt.Println("|----|-------|----------|--------|-----------------|")
		for _, r := range groups[category] {
			fmt.Printf("| %s | %s | %s | %s | %d |\n",
				r.ID, r.Title, r.Severity, r.Status, r.PatternVersion)
		}
		fmt.Println()

		for _, r := range groups[category] {
			if r.Description == "" && len(r.Examples) == 0 {
				continue
			}
			fmt.Printf("### %s: %s\n", r.ID, r.Title)
			fmt.Println()
			if r.Description != "" {
				fmt.Println(r.Description)
				fmt.Println()
			}
			for i, ex := range r.Examples {
				fmt.Printf("**Example %d** (%s):\n", i+1, ex.Scenario)
				fmt.Println()
				fmt.Println("Before:")
				fmt.Println()
				fmt.Println("```")
				fmt.Print(ex.Before)
				fmt.Println("```")
				fmt.Println()
				fmt.Println("After:")
				fmt.Println()
				fmt.Println("```")
				fmt.Print(ex.After)
				fmt.Println("```")
				fmt.Println()
			}
		}
	}
}
