// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package mcp exposes the taste service over the Model Context Protocol
// so coding agents can check code and teach rules directly.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/alexdong/high-taste/services/taste"
	"github.com/alexdong/high-taste/services/taste/check"
	"github.com/alexdong/high-taste/services/taste/learn"
	"github.com/alexdong/high-taste/services/taste/rules"
)

const serverVersion = "0.1.0"

// Server implements the MCP server for the taste service.
type Server struct {
	svc     *taste.Service
	server  *mcp.Server
	address string
}

// NewServer creates a new MCP server instance. An empty address serves
// over stdio; otherwise the server listens on the address over
// streamable HTTP.
func NewServer(address string, svc *taste.Service) *Server {
	impl := &mcp.Implementation{
		Name:    "high-taste",
		Version: serverVersion,
	}

	opts := &mcp.ServerOptions{
		Instructions: "Taste rule engine. Use taste_check to find style violations in source files, taste_acquire to learn a new rule from before/after diffs, and taste_rules to browse the rule set.",
	}

	s := &Server{
		svc:     svc,
		server:  mcp.NewServer(impl, opts),
		address: address,
	}
	s.registerTools()
	return s
}

// registerTools registers all available tools with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "taste_check",
		Description: "Check source files against the enabled taste rules. Returns violations with precise spans, sorted by file and position.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"files": {
					Type:        "array",
					Description: "Files to check.",
					Items: &jsonschema.Schema{
						Type: "object",
						Properties: map[string]*jsonschema.Schema{
							"path": {
								Type:        "string",
								Description: "File path, used for language detection.",
							},
							"content": {
								Type:        "string",
								Description: "Full file content.",
							},
						},
						Required: []string{"path", "content"},
					},
				},
			},
			Required: []string{"files"},
		},
	}, s.handleCheck)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "taste_acquire",
		Description: "Learn a new taste rule from a unified diff showing a stylistic improvement. Reports the created rule, or the existing rule that already covers the change.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"diff": {
					Type:        "string",
					Description: "Unified diff with the before/after change.",
				},
				"category": {
					Type:        "string",
					Description: "Rule category (functions, naming, style, ...).",
				},
				"title": {
					Type:        "string",
					Description: "Optional one-line rule title.",
				},
			},
			Required: []string{"diff"},
		},
	}, s.handleAcquire)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "taste_rules",
		Description: "List taste rules, optionally filtered by category or status.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"category": {
					Type:        "string",
					Description: "Only rules in this category.",
				},
				"status": {
					Type:        "string",
					Description: "Only rules with this status (enabled/disabled).",
				},
			},
		},
	}, s.handleRules)
}

// CheckParams defines parameters for the taste_check tool.
type CheckParams struct {
	Files []CheckFileParam `json:"files"`
}

// CheckFileParam is one file in a taste_check call.
type CheckFileParam struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// CheckResult contains the result of a taste_check call.
type CheckResult struct {
	Message    string            `json:"message"`
	Violations []check.Violation `json:"violations"`
	Files      int               `json:"files"`
}

func (s *Server) handleCheck(
	ctx context.Context,
	_ *mcp.ServerSession,
	params *mcp.CallToolParamsFor[CheckParams],
) (*mcp.CallToolResultFor[CheckResult], error) {
	slog.DebugContext(ctx, "handling taste_check tool call", slog.Int("files", len(params.Arguments.Files)))

	files := make([]check.FileInput, len(params.Arguments.Files))
	for i, f := range params.Arguments.Files {
		files[i] = check.FileInput{Path: f.Path, Content: []byte(f.Content)}
	}

	violations, err := s.svc.Checker().Check(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("check: %w", err)
	}

	result := CheckResult{
		Violations: violations,
		Files:      len(files),
		Message:    fmt.Sprintf("Found %d violation(s) in %d file(s).", len(violations), len(files)),
	}
	if result.Violations == nil {
		result.Violations = []check.Violation{}
	}

	return &mcp.CallToolResultFor[CheckResult]{
		Content:           []mcp.Content{&mcp.TextContent{Text: result.Message}},
		StructuredContent: result,
	}, nil
}

// AcquireParams defines parameters for the taste_acquire tool.
type AcquireParams struct {
	Diff     string `json:"diff"`
	Category string `json:"category,omitempty"`
	Title    string `json:"title,omitempty"`
}

// AcquireToolResult contains the result of a taste_acquire call.
type AcquireToolResult struct {
	Message string              `json:"message"`
	Groups  []learn.GroupResult `json:"groups"`
	Skipped []learn.Skipped     `json:"skipped,omitempty"`
}

func (s *Server) handleAcquire(
	ctx context.Context,
	_ *mcp.ServerSession,
	params *mcp.CallToolParamsFor[AcquireParams],
) (*mcp.CallToolResultFor[AcquireToolResult], error) {
	slog.DebugContext(ctx, "handling taste_acquire tool call", slog.String("category", params.Arguments.Category))

	diffs, err := learn.ParseUnifiedDiff(params.Arguments.Diff)
	if err != nil {
		return nil, err
	}

	res, err := s.svc.Learner().Acquire(ctx, learn.AcquireRequest{
		Category: params.Arguments.Category,
		Title:    params.Arguments.Title,
		Diffs:    diffs,
	})
	if err != nil {
		return nil, fmt.Errorf("acquire: %w", err)
	}

	result := AcquireToolResult{
		Groups:  res.Groups,
		Skipped: res.Skipped,
		Message: acquireMessage(res),
	}

	return &mcp.CallToolResultFor[AcquireToolResult]{
		Content:           []mcp.Content{&mcp.TextContent{Text: result.Message}},
		StructuredContent: result,
	}, nil
}

// acquireMessage summarizes an acquire outcome for the text content.
func acquireMessage(res *learn.AcquireResult) string {
	created, covered, conflicted := 0, 0, 0
	for _, g := range res.Groups {
		switch {
		case g.Created != nil:
			created++
		case g.CoveredBy != "":
			covered++
		case len(g.Conflicts) > 0:
			conflicted++
		}
	}
	return fmt.Sprintf(
		"Processed %d group(s): %d rule(s) created, %d already covered, %d conflicted, %d diff(s) skipped.",
		len(res.Groups), created, covered, conflicted, len(res.Skipped),
	)
}

// RulesParams defines parameters for the taste_rules tool.
type RulesParams struct {
	Category string `json:"category,omitempty"`
	Status   string `json:"status,omitempty"`
}

// RuleSummary is one rule in a taste_rules listing.
type RuleSummary struct {
	ID       string         `json:"id"`
	Category string         `json:"category"`
	Title    string         `json:"title"`
	Severity rules.Severity `json:"severity"`
	Status   rules.Status   `json:"status"`
}

// RulesResult contains the result of a taste_rules call.
type RulesResult struct {
	Message string        `json:"message"`
	Rules   []RuleSummary `json:"rules"`
	Count   int           `json:"count"`
}

func (s *Server) handleRules(
	ctx context.Context,
	_ *mcp.ServerSession,
	params *mcp.CallToolParamsFor[RulesParams],
) (*mcp.CallToolResultFor[RulesResult], error) {
	slog.DebugContext(ctx, "handling taste_rules tool call")

	list := s.svc.Store().List(rules.Filter{
		Category: params.Arguments.Category,
		Status:   rules.Status(params.Arguments.Status),
	})

	result := RulesResult{
		Rules: make([]RuleSummary, 0, len(list)),
		Count: len(list),
	}
	for _, r := range list {
		result.Rules = append(result.Rules, RuleSummary{
			ID:       r.ID,
			Category: r.Category,
			Title:    r.Title,
			Severity: r.Severity,
			Status:   r.Status,
		})
	}
	result.Message = fmt.Sprintf("Found %d rule(s).", result.Count)

	return &mcp.CallToolResultFor[RulesResult]{
		Content:           []mcp.Content{&mcp.TextContent{Text: result.Message}},
		StructuredContent: result,
	}, nil
}

// Server returns the underlying MCP server.
func (s *Server) Server() *mcp.Server {
	return s.server
}

// Serve starts the MCP server.
func (s *Server) Serve(ctx context.Context) error {
	slog.InfoContext(ctx, "starting MCP server", slog.String("address", s.address))

	if s.address == "" {
		err := s.serveStdio(ctx)
		if err != nil {
			return fmt.Errorf("serve Stdio: %w", err)
		}

		return nil
	}

	err := s.serveHTTP()
	if err != nil {
		return fmt.Errorf("serve HTTP: %w", err)
	}

	return nil
}

func (s *Server) serveHTTP() error {
	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)

	server := &http.Server{
		Addr:    s.address,
		Handler: handler,

		ReadHeaderTimeout: 10 * time.Second,
	}

	err := server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("MCP server failed: %w", err)
	}

	return nil
}

func (s *Server) serveStdio(ctx context.Context) error {
	t := mcp.NewLoggingTransport(mcp.NewStdioTransport(), os.Stderr)
	err := s.server.Run(ctx, t)
	if err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}

	return nil
}
