// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/alexdong/high-taste/pkg/validation"
	"github.com/alexdong/high-taste/services/taste"
	"github.com/alexdong/high-taste/services/taste/check"
	"github.com/alexdong/high-taste/services/taste/learn"
	tastemcp "github.com/alexdong/high-taste/services/taste/mcp"
	"github.com/alexdong/high-taste/services/taste/rules"
	"github.com/alexdong/high-taste/services/taste/telemetry"
)

// --- Global Command Variables ---
var (
	rulesDir string
	backend  string
	logLevel string
	logDir   string

	port        int
	debug       bool
	mcpAddress  string
	diffPath    string
	category    string
	ruleTitle   string
	jsonOutput  bool
	listStatus  string
	listCategory string

	rootCmd = &cobra.Command{
		Use:   "taste",
		Short: "A rule engine that checks code against learned style rules",
		Long: `Taste detects stylistic violations in source code using structural
patterns and learns new rules from observed before/after changes.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the taste HTTP API server",
		RunE:  runServe,
	}

	mcpCmd = &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server (stdio by default)",
		RunE:  runMCP,
	}

	checkCmd = &cobra.Command{
		Use:   "check [file...]",
		Short: "Check source files against the enabled rule set",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runCheck,
	}

	learnCmd = &cobra.Command{
		Use:   "learn",
		Short: "Learn rules from a unified diff",
		RunE:  runLearn,
	}

	rulesCmd = &cobra.Command{
		Use:   "rules",
		Short: "Manage the rule set",
	}

	rulesListCmd = &cobra.Command{
		Use:   "list",
		Short: "List rules",
		RunE:  runRulesList,
	}

	rulesShowCmd = &cobra.Command{
		Use:   "show <id>",
		Short: "Show one rule in full",
		Args:  cobra.ExactArgs(1),
		RunE:  runRulesShow,
	}

	rulesDisableCmd = &cobra.Command{
		Use:   "disable <id>",
		Short: "Disable a rule (its ID stays reserved)",
		Args:  cobra.ExactArgs(1),
		RunE:  runRulesDisable,
	}
)

func init() {
	defaultRules := os.Getenv("TASTE_RULES_DIR")
	if defaultRules == "" {
		defaultRules = "rules"
	}

	rootCmd.PersistentFlags().StringVar(&rulesDir, "rules", defaultRules, "Rule store directory")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "yaml", "Rule store backend (yaml, badger, memory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Optional directory for JSON log files")

	serveCmd.Flags().IntVar(&port, "port", 8080, "Port to listen on")
	serveCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug mode")

	mcpCmd.Flags().StringVar(&mcpAddress, "address", "", "Listen address for HTTP transport (empty serves stdio)")

	checkCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit violations as JSON")

	learnCmd.Flags().StringVar(&diffPath, "diff", "", "Unified diff file ('-' reads stdin)")
	learnCmd.Flags().StringVar(&category, "category", "", "Category for created rules")
	learnCmd.Flags().StringVar(&ruleTitle, "title", "", "Title for created rules")

	rulesListCmd.Flags().StringVar(&listCategory, "category", "", "Only rules in this category")
	rulesListCmd.Flags().StringVar(&listStatus, "status", "", "Only rules with this status")

	rulesCmd.AddCommand(rulesListCmd, rulesShowCmd, rulesDisableCmd)
	rootCmd.AddCommand(serveCmd, mcpCmd, checkCmd, learnCmd, rulesCmd)
}

// newService builds the service from the global flags.
func newService() (*taste.Service, error) {
	cfg := taste.DefaultServiceConfig()
	cfg.RulesDir = rulesDir
	cfg.Backend = taste.StoreBackend(backend)
	return taste.NewService(cfg)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := setupLogging()
	defer logger.Close()

	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdown, err := telemetry.Init(cmd.Context(), telemetry.DefaultConfig())
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := shutdown(cmd.Context()); err != nil {
			slog.Warn("telemetry shutdown", "error", err)
		}
	}()

	svc, err := newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	handlers := taste.NewHandlers(svc)

	router := gin.New()
	router.Use(gin.Recovery())
	if debug {
		router.Use(gin.Logger())
	}

	if h := telemetry.MetricsHandler(); h != nil {
		router.GET("/metrics", gin.WrapH(h))
	}

	v1 := router.Group("/v1")
	taste.RegisterRoutes(v1, handlers)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		slog.Info("Shutting down taste server")
		svc.Close()
		os.Exit(0)
	}()

	addr := fmt.Sprintf(":%d", port)
	slog.Info("Starting taste server", slog.String("address", addr))
	return router.Run(addr)
}

func runMCP(cmd *cobra.Command, args []string) error {
	logger := setupLogging()
	defer logger.Close()

	svc, err := newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	server := tastemcp.NewServer(mcpAddress, svc)
	return server.Serve(cmd.Context())
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogging()
	defer logger.Close()

	svc, err := newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	files := make([]check.FileInput, 0, len(args))
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		files = append(files, check.FileInput{Path: path, Content: content})
	}

	violations, err := svc.Checker().Check(cmd.Context(), files)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(violations); err != nil {
			return err
		}
	} else {
		for _, v := range violations {
			fmt.Printf("%s:%d:%d: [%s] %s: %s\n",
				v.Path, v.Span.StartLine, v.Span.StartCol, v.Severity, v.RuleID, v.Message)
		}
		if len(violations) > 0 {
			fmt.Println("Summary by rule:")
			for _, line := range summarizeByRule(violations) {
				fmt.Printf("  %s\n", line)
			}
		}
		fmt.Printf("%d violation(s) in %d file(s)\n", len(violations), len(files))
	}

	if len(violations) > 0 {
		svc.Close()
		logger.Close()
		os.Exit(1)
	}
	return nil
}

// summarizeByRule renders per-rule violation counts, most frequent
// first, rule ID breaking ties.
func summarizeByRule(violations []check.Violation) []string {
	counts := make(map[string]int, len(violations))
	for _, v := range violations {
		counts[v.RuleID]++
	}

	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})

	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = fmt.Sprintf("%-10s %d", id, counts[id])
	}
	return out
}

func runLearn(cmd *cobra.Command, args []string) error {
	logger := setupLogging()
	defer logger.Close()

	if diffPath == "" {
		return fmt.Errorf("--diff is required")
	}

	var data []byte
	var err error
	if diffPath == "-" {
		data, err = os.ReadFile("/dev/stdin")
	} else {
		data, err = os.ReadFile(diffPath)
	}
	if err != nil {
		return fmt.Errorf("reading diff: %w", err)
	}

	diffs, err := learn.ParseUnifiedDiff(string(data))
	if err != nil {
		return err
	}

	svc, err := newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	result, err := svc.Learner().Acquire(cmd.Context(), learn.AcquireRequest{
		Category: category,
		Title:    ruleTitle,
		Diffs:    diffs,
	})
	if err != nil {
		return err
	}

	for _, g := range result.Groups {
		switch {
		case g.Created != nil:
			fmt.Printf("created %s: %s\n", g.Created.ID, g.Created.Title)
		case g.CoveredBy != "":
			fmt.Printf("already covered by %s\n", g.CoveredBy)
		case len(g.Conflicts) > 0:
			for _, c := range g.Conflicts {
				fmt.Printf("conflict with %s: %s\n", c.RuleID, c.Reason)
			}
		default:
			fmt.Printf("no rule created: %s\n", g.Reason)
		}
	}
	for _, s := range result.Skipped {
		fmt.Printf("skipped %s: %s\n", s.Path, s.Reason)
	}
	return nil
}

func runRulesList(cmd *cobra.Command, args []string) error {
	logger := setupLogging()
	defer logger.Close()

	svc, err := newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	list := svc.Store().List(rules.Filter{
		Category: listCategory,
		Status:   rules.Status(listStatus),
	})
	for _, r := range list {
		fmt.Printf("%-10s %-12s %-10s %-8s %s\n", r.ID, r.Category, r.Severity, r.Status, r.Title)
	}
	fmt.Printf("%d rule(s)\n", len(list))
	return nil
}

func runRulesShow(cmd *cobra.Command, args []string) error {
	logger := setupLogging()
	defer logger.Close()

	svc, err := newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	id, err := validation.SanitizeRuleID(args[0])
	if err != nil {
		return err
	}
	rule, err := svc.Store().Get(id)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rule)
}

func runRulesDisable(cmd *cobra.Command, args []string) error {
	logger := setupLogging()
	defer logger.Close()

	svc, err := newService()
	if err != nil {
		return err
	}
	defer svc.Close()

	id, err := validation.SanitizeRuleID(args[0])
	if err != nil {
		return err
	}
	if err := svc.Store().Disable(id); err != nil {
		return err
	}
	rule, err := svc.Store().Get(id)
	if err != nil {
		return err
	}
	if p := svc.Persistence(); p != nil {
		if err := p.Save(rule); err != nil {
			return err
		}
	}

	fmt.Printf("disabled %s\n", id)
	return nil
}
