// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command taste runs the high-taste rule engine.
//
// The engine checks source files against a learned set of style rules
// and acquires new rules from before/after diffs.
//
// Usage:
//
//	taste check path/to/file.py [more files...]
//	taste learn --diff change.patch --category functions
//	taste rules list
//	taste serve --port 8080
//	taste mcp
//
// Example requests against the server:
//
//	# Health check
//	curl http://localhost:8080/v1/taste/health
//
//	# Check a file
//	curl -X POST http://localhost:8080/v1/taste/check \
//	  -H "Content-Type: application/json" \
//	  -d '{"files": [{"path": "app.py", "content": "x = 1\n"}]}'
package main

import (
	"log/slog"
	"os"

	"github.com/alexdong/high-taste/pkg/logging"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// setupLogging configures the process-wide logger from the global
// flags. The returned logger owns the optional log file.
func setupLogging() *logging.Logger {
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(logLevel),
		LogDir:  logDir,
		Service: "taste",
	})
	slog.SetDefault(logger.Slog())
	return logger
}
