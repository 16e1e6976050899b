// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"ERROR", LevelError},
		{"  info ", LevelInfo},
		{"nonsense", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewStderrOnly(t *testing.T) {
	logger := New(Config{Level: LevelInfo})

	if logger.Slog() == nil {
		t.Fatal("Slog returned nil")
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	// Close must be idempotent.
	if err := logger.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestNewWithLogDir(t *testing.T) {
	dir := t.TempDir()

	logger := New(Config{Level: LevelInfo, LogDir: dir, Service: "taste"})
	logger.Slog().Info("check complete", "violations", 3)
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	name := "taste_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}

	var entry map[string]any
	if err := json.Unmarshal(data, &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "check complete" {
		t.Errorf("msg = %v, want check complete", entry["msg"])
	}
	if entry["violations"] != float64(3) {
		t.Errorf("violations = %v, want 3", entry["violations"])
	}
}

func TestNewCreatesLogDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	logger := New(Config{LogDir: dir})
	defer logger.Close()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("log dir was not created: %v", err)
	}
}

func TestNewBadLogDirDegrades(t *testing.T) {
	file := filepath.Join(t.TempDir(), "occupied")
	if err := os.WriteFile(file, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	// LogDir points at a regular file; New must fall back to stderr.
	logger := New(Config{LogDir: file})
	if logger.Slog() == nil {
		t.Fatal("Slog returned nil after degradation")
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestTeeHandlerFanout(t *testing.T) {
	var text, jsonBuf bytes.Buffer
	handler := &teeHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&text, &slog.HandlerOptions{Level: LevelInfo}),
		slog.NewJSONHandler(&jsonBuf, &slog.HandlerOptions{Level: LevelWarn}),
	}}
	logger := slog.New(handler)

	logger.Info("only text")
	logger.Warn("both")

	if !strings.Contains(text.String(), "only text") || !strings.Contains(text.String(), "both") {
		t.Errorf("text output missing records: %q", text.String())
	}
	if strings.Contains(jsonBuf.String(), "only text") {
		t.Errorf("json handler received a record below its level: %q", jsonBuf.String())
	}
	if !strings.Contains(jsonBuf.String(), "both") {
		t.Errorf("json output missing warn record: %q", jsonBuf.String())
	}
}

func TestTeeHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	handler := &teeHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: LevelInfo}),
	}}

	logger := slog.New(handler).With("component", "checker")
	logger.Info("ready")

	if !strings.Contains(buf.String(), "component=checker") {
		t.Errorf("attr lost through tee: %q", buf.String())
	}
}
