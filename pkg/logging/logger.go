// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging builds the process logger for the taste commands.
//
// Log output always goes to stderr in text form so that check results
// and rule listings on stdout stay machine-readable. Serve deployments
// can add a JSON log file per service and day via Config.LogDir.
//
//	logger := logging.New(logging.Config{
//	    Level:   logging.ParseLevel("debug"),
//	    LogDir:  "~/.hightaste/logs",
//	    Service: "taste",
//	})
//	defer logger.Close()
//	slog.SetDefault(logger.Slog())
package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Level aliases slog levels so callers configure the logger without
// importing slog themselves.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// ParseLevel maps a --log-level flag value to a slog level. Unknown
// values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Config configures the process logger. The zero value logs Info and
// above to stderr only.
type Config struct {
	// Level is the minimum level emitted.
	Level slog.Level

	// LogDir enables an additional JSON log file in this directory.
	// A leading ~ expands to the user's home directory.
	LogDir string

	// Service names the log file: <service>_<date>.log. Defaults to
	// "taste".
	Service string
}

// Logger owns the configured slog.Logger and the optional log file.
type Logger struct {
	slogger *slog.Logger
	file    *os.File
}

// New builds a logger from the configuration.
//
// A failure to open the log file never fails the command: the logger
// degrades to stderr-only and reports the problem once.
func New(cfg Config) *Logger {
	if cfg.Service == "" {
		cfg.Service = "taste"
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}
	stderr := slog.NewTextHandler(os.Stderr, opts)

	if cfg.LogDir == "" {
		return &Logger{slogger: slog.New(stderr)}
	}

	file, err := openLogFile(cfg.LogDir, cfg.Service)
	if err != nil {
		l := &Logger{slogger: slog.New(stderr)}
		l.slogger.Warn("file logging disabled", "error", err)
		return l
	}

	handler := &teeHandler{handlers: []slog.Handler{
		stderr,
		slog.NewJSONHandler(file, opts),
	}}
	return &Logger{slogger: slog.New(handler), file: file}
}

// Slog returns the configured logger, for slog.SetDefault.
func (l *Logger) Slog() *slog.Logger {
	return l.slogger
}

// Close releases the log file, if any. Safe on a stderr-only logger.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// openLogFile creates the log directory and opens (or appends to)
// today's file for the service.
func openLogFile(dir, service string) (*os.File, error) {
	if strings.HasPrefix(dir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("expanding log dir %s: %w", dir, err)
		}
		dir = filepath.Join(home, dir[1:])
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("creating log dir %s: %w", dir, err)
	}

	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	path := filepath.Join(dir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}
	return file, nil
}

// teeHandler fans each record out to every destination. A destination
// error never blocks the others.
type teeHandler struct {
	handlers []slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		out[i] = h.WithAttrs(attrs)
	}
	return &teeHandler{handlers: out}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		out[i] = h.WithGroup(name)
	}
	return &teeHandler{handlers: out}
}
