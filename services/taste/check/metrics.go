// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package check

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for rule checking.
var (
	tracer = otel.Tracer("hightaste.check")
	meter  = otel.Meter("hightaste.check")
)

// Metrics for check operations.
var (
	checkLatency    metric.Float64Histogram
	checkFiles      metric.Int64Counter
	checkViolations metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		checkLatency, err = meter.Float64Histogram(
			"taste_check_duration_seconds",
			metric.WithDescription("Duration of check runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		checkFiles, err = meter.Int64Counter(
			"taste_check_files_total",
			metric.WithDescription("Total number of files checked"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		checkViolations, err = meter.Int64Counter(
			"taste_check_violations_total",
			metric.WithDescription("Total number of violations reported"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})

	return metricsErr
}

// startCheckSpan creates a span for one check run.
func startCheckSpan(ctx context.Context, files int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Checker.Check",
		trace.WithAttributes(
			attribute.Int("check.files", files),
		),
	)
}

// setCheckSpanResult sets the result attributes on a check span.
func setCheckSpanResult(span trace.Span, violations int, ok bool) {
	span.SetAttributes(
		attribute.Int("check.violations", violations),
		attribute.Bool("check.success", ok),
	)
}

// recordCheck records one check run. Metric errors are ignored so
// instrumentation never disturbs checking.
func recordCheck(ctx context.Context, files, violations int, d time.Duration, ok bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", ok))

	checkLatency.Record(ctx, d.Seconds(), attrs)
	checkFiles.Add(ctx, int64(files), attrs)
	checkViolations.Add(ctx, int64(violations), attrs)
}
