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
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for rule acquisition.
var (
	tracer = otel.Tracer("hightaste.learn")
	meter  = otel.Meter("hightaste.learn")
)

// Metrics for acquire operations.
var (
	acquireLatency metric.Float64Histogram
	acquireGroups  metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		acquireLatency, err = meter.Float64Histogram(
			"taste_acquire_duration_seconds",
			metric.WithDescription("Duration of acquire runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		acquireGroups, err = meter.Int64Counter(
			"taste_acquire_groups_total",
			metric.WithDescription("Acquire group outcomes by kind"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})

	return metricsErr
}

// startAcquireSpan starts a span covering one acquire run.
func startAcquireSpan(ctx context.Context, diffs int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Learner.Acquire",
		trace.WithAttributes(
			attribute.Int("acquire.diffs", diffs),
		),
	)
}

// setAcquireSpanResult records the outcome on the acquire span.
func setAcquireSpanResult(span trace.Span, groups, skipped int) {
	span.SetAttributes(
		attribute.Int("acquire.groups", groups),
		attribute.Int("acquire.skipped", skipped),
	)
}

// recordAcquire records one acquire run. Metric errors are ignored so
// instrumentation never disturbs learning.
func recordAcquire(ctx context.Context, result *AcquireResult, d time.Duration) {
	if err := initMetrics(); err != nil {
		return
	}

	acquireLatency.Record(ctx, d.Seconds())
	for _, g := range result.Groups {
		outcome := "rejected"
		switch {
		case g.Created != nil:
			outcome = "created"
		case g.CoveredBy != "":
			outcome = "covered"
		case len(g.Conflicts) > 0:
			outcome = "conflict"
		}
		acquireGroups.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	}
}
