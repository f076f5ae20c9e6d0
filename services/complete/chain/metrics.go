// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package chain

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for chain search.
var (
	tracer = otel.Tracer("aleutian.complete.chain")
	meter  = otel.Meter("aleutian.complete.chain")
)

// Metrics for chain search.
var (
	searchLatency metric.Float64Histogram
	searchTotal   metric.Int64Counter
	chainsFound   metric.Int64Histogram
	visitedCount  metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		searchLatency, err = meter.Float64Histogram(
			"chain_search_duration_seconds",
			metric.WithDescription("Duration of chain searches"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		searchTotal, err = meter.Int64Counter(
			"chain_search_total",
			metric.WithDescription("Total number of chain searches"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		chainsFound, err = meter.Int64Histogram(
			"chain_search_chains",
			metric.WithDescription("Number of chains returned per search"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		visitedCount, err = meter.Int64Histogram(
			"chain_search_visited",
			metric.WithDescription("Number of partial chains visited per search"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startFindSpan creates the span for one Find call.
func startFindSpan(ctx context.Context, expected []ExpectedType, entrypoints int, opts SearchOptions) (context.Context, trace.Span) {
	names := make([]string, len(expected))
	for i, x := range expected {
		names[i] = x.String()
	}
	return tracer.Start(ctx, "chain.Finder.Find",
		trace.WithAttributes(
			attribute.StringSlice("chain.expected_types", names),
			attribute.Int("chain.entrypoints", entrypoints),
			attribute.Int("chain.max_chains", opts.MaxChains),
			attribute.Int("chain.min_depth", opts.MinDepth),
			attribute.Int("chain.max_depth", opts.MaxDepth),
		),
	)
}

// setFindSpanResult sets the result attributes on the span.
func setFindSpanResult(span trace.Span, r *Result) {
	span.SetAttributes(
		attribute.Int("chain.chains", len(r.Chains)),
		attribute.Int("chain.visited", r.Visited),
		attribute.Int("chain.lookup_failures", r.LookupFailures),
		attribute.Bool("chain.cancelled", r.Cancelled),
		attribute.Bool("chain.frontier_capped", r.FrontierCapped),
	)
}

// recordFindMetrics records metrics for one Find call.
func recordFindMetrics(ctx context.Context, r *Result) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.Bool("cancelled", r.Cancelled),
		attribute.Bool("frontier_capped", r.FrontierCapped),
	)
	searchLatency.Record(ctx, r.Duration.Seconds(), attrs)
	searchTotal.Add(ctx, 1, attrs)
	chainsFound.Record(ctx, int64(len(r.Chains)))
	visitedCount.Record(ctx, int64(r.Visited))
}
