// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package composition

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for catalog operations.
var (
	tracer = otel.Tracer("clide.composition")
	meter  = otel.Meter("clide.composition")
)

// Metrics for decoration.
var (
	hookInvocations metric.Int64Counter
	sharedCacheHits metric.Int64Counter
	sharedCacheMiss metric.Int64Counter
	decoratedParts  metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		hookInvocations, err = meter.Int64Counter(
			"composition_hook_invocations_total",
			metric.WithDescription("Total number of decoration hook invocations"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		sharedCacheHits, err = meter.Int64Counter(
			"composition_shared_cache_hits_total",
			metric.WithDescription("Parts calls served from the shared-parts cache"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		sharedCacheMiss, err = meter.Int64Counter(
			"composition_shared_cache_misses_total",
			metric.WithDescription("Parts calls that had to build the shared-parts cache"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		decoratedParts, err = meter.Int64Histogram(
			"composition_decorated_parts",
			metric.WithDescription("Number of parts returned by a decorated catalog"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// recordHook records one hook invocation of the given kind ("part" or "export").
func recordHook(ctx context.Context, kind string) {
	if err := initMetrics(); err != nil {
		return
	}
	hookInvocations.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// recordSharedCache records whether the shared cache was already populated.
func recordSharedCache(ctx context.Context, hit bool) {
	if err := initMetrics(); err != nil {
		return
	}
	if hit {
		sharedCacheHits.Add(ctx, 1)
		return
	}
	sharedCacheMiss.Add(ctx, 1)
}

// recordPartCount records the size of a Parts result.
func recordPartCount(ctx context.Context, n int) {
	if err := initMetrics(); err != nil {
		return
	}
	decoratedParts.Record(ctx, int64(n))
}

// startCatalogSpan creates a span for a catalog operation.
func startCatalogSpan(ctx context.Context, operation, catalog string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "DecoratingCatalog."+operation,
		trace.WithAttributes(
			attribute.String("catalog.operation", operation),
			attribute.String("catalog.name", catalog),
		),
	)
}

// endSpan records err on span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
