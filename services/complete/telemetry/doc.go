// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry bootstraps OpenTelemetry for the completion service.
//
// Init installs the global TracerProvider and MeterProvider. Packages then
// use otel.Tracer() and otel.Meter() directly; there is no wrapper
// interface. Exporters are chosen by configuration:
//
//   - traces: otlp (default), stdout, none
//   - metrics: prometheus (default), stdout, none
//
// With the prometheus exporter, MetricsHandler serves the default
// Prometheus registry, which also carries the promauto metrics registered
// by the completer.
//
// # Logging
//
// LoggerWithTrace adds trace_id and span_id to a slog.Logger so log lines
// can be joined with traces.
//
// # Environment Variables
//
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint (default: localhost:4317)
//   - OTEL_TRACES_EXPORTER: otlp, stdout, or none
//   - OTEL_METRICS_EXPORTER: prometheus, stdout, or none
//   - COMPLETE_ENV: environment name (default: development)
package telemetry
