// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package completer

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes used as the "outcome" label.
const (
	outcomeOK         = "ok"
	outcomeEmpty      = "empty"
	outcomeTimeout    = "timeout"
	outcomeCancelled  = "cancelled"
	outcomeAbandoned  = "abandoned"
	outcomeOverloaded = "overloaded"
)

// Metrics holds the Prometheus metrics for completion requests.
//
// Thread Safety: Safe for concurrent use.
type Metrics struct {
	// RequestsTotal counts requests by outcome.
	RequestsTotal *prometheus.CounterVec

	// DurationSeconds measures request latency including the grace period.
	DurationSeconds *prometheus.HistogramVec

	// ChainsReturned measures chains per successful request.
	ChainsReturned prometheus.Histogram

	// AbandonedWorkers counts workers that outlived their grace period.
	AbandonedWorkers prometheus.Counter

	// InFlight is the number of running search workers, abandoned ones
	// included.
	InFlight prometheus.Gauge
}

// NewMetrics creates and registers the metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "aleutian",
				Subsystem: "complete",
				Name:      "requests_total",
				Help:      "Total chain completion requests by outcome",
			},
			[]string{"outcome"},
		),

		DurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "aleutian",
				Subsystem: "complete",
				Name:      "duration_seconds",
				Help:      "Chain completion request duration",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"outcome"},
		),

		ChainsReturned: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "aleutian",
				Subsystem: "complete",
				Name:      "chains_returned",
				Help:      "Chains returned per completion request",
				Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100},
			},
		),

		AbandonedWorkers: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "aleutian",
				Subsystem: "complete",
				Name:      "abandoned_workers_total",
				Help:      "Search workers abandoned after the grace period",
			},
		),

		InFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "aleutian",
				Subsystem: "complete",
				Name:      "workers_in_flight",
				Help:      "Search workers currently running",
			},
		),
	}
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns metrics registered with the default registerer.
// Safe to call multiple times.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		defaultMetrics = NewMetrics(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}
