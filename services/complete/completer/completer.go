// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package completer runs chain searches on behalf of editor requests.
//
// It resolves expected type names, bounds concurrent searches with a
// semaphore, runs each search on its own worker goroutine under a
// wall-clock timeout, and renders the resulting chains.
//
// # Timeouts
//
// When the timeout fires the search context is cancelled. The search
// observes this at its next loop iteration and returns the chains found so
// far. The caller waits up to GracePeriod for that partial result; after
// that the worker is abandoned and an empty, TimedOut response is returned.
// Abandoned workers keep their semaphore slot until they finish.
package completer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/AleutianAI/AleutianComplete/services/complete/chain"
	"github.com/AleutianAI/AleutianComplete/services/complete/symbols"
	"github.com/AleutianAI/AleutianComplete/services/complete/telemetry"
)

var (
	// ErrNilModel indicates a nil symbol model.
	ErrNilModel = errors.New("symbol model must not be nil")

	// ErrOverloaded indicates no search slot became free before the
	// request context ended.
	ErrOverloaded = errors.New("too many concurrent searches")
)

// Config configures the Completer.
type Config struct {
	// MaxChains is the default result cap.
	MaxChains int `json:"max_chains" yaml:"max_chains" validate:"gte=0,lte=1000"`

	// MinDepth is the default minimum chain length.
	MinDepth int `json:"min_depth" yaml:"min_depth" validate:"gte=1,lte=10,ltefield=MaxDepth"`

	// MaxDepth is the default maximum chain length.
	MaxDepth int `json:"max_depth" yaml:"max_depth" validate:"gte=1,lte=10"`

	// AdmissionCap bounds the search frontier.
	AdmissionCap int `json:"admission_cap" yaml:"admission_cap" validate:"gt=0"`

	// Timeout is the default wall-clock budget per search.
	Timeout time.Duration `json:"timeout" yaml:"timeout" validate:"gt=0"`

	// GracePeriod is how long to wait for a partial result after the
	// timeout before abandoning the worker.
	GracePeriod time.Duration `json:"grace_period" yaml:"grace_period" validate:"gte=0"`

	// MaxConcurrent bounds concurrently running workers.
	MaxConcurrent int `json:"max_concurrent" yaml:"max_concurrent" validate:"gte=1"`
}

// DefaultConfig returns the defaults.
func DefaultConfig() Config {
	return Config{
		MaxChains:     chain.DefaultMaxChains,
		MinDepth:      chain.DefaultMinDepth,
		MaxDepth:      chain.DefaultMaxDepth,
		AdmissionCap:  chain.DefaultAdmissionCap,
		Timeout:       3 * time.Second,
		GracePeriod:   250 * time.Millisecond,
		MaxConcurrent: 4,
	}
}

// Request is one completion request.
type Request struct {
	// ExpectedTypes are type names in priority order, e.g. "pkg.Foo[]".
	ExpectedTypes []string

	// Candidates are the IDs of symbols visible at the cursor.
	Candidates []string

	// Prefix is the token typed so far.
	Prefix string

	// ExcludedTypes are type name prefixes never used in a chain.
	ExcludedTypes []string

	// MaxChains, MinDepth, MaxDepth override the configured defaults when
	// non-nil.
	MaxChains *int
	MinDepth  *int
	MaxDepth  *int

	// Timeout overrides the configured timeout when positive.
	Timeout time.Duration
}

// Item is one rendered chain.
type Item struct {
	Title        string `json:"title"`
	Body         string `json:"body"`
	Length       int    `json:"length"`
	ExpectedType string `json:"expected_type"`
}

// Response is the result of Complete.
type Response struct {
	// Items are the rendered chains in discovery order.
	Items []Item `json:"items"`

	// Unresolved lists expected type names the model could not resolve.
	Unresolved []string `json:"unresolved,omitempty"`

	// TimedOut is true if the wall-clock budget was exceeded.
	TimedOut bool `json:"timed_out"`

	// Cancelled is true if the search stopped early for any reason.
	Cancelled bool `json:"cancelled"`

	// Abandoned is true if the worker missed the grace period.
	Abandoned bool `json:"abandoned,omitempty"`

	// FrontierCapped is true if the admission cap was hit.
	FrontierCapped bool `json:"frontier_capped"`

	// Visited is the number of partial chains examined.
	Visited int `json:"visited"`

	// LookupFailures counts skipped model lookups.
	LookupFailures int `json:"lookup_failures"`

	// Duration is the request time.
	Duration time.Duration `json:"duration_ns"`
}

// Completer runs chain searches.
//
// Thread Safety: Safe for concurrent use. Each request gets its own Finder.
type Completer struct {
	cfg     Config
	sem     *semaphore.Weighted
	metrics *Metrics
	logger  *slog.Logger
}

// Option configures a Completer.
type Option func(*Completer)

// WithMetrics uses m instead of DefaultMetrics().
func WithMetrics(m *Metrics) Option {
	return func(c *Completer) {
		c.metrics = m
	}
}

// New creates a Completer.
//
// Inputs:
//
//	cfg - Configuration. MaxConcurrent < 1 is treated as 1.
//	logger - Logger. If nil, uses slog.Default().
//	opts - Options.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Completer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	c := &Completer{
		cfg:    cfg,
		sem:    semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = DefaultMetrics()
	}
	return c
}

// Config returns the configuration in effect.
func (c *Completer) Config() Config {
	return c.cfg
}

// Complete searches for chains satisfying req against model.
//
// Description:
//
//	Resolves expected types (unresolvable names are dropped and reported
//	in Response.Unresolved), waits for a worker slot, runs the search on a
//	worker goroutine under the request timeout, and renders the chains.
//	Timeouts and cancellation are not errors.
//
// Inputs:
//
//	ctx - Request context. Cancelling it cancels the search.
//	model - The symbol model to search.
//	req - The request.
//
// Outputs:
//
//	*Response - The rendered chains and search flags.
//	error - ErrNilModel, or ErrOverloaded if no slot became free before
//	        ctx ended.
func (c *Completer) Complete(ctx context.Context, model symbols.Model, req Request) (*Response, error) {
	start := time.Now()
	if model == nil {
		return nil, ErrNilModel
	}
	logger := telemetry.LoggerWithTrace(ctx, c.logger)

	resp := &Response{Items: make([]Item, 0)}
	expected := make([]chain.ExpectedType, 0, len(req.ExpectedTypes))
	seen := make(map[chain.ExpectedType]bool, len(req.ExpectedTypes))
	for _, name := range req.ExpectedTypes {
		ref, ok := model.ResolveType(name)
		if !ok {
			logger.Warn("expected type unresolved", slog.String("type", name))
			resp.Unresolved = append(resp.Unresolved, name)
			continue
		}
		x := chain.ExpectedFor(ref)
		if seen[x] {
			continue
		}
		seen[x] = true
		expected = append(expected, x)
	}
	if len(expected) == 0 {
		return c.finish(resp, outcomeEmpty, start), nil
	}

	if err := c.sem.Acquire(ctx, 1); err != nil {
		c.record(outcomeOverloaded, start)
		return nil, fmt.Errorf("%w: %v", ErrOverloaded, err)
	}

	timeout := c.cfg.Timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	searchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := c.searchOptions(req)
	done := make(chan *chain.Result, 1)
	c.metrics.InFlight.Inc()
	go func() {
		defer c.sem.Release(1)
		defer c.metrics.InFlight.Dec()

		finder := chain.NewFinder(model, c.logger)
		entries := finder.CollectEntryPoints(req.Candidates, req.Prefix, req.ExcludedTypes)
		done <- finder.Find(searchCtx, expected, entries, opts...)
	}()

	var result *chain.Result
	select {
	case result = <-done:
	case <-searchCtx.Done():
		cancel()
		grace := time.NewTimer(c.cfg.GracePeriod)
		defer grace.Stop()
		select {
		case result = <-done:
		case <-grace.C:
			c.metrics.AbandonedWorkers.Inc()
			logger.Warn("search worker abandoned",
				slog.Duration("timeout", timeout),
				slog.Duration("grace_period", c.cfg.GracePeriod),
			)
			resp.TimedOut = errors.Is(searchCtx.Err(), context.DeadlineExceeded)
			resp.Cancelled = true
			resp.Abandoned = true
			return c.finish(resp, outcomeAbandoned, start), nil
		}
	}

	for _, ch := range result.Chains {
		r := chain.Render(ch)
		resp.Items = append(resp.Items, Item{
			Title:        r.Title,
			Body:         r.Body,
			Length:       ch.Len(),
			ExpectedType: ch.Expected.String(),
		})
	}
	resp.Cancelled = result.Cancelled
	resp.TimedOut = result.Cancelled && errors.Is(searchCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
	resp.FrontierCapped = result.FrontierCapped
	resp.Visited = result.Visited
	resp.LookupFailures = result.LookupFailures

	outcome := outcomeOK
	switch {
	case resp.TimedOut:
		outcome = outcomeTimeout
	case resp.Cancelled:
		outcome = outcomeCancelled
	}
	c.metrics.ChainsReturned.Observe(float64(len(resp.Items)))

	logger.Debug("completion finished",
		slog.Int("items", len(resp.Items)),
		slog.String("outcome", outcome),
		slog.Int("visited", resp.Visited),
	)
	return c.finish(resp, outcome, start), nil
}

func (c *Completer) searchOptions(req Request) []chain.SearchOption {
	maxChains, minDepth, maxDepth := c.cfg.MaxChains, c.cfg.MinDepth, c.cfg.MaxDepth
	if req.MaxChains != nil {
		maxChains = *req.MaxChains
	}
	if req.MinDepth != nil {
		minDepth = *req.MinDepth
	}
	if req.MaxDepth != nil {
		maxDepth = *req.MaxDepth
	}
	return []chain.SearchOption{
		chain.WithMaxChains(maxChains),
		chain.WithDepth(minDepth, maxDepth),
		chain.WithTokenPrefix(req.Prefix),
		chain.WithExcludedTypes(req.ExcludedTypes...),
		chain.WithAdmissionCap(c.cfg.AdmissionCap),
	}
}

func (c *Completer) finish(resp *Response, outcome string, start time.Time) *Response {
	resp.Duration = time.Since(start)
	c.record(outcome, start)
	return resp
}

func (c *Completer) record(outcome string, start time.Time) {
	c.metrics.RequestsTotal.WithLabelValues(outcome).Inc()
	c.metrics.DurationSeconds.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}
