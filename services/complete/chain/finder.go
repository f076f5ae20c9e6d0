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
	"log/slog"
	"strings"
	"time"

	"github.com/AleutianAI/AleutianComplete/services/complete/symbols"
	"github.com/AleutianAI/AleutianComplete/services/complete/telemetry"
)

// Result is the outcome of one Find call. Find never fails; incomplete
// searches are described by the flags.
type Result struct {
	// Chains are the recorded chains, grouped by expected type in input
	// order and by non-decreasing length within a group.
	Chains []*Chain

	// Cancelled is true if the context was done before the search finished.
	Cancelled bool

	// FrontierCapped is true if the admission cap prevented an expansion.
	FrontierCapped bool

	// Visited is the number of partial chains popped from the queue.
	Visited int

	// Expanded is the number of partial chains that were expanded.
	Expanded int

	// LookupFailures counts member or assignability lookups that failed
	// and were skipped.
	LookupFailures int

	// Duration is the search time.
	Duration time.Duration
}

// memberKey keys the member cache.
type memberKey struct {
	typ        symbols.TypeRef
	staticOnly bool
}

// assignKey keys the assignability cache.
type assignKey struct {
	elem     *Element
	expected ExpectedType
}

// Finder searches chains over one symbol model.
//
// Description:
//
//	Owns the EdgeCache shared by entry point collection and search.
//	Member and assignability caches belong to a single Find call and are
//	dropped when it returns.
//
// Thread Safety: Not safe for concurrent use.
type Finder struct {
	model  symbols.Model
	edges  *EdgeCache
	logger *slog.Logger
}

// NewFinder creates a Finder over model.
//
// Inputs:
//
//	model - The symbol model. Must not be nil.
//	logger - Logger for debug output. If nil, uses slog.Default().
func NewFinder(model symbols.Model, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Finder{
		model:  model,
		edges:  NewEdgeCache(),
		logger: logger,
	}
}

// Edges returns the Finder's EdgeCache.
func (f *Finder) Edges() *EdgeCache {
	return f.edges
}

// Find searches for chains ending in a value of one of the expected types.
//
// Description:
//
//	Runs a breadth-first search per expected type, in order, feeding one
//	shared result list. The whole search stops once MaxChains chains are
//	recorded. For each popped chain:
//
//	  1. A chain ending in a bare type reference never completes.
//	  2. With a token prefix, the last hop's name must start with it.
//	  3. Primitives on either side must match exactly; otherwise the
//	     model's assignability decides, memoized per (element, type).
//	  4. Complete chains of at least MinDepth hops are recorded and not
//	     expanded further.
//	  5. Other chains shorter than MaxDepth are extended by every visible
//	     member of the last hop's type that is not excluded and not already
//	     in the chain, provided the queue holds no more than AdmissionCap
//	     chains. Only static members follow a type reference.
//
// Inputs:
//
//	ctx - Checked at the top of every iteration. Cancellation returns the
//	      chains found so far.
//	expected - Expected types in priority order.
//	entrypoints - Seeds, usually from CollectEntryPoints.
//	opts - Search options.
//
// Outputs:
//
//	*Result - Never nil. Empty when MaxChains is zero or MinDepth > MaxDepth.
//
// Limitations:
//
//	Past the admission cap the search is an approximation: chains that
//	would have been reached through unexpanded partial chains are missed.
func (f *Finder) Find(ctx context.Context, expected []ExpectedType, entrypoints []*Element, opts ...SearchOption) *Result {
	start := time.Now()
	options := applyOptions(opts)

	ctx, span := startFindSpan(ctx, expected, len(entrypoints), options)
	defer span.End()

	s := &search{
		finder:     f,
		options:    options,
		logger:     telemetry.LoggerWithTrace(ctx, f.logger),
		result:     &Result{Chains: make([]*Chain, 0)},
		members:    make(map[memberKey][]*symbols.Symbol),
		assignable: make(map[assignKey]bool),
	}

	if options.MaxChains > 0 && options.MinDepth <= options.MaxDepth {
		for _, x := range expected {
			if s.run(ctx, x, entrypoints) {
				break
			}
		}
		if ctx.Err() != nil {
			s.result.Cancelled = true
		}
	}

	result := s.result
	result.Duration = time.Since(start)
	setFindSpanResult(span, result)
	recordFindMetrics(ctx, result)

	s.logger.Debug("chain search finished",
		slog.Int("chains", len(result.Chains)),
		slog.Int("visited", result.Visited),
		slog.Int("expanded", result.Expanded),
		slog.Bool("cancelled", result.Cancelled),
		slog.Bool("frontier_capped", result.FrontierCapped),
		slog.Duration("duration", result.Duration),
	)
	return result
}

// search is the state of one Find call.
type search struct {
	finder     *Finder
	options    SearchOptions
	logger     *slog.Logger
	result     *Result
	members    map[memberKey][]*symbols.Symbol
	assignable map[assignKey]bool
}

// run searches one expected type. It returns true when the whole search
// must stop, because of cancellation or the shared MaxChains cap.
func (s *search) run(ctx context.Context, x ExpectedType, entrypoints []*Element) bool {
	queue := make([]*Chain, 0, len(entrypoints))
	for _, e := range entrypoints {
		if isExcluded(e, s.options.ExcludedTypes) {
			continue
		}
		queue = append(queue, NewChain(e))
	}

	for len(queue) > 0 {
		if ctx.Err() != nil {
			s.result.Cancelled = true
			return true
		}

		c := queue[0]
		queue[0] = nil
		queue = queue[1:]
		s.result.Visited++

		tail := c.Tail()
		if s.completes(tail, x) && c.Len() >= s.options.MinDepth {
			s.result.Chains = append(s.result.Chains, c.qualified(x))
			if len(s.result.Chains) >= s.options.MaxChains {
				return true
			}
			continue
		}

		if c.Len() >= s.options.MaxDepth {
			continue
		}
		if len(queue) > s.options.AdmissionCap {
			s.result.FrontierCapped = true
			continue
		}
		queue = s.expand(c, tail, queue)
	}
	return false
}

// completes is the end-of-chain test.
func (s *search) completes(tail *Element, x ExpectedType) bool {
	if tail.Kind() == ElementType {
		return false
	}
	if prefix := strings.TrimSpace(s.options.TokenPrefix); prefix != "" && !strings.HasPrefix(tail.Name(), prefix) {
		return false
	}

	t := tail.Type()
	if x.IsPrimitive() || t.IsPrimitive() {
		return x.IsPrimitive() && t.IsPrimitive() && t.Name == x.Primitive
	}

	key := assignKey{elem: tail, expected: x}
	if ok, cached := s.assignable[key]; cached {
		return ok
	}
	ok, err := s.finder.model.IsAssignable(t, x.base(), x.Dims())
	if err != nil {
		s.result.LookupFailures++
		s.logger.Debug("assignability lookup failed",
			slog.String("element", tail.String()),
			slog.String("expected", x.String()),
			slog.String("error", err.Error()),
		)
		ok = false
	}
	s.assignable[key] = ok
	return ok
}

// expand appends every admissible one-hop extension of c to queue.
func (s *search) expand(c *Chain, tail *Element, queue []*Chain) []*Chain {
	s.result.Expanded++

	staticOnly := tail.Kind() == ElementType
	for _, m := range s.membersOf(tail.Type(), staticOnly) {
		next := s.finder.edges.Get(m)
		if isExcluded(next, s.options.ExcludedTypes) || c.Contains(next) {
			continue
		}
		queue = append(queue, c.Append(next))
	}
	return queue
}

// membersOf enumerates members through the cache. A failed enumeration is
// cached as empty.
func (s *search) membersOf(t symbols.TypeRef, staticOnly bool) []*symbols.Symbol {
	key := memberKey{typ: t, staticOnly: staticOnly}
	if members, ok := s.members[key]; ok {
		return members
	}
	members, err := s.finder.model.VisibleMembers(t, staticOnly)
	if err != nil {
		s.result.LookupFailures++
		s.logger.Debug("member enumeration failed",
			slog.String("type", t.String()),
			slog.Bool("static_only", staticOnly),
			slog.String("error", err.Error()),
		)
		members = nil
	}
	s.members[key] = members
	return members
}
