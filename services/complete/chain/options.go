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

// Search configuration limits.
const (
	// DefaultMaxChains is the default number of chains returned.
	DefaultMaxChains = 20

	// MaxChainsLimit is the maximum allowed MaxChains.
	MaxChainsLimit = 1000

	// DefaultMinDepth is the default minimum chain length.
	DefaultMinDepth = 1

	// DefaultMaxDepth is the default maximum chain length.
	DefaultMaxDepth = 4

	// MaxDepthLimit is the maximum allowed chain length.
	MaxDepthLimit = 10

	// DefaultAdmissionCap bounds the frontier. While more partial chains
	// than this are queued, popped chains are no longer expanded; the
	// queued ones are still drained. Results past the cap are best effort.
	DefaultAdmissionCap = 50000
)

// SearchOptions configures one Find call.
type SearchOptions struct {
	// MaxChains caps the total number of chains across all expected types.
	// Zero returns no chains.
	MaxChains int

	// MinDepth is the minimum length of a recorded chain.
	MinDepth int

	// MaxDepth is the maximum length of any chain.
	MaxDepth int

	// TokenPrefix, when non-blank, requires the final hop's name to start
	// with it.
	TokenPrefix string

	// ExcludedTypes are type name prefixes whose members are never used.
	ExcludedTypes []string

	// AdmissionCap is the frontier size above which expansion stops.
	AdmissionCap int
}

// DefaultSearchOptions returns the defaults.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		MaxChains:    DefaultMaxChains,
		MinDepth:     DefaultMinDepth,
		MaxDepth:     DefaultMaxDepth,
		AdmissionCap: DefaultAdmissionCap,
	}
}

// SearchOption is a functional option for Find.
type SearchOption func(*SearchOptions)

// WithMaxChains sets the result cap.
//
// If n < 0, uses default (20). Zero is kept and yields no chains.
// If n > 1000, clamps to 1000.
func WithMaxChains(n int) SearchOption {
	return func(o *SearchOptions) {
		if n < 0 {
			o.MaxChains = DefaultMaxChains
		} else if n > MaxChainsLimit {
			o.MaxChains = MaxChainsLimit
		} else {
			o.MaxChains = n
		}
	}
}

// WithDepth sets the chain length bounds.
//
// min < 1 becomes 1. max <= 0 uses default (4); max > 10 clamps to 10.
// min > max is kept and yields no chains.
func WithDepth(min, max int) SearchOption {
	return func(o *SearchOptions) {
		if min < 1 {
			min = 1
		}
		if max <= 0 {
			max = DefaultMaxDepth
		} else if max > MaxDepthLimit {
			max = MaxDepthLimit
		}
		o.MinDepth = min
		o.MaxDepth = max
	}
}

// WithTokenPrefix requires the final hop's name to start with prefix.
func WithTokenPrefix(prefix string) SearchOption {
	return func(o *SearchOptions) {
		o.TokenPrefix = prefix
	}
}

// WithExcludedTypes excludes members declared by types matching any prefix.
func WithExcludedTypes(patterns ...string) SearchOption {
	return func(o *SearchOptions) {
		o.ExcludedTypes = append(o.ExcludedTypes, patterns...)
	}
}

// WithAdmissionCap overrides the frontier admission cap.
//
// If n <= 0, uses default (50000).
func WithAdmissionCap(n int) SearchOption {
	return func(o *SearchOptions) {
		if n <= 0 {
			o.AdmissionCap = DefaultAdmissionCap
		} else {
			o.AdmissionCap = n
		}
	}
}

func applyOptions(opts []SearchOption) SearchOptions {
	options := DefaultSearchOptions()
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
