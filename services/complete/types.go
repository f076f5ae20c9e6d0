// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package complete

import (
	"time"

	"github.com/AleutianAI/AleutianComplete/services/complete/completer"
	"github.com/AleutianAI/AleutianComplete/services/complete/snapshot"
	"github.com/AleutianAI/AleutianComplete/services/complete/symbols"
)

// LoadSnapshotRequest is the request body for POST /v1/complete/snapshots.
type LoadSnapshotRequest struct {
	// Path is the absolute path of a YAML or JSON snapshot file. Required.
	Path string `json:"path" binding:"required"`
}

// SnapshotResponse describes one loaded snapshot.
type SnapshotResponse struct {
	// ID is the snapshot ID used by other endpoints.
	ID string `json:"id"`

	// Path is the absolute path of the snapshot file.
	Path string `json:"path"`

	// Types is the number of declared types.
	Types int `json:"types"`

	// Symbols is the number of member and visible symbols.
	Symbols int `json:"symbols"`

	// Visible is the number of symbols visible at the cursor.
	Visible int `json:"visible"`

	// Stale is true if the file was removed after loading.
	Stale bool `json:"stale"`

	// LoadedAt is when the file was last parsed.
	LoadedAt time.Time `json:"loaded_at"`
}

// ListSnapshotsResponse is the response for GET /v1/complete/snapshots.
type ListSnapshotsResponse struct {
	Snapshots []SnapshotResponse `json:"snapshots"`
	Count     int                `json:"count"`
}

// ChainsRequest is the request body for POST /v1/complete/chains.
type ChainsRequest struct {
	// SnapshotID selects the symbol model. Required.
	SnapshotID string `json:"snapshot_id" binding:"required"`

	// ExpectedTypes are the types the completion must produce, in priority
	// order. Array types use a "[]" suffix. Required.
	ExpectedTypes []string `json:"expected_types" binding:"required,min=1,dive,required"`

	// Candidates are the IDs of symbols visible at the cursor. Empty means
	// every visible symbol of the snapshot.
	Candidates []string `json:"candidates"`

	// Prefix is the token typed so far.
	Prefix string `json:"prefix"`

	// ExcludedTypes are type name prefixes never used in a chain.
	ExcludedTypes []string `json:"excluded_types"`

	// MaxChains limits the number of chains. Default from config.
	MaxChains *int `json:"max_chains" binding:"omitempty,gte=0,lte=1000"`

	// MinDepth is the minimum chain length. Default from config.
	MinDepth *int `json:"min_depth" binding:"omitempty,gte=1,lte=10"`

	// MaxDepth is the maximum chain length. Default from config.
	MaxDepth *int `json:"max_depth" binding:"omitempty,gte=1,lte=10"`

	// TimeoutMs overrides the configured search timeout.
	TimeoutMs int `json:"timeout_ms" binding:"omitempty,gte=1,lte=60000"`
}

// ChainsResponse is the response for POST /v1/complete/chains.
type ChainsResponse struct {
	// Items are the rendered chains in discovery order.
	Items []completer.Item `json:"items"`

	// Count is len(Items).
	Count int `json:"count"`

	// Unresolved lists expected type names the snapshot does not know.
	Unresolved []string `json:"unresolved,omitempty"`

	// TimedOut is true if the search budget ran out.
	TimedOut bool `json:"timed_out"`

	// Partial is true if the result may be missing chains.
	Partial bool `json:"partial"`

	// FrontierCapped is true if the admission cap was hit.
	FrontierCapped bool `json:"frontier_capped"`

	// Visited is the number of partial chains examined.
	Visited int `json:"visited"`

	// LookupFailures counts skipped model lookups.
	LookupFailures int `json:"lookup_failures,omitempty"`

	// DurationMs is the search time in milliseconds.
	DurationMs int64 `json:"duration_ms"`
}

// MembersRequest holds the query parameters for GET /v1/complete/members.
type MembersRequest struct {
	SnapshotID string `form:"snapshot_id" binding:"required"`
	Type       string `form:"type" binding:"required"`
	Static     bool   `form:"static"`
}

// MembersResponse is the response for GET /v1/complete/members.
type MembersResponse struct {
	Type    string            `json:"type"`
	Static  bool              `json:"static"`
	Members []*symbols.Symbol `json:"members"`
	Count   int               `json:"count"`
}

// HealthResponse is the response for GET /v1/complete/health.
type HealthResponse struct {
	// Status is "healthy".
	Status string `json:"status"`

	// Version is the service version.
	Version string `json:"version"`
}

// ReadyResponse is the response for GET /v1/complete/ready.
type ReadyResponse struct {
	// Ready is true once the service accepts searches.
	Ready bool `json:"ready"`

	// SnapshotCount is the number of loaded snapshots.
	SnapshotCount int `json:"snapshot_count"`

	// Store holds snapshot store counters.
	Store snapshot.StoreStats `json:"store"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is the error code.
	Code string `json:"code,omitempty"`
}

func snapshotResponse(info snapshot.Info) SnapshotResponse {
	return SnapshotResponse{
		ID:       info.ID,
		Path:     info.Path,
		Types:    info.Stats.Types,
		Symbols:  info.Stats.Symbols,
		Visible:  info.Stats.Visible,
		Stale:    info.Stale,
		LoadedAt: info.LoadedAt,
	}
}
