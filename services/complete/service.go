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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/AleutianComplete/services/complete/completer"
	"github.com/AleutianAI/AleutianComplete/services/complete/snapshot"
	"github.com/AleutianAI/AleutianComplete/services/complete/symbols"
)

// ServiceVersion is the completion service version.
const ServiceVersion = "0.1.0"

// Service owns the snapshot store and the completer.
//
// Description:
//
//	Snapshots are loaded by absolute path and addressed by ID afterwards.
//	Chain searches resolve the snapshot, default the candidates to its
//	visible symbols, and delegate to the completer. When a watcher is
//	attached, every loaded file is watched and reloaded on change.
//
// Thread Safety: Safe for concurrent use.
type Service struct {
	store     *snapshot.Store
	watcher   *snapshot.Watcher
	completer *completer.Completer
	logger    *slog.Logger
	closed    atomic.Bool
}

// NewService creates a service over store and comp. watcher may be nil.
func NewService(store *snapshot.Store, comp *completer.Completer, watcher *snapshot.Watcher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		watcher:   watcher,
		completer: comp,
		logger:    logger.With(slog.String("component", "complete.service")),
	}
}

// LoadSnapshot loads (or returns the cached) snapshot at path.
//
// Errors:
//
//	ErrRelativePath - path is not absolute
//	ErrPathTraversal - path contains .. sequences
//	ErrServiceClosed - Close was called
//	read and parse errors from the snapshot store
func (s *Service) LoadSnapshot(ctx context.Context, path string) (*SnapshotResponse, error) {
	if s.closed.Load() {
		return nil, ErrServiceClosed
	}
	if err := validateSnapshotPath(path); err != nil {
		return nil, err
	}

	entry, err := s.store.Load(ctx, path)
	if err != nil {
		return nil, err
	}

	if s.watcher != nil {
		if err := s.watcher.Watch(entry.Path); err != nil {
			s.logger.Warn("snapshot will not be watched",
				slog.String("path", entry.Path),
				slog.String("error", err.Error()),
			)
		}
	}

	resp := snapshotResponse(entry.Info())
	return &resp, nil
}

// ListSnapshots returns every loaded snapshot ordered by path.
func (s *Service) ListSnapshots() []SnapshotResponse {
	infos := s.store.List()
	out := make([]SnapshotResponse, 0, len(infos))
	for _, info := range infos {
		out = append(out, snapshotResponse(info))
	}
	return out
}

// RemoveSnapshot unloads a snapshot and stops watching its file.
func (s *Service) RemoveSnapshot(id string) error {
	entry, ok := s.store.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	if err := s.store.Remove(id); err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
		}
		return err
	}
	if s.watcher != nil {
		s.watcher.Unwatch(entry.Path)
	}
	return nil
}

// Chains runs a completion search against a loaded snapshot.
//
// Errors:
//
//	ErrSnapshotNotFound - no snapshot with req.SnapshotID
//	ErrSnapshotStale - the snapshot file was removed
//	completer.ErrOverloaded - no search slot became free in time
func (s *Service) Chains(ctx context.Context, req ChainsRequest) (*ChainsResponse, error) {
	if s.closed.Load() {
		return nil, ErrServiceClosed
	}
	entry, err := s.entry(req.SnapshotID)
	if err != nil {
		return nil, err
	}

	candidates := req.Candidates
	if len(candidates) == 0 {
		candidates = entry.Snapshot.Visible()
	}

	creq := completer.Request{
		ExpectedTypes: req.ExpectedTypes,
		Candidates:    candidates,
		Prefix:        req.Prefix,
		ExcludedTypes: req.ExcludedTypes,
		MaxChains:     req.MaxChains,
		MinDepth:      req.MinDepth,
		MaxDepth:      req.MaxDepth,
	}
	if req.TimeoutMs > 0 {
		creq.Timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}

	result, err := s.completer.Complete(ctx, entry.Snapshot, creq)
	if err != nil {
		return nil, err
	}

	items := result.Items
	if items == nil {
		items = []completer.Item{}
	}
	return &ChainsResponse{
		Items:          items,
		Count:          len(items),
		Unresolved:     result.Unresolved,
		TimedOut:       result.TimedOut,
		Partial:        result.Cancelled || result.Abandoned,
		FrontierCapped: result.FrontierCapped,
		Visited:        result.Visited,
		LookupFailures: result.LookupFailures,
		DurationMs:     result.Duration.Milliseconds(),
	}, nil
}

// Members lists the members of a type as the search engine sees them.
//
// Errors:
//
//	ErrSnapshotNotFound - no snapshot with snapshotID
//	symbols.ErrUnknownType - the snapshot does not declare typeName
func (s *Service) Members(snapshotID, typeName string, staticOnly bool) (*MembersResponse, error) {
	entry, err := s.entry(snapshotID)
	if err != nil {
		return nil, err
	}

	t := symbols.ParseTypeRef(typeName)
	members, err := entry.Snapshot.VisibleMembers(t, staticOnly)
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []*symbols.Symbol{}
	}
	return &MembersResponse{
		Type:    t.String(),
		Static:  staticOnly,
		Members: members,
		Count:   len(members),
	}, nil
}

// Ready reports readiness and store counters.
func (s *Service) Ready() ReadyResponse {
	stats := s.store.Stats()
	return ReadyResponse{
		Ready:         !s.closed.Load(),
		SnapshotCount: stats.Entries,
		Store:         stats,
	}
}

// Close stops the watcher. Further loads and searches fail with
// ErrServiceClosed.
func (s *Service) Close() {
	if s.closed.Swap(true) {
		return
	}
	if s.watcher != nil {
		s.watcher.Stop()
	}
}

func (s *Service) entry(id string) (*snapshot.Entry, error) {
	entry, ok := s.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, id)
	}
	if entry.Stale() {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotStale, entry.Path)
	}
	return entry, nil
}

func validateSnapshotPath(path string) error {
	if !filepath.IsAbs(path) {
		return ErrRelativePath
	}
	if strings.Contains(path, "..") {
		return ErrPathTraversal
	}
	return nil
}
