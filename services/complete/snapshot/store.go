// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package snapshot keeps loaded symbol model snapshots for the service.
//
// A Store loads YAML snapshot files into symbols.Snapshot values, keyed by
// a stable ID derived from the absolute path. Concurrent loads of the same
// path are deduplicated. A Watcher reloads entries when their files change.
package snapshot

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/AleutianComplete/services/complete/symbols"
	"github.com/AleutianAI/AleutianComplete/services/complete/telemetry"
)

var (
	// ErrNotFound indicates no snapshot with the given ID is loaded.
	ErrNotFound = errors.New("snapshot not found")

	// ErrEmptyPath indicates an empty snapshot path.
	ErrEmptyPath = errors.New("snapshot path must not be empty")
)

// DefaultMaxSnapshots is the default store capacity.
const DefaultMaxSnapshots = 16

// Entry is one loaded snapshot.
type Entry struct {
	// ID is GenerateID(Path).
	ID string

	// Path is the absolute file path.
	Path string

	// Snapshot is the loaded model. Replaced, never mutated, on reload.
	Snapshot *symbols.Snapshot

	// LoadedAt is when the file was last loaded.
	LoadedAt time.Time

	stale      atomic.Bool
	lruElement *list.Element
}

// Stale reports whether the backing file was removed after loading.
func (e *Entry) Stale() bool {
	return e.stale.Load()
}

// Info is a summary of an entry.
type Info struct {
	ID       string                `json:"id"`
	Path     string                `json:"path"`
	LoadedAt time.Time             `json:"loaded_at"`
	Stale    bool                  `json:"stale"`
	Stats    symbols.SnapshotStats `json:"stats"`
}

// Info returns the entry summary.
func (e *Entry) Info() Info {
	return Info{
		ID:       e.ID,
		Path:     e.Path,
		LoadedAt: e.LoadedAt,
		Stale:    e.Stale(),
		Stats:    e.Snapshot.Stats(),
	}
}

// GenerateID returns the store ID for an absolute path: the first 16 hex
// characters of its SHA-256.
func GenerateID(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])[:16]
}

// Store holds loaded snapshots with least-recently-used eviction.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	lru        *list.List
	flight     singleflight.Group
	maxEntries int
	logger     *slog.Logger
	parse      func(ctx context.Context, path string) (*symbols.Snapshot, error)

	loadCount  int64
	evictCount int64
}

// NewStore creates a Store holding at most maxEntries snapshots.
// maxEntries <= 0 uses DefaultMaxSnapshots. A nil logger uses slog.Default().
func NewStore(maxEntries int, logger *slog.Logger) *Store {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxSnapshots
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		entries:    make(map[string]*Entry),
		lru:        list.New(),
		maxEntries: maxEntries,
		logger:     logger,
		parse:      parseFile,
	}
}

func parseFile(ctx context.Context, path string) (*symbols.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return symbols.LoadSnapshot(path)
}

// Load returns the snapshot at path, loading it if needed.
//
// Description:
//
//	Resolves path to an absolute path and returns the cached entry when
//	present and not stale. Otherwise parses the file; concurrent calls for
//	the same path share one parse.
//
// Inputs:
//
//	ctx - Checked before parsing.
//	path - Snapshot file path.
//
// Outputs:
//
//	*Entry - The loaded entry.
//	error - ErrEmptyPath, a context error, or a read/parse error.
func (s *Store) Load(ctx context.Context, path string) (*Entry, error) {
	abs, err := absPath(path)
	if err != nil {
		return nil, err
	}
	id := GenerateID(abs)

	if entry, ok := s.Get(id); ok && !entry.Stale() {
		return entry, nil
	}
	return s.load(ctx, id, abs)
}

// Reload re-parses the file behind an entry, replacing it on success. On
// failure the previous entry is kept.
func (s *Store) Reload(ctx context.Context, path string) (*Entry, error) {
	abs, err := absPath(path)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, GenerateID(abs), abs)
}

// load parses abs once for all concurrent callers. The shared parse ignores
// the first caller's cancellation.
func (s *Store) load(ctx context.Context, id, abs string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	shareCtx := context.WithoutCancel(ctx)

	result, err, shared := s.flight.Do(id, func() (interface{}, error) {
		ctx, span := telemetry.StartSpan(shareCtx, "aleutian.complete.snapshot", "Store.load",
			trace.WithAttributes(attribute.String("snapshot.path", abs)),
		)
		defer span.End()

		start := time.Now()
		snap, err := s.parse(ctx, abs)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("load snapshot %s: %w", abs, err)
		}

		entry := &Entry{
			ID:       id,
			Path:     abs,
			Snapshot: snap,
			LoadedAt: time.Now(),
		}
		s.put(entry)

		stats := snap.Stats()
		span.SetAttributes(
			attribute.Int("snapshot.types", stats.Types),
			attribute.Int("snapshot.symbols", stats.Symbols),
		)
		s.logger.Info("snapshot loaded",
			slog.String("id", id),
			slog.String("path", abs),
			slog.Int("types", stats.Types),
			slog.Int("symbols", stats.Symbols),
			slog.Duration("duration", time.Since(start)),
		)
		telemetry.SetSpanOK(span)
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("snapshot load shared", slog.String("id", id))
	}
	return result.(*Entry), nil
}

// put inserts or replaces an entry and evicts past capacity.
func (s *Store) put(entry *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.entries[entry.ID]; ok {
		s.lru.Remove(old.lruElement)
	}
	entry.lruElement = s.lru.PushFront(entry.ID)
	s.entries[entry.ID] = entry
	s.loadCount++

	for s.lru.Len() > s.maxEntries {
		back := s.lru.Back()
		victim := back.Value.(string)
		s.lru.Remove(back)
		delete(s.entries, victim)
		s.evictCount++
		s.logger.Info("snapshot evicted", slog.String("id", victim))
	}
}

// Get returns the entry with id and marks it recently used.
func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	s.lru.MoveToFront(entry.lruElement)
	return entry, true
}

// List returns summaries of all entries ordered by path.
func (s *Store) List() []Info {
	s.mu.Lock()
	out := make([]Info, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.Info())
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Remove drops the entry with id. Returns ErrNotFound if absent.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.lru.Remove(entry.lruElement)
	delete(s.entries, id)
	return nil
}

// MarkStale flags the entry for path as stale. The next Load re-parses it.
func (s *Store) MarkStale(path string) bool {
	abs, err := absPath(path)
	if err != nil {
		return false
	}

	s.mu.Lock()
	entry, ok := s.entries[GenerateID(abs)]
	s.mu.Unlock()
	if !ok {
		return false
	}
	entry.stale.Store(true)
	return true
}

// Has reports whether path is loaded.
func (s *Store) Has(path string) bool {
	abs, err := absPath(path)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[GenerateID(abs)]
	return ok
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// StoreStats reports store counters.
type StoreStats struct {
	Entries   int   `json:"entries"`
	Loads     int64 `json:"loads"`
	Evictions int64 `json:"evictions"`
}

// Stats returns the store counters.
func (s *Store) Stats() StoreStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StoreStats{
		Entries:   len(s.entries),
		Loads:     s.loadCount,
		Evictions: s.evictCount,
	}
}

func absPath(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return abs, nil
}
