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
	"log/slog"
	"strings"
)

// CollectEntryPoints turns visible symbol IDs into chain seeds.
//
// Description:
//
//	Resolves each candidate through the model, keeps those whose name starts
//	with tokenPrefix (case-sensitive) and that are not excluded, and wraps
//	them through the Finder's EdgeCache so later expansion reuses the same
//	Elements. Duplicates are dropped; order of first appearance is kept.
//
// Inputs:
//
//	candidateIDs - Symbol IDs visible at the cursor.
//	tokenPrefix - Name prefix typed so far. Blank means no filtering.
//	excluded - Type name prefixes whose symbols may not appear.
//
// Outputs:
//
//	[]*Element - Seeds in candidate order. Never nil.
//
// Limitations:
//
//	Unresolvable candidates are skipped silently (debug-logged).
func (f *Finder) CollectEntryPoints(candidateIDs []string, tokenPrefix string, excluded []string) []*Element {
	out := make([]*Element, 0, len(candidateIDs))
	seen := make(map[*Element]bool, len(candidateIDs))
	prefix := strings.TrimSpace(tokenPrefix)

	for _, id := range candidateIDs {
		sym, ok := f.model.Lookup(id)
		if !ok || sym == nil {
			f.logger.Debug("entry point unresolved", slog.String("candidate", id))
			continue
		}
		if prefix != "" && !strings.HasPrefix(sym.Name, prefix) {
			continue
		}

		e := f.edges.Get(sym)
		if seen[e] || isExcluded(e, excluded) {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

// isExcluded reports whether any pattern is a prefix of the element's
// declaring type, or of the type itself for a type reference.
func isExcluded(e *Element, patterns []string) bool {
	for _, p := range patterns {
		if p == "" {
			continue
		}
		if d := e.Declaring(); d != "" && strings.HasPrefix(d, p) {
			return true
		}
		if e.Kind() == ElementType && strings.HasPrefix(e.Type().Name, p) {
			return true
		}
	}
	return false
}
