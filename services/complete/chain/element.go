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
	"github.com/AleutianAI/AleutianComplete/services/complete/symbols"
)

// ElementKind classifies a chain hop.
type ElementKind int

const (
	// ElementType is a bare type reference. It only ever starts a chain and
	// can never end one.
	ElementType ElementKind = iota

	// ElementField is a field or variable access.
	ElementField

	// ElementMethod is a method invocation.
	ElementMethod
)

// String returns the kind name.
func (k ElementKind) String() string {
	switch k {
	case ElementType:
		return "type"
	case ElementField:
		return "field"
	case ElementMethod:
		return "method"
	default:
		return "unknown"
	}
}

// Element is one hop of a chain.
//
// Two Elements are equal iff they wrap the same symbol. The EdgeCache
// guarantees one Element per symbol ID, so pointer comparison is identity.
// Elements are immutable.
type Element struct {
	sym  *symbols.Symbol
	kind ElementKind
}

func newElement(sym *symbols.Symbol) *Element {
	kind := ElementField
	switch sym.Kind {
	case symbols.KindType:
		kind = ElementType
	case symbols.KindMethod:
		kind = ElementMethod
	}
	return &Element{sym: sym, kind: kind}
}

// Kind returns the hop kind.
func (e *Element) Kind() ElementKind { return e.kind }

// Name returns the source name of the wrapped symbol.
func (e *Element) Name() string { return e.sym.Name }

// Type returns the value type: the field type, the method return type, or
// the referenced type for ElementType.
func (e *Element) Type() symbols.TypeRef { return e.sym.Type }

// Declaring returns the declaring type name, empty for locals.
func (e *Element) Declaring() string { return e.sym.Declaring }

// Static reports whether the symbol is static.
func (e *Element) Static() bool { return e.sym.Static }

// Symbol returns the wrapped symbol.
func (e *Element) Symbol() *symbols.Symbol { return e.sym }

// String returns the symbol ID.
func (e *Element) String() string { return e.sym.ID }

// EdgeCache maps symbol IDs to their single Element.
//
// Thread Safety: Not safe for concurrent use. Owned by one Finder.
type EdgeCache struct {
	elements map[string]*Element
}

// NewEdgeCache returns an empty cache.
func NewEdgeCache() *EdgeCache {
	return &EdgeCache{elements: make(map[string]*Element)}
}

// Get returns the Element for sym, creating it on first use.
func (c *EdgeCache) Get(sym *symbols.Symbol) *Element {
	if e, ok := c.elements[sym.ID]; ok {
		return e
	}
	e := newElement(sym)
	c.elements[sym.ID] = e
	return e
}

// Len returns the number of cached Elements.
func (c *EdgeCache) Len() int {
	return len(c.elements)
}
