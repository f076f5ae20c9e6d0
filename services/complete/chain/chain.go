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
	"strings"
)

// Chain is an ordered, duplicate-free sequence of Elements.
//
// Chains are treated as immutable; Append returns a copy.
type Chain struct {
	// Elements are the hops from the entry point to the final access.
	Elements []*Element

	// Expected is the expected type the chain qualified under. Zero until
	// the chain is recorded.
	Expected ExpectedType

	// ExpectedDims is the array dimension in effect when the chain
	// qualified.
	ExpectedDims int
}

// NewChain returns a single-element chain.
func NewChain(e *Element) *Chain {
	return &Chain{Elements: []*Element{e}}
}

// Len returns the number of hops.
func (c *Chain) Len() int {
	return len(c.Elements)
}

// Tail returns the last hop, or nil for an empty chain.
func (c *Chain) Tail() *Element {
	if len(c.Elements) == 0 {
		return nil
	}
	return c.Elements[len(c.Elements)-1]
}

// Contains reports whether e already occurs in the chain.
func (c *Chain) Contains(e *Element) bool {
	for _, x := range c.Elements {
		if x == e {
			return true
		}
	}
	return false
}

// Append returns a new chain with e added at the end.
func (c *Chain) Append(e *Element) *Chain {
	elems := make([]*Element, len(c.Elements), len(c.Elements)+1)
	copy(elems, c.Elements)
	return &Chain{Elements: append(elems, e)}
}

// qualified returns a copy recording the expected type it matched.
func (c *Chain) qualified(x ExpectedType) *Chain {
	return &Chain{
		Elements:     c.Elements,
		Expected:     x,
		ExpectedDims: x.Dims(),
	}
}

// Names returns the hop names in order.
func (c *Chain) Names() []string {
	out := make([]string, len(c.Elements))
	for i, e := range c.Elements {
		out[i] = e.Name()
	}
	return out
}

// String joins the hop names with dots.
func (c *Chain) String() string {
	return strings.Join(c.Names(), ".")
}
