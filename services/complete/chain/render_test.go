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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AleutianAI/AleutianComplete/services/complete/symbols"
)

func TestRender(t *testing.T) {
	edges := NewEdgeCache()
	getFoo := edges.Get(&symbols.Symbol{ID: "m", Name: "getFoo", Kind: symbols.KindMethod, Type: symbols.TypeRef{Name: "pkg.Foo"}})
	bars := edges.Get(&symbols.Symbol{ID: "b", Name: "bars", Kind: symbols.KindField, Type: symbols.TypeRef{Name: "pkg.Bar", Dims: 2}})
	find := edges.Get(&symbols.Symbol{ID: "f", Name: "find", Kind: symbols.KindMethod, Params: []string{"key", "fallback"}, Type: symbols.TypeRef{Name: "pkg.Bar"}})
	typ := edges.Get(&symbols.Symbol{ID: "pkg.Util", Name: "Util", Kind: symbols.KindType, Type: symbols.TypeRef{Name: "pkg.Util"}})

	tests := []struct {
		name  string
		chain *Chain
		want  Rendered
	}{
		{"empty", &Chain{}, Rendered{}},
		{"single method", NewChain(getFoo), Rendered{Title: "getFoo()", Body: "getFoo()"}},
		{"field after method", NewChain(getFoo).Append(bars), Rendered{Title: "bars", Body: "getFoo().bars[][]"}},
		{
			name:  "partial dereference",
			chain: &Chain{Elements: []*Element{getFoo, bars}, ExpectedDims: 1},
			want:  Rendered{Title: "bars", Body: "getFoo().bars[]"},
		},
		{
			name:  "no dereference when dims agree",
			chain: &Chain{Elements: []*Element{getFoo, bars}, ExpectedDims: 2},
			want:  Rendered{Title: "bars", Body: "getFoo().bars"},
		},
		{"type then method with params", NewChain(typ).Append(find), Rendered{Title: "find(key, fallback)", Body: "Util.find(key, fallback)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.chain))
		})
	}
}

func TestChain_AppendDoesNotAlias(t *testing.T) {
	edges := NewEdgeCache()
	a := edges.Get(&symbols.Symbol{ID: "a", Name: "a", Kind: symbols.KindField})
	b := edges.Get(&symbols.Symbol{ID: "b", Name: "b", Kind: symbols.KindField})
	c := edges.Get(&symbols.Symbol{ID: "c", Name: "c", Kind: symbols.KindField})

	base := NewChain(a)
	left := base.Append(b)
	right := base.Append(c)

	assert.Equal(t, "a", base.String())
	assert.Equal(t, "a.b", left.String())
	assert.Equal(t, "a.c", right.String())
	assert.True(t, left.Contains(a))
	assert.False(t, left.Contains(c))
	assert.Same(t, b, left.Tail())
	assert.Nil(t, (&Chain{}).Tail())
}

func TestEdgeCache_SingleElementPerSymbol(t *testing.T) {
	edges := NewEdgeCache()
	first := edges.Get(&symbols.Symbol{ID: "pkg.A#x", Name: "x", Kind: symbols.KindField})
	second := edges.Get(&symbols.Symbol{ID: "pkg.A#x", Name: "x", Kind: symbols.KindField})

	assert.Same(t, first, second)
	assert.Equal(t, 1, edges.Len())
}

func TestExpectedType(t *testing.T) {
	assert.Equal(t, PrimitiveExpected("int"), ExpectedFor(symbols.TypeRef{Name: "int"}))
	assert.Equal(t, ReferenceExpected(symbols.TypeRef{Name: "int", Dims: 1}), ExpectedFor(symbols.TypeRef{Name: "int", Dims: 1}))

	x := ref("pkg.Foo[][]")
	assert.False(t, x.IsPrimitive())
	assert.Equal(t, 2, x.Dims())
	assert.Equal(t, "pkg.Foo[][]", x.String())
	assert.Equal(t, 0, PrimitiveExpected("int").Dims())
}

func TestSearchOptions_Clamping(t *testing.T) {
	tests := []struct {
		name string
		opts []SearchOption
		want SearchOptions
	}{
		{"defaults", nil, DefaultSearchOptions()},
		{
			name: "clamped",
			opts: []SearchOption{WithMaxChains(5000), WithDepth(0, 99), WithAdmissionCap(-1)},
			want: SearchOptions{MaxChains: MaxChainsLimit, MinDepth: 1, MaxDepth: MaxDepthLimit, AdmissionCap: DefaultAdmissionCap},
		},
		{
			name: "negative max chains uses default, inverted depth kept",
			opts: []SearchOption{WithMaxChains(-1), WithDepth(5, 2), WithAdmissionCap(10)},
			want: SearchOptions{MaxChains: DefaultMaxChains, MinDepth: 5, MaxDepth: 2, AdmissionCap: 10},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, applyOptions(tt.opts))
		})
	}
}
