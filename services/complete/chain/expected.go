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

// ExpectedType is the type a completed chain must produce.
//
// It is either a primitive (Primitive set, Type zero) or a reference type
// whose Dims are the array dimensions the value must carry. ExpectedType is
// comparable and used as part of cache keys.
type ExpectedType struct {
	// Primitive is the primitive type name, e.g. "int". Empty for references.
	Primitive string

	// Type is the reference type, including array dimensions.
	Type symbols.TypeRef
}

// PrimitiveExpected expects the named primitive.
func PrimitiveExpected(name string) ExpectedType {
	return ExpectedType{Primitive: name}
}

// ReferenceExpected expects a value assignable to t.
func ReferenceExpected(t symbols.TypeRef) ExpectedType {
	return ExpectedType{Type: t}
}

// ExpectedFor picks the primitive or reference form for t.
func ExpectedFor(t symbols.TypeRef) ExpectedType {
	if t.IsPrimitive() {
		return PrimitiveExpected(t.Name)
	}
	return ReferenceExpected(t)
}

// IsPrimitive reports whether a primitive is expected.
func (x ExpectedType) IsPrimitive() bool {
	return x.Primitive != ""
}

// Dims returns the expected array dimensions. Zero for primitives.
func (x ExpectedType) Dims() int {
	if x.IsPrimitive() {
		return 0
	}
	return x.Type.Dims
}

// base returns the reference type with its dimensions removed.
func (x ExpectedType) base() symbols.TypeRef {
	return symbols.TypeRef{Name: x.Type.Name}
}

// String renders the expected type, e.g. "int" or "pkg.Foo[]".
func (x ExpectedType) String() string {
	if x.IsPrimitive() {
		return x.Primitive
	}
	return x.Type.String()
}
