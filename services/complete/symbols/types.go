// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package symbols defines the boundary between the chain completion engine and
// the host symbol model.
//
// The engine never sees compiler bindings. It asks a Model four things: which
// members a type exposes, what a member produces, whether it is static, and
// whether one type is assignable to another. Any host (an indexer, a language
// server adapter, or the YAML-backed Snapshot in this package) can answer
// those questions.
//
// # Thread Safety
//
// Implementations of Model must be safe for concurrent reads. Snapshot is
// immutable after construction.
package symbols

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies what a symbol is.
type Kind int

const (
	// KindUnknown indicates an unrecognized symbol kind.
	KindUnknown Kind = iota

	// KindType is a type name used as a qualifier, e.g. a class name before a
	// static member access.
	KindType

	// KindField is a field of a type.
	KindField

	// KindMethod is a method of a type.
	KindMethod

	// KindVariable is a local variable or parameter visible at the cursor.
	KindVariable
)

var kindNames = map[Kind]string{
	KindUnknown:  "unknown",
	KindType:     "type",
	KindField:    "field",
	KindMethod:   "method",
	KindVariable: "variable",
}

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON encodes the kind as its name.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON accepts the kind name or, for backward compatibility, an int.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*k = ParseKind(s)
		return nil
	}

	var i int
	if err := json.Unmarshal(data, &i); err != nil {
		return fmt.Errorf("Kind must be string or int: %w", err)
	}
	*k = Kind(i)
	return nil
}

// ParseKind converts a kind name to a Kind. Unknown names map to KindUnknown.
func ParseKind(s string) Kind {
	s = strings.ToLower(strings.TrimSpace(s))
	for kind, name := range kindNames {
		if name == s {
			return kind
		}
	}
	return KindUnknown
}

// primitiveNames are the built-in value types. void is included so that a
// void-returning symbol never matches a reference expectation.
var primitiveNames = map[string]bool{
	"boolean": true,
	"byte":    true,
	"char":    true,
	"short":   true,
	"int":     true,
	"long":    true,
	"float":   true,
	"double":  true,
	"void":    true,
}

// IsPrimitiveName reports whether name is a primitive type name.
func IsPrimitiveName(name string) bool {
	return primitiveNames[name]
}

// TypeRef describes a type: a qualified name plus array dimensions.
//
// Example: "pkg.Foo" with Dims 2 is pkg.Foo[][].
type TypeRef struct {
	// Name is the fully qualified type name, or a primitive name.
	Name string `json:"name" yaml:"name"`

	// Dims is the number of array dimensions.
	Dims int `json:"dims,omitempty" yaml:"dims,omitempty"`
}

// ParseTypeRef parses "pkg.Foo[][]" into TypeRef{Name: "pkg.Foo", Dims: 2}.
func ParseTypeRef(s string) TypeRef {
	s = strings.TrimSpace(s)
	dims := 0
	for strings.HasSuffix(s, "[]") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "[]"))
		dims++
	}
	return TypeRef{Name: s, Dims: dims}
}

// IsPrimitive reports whether t is a non-array primitive.
func (t TypeRef) IsPrimitive() bool {
	return t.Dims == 0 && primitiveNames[t.Name]
}

// IsVoid reports whether t is void.
func (t TypeRef) IsVoid() bool {
	return t.Dims == 0 && t.Name == "void"
}

// IsZero reports whether t is unset.
func (t TypeRef) IsZero() bool {
	return t.Name == ""
}

// Elem returns the type with one array dimension removed.
func (t TypeRef) Elem() TypeRef {
	if t.Dims == 0 {
		return t
	}
	return TypeRef{Name: t.Name, Dims: t.Dims - 1}
}

// SimpleName returns the last dotted segment of the name.
func (t TypeRef) SimpleName() string {
	if i := strings.LastIndexByte(t.Name, '.'); i >= 0 {
		return t.Name[i+1:]
	}
	return t.Name
}

// String renders the type with [] suffixes.
func (t TypeRef) String() string {
	return t.Name + strings.Repeat("[]", t.Dims)
}

// Symbol is a resolved symbol of the host model.
type Symbol struct {
	// ID uniquely identifies the symbol within one model snapshot.
	// Example: "pkg.Foo#getBar()"
	ID string `json:"id"`

	// Name is the simple source name.
	Name string `json:"name"`

	// Kind is what the symbol is.
	Kind Kind `json:"kind"`

	// Declaring is the qualified name of the declaring type. Empty for
	// variables and for top-level types.
	Declaring string `json:"declaring,omitempty"`

	// Type is the value type produced by the symbol: the field or variable
	// type, the method return type, or the type itself for KindType.
	Type TypeRef `json:"type"`

	// Static is true for static members and for type references.
	Static bool `json:"static,omitempty"`

	// Params holds parameter names for methods, used for rendering only.
	Params []string `json:"params,omitempty"`
}

// String returns the symbol ID.
func (s *Symbol) String() string {
	if s == nil {
		return "<nil>"
	}
	return s.ID
}

// MemberEnumerator lists the members usable as the next hop of a chain.
type MemberEnumerator interface {
	// VisibleMembers returns the fields and non-void methods of t.
	// When staticOnly is true only static members are returned.
	VisibleMembers(t TypeRef, staticOnly bool) ([]*Symbol, error)
}

// TypeOracle answers assignability questions.
type TypeOracle interface {
	// IsAssignable reports whether a value of type from can be used where a
	// value of type to with extraDims array dimensions is expected.
	IsAssignable(from, to TypeRef, extraDims int) (bool, error)
}

// Resolver turns raw identifiers into symbols and types.
type Resolver interface {
	// Lookup resolves a symbol ID. ok is false when the ID is unknown.
	Lookup(id string) (*Symbol, bool)

	// ResolveType resolves a type name, possibly with [] suffixes.
	ResolveType(name string) (TypeRef, bool)
}

// Model is the full capability set the completion engine needs.
type Model interface {
	MemberEnumerator
	TypeOracle
	Resolver
}
