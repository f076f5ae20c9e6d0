// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package symbols

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sentinel errors for snapshot construction and queries.
var (
	// ErrUnknownType indicates a type name that the snapshot does not declare.
	ErrUnknownType = errors.New("unknown type")

	// ErrDuplicateType indicates a type declared twice.
	ErrDuplicateType = errors.New("duplicate type")

	// ErrDuplicateSymbol indicates two symbols with the same ID.
	ErrDuplicateSymbol = errors.New("duplicate symbol")

	// ErrInvalidMember indicates a member declaration that cannot be used.
	ErrInvalidMember = errors.New("invalid member")
)

// Document is the YAML form of a snapshot.
//
// Example:
//
//	types:
//	  - name: pkg.Foo
//	    supertypes: [pkg.Base]
//	    members:
//	      - {name: bar, kind: field, type: pkg.Bar}
//	      - {name: all, kind: method, type: "pkg.Bar[]", static: true}
//	symbols:
//	  - {name: foo, kind: variable, type: pkg.Foo}
type Document struct {
	Types   []TypeDecl   `yaml:"types" json:"types"`
	Symbols []SymbolDecl `yaml:"symbols" json:"symbols"`
}

// TypeDecl declares one reference type.
type TypeDecl struct {
	Name       string       `yaml:"name" json:"name"`
	Supertypes []string     `yaml:"supertypes,omitempty" json:"supertypes,omitempty"`
	Members    []MemberDecl `yaml:"members,omitempty" json:"members,omitempty"`
}

// MemberDecl declares a field or method of a type.
type MemberDecl struct {
	Name   string   `yaml:"name" json:"name"`
	Kind   Kind     `yaml:"kind" json:"kind"`
	Type   TypeRef  `yaml:"type" json:"type"`
	Static bool     `yaml:"static,omitempty" json:"static,omitempty"`
	Params []string `yaml:"params,omitempty" json:"params,omitempty"`
}

// SymbolDecl declares a symbol visible at the cursor: a local variable, a
// parameter, or a type reference (kind "type", with Type naming the type).
type SymbolDecl struct {
	ID   string  `yaml:"id,omitempty" json:"id,omitempty"`
	Name string  `yaml:"name" json:"name"`
	Kind Kind    `yaml:"kind" json:"kind"`
	Type TypeRef `yaml:"type" json:"type"`
}

// UnmarshalYAML reads a kind by name.
func (k *Kind) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("kind must be a string: %w", err)
	}
	*k = ParseKind(s)
	return nil
}

// UnmarshalYAML accepts either a scalar "pkg.Foo[]" or a {name, dims} mapping.
func (t *TypeRef) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*t = ParseTypeRef(value.Value)
		return nil
	}
	type plain TypeRef
	var p plain
	if err := value.Decode(&p); err != nil {
		return fmt.Errorf("type must be a string or {name, dims}: %w", err)
	}
	*t = TypeRef(p)
	return nil
}

// SnapshotStats summarizes a snapshot.
type SnapshotStats struct {
	Types   int `json:"types"`
	Symbols int `json:"symbols"`
	Visible int `json:"visible"`
}

// Snapshot is an immutable, in-memory Model.
//
// Description:
//
//	Holds a fixed set of types, their members, and the symbols visible at
//	a cursor. Member lists are flattened across supertypes at construction
//	so VisibleMembers is a map lookup plus a static filter. Assignability
//	walks the supertype graph breadth-first.
//
// Thread Safety: Safe for concurrent use. Nothing is mutated after
// NewSnapshot returns.
type Snapshot struct {
	types      map[string]*TypeDecl
	typeOrder  []string
	supertypes map[string][]string
	members    map[string][]*Symbol
	symbols    map[string]*Symbol
	visible    []string
}

// NewSnapshot builds a Snapshot from a document.
//
// Description:
//
//	Registers every type as a KindType symbol whose ID is the qualified
//	type name, every member under "Declaring#name" (methods add their
//	parameter list), and every visible symbol under its ID or "var:name".
//	Supertypes must be declared in the same document.
//
// Inputs:
//
//	doc - The parsed document.
//
// Outputs:
//
//	*Snapshot - The snapshot. Never nil on success.
//	error - Non-nil on duplicate or dangling declarations.
func NewSnapshot(doc Document) (*Snapshot, error) {
	s := &Snapshot{
		types:      make(map[string]*TypeDecl, len(doc.Types)),
		supertypes: make(map[string][]string, len(doc.Types)),
		members:    make(map[string][]*Symbol, len(doc.Types)),
		symbols:    make(map[string]*Symbol),
	}

	for i := range doc.Types {
		td := doc.Types[i]
		if td.Name == "" {
			return nil, fmt.Errorf("types[%d]: %w: empty name", i, ErrInvalidMember)
		}
		if _, dup := s.types[td.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateType, td.Name)
		}
		s.types[td.Name] = &td
		s.typeOrder = append(s.typeOrder, td.Name)
		s.supertypes[td.Name] = td.Supertypes

		ref := TypeRef{Name: td.Name}
		s.symbols[td.Name] = &Symbol{
			ID:     td.Name,
			Name:   ref.SimpleName(),
			Kind:   KindType,
			Type:   ref,
			Static: true,
		}
	}

	for _, name := range s.typeOrder {
		td := s.types[name]
		for _, super := range td.Supertypes {
			if _, ok := s.types[super]; !ok {
				return nil, fmt.Errorf("type %s: supertype %q: %w", name, super, ErrUnknownType)
			}
		}
		for j, md := range td.Members {
			sym, err := memberSymbol(name, md)
			if err != nil {
				return nil, fmt.Errorf("type %s: members[%d]: %w", name, j, err)
			}
			if _, dup := s.symbols[sym.ID]; dup {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateSymbol, sym.ID)
			}
			s.symbols[sym.ID] = sym
		}
	}

	for _, name := range s.typeOrder {
		s.members[name] = s.flattenMembers(name)
	}

	for i, sd := range doc.Symbols {
		id, err := s.addVisible(sd)
		if err != nil {
			return nil, fmt.Errorf("symbols[%d]: %w", i, err)
		}
		s.visible = append(s.visible, id)
	}

	return s, nil
}

// ParseSnapshot decodes YAML (or JSON, which is valid YAML) into a Snapshot.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	return NewSnapshot(doc)
}

// LoadSnapshot reads and parses a snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return ParseSnapshot(data)
}

func memberSymbol(declaring string, md MemberDecl) (*Symbol, error) {
	if md.Name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidMember)
	}
	if md.Type.IsZero() {
		return nil, fmt.Errorf("%w: %s has no type", ErrInvalidMember, md.Name)
	}
	if md.Type.Dims < 0 {
		return nil, fmt.Errorf("%w: %s has negative dims %d", ErrInvalidMember, md.Name, md.Type.Dims)
	}

	if md.Kind != KindField && md.Kind != KindMethod {
		return nil, fmt.Errorf("%w: %s has kind %s", ErrInvalidMember, md.Name, md.Kind)
	}
	if md.Kind == KindField && md.Type.IsVoid() {
		return nil, fmt.Errorf("%w: field %s is void", ErrInvalidMember, md.Name)
	}

	return &Symbol{
		ID:        memberID(declaring, md),
		Name:      md.Name,
		Kind:      md.Kind,
		Declaring: declaring,
		Type:      md.Type,
		Static:    md.Static,
		Params:    md.Params,
	}, nil
}

func (s *Snapshot) addVisible(sd SymbolDecl) (string, error) {
	if sd.Kind == KindType {
		name := sd.Type.Name
		if name == "" {
			name = sd.Name
		}
		if _, ok := s.types[name]; !ok {
			return "", fmt.Errorf("type reference %q: %w", name, ErrUnknownType)
		}
		return name, nil
	}

	if sd.Name == "" || sd.Type.IsZero() {
		return "", fmt.Errorf("%w: visible symbol needs name and type", ErrInvalidMember)
	}
	if sd.Type.Dims < 0 {
		return "", fmt.Errorf("%w: %s has negative dims %d", ErrInvalidMember, sd.Name, sd.Type.Dims)
	}
	if sd.Kind != KindVariable && sd.Kind != KindField && sd.Kind != KindMethod {
		return "", fmt.Errorf("%w: %s has kind %s", ErrInvalidMember, sd.Name, sd.Kind)
	}

	id := sd.ID
	if id == "" {
		id = "var:" + sd.Name
	}
	if _, dup := s.symbols[id]; dup {
		return "", fmt.Errorf("%w: %s", ErrDuplicateSymbol, id)
	}
	s.symbols[id] = &Symbol{
		ID:   id,
		Name: sd.Name,
		Kind: sd.Kind,
		Type: sd.Type,
	}
	return id, nil
}

// flattenMembers collects own members then inherited ones in breadth-first
// supertype order. A member hides an inherited one with the same name, kind
// and arity. Void methods are dropped.
func (s *Snapshot) flattenMembers(typeName string) []*Symbol {
	var out []*Symbol
	seen := make(map[string]bool)
	visited := map[string]bool{typeName: true}
	queue := []string{typeName}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, md := range s.types[current].Members {
			sym := s.symbols[memberID(current, md)]
			if sym.Type.IsVoid() {
				continue
			}
			key := fmt.Sprintf("%s/%d/%d", sym.Name, sym.Kind, len(sym.Params))
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, sym)
		}

		for _, super := range s.supertypes[current] {
			if visited[super] {
				continue
			}
			visited[super] = true
			queue = append(queue, super)
		}
	}
	return out
}

func memberID(declaring string, md MemberDecl) string {
	id := declaring + "#" + md.Name
	if md.Kind == KindMethod {
		id += "(" + strings.Join(md.Params, ",") + ")"
	}
	return id
}

// VisibleMembers implements MemberEnumerator.
//
// Arrays and primitives have no members. Undeclared reference types return
// ErrUnknownType.
func (s *Snapshot) VisibleMembers(t TypeRef, staticOnly bool) ([]*Symbol, error) {
	if t.Dims > 0 || t.IsPrimitive() {
		return nil, nil
	}
	all, ok := s.members[t.Name]
	if !ok {
		return nil, fmt.Errorf("members of %s: %w", t.Name, ErrUnknownType)
	}
	if !staticOnly {
		return all, nil
	}

	out := make([]*Symbol, 0, len(all))
	for _, m := range all {
		if m.Static {
			out = append(out, m)
		}
	}
	return out, nil
}

// IsAssignable implements TypeOracle.
//
// Description:
//
//	The expected value has base type to.Name and to.Dims+extraDims array
//	dimensions. from must have at least that many dimensions; surplus
//	dimensions are dereferenced. The remaining base types must be equal
//	primitives or related by the supertype graph.
func (s *Snapshot) IsAssignable(from, to TypeRef, extraDims int) (bool, error) {
	want := to.Dims + extraDims
	if from.Dims < want {
		return false, nil
	}
	if from.Name == to.Name {
		return true, nil
	}
	if IsPrimitiveName(from.Name) || IsPrimitiveName(to.Name) {
		return false, nil
	}
	if _, ok := s.types[from.Name]; !ok {
		return false, fmt.Errorf("assignability of %s: %w", from.Name, ErrUnknownType)
	}
	return s.isSubtype(from.Name, to.Name), nil
}

// isSubtype walks supertypes breadth-first. Cycles in malformed documents
// are tolerated by the visited set.
func (s *Snapshot) isSubtype(sub, super string) bool {
	visited := map[string]bool{sub: true}
	queue := []string{sub}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range s.supertypes[current] {
			if next == super {
				return true
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			queue = append(queue, next)
		}
	}
	return false
}

// Lookup implements Resolver.
func (s *Snapshot) Lookup(id string) (*Symbol, bool) {
	sym, ok := s.symbols[id]
	return sym, ok
}

// ResolveType implements Resolver. Primitive names always resolve.
func (s *Snapshot) ResolveType(name string) (TypeRef, bool) {
	ref := ParseTypeRef(name)
	if ref.Name == "" {
		return TypeRef{}, false
	}
	if IsPrimitiveName(ref.Name) {
		if ref.Name == "void" {
			return TypeRef{}, false
		}
		return ref, true
	}
	if _, ok := s.types[ref.Name]; !ok {
		return TypeRef{}, false
	}
	return ref, true
}

// Visible returns the IDs of the symbols declared visible at the cursor,
// in declaration order.
func (s *Snapshot) Visible() []string {
	out := make([]string, len(s.visible))
	copy(out, s.visible)
	return out
}

// TypeNames returns declared type names in declaration order.
func (s *Snapshot) TypeNames() []string {
	out := make([]string, len(s.typeOrder))
	copy(out, s.typeOrder)
	return out
}

// Stats returns counts for logging and API responses.
func (s *Snapshot) Stats() SnapshotStats {
	return SnapshotStats{
		Types:   len(s.types),
		Symbols: len(s.symbols),
		Visible: len(s.visible),
	}
}

var _ Model = (*Snapshot)(nil)
