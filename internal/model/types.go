// Package model defines the resolved type graph produced by the parser and
// consumed by the generator.
package model

import (
	"strings"
)

// TypeKind represents the variant of a FHIR type.
type TypeKind string

const (
	KindPrimitive TypeKind = "primitive"
	KindComplex   TypeKind = "complex"
)

// Unbounded is the Max of a property that may repeat without limit.
const Unbounded = -1

// Type is a named FHIR type. Identity is the (URL, Name) pair: inline types
// share the URL of the type that owns them and are only reachable through
// the owning property.
type Type struct {
	Kind       TypeKind   // Type variant
	URL        string     // Canonical url of the defining StructureDefinition
	Name       string     // Type name (e.g., "Patient", "PatientContact")
	Inline     bool       // Whether the type was synthesized for a nested structure
	Base       *Type      // Resolved base type, if any
	Properties []Property // Properties in declaration order (complex types only)
}

// Property is one field of a complex type.
type Property struct {
	Name  string  // Property name without choice marker
	Min   int     // Minimum cardinality
	Max   int     // Maximum cardinality, Unbounded for "*"
	Types []*Type // Candidate types in declared order
}

// Key identifies a type.
type Key struct {
	URL  string
	Name string
}

// Key returns the identity of t.
func (t *Type) Key() Key {
	return Key{URL: t.URL, Name: t.Name}
}

// IsPrimitive reports whether t is a primitive type.
func (t *Type) IsPrimitive() bool { return t.Kind == KindPrimitive }

// IsComplex reports whether t is a complex type.
func (t *Type) IsComplex() bool { return t.Kind == KindComplex }

// Module returns the name of the generated module t belongs to: "primitives"
// for primitive types, else the lower-cased last segment of its url.
func (t *Type) Module() string {
	if t.IsPrimitive() {
		return "primitives"
	}
	return strings.ToLower(t.URL[strings.LastIndex(t.URL, "/")+1:])
}

// Dependencies returns the base type followed by every candidate type of
// every property, without duplicates, in first-seen order. The result may
// include t itself for self-referencing structures.
func (t *Type) Dependencies() []*Type {
	var deps []*Type
	seen := make(map[*Type]bool)
	add := func(d *Type) {
		if d == nil || seen[d] {
			return
		}
		seen[d] = true
		deps = append(deps, d)
	}

	add(t.Base)
	for _, p := range t.Properties {
		for _, c := range p.Types {
			add(c)
		}
	}
	return deps
}

// Ancestors returns the base chain of t, nearest first.
func (t *Type) Ancestors() []*Type {
	var out []*Type
	for b := t.Base; b != nil; b = b.Base {
		out = append(out, b)
	}
	return out
}

// Property returns the property called name.
func (t *Type) Property(name string) (Property, bool) {
	for _, p := range t.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// IsChoice reports whether the property admits more than one type.
func (p Property) IsChoice() bool {
	return len(p.Types) > 1
}

// IsList reports whether the property may hold more than one value.
func (p Property) IsList() bool {
	return p.Max == Unbounded || p.Max > 1
}

// IsOptional reports whether the property may be absent.
func (p Property) IsOptional() bool {
	return p.Min == 0
}

// IsProhibited reports whether the property was constrained away (max 0).
func (p Property) IsProhibited() bool {
	return p.Max == 0
}

// TypeNames returns the names of the candidate types.
func (p Property) TypeNames() []string {
	names := make([]string, len(p.Types))
	for i, c := range p.Types {
		names[i] = c.Name
	}
	return names
}
