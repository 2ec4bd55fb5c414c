// Package definitions holds the records read from FHIR definition packages:
// StructureDefinitions with their flattened element lists, the adjacent
// resource kinds that ship in the same bundles, and the Path type used to
// address elements.
package definitions

// NodeKind tags the variant of a Node.
type NodeKind string

const (
	KindBase                  NodeKind = "Base"
	KindResource              NodeKind = "Resource"
	KindElement               NodeKind = "Element"
	KindStructureDefinition   NodeKind = "StructureDefinition"
	KindBundle                NodeKind = "Bundle"
	KindCodeSystem            NodeKind = "CodeSystem"
	KindValueSet              NodeKind = "ValueSet"
	KindCapabilityStatement   NodeKind = "CapabilityStatement"
	KindOperationDefinition   NodeKind = "OperationDefinition"
	KindCompartmentDefinition NodeKind = "CompartmentDefinition"
	KindElementDefinition     NodeKind = "ElementDefinition"
	KindTypeRef               NodeKind = "ElementDefinition.Type"
)

// parents declares the lineage of every variant, most specific first.
var parents = map[NodeKind]NodeKind{
	KindResource:              KindBase,
	KindElement:               KindBase,
	KindStructureDefinition:   KindResource,
	KindBundle:                KindResource,
	KindCodeSystem:            KindResource,
	KindValueSet:              KindResource,
	KindCapabilityStatement:   KindResource,
	KindOperationDefinition:   KindResource,
	KindCompartmentDefinition: KindResource,
	KindElementDefinition:     KindElement,
	KindTypeRef:               KindElement,
}

// Parent returns the next more general variant of k.
func (k NodeKind) Parent() (NodeKind, bool) {
	p, ok := parents[k]
	return p, ok
}

// Node is implemented by every record that can be dispatched on.
type Node interface {
	NodeKind() NodeKind
}

// Resource is a top-level record.
type Resource interface {
	Node
	ResourceID() string
}

// StructureKind is the `kind` of a StructureDefinition.
type StructureKind string

const (
	StructurePrimitiveType StructureKind = "primitive-type"
	StructureComplexType   StructureKind = "complex-type"
	StructureResource      StructureKind = "resource"
	StructureLogical       StructureKind = "logical"
)

// Derivation is how a StructureDefinition relates to its base.
type Derivation string

const (
	DerivationSpecialization Derivation = "specialization"
	DerivationConstraint     Derivation = "constraint"
)

// BackboneElement is the type code of an element whose value is an inline
// structure described by its descendant elements.
const BackboneElement = "BackboneElement"

// StructureDefinition describes a type or a profile on a type.
type StructureDefinition struct {
	ID             string        `json:"id"`
	URL            string        `json:"url"`
	Name           string        `json:"name"`
	Type           string        `json:"type"`
	Kind           StructureKind `json:"kind"`
	Abstract       bool          `json:"abstract"`
	Derivation     Derivation    `json:"derivation,omitempty"`
	BaseDefinition string        `json:"baseDefinition,omitempty"`
	Snapshot       Snapshot      `json:"snapshot"`
}

// Snapshot is the inheritance-expanded element list.
type Snapshot struct {
	Element []ElementDefinition `json:"element"`
}

func (*StructureDefinition) NodeKind() NodeKind    { return KindStructureDefinition }
func (s *StructureDefinition) ResourceID() string { return s.ID }

// ElementDefinition is one row of a flattened element tree.
type ElementDefinition struct {
	ID      string       `json:"id"`
	Path    Path         `json:"path"`
	Min     int          `json:"min"`
	Max     string       `json:"max"`
	Base    *ElementBase `json:"base,omitempty"`
	Comment string       `json:"comment,omitempty"`
	Type    []TypeRef    `json:"type,omitempty"`
}

// ElementBase records where an inherited element was first defined.
type ElementBase struct {
	Path string `json:"path"`
	Min  int    `json:"min"`
	Max  string `json:"max"`
}

func (*ElementDefinition) NodeKind() NodeKind { return KindElementDefinition }

// Codes returns the declared type codes in order.
func (e *ElementDefinition) Codes() []string {
	codes := make([]string, len(e.Type))
	for i, t := range e.Type {
		codes[i] = t.Code
	}
	return codes
}

// HasBackbone reports whether any declared type code is BackboneElement.
func (e *ElementDefinition) HasBackbone() bool {
	for _, t := range e.Type {
		if t.Code == BackboneElement {
			return true
		}
	}
	return false
}

// TypeRef is one allowed type code of an element.
type TypeRef struct {
	Code string `json:"code"`
}

func (*TypeRef) NodeKind() NodeKind { return KindTypeRef }

// Bundle is a collection of resources.
type Bundle struct {
	ID    string        `json:"id"`
	Type  string        `json:"type"`
	Entry []BundleEntry `json:"entry"`
}

// BundleEntry wraps one resource of a Bundle.
type BundleEntry struct {
	Resource Resource `json:"-"`
}

func (*Bundle) NodeKind() NodeKind    { return KindBundle }
func (b *Bundle) ResourceID() string { return b.ID }

// CodeSystem is carried through the pipeline without contributing types.
type CodeSystem struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (*CodeSystem) NodeKind() NodeKind    { return KindCodeSystem }
func (c *CodeSystem) ResourceID() string { return c.ID }

// ValueSet is carried through the pipeline without contributing types.
type ValueSet struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (*ValueSet) NodeKind() NodeKind    { return KindValueSet }
func (v *ValueSet) ResourceID() string { return v.ID }

// CapabilityStatement is carried through the pipeline without contributing types.
type CapabilityStatement struct {
	ID string `json:"id"`
}

func (*CapabilityStatement) NodeKind() NodeKind    { return KindCapabilityStatement }
func (c *CapabilityStatement) ResourceID() string { return c.ID }

// OperationDefinition is carried through the pipeline without contributing types.
type OperationDefinition struct {
	ID string `json:"id"`
}

func (*OperationDefinition) NodeKind() NodeKind    { return KindOperationDefinition }
func (o *OperationDefinition) ResourceID() string { return o.ID }

// CompartmentDefinition is carried through the pipeline without contributing types.
type CompartmentDefinition struct {
	ID string `json:"id"`
}

func (*CompartmentDefinition) NodeKind() NodeKind    { return KindCompartmentDefinition }
func (c *CompartmentDefinition) ResourceID() string { return c.ID }
