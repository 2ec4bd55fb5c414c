package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"fhirgen/internal/definitions"
	"fhirgen/internal/dispatch"
	"fhirgen/internal/model"
)

// task parses one top-level resource. Each run starts over from the
// resource; built, links and scopes belong to the current run only.
type task struct {
	parser   *Parser
	reg      *registry
	resource definitions.Resource
	waiting  string

	scopes []*scope
	built  []*model.Type
	links  []link
}

// scope is one nesting level of element reconstruction.
type scope struct {
	path  definitions.Path
	owner *model.Type

	// pending holds the descriptors of BackboneElement children not yet
	// expanded into inline types.
	pending []descriptor

	// candidates collects the types of the element being visited; late
	// lists the candidate slots still waiting for late binding.
	candidates []*model.Type
	late       []lateSlot
}

type lateSlot struct {
	slot int
	url  string
}

// descriptor is the name and cardinality of a property.
type descriptor struct {
	name string
	min  int
	max  int
}

func (t *task) run() error {
	t.scopes = []*scope{{}}
	t.built = nil
	t.links = nil
	return t.parser.table.Dispatch(t, t.resource)
}

func (t *task) scope() *scope {
	return t.scopes[len(t.scopes)-1]
}

func (t *task) emit(typ *model.Type) {
	t.built = append(t.built, typ)
}

func (t *task) contract(element, reason string) error {
	return &ContractError{Resource: t.resource.ResourceID(), Element: element, Reason: reason}
}

// require returns the type registered under url, or suspends the task.
func (t *task) require(url string) (*model.Type, error) {
	url = t.parser.alias(url)
	if typ, ok := t.reg.resolved[url]; ok {
		return typ, nil
	}
	return nil, &pendingError{url: url}
}

// candidate is require for property types. With late binding an
// unregistered url yields a nil type and the url to bind it to later.
func (t *task) candidate(url string) (*model.Type, string, error) {
	if !t.parser.lateBinding {
		typ, err := t.require(url)
		return typ, "", err
	}

	url = t.parser.alias(url)
	if typ, ok := t.reg.resolved[url]; ok {
		return typ, "", nil
	}
	return nil, url, nil
}

func visitResource(t *task, n definitions.Node) error {
	return nil
}

func visitStructureDefinition(t *task, n definitions.Node) error {
	sd := n.(*definitions.StructureDefinition)

	name := sd.Type
	if sd.Derivation == definitions.DerivationConstraint {
		if sd.Kind != definitions.StructureResource {
			t.parser.log.Debug().
				Str("resource", sd.ID).
				Str("kind", string(sd.Kind)).
				Msg("skipping constraint on non-resource kind")
			return nil
		}
		name = sd.Name
	}

	var base *model.Type
	if sd.BaseDefinition != "" {
		var err error
		if base, err = t.require(sd.BaseDefinition); err != nil {
			return err
		}
	}

	var typ *model.Type
	switch sd.Kind {
	case definitions.StructurePrimitiveType:
		typ = &model.Type{Kind: model.KindPrimitive, URL: sd.URL, Name: name, Base: base}
	case definitions.StructureComplexType, definitions.StructureResource:
		typ = &model.Type{Kind: model.KindComplex, URL: sd.URL, Name: name, Base: base}
	default:
		return nil
	}

	if !isIdentifier(typ.Name) {
		return t.contract("", fmt.Sprintf("type name %q is not an identifier", typ.Name))
	}

	if typ.IsComplex() {
		nodes := make([]*definitions.ElementDefinition, len(sd.Snapshot.Element))
		for i := range sd.Snapshot.Element {
			nodes[i] = &sd.Snapshot.Element[i]
		}

		// Snapshots repeat inherited elements under each ancestor's name.
		for cursor := typ; cursor != nil && len(nodes) > 0; cursor = cursor.Base {
			var err error
			nodes, err = t.parseElements(typ, nodes, definitions.NewPath(cursor.Name))
			if err != nil {
				return err
			}
		}
	}

	t.emit(typ)
	return nil
}

// parseElements consumes the elements directly below path into owner and
// expands BackboneElement children into inline types. It returns the
// elements it could not place.
func (t *task) parseElements(owner *model.Type, nodes []*definitions.ElementDefinition, path definitions.Path) ([]*definitions.ElementDefinition, error) {
	sc := &scope{path: path, owner: owner}
	t.scopes = append(t.scopes, sc)
	defer func() { t.scopes = t.scopes[:len(t.scopes)-1] }()

	var remaining []*definitions.ElementDefinition
	var inline []descriptor
	seen := make(map[string]bool)

	for _, el := range nodes {
		err := t.parser.table.Dispatch(t, el)
		if err == nil {
			continue
		}
		if !dispatch.Unhandled(err) {
			return nil, err
		}

		if len(sc.pending) == 0 {
			remaining = append(remaining, el)
			continue
		}

		d := sc.pending[len(sc.pending)-1]
		sc.pending = sc.pending[:len(sc.pending)-1]
		if seen[d.name] {
			// First occurrence keeps its cardinality.
			t.parser.log.Debug().
				Str("resource", t.resource.ResourceID()).
				Str("element", el.ID).
				Msg("dropping repeated nested structure")
			continue
		}
		seen[d.name] = true
		inline = append(inline, d)
	}

	for _, d := range inline {
		nested := &model.Type{
			Kind:   model.KindComplex,
			URL:    owner.URL,
			Name:   owner.Name + capitalize(d.name),
			Inline: true,
		}
		if !isIdentifier(nested.Name) {
			return nil, t.contract(path.Append(d.name).String(), fmt.Sprintf("type name %q is not an identifier", nested.Name))
		}

		childPath := path.Append(d.name)
		var below, rest []*definitions.ElementDefinition
		for _, el := range remaining {
			if el.Path.IsDescendantOf(childPath) {
				below = append(below, el)
			} else {
				rest = append(rest, el)
			}
		}

		left, err := t.parseElements(nested, below, childPath)
		if err != nil {
			return nil, err
		}
		remaining = append(rest, left...)

		owner.Properties = append(owner.Properties, model.Property{
			Name:  d.name,
			Min:   d.min,
			Max:   d.max,
			Types: []*model.Type{nested},
		})
		t.emit(nested)
	}

	return remaining, nil
}

func visitElementDefinition(t *task, n definitions.Node) error {
	el := n.(*definitions.ElementDefinition)
	sc := t.scope()

	if el.ID == "" {
		return t.contract(el.Path.String(), "element without id")
	}
	if sc.owner == nil || sc.path.IsEmpty() {
		return t.contract(el.ID, "element outside of any type scope")
	}

	if el.Path.Equal(sc.path) {
		return nil
	}
	if el.Path.Depth(sc.path) != 1 {
		return dispatch.ErrUnhandled
	}
	if !sc.owner.IsComplex() {
		return t.contract(el.ID, "property on a primitive type")
	}

	d, err := describe(el)
	if err != nil {
		return t.contract(el.ID, err.Error())
	}

	if el.HasBackbone() {
		if len(el.Type) != 1 {
			return t.contract(el.ID, "BackboneElement combined with other type codes")
		}
		sc.pending = append(sc.pending, d)
		return dispatch.ErrUnhandled
	}

	sc.candidates, sc.late = nil, nil
	for i := range el.Type {
		if err := t.parser.table.Dispatch(t, &el.Type[i]); err != nil && !dispatch.Unhandled(err) {
			return err
		}
	}
	if len(sc.candidates) == 0 {
		return nil
	}

	sc.owner.Properties = append(sc.owner.Properties, model.Property{
		Name:  d.name,
		Min:   d.min,
		Max:   d.max,
		Types: sc.candidates,
	})
	for _, l := range sc.late {
		t.links = append(t.links, link{
			resource: t.resource.ResourceID(),
			owner:    sc.owner,
			property: len(sc.owner.Properties) - 1,
			slot:     l.slot,
			url:      l.url,
		})
	}
	return nil
}

func visitTypeRef(t *task, n definitions.Node) error {
	ref := n.(*definitions.TypeRef)
	sc := t.scope()
	if sc.owner == nil {
		return dispatch.ErrUnhandled
	}

	typ, late, err := t.candidate(t.parser.typeURL(ref.Code))
	if err != nil {
		return err
	}
	if late != "" {
		sc.late = append(sc.late, lateSlot{slot: len(sc.candidates), url: late})
	}
	sc.candidates = append(sc.candidates, typ)
	return nil
}

// describe reads the property name and cardinality of an element.
func describe(el *definitions.ElementDefinition) (descriptor, error) {
	d := descriptor{
		name: strings.TrimSuffix(el.Path.Last(), "[x]"),
		min:  el.Min,
	}

	upper, err := parseMax(el.Max)
	if err != nil {
		return descriptor{}, err
	}
	d.max = upper

	if d.min < 0 {
		return descriptor{}, fmt.Errorf("negative min %d", d.min)
	}
	return d, nil
}

// parseMax maps "*" to model.Unbounded and parses anything else as a
// non-negative integer.
func parseMax(s string) (int, error) {
	if s == "*" {
		return model.Unbounded, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid max %q", s)
	}
	return n, nil
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if i == 0 {
			runes[i] = unicode.ToUpper(r)
		} else {
			runes[i] = unicode.ToLower(r)
		}
	}
	return string(runes)
}

// isIdentifier reports whether s is a letter or underscore followed by
// letters, digits or underscores.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}
