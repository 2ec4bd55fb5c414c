package model

// Output is the resolved type graph in first-construction order.
type Output struct {
	Types []*Type
}

// Lookup returns the type named name. Names are unique within an Output built
// from a single definition package.
func (o *Output) Lookup(name string) (*Type, bool) {
	for _, t := range o.Types {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Primitives returns the primitive types in order.
func (o *Output) Primitives() []*Type {
	return o.filter(func(t *Type) bool { return t.IsPrimitive() })
}

// Complex returns the complex types, inline ones included, in order.
func (o *Output) Complex() []*Type {
	return o.filter(func(t *Type) bool { return t.IsComplex() })
}

// Family is a named type together with the inline types synthesized for its
// nested structures. All members share one url.
type Family struct {
	URL   string
	Types []*Type
}

// Module returns the generated module the family belongs to.
func (f Family) Module() string {
	return f.Types[0].Module()
}

// Dependencies returns the union of the members' dependencies in first-seen
// order.
func (f Family) Dependencies() []*Type {
	var deps []*Type
	seen := make(map[*Type]bool)
	for _, t := range f.Types {
		for _, d := range t.Dependencies() {
			if !seen[d] {
				seen[d] = true
				deps = append(deps, d)
			}
		}
	}
	return deps
}

// Imports returns the modules the family depends on, excluding its own, in
// first-seen order.
func (f Family) Imports() []string {
	own := f.Module()
	var modules []string
	seen := map[string]bool{own: true}
	for _, d := range f.Dependencies() {
		m := d.Module()
		if !seen[m] {
			seen[m] = true
			modules = append(modules, m)
		}
	}
	return modules
}

// Families groups the complex types by url, in order of first appearance.
func (o *Output) Families() []Family {
	index := make(map[string]int)
	var families []Family
	for _, t := range o.Complex() {
		i, ok := index[t.URL]
		if !ok {
			i = len(families)
			index[t.URL] = i
			families = append(families, Family{URL: t.URL})
		}
		families[i].Types = append(families[i].Types, t)
	}
	return families
}

func (o *Output) filter(keep func(*Type) bool) []*Type {
	var out []*Type
	for _, t := range o.Types {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
