package generator

import (
	"fhirgen/internal/model"
)

// Selector projects the type graph into the variable sets an artifact is
// rendered with.
type Selector string

const (
	SelectOnce       Selector = "once"       // one set, the run variables only
	SelectPrimitives Selector = "primitives" // one set holding every primitive type
	SelectComplex    Selector = "complex"    // one set per complex type family
	SelectTypes      Selector = "types"      // one set per type
)

// Valid reports whether s names a known selector.
func (s Selector) Valid() bool {
	switch s {
	case SelectOnce, SelectPrimitives, SelectComplex, SelectTypes:
		return true
	}
	return false
}

// Project returns the variable sets for out. Every set starts from a copy of
// vars; the selector's own keys take precedence over user variables.
func (s Selector) Project(out *model.Output, vars map[string]any) []map[string]any {
	switch s {
	case SelectOnce:
		return []map[string]any{with(vars, nil)}

	case SelectPrimitives:
		types := out.Primitives()
		if len(types) == 0 {
			return nil
		}
		return []map[string]any{with(vars, map[string]any{
			"types":       types,
			"module_name": types[0].Module(),
		})}

	case SelectComplex:
		var sets []map[string]any
		for _, f := range out.Families() {
			sets = append(sets, with(vars, map[string]any{
				"url":            f.URL,
				"types":          f.Types,
				"module_name":    f.Module(),
				"import_modules": f.Imports(),
			}))
		}
		return sets

	case SelectTypes:
		var sets []map[string]any
		for _, t := range out.Types {
			sets = append(sets, with(vars, map[string]any{
				"type":        t,
				"module_name": t.Module(),
			}))
		}
		return sets
	}
	return nil
}

func with(vars, extra map[string]any) map[string]any {
	set := make(map[string]any, len(vars)+len(extra))
	for k, v := range vars {
		set[k] = v
	}
	for k, v := range extra {
		set[k] = v
	}
	return set
}
