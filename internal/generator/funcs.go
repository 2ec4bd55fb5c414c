package generator

import (
	"go/token"
	"strconv"
	"strings"
	"text/template"
	"unicode"

	"fhirgen/internal/model"
)

// templateFuncs returns custom template functions.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		// Type graph
		"moduleName":  func(t *model.Type) string { return t.Module() },
		"typeRef":     typeRef,
		"propType":    propType,
		"propName":    propName,
		"choiceName":  choiceName,
		"cardinality": cardinality,
		"goPrimitive": goPrimitive,
		"isPrimitive": func(t *model.Type) bool { return t.IsPrimitive() },
		"isComplex":   func(t *model.Type) bool { return t.IsComplex() },
		"isChoice":    func(p model.Property) bool { return p.IsChoice() },
		"isList":      func(p model.Property) bool { return p.IsList() },
		"isOptional":  func(p model.Property) bool { return p.IsOptional() },

		// String manipulation
		"exported":   exported,
		"camelCase":  camelCase,
		"pascalCase": pascalCase,
		"snakeCase":  snakeCase,
		"kebabCase":  kebabCase,
		"lower":      strings.ToLower,
		"upper":      strings.ToUpper,
		"trim":       strings.TrimSpace,
		"replace":    strings.ReplaceAll,
		"hasPrefix":  strings.HasPrefix,
		"hasSuffix":  strings.HasSuffix,

		// List helpers
		"join":     strings.Join,
		"contains": containsStr,

		// Conditional helpers
		"default": defaultValue,
		"ternary": ternary,

		// Comment formatting
		"comment": formatComment,

		// Misc
		"notLast": func(i, length int) bool { return i < length-1 },
	}
}

// goPrimitives maps FHIR primitive names to the Go type that carries them.
// Anything not listed is a string.
var goPrimitives = map[string]string{
	"boolean":     "bool",
	"integer":     "int32",
	"integer64":   "int64",
	"positiveInt": "uint32",
	"unsignedInt": "uint32",
	"decimal":     "float64",
}

// goPrimitive returns the Go type underlying the FHIR primitive name.
func goPrimitive(name string) string {
	if t, ok := goPrimitives[name]; ok {
		return t
	}
	return "string"
}

// typeRef returns the name of t as seen from module: bare inside its own
// module, qualified with its module name elsewhere.
func typeRef(module string, t *model.Type) string {
	if m := t.Module(); m != module {
		return m + "." + t.Name
	}
	return t.Name
}

// propType returns the Go field type of p within a single package. For a
// choice property the candidate to render is passed as choice.
func propType(p model.Property, choice ...*model.Type) string {
	var t *model.Type
	switch {
	case len(choice) > 0:
		t = choice[0]
	case len(p.Types) > 0:
		t = p.Types[0]
	default:
		return "any"
	}

	if p.IsList() {
		return "[]" + exported(t.Name)
	}
	return "*" + exported(t.Name)
}

// propName returns name usable as an identifier, with a trailing underscore
// when it is a keyword.
func propName(name string) string {
	if token.IsKeyword(name) {
		return name + "_"
	}
	return name
}

// choiceName returns the field name of one candidate of a choice property,
// e.g. deceased + dateTime gives DeceasedDateTime.
func choiceName(p model.Property, t *model.Type) string {
	return exported(p.Name) + exported(t.Name)
}

// cardinality renders the bounds of p as min..max, with * when unbounded.
func cardinality(p model.Property) string {
	upper := "*"
	if p.Max != model.Unbounded {
		upper = strconv.Itoa(p.Max)
	}
	return strconv.Itoa(p.Min) + ".." + upper
}

// exported upper-cases the first letter of s and keeps the rest.
func exported(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// camelCase converts to camelCase.
func camelCase(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(pascalCase(s))
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

// pascalCase converts to PascalCase.
func pascalCase(s string) string {
	words := splitWords(s)
	for i, word := range words {
		runes := []rune(strings.ToLower(word))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, "")
}

// snakeCase converts to snake_case.
func snakeCase(s string) string {
	return joinLower(splitWords(s), "_")
}

// kebabCase converts to kebab-case.
func kebabCase(s string) string {
	return joinLower(splitWords(s), "-")
}

func joinLower(words []string, sep string) string {
	for i, word := range words {
		words[i] = strings.ToLower(word)
	}
	return strings.Join(words, sep)
}

// splitWords splits camelCase, PascalCase, snake_case and kebab-case input
// into words. An upper-case letter starts a word after a lower-case letter,
// or before one when it ends an acronym (HTTPServer gives HTTP, Server).
func splitWords(s string) []string {
	runes := []rune(s)
	var words []string
	var current []rune

	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = nil
		}
	}

	for i, r := range runes {
		if r == '_' || r == '-' || r == ' ' || r == '.' {
			flush()
			continue
		}

		if unicode.IsUpper(r) && i > 0 {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}

		current = append(current, r)
	}
	flush()

	return words
}

// formatComment prefixes every line of comment, e.g. with "// ".
func formatComment(comment, prefix string) string {
	if comment == "" {
		return ""
	}
	lines := strings.Split(strings.TrimSpace(comment), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(prefix+strings.TrimSpace(line), " ")
	}
	return strings.Join(lines, "\n")
}

// containsStr checks if a slice contains a string.
func containsStr(slice []string, s string) bool {
	for _, item := range slice {
		if item == s {
			return true
		}
	}
	return false
}

// defaultValue returns the first non-empty value.
func defaultValue(val, def string) string {
	if val == "" {
		return def
	}
	return val
}

// ternary returns a if condition is true, else b.
func ternary(condition bool, a, b string) string {
	if condition {
		return a
	}
	return b
}
