// Package presets embeds the template trees shipped with fhirgen.
package presets

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed gostruct
var files embed.FS

// Names returns the available presets, sorted.
func Names() []string {
	entries, _ := fs.ReadDir(files, ".")
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// Open returns the template tree of the named preset.
func Open(name string) (fs.FS, error) {
	if name == "" || strings.ContainsAny(name, "/\\.") {
		return nil, fmt.Errorf("invalid preset name %q", name)
	}
	if _, err := fs.Stat(files, name); err != nil {
		return nil, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return fs.Sub(files, name)
}
