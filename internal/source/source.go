// Package source supplies definition records to the parser, either from a
// published definitions archive or from a directory of JSON files.
package source

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"fhirgen/internal/definitions"
)

// Source produces the resources of one definition package in a stable order.
type Source interface {
	Resources(ctx context.Context) ([]definitions.Resource, error)
}

// Directory reads every *.json file of a directory, in file name order.
type Directory struct {
	dir string
	log zerolog.Logger
}

// NewDirectory creates a Directory source.
func NewDirectory(dir string, log zerolog.Logger) *Directory {
	return &Directory{dir: dir, log: log}
}

// Resources decodes the files and expands bundles into their entries.
func (d *Directory) Resources(ctx context.Context) ([]definitions.Resource, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("reading definitions directory: %w", err)
	}

	var resources []definitions.Resource
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		decoded, err := decodeFile(os.DirFS(d.dir), entry.Name())
		if err != nil {
			return nil, err
		}
		d.log.Debug().Str("file", entry.Name()).Int("resources", len(decoded)).Msg("loaded definitions")
		resources = append(resources, decoded...)
	}

	return resources, nil
}

// decodeFile reads name from fsys and returns its resources, bundles
// flattened.
func decodeFile(fsys fs.FS, name string) ([]definitions.Resource, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	r, err := definitions.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	return definitions.Flatten(r), nil
}
