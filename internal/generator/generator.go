// Package generator provides template-based code generation over the
// resolved type graph.
package generator

import (
	"bytes"
	"errors"
	"fmt"
	"go/format"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fhirgen/internal/model"
)

// ErrPathEscape is returned when a rendered output path resolves outside the
// output directory.
var ErrPathEscape = errors.New("output path escapes the output directory")

// File permission constants.
const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// postProcessors rewrite rendered text, selected by name in the manifest.
var postProcessors = map[string]func([]byte) ([]byte, error){
	"gofmt": format.Source,
	"trimspace": func(b []byte) ([]byte, error) {
		return append(bytes.TrimSpace(b), '\n'), nil
	},
}

// Config configures a Generator.
type Config struct {
	Templates fs.FS          // Template tree with a manifest at its root
	OutputDir string         // Directory replaced by the generated files
	Variables map[string]any // Variables visible to every template
}

// Generator executes the manifest's templates against parsed types.
type Generator struct {
	templates fs.FS
	artifacts []Artifact
	outputDir string
	variables map[string]any
	log       zerolog.Logger
}

// New creates a new Generator and loads the manifest of the template tree.
func New(cfg Config, log zerolog.Logger) (*Generator, error) {
	if cfg.Templates == nil {
		return nil, errors.New("no templates configured")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("no output directory configured")
	}

	artifacts, err := LoadManifest(cfg.Templates)
	if err != nil {
		return nil, err
	}

	outputDir, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("resolving output directory: %w", err)
	}

	vars := with(cfg.Variables, nil)
	if _, ok := vars["run_id"]; !ok {
		vars["run_id"] = uuid.NewString()
	}

	return &Generator{
		templates: cfg.Templates,
		artifacts: artifacts,
		outputDir: outputDir,
		variables: vars,
		log:       log,
	}, nil
}

// Generate renders every artifact into a staging directory next to the
// output directory and, once all of them succeed, replaces the output
// directory with it. It returns the generated files relative to the output
// directory. On failure the previous output is left untouched.
func (g *Generator) Generate(out *model.Output) ([]string, error) {
	parent := filepath.Dir(g.outputDir)
	if err := os.MkdirAll(parent, dirPerm); err != nil {
		return nil, fmt.Errorf("creating output parent directory: %w", err)
	}

	staging, err := os.MkdirTemp(parent, "."+filepath.Base(g.outputDir)+"-*")
	if err != nil {
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}

	files, err := g.render(out, staging)
	if err == nil {
		err = swap(staging, g.outputDir)
	}
	if err != nil {
		os.RemoveAll(staging)
		return nil, err
	}

	g.log.Info().Str("output", g.outputDir).Int("files", len(files)).Msg("generated")
	return files, nil
}

func (g *Generator) render(out *model.Output, root string) ([]string, error) {
	var files []string
	written := make(map[string]string)

	for _, a := range g.artifacts {
		tmpl, err := template.New(path.Base(a.Template)).
			Option("missingkey=error").
			Funcs(templateFuncs()).
			ParseFS(g.templates, a.Template)
		if err != nil {
			return nil, fmt.Errorf("loading template: %w", err)
		}

		naming, err := template.New(a.Template + " output").
			Option("missingkey=error").
			Funcs(templateFuncs()).
			Parse(a.Output)
		if err != nil {
			return nil, fmt.Errorf("parsing output path of %s: %w", a.Template, err)
		}

		sets := a.Context.Project(out, g.variables)
		g.log.Debug().
			Str("template", a.Template).
			Str("context", string(a.Context)).
			Int("files", len(sets)).
			Msg("rendering artifact")

		for _, vars := range sets {
			var name bytes.Buffer
			if err := naming.Execute(&name, vars); err != nil {
				return nil, fmt.Errorf("rendering output path of %s: %w", a.Template, err)
			}

			rel, err := sandbox(root, name.String())
			if err != nil {
				return nil, err
			}
			if prev, ok := written[rel]; ok {
				return nil, fmt.Errorf("%s: rendered by both %s and %s", rel, prev, a.Template)
			}
			written[rel] = a.Template

			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, vars); err != nil {
				return nil, fmt.Errorf("executing template %s for %s: %w", a.Template, rel, err)
			}

			content := buf.Bytes()
			if a.PostProcess != "" {
				if content, err = postProcessors[a.PostProcess](content); err != nil {
					return nil, fmt.Errorf("%s of %s: %w", a.PostProcess, rel, err)
				}
			}

			target := filepath.Join(root, filepath.FromSlash(rel))
			if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
				return nil, fmt.Errorf("creating directory for %s: %w", rel, err)
			}
			if err := os.WriteFile(target, content, filePerm); err != nil {
				return nil, fmt.Errorf("writing file %s: %w", rel, err)
			}

			g.log.Debug().Str("file", rel).Msg("wrote")
			files = append(files, rel)
		}
	}

	return files, nil
}

// sandbox cleans the rendered path name and checks that it names a file
// strictly inside root.
func sandbox(root, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || filepath.IsAbs(name) || path.IsAbs(filepath.ToSlash(name)) {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, name)
	}

	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrPathEscape, name)
	}
	return filepath.ToSlash(rel), nil
}

// swap moves staging to dest, replacing whatever dest held.
func swap(staging, dest string) error {
	var backup string
	if _, err := os.Lstat(dest); err == nil {
		backup = staging + ".old"
		if err := os.Rename(dest, backup); err != nil {
			return fmt.Errorf("moving previous output aside: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking output directory: %w", err)
	}

	if err := os.Rename(staging, dest); err != nil {
		if backup != "" {
			_ = os.Rename(backup, dest)
		}
		return fmt.Errorf("replacing output directory: %w", err)
	}

	if backup != "" {
		if err := os.RemoveAll(backup); err != nil {
			return fmt.Errorf("removing previous output: %w", err)
		}
	}
	return nil
}
