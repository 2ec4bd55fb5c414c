package generator

import (
	"errors"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"
)

// ManifestFile is the name of the manifest at the root of a template tree.
const ManifestFile = "manifest.yaml"

// ErrManifest is returned for a manifest that cannot drive a run.
var ErrManifest = errors.New("invalid manifest")

// Artifact is one manifest entry: a template rendered once per variable set
// its selector projects, each into its own output file.
type Artifact struct {
	Template    string   `yaml:"-"`
	Output      string   `yaml:"output"`
	Context     Selector `yaml:"context"`
	PostProcess string   `yaml:"postProcess"`
}

// LoadManifest reads the manifest of a template tree. Artifacts keep the
// order in which the manifest lists them.
func LoadManifest(fsys fs.FS) ([]Artifact, error) {
	data, err := fs.ReadFile(fsys, ManifestFile)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrManifest)
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: expected a mapping of template files", ErrManifest)
	}

	artifacts := make([]Artifact, 0, len(root.Content)/2)
	for i := 0; i < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]

		var a Artifact
		if err := value.Decode(&a); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrManifest, key.Value, err)
		}
		a.Template = key.Value
		if a.Context == "" {
			a.Context = SelectOnce
		}

		if err := a.validate(); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}

	return artifacts, nil
}

func (a Artifact) validate() error {
	if a.Output == "" {
		return fmt.Errorf("%w: %s: output is required", ErrManifest, a.Template)
	}
	if !a.Context.Valid() {
		return fmt.Errorf("%w: %s: unknown context %q", ErrManifest, a.Template, a.Context)
	}
	if _, ok := postProcessors[a.PostProcess]; a.PostProcess != "" && !ok {
		return fmt.Errorf("%w: %s: unknown post processor %q", ErrManifest, a.Template, a.PostProcess)
	}
	return nil
}
