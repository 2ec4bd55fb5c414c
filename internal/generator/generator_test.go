package generator

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fhirgen/internal/model"
)

const base = "http://hl7.org/fhir/StructureDefinition/"

func sample() *model.Output {
	str := &model.Type{Kind: model.KindPrimitive, URL: base + "string", Name: "string"}
	boolean := &model.Type{Kind: model.KindPrimitive, URL: base + "boolean", Name: "boolean"}
	element := &model.Type{Kind: model.KindComplex, URL: base + "Element", Name: "Element", Properties: []model.Property{
		{Name: "id", Min: 0, Max: 1, Types: []*model.Type{str}},
	}}
	contact := &model.Type{Kind: model.KindComplex, URL: base + "Patient", Name: "PatientContact", Inline: true, Properties: []model.Property{
		{Name: "name", Min: 0, Max: 1, Types: []*model.Type{str}},
	}}
	patient := &model.Type{Kind: model.KindComplex, URL: base + "Patient", Name: "Patient", Base: element, Properties: []model.Property{
		{Name: "active", Min: 0, Max: 1, Types: []*model.Type{boolean}},
		{Name: "deceased", Min: 0, Max: 1, Types: []*model.Type{boolean, str}},
		{Name: "contact", Min: 0, Max: model.Unbounded, Types: []*model.Type{contact}},
	}}
	return &model.Output{Types: []*model.Type{str, boolean, element, contact, patient}}
}

func templates(manifest string, files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{ManifestFile: {Data: []byte(manifest)}}
	for name, content := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(content)}
	}
	return fsys
}

const familyManifest = `
index.txt.tmpl:
  output: "{{ .package_name }}/index.txt"
  postProcess: trimspace
family.txt.tmpl:
  output: "{{ .package_name }}/{{ .module_name }}.txt"
  context: complex
`

var familyTemplates = map[string]string{
	"index.txt.tmpl":  "\n  run={{ .run_id }}\n\n",
	"family.txt.tmpl": `{{ .module_name }}:{{ range .types }} {{ .Name }}{{ end }} imports={{ join .import_modules "," }}`,
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestGenerate(t *testing.T) {
	out := filepath.Join(t.TempDir(), "gen")
	g, err := New(Config{
		Templates: templates(familyManifest, familyTemplates),
		OutputDir: out,
		Variables: map[string]any{"package_name": "fhir", "run_id": "run-1"},
	}, zerolog.Nop())
	require.NoError(t, err)

	files, err := g.Generate(sample())
	require.NoError(t, err)

	assert.Equal(t, []string{"fhir/index.txt", "fhir/element.txt", "fhir/patient.txt"}, files)
	assert.Equal(t, "run=run-1\n", read(t, filepath.Join(out, "fhir", "index.txt")))
	assert.Equal(t, "element: Element imports=primitives", read(t, filepath.Join(out, "fhir", "element.txt")))
	assert.Equal(t, "patient: PatientContact Patient imports=primitives,element", read(t, filepath.Join(out, "fhir", "patient.txt")))

	// no staging directories are left next to the output
	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestGenerate_RunID(t *testing.T) {
	out := filepath.Join(t.TempDir(), "gen")
	g, err := New(Config{
		Templates: templates(familyManifest, familyTemplates),
		OutputDir: out,
		Variables: map[string]any{"package_name": "fhir"},
	}, zerolog.Nop())
	require.NoError(t, err)

	_, err = g.Generate(sample())
	require.NoError(t, err)
	assert.Len(t, read(t, filepath.Join(out, "fhir", "index.txt")), len("run=")+36+1)
}

func TestGenerate_ReplacesOutput(t *testing.T) {
	out := filepath.Join(t.TempDir(), "gen")
	require.NoError(t, os.MkdirAll(filepath.Join(out, "fhir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(out, "fhir", "stale.txt"), []byte("old"), 0o644))

	g, err := New(Config{
		Templates: templates(familyManifest, familyTemplates),
		OutputDir: out,
		Variables: map[string]any{"package_name": "fhir"},
	}, zerolog.Nop())
	require.NoError(t, err)

	_, err = g.Generate(sample())
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(out, "fhir", "stale.txt"))
	assert.FileExists(t, filepath.Join(out, "fhir", "patient.txt"))
}

func TestGenerate_FailureKeepsPreviousOutput(t *testing.T) {
	tests := []struct {
		name      string
		manifest  string
		files     map[string]string
		wantError error
	}{
		{
			name:      "parent escape",
			manifest:  "a.tmpl:\n  output: \"../{{ .module_name }}.txt\"\n  context: types\n",
			files:     map[string]string{"a.tmpl": "x"},
			wantError: ErrPathEscape,
		},
		{
			name:      "absolute path",
			manifest:  "a.tmpl:\n  output: /tmp/owned.txt\n",
			files:     map[string]string{"a.tmpl": "x"},
			wantError: ErrPathEscape,
		},
		{
			name:      "output root itself",
			manifest:  "a.tmpl:\n  output: \"fhir/..\"\n",
			files:     map[string]string{"a.tmpl": "x"},
			wantError: ErrPathEscape,
		},
		{
			name:     "missing variable",
			manifest: "a.tmpl:\n  output: \"{{ .nope }}.txt\"\n",
			files:    map[string]string{"a.tmpl": "x"},
		},
		{
			name:     "same file twice",
			manifest: "a.tmpl:\n  output: same.txt\n  context: primitives\nb.tmpl:\n  output: same.txt\n",
			files:    map[string]string{"a.tmpl": "a", "b.tmpl": "b"},
		},
		{
			name:     "gofmt rejects output",
			manifest: "a.tmpl:\n  output: a.go\n  postProcess: gofmt\n",
			files:    map[string]string{"a.tmpl": "package {"},
		},
		{
			name:     "template error",
			manifest: "a.tmpl:\n  output: a.txt\n",
			files:    map[string]string{"a.tmpl": "{{ .type.Name }}"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "gen")
			require.NoError(t, os.MkdirAll(out, 0o755))
			require.NoError(t, os.WriteFile(filepath.Join(out, "keep.txt"), []byte("previous"), 0o644))

			g, err := New(Config{Templates: templates(tt.manifest, tt.files), OutputDir: out}, zerolog.Nop())
			require.NoError(t, err)

			_, err = g.Generate(sample())
			require.Error(t, err)
			if tt.wantError != nil {
				assert.ErrorIs(t, err, tt.wantError)
			}

			assert.Equal(t, "previous", read(t, filepath.Join(out, "keep.txt")))
			entries, err := os.ReadDir(filepath.Dir(out))
			require.NoError(t, err)
			assert.Len(t, entries, 1, "staging directory removed")
		})
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Config{OutputDir: t.TempDir()}, zerolog.Nop())
	assert.Error(t, err)

	_, err = New(Config{Templates: templates(familyManifest, familyTemplates)}, zerolog.Nop())
	assert.Error(t, err)

	_, err = New(Config{Templates: fstest.MapFS{}, OutputDir: t.TempDir()}, zerolog.Nop())
	assert.Error(t, err)
}

func TestSandbox(t *testing.T) {
	root := filepath.Join(t.TempDir(), "out")

	rel, err := sandbox(root, " fhir/./patient.go ")
	require.NoError(t, err)
	assert.Equal(t, "fhir/patient.go", rel)

	rel, err = sandbox(root, "fhir/../element.go")
	require.NoError(t, err)
	assert.Equal(t, "element.go", rel)

	for _, name := range []string{"", ".", "..", "../x", "a/../../x", "/etc/passwd"} {
		_, err := sandbox(root, name)
		assert.ErrorIs(t, err, ErrPathEscape, name)
	}
}
