package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNew_Defaults(t *testing.T) {
	cfg := New()

	assert.Equal(t, DefaultBaseURL, cfg.Parser.BaseURL)
	assert.Equal(t, DefaultPreset, cfg.Renderer.Preset)
	assert.Equal(t, "fhir", cfg.Renderer.Variables["package_name"])
	assert.NotEmpty(t, cfg.Source.URL)
	assert.Len(t, cfg.Source.Sources, 2)
	require.NotNil(t, cfg.Parser.LateBinding)
	assert.True(t, *cfg.Parser.LateBinding)
	assert.NoError(t, cfg.Validate())
	assert.ErrorIs(t, cfg.ValidateOutput(), ErrInvalid)
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeFile(t, "fhirgen.yaml", `
source:
  dir: ./definitions
parser:
  baseUrl: http://example.org/fhir
  lateBinding: false
  mappings:
    http://example.org/fhir/StructureDefinition/old: http://example.org/fhir/StructureDefinition/new
renderer:
  templateRoot: ./templates
  outputDir: ./out
  variables:
    package_name: models
    license: MIT
`)

	cfg := New()
	require.NoError(t, cfg.LoadFile(path))

	assert.Equal(t, "./definitions", cfg.Source.Dir)
	assert.Empty(t, cfg.Source.URL)
	assert.Equal(t, "http://example.org/fhir", cfg.Parser.BaseURL)
	assert.False(t, *cfg.Parser.LateBinding)
	assert.Equal(t, "./templates", cfg.Renderer.TemplateRoot)
	assert.Empty(t, cfg.Renderer.Preset)
	assert.Equal(t, "./out", cfg.Renderer.OutputDir)
	assert.Equal(t, "models", cfg.Renderer.Variables["package_name"])
	assert.Equal(t, "MIT", cfg.Renderer.Variables["license"])
	require.NoError(t, cfg.ValidateOutput())

	pc := cfg.ParserConfig()
	assert.Equal(t, "http://example.org/fhir", pc.BaseURL)
	assert.False(t, pc.LateBinding)
	assert.Equal(t, "http://example.org/fhir/StructureDefinition/new", pc.Mappings["http://example.org/fhir/StructureDefinition/old"])
	// the system type renames follow the base url
	assert.Equal(t, "http://example.org/fhir/StructureDefinition/string", pc.Mappings["http://hl7.org/fhirpath/System.String"])
}

func TestLoadFile_JSON(t *testing.T) {
	path := writeFile(t, "fhirgen.json", `{
	  "source": {"url": "https://example.org/defs.zip", "sources": ["types.json"], "cacheDir": "/tmp/cache"},
	  "renderer": {"outputDir": "gen"}
	}`)

	cfg := New()
	require.NoError(t, cfg.LoadFile(path))

	assert.Equal(t, "https://example.org/defs.zip", cfg.Source.URL)
	assert.Equal(t, []string{"types.json"}, cfg.Source.Sources)
	assert.Equal(t, "/tmp/cache", cfg.Source.CacheDir)
	assert.Equal(t, "gen", cfg.Renderer.OutputDir)
	assert.Equal(t, DefaultPreset, cfg.Renderer.Preset)
}

func TestLoadFile_Errors(t *testing.T) {
	cfg := New()
	assert.Error(t, cfg.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))

	bad := writeFile(t, "bad.yaml", "source: [unterminated")
	assert.Error(t, cfg.LoadFile(bad))
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("FHIRGEN_BASE_URL", "http://example.org/r5")
	t.Setenv("FHIRGEN_OUTPUT_DIR", "/tmp/out")
	t.Setenv("FHIRGEN_SOURCE_DIR", "/tmp/defs")
	t.Setenv("FHIRGEN_CACHE_DIR", "/tmp/cache")

	cfg := New()
	cfg.ApplyEnv()

	assert.Equal(t, "http://example.org/r5", cfg.Parser.BaseURL)
	assert.Equal(t, "/tmp/out", cfg.Renderer.OutputDir)
	assert.Equal(t, "/tmp/defs", cfg.Source.Dir)
	assert.Empty(t, cfg.Source.URL)
	assert.Equal(t, "/tmp/cache", cfg.Source.CacheDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"trailing slash", func(c *Config) { c.Parser.BaseURL = "http://hl7.org/fhir/" }},
		{"empty base url", func(c *Config) { c.Parser.BaseURL = "" }},
		{"no source", func(c *Config) { c.Source = SourceConfig{} }},
		{"archive without members", func(c *Config) { c.Source.Sources = nil }},
		{"no templates", func(c *Config) { c.Renderer.Preset = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.modify(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestDefaultMappings(t *testing.T) {
	m := DefaultMappings("http://hl7.org/fhir")
	assert.Equal(t, "http://hl7.org/fhir/StructureDefinition/dateTime", m["http://hl7.org/fhirpath/System.DateTime"])
	assert.Len(t, m, 7)
}

func TestLoadFile_Example(t *testing.T) {
	cfg := New()
	require.NoError(t, cfg.LoadFile(filepath.Join("..", "..", "examples", "fhirgen.yaml")))

	assert.Equal(t, "examples/markdown", cfg.Renderer.TemplateRoot)
	assert.Empty(t, cfg.Renderer.Preset)
	assert.Equal(t, "FHIR R4 types", cfg.Renderer.Variables["title"])
	assert.Equal(t, "fhir", cfg.Renderer.Variables["package_name"])
	assert.Equal(t, []string{"profiles-types.json", "profiles-resources.json"}, cfg.Source.Sources)
	assert.NoError(t, cfg.ValidateOutput())
}
