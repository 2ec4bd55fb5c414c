// Package config provides configuration handling for fhirgen.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"fhirgen/internal/parser"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Config represents the complete configuration.
type Config struct {
	Source   SourceConfig   `yaml:"source" json:"source"`
	Parser   ParserConfig   `yaml:"parser" json:"parser"`
	Renderer RendererConfig `yaml:"renderer" json:"renderer"`
}

// SourceConfig describes where definitions come from: either an archive at
// URL with the member files in Sources, or a local directory of JSON files.
type SourceConfig struct {
	URL      string   `yaml:"url" json:"url"`
	Sources  []string `yaml:"sources" json:"sources"`
	Version  string   `yaml:"version" json:"version"`
	Dir      string   `yaml:"dir" json:"dir"`
	CacheDir string   `yaml:"cacheDir" json:"cacheDir"`
}

// ParserConfig configures type resolution.
type ParserConfig struct {
	BaseURL     string            `yaml:"baseUrl" json:"baseUrl"`
	Mappings    map[string]string `yaml:"mappings" json:"mappings"`
	LateBinding *bool             `yaml:"lateBinding" json:"lateBinding"`
}

// RendererConfig configures code emission. Templates come from the embedded
// Preset unless TemplateRoot is set.
type RendererConfig struct {
	Preset       string         `yaml:"preset" json:"preset"`
	TemplateRoot string         `yaml:"templateRoot" json:"templateRoot"`
	OutputDir    string         `yaml:"outputDir" json:"outputDir"`
	Variables    map[string]any `yaml:"variables" json:"variables"`
}

// New creates a new Config with default values.
func New() *Config {
	late := true
	return &Config{
		Source: DefaultSource(),
		Parser: ParserConfig{
			BaseURL:     DefaultBaseURL,
			Mappings:    map[string]string{},
			LateBinding: &late,
		},
		Renderer: RendererConfig{
			Preset:    DefaultPreset,
			Variables: DefaultVariables(),
		},
	}
}

// LoadFile loads configuration from a file (YAML or JSON based on extension).
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))

	var loaded Config
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			return fmt.Errorf("parsing YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &loaded); err != nil {
			return fmt.Errorf("parsing JSON config: %w", err)
		}
	default:
		// Try YAML first, then JSON
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			if err := json.Unmarshal(data, &loaded); err != nil {
				return fmt.Errorf("unable to parse config as YAML or JSON")
			}
		}
	}

	c.merge(&loaded)

	return nil
}

// merge merges the loaded config into the current config.
func (c *Config) merge(loaded *Config) {
	// A source given by directory replaces the default archive.
	if loaded.Source.Dir != "" {
		c.Source = SourceConfig{Dir: loaded.Source.Dir, CacheDir: c.Source.CacheDir}
	}
	if loaded.Source.URL != "" {
		c.Source.URL = loaded.Source.URL
		c.Source.Dir = ""
	}
	if len(loaded.Source.Sources) > 0 {
		c.Source.Sources = loaded.Source.Sources
	}
	if loaded.Source.Version != "" {
		c.Source.Version = loaded.Source.Version
	}
	if loaded.Source.CacheDir != "" {
		c.Source.CacheDir = loaded.Source.CacheDir
	}

	if loaded.Parser.BaseURL != "" {
		c.Parser.BaseURL = loaded.Parser.BaseURL
	}
	for k, v := range loaded.Parser.Mappings {
		c.Parser.Mappings[k] = v
	}
	if loaded.Parser.LateBinding != nil {
		c.Parser.LateBinding = loaded.Parser.LateBinding
	}

	if loaded.Renderer.TemplateRoot != "" {
		c.Renderer.TemplateRoot = loaded.Renderer.TemplateRoot
		c.Renderer.Preset = ""
	}
	if loaded.Renderer.Preset != "" {
		c.Renderer.Preset = loaded.Renderer.Preset
	}
	if loaded.Renderer.OutputDir != "" {
		c.Renderer.OutputDir = loaded.Renderer.OutputDir
	}
	for k, v := range loaded.Renderer.Variables {
		c.Renderer.Variables[k] = v
	}
}

// ApplyEnv overrides settings from FHIRGEN_* environment variables.
func (c *Config) ApplyEnv() {
	v := viper.New()
	v.SetEnvPrefix("FHIRGEN")
	v.AutomaticEnv()

	if s := v.GetString("base_url"); s != "" {
		c.Parser.BaseURL = s
	}
	if s := v.GetString("source_url"); s != "" {
		c.Source.URL = s
		c.Source.Dir = ""
	}
	if s := v.GetString("source_dir"); s != "" {
		c.Source.Dir = s
		c.Source.URL = ""
	}
	if s := v.GetString("cache_dir"); s != "" {
		c.Source.CacheDir = s
	}
	if s := v.GetString("output_dir"); s != "" {
		c.Renderer.OutputDir = s
	}
	if s := v.GetString("preset"); s != "" {
		c.Renderer.Preset = s
		c.Renderer.TemplateRoot = ""
	}
	if s := v.GetString("template_root"); s != "" {
		c.Renderer.TemplateRoot = s
		c.Renderer.Preset = ""
	}
}

// Validate checks that the configuration can drive a run.
func (c *Config) Validate() error {
	if c.Parser.BaseURL == "" {
		return fmt.Errorf("%w: parser base url is required", ErrInvalid)
	}
	if strings.HasSuffix(c.Parser.BaseURL, "/") {
		return fmt.Errorf("%w: parser base url %q must not end with a slash", ErrInvalid, c.Parser.BaseURL)
	}

	if c.Source.Dir == "" {
		if c.Source.URL == "" {
			return fmt.Errorf("%w: a source url or directory is required", ErrInvalid)
		}
		if len(c.Source.Sources) == 0 {
			return fmt.Errorf("%w: source url %s names no member files", ErrInvalid, c.Source.URL)
		}
	}

	if c.Renderer.Preset == "" && c.Renderer.TemplateRoot == "" {
		return fmt.Errorf("%w: a preset or template root is required", ErrInvalid)
	}
	return nil
}

// ValidateOutput additionally requires an output directory.
func (c *Config) ValidateOutput() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Renderer.OutputDir == "" {
		return fmt.Errorf("%w: output directory is required", ErrInvalid)
	}
	return nil
}

// ParserConfig returns the parser settings with the default rename table
// for the configured base url underneath the configured mappings.
func (c *Config) ParserConfig() parser.Config {
	mappings := DefaultMappings(c.Parser.BaseURL)
	for k, v := range c.Parser.Mappings {
		mappings[k] = v
	}

	return parser.Config{
		BaseURL:     c.Parser.BaseURL,
		Mappings:    mappings,
		LateBinding: c.Parser.LateBinding != nil && *c.Parser.LateBinding,
	}
}
