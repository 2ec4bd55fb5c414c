// fhirgen resolves FHIR StructureDefinitions into a type graph and
// generates code from it using templates.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"fhirgen/internal/config"
	"fhirgen/internal/source"
	"fhirgen/presets"
)

// options holds the flags shared by every command.
type options struct {
	configFile   string
	envFile      string
	sourceURL    string
	sources      []string
	sourceDir    string
	version      string
	cacheDir     string
	baseURL      string
	outputDir    string
	preset       string
	templateRoot string
	vars         []string
	strict       bool
	verbose      bool

	runID string
	log   zerolog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "fhirgen",
		Short:         "FHIR StructureDefinition code generator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("loading %s: %w", opts.envFile, err)
			}

			opts.runID = uuid.NewString()
			level := zerolog.InfoLevel
			if opts.verbose {
				level = zerolog.DebugLevel
			}
			opts.log = zerolog.New(zerolog.ConsoleWriter{Out: stderr}).
				Level(level).
				With().
				Timestamp().
				Str("run", opts.runID).
				Logger()
			return nil
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	f := rootCmd.PersistentFlags()
	f.StringVarP(&opts.configFile, "config", "c", "", "config file (YAML/JSON)")
	f.StringVar(&opts.envFile, "env-file", ".env", "environment file, ignored when missing")
	f.StringVar(&opts.sourceURL, "source-url", "", "definitions archive url")
	f.StringSliceVar(&opts.sources, "source", nil, "archive member to read (repeatable)")
	f.StringVar(&opts.sourceDir, "source-dir", "", "directory of definition JSON files, instead of an archive")
	f.StringVar(&opts.version, "source-version", "", "definitions version, separates cache entries")
	f.StringVar(&opts.cacheDir, "cache-dir", "", "keep downloaded archives in this directory")
	f.StringVar(&opts.baseURL, "base-url", "", "canonical base url of the core definitions")
	f.BoolVar(&opts.strict, "strict", false, "fail on reference cycles instead of binding property types late")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(generateCmd(opts))
	rootCmd.AddCommand(inspectCmd(opts))

	return rootCmd
}

// loadConfig layers defaults, the config file, FHIRGEN_* variables and
// flags, in that order.
func (o *options) loadConfig() (*config.Config, error) {
	cfg := config.New()
	if o.configFile != "" {
		if err := cfg.LoadFile(o.configFile); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}
	cfg.ApplyEnv()

	if o.sourceURL != "" {
		cfg.Source.URL = o.sourceURL
		cfg.Source.Dir = ""
	}
	if len(o.sources) > 0 {
		cfg.Source.Sources = o.sources
	}
	if o.sourceDir != "" {
		cfg.Source.Dir = o.sourceDir
		cfg.Source.URL = ""
	}
	if o.version != "" {
		cfg.Source.Version = o.version
	}
	if o.cacheDir != "" {
		cfg.Source.CacheDir = o.cacheDir
	}
	if o.baseURL != "" {
		cfg.Parser.BaseURL = o.baseURL
	}
	if o.strict {
		late := false
		cfg.Parser.LateBinding = &late
	}
	if o.preset != "" {
		cfg.Renderer.Preset = o.preset
		cfg.Renderer.TemplateRoot = ""
	}
	if o.templateRoot != "" {
		cfg.Renderer.TemplateRoot = o.templateRoot
		cfg.Renderer.Preset = ""
	}
	if o.outputDir != "" {
		cfg.Renderer.OutputDir = o.outputDir
	}
	for _, kv := range o.vars {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: variable %q is not key=value", config.ErrInvalid, kv)
		}
		cfg.Renderer.Variables[key] = value
	}

	return cfg, nil
}

// openSource returns the configured definitions source.
func (o *options) openSource(cfg *config.Config) source.Source {
	if cfg.Source.Dir != "" {
		return source.NewDirectory(cfg.Source.Dir, o.log)
	}
	return source.NewArchive(source.ArchiveOptions{
		URL:      cfg.Source.URL,
		Members:  cfg.Source.Sources,
		Version:  cfg.Source.Version,
		CacheDir: cfg.Source.CacheDir,
	}, o.log)
}

// openTemplates returns the template tree: the directory when one is
// configured, else the embedded preset.
func openTemplates(cfg *config.Config) (fs.FS, error) {
	if cfg.Renderer.TemplateRoot != "" {
		if _, err := os.Stat(cfg.Renderer.TemplateRoot); err != nil {
			return nil, fmt.Errorf("template root: %w", err)
		}
		return os.DirFS(cfg.Renderer.TemplateRoot), nil
	}
	return presets.Open(cfg.Renderer.Preset)
}
