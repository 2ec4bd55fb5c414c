package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fhirgen/internal/config"
	"fhirgen/internal/generator"
	"fhirgen/internal/model"
	"fhirgen/internal/parser"
)

func generateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Resolve definitions and render them into the output directory",
		Example: `  # Go structs for FHIR R4 into ./gen
  fhirgen generate -o gen --cache-dir ~/.cache/fhirgen

  # Local definitions, own templates
  fhirgen generate --source-dir ./definitions --templates ./templates -o gen --var package_name=models`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateOutput(); err != nil {
				return err
			}

			templates, err := openTemplates(cfg)
			if err != nil {
				return err
			}

			out, err := opts.resolve(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			vars := make(map[string]any, len(cfg.Renderer.Variables)+1)
			vars["run_id"] = opts.runID
			for k, v := range cfg.Renderer.Variables {
				vars[k] = v
			}

			gen, err := generator.New(generator.Config{
				Templates: templates,
				OutputDir: cfg.Renderer.OutputDir,
				Variables: vars,
			}, opts.log)
			if err != nil {
				return err
			}

			files, err := gen.Generate(out)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Generated %d files in %s\n", len(files), cfg.Renderer.OutputDir)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.outputDir, "output", "o", "", "output directory, replaced on success")
	f.StringVar(&opts.preset, "preset", "", "embedded template preset")
	f.StringVarP(&opts.templateRoot, "templates", "t", "", "template directory with a manifest.yaml")
	f.StringArrayVar(&opts.vars, "var", nil, "template variable key=value (repeatable)")

	return cmd
}

// resolve reads the configured source and parses it into a type graph.
func (o *options) resolve(ctx context.Context, cfg *config.Config) (*model.Output, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p, err := parser.New(cfg.ParserConfig(), o.log)
	if err != nil {
		return nil, err
	}

	resources, err := o.openSource(cfg).Resources(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading definitions: %w", err)
	}
	o.log.Info().Int("resources", len(resources)).Msg("loaded definitions")

	out, err := p.Parse(resources)
	if err != nil {
		return nil, fmt.Errorf("parsing definitions: %w", err)
	}
	o.log.Info().Int("types", len(out.Types)).Msg("resolved types")

	return out, nil
}
