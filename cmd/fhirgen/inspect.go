package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
)

func inspectCmd(opts *options) *cobra.Command {
	var dump bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Resolve definitions and list the resulting types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			out, err := opts.resolve(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if dump {
				cs := spew.ConfigState{Indent: "  ", DisablePointerAddresses: true, SortKeys: true}
				cs.Fdump(w, out)
				return nil
			}

			tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tNAME\tURL\tBASE\tPROPERTIES")
			for _, t := range out.Types {
				base := "-"
				if t.Base != nil {
					base = t.Base.Name
				}
				name := t.Name
				if t.Inline {
					name += " (inline)"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", t.Kind, name, t.URL, base, len(t.Properties))
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&dump, "dump", false, "dump the full type graph")

	return cmd
}
