package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"coremirror/internal/format"
)

var statusFlags struct {
	markdown bool
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List the strain artifacts cached in the local mirror",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusFlags.markdown, "markdown", false, "Render the table as Markdown")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ix, err := openIndex(cfg.Root)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if ix.Len() == 0 {
		fmt.Fprintf(out, "No cached artifacts under %s\n", cfg.Root)
		fmt.Fprintf(out, "Run 'coremirror fetch <sim-key>' to materialize one.\n")
		return nil
	}

	mode := format.ASCII
	if statusFlags.markdown {
		mode = format.Markdown
	}
	tb := format.NewTable(mode)
	tb.Header("Simulation", "Run", "Radius", "Eccentricity", "Artifact")
	tb.Columns(
		format.ColumnConfig{Number: 3, Align: format.AlignRight},
		format.ColumnConfig{Number: 4, Align: format.AlignRight},
		format.ColumnConfig{Number: 5, MaxWidth: 60},
	)
	for _, sim := range ix.Sims() {
		runs, _ := ix.Lookup(sim)
		for run, rec := range runs {
			tb.Row(sim, run,
				format.Radius(rec.Radius),
				format.Eccentricity(rec.Eccentricity),
				rec.File)
		}
	}
	tb.Footer("TOTAL", ix.Len(), "", "", "")

	fmt.Fprintln(out, tb.String())
	return nil
}
