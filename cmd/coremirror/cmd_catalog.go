package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"coremirror/internal/format"
)

var catalogFlags struct {
	filters   []string
	countRuns bool
	eos       bool
	markdown  bool
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Query the metadata catalog of synchronized simulations",
	Long: `Catalog lists the simulations already synchronized into the mirror,
optionally filtered by metadata attribute equality.

  coremirror catalog --filter id_eos=SLy --filter id_mass=2.7
  coremirror catalog --eos
  coremirror catalog --count-runs`,
	RunE: runCatalog,
}

func init() {
	f := catalogCmd.Flags()
	f.StringArrayVar(&catalogFlags.filters, "filter", nil, "Attribute equality filter as name=value (repeatable)")
	f.BoolVar(&catalogFlags.countRuns, "count-runs", false, "Print the total run count of the selection")
	f.BoolVar(&catalogFlags.eos, "eos", false, "Print the equations of state in the selection")
	f.BoolVar(&catalogFlags.markdown, "markdown", false, "Render the table as Markdown")
}

func runCatalog(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	table, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	filters := make([][2]string, 0, len(catalogFlags.filters))
	for _, raw := range catalogFlags.filters {
		name, value, ok := strings.Cut(raw, "=")
		if !ok || name == "" {
			return fmt.Errorf("filter %q is not name=value", raw)
		}
		filters = append(filters, [2]string{name, value})
	}
	table = table.FilterMultiple(filters)

	out := cmd.OutOrStdout()
	if catalogFlags.eos {
		fmt.Fprintln(out, strings.Join(table.EOS(), "\n"))
		return nil
	}
	if catalogFlags.countRuns {
		fmt.Fprintf(out, "%d simulations, %d runs\n", table.Len(), table.CountRuns())
		return nil
	}
	if table.Len() == 0 {
		fmt.Fprintf(out, "No simulations match under %s\n", cfg.Root)
		return nil
	}

	mode := format.ASCII
	if catalogFlags.markdown {
		mode = format.Markdown
	}
	tb := format.NewTable(mode)
	tb.Header("Simulation", "EOS", "Mass", "Eccentricity", "Runs")
	tb.Columns(
		format.ColumnConfig{Number: 3, Align: format.AlignRight},
		format.ColumnConfig{Number: 4, Align: format.AlignRight},
		format.ColumnConfig{Number: 5, Align: format.AlignRight},
	)
	for _, key := range table.Keys() {
		row, _ := table.Row(key)
		tb.Row(key,
			row.Attrs["id_eos"],
			format.Eccentricity(table.Float(key, "id_mass")),
			format.Eccentricity(table.Float(key, "id_eccentricity")),
			len(row.Runs()))
	}
	tb.Footer("TOTAL", "", "", "", table.CountRuns())

	fmt.Fprintln(out, tb.String())
	return nil
}
