package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"coremirror/internal/format"
	"coremirror/internal/strain"
)

var showCmd = &cobra.Command{
	Use:   "show <sim-key>",
	Short: "Summarize the cached strain artifact of a simulation",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	key := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ix, err := openIndex(cfg.Root)
	if err != nil {
		return err
	}

	runs, ok := ix.Lookup(key)
	if !ok {
		return fmt.Errorf("%s is not materialized; run 'coremirror fetch %s' first", key, key)
	}

	out := cmd.OutOrStdout()
	for run, rec := range runs {
		s, err := strain.Read(rec.File)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Simulation:   %s\n", key)
		fmt.Fprintf(out, "Run:          %s\n", run)
		fmt.Fprintf(out, "Radius:       %s\n", format.Radius(rec.Radius))
		fmt.Fprintf(out, "Eccentricity: %s\n", format.Eccentricity(rec.Eccentricity))
		fmt.Fprintf(out, "Artifact:     %s\n", rec.File)
		fmt.Fprintf(out, "Samples:      %d\n", len(s))
		if len(s) > 0 && len(s[0]) > strain.ColRetardedTime {
			first := s[0][strain.ColRetardedTime]
			last := s[len(s)-1][strain.ColRetardedTime]
			fmt.Fprintf(out, "u/M range:    %g .. %g\n", first, last)
		}
	}
	return nil
}
