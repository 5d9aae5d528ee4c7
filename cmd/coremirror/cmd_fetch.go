package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"coremirror/internal/format"
	"coremirror/internal/mirror"
)

var fetchFlags struct {
	overwrite bool
	keepRaw   bool
	workers   int
	protocol  string
	lfs       bool
	verbose   bool
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <sim-key>...",
	Short: "Fetch simulations and extract their best strain artifact",
	Long: `Fetch synchronizes the raw data of each simulation key, selects the
lowest-eccentricity run and its highest-radius channel, writes the
compact strain artifact into the mirror, and purges the raw data.

Already-cached simulations are skipped unless --overwrite is set.
Keys look like BAM:0001 or THC:0042.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFetch,
}

func init() {
	f := fetchCmd.Flags()
	f.BoolVar(&fetchFlags.overwrite, "overwrite", false, "Re-materialize even when already cached")
	f.BoolVar(&fetchFlags.keepRaw, "keep-raw", false, "Keep the raw data after extraction")
	f.IntVar(&fetchFlags.workers, "workers", 0, "Concurrent materializations (default: config)")
	f.StringVar(&fetchFlags.protocol, "protocol", "", "Git transport: https or ssh (default: config)")
	f.BoolVar(&fetchFlags.lfs, "lfs", false, "Pull git-lfs objects after sync")
	f.BoolVarP(&fetchFlags.verbose, "verbose", "v", false, "Pass git progress through to the terminal")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if fetchFlags.workers > 0 {
		cfg.Workers = fetchFlags.workers
	}
	if fetchFlags.protocol != "" {
		cfg.Protocol = fetchFlags.protocol
	}
	if fetchFlags.lfs {
		cfg.LFS = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	m, err := newManager(cfg, fetchFlags.verbose)
	if err != nil {
		return err
	}

	results := m.MaterializeMany(cmd.Context(), args, mirror.Options{
		Overwrite: fetchFlags.overwrite,
		KeepRaw:   fetchFlags.keepRaw || cfg.KeepRaw,
	})

	out := cmd.OutOrStdout()
	failed := 0
	for _, res := range results {
		switch {
		case res.Err != nil:
			failed++
			fmt.Fprintf(out, "%-12s FAILED   %v\n", res.Key, res.Err)
		case res.Skipped:
			fmt.Fprintf(out, "%-12s skipped  run=%s r=%s ecc=%s (cached)\n",
				res.Key, res.Run,
				format.Radius(res.Record.Radius), format.Eccentricity(res.Record.Eccentricity))
		default:
			fmt.Fprintf(out, "%-12s ok       run=%s r=%s ecc=%s %s\n",
				res.Key, res.Run,
				format.Radius(res.Record.Radius), format.Eccentricity(res.Record.Eccentricity),
				res.Record.File)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d simulations failed", failed, len(results))
	}
	return nil
}
