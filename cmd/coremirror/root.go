package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	root       string
	logLevel   string
	logFormat  string
}

var rootCmd = &cobra.Command{
	Use:   "coremirror",
	Short: "Local mirror of the CoRe gravitational-wave database",
	Long: "Coremirror maintains a local mirror of CoRe numerical-relativity\n" +
		"simulations: it fetches raw simulation data, extracts the best strain\n" +
		"channel per simulation, and serves the cached artifacts.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", "", "Path to config file (YAML/JSON)")
	pf.StringVar(&rootFlags.root, "root", "", "Mirror root directory (overrides config)")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "", "Log format: text or json (overrides config)")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
