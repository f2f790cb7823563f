// quant-sim - signal-driven trade simulation and backtesting service
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	cfgPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "quant-sim",
		Short: "Signal-driven trade simulation engine",
		Long: `quant-sim simulates a trading portfolio against live quotes and
historical price data: strategy signals are combined, sized under
risk limits, and executed against a virtual cash ledger.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to YAML config file (env vars used when empty)")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(backtestCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("quant-sim version %s\n", version)
		},
	}
}
