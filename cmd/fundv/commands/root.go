package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fundv",
	Short: "fundv - intrinsic value engine for A-share listings",
	Long: `fundv Unified CLI

Multi-method intrinsic valuation: three-stage DCF, owner earnings and
revenue-based models routed by company class, combined into a signal.

Usage:
  go run ./cmd/fundv [command]

Examples:
  go run ./cmd/fundv value 600900
  go run ./cmd/fundv api
  go run ./cmd/fundv schedule run
  go run ./cmd/fundv test-db`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
