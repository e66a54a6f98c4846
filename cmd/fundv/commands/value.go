package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mingzhao/fundv/pkg/config"
	"github.com/mingzhao/fundv/pkg/logger"
)

// valueCmd represents the value command
var valueCmd = &cobra.Command{
	Use:   "value <ticker>",
	Short: "Run a one-shot valuation for a ticker",
	Long: `Fetches the latest quote and financial report for a ticker, runs
the multi-method valuation and prints the result as JSON.

Example:
  go run ./cmd/fundv value 600900
  go run ./cmd/fundv value 300750 --pretty`,
	Args: cobra.ExactArgs(1),
	RunE: runValue,
}

var valuePretty bool

func init() {
	rootCmd.AddCommand(valueCmd)

	valueCmd.Flags().BoolVar(&valuePretty, "pretty", false, "indent the JSON output")
}

func runValue(cmd *cobra.Command, args []string) error {
	ticker := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	provider, cleanup, err := newProvider(cfg, log)
	if err != nil {
		return fmt.Errorf("init market data provider: %w", err)
	}
	defer cleanup()

	engine := newEngine(cfg, log)

	ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
	defer cancel()

	snap, mkt, err := provider.Snapshot(ctx, ticker)
	if err != nil {
		return fmt.Errorf("fetch snapshot for %s: %w", ticker, err)
	}

	run := engine.Valuate(snap, mkt)

	enc := json.NewEncoder(os.Stdout)
	if valuePretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(run)
}
