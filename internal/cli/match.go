package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tradovate-journal/internal/matching"
	"tradovate-journal/internal/performance"
	"tradovate-journal/internal/store"
)

// addMatchCommands adds the matching run command.
func addMatchCommands(rootCmd *cobra.Command, app *App) {
	var (
		account    string
		instrument string
		workers    int
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match fills into round-trip trades",
		Long: `Run position matching over unmatched fills.

Fills accumulate into the open position per account and instrument; each
time the position returns to flat a trade is closed. The run is
incremental: already matched fills stay untouched and open positions pick
up where the last run left them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store not initialized")
			}
			ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
			defer cancel()

			pool := performance.NewWorkerPool(workers)
			pool.Start()
			defer pool.Stop()

			runner := matching.NewRunner(app.Store, app.Classifier, pool, app.Logger)
			summary, err := runner.Run(ctx, store.FillFilter{
				Account:    account,
				Instrument: instrument,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(summary)
			}

			output.Bold("Matching run")
			output.Printf("  Groups:         %d\n", summary.Groups)
			output.Printf("  Fills loaded:   %d\n", summary.FillsLoaded)
			output.Printf("  Fills consumed: %d\n", summary.FillsConsumed)
			output.Printf("  Trades created: %d\n", summary.TradesCreated)
			if summary.OpenPositions > 0 {
				output.Info("  Open positions: %d", summary.OpenPositions)
			}
			for _, skip := range summary.Skipped {
				output.Warning("  skipped %s", skip)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "limit matching to one account")
	cmd.Flags().StringVar(&instrument, "instrument", "", "limit matching to one instrument")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker count for parallel groups (0 = CPU count)")
	rootCmd.AddCommand(cmd)
}
