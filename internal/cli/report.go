package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tradovate-journal/internal/pnl"
)

// addReportCommands adds PnL reporting commands.
func addReportCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "pnl",
		Short: "Realized PnL reports",
		Long:  "Aggregate realized PnL by trading day. Days are bounded by the session close, not midnight.",
	}

	cmd.AddCommand(newPnlDailyCmd(app))
	cmd.AddCommand(newPnlCalendarCmd(app))

	rootCmd.AddCommand(cmd)
}

func newPnlDailyCmd(app *App) *cobra.Command {
	var (
		account    string
		instrument string
		from       string
		to         string
	)

	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Daily PnL report",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store not initialized")
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			agg := pnl.NewAggregator(app.Store, app.Classifier)
			report, err := agg.Daily(ctx, pnl.Filter{
				Account:    account,
				Instrument: instrument,
				StartDay:   from,
				EndDay:     to,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(report)
			}
			renderReport(output, report)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "filter by account")
	cmd.Flags().StringVar(&instrument, "instrument", "", "filter by instrument")
	cmd.Flags().StringVar(&from, "from", "", "first trading day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last trading day (YYYY-MM-DD)")
	return cmd
}

func newPnlCalendarCmd(app *App) *cobra.Command {
	var (
		account    string
		instrument string
	)

	cmd := &cobra.Command{
		Use:   "calendar <year> <month>",
		Short: "Monthly PnL calendar",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store not initialized")
			}

			year, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid year %q", args[0])
			}
			monthNum, err := strconv.Atoi(args[1])
			if err != nil || monthNum < 1 || monthNum > 12 {
				return fmt.Errorf("invalid month %q", args[1])
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			agg := pnl.NewAggregator(app.Store, app.Classifier)
			report, err := agg.Calendar(ctx, pnl.Filter{
				Account:    account,
				Instrument: instrument,
			}, year, time.Month(monthNum))
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(report)
			}
			output.Bold("PnL calendar %d-%02d", year, monthNum)
			renderReport(output, report)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "filter by account")
	cmd.Flags().StringVar(&instrument, "instrument", "", "filter by instrument")
	return cmd
}

func renderReport(output *Output, report *pnl.Report) {
	if len(report.Days) == 0 {
		output.Dim("No closed trades in range.")
		return
	}

	table := NewTable(output, "Day", "Trades", "Win", "Loss", "PnL")
	for _, day := range report.Days {
		table.AddRow(
			day.Day.String(),
			strconv.Itoa(day.TradeCount),
			strconv.Itoa(day.WinningTrades),
			strconv.Itoa(day.LosingTrades),
			output.FormatPnL(day.PnL),
		)
	}
	table.Render()
	output.Println()
	output.Bold("Total: %s over %d trades", FormatPnL(report.TotalPnL), report.TotalTrades)
}
