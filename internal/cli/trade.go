package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tradovate-journal/internal/models"
	"tradovate-journal/internal/store"
	"tradovate-journal/internal/tradingday"
)

// addTradeCommands adds trade listing and override commands.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "trades",
		Short: "Closed trade management",
		Long:  "List closed trades and override their classification.",
	}

	cmd.AddCommand(newTradesListCmd(app))
	cmd.AddCommand(newTradesShowCmd(app))
	cmd.AddCommand(newTradesSetTypeCmd(app))

	rootCmd.AddCommand(cmd)
}

func newTradesListCmd(app *App) *cobra.Command {
	var (
		account    string
		instrument string
		tradeType  string
		day        string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List closed trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store not initialized")
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			filter := store.TradeFilter{
				Account:    account,
				Instrument: instrument,
				TradeType:  models.TradeType(tradeType),
				Limit:      limit,
			}
			if day != "" {
				label, err := tradingday.ParseDay(day)
				if err != nil {
					return err
				}
				filter.Start, filter.End = app.Classifier.RangeOf(label)
			}

			trades, err := app.Store.GetTrades(ctx, filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(trades)
			}
			if len(trades) == 0 {
				output.Dim("No trades found.")
				return nil
			}

			table := NewTable(output, "ID", "Instrument", "Dir", "Qty", "Entry", "Exit", "Held", "Type", "PnL")
			for _, t := range trades {
				table.AddRow(
					t.ID,
					t.Instrument,
					string(t.Direction),
					strconv.Itoa(t.Quantity),
					FormatPrice(t.EntryPrice),
					FormatPrice(t.ExitPrice),
					FormatDuration(t.HoldDuration()),
					string(t.TradeType),
					output.FormatPnL(t.PnL),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "filter by account")
	cmd.Flags().StringVar(&instrument, "instrument", "", "filter by instrument")
	cmd.Flags().StringVar(&tradeType, "type", "", "filter by trade type")
	cmd.Flags().StringVar(&day, "day", "", "filter by trading day (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum trades to list")
	return cmd
}

func newTradesShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <trade-id>",
		Short: "Show one trade with its fills",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store not initialized")
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			trade, err := app.Store.GetTradeByID(ctx, args[0])
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(trade)
			}

			output.Bold("%s  %s %s x%d", trade.ID, trade.Instrument, trade.Direction, trade.Quantity)
			output.Printf("  Account:   %s\n", trade.Account)
			output.Printf("  Entry:     %s @ %s\n", FormatTime(trade.EntryTime), FormatPrice(trade.EntryPrice))
			output.Printf("  Exit:      %s @ %s\n", FormatTime(trade.ExitTime), FormatPrice(trade.ExitPrice))
			output.Printf("  Held:      %s\n", FormatDuration(trade.HoldDuration()))
			output.Printf("  Day:       %s\n", app.Classifier.DayOf(trade.ExitTime))
			output.Printf("  Type:      %s\n", trade.TradeType)
			if trade.IsScaled {
				output.Printf("  Scaled:    yes\n")
			}
			output.Printf("  PnL:       %s\n", output.FormatPnL(trade.PnL))
			output.Dim("  Fills: %v", trade.FillIDs)
			return nil
		},
	}
}

func newTradesSetTypeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set-type <trade-id> <day_trade|swing|long_term>",
		Short: "Override a trade's type classification",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store not initialized")
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			tradeType := models.TradeType(args[1])
			if !models.ValidTradeType(tradeType) {
				return fmt.Errorf("invalid trade type %q (want day_trade, swing or long_term)", args[1])
			}

			if err := app.Store.UpdateTradeType(ctx, args[0], tradeType); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"trade_id": args[0], "trade_type": args[1]})
			}
			output.Success("Trade %s set to %s", args[0], args[1])
			return nil
		},
	}
}
