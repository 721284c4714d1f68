package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tradovate-journal/internal/ingest"
	"tradovate-journal/internal/logging"
	"tradovate-journal/internal/models"
	"tradovate-journal/internal/performance"
)

// addImportCommands adds fill import commands.
func addImportCommands(rootCmd *cobra.Command, app *App) {
	var account string

	cmd := &cobra.Command{
		Use:   "import <file.csv> [more files...]",
		Short: "Import broker fill exports",
		Long: `Import one or more broker CSV exports into the journal.

Each fill's identity is derived from its row content, so importing the
same export twice is a no-op and overlapping exports only add the new
rows.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if app.Store == nil {
				return fmt.Errorf("store not initialized")
			}
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			defaultAccount := account
			if defaultAccount == "" {
				defaultAccount = app.Config.Import.DefaultAccount
			}
			parser := ingest.NewParser(app.Classifier.Location(), defaultAccount)

			type fileSummary struct {
				File       string `json:"file"`
				Parsed     int    `json:"parsed"`
				Inserted   int    `json:"inserted"`
				Duplicates int    `json:"duplicates"`
				Skipped    int    `json:"skipped"`
			}
			var summaries []fileSummary

			for _, path := range args {
				result, err := parser.ParseFile(path)
				if err != nil {
					return fmt.Errorf("importing %s: %w", path, err)
				}

				// Insert in chunks so huge exports do not build one
				// giant statement batch.
				var inserted, duplicates int
				batcher := performance.NewBatchProcessor(500, func(fills []*models.Fill) error {
					saved, err := app.Store.SaveFills(ctx, fills)
					if err != nil {
						return err
					}
					inserted += saved.Inserted
					duplicates += saved.Duplicates
					return nil
				})
				for _, f := range result.Fills {
					if err := batcher.Add(f); err != nil {
						return fmt.Errorf("importing %s: %w", path, err)
					}
				}
				if err := batcher.Flush(); err != nil {
					return fmt.Errorf("importing %s: %w", path, err)
				}

				for _, ferr := range result.Skipped {
					logging.LogFillSkipped(app.Logger, "", ferr.Error())
					if !output.IsJSON() {
						output.Warning("  skipped %v", ferr)
					}
				}
				logging.LogImport(app.Logger, path, len(result.Fills), inserted, duplicates, len(result.Skipped))

				summaries = append(summaries, fileSummary{
					File:       path,
					Parsed:     len(result.Fills),
					Inserted:   inserted,
					Duplicates: duplicates,
					Skipped:    len(result.Skipped),
				})
			}

			if output.IsJSON() {
				return output.JSON(summaries)
			}
			for _, s := range summaries {
				output.Bold("%s", s.File)
				output.Printf("  %d fills parsed, %d inserted, %d duplicates", s.Parsed, s.Inserted, s.Duplicates)
				if s.Skipped > 0 {
					output.Printf(", %d rows skipped", s.Skipped)
				}
				output.Println()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "account for fills without an account column")
	rootCmd.AddCommand(cmd)
}
