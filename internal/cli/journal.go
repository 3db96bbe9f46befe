package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	apperrors "pnl-attribution/internal/errors"
	"pnl-attribution/internal/logging"
	"pnl-attribution/internal/store"
)

// addJournalCommands adds the execution journal commands.
func addJournalCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newReportCmd(app))
	rootCmd.AddCommand(newImportCmd(app))
	rootCmd.AddCommand(newDaysCmd(app))
}

func newImportCmd(app *App) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import executions from CSV",
		Long: `Import option executions from a CSV file with the header

  symbol,strike,expiry,qty,effect,dtg,price,spot,iv,delta,theta,vega,gamma

effect is matched case-insensitively: a value containing "open" (OPEN,
Buy To Open) opens a position and one containing "close" (CLOSE,
sell_to_close) closes it. Anything else, including "Closing", is ignored
by reports.

dtg is either "YYYY-MM-DD HH:MM:SS" in the session timezone or RFC 3339.
Importing the same file again skips rows already in the journal. Identical
rows within one file are separate fills and are all kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			path := args[0]
			logger := logging.WithOperation(app.Logger, "import")
			ctx = logging.WithLogger(ctx, logger)
			start := time.Now()

			f, err := os.Open(path)
			if err != nil {
				return apperrors.NewImportError(path, 0, err)
			}
			defer f.Close()

			executions, err := store.ReadExecutionsCSV(f, app.Config.Location())
			if err != nil {
				var ie *apperrors.ImportError
				if apperrors.As(err, &ie) {
					ie.File = filepath.Base(path)
				}
				return err
			}

			inserted := 0
			if !dryRun {
				s, err := app.openStore()
				if err != nil {
					return err
				}
				inserted, err = s.SaveExecutions(ctx, executions)
				if err != nil {
					return err
				}
				logging.LogImport(logger, path, inserted, time.Since(start))
			}

			if output.IsStructured() {
				return output.Encode(map[string]interface{}{
					"file":     path,
					"rows":     len(executions),
					"inserted": inserted,
					"skipped":  len(executions) - inserted,
					"dry_run":  dryRun,
				})
			}

			if dryRun {
				output.Success("✓ %d executions in %s are valid", len(executions), filepath.Base(path))
				return nil
			}
			output.Success("✓ Imported %d executions from %s", inserted, filepath.Base(path))
			if skipped := len(executions) - inserted; skipped > 0 {
				output.Dim("  %d duplicate rows skipped", skipped)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without storing it")
	return cmd
}

func newDaysCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "days",
		Short: "List trading days with executions",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			s, err := app.openStore()
			if err != nil {
				return err
			}
			days, err := s.ListTradingDays(ctx, limit)
			if err != nil {
				return err
			}

			if output.IsStructured() {
				type dayView struct {
					Date       string `json:"date" yaml:"date"`
					Executions int    `json:"executions" yaml:"executions"`
				}
				views := make([]dayView, 0, len(days))
				for _, d := range days {
					views = append(views, dayView{Date: d.Date.Format(dateLayout), Executions: d.Executions})
				}
				return output.Encode(views)
			}

			if len(days) == 0 {
				output.Info("No executions in the journal yet.")
				return nil
			}

			table := NewTable(output, "Date", "Day", "Executions")
			for _, d := range days {
				table.AddRow(d.Date.Format(dateLayout), d.Date.Weekday().String()[:3], fmt.Sprintf("%d", d.Executions))
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of days (0 for all)")
	return cmd
}
