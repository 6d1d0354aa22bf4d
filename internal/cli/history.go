package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"zerodha-risk/internal/store"
	"zerodha-risk/pkg/utils"
)

func addHistoryCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Saved analysis reports",
		Long:  "List, show and delete reports saved with 'analyze --save'.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			if app.Store == nil {
				return fmt.Errorf("report history is unavailable (store %s could not be opened)", app.Config.StorePath())
			}
			return nil
		},
	}

	cmd.AddCommand(newHistoryListCmd(app))
	cmd.AddCommand(newHistoryShowCmd(app))
	cmd.AddCommand(newHistoryDeleteCmd(app))
	rootCmd.AddCommand(cmd)
}

func newHistoryListCmd(app *App) *cobra.Command {
	var (
		symbol string
		from   string
		to     string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved reports, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			filter := store.ReportFilter{Symbol: symbol, Limit: limit}
			if from != "" {
				t, err := utils.ParseDate(from)
				if err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
				filter.StartDate = t
			}
			if to != "" {
				t, err := utils.ParseDate(to)
				if err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
				filter.EndDate = t.AddDate(0, 0, 1)
			}

			reports, err := app.Store.GetReports(cmd.Context(), filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(reports)
			}
			if len(reports) == 0 {
				output.Info("No saved reports")
				return nil
			}

			table := NewTable(output, "ID", "Created", "Symbol", "Expiry", "Spot", "PoP", "Value")
			for _, r := range reports {
				table.AddRow(
					r.ID[:min(8, len(r.ID))],
					r.CreatedAt.In(utils.IndiaLocation).Format("02-Jan 15:04"),
					r.Symbol,
					r.Expiry.Format("02-Jan-06"),
					utils.FormatPrice(r.Spot),
					output.FormatProbability(r.ProbabilityOfProfit),
					output.FormatPnL(r.TotalValue),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().StringVarP(&symbol, "symbol", "s", "", "filter by underlying")
	cmd.Flags().StringVar(&from, "from", "", "earliest creation date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "latest creation date, YYYY-MM-DD")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum reports to list (0 for all)")
	return cmd
}

func newHistoryShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			report, err := app.Store.GetReport(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(report)
			}
			output.Dim("Report %s, saved %s", report.ID, report.CreatedAt.In(utils.IndiaLocation).Format("02-Jan-2006 15:04 IST"))
			printReport(output, report)
			return nil
		},
	}
}

func newHistoryDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Store.DeleteReport(cmd.Context(), args[0]); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"deleted": args[0]})
			}
			output.Success("✓ Deleted report %s", args[0])
			return nil
		},
	}
}
