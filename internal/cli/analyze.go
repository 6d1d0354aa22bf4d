package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"zerodha-risk/internal/analytics"
	"zerodha-risk/internal/models"
	"zerodha-risk/pkg/utils"
)

func addAnalysisCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newBreakevenCmd(app))
}

func newAnalyzeCmd(app *App) *cobra.Command {
	var (
		vol       float64
		spot      float64
		valuation string
		margin    bool
		save      bool
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "analyze [positions-file...]",
		Short: "Analyse an option position book",
		Long: `Analyse option positions read from files, or from stdin when no file is
given. Each file is one position book on a single underlying and expiry.

Without --spot the current price is fetched from Kite, which needs a
session (see 'riskdesk login').`,
		Example: `  pbpaste | riskdesk analyze
  riskdesk analyze --spot 262.4 --vol 18 itc.txt
  riskdesk analyze --margin --save nifty.txt banknifty.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			valuationDate, err := parseValuation(valuation)
			if err != nil {
				return err
			}
			if vol < 0 {
				return fmt.Errorf("--vol must be positive, got %g", vol)
			}

			books, err := readPositionBooks(cmd, args)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			reqs := make([]analytics.Request, len(books))
			for i, raw := range books {
				reqs[i] = analytics.Request{
					Positions:     raw,
					Volatility:    vol / 100,
					Spot:          spot,
					ValuationDate: valuationDate,
					IncludeMargin: margin,
					Save:          save,
				}
			}

			if len(reqs) == 1 {
				report, err := app.Service.Analyze(ctx, reqs[0])
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(report)
				}
				printReport(output, report)
				return nil
			}

			results, err := app.Service.AnalyzeBatch(ctx, reqs)
			if err != nil {
				return err
			}
			return printBatch(output, args, results)
		},
	}

	cmd.Flags().Float64Var(&vol, "vol", 0, "annualised volatility in percent (default from config)")
	cmd.Flags().Float64Var(&spot, "spot", 0, "spot price of the underlying (default: live from Kite)")
	cmd.Flags().StringVar(&valuation, "valuation-date", "", "date to value from, YYYY-MM-DD (default: today IST)")
	cmd.Flags().BoolVar(&margin, "margin", false, "include basket margin from Kite")
	cmd.Flags().BoolVar(&save, "save", false, "save the report to history")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall time limit for broker calls")

	return cmd
}

func newBreakevenCmd(app *App) *cobra.Command {
	var valuation string

	cmd := &cobra.Command{
		Use:   "breakeven [positions-file]",
		Short: "Compute expiry breakevens only",
		Long:  "Compute the expiry breakeven prices of a position book. No broker session is needed.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			valuationDate, err := parseValuation(valuation)
			if err != nil {
				return err
			}
			books, err := readPositionBooks(cmd, args)
			if err != nil {
				return err
			}

			breakevens, err := app.Service.Breakevens(books[0], valuationDate)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"breakevens": breakevens,
				})
			}
			output.Printf("Breakevens: %s\n", formatBreakevens(breakevens))
			return nil
		},
	}

	cmd.Flags().StringVar(&valuation, "valuation-date", "", "date used to infer expiry years, YYYY-MM-DD")
	return cmd
}

func parseValuation(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := utils.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --valuation-date %q: %w", s, err)
	}
	return t, nil
}

// readPositionBooks returns one raw book per file argument, or stdin.
func readPositionBooks(cmd *cobra.Command, args []string) ([]string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return []string{string(data)}, nil
	}

	books := make([]string, len(args))
	for i, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		books[i] = string(data)
	}
	return books, nil
}

func printReport(output *Output, r *models.Report) {
	output.Bold("%s %s", r.Symbol, r.Expiry.Format("02-Jan-2006"))
	output.Printf("Spot: %s  Vol: %.2f%%  Days to expiry: %.0f\n",
		utils.FormatPrice(r.Spot), r.Volatility*100, r.TimeToExpiry*365)
	output.Println()

	table := NewTable(output, "Strike", "Type", "Qty", "Price", "Value")
	for _, row := range r.Rows {
		table.AddRow(
			utils.FormatPrice(row.Leg.Strike),
			row.Leg.Type.String(),
			utils.FormatQuantity(row.Leg.Quantity),
			utils.FormatPrice(row.Leg.Premium),
			output.FormatPnL(row.Value),
		)
	}
	table.Render()
	output.Println()

	output.Printf("Total value:    %s (%s)\n", utils.FormatMoney(r.TotalValue), output.FormatPnL(r.TotalValue))
	output.Printf("Breakevens:     %s\n", formatBreakevens(r.Breakevens))
	output.Printf("PoP:            %s\n", output.FormatProbability(r.ProbabilityOfProfit))
	output.Printf("Max profit:     %s\n", formatExtreme(output, r.MaxProfit, r.UnboundedProfit))
	output.Printf("Max loss:       %s\n", formatExtreme(output, r.MaxLoss, r.UnboundedLoss))

	if m := r.Margin; m != nil {
		output.Println()
		output.Bold("Margin")
		output.Printf("  Initial:  %s\n", utils.FormatIndianCurrency(m.InitialTotal))
		output.Printf("  Final:    %s\n", utils.FormatIndianCurrency(m.FinalTotal))
		output.Printf("  SPAN:     %s\n", utils.FormatIndianCurrency(m.SPAN))
		output.Printf("  Exposure: %s\n", utils.FormatIndianCurrency(m.Exposure))
	}

	if len(r.Regions) > 0 {
		output.Println()
		output.Dim("Price regions at expiry:")
		last := len(r.Regions) - 1
		for i, reg := range r.Regions {
			label := output.Red("loss  ")
			if reg.Profit {
				label = output.Green("profit")
			}
			output.Printf("  %s %s  %s\n", label, formatRange(reg.Low, reg.High, i == last), utils.FormatPercent(reg.Probability*100))
		}
	}
}

type batchItem struct {
	Source string         `json:"source"`
	Report *models.Report `json:"report,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func printBatch(output *Output, sources []string, results []analytics.Result) error {
	failed := 0
	items := make([]batchItem, len(results))
	for i, res := range results {
		items[i] = batchItem{Source: sources[i], Report: res.Report}
		if res.Err != nil {
			items[i].Error = res.Err.Error()
			failed++
		}
	}

	if output.IsJSON() {
		if err := output.JSON(items); err != nil {
			return err
		}
	} else {
		for i, item := range items {
			if i > 0 {
				output.Println(strings.Repeat("─", 40))
			}
			output.Dim("%s", item.Source)
			if item.Error != "" {
				output.Error("✗ %s", item.Error)
				continue
			}
			printReport(output, item.Report)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d position books failed", failed, len(results))
	}
	return nil
}

func formatBreakevens(bes []float64) string {
	if len(bes) == 0 {
		return "none"
	}
	parts := make([]string, len(bes))
	for i, b := range bes {
		parts[i] = utils.FormatPrice(b)
	}
	return strings.Join(parts, ", ")
}

func formatExtreme(output *Output, v float64, unbounded bool) string {
	if unbounded {
		return output.Yellow("Unlimited")
	}
	return output.FormatPnL(v)
}

// formatRange labels a region; the last one is open-ended.
func formatRange(low, high float64, last bool) string {
	if last && low <= 0 {
		return "any price"
	}
	if last {
		return fmt.Sprintf("above %s", utils.FormatPrice(low))
	}
	if low <= 0 {
		return fmt.Sprintf("below %s", utils.FormatPrice(high))
	}
	return fmt.Sprintf("%s – %s", utils.FormatPrice(low), utils.FormatPrice(high))
}
