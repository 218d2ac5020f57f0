package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/auditware/fiscal-cli/internal/model"
	"github.com/auditware/fiscal-cli/internal/reconcile"
	"github.com/auditware/fiscal-cli/internal/report"
)

var (
	compareCNPJ         string
	comparePeriodStart  string
	comparePeriodEnd    string
	compareOnlyPositive bool
	compareFormat       string
	compareXLSX         string
)

var compareCmd = &cobra.Command{
	Use:   "compare <ledger-id>",
	Short: "Reconcile a ledger against imported invoices",
	Long:  "Joins the ledger's outbound day/CFOP aggregates against the imported external aggregate for the same CNPJ and reports per-cell differences.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sum, err := resolveLedger(ctx, st, args[0])
		if err != nil {
			return eris.Wrap(err, "compare")
		}

		cnpj := compareCNPJ
		if cnpj == "" {
			cnpj = sum.CNPJ
		}

		proj, err := st.GetAggregates(ctx, sum.ID)
		if err != nil {
			return eris.Wrap(err, "compare")
		}
		external, err := st.GetExternalAggregate(ctx, cnpj)
		if err != nil {
			return eris.Wrap(err, "compare")
		}

		opts := reconcile.CompareOptions{
			CNPJ:             cnpj,
			ExcludeCFOPs:     toSet(cfg.Reconcile.ExcludeCFOPs),
			Models:           toSet(cfg.Reconcile.Models),
			Tolerance:        decimal.NewFromFloat(cfg.Reconcile.Tolerance),
			OnlyPositiveDiff: compareOnlyPositive,
		}
		if opts.PeriodStart, err = parseDateFlag(comparePeriodStart); err != nil {
			return err
		}
		if opts.PeriodEnd, err = parseDateFlag(comparePeriodEnd); err != nil {
			return err
		}

		result := reconcile.Compare(proj.DayCodes, external, opts)

		zap.L().Info("comparison complete",
			zap.String("ledger", sum.ID),
			zap.String("cnpj", cnpj),
			zap.Int("cells", len(result.Rows)),
		)

		if compareXLSX != "" {
			if err := report.WriteComparisonXLSX(compareXLSX, &result); err != nil {
				return eris.Wrap(err, "compare export")
			}
			fmt.Fprintf(os.Stderr, "Wrote %s\n", compareXLSX)
		}

		switch compareFormat {
		case "table":
			formatComparison(os.Stdout, &result)
			return nil
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		case "yaml":
			return yaml.NewEncoder(os.Stdout).Encode(result)
		default:
			return eris.Errorf("unknown output format: %s", compareFormat)
		}
	},
}

// formatComparison writes the comparison cells as a table with totals.
func formatComparison(out io.Writer, result *model.ComparisonResult) {
	if len(result.Rows) == 0 {
		fmt.Fprintln(out, "No differences found.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATE\tCFOP\tEXTERNAL\tLEDGER\tDIFF\tDIFF %")
	_, _ = fmt.Fprintln(w, "----\t----\t--------\t------\t----\t------")
	for _, r := range result.Rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s%%\n",
			r.Date.Format("2006-01-02"),
			r.CFOP,
			r.External.StringFixed(2),
			r.Ledger.StringFixed(2),
			r.DiffAbs.StringFixed(2),
			r.DiffPerc.StringFixed(2),
		)
	}
	_, _ = fmt.Fprintf(w, "TOTAL\t\t%s\t%s\t%s\t\n",
		result.TotalExternal.StringFixed(2),
		result.TotalLedger.StringFixed(2),
		result.TotalExternal.Sub(result.TotalLedger).StringFixed(2),
	)
	_ = w.Flush()
}

func init() {
	compareCmd.Flags().StringVar(&compareCNPJ, "cnpj", "", "external aggregate CNPJ (defaults to the ledger's)")
	compareCmd.Flags().StringVar(&comparePeriodStart, "from", "", "period start (YYYY-MM-DD)")
	compareCmd.Flags().StringVar(&comparePeriodEnd, "to", "", "period end (YYYY-MM-DD)")
	compareCmd.Flags().BoolVar(&compareOnlyPositive, "only-positive", false, "keep only cells where external exceeds ledger")
	compareCmd.Flags().StringVar(&compareFormat, "format", "table", "output format (table, json, yaml)")
	compareCmd.Flags().StringVar(&compareXLSX, "xlsx", "", "also write the report to this XLSX path")
	rootCmd.AddCommand(compareCmd)
}
