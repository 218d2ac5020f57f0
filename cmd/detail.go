package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/auditware/fiscal-cli/internal/model"
	"github.com/auditware/fiscal-cli/internal/reconcile"
)

var (
	detailCNPJ   string
	detailDate   string
	detailCFOP   string
	detailFormat string
)

var detailCmd = &cobra.Command{
	Use:   "detail <ledger-id>",
	Short: "Drill a comparison cell down to invoices",
	Long:  "Explains one (date, CFOP) difference by matching ledger documents against external invoices by access key.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		date, err := parseDateFlag(detailDate)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sum, err := resolveLedger(ctx, st, args[0])
		if err != nil {
			return eris.Wrap(err, "detail")
		}

		cnpj := detailCNPJ
		if cnpj == "" {
			cnpj = sum.CNPJ
		}

		ledger, err := st.LoadLedger(ctx, sum.ID)
		if err != nil {
			return eris.Wrap(err, "detail")
		}
		invoices, err := st.ListInvoices(ctx, cnpj)
		if err != nil {
			return eris.Wrap(err, "detail")
		}

		opts := reconcile.DetailOptions{
			CNPJ:   cnpj,
			Models: toSet(cfg.Reconcile.Models),
		}
		det := reconcile.Detail(ledger.Outbound, invoices, *date, detailCFOP, opts)

		switch detailFormat {
		case "table":
			formatDetail(os.Stdout, &det)
			return nil
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(det)
		default:
			return eris.Errorf("unknown output format: %s", detailFormat)
		}
	},
}

// formatDetail writes a per-invoice divergence table for one cell.
func formatDetail(out io.Writer, det *model.DivergenceDetail) {
	fmt.Fprintf(out, "Cell %s CFOP %s: external %s, ledger %s, diff %s\n",
		det.Date.Format("2006-01-02"),
		det.CFOP,
		det.TotalExternal.StringFixed(2),
		det.TotalLedger.StringFixed(2),
		det.DiffAbs.StringFixed(2),
	)
	if len(det.Entries) == 0 {
		fmt.Fprintln(out, "No invoices in this cell.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KEY\tSTATUS\tEXTERNAL\tLEDGER\tDIFF")
	_, _ = fmt.Fprintln(w, "---\t------\t--------\t------\t----")
	for _, e := range det.Entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.Key,
			e.Status,
			e.External.StringFixed(2),
			e.Ledger.StringFixed(2),
			e.Diff.StringFixed(2),
		)
	}
	_ = w.Flush()
}

func init() {
	detailCmd.Flags().StringVar(&detailCNPJ, "cnpj", "", "external invoice CNPJ (defaults to the ledger's)")
	detailCmd.Flags().StringVar(&detailDate, "date", "", "cell date (YYYY-MM-DD, required)")
	detailCmd.Flags().StringVar(&detailCFOP, "cfop", "", "cell CFOP code (required)")
	detailCmd.Flags().StringVar(&detailFormat, "format", "table", "output format (table, json)")
	_ = detailCmd.MarkFlagRequired("date")
	_ = detailCmd.MarkFlagRequired("cfop")
	rootCmd.AddCommand(detailCmd)
}
