package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/auditware/fiscal-cli/internal/store"
)

var ledgersCmd = &cobra.Command{
	Use:   "ledgers",
	Short: "Inspect stored ledgers",
	Long:  "Commands for listing, viewing, and deleting parsed ledgers.",
}

// -- ledgers list --

var ledgersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored ledgers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		cnpj, _ := cmd.Flags().GetString("cnpj")
		limit, _ := cmd.Flags().GetInt("limit")

		ledgers, err := st.ListLedgers(ctx, store.LedgerFilter{CNPJ: cnpj, Limit: limit})
		if err != nil {
			return eris.Wrap(err, "ledgers list")
		}

		if len(ledgers) == 0 {
			fmt.Fprintln(os.Stderr, "No ledgers found.")
			return nil
		}

		formatLedgersList(os.Stdout, ledgers)
		return nil
	},
}

// -- ledgers show --

var ledgersShowCmd = &cobra.Command{
	Use:   "show <ledger-id>",
	Short: "Show the full document graph of a ledger",
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
			return eris.Wrap(err, "ledgers show")
		}
		ledger, err := st.LoadLedger(ctx, sum.ID)
		if err != nil {
			return eris.Wrap(err, "ledgers show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(ledger)
	},
}

// -- ledgers delete --

var ledgersDeleteCmd = &cobra.Command{
	Use:   "delete <ledger-id>",
	Short: "Delete a ledger and everything derived from it",
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
			return eris.Wrap(err, "ledgers delete")
		}
		if err := st.DeleteLedger(ctx, sum.ID); err != nil {
			return eris.Wrap(err, "ledgers delete")
		}

		fmt.Printf("Deleted ledger %s\n", truncateID(sum.ID))
		return nil
	},
}

// -- ledgers findings --

var ledgersFindingsCmd = &cobra.Command{
	Use:   "findings <ledger-id>",
	Short: "Show saved fuel audit findings for a ledger",
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
			return eris.Wrap(err, "ledgers findings")
		}
		findings, err := st.ListInconsistencies(ctx, sum.ID)
		if err != nil {
			return eris.Wrap(err, "ledgers findings")
		}

		formatFindings(os.Stdout, findings)
		return nil
	},
}

// formatLedgersList writes a tabular list of ledger summaries to out.
func formatLedgersList(out io.Writer, ledgers []store.LedgerSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOMPANY\tCNPJ\tPERIOD\tDOCS\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t-------\t----\t------\t----\t-------")

	for _, l := range ledgers {
		company := l.CompanyName
		if company == "" {
			company = l.FileName
		}
		if len(company) > 30 {
			company = company[:27] + "..."
		}

		period := ""
		if l.PeriodStart != nil && l.PeriodEnd != nil {
			period = l.PeriodStart.Format("2006-01-02") + ".." + l.PeriodEnd.Format("2006-01-02")
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			truncateID(l.ID),
			company,
			l.CNPJ,
			period,
			l.Documents,
			l.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of an id for display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	ledgersListCmd.Flags().String("cnpj", "", "filter by establishment CNPJ")
	ledgersListCmd.Flags().Int("limit", 50, "max number of ledgers to display")

	ledgersCmd.AddCommand(ledgersListCmd)
	ledgersCmd.AddCommand(ledgersShowCmd)
	ledgersCmd.AddCommand(ledgersDeleteCmd)
	ledgersCmd.AddCommand(ledgersFindingsCmd)
	rootCmd.AddCommand(ledgersCmd)
}
