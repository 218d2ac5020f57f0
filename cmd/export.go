package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/auditware/fiscal-cli/internal/reconcile"
	"github.com/auditware/fiscal-cli/internal/report"
)

var (
	exportCNPJ string
	exportOut  string
)

var exportCmd = &cobra.Command{
	Use:   "export <ledger-id>",
	Short: "Export the full audit workbook",
	Long:  "Writes one XLSX workbook with the reconciliation sheet and the saved fuel findings for a ledger.",
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
			return eris.Wrap(err, "export")
		}

		cnpj := exportCNPJ
		if cnpj == "" {
			cnpj = sum.CNPJ
		}

		proj, err := st.GetAggregates(ctx, sum.ID)
		if err != nil {
			return eris.Wrap(err, "export")
		}
		external, err := st.GetExternalAggregate(ctx, cnpj)
		if err != nil {
			return eris.Wrap(err, "export")
		}
		findings, err := st.ListInconsistencies(ctx, sum.ID)
		if err != nil {
			return eris.Wrap(err, "export")
		}

		result := reconcile.Compare(proj.DayCodes, external, reconcile.CompareOptions{
			CNPJ:         cnpj,
			ExcludeCFOPs: toSet(cfg.Reconcile.ExcludeCFOPs),
			Models:       toSet(cfg.Reconcile.Models),
			Tolerance:    decimal.NewFromFloat(cfg.Reconcile.Tolerance),
		})

		if err := report.WriteAuditXLSX(exportOut, &result, findings); err != nil {
			return eris.Wrap(err, "export")
		}

		zap.L().Info("audit workbook written",
			zap.String("ledger", sum.ID),
			zap.Int("cells", len(result.Rows)),
			zap.Int("findings", len(findings)),
		)
		fmt.Println(exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportCNPJ, "cnpj", "", "external aggregate CNPJ (defaults to the ledger's)")
	exportCmd.Flags().StringVar(&exportOut, "out", "audit.xlsx", "output workbook path")
	rootCmd.AddCommand(exportCmd)
}
