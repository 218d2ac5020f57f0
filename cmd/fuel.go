package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/auditware/fiscal-cli/internal/fuel"
	"github.com/auditware/fiscal-cli/internal/model"
	"github.com/auditware/fiscal-cli/internal/report"
)

var (
	fuelSave   bool
	fuelFormat string
	fuelXLSX   string
)

var fuelCmd = &cobra.Command{
	Use:   "fuel <ledger-id>",
	Short: "Audit fuel stock movements",
	Long:  "Runs the fuel consistency checks over a stored ledger: loss/gain grading, stock continuity, tank sums, sales cross-check, and orphan records.",
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
			return eris.Wrap(err, "fuel")
		}

		ledger, err := st.LoadLedger(ctx, sum.ID)
		if err != nil {
			return eris.Wrap(err, "fuel")
		}

		findings := fuel.Analyze(ledger, fuel.Config{
			LossTolerance:           cfg.Fuel.LossTolerance,
			QuantityTolerance:       cfg.Fuel.QuantityTolerance,
			CrossCheckPercTolerance: cfg.Fuel.CrossCheckPercTolerance,
			SaleCFOPs:               toSet(cfg.Fuel.SaleCFOPs),
		})

		zap.L().Info("fuel audit complete",
			zap.String("ledger", sum.ID),
			zap.Int("findings", len(findings)),
		)

		if fuelSave {
			if err := st.ReplaceInconsistencies(ctx, sum.ID, findings); err != nil {
				return eris.Wrap(err, "fuel save")
			}
		}

		if fuelXLSX != "" {
			if err := report.WriteInconsistenciesXLSX(fuelXLSX, findings); err != nil {
				return eris.Wrap(err, "fuel export")
			}
			fmt.Fprintf(os.Stderr, "Wrote %s\n", fuelXLSX)
		}

		switch fuelFormat {
		case "table":
			formatFindings(os.Stdout, findings)
			return nil
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Summary  fuel.Summary          `json:"summary"`
				Findings []model.Inconsistency `json:"findings"`
			}{fuel.Summarize(findings), findings})
		case "yaml":
			return yaml.NewEncoder(os.Stdout).Encode(struct {
				Summary  fuel.Summary          `yaml:"summary"`
				Findings []model.Inconsistency `yaml:"findings"`
			}{fuel.Summarize(findings), findings})
		default:
			return eris.Errorf("unknown output format: %s", fuelFormat)
		}
	},
}

// formatFindings writes a findings table followed by a severity summary.
func formatFindings(out io.Writer, findings []model.Inconsistency) {
	if len(findings) == 0 {
		fmt.Fprintln(out, "No inconsistencies found.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SEVERITY\tTYPE\tPRODUCT\tDATE\tEXPECTED\tFOUND\tDIFF")
	_, _ = fmt.Fprintln(w, "--------\t----\t-------\t----\t--------\t-----\t----")
	for _, f := range findings {
		date := ""
		if f.Date != nil {
			date = f.Date.Format("2006-01-02")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.3f\t%.3f\t%.3f\n",
			f.Severity, f.Type, f.ProductCode, date, f.Expected, f.Found, f.DiffAbs)
	}
	_ = w.Flush()

	s := fuel.Summarize(findings)
	sevs := make([]string, 0, len(s.BySeverity))
	for sev := range s.BySeverity {
		sevs = append(sevs, string(sev))
	}
	sort.Strings(sevs)

	fmt.Fprintf(out, "\n%d findings", s.Total)
	for _, sev := range sevs {
		fmt.Fprintf(out, ", %d %s", s.BySeverity[model.Severity(sev)], sev)
	}
	fmt.Fprintln(out)
}

func init() {
	fuelCmd.Flags().BoolVar(&fuelSave, "save", false, "persist findings, replacing earlier runs")
	fuelCmd.Flags().StringVar(&fuelFormat, "format", "table", "output format (table, json, yaml)")
	fuelCmd.Flags().StringVar(&fuelXLSX, "xlsx", "", "also write the findings to this XLSX path")
	rootCmd.AddCommand(fuelCmd)
}
