package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/auditware/fiscal-cli/internal/model"
	"github.com/auditware/fiscal-cli/internal/nfe"
)

var (
	importCNPJ        string
	importPeriodStart string
	importPeriodEnd   string
	importRejections  bool
)

// importFileConcurrency bounds parallel invoice file decoding.
const importFileConcurrency = 4

var importCmd = &cobra.Command{
	Use:   "import <invoice-file>...",
	Short: "Import external NF-e invoices",
	Long:  "Loads already-extracted NF-e invoices from JSON or YAML files, filters and deduplicates them, and folds them into the stored external aggregate for the given CNPJ.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		filters := nfe.Filters{CNPJ: importCNPJ}
		var err error
		if filters.PeriodStart, err = parseDateFlag(importPeriodStart); err != nil {
			return err
		}
		if filters.PeriodEnd, err = parseDateFlag(importPeriodEnd); err != nil {
			return err
		}
		filters.ExcludeCFOPs = toSet(cfg.Reconcile.ExcludeCFOPs)

		invoices, err := loadInvoiceFiles(args)
		if err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		seen, err := st.SeenAccessKeys(ctx)
		if err != nil {
			return eris.Wrap(err, "import")
		}
		existing, err := st.GetExternalAggregate(ctx, importCNPJ)
		if err != nil {
			return eris.Wrap(err, "import")
		}

		seenKeys := make([]string, 0, len(seen))
		for k := range seen {
			seenKeys = append(seenKeys, k)
		}

		builder := nfe.NewBuilder(seenKeys, existing)
		result := builder.ImportBatch(invoices, filters)

		// Rejected invoices stay out of the store: persisting them would
		// seed the dedup set and block a corrected re-import.
		if err := st.SaveInvoices(ctx, builder.Accepted()); err != nil {
			return eris.Wrap(err, "import save invoices")
		}
		if err := st.ReplaceExternalAggregate(ctx, importCNPJ, builder.Rows()); err != nil {
			return eris.Wrap(err, "import save aggregate")
		}

		zap.L().Info("import complete",
			zap.Int("files", len(args)),
			zap.Int("accepted", result.Accepted),
			zap.Int("rejected", result.Rejected),
		)

		formatImportResult(cmd.OutOrStdout(), result, importRejections)
		return nil
	},
}

// loadInvoiceFiles decodes all invoice files concurrently, in argument order.
func loadInvoiceFiles(paths []string) ([]model.ExternalInvoice, error) {
	batches := make([][]model.ExternalInvoice, len(paths))

	var g errgroup.Group
	g.SetLimit(importFileConcurrency)
	for i, path := range paths {
		g.Go(func() error {
			batch, err := decodeInvoiceFile(path)
			if err != nil {
				return err
			}
			batches[i] = batch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var invoices []model.ExternalInvoice
	for _, b := range batches {
		invoices = append(invoices, b...)
	}
	return invoices, nil
}

func decodeInvoiceFile(path string) ([]model.ExternalInvoice, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "import: read %s", path)
	}

	var invoices []model.ExternalInvoice
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &invoices)
	default:
		err = json.Unmarshal(raw, &invoices)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "import: decode %s", path)
	}
	return invoices, nil
}

func formatImportResult(out io.Writer, result model.ImportResult, showRejections bool) {
	fmt.Fprintf(out, "Accepted: %d\n", result.Accepted)
	fmt.Fprintf(out, "Rejected: %d\n", result.Rejected)

	reasons := make([]string, 0, len(result.ByReason))
	for r := range result.ByReason {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Fprintf(out, "  %-20s %d\n", r, result.ByReason[model.RejectReason(r)])
	}

	if showRejections {
		for _, rej := range result.Rejections {
			fmt.Fprintf(out, "  %s: %s %s\n", rej.Reason, rej.AccessKey, rej.Message)
		}
	}
}

// parseDateFlag parses an optional YYYY-MM-DD flag value.
func parseDateFlag(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, eris.Wrapf(err, "invalid date %q (want YYYY-MM-DD)", s)
	}
	return &t, nil
}

// toSet converts a configured code list into a membership set.
func toSet(codes []string) map[string]bool {
	if len(codes) == 0 {
		return nil
	}
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set
}

func init() {
	importCmd.Flags().StringVar(&importCNPJ, "cnpj", "", "audited establishment CNPJ (required)")
	importCmd.Flags().StringVar(&importPeriodStart, "from", "", "period start (YYYY-MM-DD)")
	importCmd.Flags().StringVar(&importPeriodEnd, "to", "", "period end (YYYY-MM-DD)")
	importCmd.Flags().BoolVar(&importRejections, "rejections", false, "list every rejected invoice")
	_ = importCmd.MarkFlagRequired("cnpj")
	rootCmd.AddCommand(importCmd)
}
