package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/auditware/fiscal-cli/internal/model"
	"github.com/auditware/fiscal-cli/internal/sped"
	"github.com/auditware/fiscal-cli/internal/store"
)

var (
	parseSave   bool
	parseFormat string
)

// parseSummary is the flattened output view of a parse run.
type parseSummary struct {
	ID          string           `json:"id" yaml:"id"`
	CompanyName string           `json:"company_name,omitempty" yaml:"company_name,omitempty"`
	CNPJ        string           `json:"cnpj,omitempty" yaml:"cnpj,omitempty"`
	FileName    string           `json:"file_name" yaml:"file_name"`
	PeriodStart string           `json:"period_start,omitempty" yaml:"period_start,omitempty"`
	PeriodEnd   string           `json:"period_end,omitempty" yaml:"period_end,omitempty"`
	Inbound     int              `json:"inbound" yaml:"inbound"`
	Outbound    int              `json:"outbound" yaml:"outbound"`
	FuelDaily   int              `json:"fuel_daily" yaml:"fuel_daily"`
	Saved       bool             `json:"saved" yaml:"saved"`
	Stats       model.ParseStats `json:"stats" yaml:"stats"`
}

var parseCmd = &cobra.Command{
	Use:   "parse <ledger-file>",
	Short: "Parse a SPED EFD ledger file",
	Long:  "Parses a pipe-delimited SPED EFD ICMS/IPI file, reports what was read, and optionally persists the ledger with its aggregate projection.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		path := args[0]
		text, err := sped.ReadFile(path)
		if err != nil {
			return eris.Wrap(err, "parse")
		}

		opts := sped.Options{Stride: cfg.Parse.ProgressStride}
		if parseFormat == "table" {
			opts.Progress = func(current, total int) {
				fmt.Fprintf(os.Stderr, "\rparsing %d/%d lines", current, total)
				if current == total {
					fmt.Fprintln(os.Stderr)
				}
			}
		}

		start := time.Now()
		res := sped.Parse(text, opts)
		res.Ledger.FileName = filepath.Base(path)

		zap.L().Info("ledger parsed",
			zap.String("file", res.Ledger.FileName),
			zap.Int("lines", res.Ledger.Stats.Lines),
			zap.Int("inbound", len(res.Ledger.Inbound)),
			zap.Int("outbound", len(res.Ledger.Outbound)),
			zap.Duration("elapsed", time.Since(start)),
		)

		if parseSave {
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			if err := st.SaveLedger(ctx, &res.Ledger, res.Aggregates); err != nil {
				return eris.Wrap(err, "parse save")
			}
		}

		return writeParseSummary(os.Stdout, &res.Ledger, parseSave, parseFormat)
	},
}

func writeParseSummary(out io.Writer, l *model.Ledger, saved bool, format string) error {
	s := parseSummary{
		ID:          l.ID,
		CompanyName: l.CompanyName,
		CNPJ:        l.CNPJ,
		FileName:    l.FileName,
		Inbound:     len(l.Inbound),
		Outbound:    len(l.Outbound),
		FuelDaily:   len(l.FuelDaily),
		Saved:       saved,
		Stats:       l.Stats,
	}
	if l.PeriodStart != nil {
		s.PeriodStart = l.PeriodStart.Format("2006-01-02")
	}
	if l.PeriodEnd != nil {
		s.PeriodEnd = l.PeriodEnd.Format("2006-01-02")
	}

	switch format {
	case "table":
		fmt.Fprintf(out, "Ledger %s (%s)\n", truncateID(s.ID), s.FileName)
		if s.CompanyName != "" {
			fmt.Fprintf(out, "  Company:  %s (%s)\n", s.CompanyName, s.CNPJ)
		}
		fmt.Fprintf(out, "  Period:   %s .. %s\n", s.PeriodStart, s.PeriodEnd)
		fmt.Fprintf(out, "  Inbound:  %d documents\n", s.Inbound)
		fmt.Fprintf(out, "  Outbound: %d documents\n", s.Outbound)
		fmt.Fprintf(out, "  Fuel:     %d daily movements\n", s.FuelDaily)
		fmt.Fprintf(out, "  Skipped:  %d unknown records, %d malformed lines\n",
			s.Stats.UnknownRecords, s.Stats.MalformedLines)
		if saved {
			fmt.Fprintln(out, "  Saved.")
		}
		return nil
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case "yaml":
		return yaml.NewEncoder(out).Encode(s)
	default:
		return eris.Errorf("unknown output format: %s", format)
	}
}

// resolveLedger loads the summary for an id, recognizing short prefixes.
func resolveLedger(ctx context.Context, st store.Store, id string) (*store.LedgerSummary, error) {
	sum, err := st.GetLedger(ctx, id)
	if err == nil {
		return sum, nil
	}
	if !eris.Is(err, store.ErrLedgerNotFound) {
		return nil, err
	}

	// Prefix match against the listing, the way ids are displayed.
	all, listErr := st.ListLedgers(ctx, store.LedgerFilter{})
	if listErr != nil {
		return nil, listErr
	}
	var match *store.LedgerSummary
	for i := range all {
		if strings.HasPrefix(all[i].ID, id) {
			if match != nil {
				return nil, eris.Errorf("ambiguous ledger id prefix: %s", id)
			}
			match = &all[i]
		}
	}
	if match == nil {
		return nil, err
	}
	return match, nil
}

func init() {
	parseCmd.Flags().BoolVar(&parseSave, "save", false, "persist the parsed ledger")
	parseCmd.Flags().StringVar(&parseFormat, "format", "table", "output format (table, json, yaml)")
	rootCmd.AddCommand(parseCmd)
}
