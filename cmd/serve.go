package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/auditware/fiscal-cli/internal/reconcile"
	"github.com/auditware/fiscal-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only audit API",
	Long:  "Serves stored ledgers, comparison results, and fuel audit findings over HTTP for dashboard use.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		port := cfg.Server.Port

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(st),
		}

		go shutdownGracefully(ctx, srv)

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// shutdownGracefully waits for the trigger context to be cancelled, then
// drains the server. The trigger is already dead by then, so Shutdown gets
// its own deadline instead of inheriting the cancelled one.
func shutdownGracefully(ctx context.Context, srv *http.Server) {
	<-ctx.Done()
	zap.L().Info("shutting down server")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx) //nolint:errcheck
}

func newRouter(st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/ledgers", func(r chi.Router) {
		r.Get("/", handleLedgersList(st))
		r.Route("/{ledgerID}", func(r chi.Router) {
			r.Get("/", handleLedgerGet(st))
			r.Get("/documents", handleLedgerDocuments(st))
			r.Get("/comparison", handleComparison(st))
			r.Get("/comparison/detail", handleDetail(st))
			r.Get("/findings", handleFindings(st))
		})
	})

	return r
}

func handleLedgersList(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := store.LedgerFilter{CNPJ: r.URL.Query().Get("cnpj")}
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			filter.Limit = n
		}

		ledgers, err := st.ListLedgers(r.Context(), filter)
		if err != nil {
			serverError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ledgers)
	}
}

func handleLedgerGet(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sum, err := st.GetLedger(r.Context(), chi.URLParam(r, "ledgerID"))
		if err != nil {
			notFoundOrError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}

func handleLedgerDocuments(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ledger, err := st.LoadLedger(r.Context(), chi.URLParam(r, "ledgerID"))
		if err != nil {
			notFoundOrError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ledger)
	}
}

func handleComparison(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := chi.URLParam(r, "ledgerID")

		sum, err := st.GetLedger(ctx, id)
		if err != nil {
			notFoundOrError(w, err)
			return
		}

		cnpj := r.URL.Query().Get("cnpj")
		if cnpj == "" {
			cnpj = sum.CNPJ
		}

		proj, err := st.GetAggregates(ctx, id)
		if err != nil {
			serverError(w, err)
			return
		}
		external, err := st.GetExternalAggregate(ctx, cnpj)
		if err != nil {
			serverError(w, err)
			return
		}

		result := reconcile.Compare(proj.DayCodes, external, reconcile.CompareOptions{
			CNPJ:         cnpj,
			ExcludeCFOPs: toSet(cfg.Reconcile.ExcludeCFOPs),
			Models:       toSet(cfg.Reconcile.Models),
			Tolerance:    decimal.NewFromFloat(cfg.Reconcile.Tolerance),
		})
		writeJSON(w, http.StatusOK, result)
	}
}

func handleDetail(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := chi.URLParam(r, "ledgerID")

		date, err := parseDateFlag(r.URL.Query().Get("date"))
		if err != nil || date == nil {
			writeError(w, http.StatusBadRequest, "date is required (YYYY-MM-DD)")
			return
		}
		cfop := r.URL.Query().Get("cfop")
		if cfop == "" {
			writeError(w, http.StatusBadRequest, "cfop is required")
			return
		}

		ledger, err := st.LoadLedger(ctx, id)
		if err != nil {
			notFoundOrError(w, err)
			return
		}

		cnpj := r.URL.Query().Get("cnpj")
		if cnpj == "" {
			cnpj = ledger.CNPJ
		}
		invoices, err := st.ListInvoices(ctx, cnpj)
		if err != nil {
			serverError(w, err)
			return
		}

		det := reconcile.Detail(ledger.Outbound, invoices, *date, cfop, reconcile.DetailOptions{
			CNPJ:   cnpj,
			Models: toSet(cfg.Reconcile.Models),
		})
		writeJSON(w, http.StatusOK, det)
	}
}

func handleFindings(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "ledgerID")

		if _, err := st.GetLedger(r.Context(), id); err != nil {
			notFoundOrError(w, err)
			return
		}
		findings, err := st.ListInconsistencies(r.Context(), id)
		if err != nil {
			serverError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, findings)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func serverError(w http.ResponseWriter, err error) {
	zap.L().Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func notFoundOrError(w http.ResponseWriter, err error) {
	if eris.Is(err, store.ErrLedgerNotFound) {
		writeError(w, http.StatusNotFound, "ledger not found")
		return
	}
	serverError(w, err)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
