package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditware/fiscal-cli/internal/aggregate"
	"github.com/auditware/fiscal-cli/internal/config"
	"github.com/auditware/fiscal-cli/internal/store"
)

func newTestRouter(t *testing.T) (http.Handler, store.Store) {
	t.Helper()
	cfg = &config.Config{}
	st := newCmdTestStore(t)
	return newRouter(st), st
}

func TestShutdownGracefully_DrainsInFlightRequests(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	release := make(chan struct{})
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.WriteHeader(http.StatusOK)
	})}
	go srv.Serve(ln) //nolint:errcheck

	status := make(chan int, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String())
		if err != nil {
			status <- 0
			return
		}
		resp.Body.Close() //nolint:errcheck
		status <- resp.StatusCode
	}()

	// Let the request reach the handler, then shut down with an
	// already-cancelled trigger, as a signal would leave it.
	time.Sleep(50 * time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		shutdownGracefully(ctx, srv)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	close(release)
	<-done

	assert.Equal(t, http.StatusOK, <-status)
}

func TestServeCommand_RejectsInvalidPort(t *testing.T) {
	cfg = &config.Config{}
	servePort = 0

	serveCmd.SetContext(context.Background())
	err := serveCmd.RunE(serveCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_LedgersList(t *testing.T) {
	router, st := newTestRouter(t)

	ledger := sampleLedger()
	ledger.ID = ""
	require.NoError(t, st.SaveLedger(context.Background(), ledger, aggregate.Projection{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ledgers", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var ledgers []store.LedgerSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ledgers))
	require.Len(t, ledgers, 1)
	assert.Equal(t, ledger.ID, ledgers[0].ID)
}

func TestRouter_LedgersList_InvalidLimit(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ledgers?limit=abc", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_LedgerGet_NotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ledgers/missing", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"ledger not found"}`, rec.Body.String())
}

func TestRouter_Comparison(t *testing.T) {
	router, st := newTestRouter(t)

	ledger := sampleLedger()
	ledger.ID = ""
	require.NoError(t, st.SaveLedger(context.Background(), ledger, aggregate.Projection{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ledgers/"+ledger.ID+"/comparison", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "total_ledger")
}

func TestRouter_Detail_RequiresDateAndCFOP(t *testing.T) {
	router, st := newTestRouter(t)

	ledger := sampleLedger()
	ledger.ID = ""
	require.NoError(t, st.SaveLedger(context.Background(), ledger, aggregate.Projection{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ledgers/"+ledger.ID+"/comparison/detail", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ledgers/"+ledger.ID+"/comparison/detail?date=2024-01-05&cfop=5656", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Findings_Empty(t *testing.T) {
	router, st := newTestRouter(t)

	ledger := sampleLedger()
	ledger.ID = ""
	require.NoError(t, st.SaveLedger(context.Background(), ledger, aggregate.Projection{}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ledgers/"+ledger.ID+"/findings", nil))

	require.Equal(t, http.StatusOK, rec.Code)
}
