package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rullmann/portfolio-now-sub006/internal/models"
	"github.com/rullmann/portfolio-now-sub006/internal/numeric"
	"github.com/rullmann/portfolio-now-sub006/internal/repository/memory"
	"github.com/rullmann/portfolio-now-sub006/internal/services"
)

func setupRouter(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Securities().Create(ctx, &models.Security{Symbol: "AAA", Currency: "USD"}))
	require.NoError(t, store.Securities().Create(ctx, &models.Security{Symbol: "BBB", Currency: "USD"}))
	require.NoError(t, store.Accounts().Create(ctx, &models.Account{Name: "Cash", Currency: "USD"}))
	require.NoError(t, store.Portfolios().Create(ctx, &models.Portfolio{Name: "Main", ReferenceAccountID: 1}))

	ledgerSvc := services.NewLedgerService(store)
	actionSvc := services.NewActionService(store, ledgerSvc)
	actionHandler := NewActionHandler(actionSvc)
	ledgerHandler := NewLedgerHandler(ledgerSvc)

	router := gin.New()
	router.POST("/corporate-actions/split/preview", actionHandler.PreviewSplit)
	router.POST("/corporate-actions/split/apply", actionHandler.ApplySplit)
	router.POST("/corporate-actions/merger/apply", actionHandler.ApplyMerger)
	router.POST("/corporate-actions/spinoff/apply", actionHandler.ApplySpinOff)
	router.GET("/portfolios/:id/holdings", ledgerHandler.Holdings)
	router.GET("/securities/:id/lots", ledgerHandler.Lots)
	router.POST("/maintenance/rebuild-lots", ledgerHandler.RebuildLots)
	return router, store
}

func seedBuy(t *testing.T, store *memory.Store, securityID int64, shares, amount int64) {
	t.Helper()
	secID := securityID
	require.NoError(t, store.Transactions().Create(context.Background(), &models.Transaction{
		OwnerType:  models.OwnerPortfolio,
		OwnerID:    1,
		SecurityID: &secID,
		Type:       models.TypeBuy,
		Date:       time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		Shares:     numeric.QuantityFromShares(shares),
		Amount:     numeric.Money(amount),
		Currency:   "USD",
	}))
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	buf, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestActionHandler_PreviewSplit(t *testing.T) {
	router, store := setupRouter(t)
	seedBuy(t, store, 1, 100, 100_000)

	w := postJSON(router, "/corporate-actions/split/preview", gin.H{
		"security_id":    1,
		"effective_date": "2024-03-01",
		"ratio_from":     1,
		"ratio_to":       2,
		"adjust_fifo":    true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var preview models.StockSplitPreview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &preview))
	assert.Equal(t, numeric.QuantityFromShares(100), preview.TotalSharesBefore)
	assert.Equal(t, numeric.QuantityFromShares(200), preview.TotalSharesAfter)
	assert.Equal(t, 1, preview.PortfoliosAffected)
}

func TestActionHandler_PreviewSplit_BadRatio(t *testing.T) {
	router, store := setupRouter(t)
	seedBuy(t, store, 1, 100, 100_000)

	w := postJSON(router, "/corporate-actions/split/preview", gin.H{
		"security_id":    1,
		"effective_date": "2024-03-01",
		"ratio_from":     1,
		"ratio_to":       -2,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "bad_request", resp.Error)
}

func TestActionHandler_ApplySplit_UnknownSecurity(t *testing.T) {
	router, _ := setupRouter(t)

	w := postJSON(router, "/corporate-actions/split/apply", gin.H{
		"security_id":    99,
		"effective_date": "2024-03-01",
		"ratio_from":     1,
		"ratio_to":       2,
		"adjust_fifo":    true,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestActionHandler_ApplyMerger_EvidenceMismatchIsConflict(t *testing.T) {
	router, store := setupRouter(t)
	seedBuy(t, store, 1, 100, 50_000)

	w := postJSON(router, "/corporate-actions/merger/apply", gin.H{
		"source_security_id": 1,
		"target_security_id": 2,
		"effective_date":     "2024-06-01",
		"share_ratio":        "0.5",
		"expect": gin.H{
			"total_shares_before": numeric.QuantityFromShares(42),
			"portfolios_affected": 1,
		},
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "conflict", resp.Error)
}

func TestActionHandler_ApplySpinOff(t *testing.T) {
	router, store := setupRouter(t)
	seedBuy(t, store, 1, 100, 100_000)

	w := postJSON(router, "/corporate-actions/spinoff/apply", gin.H{
		"parent_security_id": 1,
		"new_security_id":    2,
		"effective_date":     "2024-06-01",
		"distribution_ratio": "0.2",
		"basis_allocation":   "0.25",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result models.CorporateActionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.TransactionsCreated)
}

func TestLedgerHandler_RebuildAndRead(t *testing.T) {
	router, store := setupRouter(t)
	seedBuy(t, store, 1, 100, 100_000)

	w := postJSON(router, "/maintenance/rebuild-lots", gin.H{})
	require.Equal(t, http.StatusOK, w.Code)

	var report models.RebuildReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 2, report.SecuritiesProcessed)
	assert.Equal(t, 1, report.LotsCreated)

	req := httptest.NewRequest(http.MethodGet, "/portfolios/1/holdings", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var holdings models.HoldingsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &holdings))
	require.Len(t, holdings.Holdings, 1)
	assert.Equal(t, numeric.QuantityFromShares(100), holdings.Holdings[0].Shares)

	req = httptest.NewRequest(http.MethodGet, "/securities/1/lots", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var lots models.LotsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lots))
	assert.Len(t, lots.Lots, 1)
}

func TestLedgerHandler_Holdings_NotFound(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/portfolios/42/holdings", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
