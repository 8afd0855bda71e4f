package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rullmann/portfolio-now-sub006/internal/models"
	"github.com/rullmann/portfolio-now-sub006/internal/numeric"
)

// seedSplitPosition books the classic two-lot position: 100 shares at 1000
// cents and 50 shares at 1200 cents, total basis 160,000 cents.
func seedSplitPosition(t *testing.T, f *fixture) {
	t.Helper()
	f.book(t, models.TypeBuy, 1, "2024-01-10", 100, 100_000)
	f.book(t, models.TypeBuy, 1, "2024-02-10", 50, 60_000)
	_, err := f.ledger.Rebuild(context.Background(), []int64{1})
	require.NoError(t, err)
}

func splitReq(adjustFifo bool) models.SplitRequest {
	return models.SplitRequest{
		SecurityID:    1,
		EffectiveDate: day("2024-03-01"),
		RatioFrom:     1,
		RatioTo:       2,
		AdjustFifo:    adjustFifo,
	}
}

func TestActionService_PreviewStockSplit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedSplitPosition(t, f)

	preview, err := f.action.PreviewStockSplit(ctx, splitReq(true))
	require.NoError(t, err)

	assert.Equal(t, numeric.QuantityFromShares(150), preview.TotalSharesBefore)
	assert.Equal(t, numeric.QuantityFromShares(300), preview.TotalSharesAfter)
	assert.Equal(t, 1, preview.PortfoliosAffected)
	assert.Equal(t, 2, preview.LotsAffected)
	require.Len(t, preview.Portfolios, 1)
	assert.Equal(t, "Main", preview.Portfolios[0].PortfolioName)

	// Preview must not touch stored state.
	lots, err := f.store.Lots().ListBySecurity(ctx, 1)
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, numeric.QuantityFromShares(100), lots[0].RemainingQuantity)
}

func TestActionService_PreviewStockSplit_InvalidRatio(t *testing.T) {
	f := newFixture(t)

	req := splitReq(true)
	req.RatioTo = 0
	_, err := f.action.PreviewStockSplit(context.Background(), req)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestActionService_PreviewStockSplit_UnknownSecurity(t *testing.T) {
	f := newFixture(t)

	req := splitReq(true)
	req.SecurityID = 99
	_, err := f.action.PreviewStockSplit(context.Background(), req)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestActionService_ApplyStockSplit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedSplitPosition(t, f)

	result, err := f.action.ApplyStockSplit(ctx, splitReq(true))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.LotsRebuilt)

	lots, err := f.store.Lots().ListBySecurity(ctx, 1)
	require.NoError(t, err)
	require.Len(t, lots, 2)

	// 100 @ 1000c doubles to 200 @ 500c, 50 @ 1200c to 100 @ 600c. The total
	// cost basis is unchanged by the split.
	assert.Equal(t, numeric.QuantityFromShares(200), lots[0].RemainingQuantity)
	assert.Equal(t, numeric.Money(100_000), lots[0].CostBasis)
	assert.Equal(t, "500", lots[0].UnitCost().String())

	assert.Equal(t, numeric.QuantityFromShares(100), lots[1].RemainingQuantity)
	assert.Equal(t, numeric.Money(60_000), lots[1].CostBasis)
	assert.Equal(t, "600", lots[1].UnitCost().String())

	assert.Equal(t, numeric.Money(160_000), lots[0].CostBasis+lots[1].CostBasis)

	// The action is on the audit log.
	actions, err := f.store.Actions().ListBySecurity(ctx, 1)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionSplit, actions[0].Kind)
	assert.Equal(t, result.ActionID, actions[0].ID)
}

func TestActionService_ApplyStockSplit_LeavesPostEffectiveTransactionsAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedSplitPosition(t, f)

	// Booked on the ex-date itself, already in post-split units.
	f.book(t, models.TypeBuy, 1, "2024-03-01", 10, 4_000)

	_, err := f.action.ApplyStockSplit(ctx, splitReq(true))
	require.NoError(t, err)

	txs, err := f.store.Transactions().ListBySecurity(ctx, 1)
	require.NoError(t, err)
	require.Len(t, txs, 3)
	assert.Equal(t, numeric.QuantityFromShares(200), txs[0].Shares)
	assert.Equal(t, numeric.QuantityFromShares(100), txs[1].Shares)
	assert.Equal(t, numeric.QuantityFromShares(10), txs[2].Shares)
}

func TestActionService_ApplyStockSplit_AdjustPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedSplitPosition(t, f)

	require.NoError(t, f.store.Prices().Upsert(ctx, &models.PriceRecord{
		SecurityID: 1, Date: day("2024-02-28"), Close: numeric.Money(1_500),
	}))
	require.NoError(t, f.store.Prices().Upsert(ctx, &models.PriceRecord{
		SecurityID: 1, Date: day("2024-03-05"), Close: numeric.Money(1_600),
	}))

	req := splitReq(true)
	req.AdjustPrices = true
	_, err := f.action.ApplyStockSplit(ctx, req)
	require.NoError(t, err)

	prices, err := f.store.Prices().ListBySecurity(ctx, 1)
	require.NoError(t, err)
	require.Len(t, prices, 2)
	// Quotes before the effective date stay as recorded; later ones halve.
	assert.Equal(t, numeric.Money(1_500), prices[0].Close)
	assert.Equal(t, numeric.Money(800), prices[1].Close)
}

func TestActionService_ApplyStockSplit_EvidenceMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedSplitPosition(t, f)

	req := splitReq(true)
	preview, err := f.action.PreviewStockSplit(ctx, req)
	require.NoError(t, err)
	req.Expect = preview.Evidence()

	// A trade lands between preview and apply.
	f.book(t, models.TypeBuy, 1, "2024-02-20", 10, 11_000)

	_, err = f.action.ApplyStockSplit(ctx, req)
	assert.ErrorIs(t, err, ErrConcurrentModification)

	// Nothing was mutated.
	lots, err := f.store.Lots().ListBySecurity(ctx, 1)
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, numeric.QuantityFromShares(100), lots[0].RemainingQuantity)
}

func TestActionService_ApplyStockSplit_EvidenceMatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedSplitPosition(t, f)

	req := splitReq(true)
	preview, err := f.action.PreviewStockSplit(ctx, req)
	require.NoError(t, err)
	req.Expect = preview.Evidence()

	result, err := f.action.ApplyStockSplit(ctx, req)
	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestActionService_UndoStockSplit_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seedSplitPosition(t, f)

	before, err := f.store.Lots().ListBySecurity(ctx, 1)
	require.NoError(t, err)

	_, err = f.action.ApplyStockSplit(ctx, splitReq(true))
	require.NoError(t, err)

	_, err = f.action.UndoStockSplit(ctx, splitReq(true))
	require.NoError(t, err)

	after, err := f.store.Lots().ListBySecurity(ctx, 1)
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].RemainingQuantity, after[i].RemainingQuantity)
		assert.Equal(t, before[i].CostBasis, after[i].CostBasis)
	}

	actions, err := f.store.Actions().ListBySecurity(ctx, 1)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, models.ActionSplit, actions[0].Kind)
	assert.Equal(t, models.ActionSplitUndo, actions[1].Kind)
}
