package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rullmann/portfolio-now-sub006/internal/models"
	"github.com/rullmann/portfolio-now-sub006/internal/numeric"
)

func mergerReq() models.MergerRequest {
	return models.MergerRequest{
		SourceSecurityID: 1,
		TargetSecurityID: 2,
		EffectiveDate:    day("2024-06-01"),
		ShareRatio:       numeric.Ratio{Num: 1, Den: 2},
		CashPerShare:     numeric.Money(200),
	}
}

func TestActionService_PreviewMerger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// 100 source shares with 50,000 cents basis, merged at 0.5 target shares
	// per source share plus 200 cents cash per share.
	f.book(t, models.TypeBuy, 1, "2024-01-10", 100, 50_000)

	preview, err := f.action.PreviewMerger(ctx, mergerReq())
	require.NoError(t, err)

	assert.False(t, preview.NothingToApply)
	assert.Equal(t, 1, preview.PortfoliosAffected)
	require.Len(t, preview.Portfolios, 1)

	line := preview.Portfolios[0]
	assert.Equal(t, numeric.QuantityFromShares(100), line.SourceShares)
	assert.Equal(t, numeric.QuantityFromShares(50), line.TargetShares)
	assert.True(t, line.FractionalRemainder.IsZero())
	assert.Equal(t, numeric.Money(20_000), line.CashAmount)
	assert.Equal(t, numeric.Money(50_000), line.CostBasisTransferred)
	assert.Equal(t, "USD", preview.CashCurrency)
}

func TestActionService_PreviewMerger_FractionalRemainder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// One share at a 1:3 ratio truncates at the eighth decimal. The lost
	// fraction is reported, not compensated.
	f.book(t, models.TypeBuy, 1, "2024-01-10", 1, 1_000)

	req := mergerReq()
	req.ShareRatio = numeric.Ratio{Num: 1, Den: 3}
	preview, err := f.action.PreviewMerger(ctx, req)
	require.NoError(t, err)
	require.Len(t, preview.Portfolios, 1)
	assert.Equal(t, numeric.Quantity(33_333_333), preview.Portfolios[0].TargetShares)
	assert.True(t, preview.Portfolios[0].FractionalRemainder.IsPositive())
}

func TestActionService_PreviewMerger_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := mergerReq()
	req.TargetSecurityID = 1
	_, err := f.action.PreviewMerger(ctx, req)
	assert.ErrorIs(t, err, ErrValidation)

	req = mergerReq()
	req.ShareRatio = numeric.Ratio{}
	_, err = f.action.PreviewMerger(ctx, req)
	assert.ErrorIs(t, err, ErrValidation)

	req = mergerReq()
	req.CashPerShare = -1
	_, err = f.action.PreviewMerger(ctx, req)
	assert.ErrorIs(t, err, ErrValidation)

	req = mergerReq()
	req.TargetSecurityID = 99
	_, err = f.action.PreviewMerger(ctx, req)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestActionService_ApplyMerger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.book(t, models.TypeBuy, 1, "2024-01-10", 100, 50_000)
	_, err := f.ledger.Rebuild(ctx, []int64{1})
	require.NoError(t, err)

	result, err := f.action.ApplyMerger(ctx, mergerReq())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 3, result.TransactionsCreated)
	assert.Empty(t, result.PortfolioErrors)

	// Source position is closed out.
	sourceLots, err := f.store.Lots().ListBySecurity(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, sourceLots)

	// Target inherits the source basis wholesale: 50 shares, 50,000 cents.
	targetLots, err := f.store.Lots().ListBySecurity(ctx, 2)
	require.NoError(t, err)
	require.Len(t, targetLots, 1)
	assert.Equal(t, numeric.QuantityFromShares(50), targetLots[0].RemainingQuantity)
	assert.Equal(t, numeric.Money(50_000), targetLots[0].CostBasis)

	// Cash lands on the portfolio's reference account.
	txs, err := f.store.Transactions().ListBySecurity(ctx, 1)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, models.TypeDeliveryOutbound, txs[1].Type)
	assert.Equal(t, models.SourceCorporateAction, txs[1].Source)
	assert.Equal(t, result.ActionID, txs[1].SourceRef)

	actions, err := f.store.Actions().ListBySecurity(ctx, 2)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, models.ActionMerger, actions[0].Kind)
	require.NotNil(t, actions[0].TargetSecurityID)
	assert.Equal(t, int64(2), *actions[0].TargetSecurityID)
}

func TestActionService_ApplyMerger_PostEffectiveActivityRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.book(t, models.TypeBuy, 1, "2024-01-10", 100, 50_000)
	f.book(t, models.TypeBuy, 1, "2024-07-01", 10, 5_000)

	// A buy dated after the effective date means the full position was not
	// held when the merger took effect. Reject up front instead of failing
	// the rebuild with an oversell.
	_, err := f.action.PreviewMerger(ctx, mergerReq())
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.action.ApplyMerger(ctx, mergerReq())
	assert.ErrorIs(t, err, ErrValidation)

	txs, err := f.store.Transactions().ListBySecurity(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestActionService_ApplyMerger_NoCash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.book(t, models.TypeBuy, 1, "2024-01-10", 100, 50_000)

	req := mergerReq()
	req.CashPerShare = 0
	result, err := f.action.ApplyMerger(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TransactionsCreated)
}

func TestActionService_ApplyMerger_NoHoldersIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.action.ApplyMerger(ctx, mergerReq())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Zero(t, result.TransactionsCreated)
	assert.Zero(t, result.LotsRebuilt)

	// A no-op apply records nothing.
	actions, err := f.store.Actions().ListBySecurity(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, actions)
}

func TestActionService_ApplyMerger_EvidenceMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.book(t, models.TypeBuy, 1, "2024-01-10", 100, 50_000)

	req := mergerReq()
	preview, err := f.action.PreviewMerger(ctx, req)
	require.NoError(t, err)
	req.Expect = preview.Evidence()

	f.book(t, models.TypeSell, 1, "2024-02-01", 10, 6_000)

	_, err = f.action.ApplyMerger(ctx, req)
	assert.ErrorIs(t, err, ErrConcurrentModification)
}

func TestActionService_ApplyMerger_TinyHoldingSkipped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A holding that converts to zero target quantity cannot carry its
	// basis into the target; it is skipped and reported.
	require.NoError(t, f.store.Transactions().Create(ctx, &models.Transaction{
		OwnerType:  models.OwnerPortfolio,
		OwnerID:    1,
		SecurityID: ptrInt64(1),
		Type:       models.TypeBuy,
		Date:       day("2024-01-10"),
		Shares:     numeric.Quantity(1),
		Amount:     numeric.Money(500),
		Currency:   "USD",
	}))

	result, err := f.action.ApplyMerger(ctx, mergerReq())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Zero(t, result.TransactionsCreated)
	require.Len(t, result.PortfolioErrors, 1)
	assert.Equal(t, int64(1), result.PortfolioErrors[0].PortfolioID)
}

func ptrInt64(v int64) *int64 { return &v }
