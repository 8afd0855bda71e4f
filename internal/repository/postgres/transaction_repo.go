package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/rullmann/portfolio-now-sub006/internal/models"
	"github.com/rullmann/portfolio-now-sub006/internal/numeric"
)

type transactionRepo struct{ q querier }

// Create inserts a transaction. The serial id doubles as the replay sequence:
// two transactions on the same date replay in insertion order.
func (r transactionRepo) Create(ctx context.Context, t *models.Transaction) error {
	query := `
		INSERT INTO ledger_transaction
			(owner_type, owner_id, security_id, type, date, shares, amount,
			 currency, fee, tax, source, source_ref, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	err := r.q.QueryRow(ctx, query,
		t.OwnerType, t.OwnerID, t.SecurityID, t.Type, t.Date,
		t.Shares, t.Amount, t.Currency, t.Fee, t.Tax,
		t.Source, t.SourceRef, t.Note,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	t.Seq = t.ID
	return nil
}

func (r transactionRepo) ListBySecurity(ctx context.Context, securityID int64) ([]models.Transaction, error) {
	query := `
		SELECT id, owner_type, owner_id, security_id, type, date, shares,
		       amount, currency, fee, tax, source, source_ref, note
		FROM ledger_transaction
		WHERE security_id = $1
		ORDER BY date, id
	`
	rows, err := r.q.Query(ctx, query, securityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.OwnerType, &t.OwnerID, &t.SecurityID,
			&t.Type, &t.Date, &t.Shares, &t.Amount, &t.Currency,
			&t.Fee, &t.Tax, &t.Source, &t.SourceRef, &t.Note); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Seq = t.ID
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// RescaleShares adjusts share quantities in place. div() truncates toward
// zero, matching the engine's big.Int arithmetic.
func (r transactionRepo) RescaleShares(ctx context.Context, securityID int64, before time.Time, ratio numeric.Ratio) (int64, error) {
	query := `
		UPDATE ledger_transaction
		SET shares = div(shares::numeric * $2, $3)::bigint
		WHERE security_id = $1
		  AND date < $4
		  AND shares <> 0
		  AND type IN ('BUY', 'SELL', 'DELIVERY_INBOUND', 'DELIVERY_OUTBOUND',
		               'TRANSFER_IN', 'TRANSFER_OUT')
	`
	tag, err := r.q.Exec(ctx, query, securityID, ratio.Num, ratio.Den, before)
	if err != nil {
		return 0, fmt.Errorf("failed to rescale transaction shares: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r transactionRepo) RescaleAmounts(ctx context.Context, securityID int64, onOrBefore time.Time, portfolioIDs []int64, ratio numeric.Ratio) (int64, error) {
	query := `
		UPDATE ledger_transaction
		SET amount = div(amount::numeric * $2, $3)::bigint
		WHERE security_id = $1
		  AND date <= $4
		  AND owner_type = $5
		  AND owner_id = ANY($6)
		  AND type IN ('BUY', 'DELIVERY_INBOUND', 'TRANSFER_IN')
	`
	tag, err := r.q.Exec(ctx, query, securityID, ratio.Num, ratio.Den, onOrBefore,
		models.OwnerPortfolio, portfolioIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to rescale transaction amounts: %w", err)
	}
	return tag.RowsAffected(), nil
}
