package postgres

import (
	"context"
	"fmt"

	"github.com/rullmann/portfolio-now-sub006/internal/models"
)

type lotRepo struct{ q querier }

const lotColumns = `id, portfolio_id, security_id, acquired_at, seq,
	open_quantity, remaining_quantity, cost_basis`

func (r lotRepo) scanLots(ctx context.Context, query string, args ...any) ([]models.FifoLot, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lots: %w", err)
	}
	defer rows.Close()

	var lots []models.FifoLot
	for rows.Next() {
		var l models.FifoLot
		if err := rows.Scan(&l.ID, &l.PortfolioID, &l.SecurityID, &l.AcquiredAt,
			&l.Seq, &l.OpenQuantity, &l.RemainingQuantity, &l.CostBasis); err != nil {
			return nil, fmt.Errorf("failed to scan lot: %w", err)
		}
		lots = append(lots, l)
	}
	return lots, rows.Err()
}

func (r lotRepo) ListBySecurity(ctx context.Context, securityID int64) ([]models.FifoLot, error) {
	query := `
		SELECT ` + lotColumns + `
		FROM fifo_lot
		WHERE security_id = $1
		ORDER BY portfolio_id, acquired_at, seq
	`
	return r.scanLots(ctx, query, securityID)
}

func (r lotRepo) ListByPortfolio(ctx context.Context, portfolioID int64) ([]models.FifoLot, error) {
	query := `
		SELECT ` + lotColumns + `
		FROM fifo_lot
		WHERE portfolio_id = $1
		ORDER BY security_id, acquired_at, seq
	`
	return r.scanLots(ctx, query, portfolioID)
}

func (r lotRepo) ReplaceForSecurity(ctx context.Context, securityID int64, lots []models.FifoLot) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM fifo_lot WHERE security_id = $1`, securityID); err != nil {
		return fmt.Errorf("failed to clear lots: %w", err)
	}
	query := `
		INSERT INTO fifo_lot
			(portfolio_id, security_id, acquired_at, seq,
			 open_quantity, remaining_quantity, cost_basis)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, l := range lots {
		if _, err := r.q.Exec(ctx, query, l.PortfolioID, l.SecurityID, l.AcquiredAt,
			l.Seq, l.OpenQuantity, l.RemainingQuantity, l.CostBasis); err != nil {
			return fmt.Errorf("failed to insert lot: %w", err)
		}
	}
	return nil
}
