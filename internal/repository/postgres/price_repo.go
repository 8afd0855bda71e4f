package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/rullmann/portfolio-now-sub006/internal/models"
	"github.com/rullmann/portfolio-now-sub006/internal/numeric"
)

type priceRepo struct{ q querier }

func (r priceRepo) Upsert(ctx context.Context, p *models.PriceRecord) error {
	query := `
		INSERT INTO fact_price (security_id, date, close)
		VALUES ($1, $2, $3)
		ON CONFLICT (security_id, date) DO UPDATE SET close = EXCLUDED.close
	`
	if _, err := r.q.Exec(ctx, query, p.SecurityID, p.Date, p.Close); err != nil {
		return fmt.Errorf("failed to upsert price: %w", err)
	}
	return nil
}

func (r priceRepo) ListBySecurity(ctx context.Context, securityID int64) ([]models.PriceRecord, error) {
	query := `
		SELECT security_id, date, close
		FROM fact_price
		WHERE security_id = $1
		ORDER BY date
	`
	rows, err := r.q.Query(ctx, query, securityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()

	var prices []models.PriceRecord
	for rows.Next() {
		var p models.PriceRecord
		if err := rows.Scan(&p.SecurityID, &p.Date, &p.Close); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		prices = append(prices, p)
	}
	return prices, rows.Err()
}

func (r priceRepo) CountOnOrAfter(ctx context.Context, securityID int64, date time.Time) (int, error) {
	var n int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM fact_price WHERE security_id = $1 AND date >= $2`,
		securityID, date).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count prices: %w", err)
	}
	return n, nil
}

func (r priceRepo) Rescale(ctx context.Context, securityID int64, from time.Time, ratio numeric.Ratio) (int64, error) {
	query := `
		UPDATE fact_price
		SET close = div(close::numeric * $2, $3)::bigint
		WHERE security_id = $1 AND date >= $4
	`
	tag, err := r.q.Exec(ctx, query, securityID, ratio.Num, ratio.Den, from)
	if err != nil {
		return 0, fmt.Errorf("failed to rescale prices: %w", err)
	}
	return tag.RowsAffected(), nil
}
