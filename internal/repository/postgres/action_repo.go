package postgres

import (
	"context"
	"fmt"

	"github.com/rullmann/portfolio-now-sub006/internal/models"
)

type actionRepo struct{ q querier }

func (r actionRepo) Record(ctx context.Context, a *models.AppliedAction) error {
	query := `
		INSERT INTO corporate_action_log
			(id, kind, security_id, target_security_id, effective_date,
			 ratio_num, ratio_den, cash_per_share, applied_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := r.q.Exec(ctx, query, a.ID, a.Kind, a.SecurityID, a.TargetSecurityID,
		a.EffectiveDate, a.RatioNum, a.RatioDen, a.CashPerShare, a.AppliedAt); err != nil {
		return fmt.Errorf("failed to record corporate action: %w", err)
	}
	return nil
}

func (r actionRepo) ListBySecurity(ctx context.Context, securityID int64) ([]models.AppliedAction, error) {
	query := `
		SELECT id, kind, security_id, target_security_id, effective_date,
		       ratio_num, ratio_den, cash_per_share, applied_at
		FROM corporate_action_log
		WHERE security_id = $1 OR target_security_id = $1
		ORDER BY applied_at
	`
	rows, err := r.q.Query(ctx, query, securityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query corporate actions: %w", err)
	}
	defer rows.Close()

	var actions []models.AppliedAction
	for rows.Next() {
		var a models.AppliedAction
		if err := rows.Scan(&a.ID, &a.Kind, &a.SecurityID, &a.TargetSecurityID,
			&a.EffectiveDate, &a.RatioNum, &a.RatioDen, &a.CashPerShare, &a.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan corporate action: %w", err)
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}
