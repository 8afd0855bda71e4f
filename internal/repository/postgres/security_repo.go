package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rullmann/portfolio-now-sub006/internal/models"
	"github.com/rullmann/portfolio-now-sub006/internal/repository"
)

type securityRepo struct{ q querier }

func (r securityRepo) GetByID(ctx context.Context, id int64) (*models.Security, error) {
	query := `
		SELECT id, symbol, name, currency, retired
		FROM security
		WHERE id = $1
	`
	s := &models.Security{}
	err := r.q.QueryRow(ctx, query, id).Scan(&s.ID, &s.Symbol, &s.Name, &s.Currency, &s.Retired)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrSecurityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get security: %w", err)
	}
	return s, nil
}

func (r securityRepo) List(ctx context.Context) ([]models.Security, error) {
	query := `
		SELECT id, symbol, name, currency, retired
		FROM security
		ORDER BY id
	`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query securities: %w", err)
	}
	defer rows.Close()

	var securities []models.Security
	for rows.Next() {
		var s models.Security
		if err := rows.Scan(&s.ID, &s.Symbol, &s.Name, &s.Currency, &s.Retired); err != nil {
			return nil, fmt.Errorf("failed to scan security: %w", err)
		}
		securities = append(securities, s)
	}
	return securities, rows.Err()
}

func (r securityRepo) Create(ctx context.Context, s *models.Security) error {
	query := `
		INSERT INTO security (symbol, name, currency, retired)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	return r.q.QueryRow(ctx, query, s.Symbol, s.Name, s.Currency, s.Retired).Scan(&s.ID)
}

type accountRepo struct{ q querier }

func (r accountRepo) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	query := `SELECT id, name, currency FROM account WHERE id = $1`
	a := &models.Account{}
	err := r.q.QueryRow(ctx, query, id).Scan(&a.ID, &a.Name, &a.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

func (r accountRepo) Create(ctx context.Context, a *models.Account) error {
	query := `INSERT INTO account (name, currency) VALUES ($1, $2) RETURNING id`
	return r.q.QueryRow(ctx, query, a.Name, a.Currency).Scan(&a.ID)
}

type portfolioRepo struct{ q querier }

func (r portfolioRepo) GetByID(ctx context.Context, id int64) (*models.Portfolio, error) {
	query := `SELECT id, name, reference_account FROM portfolio WHERE id = $1`
	p := &models.Portfolio{}
	err := r.q.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.ReferenceAccountID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrPortfolioNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}
	return p, nil
}

func (r portfolioRepo) List(ctx context.Context) ([]models.Portfolio, error) {
	query := `SELECT id, name, reference_account FROM portfolio ORDER BY id`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	var portfolios []models.Portfolio
	for rows.Next() {
		var p models.Portfolio
		if err := rows.Scan(&p.ID, &p.Name, &p.ReferenceAccountID); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, p)
	}
	return portfolios, rows.Err()
}

func (r portfolioRepo) Create(ctx context.Context, p *models.Portfolio) error {
	query := `INSERT INTO portfolio (name, reference_account) VALUES ($1, $2) RETURNING id`
	return r.q.QueryRow(ctx, query, p.Name, p.ReferenceAccountID).Scan(&p.ID)
}
