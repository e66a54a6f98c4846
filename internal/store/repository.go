package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mingzhao/fundv/internal/contracts"
)

// Repository persists valuation runs. Implements contracts.RunRepository.
// Expects the valuation.runs table:
//
//	ticker TEXT, industry_code TEXT, class TEXT, class_reason TEXT,
//	signal TEXT, confidence DOUBLE PRECISION, weighted_gap DOUBLE PRECISION,
//	market_cap DOUBLE PRECISION, divergent BOOLEAN,
//	results JSONB, notes JSONB, generated_at TIMESTAMPTZ
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new valuation run repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveRun inserts a completed valuation run
func (r *Repository) SaveRun(ctx context.Context, run *contracts.CombinedValuation) error {
	resultsJSON, err := json.Marshal(run.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	notesJSON, err := json.Marshal(run.Notes)
	if err != nil {
		return fmt.Errorf("failed to marshal notes: %w", err)
	}

	query := `
		INSERT INTO valuation.runs (
			ticker, industry_code, class, class_reason,
			signal, confidence, weighted_gap, market_cap, divergent,
			results, notes, generated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.pool.Exec(ctx, query,
		run.Ticker, run.IndustryCode, string(run.Class), run.ClassReason,
		string(run.Signal), run.Confidence, run.WeightedGap, run.MarketCap, run.Divergent,
		resultsJSON, notesJSON, run.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save valuation run: %w", err)
	}

	return nil
}

// LatestRun retrieves the most recent run for a ticker
func (r *Repository) LatestRun(ctx context.Context, ticker string) (*contracts.CombinedValuation, error) {
	query := selectColumns + `
		WHERE ticker = $1
		ORDER BY generated_at DESC
		LIMIT 1
	`

	run, err := r.scanRun(r.pool.QueryRow(ctx, query, ticker))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("no valuation run found for %s", ticker)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	return run, nil
}

// RunsByTicker retrieves recent runs for a ticker, newest first
func (r *Repository) RunsByTicker(ctx context.Context, ticker string, limit int) ([]*contracts.CombinedValuation, error) {
	if limit <= 0 {
		limit = 20
	}

	query := selectColumns + `
		WHERE ticker = $1
		ORDER BY generated_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, ticker, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*contracts.CombinedValuation
	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

const selectColumns = `
	SELECT ticker, industry_code, class, class_reason,
	       signal, confidence, weighted_gap, market_cap, divergent,
	       results, notes, generated_at
	FROM valuation.runs
`

// rowScanner covers both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanRun(row rowScanner) (*contracts.CombinedValuation, error) {
	var run contracts.CombinedValuation
	var class, signal string
	var resultsJSON, notesJSON []byte

	err := row.Scan(
		&run.Ticker, &run.IndustryCode, &class, &run.ClassReason,
		&signal, &run.Confidence, &run.WeightedGap, &run.MarketCap, &run.Divergent,
		&resultsJSON, &notesJSON, &run.GeneratedAt,
	)
	if err != nil {
		return nil, err
	}

	run.Class = contracts.CompanyClass(class)
	run.Signal = contracts.Signal(signal)

	if err := json.Unmarshal(resultsJSON, &run.Results); err != nil {
		return nil, fmt.Errorf("failed to unmarshal results: %w", err)
	}
	if len(notesJSON) > 0 {
		if err := json.Unmarshal(notesJSON, &run.Notes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notes: %w", err)
		}
	}

	return &run, nil
}
