package contracts

import "context"

// SnapshotProvider fetches the financial snapshot and market context for
// a ticker. Implemented by the market-data scraper; tests use fakes.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, ticker string) (*FinancialSnapshot, *MarketContext, error)
}

// RunRepository persists completed valuation runs.
type RunRepository interface {
	SaveRun(ctx context.Context, run *CombinedValuation) error
	LatestRun(ctx context.Context, ticker string) (*CombinedValuation, error)
	RunsByTicker(ctx context.Context, ticker string, limit int) ([]*CombinedValuation, error)
}
