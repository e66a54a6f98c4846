package marketdata

import (
	"context"
	"fmt"

	"github.com/mingzhao/fundv/internal/contracts"
	"github.com/mingzhao/fundv/pkg/logger"
)

// Provider assembles valuation snapshots from the Eastmoney client.
// It implements contracts.SnapshotProvider.
type Provider struct {
	client *Client
	logger *logger.Logger
}

// NewProvider creates a new snapshot provider
func NewProvider(client *Client, log *logger.Logger) *Provider {
	return &Provider{
		client: client,
		logger: log,
	}
}

// Snapshot fetches the quote and latest report for a ticker and maps
// them to the engine's input types. A failed quote fails the call; a
// failed report does not, absent line items stay zero and the engine
// degrades the affected methods.
func (p *Provider) Snapshot(ctx context.Context, ticker string) (*contracts.FinancialSnapshot, *contracts.MarketContext, error) {
	quote, err := p.client.FetchQuote(ctx, ticker)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch quote for %s failed: %w", ticker, err)
	}

	snap := &contracts.FinancialSnapshot{
		Ticker:            ticker,
		PERatio:           quote.PERatio,
		SharesOutstanding: quote.SharesTotal,
	}
	mkt := &contracts.MarketContext{
		MarketCap:    quote.MarketCap,
		IndustryName: quote.IndustryName,
	}

	report, err := p.client.FetchFinancials(ctx, ticker)
	if err != nil {
		p.logger.WithError(err).WithField("ticker", ticker).Warn("Financial report unavailable, snapshot degrades to quote fields")
		return snap, mkt, nil
	}

	snap.NetIncome = report.NetIncome
	snap.OperatingRevenue = report.OperatingRevenue
	snap.OperatingProfit = report.OperatingProfit
	snap.Depreciation = report.Depreciation
	snap.CapitalExpenditure = report.CapitalExpenditure
	snap.WorkingCapital = report.WorkingCapital
	snap.PrevWorkingCapital = report.PrevWorkingCapital
	snap.TotalDebt = report.TotalDebt
	snap.CashAndEquivalents = report.CashAndEquivalents
	snap.RevenueGrowth = report.RevenueGrowth
	snap.EarningsGrowth = report.EarningsGrowth
	snap.NetMargin = report.NetMargin
	snap.HistoricalDepreciation = report.HistoricalDepreciation
	snap.HistoricalCapex = report.HistoricalCapex

	// FCF approximated as operating cash flow less capex when the page
	// does not publish it directly.
	snap.FreeCashFlow = report.OperatingCashFlow - report.CapitalExpenditure

	if snap.PriceToSales == 0 && quote.MarketCap > 0 && report.OperatingRevenue > 0 {
		snap.PriceToSales = quote.MarketCap / report.OperatingRevenue
	}

	return snap, mkt, nil
}
