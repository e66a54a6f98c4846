package contracts

// FinancialSnapshot holds the normalized line items for one valuation run.
// All currency fields are absolute yuan. Absent fields stay zero; the
// engine degrades the affected method instead of failing.
type FinancialSnapshot struct {
	Ticker string `json:"ticker"`

	// Income statement
	NetIncome        float64 `json:"net_income"`
	OperatingRevenue float64 `json:"operating_revenue"`
	OperatingProfit  float64 `json:"operating_profit"`

	// Cash flow / balance sheet
	Depreciation       float64 `json:"depreciation"`
	CapitalExpenditure float64 `json:"capital_expenditure"`
	WorkingCapital     float64 `json:"working_capital"`
	PrevWorkingCapital float64 `json:"prev_working_capital"`
	FreeCashFlow       float64 `json:"free_cash_flow"`
	TotalDebt          float64 `json:"total_debt"`
	CashAndEquivalents float64 `json:"cash_and_equivalents"`
	SharesOutstanding  float64 `json:"shares_outstanding"`

	// Ratio metrics
	RevenueGrowth  float64 `json:"revenue_growth"`
	EarningsGrowth float64 `json:"earnings_growth"`
	PERatio        float64 `json:"pe_ratio"`
	PriceToSales   float64 `json:"price_to_sales"`
	NetMargin      float64 `json:"net_margin"`

	// Optional history for the maintenance capex estimate, oldest first
	HistoricalDepreciation []float64 `json:"historical_depreciation,omitempty"`
	HistoricalCapex        []float64 `json:"historical_capex,omitempty"`
}

// WorkingCapitalChange returns the period-over-period working capital delta.
func (s *FinancialSnapshot) WorkingCapitalChange() float64 {
	return s.WorkingCapital - s.PrevWorkingCapital
}

// IsProfitable reports whether the company earned money this period.
func (s *FinancialSnapshot) IsProfitable() bool {
	return s.NetIncome > 0
}

// MarketContext carries the market-side inputs for a valuation run.
type MarketContext struct {
	MarketCap    float64 `json:"market_cap"`
	IndustryName string  `json:"industry_name"`
}

// HasMarketCap reports whether a comparative gap can be computed.
func (m *MarketContext) HasMarketCap() bool {
	return m.MarketCap > 0
}
