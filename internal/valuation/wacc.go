package valuation

// WaccInput holds the inputs to the weighted average cost of capital.
type WaccInput struct {
	RiskFreeRate      float64
	MarketRiskPremium float64
	Beta              float64
	TotalDebt         float64
	TotalEquity       float64
	CostOfDebt        float64
	TaxRate           float64
}

const (
	waccFloor   = 0.05
	waccCeiling = 0.20
	waccDefault = 0.10
)

// CalculateWacc computes the blended cost of capital.
// Cost of equity comes from CAPM, the debt leg is taxed, and the result
// is clamped to [5%, 20%]. A non-positive capital base returns the 10%
// default.
func CalculateWacc(in WaccInput) float64 {
	costOfEquity := in.RiskFreeRate + in.Beta*in.MarketRiskPremium

	totalValue := in.TotalDebt + in.TotalEquity
	if totalValue <= 0 {
		return waccDefault
	}

	equityWeight := in.TotalEquity / totalValue
	debtWeight := in.TotalDebt / totalValue

	wacc := equityWeight*costOfEquity + debtWeight*in.CostOfDebt*(1-in.TaxRate)

	return clamp(wacc, waccFloor, waccCeiling)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
