package contracts

import "time"

// Signal is the directional trading signal derived from the valuation gap.
type Signal string

const (
	SignalBullish Signal = "bullish"
	SignalBearish Signal = "bearish"
	SignalNeutral Signal = "neutral"
)

// CompanyClass labels a company for valuation-method routing.
// Computed once per run and never mutated afterward.
type CompanyClass string

const (
	MatureProfitable   CompanyClass = "mature_profitable"
	ProfitableGrowth   CompanyClass = "profitable_growth"
	UnprofitableGrowth CompanyClass = "unprofitable_growth"
)

// Method identifies which valuation model produced a result.
type Method string

const (
	MethodDCF           Method = "dcf"
	MethodOwnerEarnings Method = "owner_earnings"
	MethodRevenue       Method = "revenue_based"
)

// StageBreakdown exposes the three present-value subtotals of a
// multi-stage model for transparency.
type StageBreakdown struct {
	Stage1PV   float64 `json:"stage1_pv"`
	Stage2PV   float64 `json:"stage2_pv"`
	TerminalPV float64 `json:"terminal_pv"`
}

// ValuationResult is the outcome of one valuation method.
// Value 0 with a non-empty Err means the method was not computable;
// that is data, not a Go error.
type ValuationResult struct {
	Method Method  `json:"method"`
	Value  float64 `json:"value"`
	Gap    float64 `json:"gap"`
	Err    string  `json:"error,omitempty"`

	Stages       StageBreakdown `json:"stages,omitempty"`
	DiscountRate float64        `json:"discount_rate,omitempty"`
	HighGrowth   float64        `json:"high_growth,omitempty"`
}

// IsValid reports whether the result can contribute to the combination.
func (r *ValuationResult) IsValid() bool {
	return r.Err == "" && r.Value > 0
}

// CombinedValuation is the final output of a valuation run.
// Created once at the end of the run and read-only thereafter.
type CombinedValuation struct {
	Ticker       string       `json:"ticker"`
	IndustryCode string       `json:"industry_code"`
	Class        CompanyClass `json:"class"`
	ClassReason  string       `json:"class_reason"`

	Signal      Signal  `json:"signal"`
	Confidence  float64 `json:"confidence"`
	WeightedGap float64 `json:"weighted_gap"`
	MarketCap   float64 `json:"market_cap"`

	// Divergent marks that the contributing values disagreed by more
	// than the divergence ratio and the gap came from a geometric mean
	// or a single preferred method.
	Divergent bool `json:"divergent"`

	Results []ValuationResult `json:"results"`
	Notes   []string          `json:"notes,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// ValidResults returns the results that contributed to the combination.
func (c *CombinedValuation) ValidResults() []ValuationResult {
	valid := make([]ValuationResult, 0, len(c.Results))
	for _, r := range c.Results {
		if r.IsValid() {
			valid = append(valid, r)
		}
	}
	return valid
}

// IsActionable reports whether the signal is a directional call.
func (c *CombinedValuation) IsActionable() bool {
	return c.Signal != SignalNeutral && c.Confidence > 0
}
