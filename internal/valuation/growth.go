package valuation

// TerminalGrowthRate is the long-run growth used by the three-stage
// models, set below China's trend GDP growth.
const TerminalGrowthRate = 0.025

const (
	highGrowthFloor   = 0.03
	highGrowthCeiling = 0.30
	transitionFactor  = 0.7
)

// GrowthRates is the three-stage growth triple.
type GrowthRates struct {
	High       float64 `json:"high"`
	Transition float64 `json:"transition"`
	Terminal   float64 `json:"terminal"`
}

// EstimateGrowthRates blends historical revenue and earnings growth into
// the stage rates. Revenue growth weighs 40%, earnings growth 60%; the
// high rate is clamped to [3%, 30%] and the transition rate starts at
// 70% of it.
func EstimateGrowthRates(revenueGrowth, earningsGrowth float64) GrowthRates {
	high := 0.4*revenueGrowth + 0.6*earningsGrowth
	high = clamp(high, highGrowthFloor, highGrowthCeiling)

	return GrowthRates{
		High:       high,
		Transition: high * transitionFactor,
		Terminal:   TerminalGrowthRate,
	}
}
