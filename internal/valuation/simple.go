package valuation

import (
	"math"

	"github.com/mingzhao/fundv/internal/industry"
)

// The single-stage models below are the degraded fallback path. They
// predate the three-stage models and keep looser signal thresholds.

const simpleForecastYears = 5

// SimpleOwnerEarningsValue is the single-stage owner earnings model.
// Growth is clamped to [0, 25%]; cyclical industries can opt into a
// growth rate that declines over the forecast window. The terminal
// perpetuity compounds the final discounted figure, which keeps the
// legacy model's conservative bias.
func SimpleOwnerEarningsValue(netIncome, depreciation, capex, workingCapitalChange, growthRate float64, params industry.OwnerEarningsParams) float64 {
	effectiveCapex := capex
	if params.UseMaintenanceCapex {
		effectiveCapex = capex * params.MaintenanceCapexRatio
	}

	ownerEarnings := netIncome + depreciation - effectiveCapex - workingCapitalChange
	if ownerEarnings <= 0 {
		return 0
	}

	growthRate = clamp(growthRate, 0, 0.25)

	presentValues := make([]float64, 0, simpleForecastYears)
	for year := 1; year <= simpleForecastYears; year++ {
		yearGrowth := growthRate
		if params.UseDecliningGrowth {
			yearGrowth = growthRate * (1 - float64(year)/(2*simpleForecastYears))
		}
		futureValue := ownerEarnings * math.Pow(1+yearGrowth, float64(year))
		presentValues = append(presentValues, futureValue/math.Pow(1+params.RequiredReturn, float64(year)))
	}

	var total float64
	for _, pv := range presentValues {
		total += pv
	}

	terminalGrowth := math.Min(growthRate*params.TerminalGrowthFactor, params.TerminalGrowthCap)
	terminalValue := presentValues[len(presentValues)-1] * (1 + terminalGrowth) / (params.RequiredReturn - terminalGrowth)
	total += terminalValue / math.Pow(1+params.RequiredReturn, simpleForecastYears)

	withMargin := total * (1 - params.MarginOfSafety)
	return math.Max(withMargin, 0)
}

// SimpleDcfValue is the single-stage DCF model: constant-growth cash
// flows for five years plus a Gordon terminal value.
func SimpleDcfValue(freeCashFlow, growthRate float64, params industry.DcfParams) float64 {
	if freeCashFlow <= 0 {
		return 0
	}

	growthRate = clamp(growthRate, 0, 0.25)
	terminalGrowth := math.Min(growthRate*params.TerminalGrowthFactor, params.TerminalGrowthCap)

	var total float64
	for year := 1; year <= simpleForecastYears; year++ {
		futureCF := freeCashFlow * math.Pow(1+growthRate, float64(year))
		total += futureCF / math.Pow(1+params.DiscountRate, float64(year))
	}

	terminalCF := freeCashFlow * math.Pow(1+growthRate, simpleForecastYears)
	terminalValue := terminalCF * (1 + terminalGrowth) / (params.DiscountRate - terminalGrowth)
	total += terminalValue / math.Pow(1+params.DiscountRate, simpleForecastYears)

	return math.Max(total, 0)
}
