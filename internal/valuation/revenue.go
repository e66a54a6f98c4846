package valuation

import (
	"math"

	"github.com/mingzhao/fundv/internal/industry"
)

// Revenue-model constants. Growth companies get a fixed, deliberately
// high discount rate; the terminal rate matches the other models.
const (
	revenueDiscountRate = 0.12
	psRatioFloor        = 0.5
	psRatioCeiling      = 20.0
)

// RevenueInput holds the inputs to the revenue-based valuation.
type RevenueInput struct {
	OperatingRevenue float64
	RevenueGrowth    float64
	Profile          industry.Profile
	MarketCap        float64
	CurrentNetIncome float64
	CurrentNetMargin float64
}

// RevenueResult is the outcome of a revenue-based valuation.
type RevenueResult struct {
	Value                float64
	PSValue              float64
	DcfValue             float64
	PSRatio              float64
	YearsToProfitability int
	Err                  string
}

// RevenueBasedValue values a growth company from its revenue: a
// price-to-sales multiple blended with a future-profitability DCF.
// Non-positive revenue makes the method not computable.
func RevenueBasedValue(in RevenueInput) RevenueResult {
	if in.OperatingRevenue <= 0 {
		return RevenueResult{Err: "Invalid revenue"}
	}

	// P/S method. The company's actual multiple wins when it sits in
	// the acceptance window, otherwise the industry default applies.
	psRatio := in.Profile.PSRatio
	actualPS := 0.0
	usingActualPS := false
	if in.MarketCap > 0 {
		actualPS = in.MarketCap / in.OperatingRevenue
		if actualPS >= psRatioFloor && actualPS <= psRatioCeiling {
			psRatio = actualPS
			usingActualPS = true
		}
	}

	psValue := in.OperatingRevenue * psRatio

	isProfitable := in.CurrentNetIncome > 0 && in.CurrentNetMargin > 0

	// A profitable low-margin company priced at a market multiple gets
	// a small haircut so thin margins are not credited twice.
	if usingActualPS && in.CurrentNetMargin > 0 && in.CurrentNetMargin < 0.05 {
		switch {
		case in.RevenueGrowth > 0.20:
			psValue *= 0.95
		case in.CurrentNetMargin < 0.03:
			psValue *= 0.85
		default:
			psValue *= 0.90
		}
	}

	// Future-profitability method.
	var (
		futureNetIncome      float64
		adjustedGrowth       float64
		yearsToProfitability int
	)

	if isProfitable {
		// Already earning: decay the growth rate and let the margin
		// improve toward the industry target.
		switch {
		case in.RevenueGrowth > 0.30:
			adjustedGrowth = 0.20
		case in.RevenueGrowth > 0.20:
			adjustedGrowth = 0.15
		default:
			adjustedGrowth = math.Min(in.RevenueGrowth*0.6, 0.08)
		}

		var effectiveMargin float64
		if in.CurrentNetMargin < 0.05 && in.RevenueGrowth > 0.20 {
			effectiveMargin = math.Max(in.CurrentNetMargin*1.5, in.Profile.TargetNetMargin*0.8)
		} else {
			effectiveMargin = math.Min(in.CurrentNetMargin*1.2, in.Profile.TargetNetMargin)
		}

		yearsToProfitability = 0
		futureNetIncome = in.OperatingRevenue * effectiveMargin
	} else {
		// Loss-making: project revenue to the break-even year, then
		// apply the industry target margin.
		yearsToProfitability = in.Profile.YearsToProfitability
		futureRevenue := in.OperatingRevenue * math.Pow(1+in.RevenueGrowth, float64(yearsToProfitability))
		futureNetIncome = futureRevenue * in.Profile.TargetNetMargin
		adjustedGrowth = in.RevenueGrowth * 0.5
	}

	// Five years of projected income plus a Gordon terminal value,
	// shifted out by the years still needed to reach profitability.
	var dcfValue float64
	for year := 1; year <= 5; year++ {
		income := futureNetIncome * math.Pow(1+adjustedGrowth, float64(year))
		dcfValue += income / math.Pow(1+revenueDiscountRate, float64(yearsToProfitability+year))
	}

	terminalIncome := futureNetIncome * math.Pow(1+adjustedGrowth, 5)
	terminalValue := terminalIncome * (1 + TerminalGrowthRate) / (revenueDiscountRate - TerminalGrowthRate)
	dcfValue += terminalValue / math.Pow(1+revenueDiscountRate, float64(yearsToProfitability+5))

	// Blend: profitable high-growth and loss-making companies split
	// 50/50; profitable slower growers lean on the market multiple.
	var value float64
	switch {
	case isProfitable && in.RevenueGrowth > 0.20:
		value = 0.5*psValue + 0.5*dcfValue
	case isProfitable:
		value = 0.7*psValue + 0.3*dcfValue
	default:
		value = (psValue + dcfValue) / 2
	}

	return RevenueResult{
		Value:                value,
		PSValue:              psValue,
		DcfValue:             dcfValue,
		PSRatio:              psRatio,
		YearsToProfitability: yearsToProfitability,
	}
}
