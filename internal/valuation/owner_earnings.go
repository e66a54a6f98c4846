package valuation

import (
	"math"
	"sort"

	"github.com/mingzhao/fundv/internal/contracts"
)

// oeRateCorrectionMargin is the bump applied when the required return
// does not clear the terminal growth rate. Wider than the DCF margin
// because the owner earnings base is already conservative.
const oeRateCorrectionMargin = 0.05

// MaintenanceCapexRatio blends the historical depreciation-to-capex
// ratio with the industry standard ratio. With four or more usable
// historical periods the blend leans on history (70/30), otherwise on
// the industry figure (30/70). The result stays inside [0.2, 1.0].
func MaintenanceCapexRatio(depreciationHistory, capexHistory []float64, industryStdRatio float64) float64 {
	n := len(depreciationHistory)
	if len(capexHistory) < n {
		n = len(capexHistory)
	}

	ratios := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if capexHistory[i] <= 0 {
			continue
		}
		ratio := depreciationHistory[i] / capexHistory[i]
		if ratio > 0 && ratio <= 1.5 {
			ratios = append(ratios, ratio)
		}
	}

	historical := industryStdRatio
	if len(ratios) > 0 {
		historical = median(ratios)
	}

	var blended float64
	if len(ratios) >= 4 {
		blended = 0.7*historical + 0.3*industryStdRatio
	} else {
		blended = 0.3*historical + 0.7*industryStdRatio
	}

	return clamp(blended, 0.2, 1.0)
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// OwnerEarnings computes the cash a shareholder could extract:
// net income plus depreciation, minus maintenance capex and the
// working capital increase.
func OwnerEarnings(netIncome, depreciation, capex, workingCapitalChange, maintenanceCapexRatio float64) float64 {
	maintenanceCapex := capex * maintenanceCapexRatio
	return netIncome + depreciation - maintenanceCapex - workingCapitalChange
}

// OwnerEarningsInput holds the inputs to the three-stage owner earnings model.
type OwnerEarningsInput struct {
	InitialOwnerEarnings float64
	Rates                GrowthRates
	RequiredReturn       float64
	HighGrowthYears      int
	TransitionYears      int
	MarginOfSafety       float64
	TotalDebt            float64
	CashAndEquivalents   float64
}

// OwnerEarningsResult is the outcome of a three-stage owner earnings valuation.
type OwnerEarningsResult struct {
	IntrinsicValue           float64
	IntrinsicValueWithMargin float64
	EquityValue              float64
	Stages                   contracts.StageBreakdown
	RequiredReturnUsed       float64
	Err                      string
}

// ThreeStageOwnerEarnings mirrors the three-stage DCF but compounds
// owner earnings, discounts at the industry required return, and takes
// a margin of safety off the summed present values.
func ThreeStageOwnerEarnings(in OwnerEarningsInput) OwnerEarningsResult {
	if in.InitialOwnerEarnings <= 0 {
		return OwnerEarningsResult{Err: "Invalid initial owner earnings"}
	}

	if in.HighGrowthYears <= 0 {
		in.HighGrowthYears = DefaultHighGrowthYears
	}
	if in.TransitionYears <= 0 {
		in.TransitionYears = DefaultTransitionYears
	}

	required := in.RequiredReturn
	if required <= in.Rates.Terminal {
		required = in.Rates.Terminal + oeRateCorrectionMargin
	}

	var stage1 float64
	oe := in.InitialOwnerEarnings
	for year := 1; year <= in.HighGrowthYears; year++ {
		oe *= 1 + in.Rates.High
		stage1 += oe / math.Pow(1+required, float64(year))
	}

	var stage2 float64
	decline := (in.Rates.Transition - in.Rates.Terminal) / float64(in.TransitionYears)
	growth := in.Rates.Transition
	for year := 1; year <= in.TransitionYears; year++ {
		oe *= 1 + growth
		stage2 += oe / math.Pow(1+required, float64(in.HighGrowthYears+year))
		growth = math.Max(growth-decline, in.Rates.Terminal)
	}

	totalYears := in.HighGrowthYears + in.TransitionYears
	terminalOE := oe * (1 + in.Rates.Terminal)
	terminalValue := terminalOE / (required - in.Rates.Terminal)
	stage3 := terminalValue / math.Pow(1+required, float64(totalYears))

	intrinsic := stage1 + stage2 + stage3
	withMargin := intrinsic * (1 - in.MarginOfSafety)

	equity := withMargin
	if in.TotalDebt > 0 || in.CashAndEquivalents > 0 {
		equity = withMargin + in.CashAndEquivalents - in.TotalDebt
	}

	return OwnerEarningsResult{
		IntrinsicValue:           intrinsic,
		IntrinsicValueWithMargin: withMargin,
		EquityValue:              equity,
		Stages: contracts.StageBreakdown{
			Stage1PV:   stage1,
			Stage2PV:   stage2,
			TerminalPV: stage3,
		},
		RequiredReturnUsed: required,
	}
}
