package valuation

import (
	"math"

	"github.com/mingzhao/fundv/internal/contracts"
)

// Stage lengths shared by the three-stage models.
const (
	DefaultHighGrowthYears = 5
	DefaultTransitionYears = 5
)

// rateCorrectionMargin is added to a discount rate that does not clear
// the terminal growth rate, keeping the Gordon perpetuity finite.
const rateCorrectionMargin = 0.03

// DcfInput holds the inputs to the three-stage DCF model.
type DcfInput struct {
	InitialFCF         float64
	Rates              GrowthRates
	Wacc               float64
	HighGrowthYears    int
	TransitionYears    int
	TotalDebt          float64
	CashAndEquivalents float64
	SharesOutstanding  float64
}

// DcfResult is the outcome of a three-stage DCF valuation.
type DcfResult struct {
	EnterpriseValue float64
	EquityValue     float64
	ValuePerShare   float64
	Stages          contracts.StageBreakdown
	WaccUsed        float64
	Err             string
}

// ThreeStageDcf values a company as five high-growth years, five
// transition years with linearly decaying growth, and a Gordon-growth
// perpetuity. A non-positive initial FCF makes the method not computable.
func ThreeStageDcf(in DcfInput) DcfResult {
	if in.InitialFCF <= 0 {
		return DcfResult{Err: "Invalid initial FCF"}
	}

	if in.HighGrowthYears <= 0 {
		in.HighGrowthYears = DefaultHighGrowthYears
	}
	if in.TransitionYears <= 0 {
		in.TransitionYears = DefaultTransitionYears
	}

	wacc := in.Wacc
	if wacc <= in.Rates.Terminal {
		wacc = in.Rates.Terminal + rateCorrectionMargin
	}

	// Stage 1: compound at the high growth rate.
	var stage1 float64
	fcf := in.InitialFCF
	for year := 1; year <= in.HighGrowthYears; year++ {
		fcf *= 1 + in.Rates.High
		stage1 += fcf / math.Pow(1+wacc, float64(year))
	}

	// Stage 2: growth decays linearly toward the terminal rate.
	var stage2 float64
	decline := (in.Rates.Transition - in.Rates.Terminal) / float64(in.TransitionYears)
	growth := in.Rates.Transition
	for year := 1; year <= in.TransitionYears; year++ {
		fcf *= 1 + growth
		stage2 += fcf / math.Pow(1+wacc, float64(in.HighGrowthYears+year))
		growth = math.Max(growth-decline, in.Rates.Terminal)
	}

	// Stage 3: Gordon perpetuity on the year after the projection.
	totalYears := in.HighGrowthYears + in.TransitionYears
	terminalFCF := fcf * (1 + in.Rates.Terminal)
	terminalValue := terminalFCF / (wacc - in.Rates.Terminal)
	stage3 := terminalValue / math.Pow(1+wacc, float64(totalYears))

	enterpriseValue := stage1 + stage2 + stage3
	equityValue := enterpriseValue + in.CashAndEquivalents - in.TotalDebt

	var perShare float64
	if in.SharesOutstanding > 0 {
		perShare = equityValue / in.SharesOutstanding
	}

	return DcfResult{
		EnterpriseValue: enterpriseValue,
		EquityValue:     equityValue,
		ValuePerShare:   perShare,
		Stages: contracts.StageBreakdown{
			Stage1PV:   stage1,
			Stage2PV:   stage2,
			TerminalPV: stage3,
		},
		WaccUsed: wacc,
	}
}
