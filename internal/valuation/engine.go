package valuation

import (
	"fmt"
	"math"
	"time"

	"github.com/mingzhao/fundv/internal/contracts"
	"github.com/mingzhao/fundv/internal/industry"
	"github.com/mingzhao/fundv/pkg/logger"
)

// MarketParams are the market-level assumptions shared by every run.
type MarketParams struct {
	RiskFreeRate      float64
	RiskPremium       float64
	DefaultBeta       float64
	DefaultCostOfDebt float64
	DefaultTaxRate    float64
}

// DefaultMarketParams returns the A-share market assumptions: 2.8%
// risk-free rate, 5.5% risk premium, 4.5% cost of debt, 25% tax.
func DefaultMarketParams() MarketParams {
	return MarketParams{
		RiskFreeRate:      0.028,
		RiskPremium:       0.055,
		DefaultBeta:       1.0,
		DefaultCostOfDebt: 0.045,
		DefaultTaxRate:    0.25,
	}
}

// Engine runs a full valuation: classify the company, route to the
// applicable methods, and combine their results into one signal.
// The engine is total: every input resolves to a CombinedValuation.
type Engine struct {
	classifier *industry.Classifier
	resolver   *industry.Resolver
	combiner   *Combiner
	market     MarketParams
	log        *logger.Logger
}

// NewEngine creates a valuation engine.
func NewEngine(classifier *industry.Classifier, resolver *industry.Resolver, market MarketParams, log *logger.Logger) *Engine {
	return &Engine{
		classifier: classifier,
		resolver:   resolver,
		combiner:   NewCombiner(log),
		market:     market,
		log:        log,
	}
}

// Valuate produces the combined valuation for one snapshot. Method
// failures degrade to "not computable" results; they never escape.
func (e *Engine) Valuate(snap *contracts.FinancialSnapshot, mkt *contracts.MarketContext) *contracts.CombinedValuation {
	code := e.classifier.Classify(mkt.IndustryName)
	profile := e.resolver.Resolve(code)
	cls := ClassifyCompany(snap, code)

	e.log.WithFields(map[string]interface{}{
		"ticker":   snap.Ticker,
		"industry": code,
		"class":    cls.Class,
	}).Info("Running valuation")

	run := &contracts.CombinedValuation{
		Ticker:       snap.Ticker,
		IndustryCode: string(code),
		Class:        cls.Class,
		ClassReason:  cls.Reason,
		MarketCap:    mkt.MarketCap,
		GeneratedAt:  time.Now(),
	}

	switch {
	case cls.Class == contracts.UnprofitableGrowth:
		e.runUnprofitableGrowth(run, snap, profile)
	case cls.Class == contracts.ProfitableGrowth:
		e.runProfitableGrowth(run, snap, mkt, code, profile)
	case cls.IsProfitable:
		e.runMature(run, snap, mkt, code, profile)
	default:
		// Mature but unprofitable: degraded two-method path.
		e.runLegacy(run, snap, mkt, profile)
	}

	return run
}

// runMature values a mature profitable company with three-stage DCF
// weighted 60% and three-stage owner earnings weighted 40%.
func (e *Engine) runMature(run *contracts.CombinedValuation, snap *contracts.FinancialSnapshot, mkt *contracts.MarketContext, code industry.Code, profile industry.Profile) {
	rates := EstimateGrowthRates(snap.RevenueGrowth, snap.EarningsGrowth)

	results := []contracts.ValuationResult{
		e.safeRun(contracts.MethodDCF, func() contracts.ValuationResult {
			return e.dcfResult(run, snap, mkt, profile, rates)
		}),
		e.safeRun(contracts.MethodOwnerEarnings, func() contracts.ValuationResult {
			return e.ownerEarningsResult(run, snap, code, profile, rates)
		}),
	}

	run.Results = results
	if countValid(results) == 0 {
		e.log.WithField("ticker", snap.Ticker).Warn("All three-stage methods invalid, falling back to single-stage models")
		e.runLegacy(run, snap, mkt, profile)
		return
	}

	e.applyCombination(run, code, snap.RevenueGrowth, mkt.MarketCap)
}

// runProfitableGrowth adds the revenue method to the mature pair,
// weighted 30/30/40 toward revenue.
func (e *Engine) runProfitableGrowth(run *contracts.CombinedValuation, snap *contracts.FinancialSnapshot, mkt *contracts.MarketContext, code industry.Code, profile industry.Profile) {
	rates := EstimateGrowthRates(snap.RevenueGrowth, snap.EarningsGrowth)

	results := []contracts.ValuationResult{
		e.safeRun(contracts.MethodDCF, func() contracts.ValuationResult {
			return e.dcfResult(run, snap, mkt, profile, rates)
		}),
		e.safeRun(contracts.MethodOwnerEarnings, func() contracts.ValuationResult {
			return e.ownerEarningsResult(run, snap, code, profile, rates)
		}),
		e.safeRun(contracts.MethodRevenue, func() contracts.ValuationResult {
			return e.revenueResult(snap, mkt, profile)
		}),
	}

	run.Results = results
	if countValid(results) == 0 {
		e.log.WithField("ticker", snap.Ticker).Warn("All growth-path methods invalid, falling back to single-stage models")
		e.runLegacy(run, snap, mkt, profile)
		return
	}

	e.applyCombination(run, code, snap.RevenueGrowth, mkt.MarketCap)
}

// runUnprofitableGrowth values a loss-making grower from revenue alone.
func (e *Engine) runUnprofitableGrowth(run *contracts.CombinedValuation, snap *contracts.FinancialSnapshot, profile industry.Profile) {
	result := e.safeRun(contracts.MethodRevenue, func() contracts.ValuationResult {
		return e.revenueResult(snap, &contracts.MarketContext{MarketCap: run.MarketCap}, profile)
	})

	run.Results = []contracts.ValuationResult{result}
	e.applyCombination(run, industry.Code(run.IndustryCode), snap.RevenueGrowth, run.MarketCap)
}

// runLegacy is the degraded path: single-stage DCF and owner earnings
// with the looser 10%/-20% thresholds.
func (e *Engine) runLegacy(run *contracts.CombinedValuation, snap *contracts.FinancialSnapshot, mkt *contracts.MarketContext, profile industry.Profile) {
	growth := snap.EarningsGrowth

	dcfValue := SimpleDcfValue(snap.FreeCashFlow, growth, profile.Dcf)
	oeValue := SimpleOwnerEarningsValue(
		snap.NetIncome, snap.Depreciation, snap.CapitalExpenditure,
		snap.WorkingCapitalChange(), growth, profile.OwnerEarnings,
	)

	dcfResult := contracts.ValuationResult{Method: contracts.MethodDCF, Value: dcfValue}
	if dcfValue <= 0 {
		dcfResult.Err = "Invalid FCF"
	}
	oeResult := contracts.ValuationResult{Method: contracts.MethodOwnerEarnings, Value: oeValue}
	if oeValue <= 0 {
		oeResult.Err = "Invalid owner earnings"
	}

	run.Results = []contracts.ValuationResult{dcfResult, oeResult}
	run.Notes = append(run.Notes, "single-stage fallback models used")

	if mkt.MarketCap <= 0 {
		run.Signal = contracts.SignalNeutral
		return
	}

	var gapSum float64
	var valid int
	for i := range run.Results {
		if run.Results[i].IsValid() {
			run.Results[i].Gap = (run.Results[i].Value - mkt.MarketCap) / mkt.MarketCap
			gapSum += run.Results[i].Gap
			valid++
		}
	}

	if valid == 0 {
		run.Signal = contracts.SignalNeutral
		return
	}

	gap := gapSum / float64(valid)
	run.WeightedGap = gap
	run.Signal = LegacySignalFromGap(gap)
	run.Confidence = clamp(math.Abs(gap), 0, 1)
}

func (e *Engine) applyCombination(run *contracts.CombinedValuation, code industry.Code, revenueGrowth, marketCap float64) {
	combined := e.combiner.Combine(run.Class, code, run.Results, marketCap, revenueGrowth)
	run.Signal = combined.Signal
	run.Confidence = combined.Confidence
	run.WeightedGap = combined.WeightedGap
	run.Divergent = combined.Divergent
}

// dcfResult runs the three-stage DCF over the snapshot's free cash flow.
func (e *Engine) dcfResult(run *contracts.CombinedValuation, snap *contracts.FinancialSnapshot, mkt *contracts.MarketContext, profile industry.Profile, rates GrowthRates) contracts.ValuationResult {
	// Market cap proxies total equity; a PE of 15 stands in when the
	// market cap is unavailable.
	totalEquity := mkt.MarketCap
	if totalEquity <= 0 {
		totalEquity = snap.NetIncome * 15
	}

	wacc := CalculateWacc(WaccInput{
		RiskFreeRate:      e.market.RiskFreeRate,
		MarketRiskPremium: e.market.RiskPremium,
		Beta:              profile.Beta,
		TotalDebt:         snap.TotalDebt,
		TotalEquity:       totalEquity,
		CostOfDebt:        e.market.DefaultCostOfDebt,
		TaxRate:           e.estimateTaxRate(snap),
	})

	res := ThreeStageDcf(DcfInput{
		InitialFCF:         snap.FreeCashFlow,
		Rates:              rates,
		Wacc:               wacc,
		TotalDebt:          snap.TotalDebt,
		CashAndEquivalents: snap.CashAndEquivalents,
		SharesOutstanding:  snap.SharesOutstanding,
	})

	if res.Err == "" && res.WaccUsed != wacc {
		e.log.WithFields(map[string]interface{}{
			"wacc":      wacc,
			"corrected": res.WaccUsed,
		}).Warn("WACC below terminal growth, corrected")
		run.Notes = append(run.Notes, fmt.Sprintf("wacc corrected from %.2f%% to %.2f%%", wacc*100, res.WaccUsed*100))
	}

	return contracts.ValuationResult{
		Method:       contracts.MethodDCF,
		Value:        res.EquityValue,
		Err:          res.Err,
		Stages:       res.Stages,
		DiscountRate: res.WaccUsed,
		HighGrowth:   rates.High,
	}
}

// ownerEarningsResult derives the owner earnings base and runs the
// three-stage model over it.
func (e *Engine) ownerEarningsResult(run *contracts.CombinedValuation, snap *contracts.FinancialSnapshot, code industry.Code, profile industry.Profile, rates GrowthRates) contracts.ValuationResult {
	maintenanceRatio := profile.MaintenanceCapexStdRatio
	if len(snap.HistoricalDepreciation) > 0 && len(snap.HistoricalCapex) > 0 {
		maintenanceRatio = MaintenanceCapexRatio(snap.HistoricalDepreciation, snap.HistoricalCapex, profile.MaintenanceCapexStdRatio)
	}

	wcChange := e.smoothedWorkingCapitalChange(run, snap, code)

	ownerEarnings := OwnerEarnings(snap.NetIncome, snap.Depreciation, snap.CapitalExpenditure, wcChange, maintenanceRatio)

	// An implausibly small base usually means noisy capex or working
	// capital data; 80% of net income is the conservative stand-in.
	if ownerEarnings <= 0 || ownerEarnings < snap.NetIncome*0.1 {
		e.log.WithField("owner_earnings", ownerEarnings).Warn("Owner earnings implausibly small, using 80% of net income")
		ownerEarnings = snap.NetIncome * 0.8
		run.Notes = append(run.Notes, "owner earnings fell back to 80% of net income")
	}

	res := ThreeStageOwnerEarnings(OwnerEarningsInput{
		InitialOwnerEarnings: ownerEarnings,
		Rates:                rates,
		RequiredReturn:       profile.OwnerEarnings.RequiredReturn,
		MarginOfSafety:       profile.OwnerEarnings.MarginOfSafety,
		TotalDebt:            snap.TotalDebt,
		CashAndEquivalents:   snap.CashAndEquivalents,
	})

	if res.Err == "" && res.RequiredReturnUsed != profile.OwnerEarnings.RequiredReturn {
		run.Notes = append(run.Notes, fmt.Sprintf("required return corrected to %.2f%%", res.RequiredReturnUsed*100))
	}

	return contracts.ValuationResult{
		Method:       contracts.MethodOwnerEarnings,
		Value:        res.EquityValue,
		Err:          res.Err,
		Stages:       res.Stages,
		DiscountRate: res.RequiredReturnUsed,
		HighGrowth:   rates.High,
	}
}

func (e *Engine) revenueResult(snap *contracts.FinancialSnapshot, mkt *contracts.MarketContext, profile industry.Profile) contracts.ValuationResult {
	res := RevenueBasedValue(RevenueInput{
		OperatingRevenue: snap.OperatingRevenue,
		RevenueGrowth:    snap.RevenueGrowth,
		Profile:          profile,
		MarketCap:        mkt.MarketCap,
		CurrentNetIncome: snap.NetIncome,
		CurrentNetMargin: snap.NetMargin,
	})

	return contracts.ValuationResult{
		Method: contracts.MethodRevenue,
		Value:  res.Value,
		Err:    res.Err,
	}
}

// estimateTaxRate infers the effective rate from the spread between
// operating profit and net income, clamped to [15%, 35%].
func (e *Engine) estimateTaxRate(snap *contracts.FinancialSnapshot) float64 {
	if snap.OperatingProfit > 0 && snap.NetIncome > 0 {
		return clamp(1-snap.NetIncome/snap.OperatingProfit, 0.15, 0.35)
	}
	return e.market.DefaultTaxRate
}

// smoothedWorkingCapitalChange replaces an outsized working capital
// swing with a revenue-proportional estimate. Capital-intensive
// utilities get 3% of revenue, everyone else 2%.
func (e *Engine) smoothedWorkingCapitalChange(run *contracts.CombinedValuation, snap *contracts.FinancialSnapshot, code industry.Code) float64 {
	wcChange := snap.WorkingCapitalChange()
	if math.Abs(wcChange) <= math.Abs(snap.NetIncome)*0.5 {
		return wcChange
	}

	if snap.OperatingRevenue <= 0 {
		return 0
	}

	ratio := 0.02
	if code == industry.Utilities {
		ratio = 0.03
	}
	smoothed := snap.OperatingRevenue * ratio

	e.log.WithFields(map[string]interface{}{
		"raw":      wcChange,
		"smoothed": smoothed,
	}).Warn("Working capital change outsized, smoothed against revenue")
	run.Notes = append(run.Notes, "working capital change smoothed against revenue")

	return smoothed
}

// safeRun executes one valuation method behind a recovery boundary so a
// computation failure degrades that method instead of the whole run.
func (e *Engine) safeRun(method contracts.Method, fn func() contracts.ValuationResult) (result contracts.ValuationResult) {
	defer func() {
		if r := recover(); r != nil {
			e.log.WithField("method", string(method)).Error(fmt.Sprintf("Valuation method failed: %v", r))
			result = contracts.ValuationResult{
				Method: method,
				Err:    fmt.Sprintf("computation failed: %v", r),
			}
		}
	}()

	return fn()
}

func countValid(results []contracts.ValuationResult) int {
	n := 0
	for i := range results {
		if results[i].IsValid() {
			n++
		}
	}
	return n
}
