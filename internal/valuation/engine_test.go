package valuation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mingzhao/fundv/internal/contracts"
	"github.com/mingzhao/fundv/internal/industry"
	"github.com/mingzhao/fundv/pkg/config"
	"github.com/mingzhao/fundv/pkg/logger"
)

func testEngine() *Engine {
	cfg := &config.Config{Env: "development", LogLevel: "error", LogFormat: "console"}
	return NewEngine(
		industry.NewClassifier(),
		industry.NewDefaultResolver(),
		DefaultMarketParams(),
		logger.New(cfg),
	)
}

func matureUtilitySnapshot() *contracts.FinancialSnapshot {
	return &contracts.FinancialSnapshot{
		Ticker:             "600900",
		NetIncome:          1e9,
		OperatingRevenue:   1e10,
		OperatingProfit:    1.3e9,
		Depreciation:       5e8,
		CapitalExpenditure: 6e8,
		WorkingCapital:     2e8,
		PrevWorkingCapital: 1e8,
		FreeCashFlow:       1.2e9,
		RevenueGrowth:      0.05,
		EarningsGrowth:     0.05,
		NetMargin:          0.10,
	}
}

func TestValuateMatureUtility(t *testing.T) {
	e := testEngine()
	snap := matureUtilitySnapshot()
	mkt := &contracts.MarketContext{MarketCap: 1.5e10, IndustryName: "电力"}

	run := e.Valuate(snap, mkt)

	assert.Equal(t, "utilities", run.IndustryCode)
	assert.Equal(t, contracts.MatureProfitable, run.Class)
	require.Len(t, run.Results, 2)

	dcf := run.Results[0]
	oe := run.Results[1]
	require.Equal(t, contracts.MethodDCF, dcf.Method)
	require.Equal(t, contracts.MethodOwnerEarnings, oe.Method)
	require.True(t, dcf.IsValid())
	require.True(t, oe.IsValid())

	// Reproduce the expected figures from the model functions.
	rates := EstimateGrowthRates(0.05, 0.05)
	wacc := CalculateWacc(WaccInput{
		RiskFreeRate:      0.028,
		MarketRiskPremium: 0.055,
		Beta:              0.6,
		TotalEquity:       1.5e10,
		CostOfDebt:        0.045,
		TaxRate:           clamp(1-1e9/1.3e9, 0.15, 0.35),
	})
	wantDcf := ThreeStageDcf(DcfInput{InitialFCF: 1.2e9, Rates: rates, Wacc: wacc})
	assert.InDelta(t, wantDcf.EquityValue, dcf.Value, 1e-6)

	// Utilities use the 0.7 maintenance standard; the working capital
	// change of 1e8 is within bounds, no smoothing.
	ownerEarnings := OwnerEarnings(1e9, 5e8, 6e8, 1e8, 0.7)
	wantOE := ThreeStageOwnerEarnings(OwnerEarningsInput{
		InitialOwnerEarnings: ownerEarnings,
		Rates:                rates,
		RequiredReturn:       0.085,
		MarginOfSafety:       0.12,
	})
	assert.InDelta(t, wantOE.EquityValue, oe.Value, 1e-6)

	wantGap := 0.6*dcf.Gap + 0.4*oe.Gap
	assert.InDelta(t, wantGap, run.WeightedGap, 1e-9)
	assert.Equal(t, SignalFromGap(wantGap), run.Signal)
	assert.InDelta(t, clamp(0.6*abs(dcf.Gap)+0.4*abs(oe.Gap), 0, 1), run.Confidence, 1e-9)
}

func TestValuateUnprofitableGrowth(t *testing.T) {
	e := testEngine()
	snap := &contracts.FinancialSnapshot{
		Ticker:           "688000",
		NetIncome:        -2e8,
		OperatingRevenue: 5e9,
		RevenueGrowth:    0.35,
	}
	mkt := &contracts.MarketContext{MarketCap: 2e10, IndustryName: "半导体"}

	run := e.Valuate(snap, mkt)

	assert.Equal(t, contracts.UnprofitableGrowth, run.Class)
	assert.Contains(t, run.ClassReason, "unprofitable with growing revenue")
	require.Len(t, run.Results, 1)
	require.Equal(t, contracts.MethodRevenue, run.Results[0].Method)
	require.True(t, run.Results[0].IsValid())

	// Signal derives from the revenue gap alone.
	assert.InDelta(t, run.Results[0].Gap, run.WeightedGap, 1e-9)
	assert.Equal(t, SignalFromGap(run.WeightedGap), run.Signal)
	assert.LessOrEqual(t, run.Confidence, 0.35+1e-9)
}

func TestValuateInvalidMarketCap(t *testing.T) {
	e := testEngine()
	snap := matureUtilitySnapshot()
	mkt := &contracts.MarketContext{MarketCap: 0, IndustryName: "电力"}

	run := e.Valuate(snap, mkt)

	assert.Equal(t, contracts.SignalNeutral, run.Signal)
	assert.Zero(t, run.WeightedGap)
	assert.Zero(t, run.Confidence)
}

func TestValuateDeterministic(t *testing.T) {
	e := testEngine()
	snap := matureUtilitySnapshot()
	mkt := &contracts.MarketContext{MarketCap: 1.5e10, IndustryName: "电力"}

	first := e.Valuate(snap, mkt)
	second := e.Valuate(snap, mkt)

	assert.Equal(t, first.Signal, second.Signal)
	assert.Equal(t, first.WeightedGap, second.WeightedGap)
	assert.Equal(t, first.Confidence, second.Confidence)
	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, first.Notes, second.Notes)
}

func TestValuateProfitableGrowthUsesThreeMethods(t *testing.T) {
	e := testEngine()
	snap := &contracts.FinancialSnapshot{
		Ticker:           "300750",
		NetIncome:        1e9,
		OperatingRevenue: 1e10,
		OperatingProfit:  1.3e9,
		Depreciation:     5e8,
		FreeCashFlow:     1.2e9,
		RevenueGrowth:    0.25,
		EarningsGrowth:   0.25,
		NetMargin:        0.10,
	}
	mkt := &contracts.MarketContext{MarketCap: 2e10, IndustryName: "软件"}

	run := e.Valuate(snap, mkt)

	assert.Equal(t, contracts.ProfitableGrowth, run.Class)
	require.Len(t, run.Results, 3)
	assert.Equal(t, contracts.MethodDCF, run.Results[0].Method)
	assert.Equal(t, contracts.MethodOwnerEarnings, run.Results[1].Method)
	assert.Equal(t, contracts.MethodRevenue, run.Results[2].Method)
	for _, r := range run.Results {
		assert.True(t, r.IsValid(), "method %s", r.Method)
	}
}

func TestValuateLegacyFallbackForUnprofitableNonGrowth(t *testing.T) {
	e := testEngine()
	snap := &contracts.FinancialSnapshot{
		Ticker:           "600000",
		NetIncome:        -1e8,
		OperatingRevenue: 5e9,
		RevenueGrowth:    0.01,
		EarningsGrowth:   0.02,
		FreeCashFlow:     8e8,
	}
	mkt := &contracts.MarketContext{MarketCap: 1e10, IndustryName: "钢铁"}

	run := e.Valuate(snap, mkt)

	assert.Equal(t, contracts.MatureProfitable, run.Class)
	assert.Contains(t, run.Notes, "single-stage fallback models used")
	require.Len(t, run.Results, 2)

	// Negative net income kills the owner earnings leg; the DCF leg
	// carries the signal under the looser legacy thresholds.
	dcf := run.Results[0]
	oe := run.Results[1]
	require.True(t, dcf.IsValid())
	require.False(t, oe.IsValid())

	profile := industry.NewDefaultResolver().Resolve(industry.HeavyIndustry)
	wantValue := SimpleDcfValue(8e8, 0.02, profile.Dcf)
	assert.InDelta(t, wantValue, dcf.Value, 1e-6)
	assert.Equal(t, LegacySignalFromGap(run.WeightedGap), run.Signal)
}

func TestValuateLegacyAllInvalidIsNeutral(t *testing.T) {
	e := testEngine()
	snap := &contracts.FinancialSnapshot{
		Ticker:           "600001",
		NetIncome:        -1e8,
		OperatingRevenue: 5e9,
		RevenueGrowth:    0.01,
	}
	mkt := &contracts.MarketContext{MarketCap: 1e10, IndustryName: "钢铁"}

	run := e.Valuate(snap, mkt)

	assert.Equal(t, contracts.SignalNeutral, run.Signal)
	assert.Zero(t, run.Confidence)
}

func TestValuateOwnerEarningsFallback(t *testing.T) {
	e := testEngine()
	snap := matureUtilitySnapshot()
	// Capex big enough to drive owner earnings negative.
	snap.CapitalExpenditure = 5e9

	mkt := &contracts.MarketContext{MarketCap: 1.5e10, IndustryName: "电力"}
	run := e.Valuate(snap, mkt)

	assert.Contains(t, run.Notes, "owner earnings fell back to 80% of net income")

	rates := EstimateGrowthRates(0.05, 0.05)
	wantOE := ThreeStageOwnerEarnings(OwnerEarningsInput{
		InitialOwnerEarnings: 1e9 * 0.8,
		Rates:                rates,
		RequiredReturn:       0.085,
		MarginOfSafety:       0.12,
	})
	require.True(t, run.Results[1].IsValid())
	assert.InDelta(t, wantOE.EquityValue, run.Results[1].Value, 1e-6)
}

func TestValuateWorkingCapitalSmoothing(t *testing.T) {
	e := testEngine()
	snap := matureUtilitySnapshot()
	// Swing far beyond half of net income.
	snap.WorkingCapital = 2e9
	snap.PrevWorkingCapital = 1e8

	mkt := &contracts.MarketContext{MarketCap: 1.5e10, IndustryName: "电力"}
	run := e.Valuate(snap, mkt)

	assert.Contains(t, run.Notes, "working capital change smoothed against revenue")

	// Utilities smooth to 3% of revenue.
	rates := EstimateGrowthRates(0.05, 0.05)
	ownerEarnings := OwnerEarnings(1e9, 5e8, 6e8, 1e10*0.03, 0.7)
	wantOE := ThreeStageOwnerEarnings(OwnerEarningsInput{
		InitialOwnerEarnings: ownerEarnings,
		Rates:                rates,
		RequiredReturn:       0.085,
		MarginOfSafety:       0.12,
	})
	require.True(t, run.Results[1].IsValid())
	assert.InDelta(t, wantOE.EquityValue, run.Results[1].Value, 1e-6)
}

func TestValuateMaintenanceCapexHistory(t *testing.T) {
	e := testEngine()
	snap := matureUtilitySnapshot()
	snap.HistoricalDepreciation = []float64{5e8, 5e8, 5e8, 5e8, 5e8}
	snap.HistoricalCapex = []float64{1e9, 1e9, 1e9, 1e9, 1e9}

	mkt := &contracts.MarketContext{MarketCap: 1.5e10, IndustryName: "电力"}
	run := e.Valuate(snap, mkt)

	// Blended ratio: 0.7*0.5 + 0.3*0.7 = 0.56.
	rates := EstimateGrowthRates(0.05, 0.05)
	ownerEarnings := OwnerEarnings(1e9, 5e8, 6e8, 1e8, 0.56)
	wantOE := ThreeStageOwnerEarnings(OwnerEarningsInput{
		InitialOwnerEarnings: ownerEarnings,
		Rates:                rates,
		RequiredReturn:       0.085,
		MarginOfSafety:       0.12,
	})
	require.True(t, run.Results[1].IsValid())
	assert.InDelta(t, wantOE.EquityValue, run.Results[1].Value, 1e-6)
}

func TestValuateUnknownIndustryUsesDefaults(t *testing.T) {
	e := testEngine()
	snap := matureUtilitySnapshot()

	run := e.Valuate(snap, &contracts.MarketContext{MarketCap: 1.5e10, IndustryName: "农业种植"})
	assert.Equal(t, "default", run.IndustryCode)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
