package valuation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mingzhao/fundv/internal/contracts"
	"github.com/mingzhao/fundv/internal/industry"
	"github.com/mingzhao/fundv/pkg/config"
	"github.com/mingzhao/fundv/pkg/logger"
)

func testCombiner() *Combiner {
	cfg := &config.Config{Env: "development", LogLevel: "error", LogFormat: "console"}
	return NewCombiner(logger.New(cfg))
}

func TestMethodWeightsSumToOne(t *testing.T) {
	for class, weights := range methodWeights {
		var sum float64
		for _, w := range weights {
			sum += w
		}
		assert.InDelta(t, 1.0, sum, 1e-9, "class %s", class)
	}
}

func TestSignalFromGap(t *testing.T) {
	assert.Equal(t, contracts.SignalBullish, SignalFromGap(0.16))
	assert.Equal(t, contracts.SignalNeutral, SignalFromGap(0.15))
	assert.Equal(t, contracts.SignalNeutral, SignalFromGap(-0.20))
	assert.Equal(t, contracts.SignalBearish, SignalFromGap(-0.21))
	assert.Equal(t, contracts.SignalNeutral, SignalFromGap(0))
}

func TestLegacySignalFromGap(t *testing.T) {
	assert.Equal(t, contracts.SignalBullish, LegacySignalFromGap(0.11))
	assert.Equal(t, contracts.SignalNeutral, LegacySignalFromGap(0.10))
	assert.Equal(t, contracts.SignalBearish, LegacySignalFromGap(-0.21))
}

func TestCombineInvalidMarketCap(t *testing.T) {
	results := []contracts.ValuationResult{
		{Method: contracts.MethodDCF, Value: 1e10},
	}

	got := testCombiner().Combine(contracts.MatureProfitable, industry.Utilities, results, 0, 0.05)
	assert.Equal(t, contracts.SignalNeutral, got.Signal)
	assert.Zero(t, got.Confidence)
	assert.Zero(t, got.WeightedGap)
}

func TestCombineAllInvalid(t *testing.T) {
	results := []contracts.ValuationResult{
		{Method: contracts.MethodDCF, Err: "Invalid initial FCF"},
		{Method: contracts.MethodOwnerEarnings, Err: "Invalid initial owner earnings"},
	}

	got := testCombiner().Combine(contracts.MatureProfitable, industry.Default, results, 1e10, 0.05)
	assert.Equal(t, contracts.SignalNeutral, got.Signal)
	assert.Zero(t, got.Confidence)
}

func TestCombineSingleMethod(t *testing.T) {
	results := []contracts.ValuationResult{
		{Method: contracts.MethodOwnerEarnings, Value: 1.3e10},
		{Method: contracts.MethodDCF, Err: "Invalid initial FCF"},
	}

	got := testCombiner().Combine(contracts.MatureProfitable, industry.Default, results, 1e10, 0.05)
	assert.InDelta(t, 0.3, got.WeightedGap, 1e-9)
	assert.Equal(t, contracts.SignalBullish, got.Signal)
	assert.InDelta(t, 0.3, got.Confidence, 1e-9)
	assert.False(t, got.Divergent)
}

func TestCombineMatureWeights(t *testing.T) {
	// DCF gap +0.4, owner earnings gap -0.1: weighted 0.6/0.4.
	results := []contracts.ValuationResult{
		{Method: contracts.MethodDCF, Value: 1.4e10},
		{Method: contracts.MethodOwnerEarnings, Value: 0.9e10},
	}

	got := testCombiner().Combine(contracts.MatureProfitable, industry.Default, results, 1e10, 0.05)
	assert.InDelta(t, 0.6*0.4+0.4*(-0.1), got.WeightedGap, 1e-9)
	assert.Equal(t, contracts.SignalBullish, got.Signal)

	// Confidence averages magnitudes, so opposing gaps do not cancel.
	assert.InDelta(t, 0.6*0.4+0.4*0.1, got.Confidence, 1e-9)
	assert.False(t, got.Divergent)
}

func TestCombineDivergenceGeometricMean(t *testing.T) {
	// Values four apart: divergent. A semiconductor maker is not a
	// stable cash-flow industry, so the geometric mean decides.
	results := []contracts.ValuationResult{
		{Method: contracts.MethodDCF, Value: 4e10},
		{Method: contracts.MethodOwnerEarnings, Value: 1e10},
	}

	got := testCombiner().Combine(contracts.MatureProfitable, industry.Technology, results, 1e10, 0.05)
	require.True(t, got.Divergent)

	geoMean := math.Sqrt(4e10 * 1e10)
	assert.InDelta(t, (geoMean-1e10)/1e10, got.WeightedGap, 1e-9)
	assert.Equal(t, contracts.SignalBullish, got.Signal)
}

func TestCombineDivergencePrefersDcfForStableIndustries(t *testing.T) {
	results := []contracts.ValuationResult{
		{Method: contracts.MethodDCF, Value: 4e10},
		{Method: contracts.MethodOwnerEarnings, Value: 1e10},
	}

	for _, code := range []industry.Code{industry.Utilities, industry.Finance, industry.Consumer} {
		got := testCombiner().Combine(contracts.MatureProfitable, code, results, 1e10, 0.05)
		require.True(t, got.Divergent, "industry %s", code)
		assert.InDelta(t, 3.0, got.WeightedGap, 1e-9, "industry %s", code)
	}
}

func TestCombineDivergenceBoundary(t *testing.T) {
	// Exactly 3x apart is not yet divergent.
	results := []contracts.ValuationResult{
		{Method: contracts.MethodDCF, Value: 3e10},
		{Method: contracts.MethodOwnerEarnings, Value: 1e10},
	}

	got := testCombiner().Combine(contracts.MatureProfitable, industry.Technology, results, 1e10, 0.05)
	assert.False(t, got.Divergent)
}

func TestCombineProfitableGrowthRenormalizes(t *testing.T) {
	// Revenue method invalid: DCF and owner earnings renormalize from
	// 0.3/0.3 to 0.5/0.5.
	results := []contracts.ValuationResult{
		{Method: contracts.MethodDCF, Value: 1.4e10},
		{Method: contracts.MethodOwnerEarnings, Value: 1.2e10},
		{Method: contracts.MethodRevenue, Err: "Invalid revenue"},
	}

	got := testCombiner().Combine(contracts.ProfitableGrowth, industry.Technology, results, 1e10, 0.25)
	assert.InDelta(t, 0.5*0.4+0.5*0.2, got.WeightedGap, 1e-9)
}

func TestCombineProfitableGrowthAllThree(t *testing.T) {
	results := []contracts.ValuationResult{
		{Method: contracts.MethodDCF, Value: 1.2e10},
		{Method: contracts.MethodOwnerEarnings, Value: 1.1e10},
		{Method: contracts.MethodRevenue, Value: 1.4e10},
	}

	got := testCombiner().Combine(contracts.ProfitableGrowth, industry.Technology, results, 1e10, 0.25)
	assert.InDelta(t, 0.3*0.2+0.3*0.1+0.4*0.4, got.WeightedGap, 1e-9)
}

func TestCombineUnprofitableGrowthConfidenceCap(t *testing.T) {
	// A huge gap cannot express more conviction than the revenue growth
	// backing it.
	results := []contracts.ValuationResult{
		{Method: contracts.MethodRevenue, Value: 3e10},
	}

	got := testCombiner().Combine(contracts.UnprofitableGrowth, industry.Technology, results, 1e10, 0.35)
	assert.InDelta(t, 2.0, got.WeightedGap, 1e-9)
	assert.InDelta(t, 0.35, got.Confidence, 1e-9)
	assert.Equal(t, contracts.SignalBullish, got.Signal)
}

func TestCombineConfidenceClamped(t *testing.T) {
	results := []contracts.ValuationResult{
		{Method: contracts.MethodDCF, Value: 2.9e10},
		{Method: contracts.MethodOwnerEarnings, Value: 2.8e10},
	}

	got := testCombiner().Combine(contracts.MatureProfitable, industry.Default, results, 1e10, 0.05)
	assert.LessOrEqual(t, got.Confidence, 1.0)
	assert.GreaterOrEqual(t, got.Confidence, 0.0)
}

func TestCombineSetsGapsOnResults(t *testing.T) {
	results := []contracts.ValuationResult{
		{Method: contracts.MethodDCF, Value: 1.2e10},
		{Method: contracts.MethodOwnerEarnings, Value: 0.8e10},
	}

	testCombiner().Combine(contracts.MatureProfitable, industry.Default, results, 1e10, 0.05)
	assert.InDelta(t, 0.2, results[0].Gap, 1e-9)
	assert.InDelta(t, -0.2, results[1].Gap, 1e-9)
}
