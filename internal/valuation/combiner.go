package valuation

import (
	"math"

	"github.com/mingzhao/fundv/internal/contracts"
	"github.com/mingzhao/fundv/internal/industry"
	"github.com/mingzhao/fundv/pkg/logger"
)

// Signal thresholds. The downside is asymmetric: calling a company
// overvalued takes a larger margin than calling it cheap, because a
// false sell costs more than a false hold.
const (
	BullishThreshold = 0.15
	BearishThreshold = -0.20

	// Looser upside threshold kept on the legacy fallback path.
	LegacyBullishThreshold = 0.10

	divergenceRatio = 3.0
)

// methodWeights is the combination decision table per company class.
var methodWeights = map[contracts.CompanyClass]map[contracts.Method]float64{
	contracts.MatureProfitable: {
		contracts.MethodDCF:           0.6,
		contracts.MethodOwnerEarnings: 0.4,
	},
	contracts.ProfitableGrowth: {
		contracts.MethodDCF:           0.3,
		contracts.MethodOwnerEarnings: 0.3,
		contracts.MethodRevenue:       0.4,
	},
	contracts.UnprofitableGrowth: {
		contracts.MethodRevenue: 1.0,
	},
}

// stableCashFlowIndustries prefer DCF when the methods diverge.
var stableCashFlowIndustries = map[industry.Code]bool{
	industry.Utilities: true,
	industry.Finance:   true,
	industry.Consumer:  true,
}

// SignalFromGap maps a weighted gap to a directional signal.
func SignalFromGap(gap float64) contracts.Signal {
	switch {
	case gap > BullishThreshold:
		return contracts.SignalBullish
	case gap < BearishThreshold:
		return contracts.SignalBearish
	default:
		return contracts.SignalNeutral
	}
}

// LegacySignalFromGap applies the looser fallback-path thresholds.
func LegacySignalFromGap(gap float64) contracts.Signal {
	switch {
	case gap > LegacyBullishThreshold:
		return contracts.SignalBullish
	case gap < BearishThreshold:
		return contracts.SignalBearish
	default:
		return contracts.SignalNeutral
	}
}

// Combined is the combiner's verdict over all attempted methods.
type Combined struct {
	Signal      contracts.Signal
	Confidence  float64
	WeightedGap float64
	Divergent   bool
}

// Combiner merges per-method valuations into one signal.
type Combiner struct {
	log *logger.Logger
}

// NewCombiner creates a combiner.
func NewCombiner(log *logger.Logger) *Combiner {
	return &Combiner{log: log}
}

// Combine computes per-method gaps, detects divergence, and derives the
// weighted gap, signal, and confidence for the class. Results gain
// their Gap field in place. A non-positive market cap or an all-invalid
// result set resolves to neutral with zero confidence.
func (c *Combiner) Combine(
	class contracts.CompanyClass,
	code industry.Code,
	results []contracts.ValuationResult,
	marketCap float64,
	revenueGrowth float64,
) Combined {
	if marketCap <= 0 {
		c.log.Warn("Market cap unavailable, valuation comparison skipped")
		return Combined{Signal: contracts.SignalNeutral}
	}

	valid := make([]*contracts.ValuationResult, 0, len(results))
	for i := range results {
		if results[i].IsValid() {
			results[i].Gap = (results[i].Value - marketCap) / marketCap
			valid = append(valid, &results[i])
		}
	}

	if len(valid) == 0 {
		return Combined{Signal: contracts.SignalNeutral}
	}

	weights := methodWeights[class]
	divergent := false

	var weightedGap float64
	if len(valid) == 1 {
		weightedGap = valid[0].Gap
	} else if ratio := valueSpread(valid); ratio > divergenceRatio {
		divergent = true
		weightedGap = c.divergentGap(code, valid, marketCap, ratio)
	} else {
		weightedGap = weightedAverage(valid, weights, func(r *contracts.ValuationResult) float64 {
			return r.Gap
		})
	}

	confidence := c.confidence(class, valid, weights, revenueGrowth)

	return Combined{
		Signal:      SignalFromGap(weightedGap),
		Confidence:  confidence,
		WeightedGap: weightedGap,
		Divergent:   divergent,
	}
}

// divergentGap resolves a large disagreement between methods. Stable
// cash-flow industries fall back to DCF alone; everyone else gets the
// geometric mean of the valid values, which avoids a misleading
// midpoint when the methods differ by a large factor.
func (c *Combiner) divergentGap(code industry.Code, valid []*contracts.ValuationResult, marketCap, ratio float64) float64 {
	c.log.WithFields(map[string]interface{}{
		"ratio":    ratio,
		"industry": code,
	}).Warn("Valuation methods diverge")

	if stableCashFlowIndustries[code] {
		for _, r := range valid {
			if r.Method == contracts.MethodDCF {
				return r.Gap
			}
		}
	}

	product := 1.0
	for _, r := range valid {
		product *= r.Value
	}
	geometricMean := math.Pow(product, 1/float64(len(valid)))

	return (geometricMean - marketCap) / marketCap
}

// confidence is the weight-averaged magnitude of the per-method gaps,
// not the magnitude of the weighted gap: two methods pointing in
// opposite directions should not cancel to zero conviction.
func (c *Combiner) confidence(
	class contracts.CompanyClass,
	valid []*contracts.ValuationResult,
	weights map[contracts.Method]float64,
	revenueGrowth float64,
) float64 {
	var confidence float64
	if len(valid) == 1 {
		confidence = math.Abs(valid[0].Gap)
	} else {
		confidence = weightedAverage(valid, weights, func(r *contracts.ValuationResult) float64 {
			return math.Abs(r.Gap)
		})
	}

	// An unprofitable grower is only as convincing as its top line.
	if class == contracts.UnprofitableGrowth {
		confidence = math.Min(confidence, revenueGrowth)
	}

	return clamp(confidence, 0, 1)
}

func weightedAverage(valid []*contracts.ValuationResult, weights map[contracts.Method]float64, pick func(*contracts.ValuationResult) float64) float64 {
	var totalWeight, sum float64
	for _, r := range valid {
		w := weights[r.Method]
		totalWeight += w
		sum += w * pick(r)
	}

	if totalWeight <= 0 {
		for _, r := range valid {
			sum += pick(r)
		}
		return sum / float64(len(valid))
	}

	return sum / totalWeight
}

func valueSpread(valid []*contracts.ValuationResult) float64 {
	minV, maxV := valid[0].Value, valid[0].Value
	for _, r := range valid[1:] {
		if r.Value < minV {
			minV = r.Value
		}
		if r.Value > maxV {
			maxV = r.Value
		}
	}
	if minV <= 0 {
		return math.Inf(1)
	}
	return maxV / minV
}
