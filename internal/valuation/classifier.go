package valuation

import (
	"fmt"

	"github.com/mingzhao/fundv/internal/contracts"
	"github.com/mingzhao/fundv/internal/industry"
)

// Classification is the routing decision for one valuation run.
type Classification struct {
	Class        contracts.CompanyClass
	IsGrowth     bool
	IsProfitable bool
	Reason       string
}

// ClassifyCompany labels the company for method routing. Seven growth
// conditions are checked in order; the first hit wins and records why.
// Profitability is judged separately from net income.
func ClassifyCompany(snap *contracts.FinancialSnapshot, code industry.Code) Classification {
	isGrowth, reason := detectGrowthCompany(snap, code)
	isProfitable := snap.NetIncome > 0

	var class contracts.CompanyClass
	switch {
	case isGrowth && isProfitable:
		class = contracts.ProfitableGrowth
	case isGrowth:
		class = contracts.UnprofitableGrowth
	default:
		class = contracts.MatureProfitable
	}

	return Classification{
		Class:        class,
		IsGrowth:     isGrowth,
		IsProfitable: isProfitable,
		Reason:       reason,
	}
}

func detectGrowthCompany(snap *contracts.FinancialSnapshot, code industry.Code) (bool, string) {
	// 1. Losing money while revenue grows.
	if snap.NetIncome <= 0 && snap.OperatingRevenue > 0 && snap.RevenueGrowth > 0.05 {
		return true, fmt.Sprintf("unprofitable with growing revenue (revenue growth %.1f%%)", snap.RevenueGrowth*100)
	}

	// 2. High revenue growth outright.
	if snap.RevenueGrowth > 0.20 {
		return true, fmt.Sprintf("high revenue growth (%.1f%%)", snap.RevenueGrowth*100)
	}

	// 3. Rich P/S multiple on thin margins: the market pays for an
	// investment phase, not current earnings.
	if snap.PriceToSales > 5.0 && snap.NetMargin < 0.05 && snap.OperatingRevenue > 0 {
		return true, fmt.Sprintf("high P/S (%.1f) with low net margin (%.1f%%)", snap.PriceToSales, snap.NetMargin*100)
	}

	// 4. Rich P/E on thin margins.
	if snap.PERatio > 50 && snap.NetMargin < 0.10 && snap.NetIncome > 0 {
		return true, fmt.Sprintf("high P/E (%.1f) with low net margin (%.1f%%)", snap.PERatio, snap.NetMargin*100)
	}

	// 5. Growth sector plus fast top line and thin margins.
	if industry.IsGrowthIndustry(code) && snap.RevenueGrowth > 0.15 && snap.NetMargin < 0.10 {
		return true, fmt.Sprintf("growth industry (%s) with %.1f%% revenue growth and %.1f%% net margin", code, snap.RevenueGrowth*100, snap.NetMargin*100)
	}

	// 6. Heavy capex feeding growth.
	if snap.OperatingRevenue > 0 {
		capexToRevenue := snap.CapitalExpenditure / snap.OperatingRevenue
		if capexToRevenue > 0.15 && snap.RevenueGrowth > 0.10 {
			return true, fmt.Sprintf("high capex intensity (%.1f%% of revenue) with %.1f%% revenue growth", capexToRevenue*100, snap.RevenueGrowth*100)
		}
	}

	// 7. Revenue outrunning earnings: margins sacrificed for expansion.
	if snap.RevenueGrowth > 0.15 {
		if snap.EarningsGrowth < 0 || (snap.EarningsGrowth > 0 && snap.EarningsGrowth < snap.RevenueGrowth*0.5) {
			return true, fmt.Sprintf("revenue growth %.1f%% with lagging earnings growth %.1f%%", snap.RevenueGrowth*100, snap.EarningsGrowth*100)
		}
	}

	return false, ""
}
