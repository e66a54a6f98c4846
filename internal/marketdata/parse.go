package marketdata

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FinancialReport holds the line items parsed off the report page.
// Currency values are absolute yuan; history slices are oldest first.
type FinancialReport struct {
	Ticker string `json:"ticker"`

	NetIncome          float64 `json:"net_income"`
	OperatingRevenue   float64 `json:"operating_revenue"`
	OperatingProfit    float64 `json:"operating_profit"`
	Depreciation       float64 `json:"depreciation"`
	CapitalExpenditure float64 `json:"capital_expenditure"`
	OperatingCashFlow  float64 `json:"operating_cash_flow"`
	TotalDebt          float64 `json:"total_debt"`
	CashAndEquivalents float64 `json:"cash_and_equivalents"`
	WorkingCapital     float64 `json:"working_capital"`
	PrevWorkingCapital float64 `json:"prev_working_capital"`

	RevenueGrowth  float64 `json:"revenue_growth"`
	EarningsGrowth float64 `json:"earnings_growth"`
	NetMargin      float64 `json:"net_margin"`

	HistoricalDepreciation []float64 `json:"historical_depreciation"`
	HistoricalCapex        []float64 `json:"historical_capex"`
}

// Row labels on the report page. The source keeps these stable across
// A-share listings.
const (
	rowNetIncome        = "净利润"
	rowRevenue          = "营业总收入"
	rowOperatingProfit  = "营业利润"
	rowDepreciation     = "固定资产折旧"
	rowCapex            = "购建固定资产支出"
	rowOperatingCF      = "经营活动现金流量净额"
	rowTotalDebt        = "有息负债合计"
	rowCash             = "货币资金"
	rowCurrentAssets    = "流动资产合计"
	rowCurrentLiability = "流动负债合计"
	rowRevenueGrowth    = "营业总收入同比增长"
	rowEarningsGrowth   = "净利润同比增长"
	rowNetMargin        = "销售净利率"
)

// parseFinancialHTML extracts report rows from the page's indicator table.
// Columns run newest to oldest; the first value column is the latest
// period. Missing rows leave their fields at zero.
func parseFinancialHTML(html string) (*FinancialReport, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse HTML failed: %w", err)
	}

	table := doc.Find("table.report-table")
	if table.Length() == 0 {
		return nil, fmt.Errorf("report table not found")
	}

	// label -> value columns, newest first
	rows := make(map[string][]string)
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}
		label := strings.TrimSpace(cells.First().Text())
		if label == "" {
			return
		}
		var values []string
		cells.Slice(1, cells.Length()).Each(func(_ int, td *goquery.Selection) {
			values = append(values, strings.TrimSpace(td.Text()))
		})
		rows[label] = values
	})

	report := &FinancialReport{
		NetIncome:          latestAmount(rows, rowNetIncome),
		OperatingRevenue:   latestAmount(rows, rowRevenue),
		OperatingProfit:    latestAmount(rows, rowOperatingProfit),
		Depreciation:       latestAmount(rows, rowDepreciation),
		CapitalExpenditure: latestAmount(rows, rowCapex),
		OperatingCashFlow:  latestAmount(rows, rowOperatingCF),
		TotalDebt:          latestAmount(rows, rowTotalDebt),
		CashAndEquivalents: latestAmount(rows, rowCash),
		RevenueGrowth:      latestPercent(rows, rowRevenueGrowth),
		EarningsGrowth:     latestPercent(rows, rowEarningsGrowth),
		NetMargin:          latestPercent(rows, rowNetMargin),
	}

	// Working capital needs two consecutive periods.
	assets := amountHistory(rows, rowCurrentAssets)
	liabilities := amountHistory(rows, rowCurrentLiability)
	if len(assets) >= 1 && len(liabilities) >= 1 {
		report.WorkingCapital = assets[len(assets)-1] - liabilities[len(liabilities)-1]
	}
	if len(assets) >= 2 && len(liabilities) >= 2 {
		report.PrevWorkingCapital = assets[len(assets)-2] - liabilities[len(liabilities)-2]
	}

	report.HistoricalDepreciation = amountHistory(rows, rowDepreciation)
	report.HistoricalCapex = amountHistory(rows, rowCapex)

	return report, nil
}

// latestAmount returns the newest value of a row in yuan, zero when absent.
func latestAmount(rows map[string][]string, label string) float64 {
	values := rows[label]
	if len(values) == 0 {
		return 0
	}
	return parseAmount(values[0])
}

// latestPercent returns the newest value of a percentage row as a decimal.
func latestPercent(rows map[string][]string, label string) float64 {
	values := rows[label]
	if len(values) == 0 {
		return 0
	}
	return parsePercent(values[0])
}

// amountHistory returns all periods of a row in yuan, oldest first.
func amountHistory(rows map[string][]string, label string) []float64 {
	values := rows[label]
	if len(values) == 0 {
		return nil
	}
	out := make([]float64, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		out = append(out, parseAmount(values[i]))
	}
	return out
}

// parseAmount converts a display value like "1,234.56亿" or "-3.2万" to
// absolute yuan. Placeholders ("--", "-") parse to zero.
func parseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "--" || s == "-" {
		return 0
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "亿"):
		multiplier = 1e8
		s = strings.TrimSuffix(s, "亿")
	case strings.HasSuffix(s, "万"):
		multiplier = 1e4
		s = strings.TrimSuffix(s, "万")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v * multiplier
}

// parsePercent converts "12.5%" to 0.125. Placeholders parse to zero.
func parsePercent(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	if s == "" || s == "--" || s == "-" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v / 100.0
}
