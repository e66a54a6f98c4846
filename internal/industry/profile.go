package industry

import "fmt"

// OwnerEarningsParams are the owner-earnings model parameters for one industry.
type OwnerEarningsParams struct {
	RequiredReturn        float64 `json:"required_return"`
	MarginOfSafety        float64 `json:"margin_of_safety"`
	TerminalGrowthFactor  float64 `json:"terminal_growth_factor"`
	TerminalGrowthCap     float64 `json:"terminal_growth_cap"`
	UseMaintenanceCapex   bool    `json:"use_maintenance_capex"`
	MaintenanceCapexRatio float64 `json:"maintenance_capex_ratio"`
	UseDecliningGrowth    bool    `json:"use_declining_growth"`
}

// DcfParams are the DCF model parameters for one industry.
type DcfParams struct {
	DiscountRate         float64 `json:"discount_rate"`
	TerminalGrowthFactor float64 `json:"terminal_growth_factor"`
	TerminalGrowthCap    float64 `json:"terminal_growth_cap"`
}

// Profile bundles every per-industry valuation parameter.
type Profile struct {
	Code          Code                `json:"code"`
	Description   string              `json:"description"`
	Beta          float64             `json:"beta"`
	OwnerEarnings OwnerEarningsParams `json:"owner_earnings"`
	Dcf           DcfParams           `json:"dcf"`

	// PSRatio is the industry default price-to-sales multiple used when
	// the company's actual ratio is out of the acceptance window.
	PSRatio float64 `json:"ps_ratio"`

	// MaintenanceCapexStdRatio is the industry-standard maintenance
	// share of total capex, blended with the historical estimate.
	MaintenanceCapexStdRatio float64 `json:"maintenance_capex_std_ratio"`

	// Future-profitability assumptions for unprofitable companies.
	YearsToProfitability int     `json:"years_to_profitability"`
	TargetNetMargin      float64 `json:"target_net_margin"`
}

// growthIndustries are the sectors treated as growth-friendly by the
// company classifier.
var growthIndustries = map[Code]bool{
	Technology: true,
	Healthcare: true,
	Services:   true,
}

// IsGrowthIndustry reports whether the code belongs to a growth sector.
func IsGrowthIndustry(code Code) bool {
	return growthIndustries[code]
}

// DefaultProfiles returns the built-in per-industry parameter table.
// Capital-intensive, stable-cash-flow sectors carry lower discount rates
// and higher terminal caps; cyclical or leveraged sectors carry higher
// required returns and larger safety margins.
func DefaultProfiles() map[Code]Profile {
	return map[Code]Profile{
		Default: {
			Code:        Default,
			Description: "综合/其他行业",
			Beta:        1.0,
			OwnerEarnings: OwnerEarningsParams{
				RequiredReturn:        0.10,
				MarginOfSafety:        0.15,
				TerminalGrowthFactor:  0.4,
				TerminalGrowthCap:     0.03,
				UseMaintenanceCapex:   false,
				MaintenanceCapexRatio: 0.5,
				UseDecliningGrowth:    true,
			},
			Dcf:                      DcfParams{DiscountRate: 0.10, TerminalGrowthFactor: 0.4, TerminalGrowthCap: 0.03},
			PSRatio:                  2.5,
			MaintenanceCapexStdRatio: 0.5,
			YearsToProfitability:     3,
			TargetNetMargin:          0.10,
		},
		Utilities: {
			Code:        Utilities,
			Description: "公用事业（电力/水务/燃气）",
			Beta:        0.6,
			OwnerEarnings: OwnerEarningsParams{
				RequiredReturn:        0.085,
				MarginOfSafety:        0.12,
				TerminalGrowthFactor:  0.6,
				TerminalGrowthCap:     0.04,
				UseMaintenanceCapex:   true,
				MaintenanceCapexRatio: 0.4,
				UseDecliningGrowth:    false,
			},
			Dcf:                      DcfParams{DiscountRate: 0.08, TerminalGrowthFactor: 0.6, TerminalGrowthCap: 0.04},
			PSRatio:                  1.2,
			MaintenanceCapexStdRatio: 0.7,
			YearsToProfitability:     3,
			TargetNetMargin:          0.10,
		},
		HeavyIndustry: {
			Code:        HeavyIndustry,
			Description: "重工业（钢铁/化工/有色）",
			Beta:        0.9,
			OwnerEarnings: OwnerEarningsParams{
				RequiredReturn:        0.13,
				MarginOfSafety:        0.25,
				TerminalGrowthFactor:  0.3,
				TerminalGrowthCap:     0.02,
				UseMaintenanceCapex:   true,
				MaintenanceCapexRatio: 0.5,
				UseDecliningGrowth:    true,
			},
			Dcf:                      DcfParams{DiscountRate: 0.11, TerminalGrowthFactor: 0.3, TerminalGrowthCap: 0.02},
			PSRatio:                  1.2,
			MaintenanceCapexStdRatio: 0.6,
			YearsToProfitability:     3,
			TargetNetMargin:          0.10,
		},
		Technology: {
			Code:        Technology,
			Description: "科技行业（软件/互联网/电子）",
			Beta:        1.3,
			OwnerEarnings: OwnerEarningsParams{
				RequiredReturn:        0.15,
				MarginOfSafety:        0.20,
				TerminalGrowthFactor:  0.5,
				TerminalGrowthCap:     0.05,
				UseMaintenanceCapex:   false,
				MaintenanceCapexRatio: 0.3,
				UseDecliningGrowth:    false,
			},
			Dcf:                      DcfParams{DiscountRate: 0.12, TerminalGrowthFactor: 0.5, TerminalGrowthCap: 0.05},
			PSRatio:                  6.5,
			MaintenanceCapexStdRatio: 0.3,
			YearsToProfitability:     2,
			TargetNetMargin:          0.15,
		},
		Finance: {
			Code:        Finance,
			Description: "金融行业（银行/证券/保险）",
			Beta:        0.8,
			OwnerEarnings: OwnerEarningsParams{
				RequiredReturn:        0.11,
				MarginOfSafety:        0.20,
				TerminalGrowthFactor:  0.4,
				TerminalGrowthCap:     0.03,
				UseMaintenanceCapex:   false,
				MaintenanceCapexRatio: 0.2,
				UseDecliningGrowth:    true,
			},
			Dcf:                      DcfParams{DiscountRate: 0.09, TerminalGrowthFactor: 0.4, TerminalGrowthCap: 0.03},
			PSRatio:                  1.5,
			MaintenanceCapexStdRatio: 0.4,
			YearsToProfitability:     3,
			TargetNetMargin:          0.10,
		},
		Consumer: {
			Code:        Consumer,
			Description: "消费行业（食品/零售/家电）",
			Beta:        0.9,
			OwnerEarnings: OwnerEarningsParams{
				RequiredReturn:        0.11,
				MarginOfSafety:        0.18,
				TerminalGrowthFactor:  0.5,
				TerminalGrowthCap:     0.04,
				UseMaintenanceCapex:   false,
				MaintenanceCapexRatio: 0.4,
				UseDecliningGrowth:    false,
			},
			Dcf:                      DcfParams{DiscountRate: 0.09, TerminalGrowthFactor: 0.5, TerminalGrowthCap: 0.04},
			PSRatio:                  2.5,
			MaintenanceCapexStdRatio: 0.5,
			YearsToProfitability:     3,
			TargetNetMargin:          0.10,
		},
		Healthcare: {
			Code:        Healthcare,
			Description: "医药健康（医药/医疗器械）",
			Beta:        1.0,
			OwnerEarnings: OwnerEarningsParams{
				RequiredReturn:        0.13,
				MarginOfSafety:        0.20,
				TerminalGrowthFactor:  0.5,
				TerminalGrowthCap:     0.05,
				UseMaintenanceCapex:   false,
				MaintenanceCapexRatio: 0.3,
				UseDecliningGrowth:    false,
			},
			Dcf:                      DcfParams{DiscountRate: 0.11, TerminalGrowthFactor: 0.5, TerminalGrowthCap: 0.05},
			PSRatio:                  5.0,
			MaintenanceCapexStdRatio: 0.4,
			YearsToProfitability:     4,
			TargetNetMargin:          0.20,
		},
		RealEstate: {
			Code:        RealEstate,
			Description: "房地产（地产/建筑）",
			Beta:        1.1,
			OwnerEarnings: OwnerEarningsParams{
				RequiredReturn:        0.14,
				MarginOfSafety:        0.30,
				TerminalGrowthFactor:  0.3,
				TerminalGrowthCap:     0.02,
				UseMaintenanceCapex:   false,
				MaintenanceCapexRatio: 0.3,
				UseDecliningGrowth:    true,
			},
			Dcf:                      DcfParams{DiscountRate: 0.12, TerminalGrowthFactor: 0.3, TerminalGrowthCap: 0.02},
			PSRatio:                  1.5,
			MaintenanceCapexStdRatio: 0.5,
			YearsToProfitability:     3,
			TargetNetMargin:          0.10,
		},
		Manufacturing: {
			Code:        Manufacturing,
			Description: "制造业（机械/汽车/电气）",
			Beta:        1.0,
			OwnerEarnings: OwnerEarningsParams{
				RequiredReturn:        0.12,
				MarginOfSafety:        0.22,
				TerminalGrowthFactor:  0.4,
				TerminalGrowthCap:     0.03,
				UseMaintenanceCapex:   true,
				MaintenanceCapexRatio: 0.5,
				UseDecliningGrowth:    true,
			},
			Dcf:                      DcfParams{DiscountRate: 0.10, TerminalGrowthFactor: 0.4, TerminalGrowthCap: 0.03},
			PSRatio:                  2.0,
			MaintenanceCapexStdRatio: 0.6,
			YearsToProfitability:     3,
			TargetNetMargin:          0.10,
		},
		Services: {
			Code:        Services,
			Description: "服务业（传媒/教育/旅游）",
			Beta:        1.0,
			OwnerEarnings: OwnerEarningsParams{
				RequiredReturn:        0.13,
				MarginOfSafety:        0.20,
				TerminalGrowthFactor:  0.4,
				TerminalGrowthCap:     0.03,
				UseMaintenanceCapex:   false,
				MaintenanceCapexRatio: 0.3,
				UseDecliningGrowth:    false,
			},
			Dcf:                      DcfParams{DiscountRate: 0.11, TerminalGrowthFactor: 0.4, TerminalGrowthCap: 0.03},
			PSRatio:                  3.5,
			MaintenanceCapexStdRatio: 0.4,
			YearsToProfitability:     3,
			TargetNetMargin:          0.10,
		},
	}
}

// Resolver looks up the parameter profile for an industry code.
// The profile table is injected at construction and never mutated.
type Resolver struct {
	profiles map[Code]Profile
}

// NewResolver validates the profile table and builds a resolver.
// Every profile must keep its terminal growth cap strictly below both
// the required return and the discount rate; a table violating this
// would let a Gordon perpetuity blow up downstream.
func NewResolver(profiles map[Code]Profile) (*Resolver, error) {
	if _, ok := profiles[Default]; !ok {
		return nil, fmt.Errorf("profile table missing %q entry", Default)
	}

	for code, p := range profiles {
		if p.OwnerEarnings.TerminalGrowthCap >= p.OwnerEarnings.RequiredReturn {
			return nil, fmt.Errorf("industry %s: terminal growth cap %.3f >= required return %.3f",
				code, p.OwnerEarnings.TerminalGrowthCap, p.OwnerEarnings.RequiredReturn)
		}
		if p.Dcf.TerminalGrowthCap >= p.Dcf.DiscountRate {
			return nil, fmt.Errorf("industry %s: terminal growth cap %.3f >= discount rate %.3f",
				code, p.Dcf.TerminalGrowthCap, p.Dcf.DiscountRate)
		}
	}

	return &Resolver{profiles: profiles}, nil
}

// NewDefaultResolver builds a resolver over the built-in table.
func NewDefaultResolver() *Resolver {
	r, err := NewResolver(DefaultProfiles())
	if err != nil {
		// The built-in table is static; a violation is a programming error.
		panic(err)
	}
	return r
}

// Resolve returns the profile for the code, falling back to Default.
func (r *Resolver) Resolve(code Code) Profile {
	if p, ok := r.profiles[code]; ok {
		return p
	}
	return r.profiles[Default]
}
