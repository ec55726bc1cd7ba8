// Package calc provides the deterministic banking-ratio calculations of a
// Detailed Project Report (DPR). Every function is a pure transformation of a
// caller-supplied FinancialSnapshot; nothing here performs I/O or keeps state.
package calc

// =============================================================================
// FINANCIAL SNAPSHOT
// Collected by the report builder through its multi-step form.
// =============================================================================

// FixedAssets are one-time capital items (INR)
type FixedAssets struct {
	LandAndBuilding float64 `json:"landAndBuilding"`
	Machinery       float64 `json:"machinery"`
	Furniture       float64 `json:"furniture"`
	OtherAssets     float64 `json:"otherAssets"`
}

// Total sums every fixed-asset line
func (f FixedAssets) Total() float64 {
	return f.LandAndBuilding + f.Machinery + f.Furniture + f.OtherAssets
}

// WorkingCapital lines are monthly amounts (INR / month)
type WorkingCapital struct {
	RawMaterial float64 `json:"rawMaterial"`
	Salaries    float64 `json:"salaries"`
	Utilities   float64 `json:"utilities"`
	Marketing   float64 `json:"marketing"`
	Contingency float64 `json:"contingency"`
}

// Revenue targets
type Revenue struct {
	MonthlyTarget float64 `json:"monthlyTarget"`
	UnitPrice     float64 `json:"unitPrice"`
	UnitsPerMonth float64 `json:"unitsPerMonth"`
}

// Funding is the proposed means of finance. OwnContribution + LoanRequired is
// expected to approximate the project cost; the calculators do not enforce it.
type Funding struct {
	OwnContribution float64 `json:"ownContribution"`
	LoanRequired    float64 `json:"loanRequired"`
	SubsidyEligible float64 `json:"subsidyEligible"`
}

// OperatingParameters are optional plant-level inputs
type OperatingParameters struct {
	WorkingDays  float64 `json:"workingDays"`
	Shifts       float64 `json:"shifts"`
	CapacityUtil float64 `json:"capacityUtil"` // 0-100
	InterestRate float64 `json:"interestRate"` // annual %, e.g. 9.5
}

// FinancialSnapshot is the single input to every calculator. It is passed by
// value and never mutated.
type FinancialSnapshot struct {
	FixedAssets    FixedAssets          `json:"fixedAssets"`
	WorkingCapital WorkingCapital       `json:"workingCapital"`
	Revenue        Revenue              `json:"revenue"`
	Funding        Funding              `json:"funding"`
	Parameters     *OperatingParameters `json:"parameters,omitempty"`
}

// AnnualInterestPercent returns parameters.interestRate, or 0 when unset
func (s FinancialSnapshot) AnnualInterestPercent() float64 {
	if s.Parameters == nil {
		return 0
	}
	return s.Parameters.InterestRate
}

// =============================================================================
// OUTPUT
// =============================================================================

// BankingRatios are the bankability metrics of a snapshot, rounded to 2 decimals
type BankingRatios struct {
	TotalProjectCost float64 `json:"totalProjectCost"`
	DSCR             Metric  `json:"dscr"`
	BEP              Metric  `json:"bep"` // break-even units per year
	ROI              Metric  `json:"roi"` // %

	AnnualRevenue   float64 `json:"annualRevenue"`
	AnnualNetProfit float64 `json:"annualNetProfit"`
}
