package calc

import (
	"dpr_engine/pkg/core/assumption"
)

// =============================================================================
// BANKING RATIOS
// The single-point metrics a loan officer expects on the DPR summary page.
// =============================================================================

// CalculateBankingRatios computes project cost, DSCR, BEP and ROI using the
// default assumptions.
func CalculateBankingRatios(s FinancialSnapshot) BankingRatios {
	return CalculateBankingRatiosWith(s, assumption.Default())
}

// CalculateBankingRatiosWith computes the ratios under explicit assumptions.
//
// FORMULAS:
//
//	totalProjectCost = Σ fixed assets + rawMaterial × workingCapitalMonths
//	annualNetProfit  = monthlyTarget × 12 × netProfitMargin
//	DSCR             = annualNetProfit / (loanRequired / ratioRepaymentYears)
//	BEP (units)      = salaries × 12 / (unitPrice × (1 − variableCostRatio))
//	ROI (%)          = annualNetProfit / totalProjectCost × 100
//
// Zero denominators yield undefined metrics, never NaN or Inf.
func CalculateBankingRatiosWith(s FinancialSnapshot, a assumption.ProjectionAssumptions) BankingRatios {
	totalProjectCost := TotalProjectCost(s, a)
	annualRevenue := s.Revenue.MonthlyTarget * 12
	annualNetProfit := annualRevenue * a.NetProfitMargin

	return BankingRatios{
		TotalProjectCost: Round2(totalProjectCost),
		DSCR:             singlePointDSCR(annualNetProfit, s.Funding.LoanRequired, a.RatioRepaymentYears),
		BEP:              BreakEvenUnits(s, a),
		ROI:              returnOnInvestment(annualNetProfit, totalProjectCost),
		AnnualRevenue:    Round2(annualRevenue),
		AnnualNetProfit:  Round2(annualNetProfit),
	}
}

// TotalProjectCost is the fixed-asset total plus the working-capital cycle of raw material
func TotalProjectCost(s FinancialSnapshot, a assumption.ProjectionAssumptions) float64 {
	return s.FixedAssets.Total() + s.WorkingCapital.RawMaterial*a.WorkingCapitalMonths
}

// BreakEvenUnits is the annual unit volume at which contribution covers salaries
func BreakEvenUnits(s FinancialSnapshot, a assumption.ProjectionAssumptions) Metric {
	contribution := s.Revenue.UnitPrice - s.Revenue.UnitPrice*a.VariableCostRatio
	if contribution <= 0 {
		return Undefined(ReasonBelowVariableCost)
	}
	return Defined(s.WorkingCapital.Salaries * 12 / contribution)
}

func singlePointDSCR(annualNetProfit, loan, repaymentYears float64) Metric {
	if loan <= 0 {
		return Undefined(ReasonNoLoan)
	}
	if repaymentYears <= 0 {
		return Undefined(ReasonNoDebtService)
	}
	return Defined(annualNetProfit / (loan / repaymentYears))
}

func returnOnInvestment(annualNetProfit, totalProjectCost float64) Metric {
	if totalProjectCost <= 0 {
		return Undefined(ReasonZeroProjectCost)
	}
	return Defined(annualNetProfit / totalProjectCost * 100)
}
