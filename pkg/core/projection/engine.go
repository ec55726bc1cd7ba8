// Package projection generates the multi-year profit and loss projection
// (CMA operating statement) of a DPR from a financial snapshot.
package projection

import (
	"errors"
	"fmt"
	"math"

	"dpr_engine/pkg/core/assumption"
	"dpr_engine/pkg/core/calc"
)

var ErrInvalidYearsCount = errors.New("years count must be at least 1")

// ProjectionEngine projects a snapshot forward under a fixed set of assumptions.
// It holds no mutable state and is safe for concurrent use.
type ProjectionEngine struct {
	Assumptions assumption.ProjectionAssumptions
}

// NewProjectionEngine creates an engine over the given assumptions
func NewProjectionEngine(a assumption.ProjectionAssumptions) *ProjectionEngine {
	return &ProjectionEngine{
		Assumptions: a,
	}
}

// GenerateProjection projects a snapshot with the default assumptions
func GenerateProjection(s calc.FinancialSnapshot, years int) ([]CMAProjectionRow, error) {
	return NewProjectionEngine(assumption.Default()).Generate(s, years)
}

// Generate returns exactly `years` rows, row i holding year i+1.
// There is no upper bound here; product tiers cap the horizon at the caller.
func (e *ProjectionEngine) Generate(s calc.FinancialSnapshot, years int) ([]CMAProjectionRow, error) {
	if years < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidYearsCount, years)
	}
	if err := e.Assumptions.Validate(); err != nil {
		return nil, err
	}

	rows := make([]CMAProjectionRow, 0, years)
	for y := 1; y <= years; y++ {
		rows = append(rows, e.ProjectYear(s, y))
	}
	return rows, nil
}

// ProjectYear computes a single projection year (1-indexed).
//
// FORMULAS (y = year, a = assumptions):
//
//	sales        = monthlyTarget × 12 × (1 + salesGrowth)^(y−1)
//	rawMaterials = sales × rawMaterialRatio
//	salaries     = monthly salaries × 12 × (1 + salaryIncrement)^(y−1)
//	interest     = loan × rate × max(0, 1 − (y−1)/installments)
//	ebita        = sales − rawMaterials − salaries − utilities × 12
//	pbt          = ebita − interest − machinery × depreciationRate
//	tax          = pbt × taxRate when pbt > 0, else 0
//	pat          = pbt − tax
//	dscr         = (pat + depreciation + interest) / (interest + loan / installments)
func (e *ProjectionEngine) ProjectYear(s calc.FinancialSnapshot, y int) CMAProjectionRow {
	a := e.Assumptions
	elapsed := float64(y - 1)

	sales := s.Revenue.MonthlyTarget * 12 * math.Pow(1+a.SalesGrowth, elapsed)
	rawMaterials := sales * a.RawMaterialRatio
	salaries := s.WorkingCapital.Salaries * 12 * math.Pow(1+a.SalaryIncrement, elapsed)
	utilities := s.WorkingCapital.Utilities * 12

	loan := s.Funding.LoanRequired
	rate := a.InterestRateFor(s.AnnualInterestPercent())
	installments := float64(a.RepaymentInstallments)

	// Interest runs on the outstanding balance; once every installment is
	// repaid there is nothing left to charge.
	outstanding := math.Max(0, 1-elapsed/installments)
	interest := loan * rate * outstanding

	depreciation := s.FixedAssets.Machinery * a.DepreciationRate

	ebita := sales - rawMaterials - salaries - utilities
	pbt := ebita - interest - depreciation
	tax := 0.0
	if pbt > 0 {
		tax = pbt * a.TaxRate
	}
	pat := pbt - tax

	principal := 0.0
	if float64(y) <= installments {
		principal = loan / installments
	}

	return CMAProjectionRow{
		Year:         y,
		Sales:        calc.RoundWhole(sales),
		RawMaterials: calc.RoundWhole(rawMaterials),
		Salaries:     calc.RoundWhole(salaries),
		Utilities:    calc.RoundWhole(utilities),
		EBITA:        calc.RoundWhole(ebita),
		Interest:     calc.RoundWhole(interest),
		Depreciation: calc.RoundWhole(depreciation),
		PBT:          calc.RoundWhole(pbt),
		Tax:          calc.RoundWhole(tax),
		PAT:          calc.RoundWhole(pat),
		CurrentRatio: calc.Round2(a.CurrentRatioBase + float64(y)*a.CurrentRatioStep),
		DSCR:         yearDSCR(loan, pat, depreciation, interest, principal),
		DSCRTrend:    calc.Round2(a.DSCRTrendBase + float64(y)*a.DSCRTrendStep),
	}
}

func yearDSCR(loan, pat, depreciation, interest, principal float64) calc.Metric {
	if loan <= 0 {
		return calc.Undefined(calc.ReasonNoLoan)
	}
	debtService := interest + principal
	if debtService <= 0 {
		return calc.Undefined(calc.ReasonNoDebtService)
	}
	return calc.Defined((pat + depreciation + interest) / debtService)
}
