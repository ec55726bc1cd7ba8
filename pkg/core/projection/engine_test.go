package projection

import (
	"errors"
	"testing"

	"dpr_engine/pkg/core/assumption"
	"dpr_engine/pkg/core/calc"
)

func sampleSnapshot() calc.FinancialSnapshot {
	return calc.FinancialSnapshot{
		FixedAssets: calc.FixedAssets{
			LandAndBuilding: 500000,
			Machinery:       300000,
			Furniture:       50000,
		},
		WorkingCapital: calc.WorkingCapital{
			RawMaterial: 20000,
			Salaries:    30000,
			Utilities:   5000,
		},
		Revenue: calc.Revenue{MonthlyTarget: 100000, UnitPrice: 500},
		Funding: calc.Funding{OwnContribution: 210000, LoanRequired: 700000},
	}
}

func TestGenerateProjection_LengthAndYears(t *testing.T) {
	for _, n := range []int{1, 3, 5, 10, 15} {
		rows, err := GenerateProjection(sampleSnapshot(), n)
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", n, err)
		}
		if len(rows) != n {
			t.Fatalf("n=%d: expected %d rows, got %d", n, n, len(rows))
		}
		for i, row := range rows {
			if row.Year != i+1 {
				t.Errorf("n=%d: row %d has year %d", n, i, row.Year)
			}
		}
	}
}

func TestGenerateProjection_InvalidYears(t *testing.T) {
	for _, n := range []int{0, -3} {
		if _, err := GenerateProjection(sampleSnapshot(), n); !errors.Is(err, ErrInvalidYearsCount) {
			t.Errorf("n=%d: expected ErrInvalidYearsCount, got %v", n, err)
		}
	}
}

func TestGenerateProjection_InvalidAssumptions(t *testing.T) {
	a := assumption.Default()
	a.RepaymentInstallments = 0
	_, err := NewProjectionEngine(a).Generate(sampleSnapshot(), 3)
	if !errors.Is(err, assumption.ErrInvalidAssumption) {
		t.Errorf("expected ErrInvalidAssumption, got %v", err)
	}
}

func TestGenerateProjection_SalesScenario(t *testing.T) {
	rows, _ := GenerateProjection(sampleSnapshot(), 2)
	if rows[0].Sales != 1200000 {
		t.Errorf("expected year-1 sales 1200000, got %.0f", rows[0].Sales)
	}
	if rows[1].Sales != 1380000 {
		t.Errorf("expected year-2 sales 1380000, got %.0f", rows[1].Sales)
	}
}

func TestGenerateProjection_SalesStrictlyIncreasing(t *testing.T) {
	rows, _ := GenerateProjection(sampleSnapshot(), 10)
	for i := 1; i < len(rows); i++ {
		if rows[i].Sales <= rows[i-1].Sales {
			t.Errorf("sales not increasing at year %d: %.0f <= %.0f", rows[i].Year, rows[i].Sales, rows[i-1].Sales)
		}
	}
}

func TestProjectYear_FirstYear(t *testing.T) {
	row := NewProjectionEngine(assumption.Default()).ProjectYear(sampleSnapshot(), 1)

	expect := map[string][2]float64{
		"rawMaterials": {540000, row.RawMaterials},
		"salaries":     {360000, row.Salaries},
		"utilities":    {60000, row.Utilities},
		"ebita":        {240000, row.EBITA},
		"interest":     {66500, row.Interest},
		"depreciation": {30000, row.Depreciation},
		"pbt":          {143500, row.PBT},
		"tax":          {35875, row.Tax},
		"pat":          {107625, row.PAT},
	}
	for name, v := range expect {
		if v[0] != v[1] {
			t.Errorf("%s: expected %.0f, got %.0f", name, v[0], v[1])
		}
	}

	if row.CurrentRatio != 1.38 {
		t.Errorf("expected current ratio 1.38, got %.2f", row.CurrentRatio)
	}
	if row.DSCRTrend != 1.7 {
		t.Errorf("expected DSCR trend 1.70, got %.2f", row.DSCRTrend)
	}
	// (107625 + 30000 + 66500) / (66500 + 70000) = 1.4954
	if !row.DSCR.Defined || row.DSCR.Value != 1.5 {
		t.Errorf("expected DSCR 1.50, got %+v", row.DSCR)
	}
}

func TestProjectYear_SecondYearGrowth(t *testing.T) {
	row := NewProjectionEngine(assumption.Default()).ProjectYear(sampleSnapshot(), 2)
	if row.Salaries != 388800 {
		t.Errorf("expected 8%% salary increment to 388800, got %.0f", row.Salaries)
	}
	if row.Interest != 59850 {
		t.Errorf("expected declining interest 59850, got %.0f", row.Interest)
	}
}

func TestProjectYear_InterestClampedAfterRepayment(t *testing.T) {
	rows, _ := GenerateProjection(sampleSnapshot(), 14)
	for _, row := range rows {
		if row.Interest < 0 {
			t.Errorf("year %d: negative interest %.0f", row.Year, row.Interest)
		}
	}
	if rows[10].Interest != 0 {
		t.Errorf("year 11: expected zero interest, got %.0f", rows[10].Interest)
	}
	if rows[12].DSCR.Defined || rows[12].DSCR.Reason != calc.ReasonNoDebtService {
		t.Errorf("year 13: expected NO_DEBT_SERVICE, got %+v", rows[12].DSCR)
	}
	if !rows[9].DSCR.Defined {
		t.Errorf("year 10: expected defined DSCR while the last installment is due, got %+v", rows[9].DSCR)
	}
}

func TestProjectYear_SnapshotInterestRate(t *testing.T) {
	s := sampleSnapshot()
	s.Parameters = &calc.OperatingParameters{InterestRate: 12}
	row := NewProjectionEngine(assumption.Default()).ProjectYear(s, 1)
	if row.Interest != 84000 {
		t.Errorf("expected interest at 12%% = 84000, got %.0f", row.Interest)
	}
}

func TestProjectYear_NoLoan(t *testing.T) {
	s := sampleSnapshot()
	s.Funding.LoanRequired = 0
	row := NewProjectionEngine(assumption.Default()).ProjectYear(s, 1)
	if row.Interest != 0 {
		t.Errorf("expected zero interest, got %.0f", row.Interest)
	}
	if row.DSCR.Defined || row.DSCR.Reason != calc.ReasonNoLoan {
		t.Errorf("expected NO_LOAN DSCR, got %+v", row.DSCR)
	}
}

func TestProjectYear_LossMakingNoTax(t *testing.T) {
	s := sampleSnapshot()
	s.Revenue.MonthlyTarget = 10000
	row := NewProjectionEngine(assumption.Default()).ProjectYear(s, 1)
	if row.PBT >= 0 {
		t.Fatalf("expected a loss, got PBT %.0f", row.PBT)
	}
	if row.Tax != 0 {
		t.Errorf("expected no tax on a loss, got %.0f", row.Tax)
	}
	if row.PAT != row.PBT {
		t.Errorf("expected PAT == PBT on a loss, got %.0f vs %.0f", row.PAT, row.PBT)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, _ := GenerateProjection(sampleSnapshot(), 5)
	b, _ := GenerateProjection(sampleSnapshot(), 5)
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("year %d differs between calls", i+1)
		}
	}
}
