package validate

import (
	"math"
	"testing"

	"dpr_engine/pkg/core/calc"
)

func cleanSnapshot() calc.FinancialSnapshot {
	return calc.FinancialSnapshot{
		FixedAssets:    calc.FixedAssets{LandAndBuilding: 500000, Machinery: 300000, Furniture: 50000},
		WorkingCapital: calc.WorkingCapital{RawMaterial: 20000, Salaries: 30000, Utilities: 5000},
		Revenue:        calc.Revenue{MonthlyTarget: 100000, UnitPrice: 500, UnitsPerMonth: 200},
		Funding:        calc.Funding{OwnContribution: 210000, LoanRequired: 700000},
		Parameters:     &calc.OperatingParameters{WorkingDays: 300, Shifts: 1, CapacityUtil: 45, InterestRate: 9.5},
	}
}

func findIssue(issues []Issue, field string) *Issue {
	for i := range issues {
		if issues[i].Field == field {
			return &issues[i]
		}
	}
	return nil
}

func TestSnapshot_Clean(t *testing.T) {
	if issues := Snapshot(cleanSnapshot()); len(issues) != 0 {
		t.Errorf("expected no issues, got %+v", issues)
	}
}

func TestSnapshot_NegativeAmount(t *testing.T) {
	s := cleanSnapshot()
	s.FixedAssets.Machinery = -1
	issues := Snapshot(s)

	issue := findIssue(issues, "fixedAssets.machinery")
	if issue == nil {
		t.Fatalf("expected machinery issue, got %+v", issues)
	}
	if issue.Severity != SeverityError {
		t.Errorf("expected ERROR, got %s", issue.Severity)
	}
	if !HasErrors(issues) {
		t.Error("HasErrors should be true")
	}
}

func TestSnapshot_NonFinite(t *testing.T) {
	s := cleanSnapshot()
	s.Revenue.UnitPrice = math.NaN()
	if findIssue(Snapshot(s), "revenue.unitPrice") == nil {
		t.Error("expected issue for NaN unit price")
	}
}

func TestSnapshot_Parameters(t *testing.T) {
	s := cleanSnapshot()
	s.Parameters.CapacityUtil = 120
	s.Parameters.Shifts = 4
	s.Parameters.WorkingDays = 400
	issues := Snapshot(s)

	for _, field := range []string{"parameters.capacityUtil", "parameters.shifts", "parameters.workingDays"} {
		if findIssue(issues, field) == nil {
			t.Errorf("expected issue for %s", field)
		}
	}
}

func TestSnapshot_DecimalInterestWarning(t *testing.T) {
	s := cleanSnapshot()
	s.Parameters.InterestRate = 0.095
	issues := Snapshot(s)

	issue := findIssue(issues, "parameters.interestRate")
	if issue == nil || issue.Severity != SeverityWarning {
		t.Fatalf("expected interest warning, got %+v", issues)
	}
	if HasErrors(issues) {
		t.Error("a warning must not count as an error")
	}
}

func TestSnapshot_RevenueMismatch(t *testing.T) {
	s := cleanSnapshot()
	s.Revenue.UnitsPerMonth = 100
	if findIssue(Snapshot(s), "revenue.monthlyTarget") == nil {
		t.Error("expected monthly target warning")
	}
}

func TestMeansOfFinance(t *testing.T) {
	s := cleanSnapshot()
	// 210000 + 700000 == 910000
	if issues := MeansOfFinance(s, 910000, 0.05); len(issues) != 0 {
		t.Errorf("expected balanced funding, got %+v", issues)
	}

	s.Funding.LoanRequired = 400000
	issues := MeansOfFinance(s, 910000, 0.05)
	if len(issues) != 1 || issues[0].Severity != SeverityWarning {
		t.Errorf("expected one funding warning, got %+v", issues)
	}

	if issues := MeansOfFinance(s, 0, 0.05); issues != nil {
		t.Errorf("zero project cost should skip the check, got %+v", issues)
	}
}
