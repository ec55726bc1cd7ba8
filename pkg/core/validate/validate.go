// Package validate checks DPR input for values the calculators would accept
// but a bank would reject. It reports issues instead of failing, so the report
// builder can highlight fields while the user is still typing.
package validate

import (
	"fmt"
	"math"

	"dpr_engine/pkg/core/calc"
)

// Severity of a validation issue
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Issue is one finding about a snapshot field
type Issue struct {
	Field    string   `json:"field"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// HasErrors reports whether any issue is an error
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// =============================================================================
// SNAPSHOT VALIDATION
// =============================================================================

// Snapshot checks amounts and operating parameters
func Snapshot(s calc.FinancialSnapshot) []Issue {
	var issues []Issue

	amounts := []struct {
		field string
		value float64
	}{
		{"fixedAssets.landAndBuilding", s.FixedAssets.LandAndBuilding},
		{"fixedAssets.machinery", s.FixedAssets.Machinery},
		{"fixedAssets.furniture", s.FixedAssets.Furniture},
		{"fixedAssets.otherAssets", s.FixedAssets.OtherAssets},
		{"workingCapital.rawMaterial", s.WorkingCapital.RawMaterial},
		{"workingCapital.salaries", s.WorkingCapital.Salaries},
		{"workingCapital.utilities", s.WorkingCapital.Utilities},
		{"workingCapital.marketing", s.WorkingCapital.Marketing},
		{"workingCapital.contingency", s.WorkingCapital.Contingency},
		{"revenue.monthlyTarget", s.Revenue.MonthlyTarget},
		{"revenue.unitPrice", s.Revenue.UnitPrice},
		{"revenue.unitsPerMonth", s.Revenue.UnitsPerMonth},
		{"funding.ownContribution", s.Funding.OwnContribution},
		{"funding.loanRequired", s.Funding.LoanRequired},
		{"funding.subsidyEligible", s.Funding.SubsidyEligible},
	}
	for _, a := range amounts {
		if math.IsNaN(a.value) || math.IsInf(a.value, 0) {
			issues = append(issues, errorf(a.field, "must be a finite number"))
		} else if a.value < 0 {
			issues = append(issues, errorf(a.field, "must not be negative, got %.2f", a.value))
		}
	}

	if p := s.Parameters; p != nil {
		if p.CapacityUtil < 0 || p.CapacityUtil > 100 {
			issues = append(issues, errorf("parameters.capacityUtil", "must be between 0 and 100, got %.2f", p.CapacityUtil))
		}
		if p.InterestRate < 0 {
			issues = append(issues, errorf("parameters.interestRate", "must not be negative, got %.2f", p.InterestRate))
		} else if p.InterestRate > 0 && p.InterestRate < 1 {
			issues = append(issues, warnf("parameters.interestRate", "is an annual percent; %.2f looks like a decimal rate", p.InterestRate))
		}
		if p.WorkingDays < 0 || p.WorkingDays > 366 {
			issues = append(issues, errorf("parameters.workingDays", "must be between 0 and 366, got %.0f", p.WorkingDays))
		}
		if p.Shifts < 0 || p.Shifts > 3 {
			issues = append(issues, errorf("parameters.shifts", "must be between 0 and 3, got %.0f", p.Shifts))
		}
	}

	if s.Revenue.UnitPrice > 0 && s.Revenue.UnitsPerMonth > 0 && s.Revenue.MonthlyTarget > 0 {
		implied := s.Revenue.UnitPrice * s.Revenue.UnitsPerMonth
		if !within(implied, s.Revenue.MonthlyTarget, 0.10) {
			issues = append(issues, warnf("revenue.monthlyTarget",
				"differs from unitPrice × unitsPerMonth (%.0f) by more than 10%%", implied))
		}
	}

	return issues
}

// MeansOfFinance warns when own contribution plus loan does not cover the
// project cost within tolerance (a share, 0.05 = 5%).
func MeansOfFinance(s calc.FinancialSnapshot, totalProjectCost, tolerance float64) []Issue {
	funded := s.Funding.OwnContribution + s.Funding.LoanRequired
	if totalProjectCost <= 0 || within(funded, totalProjectCost, tolerance) {
		return nil
	}
	return []Issue{warnf("funding",
		"own contribution + loan (%.0f) does not match total project cost (%.0f)", funded, totalProjectCost)}
}

func within(value, target, tolerance float64) bool {
	if target == 0 {
		return value == 0
	}
	return math.Abs(value-target)/math.Abs(target) <= tolerance
}

func errorf(field, format string, args ...interface{}) Issue {
	return Issue{Field: field, Severity: SeverityError, Message: fmt.Sprintf(format, args...)}
}

func warnf(field, format string, args ...interface{}) Issue {
	return Issue{Field: field, Severity: SeverityWarning, Message: fmt.Sprintf(format, args...)}
}
