// Package assumption defines the business-policy constants behind the DPR
// calculators as one explicit value object, so industries can override them
// without touching calculation code.
package assumption

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"dpr_engine/pkg/core/utils"
)

var ErrInvalidAssumption = errors.New("invalid projection assumption")

// =============================================================================
// PROJECTION ASSUMPTIONS
// =============================================================================

// ProjectionAssumptions holds every rate and heuristic the ratio and
// projection calculators apply. Rates are decimals (0.15 = 15%).
type ProjectionAssumptions struct {
	// Banking ratios
	WorkingCapitalMonths float64 `json:"workingCapitalMonths"` // months of raw material in project cost
	NetProfitMargin      float64 `json:"netProfitMargin"`      // first-pass margin on annual revenue
	RatioRepaymentYears  float64 `json:"ratioRepaymentYears"`  // tenure behind the single-point DSCR
	VariableCostRatio    float64 `json:"variableCostRatio"`    // share of unit price that is variable cost

	// Multi-year projection
	SalesGrowth           float64 `json:"salesGrowth"`
	RawMaterialRatio      float64 `json:"rawMaterialRatio"` // % of sales
	SalaryIncrement       float64 `json:"salaryIncrement"`
	InterestRate          float64 `json:"interestRate"` // fallback when the snapshot has none
	RepaymentInstallments int     `json:"repaymentInstallments"`
	DepreciationRate      float64 `json:"depreciationRate"` // on machinery value
	TaxRate               float64 `json:"taxRate"`

	// Illustrative trend lines (not derived from the snapshot)
	CurrentRatioBase float64 `json:"currentRatioBase"`
	CurrentRatioStep float64 `json:"currentRatioStep"`
	DSCRTrendBase    float64 `json:"dscrTrendBase"`
	DSCRTrendStep    float64 `json:"dscrTrendStep"`
}

// Default returns the standard first-pass assumptions
func Default() ProjectionAssumptions {
	return ProjectionAssumptions{
		WorkingCapitalMonths: 3,
		NetProfitMargin:      0.20,
		RatioRepaymentYears:  5,
		VariableCostRatio:    0.40,

		SalesGrowth:           0.15,
		RawMaterialRatio:      0.45,
		SalaryIncrement:       0.08,
		InterestRate:          0.095,
		RepaymentInstallments: 10,
		DepreciationRate:      0.10,
		TaxRate:               0.25,

		CurrentRatioBase: 1.33,
		CurrentRatioStep: 0.05,
		DSCRTrendBase:    1.5,
		DSCRTrendStep:    0.20,
	}
}

// Validate rejects assumption sets the calculators cannot use
func (a ProjectionAssumptions) Validate() error {
	shares := []struct {
		name string
		v    float64
	}{
		{"netProfitMargin", a.NetProfitMargin},
		{"variableCostRatio", a.VariableCostRatio},
		{"rawMaterialRatio", a.RawMaterialRatio},
		{"taxRate", a.TaxRate},
		{"depreciationRate", a.DepreciationRate},
	}
	for _, f := range shares {
		if f.v < 0 || f.v >= 1 {
			return fmt.Errorf("%w: %s must be in [0, 1), got %g", ErrInvalidAssumption, f.name, f.v)
		}
	}

	nonNegative := []struct {
		name string
		v    float64
	}{
		{"workingCapitalMonths", a.WorkingCapitalMonths},
		{"salesGrowth", a.SalesGrowth},
		{"salaryIncrement", a.SalaryIncrement},
		{"interestRate", a.InterestRate},
	}
	for _, f := range nonNegative {
		if f.v < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %g", ErrInvalidAssumption, f.name, f.v)
		}
	}

	if a.RatioRepaymentYears <= 0 {
		return fmt.Errorf("%w: ratioRepaymentYears must be positive", ErrInvalidAssumption)
	}
	if a.RepaymentInstallments <= 0 {
		return fmt.Errorf("%w: repaymentInstallments must be positive", ErrInvalidAssumption)
	}
	return nil
}

// InterestRateFor converts a snapshot's annual interest percent (9.5 = 9.5%)
// into a decimal rate, falling back to the assumption when it is unset.
func (a ProjectionAssumptions) InterestRateFor(annualPercent float64) float64 {
	if annualPercent > 0 {
		return annualPercent / 100
	}
	return a.InterestRate
}

// =============================================================================
// INDUSTRY PRESETS
// =============================================================================

// Industry names an industry benchmark preset
type Industry string

const (
	IndustryManufacturing  Industry = "manufacturing"
	IndustryTrading        Industry = "trading"
	IndustryServices       Industry = "services"
	IndustryFoodProcessing Industry = "food_processing"
)

// Preset returns assumptions tuned to an industry benchmark. Unknown or empty
// industries get the default set.
func Preset(industry string) ProjectionAssumptions {
	a := Default()
	switch Industry(strings.ToLower(strings.TrimSpace(industry))) {
	case IndustryManufacturing:
		a.RawMaterialRatio = 0.50
		a.VariableCostRatio = 0.45
	case IndustryTrading:
		a.RawMaterialRatio = 0.70
		a.VariableCostRatio = 0.75
		a.NetProfitMargin = 0.08
		a.SalesGrowth = 0.10
	case IndustryServices:
		a.RawMaterialRatio = 0.15
		a.VariableCostRatio = 0.25
		a.NetProfitMargin = 0.25
		a.DepreciationRate = 0.15
	case IndustryFoodProcessing:
		a.RawMaterialRatio = 0.55
		a.VariableCostRatio = 0.50
		a.NetProfitMargin = 0.15
	}
	return a
}

// =============================================================================
// OVERRIDES
// =============================================================================

// ParseOverrides applies a partial JSON or Hjson document over base.
// Fields absent from the document keep the base value.
func ParseOverrides(base ProjectionAssumptions, data []byte) (ProjectionAssumptions, error) {
	converted, err := utils.ParseHJSON(string(data))
	if err != nil {
		return base, fmt.Errorf("failed to parse assumption overrides: %w", err)
	}

	out := base
	if err := json.Unmarshal([]byte(converted), &out); err != nil {
		return base, fmt.Errorf("failed to apply assumption overrides: %w", err)
	}
	if err := out.Validate(); err != nil {
		return base, err
	}
	return out, nil
}

// LoadOverrides reads an overrides file and applies it over base
func LoadOverrides(base ProjectionAssumptions, path string) (ProjectionAssumptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("failed to read assumption overrides: %w", err)
	}
	return ParseOverrides(base, data)
}
