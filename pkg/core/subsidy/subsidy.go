// Package subsidy computes scheme entitlements: PMEGP subsidy and own-contribution
// shares, MUDRA tier limits, and the resulting means of finance for a project.
package subsidy

import (
	"errors"
	"fmt"

	"dpr_engine/pkg/core/calc"
	"dpr_engine/pkg/core/scheme"
)

var (
	ErrLoanExceedsMudraLimit   = errors.New("loan exceeds the highest MUDRA tier limit")
	ErrProjectCostExceedsLimit = errors.New("project cost exceeds the scheme ceiling")
	ErrNegativeAmount          = errors.New("amount must not be negative")
)

// Result is the PMEGP entitlement for a promoter
type Result struct {
	Category               scheme.PromoterCategory `json:"category"`
	AreaType               scheme.AreaType         `json:"areaType"`
	SubsidyPercent         float64                 `json:"subsidyPercent"`
	OwnContributionPercent float64                 `json:"ownContributionPercent"`
}

// Calculator reads subsidy matrices from a knowledge base
type Calculator struct {
	KB *scheme.KnowledgeBase
}

// NewCalculator creates a calculator over kb; nil selects the built-in base
func NewCalculator(kb *scheme.KnowledgeBase) *Calculator {
	if kb == nil {
		kb = scheme.Default()
	}
	return &Calculator{KB: kb}
}

// CalculateSubsidy returns the PMEGP subsidy and own-contribution percentages
func (c *Calculator) CalculateSubsidy(category scheme.PromoterCategory, area scheme.AreaType) (Result, error) {
	if !category.Valid() {
		return Result{}, fmt.Errorf("%w: %q", scheme.ErrInvalidCategory, category)
	}
	if !area.Valid() {
		return Result{}, fmt.Errorf("%w: %q", scheme.ErrInvalidAreaType, area)
	}

	rules, err := c.KB.GetRules(scheme.PMEGP)
	if err != nil {
		return Result{}, err
	}
	subsidyPct, err := rules.SubsidyPercent.Lookup(area, category)
	if err != nil {
		return Result{}, err
	}
	ownPct, err := rules.OwnContributionPercent.Lookup(area, category)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Category:               category,
		AreaType:               area,
		SubsidyPercent:         subsidyPct,
		OwnContributionPercent: ownPct,
	}, nil
}

// CalculateSubsidy uses the built-in knowledge base
func CalculateSubsidy(category scheme.PromoterCategory, area scheme.AreaType) (Result, error) {
	return NewCalculator(nil).CalculateSubsidy(category, area)
}

// =============================================================================
// MEANS OF FINANCE
// =============================================================================

// Finance splits a project cost between promoter, bank and subsidy
type Finance struct {
	ProjectCost            float64 `json:"projectCost"`
	SubsidyPercent         float64 `json:"subsidyPercent"`
	OwnContributionPercent float64 `json:"ownContributionPercent"`
	OwnContribution        float64 `json:"ownContribution"`
	BankLoan               float64 `json:"bankLoan"`
	Subsidy                float64 `json:"subsidy"`
	NetLoanAfterSubsidy    float64 `json:"netLoanAfterSubsidy"`
}

// MeansOfFinance applies the PMEGP shares to a project cost.
// The subsidy is margin money adjusted against the bank loan, so the promoter
// brings the own contribution and the bank sanctions the remainder.
func (c *Calculator) MeansOfFinance(projectCost float64, category scheme.PromoterCategory, area scheme.AreaType) (Finance, error) {
	if projectCost < 0 {
		return Finance{}, fmt.Errorf("project cost: %w", ErrNegativeAmount)
	}
	res, err := c.CalculateSubsidy(category, area)
	if err != nil {
		return Finance{}, err
	}

	own := projectCost * res.OwnContributionPercent / 100
	loan := projectCost - own
	sub := projectCost * res.SubsidyPercent / 100

	return Finance{
		ProjectCost:            calc.Round2(projectCost),
		SubsidyPercent:         res.SubsidyPercent,
		OwnContributionPercent: res.OwnContributionPercent,
		OwnContribution:        calc.Round2(own),
		BankLoan:               calc.Round2(loan),
		Subsidy:                calc.Round2(sub),
		NetLoanAfterSubsidy:    calc.Round2(loan - sub),
	}, nil
}

// CheckProjectCost fails when cost exceeds the scheme ceiling for the business type
func (c *Calculator) CheckProjectCost(id scheme.SchemeID, business scheme.BusinessType, cost float64) error {
	rules, err := c.KB.GetRules(id)
	if err != nil {
		return err
	}
	limit, err := rules.MaxProjectCost.For(business)
	if err != nil {
		return err
	}
	if limit > 0 && cost > limit {
		return fmt.Errorf("%w: %s %s limit is %.0f, project cost is %.0f",
			ErrProjectCostExceedsLimit, id, business, limit, cost)
	}
	return nil
}
