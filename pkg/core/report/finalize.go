package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"dpr_engine/pkg/core/assumption"
	"dpr_engine/pkg/core/calc"
	"dpr_engine/pkg/core/projection"
	"dpr_engine/pkg/core/scheme"
	"dpr_engine/pkg/core/subsidy"
	"dpr_engine/pkg/core/validate"
)

// fundingTolerance is the accepted gap between funding and project cost
const fundingTolerance = 0.05

// ValidationError carries the blocking issues that stopped finalization
type ValidationError struct {
	Issues []validate.Issue
}

func (e *ValidationError) Error() string {
	var parts []string
	for _, i := range e.Issues {
		if i.Severity == validate.SeverityError {
			parts = append(parts, fmt.Sprintf("%s %s", i.Field, i.Message))
		}
	}
	return fmt.Sprintf("%v: %s", ErrInvalidReport, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidReport }

// Finalizer computes and embeds the financial analysis of a report
type Finalizer struct {
	Subsidy     *subsidy.Calculator
	Assumptions assumption.ProjectionAssumptions
	Now         func() time.Time
}

// NewFinalizer creates a finalizer over a knowledge base (nil = built-in)
func NewFinalizer(kb *scheme.KnowledgeBase, a assumption.ProjectionAssumptions) *Finalizer {
	return &Finalizer{
		Subsidy:     subsidy.NewCalculator(kb),
		Assumptions: a,
		Now:         time.Now,
	}
}

// Analyze computes the financial analysis without touching the report
func (f *Finalizer) Analyze(r *ProjectReport, years int) (*FinancialAnalysis, error) {
	if _, err := f.Subsidy.KB.GetRules(r.Scheme); err != nil {
		return nil, err
	}
	if !r.Location.AreaType.Valid() {
		return nil, fmt.Errorf("%w: %q", scheme.ErrInvalidAreaType, r.Location.AreaType)
	}
	if !r.Promoter.Category.Valid() {
		return nil, fmt.Errorf("%w: %q", scheme.ErrInvalidCategory, r.Promoter.Category)
	}

	snap := r.Financials
	issues := validate.Snapshot(snap)
	if validate.HasErrors(issues) {
		return nil, &ValidationError{Issues: issues}
	}

	ratios := calc.CalculateBankingRatiosWith(snap, f.Assumptions)
	rows, err := projection.NewProjectionEngine(f.Assumptions).Generate(snap, years)
	if err != nil {
		return nil, err
	}

	analysis := &FinancialAnalysis{
		Ratios:           ratios,
		Projection:       rows,
		Assumptions:      f.Assumptions,
		KnowledgeVersion: f.Subsidy.KB.Version,
		GeneratedAt:      f.Now(),
	}

	if r.BusinessType != "" {
		err := f.Subsidy.CheckProjectCost(r.Scheme, r.BusinessType, ratios.TotalProjectCost)
		switch {
		case errors.Is(err, subsidy.ErrProjectCostExceedsLimit):
			issues = append(issues, validate.Issue{
				Field:    "financials",
				Severity: validate.SeverityError,
				Message:  err.Error(),
			})
			return nil, &ValidationError{Issues: issues}
		case err != nil:
			return nil, err
		}
	}

	switch r.Scheme {
	case scheme.PMEGP:
		res, err := f.Subsidy.CalculateSubsidy(r.Promoter.Category, r.Location.AreaType)
		if err != nil {
			return nil, err
		}
		fin, err := f.Subsidy.MeansOfFinance(ratios.TotalProjectCost, r.Promoter.Category, r.Location.AreaType)
		if err != nil {
			return nil, err
		}
		analysis.Subsidy = &res
		analysis.MeansOfFinance = &fin
	case scheme.MUDRA:
		tier, err := f.Subsidy.SuggestMudraTier(snap.Funding.LoanRequired)
		if err != nil {
			issues = append(issues, validate.Issue{
				Field:    "funding.loanRequired",
				Severity: validate.SeverityWarning,
				Message:  err.Error(),
			})
		} else {
			analysis.MudraTier = &tier
		}
	}

	issues = append(issues, validate.MeansOfFinance(snap, ratios.TotalProjectCost, fundingTolerance)...)
	analysis.Issues = issues
	return analysis, nil
}

// Finalize embeds the analysis and marks a draft report COMPLETED
func (f *Finalizer) Finalize(r *ProjectReport, years int) error {
	if !CanTransition(r.Status, StatusCompleted) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, StatusCompleted)
	}
	analysis, err := f.Analyze(r, years)
	if err != nil {
		return err
	}
	r.Analysis = analysis
	r.Status = StatusCompleted
	r.UpdatedAt = analysis.GeneratedAt
	return nil
}
