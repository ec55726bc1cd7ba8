// Package report models a Detailed Project Report (DPR) and finalizes it by
// embedding the computed financial analysis, then renders it for review.
package report

import (
	"errors"
	"fmt"
	"time"

	"dpr_engine/pkg/core/assumption"
	"dpr_engine/pkg/core/calc"
	"dpr_engine/pkg/core/projection"
	"dpr_engine/pkg/core/scheme"
	"dpr_engine/pkg/core/subsidy"
	"dpr_engine/pkg/core/validate"

	"github.com/google/uuid"
)

var (
	ErrInvalidTransition = errors.New("invalid report status transition")
	ErrInvalidReport     = errors.New("invalid report")
)

// Status is the report lifecycle state
type Status string

const (
	StatusDraft      Status = "DRAFT"
	StatusCompleted  Status = "COMPLETED"
	StatusSignedByCA Status = "SIGNED_BY_CA"
)

var transitions = map[Status][]Status{
	StatusDraft:      {StatusCompleted},
	StatusCompleted:  {StatusDraft, StatusSignedByCA},
	StatusSignedByCA: nil,
}

// CanTransition reports whether from → to is allowed
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Location of the project
type Location struct {
	City     string          `json:"city"`
	State    string          `json:"state"`
	AreaType scheme.AreaType `json:"areaType"`
}

// Promoter profile
type Promoter struct {
	Name          string                  `json:"name"`
	Qualification string                  `json:"qualification"`
	Experience    string                  `json:"experience"`
	Category      scheme.PromoterCategory `json:"category"`
	Gender        string                  `json:"gender"` // MALE, FEMALE, OTHER
}

// SWOT analysis lists
type SWOT struct {
	Strengths     []string `json:"strengths"`
	Weaknesses    []string `json:"weaknesses"`
	Opportunities []string `json:"opportunities"`
	Threats       []string `json:"threats"`
}

// Manpower is one staffing line
type Manpower struct {
	Role   string  `json:"role"`
	Count  int     `json:"count"`
	Salary float64 `json:"salary"` // monthly, per person
}

// Content is the narrative part of the report
type Content struct {
	ExecutiveSummary       string     `json:"executiveSummary"`
	BusinessConcept        string     `json:"businessConcept"`
	MarketAnalysis         string     `json:"marketAnalysis"`
	SWOTAnalysis           SWOT       `json:"swotAnalysis"`
	ImplementationSchedule []string   `json:"implementationSchedule"`
	ManpowerRequirement    []Manpower `json:"manpowerRequirement"`
}

// FinancialAnalysis is the computed section embedded at finalization
type FinancialAnalysis struct {
	Ratios           calc.BankingRatios               `json:"ratios"`
	Projection       []projection.CMAProjectionRow    `json:"projection"`
	Subsidy          *subsidy.Result                  `json:"subsidy,omitempty"`
	MeansOfFinance   *subsidy.Finance                 `json:"meansOfFinance,omitempty"`
	MudraTier        *subsidy.MudraConfig             `json:"mudraTier,omitempty"`
	Issues           []validate.Issue                 `json:"issues,omitempty"`
	Assumptions      assumption.ProjectionAssumptions `json:"assumptions"`
	KnowledgeVersion string                           `json:"knowledgeVersion"`
	GeneratedAt      time.Time                        `json:"generatedAt"`
}

// ProjectReport is one DPR document
type ProjectReport struct {
	ID           string                 `json:"id"`
	UserID       string                 `json:"userId"`
	Scheme       scheme.SchemeID        `json:"scheme"`
	BusinessName string                 `json:"businessName"`
	Industry     string                 `json:"industry"`
	BusinessType scheme.BusinessType    `json:"businessType,omitempty"`
	Location     Location               `json:"location"`
	Promoter     Promoter               `json:"promoter"`
	Content      Content                `json:"content"`
	Financials   calc.FinancialSnapshot `json:"financials"`
	Status       Status                 `json:"status"`
	Analysis     *FinancialAnalysis     `json:"analysis,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

// New creates a draft report with the report builder's default operating parameters
func New(userID string, id scheme.SchemeID) *ProjectReport {
	now := time.Now()
	return &ProjectReport{
		ID:     uuid.New().String(),
		UserID: userID,
		Scheme: id,
		Financials: calc.FinancialSnapshot{
			Parameters: &calc.OperatingParameters{
				WorkingDays:  300,
				Shifts:       1,
				CapacityUtil: 45,
				InterestRate: 9.5,
			},
		},
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves the report to a new status
func (r *ProjectReport) Transition(to Status) error {
	if !CanTransition(r.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.Status, to)
	}
	r.Status = to
	r.UpdatedAt = time.Now()
	return nil
}
