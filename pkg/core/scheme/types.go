// Package scheme holds the government scheme knowledge base used by the DPR engine.
// Scheme rules are data, not code: they are read from a single YAML document
// (one record per scheme) and exposed through read-only lookups.
package scheme

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownScheme   = errors.New("unknown scheme")
	ErrInvalidCategory = errors.New("invalid promoter category")
	ErrInvalidAreaType = errors.New("invalid area type")
	ErrInvalidTier     = errors.New("invalid MUDRA tier")
	ErrInvalidBusiness = errors.New("invalid business type")
)

// =============================================================================
// ENUMERATIONS
// =============================================================================

// SchemeID identifies a supported financing scheme
type SchemeID string

const (
	PMEGP           SchemeID = "PMEGP"
	MUDRA           SchemeID = "MUDRA"
	StartupIndia    SchemeID = "STARTUP_INDIA"
	MSMELoan        SchemeID = "MSME_LOAN"
	GeneralBankLoan SchemeID = "GENERAL_BANK_LOAN"
)

// SchemeIDs lists the supported schemes in display order
var SchemeIDs = []SchemeID{PMEGP, MUDRA, StartupIndia, MSMELoan, GeneralBankLoan}

// Valid reports whether id is one of the supported schemes
func (id SchemeID) Valid() bool {
	for _, s := range SchemeIDs {
		if s == id {
			return true
		}
	}
	return false
}

// ParseSchemeID normalizes and validates a scheme id
func ParseSchemeID(s string) (SchemeID, error) {
	id := SchemeID(strings.ToUpper(strings.TrimSpace(s)))
	if !id.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownScheme, s)
	}
	return id, nil
}

// PromoterCategory is the social category of the promoter
type PromoterCategory string

const (
	CategoryGeneral      PromoterCategory = "GENERAL"
	CategorySC           PromoterCategory = "SC"
	CategoryST           PromoterCategory = "ST"
	CategoryOBC          PromoterCategory = "OBC"
	CategoryMinority     PromoterCategory = "MINORITY"
	CategoryExServiceman PromoterCategory = "EX_SERVICEMAN"
)

// Categories lists every promoter category
var Categories = []PromoterCategory{
	CategoryGeneral, CategorySC, CategoryST, CategoryOBC, CategoryMinority, CategoryExServiceman,
}

// Valid reports whether c is a known category
func (c PromoterCategory) Valid() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// IsSpecial reports whether the category qualifies for special-category rates.
// Every valid category other than GENERAL is special.
func (c PromoterCategory) IsSpecial() bool {
	return c.Valid() && c != CategoryGeneral
}

// ParseCategory normalizes and validates a promoter category
func ParseCategory(s string) (PromoterCategory, error) {
	c := PromoterCategory(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// AreaType is the project location type
type AreaType string

const (
	AreaRural AreaType = "RURAL"
	AreaUrban AreaType = "URBAN"
)

// Valid reports whether a is RURAL or URBAN
func (a AreaType) Valid() bool {
	return a == AreaRural || a == AreaUrban
}

// ParseAreaType normalizes and validates an area type
func ParseAreaType(s string) (AreaType, error) {
	a := AreaType(strings.ToUpper(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidAreaType, s)
	}
	return a, nil
}

// MudraTier is one of the three MUDRA loan tiers
type MudraTier string

const (
	TierShishu  MudraTier = "SHISHU"
	TierKishore MudraTier = "KISHORE"
	TierTarun   MudraTier = "TARUN"
)

// MudraTiers lists the tiers in ascending limit order
var MudraTiers = []MudraTier{TierShishu, TierKishore, TierTarun}

// Valid reports whether t is a known tier
func (t MudraTier) Valid() bool {
	return t == TierShishu || t == TierKishore || t == TierTarun
}

// ParseMudraTier normalizes and validates a tier name
func ParseMudraTier(s string) (MudraTier, error) {
	t := MudraTier(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidTier, s)
	}
	return t, nil
}

// BusinessType selects the project cost ceiling that applies
type BusinessType string

const (
	BusinessManufacturing BusinessType = "MANUFACTURING"
	BusinessService       BusinessType = "SERVICE"
)

// ParseBusinessType normalizes and validates a business type
func ParseBusinessType(s string) (BusinessType, error) {
	b := BusinessType(strings.ToUpper(strings.TrimSpace(s)))
	if b != BusinessManufacturing && b != BusinessService {
		return "", fmt.Errorf("%w: %q", ErrInvalidBusiness, s)
	}
	return b, nil
}

// =============================================================================
// RULE RECORDS
// =============================================================================

// CategoryShares holds a percentage for general and special promoters
type CategoryShares struct {
	General float64 `yaml:"general" json:"general"`
	Special float64 `yaml:"special" json:"special"`
}

// Matrix is a percentage table keyed by area type and category class
type Matrix struct {
	Rural CategoryShares `yaml:"rural" json:"rural"`
	Urban CategoryShares `yaml:"urban" json:"urban"`
}

// Lookup returns the percentage for an area and category
func (m Matrix) Lookup(area AreaType, category PromoterCategory) (float64, error) {
	if !category.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	var row CategoryShares
	switch area {
	case AreaRural:
		row = m.Rural
	case AreaUrban:
		row = m.Urban
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidAreaType, area)
	}
	if category.IsSpecial() {
		return row.Special, nil
	}
	return row.General, nil
}

// ProjectCostLimit is the maximum eligible project cost by business type. Zero means no cap.
type ProjectCostLimit struct {
	Manufacturing float64 `yaml:"manufacturing" json:"manufacturing"`
	Service       float64 `yaml:"service" json:"service"`
}

// For returns the ceiling for a business type
func (l ProjectCostLimit) For(b BusinessType) (float64, error) {
	switch b {
	case BusinessManufacturing:
		return l.Manufacturing, nil
	case BusinessService:
		return l.Service, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidBusiness, b)
}

// MudraTierRule describes a MUDRA tier
type MudraTierRule struct {
	Tier                 MudraTier `yaml:"tier" json:"tier"`
	MaxLimit             float64   `yaml:"max_limit" json:"maxLimit"`
	CollateralRequired   bool      `yaml:"collateral_required" json:"collateralRequired"`
	ProcessingFeePercent float64   `yaml:"processing_fee_percent" json:"processingFeePercent"`
	Focus                string    `yaml:"focus" json:"focus"`
}

// Rules is the full rule record for one scheme
type Rules struct {
	ID                     SchemeID         `yaml:"id" json:"id"`
	FullName               string           `yaml:"full_name" json:"fullName"`
	MaxProjectCost         ProjectCostLimit `yaml:"max_project_cost" json:"maxProjectCost"`
	SubsidyPercent         Matrix           `yaml:"subsidy_percent" json:"subsidyPercent"`
	OwnContributionPercent Matrix           `yaml:"own_contribution_percent" json:"ownContributionPercent"`
	Eligibility            []string         `yaml:"eligibility" json:"eligibility"`
	MandatoryTables        []string         `yaml:"mandatory_tables" json:"mandatoryTables"`
	MudraTiers             []MudraTierRule  `yaml:"mudra_tiers,omitempty" json:"mudraTiers,omitempty"`
	InterestSubvention     string           `yaml:"interest_subvention,omitempty" json:"interestSubvention,omitempty"`
}

// clone returns a deep copy so callers cannot mutate the knowledge base
func (r Rules) clone() Rules {
	out := r
	out.Eligibility = append([]string(nil), r.Eligibility...)
	out.MandatoryTables = append([]string(nil), r.MandatoryTables...)
	if r.MudraTiers != nil {
		out.MudraTiers = append([]MudraTierRule(nil), r.MudraTiers...)
	}
	return out
}
