package projection

import (
	"dpr_engine/pkg/core/calc"
)

// DefaultYears is the projection horizon when the caller does not pick one
const DefaultYears = 3

// CMAProjectionRow is one year of the Credit Monitoring Arrangement operating
// statement. Monetary fields are rounded to whole rupees.
type CMAProjectionRow struct {
	Year int `json:"year"`

	Sales        float64 `json:"sales"`
	RawMaterials float64 `json:"rawMaterials"`
	Salaries     float64 `json:"salaries"`
	Utilities    float64 `json:"utilities"`
	EBITA        float64 `json:"ebita"`
	Interest     float64 `json:"interest"`
	Depreciation float64 `json:"depreciation"`
	PBT          float64 `json:"pbt"`
	Tax          float64 `json:"tax"`
	PAT          float64 `json:"pat"`

	// CurrentRatio is a liquidity trend heuristic, not computed from a balance sheet
	CurrentRatio float64 `json:"currentRatio"`

	// DSCR is recomputed from this year's profit and debt service
	DSCR calc.Metric `json:"dscr"`

	// DSCRTrend is the illustrative coverage trend line shown in charts
	DSCRTrend float64 `json:"dscrTrend"`
}
