// Package dpr exposes the DPR calculators and report lifecycle over HTTP.
package dpr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"dpr_engine/pkg/core/assumption"
	"dpr_engine/pkg/core/calc"
	"dpr_engine/pkg/core/config"
	"dpr_engine/pkg/core/narrative"
	"dpr_engine/pkg/core/projection"
	"dpr_engine/pkg/core/report"
	"dpr_engine/pkg/core/scheme"
	"dpr_engine/pkg/core/store"
	"dpr_engine/pkg/core/subsidy"
	"dpr_engine/pkg/core/validate"
)

// Handler holds dependencies for the DPR endpoints
type Handler struct {
	KB        *scheme.KnowledgeBase
	Subsidy   *subsidy.Calculator
	Config    config.Config
	Overrides []byte // Hjson assumption overrides applied over industry presets
	Repo      store.Repository
	Narrative *narrative.Generator // nil disables narrative endpoints
	Now       func() time.Time
}

// NewHandler creates a DPR handler. A nil repo keeps reports in memory.
func NewHandler(kb *scheme.KnowledgeBase, cfg config.Config, overrides []byte, repo store.Repository, gen *narrative.Generator) *Handler {
	if kb == nil {
		kb = scheme.Default()
	}
	if repo == nil {
		repo = store.NewMemoryRepo()
	}
	return &Handler{
		KB:        kb,
		Subsidy:   subsidy.NewCalculator(kb),
		Config:    cfg,
		Overrides: overrides,
		Repo:      repo,
		Narrative: gen,
		Now:       time.Now,
	}
}

// Register mounts the endpoints on mux
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/dpr/schemes", h.HandleSchemes)
	mux.HandleFunc("/api/dpr/subsidy", h.HandleSubsidy)
	mux.HandleFunc("/api/dpr/mudra", h.HandleMudra)
	mux.HandleFunc("/api/dpr/ratios", h.HandleRatios)
	mux.HandleFunc("/api/dpr/projection", h.HandleProjection)
	mux.HandleFunc("/api/dpr/reports", h.HandleReports)
	mux.HandleFunc("/api/dpr/reports/finalize", h.HandleFinalize)
	mux.HandleFunc("/api/dpr/reports/status", h.HandleStatus)
	mux.HandleFunc("/api/dpr/reports/html", h.HandleReportHTML)
	mux.HandleFunc("/api/dpr/reports/narrative", h.HandleNarrative)
	mux.HandleFunc("/api/dpr/advisor", h.HandleAdvisor)
}

// Routes lists the registered endpoints for the startup banner
func Routes() []string {
	return []string{
		"GET  /api/dpr/schemes[?id=]",
		"POST /api/dpr/subsidy",
		"GET  /api/dpr/mudra?tier=|?loan=",
		"POST /api/dpr/ratios",
		"POST /api/dpr/projection",
		"GET  /api/dpr/reports?id=|?userId=",
		"POST /api/dpr/reports",
		"POST /api/dpr/reports/finalize",
		"POST /api/dpr/reports/status",
		"GET  /api/dpr/reports/html?id=",
		"POST /api/dpr/reports/narrative",
		"POST /api/dpr/advisor",
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// cors sets CORS headers and reports whether the request was a preflight
func (h *Handler) cors(w http.ResponseWriter, r *http.Request, methods string) bool {
	origin := h.Config.Server.AllowOrigin
	if origin == "" {
		origin = "*"
	}
	w.Header().Set("Access-Control-Allow-Origin", origin)
	w.Header().Set("Access-Control-Allow-Methods", methods+", OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return true
	}
	return false
}

func allowMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	return false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Printf("[DPR] Failed to encode response: %v\n", err)
	}
}

type errorResponse struct {
	Error  string           `json:"error"`
	Issues []validate.Issue `json:"issues,omitempty"`
}

// writeError maps domain errors to HTTP status codes
func writeError(w http.ResponseWriter, err error) {
	var verr *report.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Issues: verr.Issues})
		return
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, report.ErrInvalidTransition):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	case errors.Is(err, narrative.ErrEmptyAnswer):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}

	for _, bad := range []error{
		scheme.ErrUnknownScheme, scheme.ErrInvalidCategory, scheme.ErrInvalidAreaType,
		scheme.ErrInvalidTier, scheme.ErrInvalidBusiness,
		subsidy.ErrLoanExceedsMudraLimit, subsidy.ErrNegativeAmount,
		projection.ErrInvalidYearsCount, assumption.ErrInvalidAssumption,
		config.ErrUnknownTier, report.ErrInvalidReport, narrative.ErrEmptyMessage,
		errBadRequest,
	} {
		if errors.Is(err, bad) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}

	fmt.Printf("[DPR] Internal error: %v\n", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
}

var errBadRequest = errors.New("bad request")

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}
	return nil
}

// assumptionsFor applies the configured overrides to an industry preset
func (h *Handler) assumptionsFor(industry string) (assumption.ProjectionAssumptions, error) {
	a := assumption.Preset(industry)
	if len(h.Overrides) == 0 {
		return a, nil
	}
	return assumption.ParseOverrides(a, h.Overrides)
}

// projectionYears resolves the requested horizon against the tier ceiling
func (h *Handler) projectionYears(years int, tier string) (int, error) {
	if years == 0 {
		years = h.Config.Projection.DefaultYears
	}
	if years < 1 {
		return 0, fmt.Errorf("%w, got %d", projection.ErrInvalidYearsCount, years)
	}
	ceiling, err := h.Config.Ceiling(tier)
	if err != nil {
		return 0, err
	}
	if years > ceiling {
		return 0, fmt.Errorf("%w: %d years exceeds the %q tier limit of %d", errBadRequest, years, tier, ceiling)
	}
	return years, nil
}

// =============================================================================
// CALCULATORS
// =============================================================================

// HandleSchemes lists scheme rules, or one scheme with ?id=
func (h *Handler) HandleSchemes(w http.ResponseWriter, r *http.Request) {
	if h.cors(w, r, "GET") || !allowMethod(w, r, http.MethodGet) {
		return
	}

	if id := r.URL.Query().Get("id"); id != "" {
		schemeID, err := scheme.ParseSchemeID(id)
		if err != nil {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		rules, err := h.KB.GetRules(schemeID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rules)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version":  h.KB.Version,
		"schemes":  h.KB.Schemes(),
		"cmaForms": h.KB.CMAForms(),
	})
}

type SubsidyRequest struct {
	Category    string   `json:"category"`
	AreaType    string   `json:"areaType"`
	ProjectCost *float64 `json:"projectCost,omitempty"`
}

type SubsidyResponse struct {
	Subsidy        subsidy.Result   `json:"subsidy"`
	MeansOfFinance *subsidy.Finance `json:"meansOfFinance,omitempty"`
}

// HandleSubsidy returns the PMEGP shares, and the means of finance when a cost is given
func (h *Handler) HandleSubsidy(w http.ResponseWriter, r *http.Request) {
	if h.cors(w, r, "POST") || !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req SubsidyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	category, err := scheme.ParseCategory(req.Category)
	if err != nil {
		writeError(w, err)
		return
	}
	area, err := scheme.ParseAreaType(req.AreaType)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.Subsidy.CalculateSubsidy(category, area)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := SubsidyResponse{Subsidy: res}
	if req.ProjectCost != nil {
		fin, err := h.Subsidy.MeansOfFinance(*req.ProjectCost, category, area)
		if err != nil {
			writeError(w, err)
			return
		}
		resp.MeansOfFinance = &fin
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleMudra looks up a tier (?tier=) or suggests one for a loan (?loan=)
func (h *Handler) HandleMudra(w http.ResponseWriter, r *http.Request) {
	if h.cors(w, r, "GET") || !allowMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	switch {
	case q.Get("tier") != "":
		tier, err := scheme.ParseMudraTier(q.Get("tier"))
		if err != nil {
			writeError(w, err)
			return
		}
		cfg, err := h.Subsidy.GetMudraConfig(tier)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	case q.Get("loan") != "":
		loan, err := strconv.ParseFloat(q.Get("loan"), 64)
		if err != nil {
			writeError(w, fmt.Errorf("%w: loan must be a number", errBadRequest))
			return
		}
		cfg, err := h.Subsidy.SuggestMudraTier(loan)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"tier":          cfg,
			"processingFee": cfg.ProcessingFee(loan),
		})
	default:
		writeError(w, fmt.Errorf("%w: tier or loan query parameter required", errBadRequest))
	}
}

type RatiosRequest struct {
	Financials calc.FinancialSnapshot `json:"financials"`
	Industry   string                 `json:"industry"`
}

type RatiosResponse struct {
	Ratios calc.BankingRatios `json:"ratios"`
	Issues []validate.Issue   `json:"issues"`
}

// HandleRatios computes banking ratios for a snapshot. Validation findings are
// returned alongside the ratios so the form can show them while editing.
func (h *Handler) HandleRatios(w http.ResponseWriter, r *http.Request) {
	if h.cors(w, r, "POST") || !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req RatiosRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	a, err := h.assumptionsFor(req.Industry)
	if err != nil {
		writeError(w, err)
		return
	}

	issues := validate.Snapshot(req.Financials)
	ratios := calc.CalculateBankingRatiosWith(req.Financials, a)
	if !validate.HasErrors(issues) {
		issues = append(issues, validate.MeansOfFinance(req.Financials, ratios.TotalProjectCost, 0.05)...)
	}
	if issues == nil {
		issues = []validate.Issue{}
	}
	writeJSON(w, http.StatusOK, RatiosResponse{Ratios: ratios, Issues: issues})
}

type ProjectionRequest struct {
	Financials calc.FinancialSnapshot `json:"financials"`
	Years      int                    `json:"years"`
	Tier       string                 `json:"tier"`
	Industry   string                 `json:"industry"`
}

type ProjectionResponse struct {
	Years       int                              `json:"years"`
	Rows        []projection.CMAProjectionRow    `json:"rows"`
	Assumptions assumption.ProjectionAssumptions `json:"assumptions"`
}

// HandleProjection generates the multi-year CMA projection
func (h *Handler) HandleProjection(w http.ResponseWriter, r *http.Request) {
	if h.cors(w, r, "POST") || !allowMethod(w, r, http.MethodPost) {
		return
	}

	var req ProjectionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	years, err := h.projectionYears(req.Years, req.Tier)
	if err != nil {
		writeError(w, err)
		return
	}
	a, err := h.assumptionsFor(req.Industry)
	if err != nil {
		writeError(w, err)
		return
	}

	rows, err := projection.NewProjectionEngine(a).Generate(req.Financials, years)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProjectionResponse{Years: years, Rows: rows, Assumptions: a})
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
