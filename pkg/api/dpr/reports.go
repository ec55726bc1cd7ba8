package dpr

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"strings"

	"dpr_engine/pkg/core/calc"
	"dpr_engine/pkg/core/narrative"
	"dpr_engine/pkg/core/report"

	"github.com/google/uuid"
)

// HandleReports loads (?id=), lists (?userId=) or saves a draft (POST)
func (h *Handler) HandleReports(w http.ResponseWriter, r *http.Request) {
	if h.cors(w, r, "GET, POST") || !allowMethod(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	ctx := r.Context()

	if r.Method == http.MethodPost {
		var rep report.ProjectReport
		if err := decode(r, &rep); err != nil {
			writeError(w, err)
			return
		}
		saved, err := h.saveDraft(ctx, &rep)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
		return
	}

	q := r.URL.Query()
	switch {
	case q.Get("id") != "":
		rep, err := h.Repo.Load(ctx, q.Get("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	case q.Get("userId") != "":
		reps, err := h.Repo.ListByUser(ctx, q.Get("userId"))
		if err != nil {
			writeError(w, err)
			return
		}
		if reps == nil {
			reps = []*report.ProjectReport{}
		}
		writeJSON(w, http.StatusOK, reps)
	default:
		writeError(w, fmt.Errorf("%w: id or userId query parameter required", errBadRequest))
	}
}

// saveDraft stores user edits. Only drafts are editable; a finalized report
// must be moved back to DRAFT first.
func (h *Handler) saveDraft(ctx context.Context, rep *report.ProjectReport) (*report.ProjectReport, error) {
	now := h.Now()
	if rep.ID == "" {
		rep.ID = uuid.New().String()
		rep.CreatedAt = now
	} else {
		stored, err := h.Repo.Load(ctx, rep.ID)
		switch {
		case err == nil:
			if stored.Status != report.StatusDraft {
				return nil, fmt.Errorf("%w: report is %s, move it back to DRAFT before editing", report.ErrInvalidTransition, stored.Status)
			}
			rep.CreatedAt = stored.CreatedAt
		case !isNotFound(err):
			return nil, err
		}
	}
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = now
	}
	rep.Status = report.StatusDraft
	rep.Analysis = nil
	rep.UpdatedAt = now

	if err := h.Repo.Save(ctx, rep); err != nil {
		return nil, err
	}
	fmt.Printf("[DPR] Saved draft %s (%s) for user %s\n", rep.ID, rep.Scheme, rep.UserID)
	return rep, nil
}

type FinalizeRequest struct {
	ID     string                `json:"id,omitempty"`
	Report *report.ProjectReport `json:"report,omitempty"`
	Years  int                   `json:"years"`
	Tier   string                `json:"tier"`
}

// HandleFinalize computes the financial analysis and marks the report COMPLETED
func (h *Handler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	if h.cors(w, r, "POST") || !allowMethod(w, r, http.MethodPost) {
		return
	}
	ctx := r.Context()

	var req FinalizeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	years, err := h.projectionYears(req.Years, req.Tier)
	if err != nil {
		writeError(w, err)
		return
	}

	var rep *report.ProjectReport
	switch {
	case req.Report != nil:
		rep, err = h.saveDraft(ctx, req.Report)
	case req.ID != "":
		rep, err = h.Repo.Load(ctx, req.ID)
	default:
		err = fmt.Errorf("%w: id or report required", errBadRequest)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	a, err := h.assumptionsFor(rep.Industry)
	if err != nil {
		writeError(w, err)
		return
	}
	f := report.NewFinalizer(h.KB, a)
	f.Now = h.Now
	if err := f.Finalize(rep, years); err != nil {
		writeError(w, err)
		return
	}
	if err := h.Repo.Save(ctx, rep); err != nil {
		writeError(w, err)
		return
	}

	fmt.Printf("[DPR] Finalized %s: cost=%.0f dscr=%s issues=%d\n",
		rep.ID, rep.Analysis.Ratios.TotalProjectCost, metricString(rep.Analysis.Ratios.DSCR), len(rep.Analysis.Issues))
	writeJSON(w, http.StatusOK, rep)
}

type StatusRequest struct {
	ID     string        `json:"id"`
	Status report.Status `json:"status"`
}

// HandleStatus moves a stored report through its lifecycle
// (COMPLETED -> SIGNED_BY_CA, COMPLETED -> DRAFT).
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if h.cors(w, r, "POST") || !allowMethod(w, r, http.MethodPost) {
		return
	}
	ctx := r.Context()

	var req StatusRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rep, err := h.Repo.Load(ctx, req.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if req.Status == report.StatusCompleted {
		writeError(w, fmt.Errorf("%w: use /api/dpr/reports/finalize to complete a report", report.ErrInvalidTransition))
		return
	}
	if err := rep.Transition(req.Status); err != nil {
		writeError(w, err)
		return
	}
	rep.UpdatedAt = h.Now()
	if err := h.Repo.Save(ctx, rep); err != nil {
		writeError(w, err)
		return
	}
	fmt.Printf("[DPR] Report %s is now %s\n", rep.ID, rep.Status)
	writeJSON(w, http.StatusOK, rep)
}

// HandleReportHTML renders a finalized report. Missing mandatory tables are
// listed in the X-DPR-Missing-Sections header.
func (h *Handler) HandleReportHTML(w http.ResponseWriter, r *http.Request) {
	if h.cors(w, r, "GET") || !allowMethod(w, r, http.MethodGet) {
		return
	}

	rep, err := h.Repo.Load(r.Context(), r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	rules, err := h.KB.GetRules(rep.Scheme)
	if err != nil {
		writeError(w, err)
		return
	}
	body, err := report.RenderHTML(rep, rules)
	if err != nil {
		writeError(w, err)
		return
	}
	missing, err := report.VerifyMandatorySections(body, rules)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(missing) > 0 {
		fmt.Printf("[WARNING] Report %s is missing sections: %v\n", rep.ID, missing)
		w.Header().Set("X-DPR-Missing-Sections", strings.Join(missing, "; "))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>%s</title></head><body>\n%s</body></html>\n",
		html.EscapeString(rep.BusinessName), body)
}

type NarrativeRequest struct {
	ID       string `json:"id"`
	Language string `json:"language"`
}

// HandleNarrative writes the report's prose sections with the configured LLM
func (h *Handler) HandleNarrative(w http.ResponseWriter, r *http.Request) {
	if h.cors(w, r, "POST") || !allowMethod(w, r, http.MethodPost) {
		return
	}
	if h.Narrative == nil {
		http.Error(w, "Narrative generation is not configured", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()

	var req NarrativeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rep, err := h.Repo.Load(ctx, req.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if rep.Status == report.StatusSignedByCA {
		writeError(w, fmt.Errorf("%w: signed reports are read-only", report.ErrInvalidTransition))
		return
	}
	rules, err := h.KB.GetRules(rep.Scheme)
	if err != nil {
		writeError(w, err)
		return
	}

	gen := *h.Narrative
	if req.Language != "" {
		gen.Language = req.Language
	}
	res, err := gen.Generate(ctx, rep, rules)
	if err != nil {
		writeError(w, err)
		return
	}

	rep.Content = res.Content
	rep.UpdatedAt = h.Now()
	if err := h.Repo.Save(ctx, rep); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type AdvisorRequest struct {
	ID      string           `json:"id"`
	History []narrative.Turn `json:"history"`
	Message string           `json:"message"`
}

// HandleAdvisor answers a question about a stored report
func (h *Handler) HandleAdvisor(w http.ResponseWriter, r *http.Request) {
	if h.cors(w, r, "POST") || !allowMethod(w, r, http.MethodPost) {
		return
	}
	if h.Narrative == nil {
		http.Error(w, "Advisor is not configured", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()

	var req AdvisorRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rep, err := h.Repo.Load(ctx, req.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	answer, err := h.Narrative.Advise(ctx, rep, req.History, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func metricString(m calc.Metric) string {
	if !m.Defined {
		return string(m.Reason)
	}
	return fmt.Sprintf("%.2f", m.Value)
}
