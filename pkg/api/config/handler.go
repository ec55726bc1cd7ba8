package config

import (
	"encoding/json"
	"fmt"
	"net/http"

	"dpr_engine/pkg/core/assumption"
	coreConfig "dpr_engine/pkg/core/config"
	"dpr_engine/pkg/core/llm"
	"dpr_engine/pkg/core/scheme"
)

type Response struct {
	KnowledgeVersion string                                      `json:"knowledge_version"`
	DefaultYears     int                                         `json:"default_years"`
	TierCeilings     map[string]int                              `json:"tier_ceilings"`
	Assumptions      map[string]assumption.ProjectionAssumptions `json:"assumptions"`
	ActiveProvider   string                                      `json:"active_provider,omitempty"`
	Available        []string                                    `json:"available,omitempty"`
}

type SwitchRequest struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// Handler holds dependencies for config endpoints
type Handler struct {
	Config    coreConfig.Config
	KB        *scheme.KnowledgeBase
	Overrides []byte
	Provider  *llm.Switchable // nil when narrative generation is off
}

// NewHandler creates a new config handler
func NewHandler(cfg coreConfig.Config, kb *scheme.KnowledgeBase, overrides []byte, provider *llm.Switchable) *Handler {
	if kb == nil {
		kb = scheme.Default()
	}
	return &Handler{
		Config:    cfg,
		KB:        kb,
		Overrides: overrides,
		Provider:  provider,
	}
}

// HandleConfig reports the effective projection assumptions per industry
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", h.origin())
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	industries := []assumption.Industry{
		"default",
		assumption.IndustryManufacturing,
		assumption.IndustryTrading,
		assumption.IndustryServices,
		assumption.IndustryFoodProcessing,
	}
	sets := make(map[string]assumption.ProjectionAssumptions, len(industries))
	for _, ind := range industries {
		a := assumption.Preset(string(ind))
		if len(h.Overrides) > 0 {
			var err error
			if a, err = assumption.ParseOverrides(a, h.Overrides); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
		sets[string(ind)] = a
	}

	resp := Response{
		KnowledgeVersion: h.KB.Version,
		DefaultYears:     h.Config.Projection.DefaultYears,
		TierCeilings:     h.Config.Projection.TierCeilings,
		Assumptions:      sets,
	}
	if h.Provider != nil {
		resp.ActiveProvider = h.Provider.Active()
		resp.Available = llm.Available()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleSwitch changes the narrative LLM provider
func (h *Handler) HandleSwitch(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", h.origin())
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Provider == nil {
		http.Error(w, "Narrative generation is not configured", http.StatusServiceUnavailable)
		return
	}

	var req SwitchRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err = h.Provider.Switch(req.Provider, req.Model)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	fmt.Printf("[CONFIG] Narrative provider switched to %s\n", h.Provider.Active())
	fmt.Fprintf(w, "Success: Switched to %s", h.Provider.Active())
}

func (h *Handler) origin() string {
	if h.Config.Server.AllowOrigin != "" {
		return h.Config.Server.AllowOrigin
	}
	return "*"
}
