// Package narrative writes the prose sections of a DPR with an LLM.
// Figures come from the computed analysis; the model only writes text
// around them.
package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"dpr_engine/pkg/core/llm"
	"dpr_engine/pkg/core/prompt"
	"dpr_engine/pkg/core/report"
	"dpr_engine/pkg/core/scheme"
	"dpr_engine/pkg/core/utils"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrEmptyAnswer  = errors.New("advisor returned an empty answer")
)

// fallbackSummaryLen caps the raw text kept when the model ignores the JSON format
const fallbackSummaryLen = 300

// historyWindow is how many chat turns are sent back to the advisor
const historyWindow = 5

// Result is the generated content plus how it was obtained
type Result struct {
	Content  report.Content `json:"content"`
	Fallback bool           `json:"fallback"` // model output was not structured
}

// Turn is one message of an advisor conversation
type Turn struct {
	Role    string `json:"role"` // user or ai
	Content string `json:"content"`
}

// Generator drives the narrative and advisor prompts
type Generator struct {
	Provider llm.Provider
	Prompts  *prompt.Registry
	Language string
}

// NewGenerator uses the global prompt registry
func NewGenerator(p llm.Provider) *Generator {
	return &Generator{Provider: p, Prompts: prompt.Get(), Language: "English"}
}

func (g *Generator) options(jsonMode bool) map[string]interface{} {
	opts := map[string]interface{}{}
	if jsonMode {
		opts["response_format"] = map[string]interface{}{"type": "json_object"}
	}
	return opts
}

// Generate writes the narrative content for a report under its scheme rules
func (g *Generator) Generate(ctx context.Context, r *report.ProjectReport, rules scheme.Rules) (*Result, error) {
	pt, err := g.Prompts.GetPrompt(prompt.NarrativeID)
	if err != nil {
		return nil, err
	}

	promoter, err := json.Marshal(r.Promoter)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal promoter: %w", err)
	}
	var financials []byte
	if r.Analysis != nil {
		financials, err = json.MarshalIndent(r.Analysis, "", "  ")
	} else {
		financials, err = json.MarshalIndent(r.Financials, "", "  ")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal financials: %w", err)
	}

	vars := prompt.NewContext().
		Set("BusinessName", r.BusinessName).
		Set("Scheme", string(rules.ID)).
		Set("SchemeName", rules.FullName).
		Set("Promoter", string(promoter)).
		Set("Eligibility", rules.Eligibility).
		Set("MandatoryTables", rules.MandatoryTables).
		Set("Financials", string(financials))
	if r.Industry != "" {
		vars.Set("Industry", r.Industry)
	}
	if r.Location.City != "" {
		vars.Set("Location", fmt.Sprintf("%s, %s (%s)", r.Location.City, r.Location.State, r.Location.AreaType))
	}
	if g.Language != "" {
		vars.Set("Language", g.Language)
	}

	userPrompt, err := prompt.RenderUserPrompt(pt, vars)
	if err != nil {
		return nil, err
	}

	fmt.Printf("[NARRATIVE] Generating content for report %s (%s)\n", r.ID, rules.ID)
	system := pt.SystemPrompt
	if pt.ResponseSchemaID != "" {
		schema, err := g.Prompts.GetSchema(pt.ResponseSchemaID)
		if err != nil {
			return nil, err
		}
		system += "\n\nThe JSON object must conform to this JSON Schema:\n" + schema.JSONSchema
	}
	raw, err := g.Provider.GenerateResponse(ctx, userPrompt, g.Provider.AdaptInstructions(system), g.options(true))
	if err != nil {
		return nil, fmt.Errorf("narrative generation failed: %w", err)
	}

	return parseContent(raw), nil
}

// parseContent decodes model output into report content, falling back to
// the raw text as the executive summary when no JSON object can be recovered.
func parseContent(raw string) *Result {
	cleaned := stripFences(raw)

	var content report.Content
	if _, err := utils.SmartParse(cleaned, &content); err == nil {
		err := utils.RequireFields(&content, "ExecutiveSummary", "BusinessConcept", "MarketAnalysis")
		if err == nil {
			err = renderable(content)
		}
		if err == nil {
			return &Result{Content: content}
		}
		fmt.Printf("[NARRATIVE] Incomplete content: %v\n", err)
	}

	fmt.Printf("[NARRATIVE] Model output was not structured, using fallback content\n")
	summary := strings.TrimSpace(raw)
	if utf8.RuneCountInString(summary) > fallbackSummaryLen {
		summary = string([]rune(summary)[:fallbackSummaryLen]) + "..."
	}
	if utils.ValidateMarkdown(content.ExecutiveSummary) {
		summary = content.ExecutiveSummary
	}
	return &Result{
		Content: report.Content{
			ExecutiveSummary:       summary,
			BusinessConcept:        firstNonEmpty(content.BusinessConcept, "To be refined with the advisor."),
			MarketAnalysis:         firstNonEmpty(content.MarketAnalysis, "To be refined with the advisor."),
			SWOTAnalysis:           content.SWOTAnalysis,
			ImplementationSchedule: content.ImplementationSchedule,
			ManpowerRequirement:    content.ManpowerRequirement,
		},
		Fallback: true,
	}
}

// renderable rejects sections that parse to an empty Markdown document
func renderable(c report.Content) error {
	sections := []struct{ name, body string }{
		{"executiveSummary", c.ExecutiveSummary},
		{"businessConcept", c.BusinessConcept},
		{"marketAnalysis", c.MarketAnalysis},
	}
	for _, sec := range sections {
		if !utils.ValidateMarkdown(sec.body) {
			return fmt.Errorf("section %s has no renderable content", sec.name)
		}
	}
	return nil
}

// Advise answers a question about the report, with recent conversation history
func (g *Generator) Advise(ctx context.Context, r *report.ProjectReport, history []Turn, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	pt, err := g.Prompts.GetPrompt(prompt.AdvisorID)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}

	userPrompt, err := prompt.RenderUserPrompt(pt, prompt.NewContext().
		Set("Report", string(data)).
		Set("History", history).
		Set("Message", message))
	if err != nil {
		return "", err
	}

	answer, err := g.Provider.GenerateResponse(ctx, userPrompt, g.Provider.AdaptInstructions(pt.SystemPrompt), g.options(false))
	if err != nil {
		return "", fmt.Errorf("advisor failed: %w", err)
	}
	answer = utils.CleanMarkdown(answer)
	if !utils.ValidateMarkdown(answer) {
		return "", ErrEmptyAnswer
	}
	return answer, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
