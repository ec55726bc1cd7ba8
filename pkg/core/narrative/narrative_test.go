package narrative

import (
	"context"
	"errors"
	"strings"
	"testing"

	"dpr_engine/pkg/core/llm"
	"dpr_engine/pkg/core/report"
	"dpr_engine/pkg/core/scheme"
)

func sampleReport() *report.ProjectReport {
	r := report.New("user-1", scheme.PMEGP)
	r.BusinessName = "Shakti Agro Foods"
	r.Industry = "food_processing"
	r.Location = report.Location{City: "Nashik", State: "Maharashtra", AreaType: scheme.AreaRural}
	r.Promoter = report.Promoter{Name: "A. Patil", Category: scheme.CategorySC}
	return r
}

func pmegpRules(t *testing.T) scheme.Rules {
	rules, err := scheme.GetRules(scheme.PMEGP)
	if err != nil {
		t.Fatal(err)
	}
	return rules
}

func TestGenerate_StructuredJSON(t *testing.T) {
	p := &llm.StaticProvider{Response: "```json\n" + `{
		"executiveSummary": "A rural agro unit.",
		"businessConcept": "Flour milling.",
		"marketAnalysis": "Strong local demand.",
		"swotAnalysis": {"strengths": ["Raw material nearby"]},
		"implementationSchedule": ["Month 1: Registration"],
		"manpowerRequirement": [{"role": "Operator", "count": 2, "salary": 12000}]
	}` + "\n```"}
	g := NewGenerator(p)

	res, err := g.Generate(context.Background(), sampleReport(), pmegpRules(t))
	if err != nil {
		t.Fatal(err)
	}
	if res.Fallback {
		t.Error("expected structured content")
	}
	if res.Content.BusinessConcept != "Flour milling." {
		t.Errorf("unexpected concept %q", res.Content.BusinessConcept)
	}
	if len(res.Content.ManpowerRequirement) != 1 || res.Content.ManpowerRequirement[0].Count != 2 {
		t.Errorf("unexpected manpower %+v", res.Content.ManpowerRequirement)
	}

	for _, want := range []string{"Shakti Agro Foods", "Prime Minister", "DSCR calculation", "Nashik, Maharashtra (RURAL)"} {
		if !strings.Contains(p.LastPrompt, want) {
			t.Errorf("expected prompt to contain %q", want)
		}
	}
	if p.LastSystemPrompt == "" {
		t.Error("expected system prompt")
	}
}

func TestGenerate_RepairsMalformedJSON(t *testing.T) {
	p := &llm.StaticProvider{Response: `{executiveSummary: 'Summary', businessConcept: 'Concept', marketAnalysis: 'Market',}`}
	res, err := NewGenerator(p).Generate(context.Background(), sampleReport(), pmegpRules(t))
	if err != nil {
		t.Fatal(err)
	}
	if res.Fallback || res.Content.MarketAnalysis != "Market" {
		t.Errorf("expected repaired content, got %+v", res)
	}
}

func TestGenerate_FallbackOnProse(t *testing.T) {
	prose := strings.Repeat("This business will serve the district. ", 20)
	p := &llm.StaticProvider{Response: prose}
	res, err := NewGenerator(p).Generate(context.Background(), sampleReport(), pmegpRules(t))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Fallback {
		t.Fatal("expected fallback content")
	}
	if !strings.HasSuffix(res.Content.ExecutiveSummary, "...") {
		t.Errorf("expected truncated summary, got %q", res.Content.ExecutiveSummary)
	}
	if res.Content.BusinessConcept == "" || res.Content.MarketAnalysis == "" {
		t.Error("fallback must fill every rendered section")
	}
}

func TestGenerate_ProviderError(t *testing.T) {
	p := &llm.StaticProvider{Err: errors.New("quota exceeded")}
	if _, err := NewGenerator(p).Generate(context.Background(), sampleReport(), pmegpRules(t)); err == nil {
		t.Error("expected provider error")
	}
}

func TestAdvise(t *testing.T) {
	p := &llm.StaticProvider{Response: "Increase own contribution to improve DSCR."}
	g := NewGenerator(p)

	var history []Turn
	for i := 0; i < 8; i++ {
		history = append(history, Turn{Role: "user", Content: "turn-" + string(rune('a'+i))})
	}
	answer, err := g.Advise(context.Background(), sampleReport(), history, "How do I improve my DSCR?")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "Increase own contribution to improve DSCR." {
		t.Errorf("unexpected answer %q", answer)
	}
	if strings.Contains(p.LastPrompt, "turn-a") || !strings.Contains(p.LastPrompt, "turn-h") {
		t.Error("expected only the last 5 turns in the prompt")
	}

	if _, err := g.Advise(context.Background(), sampleReport(), nil, "  "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestGenerate_LeavesModelToProvider(t *testing.T) {
	p := &llm.StaticProvider{Response: `{"executiveSummary":"S","businessConcept":"C","marketAnalysis":"M"}`}
	if _, err := NewGenerator(p).Generate(context.Background(), sampleReport(), pmegpRules(t)); err != nil {
		t.Fatal(err)
	}
	if _, ok := p.LastOptions["model"]; ok {
		t.Errorf("generator must not pick the model, got options %v", p.LastOptions)
	}
	if _, ok := p.LastOptions["response_format"]; !ok {
		t.Error("expected JSON mode for narrative generation")
	}
}

func TestGenerate_SendsResponseSchema(t *testing.T) {
	p := &llm.StaticProvider{Response: `{"executiveSummary":"S","businessConcept":"C","marketAnalysis":"M"}`}
	if _, err := NewGenerator(p).Generate(context.Background(), sampleReport(), pmegpRules(t)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(p.LastSystemPrompt, "JSON Schema") || !strings.Contains(p.LastSystemPrompt, `"required"`) {
		t.Errorf("expected response schema in system prompt, got %q", p.LastSystemPrompt)
	}
}

func TestGenerate_BlankSectionFallsBack(t *testing.T) {
	p := &llm.StaticProvider{Response: `{"executiveSummary":"Summary","businessConcept":"   ","marketAnalysis":"Market"}`}
	res, err := NewGenerator(p).Generate(context.Background(), sampleReport(), pmegpRules(t))
	if err != nil {
		t.Fatal(err)
	}
	if !res.Fallback {
		t.Fatal("blank section should trigger fallback content")
	}
	if res.Content.ExecutiveSummary != "Summary" {
		t.Errorf("expected parsed summary to be kept, got %q", res.Content.ExecutiveSummary)
	}
	if strings.TrimSpace(res.Content.BusinessConcept) == "" {
		t.Error("fallback must fill the blank section")
	}
}

func TestAdvise_EmptyAnswer(t *testing.T) {
	p := &llm.StaticProvider{Response: "```\n\n```"}
	if _, err := NewGenerator(p).Advise(context.Background(), sampleReport(), nil, "Hello?"); !errors.Is(err, ErrEmptyAnswer) {
		t.Errorf("expected ErrEmptyAnswer, got %v", err)
	}
}
