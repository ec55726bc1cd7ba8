package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuiltinPrompts(t *testing.T) {
	r := Get()
	for _, id := range []string{NarrativeID, AdvisorID} {
		pt, err := r.GetPrompt(id)
		if err != nil {
			t.Fatalf("expected built-in prompt %s: %v", id, err)
		}
		if pt.SystemPrompt == "" || pt.Category != "dpr" {
			t.Errorf("%s: unexpected template %+v", id, pt)
		}
	}
	if _, err := r.GetSchema("dpr_content"); err != nil {
		t.Errorf("expected dpr_content schema: %v", err)
	}
}

func TestRenderUserPrompt(t *testing.T) {
	pt, _ := Get().GetPrompt(NarrativeID)
	ctx := NewContext().
		Set("BusinessName", "Shakti Agro").
		Set("Scheme", "PMEGP").
		Set("SchemeName", "Prime Minister's Employment Generation Programme").
		Set("Promoter", `{"name":"A. Patil"}`).
		Set("Eligibility", []string{"Age above 18"}).
		Set("MandatoryTables", []string{"DSCR calculation"}).
		Set("Financials", `{"dscr":1.71}`)

	out, err := RenderUserPrompt(pt, ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Shakti Agro", "- Age above 18", "- DSCR calculation", "Language: English", `{"dscr":1.71}`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected prompt to contain %q", want)
		}
	}
}

func TestRenderUserPrompt_MissingRequired(t *testing.T) {
	pt, _ := Get().GetPrompt(AdvisorID)
	if _, err := RenderUserPrompt(pt, NewContext().Set("Report", "{}")); err == nil {
		t.Error("expected error for missing Message")
	}

	out, err := RenderUserPrompt(pt, NewContext().Set("Report", "{}").Set("Message", "Can I get PMEGP?"))
	if err != nil {
		t.Fatalf("optional History should default: %v", err)
	}
	if !strings.Contains(out, "Can I get PMEGP?") {
		t.Error("expected message in prompt")
	}
}

func TestLoadFS_Override(t *testing.T) {
	dir := t.TempDir()
	promptDir := filepath.Join(dir, "prompts", "custom")
	if err := os.MkdirAll(promptDir, 0755); err != nil {
		t.Fatal(err)
	}
	body := `{"system_prompt":"sys","user_prompt_template":"Hello {{.Name}}"}`
	if err := os.WriteFile(filepath.Join(promptDir, "greeting.json"), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry()
	if err := loadFS(r, os.DirFS(dir), "."); err != nil {
		t.Fatal(err)
	}
	pt, err := r.GetPrompt("custom.greeting")
	if err != nil {
		t.Fatalf("expected ID from path: %v", err)
	}
	if pt.Category != "custom" {
		t.Errorf("expected category custom, got %s", pt.Category)
	}
}

func TestLoadFS_InvalidTemplate(t *testing.T) {
	dir := t.TempDir()
	promptDir := filepath.Join(dir, "prompts")
	os.MkdirAll(promptDir, 0755)
	os.WriteFile(filepath.Join(promptDir, "bad.json"), []byte(`{"user_prompt_template":"{{.Name"}`), 0644)

	if err := loadFS(NewRegistry(), os.DirFS(dir), "."); err == nil {
		t.Error("expected template parse error")
	}
}
