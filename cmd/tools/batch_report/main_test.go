package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const draft = `{
	userId: user-1
	scheme: PMEGP
	businessName: Shakti Agro Foods
	industry: food_processing
	businessType: MANUFACTURING
	location: { city: "Nashik", state: "Maharashtra", areaType: "RURAL" }
	promoter: { name: "A. Patil", category: "SC" }
	financials: {
		fixedAssets: { landAndBuilding: 500000, machinery: 300000, furniture: 50000 }
		workingCapital: { rawMaterial: 20000, salaries: 30000, utilities: 5000 }
		revenue: { monthlyTarget: 100000, unitPrice: 500, unitsPerMonth: 200 }
		funding: { ownContribution: 210000, loanRequired: 700000 }
	}
}`

func writeDraft(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRun_FinalizesDrafts(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeDraft(t, in, "shakti.hjson", draft)
	writeDraft(t, in, "notes.txt", "ignored")

	var log bytes.Buffer
	if err := run([]string{"-in", in, "-out", out, "-years", "5"}, &log); err != nil {
		t.Fatalf("run failed: %v\n%s", err, log.String())
	}

	data, err := os.ReadFile(filepath.Join(out, "shakti.json"))
	if err != nil {
		t.Fatalf("expected finalized report: %v", err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got["status"] != "COMPLETED" {
		t.Errorf("expected COMPLETED, got %v", got["status"])
	}

	html, err := os.ReadFile(filepath.Join(out, "shakti.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(html), "<table>") {
		t.Error("expected rendered tables")
	}

	var summary []Outcome
	raw, err := os.ReadFile(filepath.Join(out, "summary.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(raw, &summary); err != nil {
		t.Fatal(err)
	}
	if len(summary) != 1 || summary[0].Error != "" || len(summary[0].Missing) != 0 {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestRun_ReportsFailures(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeDraft(t, in, "good.hjson", draft)
	writeDraft(t, in, "bad.json", strings.Replace(draft, "machinery: 300000", "machinery: -1", 1))

	var log bytes.Buffer
	err := run([]string{"-in", in, "-out", out, "-workers", "2"}, &log)
	if err == nil {
		t.Fatal("expected an error for the invalid draft")
	}
	if !strings.Contains(log.String(), "bad.json: FAILED") {
		t.Errorf("expected failure line, got %s", log.String())
	}
	if _, err := os.Stat(filepath.Join(out, "good.json")); err != nil {
		t.Errorf("valid draft should still be written: %v", err)
	}
}

func TestRun_RequiresInput(t *testing.T) {
	var log bytes.Buffer
	if err := run(nil, &log); !errors.Is(err, errUsage) {
		t.Errorf("expected usage error, got %v", err)
	}
}

func TestRun_RejectsPathIDs(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "in")
	out := filepath.Join(root, "out")
	if err := os.Mkdir(in, 0755); err != nil {
		t.Fatal(err)
	}
	writeDraft(t, in, "escape.hjson", strings.Replace(draft, "userId: user-1", "id: ../escaped\n\tuserId: user-1", 1))

	var log bytes.Buffer
	if err := run([]string{"-in", in, "-out", out}, &log); err == nil {
		t.Fatal("expected an error for a path-like id")
	}
	if _, err := os.Stat(filepath.Join(root, "escaped.json")); !os.IsNotExist(err) {
		t.Errorf("report must not be written outside the output dir: %v", err)
	}
	if !strings.Contains(log.String(), "escape.hjson: FAILED") {
		t.Errorf("expected failure line, got %s", log.String())
	}
}

func TestRun_DuplicateIDs(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	withID := strings.Replace(draft, "userId: user-1", "id: shared\n\tuserId: user-1", 1)
	writeDraft(t, in, "a.hjson", withID)
	writeDraft(t, in, "b.hjson", withID)

	var log bytes.Buffer
	if err := run([]string{"-in", in, "-out", out, "-workers", "2"}, &log); err == nil {
		t.Fatal("expected an error for the duplicate id")
	}

	var summary []Outcome
	raw, err := os.ReadFile(filepath.Join(out, "summary.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(raw, &summary); err != nil {
		t.Fatal(err)
	}
	if len(summary) != 2 {
		t.Fatalf("expected 2 outcomes, got %+v", summary)
	}
	if summary[0].Error != "" || summary[0].Status != "COMPLETED" {
		t.Errorf("first draft should succeed, got %+v", summary[0])
	}
	if !strings.Contains(summary[1].Error, "duplicate id") {
		t.Errorf("second draft should fail as duplicate, got %+v", summary[1])
	}
	if _, err := os.Stat(filepath.Join(out, "shared.json")); err != nil {
		t.Errorf("expected the first draft to be written: %v", err)
	}
}
