package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dpr_engine/pkg/core/scheme"
)

const snapshot = `{
	fixedAssets: { landAndBuilding: 500000, machinery: 300000, furniture: 50000 }
	workingCapital: { rawMaterial: 20000, salaries: 30000, utilities: 5000 }
	revenue: { monthlyTarget: 100000, unitPrice: 500, unitsPerMonth: 200 }
	funding: { ownContribution: 210000, loanRequired: 700000 }
}`

func TestRun_Ratios(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"-mode", "ratios", "-data", snapshot}, &out); err != nil {
		t.Fatal(err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["totalProjectCost"] != 910000.0 {
		t.Errorf("expected 910000, got %v", got["totalProjectCost"])
	}
}

func TestRun_ProjectionFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.hjson")
	if err := os.WriteFile(path, []byte(snapshot), 0644); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	if err := run([]string{"-mode", "projection", "-file", path, "-years", "5"}, &out); err != nil {
		t.Fatal(err)
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(out.Bytes(), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 5 {
		t.Errorf("expected 5 rows, got %d", len(rows))
	}
}

func TestRun_Subsidy(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"-mode", "subsidy", "-category", "SC", "-area", "RURAL", "-cost", "1000000"}, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), `"netLoanAfterSubsidy": 600000`) {
		t.Errorf("unexpected output %s", out.String())
	}

	if err := run([]string{"-mode", "subsidy", "-category", "VIP", "-area", "RURAL"}, &out); !errors.Is(err, scheme.ErrInvalidCategory) {
		t.Errorf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestRun_Check(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"-mode", "check", "-data", snapshot}, &out); err != nil {
		t.Fatalf("clean snapshot should pass: %v", err)
	}

	bad := strings.Replace(snapshot, "machinery: 300000", "machinery: -1", 1)
	out.Reset()
	if err := run([]string{"-mode", "check", "-data", bad}, &out); err == nil {
		t.Error("expected check failure")
	}
	if !strings.Contains(out.String(), "fixedAssets.machinery") {
		t.Errorf("expected issue in output, got %s", out.String())
	}
}

func TestRun_Usage(t *testing.T) {
	var out bytes.Buffer
	if err := run([]string{"-mode", "ratios"}, &out); !errors.Is(err, errUsage) {
		t.Errorf("expected usage error, got %v", err)
	}
	if err := run([]string{"-mode", "explode", "-data", "{}"}, &out); !errors.Is(err, errUsage) {
		t.Errorf("expected usage error for unknown mode, got %v", err)
	}
}
