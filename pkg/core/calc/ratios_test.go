package calc

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"dpr_engine/pkg/core/assumption"
)

func sampleSnapshot() FinancialSnapshot {
	return FinancialSnapshot{
		FixedAssets: FixedAssets{
			LandAndBuilding: 500000,
			Machinery:       300000,
			Furniture:       50000,
			OtherAssets:     0,
		},
		WorkingCapital: WorkingCapital{
			RawMaterial: 20000,
			Salaries:    30000,
			Utilities:   5000,
		},
		Revenue: Revenue{
			MonthlyTarget: 100000,
			UnitPrice:     500,
			UnitsPerMonth: 200,
		},
		Funding: Funding{
			OwnContribution: 210000,
			LoanRequired:    700000,
		},
	}
}

func TestTotalProjectCost_Scenario(t *testing.T) {
	r := CalculateBankingRatios(sampleSnapshot())
	// 500000 + 300000 + 50000 + 0 + 20000 × 3
	if r.TotalProjectCost != 910000 {
		t.Errorf("expected total project cost 910000, got %.2f", r.TotalProjectCost)
	}
}

func TestCalculateBankingRatios(t *testing.T) {
	r := CalculateBankingRatios(sampleSnapshot())

	if r.AnnualRevenue != 1200000 {
		t.Errorf("expected annual revenue 1200000, got %.2f", r.AnnualRevenue)
	}
	if r.AnnualNetProfit != 240000 {
		t.Errorf("expected annual net profit 240000, got %.2f", r.AnnualNetProfit)
	}
	// 240000 / (700000 / 5) = 1.714...
	if !r.DSCR.Defined || r.DSCR.Value != 1.71 {
		t.Errorf("expected DSCR 1.71, got %+v", r.DSCR)
	}
	// 360000 / (500 × 0.6) = 1200
	if !r.BEP.Defined || r.BEP.Value != 1200 {
		t.Errorf("expected BEP 1200, got %+v", r.BEP)
	}
	// 240000 / 910000 × 100 = 26.37
	if !r.ROI.Defined || r.ROI.Value != 26.37 {
		t.Errorf("expected ROI 26.37, got %+v", r.ROI)
	}
}

func TestCalculateBankingRatios_Deterministic(t *testing.T) {
	s := sampleSnapshot()
	first := CalculateBankingRatios(s)
	second := CalculateBankingRatios(s)
	if first != second {
		t.Errorf("expected identical output, got %+v and %+v", first, second)
	}
	if s != sampleSnapshot() {
		t.Error("snapshot was mutated")
	}
}

func TestTotalProjectCost_Monotonic(t *testing.T) {
	a := assumption.Default()
	base := TotalProjectCost(sampleSnapshot(), a)

	bumps := map[string]func(*FinancialSnapshot){
		"landAndBuilding": func(s *FinancialSnapshot) { s.FixedAssets.LandAndBuilding += 1000 },
		"machinery":       func(s *FinancialSnapshot) { s.FixedAssets.Machinery += 1000 },
		"furniture":       func(s *FinancialSnapshot) { s.FixedAssets.Furniture += 1000 },
		"otherAssets":     func(s *FinancialSnapshot) { s.FixedAssets.OtherAssets += 1000 },
		"rawMaterial":     func(s *FinancialSnapshot) { s.WorkingCapital.RawMaterial += 1000 },
	}
	for name, bump := range bumps {
		s := sampleSnapshot()
		bump(&s)
		if got := TotalProjectCost(s, a); got < base {
			t.Errorf("%s: project cost decreased from %.2f to %.2f", name, base, got)
		}
	}
}

func TestCalculateBankingRatios_NoLoan(t *testing.T) {
	s := sampleSnapshot()
	s.Funding.LoanRequired = 0

	r := CalculateBankingRatios(s)
	if r.DSCR.Defined {
		t.Fatalf("expected undefined DSCR, got %.2f", r.DSCR.Value)
	}
	if r.DSCR.Reason != ReasonNoLoan {
		t.Errorf("expected reason %s, got %s", ReasonNoLoan, r.DSCR.Reason)
	}
	if !errors.Is(r.DSCR.Err(), ErrNoLoan) {
		t.Errorf("expected ErrNoLoan, got %v", r.DSCR.Err())
	}
	if math.IsInf(r.DSCR.Value, 0) || math.IsNaN(r.DSCR.Value) {
		t.Error("non-finite value leaked into DSCR")
	}
}

func TestCalculateBankingRatios_NoRepaymentTerm(t *testing.T) {
	a := assumption.Default()
	a.RatioRepaymentYears = 0

	r := CalculateBankingRatiosWith(sampleSnapshot(), a)
	if r.DSCR.Defined {
		t.Fatalf("expected undefined DSCR without a repayment term, got %.2f", r.DSCR.Value)
	}
	if r.DSCR.Reason != ReasonNoDebtService {
		t.Errorf("expected reason %s, got %s", ReasonNoDebtService, r.DSCR.Reason)
	}
}

func TestCalculateBankingRatios_BreakEvenUndefined(t *testing.T) {
	for _, price := range []float64{0, -10} {
		s := sampleSnapshot()
		s.Revenue.UnitPrice = price

		r := CalculateBankingRatios(s)
		if r.BEP.Defined {
			t.Errorf("price %.0f: expected undefined BEP, got %.2f", price, r.BEP.Value)
		}
		if !errors.Is(r.BEP.Err(), ErrBreakEvenUndefined) {
			t.Errorf("price %.0f: expected ErrBreakEvenUndefined, got %v", price, r.BEP.Err())
		}
	}
}

func TestCalculateBankingRatios_VariableCostAtPrice(t *testing.T) {
	a := assumption.Default()
	a.VariableCostRatio = 0.999999999
	s := sampleSnapshot()
	r := CalculateBankingRatiosWith(s, a)
	if !r.BEP.Defined || r.BEP.Value <= 0 {
		t.Errorf("expected positive BEP for tiny contribution, got %+v", r.BEP)
	}
}

func TestCalculateBankingRatios_ZeroProjectCost(t *testing.T) {
	r := CalculateBankingRatios(FinancialSnapshot{
		Revenue: Revenue{MonthlyTarget: 10000, UnitPrice: 100},
		Funding: Funding{LoanRequired: 5000},
	})
	if r.ROI.Defined {
		t.Fatalf("expected undefined ROI, got %.2f", r.ROI.Value)
	}
	if !errors.Is(r.ROI.Err(), ErrZeroProjectCost) {
		t.Errorf("expected ErrZeroProjectCost, got %v", r.ROI.Err())
	}
}

func TestMetricJSON(t *testing.T) {
	data, err := json.Marshal(Defined(1.714))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"value":1.71}` {
		t.Errorf("unexpected defined JSON: %s", data)
	}

	data, _ = json.Marshal(Undefined(ReasonNoLoan))
	if !strings.Contains(string(data), `"value":null`) || !strings.Contains(string(data), `"reason":"NO_LOAN"`) {
		t.Errorf("unexpected undefined JSON: %s", data)
	}

	var m Metric
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m.Defined || m.Reason != ReasonNoLoan {
		t.Errorf("expected undefined NO_LOAN metric, got %+v", m)
	}
}

func TestDefined_RejectsNonFinite(t *testing.T) {
	if m := Defined(math.Inf(1)); m.Defined || m.Reason != ReasonNotFinite {
		t.Errorf("expected NOT_FINITE, got %+v", m)
	}
	if m := Defined(math.NaN()); m.Defined {
		t.Errorf("expected NaN to be undefined, got %+v", m)
	}
}

func TestRounding(t *testing.T) {
	tests := []struct {
		in, want float64
		whole    bool
	}{
		{1.005, 1.01, false},
		{-1.005, -1.01, false},
		{2.675, 2.68, false},
		{1.714285, 1.71, false},
		{2.5, 3, true},
		{-2.5, -3, true},
		{1379999.6, 1380000, true},
	}
	for _, tt := range tests {
		var got float64
		if tt.whole {
			got = RoundWhole(tt.in)
		} else {
			got = Round2(tt.in)
		}
		if got != tt.want {
			t.Errorf("round(%v): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}
