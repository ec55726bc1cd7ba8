package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"dpr_engine/pkg/core/assumption"
	"dpr_engine/pkg/core/calc"
	"dpr_engine/pkg/core/projection"
	"dpr_engine/pkg/core/scheme"
	"dpr_engine/pkg/core/subsidy"
	"dpr_engine/pkg/core/utils"
	"dpr_engine/pkg/core/validate"

	"github.com/joho/godotenv"
)

var errUsage = errors.New("usage")

func main() {
	godotenv.Load()
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("calc-engine", flag.ContinueOnError)
	mode := fs.String("mode", "ratios", "Mode: ratios, projection, subsidy or check")
	dataStr := fs.String("data", "", "Financial snapshot as JSON or Hjson")
	file := fs.String("file", "", "Read the snapshot from a file instead of -data")
	years := fs.Int("years", projection.DefaultYears, "Projection years")
	category := fs.String("category", "", "Promoter category (subsidy mode)")
	area := fs.String("area", "", "Area type RURAL or URBAN (subsidy mode)")
	cost := fs.Float64("cost", 0, "Project cost for means of finance (subsidy mode)")
	industry := fs.String("industry", "", "Industry preset for assumptions")
	overrides := fs.String("assumptions", os.Getenv("DPR_ASSUMPTIONS_FILE"), "Hjson assumption overrides file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *mode == "subsidy" {
		return runSubsidy(out, *category, *area, *cost)
	}

	snap, err := readSnapshot(*dataStr, *file)
	if err != nil {
		return err
	}
	a := assumption.Preset(*industry)
	if *overrides != "" {
		if a, err = assumption.LoadOverrides(a, *overrides); err != nil {
			return err
		}
	}

	switch *mode {
	case "ratios":
		return writeJSON(out, calc.CalculateBankingRatiosWith(snap, a))
	case "projection":
		rows, err := projection.NewProjectionEngine(a).Generate(snap, *years)
		if err != nil {
			return err
		}
		return writeJSON(out, rows)
	case "check":
		issues := validate.Snapshot(snap)
		ratios := calc.CalculateBankingRatiosWith(snap, a)
		issues = append(issues, validate.MeansOfFinance(snap, ratios.TotalProjectCost, 0.05)...)
		if err := writeJSON(out, issues); err != nil {
			return err
		}
		if validate.HasErrors(issues) {
			return fmt.Errorf("snapshot has %d issue(s)", len(issues))
		}
		return nil
	}
	return fmt.Errorf("%w: unknown mode %q", errUsage, *mode)
}

func readSnapshot(data, file string) (calc.FinancialSnapshot, error) {
	var raw []byte
	switch {
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return calc.FinancialSnapshot{}, err
		}
		raw = b
	case data != "":
		raw = []byte(data)
	default:
		return calc.FinancialSnapshot{}, fmt.Errorf("%w: no data provided (-data or -file)", errUsage)
	}

	var snap calc.FinancialSnapshot
	if err := utils.DecodeLenient(raw, &snap); err != nil {
		return calc.FinancialSnapshot{}, fmt.Errorf("invalid snapshot: %w", err)
	}
	return snap, nil
}

func runSubsidy(out io.Writer, category, area string, cost float64) error {
	c, err := scheme.ParseCategory(category)
	if err != nil {
		return err
	}
	at, err := scheme.ParseAreaType(area)
	if err != nil {
		return err
	}
	if cost > 0 {
		fin, err := subsidy.NewCalculator(nil).MeansOfFinance(cost, c, at)
		if err != nil {
			return err
		}
		return writeJSON(out, fin)
	}
	res, err := subsidy.CalculateSubsidy(c, at)
	if err != nil {
		return err
	}
	return writeJSON(out, res)
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
