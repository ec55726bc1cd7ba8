package report

import (
	"fmt"
	"math"
	"strings"

	"dpr_engine/pkg/core/calc"
	"dpr_engine/pkg/core/scheme"
	"dpr_engine/pkg/core/utils"

	"github.com/PuerkitoBio/goquery"
)

// section renders the body of one mandatory table
type section func(b *strings.Builder, r *ProjectReport)

// sectionFor matches a mandatory table title to its renderer
func sectionFor(title string) section {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "means of finance"):
		return writeProjectCost
	case strings.Contains(t, "raw material"):
		return writeRawMaterial
	case strings.Contains(t, "manpower"):
		return writeManpower
	case strings.Contains(t, "power") || strings.Contains(t, "utility"):
		return writeUtilities
	case strings.Contains(t, "p&l"):
		return writeProjection
	case strings.Contains(t, "dscr"):
		return writeDSCR
	case strings.Contains(t, "break-even"):
		return writeBreakEven
	}
	return nil
}

// RenderMarkdown renders the report with one level-2 heading per mandatory
// table of its scheme. The report must be finalized.
func RenderMarkdown(r *ProjectReport, rules scheme.Rules) (string, error) {
	if r.Analysis == nil {
		return "", fmt.Errorf("%w: report %s has no financial analysis", ErrInvalidReport, r.ID)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Detailed Project Report: %s\n\n", orDash(r.BusinessName))
	fmt.Fprintf(&b, "- **Scheme:** %s (%s)\n", rules.FullName, rules.ID)
	fmt.Fprintf(&b, "- **Industry:** %s\n", orDash(r.Industry))
	fmt.Fprintf(&b, "- **Location:** %s, %s (%s)\n", orDash(r.Location.City), orDash(r.Location.State), r.Location.AreaType)
	fmt.Fprintf(&b, "- **Promoter:** %s, category %s\n", orDash(r.Promoter.Name), r.Promoter.Category)
	fmt.Fprintf(&b, "- **Status:** %s\n\n", r.Status)

	writeNarrative(&b, "Executive Summary", r.Content.ExecutiveSummary)
	writeNarrative(&b, "Business Concept", r.Content.BusinessConcept)
	writeNarrative(&b, "Market Analysis", r.Content.MarketAnalysis)

	for _, title := range rules.MandatoryTables {
		fmt.Fprintf(&b, "## %s\n\n", title)
		if render := sectionFor(title); render != nil {
			render(&b, r)
		} else {
			b.WriteString("_Not available for this report._\n\n")
		}
	}

	if len(r.Analysis.Issues) > 0 {
		b.WriteString("## Review Notes\n\n")
		for _, i := range r.Analysis.Issues {
			fmt.Fprintf(&b, "- **%s** `%s`: %s\n", i.Severity, i.Field, i.Message)
		}
		b.WriteString("\n")
	}

	return b.String(), nil
}

// RenderHTML renders the report Markdown to HTML
func RenderHTML(r *ProjectReport, rules scheme.Rules) (string, error) {
	md, err := RenderMarkdown(r, rules)
	if err != nil {
		return "", err
	}
	return utils.RenderHTML(md)
}

// VerifyMandatorySections returns the mandatory tables missing from a rendered
// HTML report. Headings are compared by their text content.
func VerifyMandatorySections(html string, rules scheme.Rules) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse report HTML: %w", err)
	}

	present := make(map[string]bool)
	doc.Find("h2").Each(func(_ int, s *goquery.Selection) {
		heading := strings.TrimSpace(s.Text())
		if s.NextUntil("h2").Filter("table").Length() > 0 {
			present[heading] = true
		}
	})

	var missing []string
	for _, title := range rules.MandatoryTables {
		if !present[title] {
			missing = append(missing, title)
		}
	}
	return missing, nil
}

// =============================================================================
// SECTIONS
// =============================================================================

func writeNarrative(b *strings.Builder, title, body string) {
	body = utils.CleanMarkdown(body)
	if body == "" {
		return
	}
	fmt.Fprintf(b, "## %s\n\n%s\n\n", title, body)
}

func writeProjectCost(b *strings.Builder, r *ProjectReport) {
	s := r.Financials
	a := r.Analysis
	wcMonths := a.Assumptions.WorkingCapitalMonths

	b.WriteString("| Particulars | Amount (₹) |\n|---|---:|\n")
	fmt.Fprintf(b, "| Land & Building | %s |\n", formatINR(s.FixedAssets.LandAndBuilding))
	fmt.Fprintf(b, "| Plant & Machinery | %s |\n", formatINR(s.FixedAssets.Machinery))
	fmt.Fprintf(b, "| Furniture & Fixtures | %s |\n", formatINR(s.FixedAssets.Furniture))
	fmt.Fprintf(b, "| Other Assets | %s |\n", formatINR(s.FixedAssets.OtherAssets))
	fmt.Fprintf(b, "| Working Capital (%g months raw material) | %s |\n", wcMonths, formatINR(s.WorkingCapital.RawMaterial*wcMonths))
	fmt.Fprintf(b, "| **Total Project Cost** | **%s** |\n\n", formatINR(a.Ratios.TotalProjectCost))

	b.WriteString("| Means of Finance | Amount (₹) |\n|---|---:|\n")
	if m := a.MeansOfFinance; m != nil {
		fmt.Fprintf(b, "| Own Contribution (%g%%) | %s |\n", m.OwnContributionPercent, formatINR(m.OwnContribution))
		fmt.Fprintf(b, "| Bank Loan | %s |\n", formatINR(m.BankLoan))
		fmt.Fprintf(b, "| Margin Money Subsidy (%g%%) | %s |\n\n", m.SubsidyPercent, formatINR(m.Subsidy))
		return
	}
	fmt.Fprintf(b, "| Own Contribution | %s |\n", formatINR(s.Funding.OwnContribution))
	fmt.Fprintf(b, "| Bank Loan | %s |\n", formatINR(s.Funding.LoanRequired))
	if a.MudraTier != nil {
		fmt.Fprintf(b, "| MUDRA Tier | %s (limit %s) |\n", a.MudraTier.Tier, formatINR(a.MudraTier.MaxLimit))
	}
	b.WriteString("\n")
}

func writeRawMaterial(b *strings.Builder, r *ProjectReport) {
	b.WriteString("| Year | Sales (₹) | Raw Material (₹) |\n|---:|---:|---:|\n")
	for _, row := range r.Analysis.Projection {
		fmt.Fprintf(b, "| %d | %s | %s |\n", row.Year, formatINR(row.Sales), formatINR(row.RawMaterials))
	}
	b.WriteString("\n")
}

func writeManpower(b *strings.Builder, r *ProjectReport) {
	b.WriteString("| Role | Count | Monthly Salary (₹) | Annual (₹) |\n|---|---:|---:|---:|\n")
	if len(r.Content.ManpowerRequirement) == 0 {
		monthly := r.Financials.WorkingCapital.Salaries
		fmt.Fprintf(b, "| All staff | - | %s | %s |\n\n", formatINR(monthly), formatINR(monthly*12))
		return
	}
	for _, m := range r.Content.ManpowerRequirement {
		total := m.Salary * float64(m.Count)
		fmt.Fprintf(b, "| %s | %d | %s | %s |\n", m.Role, m.Count, formatINR(total), formatINR(total*12))
	}
	b.WriteString("\n")
}

func writeUtilities(b *strings.Builder, r *ProjectReport) {
	monthly := r.Financials.WorkingCapital.Utilities
	b.WriteString("| Particulars | Monthly (₹) | Annual (₹) |\n|---|---:|---:|\n")
	fmt.Fprintf(b, "| Power & Utilities | %s | %s |\n\n", formatINR(monthly), formatINR(monthly*12))
}

func writeProjection(b *strings.Builder, r *ProjectReport) {
	b.WriteString("| Year | Sales | EBITA | Interest | Depreciation | PBT | Tax | PAT | Current Ratio |\n")
	b.WriteString("|---:|---:|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, row := range r.Analysis.Projection {
		fmt.Fprintf(b, "| %d | %s | %s | %s | %s | %s | %s | %s | %.2f |\n",
			row.Year, formatINR(row.Sales), formatINR(row.EBITA), formatINR(row.Interest),
			formatINR(row.Depreciation), formatINR(row.PBT), formatINR(row.Tax), formatINR(row.PAT),
			row.CurrentRatio)
	}
	b.WriteString("\n")
}

func writeDSCR(b *strings.Builder, r *ProjectReport) {
	b.WriteString("| Year | DSCR | Trend |\n|---:|---:|---:|\n")
	for _, row := range r.Analysis.Projection {
		fmt.Fprintf(b, "| %d | %s | %.2f |\n", row.Year, formatMetric(row.DSCR), row.DSCRTrend)
	}
	fmt.Fprintf(b, "\nEstimated single-point DSCR: **%s**\n\n", formatMetric(r.Analysis.Ratios.DSCR))
}

func writeBreakEven(b *strings.Builder, r *ProjectReport) {
	ratios := r.Analysis.Ratios
	b.WriteString("| Metric | Value |\n|---|---:|\n")
	fmt.Fprintf(b, "| Break-even units per year | %s |\n", formatMetric(ratios.BEP))
	fmt.Fprintf(b, "| Return on investment (%%) | %s |\n\n", formatMetric(ratios.ROI))
}

// =============================================================================
// FORMATTING
// =============================================================================

func formatMetric(m calc.Metric) string {
	if !m.Defined {
		return "n/a (" + m.Message() + ")"
	}
	return fmt.Sprintf("%.2f", m.Value)
}

// formatINR renders a whole-rupee amount with Indian digit grouping (12,34,567)
func formatINR(v float64) string {
	n := int64(math.Abs(calc.RoundWhole(v)))
	digits := fmt.Sprintf("%d", n)

	var out string
	if len(digits) <= 3 {
		out = digits
	} else {
		out = digits[len(digits)-3:]
		rest := digits[:len(digits)-3]
		for len(rest) > 2 {
			out = rest[len(rest)-2:] + "," + out
			rest = rest[:len(rest)-2]
		}
		out = rest + "," + out
	}
	if v < 0 && n != 0 {
		out = "-" + out
	}
	return out
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
