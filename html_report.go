package main

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// BuildMarkdownReport renders a calculation as a Markdown document.
// requested is what the user asked for before any rebalancing.
func BuildMarkdownReport(ty TaxYearConstants, requested Inputs, calc Calculation, generatedAt time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Business Owner Tax Calculation (%s)\n\n", ty.Label)
	fmt.Fprintf(&b, "_Generated %s_\n\n", generatedAt.Format("2 January 2006 15:04"))

	b.WriteString("## Inputs\n\n")
	b.WriteString("| Item | Amount |\n|---|---:|\n")
	for _, line := range InputLines(calc.Inputs) {
		if line.Label == "Working Days" {
			fmt.Fprintf(&b, "| %s | %.0f |\n", line.Label, line.Amount)
			continue
		}
		fmt.Fprintf(&b, "| %s | %s |\n", line.Label, FormatMoney(line.Amount))
	}
	b.WriteString("\n")

	if notes := RebalanceNotes(requested, calc.Inputs); calc.Rebalanced && len(notes) > 0 {
		b.WriteString("> **Inputs were rebalanced** so that allocations fit within gross profit and dividends within net profit:\n")
		for _, note := range notes {
			fmt.Fprintf(&b, "> - %s\n", note)
		}
		b.WriteString("\n")
	}

	for _, section := range ResultSections(calc.Results) {
		fmt.Fprintf(&b, "## %s\n\n", section.Title)
		b.WriteString("| Item | Amount |\n|---|---:|\n")
		for _, line := range section.Lines {
			fmt.Fprintf(&b, "| %s | %s |\n", line.Label, FormatMoney(line.Amount))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Tax Year Assumptions\n\n")
	ct := ty.CorporationTax
	fmt.Fprintf(&b, "- Corporation tax: %s up to %s, %s above %s, marginal relief fraction %s\n",
		formatPercent(ct.SmallRate), FormatMoneyShort(ct.LowerLimit),
		formatPercent(ct.MainRate), FormatMoneyShort(ct.UpperLimit), formatPercent(ct.MarginalReliefFraction))
	it := ty.IncomeTax
	fmt.Fprintf(&b, "- Income tax: personal allowance %s, basic band %s at %s, higher rate %s up to %s, then %s\n",
		FormatMoneyShort(it.PersonalAllowance), FormatMoneyShort(it.BasicRateLimit), formatPercent(it.BasicRate),
		formatPercent(it.HigherRate), FormatMoneyShort(it.HigherRateLimit), formatPercent(it.AdditionalRate))
	dt := ty.DividendTax
	fmt.Fprintf(&b, "- Dividend tax: %s / %s / %s, stacked on top of taxable salary\n",
		formatPercent(dt.BasicRate), formatPercent(dt.HigherRate), formatPercent(dt.AdditionalRate))
	ni := ty.NationalInsurance
	fmt.Fprintf(&b, "- Employee NI: %s between %s and %s, %s above\n",
		formatPercent(ni.MainRate), FormatMoneyShort(ni.PrimaryThreshold),
		FormatMoneyShort(ni.UpperEarningsLimit), formatPercent(ni.UpperRate))

	return b.String()
}

// markdownRenderer converts report Markdown (with GFM tables) to HTML
var markdownRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTMLReport returns a standalone HTML page for a calculation
func RenderHTMLReport(ty TaxYearConstants, requested Inputs, calc Calculation, generatedAt time.Time) ([]byte, error) {
	markdown := BuildMarkdownReport(ty, requested, calc, generatedAt)

	var body bytes.Buffer
	if err := markdownRenderer.Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}

	var page bytes.Buffer
	fmt.Fprintf(&page, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<title>Tax Calculation %s</title>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 760px; margin: 2em auto; color: #222; }
h1 { color: #2c3e50; border-bottom: 3px solid #3498db; padding-bottom: 0.3em; }
h2 { color: #34495e; margin-top: 1.6em; }
table { border-collapse: collapse; width: 100%%; }
th, td { padding: 6px 10px; border-bottom: 1px solid #e0e0e0; }
th { background: #f5f7fa; text-align: left; }
td:last-child { text-align: right; font-variant-numeric: tabular-nums; }
blockquote { background: #fff8e1; border-left: 4px solid #f39c12; margin: 1em 0; padding: 0.5em 1em; }
</style>
</head>
<body>
`, html.EscapeString(ty.Label))
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")

	return page.Bytes(), nil
}

// GenerateHTMLReport writes the HTML report to filename
func GenerateHTMLReport(ty TaxYearConstants, requested Inputs, calc Calculation, filename string) error {
	content, err := RenderHTMLReport(ty, requested, calc, time.Now())
	if err != nil {
		return err
	}
	return os.WriteFile(filename, content, 0644)
}

// GenerateMarkdownReport writes the Markdown report to filename
func GenerateMarkdownReport(ty TaxYearConstants, requested Inputs, calc Calculation, filename string) error {
	return os.WriteFile(filename, []byte(BuildMarkdownReport(ty, requested, calc, time.Now())), 0644)
}
