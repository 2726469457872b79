package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatMoney formats an amount to two decimal places with thousands
// separators, rounding half away from zero (e.g. £12,345.68)
func FormatMoney(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "n/a"
	}
	s := formatAmount(amount)
	if strings.HasPrefix(s, "-") {
		return "-£" + s[1:]
	}
	return "£" + s
}

// formatAmount is FormatMoney without the currency sign
func formatAmount(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "n/a"
	}
	fixed := decimal.NewFromFloat(amount).Round(2).StringFixed(2)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}
	whole, frac, _ := strings.Cut(fixed, ".")
	if sign == "-" && strings.Trim(whole+frac, "0") == "" {
		sign = ""
	}

	var b strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}
	return sign + b.String() + "." + frac
}

// FormatMoneyShort formats a float as an abbreviated currency string
func FormatMoneyShort(amount float64) string {
	if amount >= 1000000 {
		return fmt.Sprintf("£%.2fM", amount/1000000)
	}
	if amount >= 1000 {
		return fmt.Sprintf("£%.0fk", amount/1000)
	}
	return fmt.Sprintf("£%.0f", amount)
}

// formatPercent formats a decimal rate as a percentage
func formatPercent(rate float64) string {
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(rate*100).Round(2).String() + "%"
}

// ResultLine is one labelled figure in a report section
type ResultLine struct {
	Label  string
	Amount float64
}

// ReportSection groups result lines under a heading, in display order
type ReportSection struct {
	Title string
	Lines []ResultLine
}

// InputLines lists the inputs in the order they are edited
func InputLines(in Inputs) []ResultLine {
	return []ResultLine{
		{"Daily Rate", in.Rate},
		{"Working Days", in.Days},
		{"Gross Profit", in.GrossProfit()},
		{"Expenses", in.Expense},
		{"Employer NIC", in.EmployerNI},
		{"Payout Salary", in.Salary},
		{"Employer Pension", in.Pension},
		{"Dividend Payout", in.Dividend},
		{"Dividend Allowance", in.DividendAllowance},
	}
}

// ResultSections arranges results the way every report shows them
func ResultSections(res Results) []ReportSection {
	return []ReportSection{
		{
			Title: "Calculated Values",
			Lines: []ResultLine{
				{"Profit", res.Profit},
				{"Corporation Tax", res.CorporationTax},
				{"Net Profit", res.NetProfit},
				{"Dividends", res.Dividend},
				{"Left in Business", res.LeftInBusiness},
			},
		},
		{
			Title: "Pocket Money",
			Lines: []ResultLine{
				{"Salary (after tax)", res.SalaryAfterTax},
				{"Dividends (after tax)", res.DividendsAfterTax},
				{"Total Pocket Money", res.PocketMoney},
			},
		},
		{
			Title: "Taxes",
			Lines: []ResultLine{
				{"Total Money Kept", res.TotalMoneyKept},
				{"Corporation Tax", res.CorporationTax},
				{"Personal Dividend Tax", res.PersonalDividendTax},
				{"Personal Salary Tax", res.PersonalSalaryTax},
				{"Employee NI", res.EmployeeNI},
				{"Employer NI", res.EmployerNI},
				{"Taxes Paid", res.MoneyLostToTaxes},
			},
		},
	}
}

// DisplayValues returns every result figure formatted to two decimals,
// keyed the same way as the JSON results
func DisplayValues(res Results) map[string]string {
	return map[string]string{
		"gross_profit":          FormatMoney(res.GrossProfit),
		"profit":                FormatMoney(res.Profit),
		"corporation_tax":       FormatMoney(res.CorporationTax),
		"net_profit":            FormatMoney(res.NetProfit),
		"left_in_business":      FormatMoney(res.LeftInBusiness),
		"taxable_salary":        FormatMoney(res.TaxableSalary),
		"personal_salary_tax":   FormatMoney(res.PersonalSalaryTax),
		"employee_ni":           FormatMoney(res.EmployeeNI),
		"personal_dividend_tax": FormatMoney(res.PersonalDividendTax),
		"salary_after_tax":      FormatMoney(res.SalaryAfterTax),
		"dividends_after_tax":   FormatMoney(res.DividendsAfterTax),
		"pocket_money":          FormatMoney(res.PocketMoney),
		"total_money_kept":      FormatMoney(res.TotalMoneyKept),
		"money_lost_to_taxes":   FormatMoney(res.MoneyLostToTaxes),
		"expense":               FormatMoney(res.Expense),
		"salary":                FormatMoney(res.Salary),
		"employer_ni":           FormatMoney(res.EmployerNI),
		"pension":               FormatMoney(res.Pension),
		"dividend":              FormatMoney(res.Dividend),
		"dividend_allowance":    FormatMoney(res.DividendAllowance),
	}
}

// RebalanceNotes describes which inputs the rebalancer changed
func RebalanceNotes(requested, applied Inputs) []string {
	var notes []string
	check := func(name string, before, after float64) {
		if before != after {
			notes = append(notes, fmt.Sprintf("%s reduced from %s to %s", name, FormatMoney(before), FormatMoney(after)))
		}
	}
	check("Expenses", requested.Expense, applied.Expense)
	check("Employer NIC", requested.EmployerNI, applied.EmployerNI)
	check("Salary", requested.Salary, applied.Salary)
	check("Pension", requested.Pension, applied.Pension)
	check("Dividend", requested.Dividend, applied.Dividend)
	return notes
}

// PrintHeader prints the report header
func PrintHeader(w io.Writer, ty TaxYearConstants) {
	fmt.Fprintln(w, "╔══════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(w, "║              BUSINESS OWNER TAKE-HOME CALCULATOR             ║")
	fmt.Fprintln(w, "╚══════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Tax year %s: CT %s/%s (marginal relief %s-%s), PA %s, dividend allowance %s\n",
		ty.Label,
		formatPercent(ty.CorporationTax.SmallRate), formatPercent(ty.CorporationTax.MainRate),
		FormatMoneyShort(ty.CorporationTax.LowerLimit), FormatMoneyShort(ty.CorporationTax.UpperLimit),
		FormatMoneyShort(ty.IncomeTax.PersonalAllowance), FormatMoneyShort(ty.DividendTax.Allowance))
	fmt.Fprintln(w)
}

// PrintCalculation prints inputs, any rebalancing and every result section
func PrintCalculation(w io.Writer, requested Inputs, calc Calculation) {
	fmt.Fprintln(w, "Inputs:")
	fmt.Fprintln(w, "───────")
	for _, line := range InputLines(calc.Inputs) {
		if line.Label == "Working Days" {
			fmt.Fprintf(w, "  %-24s %16.0f\n", line.Label, line.Amount)
			continue
		}
		fmt.Fprintf(w, "  %-24s %16s\n", line.Label, FormatMoney(line.Amount))
	}

	if notes := RebalanceNotes(requested, calc.Inputs); calc.Rebalanced && len(notes) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Rebalanced to keep allocations within profit:")
		for _, note := range notes {
			fmt.Fprintf(w, "  ! %s\n", note)
		}
	}

	for _, section := range ResultSections(calc.Results) {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s:\n", section.Title)
		fmt.Fprintln(w, strings.Repeat("─", len(section.Title)+1))
		for _, line := range section.Lines {
			fmt.Fprintf(w, "  %-24s %16s\n", line.Label, FormatMoney(line.Amount))
		}
	}
	fmt.Fprintln(w)
}

// PrintOptimization prints the optimiser's best candidate and a coarse sweep
func PrintOptimization(w io.Writer, opt OptimizationResult) {
	fmt.Fprintf(w, "Optimisation (%s), %d salary levels evaluated:\n", opt.Goal, opt.Evaluated)
	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintf(w, "  %12s %12s %14s %14s\n", "Salary", "Dividend", "Pocket Money", "Taxes Paid")

	stride := len(opt.Sweep)/12 + 1
	for i, c := range opt.Sweep {
		if i%stride != 0 && i != len(opt.Sweep)-1 {
			continue
		}
		fmt.Fprintf(w, "  %12s %12s %14s %14s\n",
			FormatMoneyShort(c.Inputs.Salary), FormatMoneyShort(c.Inputs.Dividend),
			FormatMoney(c.Results.PocketMoney), FormatMoney(c.Results.MoneyLostToTaxes))
	}
	fmt.Fprintln(w, strings.Repeat("─", 60))
	fmt.Fprintf(w, "  Best: salary %s, dividend %s -> pocket money %s, taxes %s\n\n",
		FormatMoney(opt.Best.Inputs.Salary), FormatMoney(opt.Best.Inputs.Dividend),
		FormatMoney(opt.Best.Results.PocketMoney), FormatMoney(opt.Best.Results.MoneyLostToTaxes))
}
