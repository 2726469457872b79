package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// validateMoney checks if amount is non-negative and reasonable
func validateMoney(amount float64, fieldName string) error {
	if amount < 0 {
		return ValidationError{Field: fieldName, Message: "Amount cannot be negative"}
	}
	if amount > maxInputAmount {
		return ValidationError{Field: fieldName, Message: "Amount seems too large. Please check the value"}
	}
	return nil
}

// validateDays checks working days fit in a year
func validateDays(days float64, fieldName string) error {
	if days < 0 || days > maxWorkingDays {
		return ValidationError{Field: fieldName, Message: fmt.Sprintf("Days must be between 0 and %d (got %.0f)", maxWorkingDays, days)}
	}
	return nil
}

// parseMoney parses money strings like "100k", "1m", "£650", "100,000"
func parseMoney(input string) (float64, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	input = strings.TrimPrefix(input, "£")
	input = strings.ReplaceAll(input, ",", "")
	multiplier := 1.0
	if strings.HasSuffix(input, "k") {
		multiplier = 1000
		input = strings.TrimSuffix(input, "k")
	} else if strings.HasSuffix(input, "m") {
		multiplier = 1000000
		input = strings.TrimSuffix(input, "m")
	}
	val, err := strconv.ParseFloat(input, 64)
	if err != nil {
		return 0, err
	}
	return val * multiplier, nil
}

// InteractiveInputBuilder asks for each input in turn on a terminal
type InteractiveInputBuilder struct {
	reader   *bufio.Reader
	out      io.Writer
	registry *TaxYearRegistry
	defaults Inputs
}

// NewInteractiveInputBuilder creates a builder reading answers from in.
// Pressing enter keeps the value from defaults.
func NewInteractiveInputBuilder(in io.Reader, out io.Writer, registry *TaxYearRegistry, defaults Inputs) *InteractiveInputBuilder {
	return &InteractiveInputBuilder{
		reader:   bufio.NewReader(in),
		out:      out,
		registry: registry,
		defaults: defaults,
	}
}

// readLine returns the trimmed next line; io.EOF means "keep the default"
func (b *InteractiveInputBuilder) readLine() (string, bool) {
	input, err := b.reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if err != nil && input == "" {
		return "", false
	}
	return input, true
}

// promptMoney asks for a money amount with validation (accepts "100k" or "100000")
func (b *InteractiveInputBuilder) promptMoney(prompt, field string, defaultVal float64) float64 {
	for {
		fmt.Fprintf(b.out, "%s [%s]: ", prompt, formatDefaultMoney(defaultVal))
		input, ok := b.readLine()
		if !ok || input == "" {
			return defaultVal
		}
		amount, err := parseMoney(input)
		if err != nil {
			fmt.Fprintf(b.out, "  ✗ Invalid amount. Enter as '650', '60k' or '1.5m'\n")
			continue
		}
		if err := validateMoney(amount, field); err != nil {
			fmt.Fprintf(b.out, "  ✗ %s\n", err.Error())
			continue
		}
		return amount
	}
}

// promptDays asks for the number of working days
func (b *InteractiveInputBuilder) promptDays(prompt string, defaultVal float64) float64 {
	for {
		fmt.Fprintf(b.out, "%s [%.0f]: ", prompt, defaultVal)
		input, ok := b.readLine()
		if !ok || input == "" {
			return defaultVal
		}
		days, err := strconv.ParseFloat(input, 64)
		if err != nil {
			fmt.Fprintf(b.out, "  ✗ Invalid number of days\n")
			continue
		}
		if err := validateDays(days, "days"); err != nil {
			fmt.Fprintf(b.out, "  ✗ %s\n", err.Error())
			continue
		}
		return days
	}
}

// promptTaxYear asks which configured tax year to use
func (b *InteractiveInputBuilder) promptTaxYear(defaultLabel string) TaxYearConstants {
	labels := b.registry.Labels()
	for {
		fmt.Fprintf(b.out, "Tax year (%s) [%s]: ", strings.Join(labels, ", "), defaultLabel)
		input, ok := b.readLine()
		if !ok || input == "" {
			input = defaultLabel
		}
		ty, err := b.registry.Get(input)
		if err != nil {
			fmt.Fprintf(b.out, "  ✗ %s\n", err.Error())
			continue
		}
		return ty
	}
}

// Build walks through every input and returns the chosen tax year and
// the sanitized snapshot
func (b *InteractiveInputBuilder) Build(defaultTaxYear string) (TaxYearConstants, Inputs) {
	fmt.Fprintln(b.out)
	fmt.Fprintln(b.out, "╔══════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(b.out, "║                    TAKE-HOME CALCULATOR INPUTS               ║")
	fmt.Fprintln(b.out, "╚══════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(b.out, "Press enter to keep the value shown in brackets.")
	fmt.Fprintln(b.out)

	ty := b.promptTaxYear(defaultTaxYear)
	d := b.defaults

	allowance := d.DividendAllowance
	if allowance == 0 {
		allowance = ty.DividendTax.Allowance
	}

	in := Inputs{
		Rate:              b.promptMoney("Daily rate", "rate", d.Rate),
		Days:              b.promptDays("Working days in the year", d.Days),
		Expense:           b.promptMoney("Business expenses", "expense", d.Expense),
		EmployerNI:        b.promptMoney("Employer NIC", "employer_ni", d.EmployerNI),
		Pension:           b.promptMoney("Employer pension contribution", "pension", d.Pension),
		Salary:            b.promptMoney("Salary", "salary", d.Salary),
		Dividend:          b.promptMoney("Dividend payout", "dividend", d.Dividend),
		DividendAllowance: b.promptMoney("Dividend allowance", "dividend_allowance", allowance),
	}
	fmt.Fprintln(b.out)

	return ty, in.Sanitize()
}
