package main

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/hjson/hjson-go/v4"
	"gopkg.in/yaml.v3"
)

//go:embed default-config.yaml
var defaultConfigYAML string

// CorporationTaxConfig holds the small profits / main rate thresholds
type CorporationTaxConfig struct {
	LowerLimit             float64 `yaml:"lower_limit" json:"lower_limit"`                           // Small profits limit (2024/25: £50,000)
	UpperLimit             float64 `yaml:"upper_limit" json:"upper_limit"`                           // Main rate limit (2024/25: £250,000)
	SmallRate              float64 `yaml:"small_rate" json:"small_rate"`                             // Small profits rate (19%)
	MainRate               float64 `yaml:"main_rate" json:"main_rate"`                               // Main rate (25%)
	MarginalReliefFraction float64 `yaml:"marginal_relief_fraction" json:"marginal_relief_fraction"` // Standard fraction (3/200)
}

// IncomeTaxConfig holds the personal allowance and income tax bands.
// BasicRateLimit is the size of the basic band, not its upper threshold;
// HigherRateLimit is the gross income where the additional rate starts.
type IncomeTaxConfig struct {
	PersonalAllowance float64 `yaml:"personal_allowance" json:"personal_allowance"`
	BasicRateLimit    float64 `yaml:"basic_rate_limit" json:"basic_rate_limit"`
	HigherRateLimit   float64 `yaml:"higher_rate_limit" json:"higher_rate_limit"`
	BasicRate         float64 `yaml:"basic_rate" json:"basic_rate"`
	HigherRate        float64 `yaml:"higher_rate" json:"higher_rate"`
	AdditionalRate    float64 `yaml:"additional_rate" json:"additional_rate"`
}

// DividendTaxConfig holds dividend rates and the statutory allowance
type DividendTaxConfig struct {
	Allowance      float64 `yaml:"allowance" json:"allowance"` // Default for Inputs.DividendAllowance
	BasicRate      float64 `yaml:"basic_rate" json:"basic_rate"`
	HigherRate     float64 `yaml:"higher_rate" json:"higher_rate"`
	AdditionalRate float64 `yaml:"additional_rate" json:"additional_rate"`
}

// NationalInsuranceConfig holds employee Class 1 thresholds (annual)
type NationalInsuranceConfig struct {
	PrimaryThreshold   float64 `yaml:"primary_threshold" json:"primary_threshold"`
	UpperEarningsLimit float64 `yaml:"upper_earnings_limit" json:"upper_earnings_limit"`
	MainRate           float64 `yaml:"main_rate" json:"main_rate"`   // Between PT and UEL
	UpperRate          float64 `yaml:"upper_rate" json:"upper_rate"` // Above UEL
}

// TaxYearConstants is the complete statutory table for one tax year.
// Swapping the table is all it takes to model a different year.
type TaxYearConstants struct {
	Label             string                  `yaml:"label" json:"label"`
	CorporationTax    CorporationTaxConfig    `yaml:"corporation_tax" json:"corporation_tax"`
	IncomeTax         IncomeTaxConfig         `yaml:"income_tax" json:"income_tax"`
	DividendTax       DividendTaxConfig       `yaml:"dividend_tax" json:"dividend_tax"`
	NationalInsurance NationalInsuranceConfig `yaml:"national_insurance" json:"national_insurance"`
}

// DefaultTaxYear returns the UK 2024/25 table
func DefaultTaxYear() TaxYearConstants {
	return TaxYearConstants{
		Label: "2024/25",
		CorporationTax: CorporationTaxConfig{
			LowerLimit:             50000,
			UpperLimit:             250000,
			SmallRate:              0.19,
			MainRate:               0.25,
			MarginalReliefFraction: 3.0 / 200.0,
		},
		IncomeTax: IncomeTaxConfig{
			PersonalAllowance: 12570,
			BasicRateLimit:    37700,
			HigherRateLimit:   125140,
			BasicRate:         0.20,
			HigherRate:        0.40,
			AdditionalRate:    0.45,
		},
		DividendTax: DividendTaxConfig{
			Allowance:      500,
			BasicRate:      0.0875,
			HigherRate:     0.3375,
			AdditionalRate: 0.3935,
		},
		NationalInsurance: NationalInsuranceConfig{
			PrimaryThreshold:   12570,
			UpperEarningsLimit: 50270,
			MainRate:           0.08,
			UpperRate:          0.02,
		},
	}
}

// DefaultInputs returns the example owner used when nothing is configured
func DefaultInputs() Inputs {
	return Inputs{
		Rate:              650,
		Days:              252,
		Expense:           4012,
		EmployerNI:        479,
		Pension:           60000,
		Salary:            12570,
		Dividend:          37700,
		DividendAllowance: 500,
	}
}

// ValidationError reports one invalid field
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Validate checks the table's internal consistency. It is meant to run once
// when a table is loaded; the engine assumes a valid table.
func (ty TaxYearConstants) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}
	amount := func(field string, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			add(field, "must be a finite number (got %v)", v)
		} else if v < 0 {
			add(field, "must not be negative (got %.2f)", v)
		}
	}
	rate := func(field string, v float64) {
		if math.IsNaN(v) || v < 0 || v > 1 {
			add(field, "rate must be between 0%% and 100%% (got %.2f%%)", v*100)
		}
	}

	if strings.TrimSpace(ty.Label) == "" {
		add("label", "tax year label is required")
	} else if _, err := ParseTaxYearLabel(ty.Label); err != nil {
		add("label", "%v", err)
	}

	ct := ty.CorporationTax
	amount("corporation_tax.lower_limit", ct.LowerLimit)
	amount("corporation_tax.upper_limit", ct.UpperLimit)
	rate("corporation_tax.small_rate", ct.SmallRate)
	rate("corporation_tax.main_rate", ct.MainRate)
	rate("corporation_tax.marginal_relief_fraction", ct.MarginalReliefFraction)
	if ct.LowerLimit > ct.UpperLimit {
		add("corporation_tax.lower_limit", "lower limit %.0f exceeds upper limit %.0f", ct.LowerLimit, ct.UpperLimit)
	}

	it := ty.IncomeTax
	amount("income_tax.personal_allowance", it.PersonalAllowance)
	amount("income_tax.basic_rate_limit", it.BasicRateLimit)
	amount("income_tax.higher_rate_limit", it.HigherRateLimit)
	rate("income_tax.basic_rate", it.BasicRate)
	rate("income_tax.higher_rate", it.HigherRate)
	rate("income_tax.additional_rate", it.AdditionalRate)
	if it.HigherRateLimit < it.PersonalAllowance+it.BasicRateLimit {
		add("income_tax.higher_rate_limit", "%.0f is below personal allowance plus basic band (%.0f)",
			it.HigherRateLimit, it.PersonalAllowance+it.BasicRateLimit)
	}

	dt := ty.DividendTax
	amount("dividend_tax.allowance", dt.Allowance)
	rate("dividend_tax.basic_rate", dt.BasicRate)
	rate("dividend_tax.higher_rate", dt.HigherRate)
	rate("dividend_tax.additional_rate", dt.AdditionalRate)

	ni := ty.NationalInsurance
	amount("national_insurance.primary_threshold", ni.PrimaryThreshold)
	amount("national_insurance.upper_earnings_limit", ni.UpperEarningsLimit)
	rate("national_insurance.main_rate", ni.MainRate)
	rate("national_insurance.upper_rate", ni.UpperRate)
	if ni.UpperEarningsLimit < ni.PrimaryThreshold {
		add("national_insurance.upper_earnings_limit", "%.0f is below the primary threshold %.0f",
			ni.UpperEarningsLimit, ni.PrimaryThreshold)
	}

	return errors.Join(errs...)
}

// Config holds the complete configuration
type Config struct {
	DefaultTaxYear string             `yaml:"default_tax_year" json:"default_tax_year"`
	TaxYears       []TaxYearConstants `yaml:"tax_years" json:"tax_years"`
	Inputs         Inputs             `yaml:"inputs" json:"inputs"`
}

// Registry validates the configured tax years and indexes them by label
func (c *Config) Registry() (*TaxYearRegistry, error) {
	return NewTaxYearRegistry(c.TaxYears, c.DefaultTaxYear)
}

// LoadConfig loads configuration from a YAML file on top of the embedded
// defaults. Tax years the file does not define keep their built-in tables.
// Every table is validated; a malformed one fails the load.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	config, err := LoadDefaultConfig()
	if err != nil {
		return nil, fmt.Errorf("embedded defaults: %w", err)
	}
	builtIn := config.TaxYears

	config.TaxYears = nil
	if err := yaml.Unmarshal([]byte(preprocessPercentages(string(data))), config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}
	config.TaxYears = mergeTaxYears(config.TaxYears, builtIn)

	if _, err := config.Registry(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return config, nil
}

// mergeTaxYears appends built-in tables whose labels are not overridden
func mergeTaxYears(configured, builtIn []TaxYearConstants) []TaxYearConstants {
	seen := make(map[string]bool, len(configured))
	for _, ty := range configured {
		seen[ty.Label] = true
	}
	merged := append([]TaxYearConstants(nil), configured...)
	for _, ty := range builtIn {
		if !seen[ty.Label] {
			merged = append(merged, ty)
		}
	}
	return merged
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, filename string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	header := []byte(`# Take-Home Calculator Configuration
# Generated by goTakeHomeCalculator - feel free to edit manually
#
#   default_tax_year: label of the table used when none is requested
#   tax_years:        statutory tables; built-in years not listed here
#                     keep their embedded values
#   inputs:           the starting rate/days/expense/... snapshot
#
# VALUE FORMATS
#   Percentages: 0.19 or 19% (both accepted)
#   Money: GBP per year (e.g., 60000 = £60k)

`)
	content := append(header, data...)
	return os.WriteFile(filename, content, 0644)
}

// LoadDefaultConfig loads the embedded default-config.yaml
// It handles percentage format (e.g., "19%" -> 0.19)
func LoadDefaultConfig() (*Config, error) {
	content := preprocessPercentages(defaultConfigYAML)

	var config Config
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return nil, err
	}

	return &config, nil
}

// preprocessPercentages converts percentage values like "5%" to decimal "0.05"
func preprocessPercentages(content string) string {
	// Match patterns like: key: 5% or key: 8.75%
	re := regexp.MustCompile(`(:\s*)(\d+\.?\d*)%`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) >= 3 {
			num, err := strconv.ParseFloat(parts[2], 64)
			if err == nil {
				return parts[1] + strconv.FormatFloat(num/100.0, 'f', -1, 64)
			}
		}
		return match
	})
}

// LoadInputs reads an inputs snapshot. YAML files go through the YAML
// decoder; .json and .hjson files are read as HJSON, which accepts plain
// JSON as well as comments and unquoted keys.
func LoadInputs(filename string) (Inputs, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Inputs{}, err
	}

	var in Inputs
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &in)
	case ".json", ".hjson":
		err = hjson.Unmarshal(data, &in)
	default:
		return Inputs{}, fmt.Errorf("unsupported inputs file %q: use .yaml, .yml, .json or .hjson", filename)
	}
	if err != nil {
		return Inputs{}, fmt.Errorf("parsing %s: %w", filename, err)
	}
	return in.Sanitize(), nil
}

// envOr returns the environment value for key, or fallback when unset
func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

// formatDefaultMoney shows a prompt default in the short form parseMoney
// accepts, falling back to the exact figure when abbreviating would round
func formatDefaultMoney(amount float64) string {
	trim := func(v float64) string {
		return strings.TrimRight(strings.TrimRight(strconv.FormatFloat(v, 'f', 1, 64), "0"), ".")
	}
	switch {
	case amount >= 1000000 && math.Mod(amount, 100000) == 0:
		return trim(amount/1000000) + "m"
	case amount >= 1000 && math.Mod(amount, 100) == 0:
		return trim(amount/1000) + "k"
	}
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
