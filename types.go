package main

import "math"

// OptimizationGoal determines what the extraction optimiser is trying to achieve
type OptimizationGoal int

const (
	GoalMaxPocketMoney OptimizationGoal = iota // Maximise salary + dividends after personal taxes
	GoalMinTax                                 // Minimise total tax and NI paid
)

func (o OptimizationGoal) String() string {
	switch o {
	case GoalMaxPocketMoney:
		return "Maximise Pocket Money"
	case GoalMinTax:
		return "Minimise Tax"
	default:
		return "Unknown"
	}
}

// Inputs is the snapshot of owner-controlled figures for one tax year.
// All amounts are annual GBP; Days is a count but multiplies as a real.
type Inputs struct {
	Rate              float64 `yaml:"rate" json:"rate"`                             // Daily billing rate
	Days              float64 `yaml:"days" json:"days"`                             // Working days per year
	Expense           float64 `yaml:"expense" json:"expense"`                       // Annual business expenses
	EmployerNI        float64 `yaml:"employer_ni" json:"employer_ni"`               // Employer NI, a direct deduction (not derived from salary)
	Pension           float64 `yaml:"pension" json:"pension"`                       // Employer pension contribution
	Salary            float64 `yaml:"salary" json:"salary"`                         // Gross salary drawn by the owner
	Dividend          float64 `yaml:"dividend" json:"dividend"`                     // Gross dividend payout
	DividendAllowance float64 `yaml:"dividend_allowance" json:"dividend_allowance"` // Tax-free dividend allowance
}

// Upper bounds accepted for any single input
const (
	maxInputAmount = 100000000 // £100 million
	maxWorkingDays = 366
)

// Sanitize coerces anything that is not a finite, non-negative number to
// zero and clamps the rest to maxInputAmount (days to maxWorkingDays), so
// gross profit and every derived figure stay finite
func (in Inputs) Sanitize() Inputs {
	clean := func(v, limit float64) float64 {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return 0
		}
		return math.Min(v, limit)
	}
	return Inputs{
		Rate:              clean(in.Rate, maxInputAmount),
		Days:              clean(in.Days, maxWorkingDays),
		Expense:           clean(in.Expense, maxInputAmount),
		EmployerNI:        clean(in.EmployerNI, maxInputAmount),
		Pension:           clean(in.Pension, maxInputAmount),
		Salary:            clean(in.Salary, maxInputAmount),
		Dividend:          clean(in.Dividend, maxInputAmount),
		DividendAllowance: clean(in.DividendAllowance, maxInputAmount),
	}
}

// GrossProfit is daily rate × working days
func (in Inputs) GrossProfit() float64 {
	return in.Rate * in.Days
}

// Allocations is everything paid out of gross profit before corporation tax
func (in Inputs) Allocations() float64 {
	return in.Expense + in.EmployerNI + in.Salary + in.Pension
}

// Results holds every figure derived from one Inputs snapshot.
// It is recomputed in full on every change and carries no state of its own.
type Results struct {
	GrossProfit    float64 `json:"gross_profit"`
	Profit         float64 `json:"profit"` // Before corporation tax, not clamped
	CorporationTax float64 `json:"corporation_tax"`
	NetProfit      float64 `json:"net_profit"`
	LeftInBusiness float64 `json:"left_in_business"`

	TaxableSalary       float64 `json:"taxable_salary"` // Salary above the personal allowance
	PersonalSalaryTax   float64 `json:"personal_salary_tax"`
	EmployeeNI          float64 `json:"employee_ni"`
	PersonalDividendTax float64 `json:"personal_dividend_tax"`

	SalaryAfterTax    float64 `json:"salary_after_tax"`
	DividendsAfterTax float64 `json:"dividends_after_tax"`
	PocketMoney       float64 `json:"pocket_money"`
	TotalMoneyKept    float64 `json:"total_money_kept"`
	MoneyLostToTaxes  float64 `json:"money_lost_to_taxes"`

	// Pass-through copies of the inputs that produced these results
	Expense           float64 `json:"expense"`
	Salary            float64 `json:"salary"`
	EmployerNI        float64 `json:"employer_ni"`
	Pension           float64 `json:"pension"`
	Dividend          float64 `json:"dividend"`
	DividendAllowance float64 `json:"dividend_allowance"`
}

// Calculation is the outcome of one compute/rebalance pipeline run
type Calculation struct {
	Inputs     Inputs  `json:"inputs"`     // Inputs after any rebalancing
	Results    Results `json:"results"`    // Results for Inputs
	Rebalanced bool    `json:"rebalanced"` // True if the rebalancer changed any input
	Passes     int     `json:"passes"`     // Engine invocations used (1 or 2)
}

// SliderLimits are the maximum values an editor may offer for each adjustable input
type SliderLimits struct {
	Expense    float64 `json:"expense"`
	EmployerNI float64 `json:"employer_ni"`
	Salary     float64 `json:"salary"`
	Pension    float64 `json:"pension"`
	Dividend   float64 `json:"dividend"`
}

// TaxBand represents one progressive band. Lower and Upper are measured
// on whatever scale the caller applies the bands to (taxable salary,
// salary above the NI primary threshold, ...).
type TaxBand struct {
	Name  string  `yaml:"name" json:"name"`
	Lower float64 `yaml:"lower" json:"lower"`
	Upper float64 `yaml:"upper" json:"upper"`
	Rate  float64 `yaml:"rate" json:"rate"`
}
