package main

import (
	"math"
)

// unboundedBandTop is the upper edge used for open-ended top bands
const unboundedBandTop = math.MaxFloat64

// SalaryTaxBands returns the income tax bands measured on taxable salary
// (salary already reduced by the personal allowance).
func SalaryTaxBands(it IncomeTaxConfig) []TaxBand {
	basicTop := it.BasicRateLimit
	higherTop := it.HigherRateLimit - it.PersonalAllowance
	return []TaxBand{
		{Name: "Basic Rate", Lower: 0, Upper: basicTop, Rate: it.BasicRate},
		{Name: "Higher Rate", Lower: basicTop, Upper: higherTop, Rate: it.HigherRate},
		{Name: "Additional Rate", Lower: higherTop, Upper: unboundedBandTop, Rate: it.AdditionalRate},
	}
}

// DividendTaxBands returns the dividend bands. They share their edges with
// the salary bands so that dividends stack on top of taxable salary.
func DividendTaxBands(it IncomeTaxConfig, dt DividendTaxConfig) []TaxBand {
	basicTop := it.BasicRateLimit
	higherTop := it.HigherRateLimit - it.PersonalAllowance
	return []TaxBand{
		{Name: "Dividend Basic Rate", Lower: 0, Upper: basicTop, Rate: dt.BasicRate},
		{Name: "Dividend Higher Rate", Lower: basicTop, Upper: higherTop, Rate: dt.HigherRate},
		{Name: "Dividend Additional Rate", Lower: higherTop, Upper: unboundedBandTop, Rate: dt.AdditionalRate},
	}
}

// EmployeeNIBands returns the employee NI bands measured on salary above
// the primary threshold.
func EmployeeNIBands(ni NationalInsuranceConfig) []TaxBand {
	mainTop := ni.UpperEarningsLimit - ni.PrimaryThreshold
	return []TaxBand{
		{Name: "NI Main Rate", Lower: 0, Upper: mainTop, Rate: ni.MainRate},
		{Name: "NI Upper Rate", Lower: mainTop, Upper: unboundedBandTop, Rate: ni.UpperRate},
	}
}

// CalculateStackedTax taxes amount as the top slice sitting on `occupied`
// band space already used by other income. Only the part of each band
// between occupied and occupied+amount is charged.
func CalculateStackedTax(amount, occupied float64, bands []TaxBand) float64 {
	if amount <= 0 {
		return 0
	}
	occupied = math.Max(0, occupied)
	top := occupied + amount

	var totalTax float64
	for _, band := range bands {
		if top <= band.Lower {
			break
		}
		lower := math.Max(band.Lower, occupied)
		upper := math.Min(band.Upper, top)
		if upper > lower {
			totalTax += (upper - lower) * band.Rate
		}
	}

	return math.Max(0, totalTax)
}

// CalculateTaxOnIncome calculates the tax owed on income measured on the
// bands' own scale, with nothing stacked underneath
func CalculateTaxOnIncome(income float64, bands []TaxBand) float64 {
	return CalculateStackedTax(income, 0, bands)
}

// GetMarginalRate returns the marginal rate for a given position on the bands
func GetMarginalRate(income float64, bands []TaxBand) float64 {
	for _, band := range bands {
		if income >= band.Lower && income < band.Upper {
			return band.Rate
		}
	}
	// If above all bands, return the highest rate
	if len(bands) > 0 {
		return bands[len(bands)-1].Rate
	}
	return 0
}

// CalculateCorporationTax applies the three-tier corporation tax policy:
// small profits rate up to the lower limit, main rate less marginal relief
// up to the upper limit, main rate above it. Never negative.
func CalculateCorporationTax(profit float64, ct CorporationTaxConfig) float64 {
	var tax float64
	switch {
	case profit <= ct.LowerLimit:
		tax = profit * ct.SmallRate
	case profit <= ct.UpperLimit:
		marginalRelief := (ct.UpperLimit - profit) * ct.MarginalReliefFraction
		tax = profit*ct.MainRate - marginalRelief
	default:
		tax = profit * ct.MainRate
	}
	return math.Max(0, tax)
}

// TaxableSalary is salary above the personal allowance, floored at zero
func TaxableSalary(salary float64, it IncomeTaxConfig) float64 {
	return math.Max(0, salary-it.PersonalAllowance)
}

// CalculateSalaryTax returns income tax on salary alone
func CalculateSalaryTax(salary float64, it IncomeTaxConfig) float64 {
	return CalculateTaxOnIncome(TaxableSalary(salary, it), SalaryTaxBands(it))
}

// CalculateEmployeeNI returns employee Class 1 NI on salary
func CalculateEmployeeNI(salary float64, ni NationalInsuranceConfig) float64 {
	salaryAbovePT := math.Max(0, salary-ni.PrimaryThreshold)
	return CalculateTaxOnIncome(salaryAbovePT, EmployeeNIBands(ni))
}

// CalculateDividendTax returns dividend tax with the allowance taken off
// first and the remainder stacked on top of taxable salary. Band occupancy
// is measured from taxable salary, not gross salary.
func CalculateDividendTax(dividend, allowance, taxableSalary float64, ty TaxYearConstants) float64 {
	remaining := math.Max(0, dividend-allowance)
	return CalculateStackedTax(remaining, taxableSalary, DividendTaxBands(ty.IncomeTax, ty.DividendTax))
}

// Compute derives every result figure from in. It is a total function:
// out-of-range intermediate values are clamped, never reported as errors.
func Compute(in Inputs, ty TaxYearConstants) Results {
	grossProfit := in.GrossProfit()

	// Profit is deliberately not clamped; the rebalancer keeps it in range
	profit := grossProfit - in.Expense - in.Salary - in.EmployerNI - in.Pension

	corporationTax := CalculateCorporationTax(profit, ty.CorporationTax)
	netProfit := profit - corporationTax
	leftInBusiness := netProfit - in.Dividend

	taxableSalary := TaxableSalary(in.Salary, ty.IncomeTax)
	salaryTax := CalculateSalaryTax(in.Salary, ty.IncomeTax)
	employeeNI := CalculateEmployeeNI(in.Salary, ty.NationalInsurance)
	dividendTax := CalculateDividendTax(in.Dividend, in.DividendAllowance, taxableSalary, ty)

	salaryAfterTax := in.Salary - salaryTax - employeeNI
	dividendsAfterTax := in.Dividend - dividendTax
	pocketMoney := salaryAfterTax + dividendsAfterTax

	return Results{
		GrossProfit:    grossProfit,
		Profit:         profit,
		CorporationTax: corporationTax,
		NetProfit:      netProfit,
		LeftInBusiness: leftInBusiness,

		TaxableSalary:       taxableSalary,
		PersonalSalaryTax:   salaryTax,
		EmployeeNI:          employeeNI,
		PersonalDividendTax: dividendTax,

		SalaryAfterTax:    salaryAfterTax,
		DividendsAfterTax: dividendsAfterTax,
		PocketMoney:       pocketMoney,
		TotalMoneyKept:    pocketMoney + in.Expense + leftInBusiness + in.Pension,
		MoneyLostToTaxes:  corporationTax + dividendTax + salaryTax + in.EmployerNI + employeeNI,

		Expense:           in.Expense,
		Salary:            in.Salary,
		EmployerNI:        in.EmployerNI,
		Pension:           in.Pension,
		Dividend:          in.Dividend,
		DividendAllowance: in.DividendAllowance,
	}
}
