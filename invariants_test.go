package main

import (
	"math"
	"math/rand"
	"testing"
)

// Invariant Tests
//
// Properties that must hold for any inputs, checked over a deterministic
// pseudo-random sample plus hand-picked edge cases.

const invariantEpsilon = 1e-6

// sampleInputs returns n reproducible input snapshots, many of which
// overflow gross profit or ask for more dividend than is available
func sampleInputs(n int) []Inputs {
	rng := rand.New(rand.NewSource(20240406))
	money := func(max float64) float64 {
		if rng.Intn(8) == 0 {
			return 0
		}
		return math.Round(rng.Float64() * max)
	}

	samples := []Inputs{
		{},
		DefaultInputs(),
		{Rate: 1000, Days: 250, DividendAllowance: 500},
		{Rate: 100, Days: 10, Expense: 1e9, Dividend: 1e9},
		{Rate: 2000, Days: 366, Salary: 1e6, Dividend: 1e6, DividendAllowance: 500},
	}
	for len(samples) < n {
		samples = append(samples, Inputs{
			Rate:              money(1500),
			Days:              float64(rng.Intn(367)),
			Expense:           money(60000),
			EmployerNI:        money(15000),
			Pension:           money(80000),
			Salary:            money(150000),
			Dividend:          money(250000),
			DividendAllowance: money(1000),
		})
	}
	return samples
}

func TestInvariant_AllocationsFitWithinGrossProfit(t *testing.T) {
	ty := DefaultTaxYear()
	for _, in := range sampleInputs(500) {
		calc := Recalculate(in, ty)
		if calc.Inputs.Allocations() > calc.Results.GrossProfit+invariantEpsilon {
			t.Fatalf("allocations %.2f exceed gross %.2f for %+v",
				calc.Inputs.Allocations(), calc.Results.GrossProfit, in)
		}
	}
}

func TestInvariant_DividendNeverExceedsNetProfit(t *testing.T) {
	ty := DefaultTaxYear()
	for _, in := range sampleInputs(500) {
		calc := Recalculate(in, ty)
		// exact: float rounding after the allocation cut can leave net profit
		// a hair below zero, where the dividend floor is zero
		if calc.Inputs.Dividend > math.Max(0, calc.Results.NetProfit) {
			t.Fatalf("dividend %.2f exceeds net profit %.2f for %+v",
				calc.Inputs.Dividend, calc.Results.NetProfit, in)
		}
		if calc.Results.LeftInBusiness < -invariantEpsilon {
			t.Fatalf("left in business is negative (%.2f) for %+v", calc.Results.LeftInBusiness, in)
		}
	}
}

func TestInvariant_TaxesAreNeverNegative(t *testing.T) {
	ty := DefaultTaxYear()
	for _, in := range sampleInputs(500) {
		res := Compute(in, ty)
		for name, v := range map[string]float64{
			"corporation tax": res.CorporationTax,
			"salary tax":      res.PersonalSalaryTax,
			"employee NI":     res.EmployeeNI,
			"dividend tax":    res.PersonalDividendTax,
		} {
			if v < 0 {
				t.Fatalf("%s is negative (%.2f) for %+v", name, v, in)
			}
		}
	}
}

func TestInvariant_KeptPlusLostEqualsGross(t *testing.T) {
	ty := DefaultTaxYear()
	for _, in := range sampleInputs(500) {
		res := Recalculate(in, ty).Results
		total := res.TotalMoneyKept + res.MoneyLostToTaxes
		if math.Abs(total-res.GrossProfit) > taxTolerance {
			t.Fatalf("kept %.2f + lost %.2f = %.2f; gross is %.2f for %+v",
				res.TotalMoneyKept, res.MoneyLostToTaxes, total, res.GrossProfit, in)
		}
	}
}

func TestInvariant_PipelineUsesAtMostTwoPasses(t *testing.T) {
	ty := DefaultTaxYear()
	for _, in := range sampleInputs(500) {
		calc := Recalculate(in, ty)
		if calc.Passes < 1 || calc.Passes > 2 {
			t.Fatalf("pipeline used %d passes for %+v", calc.Passes, in)
		}
		if calc.Rebalanced != (calc.Passes == 2) {
			t.Fatalf("rebalanced=%v but passes=%d", calc.Rebalanced, calc.Passes)
		}
	}
}

func TestInvariant_RebalanceIsIdempotent(t *testing.T) {
	ty := DefaultTaxYear()
	for _, in := range sampleInputs(500) {
		first := Recalculate(in, ty)
		again, changed := Rebalance(first.Inputs, first.Results, ty)
		if changed {
			t.Fatalf("second rebalance changed %+v to %+v", first.Inputs, again)
		}
	}
}

func TestInvariant_RebalanceOnlyReduces(t *testing.T) {
	ty := DefaultTaxYear()
	for _, in := range sampleInputs(500) {
		out := Recalculate(in, ty).Inputs
		if out.Expense > in.Expense || out.EmployerNI > in.EmployerNI || out.Salary > in.Salary ||
			out.Pension > in.Pension || out.Dividend > in.Dividend {
			t.Fatalf("rebalance increased a value: %+v -> %+v", in, out)
		}
	}
}

func TestInvariant_TaxMonotonicallyIncreases(t *testing.T) {
	ty := DefaultTaxYear()
	taxable := TaxableSalary(30000, ty.IncomeTax)

	var prevCT, prevSalary, prevNI, prevDiv float64
	for amount := 0.0; amount <= 400000; amount += 250 {
		ct := CalculateCorporationTax(amount, ty.CorporationTax)
		salary := CalculateSalaryTax(amount, ty.IncomeTax)
		ni := CalculateEmployeeNI(amount, ty.NationalInsurance)
		div := CalculateDividendTax(amount, 500, taxable, ty)

		if ct < prevCT || salary < prevSalary || ni < prevNI || div < prevDiv {
			t.Fatalf("tax decreased at £%.0f: ct %.2f->%.2f salary %.2f->%.2f ni %.2f->%.2f div %.2f->%.2f",
				amount, prevCT, ct, prevSalary, salary, prevNI, ni, prevDiv, div)
		}
		prevCT, prevSalary, prevNI, prevDiv = ct, salary, ni, div
	}
}

func TestInvariant_SalaryTaxContinuousAtBandEdges(t *testing.T) {
	it := DefaultTaxYear().IncomeTax
	edges := []float64{
		it.PersonalAllowance,
		it.PersonalAllowance + it.BasicRateLimit,
		it.HigherRateLimit,
	}
	for _, edge := range edges {
		below := CalculateSalaryTax(edge-0.01, it)
		above := CalculateSalaryTax(edge+0.01, it)
		if above-below > 0.01 {
			t.Errorf("salary tax jumps at £%.0f: %.4f -> %.4f", edge, below, above)
		}
	}
}

func TestInvariant_MoreDividendNeverLowersPocketMoney(t *testing.T) {
	ty := DefaultTaxYear()
	in := Inputs{Rate: 1000, Days: 250, Salary: 12570, DividendAllowance: 500}

	prev := -1.0
	for dividend := 0.0; dividend <= 150000; dividend += 1000 {
		in.Dividend = dividend
		pocket := Compute(in, ty).PocketMoney
		if pocket < prev {
			t.Fatalf("pocket money fell from %.2f to %.2f at dividend £%.0f", prev, pocket, dividend)
		}
		prev = pocket
	}
}

func TestInvariant_SanitizeRemovesInvalidNumbers(t *testing.T) {
	in := Inputs{
		Rate:              math.NaN(),
		Days:              math.Inf(1),
		Expense:           -100,
		EmployerNI:        math.Inf(-1),
		Pension:           500,
		Salary:            -0.01,
		Dividend:          1000,
		DividendAllowance: 500,
	}
	want := Inputs{Pension: 500, Dividend: 1000, DividendAllowance: 500}
	if got := in.Sanitize(); got != want {
		t.Errorf("Sanitize() = %+v; want %+v", got, want)
	}
}

func TestInvariant_SanitizeKeepsEveryFigureFinite(t *testing.T) {
	t.Run("Given out-of-range inputs, When sanitising, Then they are clamped to the input limits", func(t *testing.T) {
		in := Inputs{Rate: 1e308, Days: 10000, Salary: 2e8, Dividend: math.MaxFloat64, DividendAllowance: 500}
		want := Inputs{Rate: maxInputAmount, Days: maxWorkingDays, Salary: maxInputAmount, Dividend: maxInputAmount, DividendAllowance: 500}
		if got := in.Sanitize(); got != want {
			t.Errorf("Sanitize() = %+v; want %+v", got, want)
		}
	})

	t.Run("Given a rate that would overflow gross profit, When recalculating sanitised inputs, Then every result is finite", func(t *testing.T) {
		calc := Recalculate(Inputs{Rate: 1e308, Days: 10, Dividend: 1e308}.Sanitize(), DefaultTaxYear())
		res := calc.Results
		for name, v := range map[string]float64{
			"gross profit":  res.GrossProfit,
			"net profit":    res.NetProfit,
			"pocket money":  res.PocketMoney,
			"taxes paid":    res.MoneyLostToTaxes,
			"dividend tax":  res.PersonalDividendTax,
			"money kept":    res.TotalMoneyKept,
			"dividend paid": calc.Inputs.Dividend,
		} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("%s = %v", name, v)
			}
		}
		for key, v := range DisplayValues(res) {
			if v == "n/a" {
				t.Errorf("%s could not be displayed", key)
			}
		}
	})
}
