package main

import "math"

// Rebalance corrects inputs that break the allocation or dividend
// invariants. It returns the corrected inputs and true if any value
// changed, or the inputs unchanged and false.
//
// Allocation overflow is cut against a running gross-profit budget in a
// fixed order: expense first, then employer NI, then salary, and pension
// last. The dividend is then capped at net profit recomputed from the
// corrected allocations, floored at zero when rounding leaves net profit
// marginally negative.
func Rebalance(in Inputs, res Results, ty TaxYearConstants) (Inputs, bool) {
	out := in
	netProfit := res.NetProfit

	if in.Allocations() > res.GrossProfit {
		remaining := res.GrossProfit

		out.Expense = math.Min(remaining, in.Expense)
		remaining = math.Max(0, remaining-out.Expense)

		out.EmployerNI = math.Min(remaining, in.EmployerNI)
		remaining = math.Max(0, remaining-out.EmployerNI)

		out.Salary = math.Min(remaining, in.Salary)
		remaining = math.Max(0, remaining-out.Salary)

		out.Pension = math.Min(remaining, in.Pension)

		if out != in {
			netProfit = Compute(out, ty).NetProfit
		}
	}

	if out.Dividend > netProfit {
		out.Dividend = math.Max(0, netProfit)
	}

	return out, out != in
}

// Recalculate runs the full pipeline for one edit: compute, rebalance,
// and compute again only if the rebalancer changed something.
func Recalculate(in Inputs, ty TaxYearConstants) Calculation {
	res := Compute(in, ty)
	corrected, changed := Rebalance(in, res, ty)
	if !changed {
		return Calculation{Inputs: in, Results: res, Passes: 1}
	}
	return Calculation{
		Inputs:     corrected,
		Results:    Compute(corrected, ty),
		Rebalanced: true,
		Passes:     2,
	}
}

// SliderLimitsFor returns the largest value each adjustable input can take
// without breaking an invariant, given the other current inputs
func SliderLimitsFor(in Inputs, res Results) SliderLimits {
	headroom := func(others float64) float64 {
		return math.Max(0, res.GrossProfit-others)
	}
	return SliderLimits{
		Expense:    headroom(in.EmployerNI + in.Pension + in.Salary),
		EmployerNI: headroom(in.Expense + in.Pension + in.Salary),
		Salary:     headroom(in.Expense + in.EmployerNI + in.Pension),
		Pension:    headroom(in.Expense + in.EmployerNI + in.Salary),
		Dividend:   math.Max(0, res.NetProfit),
	}
}
