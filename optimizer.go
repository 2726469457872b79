package main

import (
	"fmt"
	"math"
	"sort"
)

// OptimizationOptions controls the salary sweep
type OptimizationOptions struct {
	Goal OptimizationGoal
	Step float64 // Salary increment in £ (default 100)
}

// OptimizationResult is the best salary/dividend split found by the sweep
type OptimizationResult struct {
	Goal      OptimizationGoal
	Best      Calculation
	Sweep     []Calculation // One entry per salary level, ascending
	Evaluated int
}

const (
	defaultOptimizationStep = 100.0
	minOptimizationStep     = 1.0
	maxSweepLevels          = 10000
)

// OptimizeExtraction searches for the salary that best serves the goal,
// holding rate, days, expenses, employer NI and pension fixed.
//
// Salary is swept from zero to the allocation headroom. The personal
// allowance and NI primary threshold are always included because the
// salary tax and NI curves bend there. Every candidate goes through the
// full compute/rebalance pipeline, so no candidate can break an invariant.
//
// With GoalMaxPocketMoney the dividend is set to all available net profit.
// With GoalMinTax the requested dividend is kept, capped by the rebalancer.
// Ties keep the lower salary. The step is widened when needed so the
// sweep never evaluates more than maxSweepLevels regular levels.
func OptimizeExtraction(in Inputs, ty TaxYearConstants, opts OptimizationOptions) OptimizationResult {
	in = in.Sanitize()
	step := opts.Step
	if step <= 0 || math.IsNaN(step) {
		step = defaultOptimizationStep
	}

	maxSalary := math.Max(0, in.GrossProfit()-in.Expense-in.EmployerNI-in.Pension)
	step = math.Max(step, maxSalary/maxSweepLevels)
	levels := salaryLevels(maxSalary, step, ty)

	result := OptimizationResult{Goal: opts.Goal, Sweep: make([]Calculation, 0, len(levels))}
	for _, salary := range levels {
		candidate := in
		candidate.Salary = salary
		if opts.Goal == GoalMaxPocketMoney {
			candidate.Dividend = math.Max(0, Compute(candidate, ty).NetProfit)
		}

		calc := Recalculate(candidate, ty)
		result.Sweep = append(result.Sweep, calc)
		result.Evaluated++

		if result.Evaluated == 1 || isBetter(calc.Results, result.Best.Results, opts.Goal) {
			result.Best = calc
		}
	}

	return result
}

// validateOptimizationStep rejects salary increments too fine to sweep.
// Zero selects the default step.
func validateOptimizationStep(step float64) error {
	if step == 0 {
		return nil
	}
	if math.IsNaN(step) || math.IsInf(step, 0) || step < minOptimizationStep {
		return ValidationError{Field: "step", Message: fmt.Sprintf("salary increment must be at least £%.0f (got %v)", minOptimizationStep, step)}
	}
	return nil
}

// isBetter reports whether candidate strictly beats best for goal
func isBetter(candidate, best Results, goal OptimizationGoal) bool {
	const epsilon = 0.005
	switch goal {
	case GoalMinTax:
		return candidate.MoneyLostToTaxes < best.MoneyLostToTaxes-epsilon
	default:
		return candidate.PocketMoney > best.PocketMoney+epsilon
	}
}

// salaryLevels returns the sorted, de-duplicated salaries to evaluate
func salaryLevels(maxSalary, step float64, ty TaxYearConstants) []float64 {
	levels := []float64{0, maxSalary}
	for i := 1; i < maxSweepLevels; i++ {
		s := float64(i) * step
		if s >= maxSalary {
			break
		}
		levels = append(levels, s)
	}
	for _, point := range []float64{ty.IncomeTax.PersonalAllowance, ty.NationalInsurance.PrimaryThreshold} {
		if point > 0 && point < maxSalary {
			levels = append(levels, point)
		}
	}

	sort.Float64s(levels)
	unique := levels[:0]
	for _, s := range levels {
		if len(unique) == 0 || s != unique[len(unique)-1] {
			unique = append(unique, s)
		}
	}
	return unique
}
