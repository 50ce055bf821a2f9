// Package waterfall dispatches a cash account down an ordered list of
// claimants: senior expenses, senior management fee, debt tranches
// senior-to-junior, junior management fee, the incentive fee, and finally
// equity.
package waterfall

import (
	"strconv"

	"github.com/meridian-analytics/clo-engine/internal/account"
	"github.com/meridian-analytics/clo-engine/internal/fee"
	"github.com/meridian-analytics/clo-engine/internal/tranche"
)

// Phase selects which tranche method a waterfall run dispatches to.
type Phase int

const (
	InterestPhase Phase = iota
	PrincipalPhase
)

// Step is a single named claimant in the waterfall.
type Step struct {
	Name string
	Pay  func(src *account.Account, tag tranche.PaymentSource)
}

// Waterfall pays a source account down an ordered list of steps.
type Waterfall struct {
	Steps []Step
}

// Pay runs every step in order against src, tagging the payment source.
func (w *Waterfall) Pay(src *account.Account, tag tranche.PaymentSource) {
	for _, step := range w.Steps {
		step.Pay(src, tag)
	}
}

var ratingOrder = map[string]int{
	"AAA": 0, "AA": 1, "A": 2, "BBB": 3, "BB": 4, "B": 5,
}

// SortDebtTranches orders debt tranches senior to junior by rating rank.
// Tranches with an unrecognised rating sort after all known ratings, in
// their original relative order.
func SortDebtTranches(tranches []*tranche.Tranche) []*tranche.Tranche {
	sorted := make([]*tranche.Tranche, len(tranches))
	copy(sorted, tranches)

	rank := func(t *tranche.Tranche) int {
		if r, ok := ratingOrder[t.Rating]; ok {
			return r
		}
		return len(ratingOrder)
	}

	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && rank(sorted[j]) < rank(sorted[j-1]); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return sorted
}

// Build assembles the standard waterfall for the given phase: senior
// expenses, senior management fee, debt tranches senior to junior, junior
// management fee, the incentive fee, and the equity residual. debtTranches
// must already be sorted senior to junior; duplicate ratings are
// disambiguated in Name only, payment order is unaffected.
func Build(phase Phase, expensesFee, seniorFee, juniorFee *fee.Management, incentiveFee *fee.Incentive, debtTranches []*tranche.Tranche, equityTranche *tranche.Tranche) *Waterfall {
	var steps []Step

	steps = append(steps, Step{Name: "SeniorExpensesFee", Pay: feeStep(expensesFee)})
	steps = append(steps, Step{Name: "SeniorMgmtFee", Pay: feeStep(seniorFee)})

	seen := map[string]int{}
	for _, t := range debtTranches {
		name := t.Rating
		if n, ok := seen[t.Rating]; ok {
			name = t.Rating + strconv.Itoa(n)
		}
		seen[t.Rating]++
		steps = append(steps, Step{Name: name, Pay: trancheStep(phase, t)})
	}

	steps = append(steps, Step{Name: "JuniorMgmtFee", Pay: feeStep(juniorFee)})
	steps = append(steps, Step{Name: "IncentiveFee", Pay: incentiveStep(incentiveFee)})
	steps = append(steps, Step{Name: "Equity", Pay: trancheStep(phase, equityTranche)})

	return &Waterfall{Steps: steps}
}

func feeStep(f *fee.Management) func(*account.Account, tranche.PaymentSource) {
	return func(src *account.Account, _ tranche.PaymentSource) {
		f.Pay(src)
	}
}

func incentiveStep(f *fee.Incentive) func(*account.Account, tranche.PaymentSource) {
	return func(src *account.Account, _ tranche.PaymentSource) {
		f.Pay(src)
	}
}

func trancheStep(phase Phase, t *tranche.Tranche) func(*account.Account, tranche.PaymentSource) {
	if phase == InterestPhase {
		return t.PayInterest
	}
	return t.PayPrincipal
}
