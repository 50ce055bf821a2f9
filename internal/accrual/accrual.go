// Package accrual provides the shared interest-accrual base embedded by
// every interest-bearing entity in the engine: assets, tranches, fees.
package accrual

import (
	"math"
	"time"

	"github.com/meridian-analytics/clo-engine/internal/daycount"
)

// CashEvent is a single dated cashflow out of an entity's history, used as
// the raw material for an IRR solve.
type CashEvent struct {
	Date   time.Time
	Amount float64
}

// Base is embedded by Asset, Tranche and Fee. It tracks a balance, a
// per-annum rate, a running accrued total, the current period's accrual,
// and the convention used to turn dates into year fractions.
type Base struct {
	Balance      float64
	Rate         float64
	Accrued      float64
	PeriodAccrual float64
	LastSimDate  time.Time
	Convention   daycount.Convention
}

// YearFactor returns the year fraction from from (or, if zero, from
// LastSimDate) to "to" under the base's day-count convention.
func (b *Base) YearFactor(to time.Time, from ...time.Time) float64 {
	start := b.LastSimDate
	if len(from) > 0 {
		start = from[0]
	}
	yf, err := daycount.YearFraction(start, to, b.Convention)
	if err != nil {
		// Convention is validated at construction time by every caller;
		// reaching here means a programmer error, not a data error.
		panic(err)
	}
	return yf
}

// Accrue adds simple interest on Balance at the base's rate over
// yearFactor (Accrued is not added to the base), crediting both the
// running accrued total and the current period's accrual bucket.
func (b *Base) Accrue(yearFactor float64) {
	delta := b.Balance * yearFactor * b.Rate
	b.Accrued += delta
	b.PeriodAccrual += delta
}

// ResetPeriodAccrual zeros the current period's accrual bucket, called by
// owners at snapshot time once the period accrual has been recorded.
func (b *Base) ResetPeriodAccrual() {
	b.PeriodAccrual = 0
}

// IRR solves for the internal rate of return implied by events, where
// events[0] carries the purchase outflow and fixes the discounting origin
// (Tranche.IRR puts the negative purchase cost there, dated at the first
// snapshot).
//
// Uses Newton-Raphson against an ACT/365F-discounted NPV, falling back to
// bisection if the derivative degenerates, since CLO cashflow series can
// have long zero-flow stretches during PIK periods that flatten the
// Newton step.
func IRR(events []CashEvent) (float64, error) {
	if len(events) == 0 {
		return 0, nil
	}
	t0 := events[0].Date

	npv := func(rate float64) float64 {
		sum := 0.0
		for _, e := range events {
			years := e.Date.Sub(t0).Hours() / 24.0 / 365.0
			sum += e.Amount / pow1p(rate, years)
		}
		return sum
	}
	deriv := func(rate float64) float64 {
		sum := 0.0
		for _, e := range events {
			years := e.Date.Sub(t0).Hours() / 24.0 / 365.0
			if years == 0 {
				continue
			}
			sum += -years * e.Amount / pow1p(rate, years+1)
		}
		return sum
	}

	rate := 0.10
	const tol = 1e-9
	const maxIter = 200
	for i := 0; i < maxIter; i++ {
		f := npv(rate)
		if abs(f) < tol {
			return rate, nil
		}
		d := deriv(rate)
		if abs(d) < 1e-12 {
			break
		}
		next := rate - f/d
		if next <= -0.999999 {
			next = -0.5
		}
		rate = next
	}

	// Bisection fallback over a wide, bounded bracket.
	lo, hi := -0.999, 10.0
	flo, fhi := npv(lo), npv(hi)
	if sign(flo) == sign(fhi) {
		return rate, nil
	}
	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		fmid := npv(mid)
		if abs(fmid) < tol {
			return mid, nil
		}
		if sign(fmid) == sign(flo) {
			lo, flo = mid, fmid
		} else {
			hi, fhi = mid, fmid
		}
	}
	return (lo + hi) / 2, nil
}

func pow1p(rate, years float64) float64 {
	base := 1 + rate
	if base <= 0 {
		base = 1e-9
	}
	return math.Pow(base, years)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v float64) int {
	if v < 0 {
		return -1
	}
	if v > 0 {
		return 1
	}
	return 0
}
