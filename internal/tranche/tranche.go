// Package tranche models a slice of the CLO's capital structure: debt
// tranches with PIK'd deferred interest, and the residual equity tranche.
package tranche

import (
	"time"

	"github.com/meridian-analytics/clo-engine/internal/accrual"
	"github.com/meridian-analytics/clo-engine/internal/account"
	"github.com/meridian-analytics/clo-engine/internal/curve"
	"github.com/meridian-analytics/clo-engine/internal/daycount"
)

// PaymentSource tags the origin of a waterfall payment run, selecting
// which snapshot field a debt tranche's principal-amortisation percentage
// is recorded under.
type PaymentSource int

const (
	// Interest tags an interest-waterfall run; the amortisation field is
	// not written.
	Interest PaymentSource = iota
	// Amortization tags a principal-waterfall run.
	Amortization
)

var farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// Snapshot captures a tranche's state at the end of a simulated period.
// Payments against the waterfall mutate the most recent snapshot in
// place, mirroring how the same monthly snapshot records both the
// period's accrual and that period's payment.
type Snapshot struct {
	Date                            time.Time
	Balance                         float64
	InterestPaid                    float64
	InterestAccrued                 float64
	InterestAccruedOverPeriod       float64
	DeferredInterest                float64
	DeferredInterestPaid            float64
	DeferredInterestAccruedOverPeriod float64
	PrincipalPaid                   float64
	PctPrincipal                    float64
	PctAmortization                 float64
	Coupon                          float64
}

// Tranche is either a debt tranche or (when IsEquity is true) the residual
// equity tranche. The two share the same storage; equity's PayInterest
// and PayPrincipal take the overridden, sink-of-residual branch.
type Tranche struct {
	accrual.Base

	Rating         string
	InitialBalance float64
	Margin         float64
	IsFixed        bool
	IsEquity       bool
	DeferredInterest float64
	CLOCallDate    time.Time
	Curve          *curve.Curve

	InterestPaid  float64
	PrincipalPaid float64

	History []Snapshot
}

// NewDebt constructs a debt tranche. Floating tranches accrue ACT/360;
// fixed tranches accrue 30E/360 ISDA.
func NewDebt(rating string, balance, margin, initialCoupon float64, reportDate time.Time, isFixed bool, rateCurve *curve.Curve) *Tranche {
	convention := daycount.ACT360
	if isFixed {
		convention = daycount.Thirty360EISDA
	}
	t := &Tranche{
		Base: accrual.Base{
			Balance:     balance,
			Rate:        initialCoupon,
			LastSimDate: reportDate,
			Convention:  convention,
		},
		Rating:         rating,
		InitialBalance: balance,
		Margin:         margin,
		IsFixed:        isFixed,
		CLOCallDate:    farFuture,
		Curve:          rateCurve,
	}
	t.takeSnapshot(reportDate)
	return t
}

// NewEquity constructs the residual equity tranche: zero coupon, zero
// margin, always last in both waterfalls.
func NewEquity(balance float64, reportDate time.Time) *Tranche {
	t := &Tranche{
		Base: accrual.Base{
			Balance:     balance,
			Rate:        0,
			LastSimDate: reportDate,
			Convention:  daycount.ACT360,
		},
		Rating:         "Equity",
		InitialBalance: balance,
		IsEquity:       true,
		CLOCallDate:    farFuture,
	}
	t.takeSnapshot(reportDate)
	return t
}

// Simulate accrues interest on balance+deferred_interest through
// min(target, CLOCallDate) and snapshots.
func (t *Tranche) Simulate(target time.Time) {
	accrueUntil := target
	if t.CLOCallDate.Before(target) {
		accrueUntil = t.CLOCallDate
	}
	yf := t.YearFactor(accrueUntil)
	t.accrueInterest(yf)
	t.takeSnapshot(target)
	t.ResetPeriodAccrual()
	t.LastSimDate = accrueUntil
}

// accrueInterest overrides the plain interest-vehicle accrual to include
// the deferred-interest balance in the accrual base.
func (t *Tranche) accrueInterest(yf float64) {
	base := t.Balance + t.DeferredInterest
	delta := base * yf * t.Rate
	t.Accrued += delta
	t.PeriodAccrual += delta
}

// NotifyOfLiquidation sets CLOCallDate; subsequent accrual stops there.
func (t *Tranche) NotifyOfLiquidation(liquidationDate time.Time) {
	t.CLOCallDate = liquidationDate
}

// UpdateCoupon resets a floating tranche's coupon; fixed tranches are a
// no-op.
func (t *Tranche) UpdateCoupon(fixingDate time.Time) {
	if !t.IsFixed && t.Curve != nil {
		t.Rate = t.Curve.RateAt(fixingDate) + t.Margin
	}
}

// PayInterest pays deferred interest first, then period-accrued interest,
// PIK-ing any shortfall back into deferred interest. Equity instead
// debits the entire source balance as its residual claim.
func (t *Tranche) PayInterest(src *account.Account, _ PaymentSource) {
	if t.IsEquity {
		amount := src.Debit(src.Balance)
		t.InterestPaid += amount
		snap := t.lastSnapshot()
		snap.InterestPaid += amount
		return
	}

	deferredPaid := src.Debit(t.DeferredInterest)
	t.DeferredInterest -= deferredPaid
	t.InterestPaid += deferredPaid

	accruedPaid := src.Debit(t.Accrued)
	t.Accrued -= accruedPaid
	t.InterestPaid += accruedPaid

	snap := t.lastSnapshot()
	snap.DeferredInterestPaid += deferredPaid
	snap.InterestPaid += deferredPaid + accruedPaid

	if t.Accrued > 0 {
		t.DeferredInterest += t.Accrued
		snap.DeferredInterestAccruedOverPeriod = t.Accrued
		t.Accrued = 0
	}
}

// PayPrincipal pays down the tranche's balance, recording the fraction of
// initial balance amortised under the tag's field. Equity instead debits
// the entire source balance, flooring its own balance at 0 while still
// absorbing residual money beyond that floor.
func (t *Tranche) PayPrincipal(src *account.Account, tag PaymentSource) {
	if t.IsEquity {
		amountPaid := src.Debit(src.Balance)
		t.Balance -= amountPaid
		if t.Balance < 0 {
			t.Balance = 0
		}
		snap := t.lastSnapshot()
		snap.PrincipalPaid += amountPaid
		snap.Balance = t.Balance
		return
	}

	amountPaid := src.Debit(t.Balance)
	t.Balance -= amountPaid
	t.PrincipalPaid += amountPaid

	var pctPrincipal float64
	if t.InitialBalance > 0 {
		pctPrincipal = amountPaid / t.InitialBalance
	}

	snap := t.lastSnapshot()
	snap.Balance = t.Balance
	snap.PrincipalPaid += amountPaid
	snap.PctPrincipal += pctPrincipal
	if tag == Amortization {
		snap.PctAmortization = pctPrincipal
	}
}

// IRR solves the internal rate of return realised by a purchaser who
// bought the tranche at purchasePrice (as a fraction of initial balance)
// on its first snapshot date and received every subsequent period's
// interest and principal paid.
func (t *Tranche) IRR(purchasePrice float64) (float64, error) {
	if len(t.History) == 0 {
		return 0, nil
	}
	events := make([]accrual.CashEvent, 0, len(t.History))
	events = append(events, accrual.CashEvent{
		Date:   t.History[0].Date,
		Amount: -purchasePrice * t.InitialBalance,
	})
	for _, snap := range t.History[1:] {
		events = append(events, accrual.CashEvent{
			Date:   snap.Date,
			Amount: snap.InterestPaid + snap.PrincipalPaid,
		})
	}
	return accrual.IRR(events)
}

func (t *Tranche) lastSnapshot() *Snapshot {
	return &t.History[len(t.History)-1]
}

func (t *Tranche) takeSnapshot(asOf time.Time) {
	t.History = append(t.History, Snapshot{
		Date:                      asOf,
		Coupon:                    t.Rate,
		Balance:                   t.Balance,
		InterestAccrued:           t.Accrued,
		DeferredInterest:          t.DeferredInterest,
		InterestAccruedOverPeriod: t.PeriodAccrual,
	})
}
