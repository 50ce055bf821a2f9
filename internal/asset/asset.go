// Package asset models a single obligor loan or bond: interest accrual,
// prepayment, default, recovery, coupon resets, maturity and settlement.
package asset

import (
	"math"
	"time"

	"github.com/meridian-analytics/clo-engine/internal/accrual"
	"github.com/meridian-analytics/clo-engine/internal/account"
	"github.com/meridian-analytics/clo-engine/internal/clerr"
	"github.com/meridian-analytics/clo-engine/internal/curve"
	"github.com/meridian-analytics/clo-engine/internal/daycount"
)

// Kind distinguishes the two collateral types the engine understands.
type Kind string

const (
	Loan Kind = "loan"
	Bond Kind = "bond"
)

// ParseKind maps an external string (case-insensitive) onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "loan", "Loan", "LOAN":
		return Loan, nil
	case "bond", "Bond", "BOND":
		return Bond, nil
	default:
		return "", clerr.New(clerr.InvalidInput, s, "unknown asset kind")
	}
}

// farFuture is the sentinel maturity date set once an asset matures, so it
// does not re-enter its maturity branch on a later simulate call. It is also
// the settlement date of an asset with no sale scheduled; a settled asset
// keeps its real settlement date, and later calls settle a zero balance.
var farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// Snapshot captures an asset's state at the end of a simulated period.
type Snapshot struct {
	Date                time.Time
	Balance             float64
	PrincipalPaid       float64
	ScheduledPrincipal  float64
	UnscheduledPrincipal float64
	DefaultedPrincipal  float64
	RecoveredPrincipal  float64
	InterestPaid        float64
	PeriodAccrual       float64
	InterestAccrued     float64
	Coupon              float64
	Spread              float64
	Price               float64
}

// Asset is a single obligor loan or bond, accruing interest on the
// embedded accrual.Base.
type Asset struct {
	accrual.Base

	FIGI          string
	Kind          Kind
	Price         float64
	Spread        float64
	IsFloating    bool
	PaymentFreq   int
	NextPayment   time.Time
	Maturity      time.Time
	SettlementDate time.Time
	CPR           float64
	CDR           float64
	RecoveryRate  float64
	CPRLockoutEnd time.Time
	CDRLockoutEnd time.Time

	Curve *curve.Curve

	// ManualPriceOverride is a deal-supplied sale price used only under the
	// Override liquidation policy; nil means "use Price".
	ManualPriceOverride *float64

	InterestPaid  float64
	PrincipalPaid float64

	// Sub-period buckets, reset at snapshot time.
	ScheduledPrincipal   float64
	DefaultedPrincipal   float64
	RecoveredPrincipal   float64
	UnscheduledPrincipal float64

	simulatingInterim bool
	settlementPrice   *float64

	History []Snapshot
}

// Config bundles Asset's construction parameters.
type Config struct {
	FIGI           string
	Kind           Kind
	Balance        float64
	Price          float64
	Spread         float64
	InitialCoupon  float64
	PaymentFreq    int
	ReportDate     time.Time
	NextPayment    time.Time
	Maturity       time.Time
	CPRLockoutEnd  time.Time
	CDRLockoutEnd  time.Time
	CPR            float64
	CDR            float64
	RecoveryRate   float64
	Curve          *curve.Curve
	IsFloating     bool
}

// New constructs an asset, backdating accrued interest from the payment
// date immediately before ReportDate.
func New(cfg Config) (*Asset, error) {
	if !cfg.Maturity.After(cfg.ReportDate) {
		return nil, clerr.New(clerr.DataIntegrity, cfg.FIGI, "asset already matured at construction")
	}
	if cfg.PaymentFreq <= 0 {
		return nil, clerr.New(clerr.InvalidInput, cfg.FIGI, "payment frequency must be positive")
	}

	a := &Asset{
		Base: accrual.Base{
			Balance:     cfg.Balance,
			Rate:        cfg.InitialCoupon,
			LastSimDate: cfg.ReportDate,
			Convention:  daycount.ACT360,
		},
		FIGI:           cfg.FIGI,
		Kind:           cfg.Kind,
		Price:          cfg.Price,
		Spread:         cfg.Spread,
		IsFloating:     cfg.IsFloating,
		PaymentFreq:    cfg.PaymentFreq,
		NextPayment:    cfg.NextPayment,
		Maturity:       cfg.Maturity,
		SettlementDate: farFuture,
		CPR:            cfg.CPR,
		CDR:            cfg.CDR,
		RecoveryRate:   cfg.RecoveryRate,
		CPRLockoutEnd:  cfg.CPRLockoutEnd,
		CDRLockoutEnd:  cfg.CDRLockoutEnd,
		Curve:          cfg.Curve,
	}

	priorPayment := a.priorPaymentDate(cfg.ReportDate)
	yf := a.YearFactor(cfg.ReportDate, priorPayment)
	a.Accrued = a.Balance * yf * a.Rate

	a.takeSnapshot(cfg.ReportDate)
	return a, nil
}

// Backdate re-seeds the asset's accrued interest as of cutoff, as though
// the asset had last been simulated then. Used once at CLO construction to
// align every asset's accrual base to a common backdating cutoff ahead of
// the report date.
func (a *Asset) Backdate(cutoff time.Time) {
	priorPayment := a.priorPaymentDate(cutoff)
	yf := a.YearFactor(cutoff, priorPayment)
	a.Accrued = a.Balance * yf * a.Rate
	a.LastSimDate = cutoff
}

func (a *Asset) paymentIntervalMonths() int {
	return 12 / a.PaymentFreq
}

func (a *Asset) priorPaymentDate(comparisonDate time.Time) time.Time {
	prior := a.NextPayment
	months := a.paymentIntervalMonths()
	for prior.After(comparisonDate) {
		prior = daycount.AddMonthsClamped(prior, -months)
	}
	return prior
}

// Simulate advances the asset to target. Any intervening payment date or
// maturity is first simulated by a nested, snapshot-suppressed Simulate
// call made from a loop, one call per crossed date.
func (a *Asset) Simulate(target time.Time) {
	months := a.paymentIntervalMonths()

	for target.After(a.NextPayment) || target.After(a.Maturity) {
		interim := a.NextPayment
		if a.Maturity.Before(a.NextPayment) || a.Maturity.Equal(a.NextPayment) {
			interim = a.Maturity
		}
		a.simulatingInterim = true
		a.Simulate(interim)
	}

	accrueUntil := target
	if a.SettlementDate.Before(target) {
		accrueUntil = a.SettlementDate
	}
	yf := a.YearFactor(accrueUntil)
	a.Accrue(yf)

	effCPR := a.effectiveCPR(accrueUntil)
	effCDR := a.effectiveCDR(accrueUntil)

	prepayments := (1 - pow(1-effCPR, yf)) * a.Balance
	defaults := (1 - pow(1-effCDR, yf)) * (a.Balance - prepayments)

	denom := a.Balance
	if denom == 0 {
		denom = 1
	}
	unscheduledProportion := prepayments / denom
	defaultedProportion := defaults / denom

	recovery := defaults * a.RecoveryRate
	a.PrincipalPaid += recovery
	a.Accrued -= defaultedProportion * a.Accrued

	a.PrincipalPaid += prepayments
	a.InterestPaid += unscheduledProportion * a.Accrued
	a.Accrued -= unscheduledProportion * a.Accrued

	a.Balance -= prepayments + defaults

	onPaymentDate := target.Equal(a.NextPayment)
	matured := !target.Before(a.Maturity)
	settled := !target.Before(a.SettlementDate)

	if onPaymentDate {
		a.InterestPaid += a.Accrued
		a.Accrued = 0
		a.updateCoupon(target)
		a.NextPayment = daycount.AddMonthsClamped(a.NextPayment, months)
	}

	if matured {
		a.ScheduledPrincipal = a.Balance
		a.PrincipalPaid += a.Balance
		a.Balance = 0
		a.InterestPaid += a.Accrued
		a.Accrued = 0
		a.Maturity = farFuture
	}

	if settled {
		price := a.Price
		if a.settlementPrice != nil {
			price = *a.settlementPrice
		}
		proceeds := price * a.Balance
		a.PrincipalPaid += proceeds
		a.UnscheduledPrincipal += proceeds
		a.Balance = 0
	}

	a.LastSimDate = accrueUntil

	a.UnscheduledPrincipal += prepayments
	a.DefaultedPrincipal += defaults
	a.RecoveredPrincipal += recovery

	if a.simulatingInterim {
		a.simulatingInterim = false
		return
	}

	a.takeSnapshot(target)
	a.UnscheduledPrincipal = 0
	a.ScheduledPrincipal = 0
	a.DefaultedPrincipal = 0
	a.RecoveredPrincipal = 0
	a.ResetPeriodAccrual()
}

func (a *Asset) effectiveCPR(asOf time.Time) float64 {
	if asOf.After(a.CPRLockoutEnd) {
		return a.CPR
	}
	return 0
}

func (a *Asset) effectiveCDR(asOf time.Time) float64 {
	if asOf.After(a.CDRLockoutEnd) {
		return a.CDR
	}
	return 0
}

// Liquidate schedules a sale settlement date without mutating balance;
// accrual continues until that date before settlement fires in Simulate.
// settlementPrice fixes the per-unit sale price used at settlement
// (Market liquidation passes the asset's own mark price; NAV-90 and
// Override liquidation compute a different price at the portfolio level).
// Calling Liquidate twice with the same accrualDate is idempotent.
func (a *Asset) Liquidate(accrualDate time.Time, settlementPrice float64) error {
	switch a.Kind {
	case Loan:
		a.SettlementDate = daycount.AddUKBusinessDays(accrualDate, 10)
	case Bond:
		a.SettlementDate = daycount.AddUKBusinessDays(accrualDate, 2)
	default:
		return clerr.New(clerr.InvalidInput, a.FIGI, "invalid asset kind")
	}
	a.settlementPrice = &settlementPrice
	return nil
}

func (a *Asset) updateCoupon(fixingDate time.Time) {
	if a.IsFloating && a.Curve != nil {
		a.Rate = a.Curve.RateAt(fixingDate) + a.Spread
	}
}

// SweepInterest credits InterestPaid to dst and zeros it, returning the
// amount swept.
func (a *Asset) SweepInterest(dst *account.Account) float64 {
	amount := a.InterestPaid
	_ = dst.Credit(amount)
	a.InterestPaid = 0
	return amount
}

// SweepPrincipal credits PrincipalPaid to dst and zeros it, returning the
// amount swept.
func (a *Asset) SweepPrincipal(dst *account.Account) float64 {
	amount := a.PrincipalPaid
	_ = dst.Credit(amount)
	a.PrincipalPaid = 0
	return amount
}

func (a *Asset) takeSnapshot(asOf time.Time) {
	a.History = append(a.History, Snapshot{
		Date:                 asOf,
		Balance:              a.Balance,
		PrincipalPaid:        a.PrincipalPaid,
		ScheduledPrincipal:   a.ScheduledPrincipal,
		UnscheduledPrincipal: a.UnscheduledPrincipal,
		DefaultedPrincipal:   a.DefaultedPrincipal,
		RecoveredPrincipal:   a.RecoveredPrincipal,
		InterestPaid:         a.InterestPaid,
		PeriodAccrual:        a.PeriodAccrual,
		InterestAccrued:      a.Accrued,
		Coupon:               a.Rate,
		Spread:               a.Spread,
		Price:                a.Price,
	})
}

func pow(base, exp float64) float64 {
	if base <= 0 {
		if exp == 0 {
			return 1
		}
		return 0
	}
	return math.Pow(base, exp)
}
