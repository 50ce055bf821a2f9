// Package clo implements the top-level Collateralised Loan Obligation
// state machine: construction-time backdating, the monthly simulation
// loop, reinvestment and liquidation policy, and the CLO-level snapshot
// history.
package clo

import (
	"fmt"
	"time"

	"github.com/meridian-analytics/clo-engine/internal/account"
	"github.com/meridian-analytics/clo-engine/internal/asset"
	"github.com/meridian-analytics/clo-engine/internal/clerr"
	"github.com/meridian-analytics/clo-engine/internal/curve"
	"github.com/meridian-analytics/clo-engine/internal/daycount"
	"github.com/meridian-analytics/clo-engine/internal/fee"
	"github.com/meridian-analytics/clo-engine/internal/portfolio"
	"github.com/meridian-analytics/clo-engine/internal/tranche"
	"github.com/meridian-analytics/clo-engine/internal/waterfall"
)

var farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

// Snapshot captures the CLO's aggregate state at the end of a simulated
// month.
type Snapshot struct {
	Date                    time.Time
	TotalDebt               float64
	TotalAssetBalance       float64
	InterestAccrued         float64
	InterestSwept           float64
	InterestAccountBalance  float64
	PrincipalSwept          float64
	PrincipalAccountBalance float64
	PrincipalReinvested     float64
	WeightedAverageSpread   float64
	WeightedAverageCoupon   float64
	WeightedAveragePrice    float64
	WeightedAverageLife     float64
	NAV                     float64
	NAV90                   float64
}

// Config bundles every collaborator and assumption a CLO is built from.
type Config struct {
	ReportDate          time.Time
	NextPaymentDate     time.Time
	ReinvestmentEndDate time.Time
	NonCallEndDate      time.Time

	Portfolio     *portfolio.Portfolio
	DebtTranches  []*tranche.Tranche
	EquityTranche *tranche.Tranche

	ExpensesFee  *fee.Management
	SeniorFee    *fee.Management
	JuniorFee    *fee.Management
	IncentiveFee *fee.Incentive

	InterestAccount  *account.Account
	PrincipalAccount *account.Account

	PaymentFrequency           int
	CPR                        float64
	CDR                        float64
	RecoveryRate               float64
	ReinvestmentMaturityMonths int
	WALLimitYears              float64
	LiquidationType            portfolio.LiquidationType
	EuriborCurve               *curve.Curve

	// EnableWALConstrainedReinvestment turns on the WAL-solved reinvestment
	// maturity in place of the flat ReinvestmentMaturityMonths tenor.
	// Disabled by default, per the WAL-constrained reinvestment policy.
	EnableWALConstrainedReinvestment bool
}

// CLO is the root of the simulation: one portfolio, a capital structure of
// tranches, three management fees plus the incentive fee, two cash
// accounts, and the monthly state machine tying them together.
type CLO struct {
	ReportDate          time.Time
	NextPaymentDate     time.Time
	ReinvestmentEndDate time.Time
	NonCallEndDate      time.Time
	LastSimDate         time.Time
	SimulateUntil       time.Time
	PaymentDay          int

	Portfolio     *portfolio.Portfolio
	DebtTranches  []*tranche.Tranche
	EquityTranche *tranche.Tranche

	ExpensesFee  *fee.Management
	SeniorFee    *fee.Management
	JuniorFee    *fee.Management
	IncentiveFee *fee.Incentive

	InterestWaterfall  *waterfall.Waterfall
	PrincipalWaterfall *waterfall.Waterfall

	InterestAccount  *account.Account
	PrincipalAccount *account.Account

	PaymentFrequency           int
	PaymentIntervalMonths      int
	CPR                        float64
	CDR                        float64
	RecoveryRate               float64
	ReinvestmentMaturityMonths int
	WALLimitYears              float64
	LiquidationType            portfolio.LiquidationType
	EuriborCurve               *curve.Curve

	EnableWALConstrainedReinvestment bool

	InLiquidation         bool
	LiquidationTriggerDate time.Time
	LiquidationDate        time.Time

	InterestSwept       float64
	PrincipalSwept      float64
	PrincipalReinvested float64
	NumReinvestmentAssets int

	History []Snapshot
}

// New constructs a CLO, backdating tranche/fee accrual and the portfolio
// to the prior payment date, advancing the portfolio to ReportDate, and
// computing the initial simulation cursor and liquidation-date policy.
func New(cfg Config) (*CLO, error) {
	if !cfg.ReportDate.Before(cfg.NextPaymentDate) {
		return nil, clerr.New(clerr.InvalidInput, "CLO", "report date must be before next payment date")
	}
	if cfg.PaymentFrequency <= 0 {
		return nil, clerr.New(clerr.InvalidInput, "CLO", "payment frequency must be positive")
	}

	paymentIntervalMonths := 12 / cfg.PaymentFrequency
	priorPaymentDate := daycount.AddMonthsClamped(cfg.NextPaymentDate, -paymentIntervalMonths)

	for _, t := range append(append([]*tranche.Tranche{}, cfg.DebtTranches...), cfg.EquityTranche) {
		t.LastSimDate = priorPaymentDate
	}

	aggregate := cfg.Portfolio.TotalBalance() + cfg.PrincipalAccount.Balance
	for _, f := range []*fee.Management{cfg.ExpensesFee, cfg.SeniorFee, cfg.JuniorFee} {
		f.LastSimDate = priorPaymentDate
		f.RefreshBalance(aggregate)
	}
	cfg.IncentiveFee.LastSimDate = priorPaymentDate

	cutoff := daycount.SubUKBusinessDays(priorPaymentDate, 8)
	cfg.Portfolio.Backdate(cutoff)
	cfg.Portfolio.Simulate(cfg.ReportDate)

	c := &CLO{
		ReportDate:          cfg.ReportDate,
		NextPaymentDate:     cfg.NextPaymentDate,
		ReinvestmentEndDate: cfg.ReinvestmentEndDate,
		NonCallEndDate:      cfg.NonCallEndDate,
		LastSimDate:         cfg.ReportDate,
		PaymentDay:          cfg.NextPaymentDate.Day(),

		Portfolio:     cfg.Portfolio,
		DebtTranches:  cfg.DebtTranches,
		EquityTranche: cfg.EquityTranche,

		ExpensesFee:  cfg.ExpensesFee,
		SeniorFee:    cfg.SeniorFee,
		JuniorFee:    cfg.JuniorFee,
		IncentiveFee: cfg.IncentiveFee,

		InterestAccount:  cfg.InterestAccount,
		PrincipalAccount: cfg.PrincipalAccount,

		PaymentFrequency:           cfg.PaymentFrequency,
		PaymentIntervalMonths:      paymentIntervalMonths,
		CPR:                        cfg.CPR,
		CDR:                        cfg.CDR,
		RecoveryRate:               cfg.RecoveryRate,
		ReinvestmentMaturityMonths: cfg.ReinvestmentMaturityMonths,
		WALLimitYears:              cfg.WALLimitYears,
		LiquidationType:            cfg.LiquidationType,
		EuriborCurve:               cfg.EuriborCurve,

		EnableWALConstrainedReinvestment: cfg.EnableWALConstrainedReinvestment,

		LiquidationDate: farFuture,
	}

	sortedDebt := waterfall.SortDebtTranches(cfg.DebtTranches)
	c.DebtTranches = sortedDebt
	c.InterestWaterfall = waterfall.Build(waterfall.InterestPhase, cfg.ExpensesFee, cfg.SeniorFee, cfg.JuniorFee, cfg.IncentiveFee, sortedDebt, cfg.EquityTranche)
	c.PrincipalWaterfall = waterfall.Build(waterfall.PrincipalPhase, cfg.ExpensesFee, cfg.SeniorFee, cfg.JuniorFee, cfg.IncentiveFee, sortedDebt, cfg.EquityTranche)

	c.InterestSwept = cfg.Portfolio.SweepInterest(cfg.InterestAccount)
	c.PrincipalSwept = cfg.Portfolio.SweepPrincipal(cfg.PrincipalAccount)

	first, err := calcFirstSimulationDate(cfg.ReportDate, cfg.NextPaymentDate)
	if err != nil {
		return nil, err
	}
	c.SimulateUntil = first
	c.LiquidationTriggerDate = c.liquidationTriggerDate()

	return c, nil
}

func calcFirstSimulationDate(reportDate, nextPaymentDate time.Time) (time.Time, error) {
	if !reportDate.Before(nextPaymentDate) {
		return time.Time{}, clerr.New(clerr.InvalidInput, "CLO", "report date must be before next payment date")
	}
	monthDelta := 0
	for !reportDate.After(daycount.AddMonthsClamped(nextPaymentDate, monthDelta)) {
		monthDelta--
	}
	monthDelta++
	return daycount.AddMonthsClamped(nextPaymentDate, monthDelta), nil
}

// liquidationTriggerDate implements the liquidation-date policy: within
// the reinvestment period, two years past its end; otherwise the earlier
// of 18 months out or the portfolio WAL less 18 months.
func (c *CLO) liquidationTriggerDate() time.Time {
	if !c.ReportDate.After(c.ReinvestmentEndDate) {
		return c.ReinvestmentEndDate.AddDate(2, 0, 0)
	}
	optionA := c.ReportDate.AddDate(0, 18, 0)
	walMonths := int(c.Portfolio.WeightedAverageLife() * 12)
	optionB := c.ReportDate.AddDate(0, walMonths-18, 0)
	if optionB.Before(optionA) {
		return optionB
	}
	return optionA
}

func (c *CLO) allTranches() []*tranche.Tranche {
	return append(append([]*tranche.Tranche{}, c.DebtTranches...), c.EquityTranche)
}

func (c *CLO) aggregateCollateralBalance() float64 {
	return c.Portfolio.TotalBalance() + c.PrincipalAccount.Balance
}

func (c *CLO) totalDebt() float64 {
	var total float64
	for _, t := range c.DebtTranches {
		total += t.Balance
	}
	return total
}

func (c *CLO) continueSimulating() bool {
	return c.aggregateCollateralBalance() > 0 ||
		(c.InLiquidation && !c.SimulateUntil.After(c.LiquidationDate)) ||
		c.Portfolio.TotalInterestAccrued() > 0
}

// Simulate runs the monthly state machine until the collateral balance and
// the principal account are both zero and no asset carries accrued
// interest, and, once in liquidation, the cursor has passed the
// liquidation date. The interest account balance is not part of the test.
func (c *CLO) Simulate() error {
	for c.continueSimulating() {
		if err := c.step(); err != nil {
			return err
		}
	}
	return nil
}

// Call exercises an early redemption ahead of the policy-driven
// liquidation trigger. It is rejected before NonCallEndDate.
func (c *CLO) Call(asOf time.Time) error {
	if asOf.Before(c.NonCallEndDate) {
		return clerr.New(clerr.InvalidInput, "CLO", "cannot call before the non-call end date")
	}
	if c.InLiquidation {
		return nil
	}
	return c.triggerLiquidation(asOf)
}

func (c *CLO) step() error {
	if !c.InLiquidation && !c.SimulateUntil.Before(c.LiquidationTriggerDate) {
		if err := c.triggerLiquidation(c.SimulateUntil); err != nil {
			return err
		}
	}

	c.Portfolio.Simulate(c.SimulateUntil)
	c.InterestSwept = c.Portfolio.SweepInterest(c.InterestAccount)
	c.PrincipalSwept = c.Portfolio.SweepPrincipal(c.PrincipalAccount)

	c.ExpensesFee.Simulate(c.SimulateUntil)
	c.SeniorFee.Simulate(c.SimulateUntil)
	c.JuniorFee.Simulate(c.SimulateUntil)
	c.IncentiveFee.Simulate(c.SimulateUntil)

	for _, t := range c.allTranches() {
		t.Simulate(c.SimulateUntil)
	}

	c.PrincipalReinvested = 0
	if !c.SimulateUntil.After(c.ReinvestmentEndDate) && c.PrincipalAccount.Balance > 0 {
		reinvested, err := c.reinvest()
		if err != nil {
			return err
		}
		c.PrincipalReinvested = reinvested
	}

	if c.SimulateUntil.Equal(c.NextPaymentDate) {
		balance := c.aggregateCollateralBalance()
		c.ExpensesFee.RefreshBalance(balance)
		c.SeniorFee.RefreshBalance(balance)
		c.JuniorFee.RefreshBalance(balance)

		c.InterestWaterfall.Pay(c.InterestAccount, tranche.Interest)
		c.PrincipalWaterfall.Pay(c.PrincipalAccount, tranche.Amortization)

		nextFixing := daycount.AddMonthsClamped(c.SimulateUntil, 1)
		for _, t := range c.DebtTranches {
			t.UpdateCoupon(nextFixing)
		}
		c.NextPaymentDate = daycount.AddMonthsClamped(c.NextPaymentDate, c.PaymentIntervalMonths)
	}

	c.takeSnapshot()
	c.LastSimDate = c.SimulateUntil
	c.SimulateUntil = daycount.SafeSetDay(daycount.AddMonthsClamped(c.SimulateUntil, 1), c.PaymentDay)
	return nil
}

func (c *CLO) triggerLiquidation(cursor time.Time) error {
	accrualDate := cursor.AddDate(0, 0, 14)
	redemptionDate := daycount.AddMonthsClamped(cursor, 1)

	if err := c.Portfolio.Liquidate(accrualDate, c.LiquidationType); err != nil {
		return err
	}
	for _, t := range c.allTranches() {
		t.NotifyOfLiquidation(redemptionDate)
	}
	c.ExpensesFee.NotifyOfLiquidation(redemptionDate)
	c.SeniorFee.NotifyOfLiquidation(redemptionDate)
	c.JuniorFee.NotifyOfLiquidation(redemptionDate)
	c.IncentiveFee.NotifyOfLiquidation(redemptionDate)

	c.InLiquidation = true
	c.LiquidationDate = redemptionDate
	return nil
}

// reinvest sweeps the entire principal account into a synthetic,
// weighted-average-priced floating-rate loan appended to the portfolio.
func (c *CLO) reinvest() (float64, error) {
	cash := c.PrincipalAccount.Debit(c.PrincipalAccount.Balance)
	if cash <= 0 {
		return 0, nil
	}

	nextPayment := c.NextPaymentDate
	if c.SimulateUntil.Equal(c.NextPaymentDate) {
		nextPayment = daycount.AddMonthsClamped(c.NextPaymentDate, c.PaymentIntervalMonths)
	}

	maturity, err := c.reinvestmentMaturity(cash, c.SimulateUntil)
	if err != nil {
		return 0, err
	}

	price := c.Portfolio.WeightedAveragePrice()
	if price > 1 {
		price = 1
	}
	coupon := c.Portfolio.WeightedAverageCoupon()
	spread := c.Portfolio.WeightedAverageSpread()

	newAsset, err := asset.New(asset.Config{
		FIGI:          fmt.Sprintf("Reinvestment Asset %d (WA)", c.NumReinvestmentAssets),
		Kind:          asset.Loan,
		Balance:       cash / price,
		Price:         price,
		Spread:        spread,
		InitialCoupon: coupon,
		PaymentFreq:   c.PaymentFrequency,
		ReportDate:    c.SimulateUntil,
		NextPayment:   nextPayment,
		Maturity:      maturity,
		CPRLockoutEnd: c.Portfolio.CPRLockoutEnd(),
		CDRLockoutEnd: c.Portfolio.CDRLockoutEnd(),
		CPR:           c.CPR,
		CDR:           c.CDR,
		RecoveryRate:  c.RecoveryRate,
		Curve:         c.EuriborCurve,
		IsFloating:    true,
	})
	if err != nil {
		return 0, err
	}

	c.Portfolio.AddAsset(newAsset)
	c.NumReinvestmentAssets++
	return cash, nil
}

// reinvestmentMaturity returns a flat tenor unless WAL-constrained
// reinvestment is enabled, in which case it solves for the largest
// maturity that keeps the portfolio WAL within WALLimitYears, clamped to
// [currentDate + 1 month, report date + 15 years].
func (c *CLO) reinvestmentMaturity(balance float64, currentDate time.Time) (time.Time, error) {
	if !c.EnableWALConstrainedReinvestment {
		return daycount.AddMonthsClamped(currentDate, c.ReinvestmentMaturityMonths), nil
	}

	totalBalance := c.Portfolio.TotalBalance() + balance
	currentWAL := c.Portfolio.WeightedAverageLife()
	maxWALContribution := (c.WALLimitYears*totalBalance - currentWAL*c.Portfolio.TotalBalance()) / balance
	if maxWALContribution <= 0 {
		return time.Time{}, clerr.New(clerr.WalLimitBreached, "CLO", "WAL limit has been breached; no valid maturity can be calculated")
	}

	maxMaturityMonths := int(maxWALContribution * 12)
	maturity := daycount.AddMonthsClamped(c.ReportDate, maxMaturityMonths)

	floor := daycount.AddMonthsClamped(currentDate, 1)
	if maturity.Before(floor) {
		maturity = floor
	}
	ceiling := c.ReportDate.AddDate(15, 0, 0)
	if maturity.After(ceiling) {
		maturity = ceiling
	}
	return maturity, nil
}

func (c *CLO) takeSnapshot() {
	totalDebt := c.totalDebt()
	c.History = append(c.History, Snapshot{
		Date:                    c.SimulateUntil,
		TotalDebt:               totalDebt,
		TotalAssetBalance:       c.Portfolio.TotalBalance(),
		InterestAccrued:         c.Portfolio.TotalInterestAccrued(),
		InterestSwept:           c.InterestSwept,
		InterestAccountBalance:  c.InterestAccount.Balance,
		PrincipalSwept:          c.PrincipalSwept,
		PrincipalAccountBalance: c.PrincipalAccount.Balance,
		PrincipalReinvested:     c.PrincipalReinvested,
		WeightedAverageSpread:   c.Portfolio.WeightedAverageSpread(),
		WeightedAverageCoupon:   c.Portfolio.WeightedAverageCoupon(),
		WeightedAveragePrice:    c.Portfolio.WeightedAveragePrice(),
		WeightedAverageLife:     c.Portfolio.WeightedAverageLife(),
		NAV:                     c.Portfolio.MarketValue() - totalDebt,
		NAV90:                   c.Portfolio.MarketValue90() - totalDebt,
	})
}
