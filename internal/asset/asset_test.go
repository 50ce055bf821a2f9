package asset

import (
	"math"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestAsset(t *testing.T, cpr, cdr, recovery float64) *Asset {
	t.Helper()
	cfg := Config{
		FIGI:          "TESTLOAN",
		Kind:          Loan,
		Balance:       1_000_000,
		Price:         1.0,
		InitialCoupon: 0.05,
		PaymentFreq:   4,
		ReportDate:    date(2026, 1, 1),
		NextPayment:   date(2026, 4, 1),
		Maturity:      date(2027, 1, 1),
		CPRLockoutEnd: date(2020, 1, 1),
		CDRLockoutEnd: date(2020, 1, 1),
		CPR:           cpr,
		CDR:           cdr,
		RecoveryRate:  recovery,
		IsFloating:    false,
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return a
}

// Scenario A: trivial amortisation, no prepay/default, quarterly pay.
func TestScenarioA_TrivialAmortisation(t *testing.T) {
	a := newTestAsset(t, 0, 0, 1.0)

	quarters := []time.Time{date(2026, 4, 1), date(2026, 7, 1), date(2026, 10, 1), date(2027, 1, 1)}
	var totalInterest float64
	for _, q := range quarters {
		a.Simulate(q)
		totalInterest += a.InterestPaid
		a.InterestPaid = 0
	}

	// ACT/360 over the 365 actual days from 2026-01-01 to 2027-01-01.
	wantTotal := 1_000_000 * 0.05 * (365.0 / 360.0)
	if math.Abs(totalInterest-wantTotal) > 1.0 {
		t.Fatalf("total interest = %v, want ~%v", totalInterest, wantTotal)
	}
	if a.Balance != 0 {
		t.Fatalf("balance at maturity = %v, want 0", a.Balance)
	}
	last := a.History[len(a.History)-1]
	if math.Abs(last.PrincipalPaid-1_000_000) > 1.0 {
		t.Fatalf("cumulative principal paid = %v, want ~1,000,000", last.PrincipalPaid)
	}
}

// Scenario B: pure prepayment, full CPR, no lockout.
func TestScenarioB_PurePrepayment(t *testing.T) {
	cfg := Config{
		FIGI:          "TESTLOAN",
		Kind:          Loan,
		Balance:       1_000_000,
		Price:         1.0,
		InitialCoupon: 0.05,
		PaymentFreq:   4,
		ReportDate:    date(2026, 1, 1),
		NextPayment:   date(2026, 4, 1),
		Maturity:      date(2027, 1, 1),
		CPRLockoutEnd: date(2020, 1, 1),
		CDRLockoutEnd: date(2020, 1, 1),
		CPR:           1.0,
		CDR:           0,
		RecoveryRate:  1.0,
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	a.Simulate(date(2026, 4, 1))
	if a.Balance != 0 {
		t.Fatalf("balance = %v, want 0 after full prepayment", a.Balance)
	}
	if math.Abs(a.History[len(a.History)-1].PrincipalPaid-1_000_000) > 1.0 {
		t.Fatalf("principal paid = %v, want ~1,000,000", a.History[len(a.History)-1].PrincipalPaid)
	}
}

// Scenario C: pure default, zero recovery.
func TestScenarioC_PureDefaultZeroRecovery(t *testing.T) {
	cfg := Config{
		FIGI:          "TESTLOAN",
		Kind:          Loan,
		Balance:       1_000_000,
		Price:         1.0,
		InitialCoupon: 0.05,
		PaymentFreq:   4,
		ReportDate:    date(2026, 1, 1),
		NextPayment:   date(2026, 4, 1),
		Maturity:      date(2027, 1, 1),
		CPRLockoutEnd: date(2020, 1, 1),
		CDRLockoutEnd: date(2020, 1, 1),
		CPR:           0,
		CDR:           1.0,
		RecoveryRate:  0,
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	a.Simulate(date(2026, 4, 1))
	snap := a.History[len(a.History)-1]
	if math.Abs(snap.PrincipalPaid) > 1.0 {
		t.Fatalf("principal paid = %v, want ~0 with zero recovery", snap.PrincipalPaid)
	}
	if a.Balance != 0 {
		t.Fatalf("balance = %v, want 0 after full default", a.Balance)
	}
}

func TestLockoutNoOpWhenLockoutCoversWholeLife(t *testing.T) {
	cfg := Config{
		FIGI:          "TESTLOAN",
		Kind:          Loan,
		Balance:       1_000_000,
		Price:         1.0,
		InitialCoupon: 0.05,
		PaymentFreq:   4,
		ReportDate:    date(2026, 1, 1),
		NextPayment:   date(2026, 4, 1),
		Maturity:      date(2027, 1, 1),
		CPRLockoutEnd: date(2028, 1, 1), // after maturity
		CDRLockoutEnd: date(2020, 1, 1),
		CPR:           1.0,
		CDR:           0,
		RecoveryRate:  1.0,
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	a.Simulate(date(2026, 4, 1))
	if a.UnscheduledPrincipal != 0 || a.History[len(a.History)-1].UnscheduledPrincipal != 0 {
		t.Fatalf("expected zero unscheduled principal under full lockout, got %v", a.History[len(a.History)-1].UnscheduledPrincipal)
	}
}

func TestBalanceNeverNegativeAndStaysZeroAfterMaturity(t *testing.T) {
	a := newTestAsset(t, 0, 0, 1.0)
	a.Simulate(date(2027, 1, 1))
	if a.Balance != 0 {
		t.Fatalf("balance after maturity = %v, want 0", a.Balance)
	}
	a.Simulate(date(2027, 4, 1))
	if a.Balance != 0 {
		t.Fatalf("balance one period after maturity = %v, want it to stay 0 (never negative)", a.Balance)
	}
}

func TestLiquidateSchedulesSettlementBeforeFiring(t *testing.T) {
	a := newTestAsset(t, 0, 0, 1.0)
	if err := a.Liquidate(date(2026, 2, 1), 1.0); err != nil {
		t.Fatalf("Liquidate() error: %v", err)
	}
	if a.Balance == 0 {
		t.Fatal("liquidate must not zero balance immediately")
	}
	if !a.SettlementDate.After(date(2026, 2, 1)) {
		t.Fatalf("settlement date %v should be after accrual date due to T+10 UK business days", a.SettlementDate)
	}
}

func TestLiquidationIdempotence(t *testing.T) {
	a := newTestAsset(t, 0, 0, 1.0)
	_ = a.Liquidate(date(2026, 2, 1), 1.0)
	first := a.SettlementDate
	_ = a.Liquidate(date(2026, 2, 1), 1.0)
	if !a.SettlementDate.Equal(first) {
		t.Fatalf("liquidate is not idempotent: %v vs %v", first, a.SettlementDate)
	}
}
