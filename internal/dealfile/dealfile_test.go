package dealfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/meridian-analytics/clo-engine/internal/portfolio"
	"github.com/meridian-analytics/clo-engine/internal/scenario"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func baseAssumptions() scenario.Assumptions {
	return scenario.Assumptions{
		CPR:              0.1,
		CDR:              0.02,
		RecoveryRate:     0.6,
		PaymentFrequency: 4,
		// A zero tenor would give each reinvestment loan a maturity equal
		// to its construction date, which asset.New rejects.
		ReinvestmentMaturityMonths: 24,
		LiquidationType:  portfolio.Nav90,
	}
}

func writeDeal(t *testing.T, d Deal) string {
	t.Helper()
	dir := t.TempDir()
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal deal: %v", err)
	}
	path := filepath.Join(dir, "deal.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write deal: %v", err)
	}
	return path
}

func minimalDeal() Deal {
	return Deal{
		DealID:              "TEST-1",
		ReportDate:          date(2026, 1, 1),
		NextPaymentDate:     date(2026, 4, 1),
		ReinvestmentEndDate: date(2028, 1, 1),
		NonCallEndDate:      date(2027, 1, 1),
		SeniorManagementFee: 0.002,
		JuniorManagementFee: 0.001,
		Collateral: []Collateral{
			{
				FIGI:        "LOAN1",
				Kind:        "loan",
				Balance:     1_000_000,
				Price:       1.0,
				Spread:      0.03,
				Coupon:      0.05,
				FixOrFloat:  "fixed",
				PaymentFreq: 4,
				NextPayment: date(2026, 4, 1),
				Maturity:    date(2029, 1, 1),
			},
		},
		Tranches: []CapitalRow{
			{Rating: "AAA", Balance: 700_000, Margin: 0.01, Coupon: 0.02, IsFixed: true},
			{Rating: "Equity", IsEquity: true, Balance: 300_000},
		},
	}
}

func TestLoadRoundTripsDealFile(t *testing.T) {
	d := minimalDeal()
	path := writeDeal(t, d)

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.DealID != d.DealID {
		t.Fatalf("deal id = %q, want %q", loaded.DealID, d.DealID)
	}
	if len(loaded.Collateral) != 1 {
		t.Fatalf("collateral count = %d, want 1", len(loaded.Collateral))
	}
}

func TestBuildFixedRateDealRunsToCompletion(t *testing.T) {
	d := minimalDeal()
	engine, err := Build(d, baseAssumptions())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if err := engine.Simulate(); err != nil {
		t.Fatalf("Simulate() error: %v", err)
	}
	if len(engine.History) == 0 {
		t.Fatal("expected at least one snapshot")
	}
}

func TestBuildRejectsDealWithoutEquityTranche(t *testing.T) {
	d := minimalDeal()
	d.Tranches = []CapitalRow{{Rating: "AAA", Balance: 1_000_000, IsFixed: true}}

	if _, err := Build(d, baseAssumptions()); err == nil {
		t.Fatal("expected error for missing equity tranche")
	}
}

func TestBuildRejectsFloatingCollateralWithoutCurve(t *testing.T) {
	d := minimalDeal()
	d.Collateral[0].FixOrFloat = "float"

	if _, err := Build(d, baseAssumptions()); err == nil {
		t.Fatal("expected error: floating collateral requires a curve")
	}
}

func TestBuildWiresEuriborCurveIntoFloatingCollateralAndTranches(t *testing.T) {
	d := minimalDeal()
	d.Collateral[0].FixOrFloat = "float"
	d.Tranches[0].IsFixed = false
	d.Curves = CurveTable{
		Dates: []time.Time{date(2026, 1, 1), date(2030, 1, 1)},
		Rates: map[string][]float64{
			EuriborCurveID: {3.0, 3.0},
		},
	}

	engine, err := Build(d, baseAssumptions())
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if engine.EuriborCurve == nil {
		t.Fatal("expected EuriborCurve to be wired onto the CLO for reinvestment")
	}
	if got := engine.EuriborCurve.RateAt(date(2027, 1, 1)); got < 0.029 || got > 0.031 {
		t.Fatalf("flat curve rate = %v, want ~0.03", got)
	}
}

func TestCollateralIsFloatingRecognisesVariants(t *testing.T) {
	cases := []struct {
		value string
		want  bool
	}{
		{"fixed", false},
		{"", false},
		{"float", true},
		{"Floating", true},
		{"FLOAT", true},
	}
	for _, c := range cases {
		cr := Collateral{FixOrFloat: c.value}
		if got := cr.IsFloating(); got != c.want {
			t.Fatalf("IsFloating(%q) = %v, want %v", c.value, got, c.want)
		}
	}
}
