// Package dealfile decodes the flat JSON deal description shared by the
// CLO engine's entrypoints (collateral pool, capital structure, forward-
// rate curves and fee terms) and wires it into a runnable clo.CLO.
package dealfile

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/meridian-analytics/clo-engine/internal/account"
	"github.com/meridian-analytics/clo-engine/internal/asset"
	"github.com/meridian-analytics/clo-engine/internal/clerr"
	"github.com/meridian-analytics/clo-engine/internal/clo"
	"github.com/meridian-analytics/clo-engine/internal/curve"
	"github.com/meridian-analytics/clo-engine/internal/fee"
	"github.com/meridian-analytics/clo-engine/internal/portfolio"
	"github.com/meridian-analytics/clo-engine/internal/scenario"
	"github.com/meridian-analytics/clo-engine/internal/tranche"
)

// EuriborCurveID is the forward-rate curve column used for every
// floating-rate asset and tranche, and for synthetic reinvestment loans.
const EuriborCurveID = "EURIBOR_3MO"

// Collateral describes a single asset row in a deal file. FixOrFloat holds
// "fixed" or "floating"; only floating collateral consults Curves.
type Collateral struct {
	FIGI        string    `json:"figi"`
	Kind        string    `json:"kind"`
	Balance     float64   `json:"balance"`
	Price       float64   `json:"price"`
	Spread      float64   `json:"spread"`
	Coupon      float64   `json:"coupon"`
	FixOrFloat  string    `json:"fix_or_float"`
	PaymentFreq int       `json:"pay_freq"`
	NextPayment time.Time `json:"next_payment_date"`
	Maturity    time.Time `json:"maturity_date"`
}

// IsFloating reports whether the collateral row's rate resets off a curve.
func (c Collateral) IsFloating() bool {
	switch c.FixOrFloat {
	case "float", "floating", "Float", "Floating", "FLOAT":
		return true
	default:
		return false
	}
}

// CapitalRow describes a single capital-structure row in a deal file.
type CapitalRow struct {
	Rating   string  `json:"rating"`
	Balance  float64 `json:"balance"`
	Margin   float64 `json:"margin"`
	Coupon   float64 `json:"coupon"`
	IsFixed  bool    `json:"is_fixed"`
	IsEquity bool    `json:"is_equity"`
}

// CurveTable is the wide forward-rate curve table: one shared set of
// knot dates and, per curve id, a parallel slice of rates in percent
// (e.g. 3.25, not 0.0325).
type CurveTable struct {
	Dates []time.Time           `json:"dates"`
	Rates map[string][]float64 `json:"rates"`
}

// Build constructs a curve.Curve for id from the table, converting its
// rates from percent to a per-annum decimal.
func (ct CurveTable) Build(id string) (*curve.Curve, error) {
	rates, ok := ct.Rates[id]
	if !ok {
		return nil, clerr.New(clerr.InvalidInput, id, "curve id not present in curve table")
	}
	decimalRates := make([]float64, len(rates))
	for i, r := range rates {
		decimalRates[i] = r / 100.0
	}
	return curve.New(id, ct.Dates, decimalRates)
}

// Deal is the flat JSON document describing a CLO to be simulated.
type Deal struct {
	DealID                string       `json:"deal_id"`
	ReportDate            time.Time    `json:"report_date"`
	NextPaymentDate       time.Time    `json:"next_payment_date"`
	ReinvestmentEndDate   time.Time    `json:"reinvestment_end_date"`
	NonCallEndDate        time.Time    `json:"non_call_end_date"`
	SeniorManagementFee   float64      `json:"senior_management_fee"`
	JuniorManagementFee   float64      `json:"junior_management_fee"`
	IncentiveFeeBalance   float64      `json:"incentive_fee_irr_balance"`
	IncentiveFeeHurdle    float64      `json:"incentive_fee_irr_threshold"`
	IncentiveFeeDiversion float64      `json:"incentive_fee_excess_pct"`
	LiquidationType       string       `json:"liquidation_type"`
	Collateral            []Collateral `json:"collateral"`
	Tranches              []CapitalRow `json:"tranches"`
	Curves                CurveTable   `json:"curves"`
}

// Load reads and decodes a deal file from path.
func Load(path string) (Deal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Deal{}, fmt.Errorf("reading deal file: %w", err)
	}
	var d Deal
	if err := json.Unmarshal(data, &d); err != nil {
		return Deal{}, fmt.Errorf("parsing deal file: %w", err)
	}
	return d, nil
}

// Build combines a Deal with scenario Assumptions into a runnable CLO.
// CPR/CDR lockout dates are derived from the scenario's lockout-month
// parameters (and the top-down-defaults sentinel), applied uniformly
// across the collateral pool, per the external scenario interface.
func Build(d Deal, assumptions scenario.Assumptions) (*clo.CLO, error) {
	var euriborCurve *curve.Curve
	if len(d.Curves.Dates) > 0 {
		built, err := d.Curves.Build(EuriborCurveID)
		if err != nil {
			return nil, err
		}
		euriborCurve = built
	}

	cprLockoutEnd := assumptions.CPRLockoutEnd(d.ReportDate)
	cdrLockoutEnd := assumptions.CDRLockoutEnd(d.ReportDate)

	assets := make([]*asset.Asset, 0, len(d.Collateral))
	for _, cr := range d.Collateral {
		kind, err := asset.ParseKind(cr.Kind)
		if err != nil {
			return nil, err
		}
		isFloating := cr.IsFloating()
		if isFloating && euriborCurve == nil {
			return nil, clerr.New(clerr.InvalidInput, cr.FIGI, "floating-rate collateral requires a EURIBOR_3MO curve")
		}
		var assetCurve *curve.Curve
		if isFloating {
			assetCurve = euriborCurve
		}
		a, err := asset.New(asset.Config{
			FIGI:          cr.FIGI,
			Kind:          kind,
			Balance:       cr.Balance,
			Price:         cr.Price,
			Spread:        cr.Spread,
			InitialCoupon: cr.Coupon,
			PaymentFreq:   cr.PaymentFreq,
			ReportDate:    d.ReportDate,
			NextPayment:   cr.NextPayment,
			Maturity:      cr.Maturity,
			CPRLockoutEnd: cprLockoutEnd,
			CDRLockoutEnd: cdrLockoutEnd,
			CPR:           assumptions.CPR,
			CDR:           assumptions.CDR,
			RecoveryRate:  assumptions.RecoveryRate,
			Curve:         assetCurve,
			IsFloating:    isFloating,
		})
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}

	p, err := portfolio.New(assets, d.ReportDate)
	if err != nil {
		return nil, err
	}

	var debtTranches []*tranche.Tranche
	var equityTranche *tranche.Tranche
	for _, tr := range d.Tranches {
		if tr.IsEquity {
			equityTranche = tranche.NewEquity(tr.Balance, d.ReportDate)
			continue
		}
		var trancheCurve *curve.Curve
		if !tr.IsFixed {
			trancheCurve = euriborCurve
		}
		debtTranches = append(debtTranches, tranche.NewDebt(tr.Rating, tr.Balance, tr.Margin, tr.Coupon, d.ReportDate, tr.IsFixed, trancheCurve))
	}
	if equityTranche == nil {
		return nil, clerr.New(clerr.InvalidInput, d.DealID, "deal has no equity tranche")
	}

	expensesFee := fee.NewManagement("SeniorExpensesFee", 0, 0, 0, 0, d.ReportDate)
	seniorFee := fee.NewManagement("SeniorMgmtFee", 0, d.SeniorManagementFee, 0, 0, d.ReportDate)
	juniorFee := fee.NewManagement("JuniorMgmtFee", 0, d.JuniorManagementFee, 0, 0, d.ReportDate)
	incentiveFee := fee.NewIncentive(d.IncentiveFeeBalance, d.IncentiveFeeHurdle, d.IncentiveFeeDiversion, d.ReportDate)

	liquidationType := assumptions.LiquidationType
	if d.LiquidationType != "" {
		parsed, err := portfolio.ParseLiquidationType(d.LiquidationType)
		if err != nil {
			return nil, err
		}
		liquidationType = parsed
	}

	return clo.New(clo.Config{
		ReportDate:                 d.ReportDate,
		NextPaymentDate:            d.NextPaymentDate,
		ReinvestmentEndDate:        d.ReinvestmentEndDate,
		NonCallEndDate:             d.NonCallEndDate,
		Portfolio:                  p,
		DebtTranches:               debtTranches,
		EquityTranche:              equityTranche,
		ExpensesFee:                expensesFee,
		SeniorFee:                  seniorFee,
		JuniorFee:                  juniorFee,
		IncentiveFee:               incentiveFee,
		InterestAccount:            account.New("interest", 0),
		PrincipalAccount:           account.New("principal", 0),
		PaymentFrequency:           assumptions.PaymentFrequency,
		CPR:                        assumptions.CPR,
		CDR:                        assumptions.CDR,
		RecoveryRate:               assumptions.RecoveryRate,
		ReinvestmentMaturityMonths: assumptions.ReinvestmentMaturityMonths,
		WALLimitYears:              assumptions.WALLimitYears,
		LiquidationType:            liquidationType,
		EuriborCurve:               euriborCurve,
	})
}
