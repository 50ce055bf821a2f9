// Package scenario loads the typed simulation assumptions a CLO run is
// parameterised by: prepayment/default/recovery rates, reinvestment and
// liquidation policy, and the WAL constraint.
package scenario

import (
	"encoding/json"
	"os"
	"time"

	"github.com/meridian-analytics/clo-engine/internal/clerr"
	"github.com/meridian-analytics/clo-engine/internal/portfolio"
)

// Assumptions is the full set of scenario-level knobs for a simulation run.
type Assumptions struct {
	CPR                      float64                  `json:"cpr"`
	CDR                      float64                  `json:"cdr"`
	CPRLockoutMonths         int                      `json:"cpr_lockout_months"`
	CDRLockoutMonths         int                      `json:"cdr_lockout_months"`
	RecoveryRate             float64                  `json:"recovery_rate"`
	PaymentFrequency         int                      `json:"payment_frequency"`
	ReinvestmentMaturityMonths int                    `json:"reinvestment_maturity_months"`
	WALLimitYears            float64                  `json:"wal_limit_years"`
	LiquidationType          portfolio.LiquidationType `json:"liquidation_type"`
	UseTopDownDefaults       bool                     `json:"use_top_down_defaults"`
}

// rawAssumptions mirrors Assumptions but keeps LiquidationType as a raw
// string so it can be validated through portfolio.ParseLiquidationType
// rather than trusting the JSON decoder's bare type assertion.
type rawAssumptions struct {
	CPR                        float64 `json:"cpr"`
	CDR                        float64 `json:"cdr"`
	CPRLockoutMonths           int     `json:"cpr_lockout_months"`
	CDRLockoutMonths           int     `json:"cdr_lockout_months"`
	RecoveryRate               float64 `json:"recovery_rate"`
	PaymentFrequency           int     `json:"payment_frequency"`
	ReinvestmentMaturityMonths int     `json:"reinvestment_maturity_months"`
	WALLimitYears              float64 `json:"wal_limit_years"`
	LiquidationType            string  `json:"liquidation_type"`
	UseTopDownDefaults         bool    `json:"use_top_down_defaults"`
}

// Load reads and validates scenario assumptions from path.
func Load(path string) (Assumptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Assumptions{}, clerr.Wrap(clerr.InvalidInput, path, "cannot read scenario file", err)
	}

	var raw rawAssumptions
	if err := json.Unmarshal(data, &raw); err != nil {
		return Assumptions{}, clerr.Wrap(clerr.InvalidInput, path, "cannot parse scenario file", err)
	}

	liquidationType := raw.LiquidationType
	if liquidationType == "" {
		liquidationType = string(portfolio.Nav90)
	}
	parsed, err := portfolio.ParseLiquidationType(liquidationType)
	if err != nil {
		return Assumptions{}, err
	}

	if raw.PaymentFrequency <= 0 {
		return Assumptions{}, clerr.New(clerr.InvalidInput, path, "payment_frequency must be positive")
	}

	return Assumptions{
		CPR:                        raw.CPR,
		CDR:                        raw.CDR,
		CPRLockoutMonths:           raw.CPRLockoutMonths,
		CDRLockoutMonths:           raw.CDRLockoutMonths,
		RecoveryRate:               raw.RecoveryRate,
		PaymentFrequency:           raw.PaymentFrequency,
		ReinvestmentMaturityMonths: raw.ReinvestmentMaturityMonths,
		WALLimitYears:              raw.WALLimitYears,
		LiquidationType:            parsed,
		UseTopDownDefaults:         raw.UseTopDownDefaults,
	}, nil
}

// CDRLockoutEnd returns the top-down-defaults sentinel (9999-12-31) when
// UseTopDownDefaults is set, else reportDate plus CDRLockoutMonths.
func (a Assumptions) CDRLockoutEnd(reportDate time.Time) time.Time {
	if a.UseTopDownDefaults {
		return time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	return reportDate.AddDate(0, a.CDRLockoutMonths, 0)
}

// CPRLockoutEnd returns reportDate plus CPRLockoutMonths.
func (a Assumptions) CPRLockoutEnd(reportDate time.Time) time.Time {
	return reportDate.AddDate(0, a.CPRLockoutMonths, 0)
}
