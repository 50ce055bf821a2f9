// Package portfolio aggregates a collection of assets: balances, weighted
// averages, market values, and the per-asset fan-out for simulate, sweep
// and liquidate.
package portfolio

import (
	"time"

	"github.com/meridian-analytics/clo-engine/internal/account"
	"github.com/meridian-analytics/clo-engine/internal/asset"
	"github.com/meridian-analytics/clo-engine/internal/clerr"
	"github.com/meridian-analytics/clo-engine/internal/daycount"
)

// LiquidationType selects how a liquidated asset's settlement price is
// determined.
type LiquidationType string

const (
	Market   LiquidationType = "Market"
	Nav90    LiquidationType = "Nav90"
	Override LiquidationType = "Override"
)

// ParseLiquidationType validates an external liquidation_type string.
func ParseLiquidationType(s string) (LiquidationType, error) {
	switch LiquidationType(s) {
	case Market, Nav90, Override:
		return LiquidationType(s), nil
	default:
		return "", clerr.New(clerr.InvalidInput, s, "unknown liquidation type")
	}
}

// Portfolio is a thin, insertion-ordered aggregator over a set of assets.
type Portfolio struct {
	Assets         []*asset.Asset
	ReportDate     time.Time
	LastSimDate    time.Time
}

// New builds a Portfolio from assets already filtered of matured
// collateral by the caller. An empty portfolio is a data-integrity error.
func New(assets []*asset.Asset, reportDate time.Time) (*Portfolio, error) {
	if len(assets) == 0 {
		return nil, clerr.New(clerr.DataIntegrity, "portfolio", "portfolio is empty after filtering")
	}
	return &Portfolio{
		Assets:      assets,
		ReportDate:  reportDate,
		LastSimDate: reportDate,
	}, nil
}

// Backdate re-seeds every asset's accrued interest as of cutoff.
func (p *Portfolio) Backdate(cutoff time.Time) {
	for _, a := range p.Assets {
		a.Backdate(cutoff)
	}
}

// Simulate advances every asset to target, in insertion order.
func (p *Portfolio) Simulate(target time.Time) {
	for _, a := range p.Assets {
		a.Simulate(target)
	}
	p.LastSimDate = target
}

// Liquidate schedules settlement on every asset, choosing each asset's
// settlement price from its liquidationType.
func (p *Portfolio) Liquidate(accrualDate time.Time, liquidationType LiquidationType) error {
	for _, a := range p.Assets {
		price, err := settlementPrice(a, liquidationType)
		if err != nil {
			return err
		}
		if err := a.Liquidate(accrualDate, price); err != nil {
			return err
		}
	}
	return nil
}

func settlementPrice(a *asset.Asset, liquidationType LiquidationType) (float64, error) {
	switch liquidationType {
	case Market:
		return a.Price, nil
	case Nav90:
		if a.Price >= 0.9 {
			return 1.0, nil
		}
		return a.Price, nil
	case Override:
		if a.ManualPriceOverride != nil {
			return *a.ManualPriceOverride, nil
		}
		return a.Price, nil
	default:
		return 0, clerr.New(clerr.InvalidInput, string(liquidationType), "unknown liquidation type")
	}
}

// AddAsset appends a reinvestment asset to the portfolio.
func (p *Portfolio) AddAsset(a *asset.Asset) {
	p.Assets = append(p.Assets, a)
}

// SweepInterest sweeps every asset's paid interest into dst, returning the
// total swept.
func (p *Portfolio) SweepInterest(dst *account.Account) float64 {
	var total float64
	for _, a := range p.Assets {
		total += a.SweepInterest(dst)
	}
	return total
}

// SweepPrincipal sweeps every asset's paid principal into dst, returning
// the total swept.
func (p *Portfolio) SweepPrincipal(dst *account.Account) float64 {
	var total float64
	for _, a := range p.Assets {
		total += a.SweepPrincipal(dst)
	}
	return total
}

// TotalBalance is the sum of every asset's balance.
func (p *Portfolio) TotalBalance() float64 {
	var total float64
	for _, a := range p.Assets {
		total += a.Balance
	}
	return total
}

// TotalInterestAccrued is the sum of every asset's unpaid accrued interest.
func (p *Portfolio) TotalInterestAccrued() float64 {
	var total float64
	for _, a := range p.Assets {
		total += a.Accrued
	}
	return total
}

// WeightedAverageCoupon is balance-weighted; 0 if the portfolio balance is 0.
func (p *Portfolio) WeightedAverageCoupon() float64 {
	total := p.TotalBalance()
	if total == 0 {
		return 0
	}
	var sum float64
	for _, a := range p.Assets {
		sum += a.Rate * (a.Balance / total)
	}
	return sum
}

// WeightedAverageSpread is balance-weighted; 0 if the portfolio balance is 0.
func (p *Portfolio) WeightedAverageSpread() float64 {
	total := p.TotalBalance()
	if total == 0 {
		return 0
	}
	var sum float64
	for _, a := range p.Assets {
		sum += a.Spread * (a.Balance / total)
	}
	return sum
}

// WeightedAveragePrice is balance-weighted; 0 if the portfolio balance is 0.
func (p *Portfolio) WeightedAveragePrice() float64 {
	total := p.TotalBalance()
	if total == 0 {
		return 0
	}
	var sum float64
	for _, a := range p.Assets {
		sum += a.Price * (a.Balance / total)
	}
	return sum
}

// WeightedAverageLife is the balance-weighted ACT/360 year fraction from
// the report date to each asset's maturity, in years.
func (p *Portfolio) WeightedAverageLife() float64 {
	total := p.TotalBalance()
	if total == 0 {
		return 0
	}
	var sum float64
	for _, a := range p.Assets {
		yf, err := daycount.YearFraction(p.ReportDate, a.Maturity, daycount.ACT360)
		if err != nil {
			continue
		}
		sum += yf * (a.Balance / total)
	}
	return sum
}

// MarketValue is the clean market value: mark price times balance, plus
// principal already paid but not yet swept.
func (p *Portfolio) MarketValue() float64 {
	var total float64
	for _, a := range p.Assets {
		total += a.Price*a.Balance + a.PrincipalPaid
	}
	return total
}

// MarketValue90 applies the NAV-90 valuation rule: assets priced at or
// above 0.9 are valued at par, others at their quoted price.
func (p *Portfolio) MarketValue90() float64 {
	var total float64
	for _, a := range p.Assets {
		price := a.Price
		if price >= 0.9 {
			price = 1.0
		}
		total += price * a.Balance
	}
	return total
}

// DirtyMarketValue includes paid and accrued interest on top of the clean
// market value.
func (p *Portfolio) DirtyMarketValue() float64 {
	var total float64
	for _, a := range p.Assets {
		total += a.Price*a.Balance + a.PrincipalPaid + a.InterestPaid + a.Accrued
	}
	return total
}

// CPRLockoutEnd mirrors the first asset's lockout end date, the reinvestment
// asset convention: newly reinvested assets inherit the portfolio's lockout.
func (p *Portfolio) CPRLockoutEnd() time.Time {
	return p.Assets[0].CPRLockoutEnd
}

// CDRLockoutEnd mirrors CPRLockoutEnd for the default-rate lockout.
func (p *Portfolio) CDRLockoutEnd() time.Time {
	return p.Assets[0].CDRLockoutEnd
}
