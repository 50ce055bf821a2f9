// Package curve implements a piecewise-linear forward-rate curve with flat
// extrapolation, the projection source for every floating-rate coupon
// reset in the engine.
package curve

import (
	"sort"
	"time"

	"github.com/meridian-analytics/clo-engine/internal/clerr"
)

// Curve is a read-only, ascending-date sequence of (date, rate) knots.
type Curve struct {
	id    string
	dates []time.Time
	rates []float64
}

// New builds a Curve from parallel date/rate slices. dates must already be
// in ascending order and carry at least two knots; rate is a per-annum
// decimal (0.0325, not 3.25).
func New(id string, dates []time.Time, rates []float64) (*Curve, error) {
	if len(dates) != len(rates) {
		return nil, clerr.New(clerr.InvalidInput, id, "curve dates and rates length mismatch")
	}
	if len(dates) < 2 {
		return nil, clerr.New(clerr.InvalidInput, id, "curve requires at least two knots")
	}
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, clerr.New(clerr.InvalidInput, id, "curve knots must be strictly ascending")
		}
	}
	d := make([]time.Time, len(dates))
	r := make([]float64, len(rates))
	copy(d, dates)
	copy(r, rates)
	return &Curve{id: id, dates: d, rates: r}, nil
}

// ID returns the curve's identifier, e.g. "EURIBOR_3MO".
func (c *Curve) ID() string { return c.id }

// RateAt linearly interpolates the curve at d, flat-extrapolating beyond
// either end knot.
func (c *Curve) RateAt(d time.Time) float64 {
	n := len(c.dates)
	if !d.After(c.dates[0]) {
		return c.rates[0]
	}
	if !d.Before(c.dates[n-1]) {
		return c.rates[n-1]
	}

	// First knot index strictly after d.
	idx := sort.Search(n, func(i int) bool { return c.dates[i].After(d) })
	lo, hi := idx-1, idx
	span := c.dates[hi].Sub(c.dates[lo]).Hours()
	if span == 0 {
		return c.rates[lo]
	}
	frac := d.Sub(c.dates[lo]).Hours() / span
	return c.rates[lo] + frac*(c.rates[hi]-c.rates[lo])
}

// AverageRate returns the arithmetic mean of RateAt over every calendar
// day in [a, b] inclusive. Tranche accrual does not use it: tranches accrue
// at the rate UpdateCoupon fixes from RateAt.
func (c *Curve) AverageRate(a, b time.Time) float64 {
	if b.Before(a) {
		a, b = b, a
	}
	days := int(b.Sub(a).Hours()/24) + 1
	sum := 0.0
	cursor := a
	for i := 0; i < days; i++ {
		sum += c.RateAt(cursor)
		cursor = cursor.AddDate(0, 0, 1)
	}
	return sum / float64(days)
}
