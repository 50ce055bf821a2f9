package curve

import (
	"math"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustCurve(t *testing.T, id string, dates []time.Time, rates []float64) *Curve {
	t.Helper()
	c, err := New(id, dates, rates)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return c
}

func TestRateAtInterpolatesLinearly(t *testing.T) {
	c := mustCurve(t, "EURIBOR_3MO",
		[]time.Time{date(2026, 1, 1), date(2026, 2, 1)},
		[]float64{0.02, 0.04},
	)
	mid := date(2026, 1, 16)
	got := c.RateAt(mid)
	if got < 0.02 || got > 0.04 {
		t.Fatalf("interpolated rate %v out of bounds", got)
	}
}

func TestRateAtFlatExtrapolation(t *testing.T) {
	c := mustCurve(t, "EURIBOR_3MO",
		[]time.Time{date(2026, 1, 1), date(2026, 6, 1)},
		[]float64{0.02, 0.05},
	)
	if got := c.RateAt(date(2020, 1, 1)); got != 0.02 {
		t.Fatalf("before-start rate = %v, want 0.02", got)
	}
	if got := c.RateAt(date(2030, 1, 1)); got != 0.05 {
		t.Fatalf("after-end rate = %v, want 0.05", got)
	}
}

func TestRateInterpolationMonotoneInKnot(t *testing.T) {
	dates := []time.Time{date(2026, 1, 1), date(2026, 7, 1), date(2027, 1, 1)}
	a := mustCurve(t, "A", dates, []float64{0.01, 0.015, 0.02})
	b := mustCurve(t, "B", dates, []float64{0.02, 0.025, 0.03})

	for d := date(2025, 12, 1); d.Before(date(2027, 3, 1)); d = d.AddDate(0, 0, 5) {
		if a.RateAt(d) > b.RateAt(d)+1e-12 {
			t.Fatalf("monotonicity violated at %v: A=%v B=%v", d, a.RateAt(d), b.RateAt(d))
		}
	}
}

func TestAverageRateOverFlatCurveEqualsFlatRate(t *testing.T) {
	c := mustCurve(t, "FLAT", []time.Time{date(2026, 1, 1), date(2026, 12, 31)}, []float64{0.03, 0.03})
	avg := c.AverageRate(date(2026, 3, 1), date(2026, 6, 1))
	if math.Abs(avg-0.03) > 1e-9 {
		t.Fatalf("average = %v, want 0.03", avg)
	}
}

func TestNewRejectsMismatchedLengths(t *testing.T) {
	_, err := New("X", []time.Time{date(2026, 1, 1)}, []float64{0.01, 0.02})
	if err == nil {
		t.Fatal("expected error for mismatched lengths")
	}
}

func TestNewRejectsNonAscendingKnots(t *testing.T) {
	_, err := New("X",
		[]time.Time{date(2026, 2, 1), date(2026, 1, 1)},
		[]float64{0.01, 0.02},
	)
	if err == nil {
		t.Fatal("expected error for non-ascending knots")
	}
}
