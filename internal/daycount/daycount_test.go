package daycount

import (
	"math"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestYearFractionACT360(t *testing.T) {
	yf, err := YearFraction(date(2026, 1, 1), date(2026, 4, 1), ACT360)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := 90.0 / 360.0
	if math.Abs(yf-want) > 1e-9 {
		t.Fatalf("got %v want %v", yf, want)
	}
}

func TestYearFraction30E360ISDA(t *testing.T) {
	cases := []struct {
		from, to time.Time
		want     float64
	}{
		{date(2026, 1, 31), date(2026, 2, 28), 28.0 / 360.0},
		{date(2026, 1, 1), date(2027, 1, 1), 360.0 / 360.0},
		{date(2026, 1, 30), date(2026, 2, 28), 28.0 / 360.0},
	}
	for _, c := range cases {
		yf, err := YearFraction(c.from, c.to, Thirty360EISDA)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(yf-c.want) > 1e-9 {
			t.Fatalf("%v -> %v: got %v want %v", c.from, c.to, yf, c.want)
		}
	}
}

func TestYearFractionUnsupportedConvention(t *testing.T) {
	_, err := YearFraction(date(2026, 1, 1), date(2026, 2, 1), Convention("bogus"))
	if err == nil {
		t.Fatal("expected an error for an unknown convention")
	}
}

func TestSafeSetDay(t *testing.T) {
	got := SafeSetDay(date(2026, 2, 1), 31)
	want := date(2026, 2, 28)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestAddUKBusinessDaysSkipsWeekendsAndHolidays(t *testing.T) {
	// 2026-01-01 is a Thursday and a bank holiday.
	got := AddUKBusinessDays(date(2026, 1, 1), 1)
	want := date(2026, 1, 2)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestSubUKBusinessDaysIsInverseOffset(t *testing.T) {
	start := date(2026, 3, 10)
	forward := AddUKBusinessDays(start, 10)
	back := SubUKBusinessDays(forward, 10)
	if !back.Equal(start) {
		t.Fatalf("round trip failed: got %v want %v", back, start)
	}
}

func TestAddMonthsClampedClampsToMonthEnd(t *testing.T) {
	got := AddMonthsClamped(date(2026, 1, 31), 1)
	want := date(2026, 2, 28)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}
