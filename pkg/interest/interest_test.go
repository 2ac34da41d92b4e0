package interest

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var utc = Calculator{Location: time.UTC}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 30, 0, 0, time.UTC)
}

func TestAccrue_PartialMonthChargesFullMonth(t *testing.T) {
	principal := decimal.NewFromInt(1000)
	rate := decimal.NewFromInt(3)
	start := date(2024, time.June, 1)

	for _, asOf := range []time.Time{start, start.Add(time.Hour), date(2024, time.June, 2), date(2024, time.June, 30)} {
		got := utc.Accrue(principal, rate, start, asOf)
		if !got.Equal(decimal.NewFromInt(30)) {
			t.Errorf("Expected 30 for asOf %s, got %s", asOf, got)
		}
	}
}

func TestAccrue_OneWholeMonth(t *testing.T) {
	got := utc.Accrue(decimal.NewFromInt(1000), decimal.NewFromInt(3), date(2024, time.June, 1), date(2024, time.July, 1))
	if !got.Equal(decimal.NewFromInt(30)) {
		t.Errorf("Expected 30, got %s", got)
	}
}

func TestAccrue_TrailingDays(t *testing.T) {
	// 1 month and 14 days: 1000 -> 1030, then 1030 * 0.001 * 14 = 14.42.
	got := utc.Accrue(decimal.NewFromInt(1000), decimal.NewFromInt(3), date(2024, time.May, 1), date(2024, time.June, 15))
	expected := decimal.RequireFromString("44.42")
	if !got.Equal(expected) {
		t.Errorf("Expected %s, got %s", expected, got)
	}
}

func TestAccrue_BlockBoundary(t *testing.T) {
	p := decimal.NewFromInt(1000)
	r := decimal.RequireFromString("0.03")
	one := decimal.NewFromInt(1)

	tests := []struct {
		name     string
		start    time.Time
		asOf     time.Time
		expected decimal.Decimal
	}{
		{
			name:     "12 months is one simple block",
			start:    date(2023, time.January, 10),
			asOf:     date(2024, time.January, 10),
			expected: p.Mul(one.Add(r.Mul(decimal.NewFromInt(12)))).Sub(p),
		},
		{
			name:     "13 months compounds once",
			start:    date(2023, time.January, 10),
			asOf:     date(2024, time.February, 10),
			expected: p.Mul(one.Add(r.Mul(decimal.NewFromInt(12)))).Mul(one.Add(r)).Sub(p),
		},
		{
			name:     "24 months is two blocks",
			start:    date(2022, time.March, 5),
			asOf:     date(2024, time.March, 5),
			expected: decimal.RequireFromString("849.6"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := utc.Accrue(p, decimal.NewFromInt(3), tt.start, tt.asOf)
			if !got.Equal(tt.expected) {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestAccrue_ThirteenMonthsValue(t *testing.T) {
	got := utc.Accrue(decimal.NewFromInt(1000), decimal.NewFromInt(3), date(2023, time.January, 10), date(2024, time.February, 10))
	expected := decimal.RequireFromString("400.8")
	if !got.Equal(expected) {
		t.Errorf("Expected %s, got %s", expected, got)
	}
}

func TestAccrue_AsOfBeforeStartIsZero(t *testing.T) {
	start := date(2024, time.June, 1)
	got := utc.Accrue(decimal.NewFromInt(1000), decimal.NewFromInt(3), start, start.Add(-time.Minute))
	if !got.Equal(decimal.Zero) {
		t.Errorf("Expected 0, got %s", got)
	}

	got = utc.Accrue(decimal.NewFromInt(1000), decimal.NewFromInt(3), start, start.AddDate(-1, 0, 0))
	if !got.Equal(decimal.Zero) {
		t.Errorf("Expected 0, got %s", got)
	}
}

func TestAccrue_ZeroRate(t *testing.T) {
	got := utc.Accrue(decimal.NewFromInt(1000), decimal.Zero, date(2020, time.January, 1), date(2024, time.June, 17))
	if !got.Equal(decimal.Zero) {
		t.Errorf("Expected 0, got %s", got)
	}
}

// Trailing days are charged on the running principal, so late in a block the
// day before a month boundary can exceed the next whole month. Between
// boundaries the value never decreases.
func TestAccrue_NonDecreasingBetweenMonthBoundaries(t *testing.T) {
	principal := decimal.NewFromInt(2500)
	rate := decimal.RequireFromString("2.5")
	start := date(2022, time.February, 14)

	prev := decimal.Zero
	for asOf := start; asOf.Before(date(2025, time.June, 1)); asOf = asOf.AddDate(0, 0, 1) {
		got := utc.Accrue(principal, rate, start, asOf)
		_, days := utc.Breakdown(start, asOf)
		if got.LessThan(prev) && days != 0 {
			t.Fatalf("Interest dropped mid-month at %s: %s -> %s", asOf.Format("2006-01-02"), prev, got)
		}
		prev = got
	}
}

func TestAccrue_ThirtyDayRemainderPreserved(t *testing.T) {
	// Jan 15 -> Apr 14 is 2 months and 30 days; Apr 15 is 3 months.
	p := decimal.NewFromInt(1000)
	r := decimal.NewFromInt(3)
	before := utc.Accrue(p, r, date(2024, time.January, 15), date(2024, time.April, 14))
	after := utc.Accrue(p, r, date(2024, time.January, 15), date(2024, time.April, 15))

	if !before.Equal(decimal.RequireFromString("91.8")) {
		t.Errorf("Expected 91.8, got %s", before)
	}
	if !after.Equal(decimal.NewFromInt(90)) {
		t.Errorf("Expected 90, got %s", after)
	}
}

func TestBreakdown(t *testing.T) {
	tests := []struct {
		start, asOf  time.Time
		months, days int
	}{
		{date(2024, time.January, 31), date(2024, time.February, 29), 0, 29},
		{date(2024, time.January, 31), date(2024, time.March, 1), 1, 1},
		{date(2023, time.January, 31), date(2023, time.February, 28), 0, 28},
		{date(2024, time.May, 1), date(2024, time.June, 15), 1, 14},
		{date(2023, time.March, 20), date(2024, time.March, 19), 11, 28},
		{date(2023, time.March, 20), date(2024, time.March, 20), 12, 0},
	}
	for _, tt := range tests {
		months, days := utc.Breakdown(tt.start, tt.asOf)
		if months != tt.months || days != tt.days {
			t.Errorf("Breakdown(%s, %s) = (%d, %d), expected (%d, %d)",
				tt.start.Format("2006-01-02"), tt.asOf.Format("2006-01-02"), months, days, tt.months, tt.days)
		}
	}
}

func TestBreakdown_UsesCalculatorLocation(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	c := Calculator{Location: kolkata}

	// 20:00 UTC on May 31 is already June 1 in IST.
	start := time.Date(2024, time.May, 31, 20, 0, 0, 0, time.UTC)
	asOf := time.Date(2024, time.July, 1, 1, 0, 0, 0, time.UTC)

	months, days := c.Breakdown(start, asOf)
	if months != 1 || days != 0 {
		t.Errorf("Expected (1, 0) in IST, got (%d, %d)", months, days)
	}

	months, days = utc.Breakdown(start, asOf)
	if months != 1 || days != 1 {
		t.Errorf("Expected (1, 1) in UTC, got (%d, %d)", months, days)
	}
}

func TestPeriodString(t *testing.T) {
	tests := []struct {
		p        Period
		expected string
	}{
		{Period{}, ""},
		{Period{Days: 1}, "1 day"},
		{Period{Years: 1, Months: 2, Days: 3}, "1 year 2 months 3 days"},
		{Period{Years: 2}, "2 years"},
	}
	for _, tt := range tests {
		if got := tt.p.String(); got != tt.expected {
			t.Errorf("Expected %q, got %q", tt.expected, got)
		}
	}

	p := utc.Elapsed(date(2022, time.March, 1), date(2023, time.May, 4))
	if p != (Period{Years: 1, Months: 2, Days: 3}) {
		t.Errorf("Expected 1y2m3d, got %+v", p)
	}
}

func TestRound(t *testing.T) {
	got := Round(decimal.RequireFromString("14.4249"))
	if !got.Equal(decimal.RequireFromString("14.42")) {
		t.Errorf("Expected 14.42, got %s", got)
	}
}
