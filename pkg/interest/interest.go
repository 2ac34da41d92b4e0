// Package interest computes accrued interest on khata principals.
//
// Interest is charged per calendar month at a monthly percentage rate. A
// principal younger than one whole month is charged a flat single month.
// Whole months are applied in blocks of at most twelve: inside a block the
// interest is simple, and each block's interest is added to the running
// principal before the next block starts. Leftover days after the last whole
// month are charged at one thirtieth of the monthly rate on that running
// principal.
package interest

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// monthsPerBlock is the number of months charged as simple interest
	// before the interest is folded into the principal.
	monthsPerBlock = 12
	daysPerMonth   = 30
	displayPlaces  = 2
)

var (
	hundred       = decimal.NewFromInt(100)
	daysPerMonthD = decimal.NewFromInt(daysPerMonth)
)

// Calculator converts instants to calendar dates in Location before counting
// months and days. A nil Location means time.Local.
type Calculator struct {
	Location *time.Location
}

// Default is the calculator used by the package-level functions.
var Default = Calculator{}

// Accrue returns the interest accrued on principal between start and asOf
// using the Default calculator.
func Accrue(principal, monthlyRatePercent decimal.Decimal, start, asOf time.Time) decimal.Decimal {
	return Default.Accrue(principal, monthlyRatePercent, start, asOf)
}

// Accrue returns the interest accrued on principal between start and asOf.
// It never fails; an asOf before start yields zero.
func (c Calculator) Accrue(principal, monthlyRatePercent decimal.Decimal, start, asOf time.Time) decimal.Decimal {
	if asOf.Before(start) {
		return decimal.Zero
	}

	months, extraDays := c.Breakdown(start, asOf)
	monthlyRate := monthlyRatePercent.Div(hundred)

	if months < 1 {
		return principal.Mul(monthlyRate)
	}

	acc := principal
	for remaining := months; remaining > 0; {
		chunk := min(remaining, monthsPerBlock)
		acc = acc.Add(acc.Mul(monthlyRate).Mul(decimal.NewFromInt(int64(chunk))))
		remaining -= chunk
	}

	// acc * (monthlyRate / 30) * extraDays, divided last to keep precision.
	daily := acc.Mul(monthlyRate).Mul(decimal.NewFromInt(int64(extraDays))).Div(daysPerMonthD)
	acc = acc.Add(daily)

	return acc.Sub(principal)
}

// Breakdown splits the span from start to asOf into whole calendar months and
// the remaining days. Both are zero when asOf is before start.
func (c Calculator) Breakdown(start, asOf time.Time) (months, days int) {
	if asOf.Before(start) {
		return 0, 0
	}
	from := c.dateOf(start)
	to := c.dateOf(asOf)

	months = monthsBetween(from, to)
	days = daysBetween(addMonths(from, months), to)
	return months, days
}

// Period is an elapsed span in calendar years, months and days.
type Period struct {
	Years  int
	Months int
	Days   int
}

// Elapsed returns the calendar period between start and asOf.
func (c Calculator) Elapsed(start, asOf time.Time) Period {
	months, days := c.Breakdown(start, asOf)
	return Period{Years: months / 12, Months: months % 12, Days: days}
}

// String renders the period the way the ledger cards show it, e.g.
// "1 year 2 months 3 days". Zero parts are omitted.
func (p Period) String() string {
	var parts []string
	add := func(n int, unit string) {
		switch {
		case n == 1:
			parts = append(parts, fmt.Sprintf("1 %s", unit))
		case n > 1:
			parts = append(parts, fmt.Sprintf("%d %ss", n, unit))
		}
	}
	add(p.Years, "year")
	add(p.Months, "month")
	add(p.Days, "day")
	return strings.Join(parts, " ")
}

// Round rounds an amount to the display precision. Only presentation code
// should call it.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(displayPlaces)
}

func (c Calculator) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// dateOf returns the calendar date of t in the calculator's location, as
// midnight UTC so that day arithmetic is free of DST shifts.
func (c Calculator) dateOf(t time.Time) time.Time {
	y, m, d := t.In(c.location()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// monthsBetween counts whole calendar months from a to b. A month is only
// complete once b's day-of-month reaches a's.
func monthsBetween(a, b time.Time) int {
	total := (b.Year()*12 + int(b.Month())) - (a.Year()*12 + int(a.Month()))
	days := b.Day() - a.Day()
	switch {
	case total > 0 && days < 0:
		total--
	case total < 0 && days > 0:
		total++
	}
	return total
}

// addMonths moves d forward n months, clamping to the last day of the
// target month (Jan 31 + 1 month = Feb 28 or 29).
func addMonths(d time.Time, n int) time.Time {
	first := time.Date(d.Year(), d.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	return time.Date(first.Year(), first.Month(), min(d.Day(), last), 0, 0, 0, 0, time.UTC)
}

func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
