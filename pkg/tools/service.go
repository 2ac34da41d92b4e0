package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rajbagri/Jewellery-Loan-App/pkg/ledger"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/models"
	"github.com/shopspring/decimal"
)

// Service answers read-only questions about the ledger as plain text.
type Service struct {
	ledger *ledger.Ledger
	loc    *time.Location
	now    func() time.Time
}

// NewService creates a Service over l. Dates are read and shown in loc.
func NewService(l *ledger.Ledger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{ledger: l, loc: loc, now: time.Now}
}

// ListCustomers lists customers, newest first, optionally filtered by name or town.
func (s *Service) ListCustomers(_ context.Context, query string) (string, error) {
	customers := ledger.FilterCustomers(s.ledger.Snapshot().Customers(), query)
	if len(customers) == 0 {
		return "No customers found.", nil
	}

	var sb strings.Builder
	for _, c := range customers {
		fmt.Fprintf(&sb, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Town, c.Number, s.format(c.Time))
	}
	return sb.String(), nil
}

// CustomerSummary returns paid and unpaid totals for one customer.
func (s *Service) CustomerSummary(_ context.Context, customer, date string) (string, error) {
	asOf, err := s.parseAsOf(date)
	if err != nil {
		return "", err
	}
	snap := s.ledger.Snapshot()
	c, err := resolveCustomer(snap, customer)
	if err != nil {
		return "", err
	}

	sum := s.ledger.Aggregator().Customer(snap, c.ID, asOf)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Customer: %s (%s)\n", c.Name, c.Town)
	fmt.Fprintf(&sb, "As of: %s\n", asOf.In(s.loc).Format(ledger.DisplayLayout))
	writeSummary(&sb, sum)
	return sb.String(), nil
}

// LedgerSummary returns paid and unpaid totals across all customers.
func (s *Service) LedgerSummary(_ context.Context, date string) (string, error) {
	asOf, err := s.parseAsOf(date)
	if err != nil {
		return "", err
	}
	snap := s.ledger.Snapshot()
	sum := s.ledger.Aggregator().All(snap, asOf)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Customers: %d\n", len(snap.Customers()))
	fmt.Fprintf(&sb, "As of: %s\n", asOf.In(s.loc).Format(ledger.DisplayLayout))
	writeSummary(&sb, sum)
	return sb.String(), nil
}

// CustomerEntries lists each entry of a customer with its sub-entry lines.
func (s *Service) CustomerEntries(_ context.Context, customer, date string) (string, error) {
	asOf, err := s.parseAsOf(date)
	if err != nil {
		return "", err
	}
	snap := s.ledger.Snapshot()
	c, err := resolveCustomer(snap, customer)
	if err != nil {
		return "", err
	}
	agg := s.ledger.Aggregator()

	entries := ledger.FilterEntries(snap.Entries(c.ID), "", s.loc)
	if len(entries) == 0 {
		return fmt.Sprintf("No entries for %s.", c.Name), nil
	}

	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s  %s  %s%s\n", s.format(e.Time), e.Jewellery, money(e.Amount), crossMark(e.Cross))
		for _, se := range ledger.FilterSubEntries(snap.SubEntries(c.ID, e.ID), "", s.loc) {
			line := agg.Line(se, asOf)
			fmt.Fprintf(&sb, "  %s  %s @ %s%%  interest %s  total %s  (%s)%s\n",
				s.format(se.Time), money(se.Amount), se.InterestRate, money(line.Interest), money(line.Total), line.Elapsed, crossMark(se.Cross))
		}
	}
	return sb.String(), nil
}

// resolveCustomer finds a customer by ID, then by name. An ambiguous name is an error.
func resolveCustomer(snap *ledger.Snapshot, key string) (models.Customer, error) {
	if c, ok := snap.Customer(key); ok {
		return c, nil
	}
	matches := ledger.FilterCustomers(snap.Customers(), key)
	if len(matches) == 0 {
		return models.Customer{}, fmt.Errorf("no customer found matching '%s'", key)
	}
	for _, c := range matches {
		if strings.EqualFold(c.Name, key) {
			return c, nil
		}
	}
	if len(matches) > 1 {
		names := make([]string, len(matches))
		for i, c := range matches {
			names[i] = fmt.Sprintf("  - %s [%s] %s", c.Name, c.Town, c.ID)
		}
		return models.Customer{}, fmt.Errorf("multiple customers match '%s':\n%s\nPlease be more specific.", key, strings.Join(names, "\n"))
	}
	return matches[0], nil
}

// parseAsOf accepts RFC 3339 or YYYY-MM-DD (end of that day). Empty means now.
func (s *Service) parseAsOf(date string) (time.Time, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return s.now(), nil
	}
	if t, err := time.Parse(time.RFC3339, date); err == nil {
		return t, nil
	}
	d, err := time.ParseInLocation("2006-01-02", date, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date '%s': use YYYY-MM-DD or RFC 3339", date)
	}
	return d.AddDate(0, 0, 1).Add(-time.Second), nil
}

func (s *Service) format(ms int64) string {
	return models.TimeOf(ms).In(s.loc).Format(ledger.DisplayLayout)
}

func writeSummary(sb *strings.Builder, sum ledger.Summary) {
	fmt.Fprintf(sb, "Unpaid: principal %s, interest %s, total %s\n",
		money(sum.UnpaidPrincipal), money(sum.UnpaidInterest), money(sum.UnpaidTotal()))
	fmt.Fprintf(sb, "Paid:   principal %s, interest %s, total %s\n",
		money(sum.PaidPrincipal), money(sum.PaidInterest), money(sum.PaidTotal()))
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func crossMark(cross bool) string {
	if cross {
		return "  [settled]"
	}
	return ""
}
