package ledger

import (
	"time"

	"github.com/rajbagri/Jewellery-Loan-App/pkg/interest"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/models"
	"github.com/shopspring/decimal"
)

// Summary holds principal and interest partitioned by the settled (cross) flag.
type Summary struct {
	UnpaidPrincipal decimal.Decimal `json:"unpaid_principal"`
	UnpaidInterest  decimal.Decimal `json:"unpaid_interest"`
	PaidPrincipal   decimal.Decimal `json:"paid_principal"`
	PaidInterest    decimal.Decimal `json:"paid_interest"`
}

func (s Summary) UnpaidTotal() decimal.Decimal {
	return s.UnpaidPrincipal.Add(s.UnpaidInterest)
}

func (s Summary) PaidTotal() decimal.Decimal {
	return s.PaidPrincipal.Add(s.PaidInterest)
}

// Add returns the component-wise sum of two summaries.
func (s Summary) Add(o Summary) Summary {
	return Summary{
		UnpaidPrincipal: s.UnpaidPrincipal.Add(o.UnpaidPrincipal),
		UnpaidInterest:  s.UnpaidInterest.Add(o.UnpaidInterest),
		PaidPrincipal:   s.PaidPrincipal.Add(o.PaidPrincipal),
		PaidInterest:    s.PaidInterest.Add(o.PaidInterest),
	}
}

// Equal compares component-wise.
func (s Summary) Equal(o Summary) bool {
	return s.UnpaidPrincipal.Equal(o.UnpaidPrincipal) &&
		s.UnpaidInterest.Equal(o.UnpaidInterest) &&
		s.PaidPrincipal.Equal(o.PaidPrincipal) &&
		s.PaidInterest.Equal(o.PaidInterest)
}

// Rounded returns the summary at display precision.
func (s Summary) Rounded() Summary {
	return Summary{
		UnpaidPrincipal: interest.Round(s.UnpaidPrincipal),
		UnpaidInterest:  interest.Round(s.UnpaidInterest),
		PaidPrincipal:   interest.Round(s.PaidPrincipal),
		PaidInterest:    interest.Round(s.PaidInterest),
	}
}

// ScopeKind selects the part of the hierarchy a summary covers.
type ScopeKind int

const (
	ScopeAll ScopeKind = iota
	ScopeCustomer
	ScopeEntry
)

type Scope struct {
	Kind       ScopeKind
	CustomerID string
	EntryID    string
}

func AllCustomers() Scope { return Scope{Kind: ScopeAll} }

func CustomerScope(customerID string) Scope {
	return Scope{Kind: ScopeCustomer, CustomerID: customerID}
}

func EntryScope(customerID, entryID string) Scope {
	return Scope{Kind: ScopeEntry, CustomerID: customerID, EntryID: entryID}
}

// Aggregator rolls sub-entry interest up to entry, customer and ledger level.
// Only sub-entries carry money: an entry's own amount and cross flag never
// contribute, so an entry without sub-entries sums to zero.
type Aggregator struct {
	Calc interest.Calculator
}

// SubEntries summarizes a flat list of sub-entries.
func (a Aggregator) SubEntries(list []models.SubEntry, asOf time.Time) Summary {
	var sum Summary
	for _, se := range list {
		accrued := a.Calc.Accrue(se.Amount, se.InterestRate, models.TimeOf(se.Time), asOf)
		if se.Cross {
			sum.PaidPrincipal = sum.PaidPrincipal.Add(se.Amount)
			sum.PaidInterest = sum.PaidInterest.Add(accrued)
		} else {
			sum.UnpaidPrincipal = sum.UnpaidPrincipal.Add(se.Amount)
			sum.UnpaidInterest = sum.UnpaidInterest.Add(accrued)
		}
	}
	return sum
}

func (a Aggregator) Entry(s *Snapshot, customerID, entryID string, asOf time.Time) Summary {
	return a.SubEntries(s.SubEntries(customerID, entryID), asOf)
}

func (a Aggregator) Customer(s *Snapshot, customerID string, asOf time.Time) Summary {
	var sum Summary
	for _, e := range s.Entries(customerID) {
		sum = sum.Add(a.Entry(s, customerID, e.ID, asOf))
	}
	return sum
}

// All summarizes every customer present in the snapshot.
func (a Aggregator) All(s *Snapshot, asOf time.Time) Summary {
	var sum Summary
	for _, c := range s.Customers() {
		sum = sum.Add(a.Customer(s, c.ID, asOf))
	}
	return sum
}

func (a Aggregator) Summarize(s *Snapshot, scope Scope, asOf time.Time) Summary {
	switch scope.Kind {
	case ScopeCustomer:
		return a.Customer(s, scope.CustomerID, asOf)
	case ScopeEntry:
		return a.Entry(s, scope.CustomerID, scope.EntryID, asOf)
	default:
		return a.All(s, asOf)
	}
}

// Line is the per-card figure for a single sub-entry.
type Line struct {
	SubEntry models.SubEntry `json:"sub_entry"`
	Interest decimal.Decimal `json:"interest"`
	Total    decimal.Decimal `json:"total"`
	Elapsed  string          `json:"elapsed"`
}

// Line computes the interest, total and elapsed time shown for one sub-entry.
func (a Aggregator) Line(se models.SubEntry, asOf time.Time) Line {
	start := models.TimeOf(se.Time)
	accrued := a.Calc.Accrue(se.Amount, se.InterestRate, start, asOf)
	return Line{
		SubEntry: se,
		Interest: accrued,
		Total:    se.Amount.Add(accrued),
		Elapsed:  a.Calc.Elapsed(start, asOf).String(),
	}
}
