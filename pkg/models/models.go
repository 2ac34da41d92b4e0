package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultInterestRate is the monthly interest rate, in percent, applied to a
// sub-entry when none is supplied.
var DefaultInterestRate = decimal.NewFromInt(3)

var (
	ErrEmptyID        = errors.New("empty identifier")
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrNegativeRate   = errors.New("interest rate must not be negative")
)

// Customer is a khata account holder. Time is the creation instant in epoch milliseconds.
type Customer struct {
	ID     string `json:"id"`
	Name   string `json:"customer_name"`
	Town   string `json:"customer_town"`
	Number string `json:"number"`
	Time   int64  `json:"time"`
}

// Entry is a principal record (usually a pawned item) owned by a customer.
// Its Amount and Cross fields are informational; totals come from its sub-entries.
type Entry struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Jewellery string          `json:"jewellery"`
	Cross     bool            `json:"cross"` // settled
	Time      int64           `json:"time"`
}

// SubEntry is a loan or repayment line under an entry. It is the only record
// kind that contributes money to summaries.
type SubEntry struct {
	ID           string          `json:"id"`
	Amount       decimal.Decimal `json:"amount"`
	InterestRate decimal.Decimal `json:"interest_rate"` // percent per month
	Cross        bool            `json:"cross"`         // settled
	Time         int64           `json:"time"`
}

// NewSubEntry returns an unsettled sub-entry at the default rate.
func NewSubEntry(amount decimal.Decimal, at time.Time) SubEntry {
	return SubEntry{
		ID:           uuid.New().String(),
		Amount:       amount,
		InterestRate: DefaultInterestRate,
		Time:         Millis(at),
	}
}

// EnsureID assigns a random identifier when the customer has none.
func (c *Customer) EnsureID() {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
}

func (e *Entry) EnsureID() {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
}

func (s *SubEntry) EnsureID() {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
}

// Validate checks the record invariants before it is persisted.
func (c Customer) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("customer: %w", ErrEmptyID)
	}
	return nil
}

func (e Entry) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("entry: %w", ErrEmptyID)
	}
	if e.Amount.IsNegative() {
		return fmt.Errorf("entry %s: %w", e.ID, ErrNegativeAmount)
	}
	return nil
}

func (s SubEntry) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("sub-entry: %w", ErrEmptyID)
	}
	if s.Amount.IsNegative() {
		return fmt.Errorf("sub-entry %s: %w", s.ID, ErrNegativeAmount)
	}
	if s.InterestRate.IsNegative() {
		return fmt.Errorf("sub-entry %s: %w", s.ID, ErrNegativeRate)
	}
	return nil
}

// ParseAmount coerces user input to a non-negative amount. Anything that does
// not parse, or parses negative, becomes zero.
func ParseAmount(text string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ParseRate coerces user input to a monthly rate, falling back to DefaultInterestRate.
func ParseRate(text string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(text))
	if err != nil || d.IsNegative() {
		return DefaultInterestRate
	}
	return d
}

// TimeOf converts epoch milliseconds to a time.Time.
func TimeOf(ms int64) time.Time {
	return time.UnixMilli(ms)
}

// Millis converts a time.Time to epoch milliseconds.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}
