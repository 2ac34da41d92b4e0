package store

import (
	"context"
	"errors"

	"github.com/rajbagri/Jewellery-Loan-App/pkg/models"
)

// ErrNotFound is returned when a customer, entry or sub-entry does not exist.
var ErrNotFound = errors.New("not found")

// Freshness tells a read whether a cached copy is acceptable.
type Freshness int

const (
	Cached Freshness = iota
	Authoritative
)

func (f Freshness) String() string {
	if f == Authoritative {
		return "authoritative"
	}
	return "cached"
}

// Storage defines the persistence operations for customers, entries and sub-entries.
// Collections are always read whole. Deleting a customer or entry deletes
// everything beneath it.
type Storage interface {
	ListCustomers(ctx context.Context) ([]models.Customer, error)
	GetCustomer(ctx context.Context, id string) (*models.Customer, error)
	UpsertCustomer(ctx context.Context, c *models.Customer) error
	DeleteCustomer(ctx context.Context, id string) error

	ListEntries(ctx context.Context, customerID string, f Freshness) ([]models.Entry, error)
	GetEntry(ctx context.Context, customerID, entryID string) (*models.Entry, error)
	UpsertEntry(ctx context.Context, customerID string, e *models.Entry) error
	DeleteEntry(ctx context.Context, customerID, entryID string) error

	ListSubEntries(ctx context.Context, customerID, entryID string, f Freshness) ([]models.SubEntry, error)
	GetSubEntry(ctx context.Context, customerID, entryID, subEntryID string) (*models.SubEntry, error)
	UpsertSubEntry(ctx context.Context, customerID, entryID string, se *models.SubEntry) error
	DeleteSubEntry(ctx context.Context, customerID, entryID, subEntryID string) error

	Close() error
}
