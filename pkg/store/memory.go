package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/rajbagri/Jewellery-Loan-App/pkg/models"
)

// MemoryStore is an in-memory implementation of Storage, safe for concurrent use.
type MemoryStore struct {
	mu         sync.Mutex
	customers  []models.Customer
	entries    map[string][]models.Entry
	subEntries map[[2]string][]models.SubEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:    map[string][]models.Entry{},
		subEntries: map[[2]string][]models.SubEntry{},
	}
}

func (m *MemoryStore) ListCustomers(context.Context) ([]models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.customers), nil
}

func (m *MemoryStore) GetCustomer(_ context.Context, id string) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := slices.IndexFunc(m.customers, func(c models.Customer) bool { return c.ID == id })
	if i < 0 {
		return nil, fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}
	c := m.customers[i]
	return &c, nil
}

func (m *MemoryStore) UpsertCustomer(_ context.Context, c *models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers = upsert(m.customers, *c, func(x models.Customer) bool { return x.ID == c.ID })
	return nil
}

func (m *MemoryStore) DeleteCustomer(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.customers)
	m.customers = slices.DeleteFunc(m.customers, func(c models.Customer) bool { return c.ID == id })
	if len(m.customers) == n {
		return fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}
	delete(m.entries, id)
	for key := range m.subEntries {
		if key[0] == id {
			delete(m.subEntries, key)
		}
	}
	return nil
}

func (m *MemoryStore) ListEntries(_ context.Context, customerID string, _ Freshness) ([]models.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.entries[customerID]), nil
}

func (m *MemoryStore) GetEntry(_ context.Context, customerID, entryID string) (*models.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.entries[customerID]
	i := slices.IndexFunc(list, func(e models.Entry) bool { return e.ID == entryID })
	if i < 0 {
		return nil, fmt.Errorf("entry %s/%s: %w", customerID, entryID, ErrNotFound)
	}
	e := list[i]
	return &e, nil
}

func (m *MemoryStore) UpsertEntry(_ context.Context, customerID string, e *models.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.ContainsFunc(m.customers, func(c models.Customer) bool { return c.ID == customerID }) {
		return fmt.Errorf("customer %s: %w", customerID, ErrNotFound)
	}
	m.entries[customerID] = upsert(m.entries[customerID], *e, func(x models.Entry) bool { return x.ID == e.ID })
	return nil
}

func (m *MemoryStore) DeleteEntry(_ context.Context, customerID, entryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.entries[customerID]
	n := len(list)
	list = slices.DeleteFunc(list, func(e models.Entry) bool { return e.ID == entryID })
	if len(list) == n {
		return fmt.Errorf("entry %s/%s: %w", customerID, entryID, ErrNotFound)
	}
	m.entries[customerID] = list
	delete(m.subEntries, [2]string{customerID, entryID})
	return nil
}

func (m *MemoryStore) ListSubEntries(_ context.Context, customerID, entryID string, _ Freshness) ([]models.SubEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.subEntries[[2]string{customerID, entryID}]), nil
}

func (m *MemoryStore) GetSubEntry(_ context.Context, customerID, entryID, subEntryID string) (*models.SubEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.subEntries[[2]string{customerID, entryID}]
	i := slices.IndexFunc(list, func(se models.SubEntry) bool { return se.ID == subEntryID })
	if i < 0 {
		return nil, fmt.Errorf("sub-entry %s/%s/%s: %w", customerID, entryID, subEntryID, ErrNotFound)
	}
	se := list[i]
	return &se, nil
}

func (m *MemoryStore) UpsertSubEntry(_ context.Context, customerID, entryID string, se *models.SubEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.ContainsFunc(m.entries[customerID], func(e models.Entry) bool { return e.ID == entryID }) {
		return fmt.Errorf("entry %s/%s: %w", customerID, entryID, ErrNotFound)
	}
	key := [2]string{customerID, entryID}
	m.subEntries[key] = upsert(m.subEntries[key], *se, func(x models.SubEntry) bool { return x.ID == se.ID })
	return nil
}

func (m *MemoryStore) DeleteSubEntry(_ context.Context, customerID, entryID, subEntryID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]string{customerID, entryID}
	list := m.subEntries[key]
	n := len(list)
	list = slices.DeleteFunc(list, func(se models.SubEntry) bool { return se.ID == subEntryID })
	if len(list) == n {
		return fmt.Errorf("sub-entry %s/%s/%s: %w", customerID, entryID, subEntryID, ErrNotFound)
	}
	m.subEntries[key] = list
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// upsert replaces the first element matching same or appends v. The input
// slice is never written to, so earlier readers keep their copy.
func upsert[T any](list []T, v T, same func(T) bool) []T {
	out := slices.Clone(list)
	if i := slices.IndexFunc(out, same); i >= 0 {
		out[i] = v
		return out
	}
	return append(out, v)
}

var _ Storage = (*MemoryStore)(nil)
