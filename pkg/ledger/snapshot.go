package ledger

import (
	"maps"
	"slices"

	"github.com/rajbagri/Jewellery-Loan-App/pkg/models"
)

// EntryKey addresses the sub-entry list of one entry.
type EntryKey struct {
	CustomerID string
	EntryID    string
}

// Snapshot is an immutable point-in-time view of the khata hierarchy.
// The With* and Without* methods return a new Snapshot and leave the
// receiver untouched. Lookups of unknown identifiers return empty results.
type Snapshot struct {
	order      []string
	customers  map[string]models.Customer
	entries    map[string][]models.Entry
	entryIndex map[EntryKey]int // position in entries[CustomerID]
	subEntries map[EntryKey][]models.SubEntry
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		customers:  map[string]models.Customer{},
		entries:    map[string][]models.Entry{},
		entryIndex: map[EntryKey]int{},
		subEntries: map[EntryKey][]models.SubEntry{},
	}
}

func (s *Snapshot) clone() *Snapshot {
	return &Snapshot{
		order:      slices.Clone(s.order),
		customers:  maps.Clone(s.customers),
		entries:    maps.Clone(s.entries),
		entryIndex: maps.Clone(s.entryIndex),
		subEntries: maps.Clone(s.subEntries),
	}
}

// Customers returns the customers in delivery order.
func (s *Snapshot) Customers() []models.Customer {
	out := make([]models.Customer, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.customers[id])
	}
	return out
}

func (s *Snapshot) Customer(id string) (models.Customer, bool) {
	c, ok := s.customers[id]
	return c, ok
}

func (s *Snapshot) Entries(customerID string) []models.Entry {
	return slices.Clone(s.entries[customerID])
}

func (s *Snapshot) Entry(customerID, entryID string) (models.Entry, bool) {
	i, ok := s.entryIndex[EntryKey{customerID, entryID}]
	if !ok {
		return models.Entry{}, false
	}
	return s.entries[customerID][i], true
}

func (s *Snapshot) SubEntries(customerID, entryID string) []models.SubEntry {
	return slices.Clone(s.subEntries[EntryKey{customerID, entryID}])
}

// AllSubEntries returns every sub-entry under the customer's entries, entry by entry.
func (s *Snapshot) AllSubEntries(customerID string) []models.SubEntry {
	var out []models.SubEntry
	for _, e := range s.entries[customerID] {
		out = append(out, s.subEntries[EntryKey{customerID, e.ID}]...)
	}
	return out
}

// WithCustomers replaces the customer list. Entries and sub-entries of
// customers missing from the list are dropped.
func (s *Snapshot) WithCustomers(customers []models.Customer) *Snapshot {
	next := s.clone()
	next.order = make([]string, 0, len(customers))
	next.customers = make(map[string]models.Customer, len(customers))
	for _, c := range customers {
		if _, dup := next.customers[c.ID]; !dup {
			next.order = append(next.order, c.ID)
		}
		next.customers[c.ID] = c
	}
	for id := range next.entries {
		if _, ok := next.customers[id]; !ok {
			next.setEntries(id, nil)
		}
	}
	for key := range next.subEntries {
		if _, ok := next.customers[key.CustomerID]; !ok {
			delete(next.subEntries, key)
		}
	}
	return next
}

// WithCustomer inserts or replaces a single customer.
func (s *Snapshot) WithCustomer(c models.Customer) *Snapshot {
	next := s.clone()
	if _, ok := next.customers[c.ID]; !ok {
		next.order = append(next.order, c.ID)
	}
	next.customers[c.ID] = c
	return next
}

// WithEntries replaces a customer's entry list. Sub-entries of entries
// missing from the list are dropped.
func (s *Snapshot) WithEntries(customerID string, entries []models.Entry) *Snapshot {
	next := s.clone()
	next.setEntries(customerID, slices.Clone(entries))

	keep := make(map[string]bool, len(entries))
	for _, e := range entries {
		keep[e.ID] = true
	}
	for key := range next.subEntries {
		if key.CustomerID == customerID && !keep[key.EntryID] {
			delete(next.subEntries, key)
		}
	}
	return next
}

// WithSubEntries replaces the sub-entry list of one entry.
func (s *Snapshot) WithSubEntries(customerID, entryID string, subEntries []models.SubEntry) *Snapshot {
	next := s.clone()
	next.subEntries[EntryKey{customerID, entryID}] = slices.Clone(subEntries)
	return next
}

// WithoutCustomer drops a customer with all its entries and sub-entries.
func (s *Snapshot) WithoutCustomer(customerID string) *Snapshot {
	next := s.clone()
	delete(next.customers, customerID)
	next.order = slices.DeleteFunc(next.order, func(id string) bool { return id == customerID })
	next.dropCustomerData(customerID)
	return next
}

// WithoutEntry drops an entry and its sub-entries.
func (s *Snapshot) WithoutEntry(customerID, entryID string) *Snapshot {
	next := s.clone()
	next.setEntries(customerID, slices.DeleteFunc(slices.Clone(next.entries[customerID]), func(e models.Entry) bool {
		return e.ID == entryID
	}))
	delete(next.subEntries, EntryKey{customerID, entryID})
	return next
}

func (s *Snapshot) WithoutSubEntry(customerID, entryID, subEntryID string) *Snapshot {
	next := s.clone()
	key := EntryKey{customerID, entryID}
	next.subEntries[key] = slices.DeleteFunc(slices.Clone(next.subEntries[key]), func(se models.SubEntry) bool {
		return se.ID == subEntryID
	})
	return next
}

// dropCustomerData must only be called on a freshly cloned snapshot.
func (s *Snapshot) dropCustomerData(customerID string) {
	s.setEntries(customerID, nil)
	for key := range s.subEntries {
		if key.CustomerID == customerID {
			delete(s.subEntries, key)
		}
	}
}

// setEntries replaces a customer's entry list and its index. A nil list
// removes the customer's entries. Only call it on a freshly cloned snapshot.
func (s *Snapshot) setEntries(customerID string, entries []models.Entry) {
	for _, e := range s.entries[customerID] {
		delete(s.entryIndex, EntryKey{customerID, e.ID})
	}
	if entries == nil {
		delete(s.entries, customerID)
		return
	}
	s.entries[customerID] = entries
	for i, e := range entries {
		s.entryIndex[EntryKey{customerID, e.ID}] = i
	}
}
