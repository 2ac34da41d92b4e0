package ledger

import (
	"sync"
	"sync/atomic"

	"github.com/rajbagri/Jewellery-Loan-App/pkg/models"
)

// ObservableStore holds the current Snapshot and republishes every new one
// to subscribers. Readers never block and always see a complete snapshot;
// writers are serialized and replace the snapshot pointer as a whole.
type ObservableStore struct {
	current atomic.Pointer[Snapshot]

	mu     sync.Mutex // guards writes, gen and subs
	gen    uint64
	subs   map[int]chan *Snapshot
	nextID int
}

func NewObservableStore() *ObservableStore {
	o := &ObservableStore{subs: map[int]chan *Snapshot{}}
	o.current.Store(NewSnapshot())
	return o
}

// Current returns the latest published snapshot.
func (o *ObservableStore) Current() *Snapshot {
	return o.current.Load()
}

// Subscribe returns a channel that receives the current snapshot right
// away and then every subsequent one. A slow subscriber may miss
// intermediate snapshots but always receives the latest. Call cancel to
// stop delivery; it closes the channel.
func (o *ObservableStore) Subscribe() (<-chan *Snapshot, func()) {
	o.mu.Lock()
	defer o.mu.Unlock()

	id := o.nextID
	o.nextID++
	ch := make(chan *Snapshot, 1)
	ch <- o.current.Load()
	o.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			o.mu.Lock()
			defer o.mu.Unlock()
			delete(o.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

// Load publishes s as the whole new state.
func (o *ObservableStore) Load(s *Snapshot) {
	o.update(func(*Snapshot) *Snapshot { return s })
}

// Generation counts the snapshots published so far.
func (o *ObservableStore) Generation() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gen
}

// LoadIf publishes s only if nothing was published since generation gen.
// It reports whether s was published.
func (o *ObservableStore) LoadIf(s *Snapshot, gen uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gen != gen {
		return false
	}
	o.publish(s)
	return true
}

// ReplaceCustomers replaces the customer list, dropping data of customers
// that are no longer listed.
func (o *ObservableStore) ReplaceCustomers(customers []models.Customer) {
	o.update(func(s *Snapshot) *Snapshot { return s.WithCustomers(customers) })
}

func (o *ObservableStore) PutCustomer(c models.Customer) {
	o.update(func(s *Snapshot) *Snapshot { return s.WithCustomer(c) })
}

// Replace replaces the entry list of one customer.
func (o *ObservableStore) Replace(customerID string, entries []models.Entry) {
	o.update(func(s *Snapshot) *Snapshot { return s.WithEntries(customerID, entries) })
}

func (o *ObservableStore) ReplaceSubEntries(customerID, entryID string, subEntries []models.SubEntry) {
	o.update(func(s *Snapshot) *Snapshot { return s.WithSubEntries(customerID, entryID, subEntries) })
}

// RemoveCustomer drops the customer and everything under it.
func (o *ObservableStore) RemoveCustomer(customerID string) {
	o.update(func(s *Snapshot) *Snapshot { return s.WithoutCustomer(customerID) })
}

func (o *ObservableStore) RemoveEntry(customerID, entryID string) {
	o.update(func(s *Snapshot) *Snapshot { return s.WithoutEntry(customerID, entryID) })
}

func (o *ObservableStore) RemoveSubEntry(customerID, entryID, subEntryID string) {
	o.update(func(s *Snapshot) *Snapshot { return s.WithoutSubEntry(customerID, entryID, subEntryID) })
}

func (o *ObservableStore) update(fn func(*Snapshot) *Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.publish(fn(o.current.Load()))
}

// publish must be called with mu held.
func (o *ObservableStore) publish(next *Snapshot) {
	o.gen++
	o.current.Store(next)

	for _, ch := range o.subs {
		// Replace a pending, not yet received snapshot with the newer one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- next:
		default:
		}
	}
}
