package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/rajbagri/Jewellery-Loan-App/pkg/interest"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/models"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/store"
	"go.uber.org/zap"
)

// Ledger keeps an ObservableStore in step with a Storage backend and
// answers summary queries against the current snapshot.
//
// Every mutation is written to storage and the affected collection is then
// read back authoritatively; the snapshot is never patched with predicted
// state. A failed read leaves the last good snapshot in place.
type Ledger struct {
	storage store.Storage
	view    *ObservableStore
	agg     Aggregator
	logger  *zap.Logger
	now     func() time.Time
}

// NewLedger creates a Ledger with a given Storage implementation.
func NewLedger(s store.Storage, calc interest.Calculator, logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		storage: s,
		view:    NewObservableStore(),
		agg:     Aggregator{Calc: calc},
		logger:  logger,
		now:     time.Now,
	}
}

// View returns the observable snapshot holder.
func (l *Ledger) View() *ObservableStore {
	return l.view
}

func (l *Ledger) Snapshot() *Snapshot {
	return l.view.Current()
}

func (l *Ledger) Aggregator() Aggregator {
	return l.agg
}

// Summarize computes a summary over the current snapshot.
func (l *Ledger) Summarize(scope Scope, asOf time.Time) Summary {
	return l.agg.Summarize(l.view.Current(), scope, asOf)
}

// Refresh re-reads the whole hierarchy and publishes it as one snapshot.
// If the customer list cannot be read the current snapshot is kept and the
// error returned. A customer or entry whose children cannot be read keeps
// the children it had in the current snapshot. If the snapshot changed while
// reading, the refresh is dropped and the newer snapshot kept.
func (l *Ledger) Refresh(ctx context.Context, f store.Freshness) error {
	// A Save or Delete that publishes while the reads below run is newer
	// than what they return, so it wins over this refresh.
	gen := l.view.Generation()

	customers, err := l.storage.ListCustomers(ctx)
	if err != nil {
		l.logger.Error("failed to list customers, keeping last snapshot", zap.Error(err))
		return fmt.Errorf("failed to list customers: %w", err)
	}

	prev := l.view.Current()
	next := NewSnapshot().WithCustomers(customers)
	for _, c := range customers {
		entries, err := l.storage.ListEntries(ctx, c.ID, f)
		if err != nil {
			l.logger.Warn("failed to list entries, keeping previous", zap.String("customer_id", c.ID), zap.Error(err))
			entries = prev.Entries(c.ID)
		}
		next = next.WithEntries(c.ID, entries)

		for _, e := range entries {
			subs, err := l.storage.ListSubEntries(ctx, c.ID, e.ID, f)
			if err != nil {
				l.logger.Warn("failed to list sub-entries, keeping previous",
					zap.String("customer_id", c.ID), zap.String("entry_id", e.ID), zap.Error(err))
				subs = prev.SubEntries(c.ID, e.ID)
			}
			next = next.WithSubEntries(c.ID, e.ID, subs)
		}
	}

	if !l.view.LoadIf(next, gen) {
		l.logger.Debug("ledger changed during refresh, keeping newer snapshot")
		return nil
	}
	l.logger.Debug("ledger refreshed", zap.Int("customers", len(customers)), zap.Stringer("freshness", f))
	return nil
}

// Run refreshes once and then on every tick until ctx is done.
func (l *Ledger) Run(ctx context.Context, interval time.Duration) {
	l.Refresh(ctx, store.Cached)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Refresh(ctx, store.Cached)
		}
	}
}

// SaveCustomer creates or replaces a customer. A new customer gets an ID and
// the current time; an edit keeps the stored creation time unless c.Time is set.
func (l *Ledger) SaveCustomer(ctx context.Context, c models.Customer) (*models.Customer, error) {
	c.EnsureID()
	if c.Time == 0 {
		c.Time = models.Millis(l.now())
		if existing, err := l.storage.GetCustomer(ctx, c.ID); err == nil {
			c.Time = existing.Time
		}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	if err := l.storage.UpsertCustomer(ctx, &c); err != nil {
		return nil, fmt.Errorf("failed to store customer: %w", err)
	}
	l.logger.Info("customer saved", zap.String("customer_id", c.ID))

	l.reloadCustomers(ctx)
	return &c, nil
}

// SaveEntry creates or replaces an entry of an existing customer.
func (l *Ledger) SaveEntry(ctx context.Context, customerID string, e models.Entry) (*models.Entry, error) {
	if _, err := l.storage.GetCustomer(ctx, customerID); err != nil {
		return nil, err
	}

	e.EnsureID()
	if e.Time == 0 {
		e.Time = models.Millis(l.now())
		if existing, err := l.storage.GetEntry(ctx, customerID, e.ID); err == nil {
			e.Time = existing.Time
		}
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	if err := l.storage.UpsertEntry(ctx, customerID, &e); err != nil {
		return nil, fmt.Errorf("failed to store entry: %w", err)
	}
	l.logger.Info("entry saved", zap.String("customer_id", customerID), zap.String("entry_id", e.ID))

	l.reloadEntries(ctx, customerID)
	return &e, nil
}

// SaveSubEntry creates or replaces a sub-entry of an existing entry.
func (l *Ledger) SaveSubEntry(ctx context.Context, customerID, entryID string, se models.SubEntry) (*models.SubEntry, error) {
	if _, err := l.storage.GetEntry(ctx, customerID, entryID); err != nil {
		return nil, err
	}

	se.EnsureID()
	if se.Time == 0 {
		se.Time = models.Millis(l.now())
		if existing, err := l.storage.GetSubEntry(ctx, customerID, entryID, se.ID); err == nil {
			se.Time = existing.Time
		}
	}
	if err := se.Validate(); err != nil {
		return nil, err
	}

	if err := l.storage.UpsertSubEntry(ctx, customerID, entryID, &se); err != nil {
		return nil, fmt.Errorf("failed to store sub-entry: %w", err)
	}
	l.logger.Info("sub-entry saved",
		zap.String("customer_id", customerID), zap.String("entry_id", entryID), zap.String("sub_entry_id", se.ID))

	l.reloadSubEntries(ctx, customerID, entryID)
	return &se, nil
}

// SetEntryCross marks an entry settled or unsettled.
func (l *Ledger) SetEntryCross(ctx context.Context, customerID, entryID string, cross bool) (*models.Entry, error) {
	e, err := l.storage.GetEntry(ctx, customerID, entryID)
	if err != nil {
		return nil, err
	}
	e.Cross = cross
	return l.SaveEntry(ctx, customerID, *e)
}

// SetSubEntryCross marks a sub-entry settled or unsettled.
func (l *Ledger) SetSubEntryCross(ctx context.Context, customerID, entryID, subEntryID string, cross bool) (*models.SubEntry, error) {
	se, err := l.storage.GetSubEntry(ctx, customerID, entryID, subEntryID)
	if err != nil {
		return nil, err
	}
	se.Cross = cross
	return l.SaveSubEntry(ctx, customerID, entryID, *se)
}

// DeleteCustomer deletes a customer with all of its entries and sub-entries.
func (l *Ledger) DeleteCustomer(ctx context.Context, customerID string) error {
	if err := l.storage.DeleteCustomer(ctx, customerID); err != nil {
		return err
	}
	l.logger.Info("customer deleted", zap.String("customer_id", customerID))
	l.reloadCustomers(ctx)
	return nil
}

func (l *Ledger) DeleteEntry(ctx context.Context, customerID, entryID string) error {
	if err := l.storage.DeleteEntry(ctx, customerID, entryID); err != nil {
		return err
	}
	l.logger.Info("entry deleted", zap.String("customer_id", customerID), zap.String("entry_id", entryID))
	l.reloadEntries(ctx, customerID)
	return nil
}

func (l *Ledger) DeleteSubEntry(ctx context.Context, customerID, entryID, subEntryID string) error {
	if err := l.storage.DeleteSubEntry(ctx, customerID, entryID, subEntryID); err != nil {
		return err
	}
	l.logger.Info("sub-entry deleted",
		zap.String("customer_id", customerID), zap.String("entry_id", entryID), zap.String("sub_entry_id", subEntryID))
	l.reloadSubEntries(ctx, customerID, entryID)
	return nil
}

func (l *Ledger) reloadCustomers(ctx context.Context) {
	customers, err := l.storage.ListCustomers(ctx)
	if err != nil {
		l.logger.Error("failed to reload customers", zap.Error(err))
		return
	}
	l.view.ReplaceCustomers(customers)
}

func (l *Ledger) reloadEntries(ctx context.Context, customerID string) {
	entries, err := l.storage.ListEntries(ctx, customerID, store.Authoritative)
	if err != nil {
		l.logger.Error("failed to reload entries", zap.String("customer_id", customerID), zap.Error(err))
		return
	}
	l.view.Replace(customerID, entries)
}

func (l *Ledger) reloadSubEntries(ctx context.Context, customerID, entryID string) {
	subs, err := l.storage.ListSubEntries(ctx, customerID, entryID, store.Authoritative)
	if err != nil {
		l.logger.Error("failed to reload sub-entries",
			zap.String("customer_id", customerID), zap.String("entry_id", entryID), zap.Error(err))
		return
	}
	l.view.ReplaceSubEntries(customerID, entryID, subs)
}
