package reporting

import (
	"context"
	"time"

	"github.com/rajbagri/Jewellery-Loan-App/pkg/ledger"
	"go.uber.org/zap"
)

// Reporter recomputes summaries for every snapshot an ObservableStore
// publishes, updates Metrics and hands the rollups to a Publisher.
// Either of metrics and publisher may be nil.
type Reporter struct {
	agg       ledger.Aggregator
	metrics   *Metrics
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewReporter(agg ledger.Aggregator, metrics *Metrics, publisher Publisher, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		agg:       agg,
		metrics:   metrics,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Run reports every snapshot delivered by view until ctx is done.
func (r *Reporter) Run(ctx context.Context, view *ledger.ObservableStore) {
	updates, cancel := view.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			r.Report(ctx, snap)
		}
	}
}

// Report summarizes snap from scratch as of now.
func (r *Reporter) Report(ctx context.Context, snap *ledger.Snapshot) []SummaryEvent {
	asOf := r.now()
	customers := snap.Customers()

	total := r.agg.All(snap, asOf)
	events := make([]SummaryEvent, 0, len(customers)+1)
	events = append(events, newEvent("ledger", "", total, asOf))
	for _, c := range customers {
		events = append(events, newEvent("customer", c.ID, r.agg.Customer(snap, c.ID, asOf), asOf))
	}

	if r.metrics != nil {
		r.metrics.observe(total, len(customers))
	}
	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, events); err != nil {
			r.logger.Error("failed to publish summaries", zap.Int("events", len(events)), zap.Error(err))
			if r.metrics != nil {
				r.metrics.publishErrors.Inc()
			}
		}
	}
	return events
}
