package reporting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/interest"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/ledger"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var asOf = time.Date(2024, time.June, 15, 10, 30, 0, 0, time.UTC)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]SummaryEvent
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, events []SummaryEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, events)
	return f.err
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func testSnapshot() *ledger.Snapshot {
	return ledger.NewSnapshot().
		WithCustomers([]models.Customer{{ID: "C1"}, {ID: "C2"}}).
		WithEntries("C1", []models.Entry{{ID: "E"}}).
		WithEntries("C2", []models.Entry{{ID: "E"}}).
		WithSubEntries("C1", "E", []models.SubEntry{{
			ID: "S1", Amount: decimal.NewFromInt(1000), InterestRate: models.DefaultInterestRate,
			Time: models.Millis(asOf.Add(-45 * 24 * time.Hour)),
		}}).
		WithSubEntries("C2", "E", []models.SubEntry{{
			ID: "S2", Amount: decimal.NewFromInt(500), InterestRate: models.DefaultInterestRate, Cross: true,
			Time: models.Millis(asOf.Add(-5 * 24 * time.Hour)),
		}})
}

func newTestReporter(pub Publisher) (*Reporter, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	agg := ledger.Aggregator{Calc: interest.Calculator{Location: time.UTC}}
	r := NewReporter(agg, NewMetrics(reg), pub, zap.NewNop())
	r.now = func() time.Time { return asOf }
	return r, reg
}

func TestReporter_Report(t *testing.T) {
	pub := &fakePublisher{}
	r, _ := newTestReporter(pub)

	events := r.Report(context.Background(), testSnapshot())
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}
	if events[0].Scope != "ledger" || events[0].UnpaidTotal != "1044.42" || events[0].PaidTotal != "515.00" {
		t.Errorf("Unexpected ledger event %+v", events[0])
	}
	if events[1].CustomerID != "C1" || events[1].UnpaidTotal != "1044.42" {
		t.Errorf("Unexpected C1 event %+v", events[1])
	}
	if events[2].CustomerID != "C2" || events[2].PaidTotal != "515.00" {
		t.Errorf("Unexpected C2 event %+v", events[2])
	}
	if pub.count() != 1 {
		t.Errorf("Expected one published batch, got %d", pub.count())
	}

	if got := testutil.ToFloat64(r.metrics.amounts.WithLabelValues("unpaid", "interest")); got != 44.42 {
		t.Errorf("Expected unpaid interest gauge 44.42, got %v", got)
	}
	if got := testutil.ToFloat64(r.metrics.customers); got != 2 {
		t.Errorf("Expected customers gauge 2, got %v", got)
	}
}

func TestReporter_PublishFailureIsCounted(t *testing.T) {
	r, _ := newTestReporter(&fakePublisher{err: errors.New("broker down")})

	r.Report(context.Background(), testSnapshot())
	if got := testutil.ToFloat64(r.metrics.publishErrors); got != 1 {
		t.Errorf("Expected 1 publish error, got %v", got)
	}
}

func TestReporter_WithoutPublisher(t *testing.T) {
	r := NewReporter(ledger.Aggregator{}, nil, nil, nil)
	if events := r.Report(context.Background(), ledger.NewSnapshot()); len(events) != 1 {
		t.Errorf("Expected only the ledger event, got %d", len(events))
	}
}

func TestReporter_RunFollowsView(t *testing.T) {
	pub := &fakePublisher{}
	r, _ := newTestReporter(pub)
	view := ledger.NewObservableStore()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, view)
		close(done)
	}()

	view.Load(testSnapshot())

	deadline := time.After(2 * time.Second)
	for {
		if testutil.ToFloat64(r.metrics.customers) == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("Timed out waiting for report of new snapshot")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected Run to return after cancel")
	}
}
