package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/interest"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/ledger"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/models"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/reporting"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var asOf = time.Date(2024, time.June, 15, 10, 30, 0, 0, time.UTC)

func setupTestServer(t *testing.T) (*Server, *mux.Router) {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test_api.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	storage := store.NewCachedStore(s, store.NewMemoryCache(time.Minute), zap.NewNop())
	l := ledger.NewLedger(storage, interest.Calculator{Location: time.UTC}, zap.NewNop())
	server := NewServer(l, storage, time.UTC, zap.NewNop())
	server.now = func() time.Time { return asOf }

	reg := prometheus.NewRegistry()
	reporting.NewReporter(l.Aggregator(), reporting.NewMetrics(reg), nil, nil).Report(t.Context(), l.Snapshot())
	return server, server.Router(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
}

func do(t *testing.T, router *mux.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("Failed to decode %q: %v", rr.Body.String(), err)
	}
	return v
}

// createHierarchy creates one customer with one entry holding S1 (unpaid,
// 45 days old) and S2 (settled, 5 days old).
func createHierarchy(t *testing.T, router *mux.Router) (models.Customer, models.Entry, models.SubEntry, models.SubEntry) {
	t.Helper()

	rr := do(t, router, "POST", "/customers", map[string]any{"customer_name": "Suresh", "customer_town": "Ratlam", "number": "98260"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", rr.Code, rr.Body.String())
	}
	c := decodeBody[models.Customer](t, rr)

	rr = do(t, router, "POST", "/customers/"+c.ID+"/entries", map[string]any{"amount": "25000", "jewellery": "gold bangles"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", rr.Code, rr.Body.String())
	}
	e := decodeBody[models.Entry](t, rr)

	base := "/customers/" + c.ID + "/entries/" + e.ID + "/sub-entries"
	rr = do(t, router, "POST", base, map[string]any{"amount": 1000, "time": models.Millis(asOf.Add(-45 * 24 * time.Hour))})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", rr.Code, rr.Body.String())
	}
	s1 := decodeBody[models.SubEntry](t, rr)

	rr = do(t, router, "POST", base, map[string]any{"amount": "500", "interest_rate": "3", "cross": true, "time": models.Millis(asOf.Add(-5 * 24 * time.Hour))})
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", rr.Code, rr.Body.String())
	}
	s2 := decodeBody[models.SubEntry](t, rr)

	return c, e, s1, s2
}

func TestAPI_CreateAndGetCustomer(t *testing.T) {
	_, router := setupTestServer(t)
	c, _, _, _ := createHierarchy(t, router)

	rr := do(t, router, "GET", "/customers/"+c.ID, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if got := decodeBody[models.Customer](t, rr); got != c {
		t.Errorf("Expected customer %+v, got %+v", c, got)
	}
	if c.Time == 0 {
		t.Error("Expected creation time to be set")
	}

	rr = do(t, router, "GET", "/customers?q=ratlam", nil)
	if list := decodeBody[[]models.Customer](t, rr); len(list) != 1 {
		t.Errorf("Expected 1 customer for town search, got %d", len(list))
	}

	rr = do(t, router, "GET", "/customers/missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func TestAPI_Summaries(t *testing.T) {
	_, router := setupTestServer(t)
	c, e, _, _ := createHierarchy(t, router)

	for _, path := range []string{"/summary", "/customers/" + c.ID + "/summary", "/customers/" + c.ID + "/entries/" + e.ID + "/summary"} {
		rr := do(t, router, "GET", path, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d. Body: %s", path, rr.Code, rr.Body.String())
		}
		got := decodeBody[summaryResponse](t, rr)
		if !got.UnpaidPrincipal.Equal(decimal.NewFromInt(1000)) || !got.UnpaidInterest.Equal(decimal.RequireFromString("44.42")) {
			t.Errorf("%s: unexpected unpaid figures %+v", path, got.Summary)
		}
		if !got.PaidPrincipal.Equal(decimal.NewFromInt(500)) || !got.PaidInterest.Equal(decimal.NewFromInt(15)) {
			t.Errorf("%s: unexpected paid figures %+v", path, got.Summary)
		}
		if got.UnpaidTotal != "1044.42" || got.PaidTotal != "515.00" {
			t.Errorf("%s: unexpected totals %s / %s", path, got.UnpaidTotal, got.PaidTotal)
		}
	}
}

func TestAPI_SummaryAsOf(t *testing.T) {
	_, router := setupTestServer(t)
	c, _, _, _ := createHierarchy(t, router)

	rr := do(t, router, "GET", "/customers/"+c.ID+"/summary?as_of=2024-06-13T10:30:00Z", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if got := decodeBody[summaryResponse](t, rr); !got.UnpaidInterest.Equal(decimal.RequireFromString("42.36")) {
		t.Errorf("Expected unpaid interest 42.36, got %s", got.UnpaidInterest)
	}

	rr = do(t, router, "GET", "/summary?as_of=yesterday", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for bad as_of, got %d", rr.Code)
	}

	rr = do(t, router, "GET", "/customers/missing/summary", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func TestAPI_SubEntryLines(t *testing.T) {
	_, router := setupTestServer(t)
	c, e, s1, _ := createHierarchy(t, router)

	rr := do(t, router, "GET", "/customers/"+c.ID+"/entries/"+e.ID+"/sub-entries", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	lines := decodeBody[[]ledger.Line](t, rr)
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	// Newest first: S2 then S1.
	if lines[1].SubEntry.ID != s1.ID || lines[1].Elapsed != "1 month 14 days" || !lines[1].Total.Equal(decimal.RequireFromString("1044.42")) {
		t.Errorf("Unexpected S1 line %+v", lines[1])
	}
	if !s1.InterestRate.Equal(models.DefaultInterestRate) {
		t.Errorf("Expected default rate for omitted interest_rate, got %s", s1.InterestRate)
	}
}

func TestAPI_UpdateKeepsTimeAndCoercesAmount(t *testing.T) {
	_, router := setupTestServer(t)
	c, e, s1, _ := createHierarchy(t, router)

	path := "/customers/" + c.ID + "/entries/" + e.ID + "/sub-entries/" + s1.ID
	rr := do(t, router, "PUT", path, map[string]any{"amount": "not a number", "interest_rate": "2"})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}
	got := decodeBody[models.SubEntry](t, rr)
	if !got.Amount.IsZero() {
		t.Errorf("Expected unparsable amount to become 0, got %s", got.Amount)
	}
	if got.Time != s1.Time {
		t.Errorf("Expected start time %d to be kept, got %d", s1.Time, got.Time)
	}

	rr = do(t, router, "PUT", "/customers/"+c.ID+"/entries/nope/sub-entries/"+s1.ID, map[string]any{"amount": "1"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown sub-entry, got %d", rr.Code)
	}
}

func TestAPI_CrossAndDelete(t *testing.T) {
	_, router := setupTestServer(t)
	c, e, s1, _ := createHierarchy(t, router)

	rr := do(t, router, "POST", "/customers/"+c.ID+"/entries/"+e.ID+"/sub-entries/"+s1.ID+"/cross", map[string]any{"cross": true})
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d. Body: %s", rr.Code, rr.Body.String())
	}
	sum := decodeBody[summaryResponse](t, do(t, router, "GET", "/summary", nil))
	if sum.UnpaidTotal != "0.00" || sum.PaidTotal != "1559.42" {
		t.Errorf("Expected everything paid, got unpaid %s paid %s", sum.UnpaidTotal, sum.PaidTotal)
	}

	rr = do(t, router, "POST", "/customers/"+c.ID+"/entries/"+e.ID+"/cross", map[string]any{"cross": true})
	if rr.Code != http.StatusOK || !decodeBody[models.Entry](t, rr).Cross {
		t.Errorf("Expected entry to be settled, got %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, router, "DELETE", "/customers/"+c.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", rr.Code)
	}
	rr = do(t, router, "GET", "/customers/"+c.ID+"/entries", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", rr.Code)
	}
	rr = do(t, router, "DELETE", "/customers/"+c.ID, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 on second delete, got %d", rr.Code)
	}
	sum = decodeBody[summaryResponse](t, do(t, router, "GET", "/summary", nil))
	if sum.PaidTotal != "0.00" {
		t.Errorf("Expected empty ledger after delete, got paid %s", sum.PaidTotal)
	}
}

func TestAPI_BadInput(t *testing.T) {
	_, router := setupTestServer(t)

	req := httptest.NewRequest("POST", "/customers", strings.NewReader("{"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for malformed JSON, got %d", rr.Code)
	}

	rr = do(t, router, "POST", "/customers/nobody/entries", map[string]any{"amount": "10"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown customer, got %d", rr.Code)
	}
}

func TestAPI_Metrics(t *testing.T) {
	_, router := setupTestServer(t)

	rr := do(t, router, "GET", "/metrics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "khata_reports_total 1") {
		t.Errorf("Expected report counter in metrics output, got:\n%s", rr.Body.String())
	}
}

func TestAPI_AmountTextIsJSONDecoded(t *testing.T) {
	_, router := setupTestServer(t)
	c, e, _, _ := createHierarchy(t, router)

	path := "/customers/" + c.ID + "/entries/" + e.ID + "/sub-entries"
	req := httptest.NewRequest("POST", path, strings.NewReader(`{"amount": "1\u00300", "interest_rate": "2.\u0035"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d. Body: %s", rr.Code, rr.Body.String())
	}

	got := decodeBody[models.SubEntry](t, rr)
	if !got.Amount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected escaped amount to decode to 100, got %s", got.Amount)
	}
	if !got.InterestRate.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("Expected escaped rate to decode to 2.5, got %s", got.InterestRate)
	}
}
