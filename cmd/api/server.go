package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/interest"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/ledger"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/models"
	"github.com/rajbagri/Jewellery-Loan-App/pkg/store"
	"go.uber.org/zap"
)

// Server holds the ledger instance.
type Server struct {
	ledger  *ledger.Ledger
	storage store.Storage // existence checks before edits
	loc     *time.Location
	logger  *zap.Logger
	now     func() time.Time
}

func NewServer(l *ledger.Ledger, s store.Storage, loc *time.Location, logger *zap.Logger) *Server {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		ledger:  l,
		storage: s,
		loc:     loc,
		logger:  logger,
		now:     time.Now,
	}
}

// Router registers every khata route. metrics may be nil.
func (s *Server) Router(metrics http.Handler) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/customers", s.listCustomersHandler).Methods("GET")
	router.HandleFunc("/customers", s.createCustomerHandler).Methods("POST")
	router.HandleFunc("/customers/{id}", s.getCustomerHandler).Methods("GET")
	router.HandleFunc("/customers/{id}", s.updateCustomerHandler).Methods("PUT")
	router.HandleFunc("/customers/{id}", s.deleteCustomerHandler).Methods("DELETE")

	router.HandleFunc("/customers/{id}/entries", s.listEntriesHandler).Methods("GET")
	router.HandleFunc("/customers/{id}/entries", s.createEntryHandler).Methods("POST")
	router.HandleFunc("/customers/{id}/entries/{eid}", s.updateEntryHandler).Methods("PUT")
	router.HandleFunc("/customers/{id}/entries/{eid}", s.deleteEntryHandler).Methods("DELETE")
	router.HandleFunc("/customers/{id}/entries/{eid}/cross", s.crossEntryHandler).Methods("POST")

	router.HandleFunc("/customers/{id}/entries/{eid}/sub-entries", s.listSubEntriesHandler).Methods("GET")
	router.HandleFunc("/customers/{id}/entries/{eid}/sub-entries", s.createSubEntryHandler).Methods("POST")
	router.HandleFunc("/customers/{id}/entries/{eid}/sub-entries/{sid}", s.updateSubEntryHandler).Methods("PUT")
	router.HandleFunc("/customers/{id}/entries/{eid}/sub-entries/{sid}", s.deleteSubEntryHandler).Methods("DELETE")
	router.HandleFunc("/customers/{id}/entries/{eid}/sub-entries/{sid}/cross", s.crossSubEntryHandler).Methods("POST")

	router.HandleFunc("/summary", s.ledgerSummaryHandler).Methods("GET")
	router.HandleFunc("/customers/{id}/summary", s.customerSummaryHandler).Methods("GET")
	router.HandleFunc("/customers/{id}/entries/{eid}/summary", s.entrySummaryHandler).Methods("GET")

	if metrics != nil {
		router.Handle("/metrics", metrics).Methods("GET")
	}
	return router
}

// text holds the literal of a JSON string or number; it is coerced later.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		s = ""
	case strings.HasPrefix(s, `"`):
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	*t = text(s)
	return nil
}

type customerRequest struct {
	Name   string `json:"customer_name"`
	Town   string `json:"customer_town"`
	Number string `json:"number"`
	Time   int64  `json:"time"`
}

type entryRequest struct {
	Amount    text   `json:"amount"`
	Jewellery string `json:"jewellery"`
	Cross     bool   `json:"cross"`
	Time      int64  `json:"time"`
}

type subEntryRequest struct {
	Amount       text  `json:"amount"`
	InterestRate text  `json:"interest_rate"`
	Cross        bool  `json:"cross"`
	Time         int64 `json:"time"`
}

type crossRequest struct {
	Cross bool `json:"cross"`
}

type summaryResponse struct {
	Scope string    `json:"scope"`
	AsOf  time.Time `json:"as_of"`
	ledger.Summary
	UnpaidTotal string `json:"unpaid_total"`
	PaidTotal   string `json:"paid_total"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps ledger and storage errors to HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, models.ErrEmptyID), errors.Is(err, models.ErrNegativeAmount), errors.Is(err, models.ErrNegativeRate):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) listCustomersHandler(w http.ResponseWriter, r *http.Request) {
	customers := ledger.FilterCustomers(s.ledger.Snapshot().Customers(), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, customers)
}

func (s *Server) createCustomerHandler(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if !decode(w, r, &req) {
		return
	}

	c, err := s.ledger.SaveCustomer(r.Context(), models.Customer{Name: req.Name, Town: req.Town, Number: req.Number, Time: req.Time})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) getCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	c, ok := s.ledger.Snapshot().Customer(id)
	if !ok {
		http.Error(w, "Customer not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) updateCustomerHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req customerRequest
	if !decode(w, r, &req) {
		return
	}
	if _, err := s.storage.GetCustomer(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}

	c, err := s.ledger.SaveCustomer(r.Context(), models.Customer{ID: id, Name: req.Name, Town: req.Town, Number: req.Number, Time: req.Time})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) deleteCustomerHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteCustomer(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listEntriesHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	snap := s.ledger.Snapshot()
	if _, ok := snap.Customer(id); !ok {
		http.Error(w, "Customer not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, ledger.FilterEntries(snap.Entries(id), r.URL.Query().Get("q"), s.loc))
}

func (s *Server) createEntryHandler(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if !decode(w, r, &req) {
		return
	}

	e, err := s.ledger.SaveEntry(r.Context(), mux.Vars(r)["id"], models.Entry{
		Amount:    models.ParseAmount(string(req.Amount)),
		Jewellery: req.Jewellery,
		Cross:     req.Cross,
		Time:      req.Time,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) updateEntryHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req entryRequest
	if !decode(w, r, &req) {
		return
	}
	if _, err := s.storage.GetEntry(r.Context(), vars["id"], vars["eid"]); err != nil {
		s.writeError(w, r, err)
		return
	}

	e, err := s.ledger.SaveEntry(r.Context(), vars["id"], models.Entry{
		ID:        vars["eid"],
		Amount:    models.ParseAmount(string(req.Amount)),
		Jewellery: req.Jewellery,
		Cross:     req.Cross,
		Time:      req.Time,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) deleteEntryHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.ledger.DeleteEntry(r.Context(), vars["id"], vars["eid"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) crossEntryHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req crossRequest
	if !decode(w, r, &req) {
		return
	}
	e, err := s.ledger.SetEntryCross(r.Context(), vars["id"], vars["eid"], req.Cross)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) listSubEntriesHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	asOf, ok := s.asOf(w, r)
	if !ok {
		return
	}

	snap := s.ledger.Snapshot()
	if _, ok := snap.Entry(vars["id"], vars["eid"]); !ok {
		http.Error(w, "Entry not found", http.StatusNotFound)
		return
	}

	agg := s.ledger.Aggregator()
	subs := ledger.FilterSubEntries(snap.SubEntries(vars["id"], vars["eid"]), r.URL.Query().Get("q"), s.loc)
	lines := make([]ledger.Line, 0, len(subs))
	for _, se := range subs {
		line := agg.Line(se, asOf)
		line.Interest = interest.Round(line.Interest)
		line.Total = interest.Round(line.Total)
		lines = append(lines, line)
	}
	writeJSON(w, http.StatusOK, lines)
}

func (s *Server) createSubEntryHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req subEntryRequest
	if !decode(w, r, &req) {
		return
	}

	se, err := s.ledger.SaveSubEntry(r.Context(), vars["id"], vars["eid"], models.SubEntry{
		Amount:       models.ParseAmount(string(req.Amount)),
		InterestRate: models.ParseRate(string(req.InterestRate)),
		Cross:        req.Cross,
		Time:         req.Time,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, se)
}

func (s *Server) updateSubEntryHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req subEntryRequest
	if !decode(w, r, &req) {
		return
	}
	if _, err := s.storage.GetSubEntry(r.Context(), vars["id"], vars["eid"], vars["sid"]); err != nil {
		s.writeError(w, r, err)
		return
	}

	se, err := s.ledger.SaveSubEntry(r.Context(), vars["id"], vars["eid"], models.SubEntry{
		ID:           vars["sid"],
		Amount:       models.ParseAmount(string(req.Amount)),
		InterestRate: models.ParseRate(string(req.InterestRate)),
		Cross:        req.Cross,
		Time:         req.Time,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, se)
}

func (s *Server) deleteSubEntryHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.ledger.DeleteSubEntry(r.Context(), vars["id"], vars["eid"], vars["sid"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) crossSubEntryHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req crossRequest
	if !decode(w, r, &req) {
		return
	}
	se, err := s.ledger.SetSubEntryCross(r.Context(), vars["id"], vars["eid"], vars["sid"], req.Cross)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, se)
}

func (s *Server) ledgerSummaryHandler(w http.ResponseWriter, r *http.Request) {
	s.writeSummary(w, r, "ledger", ledger.AllCustomers())
}

func (s *Server) customerSummaryHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.ledger.Snapshot().Customer(id); !ok {
		http.Error(w, "Customer not found", http.StatusNotFound)
		return
	}
	s.writeSummary(w, r, "customer", ledger.CustomerScope(id))
}

func (s *Server) entrySummaryHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if _, ok := s.ledger.Snapshot().Entry(vars["id"], vars["eid"]); !ok {
		http.Error(w, "Entry not found", http.StatusNotFound)
		return
	}
	s.writeSummary(w, r, "entry", ledger.EntryScope(vars["id"], vars["eid"]))
}

func (s *Server) writeSummary(w http.ResponseWriter, r *http.Request, name string, scope ledger.Scope) {
	asOf, ok := s.asOf(w, r)
	if !ok {
		return
	}

	sum := s.ledger.Summarize(scope, asOf).Rounded()
	writeJSON(w, http.StatusOK, summaryResponse{
		Scope:       name,
		AsOf:        asOf,
		Summary:     sum,
		UnpaidTotal: sum.UnpaidTotal().StringFixed(2),
		PaidTotal:   sum.PaidTotal().StringFixed(2),
	})
}

// asOf reads the optional as_of query parameter (RFC 3339), defaulting to now.
func (s *Server) asOf(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	v := r.URL.Query().Get("as_of")
	if v == "" {
		return s.now(), true
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		http.Error(w, "Invalid as_of, expected RFC 3339", http.StatusBadRequest)
		return time.Time{}, false
	}
	return t, true
}
