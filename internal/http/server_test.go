package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"finbook/internal/services"
	"finbook/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "finbook.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	reconciler := services.NewReconciliationEngine(store, nil)
	fulfillment := services.NewFulfillmentEngine(store, reconciler, nil)
	lifecycle := services.NewLifecycleManager(store, nil)
	obligations := services.NewObligationService(store)

	return NewServer(":0", obligations, fulfillment, reconciler, lifecycle)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndListPayments(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/obligations", map[string]any{
		"name":       "Rent",
		"amount":     "950,00",
		"anchor_day": 1,
		"kind":       "debit",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/obligations = %d, want 201: %s", rec.Code, rec.Body)
	}

	var created paymentView
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.AmountCents != 95000 {
		t.Errorf("amount_cents = %d, want 95000", created.AmountCents)
	}
	if !created.Active {
		t.Error("created payment not active")
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/obligations", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/obligations = %d, want 200", rec.Code)
	}
	var listed []paymentView
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("listed %d payments, want 1", len(listed))
	}
	if listed[0].Status != services.StatusActive {
		t.Errorf("status = %q, want %q", listed[0].Status, services.StatusActive)
	}
	if listed[0].CurrentCycle == "" || listed[0].NextCycle == "" {
		t.Errorf("cycle dates missing from listing: %+v", listed[0])
	}
}

func TestCreatePaymentInvalidAmount(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/obligations", map[string]any{
		"name":       "Rent",
		"amount":     "-5",
		"anchor_day": 1,
		"kind":       "debit",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("POST with negative amount = %d, want 422: %s", rec.Code, rec.Body)
	}
}

func TestFulfillUndoFlow(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/obligations", map[string]any{
		"name":       "Rent",
		"amount":     "950.00",
		"anchor_day": 1,
		"kind":       "debit",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create payment = %d: %s", rec.Code, rec.Body)
	}
	var created paymentView
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode created: %v", err)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/fulfill", map[string]any{
		"source": "recurring",
		"id":     created.ID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/fulfill = %d, want 200: %s", rec.Code, rec.Body)
	}

	// Same cycle twice conflicts.
	rec = doJSON(t, srv, http.MethodPost, "/api/fulfill", map[string]any{
		"source": "recurring",
		"id":     created.ID,
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate fulfill = %d, want 409: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/history", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/history = %d, want 200", rec.Code)
	}
	var history []recordView
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history has %d records, want 1", len(history))
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/undo", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/undo = %d, want 200: %s", rec.Code, rec.Body)
	}

	// Nothing left to undo.
	rec = doJSON(t, srv, http.MethodPost, "/api/undo", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("second undo = %d, want 409: %s", rec.Code, rec.Body)
	}
}

func TestFulfillUnknownObligation(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/fulfill", map[string]any{
		"source": "recurring",
		"id":     42,
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("fulfill unknown id = %d, want 404: %s", rec.Code, rec.Body)
	}
}

func TestDeletePaymentNotFound(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodDelete, "/api/obligations/42", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("DELETE unknown = %d, want 404: %s", rec.Code, rec.Body)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/income", map[string]any{
		"name":       "Salary",
		"amount":     "3000",
		"anchor_day": 27,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create income = %d: %s", rec.Code, rec.Body)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/summary = %d, want 200: %s", rec.Code, rec.Body)
	}
	var summary summaryView
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	// Current month forecasts scheduled income.
	if summary.TotalIncomeCents != 300000 {
		t.Errorf("total_income_cents = %d, want 300000", summary.TotalIncomeCents)
	}
}

func TestCalendarEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/api/calendar?month=6&year=2024", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/calendar = %d, want 200: %s", rec.Code, rec.Body)
	}
	var days []dayTotalView
	if err := json.Unmarshal(rec.Body.Bytes(), &days); err != nil {
		t.Fatalf("decode calendar: %v", err)
	}
	if len(days) != 30 {
		t.Errorf("calendar for June has %d days, want 30", len(days))
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, srv, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}
