// Package http exposes the engine's operations as a JSON API.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"finbook/internal/services"
)

type Server struct {
	http.Server
	obligations *services.ObligationService
	fulfillment *services.FulfillmentEngine
	reconciler  *services.ReconciliationEngine
	lifecycle   *services.LifecycleManager
}

// NewServer wires routes over the engine services and returns a
// ready-to-run server.
func NewServer(addr string, obligations *services.ObligationService, fulfillment *services.FulfillmentEngine, reconciler *services.ReconciliationEngine, lifecycle *services.LifecycleManager) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		obligations: obligations,
		fulfillment: fulfillment,
		reconciler:  reconciler,
		lifecycle:   lifecycle,
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("GET /api/obligations", s.withLogging(s.handleListPayments))
	mux.HandleFunc("POST /api/obligations", s.withLogging(s.handleCreatePayment))
	mux.HandleFunc("PUT /api/obligations/{id}", s.withLogging(s.handleUpdatePayment))
	mux.HandleFunc("DELETE /api/obligations/{id}", s.withLogging(s.handleDeletePayment))
	mux.HandleFunc("POST /api/obligations/{id}/pending-deletion", s.withLogging(s.handleTogglePendingDeletion))

	mux.HandleFunc("GET /api/income", s.withLogging(s.handleListIncome))
	mux.HandleFunc("POST /api/income", s.withLogging(s.handleCreateIncome))
	mux.HandleFunc("PUT /api/income/{id}", s.withLogging(s.handleUpdateIncome))
	mux.HandleFunc("DELETE /api/income/{id}", s.withLogging(s.handleDeleteIncome))

	mux.HandleFunc("GET /api/onetime", s.withLogging(s.handleListOneTime))
	mux.HandleFunc("POST /api/onetime", s.withLogging(s.handleCreateOneTime))
	mux.HandleFunc("PUT /api/onetime/{id}", s.withLogging(s.handleUpdateOneTime))
	mux.HandleFunc("DELETE /api/onetime/{id}", s.withLogging(s.handleDeleteOneTime))

	mux.HandleFunc("GET /api/history", s.withLogging(s.handleHistory))
	mux.HandleFunc("GET /api/summary", s.withLogging(s.handleSummary))
	mux.HandleFunc("PUT /api/summary/savings", s.withLogging(s.handleSetSavings))
	mux.HandleFunc("GET /api/calendar", s.withLogging(s.handleCalendar))

	mux.HandleFunc("POST /api/fulfill", s.withLogging(s.handleFulfill))
	mux.HandleFunc("GET /api/overdue", s.withLogging(s.handleDetectOverdue))
	mux.HandleFunc("POST /api/overdue/commit", s.withLogging(s.handleCommitOverdue))
	mux.HandleFunc("POST /api/undo", s.withLogging(s.handleUndo))
	mux.HandleFunc("POST /api/lifecycle/run", s.withLogging(s.handleRunLifecycle))

	return s
}

// withLogging attaches a request ID and logs request start and completion.
func (s *Server) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

type requestIDKey struct{}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
