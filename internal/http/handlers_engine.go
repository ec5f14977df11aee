package http

import (
	"net/http"

	"finbook/internal/core"
	"finbook/internal/services"
)

type recordView struct {
	ID           int64  `json:"id"`
	ObligationID int64  `json:"obligation_id,omitempty"`
	Source       string `json:"source"`
	Name         string `json:"name"`
	AmountCents  int64  `json:"amount_cents"`
	Date         string `json:"date"`
	CycleMonth   int    `json:"cycle_month"`
	CycleYear    int    `json:"cycle_year"`
}

func viewRecord(rec core.FulfillmentRecord) recordView {
	return recordView{
		ID:           rec.ID,
		ObligationID: rec.ObligationID,
		Source:       string(rec.Source),
		Name:         rec.Name,
		AmountCents:  rec.Amount.Cents,
		Date:         dateString(rec.Date),
		CycleMonth:   rec.CycleMonth,
		CycleYear:    rec.CycleYear,
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	month, year := parseYearMonth(r)
	records, err := s.obligations.History(r.Context(), month, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, viewRecord(rec))
	}
	writeJSON(w, http.StatusOK, views)
}

type summaryView struct {
	Month              int   `json:"month"`
	Year               int   `json:"year"`
	TotalPaymentsCents int64 `json:"total_payments_cents"`
	TotalIncomeCents   int64 `json:"total_income_cents"`
	SavingsCents       int64 `json:"savings_cents"`
	NetSavingsCents    int64 `json:"net_savings_cents"`
}

func viewSummary(sum core.MonthlySummary) summaryView {
	return summaryView{
		Month:              sum.Month,
		Year:               sum.Year,
		TotalPaymentsCents: sum.TotalPayments.Cents,
		TotalIncomeCents:   sum.TotalIncome.Cents,
		SavingsCents:       sum.Savings.Cents,
		NetSavingsCents:    sum.NetSavings.Cents,
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	month, year := parseYearMonth(r)
	summary, err := s.reconciler.GetMonth(r.Context(), month, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewSummary(summary))
}

type savingsRequest struct {
	Month  int    `json:"month"`
	Year   int    `json:"year"`
	Amount string `json:"amount"`
}

func (s *Server) handleSetSavings(w http.ResponseWriter, r *http.Request) {
	var req savingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.reconciler.SetSavingsAmount(r.Context(), req.Month, req.Year, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewSummary(summary))
}

type dayTotalView struct {
	Day                  int   `json:"day"`
	OutgoingCents        int64 `json:"outgoing_cents"`
	IncomingCents        int64 `json:"incoming_cents"`
	RunningOutgoingCents int64 `json:"running_outgoing_cents"`
	RunningIncomingCents int64 `json:"running_incoming_cents"`
	RunningNetCents      int64 `json:"running_net_cents"`
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	month, year := parseYearMonth(r)
	totals, err := s.reconciler.DailyTotals(r.Context(), month, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]dayTotalView, 0, len(totals))
	for _, t := range totals {
		views = append(views, dayTotalView{
			Day:                  t.Day,
			OutgoingCents:        t.Outgoing.Cents,
			IncomingCents:        t.Incoming.Cents,
			RunningOutgoingCents: t.RunningOutgoing.Cents,
			RunningIncomingCents: t.RunningIncoming.Cents,
			RunningNetCents:      t.RunningNet.Cents,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

type fulfillRequest struct {
	Source string `json:"source"`
	ID     int64  `json:"id"`
	AsOf   string `json:"as_of,omitempty"`
}

func (s *Server) handleFulfill(w http.ResponseWriter, r *http.Request) {
	var req fulfillRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	var asOf core.Date
	if req.AsOf != "" {
		var err error
		if asOf, err = core.ParseDate(req.AsOf); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid as_of date"})
			return
		}
	}
	record, err := s.fulfillment.MarkFulfilled(r.Context(), core.Source(req.Source), req.ID, asOf)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewRecord(record))
}

type detectedView struct {
	Source      string `json:"source"`
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
	DueDate     string `json:"due_date"`
}

func viewDetected(d services.Detected) detectedView {
	return detectedView{
		Source:      string(d.Source),
		ID:          d.ID,
		Name:        d.Name,
		AmountCents: d.Amount.Cents,
		DueDate:     dateString(d.DueDate),
	}
}

func (s *Server) handleDetectOverdue(w http.ResponseWriter, r *http.Request) {
	detected, err := s.fulfillment.DetectOverdue(r.Context(), core.Date{})
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]detectedView, 0, len(detected))
	for _, d := range detected {
		views = append(views, viewDetected(d))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCommitOverdue(w http.ResponseWriter, r *http.Request) {
	detected, err := s.fulfillment.DetectOverdue(r.Context(), core.Date{})
	if err != nil {
		writeError(w, r, err)
		return
	}
	committed, err := s.fulfillment.CommitDetected(r.Context(), detected, core.Date{})
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]recordView, 0, len(committed))
	for _, rec := range committed {
		views = append(views, viewRecord(rec))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	entry, err := s.fulfillment.UndoLast(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source":       string(entry.Source),
		"id":           entry.ObligationID,
		"name":         entry.Name,
		"amount_cents": entry.Amount.Cents,
		"date":         dateString(entry.Date),
		"cycle_month":  entry.CycleMonth,
		"cycle_year":   entry.CycleYear,
	})
}

type affectedView struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (s *Server) handleRunLifecycle(w http.ResponseWriter, r *http.Request) {
	report, err := s.lifecycle.Run(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	expired := make([]affectedView, 0, len(report.Expired))
	for _, a := range report.Expired {
		expired = append(expired, affectedView{ID: a.ID, Name: a.Name})
	}
	deleted := make([]affectedView, 0, len(report.Deleted))
	for _, a := range report.Deleted {
		deleted = append(deleted, affectedView{ID: a.ID, Name: a.Name})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"expired": expired,
		"deleted": deleted,
	})
}
