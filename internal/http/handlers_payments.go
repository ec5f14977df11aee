package http

import (
	"net/http"

	"finbook/internal/core"
	"finbook/internal/services"
)

type paymentRequest struct {
	Name            string `json:"name"`
	Amount          string `json:"amount"`
	AnchorDay       int    `json:"anchor_day"`
	Kind            string `json:"kind"`
	PayPeriodMonths int    `json:"pay_period_months"` // 0 means infinite
}

func (req paymentRequest) toPayment() (core.RecurringPayment, error) {
	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		return core.RecurringPayment{}, err
	}
	period := core.InfinitePeriod()
	if req.PayPeriodMonths != 0 {
		if period, err = core.FinitePeriod(req.PayPeriodMonths); err != nil {
			return core.RecurringPayment{}, err
		}
	}
	return core.RecurringPayment{
		Name:      req.Name,
		Amount:    amount,
		AnchorDay: req.AnchorDay,
		Kind:      core.ObligationKind(req.Kind),
		Period:    period,
	}, nil
}

type paymentView struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	AmountCents     int64  `json:"amount_cents"`
	AnchorDay       int    `json:"anchor_day"`
	Kind            string `json:"kind"`
	LastFulfilled   string `json:"last_fulfilled,omitempty"`
	PayPeriodMonths int    `json:"pay_period_months,omitempty"`
	PeriodStart     string `json:"period_start,omitempty"`
	PendingDeletion bool   `json:"pending_deletion"`
	Active          bool   `json:"active"`
	PreviousCycle   string `json:"previous_cycle,omitempty"`
	CurrentCycle    string `json:"current_cycle,omitempty"`
	NextCycle       string `json:"next_cycle,omitempty"`
	Status          string `json:"status,omitempty"`
	PeriodLabel     string `json:"period_label,omitempty"`
}

func viewPayment(p core.RecurringPayment) paymentView {
	months, _ := p.Period.Months()
	return paymentView{
		ID:              p.ID,
		Name:            p.Name,
		AmountCents:     p.Amount.Cents,
		AnchorDay:       p.AnchorDay,
		Kind:            string(p.Kind),
		LastFulfilled:   dateString(p.LastFulfilled),
		PayPeriodMonths: months,
		PeriodStart:     dateString(p.PeriodStart),
		PendingDeletion: p.PendingDeletion,
		Active:          p.Active,
	}
}

func viewScheduledPayment(sp services.ScheduledPayment) paymentView {
	v := viewPayment(sp.RecurringPayment)
	v.PreviousCycle = dateString(sp.Cycles.Previous)
	v.CurrentCycle = dateString(sp.Cycles.Current)
	v.NextCycle = dateString(sp.Cycles.Next)
	v.Status = sp.Status
	v.PeriodLabel = sp.PeriodLabel
	return v
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	schedule, err := s.obligations.ListSchedule(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]paymentView, 0, len(schedule))
	for _, sp := range schedule {
		views = append(views, viewScheduledPayment(sp))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	p, err := req.toPayment()
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.obligations.AddPayment(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewPayment(created))
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	p, err := req.toPayment()
	if err != nil {
		writeError(w, r, err)
		return
	}
	p.ID = id
	updated, err := s.obligations.UpdatePayment(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewPayment(updated))
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	if err := s.obligations.RemovePayment(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTogglePendingDeletion(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	pending, err := s.obligations.TogglePendingDeletion(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"pending_deletion": pending})
}
