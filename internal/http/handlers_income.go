package http

import (
	"net/http"

	"finbook/internal/core"
	"finbook/internal/services"
)

type incomeRequest struct {
	Name      string `json:"name"`
	Amount    string `json:"amount"`
	AnchorDay int    `json:"anchor_day"`
}

func (req incomeRequest) toIncome() (core.RecurringIncome, error) {
	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		return core.RecurringIncome{}, err
	}
	return core.RecurringIncome{
		Name:      req.Name,
		Amount:    amount,
		AnchorDay: req.AnchorDay,
	}, nil
}

type incomeView struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	AmountCents   int64  `json:"amount_cents"`
	AnchorDay     int    `json:"anchor_day"`
	LastFulfilled string `json:"last_fulfilled,omitempty"`
	PreviousCycle string `json:"previous_cycle,omitempty"`
	CurrentCycle  string `json:"current_cycle,omitempty"`
	NextCycle     string `json:"next_cycle,omitempty"`
}

func viewIncome(in core.RecurringIncome) incomeView {
	return incomeView{
		ID:            in.ID,
		Name:          in.Name,
		AmountCents:   in.Amount.Cents,
		AnchorDay:     in.AnchorDay,
		LastFulfilled: dateString(in.LastFulfilled),
	}
}

func viewScheduledIncome(si services.ScheduledIncome) incomeView {
	v := viewIncome(si.RecurringIncome)
	v.PreviousCycle = dateString(si.Cycles.Previous)
	v.CurrentCycle = dateString(si.Cycles.Current)
	v.NextCycle = dateString(si.Cycles.Next)
	return v
}

func (s *Server) handleListIncome(w http.ResponseWriter, r *http.Request) {
	schedule, err := s.obligations.ListIncomeSchedule(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]incomeView, 0, len(schedule))
	for _, si := range schedule {
		views = append(views, viewScheduledIncome(si))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	in, err := req.toIncome()
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.obligations.AddIncome(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewIncome(created))
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req incomeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	in, err := req.toIncome()
	if err != nil {
		writeError(w, r, err)
		return
	}
	in.ID = id
	updated, err := s.obligations.UpdateIncome(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewIncome(updated))
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	if err := s.obligations.RemoveIncome(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
