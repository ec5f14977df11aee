package http

import (
	"net/http"

	"finbook/internal/core"
)

type oneTimeRequest struct {
	Name    string `json:"name"`
	Amount  string `json:"amount"`
	DueDate string `json:"due_date"`
}

func (req oneTimeRequest) toOneTime() (core.OneTimePayment, error) {
	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		return core.OneTimePayment{}, err
	}
	due, err := core.ParseDate(req.DueDate)
	if err != nil {
		return core.OneTimePayment{}, core.ErrInvalidDueDate
	}
	return core.OneTimePayment{
		Name:    req.Name,
		Amount:  amount,
		DueDate: due,
	}, nil
}

type oneTimeView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	AmountCents int64  `json:"amount_cents"`
	DueDate     string `json:"due_date"`
	Fulfilled   bool   `json:"fulfilled"`
}

func viewOneTime(p core.OneTimePayment) oneTimeView {
	return oneTimeView{
		ID:          p.ID,
		Name:        p.Name,
		AmountCents: p.Amount.Cents,
		DueDate:     dateString(p.DueDate),
		Fulfilled:   p.Fulfilled,
	}
}

func (s *Server) handleListOneTime(w http.ResponseWriter, r *http.Request) {
	payments, err := s.obligations.ListOneTime(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]oneTimeView, 0, len(payments))
	for _, p := range payments {
		views = append(views, viewOneTime(p))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateOneTime(w http.ResponseWriter, r *http.Request) {
	var req oneTimeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	p, err := req.toOneTime()
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.obligations.AddOneTime(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOneTime(created))
}

func (s *Server) handleUpdateOneTime(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	var req oneTimeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	p, err := req.toOneTime()
	if err != nil {
		writeError(w, r, err)
		return
	}
	p.ID = id
	updated, err := s.obligations.UpdateOneTime(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOneTime(updated))
}

func (s *Server) handleDeleteOneTime(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}
	if err := s.obligations.RemoveOneTime(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
