package services

import (
	"context"
	"fmt"
	"time"

	"finbook/internal/core"
	"finbook/internal/storage"
)

// ObligationService manages the schedule itself: creating, editing and
// removing obligations, and listing them with their computed cycle dates.
type ObligationService struct {
	store *storage.Store
	now   func() time.Time
}

func NewObligationService(store *storage.Store) *ObligationService {
	return &ObligationService{store: store, now: time.Now}
}

// ScheduledPayment is a recurring payment decorated with its cycle dates
// and display labels.
type ScheduledPayment struct {
	core.RecurringPayment
	Cycles      core.CycleDates
	Status      string
	PeriodLabel string
}

// ScheduledIncome is recurring income decorated with its cycle dates.
type ScheduledIncome struct {
	core.RecurringIncome
	Cycles core.CycleDates
}

const (
	StatusActive          = "Active"
	StatusPendingDeletion = "Pending deletion"
	StatusExpired         = "Expired"
)

func (s *ObligationService) firstOfMonth() core.Date {
	t := s.now()
	return core.NewDate(t.Year(), int(t.Month()), 1)
}

// AddPayment validates and stores a new recurring payment. A finite pay
// period starts counting from the first day of the current month.
func (s *ObligationService) AddPayment(ctx context.Context, p core.RecurringPayment) (core.RecurringPayment, error) {
	p.Active = true
	p.PendingDeletion = false
	if p.Period.IsInfinite() {
		p.PeriodStart = core.Date{}
	} else {
		p.PeriodStart = s.firstOfMonth()
	}
	if err := p.Validate(); err != nil {
		return core.RecurringPayment{}, err
	}

	id, err := s.store.Queries().CreatePayment(ctx, p)
	if err != nil {
		return core.RecurringPayment{}, fmt.Errorf("create payment: %w", err)
	}
	p.ID = id
	return p, nil
}

// UpdatePayment replaces a payment's editable fields. Changing the pay
// period restarts it from the first day of the current month and
// reactivates the payment; an unchanged period keeps its start date.
// Fulfillment state and the pending-deletion flag are untouched.
func (s *ObligationService) UpdatePayment(ctx context.Context, p core.RecurringPayment) (core.RecurringPayment, error) {
	var updated core.RecurringPayment
	err := s.store.WithTx(ctx, func(q *storage.Queries) error {
		existing, err := q.GetPayment(ctx, p.ID)
		if err != nil {
			return notFound(err)
		}

		updated = existing
		updated.Name = p.Name
		updated.Amount = p.Amount
		updated.AnchorDay = p.AnchorDay
		updated.Kind = p.Kind

		if p.Period != existing.Period {
			updated.Period = p.Period
			updated.Active = true
			if p.Period.IsInfinite() {
				updated.PeriodStart = core.Date{}
			} else {
				updated.PeriodStart = s.firstOfMonth()
			}
		}

		if err := updated.Validate(); err != nil {
			return err
		}
		return q.UpdatePayment(ctx, updated)
	})
	if err != nil {
		return core.RecurringPayment{}, err
	}
	return updated, nil
}

// RemovePayment deletes a payment immediately. History rows referencing it
// survive with the obligation link cleared.
func (s *ObligationService) RemovePayment(ctx context.Context, id int64) error {
	if err := s.store.Queries().DeletePayment(ctx, id); err != nil {
		return notFound(err)
	}
	return nil
}

// TogglePendingDeletion flips the deferred-deletion flag and returns its
// new state. The actual removal happens at the next month boundary.
func (s *ObligationService) TogglePendingDeletion(ctx context.Context, id int64) (bool, error) {
	var pending bool
	err := s.store.WithTx(ctx, func(q *storage.Queries) error {
		p, err := q.GetPayment(ctx, id)
		if err != nil {
			return notFound(err)
		}
		pending = !p.PendingDeletion
		return q.SetPaymentPendingDeletion(ctx, id, pending)
	})
	if err != nil {
		return false, err
	}
	return pending, nil
}

// ListSchedule returns every recurring payment with its previous, current
// and next cycle dates plus status and pay-period labels.
func (s *ObligationService) ListSchedule(ctx context.Context) ([]ScheduledPayment, error) {
	payments, err := s.store.Queries().ListPayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	today := core.DateOf(s.now())
	out := make([]ScheduledPayment, 0, len(payments))
	for _, p := range payments {
		out = append(out, ScheduledPayment{
			RecurringPayment: p,
			Cycles:           core.Cycles(p.AnchorDay, today.Month(), today.Year(), p.LastFulfilled),
			Status:           paymentStatus(p),
			PeriodLabel:      periodLabel(p, today),
		})
	}
	return out, nil
}

func paymentStatus(p core.RecurringPayment) string {
	switch {
	case !p.Active:
		return StatusExpired
	case p.PendingDeletion:
		return StatusPendingDeletion
	default:
		return StatusActive
	}
}

func periodLabel(p core.RecurringPayment, today core.Date) string {
	months, finite := p.Period.Months()
	if !finite {
		return "Infinite"
	}
	if p.PeriodStart.IsEmpty() {
		return fmt.Sprintf("%d months", months)
	}
	remaining := months - core.ElapsedWholeMonths(p.PeriodStart, today)
	if remaining <= 0 {
		return StatusExpired
	}
	if remaining == 1 {
		return "1 month left"
	}
	return fmt.Sprintf("%d months left", remaining)
}

// AddIncome validates and stores a new recurring income entry.
func (s *ObligationService) AddIncome(ctx context.Context, in core.RecurringIncome) (core.RecurringIncome, error) {
	if err := in.Validate(); err != nil {
		return core.RecurringIncome{}, err
	}
	id, err := s.store.Queries().CreateIncome(ctx, in)
	if err != nil {
		return core.RecurringIncome{}, fmt.Errorf("create income: %w", err)
	}
	in.ID = id
	return in, nil
}

// UpdateIncome replaces an income entry's editable fields, preserving its
// fulfillment state.
func (s *ObligationService) UpdateIncome(ctx context.Context, in core.RecurringIncome) (core.RecurringIncome, error) {
	var updated core.RecurringIncome
	err := s.store.WithTx(ctx, func(q *storage.Queries) error {
		existing, err := q.GetIncome(ctx, in.ID)
		if err != nil {
			return notFound(err)
		}
		updated = existing
		updated.Name = in.Name
		updated.Amount = in.Amount
		updated.AnchorDay = in.AnchorDay
		if err := updated.Validate(); err != nil {
			return err
		}
		return q.UpdateIncome(ctx, updated)
	})
	if err != nil {
		return core.RecurringIncome{}, err
	}
	return updated, nil
}

func (s *ObligationService) RemoveIncome(ctx context.Context, id int64) error {
	if err := s.store.Queries().DeleteIncome(ctx, id); err != nil {
		return notFound(err)
	}
	return nil
}

// ListIncomeSchedule returns recurring income with computed cycle dates.
func (s *ObligationService) ListIncomeSchedule(ctx context.Context) ([]ScheduledIncome, error) {
	income, err := s.store.Queries().ListIncome(ctx)
	if err != nil {
		return nil, fmt.Errorf("list income: %w", err)
	}

	today := core.DateOf(s.now())
	out := make([]ScheduledIncome, 0, len(income))
	for _, in := range income {
		out = append(out, ScheduledIncome{
			RecurringIncome: in,
			Cycles:          core.Cycles(in.AnchorDay, today.Month(), today.Year(), in.LastFulfilled),
		})
	}
	return out, nil
}

// AddOneTime validates and stores a new one-time payment, always unpaid.
func (s *ObligationService) AddOneTime(ctx context.Context, p core.OneTimePayment) (core.OneTimePayment, error) {
	p.Fulfilled = false
	if err := p.Validate(); err != nil {
		return core.OneTimePayment{}, err
	}
	id, err := s.store.Queries().CreateOneTime(ctx, p)
	if err != nil {
		return core.OneTimePayment{}, fmt.Errorf("create one-time payment: %w", err)
	}
	p.ID = id
	return p, nil
}

// UpdateOneTime replaces a one-time payment's editable fields. Once paid,
// the entry is frozen; editing returns core.ErrAlreadyFulfilled.
func (s *ObligationService) UpdateOneTime(ctx context.Context, p core.OneTimePayment) (core.OneTimePayment, error) {
	var updated core.OneTimePayment
	err := s.store.WithTx(ctx, func(q *storage.Queries) error {
		existing, err := q.GetOneTime(ctx, p.ID)
		if err != nil {
			return notFound(err)
		}
		if existing.Fulfilled {
			return core.ErrAlreadyFulfilled
		}
		updated = existing
		updated.Name = p.Name
		updated.Amount = p.Amount
		updated.DueDate = p.DueDate
		if err := updated.Validate(); err != nil {
			return err
		}
		return q.UpdateOneTime(ctx, updated)
	})
	if err != nil {
		return core.OneTimePayment{}, err
	}
	return updated, nil
}

func (s *ObligationService) RemoveOneTime(ctx context.Context, id int64) error {
	if err := s.store.Queries().DeleteOneTime(ctx, id); err != nil {
		return notFound(err)
	}
	return nil
}

// ListOneTime returns all one-time payments ordered by due date.
func (s *ObligationService) ListOneTime(ctx context.Context) ([]core.OneTimePayment, error) {
	return s.store.Queries().ListOneTime(ctx)
}

// History returns the fulfillment records of a cycle month.
func (s *ObligationService) History(ctx context.Context, month, year int) ([]core.FulfillmentRecord, error) {
	return s.store.Queries().ListHistoryForMonth(ctx, month, year)
}
