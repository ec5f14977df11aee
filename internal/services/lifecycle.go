package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finbook/internal/core"
	"finbook/internal/events"
	"finbook/internal/storage"
)

// LifecycleManager applies the two once-per-boundary transitions: finite
// pay periods expiring, and deferred deletions at a new calendar month.
// Safe to run any number of times; the deletion pass is gated by a
// persisted checkpoint so it fires at most once per month.
type LifecycleManager struct {
	store     *storage.Store
	publisher Publisher
	now       func() time.Time
}

func NewLifecycleManager(store *storage.Store, publisher Publisher) *LifecycleManager {
	return &LifecycleManager{
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
}

// Affected identifies an obligation touched by a lifecycle pass.
type Affected struct {
	ID   int64
	Name string
}

// LifecycleReport lists what a run changed, for the caller to surface.
type LifecycleReport struct {
	Expired []Affected
	Deleted []Affected
}

// Run executes both passes. Expirations first, so a payment that both
// expires and is pending deletion still shows up expired in the report of
// the month it lapses.
func (m *LifecycleManager) Run(ctx context.Context) (LifecycleReport, error) {
	var report LifecycleReport

	expired, err := m.expireFinishedPeriods(ctx)
	if err != nil {
		return report, err
	}
	report.Expired = expired

	deleted, err := m.deletePending(ctx)
	if err != nil {
		return report, err
	}
	report.Deleted = deleted

	return report, nil
}

// expireFinishedPeriods deactivates active payments whose finite pay
// period has elapsed. Whole calendar months are counted; the day of month
// is ignored. The transition is one-way: nothing reactivates a payment.
func (m *LifecycleManager) expireFinishedPeriods(ctx context.Context) ([]Affected, error) {
	today := core.DateOf(m.now())

	var expired []Affected
	err := m.store.WithTx(ctx, func(q *storage.Queries) error {
		candidates, err := q.ListActiveFinitePayments(ctx)
		if err != nil {
			return fmt.Errorf("list finite payments: %w", err)
		}

		for _, p := range candidates {
			months, finite := p.Period.Months()
			if !finite {
				continue
			}
			if p.PeriodStart.IsEmpty() {
				slog.WarnContext(ctx, "Skipping payment with finite period but no start date",
					"id", p.ID, "name", p.Name)
				continue
			}
			if core.ElapsedWholeMonths(p.PeriodStart, today) < months {
				continue
			}
			if err := q.DeactivatePayment(ctx, p.ID); err != nil {
				return fmt.Errorf("deactivate payment %d: %w", p.ID, err)
			}
			expired = append(expired, Affected{ID: p.ID, Name: p.Name})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(expired) > 0 {
		slog.InfoContext(ctx, "Expired finished pay periods", "count", len(expired))
		msg := events.NewMessage(events.KindLifecycleExpired)
		for _, a := range expired {
			msg.Names = append(msg.Names, a.Name)
		}
		publish(ctx, m.publisher, msg)
	}
	return expired, nil
}

// deletePending removes payments flagged pending_deletion, but only the
// first time the manager runs in a calendar month later than the stored
// checkpoint. The very first run ever only seeds the checkpoint.
func (m *LifecycleManager) deletePending(ctx context.Context) ([]Affected, error) {
	today := core.DateOf(m.now())
	current := fmt.Sprintf("%04d-%02d", today.Year(), today.Month())

	var deleted []Affected
	err := m.store.WithTx(ctx, func(q *storage.Queries) error {
		checkpoint, err := q.GetSetting(ctx, storage.LifecycleCheckpointKey)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read checkpoint: %w", err)
		}

		newBoundary := false
		if chkYear, chkMonth, ok := parseCheckpoint(checkpoint); ok {
			newBoundary = today.Year() > chkYear ||
				(today.Year() == chkYear && today.Month() > chkMonth)
		}
		// A missing or unreadable checkpoint means first run: seed it and
		// delete nothing this month.

		if newBoundary {
			pending, err := q.ListPaymentsPendingDeletion(ctx)
			if err != nil {
				return fmt.Errorf("list pending deletions: %w", err)
			}
			for _, p := range pending {
				if err := q.DeletePayment(ctx, p.ID); err != nil {
					return fmt.Errorf("delete payment %d: %w", p.ID, err)
				}
				deleted = append(deleted, Affected{ID: p.ID, Name: p.Name})
			}
		}

		return q.SetSetting(ctx, storage.LifecycleCheckpointKey, current)
	})
	if err != nil {
		return nil, err
	}

	if len(deleted) > 0 {
		slog.InfoContext(ctx, "Deleted payments pending removal",
			"count", len(deleted), "boundary", current)
		msg := events.NewMessage(events.KindLifecycleDeleted)
		for _, a := range deleted {
			msg.Names = append(msg.Names, a.Name)
		}
		publish(ctx, m.publisher, msg)
	}
	return deleted, nil
}

func parseCheckpoint(s string) (year, month int, ok bool) {
	if s == "" {
		return 0, 0, false
	}
	if _, err := fmt.Sscanf(s, "%d-%d", &year, &month); err != nil {
		return 0, 0, false
	}
	if month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, month, true
}
