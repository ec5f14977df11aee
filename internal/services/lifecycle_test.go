package services

import (
	"context"
	"testing"
	"time"

	"finbook/internal/core"
	"finbook/internal/storage"
)

func newTestLifecycle(t *testing.T, store *storage.Store, now time.Time) *LifecycleManager {
	t.Helper()
	m := NewLifecycleManager(store, nil)
	m.now = func() time.Time { return now }
	return m
}

func TestExpireFinishedPeriods(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	manager := newTestLifecycle(t, store, time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC))

	twoMonths, _ := core.FinitePeriod(2)
	sixMonths, _ := core.FinitePeriod(6)

	finished := mustCreatePayment(t, store, core.RecurringPayment{
		Name: "Installments", Amount: core.Money{Cents: 10000}, AnchorDay: 1,
		Kind: core.KindDebit, Active: true,
		Period: twoMonths, PeriodStart: core.NewDate(2024, 4, 1),
	})
	running := mustCreatePayment(t, store, core.RecurringPayment{
		Name: "Subscription", Amount: core.Money{Cents: 1500}, AnchorDay: 1,
		Kind: core.KindDebit, Active: true,
		Period: sixMonths, PeriodStart: core.NewDate(2024, 5, 1),
	})
	infinite := mustCreatePayment(t, store, core.RecurringPayment{
		Name: "Rent", Amount: core.Money{Cents: 95000}, AnchorDay: 1,
		Kind: core.KindDebit, Active: true,
	})

	report, err := manager.Run(ctx)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if len(report.Expired) != 1 || report.Expired[0].ID != finished {
		t.Fatalf("Expired = %+v, want only payment %d", report.Expired, finished)
	}

	q := store.Queries()
	if p, _ := q.GetPayment(ctx, finished); p.Active {
		t.Error("finished payment still active")
	}
	if p, _ := q.GetPayment(ctx, running); !p.Active {
		t.Error("running payment was deactivated")
	}
	if p, _ := q.GetPayment(ctx, infinite); !p.Active {
		t.Error("infinite payment was deactivated")
	}

	// Expiry is one-way and idempotent.
	report, err = manager.Run(ctx)
	if err != nil {
		t.Fatalf("second Run() failed: %v", err)
	}
	if len(report.Expired) != 0 {
		t.Errorf("second Run() expired %d, want 0", len(report.Expired))
	}
}

func TestDeletePendingCheckpointGating(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	q := store.Queries()

	pending := mustCreatePayment(t, store, core.RecurringPayment{
		Name: "Cancelled gym", Amount: core.Money{Cents: 3000}, AnchorDay: 1,
		Kind: core.KindDebit, Active: true, PendingDeletion: true,
	})

	// First run ever only seeds the checkpoint.
	june := newTestLifecycle(t, store, time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC))
	report, err := june.Run(ctx)
	if err != nil {
		t.Fatalf("first Run() failed: %v", err)
	}
	if len(report.Deleted) != 0 {
		t.Fatalf("first run deleted %d, want 0", len(report.Deleted))
	}
	if checkpoint, _ := q.GetSetting(ctx, storage.LifecycleCheckpointKey); checkpoint != "2024-06" {
		t.Errorf("checkpoint = %q, want 2024-06", checkpoint)
	}

	// Same month again: still gated.
	report, err = june.Run(ctx)
	if err != nil {
		t.Fatalf("same-month Run() failed: %v", err)
	}
	if len(report.Deleted) != 0 {
		t.Errorf("same-month run deleted %d, want 0", len(report.Deleted))
	}
	if _, err := q.GetPayment(ctx, pending); err != nil {
		t.Fatalf("pending payment should survive within the month: %v", err)
	}

	// New month boundary fires the deletion exactly once.
	july := newTestLifecycle(t, store, time.Date(2024, 7, 1, 0, 30, 0, 0, time.UTC))
	report, err = july.Run(ctx)
	if err != nil {
		t.Fatalf("july Run() failed: %v", err)
	}
	if len(report.Deleted) != 1 || report.Deleted[0].ID != pending {
		t.Fatalf("july run deleted %+v, want payment %d", report.Deleted, pending)
	}
	if checkpoint, _ := q.GetSetting(ctx, storage.LifecycleCheckpointKey); checkpoint != "2024-07" {
		t.Errorf("checkpoint = %q, want 2024-07", checkpoint)
	}

	report, err = july.Run(ctx)
	if err != nil {
		t.Fatalf("second july Run() failed: %v", err)
	}
	if len(report.Deleted) != 0 {
		t.Errorf("second july run deleted %d, want 0", len(report.Deleted))
	}
}

func TestDeletePendingUnreadableCheckpointReseeds(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	q := store.Queries()

	mustCreatePayment(t, store, core.RecurringPayment{
		Name: "Cancelled gym", Amount: core.Money{Cents: 3000}, AnchorDay: 1,
		Kind: core.KindDebit, Active: true, PendingDeletion: true,
	})
	if err := q.SetSetting(ctx, storage.LifecycleCheckpointKey, "garbage"); err != nil {
		t.Fatalf("SetSetting() failed: %v", err)
	}

	manager := newTestLifecycle(t, store, time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC))
	report, err := manager.Run(ctx)
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if len(report.Deleted) != 0 {
		t.Errorf("run with unreadable checkpoint deleted %d, want 0", len(report.Deleted))
	}
	if checkpoint, _ := q.GetSetting(ctx, storage.LifecycleCheckpointKey); checkpoint != "2024-06" {
		t.Errorf("checkpoint = %q, want reseeded 2024-06", checkpoint)
	}
}
