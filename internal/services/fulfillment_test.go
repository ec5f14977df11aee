package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"finbook/internal/core"
	"finbook/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.Open(filepath.Join(t.TempDir(), "finbook.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestEngines(t *testing.T, now time.Time) (*storage.Store, *FulfillmentEngine, *ReconciliationEngine) {
	t.Helper()
	store := newTestStore(t)
	clock := func() time.Time { return now }

	reconciler := NewReconciliationEngine(store, nil)
	reconciler.now = clock
	fulfillment := NewFulfillmentEngine(store, reconciler, nil)
	fulfillment.now = clock
	return store, fulfillment, reconciler
}

func mustCreatePayment(t *testing.T, store *storage.Store, p core.RecurringPayment) int64 {
	t.Helper()
	id, err := store.Queries().CreatePayment(context.Background(), p)
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	return id
}

func TestMarkFulfilledRecurring(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	store, engine, _ := newTestEngines(t, now)
	ctx := context.Background()

	id := mustCreatePayment(t, store, core.RecurringPayment{
		Name: "Rent", Amount: core.Money{Cents: 95000}, AnchorDay: 1,
		Kind: core.KindDebit, Active: true,
	})

	record, err := engine.MarkFulfilled(ctx, core.SourceRecurring, id, core.NewDate(2024, 6, 5))
	if err != nil {
		t.Fatalf("MarkFulfilled() failed: %v", err)
	}
	if record.CycleMonth != 6 || record.CycleYear != 2024 {
		t.Errorf("cycle = %d/%d, want 6/2024", record.CycleMonth, record.CycleYear)
	}
	if record.Amount.Cents != 95000 {
		t.Errorf("record amount = %d, want 95000", record.Amount.Cents)
	}

	p, err := store.Queries().GetPayment(ctx, id)
	if err != nil {
		t.Fatalf("GetPayment() failed: %v", err)
	}
	if p.LastFulfilled.String() != "2024-06-05" {
		t.Errorf("LastFulfilled = %s, want 2024-06-05", p.LastFulfilled)
	}

	summary, err := store.Queries().GetSummary(ctx, 6, 2024)
	if err != nil {
		t.Fatalf("GetSummary() failed: %v", err)
	}
	if summary.TotalPayments.Cents != 95000 {
		t.Errorf("summary payments = %d, want 95000", summary.TotalPayments.Cents)
	}
}

func TestMarkFulfilledDuplicateCycle(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	store, engine, _ := newTestEngines(t, now)
	ctx := context.Background()

	id := mustCreatePayment(t, store, core.RecurringPayment{
		Name: "Rent", Amount: core.Money{Cents: 95000}, AnchorDay: 1,
		Kind: core.KindDebit, Active: true,
	})

	if _, err := engine.MarkFulfilled(ctx, core.SourceRecurring, id, core.NewDate(2024, 6, 5)); err != nil {
		t.Fatalf("first MarkFulfilled() failed: %v", err)
	}
	if _, err := engine.MarkFulfilled(ctx, core.SourceRecurring, id, core.NewDate(2024, 6, 20)); !errors.Is(err, core.ErrAlreadyFulfilled) {
		t.Errorf("second MarkFulfilled() = %v, want ErrAlreadyFulfilled", err)
	}

	// A different cycle month is a fresh cycle.
	if _, err := engine.MarkFulfilled(ctx, core.SourceRecurring, id, core.NewDate(2024, 7, 1)); err != nil {
		t.Errorf("next-month MarkFulfilled() = %v, want nil", err)
	}
}

func TestMarkFulfilledUnknownID(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	_, engine, _ := newTestEngines(t, now)

	if _, err := engine.MarkFulfilled(context.Background(), core.SourceRecurring, 42, core.Date{}); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("MarkFulfilled(unknown) = %v, want ErrNotFound", err)
	}
}

func TestMarkFulfilledOneTimeUsesDueDate(t *testing.T) {
	now := time.Date(2024, 8, 2, 10, 0, 0, 0, time.UTC)
	store, engine, _ := newTestEngines(t, now)
	ctx := context.Background()

	id, err := store.Queries().CreateOneTime(ctx, core.OneTimePayment{
		Name: "Car repair", Amount: core.Money{Cents: 42000}, DueDate: core.NewDate(2024, 6, 12),
	})
	if err != nil {
		t.Fatalf("CreateOneTime() failed: %v", err)
	}

	record, err := engine.MarkFulfilled(ctx, core.SourceOneTime, id, core.Date{})
	if err != nil {
		t.Fatalf("MarkFulfilled() failed: %v", err)
	}
	// Paid in August, but the obligation belongs to June.
	if record.CycleMonth != 6 || record.CycleYear != 2024 {
		t.Errorf("cycle = %d/%d, want 6/2024", record.CycleMonth, record.CycleYear)
	}
	if record.Date.String() != "2024-06-12" {
		t.Errorf("record date = %s, want the due date", record.Date)
	}

	if _, err := engine.MarkFulfilled(ctx, core.SourceOneTime, id, core.Date{}); !errors.Is(err, core.ErrAlreadyFulfilled) {
		t.Errorf("repeat MarkFulfilled() = %v, want ErrAlreadyFulfilled", err)
	}
}

func TestUndoRoundTrip(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	store, engine, _ := newTestEngines(t, now)
	ctx := context.Background()

	id := mustCreatePayment(t, store, core.RecurringPayment{
		Name: "Rent", Amount: core.Money{Cents: 95000}, AnchorDay: 1,
		Kind: core.KindDebit, Active: true,
		LastFulfilled: core.NewDate(2024, 5, 3),
	})

	if _, err := engine.MarkFulfilled(ctx, core.SourceRecurring, id, core.NewDate(2024, 6, 5)); err != nil {
		t.Fatalf("MarkFulfilled() failed: %v", err)
	}

	entry, err := engine.UndoLast(ctx)
	if err != nil {
		t.Fatalf("UndoLast() failed: %v", err)
	}
	if entry.ObligationID != id {
		t.Errorf("undone obligation = %d, want %d", entry.ObligationID, id)
	}

	p, err := store.Queries().GetPayment(ctx, id)
	if err != nil {
		t.Fatalf("GetPayment() failed: %v", err)
	}
	if p.LastFulfilled.String() != "2024-05-03" {
		t.Errorf("LastFulfilled = %s, want restored 2024-05-03", p.LastFulfilled)
	}

	history, err := store.Queries().ListHistoryForMonth(ctx, 6, 2024)
	if err != nil {
		t.Fatalf("ListHistoryForMonth() failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history still has %d rows after undo", len(history))
	}

	summary, err := store.Queries().GetSummary(ctx, 6, 2024)
	if err != nil {
		t.Fatalf("GetSummary() failed: %v", err)
	}
	if summary.TotalPayments.Cents != 0 {
		t.Errorf("summary payments = %d after undo, want 0", summary.TotalPayments.Cents)
	}

	if _, err := engine.UndoLast(ctx); !errors.Is(err, core.ErrNothingToUndo) {
		t.Errorf("empty UndoLast() = %v, want ErrNothingToUndo", err)
	}
}

func TestUndoLogEvictionKeepsNewest(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	store, engine, _ := newTestEngines(t, now)
	ctx := context.Background()

	// One more fulfillment than the log holds.
	for i := 0; i < storage.UndoLogCapacity+1; i++ {
		id := mustCreatePayment(t, store, core.RecurringPayment{
			Name: "Sub", Amount: core.Money{Cents: 100}, AnchorDay: 1,
			Kind: core.KindDebit, Active: true,
		})
		if _, err := engine.MarkFulfilled(ctx, core.SourceRecurring, id, core.NewDate(2024, 6, 5)); err != nil {
			t.Fatalf("MarkFulfilled(#%d) failed: %v", i, err)
		}
	}

	n, err := store.Queries().CountUndo(ctx)
	if err != nil {
		t.Fatalf("CountUndo() failed: %v", err)
	}
	if n != storage.UndoLogCapacity {
		t.Fatalf("undo log holds %d entries, want %d", n, storage.UndoLogCapacity)
	}

	// Only capacity entries remain undoable; the oldest fell off.
	for i := 0; i < storage.UndoLogCapacity; i++ {
		if _, err := engine.UndoLast(ctx); err != nil {
			t.Fatalf("UndoLast(#%d) failed: %v", i, err)
		}
	}
	if _, err := engine.UndoLast(ctx); !errors.Is(err, core.ErrNothingToUndo) {
		t.Errorf("UndoLast() past capacity = %v, want ErrNothingToUndo", err)
	}
}

func TestDetectOverdue(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	store, engine, _ := newTestEngines(t, now)
	ctx := context.Background()
	today := core.DateOf(now)

	overdueID := mustCreatePayment(t, store, core.RecurringPayment{
		Name: "Rent", Amount: core.Money{Cents: 95000}, AnchorDay: 1,
		Kind: core.KindDebit, Active: true,
	})
	// Not yet due this month.
	mustCreatePayment(t, store, core.RecurringPayment{
		Name: "Gym", Amount: core.Money{Cents: 3000}, AnchorDay: 25,
		Kind: core.KindDebit, Active: true,
	})
	// Paid this month already.
	mustCreatePayment(t, store, core.RecurringPayment{
		Name: "Netflix", Amount: core.Money{Cents: 1299}, AnchorDay: 5,
		Kind: core.KindDebit, Active: true,
		LastFulfilled: core.NewDate(2024, 6, 5),
	})
	// Inactive payments never show up.
	mustCreatePayment(t, store, core.RecurringPayment{
		Name: "Old loan", Amount: core.Money{Cents: 20000}, AnchorDay: 1,
		Kind: core.KindDebit, Active: false,
	})
	// Income is never auto-detected.
	if _, err := store.Queries().CreateIncome(ctx, core.RecurringIncome{
		Name: "Salary", Amount: core.Money{Cents: 300000}, AnchorDay: 1,
	}); err != nil {
		t.Fatalf("CreateIncome() failed: %v", err)
	}
	oneTimeID, err := store.Queries().CreateOneTime(ctx, core.OneTimePayment{
		Name: "Car repair", Amount: core.Money{Cents: 42000}, DueDate: core.NewDate(2024, 6, 10),
	})
	if err != nil {
		t.Fatalf("CreateOneTime() failed: %v", err)
	}

	detected, err := engine.DetectOverdue(ctx, today)
	if err != nil {
		t.Fatalf("DetectOverdue() failed: %v", err)
	}
	if len(detected) != 2 {
		t.Fatalf("DetectOverdue() found %d, want 2: %+v", len(detected), detected)
	}
	if detected[0].Source != core.SourceRecurring || detected[0].ID != overdueID {
		t.Errorf("first detected = %+v, want recurring %d", detected[0], overdueID)
	}
	if detected[1].Source != core.SourceOneTime || detected[1].ID != oneTimeID {
		t.Errorf("second detected = %+v, want one_time %d", detected[1], oneTimeID)
	}

	committed, err := engine.CommitDetected(ctx, detected, today)
	if err != nil {
		t.Fatalf("CommitDetected() failed: %v", err)
	}
	if len(committed) != 2 {
		t.Fatalf("CommitDetected() committed %d, want 2", len(committed))
	}

	again, err := engine.DetectOverdue(ctx, today)
	if err != nil {
		t.Fatalf("second DetectOverdue() failed: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("DetectOverdue() after commit found %d, want 0: %+v", len(again), again)
	}
}

func TestCommitDetectedSkipsConcurrentlyFulfilled(t *testing.T) {
	now := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	store, engine, _ := newTestEngines(t, now)
	ctx := context.Background()
	today := core.DateOf(now)

	first := mustCreatePayment(t, store, core.RecurringPayment{
		Name: "Rent", Amount: core.Money{Cents: 95000}, AnchorDay: 1,
		Kind: core.KindDebit, Active: true,
	})
	second := mustCreatePayment(t, store, core.RecurringPayment{
		Name: "Insurance", Amount: core.Money{Cents: 5000}, AnchorDay: 2,
		Kind: core.KindCredit, Active: true,
	})

	detected, err := engine.DetectOverdue(ctx, today)
	if err != nil {
		t.Fatalf("DetectOverdue() failed: %v", err)
	}
	if len(detected) != 2 {
		t.Fatalf("DetectOverdue() found %d, want 2", len(detected))
	}

	// One gets paid between detection and commit.
	if _, err := engine.MarkFulfilled(ctx, core.SourceRecurring, first, today); err != nil {
		t.Fatalf("MarkFulfilled() failed: %v", err)
	}

	committed, err := engine.CommitDetected(ctx, detected, today)
	if err != nil {
		t.Fatalf("CommitDetected() failed: %v", err)
	}
	if len(committed) != 1 || committed[0].ObligationID != second {
		t.Errorf("CommitDetected() = %+v, want only obligation %d", committed, second)
	}

	history, err := store.Queries().ListHistoryForMonth(ctx, 6, 2024)
	if err != nil {
		t.Fatalf("ListHistoryForMonth() failed: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("history has %d rows, want 2 (no double record)", len(history))
	}
}
