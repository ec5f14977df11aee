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

// FulfillmentEngine marks cycles paid or received, detects overdue
// obligations, and reverses the most recent fulfillment. Every mutation is
// one transaction: obligation state, history row and undo entry commit or
// roll back together.
type FulfillmentEngine struct {
	store      *storage.Store
	reconciler *ReconciliationEngine
	publisher  Publisher
	now        func() time.Time
}

func NewFulfillmentEngine(store *storage.Store, reconciler *ReconciliationEngine, publisher Publisher) *FulfillmentEngine {
	return &FulfillmentEngine{
		store:      store,
		reconciler: reconciler,
		publisher:  publisher,
		now:        time.Now,
	}
}

// Detected is one obligation whose due date has passed without a
// fulfillment record for its cycle.
type Detected struct {
	Source  core.Source
	ID      int64
	Name    string
	Amount  core.Money
	DueDate core.Date
}

// MarkFulfilled records one cycle as paid or received as of the given
// date. Returns core.ErrAlreadyFulfilled when the target cycle already has
// a history record and core.ErrNotFound for an unknown id. A zero asOf
// defaults to today.
func (e *FulfillmentEngine) MarkFulfilled(ctx context.Context, source core.Source, id int64, asOf core.Date) (core.FulfillmentRecord, error) {
	if asOf.IsEmpty() {
		asOf = core.DateOf(e.now())
	}

	var record core.FulfillmentRecord
	err := e.store.WithTx(ctx, func(q *storage.Queries) error {
		var err error
		record, err = e.markInTx(ctx, q, source, id, asOf)
		return err
	})
	if err != nil {
		return core.FulfillmentRecord{}, err
	}

	if _, err := e.reconciler.RecomputeMonth(ctx, record.CycleMonth, record.CycleYear); err != nil {
		slog.ErrorContext(ctx, "Failed to refresh summary after fulfillment",
			"month", record.CycleMonth, "year", record.CycleYear, "error", err)
	}

	msg := events.NewMessage(events.KindFulfillmentRecorded)
	msg.Source = string(record.Source)
	msg.ObligationID = record.ObligationID
	msg.Name = record.Name
	msg.AmountCents = record.Amount.Cents
	msg.Date = record.Date.String()
	msg.Month = record.CycleMonth
	msg.Year = record.CycleYear
	publish(ctx, e.publisher, msg)

	return record, nil
}

// markInTx applies the three writes of a fulfillment inside the caller's
// transaction: obligation state, history row, undo entry. The undo log is
// trimmed to capacity after every push; eviction is silent.
func (e *FulfillmentEngine) markInTx(ctx context.Context, q *storage.Queries, source core.Source, id int64, asOf core.Date) (core.FulfillmentRecord, error) {
	var (
		record core.FulfillmentRecord
		undo   core.UndoEntry
	)

	switch source {
	case core.SourceRecurring:
		p, err := q.GetPayment(ctx, id)
		if err != nil {
			return core.FulfillmentRecord{}, notFound(err)
		}
		n, err := q.CountCycleRecords(ctx, id, source, asOf.Month(), asOf.Year())
		if err != nil {
			return core.FulfillmentRecord{}, fmt.Errorf("check cycle: %w", err)
		}
		if n > 0 {
			return core.FulfillmentRecord{}, core.ErrAlreadyFulfilled
		}
		if err := q.SetPaymentLastFulfilled(ctx, id, asOf); err != nil {
			return core.FulfillmentRecord{}, notFound(err)
		}
		record = core.FulfillmentRecord{
			ObligationID: id,
			Source:       source,
			Name:         p.Name,
			Amount:       p.Amount,
			Date:         asOf,
			CycleMonth:   asOf.Month(),
			CycleYear:    asOf.Year(),
		}
		undo.OldLastFulfilled = p.LastFulfilled

	case core.SourceIncome:
		in, err := q.GetIncome(ctx, id)
		if err != nil {
			return core.FulfillmentRecord{}, notFound(err)
		}
		n, err := q.CountCycleRecords(ctx, id, source, asOf.Month(), asOf.Year())
		if err != nil {
			return core.FulfillmentRecord{}, fmt.Errorf("check cycle: %w", err)
		}
		if n > 0 {
			return core.FulfillmentRecord{}, core.ErrAlreadyFulfilled
		}
		if err := q.SetIncomeLastFulfilled(ctx, id, asOf); err != nil {
			return core.FulfillmentRecord{}, notFound(err)
		}
		record = core.FulfillmentRecord{
			ObligationID: id,
			Source:       source,
			Name:         in.Name,
			Amount:       in.Amount,
			Date:         asOf,
			CycleMonth:   asOf.Month(),
			CycleYear:    asOf.Year(),
		}
		undo.OldLastFulfilled = in.LastFulfilled

	case core.SourceOneTime:
		p, err := q.GetOneTime(ctx, id)
		if err != nil {
			return core.FulfillmentRecord{}, notFound(err)
		}
		if p.Fulfilled {
			return core.FulfillmentRecord{}, core.ErrAlreadyFulfilled
		}
		n, err := q.CountOneTimeRecords(ctx, id, p.DueDate)
		if err != nil {
			return core.FulfillmentRecord{}, fmt.Errorf("check due date: %w", err)
		}
		if n > 0 {
			return core.FulfillmentRecord{}, core.ErrAlreadyFulfilled
		}
		if err := q.SetOneTimeFulfilled(ctx, id, true); err != nil {
			return core.FulfillmentRecord{}, notFound(err)
		}
		// A one-time cycle is its due date, regardless of when it was paid.
		record = core.FulfillmentRecord{
			ObligationID: id,
			Source:       source,
			Name:         p.Name,
			Amount:       p.Amount,
			Date:         p.DueDate,
			CycleMonth:   p.DueDate.Month(),
			CycleYear:    p.DueDate.Year(),
		}

	default:
		return core.FulfillmentRecord{}, fmt.Errorf("%w: unknown source %q", core.ErrInvalidObligation, source)
	}

	historyID, err := q.InsertHistory(ctx, record)
	if err != nil {
		return core.FulfillmentRecord{}, fmt.Errorf("insert history: %w", err)
	}
	record.ID = historyID

	undo.HistoryID = historyID
	undo.ObligationID = record.ObligationID
	undo.Source = record.Source
	undo.Name = record.Name
	undo.Amount = record.Amount
	undo.Date = record.Date
	undo.CycleMonth = record.CycleMonth
	undo.CycleYear = record.CycleYear

	if _, err := q.PushUndo(ctx, undo); err != nil {
		return core.FulfillmentRecord{}, fmt.Errorf("push undo entry: %w", err)
	}
	if err := q.TrimUndo(ctx, storage.UndoLogCapacity); err != nil {
		return core.FulfillmentRecord{}, fmt.Errorf("trim undo log: %w", err)
	}

	return record, nil
}

// DetectOverdue returns every obligation whose current cycle date has
// passed without a fulfillment record. It mutates nothing; callers decide
// whether to commit. Recurring income is never auto-detected.
func (e *FulfillmentEngine) DetectOverdue(ctx context.Context, today core.Date) ([]Detected, error) {
	if today.IsEmpty() {
		today = core.DateOf(e.now())
	}
	q := e.store.Queries()

	payments, err := q.ListPayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	var detected []Detected
	for _, p := range payments {
		if !p.Active {
			continue
		}
		current := core.CycleDate(p.AnchorDay, today.Month(), today.Year())
		if current.After(today.Time) {
			continue
		}
		// Already paid this month according to the obligation itself.
		if !p.LastFulfilled.IsEmpty() && p.LastFulfilled.SameMonth(today) {
			continue
		}
		n, err := q.CountCycleRecords(ctx, p.ID, core.SourceRecurring, today.Month(), today.Year())
		if err != nil {
			return nil, fmt.Errorf("check cycle for payment %d: %w", p.ID, err)
		}
		if n > 0 {
			continue
		}
		detected = append(detected, Detected{
			Source:  core.SourceRecurring,
			ID:      p.ID,
			Name:    p.Name,
			Amount:  p.Amount,
			DueDate: current,
		})
	}

	oneTime, err := q.ListUnfulfilledDue(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("list due one-time payments: %w", err)
	}
	for _, p := range oneTime {
		n, err := q.CountOneTimeRecords(ctx, p.ID, p.DueDate)
		if err != nil {
			return nil, fmt.Errorf("check one-time payment %d: %w", p.ID, err)
		}
		if n > 0 {
			continue
		}
		detected = append(detected, Detected{
			Source:  core.SourceOneTime,
			ID:      p.ID,
			Name:    p.Name,
			Amount:  p.Amount,
			DueDate: p.DueDate,
		})
	}

	return detected, nil
}

// CommitDetected fulfills every detected obligation in one transaction.
// An item whose cycle gained a record between detection and commit is
// skipped, never double-recorded; any other failure rolls the whole batch
// back. Backfilled cycles use the obligation's current stored amount.
func (e *FulfillmentEngine) CommitDetected(ctx context.Context, detected []Detected, today core.Date) ([]core.FulfillmentRecord, error) {
	if today.IsEmpty() {
		today = core.DateOf(e.now())
	}

	var committed []core.FulfillmentRecord
	err := e.store.WithTx(ctx, func(q *storage.Queries) error {
		for _, d := range detected {
			record, err := e.markInTx(ctx, q, d.Source, d.ID, today)
			if errors.Is(err, core.ErrAlreadyFulfilled) || errors.Is(err, core.ErrNotFound) {
				slog.InfoContext(ctx, "Skipping detected obligation",
					"source", d.Source, "id", d.ID, "name", d.Name, "reason", err)
				continue
			}
			if err != nil {
				return fmt.Errorf("fulfill %s %d: %w", d.Source, d.ID, err)
			}
			committed = append(committed, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	months := map[[2]int]bool{}
	for _, r := range committed {
		months[[2]int{r.CycleMonth, r.CycleYear}] = true
	}
	for my := range months {
		if _, err := e.reconciler.RecomputeMonth(ctx, my[0], my[1]); err != nil {
			slog.ErrorContext(ctx, "Failed to refresh summary after catch-up",
				"month", my[0], "year", my[1], "error", err)
		}
	}

	if len(committed) > 0 {
		msg := events.NewMessage(events.KindOverdueDetected)
		for _, r := range committed {
			msg.Names = append(msg.Names, r.Name)
		}
		publish(ctx, e.publisher, msg)
	}

	return committed, nil
}

// UndoLast pops the most recent undo entry and exactly reverses it: the
// history row is deleted and the prior state restored. Single-step; there
// is no redo.
func (e *FulfillmentEngine) UndoLast(ctx context.Context) (core.UndoEntry, error) {
	var entry core.UndoEntry
	err := e.store.WithTx(ctx, func(q *storage.Queries) error {
		var err error
		entry, err = q.LatestUndo(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrNothingToUndo
		}
		if err != nil {
			return fmt.Errorf("read undo log: %w", err)
		}

		if err := q.DeleteHistory(ctx, entry.HistoryID); err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("delete history row: %w", err)
		}

		switch entry.Source {
		case core.SourceRecurring:
			err = q.SetPaymentLastFulfilled(ctx, entry.ObligationID, entry.OldLastFulfilled)
		case core.SourceIncome:
			err = q.SetIncomeLastFulfilled(ctx, entry.ObligationID, entry.OldLastFulfilled)
		case core.SourceOneTime:
			err = q.SetOneTimeFulfilled(ctx, entry.ObligationID, false)
		default:
			return fmt.Errorf("%w: unknown source %q in undo log", core.ErrInvalidObligation, entry.Source)
		}
		if errors.Is(err, sql.ErrNoRows) {
			// The obligation was deleted after the fulfillment; the history
			// and undo rows still go.
			slog.WarnContext(ctx, "Undo target no longer exists",
				"source", entry.Source, "id", entry.ObligationID)
		} else if err != nil {
			return fmt.Errorf("restore prior state: %w", err)
		}

		return q.DeleteUndo(ctx, entry.ID)
	})
	if err != nil {
		return core.UndoEntry{}, err
	}

	if _, err := e.reconciler.RecomputeMonth(ctx, entry.CycleMonth, entry.CycleYear); err != nil {
		slog.ErrorContext(ctx, "Failed to refresh summary after undo",
			"month", entry.CycleMonth, "year", entry.CycleYear, "error", err)
	}

	msg := events.NewMessage(events.KindFulfillmentUndone)
	msg.Source = string(entry.Source)
	msg.ObligationID = entry.ObligationID
	msg.Name = entry.Name
	msg.AmountCents = entry.Amount.Cents
	msg.Date = entry.Date.String()
	msg.Month = entry.CycleMonth
	msg.Year = entry.CycleYear
	publish(ctx, e.publisher, msg)

	return entry, nil
}

// notFound maps the driver's missing-row error to the engine taxonomy.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}
