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

// ReconciliationEngine recomputes monthly aggregates from fulfillment
// history and the schedule.
type ReconciliationEngine struct {
	store     *storage.Store
	publisher Publisher
	now       func() time.Time
}

func NewReconciliationEngine(store *storage.Store, publisher Publisher) *ReconciliationEngine {
	return &ReconciliationEngine{
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
}

// RecomputeMonth rebuilds the summary row for (month, year) and upserts it.
//
// Total payments always come from history. Income is asymmetric on
// purpose: the current calendar month forecasts the full scheduled
// recurring income, while any other month reports only income actually
// recorded. The user-entered savings amount is read back, never derived.
func (e *ReconciliationEngine) RecomputeMonth(ctx context.Context, month, year int) (core.MonthlySummary, error) {
	today := core.DateOf(e.now())
	isCurrentMonth := month == today.Month() && year == today.Year()

	var summary core.MonthlySummary
	err := e.store.WithTx(ctx, func(q *storage.Queries) error {
		payments, err := q.SumPaymentsForMonth(ctx, month, year)
		if err != nil {
			return fmt.Errorf("sum payments: %w", err)
		}

		var income int64
		if isCurrentMonth {
			income, err = q.SumIncomeAmounts(ctx)
		} else {
			income, err = q.SumIncomeRecordsForMonth(ctx, month, year)
		}
		if err != nil {
			return fmt.Errorf("sum income: %w", err)
		}

		var savings int64
		if existing, err := q.GetSummary(ctx, month, year); err == nil {
			savings = existing.Savings.Cents
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("read savings: %w", err)
		}

		summary = core.MonthlySummary{
			Month:         month,
			Year:          year,
			TotalPayments: core.Money{Cents: payments},
			TotalIncome:   core.Money{Cents: income},
			Savings:       core.Money{Cents: savings},
			NetSavings:    core.Money{Cents: income - payments - savings},
		}
		return q.UpsertSummary(ctx, summary)
	})
	if err != nil {
		return core.MonthlySummary{}, err
	}

	slog.InfoContext(ctx, "Monthly summary recomputed",
		"month", month, "year", year,
		"total_payments_cents", summary.TotalPayments.Cents,
		"total_income_cents", summary.TotalIncome.Cents,
		"forecast", isCurrentMonth)

	msg := events.NewMessage(events.KindSummaryUpdated)
	msg.Month = month
	msg.Year = year
	publish(ctx, e.publisher, msg)

	return summary, nil
}

// GetMonth returns the stored summary after refreshing it.
func (e *ReconciliationEngine) GetMonth(ctx context.Context, month, year int) (core.MonthlySummary, error) {
	if _, err := e.RecomputeMonth(ctx, month, year); err != nil {
		return core.MonthlySummary{}, err
	}
	return e.store.Queries().GetSummary(ctx, month, year)
}

// SetSavingsAmount stores the user-entered savings figure for a month and
// refreshes the derived net savings.
func (e *ReconciliationEngine) SetSavingsAmount(ctx context.Context, month, year int, amount core.Money) (core.MonthlySummary, error) {
	if amount.Cents < 0 {
		return core.MonthlySummary{}, core.ErrInvalidAmount
	}
	err := e.store.WithTx(ctx, func(q *storage.Queries) error {
		return q.SetSavings(ctx, month, year, amount)
	})
	if err != nil {
		return core.MonthlySummary{}, fmt.Errorf("set savings: %w", err)
	}
	return e.RecomputeMonth(ctx, month, year)
}

// DailyTotals computes, for each calendar day of (month, year), the
// scheduled outgoing and incoming flows plus running cumulative figures
// from day 1. Inactive payments are excluded; income and one-time dues are
// placed on their clamped cycle date.
func (e *ReconciliationEngine) DailyTotals(ctx context.Context, month, year int) ([]core.DayTotal, error) {
	q := e.store.Queries()

	payments, err := q.ListPayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	oneTime, err := q.ListOneTimeForMonth(ctx, month, year)
	if err != nil {
		return nil, fmt.Errorf("list one-time payments: %w", err)
	}
	income, err := q.ListIncome(ctx)
	if err != nil {
		return nil, fmt.Errorf("list income: %w", err)
	}

	lastDay := core.LastDayOfMonth(month, year)
	outgoing := make([]int64, lastDay+1)
	incoming := make([]int64, lastDay+1)

	for _, p := range payments {
		if !p.Active {
			continue
		}
		day := core.CycleDate(p.AnchorDay, month, year).Day()
		outgoing[day] += p.Amount.Cents
	}
	for _, p := range oneTime {
		if p.DueDate.IsEmpty() {
			slog.WarnContext(ctx, "Skipping one-time payment without a usable due date",
				"id", p.ID, "name", p.Name)
			continue
		}
		outgoing[p.DueDate.Day()] += p.Amount.Cents
	}
	for _, in := range income {
		day := core.CycleDate(in.AnchorDay, month, year).Day()
		incoming[day] += in.Amount.Cents
	}

	totals := make([]core.DayTotal, 0, lastDay)
	var runOut, runIn int64
	for day := 1; day <= lastDay; day++ {
		runOut += outgoing[day]
		runIn += incoming[day]
		totals = append(totals, core.DayTotal{
			Day:             day,
			Outgoing:        core.Money{Cents: outgoing[day]},
			Incoming:        core.Money{Cents: incoming[day]},
			RunningOutgoing: core.Money{Cents: runOut},
			RunningIncoming: core.Money{Cents: runIn},
			RunningNet:      core.Money{Cents: runIn - runOut},
		})
	}
	return totals, nil
}
