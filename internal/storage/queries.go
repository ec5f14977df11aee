package storage

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"finbook/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every query can run
// inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func nullDate(d core.Date) any {
	if d.IsEmpty() {
		return nil
	}
	return d.String()
}

// parseDate tolerates the date-time strings older rows may carry by
// keeping only the date part. A value that cannot be parsed at all is
// reported and treated as unset; one bad row must not sink a batch.
func parseDate(ns sql.NullString) core.Date {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return core.Date{}
	}
	s := strings.Fields(ns.String)[0]
	d, err := core.ParseDate(s)
	if err != nil {
		slog.Warn("Skipping unparseable stored date", "value", ns.String, "error", err)
		return core.Date{}
	}
	return d
}

func nullPeriod(p core.PayPeriod) any {
	if months, finite := p.Months(); finite {
		return months
	}
	return nil
}

func parsePeriod(ni sql.NullInt64) (core.PayPeriod, error) {
	// NULL and the legacy -1 sentinel both mean infinite.
	if !ni.Valid || ni.Int64 == -1 {
		return core.InfinitePeriod(), nil
	}
	return core.FinitePeriod(int(ni.Int64))
}

// --- recurring payments ---

const paymentColumns = `id, name, amount_cents, anchor_day, kind,
	last_fulfilled_date, pay_period_months, period_start_date,
	pending_deletion, active`

func (q *Queries) scanPayment(row interface{ Scan(...any) error }) (core.RecurringPayment, error) {
	var (
		p           core.RecurringPayment
		kind        string
		lastDate    sql.NullString
		periodM     sql.NullInt64
		periodStart sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &p.Amount.Cents, &p.AnchorDay, &kind,
		&lastDate, &periodM, &periodStart, &p.PendingDeletion, &p.Active)
	if err != nil {
		return core.RecurringPayment{}, err
	}
	p.Kind = core.ObligationKind(kind)
	p.LastFulfilled = parseDate(lastDate)
	if p.Period, err = parsePeriod(periodM); err != nil {
		return core.RecurringPayment{}, err
	}
	p.PeriodStart = parseDate(periodStart)
	return p, nil
}

func (q *Queries) CreatePayment(ctx context.Context, p core.RecurringPayment) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO recurring_payments
			(name, amount_cents, anchor_day, kind, last_fulfilled_date,
			 pay_period_months, period_start_date, pending_deletion, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Amount.Cents, p.AnchorDay, string(p.Kind),
		nullDate(p.LastFulfilled), nullPeriod(p.Period), nullDate(p.PeriodStart),
		p.PendingDeletion, p.Active)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (q *Queries) GetPayment(ctx context.Context, id int64) (core.RecurringPayment, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM recurring_payments WHERE id = ?`, id)
	return q.scanPayment(row)
}

func (q *Queries) ListPayments(ctx context.Context) ([]core.RecurringPayment, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM recurring_payments ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.RecurringPayment
	for rows.Next() {
		p, err := q.scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (q *Queries) UpdatePayment(ctx context.Context, p core.RecurringPayment) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE recurring_payments
		SET name = ?, amount_cents = ?, anchor_day = ?, kind = ?,
		    last_fulfilled_date = ?, pay_period_months = ?,
		    period_start_date = ?, pending_deletion = ?, active = ?
		WHERE id = ?`,
		p.Name, p.Amount.Cents, p.AnchorDay, string(p.Kind),
		nullDate(p.LastFulfilled), nullPeriod(p.Period), nullDate(p.PeriodStart),
		p.PendingDeletion, p.Active, p.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (q *Queries) DeletePayment(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM recurring_payments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (q *Queries) SetPaymentLastFulfilled(ctx context.Context, id int64, d core.Date) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE recurring_payments SET last_fulfilled_date = ? WHERE id = ?`,
		nullDate(d), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (q *Queries) SetPaymentPendingDeletion(ctx context.Context, id int64, pending bool) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE recurring_payments SET pending_deletion = ? WHERE id = ?`,
		pending, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (q *Queries) DeactivatePayment(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE recurring_payments SET active = 0 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ListPaymentsPendingDeletion returns payments flagged for removal at the
// next month boundary.
func (q *Queries) ListPaymentsPendingDeletion(ctx context.Context) ([]core.RecurringPayment, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM recurring_payments
		 WHERE pending_deletion = 1 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.RecurringPayment
	for rows.Next() {
		p, err := q.scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListActiveFinitePayments returns active payments carrying a finite pay
// period, the candidates for expiry.
func (q *Queries) ListActiveFinitePayments(ctx context.Context) ([]core.RecurringPayment, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM recurring_payments
		 WHERE active = 1
		   AND pay_period_months IS NOT NULL
		   AND pay_period_months != -1
		 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.RecurringPayment
	for rows.Next() {
		p, err := q.scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- recurring income ---

func (q *Queries) scanIncome(row interface{ Scan(...any) error }) (core.RecurringIncome, error) {
	var (
		in       core.RecurringIncome
		lastDate sql.NullString
	)
	err := row.Scan(&in.ID, &in.Name, &in.Amount.Cents, &in.AnchorDay, &lastDate)
	if err != nil {
		return core.RecurringIncome{}, err
	}
	in.LastFulfilled = parseDate(lastDate)
	return in, nil
}

func (q *Queries) CreateIncome(ctx context.Context, in core.RecurringIncome) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO recurring_income (name, amount_cents, anchor_day, last_fulfilled_date)
		VALUES (?, ?, ?, ?)`,
		in.Name, in.Amount.Cents, in.AnchorDay, nullDate(in.LastFulfilled))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (q *Queries) GetIncome(ctx context.Context, id int64) (core.RecurringIncome, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, name, amount_cents, anchor_day, last_fulfilled_date
		FROM recurring_income WHERE id = ?`, id)
	return q.scanIncome(row)
}

func (q *Queries) ListIncome(ctx context.Context) ([]core.RecurringIncome, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, amount_cents, anchor_day, last_fulfilled_date
		FROM recurring_income ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.RecurringIncome
	for rows.Next() {
		in, err := q.scanIncome(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateIncome(ctx context.Context, in core.RecurringIncome) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE recurring_income
		SET name = ?, amount_cents = ?, anchor_day = ?, last_fulfilled_date = ?
		WHERE id = ?`,
		in.Name, in.Amount.Cents, in.AnchorDay, nullDate(in.LastFulfilled), in.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (q *Queries) DeleteIncome(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM recurring_income WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (q *Queries) SetIncomeLastFulfilled(ctx context.Context, id int64, d core.Date) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE recurring_income SET last_fulfilled_date = ? WHERE id = ?`,
		nullDate(d), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SumIncomeAmounts totals the scheduled amounts of all recurring income.
func (q *Queries) SumIncomeAmounts(ctx context.Context) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount_cents), 0) FROM recurring_income`).Scan(&total)
	return total, err
}

// --- one-time payments ---

func (q *Queries) scanOneTime(row interface{ Scan(...any) error }) (core.OneTimePayment, error) {
	var (
		p   core.OneTimePayment
		due sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &p.Amount.Cents, &due, &p.Fulfilled)
	if err != nil {
		return core.OneTimePayment{}, err
	}
	p.DueDate = parseDate(due)
	return p, nil
}

func (q *Queries) CreateOneTime(ctx context.Context, p core.OneTimePayment) (int64, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO one_time_payments (name, amount_cents, due_date, fulfilled)
		VALUES (?, ?, ?, ?)`,
		p.Name, p.Amount.Cents, p.DueDate.String(), p.Fulfilled)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (q *Queries) GetOneTime(ctx context.Context, id int64) (core.OneTimePayment, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, name, amount_cents, due_date, fulfilled
		FROM one_time_payments WHERE id = ?`, id)
	return q.scanOneTime(row)
}

func (q *Queries) ListOneTime(ctx context.Context) ([]core.OneTimePayment, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, amount_cents, due_date, fulfilled
		FROM one_time_payments ORDER BY due_date, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.OneTimePayment
	for rows.Next() {
		p, err := q.scanOneTime(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListOneTimeForMonth returns one-time payments due in a calendar month.
func (q *Queries) ListOneTimeForMonth(ctx context.Context, month, year int) ([]core.OneTimePayment, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, amount_cents, due_date, fulfilled
		FROM one_time_payments
		WHERE strftime('%Y-%m', due_date) = printf('%04d-%02d', ?, ?)
		ORDER BY due_date, id`, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.OneTimePayment
	for rows.Next() {
		p, err := q.scanOneTime(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListUnfulfilledDue returns unfulfilled one-time payments whose due date
// is on or before the given day.
func (q *Queries) ListUnfulfilledDue(ctx context.Context, today core.Date) ([]core.OneTimePayment, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, amount_cents, due_date, fulfilled
		FROM one_time_payments
		WHERE fulfilled = 0 AND due_date <= ?
		ORDER BY due_date, id`, today.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.OneTimePayment
	for rows.Next() {
		p, err := q.scanOneTime(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateOneTime(ctx context.Context, p core.OneTimePayment) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE one_time_payments
		SET name = ?, amount_cents = ?, due_date = ?, fulfilled = ?
		WHERE id = ?`,
		p.Name, p.Amount.Cents, p.DueDate.String(), p.Fulfilled, p.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (q *Queries) DeleteOneTime(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM one_time_payments WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (q *Queries) SetOneTimeFulfilled(ctx context.Context, id int64, fulfilled bool) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE one_time_payments SET fulfilled = ? WHERE id = ?`, fulfilled, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// --- fulfillment history ---

func (q *Queries) InsertHistory(ctx context.Context, r core.FulfillmentRecord) (int64, error) {
	var obligationID any
	if r.ObligationID != 0 {
		obligationID = r.ObligationID
	}
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO fulfillment_history
			(obligation_id, source, name, amount_cents, fulfillment_date, cycle_month, cycle_year)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		obligationID, string(r.Source), r.Name, r.Amount.Cents,
		r.Date.String(), r.CycleMonth, r.CycleYear)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (q *Queries) DeleteHistory(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM fulfillment_history WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (q *Queries) ListHistoryForMonth(ctx context.Context, month, year int) ([]core.FulfillmentRecord, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, obligation_id, source, name, amount_cents, fulfillment_date, cycle_month, cycle_year
		FROM fulfillment_history
		WHERE cycle_month = ? AND cycle_year = ?
		ORDER BY fulfillment_date, id`, month, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.FulfillmentRecord
	for rows.Next() {
		var (
			r            core.FulfillmentRecord
			obligationID sql.NullInt64
			source       string
			date         sql.NullString
		)
		if err := rows.Scan(&r.ID, &obligationID, &source, &r.Name,
			&r.Amount.Cents, &date, &r.CycleMonth, &r.CycleYear); err != nil {
			return nil, err
		}
		r.ObligationID = obligationID.Int64
		r.Source = core.Source(source)
		r.Date = parseDate(date)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountCycleRecords counts history rows for an obligation's cycle. For
// recurring sources the cycle is (month, year).
func (q *Queries) CountCycleRecords(ctx context.Context, obligationID int64, source core.Source, month, year int) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM fulfillment_history
		WHERE obligation_id = ? AND source = ? AND cycle_month = ? AND cycle_year = ?`,
		obligationID, string(source), month, year).Scan(&n)
	return n, err
}

// CountOneTimeRecords counts history rows for a one-time payment's due date.
func (q *Queries) CountOneTimeRecords(ctx context.Context, obligationID int64, dueDate core.Date) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM fulfillment_history
		WHERE obligation_id = ? AND source = ? AND fulfillment_date = ?`,
		obligationID, string(core.SourceOneTime), dueDate.String()).Scan(&n)
	return n, err
}

// SumPaymentsForMonth totals recurring and one-time payment history for a
// cycle month.
func (q *Queries) SumPaymentsForMonth(ctx context.Context, month, year int) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM fulfillment_history
		WHERE source IN (?, ?) AND cycle_month = ? AND cycle_year = ?`,
		string(core.SourceRecurring), string(core.SourceOneTime), month, year).Scan(&total)
	return total, err
}

// SumIncomeRecordsForMonth totals realized income history for a cycle month.
func (q *Queries) SumIncomeRecordsForMonth(ctx context.Context, month, year int) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM fulfillment_history
		WHERE source = ? AND cycle_month = ? AND cycle_year = ?`,
		string(core.SourceIncome), month, year).Scan(&total)
	return total, err
}

// --- undo log ---

func (q *Queries) PushUndo(ctx context.Context, e core.UndoEntry) (int64, error) {
	var obligationID any
	if e.ObligationID != 0 {
		obligationID = e.ObligationID
	}
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO undo_log
			(history_id, obligation_id, source, name, amount_cents,
			 fulfillment_date, cycle_month, cycle_year, old_last_fulfilled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.HistoryID, obligationID, string(e.Source), e.Name, e.Amount.Cents,
		e.Date.String(), e.CycleMonth, e.CycleYear, nullDate(e.OldLastFulfilled))
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// TrimUndo evicts oldest entries until at most capacity remain.
func (q *Queries) TrimUndo(ctx context.Context, capacity int) error {
	_, err := q.db.ExecContext(ctx, `
		DELETE FROM undo_log WHERE id NOT IN (
			SELECT id FROM undo_log ORDER BY id DESC LIMIT ?
		)`, capacity)
	return err
}

// LatestUndo returns the most recent entry, or sql.ErrNoRows.
func (q *Queries) LatestUndo(ctx context.Context) (core.UndoEntry, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, history_id, obligation_id, source, name, amount_cents,
		       fulfillment_date, cycle_month, cycle_year, old_last_fulfilled
		FROM undo_log ORDER BY id DESC LIMIT 1`)

	var (
		e            core.UndoEntry
		obligationID sql.NullInt64
		source       string
		date         sql.NullString
		oldDate      sql.NullString
	)
	err := row.Scan(&e.ID, &e.HistoryID, &obligationID, &source, &e.Name,
		&e.Amount.Cents, &date, &e.CycleMonth, &e.CycleYear, &oldDate)
	if err != nil {
		return core.UndoEntry{}, err
	}
	e.ObligationID = obligationID.Int64
	e.Source = core.Source(source)
	e.Date = parseDate(date)
	e.OldLastFulfilled = parseDate(oldDate)
	return e, nil
}

func (q *Queries) DeleteUndo(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM undo_log WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (q *Queries) CountUndo(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM undo_log`).Scan(&n)
	return n, err
}

// --- monthly summary ---

// GetSummary returns the summary row for (month, year), or sql.ErrNoRows.
func (q *Queries) GetSummary(ctx context.Context, month, year int) (core.MonthlySummary, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT month, year, total_payments_cents, total_income_cents,
		       savings_cents, net_savings_cents, updated_at
		FROM monthly_summary WHERE month = ? AND year = ?`, month, year)

	var s core.MonthlySummary
	err := row.Scan(&s.Month, &s.Year, &s.TotalPayments.Cents,
		&s.TotalIncome.Cents, &s.Savings.Cents, &s.NetSavings.Cents, &s.UpdatedAt)
	if err != nil {
		return core.MonthlySummary{}, err
	}
	return s, nil
}

// UpsertSummary writes the full summary row, refreshing its timestamp.
func (q *Queries) UpsertSummary(ctx context.Context, s core.MonthlySummary) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO monthly_summary
			(month, year, total_payments_cents, total_income_cents,
			 savings_cents, net_savings_cents, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (month, year) DO UPDATE SET
			total_payments_cents = excluded.total_payments_cents,
			total_income_cents = excluded.total_income_cents,
			savings_cents = excluded.savings_cents,
			net_savings_cents = excluded.net_savings_cents,
			updated_at = CURRENT_TIMESTAMP`,
		s.Month, s.Year, s.TotalPayments.Cents, s.TotalIncome.Cents,
		s.Savings.Cents, s.NetSavings.Cents)
	return err
}

// SetSavings writes only the user-entered savings amount, creating the
// summary row if needed.
func (q *Queries) SetSavings(ctx context.Context, month, year int, savings core.Money) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO monthly_summary (month, year, savings_cents, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (month, year) DO UPDATE SET
			savings_cents = excluded.savings_cents,
			updated_at = CURRENT_TIMESTAMP`,
		month, year, savings.Cents)
	return err
}

// --- app settings ---

// GetSetting returns the value for key, or sql.ErrNoRows.
func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := q.db.QueryRowContext(ctx,
		`SELECT value FROM app_settings WHERE key = ?`, key).Scan(&value)
	return value, err
}

func (q *Queries) SetSetting(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO app_settings (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP`,
		key, value)
	return err
}

// requireRow maps zero affected rows to sql.ErrNoRows so callers can
// translate unknown ids to core.ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
