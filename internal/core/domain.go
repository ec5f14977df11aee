package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	KindDebit  ObligationKind = "debit"
	KindCredit ObligationKind = "credit"
)

const (
	SourceRecurring Source = "recurring"
	SourceOneTime   Source = "one_time"
	SourceIncome    Source = "income"
)

type (
	// ObligationKind distinguishes how a recurring payment is drawn.
	// Both kinds are money going out; the split exists for tracking only.
	ObligationKind string

	// Source identifies which kind of obligation a fulfillment record
	// came from.
	Source string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// PayPeriod is the span a recurring payment stays active.
	// The zero value is infinite; a finite period is at least one month.
	PayPeriod struct {
		months int
	}

	// RecurringPayment is a scheduled outgoing obligation anchored to a
	// day of the month.
	RecurringPayment struct {
		ID              int64
		Name            string
		Amount          Money
		AnchorDay       int
		Kind            ObligationKind
		LastFulfilled   Date // zero when never paid
		Period          PayPeriod
		PeriodStart     Date // set whenever Period is finite
		PendingDeletion bool
		Active          bool
	}

	// RecurringIncome is a scheduled incoming obligation. Income has no
	// kind, pay period or active flag.
	RecurringIncome struct {
		ID            int64
		Name          string
		Amount        Money
		AnchorDay     int
		LastFulfilled Date
	}

	// OneTimePayment is due exactly once on a fixed date.
	OneTimePayment struct {
		ID        int64
		Name      string
		Amount    Money
		DueDate   Date
		Fulfilled bool
	}

	// FulfillmentRecord is one history row. ObligationID is zero when the
	// originating obligation has since been deleted.
	FulfillmentRecord struct {
		ID           int64
		ObligationID int64
		Source       Source
		Name         string
		Amount       Money
		Date         Date
		CycleMonth   int
		CycleYear    int
	}

	// UndoEntry captures everything needed to exactly reverse one
	// fulfillment: the history row it produced and the prior state.
	UndoEntry struct {
		ID               int64
		HistoryID        int64
		ObligationID     int64
		Source           Source
		Name             string
		Amount           Money
		Date             Date
		CycleMonth       int
		CycleYear        int
		OldLastFulfilled Date // zero when the obligation had never been fulfilled
	}
)

var (
	ErrNotFound          = errors.New("obligation not found")
	ErrAlreadyFulfilled  = errors.New("cycle already fulfilled")
	ErrNothingToUndo     = errors.New("nothing to undo")
	ErrInvalidObligation = errors.New("invalid obligation")

	ErrInvalidAmount    = fmt.Errorf("%w: amount must be positive", ErrInvalidObligation)
	ErrInvalidAnchorDay = fmt.Errorf("%w: anchor day must be between 1 and 31", ErrInvalidObligation)
	ErrInvalidPayPeriod = fmt.Errorf("%w: pay period must be at least one month", ErrInvalidObligation)
	ErrEmptyName        = fmt.Errorf("%w: empty name", ErrInvalidObligation)
	ErrInvalidDueDate   = fmt.Errorf("%w: missing due date", ErrInvalidObligation)
)

// NewDate creates a Date from year, month, day at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month as an int.
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

// IsEmpty reports whether the date is unset.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (d Date) String() string {
	return d.Format("2006-01-02")
}

// SameMonth reports whether both dates fall in the same calendar month.
func (d Date) SameMonth(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month()
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// InfinitePeriod returns the open-ended pay period.
func InfinitePeriod() PayPeriod {
	return PayPeriod{}
}

// FinitePeriod returns a pay period of the given number of months.
func FinitePeriod(months int) (PayPeriod, error) {
	if months < 1 {
		return PayPeriod{}, ErrInvalidPayPeriod
	}
	return PayPeriod{months: months}, nil
}

// IsInfinite reports whether the period never expires.
func (p PayPeriod) IsInfinite() bool {
	return p.months == 0
}

// Months returns the finite length, or false for an infinite period.
func (p PayPeriod) Months() (int, bool) {
	if p.months == 0 {
		return 0, false
	}
	return p.months, true
}

func (p RecurringPayment) Validate() error {
	if len(strings.TrimSpace(p.Name)) == 0 {
		return ErrEmptyName
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if p.AnchorDay < 1 || p.AnchorDay > 31 {
		return ErrInvalidAnchorDay
	}
	switch p.Kind {
	case KindDebit, KindCredit:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidObligation, p.Kind)
	}
	if _, finite := p.Period.Months(); finite && p.PeriodStart.IsEmpty() {
		return fmt.Errorf("%w: finite pay period without a start date", ErrInvalidObligation)
	}
	return nil
}

func (in RecurringIncome) Validate() error {
	if len(strings.TrimSpace(in.Name)) == 0 {
		return ErrEmptyName
	}
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if in.AnchorDay < 1 || in.AnchorDay > 31 {
		return ErrInvalidAnchorDay
	}
	return nil
}

func (p OneTimePayment) Validate() error {
	if len(strings.TrimSpace(p.Name)) == 0 {
		return ErrEmptyName
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if p.DueDate.IsEmpty() {
		return ErrInvalidDueDate
	}
	return nil
}
