package core

import "time"

// MonthlySummary is the reconciled aggregate for one calendar month.
// Savings is user-entered and never recomputed; NetSavings is derived as
// TotalIncome - TotalPayments - Savings.
type MonthlySummary struct {
	Month         int
	Year          int
	TotalPayments Money
	TotalIncome   Money
	Savings       Money
	NetSavings    Money
	UpdatedAt     time.Time
}

// DayTotal carries the scheduled flows for one calendar day plus the
// cumulative figures from day 1 through that day, inclusive.
type DayTotal struct {
	Day             int
	Outgoing        Money
	Incoming        Money
	RunningOutgoing Money
	RunningIncoming Money
	RunningNet      Money
}
