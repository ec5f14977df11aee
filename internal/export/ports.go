// Package export defines the outbound port for monthly summary rows.
package export

import (
	"context"

	"finbook/internal/core"
)

// SummaryWriter appends one monthly summary row to an external backend.
type SummaryWriter interface {
	AppendSummary(ctx context.Context, s core.MonthlySummary) (rowRef string, err error)
}
