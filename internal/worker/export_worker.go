// Package worker bridges the event stream to the export backend.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"finbook/internal/events"
	"finbook/internal/export"
	"finbook/internal/storage"
)

// ExportWorker mirrors recomputed monthly summaries to an external
// backend. It consumes summary.updated events and re-reads the row from
// the store, so the exported figures are always the committed ones.
type ExportWorker struct {
	store  *storage.Store
	writer export.SummaryWriter
}

func NewExportWorker(store *storage.Store, writer export.SummaryWriter) *ExportWorker {
	return &ExportWorker{store: store, writer: writer}
}

// HandleMessage processes one engine event. Kinds other than
// summary.updated are acknowledged and ignored; the external notifier
// consumes those from its own queue.
func (w *ExportWorker) HandleMessage(ctx context.Context, msg *events.Message) error {
	if msg.Kind != events.KindSummaryUpdated {
		return nil
	}
	return w.exportMonth(ctx, msg.Month, msg.Year)
}

func (w *ExportWorker) exportMonth(ctx context.Context, month, year int) error {
	summary, err := w.store.Queries().GetSummary(ctx, month, year)
	if err != nil {
		return fmt.Errorf("read summary %04d-%02d: %w", year, month, err)
	}

	ref, err := w.writer.AppendSummary(ctx, summary)
	if err != nil {
		return fmt.Errorf("append summary %04d-%02d: %w", year, month, err)
	}

	slog.InfoContext(ctx, "Exported monthly summary",
		"month", month, "year", year, "row_ref", ref)
	return nil
}
