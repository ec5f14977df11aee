// Package services implements the engine's business logic: lifecycle
// checks, fulfillment, undo and monthly reconciliation. All durable state
// lives in storage; services hold none of their own.
package services

import (
	"context"
	"log/slog"

	"finbook/internal/events"
)

// Publisher is the outbound event hook. *events.Client satisfies it; a nil
// publisher disables the stream.
type Publisher interface {
	Publish(ctx context.Context, msg *events.Message) error
}

// publish sends an event best-effort. Operations never fail because the
// broker is down.
func publish(ctx context.Context, p Publisher, msg *events.Message) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, msg); err != nil {
		slog.WarnContext(ctx, "Failed to publish engine event",
			"kind", msg.Kind, "error", err)
	}
}
