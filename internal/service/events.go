// Package service coordinates the engine with the durable stores, the
// caches, and the signal bus. The engine commits first and is authoritative;
// everything after it is bookkeeping, logged and retried rather than rolled
// back.
package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/easybet/easybet/internal/domain"
)

// eventStream is the durable stream every event is appended to, in addition
// to its pub/sub channel. Consumers replay it with StreamRead.
const eventStream = "stream:events"

// publish fans an event out on its pub/sub channel and appends it to the
// durable stream. Bus failures never fail the operation that produced the
// event.
func publish(ctx context.Context, bus domain.SignalBus, logger *slog.Logger, channel string, evt domain.Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		logger.WarnContext(ctx, "service: marshal event failed",
			slog.String("type", string(evt.Type)),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := bus.Publish(ctx, channel, payload); err != nil {
		logger.WarnContext(ctx, "service: publish event failed",
			slog.String("channel", channel),
			slog.String("type", string(evt.Type)),
			slog.String("error", err.Error()),
		)
	}
	if err := bus.StreamAppend(ctx, eventStream, payload); err != nil {
		logger.WarnContext(ctx, "service: stream append failed",
			slog.String("type", string(evt.Type)),
			slog.String("error", err.Error()),
		)
	}
}

// auditLog writes an audit entry, logging instead of failing on error.
func auditLog(ctx context.Context, audit domain.AuditStore, logger *slog.Logger, event string, detail map[string]any) {
	if err := audit.Log(ctx, event, detail); err != nil {
		logger.WarnContext(ctx, "service: audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
