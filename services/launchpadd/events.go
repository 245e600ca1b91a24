package main

import (
	"log/slog"

	"launchpad/core/events"
)

// eventLog writes committed events to the service log at debug level.
type eventLog struct {
	logger *slog.Logger
}

func (l eventLog) Emit(evt events.Event) {
	payload := events.Canonical(evt)
	if payload == nil || l.logger == nil {
		return
	}
	attrs := []any{slog.String("type", payload.Type)}
	if sale, ok := payload.Attributes["saleId"]; ok {
		attrs = append(attrs, slog.String("sale", sale))
	}
	l.logger.Debug("event committed", attrs...)
}

// committedEvents fans events out to the live stream and the service log.
func committedEvents(stream *events.Broadcaster, logger *slog.Logger) events.Emitter {
	return events.Multi{stream, eventLog{logger: logger}}
}
