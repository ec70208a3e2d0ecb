package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"contractrisk/internal/model"
)

// EventPublisher ships session lifecycle events to the audit pipeline.
type EventPublisher interface {
	Publish(ctx context.Context, event model.SessionEvent) error
}

// NopPublisher drops every event; used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.SessionEvent) error { return nil }

type eventEmitter struct {
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func newEventEmitter(publisher EventPublisher, logger *slog.Logger) eventEmitter {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return eventEmitter{publisher: publisher, logger: logger, now: time.Now}
}

// emit never fails the calling flow; a lost audit event is only logged.
func (e eventEmitter) emit(ctx context.Context, sessionID, kind, subject string) {
	event := model.SessionEvent{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Kind:      kind,
		Subject:   subject,
		CreatedAt: e.now().UTC(),
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.logger.Warn("publish session event failed", "kind", kind, "session_id", sessionID, "error", err)
	}
}
