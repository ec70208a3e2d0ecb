package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"contractrisk/internal/model"
	"contractrisk/internal/platform/rabbitmq"
)

// EventStore is where consumed session events end up.
type EventStore interface {
	Create(ctx context.Context, event *model.SessionEvent) error
}

// SessionEventWorker drains the session event queue into the audit table.
type SessionEventWorker struct {
	conn      *amqp.Connection
	store     EventStore
	queueName string
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSessionEventWorker(conn *amqp.Connection, store EventStore, queueName string, logger *slog.Logger) *SessionEventWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionEventWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
		logger:    logger,
	}
}

func (w *SessionEventWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					w.logger.Error("session event dropped", "error", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *SessionEventWorker) handle(ctx context.Context, body []byte) error {
	var event model.SessionEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("decode session event failed: %w", err)
	}
	if event.ID == "" || event.SessionID == "" || event.Kind == "" {
		return fmt.Errorf("session event %q is incomplete", event.ID)
	}
	return w.store.Create(ctx, &event)
}

func (w *SessionEventWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
