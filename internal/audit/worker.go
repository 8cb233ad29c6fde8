package audit

import (
	"context"
	"time"
)

// Worker drains audit events from an inbox channel into the store, keeping
// persistence off the path that received the event.
type Worker struct {
	store Store
	inbox <-chan Event
}

func NewWorker(store Store, inbox <-chan Event) *Worker {
	return &Worker{store: store, inbox: inbox}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				return err
			}
		}
	}
}

// QueuedPublisher hands events to a Worker's inbox instead of writing the
// store directly. Emit blocks when the inbox is full: the caller is a Kafka
// consumer whose offset must not advance past an undelivered event.
type QueuedPublisher struct {
	inbox chan<- Event
}

func NewQueuedPublisher(inbox chan<- Event) *QueuedPublisher {
	return &QueuedPublisher{inbox: inbox}
}

func (p *QueuedPublisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
