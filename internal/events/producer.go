package events

import (
	"context"
	"fmt"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	TypeRunStarted   string = "openpolicy.civicdata.events.run_started"
	TypeRunFinalized string = "openpolicy.civicdata.events.run_finalized"

	eventSource  string = "openpolicy.civicdata"
	defaultTopic string = "openpolicy.civicdata.events"

	defaultPendingSize = 256
)

// Writer is the interface to be implemented by the underlying writer.
type Writer interface {
	Write(ctx context.Context, topic string, e cloudevents.Event) error
	Close(ctx context.Context) error
}

// EventProducer turns run lifecycle payloads into CloudEvents and delivers
// them to the underlying writer from a single goroutine. Undelivered events
// sit in a bounded channel so a slow writer never blocks the scheduler.
type EventProducer struct {
	pending chan cloudevents.Event
	drained chan struct{}
	writer  Writer
	topic   string
}

func NewEventProducer(w Writer, opts ...ProducerOptions) *EventProducer {
	ep := &EventProducer{
		pending: make(chan cloudevents.Event, defaultPendingSize),
		drained: make(chan struct{}),
		writer:  w,
		topic:   defaultTopic,
	}

	for _, o := range opts {
		o(ep)
	}

	go ep.run()
	return ep
}

func (ep *EventProducer) WriteRunStarted(ctx context.Context, event RunStartedEvent) error {
	return ep.enqueue(ctx, TypeRunStarted, event)
}

func (ep *EventProducer) WriteRunFinalized(ctx context.Context, event RunFinalizedEvent) error {
	return ep.enqueue(ctx, TypeRunFinalized, event)
}

func (ep *EventProducer) enqueue(ctx context.Context, eventType string, payload any) error {
	e := cloudevents.NewEvent()
	e.SetID(uuid.NewString())
	e.SetSource(eventSource)
	e.SetType(eventType)
	if err := e.SetData(cloudevents.ApplicationJSON, payload); err != nil {
		return fmt.Errorf("encoding %s: %w", eventType, err)
	}

	select {
	case ep.pending <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events, waits for the pending ones to drain and
// closes the writer. Events still pending after the grace period are lost.
func (ep *EventProducer) Close() error {
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	close(ep.pending)
	select {
	case <-ep.drained:
	case <-closeCtx.Done():
		zap.S().Named("event_producer").Warnw("closed with undelivered events", "pending", len(ep.pending))
	}

	if err := ep.writer.Close(closeCtx); err != nil {
		zap.S().Named("event_producer").Errorf("event producer closed with error: %s", err)
		return err
	}

	zap.S().Named("event_producer").Info("event producer closed")

	return nil
}

func (ep *EventProducer) run() {
	defer close(ep.drained)

	for e := range ep.pending {
		if err := ep.writer.Write(context.TODO(), ep.topic, e); err != nil {
			zap.S().Named("event_producer").Errorw("failed to send event", "error", err, "type", e.Type())
		}
	}
}
