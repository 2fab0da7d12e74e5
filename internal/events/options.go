package events

import cloudevents "github.com/cloudevents/sdk-go/v2"

type ProducerOptions func(e *EventProducer)

func WithOutputTopic(topic string) ProducerOptions {
	return func(e *EventProducer) {
		e.topic = topic
	}
}

// WithPendingSize bounds how many undelivered events may queue up before
// writes start blocking on the writer.
func WithPendingSize(n int) ProducerOptions {
	return func(e *EventProducer) {
		e.pending = make(chan cloudevents.Event, n)
	}
}
