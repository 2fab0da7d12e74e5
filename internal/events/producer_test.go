package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("producer", Ordered, func() {
	Context("write", func() {
		It("delivers typed events in order", func() {
			w := newTestWriter()
			ep := NewEventProducer(w)

			err := ep.WriteRunStarted(context.TODO(), RunStartedEvent{
				RunID:     "run-1",
				TaskID:    "task-1",
				JobKind:   "federal_bills",
				StartedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			})
			Expect(err).To(BeNil())

			err = ep.WriteRunFinalized(context.TODO(), RunFinalizedEvent{
				RunID:          "run-1",
				TaskID:         "task-1",
				JobKind:        "federal_bills",
				Status:         "completed",
				RecordsCreated: 3,
			})
			Expect(err).To(BeNil())

			Eventually(w.Count).Should(Equal(2))

			messages := w.Events()
			Expect(messages[0].Context.GetType()).To(Equal(TypeRunStarted))
			Expect(messages[1].Context.GetType()).To(Equal(TypeRunFinalized))

			var started RunStartedEvent
			Expect(json.Unmarshal(messages[0].Data(), &started)).To(Succeed())
			Expect(started.RunID).To(Equal("run-1"))
			Expect(started.JobKind).To(Equal("federal_bills"))

			var finalized RunFinalizedEvent
			Expect(json.Unmarshal(messages[1].Data(), &finalized)).To(Succeed())
			Expect(finalized.Status).To(Equal("completed"))
			Expect(finalized.RecordsCreated).To(Equal(3))

			ep.Close()
		})

		It("routes events to the configured topic", func() {
			w := newTestWriter()
			ep := NewEventProducer(w, WithOutputTopic("civicdata.test"))

			Expect(ep.WriteRunStarted(context.TODO(), RunStartedEvent{RunID: "run-2"})).To(Succeed())

			Eventually(w.Count).Should(Equal(1))
			Expect(w.Topics()).To(ConsistOf("civicdata.test"))

			ep.Close()
		})
	})
})

type testwriter struct {
	lock     sync.Mutex
	messages []cloudevents.Event
	topics   []string
}

func newTestWriter() *testwriter {
	return &testwriter{messages: []cloudevents.Event{}}
}

func (t *testwriter) Write(ctx context.Context, topic string, e cloudevents.Event) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.messages = append(t.messages, e)
	t.topics = append(t.topics, topic)
	return nil
}

func (t *testwriter) Close(_ context.Context) error {
	return nil
}

func (t *testwriter) Count() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.messages)
}

func (t *testwriter) Events() []cloudevents.Event {
	t.lock.Lock()
	defer t.lock.Unlock()
	return append([]cloudevents.Event{}, t.messages...)
}

func (t *testwriter) Topics() []string {
	t.lock.Lock()
	defer t.lock.Unlock()
	return append([]string{}, t.topics...)
}
