package eventstream_test

import (
	"encoding/json"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pitch/pkg/eventstream"
)

var _ = Describe("Event", func() {
	It("marshals an exchange event with expected top-level keys", func() {
		event := eventstream.NewEvent(eventstream.EventTypeExchangeCompleted, "s-1", eventstream.EventSource{
			Service:  "pitch",
			Provider: "groq",
			Model:    "llama-3.1-70b-versatile",
		})
		event.Exchange = &eventstream.ExchangeEvent{
			ExchangeID: "ex-1",
			Query:      "top product line?",
			Answer:     "Food and beverages.",
			ContextIDs: []string{"chunk-1"},
			DurationMs: 420,
		}

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("session_id"))
		Expect(got).To(HaveKey("source"))
		Expect(got).To(HaveKey("exchange"))
		Expect(got).NotTo(HaveKey("ingest"))
	})

	It("fills the envelope", func() {
		event := eventstream.NewEvent(eventstream.EventTypeIngestCompleted, "s-2", eventstream.EventSource{Service: "pitch"})
		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(strings.HasPrefix(event.EventID, "evt_")).To(BeTrue())
		Expect(event.EmittedAt).NotTo(BeZero())
		Expect(event.SessionID).To(Equal("s-2"))
	})

	It("defines stable event constants", func() {
		Expect(eventstream.EventTypeExchangeCompleted).To(Equal("pitch.exchange.completed"))
		Expect(eventstream.EventTypeIngestCompleted).To(Equal("pitch.ingest.completed"))
		Expect(eventstream.ErrNilEvent).To(MatchError("nil event"))
	})
})
