package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeExchangeCompleted is emitted after an answered query is
	// persisted.
	EventTypeExchangeCompleted = "pitch.exchange.completed"

	// EventTypeIngestCompleted is emitted after an ingest run is persisted.
	EventTypeIngestCompleted = "pitch.ingest.completed"
)

// Event is a transport-neutral envelope. Exactly one of Exchange and Ingest
// is set, matching EventType.
type Event struct {
	SchemaVersion int            `json:"schema_version"`
	EventType     string         `json:"event_type"`
	EventID       string         `json:"event_id"`
	EmittedAt     time.Time      `json:"emitted_at"`
	SessionID     string         `json:"session_id"`
	Source        EventSource    `json:"source"`
	Exchange      *ExchangeEvent `json:"exchange,omitempty"`
	Ingest        *IngestEvent   `json:"ingest,omitempty"`
}

// EventSource identifies the emitting service.
type EventSource struct {
	Service  string `json:"service"`
	Provider string `json:"provider,omitempty"`
	Model    string `json:"model,omitempty"`
}

// ExchangeEvent describes a completed exchange.
type ExchangeEvent struct {
	ExchangeID string   `json:"exchange_id"`
	Query      string   `json:"query"`
	Answer     string   `json:"answer"`
	ContextIDs []string `json:"context_ids,omitempty"`
	Degraded   bool     `json:"degraded,omitempty"`
	DurationMs int64    `json:"duration_ms"`
}

// IngestEvent describes a completed ingest run.
type IngestEvent struct {
	RunID           string `json:"run_id"`
	Source          string `json:"source,omitempty"`
	Rows            int    `json:"rows"`
	ChunksCreated   int    `json:"chunks_created"`
	RecordsUpserted int    `json:"records_upserted"`
	Failures        int    `json:"failures"`
}

// NewEvent fills the envelope fields.
func NewEvent(eventType, sessionID string, source EventSource) *Event {
	return &Event{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		SessionID:     sessionID,
		Source:        source,
	}
}
