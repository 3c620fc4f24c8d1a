package outbox

import (
	"time"

	"github.com/google/uuid"
)

// AggregateHolder is the only aggregate the ledger journals. Keying records
// by holder keeps one holder's transitions on one partition, in order.
const AggregateHolder = "holder"

// Entry is one ledger transition awaiting relay. It is written in the same
// transaction as the transition itself.
//
// Seq is assigned by the store on append, under the holder's ledger lock, so
// it follows admission order. Relay order is Seq order; CreatedAt is the
// request time and may run backwards between two admitted calls.
type Entry struct {
	ID            uuid.UUID
	Seq           int64
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	ProcessedAt   *time.Time
}

func (e *Entry) IsPending() bool { return e.ProcessedAt == nil }

func NewEntry(aggregateType, aggregateID, eventType string, payload []byte, createdAt time.Time) *Entry {
	return &Entry{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     createdAt,
	}
}
