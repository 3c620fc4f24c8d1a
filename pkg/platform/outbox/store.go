package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Appender is the only journal capability a ledger transaction needs.
type Appender interface {
	// Append assigns entry.Seq and stores it.
	Append(ctx context.Context, entry *Entry) error
}

// Store is the relay's view of the journal. Implementations are safe for
// concurrent use.
type Store interface {
	Appender

	// FetchUnprocessed returns at most limit pending entries in append order.
	FetchUnprocessed(ctx context.Context, limit int) ([]*Entry, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error
	CountPending(ctx context.Context) (int64, error)
	// DeleteProcessedBefore prunes relayed entries; pending ones are never removed.
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
