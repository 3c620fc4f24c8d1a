package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/google/uuid"

	"kycgate/pkg/domain"
	audit "kycgate/pkg/platform/audit"
)

// Store implements audit.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// New creates a new PostgreSQL audit store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectColumns = `
	SELECT category, timestamp, action, actor, holder, verifier,
	       decision, reason, request_id, device
	FROM audit_events`

// Append inserts an audit event into the audit_events table.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (
			id, category, timestamp, action, actor, holder, verifier,
			decision, reason, request_id, device
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		uuid.New(),
		string(event.Category),
		event.Timestamp,
		event.Action,
		event.Actor.String(),
		event.Holder.String(),
		event.Verifier.String(),
		event.Decision,
		event.Reason,
		event.RequestID,
		event.Device,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByHolder returns events for a holder, newest first.
func (s *Store) ListByHolder(ctx context.Context, holder domain.Identity) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		WHERE holder = $1
		ORDER BY timestamp DESC
	`, holder.String())
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListRecent returns the N most recent events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`
		ORDER BY timestamp DESC
		LIMIT $1
	`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// clampLimit keeps LIMIT inside the int4 range postgres accepts.
func clampLimit(limit int) int {
	if limit <= 0 || limit > math.MaxInt32 {
		return math.MaxInt32
	}
	return limit
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event                   audit.Event
			category                string
			actor, holder, verifier string
		)
		if err := rows.Scan(
			&category,
			&event.Timestamp,
			&event.Action,
			&actor,
			&holder,
			&verifier,
			&event.Decision,
			&event.Reason,
			&event.RequestID,
			&event.Device,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Category = audit.EventCategory(category)
		event.Actor = domain.Identity(actor)
		event.Holder = domain.Identity(holder)
		event.Verifier = domain.Identity(verifier)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
