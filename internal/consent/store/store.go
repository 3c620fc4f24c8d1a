// Package store persists consent flags keyed by (holder, verifier).
package store

import (
	"context"

	"kycgate/internal/consent/models"
	"kycgate/pkg/domain"
)

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks Store

// Store is the consent persistence port.
// Error contract: Find returns sentinel.ErrNotFound when the pair has no record.
type Store interface {
	Find(ctx context.Context, scope models.Scope) (*models.Record, error)
	// Put creates or replaces the record for its scope.
	Put(ctx context.Context, record *models.Record) error
	// ListByHolder returns the holder's records ordered by verifier.
	ListByHolder(ctx context.Context, holder domain.Identity) ([]*models.Record, error)
}
