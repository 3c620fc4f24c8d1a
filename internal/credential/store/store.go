// Package store persists the current credential per holder.
package store

import (
	"context"

	"kycgate/internal/credential/models"
	"kycgate/pkg/domain"
)

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks Store

// Store is the credential persistence port.
// Error contract: FindByHolder returns sentinel.ErrNotFound when the holder has
// no credential; other failures are wrapped infrastructure errors.
type Store interface {
	FindByHolder(ctx context.Context, holder domain.Identity) (*models.Record, error)
	// Put creates or replaces the holder's record.
	Put(ctx context.Context, record *models.Record) error
}
