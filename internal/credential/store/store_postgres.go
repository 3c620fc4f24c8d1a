package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kycgate/internal/credential/models"
	"kycgate/internal/platform/database"
	"kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

// PostgresStore persists credential records in PostgreSQL.
type PostgresStore struct {
	db database.DBTX
}

// NewPostgres binds the store to a pool or a transaction.
func NewPostgres(db database.DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByHolder(ctx context.Context, holder domain.Identity) (*models.Record, error) {
	var (
		rawDigest []byte
		issuer    string
		record    = models.Record{Holder: holder}
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT digest, issuer, issued_at
		FROM credentials
		WHERE holder = $1
	`, holder.String()).Scan(&rawDigest, &issuer, &record.IssuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	digest, err := domain.DigestFromBytes(rawDigest)
	if err != nil {
		return nil, fmt.Errorf("stored digest for %s: %w", holder, sentinel.ErrInvalidState)
	}
	record.Digest = digest
	record.Issuer = domain.Identity(issuer)
	return &record, nil
}

func (s *PostgresStore) Put(ctx context.Context, record *models.Record) error {
	if record == nil || record.Holder.IsNil() {
		return fmt.Errorf("put credential: %w", sentinel.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (holder, digest, issuer, issued_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (holder) DO UPDATE
		SET digest = EXCLUDED.digest, issuer = EXCLUDED.issuer, issued_at = EXCLUDED.issued_at
	`, record.Holder.String(), record.Digest.Bytes(), record.Issuer.String(), record.IssuedAt)
	if err != nil {
		return fmt.Errorf("put credential: %w", err)
	}
	return nil
}
