package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kycgate/internal/consent/models"
	"kycgate/internal/platform/database"
	"kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

// PostgresStore persists consent records in PostgreSQL.
type PostgresStore struct {
	db database.DBTX
}

// NewPostgres binds the store to a pool or a transaction.
func NewPostgres(db database.DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Find(ctx context.Context, scope models.Scope) (*models.Record, error) {
	record := models.Record{Holder: scope.Holder, Verifier: scope.Verifier}
	err := s.db.QueryRowContext(ctx, `
		SELECT granted, updated_at
		FROM consents
		WHERE holder = $1 AND verifier = $2
	`, scope.Holder.String(), scope.Verifier.String()).Scan(&record.Granted, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find consent: %w", err)
	}
	return &record, nil
}

func (s *PostgresStore) Put(ctx context.Context, record *models.Record) error {
	if record == nil || record.Holder.IsNil() || record.Verifier.IsNil() {
		return fmt.Errorf("put consent: %w", sentinel.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO consents (holder, verifier, granted, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (holder, verifier) DO UPDATE
		SET granted = EXCLUDED.granted, updated_at = EXCLUDED.updated_at
	`, record.Holder.String(), record.Verifier.String(), record.Granted, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put consent: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByHolder(ctx context.Context, holder domain.Identity) ([]*models.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT verifier, granted, updated_at
		FROM consents
		WHERE holder = $1
		ORDER BY verifier
	`, holder.String())
	if err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		var (
			verifier string
			record   = models.Record{Holder: holder}
		)
		if err := rows.Scan(&verifier, &record.Granted, &record.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		record.Verifier = domain.Identity(verifier)
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consents: %w", err)
	}
	return records, nil
}
