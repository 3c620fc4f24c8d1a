//go:build integration

package ledger_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	consentmodels "kycgate/internal/consent/models"
	consentstore "kycgate/internal/consent/store"
	credmodels "kycgate/internal/credential/models"
	credstore "kycgate/internal/credential/store"
	"kycgate/internal/ledger"
	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	outboxpostgres "kycgate/pkg/platform/outbox/store/postgres"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/testutil"
	"kycgate/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	ledger   *ledger.Postgres
}

func TestPostgresLedgerSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.ledger = ledger.NewPostgres(s.postgres.DB)
}

func (s *PostgresLedgerSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateAll(context.Background()))
}

func (s *PostgresLedgerSuite) TestUpdateCommitsStateAndJournal() {
	ctx := context.Background()
	holder := testutil.TestIDs.Holder1
	now := time.Now().UTC().Truncate(time.Microsecond)

	err := s.ledger.Update(ctx, holder, func(ctx context.Context, stores ledger.Stores) error {
		if err := stores.Credentials.Put(ctx, &credmodels.Record{
			Holder: holder, Digest: testutil.DigestOf(0x42), Issuer: testutil.TestIDs.Issuer, IssuedAt: now,
		}); err != nil {
			return err
		}
		return ledger.RecordTransition(ctx, stores.Journal, holder, ledger.EventCredentialIssued,
			credmodels.Transition{Holder: holder.String()}, now)
	})
	s.Require().NoError(err)

	record, err := credstore.NewPostgres(s.postgres.DB).FindByHolder(ctx, holder)
	s.Require().NoError(err)
	s.Equal(testutil.DigestOf(0x42), record.Digest)
	s.Equal(testutil.TestIDs.Issuer, record.Issuer)

	pending, err := outboxpostgres.New(s.postgres.DB).FetchUnprocessed(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(ledger.EventCredentialIssued, pending[0].EventType)
	s.Equal(holder.String(), pending[0].AggregateID)
}

func (s *PostgresLedgerSuite) TestFailedUpdateRollsBack() {
	ctx := context.Background()
	holder := testutil.TestIDs.Holder1

	err := s.ledger.Update(ctx, holder, func(ctx context.Context, stores ledger.Stores) error {
		s.Require().NoError(stores.Consents.Put(ctx, &consentmodels.Record{
			Holder: holder, Verifier: testutil.TestIDs.Verifier1, Granted: true, UpdatedAt: time.Now(),
		}))
		return dErrors.New(dErrors.CodeUnauthorized, "abort")
	})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = consentstore.NewPostgres(s.postgres.DB).Find(ctx, consentmodels.Scope{
		Holder: holder, Verifier: testutil.TestIDs.Verifier1,
	})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresLedgerSuite) TestViewRejectsWrites() {
	ctx := context.Background()
	holder := testutil.TestIDs.Holder1
	err := s.ledger.View(ctx, holder, func(ctx context.Context, stores ledger.Stores) error {
		return stores.Credentials.Put(ctx, &credmodels.Record{
			Holder: holder, Digest: testutil.DigestOf(1), Issuer: testutil.TestIDs.Issuer, IssuedAt: time.Now(),
		})
	})
	s.Require().Error(err, "read-only transaction refuses INSERT")
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *PostgresLedgerSuite) TestAdvisoryLockSerializesWriters() {
	holder := testutil.TestIDs.Holder1
	const writers = 20

	result := testutil.RunConcurrent(writers, func(int) error {
		return s.ledger.Update(context.Background(), holder, func(ctx context.Context, stores ledger.Stores) error {
			existing, err := stores.Consents.ListByHolder(ctx, holder)
			if err != nil {
				return err
			}
			return stores.Consents.Put(ctx, &consentmodels.Record{
				Holder:    holder,
				Verifier:  domain.Identity(fmt.Sprintf("verifier-%03d", len(existing))),
				Granted:   true,
				UpdatedAt: time.Now(),
			})
		})
	})
	s.Equal(writers, result.Successes, "unexpected failures: %v %v", result.Codes, result.Other)

	records, err := consentstore.NewPostgres(s.postgres.DB).ListByHolder(context.Background(), holder)
	s.Require().NoError(err)
	s.Len(records, writers)
}

func (s *PostgresLedgerSuite) TestJournalRelaysInAdmissionOrder() {
	ctx := context.Background()
	holder := testutil.TestIDs.Holder1
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	record := func(eventType string, at time.Time) error {
		return s.ledger.Update(ctx, holder, func(ctx context.Context, stores ledger.Stores) error {
			return ledger.RecordTransition(ctx, stores.Journal, holder, eventType,
				consentmodels.Transition{Holder: holder.String(), UpdatedAt: at}, at)
		})
	}
	// Admitted first with the later request time.
	s.Require().NoError(record(ledger.EventConsentGranted, base.Add(10*time.Second)))
	s.Require().NoError(record(ledger.EventConsentRevoked, base.Add(5*time.Second)))

	pending, err := outboxpostgres.New(s.postgres.DB).FetchUnprocessed(ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal(ledger.EventConsentGranted, pending[0].EventType)
	s.Equal(ledger.EventConsentRevoked, pending[1].EventType)
	s.Less(pending[0].Seq, pending[1].Seq)
}
