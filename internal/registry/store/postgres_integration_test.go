//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"hookwarden/internal/registry/models"
	"hookwarden/internal/registry/store"
	id "hookwarden/pkg/domain"
	"hookwarden/pkg/platform/sentinel"
	"hookwarden/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *store.Postgres
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.pg.Pool)
	s.Require().NoError(s.store.EnsureSchema(context.Background()))
}

func (s *PostgresStoreSuite) TearDownSuite() {
	s.pg.Pool.Close()
	_ = s.pg.Container.Terminate(context.Background())
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateAll(context.Background()))
}

func (s *PostgresStoreSuite) newSubmission(program string) *models.Submission {
	pid, err := id.ParseProgramID(program)
	s.Require().NoError(err)
	sub, err := models.NewSubmission(id.NewSubmissionID(), pid, id.AccountID(uuid.New()),
		"https://example.com/meta.json", "", 72*time.Hour, time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return sub
}

func (s *PostgresStoreSuite) TestConfigSingleton() {
	ctx := context.Background()

	_, err := s.store.Configs().Get(ctx)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	cfg, err := models.NewRegistryConfig(id.AccountID(uuid.New()), 3, 72*time.Hour,
		time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Configs().Create(ctx, cfg))

	err = s.store.Configs().Create(ctx, cfg)
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	got, err := s.store.Configs().Get(ctx)
	s.Require().NoError(err)
	s.Equal(cfg.Authority, got.Authority)
	s.Equal(72*time.Hour, got.ReviewPeriod)

	cfg.RecordSubmission(time.Now().UTC())
	s.Require().NoError(s.store.Configs().Update(ctx, cfg))
	got, err = s.store.Configs().Get(ctx)
	s.Require().NoError(err)
	s.Equal(uint64(1), got.TotalSubmissions)
}

func (s *PostgresStoreSuite) TestSubmissionUniquePerProgram() {
	ctx := context.Background()

	first := s.newSubmission("prog-unique")
	s.Require().NoError(s.store.Submissions().Create(ctx, first))

	dup := s.newSubmission("prog-unique")
	err := s.store.Submissions().Create(ctx, dup)
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	got, err := s.store.Submissions().FindByProgram(ctx, first.ProgramID)
	s.Require().NoError(err)
	s.Equal(first.ID, got.ID)
	s.Equal(models.StatusPending, got.Status)
}

func (s *PostgresStoreSuite) TestSubmissionRoundTrip() {
	ctx := context.Background()

	sub := s.newSubmission("prog-roundtrip")
	sub.ProposalRef = "prop-42"
	s.Require().NoError(s.store.Submissions().Create(ctx, sub))

	s.Require().NoError(sub.RecordAssessment(35, false, sub.SubmittedAt.Add(time.Hour)))
	sub.AddVote(true, sub.SubmittedAt.Add(2*time.Hour))
	s.Require().NoError(s.store.Submissions().Update(ctx, sub))

	got, err := s.store.Submissions().FindByID(ctx, sub.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusUnderReview, got.Status)
	s.Equal(uint8(35), got.RiskScore)
	s.Equal(uint64(1), got.VotesFor)
	s.Equal(id.ProposalRef("prop-42"), got.ProposalRef)
	s.WithinDuration(sub.ReviewEndsAt, got.ReviewEndsAt, time.Millisecond)
}

func (s *PostgresStoreSuite) TestVoteUniquePerVoter() {
	ctx := context.Background()

	sub := s.newSubmission("prog-votes")
	s.Require().NoError(s.store.Submissions().Create(ctx, sub))

	voter := id.AccountID(uuid.New())
	vote, err := models.NewGovernanceVote(sub.ID, voter, true, "fine", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Votes().Create(ctx, vote))

	again, err := models.NewGovernanceVote(sub.ID, voter, false, "", time.Now().UTC())
	s.Require().NoError(err)
	err = s.store.Votes().Create(ctx, again)
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	ballots, err := s.store.Votes().ListBySubmission(ctx, sub.ID)
	s.Require().NoError(err)
	s.Require().Len(ballots, 1)
	s.True(ballots[0].Approve)
}

func (s *PostgresStoreSuite) TestAssessmentOnce() {
	ctx := context.Background()

	sub := s.newSubmission("prog-assess")
	s.Require().NoError(s.store.Submissions().Create(ctx, sub))

	flags := models.RiskFlags{PerformsTransfers: true, IsAudited: true}
	assessment, err := models.NewRiskAssessment(sub.ID, id.AccountID(uuid.New()), flags,
		time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Assessments().Create(ctx, assessment))

	err = s.store.Assessments().Create(ctx, assessment)
	s.Require().ErrorIs(err, sentinel.ErrConflict)

	got, err := s.store.Assessments().FindBySubmission(ctx, sub.ID)
	s.Require().NoError(err)
	s.Equal(assessment.OverallScore, got.OverallScore)
	s.Equal(flags, got.Flags)
	s.Equal(assessment.Notes, got.Notes)
}

func (s *PostgresStoreSuite) TestTxRollsBackOnError() {
	ctx := context.Background()

	sub := s.newSubmission("prog-rollback")
	wantErr := sentinel.ErrInvalidState

	err := s.store.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Submissions().Create(ctx, sub); err != nil {
			return err
		}
		return wantErr
	})
	s.Require().ErrorIs(err, wantErr)

	_, err = s.store.Submissions().FindByID(ctx, sub.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestConcurrentVoteCountersSerialize() {
	ctx := context.Background()

	sub := s.newSubmission("prog-concurrent")
	s.Require().NoError(s.store.Submissions().Create(ctx, sub))

	const voters = 8
	errs := make(chan error, voters)
	for i := 0; i < voters; i++ {
		go func() {
			voter := id.AccountID(uuid.New())
			errs <- s.store.RunInTx(ctx, func(ctx context.Context) error {
				locked, err := s.store.Submissions().FindByIDForUpdate(ctx, sub.ID)
				if err != nil {
					return err
				}
				vote, err := models.NewGovernanceVote(locked.ID, voter, true, "", time.Now().UTC())
				if err != nil {
					return err
				}
				if err := s.store.Votes().Create(ctx, vote); err != nil {
					return err
				}
				locked.AddVote(true, time.Now().UTC())
				return s.store.Submissions().Update(ctx, locked)
			})
		}()
	}
	for i := 0; i < voters; i++ {
		require.NoError(s.T(), <-errs)
	}

	got, err := s.store.Submissions().FindByID(ctx, sub.ID)
	s.Require().NoError(err)
	s.Equal(uint64(voters), got.VotesFor)

	ballots, err := s.store.Votes().ListBySubmission(ctx, sub.ID)
	s.Require().NoError(err)
	s.Len(ballots, voters)
}
