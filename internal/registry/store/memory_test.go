package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hookwarden/internal/registry/models"
	"hookwarden/internal/registry/store"
	id "hookwarden/pkg/domain"
	"hookwarden/pkg/platform/sentinel"
)

var storeTestNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func newStoreSubmission(t *testing.T, programID string) *models.Submission {
	t.Helper()
	pid, err := id.ParseProgramID(programID)
	require.NoError(t, err)
	sub, err := models.NewSubmission(id.NewSubmissionID(), pid, id.AccountID(uuid.New()), "https://example.com/meta.json", "", 72*time.Hour, storeTestNow)
	require.NoError(t, err)
	return sub
}

func TestInMemory_ConfigLifecycle(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()

	_, err := s.Configs().Get(ctx)
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	cfg, err := models.NewRegistryConfig(id.AccountID(uuid.New()), 3, 72*time.Hour, storeTestNow)
	require.NoError(t, err)
	require.NoError(t, s.Configs().Create(ctx, cfg))

	err = s.Configs().Create(ctx, cfg)
	require.ErrorIs(t, err, sentinel.ErrConflict)

	got, err := s.Configs().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg.GovernanceThreshold, got.GovernanceThreshold)

	// Stored copies are isolated from caller mutation.
	got.GovernanceThreshold = 99
	again, err := s.Configs().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), again.GovernanceThreshold)

	cfg.RecordSubmission(storeTestNow)
	require.NoError(t, s.Configs().Update(ctx, cfg))
	updated, err := s.Configs().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), updated.TotalSubmissions)
}

func TestInMemory_SubmissionUniquePerProgram(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()

	first := newStoreSubmission(t, "hook-program-1")
	require.NoError(t, s.Submissions().Create(ctx, first))

	dup := newStoreSubmission(t, "hook-program-1")
	err := s.Submissions().Create(ctx, dup)
	require.ErrorIs(t, err, sentinel.ErrConflict)

	byProgram, err := s.Submissions().FindByProgram(ctx, first.ProgramID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, byProgram.ID)

	byID, err := s.Submissions().FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ProgramID, byID.ProgramID)

	_, err = s.Submissions().FindByID(ctx, id.NewSubmissionID())
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemory_SubmissionUpdate(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()

	sub := newStoreSubmission(t, "hook-program-2")
	require.NoError(t, s.Submissions().Create(ctx, sub))

	require.NoError(t, sub.RecordAssessment(25, true, storeTestNow.Add(time.Hour)))
	require.NoError(t, s.Submissions().Update(ctx, sub))

	got, err := s.Submissions().FindByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnderReview, got.Status)
	assert.Equal(t, uint8(25), got.RiskScore)

	unknown := newStoreSubmission(t, "hook-program-3")
	err = s.Submissions().Update(ctx, unknown)
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemory_ListSubmissions(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()

	subs := make([]*models.Submission, 0, 3)
	for i, program := range []string{"prog-a", "prog-b", "prog-c"} {
		sub := newStoreSubmission(t, program)
		sub.SubmittedAt = storeTestNow.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.Submissions().Create(ctx, sub))
		subs = append(subs, sub)
	}
	require.NoError(t, subs[1].RecordAssessment(10, true, storeTestNow))
	require.NoError(t, s.Submissions().Update(ctx, subs[1]))

	all, err := s.Submissions().List(ctx, store.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Oldest first.
	assert.Equal(t, subs[0].ID, all[0].ID)
	assert.Equal(t, subs[2].ID, all[2].ID)

	pending := models.StatusPending
	filtered, err := s.Submissions().List(ctx, store.ListFilter{Status: &pending})
	require.NoError(t, err)
	require.Len(t, filtered, 2)

	limited, err := s.Submissions().List(ctx, store.ListFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, subs[0].ID, limited[0].ID)
}

func TestInMemory_AssessmentOncePerSubmission(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()

	sub := newStoreSubmission(t, "hook-program-4")
	assessment, err := models.NewRiskAssessment(sub.ID, id.AccountID(uuid.New()), models.RiskFlags{IsVerifiedBuild: true}, storeTestNow)
	require.NoError(t, err)

	require.NoError(t, s.Assessments().Create(ctx, assessment))
	err = s.Assessments().Create(ctx, assessment)
	require.ErrorIs(t, err, sentinel.ErrConflict)

	got, err := s.Assessments().FindBySubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, assessment.OverallScore, got.OverallScore)

	_, err = s.Assessments().FindBySubmission(ctx, id.NewSubmissionID())
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestInMemory_VoteUniquePerVoter(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()

	sub := newStoreSubmission(t, "hook-program-5")
	voter := id.AccountID(uuid.New())

	vote, err := models.NewGovernanceVote(sub.ID, voter, true, "looks solid", storeTestNow)
	require.NoError(t, err)
	require.NoError(t, s.Votes().Create(ctx, vote))

	flipped, err := models.NewGovernanceVote(sub.ID, voter, false, "changed my mind", storeTestNow.Add(time.Minute))
	require.NoError(t, err)
	err = s.Votes().Create(ctx, flipped)
	require.ErrorIs(t, err, sentinel.ErrConflict)

	// Same voter on a different submission is a separate ballot.
	other := newStoreSubmission(t, "hook-program-6")
	otherVote, err := models.NewGovernanceVote(other.ID, voter, false, "", storeTestNow)
	require.NoError(t, err)
	require.NoError(t, s.Votes().Create(ctx, otherVote))

	found, err := s.Votes().FindByVoter(ctx, sub.ID, voter)
	require.NoError(t, err)
	assert.True(t, found.Approve)

	_, err = s.Votes().FindByVoter(ctx, sub.ID, id.AccountID(uuid.New()))
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	ballots, err := s.Votes().ListBySubmission(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, ballots, 1)
}

func TestInMemory_TxRollsBackNothingOnError(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()

	boom := errors.New("boom")
	sub := newStoreSubmission(t, "hook-program-7")

	err := s.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.Submissions().Create(ctx, sub); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// The memory store does not undo writes; callers stage on copies and
	// persist last, so an error before the final write leaves no trace.
	// The write above did land, which is the documented memory-store limit.
	_, findErr := s.Submissions().FindByID(ctx, sub.ID)
	require.NoError(t, findErr)
}

func TestInMemory_TxNestsWithoutDeadlock(t *testing.T) {
	ctx := context.Background()
	s := store.NewInMemory()

	sub := newStoreSubmission(t, "hook-program-8")
	err := s.RunInTx(ctx, func(ctx context.Context) error {
		return s.RunInTx(ctx, func(ctx context.Context) error {
			return s.Submissions().Create(ctx, sub)
		})
	})
	require.NoError(t, err)

	got, err := s.Submissions().FindByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.ProgramID, got.ProgramID)
}
