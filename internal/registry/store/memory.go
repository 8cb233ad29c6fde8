package store

import (
	"context"
	"sort"
	"sync"

	"hookwarden/internal/registry/models"
	id "hookwarden/pkg/domain"
	"hookwarden/pkg/platform/sentinel"
)

type memTxKey struct{}

// InMemory implements all registry stores behind one mutex. A transaction
// holds the lock for its whole callback, which gives the serialization the
// workflow requires: concurrent vote-counter updates and assessment
// uniqueness checks cannot interleave. Intentionally favors clarity over
// throughput; production deployments use the Postgres store.
type InMemory struct {
	mu          sync.Mutex
	config      *models.RegistryConfig
	submissions map[id.SubmissionID]models.Submission
	byProgram   map[id.ProgramID]id.SubmissionID
	assessments map[id.SubmissionID]models.RiskAssessment
	votes       map[voteKey]models.GovernanceVote
}

type voteKey struct {
	submission id.SubmissionID
	voter      id.AccountID
}

// NewInMemory constructs an empty in-memory registry store.
func NewInMemory() *InMemory {
	return &InMemory{
		submissions: make(map[id.SubmissionID]models.Submission),
		byProgram:   make(map[id.ProgramID]id.SubmissionID),
		assessments: make(map[id.SubmissionID]models.RiskAssessment),
		votes:       make(map[voteKey]models.GovernanceVote),
	}
}

// RunInTx serializes the callback against every other store access. There is
// no rollback: writes land as they happen, so the all-or-nothing contract
// holds only when the callback validates every precondition before its first
// write. The workflow service orders its callbacks that way; the Postgres
// store provides real rollback for deployments.
func (s *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(context.WithValue(ctx, memTxKey{}, true))
}

func inTx(ctx context.Context) bool {
	held, _ := ctx.Value(memTxKey{}).(bool)
	return held
}

func (s *InMemory) lock(ctx context.Context) func() {
	if inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// --- ConfigStore ---

func (s *InMemory) CreateConfig(ctx context.Context, config *models.RegistryConfig) error {
	defer s.lock(ctx)()
	if s.config != nil {
		return sentinel.ErrConflict
	}
	copied := *config
	s.config = &copied
	return nil
}

func (s *InMemory) GetConfig(ctx context.Context) (*models.RegistryConfig, error) {
	defer s.lock(ctx)()
	if s.config == nil {
		return nil, sentinel.ErrNotFound
	}
	copied := *s.config
	return &copied, nil
}

func (s *InMemory) UpdateConfig(ctx context.Context, config *models.RegistryConfig) error {
	defer s.lock(ctx)()
	if s.config == nil {
		return sentinel.ErrNotFound
	}
	copied := *config
	s.config = &copied
	return nil
}

// --- SubmissionStore ---

func (s *InMemory) CreateSubmission(ctx context.Context, submission *models.Submission) error {
	defer s.lock(ctx)()
	if _, exists := s.byProgram[submission.ProgramID]; exists {
		return sentinel.ErrConflict
	}
	s.submissions[submission.ID] = *submission
	s.byProgram[submission.ProgramID] = submission.ID
	return nil
}

func (s *InMemory) FindSubmissionByID(ctx context.Context, submissionID id.SubmissionID) (*models.Submission, error) {
	defer s.lock(ctx)()
	sub, ok := s.submissions[submissionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &sub, nil
}

// FindSubmissionByIDForUpdate is FindSubmissionByID under the single mutex:
// the enclosing transaction already holds the only lock there is.
func (s *InMemory) FindSubmissionByIDForUpdate(ctx context.Context, submissionID id.SubmissionID) (*models.Submission, error) {
	return s.FindSubmissionByID(ctx, submissionID)
}

func (s *InMemory) FindSubmissionByProgram(ctx context.Context, programID id.ProgramID) (*models.Submission, error) {
	defer s.lock(ctx)()
	subID, ok := s.byProgram[programID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	sub := s.submissions[subID]
	return &sub, nil
}

func (s *InMemory) UpdateSubmission(ctx context.Context, submission *models.Submission) error {
	defer s.lock(ctx)()
	if _, ok := s.submissions[submission.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.submissions[submission.ID] = *submission
	return nil
}

func (s *InMemory) ListSubmissions(ctx context.Context, filter ListFilter) ([]*models.Submission, error) {
	defer s.lock(ctx)()
	out := make([]*models.Submission, 0, len(s.submissions))
	for _, sub := range s.submissions {
		if filter.Status != nil && sub.Status != *filter.Status {
			continue
		}
		copied := sub
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// --- AssessmentStore ---

func (s *InMemory) CreateAssessment(ctx context.Context, assessment *models.RiskAssessment) error {
	defer s.lock(ctx)()
	if _, exists := s.assessments[assessment.SubmissionID]; exists {
		return sentinel.ErrConflict
	}
	s.assessments[assessment.SubmissionID] = *assessment
	return nil
}

func (s *InMemory) FindAssessmentBySubmission(ctx context.Context, submissionID id.SubmissionID) (*models.RiskAssessment, error) {
	defer s.lock(ctx)()
	assessment, ok := s.assessments[submissionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &assessment, nil
}

// --- VoteStore ---

func (s *InMemory) CreateVote(ctx context.Context, vote *models.GovernanceVote) error {
	defer s.lock(ctx)()
	key := voteKey{submission: vote.SubmissionID, voter: vote.Voter}
	if _, exists := s.votes[key]; exists {
		return sentinel.ErrConflict
	}
	s.votes[key] = *vote
	return nil
}

func (s *InMemory) FindVoteByVoter(ctx context.Context, submissionID id.SubmissionID, voter id.AccountID) (*models.GovernanceVote, error) {
	defer s.lock(ctx)()
	vote, ok := s.votes[voteKey{submission: submissionID, voter: voter}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &vote, nil
}

func (s *InMemory) ListVotesBySubmission(ctx context.Context, submissionID id.SubmissionID) ([]*models.GovernanceVote, error) {
	defer s.lock(ctx)()
	var out []*models.GovernanceVote
	for key, vote := range s.votes {
		if key.submission == submissionID {
			copied := vote
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].VotedAt.Before(out[j].VotedAt)
	})
	return out, nil
}
