package store

import (
	"context"

	"hookwarden/internal/registry/models"
	id "hookwarden/pkg/domain"
)

// Implementation holds every registry store plus the transaction runner.
// Both the memory and Postgres stores satisfy it through the view adapters
// below, so wiring swaps backends in one place.
type Implementation interface {
	Tx
	Configs() ConfigStore
	Submissions() SubmissionStore
	Assessments() AssessmentStore
	Votes() VoteStore
}

// --- InMemory views ---

func (s *InMemory) Configs() ConfigStore         { return memConfigs{s} }
func (s *InMemory) Submissions() SubmissionStore { return memSubmissions{s} }
func (s *InMemory) Assessments() AssessmentStore { return memAssessments{s} }
func (s *InMemory) Votes() VoteStore             { return memVotes{s} }

type memConfigs struct{ s *InMemory }

func (v memConfigs) Create(ctx context.Context, c *models.RegistryConfig) error {
	return v.s.CreateConfig(ctx, c)
}
func (v memConfigs) Get(ctx context.Context) (*models.RegistryConfig, error) {
	return v.s.GetConfig(ctx)
}
func (v memConfigs) Update(ctx context.Context, c *models.RegistryConfig) error {
	return v.s.UpdateConfig(ctx, c)
}

type memSubmissions struct{ s *InMemory }

func (v memSubmissions) Create(ctx context.Context, sub *models.Submission) error {
	return v.s.CreateSubmission(ctx, sub)
}
func (v memSubmissions) FindByID(ctx context.Context, subID id.SubmissionID) (*models.Submission, error) {
	return v.s.FindSubmissionByID(ctx, subID)
}
func (v memSubmissions) FindByIDForUpdate(ctx context.Context, subID id.SubmissionID) (*models.Submission, error) {
	return v.s.FindSubmissionByIDForUpdate(ctx, subID)
}
func (v memSubmissions) FindByProgram(ctx context.Context, programID id.ProgramID) (*models.Submission, error) {
	return v.s.FindSubmissionByProgram(ctx, programID)
}
func (v memSubmissions) Update(ctx context.Context, sub *models.Submission) error {
	return v.s.UpdateSubmission(ctx, sub)
}
func (v memSubmissions) List(ctx context.Context, filter ListFilter) ([]*models.Submission, error) {
	return v.s.ListSubmissions(ctx, filter)
}

type memAssessments struct{ s *InMemory }

func (v memAssessments) Create(ctx context.Context, a *models.RiskAssessment) error {
	return v.s.CreateAssessment(ctx, a)
}
func (v memAssessments) FindBySubmission(ctx context.Context, subID id.SubmissionID) (*models.RiskAssessment, error) {
	return v.s.FindAssessmentBySubmission(ctx, subID)
}

type memVotes struct{ s *InMemory }

func (v memVotes) Create(ctx context.Context, vote *models.GovernanceVote) error {
	return v.s.CreateVote(ctx, vote)
}
func (v memVotes) FindByVoter(ctx context.Context, subID id.SubmissionID, voter id.AccountID) (*models.GovernanceVote, error) {
	return v.s.FindVoteByVoter(ctx, subID, voter)
}
func (v memVotes) ListBySubmission(ctx context.Context, subID id.SubmissionID) ([]*models.GovernanceVote, error) {
	return v.s.ListVotesBySubmission(ctx, subID)
}
