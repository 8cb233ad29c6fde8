// Package store persists the registry aggregates.
//
// Interfaces are consumer-side: the service declares what it needs and the
// memory and Postgres implementations satisfy it. Stores return
// pkg/platform/sentinel errors for factual states (not found, conflict);
// services translate those into domain errors.
package store

import (
	"context"

	"hookwarden/internal/registry/models"
	id "hookwarden/pkg/domain"
)

// Tx runs fn as one atomic unit. Every workflow operation executes inside
// exactly one transaction: all of its writes commit together or not at all.
type Tx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ConfigStore persists the registry policy singleton.
type ConfigStore interface {
	// Create fails with sentinel.ErrConflict when the registry is already
	// initialized.
	Create(ctx context.Context, config *models.RegistryConfig) error
	// Get fails with sentinel.ErrNotFound before initialization.
	Get(ctx context.Context) (*models.RegistryConfig, error)
	Update(ctx context.Context, config *models.RegistryConfig) error
}

// ListFilter narrows submission listings.
type ListFilter struct {
	Status *models.ApprovalStatus
	Limit  int
}

// SubmissionStore persists submission lifecycle records. Records are never
// deleted; the lifecycle is the audit trail.
type SubmissionStore interface {
	// Create fails with sentinel.ErrConflict when the program already has a
	// submission.
	Create(ctx context.Context, submission *models.Submission) error
	FindByID(ctx context.Context, submissionID id.SubmissionID) (*models.Submission, error)
	// FindByIDForUpdate locks the record for the duration of the enclosing
	// transaction so concurrent counter updates serialize.
	FindByIDForUpdate(ctx context.Context, submissionID id.SubmissionID) (*models.Submission, error)
	FindByProgram(ctx context.Context, programID id.ProgramID) (*models.Submission, error)
	Update(ctx context.Context, submission *models.Submission) error
	List(ctx context.Context, filter ListFilter) ([]*models.Submission, error)
}

// AssessmentStore persists the one-per-submission risk assessment.
type AssessmentStore interface {
	// Create fails with sentinel.ErrConflict when the submission was already
	// assessed; re-assessment is not supported.
	Create(ctx context.Context, assessment *models.RiskAssessment) error
	FindBySubmission(ctx context.Context, submissionID id.SubmissionID) (*models.RiskAssessment, error)
}

// VoteStore persists governance ballots.
type VoteStore interface {
	// Create fails with sentinel.ErrConflict when the (submission, voter)
	// pair already has a ballot. The check is atomic with the insert.
	Create(ctx context.Context, vote *models.GovernanceVote) error
	FindByVoter(ctx context.Context, submissionID id.SubmissionID, voter id.AccountID) (*models.GovernanceVote, error)
	ListBySubmission(ctx context.Context, submissionID id.SubmissionID) ([]*models.GovernanceVote, error)
}
