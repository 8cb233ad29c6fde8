package models

import (
	"time"

	id "hookwarden/pkg/domain"
)

// Submission is the aggregate root for one candidate hook program's approval
// lifecycle. Its RiskAssessment and GovernanceVotes belong to it; the
// RegistryConfig is referenced, never owned.
//
// Invariants:
//   - ReviewEndsAt >= SubmittedAt
//   - RiskScore in [0, 100]
//   - VotesFor and VotesAgainst are monotonically non-decreasing until
//     finalization and frozen afterwards
//   - Status only changes through ApplyStatus, which enforces the
//     transition table; no caller sets Status directly
//   - Records are never deleted (audit trail)
type Submission struct {
	ID                    id.SubmissionID `json:"id"`
	ProgramID             id.ProgramID    `json:"program_id"`
	Submitter             id.AccountID    `json:"submitter"`
	Status                ApprovalStatus  `json:"status"`
	SubmittedAt           time.Time       `json:"submitted_at"`
	ReviewEndsAt          time.Time       `json:"review_ends_at"`
	LastUpdatedAt         time.Time       `json:"last_updated_at"`
	MetadataURI           string          `json:"metadata_uri"`
	ProposalRef           id.ProposalRef  `json:"proposal_ref,omitempty"`
	VotesFor              uint64          `json:"votes_for"`
	VotesAgainst          uint64          `json:"votes_against"`
	RiskScore             uint8           `json:"risk_score"`
	AutomatedChecksPassed bool            `json:"automated_checks_passed"`
}

// NewSubmission validates invariants and constructs a pending submission.
// The review window is derived from the registry policy at submission time;
// later policy updates do not move the deadline of open submissions.
func NewSubmission(submissionID id.SubmissionID, programID id.ProgramID, submitter id.AccountID, metadataURI string, proposalRef id.ProposalRef, reviewPeriod time.Duration, now time.Time) (*Submission, error) {
	if programID.IsZero() {
		return nil, ErrInvalidProgramID
	}
	if len(metadataURI) > MaxMetadataURILen {
		return nil, ErrMetadataURITooLong
	}
	return &Submission{
		ID:            submissionID,
		ProgramID:     programID,
		Submitter:     submitter,
		Status:        StatusPending,
		SubmittedAt:   now,
		ReviewEndsAt:  now.Add(reviewPeriod),
		LastUpdatedAt: now,
		MetadataURI:   metadataURI,
		ProposalRef:   proposalRef,
	}, nil
}

// CanTransitionTo checks the status machine without mutating the record.
// Returns ErrInvalidStatusTransition when the move is outside the table.
func (s *Submission) CanTransitionTo(next ApprovalStatus) error {
	if !s.Status.CanTransitionTo(next) {
		return ErrInvalidStatusTransition
	}
	return nil
}

// ApplyStatus is the single choke point for status writes. It validates the
// transition and stamps LastUpdatedAt.
func (s *Submission) ApplyStatus(next ApprovalStatus, now time.Time) error {
	if err := s.CanTransitionTo(next); err != nil {
		return err
	}
	s.Status = next
	s.LastUpdatedAt = now
	return nil
}

// IsReviewPeriodEnded reports whether the voting window has closed.
func (s *Submission) IsReviewPeriodEnded(now time.Time) bool {
	return !now.Before(s.ReviewEndsAt)
}

// CanBeFinalized reports whether the submission is in the one status
// finalization accepts.
func (s *Submission) CanBeFinalized() bool {
	return s.Status == StatusUnderReview
}

// RecordAssessment writes the risk outcome onto the submission and advances
// it to under review through the transition rule.
func (s *Submission) RecordAssessment(score uint8, automatedChecksPassed bool, now time.Time) error {
	if err := s.ApplyStatus(StatusUnderReview, now); err != nil {
		return err
	}
	s.RiskScore = score
	s.AutomatedChecksPassed = automatedChecksPassed
	return nil
}

// AddVote increments the matching counter. Vote uniqueness is enforced by
// the store, not here.
func (s *Submission) AddVote(approve bool, now time.Time) {
	if approve {
		s.VotesFor++
	} else {
		s.VotesAgainst++
	}
	s.LastUpdatedAt = now
}

// TotalVotes returns the ballot count across both directions.
func (s *Submission) TotalVotes() uint64 {
	return s.VotesFor + s.VotesAgainst
}

// ApprovalRatio returns votesFor / totalVotes, or 0 with no ballots.
func (s *Submission) ApprovalRatio() float64 {
	total := s.TotalVotes()
	if total == 0 {
		return 0
	}
	return float64(s.VotesFor) / float64(total)
}
