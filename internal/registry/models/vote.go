package models

import (
	"time"

	id "hookwarden/pkg/domain"
)

// GovernanceVote is one voter's immutable ballot against one submission.
// Uniqueness of the (submission, voter) pair is a store invariant checked
// atomically at creation. Weight is fixed at 1; weighted voting is out of
// scope.
type GovernanceVote struct {
	SubmissionID id.SubmissionID `json:"submission_id"`
	Voter        id.AccountID    `json:"voter"`
	Approve      bool            `json:"approve"`
	Weight       uint64          `json:"weight"`
	VotedAt      time.Time       `json:"voted_at"`
	Rationale    string          `json:"rationale,omitempty"`
}

// NewGovernanceVote validates and constructs a ballot.
func NewGovernanceVote(submissionID id.SubmissionID, voter id.AccountID, approve bool, rationale string, now time.Time) (*GovernanceVote, error) {
	if len(rationale) > MaxRationaleLen {
		return nil, ErrRationaleTooLong
	}
	return &GovernanceVote{
		SubmissionID: submissionID,
		Voter:        voter,
		Approve:      approve,
		Weight:       1,
		VotedAt:      now,
		Rationale:    rationale,
	}, nil
}
