package models

import (
	"time"

	id "hookwarden/pkg/domain"
)

// RiskAssessment is the one-per-submission risk record. Re-assessment is not
// supported: the store rejects a second assessment for the same submission.
type RiskAssessment struct {
	SubmissionID         id.SubmissionID `json:"submission_id"`
	Flags                RiskFlags       `json:"flags"`
	OverallScore         uint8           `json:"overall_score"`
	AssessedAt           time.Time       `json:"assessed_at"`
	Assessor             id.AccountID    `json:"assessor"`
	Notes                string          `json:"notes"`
	RequiresManualReview bool            `json:"requires_manual_review"`
}

// NewRiskAssessment scores the supplied flags and constructs the assessment.
// The notes bound is defensive: generated notes are well under the limit, but
// the invariant is still enforced here rather than trusted.
func NewRiskAssessment(submissionID id.SubmissionID, assessor id.AccountID, flags RiskFlags, now time.Time) (*RiskAssessment, error) {
	notes := AssessmentNotes(flags)
	if len(notes) > MaxNotesLen {
		return nil, ErrNotesTooLong
	}
	return &RiskAssessment{
		SubmissionID:         submissionID,
		Flags:                flags,
		OverallScore:         flags.Score(),
		AssessedAt:           now,
		Assessor:             assessor,
		Notes:                notes,
		RequiresManualReview: flags.RequiresManualReview(),
	}, nil
}

// IsLowRisk classifies the assessment for the auto-approval rule.
func (a *RiskAssessment) IsLowRisk() bool { return IsLowRisk(a.OverallScore) }

// IsHighRisk classifies the assessment for the elevated vote-ratio rule.
func (a *RiskAssessment) IsHighRisk() bool { return IsHighRisk(a.OverallScore) }
