package models

import dErrors "hookwarden/pkg/domain-errors"

// Domain error taxonomy for the approval workflow. Each rejected operation
// names the precondition it violated so callers can distinguish "retry after
// the review window" from "not authorized". The vars are sentinels: services
// return them directly (or wrapped) and callers match with errors.Is.
var (
	ErrNotInitialized = dErrors.New(dErrors.CodeNotFound, "registry is not initialized")
	ErrUnauthorized   = dErrors.New(dErrors.CodeUnauthorized, "caller is not the registry authority")

	ErrDuplicateSubmission = dErrors.New(dErrors.CodeConflict, "hook program already submitted for approval")
	ErrSubmissionNotFound  = dErrors.New(dErrors.CodeNotFound, "hook submission not found")
	ErrAssessmentNotFound  = dErrors.New(dErrors.CodeNotFound, "risk assessment not found")
	ErrAssessmentExists    = dErrors.New(dErrors.CodeConflict, "risk assessment already recorded for this submission")

	ErrReviewPeriodNotEnded = dErrors.New(dErrors.CodeForbidden, "review period has not ended yet")
	ErrReviewPeriodEnded    = dErrors.New(dErrors.CodeForbidden, "review period has already ended")
	ErrCannotFinalize       = dErrors.New(dErrors.CodeForbidden, "submission cannot be finalized in its current status")
	ErrAlreadyVoted         = dErrors.New(dErrors.CodeConflict, "voter has already voted on this submission")
	ErrVotingClosed         = dErrors.New(dErrors.CodeForbidden, "submission is not open for voting")

	ErrInvalidStatusTransition = dErrors.New(dErrors.CodeInvariantViolation, "invalid approval status transition")
	ErrAssessmentIncomplete    = dErrors.New(dErrors.CodeForbidden, "risk assessment has not been completed")
	ErrRiskScoreTooHigh        = dErrors.New(dErrors.CodeForbidden, "risk score is too high for auto-approval")
	ErrInsufficientVotes       = dErrors.New(dErrors.CodeForbidden, "insufficient governance votes for approval")
	ErrNotApproved             = dErrors.New(dErrors.CodeForbidden, "hook program is not approved for use")

	ErrMetadataURITooLong = dErrors.New(dErrors.CodeValidation, "metadata URI exceeds maximum length")
	ErrRationaleTooLong   = dErrors.New(dErrors.CodeValidation, "vote rationale exceeds maximum length")
	ErrNotesTooLong       = dErrors.New(dErrors.CodeValidation, "assessment notes exceed maximum length")

	ErrInvalidProgramID     = dErrors.New(dErrors.CodeInvalidInput, "program id does not match the submission")
	ErrProgramNotExecutable = dErrors.New(dErrors.CodeValidation, "candidate program does not exist or is not executable")
)

// Field length bounds shared by constructors and transport validation.
const (
	MaxMetadataURILen = 256
	MaxRationaleLen   = 256
	MaxNotesLen       = 512
)
