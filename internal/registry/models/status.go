package models

import dErrors "hookwarden/pkg/domain-errors"

// ApprovalStatus is the closed set of lifecycle states for a hook submission.
type ApprovalStatus string

const (
	// StatusPending: submitted, awaiting risk assessment.
	StatusPending ApprovalStatus = "pending"
	// StatusUnderReview: risk assessment recorded, voting open.
	StatusUnderReview ApprovalStatus = "under_review"
	// StatusApproved: approved for use by downstream consumers.
	StatusApproved ApprovalStatus = "approved"
	// StatusRejected: rejected by finalization or by the authority.
	StatusRejected ApprovalStatus = "rejected"
	// StatusSuspended: previously approved, temporarily withdrawn.
	StatusSuspended ApprovalStatus = "suspended"
	// StatusDeprecated: retired. No outgoing transitions.
	StatusDeprecated ApprovalStatus = "deprecated"
)

// validTransitions is the single source of truth for the status machine.
// A status missing from the map (Deprecated) has no outgoing transitions.
var validTransitions = map[ApprovalStatus][]ApprovalStatus{
	StatusPending:     {StatusUnderReview, StatusRejected},
	StatusUnderReview: {StatusApproved, StatusRejected},
	StatusApproved:    {StatusSuspended, StatusDeprecated},
	StatusSuspended:   {StatusApproved, StatusDeprecated},
	StatusRejected:    {StatusDeprecated},
}

// CanTransitionTo reports whether the status machine permits moving from s to
// next. A no-op transition (s == next) is always permitted.
func (s ApprovalStatus) CanTransitionTo(next ApprovalStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range validTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// IsValid reports whether s is one of the declared statuses.
func (s ApprovalStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusApproved, StatusRejected, StatusSuspended, StatusDeprecated:
		return true
	}
	return false
}

func (s ApprovalStatus) String() string { return string(s) }

// ParseStatus validates a status received over the wire.
func ParseStatus(raw string) (ApprovalStatus, error) {
	s := ApprovalStatus(raw)
	if !s.IsValid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown approval status %q", raw)
	}
	return s, nil
}
