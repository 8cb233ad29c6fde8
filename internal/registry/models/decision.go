package models

// FinalizeOutcome is the result of the pure finalization rule, carrying the
// reason so rejected submissions can tell quorum failure apart from a lost
// vote.
type FinalizeOutcome struct {
	Status ApprovalStatus
	Reason string
}

// DecideFinalStatus applies the finalization rule. It is pure: callers apply
// the resulting status through the transition table and emit facts
// separately.
//
// Rule, in order:
//  1. automated checks passed AND low risk -> approved (auto-approval path,
//     quorum bypassed — a deliberate policy choice)
//  2. total votes below the governance threshold -> rejected (quorum not met)
//  3. approval ratio >= required ratio (0.75 high risk, 0.60 otherwise)
//     -> approved, else rejected
func DecideFinalStatus(submission *Submission, assessment *RiskAssessment, governanceThreshold uint64) FinalizeOutcome {
	if submission.AutomatedChecksPassed && assessment.IsLowRisk() {
		return FinalizeOutcome{Status: StatusApproved, Reason: "auto-approved: automated checks passed with low risk"}
	}

	totalVotes := submission.TotalVotes()
	if totalVotes < governanceThreshold {
		return FinalizeOutcome{Status: StatusRejected, Reason: "quorum not met"}
	}

	required := RequiredApprovalRatio(assessment.OverallScore)
	if submission.ApprovalRatio() >= required {
		return FinalizeOutcome{Status: StatusApproved, Reason: "approval ratio reached"}
	}
	return FinalizeOutcome{Status: StatusRejected, Reason: "approval ratio below required threshold"}
}
