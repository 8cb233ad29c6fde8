package models

import "strings"

// RiskFlags are the boolean risk indicators supplied by the capability probe.
// The registry never computes these itself; analysis of the candidate program
// is a collaborator concern.
type RiskFlags struct {
	HasUpgradeAuthority   bool `json:"has_upgrade_authority"`
	IsVerifiedBuild       bool `json:"is_verified_build"`
	PerformsTransfers     bool `json:"performs_transfers"`
	RequestsManyResources bool `json:"requests_many_resources"`
	CanBlockTransfers     bool `json:"can_block_transfers"`
	IsAudited             bool `json:"is_audited"`
	SourceCodeAvailable   bool `json:"source_code_available"`
	FollowsBestPractices  bool `json:"follows_best_practices"`
}

// Risk score boundaries. Scores are clamped to [0, 100].
const (
	lowRiskCeiling       = 30
	autoCheckCeiling     = 40
	manualReviewFloor    = 60
	highRiskFloor        = 70
	maxRiskScore         = 100
	requiredRatioHigh    = 0.75
	requiredRatioDefault = 0.60
)

// Score computes the deterministic risk score for a flag set.
//
// Penalties are summed first, then mitigating credits subtract with a floor
// of zero, and the result is clamped to [0, 100]. The function is total: it
// never fails and the same flags always produce the same score.
func (f RiskFlags) Score() uint8 {
	score := 0
	if f.HasUpgradeAuthority {
		score += 15
	}
	if f.PerformsTransfers {
		score += 25
	}
	if f.RequestsManyResources {
		score += 10
	}
	if f.CanBlockTransfers {
		score += 20
	}

	if f.IsVerifiedBuild {
		score -= 15
	}
	if f.IsAudited {
		score -= 20
	}
	if f.SourceCodeAvailable {
		score -= 10
	}
	if f.FollowsBestPractices {
		score -= 10
	}

	if score < 0 {
		score = 0
	}
	if score > maxRiskScore {
		score = maxRiskScore
	}
	return uint8(score)
}

// RequiresManualReview reports whether the scored flags exceed the automated
// confidence threshold.
func (f RiskFlags) RequiresManualReview() bool {
	return f.Score() > manualReviewFloor
}

// PassesAutomatedChecks reports whether the candidate qualifies for the
// auto-approval path: no transfer capability, no censorship capability,
// public source, and a modest score.
func (f RiskFlags) PassesAutomatedChecks() bool {
	return !f.PerformsTransfers &&
		!f.CanBlockTransfers &&
		f.SourceCodeAvailable &&
		f.Score() <= autoCheckCeiling
}

// IsLowRisk classifies a score for the auto-approval rule.
func IsLowRisk(score uint8) bool { return score <= lowRiskCeiling }

// IsHighRisk classifies a score for the elevated vote-ratio rule.
func IsHighRisk(score uint8) bool { return score >= highRiskFloor }

// RequiredApprovalRatio returns the votesFor/totalVotes ratio a submission
// must reach, which is stricter for high-risk candidates.
func RequiredApprovalRatio(score uint8) float64 {
	if IsHighRisk(score) {
		return requiredRatioHigh
	}
	return requiredRatioDefault
}

// AssessmentNotes renders a human-readable summary of the flag set.
// The result is bounded well under MaxNotesLen; the caller still enforces the
// limit defensively.
func AssessmentNotes(f RiskFlags) string {
	var notes []string

	if f.IsVerifiedBuild {
		notes = append(notes, "verified build")
	}
	if f.SourceCodeAvailable {
		notes = append(notes, "source code publicly available")
	}
	if f.IsAudited {
		notes = append(notes, "independently audited")
	}
	if f.FollowsBestPractices {
		notes = append(notes, "follows documented best practices")
	}

	if f.HasUpgradeAuthority {
		notes = append(notes, "upgrade authority present")
	}
	if f.PerformsTransfers {
		notes = append(notes, "performs value transfers")
	}
	if f.CanBlockTransfers {
		notes = append(notes, "can block or censor transfers")
	}
	if f.RequestsManyResources {
		notes = append(notes, "requests unusually many resources")
	}

	if len(notes) == 0 {
		return "basic risk assessment completed; manual review recommended"
	}
	return strings.Join(notes, "; ")
}
