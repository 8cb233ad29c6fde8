package models

import (
	"time"

	id "hookwarden/pkg/domain"
	dErrors "hookwarden/pkg/domain-errors"
)

// RegistryConfig is the registry-wide policy singleton.
//
// Invariants:
//   - GovernanceThreshold > 0
//   - ReviewPeriod > 0
//   - Authority is a non-nil account
//   - TotalSubmissions and TotalApproved are monotonically non-decreasing
//
// Created once by InitRegistry; mutated only through explicit privileged
// update paths. Every workflow operation reads it, none writes it.
type RegistryConfig struct {
	Authority           id.AccountID  `json:"authority"`
	GovernanceThreshold uint64        `json:"governance_threshold"`
	ReviewPeriod        time.Duration `json:"review_period"`
	TotalSubmissions    uint64        `json:"total_submissions"`
	TotalApproved       uint64        `json:"total_approved"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// NewRegistryConfig validates and constructs the policy singleton.
func NewRegistryConfig(authority id.AccountID, governanceThreshold uint64, reviewPeriod time.Duration, now time.Time) (*RegistryConfig, error) {
	if authority.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "registry authority is required")
	}
	if governanceThreshold == 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "governance threshold must be positive")
	}
	if reviewPeriod <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "review period must be positive")
	}
	return &RegistryConfig{
		Authority:           authority,
		GovernanceThreshold: governanceThreshold,
		ReviewPeriod:        reviewPeriod,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// CanUpdatePolicy checks the proposed policy values without applying them.
func (c *RegistryConfig) CanUpdatePolicy(governanceThreshold uint64, reviewPeriod time.Duration) error {
	if governanceThreshold == 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "governance threshold must be positive")
	}
	if reviewPeriod <= 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "review period must be positive")
	}
	return nil
}

// ApplyPolicyUpdate sets the new policy values. Call CanUpdatePolicy first.
func (c *RegistryConfig) ApplyPolicyUpdate(governanceThreshold uint64, reviewPeriod time.Duration, now time.Time) {
	c.GovernanceThreshold = governanceThreshold
	c.ReviewPeriod = reviewPeriod
	c.UpdatedAt = now
}

// RecordSubmission bumps the running submissions counter.
func (c *RegistryConfig) RecordSubmission(now time.Time) {
	c.TotalSubmissions++
	c.UpdatedAt = now
}

// RecordApproval bumps the running approvals counter. Maintained by a
// follow-up update after finalization commits, not by finalize itself.
func (c *RegistryConfig) RecordApproval(now time.Time) {
	c.TotalApproved++
	c.UpdatedAt = now
}
