// Package facts defines the immutable event records the approval workflow
// emits for downstream consumers.
//
// A fact is notification, not storage: it is published after the state
// change commits, and its fields equal the post-state of the mutated record.
// Transition validation happens before emission, so sinks only ever see
// facts about accepted operations.
package facts

import (
	"context"
	"sync"
	"time"

	"hookwarden/internal/registry/models"
	id "hookwarden/pkg/domain"
)

// Kind discriminates fact payloads on the wire.
type Kind string

const (
	KindRegistryInitialized     Kind = "registry_initialized"
	KindSubmissionCreated       Kind = "submission_created"
	KindRiskAssessmentCompleted Kind = "risk_assessment_completed"
	KindVoteCast                Kind = "vote_cast"
	KindApprovalFinalized       Kind = "approval_finalized"
	KindStatusUpdated           Kind = "status_updated"
	KindBadgeApproved           Kind = "badge_approved"
)

// Fact is an immutable record of a committed workflow event.
type Fact interface {
	Kind() Kind
}

type RegistryInitialized struct {
	Authority           id.AccountID  `json:"authority"`
	GovernanceThreshold uint64        `json:"governance_threshold"`
	ReviewPeriod        time.Duration `json:"review_period"`
}

func (RegistryInitialized) Kind() Kind { return KindRegistryInitialized }

type SubmissionCreated struct {
	SubmissionID id.SubmissionID `json:"submission_id"`
	ProgramID    id.ProgramID    `json:"program_id"`
	Submitter    id.AccountID    `json:"submitter"`
	MetadataURI  string          `json:"metadata_uri"`
	ProposalRef  id.ProposalRef  `json:"proposal_ref,omitempty"`
	ReviewEndsAt time.Time       `json:"review_ends_at"`
}

func (SubmissionCreated) Kind() Kind { return KindSubmissionCreated }

type RiskAssessmentCompleted struct {
	SubmissionID          id.SubmissionID  `json:"submission_id"`
	ProgramID             id.ProgramID     `json:"program_id"`
	RiskScore             uint8            `json:"risk_score"`
	Flags                 models.RiskFlags `json:"flags"`
	AutomatedChecksPassed bool             `json:"automated_checks_passed"`
	RequiresManualReview  bool             `json:"requires_manual_review"`
}

func (RiskAssessmentCompleted) Kind() Kind { return KindRiskAssessmentCompleted }

// VoteCast carries the running totals as of the commit that recorded the
// ballot.
type VoteCast struct {
	SubmissionID id.SubmissionID `json:"submission_id"`
	ProgramID    id.ProgramID    `json:"program_id"`
	Voter        id.AccountID    `json:"voter"`
	Approve      bool            `json:"approve"`
	VotesFor     uint64          `json:"votes_for"`
	VotesAgainst uint64          `json:"votes_against"`
}

func (VoteCast) Kind() Kind { return KindVoteCast }

type ApprovalFinalized struct {
	SubmissionID id.SubmissionID       `json:"submission_id"`
	ProgramID    id.ProgramID          `json:"program_id"`
	Status       models.ApprovalStatus `json:"status"`
	Reason       string                `json:"reason"`
	VotesFor     uint64                `json:"votes_for"`
	VotesAgainst uint64                `json:"votes_against"`
	RiskScore    uint8                 `json:"risk_score"`
}

func (ApprovalFinalized) Kind() Kind { return KindApprovalFinalized }

type StatusUpdated struct {
	SubmissionID id.SubmissionID       `json:"submission_id"`
	ProgramID    id.ProgramID          `json:"program_id"`
	OldStatus    models.ApprovalStatus `json:"old_status"`
	NewStatus    models.ApprovalStatus `json:"new_status"`
	Reason       string                `json:"reason"`
	UpdatedBy    id.AccountID          `json:"updated_by"`
}

func (StatusUpdated) Kind() Kind { return KindStatusUpdated }

type BadgeApproved struct {
	CatalogRef  string       `json:"catalog_ref"`
	AssetRef    string       `json:"asset_ref"`
	HookProgram id.ProgramID `json:"hook_program"`
	ApprovedAt  time.Time    `json:"approved_at"`
}

func (BadgeApproved) Kind() Kind { return KindBadgeApproved }

// Sink receives facts after the owning transaction commits. Implementations
// must tolerate redelivery; the workflow treats publish failures as
// non-fatal and logs them.
type Sink interface {
	Publish(ctx context.Context, fact Fact) error
}

// Discard drops every fact. Default sink when none is configured.
type Discard struct{}

func (Discard) Publish(context.Context, Fact) error { return nil }

// Capture retains published facts in order. Test sink.
type Capture struct {
	mu    sync.Mutex
	facts []Fact
}

func NewCapture() *Capture { return &Capture{} }

func (c *Capture) Publish(_ context.Context, fact Fact) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.facts = append(c.facts, fact)
	return nil
}

// Facts returns a copy of everything published so far.
func (c *Capture) Facts() []Fact {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Fact, len(c.facts))
	copy(out, c.facts)
	return out
}

// Last returns the most recent fact, or nil.
func (c *Capture) Last() Fact {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.facts) == 0 {
		return nil
	}
	return c.facts[len(c.facts)-1]
}
