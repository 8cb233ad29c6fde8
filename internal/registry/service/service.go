// Package service orchestrates the hook approval workflow: submission,
// risk assessment, governance voting, finalization and privileged status
// control. Domain rules live in the models; this layer owns transactions,
// collaborator calls and fact emission.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"hookwarden/internal/probe"
	"hookwarden/internal/registry/facts"
	"hookwarden/internal/registry/metrics"
	"hookwarden/internal/registry/models"
	"hookwarden/internal/registry/store"
	id "hookwarden/pkg/domain"
	dErrors "hookwarden/pkg/domain-errors"
	"hookwarden/pkg/platform/sentinel"
	"hookwarden/pkg/requestcontext"
)

// Service runs the approval workflow. Every mutating operation executes in
// exactly one store transaction; facts publish only after the commit, so
// sinks never observe state that was rolled back.
type Service struct {
	stores  store.Implementation
	prober  probe.Prober
	logger  *slog.Logger
	sink    facts.Sink
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithFactSink(sink facts.Sink) Option {
	return func(s *Service) { s.sink = sink }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New constructs a Service. The prober gates submission: candidates that do
// not exist as executable programs never enter the workflow.
func New(stores store.Implementation, prober probe.Prober, opts ...Option) *Service {
	s := &Service{
		stores: stores,
		prober: prober,
		logger: slog.Default(),
		sink:   facts.Discard{},
		tracer: otel.Tracer("hookwarden/registry"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitRegistry creates the policy singleton. The caller becomes the registry
// authority. Fails with CodeConflict when already initialized.
func (s *Service) InitRegistry(ctx context.Context, governanceThreshold uint64, reviewPeriod time.Duration) (*models.RegistryConfig, error) {
	authority := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx).UTC()

	cfg, err := models.NewRegistryConfig(authority, governanceThreshold, reviewPeriod, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	err = s.stores.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.stores.Configs().Create(ctx, cfg); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "registry is already initialized")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to initialize registry")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, facts.RegistryInitialized{
		Authority:           cfg.Authority,
		GovernanceThreshold: cfg.GovernanceThreshold,
		ReviewPeriod:        cfg.ReviewPeriod,
	})
	s.logger.InfoContext(ctx, "registry initialized",
		"authority", cfg.Authority,
		"governance_threshold", cfg.GovernanceThreshold,
		"review_period", cfg.ReviewPeriod,
	)
	return cfg, nil
}

// UpdatePolicy changes the governance threshold and review period. Authority
// only. Open submissions keep the review deadline they were created with.
func (s *Service) UpdatePolicy(ctx context.Context, governanceThreshold uint64, reviewPeriod time.Duration) (*models.RegistryConfig, error) {
	now := requestcontext.Now(ctx).UTC()

	var updated *models.RegistryConfig
	err := s.stores.RunInTx(ctx, func(ctx context.Context) error {
		cfg, err := s.loadConfig(ctx)
		if err != nil {
			return err
		}
		if err := s.requireAuthority(ctx, cfg); err != nil {
			return err
		}
		if err := cfg.CanUpdatePolicy(governanceThreshold, reviewPeriod); err != nil {
			return dErrors.New(dErrors.CodeValidation, err.Error())
		}
		cfg.ApplyPolicyUpdate(governanceThreshold, reviewPeriod, now)
		if err := s.stores.Configs().Update(ctx, cfg); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update registry policy")
		}
		updated = cfg
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "registry policy updated",
		"governance_threshold", updated.GovernanceThreshold,
		"review_period", updated.ReviewPeriod,
	)
	return updated, nil
}

// GetRegistry returns the policy singleton.
func (s *Service) GetRegistry(ctx context.Context) (*models.RegistryConfig, error) {
	return s.loadConfig(ctx)
}

// Submit enters a candidate hook program into the approval workflow. The
// candidate must exist as an executable program, and a program can only ever
// have one submission.
func (s *Service) Submit(ctx context.Context, programID id.ProgramID, metadataURI string, proposalRef id.ProposalRef) (*models.Submission, error) {
	submitter := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx).UTC()

	info, err := s.prober.Inspect(ctx, programID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "candidate probe failed")
	}
	if !info.Executable {
		return nil, models.ErrProgramNotExecutable
	}

	var submission *models.Submission
	err = s.stores.RunInTx(ctx, func(ctx context.Context) error {
		cfg, err := s.loadConfig(ctx)
		if err != nil {
			return err
		}

		sub, err := models.NewSubmission(id.NewSubmissionID(), programID, submitter, metadataURI, proposalRef, cfg.ReviewPeriod, now)
		if err != nil {
			return err
		}
		if err := s.stores.Submissions().Create(ctx, sub); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return models.ErrDuplicateSubmission
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create submission")
		}

		cfg.RecordSubmission(now)
		if err := s.stores.Configs().Update(ctx, cfg); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update submission counter")
		}
		submission = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, facts.SubmissionCreated{
		SubmissionID: submission.ID,
		ProgramID:    submission.ProgramID,
		Submitter:    submission.Submitter,
		MetadataURI:  submission.MetadataURI,
		ProposalRef:  submission.ProposalRef,
		ReviewEndsAt: submission.ReviewEndsAt,
	})
	if s.metrics != nil {
		s.metrics.IncrementSubmissions()
	}
	s.logger.InfoContext(ctx, "hook submitted for approval",
		"submission_id", submission.ID,
		"program_id", submission.ProgramID,
		"review_ends_at", submission.ReviewEndsAt,
	)
	return submission, nil
}

// Assess records the one-time risk assessment for a submission and advances
// it to under review. Authority only. The probed program id must match the
// submission; re-assessment is rejected.
func (s *Service) Assess(ctx context.Context, submissionID id.SubmissionID, probedProgram id.ProgramID, flags models.RiskFlags) (*models.RiskAssessment, error) {
	assessor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx).UTC()

	var assessment *models.RiskAssessment
	err := s.stores.RunInTx(ctx, func(ctx context.Context) error {
		cfg, err := s.loadConfig(ctx)
		if err != nil {
			return err
		}
		if err := s.requireAuthority(ctx, cfg); err != nil {
			return err
		}

		sub, err := s.findSubmissionForUpdate(ctx, submissionID)
		if err != nil {
			return err
		}
		if sub.ProgramID != probedProgram {
			return models.ErrInvalidProgramID
		}
		// Validate the status move before the first write so a rejected
		// assessment leaves nothing behind.
		if err := sub.CanTransitionTo(models.StatusUnderReview); err != nil {
			return err
		}

		a, err := models.NewRiskAssessment(submissionID, assessor, flags, now)
		if err != nil {
			return err
		}
		if err := s.stores.Assessments().Create(ctx, a); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return models.ErrAssessmentExists
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record assessment")
		}

		if err := sub.RecordAssessment(a.OverallScore, flags.PassesAutomatedChecks(), now); err != nil {
			return err
		}
		if err := s.stores.Submissions().Update(ctx, sub); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update submission")
		}
		assessment = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, facts.RiskAssessmentCompleted{
		SubmissionID:          assessment.SubmissionID,
		ProgramID:             probedProgram,
		RiskScore:             assessment.OverallScore,
		Flags:                 assessment.Flags,
		AutomatedChecksPassed: assessment.Flags.PassesAutomatedChecks(),
		RequiresManualReview:  assessment.RequiresManualReview,
	})
	if s.metrics != nil {
		s.metrics.IncrementAssessments()
		s.metrics.ObserveRiskScore(assessment.OverallScore)
	}
	s.logger.InfoContext(ctx, "risk assessment recorded",
		"submission_id", submissionID,
		"risk_score", assessment.OverallScore,
		"requires_manual_review", assessment.RequiresManualReview,
	)
	return assessment, nil
}

// CastVote records one voter's immutable ballot while the review window is
// open. Distinct voters against the same submission serialize on the vote
// counters through the row lock; two concurrent increments cannot be lost.
func (s *Service) CastVote(ctx context.Context, submissionID id.SubmissionID, approve bool, rationale string) (*models.GovernanceVote, error) {
	voter := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx).UTC()

	var (
		vote *models.GovernanceVote
		sub  *models.Submission
	)
	err := s.stores.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		sub, err = s.findSubmissionForUpdate(ctx, submissionID)
		if err != nil {
			return err
		}
		if sub.Status != models.StatusUnderReview {
			return models.ErrVotingClosed
		}
		if sub.IsReviewPeriodEnded(now) {
			return models.ErrReviewPeriodEnded
		}

		v, err := models.NewGovernanceVote(submissionID, voter, approve, rationale, now)
		if err != nil {
			return err
		}
		if err := s.stores.Votes().Create(ctx, v); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return models.ErrAlreadyVoted
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record vote")
		}

		sub.AddVote(approve, now)
		if err := s.stores.Submissions().Update(ctx, sub); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update vote counters")
		}
		vote = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, facts.VoteCast{
		SubmissionID: submissionID,
		ProgramID:    sub.ProgramID,
		Voter:        voter,
		Approve:      approve,
		VotesFor:     sub.VotesFor,
		VotesAgainst: sub.VotesAgainst,
	})
	if s.metrics != nil {
		s.metrics.IncrementVotes(approve)
	}
	s.logger.InfoContext(ctx, "governance vote cast",
		"submission_id", submissionID,
		"approve", approve,
		"votes_for", sub.VotesFor,
		"votes_against", sub.VotesAgainst,
	)
	return vote, nil
}

// Finalize converts votes and risk into the binding decision once the review
// window has closed. Callable by anyone: the rule depends only on recorded
// state, not on who turns the crank.
func (s *Service) Finalize(ctx context.Context, submissionID id.SubmissionID) (*models.Submission, error) {
	now := requestcontext.Now(ctx).UTC()

	ctx, span := s.tracer.Start(ctx, "registry.Finalize",
		trace.WithAttributes(attribute.String("submission_id", submissionID.String())))
	defer span.End()

	var (
		sub     *models.Submission
		outcome models.FinalizeOutcome
	)
	err := s.stores.RunInTx(ctx, func(ctx context.Context) error {
		cfg, err := s.loadConfig(ctx)
		if err != nil {
			return err
		}

		sub, err = s.findSubmissionForUpdate(ctx, submissionID)
		if err != nil {
			return err
		}
		if !sub.CanBeFinalized() {
			return models.ErrCannotFinalize
		}
		if !sub.IsReviewPeriodEnded(now) {
			return models.ErrReviewPeriodNotEnded
		}

		assessment, err := s.stores.Assessments().FindBySubmission(ctx, submissionID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return models.ErrAssessmentIncomplete
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assessment")
		}

		outcome = models.DecideFinalStatus(sub, assessment, cfg.GovernanceThreshold)
		if err := sub.ApplyStatus(outcome.Status, now); err != nil {
			return err
		}
		if err := s.stores.Submissions().Update(ctx, sub); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to finalize submission")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.String("status", string(outcome.Status)),
		attribute.String("reason", outcome.Reason),
	)

	s.publish(ctx, facts.ApprovalFinalized{
		SubmissionID: sub.ID,
		ProgramID:    sub.ProgramID,
		Status:       sub.Status,
		Reason:       outcome.Reason,
		VotesFor:     sub.VotesFor,
		VotesAgainst: sub.VotesAgainst,
		RiskScore:    sub.RiskScore,
	})
	if s.metrics != nil {
		s.metrics.IncrementFinalizations(string(sub.Status))
	}
	s.logger.InfoContext(ctx, "submission finalized",
		"submission_id", sub.ID,
		"program_id", sub.ProgramID,
		"status", sub.Status,
		"reason", outcome.Reason,
	)

	if sub.Status == models.StatusApproved {
		s.recordApproval(ctx, now)
	}
	return sub, nil
}

// recordApproval bumps the registry-wide approvals counter in its own
// transaction. The counter is a best-effort aggregate, not part of the
// finalize contract; a failed bump is logged and does not undo the decision.
func (s *Service) recordApproval(ctx context.Context, now time.Time) {
	err := s.stores.RunInTx(ctx, func(ctx context.Context) error {
		cfg, err := s.loadConfig(ctx)
		if err != nil {
			return err
		}
		cfg.RecordApproval(now)
		return s.stores.Configs().Update(ctx, cfg)
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to update approval counter", "error", err)
	}
}

// SetStatus applies a privileged out-of-band transition, typically
// suspension or deprecation of an approved hook. Authority only; the same
// transition table as every other status write applies.
func (s *Service) SetStatus(ctx context.Context, submissionID id.SubmissionID, next models.ApprovalStatus, reason string) (*models.Submission, error) {
	actor := requestcontext.Actor(ctx)
	now := requestcontext.Now(ctx).UTC()

	if !next.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown approval status")
	}

	var (
		sub *models.Submission
		old models.ApprovalStatus
	)
	err := s.stores.RunInTx(ctx, func(ctx context.Context) error {
		cfg, err := s.loadConfig(ctx)
		if err != nil {
			return err
		}
		if err := s.requireAuthority(ctx, cfg); err != nil {
			return err
		}

		sub, err = s.findSubmissionForUpdate(ctx, submissionID)
		if err != nil {
			return err
		}
		old = sub.Status
		if err := sub.ApplyStatus(next, now); err != nil {
			return err
		}
		if err := s.stores.Submissions().Update(ctx, sub); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update submission status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, facts.StatusUpdated{
		SubmissionID: sub.ID,
		ProgramID:    sub.ProgramID,
		OldStatus:    old,
		NewStatus:    sub.Status,
		Reason:       reason,
		UpdatedBy:    actor,
	})
	if s.metrics != nil {
		s.metrics.IncrementStatusUpdates(string(sub.Status))
	}
	s.logger.InfoContext(ctx, "submission status updated",
		"submission_id", sub.ID,
		"old_status", old,
		"new_status", sub.Status,
		"reason", reason,
		"updated_by", actor,
	)
	return sub, nil
}

// GetSubmission returns one submission by id.
func (s *Service) GetSubmission(ctx context.Context, submissionID id.SubmissionID) (*models.Submission, error) {
	sub, err := s.stores.Submissions().FindByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.ErrSubmissionNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load submission")
	}
	return sub, nil
}

// GetSubmissionByProgram returns the submission for a candidate program.
func (s *Service) GetSubmissionByProgram(ctx context.Context, programID id.ProgramID) (*models.Submission, error) {
	sub, err := s.stores.Submissions().FindByProgram(ctx, programID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.ErrSubmissionNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load submission")
	}
	return sub, nil
}

// ListSubmissions returns submissions oldest first, optionally filtered.
func (s *Service) ListSubmissions(ctx context.Context, filter store.ListFilter) ([]*models.Submission, error) {
	subs, err := s.stores.Submissions().List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list submissions")
	}
	return subs, nil
}

// GetAssessment returns the risk assessment for a submission.
func (s *Service) GetAssessment(ctx context.Context, submissionID id.SubmissionID) (*models.RiskAssessment, error) {
	a, err := s.stores.Assessments().FindBySubmission(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.ErrAssessmentNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load assessment")
	}
	return a, nil
}

// ListVotes returns the ballots recorded against a submission, oldest first.
func (s *Service) ListVotes(ctx context.Context, submissionID id.SubmissionID) ([]*models.GovernanceVote, error) {
	votes, err := s.stores.Votes().ListBySubmission(ctx, submissionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list votes")
	}
	return votes, nil
}

func (s *Service) loadConfig(ctx context.Context) (*models.RegistryConfig, error) {
	cfg, err := s.stores.Configs().Get(ctx)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.ErrNotInitialized
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registry config")
	}
	return cfg, nil
}

func (s *Service) requireAuthority(ctx context.Context, cfg *models.RegistryConfig) error {
	if requestcontext.Actor(ctx) != cfg.Authority {
		return models.ErrUnauthorized
	}
	return nil
}

func (s *Service) findSubmissionForUpdate(ctx context.Context, submissionID id.SubmissionID) (*models.Submission, error) {
	sub, err := s.stores.Submissions().FindByIDForUpdate(ctx, submissionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.ErrSubmissionNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load submission")
	}
	return sub, nil
}

// publish sends a fact to the sink. Failures are logged, never surfaced: the
// state change has already committed and sinks must tolerate redelivery from
// upstream replay instead.
func (s *Service) publish(ctx context.Context, fact facts.Fact) {
	if err := s.sink.Publish(ctx, fact); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish fact",
			"kind", fact.Kind(),
			"error", err,
		)
	}
}
