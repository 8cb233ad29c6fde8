package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"hookwarden/internal/platform/kafka/consumer"
	"hookwarden/internal/registry/facts"
)

// Emitter accepts audit events. Publisher writes the store synchronously;
// QueuedPublisher defers to a Worker.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// FactHandler appends every workflow fact from the fact topic to the audit
// trail. Redelivered facts append again; the trail tolerates duplicates
// rather than dropping records.
type FactHandler struct {
	publisher Emitter
	logger    *slog.Logger
}

func NewFactHandler(publisher Emitter, logger *slog.Logger) *FactHandler {
	return &FactHandler{publisher: publisher, logger: logger}
}

func (h *FactHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var envelope facts.Envelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		// Poison messages are logged and skipped, not retried forever.
		h.logger.WarnContext(ctx, "skipping malformed fact", "topic", msg.Topic, "error", err)
		return nil
	}

	event, err := eventFromEnvelope(envelope)
	if err != nil {
		h.logger.WarnContext(ctx, "skipping unrecognized fact", "kind", envelope.Kind, "error", err)
		return nil
	}
	return h.publisher.Emit(ctx, event)
}

func eventFromEnvelope(envelope facts.Envelope) (Event, error) {
	event := Event{
		Timestamp: envelope.OccurredAt,
		Action:    string(envelope.Kind),
	}

	switch envelope.Kind {
	case facts.KindRegistryInitialized:
		var fact facts.RegistryInitialized
		if err := json.Unmarshal(envelope.Payload, &fact); err != nil {
			return Event{}, err
		}
		event.Actor = fact.Authority.String()
		event.Detail = fmt.Sprintf("threshold=%d review_period=%s", fact.GovernanceThreshold, fact.ReviewPeriod)

	case facts.KindSubmissionCreated:
		var fact facts.SubmissionCreated
		if err := json.Unmarshal(envelope.Payload, &fact); err != nil {
			return Event{}, err
		}
		event.ProgramID = fact.ProgramID
		event.SubmissionID = fact.SubmissionID.String()
		event.Actor = fact.Submitter.String()
		event.Detail = fact.MetadataURI

	case facts.KindRiskAssessmentCompleted:
		var fact facts.RiskAssessmentCompleted
		if err := json.Unmarshal(envelope.Payload, &fact); err != nil {
			return Event{}, err
		}
		event.ProgramID = fact.ProgramID
		event.SubmissionID = fact.SubmissionID.String()
		event.Detail = fmt.Sprintf("score=%d manual_review=%t", fact.RiskScore, fact.RequiresManualReview)

	case facts.KindVoteCast:
		var fact facts.VoteCast
		if err := json.Unmarshal(envelope.Payload, &fact); err != nil {
			return Event{}, err
		}
		event.ProgramID = fact.ProgramID
		event.SubmissionID = fact.SubmissionID.String()
		event.Actor = fact.Voter.String()
		event.Detail = fmt.Sprintf("approve=%t for=%d against=%d", fact.Approve, fact.VotesFor, fact.VotesAgainst)

	case facts.KindApprovalFinalized:
		var fact facts.ApprovalFinalized
		if err := json.Unmarshal(envelope.Payload, &fact); err != nil {
			return Event{}, err
		}
		event.ProgramID = fact.ProgramID
		event.SubmissionID = fact.SubmissionID.String()
		event.Detail = fmt.Sprintf("status=%s for=%d against=%d score=%d", fact.Status, fact.VotesFor, fact.VotesAgainst, fact.RiskScore)
		event.Reason = fact.Reason

	case facts.KindStatusUpdated:
		var fact facts.StatusUpdated
		if err := json.Unmarshal(envelope.Payload, &fact); err != nil {
			return Event{}, err
		}
		event.ProgramID = fact.ProgramID
		event.SubmissionID = fact.SubmissionID.String()
		event.Actor = fact.UpdatedBy.String()
		event.Detail = fmt.Sprintf("%s -> %s", fact.OldStatus, fact.NewStatus)
		event.Reason = fact.Reason

	case facts.KindBadgeApproved:
		var fact facts.BadgeApproved
		if err := json.Unmarshal(envelope.Payload, &fact); err != nil {
			return Event{}, err
		}
		event.ProgramID = fact.HookProgram
		event.Detail = fmt.Sprintf("catalog=%s asset=%s", fact.CatalogRef, fact.AssetRef)

	default:
		return Event{}, fmt.Errorf("unknown fact kind %q", envelope.Kind)
	}
	return event, nil
}
