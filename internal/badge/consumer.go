package badge

import (
	"context"
	"encoding/json"
	"log/slog"

	"hookwarden/internal/platform/kafka/consumer"
	"hookwarden/internal/registry/facts"
)

// FactHandler keeps the approval cache in step with the workflow by
// consuming finalization and status-update facts from the fact topic.
type FactHandler struct {
	service *Service
	logger  *slog.Logger
}

func NewFactHandler(service *Service, logger *slog.Logger) *FactHandler {
	return &FactHandler{service: service, logger: logger}
}

func (h *FactHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	var envelope facts.Envelope
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		h.logger.WarnContext(ctx, "skipping malformed fact", "topic", msg.Topic, "error", err)
		return nil
	}

	switch envelope.Kind {
	case facts.KindApprovalFinalized:
		var fact facts.ApprovalFinalized
		if err := json.Unmarshal(envelope.Payload, &fact); err != nil {
			h.logger.WarnContext(ctx, "skipping malformed finalization fact", "error", err)
			return nil
		}
		return h.service.RefreshApproval(ctx, fact.ProgramID, fact.Status)

	case facts.KindStatusUpdated:
		var fact facts.StatusUpdated
		if err := json.Unmarshal(envelope.Payload, &fact); err != nil {
			h.logger.WarnContext(ctx, "skipping malformed status fact", "error", err)
			return nil
		}
		return h.service.RefreshApproval(ctx, fact.ProgramID, fact.NewStatus)
	}
	// Other fact kinds do not affect approval state.
	return nil
}
