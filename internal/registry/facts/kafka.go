package facts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hookwarden/internal/platform/kafka/producer"
)

// Envelope is the wire form of a fact. Records for the same program share a
// partition key so consumers observe one program's lifecycle in order.
type Envelope struct {
	Kind       Kind            `json:"kind"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// KafkaSink publishes facts to a single topic as JSON envelopes.
type KafkaSink struct {
	producer *producer.Producer
	topic    string
	now      func() time.Time
}

// NewKafkaSink wires a sink to a topic.
func NewKafkaSink(p *producer.Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic, now: time.Now}
}

// Publish serializes and sends the fact.
func (s *KafkaSink) Publish(ctx context.Context, fact Fact) error {
	payload, err := json.Marshal(fact)
	if err != nil {
		return fmt.Errorf("marshal %s fact: %w", fact.Kind(), err)
	}
	envelope, err := json.Marshal(Envelope{
		Kind:       fact.Kind(),
		OccurredAt: s.now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", fact.Kind(), err)
	}
	return s.producer.Send(ctx, s.topic, []byte(partitionKey(fact)), envelope)
}

// partitionKey groups facts by the program they concern.
func partitionKey(fact Fact) string {
	switch f := fact.(type) {
	case SubmissionCreated:
		return f.ProgramID.String()
	case RiskAssessmentCompleted:
		return f.ProgramID.String()
	case VoteCast:
		return f.ProgramID.String()
	case ApprovalFinalized:
		return f.ProgramID.String()
	case StatusUpdated:
		return f.ProgramID.String()
	case BadgeApproved:
		return f.HookProgram.String()
	default:
		return string(fact.Kind())
	}
}
