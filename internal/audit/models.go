package audit

import (
	"time"

	id "hookwarden/pkg/domain"
)

// Event is one append-only audit trail entry for the approval workflow.
// Events are derived from workflow facts, so the trail reconstructs every
// committed operation against a program.
type Event struct {
	Timestamp    time.Time
	Action       string
	ProgramID    id.ProgramID
	SubmissionID string
	Actor        string
	Detail       string
	Reason       string
}
