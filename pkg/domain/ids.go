// Package domain holds typed identifiers shared across features.
//
// Distinct Go types for each identifier make cross-wiring a compile error:
// a VoterID cannot be passed where a SubmissionID is expected.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "hookwarden/pkg/domain-errors"
)

// SubmissionID identifies one hook submission lifecycle record.
type SubmissionID uuid.UUID

// AccountID identifies a platform account: submitter, voter, assessor or the
// registry authority.
type AccountID uuid.UUID

// ProgramID is the opaque address of the candidate hook program in the
// external execution environment. It is not a UUID; the registry treats it
// as an owned reference it never interprets.
type ProgramID string

// ProposalRef optionally links a submission to a governance proposal.
type ProposalRef string

const maxProgramIDLen = 64

func (id SubmissionID) String() string { return uuid.UUID(id).String() }
func (id SubmissionID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id AccountID) String() string { return uuid.UUID(id).String() }
func (id AccountID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id ProgramID) String() string { return string(id) }
func (id ProgramID) IsZero() bool   { return id == "" }

// NewSubmissionID returns a fresh random submission id.
func NewSubmissionID() SubmissionID { return SubmissionID(uuid.New()) }

// ParseSubmissionID validates and parses a submission id from its string form.
func ParseSubmissionID(raw string) (SubmissionID, error) {
	parsed, err := parseUUID(raw, "submission id")
	return SubmissionID(parsed), err
}

// ParseAccountID validates and parses an account id from its string form.
func ParseAccountID(raw string) (AccountID, error) {
	parsed, err := parseUUID(raw, "account id")
	return AccountID(parsed), err
}

// ParseProgramID validates a candidate program address. The zero value is
// rejected so a default-initialized request can never reference a program.
func ParseProgramID(raw string) (ProgramID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "program id is required")
	}
	if len(raw) > maxProgramIDLen {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "program id exceeds %d characters", maxProgramIDLen)
	}
	return ProgramID(raw), nil
}

func parseUUID(raw, what string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", what)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is not a valid UUID", what)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be the nil UUID", what)
	}
	return parsed, nil
}
