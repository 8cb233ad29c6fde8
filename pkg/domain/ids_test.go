package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "hookwarden/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs".
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseAccountID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseSubmissionID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseAccountID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseSubmissionID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, SubmissionID(valid), id)
	})
}

func TestParseProgramID(t *testing.T) {
	t.Run("rejects empty and whitespace", func(t *testing.T) {
		for _, raw := range []string{"", "   "} {
			_, err := ParseProgramID(raw)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		}
	})

	t.Run("rejects overlong address", func(t *testing.T) {
		_, err := ParseProgramID(strings.Repeat("a", maxProgramIDLen+1))
		require.Error(t, err)
	})

	t.Run("trims and accepts", func(t *testing.T) {
		id, err := ParseProgramID("  hook-prog-7f3a  ")
		require.NoError(t, err)
		assert.Equal(t, ProgramID("hook-prog-7f3a"), id)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety between id
// kinds. If this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	accountID := AccountID(uuid.New())
	submissionID := SubmissionID(uuid.New())

	// These would fail to compile if types were interchangeable:
	// var _ AccountID = submissionID   // compile error
	// var _ SubmissionID = accountID   // compile error

	assert.NotEqual(t, uuid.UUID(accountID), uuid.UUID(submissionID))
}
