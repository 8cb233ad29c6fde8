package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []ApprovalStatus{
	StatusPending, StatusUnderReview, StatusApproved,
	StatusRejected, StatusSuspended, StatusDeprecated,
}

// TestTransitionTable enumerates every (from, to) pair against the allowed
// set: listed transitions always succeed, everything else always fails, and
// no-ops are always permitted.
func TestTransitionTable(t *testing.T) {
	allowed := map[ApprovalStatus][]ApprovalStatus{
		StatusPending:     {StatusUnderReview, StatusRejected},
		StatusUnderReview: {StatusApproved, StatusRejected},
		StatusApproved:    {StatusSuspended, StatusDeprecated},
		StatusSuspended:   {StatusApproved, StatusDeprecated},
		StatusRejected:    {StatusDeprecated},
		StatusDeprecated:  {},
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := from == to
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestDeprecatedIsTerminal(t *testing.T) {
	for _, to := range allStatuses {
		if to == StatusDeprecated {
			continue
		}
		assert.False(t, StatusDeprecated.CanTransitionTo(to), "deprecated -> %s must be rejected", to)
	}
}

func TestParseStatus(t *testing.T) {
	t.Run("accepts declared statuses", func(t *testing.T) {
		for _, s := range allStatuses {
			parsed, err := ParseStatus(string(s))
			require.NoError(t, err)
			assert.Equal(t, s, parsed)
		}
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		_, err := ParseStatus("archived")
		require.Error(t, err)
	})
}
