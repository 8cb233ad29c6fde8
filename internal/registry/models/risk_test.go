package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allFlagCombinations() []RiskFlags {
	combos := make([]RiskFlags, 0, 256)
	for i := 0; i < 256; i++ {
		combos = append(combos, RiskFlags{
			HasUpgradeAuthority:   i&1 != 0,
			IsVerifiedBuild:       i&2 != 0,
			PerformsTransfers:     i&4 != 0,
			RequestsManyResources: i&8 != 0,
			CanBlockTransfers:     i&16 != 0,
			IsAudited:             i&32 != 0,
			SourceCodeAvailable:   i&64 != 0,
			FollowsBestPractices:  i&128 != 0,
		})
	}
	return combos
}

func TestScore_DeterministicAndBounded(t *testing.T) {
	for _, flags := range allFlagCombinations() {
		score := flags.Score()
		assert.LessOrEqual(t, score, uint8(100))
		assert.Equal(t, score, flags.Score(), "score must be deterministic for %+v", flags)
	}
}

// TestScore_Monotonicity: adding a penalizing flag never decreases the score;
// adding a mitigating flag never increases it.
func TestScore_Monotonicity(t *testing.T) {
	penalize := []func(*RiskFlags){
		func(f *RiskFlags) { f.HasUpgradeAuthority = true },
		func(f *RiskFlags) { f.PerformsTransfers = true },
		func(f *RiskFlags) { f.RequestsManyResources = true },
		func(f *RiskFlags) { f.CanBlockTransfers = true },
	}
	mitigate := []func(*RiskFlags){
		func(f *RiskFlags) { f.IsVerifiedBuild = true },
		func(f *RiskFlags) { f.IsAudited = true },
		func(f *RiskFlags) { f.SourceCodeAvailable = true },
		func(f *RiskFlags) { f.FollowsBestPractices = true },
	}

	for _, base := range allFlagCombinations() {
		baseScore := base.Score()
		for _, set := range penalize {
			flags := base
			set(&flags)
			assert.GreaterOrEqual(t, flags.Score(), baseScore)
		}
		for _, set := range mitigate {
			flags := base
			set(&flags)
			assert.LessOrEqual(t, flags.Score(), baseScore)
		}
	}
}

func TestScore_KnownWeights(t *testing.T) {
	tests := []struct {
		name  string
		flags RiskFlags
		want  uint8
	}{
		{"no flags", RiskFlags{}, 0},
		{"all penalties", RiskFlags{HasUpgradeAuthority: true, PerformsTransfers: true, RequestsManyResources: true, CanBlockTransfers: true}, 70},
		{"credits saturate at zero", RiskFlags{IsVerifiedBuild: true, IsAudited: true, SourceCodeAvailable: true, FollowsBestPractices: true}, 0},
		{"penalties then credits", RiskFlags{HasUpgradeAuthority: true, PerformsTransfers: true, IsAudited: true}, 20},
		{"upgrade authority only", RiskFlags{HasUpgradeAuthority: true}, 15},
		{"transfers minus verified build", RiskFlags{PerformsTransfers: true, IsVerifiedBuild: true}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.flags.Score())
		})
	}
}

func TestClassificationThresholds(t *testing.T) {
	assert.True(t, IsLowRisk(30))
	assert.False(t, IsLowRisk(31))
	assert.True(t, IsHighRisk(70))
	assert.False(t, IsHighRisk(69))

	assert.InDelta(t, 0.75, RequiredApprovalRatio(80), 0)
	assert.InDelta(t, 0.60, RequiredApprovalRatio(50), 0)
}

func TestRequiresManualReview(t *testing.T) {
	// 15+25+10+20 = 70 > 60
	high := RiskFlags{HasUpgradeAuthority: true, PerformsTransfers: true, RequestsManyResources: true, CanBlockTransfers: true}
	assert.True(t, high.RequiresManualReview())

	// 25+20 = 45, audited -20 = 25
	medium := RiskFlags{PerformsTransfers: true, CanBlockTransfers: true, IsAudited: true}
	assert.False(t, medium.RequiresManualReview())
}

func TestPassesAutomatedChecks(t *testing.T) {
	t.Run("requires public source", func(t *testing.T) {
		assert.False(t, RiskFlags{}.PassesAutomatedChecks())
	})

	t.Run("clean candidate passes", func(t *testing.T) {
		flags := RiskFlags{SourceCodeAvailable: true, IsVerifiedBuild: true}
		assert.True(t, flags.PassesAutomatedChecks())
	})

	t.Run("transfer capability disqualifies regardless of score", func(t *testing.T) {
		flags := RiskFlags{SourceCodeAvailable: true, PerformsTransfers: true, IsAudited: true, IsVerifiedBuild: true, FollowsBestPractices: true}
		require.LessOrEqual(t, flags.Score(), uint8(40))
		assert.False(t, flags.PassesAutomatedChecks())
	})

	t.Run("censorship capability disqualifies", func(t *testing.T) {
		flags := RiskFlags{SourceCodeAvailable: true, CanBlockTransfers: true, IsAudited: true}
		assert.False(t, flags.PassesAutomatedChecks())
	})

	t.Run("score cutoff never fires on its own", func(t *testing.T) {
		// Without transfers or blocking the worst penalties are
		// upgrade authority and resource count, and public source is
		// required, so every candidate that clears the capability
		// gates already scores at most 15. The cutoff can only reject
		// together with a capability gate.
		for _, flags := range allFlagCombinations() {
			if flags.PerformsTransfers || flags.CanBlockTransfers || !flags.SourceCodeAvailable {
				continue
			}
			require.LessOrEqual(t, flags.Score(), uint8(40))
			assert.True(t, flags.PassesAutomatedChecks())
		}
	})
}

func TestAssessmentNotes(t *testing.T) {
	t.Run("mentions each indicator", func(t *testing.T) {
		flags := RiskFlags{IsVerifiedBuild: true, SourceCodeAvailable: true, HasUpgradeAuthority: true}
		notes := AssessmentNotes(flags)
		assert.Contains(t, notes, "verified build")
		assert.Contains(t, notes, "source code publicly available")
		assert.Contains(t, notes, "upgrade authority present")
	})

	t.Run("empty flags produce the fallback note", func(t *testing.T) {
		assert.Contains(t, AssessmentNotes(RiskFlags{}), "manual review recommended")
	})

	t.Run("never exceeds the notes bound", func(t *testing.T) {
		for _, flags := range allFlagCombinations() {
			assert.LessOrEqual(t, len(AssessmentNotes(flags)), MaxNotesLen)
		}
	})
}
