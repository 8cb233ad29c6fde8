package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode_WalksWrapChain(t *testing.T) {
	inner := New(CodeConflict, "ballot already exists")
	outer := Wrap(inner, CodeInternal, "cast vote failed")

	assert.True(t, HasCode(outer, CodeInternal))
	assert.True(t, HasCode(outer, CodeConflict))
	assert.False(t, HasCode(outer, CodeNotFound))
}

func TestSentinelIdentity_SurvivesWrapping(t *testing.T) {
	sentinel := New(CodeForbidden, "review period has not ended")
	wrapped := fmt.Errorf("finalize: %w", sentinel)

	require.True(t, errors.Is(wrapped, sentinel))
	assert.True(t, HasCode(wrapped, CodeForbidden))
}

func TestCodeOf(t *testing.T) {
	t.Run("returns outermost code", func(t *testing.T) {
		err := Wrap(New(CodeValidation, "uri too long"), CodeConflict, "rejected")
		assert.Equal(t, CodeConflict, CodeOf(err))
	})

	t.Run("uncoded errors default to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestError_MessageIncludesCause(t *testing.T) {
	err := Wrap(errors.New("connection refused"), CodeUnavailable, "policy read failed")
	assert.Equal(t, "policy read failed: connection refused", err.Error())
}
