package rules

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameErrorMatchesByCode(t *testing.T) {
	err := Errorf(CodeNotYourTurn, "player %s is not active", "0xabc")

	assert.True(t, errors.Is(err, ErrNotYourTurn))
	assert.False(t, errors.Is(err, ErrGameNotFound))
	assert.Equal(t, "NOT_YOUR_TURN: player 0xabc is not active", err.Error())
}

func TestGameErrorSurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("apply action: %w", ErrHandFull)

	assert.True(t, errors.Is(wrapped, ErrHandFull))
	assert.Equal(t, CodeHandFull, CodeOf(wrapped))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, Code(""), CodeOf(errors.New("boom")))
	assert.Equal(t, Code(""), CodeOf(nil))
}

func TestFromCodeRoundTrip(t *testing.T) {
	err := FromCode(CodeExceedsWithdrawalLimit, "cap is 1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExceedsWithdrawalLimit))

	assert.NoError(t, FromCode("", ""))

	plain := FromCode("", "transport failure")
	require.Error(t, plain)
	assert.Equal(t, Code(""), CodeOf(plain))
}

func TestRulesValidate(t *testing.T) {
	require.NoError(t, DefaultRules().Validate())

	r := DefaultRules()
	r.InitialHandSize = r.MaxHandSize + 1
	assert.Error(t, r.Validate())

	r = DefaultRules()
	r.WinConditionETH = 0
	assert.Error(t, r.Validate())
}
