package ledger

import (
	"errors"
	"testing"

	"github.com/ethduel/duel-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlayer() *PlayerState {
	p := NewPlayerState("0xabc", "deck-1", []string{"a", "b", "c"})
	p.Credit(5)
	return p
}

func TestDepositAndWithdrawRespectCap(t *testing.T) {
	p := newTestPlayer()

	require.NoError(t, p.Deposit(5))
	assert.Equal(t, int64(0), p.ETH)
	assert.Equal(t, int64(5), p.ColdStorage)

	err := p.Withdraw(2, 1)
	assert.True(t, errors.Is(err, rules.ErrExceedsWithdrawalLimit))
	assert.Equal(t, int64(5), p.ColdStorage, "rejected withdrawal must not mutate")
	assert.Equal(t, int64(0), p.ColdStorageWithdrawnThisTurn)

	require.NoError(t, p.Withdraw(1, 1))
	assert.Equal(t, int64(1), p.ETH)
	assert.Equal(t, int64(4), p.ColdStorage)
	assert.Equal(t, int64(1), p.ColdStorageWithdrawnThisTurn)

	err = p.Withdraw(1, 1)
	assert.True(t, errors.Is(err, rules.ErrExceedsWithdrawalLimit))

	p.ResetWithdrawals()
	require.NoError(t, p.Withdraw(1, 1))
}

func TestDepositErrors(t *testing.T) {
	p := newTestPlayer()

	assert.True(t, errors.Is(p.Deposit(6), rules.ErrInsufficientETH))
	assert.True(t, errors.Is(p.Deposit(0), rules.ErrInvalidAmount))
	assert.Equal(t, int64(5), p.ETH)
}

func TestWithdrawInsufficientColdStorage(t *testing.T) {
	p := newTestPlayer()
	assert.True(t, errors.Is(p.Withdraw(1, 10), rules.ErrInsufficientColdStorage))
}

func TestSpendAndStake(t *testing.T) {
	p := newTestPlayer()

	assert.True(t, errors.Is(p.Spend(6), rules.ErrInsufficientResources))
	require.NoError(t, p.Spend(2))
	assert.Equal(t, int64(3), p.ETH)

	assert.True(t, errors.Is(p.Stake(0), rules.ErrInvalidStakeAmount))
	assert.True(t, errors.Is(p.Stake(4), rules.ErrInvalidStakeAmount))
	require.NoError(t, p.Stake(3))
	assert.Equal(t, int64(0), p.ETH)
}

func TestDrawAndHandLimits(t *testing.T) {
	p := newTestPlayer()

	card, err := p.PeekDeck()
	require.NoError(t, err)
	assert.Equal(t, "a", card)

	require.NoError(t, p.CanTakeIntoHand(1))
	p.DrawInto(100)
	assert.Equal(t, 2, p.DeckRemaining())
	assert.Equal(t, []uint64{100}, p.Hand)

	assert.True(t, errors.Is(p.CanTakeIntoHand(1), rules.ErrHandFull))

	p.DrawInto(101)
	p.DrawInto(102)
	_, err = p.PeekDeck()
	assert.True(t, errors.Is(err, rules.ErrDeckEmpty))
}

func TestTakeFromHandAndBattlefield(t *testing.T) {
	p := newTestPlayer()
	p.DrawInto(1)
	p.DrawInto(2)
	p.DrawInto(3)

	_, err := p.TakeFromHand(3)
	assert.True(t, errors.Is(err, rules.ErrCardNotInHand))

	id, err := p.TakeFromHand(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id)
	assert.Equal(t, []uint64{1, 3}, p.Hand)

	p.AddToBattlefield(id)
	assert.True(t, p.OnBattlefield(2))
	require.NoError(t, p.RemoveFromBattlefield(2))
	assert.False(t, p.OnBattlefield(2))
	assert.True(t, errors.Is(p.RemoveFromBattlefield(2), rules.ErrCardNotOnBattlefield))
}

func TestCloneIsDeep(t *testing.T) {
	p := newTestPlayer()
	p.DrawInto(1)
	p.AddToBattlefield(9)

	cp := p.Clone()
	p.DrawInto(2)
	p.AddToBattlefield(10)
	p.Credit(100)

	assert.Equal(t, []uint64{1}, cp.Hand)
	assert.Equal(t, []uint64{9}, cp.Battlefield)
	assert.Equal(t, int64(5), cp.ETH)
	assert.Equal(t, 1, cp.DeckIndex)
}
