package game

import (
	"testing"
	"time"

	"github.com/ethduel/duel-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func playScript(h *engineHarness) {
	h.start("alpha", "beta")
	h.must(h.engine.DrawToStartTurn(h.gameID, alice))
	farm := h.must(h.engine.PlayCard(h.gameID, alice, 0))
	h.must(h.engine.StakeETH(h.gameID, alice, farm.InstanceID, 1))
	h.must(h.engine.EndTurn(h.gameID, alice))
}

func TestChecksumIsDeterministic(t *testing.T) {
	a := newEngineHarness(t, rules.DefaultRules())
	b := newEngineHarness(t, rules.DefaultRules(), WithClock(func() time.Time {
		return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	}))
	playScript(a)
	playScript(b)

	assert.Len(t, a.state().Checksum, 64)
	assert.Equal(t, a.state().Checksum, b.state().Checksum, "timestamps must not affect the checksum")
}

func TestChecksumChangesWithState(t *testing.T) {
	h := newEngineHarness(t, rules.DefaultRules())
	h.start("alpha", "beta")
	before := h.state().Checksum

	h.must(h.engine.DrawToStartTurn(h.gameID, alice))
	after := h.state().Checksum
	assert.NotEqual(t, before, after)

	ok, err := h.engine.VerifyChecksum(h.gameID, after)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.engine.VerifyChecksum(h.gameID, before)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCloneIsIndependent(t *testing.T) {
	h := newEngineHarness(t, rules.DefaultRules())
	h.start("alpha", "beta")

	g, err := h.engine.lookup(h.gameID)
	require.NoError(t, err)

	g.mu.Lock()
	cp := g.st.clone()
	g.st.Players[0].Credit(10)
	g.st.Turn.CompleteDraw()
	for _, inst := range g.st.Instances {
		inst.StakedETH = 99
	}
	g.mu.Unlock()

	assert.Equal(t, int64(3), cp.Players[0].ETH)
	assert.True(t, cp.Turn.NeedsToDraw())
	for _, inst := range cp.Instances {
		assert.Zero(t, inst.StakedETH)
	}
}
