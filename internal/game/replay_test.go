package game

import (
	"testing"

	"github.com/ethduel/duel-server-go/internal/game/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplayFrameAccess(t *testing.T) {
	r := NewReplay("g")
	assert.Nil(t, r.Last())
	for seq := uint64(1); seq <= 3; seq++ {
		r.RecordFrame(newReplayFrame(rules.EventTurnEnded, alice, &StateView{GameID: "g", Seq: seq}))
	}

	assert.Equal(t, 3, r.Size())
	assert.Equal(t, uint64(1), r.FrameAt(0).Seq)
	assert.Nil(t, r.FrameAt(-1))
	assert.Nil(t, r.FrameAt(7))
	assert.Equal(t, uint64(3), r.Last().Seq)
}

func TestReplayRoundTripThroughFile(t *testing.T) {
	h := newEngineHarness(t, rules.DefaultRules())
	h.start("alpha", "beta")
	h.must(h.engine.DrawToStartTurn(h.gameID, alice))

	live, ok := h.engine.GetReplay(h.gameID)
	require.True(t, ok)
	require.Equal(t, 4, live.Size())

	dir := t.TempDir()
	require.NoError(t, live.SaveToFile(dir))

	loaded, err := LoadReplay(dir, h.gameID)
	require.NoError(t, err)
	require.Equal(t, live.Size(), loaded.Size())

	first := loaded.FrameAt(0)
	assert.Equal(t, rules.EventGameCreated, first.Event)
	assert.Equal(t, StatusWaiting, first.State.Status)

	last := loaded.Last()
	assert.Equal(t, rules.EventCardDrawn, last.Event)
	assert.Equal(t, StatusActive, last.State.Status)
	assert.Equal(t, h.state().Checksum, last.State.Checksum)
}

func TestLoadReplayMissingFile(t *testing.T) {
	_, err := LoadReplay(t.TempDir(), "nope")
	assert.Error(t, err)
}
