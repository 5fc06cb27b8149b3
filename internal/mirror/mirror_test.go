package mirror

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethduel/duel-server-go/internal/game"
	"github.com/ethduel/duel-server-go/internal/game/cards"
	"github.com/ethduel/duel-server-go/internal/game/rules"
	"github.com/ethduel/duel-server-go/internal/gateway"
	"github.com/ethduel/duel-server-go/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	player1 = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	player2 = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

// scriptedSource answers GetGameState from a queue of sequence numbers.
type scriptedSource struct {
	mu     sync.Mutex
	seqs   []uint64
	last   uint64
	err    error
	block  bool
	status game.Status
	calls  int
}

func (s *scriptedSource) GetGameState(ctx context.Context, gameID string) (*game.StateView, error) {
	s.mu.Lock()
	s.calls++
	block, err := s.block, s.err
	if len(s.seqs) > 0 {
		s.last = s.seqs[0]
		s.seqs = s.seqs[1:]
	}
	seq, status := s.last, s.status
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return &game.StateView{
		GameID:  gameID,
		Seq:     seq,
		Status:  status,
		Player1: &game.PlayerView{Player: player1, ETH: int64(seq)},
	}, nil
}

func (s *scriptedSource) GetPlayerHand(context.Context, string, string) ([]game.CardView, error) {
	return []game.CardView{{InstanceID: 1, CardID: "farm"}}, nil
}

func (s *scriptedSource) GetPlayerBattlefield(context.Context, string, string) ([]game.CardView, error) {
	return nil, nil
}

func (s *scriptedSource) set(fn func(s *scriptedSource)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s)
}

func fastConfig() Config {
	return Config{
		PollInterval: 10 * time.Millisecond,
		FetchTimeout: 50 * time.Millisecond,
		RetryBackoff: 5 * time.Millisecond,
	}
}

func TestRefreshReplacesView(t *testing.T) {
	src := &scriptedSource{seqs: []uint64{3}, status: game.StatusActive}
	m := New(zaptest.NewLogger(t), src, "g1", fastConfig())

	assert.Equal(t, StatusEmpty, m.View().Status)
	require.NoError(t, m.Refresh(context.Background()))

	v := m.View()
	assert.Equal(t, StatusSynced, v.Status)
	assert.Equal(t, uint64(3), v.Seq())
	require.Contains(t, v.Hands, player1)
	assert.Equal(t, "farm", v.Hands[player1][0].CardID)
}

func TestRefreshSkipsZonesBeforeStart(t *testing.T) {
	src := &scriptedSource{seqs: []uint64{1}, status: game.StatusWaiting}
	m := New(zaptest.NewLogger(t), src, "g1", fastConfig())

	require.NoError(t, m.Refresh(context.Background()))
	assert.Nil(t, m.View().Hands)
}

func TestRefreshDiscardsOlderSnapshot(t *testing.T) {
	src := &scriptedSource{seqs: []uint64{5, 3}}
	m := New(zaptest.NewLogger(t), src, "g1", fastConfig())

	require.NoError(t, m.Refresh(context.Background()))
	require.NoError(t, m.Refresh(context.Background()))
	assert.Equal(t, uint64(5), m.View().Seq())
	assert.Equal(t, uint64(5), m.LastSeq())
}

func TestRefreshErrorKeepsView(t *testing.T) {
	src := &scriptedSource{seqs: []uint64{2}}
	m := New(zaptest.NewLogger(t), src, "g1", fastConfig())
	require.NoError(t, m.Refresh(context.Background()))

	boom := errors.New("connection refused")
	src.set(func(s *scriptedSource) { s.err = boom })
	err := m.Refresh(context.Background())
	assert.ErrorIs(t, err, boom)

	v := m.View()
	assert.Equal(t, StatusStale, v.Status)
	assert.Equal(t, uint64(2), v.Seq())
	assert.ErrorIs(t, m.LastError(), boom)

	src.set(func(s *scriptedSource) { s.err = nil; s.seqs = []uint64{4} })
	require.NoError(t, m.Refresh(context.Background()))
	assert.Equal(t, StatusSynced, m.Status())
	assert.NoError(t, m.LastError())
}

func TestRefreshIsBoundedByFetchTimeout(t *testing.T) {
	src := &scriptedSource{block: true}
	m := New(zaptest.NewLogger(t), src, "g1", fastConfig())

	start := time.Now()
	err := m.Refresh(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, StatusEmpty, m.Status())
}

func TestAwaitRetriesOnce(t *testing.T) {
	src := &scriptedSource{seqs: []uint64{1, 2}}
	m := New(zaptest.NewLogger(t), src, "g1", fastConfig())

	v, err := m.Await(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), v.Seq())
	assert.Equal(t, StatusSynced, v.Status)
	assert.Equal(t, 2, src.calls)
}

func TestAwaitFallsBackToPending(t *testing.T) {
	src := &scriptedSource{seqs: []uint64{1}}
	m := New(zaptest.NewLogger(t), src, "g1", fastConfig())

	v, err := m.Await(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, v.Status)
	assert.Equal(t, uint64(1), v.Seq())

	src.set(func(s *scriptedSource) { s.err = rules.ErrGameNotFound })
	v, err = m.Await(context.Background(), 10)
	require.NoError(t, err, "startup races are not errors")
	assert.Equal(t, StatusPending, v.Status)
}

func TestOptimisticOverlayIsDiscardedOnRefresh(t *testing.T) {
	src := &scriptedSource{seqs: []uint64{1, 2}}
	m := New(zaptest.NewLogger(t), src, "g1", fastConfig())
	require.NoError(t, m.Refresh(context.Background()))

	m.ApplyOptimistic(func(v *View) { v.State.Player1.ETH += 100 })
	v := m.View()
	assert.True(t, v.Optimistic)
	assert.Equal(t, int64(101), v.State.Player1.ETH)

	require.NoError(t, m.Refresh(context.Background()))
	v = m.View()
	assert.False(t, v.Optimistic)
	assert.Equal(t, int64(2), v.State.Player1.ETH)
}

func TestViewIsACopy(t *testing.T) {
	src := &scriptedSource{seqs: []uint64{1}, status: game.StatusActive}
	m := New(zaptest.NewLogger(t), src, "g1", fastConfig())
	require.NoError(t, m.Refresh(context.Background()))

	v := m.View()
	v.State.Player1.ETH = 999
	v.Hands[player1][0].CardID = "tampered"

	again := m.View()
	assert.Equal(t, int64(1), again.State.Player1.ETH)
	assert.Equal(t, "farm", again.Hands[player1][0].CardID)
}

type closedEvents struct{}

func (closedEvents) Subscribe(context.Context, string) (<-chan notify.Notification, error) {
	ch := make(chan notify.Notification)
	close(ch)
	return ch, nil
}

func TestRunFallsBackToPolling(t *testing.T) {
	src := &scriptedSource{seqs: []uint64{1}}
	m := New(zaptest.NewLogger(t), src, "g1", fastConfig(), WithEvents(closedEvents{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool { return m.LastSeq() == 1 }, time.Second, 5*time.Millisecond)
	src.set(func(s *scriptedSource) { s.seqs = []uint64{7} })
	require.Eventually(t, func() bool { return m.LastSeq() == 7 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRunFollowsAuthorityNotifications(t *testing.T) {
	logger := zaptest.NewLogger(t)
	engine, err := game.NewEngine(logger, rules.DefaultRules(), cards.DefaultCatalog())
	require.NoError(t, err)
	bus := notify.NewBus(logger, 16)
	gw := gateway.New(logger, engine, bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	created, err := gw.Submit(ctx, gateway.Action{Kind: gateway.KindCreateGame, Actor: player1, DeckID: "starter-a"})
	require.NoError(t, err)
	gameID := created.GameID

	cfg := fastConfig()
	cfg.PollInterval = time.Hour
	views := make(chan *View, 16)
	m := New(logger, EngineSource{Engine: engine}, gameID, cfg,
		WithEvents(bus),
		WithOnChange(func(v *View) {
			select {
			case views <- v:
			default:
			}
		}),
	)
	go func() { _ = m.Run(ctx) }()
	require.Eventually(t, func() bool { return m.LastSeq() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return bus.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	_, err = gw.Submit(ctx, gateway.Action{Kind: gateway.KindJoinGame, GameID: gameID, Actor: player2, DeckID: "starter-b"})
	require.NoError(t, err)
	_, err = gw.Submit(ctx, gateway.Action{Kind: gateway.KindStartGame, GameID: gameID, Actor: player2})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return m.LastSeq() == 3 }, time.Second, 5*time.Millisecond)
	v := m.View()
	assert.Equal(t, game.StatusActive, v.State.Status)
	assert.Len(t, v.Hands[player1], 5)
	assert.Len(t, v.Hands[player2], 5)
	assert.NotEmpty(t, views)
}

// interleavingSource commits once right after the first state read, the way a
// concurrent player action lands between a mirror's queries.
type interleavingSource struct {
	EngineSource
	once   sync.Once
	commit func()
}

func (s *interleavingSource) GetGameState(ctx context.Context, gameID string) (*game.StateView, error) {
	state, err := s.EngineSource.GetGameState(ctx, gameID)
	s.once.Do(s.commit)
	return state, err
}

func TestRefreshNeverMixesSequences(t *testing.T) {
	logger := zaptest.NewLogger(t)
	engine, err := game.NewEngine(logger, rules.DefaultRules(), cards.DefaultCatalog())
	require.NoError(t, err)

	created, err := engine.CreateGame(player1, "starter-a")
	require.NoError(t, err)
	gameID := created.GameID
	_, err = engine.JoinGame(gameID, player2, "starter-b")
	require.NoError(t, err)
	_, err = engine.StartGame(gameID, player1)
	require.NoError(t, err)

	src := &interleavingSource{
		EngineSource: EngineSource{Engine: engine},
		commit: func() {
			_, err := engine.DrawToStartTurn(gameID, player1)
			assert.NoError(t, err)
		},
	}
	m := New(logger, src, gameID, fastConfig())
	require.NoError(t, m.Refresh(context.Background()))

	v := m.View()
	assert.Equal(t, uint64(4), v.Seq())
	assert.Equal(t, v.State.Seat(player1).HandSize, len(v.Hands[player1]))
	assert.Len(t, v.Hands[player1], rules.DefaultRules().InitialHandSize+1)
}

func TestRefreshGivesUpWhileGameKeepsMoving(t *testing.T) {
	src := &scriptedSource{seqs: []uint64{2}, status: game.StatusActive}
	m := New(zaptest.NewLogger(t), src, "g1", fastConfig())
	require.NoError(t, m.Refresh(context.Background()))

	src.set(func(s *scriptedSource) { s.seqs = []uint64{3, 4, 5, 6, 7, 8, 9} })
	err := m.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrTornSnapshot)

	v := m.View()
	assert.Equal(t, StatusStale, v.Status)
	assert.Equal(t, uint64(2), v.Seq())
}
