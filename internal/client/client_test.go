package client

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/ethduel/duel-server-go/internal/game"
	"github.com/ethduel/duel-server-go/internal/game/cards"
	"github.com/ethduel/duel-server-go/internal/game/rules"
	"github.com/ethduel/duel-server-go/internal/gateway"
	"github.com/ethduel/duel-server-go/internal/mirror"
	"github.com/ethduel/duel-server-go/internal/notify"
	"github.com/ethduel/duel-server-go/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const (
	player1 = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	player2 = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
)

func newTestClient(t *testing.T) (*Client, *notify.Bus) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	engine, err := game.NewEngine(logger, rules.DefaultRules(), cards.DefaultCatalog())
	require.NoError(t, err)
	bus := notify.NewBus(logger, 32)
	gw := gateway.New(logger, engine, bus)

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	server.RegisterDuelServiceServer(srv, server.NewDuelServer(gw, bus, "test", logger))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	c, err := Dial("passthrough:///bufnet", logger, WithDialOptions(
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, bus
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func startGame(t *testing.T, c *Client) string {
	t.Helper()
	ctx := testContext(t)
	created, err := c.CreateGame(ctx, strings.ToLower(player1), "starter-a")
	require.NoError(t, err)
	_, err = c.JoinGame(ctx, created.GameID, player2, "starter-b")
	require.NoError(t, err)
	_, err = c.StartGame(ctx, created.GameID, player1)
	require.NoError(t, err)
	return created.GameID
}

func TestClientPlaysATurn(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := testContext(t)
	gameID := startGame(t, c)

	receipt, err := c.DrawToStartTurn(ctx, gameID, player1)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), receipt.Seq)

	hand, err := c.GetPlayerHand(ctx, gameID, player1)
	require.NoError(t, err)
	assert.Len(t, hand, rules.DefaultRules().InitialHandSize+1)

	state, err := c.GetGameState(ctx, gameID)
	require.NoError(t, err)
	assert.False(t, state.NeedsToDraw)

	match, err := c.VerifyChecksum(ctx, gameID, state.Checksum)
	require.NoError(t, err)
	assert.True(t, match)

	_, err = c.DepositToColdStorage(ctx, gameID, player1, 1)
	require.NoError(t, err)
	_, err = c.WithdrawFromColdStorage(ctx, gameID, player1, 1)
	require.NoError(t, err)

	receipt, err = c.EndTurn(ctx, gameID, player1)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), receipt.Seq)

	state, err = c.GetGameState(ctx, gameID)
	require.NoError(t, err)
	assert.Equal(t, player2, state.CurrentTurn)
	assert.True(t, state.NeedsToDraw)
}

func TestClientReturnsRejections(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := testContext(t)
	gameID := startGame(t, c)

	_, err := c.DrawToStartTurn(ctx, gameID, player2)
	assert.ErrorIs(t, err, rules.ErrNotYourTurn)
	assert.False(t, gateway.IsRetryable(err))

	_, err = c.GetGameState(ctx, "missing")
	assert.ErrorIs(t, err, rules.ErrGameNotFound)

	_, err = c.GetCardInstance(ctx, 424242)
	assert.ErrorIs(t, err, rules.ErrCardNotFound)

	_, err = c.Submit(ctx, gateway.Action{Kind: "shuffle", Actor: player1})
	assert.ErrorIs(t, err, gateway.ErrUnknownAction)
}

func TestClientListsGames(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := testContext(t)
	gameID := startGame(t, c)

	games, err := c.ListGames(ctx, false)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, gameID, games[0].GameID)

	info, err := c.GetServerState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, info.ActiveGames)
}

func TestClientSubscribe(t *testing.T) {
	c, bus := newTestClient(t)
	ctx := testContext(t)
	gameID := startGame(t, c)

	events, err := c.Subscribe(ctx, gameID)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return bus.SubscriberCount() == 1 }, time.Second, 5*time.Millisecond)

	_, err = c.DrawToStartTurn(ctx, gameID, player1)
	require.NoError(t, err)

	select {
	case n := <-events:
		assert.Equal(t, rules.EventCardDrawn, n.Kind)
		assert.Equal(t, uint64(4), n.Seq)
	case <-ctx.Done():
		t.Fatal("no notification received")
	}
}

func TestMirrorOverGRPC(t *testing.T) {
	c, bus := newTestClient(t)
	ctx := testContext(t)
	gameID := startGame(t, c)

	cfg := mirror.DefaultConfig()
	cfg.PollInterval = time.Hour
	m := mirror.New(zaptest.NewLogger(t), c, gameID, cfg, mirror.WithEvents(c))

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = m.Run(runCtx) }()

	require.Eventually(t, func() bool { return m.LastSeq() == 3 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return bus.SubscriberCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	_, err := c.DrawToStartTurn(ctx, gameID, player1)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return m.LastSeq() == 4 }, 2*time.Second, 5*time.Millisecond)
	v := m.View()
	assert.Equal(t, mirror.StatusSynced, v.Status)
	assert.Len(t, v.Hands[player1], rules.DefaultRules().InitialHandSize+1)
}

func TestFromStatus(t *testing.T) {
	err := fromStatus(status.Error(codes.Unavailable, "busy"))
	assert.True(t, gateway.IsRetryable(err))
	assert.ErrorIs(t, err, gateway.ErrBusy)

	err = fromStatus(status.Error(codes.DeadlineExceeded, "slow"))
	assert.ErrorIs(t, err, gateway.ErrTimeout)

	err = fromStatus(status.Error(codes.Internal, "boom"))
	assert.Equal(t, codes.Internal, status.Code(err))
}
