// Package client talks to a remote duel authority over gRPC. It implements the
// mirror's Source and EventSource so a remote game can be mirrored locally.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ethduel/duel-server-go/internal/game"
	"github.com/ethduel/duel-server-go/internal/gateway"
	"github.com/ethduel/duel-server-go/internal/notify"
	"github.com/ethduel/duel-server-go/internal/wire"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var watchStream = grpc.StreamDesc{
	StreamName:    wire.MethodWatchGame,
	ServerStreams: true,
}

// Client is a connection to one authority. It is safe for concurrent use.
type Client struct {
	conn   *grpc.ClientConn
	logger *zap.Logger
	buffer int
}

// Option configures a Client.
type Option func(*options)

type options struct {
	dialOpts []grpc.DialOption
	buffer   int
}

// WithDialOptions appends gRPC dial options, e.g. transport credentials.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) { o.dialOpts = append(o.dialOpts, opts...) }
}

// WithEventBuffer sizes the channels returned by Subscribe.
func WithEventBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.buffer = n
		}
	}
}

// Dial connects to target. Without WithDialOptions the connection is insecure.
func Dial(target string, logger *zap.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{buffer: 64}
	for _, opt := range opts {
		opt(&o)
	}

	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                30 * time.Second,
			Timeout:             10 * time.Second,
			PermitWithoutStream: false,
		}),
	}
	dialOpts = append(dialOpts, o.dialOpts...)
	dialOpts = append(dialOpts, grpc.WithDefaultCallOptions(grpc.CallContentSubtype(wire.CodecName)))

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", target, err)
	}
	return &Client{conn: conn, logger: logger, buffer: o.buffer}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Submit sends a as the RPC matching its kind. Rejections come back as
// rules.GameError; transient failures satisfy gateway.IsRetryable.
func (c *Client) Submit(ctx context.Context, a gateway.Action) (*gateway.Receipt, error) {
	method, ok := wire.ActionMethods[a.Kind]
	if !ok {
		return nil, fmt.Errorf("%w %q", gateway.ErrUnknownAction, a.Kind)
	}
	req := &wire.ActionRequest{
		GameID:     a.GameID,
		Actor:      a.Actor,
		DeckID:     a.DeckID,
		HandIndex:  a.HandIndex,
		InstanceID: a.InstanceID,
		Amount:     a.Amount,
	}
	if a.Actor != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, wire.PlayerHeader, a.Actor)
	}

	var resp wire.ActionResponse
	if err := c.invoke(ctx, method, req, &resp); err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Receipt(), nil
}

func (c *Client) CreateGame(ctx context.Context, actor, deckID string) (*gateway.Receipt, error) {
	return c.Submit(ctx, gateway.Action{Kind: gateway.KindCreateGame, Actor: actor, DeckID: deckID})
}

func (c *Client) JoinGame(ctx context.Context, gameID, actor, deckID string) (*gateway.Receipt, error) {
	return c.Submit(ctx, gateway.Action{Kind: gateway.KindJoinGame, GameID: gameID, Actor: actor, DeckID: deckID})
}

func (c *Client) StartGame(ctx context.Context, gameID, actor string) (*gateway.Receipt, error) {
	return c.Submit(ctx, gateway.Action{Kind: gateway.KindStartGame, GameID: gameID, Actor: actor})
}

func (c *Client) DrawToStartTurn(ctx context.Context, gameID, actor string) (*gateway.Receipt, error) {
	return c.Submit(ctx, gateway.Action{Kind: gateway.KindDrawToStartTurn, GameID: gameID, Actor: actor})
}

func (c *Client) PlayCard(ctx context.Context, gameID, actor string, handIndex int) (*gateway.Receipt, error) {
	return c.Submit(ctx, gateway.Action{Kind: gateway.KindPlayCard, GameID: gameID, Actor: actor, HandIndex: handIndex})
}

func (c *Client) StakeETH(ctx context.Context, gameID, actor string, instanceID uint64, amount int64) (*gateway.Receipt, error) {
	return c.Submit(ctx, gateway.Action{Kind: gateway.KindStakeETH, GameID: gameID, Actor: actor, InstanceID: instanceID, Amount: amount})
}

func (c *Client) DepositToColdStorage(ctx context.Context, gameID, actor string, amount int64) (*gateway.Receipt, error) {
	return c.Submit(ctx, gateway.Action{Kind: gateway.KindDeposit, GameID: gameID, Actor: actor, Amount: amount})
}

func (c *Client) WithdrawFromColdStorage(ctx context.Context, gameID, actor string, amount int64) (*gateway.Receipt, error) {
	return c.Submit(ctx, gateway.Action{Kind: gateway.KindWithdraw, GameID: gameID, Actor: actor, Amount: amount})
}

func (c *Client) EndTurn(ctx context.Context, gameID, actor string) (*gateway.Receipt, error) {
	return c.Submit(ctx, gateway.Action{Kind: gateway.KindEndTurn, GameID: gameID, Actor: actor})
}

// GetGameState fetches the authoritative state of gameID.
func (c *Client) GetGameState(ctx context.Context, gameID string) (*game.StateView, error) {
	var resp wire.StateResponse
	if err := c.invoke(ctx, wire.MethodGetGameState, &wire.GameRequest{GameID: gameID}, &resp); err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.State, nil
}

func (c *Client) GetCardInstance(ctx context.Context, instanceID uint64) (*game.CardView, error) {
	var resp wire.CardResponse
	if err := c.invoke(ctx, wire.MethodGetCardInstance, &wire.CardRequest{InstanceID: instanceID}, &resp); err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Card, nil
}

func (c *Client) GetPlayerHand(ctx context.Context, gameID, player string) ([]game.CardView, error) {
	return c.zone(ctx, wire.MethodGetPlayerHand, gameID, player)
}

func (c *Client) GetPlayerBattlefield(ctx context.Context, gameID, player string) ([]game.CardView, error) {
	return c.zone(ctx, wire.MethodGetPlayerBattlefield, gameID, player)
}

func (c *Client) zone(ctx context.Context, method, gameID, player string) ([]game.CardView, error) {
	var resp wire.CardsResponse
	if err := c.invoke(ctx, method, &wire.ZoneRequest{GameID: gameID, Player: player}, &resp); err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}
	return resp.Cards, nil
}

func (c *Client) ListGames(ctx context.Context, includeFinished bool) ([]*game.StateView, error) {
	var resp wire.ListGamesResponse
	if err := c.invoke(ctx, wire.MethodListGames, &wire.ListGamesRequest{IncludeFinished: includeFinished}, &resp); err != nil {
		return nil, err
	}
	return resp.Games, nil
}

// VerifyChecksum asks the authority whether checksum matches its current state.
func (c *Client) VerifyChecksum(ctx context.Context, gameID, checksum string) (bool, error) {
	var resp wire.ChecksumResponse
	if err := c.invoke(ctx, wire.MethodVerifyChecksum, &wire.ChecksumRequest{GameID: gameID, Checksum: checksum}, &resp); err != nil {
		return false, err
	}
	if err := resp.Err(); err != nil {
		return false, err
	}
	return resp.Match, nil
}

func (c *Client) GetServerState(ctx context.Context) (*wire.ServerStateResponse, error) {
	var resp wire.ServerStateResponse
	if err := c.invoke(ctx, wire.MethodGetServerState, &wire.ServerStateRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Subscribe streams the notifications of gameID, or of every game when gameID is
// notify.AllGames. The channel closes when ctx ends or the stream breaks; the
// caller is expected to refresh and resubscribe.
func (c *Client) Subscribe(ctx context.Context, gameID string) (<-chan notify.Notification, error) {
	stream, err := c.conn.NewStream(ctx, &watchStream, wire.FullMethod(wire.MethodWatchGame))
	if err != nil {
		return nil, fromStatus(err)
	}
	if err := stream.SendMsg(&wire.WatchRequest{GameID: gameID}); err != nil {
		return nil, fromStatus(err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, fromStatus(err)
	}

	out := make(chan notify.Notification, c.buffer)
	go func() {
		defer close(out)
		for {
			var n notify.Notification
			if err := stream.RecvMsg(&n); err != nil {
				if !errors.Is(err, io.EOF) && ctx.Err() == nil {
					c.logger.Debug("watch stream ended",
						zap.String("game_id", gameID),
						zap.Error(err),
					)
				}
				return
			}
			select {
			case out <- n:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	if err := c.conn.Invoke(ctx, wire.FullMethod(method), req, resp); err != nil {
		return fromStatus(err)
	}
	return nil
}

// fromStatus maps a gRPC status back onto the errors the gateway would return.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	switch st.Code() {
	case codes.Unavailable:
		return fmt.Errorf("%w: %s", gateway.ErrBusy, st.Message())
	case codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", gateway.ErrTimeout, st.Message())
	case codes.Canceled:
		return fmt.Errorf("%w: %s", context.Canceled, st.Message())
	default:
		return err
	}
}
