// Package gateway is the single entry point for player actions. It validates the
// actor, serializes actions per game, runs them against the engine and publishes
// the resulting notifications.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethduel/duel-server-go/internal/address"
	"github.com/ethduel/duel-server-go/internal/game"
	"github.com/ethduel/duel-server-go/internal/game/rules"
	"github.com/ethduel/duel-server-go/internal/notify"
	"go.uber.org/zap"
)

// Kind names an action.
type Kind string

const (
	KindCreateGame      Kind = "createGame"
	KindJoinGame        Kind = "joinGame"
	KindStartGame       Kind = "startGame"
	KindDrawToStartTurn Kind = "drawToStartTurn"
	KindPlayCard        Kind = "playCard"
	KindStakeETH        Kind = "stakeETH"
	KindDeposit         Kind = "depositToColdStorage"
	KindWithdraw        Kind = "withdrawFromColdStorage"
	KindEndTurn         Kind = "endTurn"
)

// Kinds lists every action kind.
var Kinds = []Kind{
	KindCreateGame, KindJoinGame, KindStartGame, KindDrawToStartTurn, KindPlayCard,
	KindStakeETH, KindDeposit, KindWithdraw, KindEndTurn,
}

// Valid reports whether k is a known action kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Action is one player request. Fields irrelevant to Kind are ignored.
type Action struct {
	Kind       Kind   `json:"kind"`
	GameID     string `json:"gameId,omitempty"`
	Actor      string `json:"actor"`
	DeckID     string `json:"deckId,omitempty"`
	HandIndex  int    `json:"handIndex,omitempty"`
	InstanceID uint64 `json:"instanceId,omitempty"`
	Amount     int64  `json:"amount,omitempty"`
}

// Receipt confirms a committed action.
type Receipt struct {
	GameID        string                `json:"gameId"`
	Seq           uint64                `json:"seq"`
	InstanceID    uint64                `json:"instanceId,omitempty"`
	Notifications []notify.Notification `json:"notifications"`
}

// Transient failures. The action was not applied and may be retried.
var (
	ErrBusy    = errors.New("game is busy, retry later")
	ErrTimeout = errors.New("action timed out before it was applied")
)

// ErrUnknownAction rejects an unrecognized Kind.
var ErrUnknownAction = errors.New("unknown action")

// IsRetryable reports whether err is transient. Rule rejections never are.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if rules.CodeOf(err) != "" {
		return false
	}
	return errors.Is(err, ErrBusy) || errors.Is(err, ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Recorder persists committed notifications and finished games.
type Recorder interface {
	AppendNotification(ctx context.Context, n notify.Notification) error
	SaveFinishedGame(ctx context.Context, state *game.StateView) error
}

// Gateway serializes actions per game. Different games never share a slot.
type Gateway struct {
	logger    *zap.Logger
	engine    *game.Engine
	publisher notify.Publisher
	recorder  Recorder
	timeout   time.Duration
	now       func() time.Time

	mu    sync.Mutex
	slots map[string]chan struct{}
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithRecorder persists notifications and finished games.
func WithRecorder(r Recorder) Option {
	return func(g *Gateway) { g.recorder = r }
}

// WithSubmitTimeout bounds how long an action waits for its game's slot.
func WithSubmitTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// New creates a gateway in front of engine.
func New(logger *zap.Logger, engine *game.Engine, publisher notify.Publisher, opts ...Option) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{
		logger:    logger,
		engine:    engine,
		publisher: publisher,
		timeout:   5 * time.Second,
		now:       time.Now,
		slots:     make(map[string]chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Engine returns the engine behind the gateway, for read queries.
func (g *Gateway) Engine() *game.Engine {
	return g.engine
}

// Submit validates, applies and publishes a.
func (g *Gateway) Submit(ctx context.Context, a Action) (*Receipt, error) {
	if !a.Kind.Valid() {
		return nil, fmt.Errorf("%w %q", ErrUnknownAction, a.Kind)
	}
	actor, err := address.Normalize(a.Actor)
	if err != nil {
		return nil, err
	}
	a.Actor = actor

	if a.Kind == KindCreateGame {
		// The new game's slot is held before the game is visible, so nothing can
		// commit on it until GAME_CREATED is published.
		a.GameID = g.engine.ReserveGameID()
	} else if a.GameID == "" {
		return nil, rules.Errorf(rules.CodeGameNotFound, "game id is required")
	}

	release, err := g.acquire(ctx, a.GameID)
	if err != nil {
		return nil, err
	}

	var out game.Outcome
	defer func() {
		release()
		if out.Finished || closedGame(err) || (a.Kind == KindCreateGame && err != nil) {
			g.dropSlot(a.GameID)
		}
	}()

	out, err = g.dispatch(a)
	if err != nil {
		if rules.CodeOf(err) == "" {
			g.logger.Error("action failed",
				zap.String("game_id", a.GameID),
				zap.String("kind", string(a.Kind)),
				zap.Error(err),
			)
		}
		return nil, err
	}
	return g.commit(ctx, out), nil
}

// closedGame reports whether err means no further action can commit on the game.
func closedGame(err error) bool {
	if err == nil {
		return false
	}
	switch rules.CodeOf(err) {
	case rules.CodeGameNotFound, rules.CodeGameIsFinished:
		return true
	}
	return false
}

// ExpireWaitingGames closes games nobody joined within maxAge and releases their
// slots. It returns the expired game ids.
func (g *Gateway) ExpireWaitingGames(maxAge time.Duration) []string {
	expired := g.engine.ExpireWaitingGames(maxAge)
	for _, id := range expired {
		g.dropSlot(id)
	}
	return expired
}

func (g *Gateway) dispatch(a Action) (game.Outcome, error) {
	switch a.Kind {
	case KindCreateGame:
		return g.engine.CreateGameWithID(a.GameID, a.Actor, a.DeckID)
	case KindJoinGame:
		return g.engine.JoinGame(a.GameID, a.Actor, a.DeckID)
	case KindStartGame:
		return g.engine.StartGame(a.GameID, a.Actor)
	case KindDrawToStartTurn:
		return g.engine.DrawToStartTurn(a.GameID, a.Actor)
	case KindPlayCard:
		return g.engine.PlayCard(a.GameID, a.Actor, a.HandIndex)
	case KindStakeETH:
		return g.engine.StakeETH(a.GameID, a.Actor, a.InstanceID, a.Amount)
	case KindDeposit:
		return g.engine.DepositToColdStorage(a.GameID, a.Actor, a.Amount)
	case KindWithdraw:
		return g.engine.WithdrawFromColdStorage(a.GameID, a.Actor, a.Amount)
	case KindEndTurn:
		return g.engine.EndTurn(a.GameID, a.Actor)
	default:
		return game.Outcome{}, fmt.Errorf("%w %q", ErrUnknownAction, a.Kind)
	}
}

// commit publishes and records a committed outcome. Failures here are logged only:
// the action is already applied and observers recover by refreshing.
func (g *Gateway) commit(ctx context.Context, out game.Outcome) *Receipt {
	ns := notify.FromOutcome(out, g.now())
	for _, n := range ns {
		if g.publisher != nil {
			if err := g.publisher.Publish(ctx, n); err != nil {
				g.logger.Warn("failed to publish notification",
					zap.String("game_id", n.GameID),
					zap.Uint64("seq", n.Seq),
					zap.Error(err),
				)
			}
		}
		if g.recorder != nil {
			if err := g.recorder.AppendNotification(ctx, n); err != nil {
				g.logger.Warn("failed to journal notification",
					zap.String("game_id", n.GameID),
					zap.Uint64("seq", n.Seq),
					zap.Error(err),
				)
			}
		}
	}

	if out.Finished {
		g.finish(ctx, out.GameID)
	}

	return &Receipt{
		GameID:        out.GameID,
		Seq:           out.Seq,
		InstanceID:    out.InstanceID,
		Notifications: ns,
	}
}

func (g *Gateway) finish(ctx context.Context, gameID string) {
	if g.recorder != nil {
		state, err := g.engine.GetGameState(gameID)
		if err == nil {
			err = g.recorder.SaveFinishedGame(ctx, state)
		}
		if err != nil {
			g.logger.Warn("failed to persist finished game",
				zap.String("game_id", gameID),
				zap.Error(err),
			)
		}
	}
}

func (g *Gateway) slot(gameID string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.slots[gameID]
	if !ok {
		s = make(chan struct{}, 1)
		g.slots[gameID] = s
	}
	return s
}

func (g *Gateway) dropSlot(gameID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.slots, gameID)
}

func (g *Gateway) slotCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.slots)
}

// acquire waits for the game's slot, bounded by the submit timeout and ctx.
func (g *Gateway) acquire(ctx context.Context, gameID string) (func(), error) {
	s := g.slot(gameID)
	release := func() { <-s }

	select {
	case s <- struct{}{}:
		return release, nil
	default:
	}

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()
	select {
	case s <- struct{}{}:
		return release, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	case <-timer.C:
		return nil, fmt.Errorf("%w: game %s", ErrBusy, gameID)
	}
}
