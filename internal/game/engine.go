// Package game implements the authoritative duel engine: game lifecycle, the
// turn state machine, the per-player ETH economy and the card instance registry.
package game

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethduel/duel-server-go/internal/game/cards"
	"github.com/ethduel/duel-server-go/internal/game/ledger"
	"github.com/ethduel/duel-server-go/internal/game/rules"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome describes a committed action. The gateway turns it into notifications.
type Outcome struct {
	GameID     string
	Seq        uint64
	Event      rules.EventType
	Actor      string
	InstanceID uint64
	CardID     string
	Amount     int64
	// Destroyed is the opponent instance removed by a Destroy ability, if any.
	Destroyed uint64
	Finished  bool
	Winner    string
}

// Option configures an Engine.
type Option func(*Engine)

// WithReplayDir saves a replay file for every finished game under dir.
func WithReplayDir(dir string) Option {
	return func(e *Engine) { e.replayDir = dir }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithAllocator shares an instance allocator between engines.
func WithAllocator(a *InstanceAllocator) Option {
	return func(e *Engine) { e.alloc = a }
}

// WithIDGenerator overrides uuid game IDs.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// Engine owns every game hosted by this process.
//
// Lock order is Game.mu before Engine.mu. Engine.mu guards only the indexes.
type Engine struct {
	logger  *zap.Logger
	rules   rules.Rules
	catalog *cards.Catalog
	alloc   *InstanceAllocator
	now     func() time.Time
	newID   func() string

	replayDir string

	mu            sync.RWMutex
	games         map[string]*Game
	instanceIndex map[uint64]string
	// seats maps a player to the unfinished game they sit in.
	seats   map[string]string
	replays map[string]*Replay
}

// NewEngine creates an engine for the given rules and catalog.
func NewEngine(logger *zap.Logger, r rules.Rules, catalog *cards.Catalog, opts ...Option) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if catalog == nil {
		return nil, fmt.Errorf("card catalog is required")
	}
	e := &Engine{
		logger:        logger,
		rules:         r,
		catalog:       catalog,
		alloc:         NewInstanceAllocator(0),
		now:           time.Now,
		newID:         func() string { return uuid.NewString() },
		games:         make(map[string]*Game),
		instanceIndex: make(map[uint64]string),
		seats:         make(map[string]string),
		replays:       make(map[string]*Replay),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Rules returns the engine constants.
func (e *Engine) Rules() rules.Rules {
	return e.rules
}

// Catalog returns the card catalog.
func (e *Engine) Catalog() *cards.Catalog {
	return e.catalog
}

func (e *Engine) lookup(gameID string) (*Game, error) {
	e.mu.RLock()
	g, ok := e.games[gameID]
	e.mu.RUnlock()
	if !ok {
		return nil, rules.Errorf(rules.CodeGameNotFound, "game %s not found", gameID)
	}
	return g, nil
}

// CreateGame opens a new game with actor in seat one.
func (e *Engine) CreateGame(actor, deckID string) (Outcome, error) {
	return e.CreateGameWithID(e.newID(), actor, deckID)
}

// ReserveGameID returns an id for CreateGameWithID. Callers that need to order
// work on the game before it becomes visible take the id first.
func (e *Engine) ReserveGameID() string {
	return e.newID()
}

// CreateGameWithID is CreateGame with a caller-chosen id. The game and its first
// replay frame become visible together.
func (e *Engine) CreateGameWithID(id, actor, deckID string) (Outcome, error) {
	if actor == "" {
		return Outcome{}, rules.Errorf(rules.CodeInvalidPlayer, "player address is required")
	}
	deck, ok := e.catalog.Deck(deckID)
	if !ok || len(deck) < e.rules.InitialHandSize {
		return Outcome{}, rules.Errorf(rules.CodeInvalidDeck, "deck %q is not registered", deckID)
	}
	if id == "" {
		return Outcome{}, fmt.Errorf("game id is required")
	}

	now := e.now()
	g := &Game{st: gameState{
		ID:            id,
		Player1:       actor,
		Player1DeckID: deckID,
		CreatedAt:     now,
		Seq:           1,
		Instances:     make(map[uint64]*CardInstance),
	}}
	g.st.Players[0] = ledger.NewPlayerState(actor, deckID, deck)

	replay := NewReplay(id)
	replay.RecordFrame(newReplayFrame(rules.EventGameCreated, actor, e.buildStateView(&g.st)))

	e.mu.Lock()
	if existing, seated := e.seats[actor]; seated {
		e.mu.Unlock()
		return Outcome{}, rules.Errorf(rules.CodeAlreadyInGame, "%s already plays in game %s", actor, existing)
	}
	if _, taken := e.games[id]; taken {
		e.mu.Unlock()
		return Outcome{}, fmt.Errorf("game id %s is already in use", id)
	}
	e.games[id] = g
	e.seats[actor] = id
	e.replays[id] = replay
	e.mu.Unlock()

	e.logger.Info("game created",
		zap.String("game_id", id),
		zap.String("player", actor),
		zap.String("deck_id", deckID),
	)

	return Outcome{
		GameID: id,
		Seq:    1,
		Event:  rules.EventGameCreated,
		Actor:  actor,
	}, nil
}

// ExpireWaitingGames closes games that found no opponent within maxAge and frees
// their creators' seats. Expired games are removed and their ids returned.
func (e *Engine) ExpireWaitingGames(maxAge time.Duration) []string {
	e.mu.RLock()
	candidates := make([]*Game, 0, len(e.games))
	for _, g := range e.games {
		candidates = append(candidates, g)
	}
	e.mu.RUnlock()

	cutoff := e.now().Add(-maxAge)
	var expired []string
	for _, g := range candidates {
		g.mu.Lock()
		st := &g.st
		if st.Player2 != "" || st.IsStarted || st.IsFinished || st.CreatedAt.After(cutoff) {
			g.mu.Unlock()
			continue
		}
		now := e.now()
		st.IsFinished = true
		st.FinishedAt = &now

		e.mu.Lock()
		if e.seats[st.Player1] == st.ID {
			delete(e.seats, st.Player1)
		}
		delete(e.games, st.ID)
		delete(e.replays, st.ID)
		e.mu.Unlock()
		g.mu.Unlock()

		expired = append(expired, st.ID)
		e.logger.Info("waiting game expired",
			zap.String("game_id", st.ID),
			zap.String("player", st.Player1),
			zap.Duration("max_age", maxAge),
		)
	}
	return expired
}

// JoinGame seats actor as player two.
func (e *Engine) JoinGame(gameID, actor, deckID string) (Outcome, error) {
	return e.apply(gameID, actor, rules.EventPlayerJoined, func(st *gameState) (Outcome, error) {
		if actor == "" {
			return Outcome{}, rules.Errorf(rules.CodeInvalidPlayer, "player address is required")
		}
		if st.IsStarted {
			return Outcome{}, rules.Errorf(rules.CodeGameAlreadyStarted, "game %s already started", st.ID)
		}
		if st.Player2 != "" {
			return Outcome{}, rules.Errorf(rules.CodeGameFull, "game %s is full", st.ID)
		}
		if actor == st.Player1 {
			return Outcome{}, rules.Errorf(rules.CodeAlreadyInGame, "%s already plays in game %s", actor, st.ID)
		}
		deck, ok := e.catalog.Deck(deckID)
		if !ok || len(deck) < e.rules.InitialHandSize {
			return Outcome{}, rules.Errorf(rules.CodeInvalidDeck, "deck %q is not registered", deckID)
		}
		if err := e.reserveSeat(actor, st.ID); err != nil {
			return Outcome{}, err
		}
		st.Player2 = actor
		st.Player2DeckID = deckID
		st.Players[1] = ledger.NewPlayerState(actor, deckID, deck)
		return Outcome{}, nil
	})
}

// StartGame deals opening hands and grants the starting balance. Either seated
// player may start a ready game.
func (e *Engine) StartGame(gameID, actor string) (Outcome, error) {
	return e.apply(gameID, actor, rules.EventGameStarted, func(st *gameState) (Outcome, error) {
		if st.IsStarted {
			return Outcome{}, rules.Errorf(rules.CodeGameAlreadyStarted, "game %s already started", st.ID)
		}
		if st.seatOf(actor) < 0 {
			return Outcome{}, rules.Errorf(rules.CodeNotInGame, "%s is not seated in game %s", actor, st.ID)
		}
		if st.Player2 == "" {
			return Outcome{}, rules.Errorf(rules.CodeGameNotActive, "game %s is waiting for an opponent", st.ID)
		}

		for _, p := range st.Players {
			for i := 0; i < e.rules.InitialHandSize; i++ {
				if _, err := e.drawOne(st, p); err != nil {
					return Outcome{}, err
				}
			}
			p.Credit(e.rules.InitialETH)
		}

		now := e.now()
		st.IsStarted = true
		st.StartedAt = &now
		st.Turn = rules.NewTurnManager(st.Player1, st.Player2)
		return Outcome{}, nil
	})
}

// DrawToStartTurn draws the active player's card and pays turn income.
//
// An empty deck does not block the turn: income is still paid and the draw gate
// is cleared. A full hand rejects the draw with HandFull.
func (e *Engine) DrawToStartTurn(gameID, actor string) (Outcome, error) {
	return e.apply(gameID, actor, rules.EventCardDrawn, func(st *gameState) (Outcome, error) {
		p, err := e.activePlayer(st, actor)
		if err != nil {
			return Outcome{}, err
		}
		if !st.Turn.NeedsToDraw() {
			return Outcome{}, rules.Errorf(rules.CodeAlreadyDrawn, "%s already drew this turn", actor)
		}

		var out Outcome
		if p.DeckRemaining() > 0 {
			inst, err := e.drawOne(st, p)
			if err != nil {
				return Outcome{}, err
			}
			out.InstanceID = inst.InstanceID
			out.CardID = inst.CardID
		}

		income := e.turnIncome(st, p)
		p.Credit(income)
		out.Amount = income
		st.Turn.CompleteDraw()
		return out, nil
	})
}

// PlayCard pays for and resolves the card at handIndex.
func (e *Engine) PlayCard(gameID, actor string, handIndex int) (Outcome, error) {
	return e.apply(gameID, actor, rules.EventCardPlayed, func(st *gameState) (Outcome, error) {
		p, err := e.mainPhasePlayer(st, actor)
		if err != nil {
			return Outcome{}, err
		}
		id, err := p.HandAt(handIndex)
		if err != nil {
			return Outcome{}, err
		}
		inst := st.Instances[id]
		tmpl, ok := e.catalog.Template(inst.CardID)
		if !ok {
			return Outcome{}, fmt.Errorf("instance %d references unknown template %q", id, inst.CardID)
		}
		if err := p.Spend(tmpl.Cost); err != nil {
			return Outcome{}, err
		}
		if _, err := p.TakeFromHand(handIndex); err != nil {
			return Outcome{}, err
		}

		inst.TurnPlayed = st.Turn.TurnNumber()
		if tmpl.Category == cards.CategoryOneShot {
			inst.Zone = ZoneDiscard
		} else {
			inst.Zone = ZoneBattlefield
			p.AddToBattlefield(id)
		}

		out := Outcome{InstanceID: id, CardID: inst.CardID, Amount: tmpl.Cost}
		for _, ability := range tmpl.Abilities {
			destroyed, err := e.resolveOnPlay(st, actor, ability)
			if err != nil {
				return Outcome{}, err
			}
			if destroyed != 0 {
				out.Destroyed = destroyed
			}
		}
		return out, nil
	})
}

// StakeETH locks amount into a yield generator the actor owns.
func (e *Engine) StakeETH(gameID, actor string, instanceID uint64, amount int64) (Outcome, error) {
	return e.apply(gameID, actor, rules.EventETHStaked, func(st *gameState) (Outcome, error) {
		p, err := e.mainPhasePlayer(st, actor)
		if err != nil {
			return Outcome{}, err
		}
		inst, ok := st.Instances[instanceID]
		if !ok {
			return Outcome{}, rules.Errorf(rules.CodeCardNotOnBattlefield, "instance %d is not part of game %s", instanceID, st.ID)
		}
		if inst.Owner != actor {
			return Outcome{}, rules.Errorf(rules.CodeNotCardOwner, "instance %d belongs to %s", instanceID, inst.Owner)
		}
		if !p.OnBattlefield(instanceID) {
			return Outcome{}, rules.Errorf(rules.CodeCardNotOnBattlefield, "instance %d is not on the battlefield", instanceID)
		}
		tmpl, ok := e.catalog.Template(inst.CardID)
		if !ok || !tmpl.IsYieldBearing() {
			return Outcome{}, rules.Errorf(rules.CodeNotDeFiCard, "%s cannot be staked", inst.CardID)
		}
		if err := p.Stake(amount); err != nil {
			return Outcome{}, err
		}
		inst.StakedETH += amount
		return Outcome{InstanceID: instanceID, CardID: inst.CardID, Amount: amount}, nil
	})
}

// DepositToColdStorage moves amount from the hot balance into cold storage.
func (e *Engine) DepositToColdStorage(gameID, actor string, amount int64) (Outcome, error) {
	return e.apply(gameID, actor, rules.EventColdStorageDeposit, func(st *gameState) (Outcome, error) {
		p, err := e.mainPhasePlayer(st, actor)
		if err != nil {
			return Outcome{}, err
		}
		if err := p.Deposit(amount); err != nil {
			return Outcome{}, err
		}
		return Outcome{Amount: amount}, nil
	})
}

// WithdrawFromColdStorage moves amount back to the hot balance, bounded by the
// per-turn withdrawal cap.
func (e *Engine) WithdrawFromColdStorage(gameID, actor string, amount int64) (Outcome, error) {
	return e.apply(gameID, actor, rules.EventColdStorageWithdrawal, func(st *gameState) (Outcome, error) {
		p, err := e.mainPhasePlayer(st, actor)
		if err != nil {
			return Outcome{}, err
		}
		if err := p.Withdraw(amount, e.rules.MaxColdStorageWithdrawalPerTurn); err != nil {
			return Outcome{}, err
		}
		return Outcome{Amount: amount}, nil
	})
}

// EndTurn passes the turn to the opponent, who must draw next.
func (e *Engine) EndTurn(gameID, actor string) (Outcome, error) {
	return e.apply(gameID, actor, rules.EventTurnEnded, func(st *gameState) (Outcome, error) {
		if _, err := e.mainPhasePlayer(st, actor); err != nil {
			return Outcome{}, err
		}
		next := st.Turn.EndTurn()
		st.Players[st.seatOf(next)].ResetWithdrawals()
		return Outcome{}, nil
	})
}

// apply runs fn against the game under its write lock. On error the game state is
// restored to the bookmark taken before fn ran. On success the sequence number is
// bumped, the win condition is checked and the indexes are updated.
func (e *Engine) apply(gameID, actor string, event rules.EventType, fn func(st *gameState) (Outcome, error)) (Outcome, error) {
	g, err := e.lookup(gameID)
	if err != nil {
		return Outcome{}, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.st.IsFinished {
		return Outcome{}, rules.Errorf(rules.CodeGameIsFinished, "game %s is finished", gameID)
	}

	bookmark := g.st.clone()
	out, err := fn(&g.st)
	if err != nil {
		g.st = bookmark
		e.logger.Debug("action rejected",
			zap.String("game_id", gameID),
			zap.String("event", string(event)),
			zap.String("player", actor),
			zap.Error(err),
		)
		return Outcome{}, err
	}

	g.st.Seq++
	e.checkWin(&g.st)

	out.GameID = gameID
	out.Seq = g.st.Seq
	out.Event = event
	out.Actor = actor
	out.Finished = g.st.IsFinished
	out.Winner = g.st.Winner

	minted := g.st.minted
	g.st.minted = nil
	e.commitIndexes(&g.st, minted)
	e.record(&g.st, event, actor)

	e.logger.Debug("action committed",
		zap.String("game_id", gameID),
		zap.String("event", string(event)),
		zap.String("player", actor),
		zap.Uint64("seq", out.Seq),
	)
	if out.Finished {
		e.logger.Info("game finished",
			zap.String("game_id", gameID),
			zap.String("winner", out.Winner),
			zap.Uint64("seq", out.Seq),
		)
	}
	return out, nil
}

func (e *Engine) reserveSeat(player, gameID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, seated := e.seats[player]; seated && existing != gameID {
		return rules.Errorf(rules.CodeAlreadyInGame, "%s already plays in game %s", player, existing)
	}
	e.seats[player] = gameID
	return nil
}

func (e *Engine) commitIndexes(st *gameState, minted []uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, id := range minted {
		e.instanceIndex[id] = st.ID
	}
	if st.IsFinished {
		for _, player := range []string{st.Player1, st.Player2} {
			if e.seats[player] == st.ID {
				delete(e.seats, player)
			}
		}
	}
}

func (e *Engine) record(st *gameState, event rules.EventType, actor string) {
	e.mu.RLock()
	replay := e.replays[st.ID]
	e.mu.RUnlock()
	if replay == nil {
		return
	}
	replay.RecordFrame(newReplayFrame(event, actor, e.buildStateView(st)))

	if !st.IsFinished || e.replayDir == "" {
		return
	}
	if err := replay.SaveToFile(e.replayDir); err != nil {
		e.logger.Warn("failed to save replay",
			zap.String("game_id", st.ID),
			zap.Error(err),
		)
		return
	}
	e.logger.Info("saved replay to disk",
		zap.String("game_id", st.ID),
		zap.Int("frame_count", replay.Size()),
		zap.String("directory", e.replayDir),
	)
}

// checkWin finishes the game once a player's cold storage reaches the target.
// Seat one is checked first; only the acting player's balance can change per action.
func (e *Engine) checkWin(st *gameState) {
	if !st.IsStarted || st.IsFinished {
		return
	}
	for _, p := range st.Players {
		if p != nil && p.ColdStorage >= e.rules.WinConditionETH {
			now := e.now()
			st.IsFinished = true
			st.Winner = p.Player
			st.FinishedAt = &now
			return
		}
	}
}

// activePlayer validates that the game is running and actor holds the turn.
func (e *Engine) activePlayer(st *gameState, actor string) (*ledger.PlayerState, error) {
	if !st.IsStarted {
		return nil, rules.Errorf(rules.CodeGameNotStarted, "game %s has not started", st.ID)
	}
	p, err := st.player(actor)
	if err != nil {
		return nil, err
	}
	if !st.Turn.IsActive(actor) {
		return nil, rules.Errorf(rules.CodeNotYourTurn, "it is %s's turn", st.Turn.ActivePlayer())
	}
	return p, nil
}

// mainPhasePlayer is activePlayer plus the draw gate.
func (e *Engine) mainPhasePlayer(st *gameState, actor string) (*ledger.PlayerState, error) {
	p, err := e.activePlayer(st, actor)
	if err != nil {
		return nil, err
	}
	if st.Turn.NeedsToDraw() {
		return nil, rules.Errorf(rules.CodeMustDrawFirst, "%s must draw to start the turn", actor)
	}
	return p, nil
}

// drawOne mints an instance for the front deck slot and puts it in p's hand.
func (e *Engine) drawOne(st *gameState, p *ledger.PlayerState) (*CardInstance, error) {
	cardID, err := p.PeekDeck()
	if err != nil {
		return nil, err
	}
	if err := p.CanTakeIntoHand(e.rules.MaxHandSize); err != nil {
		return nil, err
	}
	inst := &CardInstance{
		CardID:     cardID,
		InstanceID: e.alloc.Next(),
		Owner:      p.Player,
		Zone:       ZoneHand,
	}
	st.Instances[inst.InstanceID] = inst
	st.minted = append(st.minted, inst.InstanceID)
	p.DrawInto(inst.InstanceID)
	return inst, nil
}

// turnIncome is the base per-turn ETH plus every income and yield ability on p's
// battlefield.
func (e *Engine) turnIncome(st *gameState, p *ledger.PlayerState) int64 {
	income := e.rules.ETHPerTurn
	for _, id := range p.Battlefield {
		inst := st.Instances[id]
		tmpl, ok := e.catalog.Template(inst.CardID)
		if !ok {
			continue
		}
		for _, ability := range tmpl.Abilities {
			switch a := ability.(type) {
			case cards.Income:
				income += a.Amount
			case cards.Yield:
				income += inst.StakedETH * a.Multiplier
			case cards.Destroy:
			}
		}
	}
	return income
}

// resolveOnPlay applies an ability's on-play effect and returns the destroyed
// instance, if any. Income and yield are passive.
func (e *Engine) resolveOnPlay(st *gameState, actor string, ability cards.Ability) (uint64, error) {
	switch a := ability.(type) {
	case cards.Income, cards.Yield:
		return 0, nil
	case cards.Destroy:
		opp := st.opponentOf(actor)
		if opp == nil {
			return 0, nil
		}
		for i := len(opp.Battlefield) - 1; i >= 0; i-- {
			target := st.Instances[opp.Battlefield[i]]
			tmpl, ok := e.catalog.Template(target.CardID)
			if !ok || !a.Target.Matches(tmpl.Category) {
				continue
			}
			if err := opp.RemoveFromBattlefield(target.InstanceID); err != nil {
				return 0, err
			}
			target.Zone = ZoneDiscard
			return target.InstanceID, nil
		}
		return 0, nil
	default:
		panic(fmt.Sprintf("unhandled ability %T", ability))
	}
}

// GetGameState returns the public view of a game.
func (e *Engine) GetGameState(gameID string) (*StateView, error) {
	g, err := e.lookup(gameID)
	if err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return e.buildStateView(&g.st), nil
}

// GetCardInstance returns a single instance from whichever game minted it.
func (e *Engine) GetCardInstance(instanceID uint64) (*CardView, error) {
	e.mu.RLock()
	gameID, ok := e.instanceIndex[instanceID]
	e.mu.RUnlock()
	if !ok {
		return nil, rules.Errorf(rules.CodeCardNotFound, "instance %d not found", instanceID)
	}
	g, err := e.lookup(gameID)
	if err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	inst, ok := g.st.Instances[instanceID]
	if !ok {
		return nil, rules.Errorf(rules.CodeCardNotFound, "instance %d not found", instanceID)
	}
	return e.buildCardView(gameID, inst), nil
}

// GetPlayerHand returns player's hand in order.
func (e *Engine) GetPlayerHand(gameID, player string) ([]CardView, error) {
	return e.zoneViews(gameID, player, func(p *ledger.PlayerState) []uint64 { return p.Hand })
}

// GetPlayerBattlefield returns player's battlefield in play order.
func (e *Engine) GetPlayerBattlefield(gameID, player string) ([]CardView, error) {
	return e.zoneViews(gameID, player, func(p *ledger.PlayerState) []uint64 { return p.Battlefield })
}

func (e *Engine) zoneViews(gameID, player string, zone func(*ledger.PlayerState) []uint64) ([]CardView, error) {
	g, err := e.lookup(gameID)
	if err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, err := g.st.player(player)
	if err != nil {
		return nil, err
	}
	ids := zone(p)
	views := make([]CardView, 0, len(ids))
	for _, id := range ids {
		views = append(views, *e.buildCardView(gameID, g.st.Instances[id]))
	}
	return views, nil
}

// ListGames returns every hosted game, oldest first.
func (e *Engine) ListGames() []*StateView {
	e.mu.RLock()
	games := make([]*Game, 0, len(e.games))
	for _, g := range e.games {
		games = append(games, g)
	}
	e.mu.RUnlock()

	views := make([]*StateView, 0, len(games))
	for _, g := range games {
		g.mu.RLock()
		views = append(views, e.buildStateView(&g.st))
		g.mu.RUnlock()
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].CreatedAt.Equal(views[j].CreatedAt) {
			return views[i].GameID < views[j].GameID
		}
		return views[i].CreatedAt.Before(views[j].CreatedAt)
	})
	return views
}

// ActiveGameCount returns the number of games that are not finished.
func (e *Engine) ActiveGameCount() int {
	count := 0
	for _, v := range e.ListGames() {
		if v.Status != StatusFinished {
			count++
		}
	}
	return count
}

// GetReplay returns the in-memory replay of a game.
func (e *Engine) GetReplay(gameID string) (*Replay, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	r, ok := e.replays[gameID]
	return r, ok
}
