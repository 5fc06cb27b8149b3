// Package mirror keeps a read-only local copy of a game hosted by an authority and
// reconciles it from notifications and polling.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethduel/duel-server-go/internal/game"
	"github.com/ethduel/duel-server-go/internal/notify"
	"go.uber.org/zap"
)

// maxFetchAttempts bounds how often a fetch restarts when the game keeps moving.
const maxFetchAttempts = 3

// ErrTornSnapshot means the game committed between the queries of one fetch.
// It is transient; the previous view is kept.
var ErrTornSnapshot = errors.New("game changed during fetch")

// Source answers authoritative queries.
type Source interface {
	GetGameState(ctx context.Context, gameID string) (*game.StateView, error)
	GetPlayerHand(ctx context.Context, gameID, player string) ([]game.CardView, error)
	GetPlayerBattlefield(ctx context.Context, gameID, player string) ([]game.CardView, error)
}

// EventSource streams notifications for a game.
type EventSource interface {
	Subscribe(ctx context.Context, gameID string) (<-chan notify.Notification, error)
}

// Config holds the mirror timings.
type Config struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

// DefaultConfig returns conservative timings.
func DefaultConfig() Config {
	return Config{
		PollInterval: 5 * time.Second,
		FetchTimeout: 3 * time.Second,
		RetryBackoff: 500 * time.Millisecond,
	}
}

// Option configures a Mirror.
type Option func(*Mirror)

// WithEvents enables event-driven refreshes.
func WithEvents(events EventSource) Option {
	return func(m *Mirror) { m.events = events }
}

// WithOnChange registers a callback that receives every new view.
func WithOnChange(fn func(*View)) Option {
	return func(m *Mirror) { m.onChange = fn }
}

// Mirror is a local view of one game. All methods are safe for concurrent use.
type Mirror struct {
	logger   *zap.Logger
	source   Source
	events   EventSource
	gameID   string
	cfg      Config
	onChange func(*View)
	now      func() time.Time

	// refreshMu serializes fetches so responses are applied in request order.
	refreshMu sync.Mutex

	mu        sync.RWMutex
	confirmed *View
	overlay   *View
	lastSeq   uint64
	status    Status
	lastErr   error
}

// New creates a mirror of gameID. Zero config fields fall back to DefaultConfig.
func New(logger *zap.Logger, source Source, gameID string, cfg Config, opts ...Option) *Mirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}
	m := &Mirror{
		logger: logger.With(zap.String("game_id", gameID)),
		source: source,
		gameID: gameID,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GameID returns the mirrored game.
func (m *Mirror) GameID() string {
	return m.gameID
}

// View returns a copy of the current view, including any optimistic overlay.
func (m *Mirror) View() *View {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.viewLocked()
}

func (m *Mirror) viewLocked() *View {
	var v *View
	switch {
	case m.overlay != nil:
		v = m.overlay.Clone()
	case m.confirmed != nil:
		v = m.confirmed.Clone()
	default:
		v = &View{}
	}
	v.Status = m.status
	return v
}

// Status returns the mirror status.
func (m *Mirror) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// LastSeq returns the sequence number of the last accepted snapshot.
func (m *Mirror) LastSeq() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSeq
}

// LastError returns the error of the last failed refresh, cleared on success.
func (m *Mirror) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// Refresh fetches a fresh snapshot and replaces the view with it. A response older
// than the current view is discarded. On error the previous view is kept.
func (m *Mirror) Refresh(ctx context.Context) error {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, m.cfg.FetchTimeout)
	defer cancel()

	next, err := m.fetch(ctx)
	if err != nil {
		m.fail(err)
		return err
	}

	m.mu.Lock()
	if next.Seq() < m.lastSeq {
		m.mu.Unlock()
		m.logger.Debug("discarding out of date snapshot",
			zap.Uint64("seq", next.Seq()),
			zap.Uint64("last_seq", m.lastSeq),
		)
		return nil
	}
	m.confirmed = next
	m.overlay = nil
	m.lastSeq = next.Seq()
	m.status = StatusSynced
	m.lastErr = nil
	view := m.viewLocked()
	m.mu.Unlock()

	m.emit(view)
	return nil
}

// fetch assembles a snapshot whose zones belong to the same Seq as its state. A
// commit landing between the queries restarts the fetch.
func (m *Mirror) fetch(ctx context.Context) (*View, error) {
	for attempt := 1; ; attempt++ {
		view, err := m.fetchOnce(ctx)
		if !errors.Is(err, ErrTornSnapshot) || attempt >= maxFetchAttempts {
			return view, err
		}
		m.logger.Debug("game moved during fetch, retrying", zap.Int("attempt", attempt))
	}
}

func (m *Mirror) fetchOnce(ctx context.Context) (*View, error) {
	state, err := m.source.GetGameState(ctx, m.gameID)
	if err != nil {
		return nil, fmt.Errorf("fetch game state: %w", err)
	}
	view := &View{
		State:     state,
		FetchedAt: m.now(),
	}
	if state.Status != game.StatusActive && state.Status != game.StatusFinished {
		return view, nil
	}

	view.Hands = make(map[string][]game.CardView, 2)
	view.Battlefields = make(map[string][]game.CardView, 2)
	for _, seat := range []*game.PlayerView{state.Player1, state.Player2} {
		if seat == nil {
			continue
		}
		hand, err := m.source.GetPlayerHand(ctx, m.gameID, seat.Player)
		if err != nil {
			return nil, fmt.Errorf("fetch hand of %s: %w", seat.Player, err)
		}
		battlefield, err := m.source.GetPlayerBattlefield(ctx, m.gameID, seat.Player)
		if err != nil {
			return nil, fmt.Errorf("fetch battlefield of %s: %w", seat.Player, err)
		}
		view.Hands[seat.Player] = hand
		view.Battlefields[seat.Player] = battlefield
	}

	// Finished games no longer change.
	if state.Status == game.StatusFinished {
		return view, nil
	}
	after, err := m.source.GetGameState(ctx, m.gameID)
	if err != nil {
		return nil, fmt.Errorf("confirm game state: %w", err)
	}
	if after.Seq != state.Seq {
		return nil, fmt.Errorf("%w: seq %d became %d", ErrTornSnapshot, state.Seq, after.Seq)
	}
	return view, nil
}

func (m *Mirror) fail(err error) {
	m.mu.Lock()
	m.lastErr = err
	if m.confirmed != nil {
		m.status = StatusStale
	}
	m.mu.Unlock()

	m.logger.Warn("refresh failed, keeping previous view", zap.Error(err))
}

// Await refreshes until the view reaches minSeq. It retries once after RetryBackoff;
// if the update is still not visible the mirror becomes StatusPending and the
// current view is returned without error. Only ctx cancellation is an error.
func (m *Mirror) Await(ctx context.Context, minSeq uint64) (*View, error) {
	if err := m.Refresh(ctx); err == nil && m.LastSeq() >= minSeq {
		return m.View(), nil
	}

	timer := time.NewTimer(m.cfg.RetryBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return m.View(), ctx.Err()
	case <-timer.C:
	}

	if err := m.Refresh(ctx); err == nil && m.LastSeq() >= minSeq {
		return m.View(), nil
	}

	m.mu.Lock()
	m.status = StatusPending
	view := m.viewLocked()
	m.mu.Unlock()

	m.logger.Info("update not visible yet, marking view pending",
		zap.Uint64("min_seq", minSeq),
		zap.Uint64("last_seq", view.Seq()),
	)
	return view, nil
}

// ApplyOptimistic applies delta to a copy of the confirmed view. The overlay is
// discarded on the next successful refresh whatever the authority returns.
func (m *Mirror) ApplyOptimistic(delta func(*View)) {
	m.mu.Lock()
	base := m.confirmed
	if m.overlay != nil {
		base = m.overlay
	}
	next := base.Clone()
	if next == nil {
		next = &View{}
	}
	delta(next)
	next.Optimistic = true
	m.overlay = next
	view := m.viewLocked()
	m.mu.Unlock()

	m.emit(view)
}

// Run keeps the view current until ctx ends. Notifications newer than the view
// trigger a refresh; the poll ticker covers lost notifications and becomes the only
// driver when the event stream closes.
func (m *Mirror) Run(ctx context.Context) error {
	if err := m.Refresh(ctx); err != nil {
		m.logger.Debug("initial refresh failed", zap.Error(err))
	}

	events := m.subscribe(ctx)
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case n, ok := <-events:
			if !ok {
				m.logger.Info("notification stream closed, falling back to polling")
				events = nil
				continue
			}
			if n.Seq <= m.LastSeq() {
				continue
			}
			if err := m.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Debug("event refresh failed", zap.Error(err))
			}

		case <-ticker.C:
			if events == nil && m.events != nil {
				events = m.subscribe(ctx)
			}
			if err := m.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Debug("poll refresh failed", zap.Error(err))
			}
		}
	}
}

// subscribe returns nil when events are disabled or unavailable; a nil channel
// blocks forever in select.
func (m *Mirror) subscribe(ctx context.Context) <-chan notify.Notification {
	if m.events == nil {
		return nil
	}
	ch, err := m.events.Subscribe(ctx, m.gameID)
	if err != nil {
		m.logger.Warn("failed to subscribe to notifications", zap.Error(err))
		return nil
	}
	return ch
}

func (m *Mirror) emit(view *View) {
	if m.onChange != nil {
		m.onChange(view)
	}
}
