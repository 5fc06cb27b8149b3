package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// AllGames subscribes to every game on a Bus.
const AllGames = ""

// ErrBusClosed is returned when subscribing to a closed bus.
var ErrBusClosed = errors.New("notification bus closed")

type subscription struct {
	gameID string
	ch     chan Notification
	done   chan struct{}
}

// Bus fans notifications out to in-process subscribers. A subscriber whose buffer
// is full is dropped and its channel closed; it must resubscribe and refresh.
type Bus struct {
	logger *zap.Logger
	buffer int

	mu     sync.Mutex
	subs   map[string]map[*subscription]struct{}
	closed bool

	// watchers counts goroutines waiting on a subscription to end.
	watchers atomic.Int64
}

// NewBus creates a bus whose subscriber channels hold buffer notifications.
func NewBus(logger *zap.Logger, buffer int) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		logger: logger,
		buffer: buffer,
		subs:   make(map[string]map[*subscription]struct{}),
	}
}

// Subscribe returns a channel of notifications for gameID, or for every game when
// gameID is AllGames. The channel is closed when ctx ends, the bus closes or the
// subscriber falls behind.
func (b *Bus) Subscribe(ctx context.Context, gameID string) (<-chan Notification, error) {
	sub := &subscription{
		gameID: gameID,
		ch:     make(chan Notification, b.buffer),
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBusClosed
	}
	if b.subs[gameID] == nil {
		b.subs[gameID] = make(map[*subscription]struct{})
	}
	b.subs[gameID][sub] = struct{}{}
	b.mu.Unlock()

	b.watchers.Add(1)
	go func() {
		defer b.watchers.Add(-1)
		select {
		case <-ctx.Done():
			b.mu.Lock()
			b.removeLocked(sub)
			b.mu.Unlock()
		case <-sub.done:
		}
	}()

	return sub.ch, nil
}

// Publish delivers n without blocking.
func (b *Bus) Publish(_ context.Context, n Notification) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	b.deliverLocked(b.subs[n.GameID], n)
	if n.GameID != AllGames {
		b.deliverLocked(b.subs[AllGames], n)
	}
	return nil
}

func (b *Bus) deliverLocked(set map[*subscription]struct{}, n Notification) {
	for sub := range set {
		select {
		case sub.ch <- n:
		default:
			b.logger.Warn("dropping slow notification subscriber",
				zap.String("game_id", sub.gameID),
				zap.Uint64("seq", n.Seq),
			)
			b.removeLocked(sub)
		}
	}
}

// removeLocked closes sub once.
func (b *Bus) removeLocked(sub *subscription) {
	set, ok := b.subs[sub.gameID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	close(sub.ch)
	close(sub.done)
	if len(set) == 0 {
		delete(b.subs, sub.gameID)
	}
}

// SubscriberCount returns the number of live subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, set := range b.subs {
		n += len(set)
	}
	return n
}

// Close closes every subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, set := range b.subs {
		for sub := range set {
			b.removeLocked(sub)
		}
	}
}
