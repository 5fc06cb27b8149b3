package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultSubjectPrefix roots every subject published by the server.
const DefaultSubjectPrefix = "duel"

// Subject returns <prefix>.game.<gameID>.<kind>. Empty gameID or kind become the
// single-token wildcard.
func Subject(prefix, gameID, kind string) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if gameID == "" {
		gameID = "*"
	}
	if kind == "" {
		kind = "*"
	}
	return strings.Join([]string{prefix, "game", gameID, kind}, ".")
}

// ConnectNATS dials url with an optional token. Disconnects and reconnects are logged.
func ConnectNATS(url, token string, logger *zap.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if url == "" {
		url = nats.DefaultURL
	}

	opts := []nats.Option{
		nats.Name("duel-server"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	return conn, nil
}

// NATSPublisher publishes JSON notifications to per-game subjects.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSPublisher creates a publisher rooted at prefix.
func NewNATSPublisher(conn *nats.Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{conn: conn, prefix: prefix}
}

func (p *NATSPublisher) Publish(_ context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	subject := Subject(p.prefix, n.GameID, string(n.Kind))
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return nil
}

// NATSSource subscribes to notifications published by another process.
type NATSSource struct {
	conn   *nats.Conn
	prefix string
	buffer int
	logger *zap.Logger
}

// NewNATSSource creates a source rooted at prefix.
func NewNATSSource(conn *nats.Conn, prefix string, buffer int, logger *zap.Logger) *NATSSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 64
	}
	return &NATSSource{conn: conn, prefix: prefix, buffer: buffer, logger: logger}
}

// Subscribe streams notifications of gameID until ctx ends. The channel is also
// closed if the subscriber falls behind.
func (s *NATSSource) Subscribe(ctx context.Context, gameID string) (<-chan Notification, error) {
	sink := newChannelSink(s.buffer, s.logger)
	sub, err := s.conn.Subscribe(Subject(s.prefix, gameID, ""), func(msg *nats.Msg) {
		sink.deliver(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to game %s: %w", gameID, err)
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-sink.done:
		}
		if err := sub.Unsubscribe(); err != nil && s.conn.IsConnected() {
			s.logger.Debug("nats unsubscribe failed", zap.Error(err))
		}
		sink.close()
	}()

	return sink.ch, nil
}

// channelSink decodes messages into a bounded channel. Delivery after close is a no-op.
type channelSink struct {
	logger *zap.Logger
	ch     chan Notification
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

func newChannelSink(buffer int, logger *zap.Logger) *channelSink {
	return &channelSink{
		logger: logger,
		ch:     make(chan Notification, buffer),
		done:   make(chan struct{}),
	}
}

func (s *channelSink) deliver(data []byte) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		s.logger.Warn("discarding malformed notification", zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- n:
	default:
		s.logger.Warn("notification subscriber fell behind",
			zap.String("game_id", n.GameID),
			zap.Uint64("seq", n.Seq),
		)
		s.closeLocked()
	}
}

func (s *channelSink) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *channelSink) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
	close(s.done)
}
