package server

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/ethduel/duel-server-go/internal/gateway"
	"github.com/ethduel/duel-server-go/internal/notify"
	"github.com/ethduel/duel-server-go/internal/wire"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

// Message types exchanged over the websocket.
const (
	MessageState        = "state"
	MessageNotification = "notification"
	MessageAction       = "action"
	MessageReceipt      = "receipt"
	MessageError        = "error"
)

// WSMessage is the websocket envelope.
type WSMessage struct {
	Type   string          `json:"type"`
	GameID string          `json:"gameId,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// wsAction is the payload of an inbound action message.
type wsAction struct {
	Kind gateway.Kind `json:"kind"`
	wire.ActionRequest
}

// Client is one websocket connection following a single game.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	gameID string
	player string
}

type directMessage struct {
	client  *Client
	payload []byte
}

// Hub relays game notifications to websocket clients. The run loop owns the
// client set; everything else talks to it over channels.
type Hub struct {
	logger  *zap.Logger
	gateway *gateway.Gateway
	bus     *notify.Bus

	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	direct     chan directMessage
	done       chan struct{}
	count      atomic.Int64
}

// NewHub creates a hub fed by bus.
func NewHub(logger *zap.Logger, gw *gateway.Gateway, bus *notify.Bus) *Hub {
	return &Hub{
		logger:     logger,
		gateway:    gw,
		bus:        bus,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		direct:     make(chan directMessage),
		done:       make(chan struct{}),
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Run relays notifications until ctx ends, then disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	defer h.closeAll()

	events, err := h.bus.Subscribe(ctx, notify.AllGames)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.count.Add(1)
			h.logger.Debug("websocket client registered",
				zap.String("game_id", client.gameID),
				zap.String("player", client.player),
			)
			h.deliver(client, h.stateMessage(client.gameID))

		case client := <-h.unregister:
			h.drop(client)

		case msg := <-h.direct:
			h.deliver(msg.client, msg.payload)

		case n, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				// Dropped for falling behind; clients get a fresh snapshot.
				h.logger.Warn("hub fell behind notifications, resubscribing")
				if events, err = h.bus.Subscribe(ctx, notify.AllGames); err != nil {
					return err
				}
				h.broadcastStates()
				continue
			}
			h.broadcast(n)
		}
	}
}

func (h *Hub) broadcast(n notify.Notification) {
	note := encodeMessage(MessageNotification, n.GameID, n)
	state := h.stateMessage(n.GameID)
	for client := range h.clients {
		if client.gameID != n.GameID {
			continue
		}
		if h.deliver(client, note) {
			h.deliver(client, state)
		}
	}
}

func (h *Hub) broadcastStates() {
	for client := range h.clients {
		h.deliver(client, h.stateMessage(client.gameID))
	}
}

// deliver queues payload for client, dropping the client if its buffer is full.
func (h *Hub) deliver(client *Client, payload []byte) bool {
	if _, ok := h.clients[client]; !ok || payload == nil {
		return false
	}
	select {
	case client.send <- payload:
		return true
	default:
		h.logger.Warn("websocket client too slow, disconnecting",
			zap.String("game_id", client.gameID),
		)
		h.drop(client)
		return false
	}
}

func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.count.Add(-1)
		h.logger.Debug("websocket client unregistered", zap.String("game_id", client.gameID))
	}
}

func (h *Hub) closeAll() {
	for client := range h.clients {
		h.drop(client)
	}
}

func (h *Hub) stateMessage(gameID string) []byte {
	state, err := h.gateway.Engine().GetGameState(gameID)
	if err != nil {
		return encodeMessage(MessageError, gameID, wire.ResultOf(err))
	}
	return encodeMessage(MessageState, gameID, state)
}

// handleMessage serves one inbound message from client.
func (h *Hub) handleMessage(ctx context.Context, client *Client, msg WSMessage) {
	switch msg.Type {
	case MessageAction:
		var in wsAction
		if err := json.Unmarshal(msg.Data, &in); err != nil {
			h.reply(client, encodeMessage(MessageError, client.gameID, wire.Result{Error: "malformed action"}))
			return
		}
		action := in.Action(in.Kind)
		if action.GameID == "" {
			action.GameID = client.gameID
		}
		if action.Actor == "" {
			action.Actor = client.player
		}
		receipt, err := h.gateway.Submit(ctx, action)
		if err != nil {
			h.reply(client, encodeMessage(MessageError, action.GameID, wire.ResultOf(err)))
			return
		}
		h.reply(client, encodeMessage(MessageReceipt, receipt.GameID, receipt))
	case MessageState:
		h.reply(client, h.stateMessage(client.gameID))
	default:
		h.logger.Debug("unknown websocket message", zap.String("type", msg.Type))
		h.reply(client, encodeMessage(MessageError, client.gameID, wire.Result{Error: "unknown message type " + msg.Type}))
	}
}

// reply hands payload to the run loop, which owns client.send.
func (h *Hub) reply(client *Client, payload []byte) {
	select {
	case h.direct <- directMessage{client: client, payload: payload}:
	case <-h.done:
	}
}

func (h *Hub) attach(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) detach(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (c *Client) readPump(ctx context.Context, hub *Hub) {
	defer func() {
		hub.detach(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				hub.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			hub.logger.Debug("malformed websocket message", zap.Error(err))
			continue
		}
		hub.handleMessage(ctx, c, msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func encodeMessage(kind, gameID string, data any) []byte {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	msg, err := json.Marshal(WSMessage{Type: kind, GameID: gameID, Data: raw})
	if err != nil {
		return nil
	}
	return msg
}
