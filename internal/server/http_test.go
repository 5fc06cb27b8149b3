package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethduel/duel-server-go/internal/config"
	"github.com/ethduel/duel-server-go/internal/game"
	"github.com/ethduel/duel-server-go/internal/game/cards"
	"github.com/ethduel/duel-server-go/internal/game/rules"
	"github.com/ethduel/duel-server-go/internal/gateway"
	"github.com/ethduel/duel-server-go/internal/notify"
	"github.com/ethduel/duel-server-go/internal/wire"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type httpHarness struct {
	t   *testing.T
	srv *httptest.Server
	hub *Hub
}

func newHTTPHarness(t *testing.T) *httpHarness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	engine, err := game.NewEngine(logger, rules.DefaultRules(), cards.DefaultCatalog())
	require.NoError(t, err)
	bus := notify.NewBus(logger, 32)
	gw := gateway.New(logger, engine, bus)

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(logger, gw, bus)
	go hub.Run(ctx)

	cfg := config.HTTPConfig{AllowedOrigins: []string{"*"}}
	srv := httptest.NewServer(NewHTTPServer(ctx, cfg, gw, hub, logger).Routes())
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &httpHarness{t: t, srv: srv, hub: hub}
}

func (h *httpHarness) do(method, path, actor string, body any) (int, []byte) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, h.srv.URL+path, &buf)
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	if actor != "" {
		req.Header.Set(PlayerHeader, actor)
	}
	resp, err := h.srv.Client().Do(req)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(h.t, err)
	return resp.StatusCode, out.Bytes()
}

func (h *httpHarness) action(actor string, a gateway.Action) (int, *wire.ActionResponse) {
	h.t.Helper()
	code, body := h.do(http.MethodPost, "/v1/actions", actor, a)
	var resp wire.ActionResponse
	require.NoError(h.t, json.Unmarshal(body, &resp))
	return code, &resp
}

func (h *httpHarness) createGame() string {
	h.t.Helper()
	code, resp := h.action(player1, gateway.Action{Kind: gateway.KindCreateGame, DeckID: "starter-a"})
	require.Equal(h.t, http.StatusOK, code, resp.Error)
	return resp.GameID
}

func TestHealth(t *testing.T) {
	h := newHTTPHarness(t)
	code, body := h.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"status":"ok"`)
}

func TestHTTPActionsAndQueries(t *testing.T) {
	h := newHTTPHarness(t)
	gameID := h.createGame()

	code, body := h.do(http.MethodGet, "/v1/games/"+gameID, "", nil)
	require.Equal(t, http.StatusOK, code)
	var state wire.StateResponse
	require.NoError(t, json.Unmarshal(body, &state))
	assert.Equal(t, game.StatusWaiting, state.State.Status)
	assert.Equal(t, player1, state.State.Player1.Player)

	code, resp := h.action(player2, gateway.Action{Kind: gateway.KindJoinGame, GameID: gameID, DeckID: "starter-b"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, uint64(2), resp.Seq)

	code, _ = h.action(player1, gateway.Action{Kind: gateway.KindStartGame, GameID: gameID})
	require.Equal(t, http.StatusOK, code)

	code, body = h.do(http.MethodGet, "/v1/games/"+gameID+"/players/"+strings.ToLower(player1)+"/hand", "", nil)
	require.Equal(t, http.StatusOK, code)
	var hand wire.CardsResponse
	require.NoError(t, json.Unmarshal(body, &hand))
	assert.Len(t, hand.Cards, rules.DefaultRules().InitialHandSize)

	code, body = h.do(http.MethodGet, "/v1/games", "", nil)
	require.Equal(t, http.StatusOK, code)
	var list wire.ListGamesResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list.Games, 1)

	code, body = h.do(http.MethodGet, "/v1/games/"+gameID+"/replay", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), `"frames"`)
}

func TestHTTPErrorMapping(t *testing.T) {
	h := newHTTPHarness(t)
	gameID := h.createGame()

	code, body := h.do(http.MethodGet, "/v1/games/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, string(body), string(rules.CodeGameNotFound))

	code, resp := h.action(player1, gateway.Action{Kind: gateway.KindStartGame, GameID: gameID})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, rules.CodeGameNotActive, resp.Code)

	code, resp = h.action("bogus", gateway.Action{Kind: gateway.KindCreateGame, DeckID: "starter-a"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, rules.CodeInvalidPlayer, resp.Code)

	code, _ = h.action(player2, gateway.Action{Kind: "shuffle"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = h.do(http.MethodGet, "/v1/cards/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, httpStatus(gateway.ErrBusy))
	assert.Equal(t, http.StatusGatewayTimeout, httpStatus(gateway.ErrTimeout))
	assert.Equal(t, http.StatusForbidden, httpStatus(rules.ErrNotInGame))
	assert.Equal(t, http.StatusConflict, httpStatus(rules.ErrHandFull))
	assert.Equal(t, http.StatusInternalServerError, httpStatus(assert.AnError))
}

func readMessage(t *testing.T, conn *websocket.Conn) WSMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestWebSocketFeed(t *testing.T) {
	h := newHTTPHarness(t)
	gameID := h.createGame()

	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/v1/games/" + gameID + "/ws?player=" + strings.ToLower(player2)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readMessage(t, conn)
	require.Equal(t, MessageState, first.Type)
	assert.Equal(t, gameID, first.GameID)
	require.Eventually(t, func() bool { return h.hub.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	// The socket's player is the default actor.
	payload, err := json.Marshal(map[string]any{"kind": gateway.KindJoinGame, "deckId": "starter-b"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(WSMessage{Type: MessageAction, Data: payload}))

	var sawReceipt, sawNotification bool
	for !(sawReceipt && sawNotification) {
		msg := readMessage(t, conn)
		switch msg.Type {
		case MessageReceipt:
			var receipt gateway.Receipt
			require.NoError(t, json.Unmarshal(msg.Data, &receipt))
			assert.Equal(t, uint64(2), receipt.Seq)
			sawReceipt = true
		case MessageNotification:
			var n notify.Notification
			require.NoError(t, json.Unmarshal(msg.Data, &n))
			assert.Equal(t, rules.EventPlayerJoined, n.Kind)
			assert.Equal(t, player2, n.Actor)
			sawNotification = true
		case MessageState:
		default:
			t.Fatalf("unexpected message %s: %s", msg.Type, msg.Data)
		}
	}

	// A rejected action comes back as an error message.
	payload, err = json.Marshal(map[string]any{"kind": gateway.KindEndTurn})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(WSMessage{Type: MessageAction, Data: payload}))
	for {
		msg := readMessage(t, conn)
		if msg.Type != MessageError {
			continue
		}
		var res wire.Result
		require.NoError(t, json.Unmarshal(msg.Data, &res))
		assert.Equal(t, rules.CodeGameNotStarted, res.Code)
		break
	}
}

func TestWebSocketUnknownGame(t *testing.T) {
	h := newHTTPHarness(t)
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/v1/games/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
