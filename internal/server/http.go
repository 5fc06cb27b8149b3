package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethduel/duel-server-go/internal/address"
	"github.com/ethduel/duel-server-go/internal/config"
	"github.com/ethduel/duel-server-go/internal/game"
	"github.com/ethduel/duel-server-go/internal/game/rules"
	"github.com/ethduel/duel-server-go/internal/gateway"
	"github.com/ethduel/duel-server-go/internal/wire"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// PlayerHeader is the HTTP form of wire.PlayerHeader.
const PlayerHeader = "X-Player-Address"

// HTTPServer serves the JSON API and the websocket feed.
type HTTPServer struct {
	ctx      context.Context
	logger   *zap.Logger
	gateway  *gateway.Gateway
	engine   *game.Engine
	hub      *Hub
	cfg      config.HTTPConfig
	upgrader websocket.Upgrader
}

// NewHTTPServer creates the HTTP API. ctx bounds websocket sessions.
func NewHTTPServer(ctx context.Context, cfg config.HTTPConfig, gw *gateway.Gateway, hub *Hub, logger *zap.Logger) *HTTPServer {
	s := &HTTPServer{
		ctx:     ctx,
		logger:  logger,
		gateway: gw,
		engine:  gw.Engine(),
		hub:     hub,
		cfg:     cfg,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Routes builds the router.
func (s *HTTPServer) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", PlayerHeader},
		MaxAge:         300,
	}))
	if s.cfg.RateLimit > 0 {
		r.Use(httprate.LimitByIP(s.cfg.RateLimit, time.Minute))
	}

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/server", s.handleServerState)
		r.Post("/actions", s.handleAction)
		r.Get("/cards/{instanceID}", s.handleCard)

		r.Get("/games", s.handleListGames)
		r.Route("/games/{gameID}", func(r chi.Router) {
			r.Get("/", s.handleGameState)
			r.Get("/verify", s.handleVerify)
			r.Get("/replay", s.handleReplay)
			r.Get("/players/{player}/hand", s.handleZone(s.engine.GetPlayerHand))
			r.Get("/players/{player}/battlefield", s.handleZone(s.engine.GetPlayerBattlefield))
			r.Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"activeGames": s.engine.ActiveGameCount(),
	})
}

func (s *HTTPServer) handleServerState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"activeGames": s.engine.ActiveGameCount(),
		"hostedGames": len(s.engine.ListGames()),
		"wsClients":   s.hub.ClientCount(),
		"serverTime":  time.Now().UTC(),
	})
}

func (s *HTTPServer) handleAction(w http.ResponseWriter, r *http.Request) {
	var action gateway.Action
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		writeJSON(w, http.StatusBadRequest, wire.Result{Error: "malformed action body"})
		return
	}
	if actor := strings.TrimSpace(r.Header.Get(PlayerHeader)); actor != "" {
		action.Actor = actor
	}

	receipt, err := s.gateway.Submit(r.Context(), action)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &wire.ActionResponse{
		Result:        wire.OK,
		GameID:        receipt.GameID,
		Seq:           receipt.Seq,
		InstanceID:    receipt.InstanceID,
		Notifications: receipt.Notifications,
	})
}

func (s *HTTPServer) handleListGames(w http.ResponseWriter, r *http.Request) {
	includeFinished, _ := strconv.ParseBool(r.URL.Query().Get("include_finished"))
	all := s.engine.ListGames()
	games := make([]*game.StateView, 0, len(all))
	for _, v := range all {
		if v.IsFinished && !includeFinished {
			continue
		}
		games = append(games, v)
	}
	writeJSON(w, http.StatusOK, &wire.ListGamesResponse{Games: games})
}

func (s *HTTPServer) handleGameState(w http.ResponseWriter, r *http.Request) {
	state, err := s.engine.GetGameState(chi.URLParam(r, "gameID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &wire.StateResponse{Result: wire.OK, State: state})
}

func (s *HTTPServer) handleVerify(w http.ResponseWriter, r *http.Request) {
	match, err := s.engine.VerifyChecksum(chi.URLParam(r, "gameID"), r.URL.Query().Get("checksum"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &wire.ChecksumResponse{Result: wire.OK, Match: match})
}

func (s *HTTPServer) handleReplay(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	replay, ok := s.engine.GetReplay(gameID)
	if !ok {
		s.writeError(w, rules.Errorf(rules.CodeGameNotFound, "no replay for game %s", gameID))
		return
	}
	frames := make([]*game.ReplayFrame, 0, replay.Size())
	for i := 0; i < replay.Size(); i++ {
		if f := replay.FrameAt(i); f != nil {
			frames = append(frames, f)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"gameId": gameID,
		"frames": frames,
	})
}

func (s *HTTPServer) handleZone(query func(gameID, player string) ([]game.CardView, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		player, err := address.Normalize(chi.URLParam(r, "player"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		cards, err := query(chi.URLParam(r, "gameID"), player)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, &wire.CardsResponse{Result: wire.OK, Cards: cards})
	}
}

func (s *HTTPServer) handleCard(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "instanceID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, wire.Result{Error: "instance id must be a number"})
		return
	}
	card, err := s.engine.GetCardInstance(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, &wire.CardResponse{Result: wire.OK, Card: card})
}

// handleWebSocket attaches a client to one game. The optional player query
// parameter is the default actor for actions sent over the socket.
func (s *HTTPServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	if _, err := s.engine.GetGameState(gameID); err != nil {
		s.writeError(w, err)
		return
	}
	player := strings.TrimSpace(r.URL.Query().Get("player"))
	if player != "" {
		normalized, err := address.Normalize(player)
		if err != nil {
			s.writeError(w, err)
			return
		}
		player = normalized
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		gameID: gameID,
		player: player,
	}
	if !s.hub.attach(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump(s.ctx, s.hub)
}

func (s *HTTPServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

func (s *HTTPServer) writeError(w http.ResponseWriter, err error) {
	res := wire.ResultOf(err)
	code := httpStatus(err)
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	if res.Retryable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSON(w, code, res)
}

// httpStatus maps an error onto an HTTP status code.
func httpStatus(err error) int {
	switch rules.CodeOf(err) {
	case "":
	case rules.CodeGameNotFound, rules.CodeCardNotFound:
		return http.StatusNotFound
	case rules.CodeInvalidPlayer, rules.CodeInvalidDeck, rules.CodeInvalidAmount, rules.CodeInvalidStakeAmount:
		return http.StatusBadRequest
	case rules.CodeNotInGame, rules.CodeNotCardOwner:
		return http.StatusForbidden
	default:
		return http.StatusConflict
	}
	switch {
	case errors.Is(err, gateway.ErrBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, gateway.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, gateway.ErrUnknownAction):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				logger.Debug("http request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("remote", r.RemoteAddr),
					zap.Int("status", ww.Status()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
