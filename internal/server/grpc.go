package server

import (
	"context"
	"errors"
	"net"
	"runtime"
	"strings"
	"time"

	"github.com/ethduel/duel-server-go/internal/address"
	"github.com/ethduel/duel-server-go/internal/game"
	"github.com/ethduel/duel-server-go/internal/game/rules"
	"github.com/ethduel/duel-server-go/internal/gateway"
	"github.com/ethduel/duel-server-go/internal/notify"
	"github.com/ethduel/duel-server-go/internal/wire"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// duelServer implements the DuelService gRPC service
type duelServer struct {
	logger        *zap.Logger
	serverVersion string

	gateway *gateway.Gateway
	engine  *game.Engine
	bus     *notify.Bus
	now     func() time.Time
}

// NewDuelServer creates a new duel server instance
func NewDuelServer(gw *gateway.Gateway, bus *notify.Bus, serverVersion string, logger *zap.Logger) *duelServer {
	return &duelServer{
		logger:        logger,
		serverVersion: serverVersion,
		gateway:       gw,
		engine:        gw.Engine(),
		bus:           bus,
		now:           time.Now,
	}
}

// ==================== Actions ====================

func (s *duelServer) CreateGame(ctx context.Context, req *wire.ActionRequest) (*wire.ActionResponse, error) {
	return s.submit(ctx, gateway.KindCreateGame, req)
}

func (s *duelServer) JoinGame(ctx context.Context, req *wire.ActionRequest) (*wire.ActionResponse, error) {
	return s.submit(ctx, gateway.KindJoinGame, req)
}

func (s *duelServer) StartGame(ctx context.Context, req *wire.ActionRequest) (*wire.ActionResponse, error) {
	return s.submit(ctx, gateway.KindStartGame, req)
}

func (s *duelServer) DrawToStartTurn(ctx context.Context, req *wire.ActionRequest) (*wire.ActionResponse, error) {
	return s.submit(ctx, gateway.KindDrawToStartTurn, req)
}

func (s *duelServer) PlayCard(ctx context.Context, req *wire.ActionRequest) (*wire.ActionResponse, error) {
	return s.submit(ctx, gateway.KindPlayCard, req)
}

func (s *duelServer) StakeETH(ctx context.Context, req *wire.ActionRequest) (*wire.ActionResponse, error) {
	return s.submit(ctx, gateway.KindStakeETH, req)
}

func (s *duelServer) DepositToColdStorage(ctx context.Context, req *wire.ActionRequest) (*wire.ActionResponse, error) {
	return s.submit(ctx, gateway.KindDeposit, req)
}

func (s *duelServer) WithdrawFromColdStorage(ctx context.Context, req *wire.ActionRequest) (*wire.ActionResponse, error) {
	return s.submit(ctx, gateway.KindWithdraw, req)
}

func (s *duelServer) EndTurn(ctx context.Context, req *wire.ActionRequest) (*wire.ActionResponse, error) {
	return s.submit(ctx, gateway.KindEndTurn, req)
}

// submit runs one action. Rejections are returned in the response body; transient
// and internal failures become gRPC status errors.
func (s *duelServer) submit(ctx context.Context, kind gateway.Kind, req *wire.ActionRequest) (*wire.ActionResponse, error) {
	action := req.Action(kind)
	action.Actor = actorFromContext(ctx, req.Actor)

	receipt, err := s.gateway.Submit(ctx, action)
	if err != nil {
		if code := rules.CodeOf(err); code != "" {
			s.logger.Debug("action rejected",
				zap.String("kind", string(kind)),
				zap.String("game_id", action.GameID),
				zap.String("actor", action.Actor),
				zap.String("code", string(code)),
			)
			return &wire.ActionResponse{
				Result:     wire.ResultOf(err),
				GameID:     action.GameID,
				ServerTime: timestamppb.New(s.now()),
			}, nil
		}
		return nil, statusFromError(err)
	}

	return &wire.ActionResponse{
		Result:        wire.OK,
		GameID:        receipt.GameID,
		Seq:           receipt.Seq,
		InstanceID:    receipt.InstanceID,
		Notifications: receipt.Notifications,
		ServerTime:    timestamppb.New(s.now()),
	}, nil
}

// ==================== Queries ====================

func (s *duelServer) GetGameState(ctx context.Context, req *wire.GameRequest) (*wire.StateResponse, error) {
	if strings.TrimSpace(req.GameID) == "" {
		return nil, status.Errorf(codes.InvalidArgument, "game_id is required")
	}
	state, err := s.engine.GetGameState(req.GameID)
	if err != nil {
		return &wire.StateResponse{Result: wire.ResultOf(err)}, nil
	}
	return &wire.StateResponse{
		Result:     wire.OK,
		State:      state,
		ServerTime: timestamppb.New(s.now()),
	}, nil
}

func (s *duelServer) GetCardInstance(ctx context.Context, req *wire.CardRequest) (*wire.CardResponse, error) {
	card, err := s.engine.GetCardInstance(req.InstanceID)
	if err != nil {
		return &wire.CardResponse{Result: wire.ResultOf(err)}, nil
	}
	return &wire.CardResponse{Result: wire.OK, Card: card}, nil
}

func (s *duelServer) GetPlayerHand(ctx context.Context, req *wire.ZoneRequest) (*wire.CardsResponse, error) {
	return s.zone(req, s.engine.GetPlayerHand)
}

func (s *duelServer) GetPlayerBattlefield(ctx context.Context, req *wire.ZoneRequest) (*wire.CardsResponse, error) {
	return s.zone(req, s.engine.GetPlayerBattlefield)
}

func (s *duelServer) zone(req *wire.ZoneRequest, query func(gameID, player string) ([]game.CardView, error)) (*wire.CardsResponse, error) {
	if strings.TrimSpace(req.GameID) == "" {
		return nil, status.Errorf(codes.InvalidArgument, "game_id is required")
	}
	player, err := address.Normalize(req.Player)
	if err != nil {
		return &wire.CardsResponse{Result: wire.ResultOf(err)}, nil
	}
	cards, err := query(req.GameID, player)
	if err != nil {
		return &wire.CardsResponse{Result: wire.ResultOf(err)}, nil
	}
	return &wire.CardsResponse{Result: wire.OK, Cards: cards}, nil
}

func (s *duelServer) ListGames(ctx context.Context, req *wire.ListGamesRequest) (*wire.ListGamesResponse, error) {
	all := s.engine.ListGames()
	games := make([]*game.StateView, 0, len(all))
	for _, v := range all {
		if v.IsFinished && !req.IncludeFinished {
			continue
		}
		games = append(games, v)
	}
	return &wire.ListGamesResponse{
		Games:      games,
		ServerTime: timestamppb.New(s.now()),
	}, nil
}

func (s *duelServer) VerifyChecksum(ctx context.Context, req *wire.ChecksumRequest) (*wire.ChecksumResponse, error) {
	match, err := s.engine.VerifyChecksum(req.GameID, req.Checksum)
	if err != nil {
		return &wire.ChecksumResponse{Result: wire.ResultOf(err)}, nil
	}
	if !match {
		s.logger.Warn("checksum mismatch",
			zap.String("game_id", req.GameID),
			zap.String("peer", extractHostFromContext(ctx)),
		)
	}
	return &wire.ChecksumResponse{Result: wire.OK, Match: match}, nil
}

// GetServerState returns server state information
func (s *duelServer) GetServerState(ctx context.Context, req *wire.ServerStateRequest) (*wire.ServerStateResponse, error) {
	watchers := 0
	if s.bus != nil {
		watchers = s.bus.SubscriberCount()
	}
	return &wire.ServerStateResponse{
		ServerVersion:   s.serverVersion,
		ActiveGames:     s.engine.ActiveGameCount(),
		HostedGames:     len(s.engine.ListGames()),
		Watchers:        watchers,
		NumberOfThreads: runtime.NumGoroutine(),
		ServerTime:      timestamppb.New(s.now()),
	}, nil
}

// ==================== Streams ====================

// WatchGame streams the notifications of one game, or of every game. A watcher
// that falls behind is cut off with Unavailable and should refresh and resubscribe.
func (s *duelServer) WatchGame(req *wire.WatchRequest, stream grpc.ServerStream) error {
	ctx := stream.Context()
	if s.bus == nil {
		return status.Error(codes.Unimplemented, "notifications are not enabled")
	}
	if req.GameID != "" {
		if _, err := s.engine.GetGameState(req.GameID); err != nil {
			return status.Error(codes.NotFound, err.Error())
		}
	}

	ch, err := s.bus.Subscribe(ctx, req.GameID)
	if err != nil {
		return status.Error(codes.Unavailable, err.Error())
	}

	s.logger.Info("watcher attached",
		zap.String("game_id", req.GameID),
		zap.String("host", extractHostFromContext(ctx)),
	)
	defer s.logger.Info("watcher detached", zap.String("game_id", req.GameID))

	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-ch:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return status.Error(codes.Unavailable, "watcher fell behind, resubscribe")
			}
			if err := stream.SendMsg(&n); err != nil {
				return err
			}
		}
	}
}

// ==================== Helper Functions ====================

// statusFromError maps a non-rejection failure onto a gRPC status.
func statusFromError(err error) error {
	switch {
	case errors.Is(err, gateway.ErrBusy):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, gateway.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, gateway.ErrUnknownAction):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// actorFromContext prefers the player header over the request body.
func actorFromContext(ctx context.Context, fallback string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(wire.PlayerHeader); len(vals) > 0 && strings.TrimSpace(vals[0]) != "" {
			return strings.TrimSpace(vals[0])
		}
	}
	return strings.TrimSpace(fallback)
}

// Helper function to extract host from context
func extractHostFromContext(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != net.Addr(nil) {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return "unknown"
}
