package server

import (
	"context"

	"github.com/ethduel/duel-server-go/internal/wire"
	"google.golang.org/grpc"
)

// DuelServiceServer is the server API of duel.v1.DuelService.
type DuelServiceServer interface {
	CreateGame(context.Context, *wire.ActionRequest) (*wire.ActionResponse, error)
	JoinGame(context.Context, *wire.ActionRequest) (*wire.ActionResponse, error)
	StartGame(context.Context, *wire.ActionRequest) (*wire.ActionResponse, error)
	DrawToStartTurn(context.Context, *wire.ActionRequest) (*wire.ActionResponse, error)
	PlayCard(context.Context, *wire.ActionRequest) (*wire.ActionResponse, error)
	StakeETH(context.Context, *wire.ActionRequest) (*wire.ActionResponse, error)
	DepositToColdStorage(context.Context, *wire.ActionRequest) (*wire.ActionResponse, error)
	WithdrawFromColdStorage(context.Context, *wire.ActionRequest) (*wire.ActionResponse, error)
	EndTurn(context.Context, *wire.ActionRequest) (*wire.ActionResponse, error)

	GetGameState(context.Context, *wire.GameRequest) (*wire.StateResponse, error)
	GetCardInstance(context.Context, *wire.CardRequest) (*wire.CardResponse, error)
	GetPlayerHand(context.Context, *wire.ZoneRequest) (*wire.CardsResponse, error)
	GetPlayerBattlefield(context.Context, *wire.ZoneRequest) (*wire.CardsResponse, error)
	ListGames(context.Context, *wire.ListGamesRequest) (*wire.ListGamesResponse, error)
	VerifyChecksum(context.Context, *wire.ChecksumRequest) (*wire.ChecksumResponse, error)
	GetServerState(context.Context, *wire.ServerStateRequest) (*wire.ServerStateResponse, error)

	WatchGame(*wire.WatchRequest, grpc.ServerStream) error
}

// ServiceDesc describes duel.v1.DuelService. Messages use the JSON codec.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: wire.ServiceName,
	HandlerType: (*DuelServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(wire.MethodCreateGame, DuelServiceServer.CreateGame),
		unaryMethod(wire.MethodJoinGame, DuelServiceServer.JoinGame),
		unaryMethod(wire.MethodStartGame, DuelServiceServer.StartGame),
		unaryMethod(wire.MethodDrawToStartTurn, DuelServiceServer.DrawToStartTurn),
		unaryMethod(wire.MethodPlayCard, DuelServiceServer.PlayCard),
		unaryMethod(wire.MethodStakeETH, DuelServiceServer.StakeETH),
		unaryMethod(wire.MethodDepositToColdStorage, DuelServiceServer.DepositToColdStorage),
		unaryMethod(wire.MethodWithdrawFromColdStorage, DuelServiceServer.WithdrawFromColdStorage),
		unaryMethod(wire.MethodEndTurn, DuelServiceServer.EndTurn),
		unaryMethod(wire.MethodGetGameState, DuelServiceServer.GetGameState),
		unaryMethod(wire.MethodGetCardInstance, DuelServiceServer.GetCardInstance),
		unaryMethod(wire.MethodGetPlayerHand, DuelServiceServer.GetPlayerHand),
		unaryMethod(wire.MethodGetPlayerBattlefield, DuelServiceServer.GetPlayerBattlefield),
		unaryMethod(wire.MethodListGames, DuelServiceServer.ListGames),
		unaryMethod(wire.MethodVerifyChecksum, DuelServiceServer.VerifyChecksum),
		unaryMethod(wire.MethodGetServerState, DuelServiceServer.GetServerState),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    wire.MethodWatchGame,
			Handler:       watchGameHandler,
			ServerStreams: true,
		},
	},
	Metadata: "duel/v1/duel.proto",
}

// RegisterDuelServiceServer registers srv on s.
func RegisterDuelServiceServer(s grpc.ServiceRegistrar, srv DuelServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func unaryMethod[Req, Resp any](name string, call func(DuelServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(DuelServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: wire.FullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(DuelServiceServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchGameHandler(srv any, stream grpc.ServerStream) error {
	in := new(wire.WatchRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DuelServiceServer).WatchGame(in, stream)
}
