package wire

import (
	"errors"

	"github.com/ethduel/duel-server-go/internal/game"
	"github.com/ethduel/duel-server-go/internal/game/rules"
	"github.com/ethduel/duel-server-go/internal/gateway"
	"github.com/ethduel/duel-server-go/internal/notify"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// ServiceName is the fully qualified gRPC service.
const ServiceName = "duel.v1.DuelService"

// PlayerHeader carries the acting wallet address in request metadata.
const PlayerHeader = "x-player-address"

// RPC method names.
const (
	MethodCreateGame              = "CreateGame"
	MethodJoinGame                = "JoinGame"
	MethodStartGame               = "StartGame"
	MethodDrawToStartTurn         = "DrawToStartTurn"
	MethodPlayCard                = "PlayCard"
	MethodStakeETH                = "StakeETH"
	MethodDepositToColdStorage    = "DepositToColdStorage"
	MethodWithdrawFromColdStorage = "WithdrawFromColdStorage"
	MethodEndTurn                 = "EndTurn"

	MethodGetGameState         = "GetGameState"
	MethodGetCardInstance      = "GetCardInstance"
	MethodGetPlayerHand        = "GetPlayerHand"
	MethodGetPlayerBattlefield = "GetPlayerBattlefield"
	MethodListGames            = "ListGames"
	MethodVerifyChecksum       = "VerifyChecksum"
	MethodGetServerState       = "GetServerState"

	MethodWatchGame = "WatchGame"
)

// ActionMethods maps each action kind to its RPC.
var ActionMethods = map[gateway.Kind]string{
	gateway.KindCreateGame:      MethodCreateGame,
	gateway.KindJoinGame:        MethodJoinGame,
	gateway.KindStartGame:       MethodStartGame,
	gateway.KindDrawToStartTurn: MethodDrawToStartTurn,
	gateway.KindPlayCard:        MethodPlayCard,
	gateway.KindStakeETH:        MethodStakeETH,
	gateway.KindDeposit:         MethodDepositToColdStorage,
	gateway.KindWithdraw:        MethodWithdrawFromColdStorage,
	gateway.KindEndTurn:         MethodEndTurn,
}

// FullMethod returns the gRPC path of method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// Result reports whether a request was applied. A rejected request carries the
// rejection code; Retryable is never set together with a code.
type Result struct {
	Success   bool       `json:"success"`
	Error     string     `json:"error,omitempty"`
	Code      rules.Code `json:"code,omitempty"`
	Retryable bool       `json:"retryable,omitempty"`
}

// OK is a successful result.
var OK = Result{Success: true}

// ResultOf converts an error into a Result.
func ResultOf(err error) Result {
	if err == nil {
		return OK
	}
	var ge *rules.GameError
	if errors.As(err, &ge) {
		return Result{Code: ge.Code, Error: ge.Message}
	}
	return Result{Error: err.Error(), Retryable: gateway.IsRetryable(err)}
}

// Err rebuilds the error a Result was made from.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	if r.Code != "" {
		return rules.FromCode(r.Code, r.Error)
	}
	if r.Retryable {
		return gateway.ErrBusy
	}
	if r.Error == "" {
		return errors.New("request failed")
	}
	return errors.New(r.Error)
}

// ActionRequest is the body of every action RPC. Actor may be omitted when the
// PlayerHeader metadata is set.
type ActionRequest struct {
	GameID     string `json:"gameId,omitempty"`
	Actor      string `json:"actor,omitempty"`
	DeckID     string `json:"deckId,omitempty"`
	HandIndex  int    `json:"handIndex,omitempty"`
	InstanceID uint64 `json:"instanceId,omitempty"`
	Amount     int64  `json:"amount,omitempty"`
}

// Action converts the request into a gateway action of kind.
func (r *ActionRequest) Action(kind gateway.Kind) gateway.Action {
	return gateway.Action{
		Kind:       kind,
		GameID:     r.GameID,
		Actor:      r.Actor,
		DeckID:     r.DeckID,
		HandIndex:  r.HandIndex,
		InstanceID: r.InstanceID,
		Amount:     r.Amount,
	}
}

// ActionResponse confirms or rejects an action.
type ActionResponse struct {
	Result
	GameID        string                 `json:"gameId,omitempty"`
	Seq           uint64                 `json:"seq,omitempty"`
	InstanceID    uint64                 `json:"instanceId,omitempty"`
	Notifications []notify.Notification  `json:"notifications,omitempty"`
	ServerTime    *timestamppb.Timestamp `json:"serverTime,omitempty"`
}

// Receipt returns the gateway receipt carried by a successful response.
func (r *ActionResponse) Receipt() *gateway.Receipt {
	return &gateway.Receipt{
		GameID:        r.GameID,
		Seq:           r.Seq,
		InstanceID:    r.InstanceID,
		Notifications: r.Notifications,
	}
}

type GameRequest struct {
	GameID string `json:"gameId"`
}

type StateResponse struct {
	Result
	State      *game.StateView        `json:"state,omitempty"`
	ServerTime *timestamppb.Timestamp `json:"serverTime,omitempty"`
}

type CardRequest struct {
	InstanceID uint64 `json:"instanceId"`
}

type CardResponse struct {
	Result
	Card *game.CardView `json:"card,omitempty"`
}

type ZoneRequest struct {
	GameID string `json:"gameId"`
	Player string `json:"player"`
}

type CardsResponse struct {
	Result
	Cards []game.CardView `json:"cards"`
}

type ListGamesRequest struct {
	// IncludeFinished also lists finished games.
	IncludeFinished bool `json:"includeFinished,omitempty"`
}

type ListGamesResponse struct {
	Games      []*game.StateView      `json:"games"`
	ServerTime *timestamppb.Timestamp `json:"serverTime,omitempty"`
}

type ChecksumRequest struct {
	GameID   string `json:"gameId"`
	Checksum string `json:"checksum"`
}

type ChecksumResponse struct {
	Result
	Match bool `json:"match"`
}

type ServerStateRequest struct{}

type ServerStateResponse struct {
	ServerVersion   string                 `json:"serverVersion"`
	ActiveGames     int                    `json:"activeGames"`
	HostedGames     int                    `json:"hostedGames"`
	Watchers        int                    `json:"watchers"`
	NumberOfThreads int                    `json:"numberOfThreads"`
	ServerTime      *timestamppb.Timestamp `json:"serverTime"`
}

// WatchRequest opens a notification stream. An empty GameID watches every game.
type WatchRequest struct {
	GameID string `json:"gameId,omitempty"`
}
