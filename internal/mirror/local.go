package mirror

import (
	"context"

	"github.com/ethduel/duel-server-go/internal/game"
)

// EngineSource serves queries straight from an in-process engine.
type EngineSource struct {
	Engine *game.Engine
}

func (s EngineSource) GetGameState(ctx context.Context, gameID string) (*game.StateView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Engine.GetGameState(gameID)
}

func (s EngineSource) GetPlayerHand(ctx context.Context, gameID, player string) ([]game.CardView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Engine.GetPlayerHand(gameID, player)
}

func (s EngineSource) GetPlayerBattlefield(ctx context.Context, gameID, player string) ([]game.CardView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Engine.GetPlayerBattlefield(gameID, player)
}
