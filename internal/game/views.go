package game

import (
	"time"

	"github.com/ethduel/duel-server-go/internal/game/ledger"
)

// PlayerView is the public summary of one seat.
type PlayerView struct {
	Player                       string `json:"player"`
	DeckID                       string `json:"deckId"`
	ETH                          int64  `json:"eth"`
	ColdStorage                  int64  `json:"coldStorage"`
	ColdStorageWithdrawnThisTurn int64  `json:"coldStorageWithdrawnThisTurn"`
	HandSize                     int    `json:"handSize"`
	BattlefieldSize              int    `json:"battlefieldSize"`
	DeckRemaining                int    `json:"deckRemaining"`
}

// StateView is a point-in-time copy of a game. Player2 is nil until someone joins.
type StateView struct {
	GameID      string      `json:"gameId"`
	Status      Status      `json:"status"`
	Player1     *PlayerView `json:"player1"`
	Player2     *PlayerView `json:"player2,omitempty"`
	CurrentTurn string      `json:"currentTurn,omitempty"`
	TurnNumber  int         `json:"turnNumber"`
	NeedsToDraw bool        `json:"needsToDraw"`
	IsStarted   bool        `json:"isStarted"`
	IsFinished  bool        `json:"isFinished"`
	Winner      string      `json:"winner,omitempty"`
	Seq         uint64      `json:"seq"`
	CreatedAt   time.Time   `json:"createdAt"`
	StartedAt   *time.Time  `json:"startedAt,omitempty"`
	FinishedAt  *time.Time  `json:"finishedAt,omitempty"`
	Checksum    string      `json:"checksum"`
}

// Clone returns a deep copy.
func (v *StateView) Clone() *StateView {
	if v == nil {
		return nil
	}
	cp := *v
	if v.Player1 != nil {
		p := *v.Player1
		cp.Player1 = &p
	}
	if v.Player2 != nil {
		p := *v.Player2
		cp.Player2 = &p
	}
	cp.StartedAt = cloneTime(v.StartedAt)
	cp.FinishedAt = cloneTime(v.FinishedAt)
	return &cp
}

// Seat returns the view of player, or nil.
func (v *StateView) Seat(player string) *PlayerView {
	switch {
	case v.Player1 != nil && v.Player1.Player == player:
		return v.Player1
	case v.Player2 != nil && v.Player2.Player == player:
		return v.Player2
	default:
		return nil
	}
}

// CardView joins an instance with its template.
type CardView struct {
	GameID          string `json:"gameId"`
	InstanceID      uint64 `json:"instanceId"`
	CardID          string `json:"cardId"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	Cost            int64  `json:"cost"`
	Owner           string `json:"owner"`
	Zone            string `json:"zone"`
	TurnPlayed      int    `json:"turnPlayed"`
	StakedETH       int64  `json:"stakedEth"`
	YieldMultiplier int64  `json:"yieldMultiplier,omitempty"`
}

func (e *Engine) buildStateView(st *gameState) *StateView {
	view := &StateView{
		GameID:     st.ID,
		Status:     st.status(),
		Player1:    buildPlayerView(st.Players[0]),
		Player2:    buildPlayerView(st.Players[1]),
		IsStarted:  st.IsStarted,
		IsFinished: st.IsFinished,
		Winner:     st.Winner,
		Seq:        st.Seq,
		CreatedAt:  st.CreatedAt,
		StartedAt:  cloneTime(st.StartedAt),
		FinishedAt: cloneTime(st.FinishedAt),
		Checksum:   st.checksum(),
	}
	if st.Turn != nil {
		view.CurrentTurn = st.Turn.ActivePlayer()
		view.TurnNumber = st.Turn.TurnNumber()
		view.NeedsToDraw = st.Turn.NeedsToDraw()
	}
	return view
}

func buildPlayerView(p *ledger.PlayerState) *PlayerView {
	if p == nil {
		return nil
	}
	return &PlayerView{
		Player:                       p.Player,
		DeckID:                       p.DeckID,
		ETH:                          p.ETH,
		ColdStorage:                  p.ColdStorage,
		ColdStorageWithdrawnThisTurn: p.ColdStorageWithdrawnThisTurn,
		HandSize:                     len(p.Hand),
		BattlefieldSize:              len(p.Battlefield),
		DeckRemaining:                p.DeckRemaining(),
	}
}

func (e *Engine) buildCardView(gameID string, inst *CardInstance) *CardView {
	view := &CardView{
		GameID:     gameID,
		InstanceID: inst.InstanceID,
		CardID:     inst.CardID,
		Name:       inst.CardID,
		Owner:      inst.Owner,
		Zone:       inst.Zone.String(),
		TurnPlayed: inst.TurnPlayed,
		StakedETH:  inst.StakedETH,
	}
	if tmpl, ok := e.catalog.Template(inst.CardID); ok {
		view.Name = tmpl.Name
		view.Category = tmpl.Category.String()
		view.Cost = tmpl.Cost
		view.YieldMultiplier = tmpl.YieldMultiplier()
	}
	return view
}
