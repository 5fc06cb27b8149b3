package rules

import (
	"fmt"
	"strings"
)

// Phase is the per-turn sub-state of an active game.
type Phase int

const (
	// PhaseNeedsDraw blocks everything except the active player's draw.
	PhaseNeedsDraw Phase = iota
	// PhaseMain allows plays, staking, cold storage moves and ending the turn.
	PhaseMain
)

var phaseNames = map[Phase]string{
	PhaseNeedsDraw: "NEEDS_DRAW",
	PhaseMain:      "MAIN",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PHASE_%d", int(p))
}

// TurnManager tracks the active seat, turn number and draw gate of a two seat game.
type TurnManager struct {
	seats       [2]string
	activeSeat  int
	turnNumber  int
	needsToDraw bool
}

// NewTurnManager creates a turn manager at turn 1 with seat 0 active and the
// draw gate raised.
func NewTurnManager(player1, player2 string) *TurnManager {
	return &TurnManager{
		seats:       [2]string{strings.TrimSpace(player1), strings.TrimSpace(player2)},
		activeSeat:  0,
		turnNumber:  1,
		needsToDraw: true,
	}
}

// RestoreTurnManager rebuilds a turn manager from persisted fields.
func RestoreTurnManager(player1, player2 string, activeSeat, turnNumber int, needsToDraw bool) *TurnManager {
	tm := NewTurnManager(player1, player2)
	tm.activeSeat = activeSeat & 1
	tm.turnNumber = turnNumber
	tm.needsToDraw = needsToDraw
	return tm
}

// ActivePlayer returns the player who currently has the turn.
func (tm *TurnManager) ActivePlayer() string {
	return tm.seats[tm.activeSeat]
}

// InactivePlayer returns the player waiting for their turn.
func (tm *TurnManager) InactivePlayer() string {
	return tm.seats[1-tm.activeSeat]
}

// ActiveSeat returns 0 for player1 and 1 for player2.
func (tm *TurnManager) ActiveSeat() int {
	return tm.activeSeat
}

// TurnNumber returns the current turn number (1-based). It advances each time
// the turn wraps back to player1.
func (tm *TurnManager) TurnNumber() int {
	return tm.turnNumber
}

// NeedsToDraw reports whether the active player still owes their turn-start draw.
func (tm *TurnManager) NeedsToDraw() bool {
	return tm.needsToDraw
}

// CurrentPhase derives the phase from the draw gate.
func (tm *TurnManager) CurrentPhase() Phase {
	if tm.needsToDraw {
		return PhaseNeedsDraw
	}
	return PhaseMain
}

// IsActive reports whether player holds the turn.
func (tm *TurnManager) IsActive(player string) bool {
	return tm.ActivePlayer() == player
}

// CompleteDraw lowers the draw gate.
func (tm *TurnManager) CompleteDraw() {
	tm.needsToDraw = false
}

// EndTurn passes the turn to the other seat and raises the draw gate for it.
// Returns the new active player.
func (tm *TurnManager) EndTurn() string {
	tm.activeSeat = 1 - tm.activeSeat
	if tm.activeSeat == 0 {
		tm.turnNumber++
	}
	tm.needsToDraw = true
	return tm.ActivePlayer()
}

// Clone returns an independent copy.
func (tm *TurnManager) Clone() *TurnManager {
	if tm == nil {
		return nil
	}
	cp := *tm
	return &cp
}
