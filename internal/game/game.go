package game

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethduel/duel-server-go/internal/game/ledger"
	"github.com/ethduel/duel-server-go/internal/game/rules"
)

// Status is the lifecycle state of a game.
type Status int

const (
	StatusWaiting Status = iota
	StatusReady
	StatusActive
	StatusFinished
)

var statusNames = map[Status]string{
	StatusWaiting:  "WAITING",
	StatusReady:    "READY",
	StatusActive:   "ACTIVE",
	StatusFinished: "FINISHED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status name.
func (s *Status) UnmarshalText(text []byte) error {
	name := strings.ToUpper(strings.TrimSpace(string(text)))
	for status, n := range statusNames {
		if n == name {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown game status %q", string(text))
}

// Game is a single authoritative game. All fields live in st and are guarded by mu;
// mutations go through Engine.apply so that a failed action restores st wholesale.
type Game struct {
	mu sync.RWMutex
	st gameState
}

type gameState struct {
	ID            string
	Player1       string
	Player2       string
	Player1DeckID string
	Player2DeckID string
	IsStarted     bool
	IsFinished    bool
	Winner        string
	CreatedAt     time.Time
	StartedAt     *time.Time
	FinishedAt    *time.Time

	// Seq counts committed actions. It only ever grows.
	Seq uint64

	Turn      *rules.TurnManager
	Players   [2]*ledger.PlayerState
	Instances map[uint64]*CardInstance

	// minted collects instance IDs created by the action in flight.
	minted []uint64
}

func (s *gameState) status() Status {
	switch {
	case s.IsFinished:
		return StatusFinished
	case s.IsStarted:
		return StatusActive
	case s.Player2 != "":
		return StatusReady
	default:
		return StatusWaiting
	}
}

// seatOf returns 0 or 1 for a seated player, -1 otherwise.
func (s *gameState) seatOf(player string) int {
	switch {
	case player == "":
		return -1
	case player == s.Player1:
		return 0
	case player == s.Player2:
		return 1
	default:
		return -1
	}
}

func (s *gameState) player(player string) (*ledger.PlayerState, error) {
	seat := s.seatOf(player)
	if seat < 0 || s.Players[seat] == nil {
		return nil, rules.Errorf(rules.CodeNotInGame, "%s is not seated in game %s", player, s.ID)
	}
	return s.Players[seat], nil
}

func (s *gameState) opponentOf(player string) *ledger.PlayerState {
	seat := s.seatOf(player)
	if seat < 0 {
		return nil
	}
	return s.Players[1-seat]
}

func (s *gameState) clone() gameState {
	cp := *s
	cp.StartedAt = cloneTime(s.StartedAt)
	cp.FinishedAt = cloneTime(s.FinishedAt)
	cp.Turn = s.Turn.Clone()
	for i, p := range s.Players {
		cp.Players[i] = p.Clone()
	}
	cp.Instances = make(map[uint64]*CardInstance, len(s.Instances))
	for id, inst := range s.Instances {
		instCopy := *inst
		cp.Instances[id] = &instCopy
	}
	cp.minted = append([]uint64(nil), s.minted...)
	return cp
}

func cloneTime(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	cp := *src
	return &cp
}
