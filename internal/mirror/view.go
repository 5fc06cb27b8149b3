package mirror

import (
	"time"

	"github.com/ethduel/duel-server-go/internal/game"
)

// Status describes how far the local view can be trusted.
type Status int

const (
	// StatusEmpty means nothing has been fetched yet.
	StatusEmpty Status = iota
	// StatusSynced means the view matches the last successful fetch.
	StatusSynced
	// StatusStale means the last fetch failed and the previous view is kept.
	StatusStale
	// StatusPending means an expected update has not become visible yet.
	StatusPending
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "EMPTY"
	case StatusSynced:
		return "SYNCED"
	case StatusStale:
		return "STALE"
	case StatusPending:
		return "PENDING"
	default:
		return "UNKNOWN"
	}
}

// View is a local copy of one game. Hands and battlefields are keyed by player and
// only filled once the game is active.
type View struct {
	State        *game.StateView
	Hands        map[string][]game.CardView
	Battlefields map[string][]game.CardView
	Status       Status
	FetchedAt    time.Time
	// Optimistic marks a view with unconfirmed local changes applied.
	Optimistic bool
}

// Seq returns the sequence number of the state, or 0.
func (v *View) Seq() uint64 {
	if v == nil || v.State == nil {
		return 0
	}
	return v.State.Seq
}

// Clone returns a deep copy.
func (v *View) Clone() *View {
	if v == nil {
		return nil
	}
	cp := *v
	cp.State = v.State.Clone()
	cp.Hands = cloneZones(v.Hands)
	cp.Battlefields = cloneZones(v.Battlefields)
	return &cp
}

func cloneZones(src map[string][]game.CardView) map[string][]game.CardView {
	if src == nil {
		return nil
	}
	out := make(map[string][]game.CardView, len(src))
	for player, cards := range src {
		out[player] = append([]game.CardView(nil), cards...)
	}
	return out
}
