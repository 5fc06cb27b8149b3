package game

import (
	"fmt"
	"sync/atomic"
)

// Zone locates a card instance inside its game.
type Zone int

const (
	ZoneHand Zone = iota
	ZoneBattlefield
	// ZoneDiscard holds resolved one-shots and destroyed instances.
	ZoneDiscard
)

func (z Zone) String() string {
	switch z {
	case ZoneHand:
		return "HAND"
	case ZoneBattlefield:
		return "BATTLEFIELD"
	case ZoneDiscard:
		return "DISCARD"
	default:
		return fmt.Sprintf("ZONE_%d", int(z))
	}
}

// CardInstance is one physical copy of a template, minted when drawn.
type CardInstance struct {
	CardID     string
	InstanceID uint64
	Owner      string
	TurnPlayed int
	StakedETH  int64
	Zone       Zone
}

// InstanceAllocator hands out globally unique instance IDs. IDs start at 1 and
// are never reused, including IDs burned by rolled back actions.
type InstanceAllocator struct {
	next atomic.Uint64
}

// NewInstanceAllocator creates an allocator whose first ID is start+1.
func NewInstanceAllocator(start uint64) *InstanceAllocator {
	a := &InstanceAllocator{}
	a.next.Store(start)
	return a
}

// Next returns a fresh instance ID.
func (a *InstanceAllocator) Next() uint64 {
	return a.next.Add(1)
}

// Last returns the most recently allocated ID.
func (a *InstanceAllocator) Last() uint64 {
	return a.next.Load()
}
