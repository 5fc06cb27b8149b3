package rules

// EventType indicates the kind of committed action a notification reports.
type EventType string

const (
	EventGameCreated           EventType = "GAME_CREATED"
	EventPlayerJoined          EventType = "PLAYER_JOINED"
	EventGameStarted           EventType = "GAME_STARTED"
	EventCardDrawn             EventType = "CARD_DRAWN"
	EventCardPlayed            EventType = "CARD_PLAYED"
	EventETHStaked             EventType = "ETH_STAKED"
	EventColdStorageDeposit    EventType = "COLD_STORAGE_DEPOSIT"
	EventColdStorageWithdrawal EventType = "COLD_STORAGE_WITHDRAWAL"
	EventTurnEnded             EventType = "TURN_ENDED"
	EventGameFinished          EventType = "GAME_FINISHED"
)

// AllEventTypes lists every notification kind in lifecycle order.
var AllEventTypes = []EventType{
	EventGameCreated,
	EventPlayerJoined,
	EventGameStarted,
	EventCardDrawn,
	EventCardPlayed,
	EventETHStaked,
	EventColdStorageDeposit,
	EventColdStorageWithdrawal,
	EventTurnEnded,
	EventGameFinished,
}

// Valid reports whether et is a known notification kind.
func (et EventType) Valid() bool {
	for _, known := range AllEventTypes {
		if et == known {
			return true
		}
	}
	return false
}
