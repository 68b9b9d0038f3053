package app

// EventKind identifies emitted app events for Nakama dispatch.
type EventKind string

const (
	// EventRoomUpdated carries the shared room snapshot, broadcast to
	// every occupant including spectators.
	EventRoomUpdated EventKind = "room_updated"
	// EventStatePushed carries a player-tailored state, always targeted.
	EventStatePushed EventKind = "state_pushed"
	// EventOpponentLocked tells the player who has not yet picked that
	// the opponent's pick is in. Never carries the pick itself.
	EventOpponentLocked EventKind = "opponent_locked"
)

// Event is an app event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user IDs; empty means broadcast
}

type RoomUpdatedPayload struct {
	Snapshot RoomSnapshot
}

type StatePushedPayload struct {
	State TailoredState
}

type OpponentLockedPayload struct {
	Locked bool `json:"locked"`
}
