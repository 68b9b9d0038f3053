package nakama

// RPC identifiers registered with the Nakama runtime.
const (
	RpcIdCreateRoom = "create_room"
	RpcIdJoinRoom   = "join_room"
	RpcIdVivoxToken = "vivox_token"
)

// MatchNameEcard is the authoritative match handler name.
const MatchNameEcard = "ecard_match"

// Client to server opcodes.
const (
	OpStartMatch int64 = 1
	OpSubmitPick int64 = 2
	OpRematch    int64 = 3
)

// Server to client opcodes.
const (
	OpRoomUpdated    int64 = 101
	OpStatePushed    int64 = 102
	OpOpponentLocked int64 = 103
	OpMatchError     int64 = 104
)

// Error codes carried in match error payloads.
const (
	ErrCodeInternal           = 500
	ErrCodeNotAPlayer         = 4001
	ErrCodeWrongPlayerCount   = 4002
	ErrCodeSpectatorForbidden = 4003
	ErrCodeCardNotInHand      = 4004
)
