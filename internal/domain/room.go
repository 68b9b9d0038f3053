package domain

// MaxPlayers is the number of seats in a room. Joiners beyond this
// become spectators.
const MaxPlayers = 2

// Player is a seated participant. Side is assigned once a match has
// started and is zero before then.
type Player struct {
	UserID string
	Name   string
	Side   Side
}

// Spectator observes the room but never acts.
type Spectator struct {
	UserID string
	Name   string
}

// Room is one duel room: up to two seated players, any number of
// spectators, and the in-progress match if one has started. The match
// state never outlives its room.
type Room struct {
	Code       string
	Players    []*Player
	Spectators []*Spectator
	Match      *Match
}

// NewRoom creates an empty room for the given code.
func NewRoom(code string) *Room {
	return &Room{Code: code}
}

// Seat adds the session to the room, taking a player seat when one is
// free, otherwise joining as a spectator. Reports whether a player
// seat was taken. Re-seating an occupant only refreshes its name.
func (r *Room) Seat(userID, name string) bool {
	for _, p := range r.Players {
		if p.UserID == userID {
			p.Name = name
			return true
		}
	}
	for _, s := range r.Spectators {
		if s.UserID == userID {
			s.Name = name
			return false
		}
	}
	if len(r.Players) < MaxPlayers {
		r.Players = append(r.Players, &Player{UserID: userID, Name: name})
		return true
	}
	r.Spectators = append(r.Spectators, &Spectator{UserID: userID, Name: name})
	return false
}

// Remove drops the session from whichever list holds it. Reports
// whether the room's membership changed.
func (r *Room) Remove(userID string) bool {
	for i, p := range r.Players {
		if p.UserID == userID {
			r.Players = append(r.Players[:i], r.Players[i+1:]...)
			return true
		}
	}
	for i, s := range r.Spectators {
		if s.UserID == userID {
			r.Spectators = append(r.Spectators[:i], r.Spectators[i+1:]...)
			return true
		}
	}
	return false
}

// Empty reports whether no players and no spectators remain.
func (r *Room) Empty() bool {
	return len(r.Players) == 0 && len(r.Spectators) == 0
}

// IsPlayer reports whether the session holds a player seat.
func (r *Room) IsPlayer(userID string) bool {
	return r.PlayerByID(userID) != nil
}

// PlayerByID returns the seated player with the given id, or nil.
func (r *Room) PlayerByID(userID string) *Player {
	for _, p := range r.Players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// Opponent returns the seated player other than the given id, or nil
// when no opponent is seated.
func (r *Room) Opponent(userID string) *Player {
	for _, p := range r.Players {
		if p.UserID != userID {
			return p
		}
	}
	return nil
}

// PlayerBySide returns the seated player holding the given side, or nil.
func (r *Room) PlayerBySide(side Side) *Player {
	for _, p := range r.Players {
		if p.Side == side {
			return p
		}
	}
	return nil
}

// PlayerName returns the display name for a seated player id, falling
// back to "player" for unknown ids.
func (r *Room) PlayerName(userID string) string {
	if p := r.PlayerByID(userID); p != nil && p.Name != "" {
		return p.Name
	}
	return "player"
}
