package app

import "ecard/internal/domain"

// PlayerInfo is the public description of a seated player.
type PlayerInfo struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	Side domain.Side `json:"side,omitempty"`
}

// SpectatorInfo is the public description of a spectator.
type SpectatorInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MatchSummaryView is the shared, hand-free summary of a match.
type MatchSummaryView struct {
	Phase        domain.Phase          `json:"phase"`
	SetIndex     int                   `json:"setIndex"`
	RoundInSet   int                   `json:"roundInSet"`
	RoundsPerSet int                   `json:"roundsPerSet"`
	TotalSets    int                   `json:"totalSets"`
	RoundWins    map[string]int        `json:"roundWins"`
	History      []domain.HistoryEntry `json:"history"`
	MatchWinner  string                `json:"matchWinner,omitempty"`
	MatchFlavor  string                `json:"matchFlavor,omitempty"`
}

// RoomSnapshot is the view sent to everyone on membership or summary
// changes. It never includes hand contents.
type RoomSnapshot struct {
	Code       string            `json:"code"`
	Players    []PlayerInfo      `json:"players"`
	Spectators []SpectatorInfo   `json:"spectators"`
	State      *MatchSummaryView `json:"state"`
}

// HandCounts is the redacted view of the opponent's remaining hand:
// only how many of each kind remain, never which specific cards.
type HandCounts struct {
	Emperor int `json:"EMPEROR"`
	Slave   int `json:"SLAVE"`
	Citizen int `json:"CITIZEN"`
}

// TailoredState is the per-player view: the room snapshot plus the
// viewer's own hand, the opponent's hand reduced to kind counts, and
// the viewer's own pending pick. The opponent's pending pick is
// projected only as the OpponentLocked boolean.
type TailoredState struct {
	RoomSnapshot
	You               string                 `json:"you"`
	Hand              []domain.Card          `json:"hand"`
	OpponentRemaining *HandCounts            `json:"opponentRemaining"`
	Picks             map[string]domain.Card `json:"picks"`
	OpponentLocked    bool                   `json:"opponentLocked"`
}

// BuildRoomSnapshot projects the spectator-safe view of a room.
func BuildRoomSnapshot(room *domain.Room) RoomSnapshot {
	snap := RoomSnapshot{
		Code:       room.Code,
		Players:    make([]PlayerInfo, 0, len(room.Players)),
		Spectators: make([]SpectatorInfo, 0, len(room.Spectators)),
	}
	for _, p := range room.Players {
		snap.Players = append(snap.Players, PlayerInfo{ID: p.UserID, Name: p.Name, Side: p.Side})
	}
	for _, s := range room.Spectators {
		snap.Spectators = append(snap.Spectators, SpectatorInfo{ID: s.UserID, Name: s.Name})
	}
	if m := room.Match; m != nil {
		snap.State = &MatchSummaryView{
			Phase:        m.Phase,
			SetIndex:     m.SetIndex,
			RoundInSet:   m.RoundInSet,
			RoundsPerSet: m.RoundsPerSet,
			TotalSets:    m.TotalSets,
			RoundWins:    m.RoundWins,
			History:      m.History,
			MatchWinner:  m.WinnerID,
			MatchFlavor:  m.Summary,
		}
	}
	return snap
}

// BuildTailoredState projects the room for one seated player.
func BuildTailoredState(room *domain.Room, userID string) TailoredState {
	state := TailoredState{
		RoomSnapshot: BuildRoomSnapshot(room),
		You:          userID,
		Hand:         []domain.Card{},
		Picks:        map[string]domain.Card{},
	}
	m := room.Match
	if m == nil {
		return state
	}
	if hand, ok := m.Hands[userID]; ok {
		state.Hand = hand
	}
	if pick, ok := m.Picks[userID]; ok {
		state.Picks[userID] = pick
	}
	if opp := room.Opponent(userID); opp != nil {
		if hand, ok := m.Hands[opp.UserID]; ok {
			counts := domain.CountByKind(hand)
			state.OpponentRemaining = &HandCounts{
				Emperor: counts[domain.CardEmperor],
				Slave:   counts[domain.CardSlave],
				Citizen: counts[domain.CardCitizen],
			}
		}
		_, state.OpponentLocked = m.Picks[opp.UserID]
	}
	return state
}
